package vault

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/zeebo/blake3"

	"github.com/wattxchange/wallet-core/internal/log"
	"github.com/wattxchange/wallet-core/internal/storage"
	"github.com/wattxchange/wallet-core/pkg/errs"
)

// Storage keys within the vault's namespace.
const (
	keySecret   = "secret"
	keyVerifier = "verifier"
)

// verifierSize is salt(32) + KDF params(9) + blake3(argon2 key)(32),
// mirroring the sealed blob's header so a parameter change between
// releases never invalidates stored verifiers.
const verifierSize = headerSize + 32

// Vault seals the recovery phrase at rest and owns the unlocked seed.
// All methods are safe for concurrent use.
type Vault struct {
	mu     sync.RWMutex
	db     storage.DB
	params Params
	seed   []byte // nil while locked
	logger zerolog.Logger
}

// New creates a vault backed by db, using the given Argon2id parameters
// for any newly sealed secrets.
func New(db storage.DB, params Params) *Vault {
	return &Vault{
		db:     db,
		params: params,
		logger: log.Vault,
	}
}

// HasSecret reports whether a sealed phrase is stored.
func (v *Vault) HasSecret() bool {
	has, err := v.db.Has([]byte(keySecret))
	return err == nil && has
}

// Store validates and seals a recovery phrase under password. An existing
// secret is replaced (phrase re-import). The vault stays locked; callers
// unlock explicitly afterwards.
func (v *Vault) Store(phrase, password string) error {
	if !ValidateMnemonic(phrase) {
		return fmt.Errorf("%w: invalid mnemonic phrase", errs.ErrInvalidInput)
	}
	if password == "" {
		return fmt.Errorf("%w: password must not be empty", errs.ErrInvalidInput)
	}

	sealed, err := seal([]byte(phrase), []byte(password), v.params)
	if err != nil {
		return fmt.Errorf("seal phrase: %w", err)
	}
	verifier, err := newVerifier([]byte(password), v.params)
	if err != nil {
		return fmt.Errorf("build verifier: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.db.Put([]byte(keySecret), sealed); err != nil {
		return fmt.Errorf("persist secret: %w", err)
	}
	if err := v.db.Put([]byte(keyVerifier), verifier); err != nil {
		return fmt.Errorf("persist verifier: %w", err)
	}
	Zero(v.seed)
	v.seed = nil

	v.logger.Info().Msg("recovery phrase sealed and stored")
	return nil
}

// Unlock verifies the password, decrypts the phrase and derives the
// session seed. Both a verifier mismatch and an AEAD failure surface as
// the same ErrAuthFailure so a caller cannot tell which check tripped.
func (v *Vault) Unlock(password string) error {
	phrase, err := v.openPhrase(password)
	if err != nil {
		return err
	}
	defer Zero(phrase)

	seed, err := SeedFromMnemonic(string(phrase))
	if err != nil {
		// The phrase authenticated but does not parse: the blob predates
		// this wallet or was sealed from garbage.
		return fmt.Errorf("%w: sealed payload is not a valid mnemonic", errs.ErrCorrupted)
	}

	v.mu.Lock()
	Zero(v.seed)
	v.seed = seed
	v.mu.Unlock()

	v.logger.Info().Msg("vault unlocked")
	return nil
}

// openPhrase runs the full verifier + AEAD path and returns the plaintext
// phrase. Callers must zero the returned slice.
func (v *Vault) openPhrase(password string) ([]byte, error) {
	sealed, err := v.db.Get([]byte(keySecret))
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, fmt.Errorf("%w: no stored secret", errs.ErrNotFound)
		}
		return nil, fmt.Errorf("read secret: %w", err)
	}

	verifier, err := v.db.Get([]byte(keyVerifier))
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, fmt.Errorf("%w: verifier missing", errs.ErrCorrupted)
		}
		return nil, fmt.Errorf("read verifier: %w", err)
	}

	if err := checkVerifier(verifier, []byte(password)); err != nil {
		return nil, err
	}

	return open(sealed, []byte(password))
}

// Locked reports whether the vault currently holds no seed.
func (v *Vault) Locked() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.seed == nil
}

// Lock discards the in-memory seed. Subsequent Seed calls fail with
// ErrLocked until Unlock succeeds again.
func (v *Vault) Lock() {
	v.mu.Lock()
	Zero(v.seed)
	v.seed = nil
	v.mu.Unlock()
	v.logger.Info().Msg("vault locked")
}

// Seed returns a copy of the session seed for one derivation or signing
// operation. Callers zero the copy when done; the vault keeps its own
// buffer until Lock.
func (v *Vault) Seed() ([]byte, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.seed == nil {
		return nil, errs.ErrLocked
	}
	out := make([]byte, len(v.seed))
	copy(out, v.seed)
	return out, nil
}

// ChangePassword re-seals the phrase under a new password. Requires the
// old password to verify; the lock state is unchanged.
func (v *Vault) ChangePassword(oldPassword, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: password must not be empty", errs.ErrInvalidInput)
	}

	phrase, err := v.openPhrase(oldPassword)
	if err != nil {
		return err
	}
	defer Zero(phrase)

	sealed, err := seal(phrase, []byte(newPassword), v.params)
	if err != nil {
		return fmt.Errorf("seal phrase: %w", err)
	}
	verifier, err := newVerifier([]byte(newPassword), v.params)
	if err != nil {
		return fmt.Errorf("build verifier: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.db.Put([]byte(keySecret), sealed); err != nil {
		return fmt.Errorf("persist secret: %w", err)
	}
	if err := v.db.Put([]byte(keyVerifier), verifier); err != nil {
		return fmt.Errorf("persist verifier: %w", err)
	}

	v.logger.Info().Msg("vault password changed")
	return nil
}

// ExportPhrase returns the plaintext recovery phrase. The password is
// always re-verified, even while unlocked: this path never serves from
// the session seed.
func (v *Vault) ExportPhrase(password string) (string, error) {
	phrase, err := v.openPhrase(password)
	if err != nil {
		return "", err
	}
	out := string(phrase)
	Zero(phrase)
	v.logger.Warn().Msg("recovery phrase exported")
	return out, nil
}

// Delete removes the stored secret after a password confirmation and
// locks the vault. Not recoverable without the phrase backup.
func (v *Vault) Delete(password string) error {
	phrase, err := v.openPhrase(password)
	if err != nil {
		return err
	}
	Zero(phrase)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.db.Delete([]byte(keySecret)); err != nil {
		return fmt.Errorf("delete secret: %w", err)
	}
	if err := v.db.Delete([]byte(keyVerifier)); err != nil {
		return fmt.Errorf("delete verifier: %w", err)
	}
	Zero(v.seed)
	v.seed = nil

	v.logger.Warn().Msg("stored secret deleted")
	return nil
}

// UnlockWithCredential unlocks using a password released by a
// platform-gated credential store (the biometric path). The vault does
// not care how the password was obtained; it funnels through Unlock.
func (v *Vault) UnlockWithCredential(creds CredentialStore) error {
	password, err := creds.Password()
	if err != nil {
		return fmt.Errorf("release credential: %w", err)
	}
	err = v.Unlock(string(password))
	Zero(password)
	return err
}

// newVerifier builds salt | KDF params | blake3(argon2id(password, salt)).
// The hash step keeps the stored verifier unusable as decryption key
// material.
func newVerifier(password []byte, params Params) ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	key := deriveKey(password, salt, params)
	sum := blake3.Sum256(key)
	Zero(key)

	out := make([]byte, 0, verifierSize)
	out = append(out, salt...)
	out = binary.LittleEndian.AppendUint32(out, params.Memory)
	out = binary.LittleEndian.AppendUint32(out, params.Iterations)
	out = append(out, params.Parallelism)
	out = append(out, sum[:]...)
	return out, nil
}

// checkVerifier recomputes the verifier hash with the parameters embedded
// at store time and compares in constant time.
func checkVerifier(verifier, password []byte) error {
	if len(verifier) != verifierSize {
		return fmt.Errorf("%w: verifier is %d bytes, want %d", errs.ErrCorrupted, len(verifier), verifierSize)
	}
	salt := verifier[:SaltSize]
	params := Params{
		Memory:      binary.LittleEndian.Uint32(verifier[SaltSize:]),
		Iterations:  binary.LittleEndian.Uint32(verifier[SaltSize+4:]),
		Parallelism: verifier[SaltSize+8],
	}
	if params.Memory == 0 || params.Iterations == 0 || params.Parallelism == 0 {
		return fmt.Errorf("%w: invalid KDF parameters in verifier", errs.ErrCorrupted)
	}
	want := verifier[headerSize:]

	key := deriveKey(password, salt, params)
	sum := blake3.Sum256(key)
	Zero(key)

	if subtle.ConstantTimeCompare(sum[:], want) != 1 {
		return fmt.Errorf("%w: password verification", errs.ErrAuthFailure)
	}
	return nil
}
