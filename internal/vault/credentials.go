package vault

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/wattxchange/wallet-core/pkg/errs"
)

// CredentialStore releases the wallet password after a platform-level
// check (biometrics, device PIN). Enabling it trades some security for
// convenience: the password itself is held by the platform keystore.
type CredentialStore interface {
	// StorePassword persists the password behind the platform gate.
	StorePassword(password []byte) error
	// Password releases the stored password. The platform check happens
	// before release; an error means the gate refused or nothing is stored.
	Password() ([]byte, error)
	// Clear removes the stored password.
	Clear() error
	// Enabled reports whether a password is stored.
	Enabled() bool
}

// FileCredentialStore is a file-backed CredentialStore for platforms
// without a native keystore binding. The password is sealed with a random
// device key kept in a separate 0600 file; the platform's filesystem
// permissions are the gate. Mobile builds substitute a keystore-backed
// implementation behind the same interface.
type FileCredentialStore struct {
	dir string
}

const (
	credKeyFile  = "device.key"
	credFile     = "credential"
	credKeySize  = chacha20poly1305.KeySize
	credNonceLen = chacha20poly1305.NonceSizeX
)

// NewFileCredentialStore creates a store rooted at dir, creating it with
// owner-only permissions if needed.
func NewFileCredentialStore(dir string) (*FileCredentialStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create credential dir: %w", err)
	}
	return &FileCredentialStore{dir: dir}, nil
}

func (s *FileCredentialStore) keyPath() string  { return filepath.Join(s.dir, credKeyFile) }
func (s *FileCredentialStore) credPath() string { return filepath.Join(s.dir, credFile) }

// deviceKey loads the device key, generating one on first use.
func (s *FileCredentialStore) deviceKey() ([]byte, error) {
	key, err := os.ReadFile(s.keyPath())
	if err == nil {
		if len(key) != credKeySize {
			return nil, fmt.Errorf("%w: device key is %d bytes", errs.ErrCorrupted, len(key))
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read device key: %w", err)
	}

	key = make([]byte, credKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate device key: %w", err)
	}
	if err := os.WriteFile(s.keyPath(), key, 0600); err != nil {
		return nil, fmt.Errorf("write device key: %w", err)
	}
	return key, nil
}

// StorePassword seals the password under the device key.
func (s *FileCredentialStore) StorePassword(password []byte) error {
	key, err := s.deviceKey()
	if err != nil {
		return err
	}
	defer Zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return fmt.Errorf("create cipher: %w", err)
	}
	nonce := make([]byte, credNonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	sealed := append(nonce, aead.Seal(nil, nonce, password, nil)...)

	if err := os.WriteFile(s.credPath(), sealed, 0600); err != nil {
		return fmt.Errorf("write credential: %w", err)
	}
	return nil
}

// Password opens the sealed password.
func (s *FileCredentialStore) Password() ([]byte, error) {
	sealed, err := os.ReadFile(s.credPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no credential stored", errs.ErrNotFound)
		}
		return nil, fmt.Errorf("read credential: %w", err)
	}
	if len(sealed) < credNonceLen+chacha20poly1305.Overhead {
		return nil, fmt.Errorf("%w: credential blob too short", errs.ErrCorrupted)
	}

	key, err := s.deviceKey()
	if err != nil {
		return nil, err
	}
	defer Zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	password, err := aead.Open(nil, sealed[:credNonceLen], sealed[credNonceLen:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: credential does not authenticate", errs.ErrCorrupted)
	}
	return password, nil
}

// Clear removes the stored password (the device key stays).
func (s *FileCredentialStore) Clear() error {
	err := os.Remove(s.credPath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove credential: %w", err)
	}
	return nil
}

// Enabled reports whether a password is stored.
func (s *FileCredentialStore) Enabled() bool {
	_, err := os.Stat(s.credPath())
	return err == nil
}
