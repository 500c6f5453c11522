package vault

import (
	"bytes"
	"errors"
	"testing"

	"github.com/wattxchange/wallet-core/pkg/errs"
)

// fastParams keeps Argon2id cheap for tests.
func fastParams() Params {
	return Params{
		Memory:      64,
		Iterations:  1,
		Parallelism: 1,
	}
}

func TestSealOpen_RoundTrip(t *testing.T) {
	data := []byte("legal winner thank you")
	password := []byte("correct horse battery staple")

	sealed, err := seal(data, password, fastParams())
	if err != nil {
		t.Fatalf("seal() error: %v", err)
	}
	got, err := open(sealed, password)
	if err != nil {
		t.Fatalf("open() error: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("open() = %q, want %q", got, data)
	}
}

func TestSeal_Nondeterministic(t *testing.T) {
	data := []byte("same plaintext")
	password := []byte("pw")

	a, err := seal(data, password, fastParams())
	if err != nil {
		t.Fatalf("seal() error: %v", err)
	}
	b, err := seal(data, password, fastParams())
	if err != nil {
		t.Fatalf("seal() error: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Error("two seals of the same plaintext are identical")
	}
}

func TestOpen_WrongPassword(t *testing.T) {
	sealed, err := seal([]byte("secret"), []byte("right"), fastParams())
	if err != nil {
		t.Fatalf("seal() error: %v", err)
	}
	if _, err := open(sealed, []byte("wrong")); !errors.Is(err, errs.ErrAuthFailure) {
		t.Errorf("open(wrong password) error = %v, want ErrAuthFailure", err)
	}
}

func TestOpen_Tampered(t *testing.T) {
	password := []byte("pw")
	sealed, err := seal([]byte("secret"), password, fastParams())
	if err != nil {
		t.Fatalf("seal() error: %v", err)
	}
	sealed[len(sealed)-1] ^= 0xff
	if _, err := open(sealed, password); !errors.Is(err, errs.ErrAuthFailure) {
		t.Errorf("open(tampered) error = %v, want ErrAuthFailure", err)
	}
}

func TestOpen_Corrupted(t *testing.T) {
	sealed, err := seal([]byte("secret"), []byte("pw"), fastParams())
	if err != nil {
		t.Fatalf("seal() error: %v", err)
	}

	tests := []struct {
		name string
		blob []byte
	}{
		{"empty", nil},
		{"truncated", sealed[:headerSize]},
		{"zero params", func() []byte {
			b := append([]byte(nil), sealed...)
			for i := SaltSize; i < headerSize; i++ {
				b[i] = 0
			}
			return b
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := open(tt.blob, []byte("pw")); !errors.Is(err, errs.ErrCorrupted) {
				t.Errorf("open() error = %v, want ErrCorrupted", err)
			}
		})
	}
}

func TestOpen_ParamsFromHeader(t *testing.T) {
	// Sealed under one parameter set, opened by a vault configured with
	// another. The header wins.
	sealed, err := seal([]byte("secret"), []byte("pw"), Params{Memory: 32, Iterations: 2, Parallelism: 1})
	if err != nil {
		t.Fatalf("seal() error: %v", err)
	}
	got, err := open(sealed, []byte("pw"))
	if err != nil {
		t.Fatalf("open() error: %v", err)
	}
	if string(got) != "secret" {
		t.Errorf("open() = %q, want %q", got, "secret")
	}
}

func TestZero(t *testing.T) {
	b := []byte{1, 2, 3}
	Zero(b)
	for i, v := range b {
		if v != 0 {
			t.Errorf("b[%d] = %d after Zero", i, v)
		}
	}
}
