package amount

import (
	"errors"
	"math/big"
	"testing"

	"github.com/wattxchange/wallet-core/pkg/errs"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		native   string
		decimals int
		want     string
	}{
		{"one ether", "1000000000000000000", 18, "1"},
		{"fraction", "1500000000000000000", 18, "1.5"},
		{"wattx 8 decimals", "150000000", 8, "1.5"},
		{"tiny", "1", 18, "0.000000000000000001"},
		{"zero", "0", 18, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := new(big.Int).SetString(tt.native, 10)
			if !ok {
				t.Fatalf("bad test value %q", tt.native)
			}
			if got := Format(n, tt.decimals); got != tt.want {
				t.Errorf("Format(%s, %d) = %q, want %q", tt.native, tt.decimals, got, tt.want)
			}
		})
	}
}

func TestFormat_Nil(t *testing.T) {
	if got := Format(nil, 18); got != "0" {
		t.Errorf("Format(nil) = %q, want %q", got, "0")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		decimals int
		want     string
	}{
		{"whole", "1", 18, "1000000000000000000"},
		{"fraction", "0.5", 18, "500000000000000000"},
		{"wattx", "1.5", 8, "150000000"},
		{"whitespace", " 2 ", 8, "200000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in, tt.decimals)
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("Parse(%q, %d) = %s, want %s", tt.in, tt.decimals, got, tt.want)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		decimals int
	}{
		{"empty", "", 18},
		{"garbage", "abc", 18},
		{"negative", "-1", 18},
		{"too precise", "0.000000001", 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.in, tt.decimals)
			if !errors.Is(err, errs.ErrInvalidInput) {
				t.Errorf("Parse(%q) error = %v, want ErrInvalidInput", tt.in, err)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	n, err := Parse("123.456", 8)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if got := Format(n, 8); got != "123.456" {
		t.Errorf("round trip = %q, want %q", got, "123.456")
	}
}
