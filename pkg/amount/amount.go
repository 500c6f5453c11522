// Package amount converts between native integer chain units (wei and
// friends) and human-readable decimal strings, using each chain's decimal
// precision.
package amount

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wattxchange/wallet-core/pkg/errs"
)

// Format renders a native-unit value with the given decimal precision.
// Trailing zeros are trimmed ("1.5", not "1.500000000000000000").
func Format(native *big.Int, decimals int) string {
	if native == nil {
		return "0"
	}
	d := decimal.NewFromBigInt(native, -int32(decimals))
	return d.String()
}

// Parse converts a human-readable decimal string into native units.
// Rejects negative values and values with more fractional digits than the
// chain supports.
func Parse(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty amount", errs.ErrInvalidInput)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q: %v", errs.ErrInvalidInput, s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: amount must not be negative", errs.ErrInvalidInput)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("%w: amount %q has more than %d decimal places", errs.ErrInvalidInput, s, decimals)
	}
	return scaled.BigInt(), nil
}

// FormatWithSymbol renders a value followed by the chain's native symbol.
func FormatWithSymbol(native *big.Int, decimals int, symbol string) string {
	return Format(native, decimals) + " " + symbol
}
