package accounts

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/wattxchange/wallet-core/pkg/errs"
)

// AddressQR renders an address as a QR code PNG of the given pixel size.
func AddressQR(address string, size int) ([]byte, error) {
	if address == "" {
		return nil, fmt.Errorf("%w: address must not be empty", errs.ErrInvalidInput)
	}
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(address, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
