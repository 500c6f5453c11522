package chainclient

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/wattxchange/wallet-core/pkg/errs"
)

// ERC-20 function selectors.
var (
	selName      = []byte{0x06, 0xfd, 0xde, 0x03}
	selSymbol    = []byte{0x95, 0xd8, 0x9b, 0x41}
	selDecimals  = []byte{0x31, 0x3c, 0xe5, 0x67}
	selBalanceOf = []byte{0x70, 0xa0, 0x82, 0x31}
)

// TokenMetadata describes an ERC-20 contract.
type TokenMetadata struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// TokenMetadata reads name, symbol and decimals from an ERC-20 contract.
func (c *Client) TokenMetadata(ctx context.Context, contract string) (*TokenMetadata, error) {
	if !common.IsHexAddress(contract) {
		return nil, fmt.Errorf("%w: contract address %q", errs.ErrInvalidInput, contract)
	}

	name, err := c.callString(ctx, contract, selName)
	if err != nil {
		return nil, fmt.Errorf("read name: %w", err)
	}
	symbol, err := c.callString(ctx, contract, selSymbol)
	if err != nil {
		return nil, fmt.Errorf("read symbol: %w", err)
	}
	decRaw, err := c.CallReadOnly(ctx, contract, selDecimals)
	if err != nil {
		return nil, fmt.Errorf("read decimals: %w", err)
	}
	dec, err := decodeUint256(decRaw)
	if err != nil {
		return nil, fmt.Errorf("decode decimals: %w", err)
	}
	if !dec.IsUint64() || dec.Uint64() > 255 {
		return nil, fmt.Errorf("%w: decimals %s out of range", errs.ErrInvalidInput, dec)
	}

	return &TokenMetadata{
		Address:  common.HexToAddress(contract).Hex(),
		Name:     name,
		Symbol:   symbol,
		Decimals: uint8(dec.Uint64()),
	}, nil
}

// TokenBalance reads balanceOf(holder) from an ERC-20 contract.
func (c *Client) TokenBalance(ctx context.Context, contract, holder string) (*big.Int, error) {
	if !common.IsHexAddress(contract) || !common.IsHexAddress(holder) {
		return nil, fmt.Errorf("%w: bad address", errs.ErrInvalidInput)
	}
	data := make([]byte, 0, 4+32)
	data = append(data, selBalanceOf...)
	data = append(data, common.LeftPadBytes(common.HexToAddress(holder).Bytes(), 32)...)

	out, err := c.CallReadOnly(ctx, contract, data)
	if err != nil {
		return nil, err
	}
	return decodeUint256(out)
}

func (c *Client) callString(ctx context.Context, contract string, selector []byte) (string, error) {
	out, err := c.CallReadOnly(ctx, contract, selector)
	if err != nil {
		return "", err
	}
	return decodeString(out)
}

func decodeUint256(data []byte) (*big.Int, error) {
	if len(data) < 32 {
		return nil, fmt.Errorf("%w: return data is %d bytes", errs.ErrInvalidInput, len(data))
	}
	return new(big.Int).SetBytes(data[:32]), nil
}

// decodeString handles both ABI-encoded dynamic strings and the bytes32
// convention some older tokens use.
func decodeString(data []byte) (string, error) {
	if len(data) == 32 {
		return strings.TrimRight(string(data), "\x00"), nil
	}
	if len(data) < 64 {
		return "", fmt.Errorf("%w: return data is %d bytes", errs.ErrInvalidInput, len(data))
	}
	offset := new(big.Int).SetBytes(data[:32])
	if !offset.IsUint64() || offset.Uint64()+32 > uint64(len(data)) {
		return "", fmt.Errorf("%w: string offset out of range", errs.ErrInvalidInput)
	}
	start := offset.Uint64()
	length := new(big.Int).SetBytes(data[start : start+32])
	if !length.IsUint64() || start+32+length.Uint64() > uint64(len(data)) {
		return "", fmt.Errorf("%w: string length out of range", errs.ErrInvalidInput)
	}
	return string(data[start+32 : start+32+length.Uint64()]), nil
}
