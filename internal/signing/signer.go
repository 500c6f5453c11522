// Package signing produces chain-family-specific signatures. The service
// is stateless: every operation borrows the seed from the caller, derives
// the one key it needs, uses it once and zeroizes it.
package signing

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"

	"github.com/wattxchange/wallet-core/internal/accounts"
	"github.com/wattxchange/wallet-core/internal/log"
	"github.com/wattxchange/wallet-core/internal/network"
	"github.com/wattxchange/wallet-core/pkg/errs"
)

// TxRequest is an inbound transaction to sign, in dApp wire format.
// For the UTXO family, Data carries the serialized payment payload and
// the EVM fee fields are ignored.
type TxRequest struct {
	From                 string          `json:"from"`
	To                   string          `json:"to"`
	Value                *hexutil.Big    `json:"value"`
	Data                 hexutil.Bytes   `json:"data"`
	Nonce                *hexutil.Uint64 `json:"nonce"`
	Gas                  *hexutil.Uint64 `json:"gas"`
	GasPrice             *hexutil.Big    `json:"gasPrice"`
	MaxFeePerGas         *hexutil.Big    `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *hexutil.Big    `json:"maxPriorityFeePerGas"`
}

// Service signs transactions, personal messages and typed data for every
// supported chain family.
type Service struct {
	networks *network.Registry
	logger   zerolog.Logger
}

// NewService creates a signing service over the network registry.
func NewService(networks *network.Registry) *Service {
	return &Service{
		networks: networks,
		logger:   log.Chain.With().Str("component", "signing").Logger(),
	}
}

// SignTransaction signs req for the given chain and account index and
// returns the broadcast-ready bytes.
func (s *Service) SignTransaction(chainID uint64, accountIndex uint32, req TxRequest, seed []byte) ([]byte, error) {
	cfg, err := s.networks.Get(chainID)
	if err != nil {
		return nil, err
	}
	key, err := accounts.DeriveKey(seed, cfg.Family, accountIndex)
	if err != nil {
		return nil, err
	}
	defer key.Zero()

	switch cfg.Family {
	case network.FamilyEVM:
		return signTransactionEVM(cfg, key, req)
	case network.FamilyUTXO:
		return signPayloadUTXO(key, req)
	default:
		return nil, fmt.Errorf("%w: chain family %q", errs.ErrUnsupported, cfg.Family)
	}
}

// SignPersonalMessage signs an arbitrary message with the chain family's
// personal-message envelope (EIP-191 for EVM, the Qtum magic for UTXO).
func (s *Service) SignPersonalMessage(chainID uint64, accountIndex uint32, message []byte, seed []byte) ([]byte, error) {
	cfg, err := s.networks.Get(chainID)
	if err != nil {
		return nil, err
	}
	key, err := accounts.DeriveKey(seed, cfg.Family, accountIndex)
	if err != nil {
		return nil, err
	}
	defer key.Zero()

	switch cfg.Family {
	case network.FamilyEVM:
		return signPersonalEVM(key, message)
	case network.FamilyUTXO:
		return signMessageUTXO(key, message)
	default:
		return nil, fmt.Errorf("%w: chain family %q", errs.ErrUnsupported, cfg.Family)
	}
}

// SignTypedData signs an EIP-712 typed-data document (v3/v4 JSON).
// Only the EVM family supports typed data.
func (s *Service) SignTypedData(chainID uint64, accountIndex uint32, typedJSON []byte, seed []byte) ([]byte, error) {
	cfg, err := s.networks.Get(chainID)
	if err != nil {
		return nil, err
	}
	if cfg.Family != network.FamilyEVM {
		return nil, fmt.Errorf("%w: typed data on chain family %q", errs.ErrUnsupported, cfg.Family)
	}
	key, err := accounts.DeriveKey(seed, cfg.Family, accountIndex)
	if err != nil {
		return nil, err
	}
	defer key.Zero()

	return signTypedDataEVM(key, typedJSON)
}

// validateEVMRequest checks the fields every EVM transaction needs.
func validateEVMRequest(req TxRequest) error {
	if req.To != "" && !common.IsHexAddress(req.To) {
		return fmt.Errorf("%w: to address %q", errs.ErrInvalidInput, req.To)
	}
	if req.To == "" && len(req.Data) == 0 {
		return fmt.Errorf("%w: transaction has neither recipient nor data", errs.ErrInvalidInput)
	}
	if req.Nonce == nil {
		return fmt.Errorf("%w: missing nonce", errs.ErrInvalidInput)
	}
	if req.Gas == nil || *req.Gas == 0 {
		return fmt.Errorf("%w: missing gas limit", errs.ErrInvalidInput)
	}
	return nil
}

// ParseTxRequest decodes a dApp transaction object.
func ParseTxRequest(raw json.RawMessage) (TxRequest, error) {
	var req TxRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return TxRequest{}, fmt.Errorf("%w: decode transaction request: %v", errs.ErrInvalidInput, err)
	}
	return req, nil
}
