package signing

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/wattxchange/wallet-core/internal/accounts"
	"github.com/wattxchange/wallet-core/internal/network"
	"github.com/wattxchange/wallet-core/pkg/errs"
)

// signTransactionEVM builds and signs a legacy or dynamic-fee transaction
// with EIP-155 replay protection.
func signTransactionEVM(cfg network.Config, key *accounts.HDKey, req TxRequest) ([]byte, error) {
	if err := validateEVMRequest(req); err != nil {
		return nil, err
	}

	value := new(big.Int)
	if req.Value != nil {
		value = req.Value.ToInt()
	}
	var to *common.Address
	if req.To != "" {
		addr := common.HexToAddress(req.To)
		to = &addr
	}
	chainID := new(big.Int).SetUint64(cfg.ChainID)

	var txData types.TxData
	if cfg.SupportsEIP1559 && req.MaxFeePerGas != nil {
		tip := new(big.Int)
		if req.MaxPriorityFeePerGas != nil {
			tip = req.MaxPriorityFeePerGas.ToInt()
		}
		txData = &types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     uint64(*req.Nonce),
			GasTipCap: tip,
			GasFeeCap: req.MaxFeePerGas.ToInt(),
			Gas:       uint64(*req.Gas),
			To:        to,
			Value:     value,
			Data:      req.Data,
		}
	} else {
		if req.GasPrice == nil {
			return nil, fmt.Errorf("%w: missing gasPrice", errs.ErrInvalidInput)
		}
		txData = &types.LegacyTx{
			Nonce:    uint64(*req.Nonce),
			GasPrice: req.GasPrice.ToInt(),
			Gas:      uint64(*req.Gas),
			To:       to,
			Value:    value,
			Data:     req.Data,
		}
	}

	prv, err := ethcrypto.ToECDSA(key.PrivateKeyBytes())
	if err != nil {
		return nil, fmt.Errorf("load private key: %w", err)
	}
	defer func() { prv.D.SetInt64(0) }()

	signed, err := types.SignNewTx(prv, types.LatestSignerForChainID(chainID), txData)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode transaction: %w", err)
	}
	return raw, nil
}

// signPersonalEVM signs with the EIP-191 personal-message envelope.
// The returned signature uses the legacy 27/28 recovery id convention.
func signPersonalEVM(key *accounts.HDKey, message []byte) ([]byte, error) {
	hash := ethcrypto.Keccak256(
		[]byte(fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(message))),
		message,
	)
	return signHashEVM(key, hash)
}

// signTypedDataEVM hashes and signs an EIP-712 document.
func signTypedDataEVM(key *accounts.HDKey, typedJSON []byte) ([]byte, error) {
	var typed apitypes.TypedData
	if err := json.Unmarshal(typedJSON, &typed); err != nil {
		return nil, fmt.Errorf("%w: decode typed data: %v", errs.ErrInvalidInput, err)
	}
	hash, _, err := apitypes.TypedDataAndHash(typed)
	if err != nil {
		return nil, fmt.Errorf("%w: hash typed data: %v", errs.ErrInvalidInput, err)
	}
	return signHashEVM(key, hash)
}

func signHashEVM(key *accounts.HDKey, hash []byte) ([]byte, error) {
	prv, err := ethcrypto.ToECDSA(key.PrivateKeyBytes())
	if err != nil {
		return nil, fmt.Errorf("load private key: %w", err)
	}
	defer func() { prv.D.SetInt64(0) }()

	sig, err := ethcrypto.Sign(hash, prv)
	if err != nil {
		return nil, fmt.Errorf("sign message: %w", err)
	}
	sig[64] += 27
	return sig, nil
}
