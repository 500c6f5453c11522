package signing

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/wattxchange/wallet-core/internal/accounts"
	"github.com/wattxchange/wallet-core/internal/network"
	"github.com/wattxchange/wallet-core/internal/storage"
	"github.com/wattxchange/wallet-core/internal/vault"
	"github.com/wattxchange/wallet-core/pkg/errs"
)

const testPhrase = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func testService(t *testing.T) (*Service, []byte) {
	t.Helper()
	reg, err := network.NewRegistry(storage.NewMemory(), nil)
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	seed, err := vault.SeedFromMnemonic(testPhrase)
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error: %v", err)
	}
	return NewService(reg), seed
}

func u64(v uint64) *hexutil.Uint64 {
	h := hexutil.Uint64(v)
	return &h
}

func bigInt(v int64) *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(v))
}

func legacyRequest() TxRequest {
	return TxRequest{
		To:       "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		Value:    bigInt(1000),
		Nonce:    u64(7),
		Gas:      u64(21000),
		GasPrice: bigInt(5_000_000_000),
	}
}

func TestSignTransaction_Legacy(t *testing.T) {
	s, seed := testService(t)

	// BSC is a legacy-fee EVM chain.
	raw, err := s.SignTransaction(56, 0, legacyRequest(), seed)
	if err != nil {
		t.Fatalf("SignTransaction() error: %v", err)
	}

	var tx types.Transaction
	if err := tx.UnmarshalBinary(raw); err != nil {
		t.Fatalf("decode signed tx: %v", err)
	}
	if tx.Type() != types.LegacyTxType {
		t.Errorf("tx type = %d, want legacy", tx.Type())
	}
	if tx.ChainId().Uint64() != 56 {
		t.Errorf("chain id = %d, want 56", tx.ChainId().Uint64())
	}
	if tx.Nonce() != 7 || tx.Gas() != 21000 {
		t.Errorf("nonce/gas = %d/%d", tx.Nonce(), tx.Gas())
	}

	// The recovered sender is the account's derived address.
	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), &tx)
	if err != nil {
		t.Fatalf("recover sender: %v", err)
	}
	w, err := accounts.DeriveChainWallet(seed, network.Config{ChainID: 56, Family: network.FamilyEVM}, 0)
	if err != nil {
		t.Fatalf("DeriveChainWallet() error: %v", err)
	}
	if from.Hex() != w.Address {
		t.Errorf("sender = %s, want %s", from.Hex(), w.Address)
	}
}

func TestSignTransaction_DynamicFee(t *testing.T) {
	s, seed := testService(t)

	req := legacyRequest()
	req.GasPrice = nil
	req.MaxFeePerGas = bigInt(30_000_000_000)
	req.MaxPriorityFeePerGas = bigInt(1_000_000_000)

	raw, err := s.SignTransaction(1, 0, req, seed)
	if err != nil {
		t.Fatalf("SignTransaction() error: %v", err)
	}
	var tx types.Transaction
	if err := tx.UnmarshalBinary(raw); err != nil {
		t.Fatalf("decode signed tx: %v", err)
	}
	if tx.Type() != types.DynamicFeeTxType {
		t.Errorf("tx type = %d, want dynamic fee", tx.Type())
	}
	if tx.GasTipCap().Int64() != 1_000_000_000 {
		t.Errorf("tip cap = %s", tx.GasTipCap())
	}
}

func TestSignTransaction_Invalid(t *testing.T) {
	s, seed := testService(t)

	tests := []struct {
		name   string
		mutate func(*TxRequest)
	}{
		{"missing nonce", func(r *TxRequest) { r.Nonce = nil }},
		{"missing gas", func(r *TxRequest) { r.Gas = nil }},
		{"missing gasPrice", func(r *TxRequest) { r.GasPrice = nil }},
		{"bad to", func(r *TxRequest) { r.To = "not-an-address" }},
		{"empty tx", func(r *TxRequest) { r.To = ""; r.Data = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := legacyRequest()
			tt.mutate(&req)
			if _, err := s.SignTransaction(56, 0, req, seed); !errors.Is(err, errs.ErrInvalidInput) {
				t.Errorf("SignTransaction() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestSignTransaction_UnknownChain(t *testing.T) {
	s, seed := testService(t)
	if _, err := s.SignTransaction(424242, 0, legacyRequest(), seed); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("SignTransaction(unknown chain) error = %v, want ErrNotFound", err)
	}
}

func TestSignPersonalMessage_EVM(t *testing.T) {
	s, seed := testService(t)

	msg := []byte("hello wallet")
	sig, err := s.SignPersonalMessage(1, 0, msg, seed)
	if err != nil {
		t.Fatalf("SignPersonalMessage() error: %v", err)
	}
	if len(sig) != 65 {
		t.Fatalf("signature length = %d, want 65", len(sig))
	}
	if sig[64] != 27 && sig[64] != 28 {
		t.Errorf("recovery id = %d, want 27 or 28", sig[64])
	}

	hash := ethcrypto.Keccak256(
		[]byte("\x19Ethereum Signed Message:\n12"),
		msg,
	)
	recSig := append(append([]byte(nil), sig[:64]...), sig[64]-27)
	pub, err := ethcrypto.SigToPub(hash, recSig)
	if err != nil {
		t.Fatalf("recover pubkey: %v", err)
	}
	w, _ := accounts.DeriveChainWallet(seed, network.Config{ChainID: 1, Family: network.FamilyEVM}, 0)
	if ethcrypto.PubkeyToAddress(*pub).Hex() != w.Address {
		t.Errorf("recovered %s, want %s", ethcrypto.PubkeyToAddress(*pub).Hex(), w.Address)
	}
}

func TestSignTypedData_EVM(t *testing.T) {
	s, seed := testService(t)

	doc := map[string]any{
		"types": map[string]any{
			"EIP712Domain": []map[string]string{
				{"name": "name", "type": "string"},
				{"name": "chainId", "type": "uint256"},
			},
			"Greeting": []map[string]string{
				{"name": "text", "type": "string"},
			},
		},
		"primaryType": "Greeting",
		"domain":      map[string]any{"name": "Test", "chainId": "1"},
		"message":     map[string]any{"text": "hi"},
	}
	raw, _ := json.Marshal(doc)

	sig, err := s.SignTypedData(1, 0, raw, seed)
	if err != nil {
		t.Fatalf("SignTypedData() error: %v", err)
	}
	if len(sig) != 65 {
		t.Errorf("signature length = %d, want 65", len(sig))
	}

	if _, err := s.SignTypedData(1, 0, []byte("{not json"), seed); !errors.Is(err, errs.ErrInvalidInput) {
		t.Errorf("SignTypedData(bad json) error = %v, want ErrInvalidInput", err)
	}
}

func TestSignTypedData_UTXOUnsupported(t *testing.T) {
	s, seed := testService(t)
	if _, err := s.SignTypedData(81, 0, []byte("{}"), seed); !errors.Is(err, errs.ErrUnsupported) {
		t.Errorf("SignTypedData(utxo) error = %v, want ErrUnsupported", err)
	}
}

func TestSignPersonalMessage_UTXO(t *testing.T) {
	s, seed := testService(t)

	msg := []byte("hello wattx")
	sig, err := s.SignPersonalMessage(81, 0, msg, seed)
	if err != nil {
		t.Fatalf("SignPersonalMessage() error: %v", err)
	}
	if len(sig) != 65 {
		t.Fatalf("signature length = %d, want 65", len(sig))
	}

	// Recover the public key from the compact signature and compare with
	// the derived identity.
	buf := appendVarInt(nil, uint64(len(messageMagic)))
	buf = append(buf, messageMagic...)
	buf = appendVarInt(buf, uint64(len(msg)))
	buf = append(buf, msg...)
	hash := doubleSHA256(buf)

	pub, compressed, err := secpecdsa.RecoverCompact(sig, hash)
	if err != nil {
		t.Fatalf("RecoverCompact() error: %v", err)
	}
	if !compressed {
		t.Error("signature does not commit to a compressed key")
	}
	key, err := accounts.DeriveKey(seed, network.FamilyUTXO, 0)
	if err != nil {
		t.Fatalf("DeriveKey() error: %v", err)
	}
	defer key.Zero()
	if string(pub.SerializeCompressed()) != string(key.PublicKeyBytes()) {
		t.Error("recovered public key does not match derived key")
	}
}

func TestSignPayload_UTXO(t *testing.T) {
	s, seed := testService(t)

	req := TxRequest{Data: []byte{0x01, 0x02, 0x03}}
	sig, err := s.SignTransaction(81, 0, req, seed)
	if err != nil {
		t.Fatalf("SignTransaction() error: %v", err)
	}
	if len(sig) != 65 {
		t.Errorf("signature length = %d, want 65", len(sig))
	}

	if _, err := s.SignTransaction(81, 0, TxRequest{}, seed); !errors.Is(err, errs.ErrInvalidInput) {
		t.Errorf("SignTransaction(no payload) error = %v, want ErrInvalidInput", err)
	}
}
