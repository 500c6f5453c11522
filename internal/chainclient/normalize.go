package chainclient

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/wattxchange/wallet-core/pkg/errs"
)

// Transaction is the canonical transaction document. Nodes disagree on
// field casing, so decoding accepts camelCase and snake_case.
type Transaction struct {
	Hash        string
	From        string
	To          string
	Value       *big.Int
	Gas         uint64
	GasPrice    *big.Int
	Nonce       uint64
	Input       string
	BlockNumber uint64 // 0 while pending
	BlockHash   string
}

// Receipt is the canonical transaction receipt.
type Receipt struct {
	TxHash            string
	Status            uint64 // 1 success, 0 reverted
	BlockNumber       uint64
	BlockHash         string
	GasUsed           uint64
	EffectiveGasPrice *big.Int
	ContractAddress   string
}

// rawFields holds one JSON document with casing-insensitive lookup.
type rawFields map[string]json.RawMessage

func (r rawFields) str(keys ...string) string {
	for _, k := range keys {
		raw, ok := r[k]
		if !ok {
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
	}
	return ""
}

func (r rawFields) quantity(keys ...string) (*big.Int, error) {
	for _, k := range keys {
		raw, ok := r[k]
		if !ok || string(raw) == "null" {
			continue
		}
		var h hexutil.Big
		if err := json.Unmarshal(raw, &h); err == nil {
			return h.ToInt(), nil
		}
		// Some nodes emit plain decimal numbers.
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			v, ok := new(big.Int).SetString(n.String(), 10)
			if ok {
				return v, nil
			}
		}
		return nil, fmt.Errorf("%w: field %q: %s", errs.ErrInvalidInput, k, raw)
	}
	return nil, nil
}

func (r rawFields) uint(keys ...string) (uint64, error) {
	v, err := r.quantity(keys...)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, nil
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("%w: quantity out of range: %s", errs.ErrInvalidInput, v)
	}
	return v.Uint64(), nil
}

// UnmarshalJSON decodes either field-naming convention into the canonical
// struct.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var r rawFields
	if err := json.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("%w: decode transaction: %v", errs.ErrInvalidInput, err)
	}

	t.Hash = r.str("hash", "tx_hash", "txHash")
	t.From = r.str("from")
	t.To = r.str("to")
	t.Input = r.str("input", "data")
	t.BlockHash = r.str("blockHash", "block_hash")

	var err error
	if t.Value, err = r.quantity("value"); err != nil {
		return err
	}
	if t.GasPrice, err = r.quantity("gasPrice", "gas_price"); err != nil {
		return err
	}
	if t.Gas, err = r.uint("gas", "gas_limit", "gasLimit"); err != nil {
		return err
	}
	if t.Nonce, err = r.uint("nonce"); err != nil {
		return err
	}
	if t.BlockNumber, err = r.uint("blockNumber", "block_number"); err != nil {
		return err
	}
	return nil
}

// UnmarshalJSON decodes either field-naming convention into the canonical
// struct.
func (rc *Receipt) UnmarshalJSON(data []byte) error {
	var r rawFields
	if err := json.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("%w: decode receipt: %v", errs.ErrInvalidInput, err)
	}

	rc.TxHash = r.str("transactionHash", "transaction_hash", "txHash", "tx_hash")
	rc.BlockHash = r.str("blockHash", "block_hash")
	rc.ContractAddress = r.str("contractAddress", "contract_address")

	var err error
	if rc.Status, err = r.uint("status"); err != nil {
		return err
	}
	if rc.BlockNumber, err = r.uint("blockNumber", "block_number"); err != nil {
		return err
	}
	if rc.GasUsed, err = r.uint("gasUsed", "gas_used"); err != nil {
		return err
	}
	if rc.EffectiveGasPrice, err = r.quantity("effectiveGasPrice", "effective_gas_price"); err != nil {
		return err
	}
	return nil
}
