package node

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/wattxchange/wallet-core/internal/signing"
	"github.com/wattxchange/wallet-core/internal/vault"
	"github.com/wattxchange/wallet-core/pkg/errs"
)

// handleSigning executes an approved dApp signing method against the
// active account. The seed is borrowed from the vault per call, so a
// locked vault fails every signing request with ErrLocked.
func (n *Node) handleSigning(ctx context.Context, origin, method string, params []json.RawMessage) (any, error) {
	seed, err := n.vault.Seed()
	if err != nil {
		return nil, err
	}
	defer vault.Zero(seed)

	acct, err := n.accounts.Active()
	if err != nil {
		return nil, err
	}
	chainID := n.networks.Active()

	n.logger.Info().Str("origin", origin).Str("method", method).
		Uint64("chain_id", chainID).Msg("signing approved request")

	switch method {
	case "eth_sendTransaction", "eth_signTransaction":
		if len(params) == 0 {
			return nil, fmt.Errorf("%w: missing transaction", errs.ErrInvalidInput)
		}
		req, err := signing.ParseTxRequest(params[0])
		if err != nil {
			return nil, err
		}
		raw, err := n.signer.SignTransaction(chainID, acct.Index, req, seed)
		if err != nil {
			return nil, err
		}
		if method == "eth_signTransaction" {
			return hexutil.Encode(raw), nil
		}
		client, err := n.clients.Get(chainID)
		if err != nil {
			return nil, err
		}
		return client.Broadcast(ctx, raw)

	case "personal_sign":
		// params: [message, address]
		msg, err := messageParam(params, 0)
		if err != nil {
			return nil, err
		}
		sig, err := n.signer.SignPersonalMessage(chainID, acct.Index, msg, seed)
		if err != nil {
			return nil, err
		}
		return hexutil.Encode(sig), nil

	case "eth_sign":
		// params: [address, message]
		msg, err := messageParam(params, 1)
		if err != nil {
			return nil, err
		}
		sig, err := n.signer.SignPersonalMessage(chainID, acct.Index, msg, seed)
		if err != nil {
			return nil, err
		}
		return hexutil.Encode(sig), nil

	case "eth_signTypedData", "eth_signTypedData_v3", "eth_signTypedData_v4":
		// params: [address, typedData]; typedData arrives either as a
		// JSON object or a JSON-encoded string.
		if len(params) < 2 {
			return nil, fmt.Errorf("%w: missing typed data", errs.ErrInvalidInput)
		}
		typed := params[1]
		var encoded string
		if err := json.Unmarshal(typed, &encoded); err == nil {
			typed = json.RawMessage(encoded)
		}
		sig, err := n.signer.SignTypedData(chainID, acct.Index, typed, seed)
		if err != nil {
			return nil, err
		}
		return hexutil.Encode(sig), nil

	default:
		return nil, fmt.Errorf("%w: signing method %q", errs.ErrUnsupported, method)
	}
}

// messageParam extracts a message parameter, decoding 0x-hex when the
// payload uses it and falling back to the raw string bytes.
func messageParam(params []json.RawMessage, idx int) ([]byte, error) {
	if len(params) <= idx {
		return nil, fmt.Errorf("%w: missing message", errs.ErrInvalidInput)
	}
	var s string
	if err := json.Unmarshal(params[idx], &s); err != nil {
		return nil, fmt.Errorf("%w: decode message: %v", errs.ErrInvalidInput, err)
	}
	if strings.HasPrefix(s, "0x") {
		if b, err := hexutil.Decode(s); err == nil {
			return b, nil
		}
	}
	return []byte(s), nil
}
