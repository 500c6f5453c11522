// Package chainclient talks JSON-RPC 2.0 to chain nodes. One Client per
// chain id, with ordered endpoint failover on connectivity errors. No
// implicit retries beyond failover; retry policy belongs to the caller.
package chainclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"

	"github.com/wattxchange/wallet-core/internal/log"
	"github.com/wattxchange/wallet-core/internal/network"
	"github.com/wattxchange/wallet-core/pkg/errs"
)

// DefaultTimeout bounds a single HTTP round trip.
const DefaultTimeout = 10 * time.Second

// DefaultConfirmPoll is the confirmation polling interval.
const DefaultConfirmPoll = 3 * time.Second

// Client is a JSON-RPC 2.0 HTTP client bound to one chain.
type Client struct {
	cfg         network.Config
	endpoints   []string
	http        *http.Client
	nextID      atomic.Uint64
	confirmPoll time.Duration
	logger      zerolog.Logger
}

// New creates a client for the given chain config.
func New(cfg network.Config) *Client {
	return NewWithTimeout(cfg, DefaultTimeout)
}

// NewWithTimeout creates a client with a custom HTTP timeout.
func NewWithTimeout(cfg network.Config, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		cfg:         cfg,
		endpoints:   append([]string(nil), cfg.RPCURLs...),
		http:        &http.Client{Timeout: timeout},
		confirmPoll: DefaultConfirmPoll,
		logger:      log.Chain.With().Uint64("chain_id", cfg.ChainID).Logger(),
	}
}

// SetConfirmPoll overrides the confirmation polling interval.
func (c *Client) SetConfirmPoll(d time.Duration) {
	if d > 0 {
		c.confirmPoll = d
	}
}

// ChainID returns the chain id this client is bound to.
func (c *Client) ChainID() uint64 { return c.cfg.ChainID }

// Config returns the chain config this client was built from.
func (c *Client) Config() network.Config { return c.cfg }

// request is a JSON-RPC 2.0 request.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      uint64 `json:"id"`
}

// response is a JSON-RPC 2.0 response.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      uint64          `json:"id"`
}

// RPCError is a node-reported JSON-RPC error, passed through unchanged.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Call invokes a JSON-RPC method and unmarshals the result into result
// (discarded if nil). Endpoints are tried in configured order; only
// connectivity failures advance to the next one. A node-reported error
// returns immediately as *RPCError.
func (c *Client) Call(ctx context.Context, result any, method string, params ...any) error {
	req := request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	}
	if len(params) == 0 {
		req.Params = []any{}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for _, endpoint := range c.endpoints {
		raw, err := c.post(ctx, endpoint, body)
		if err != nil {
			c.logger.Debug().Str("endpoint", endpoint).Str("method", method).
				Err(err).Msg("endpoint failed, trying next")
			lastErr = err
			continue
		}

		var rpcResp response
		if err := json.Unmarshal(raw, &rpcResp); err != nil {
			return fmt.Errorf("%w: decode response: %v", errs.ErrInvalidInput, err)
		}
		if rpcResp.Error != nil {
			return rpcResp.Error
		}
		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return fmt.Errorf("%w: decode result: %v", errs.ErrInvalidInput, err)
			}
		}
		return nil
	}

	if lastErr == nil {
		return fmt.Errorf("%w: no rpc endpoints configured", errs.ErrNetworkUnavailable)
	}
	return fmt.Errorf("%w: all endpoints failed: %v", errs.ErrNetworkUnavailable, lastErr)
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return data, nil
}

// NodeChainID queries eth_chainId from the node.
func (c *Client) NodeChainID(ctx context.Context) (uint64, error) {
	var id hexutil.Uint64
	if err := c.Call(ctx, &id, "eth_chainId"); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// BalanceAt returns the native balance of address in base units.
func (c *Client) BalanceAt(ctx context.Context, address string) (*big.Int, error) {
	var bal hexutil.Big
	if err := c.Call(ctx, &bal, "eth_getBalance", address, "latest"); err != nil {
		return nil, err
	}
	return bal.ToInt(), nil
}

// BlockNumber returns the current block height.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var n hexutil.Uint64
	if err := c.Call(ctx, &n, "eth_blockNumber"); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// GasPrice returns the node's suggested gas price.
func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	var price hexutil.Big
	if err := c.Call(ctx, &price, "eth_gasPrice"); err != nil {
		return nil, err
	}
	return price.ToInt(), nil
}

// NonceAt returns the pending-state transaction count for address.
func (c *Client) NonceAt(ctx context.Context, address string) (uint64, error) {
	var n hexutil.Uint64
	if err := c.Call(ctx, &n, "eth_getTransactionCount", address, "pending"); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// EstimateGas estimates gas for a call object.
func (c *Client) EstimateGas(ctx context.Context, call map[string]any) (uint64, error) {
	var gas hexutil.Uint64
	if err := c.Call(ctx, &gas, "eth_estimateGas", call); err != nil {
		return 0, err
	}
	return uint64(gas), nil
}

// CallReadOnly executes eth_call against the latest block and returns the
// raw return data.
func (c *Client) CallReadOnly(ctx context.Context, to string, data []byte) ([]byte, error) {
	var out hexutil.Bytes
	call := map[string]any{"to": to, "data": hexutil.Encode(data)}
	if err := c.Call(ctx, &out, "eth_call", call, "latest"); err != nil {
		return nil, err
	}
	return out, nil
}

// Broadcast submits a signed raw transaction and returns its hash.
func (c *Client) Broadcast(ctx context.Context, signedTx []byte) (string, error) {
	var hash string
	if err := c.Call(ctx, &hash, "eth_sendRawTransaction", hexutil.Encode(signedTx)); err != nil {
		return "", err
	}
	c.logger.Info().Str("tx_hash", hash).Msg("transaction broadcast")
	return hash, nil
}

// TransactionByHash fetches a transaction document, nil if unknown.
func (c *Client) TransactionByHash(ctx context.Context, hash string) (*Transaction, error) {
	var tx *Transaction
	if err := c.Call(ctx, &tx, "eth_getTransactionByHash", hash); err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, fmt.Errorf("%w: transaction %s", errs.ErrNotFound, hash)
	}
	return tx, nil
}

// Receipt fetches a transaction receipt, ErrNotFound while pending.
func (c *Client) Receipt(ctx context.Context, hash string) (*Receipt, error) {
	var rcpt *Receipt
	if err := c.Call(ctx, &rcpt, "eth_getTransactionReceipt", hash); err != nil {
		return nil, err
	}
	if rcpt == nil {
		return nil, fmt.Errorf("%w: receipt for %s", errs.ErrNotFound, hash)
	}
	return rcpt, nil
}

// WaitForConfirmation polls until the transaction has the requested number
// of confirmations or ctx expires.
func (c *Client) WaitForConfirmation(ctx context.Context, hash string, confirmations uint64) (*Receipt, error) {
	ticker := time.NewTicker(c.confirmPoll)
	defer ticker.Stop()

	for {
		rcpt, err := c.Receipt(ctx, hash)
		if err == nil {
			head, err := c.BlockNumber(ctx)
			if err == nil && head >= rcpt.BlockNumber && head-rcpt.BlockNumber+1 >= confirmations {
				return rcpt, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: confirmation timeout for %s: %v", errs.ErrNetworkUnavailable, hash, ctx.Err())
		case <-ticker.C:
		}
	}
}
