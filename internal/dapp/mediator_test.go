package dapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/wattxchange/wallet-core/internal/accounts"
	"github.com/wattxchange/wallet-core/internal/chainclient"
	"github.com/wattxchange/wallet-core/internal/network"
	"github.com/wattxchange/wallet-core/internal/storage"
	"github.com/wattxchange/wallet-core/internal/vault"
	"github.com/wattxchange/wallet-core/pkg/errs"
)

const testPhrase = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// fakeNotifier records provider events per origin.
type fakeNotifier struct {
	mu     sync.Mutex
	events []string // "origin/event"
}

func (n *fakeNotifier) Notify(origin, event string, _ any) {
	n.mu.Lock()
	n.events = append(n.events, origin+"/"+event)
	n.mu.Unlock()
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

// rpcNode answers chain JSON-RPC calls from a method table.
type rpcNode struct {
	mu      sync.Mutex
	results map[string]any
}

func (h *rpcNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method string `json:"method"`
		ID     uint64 `json:"id"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	h.mu.Lock()
	result, ok := h.results[req.Method]
	h.mu.Unlock()

	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if ok {
		resp["result"] = result
	} else {
		resp["error"] = map[string]any{"code": -32601, "message": "method not found"}
	}
	_ = json.NewEncoder(w).Encode(resp)
}

type env struct {
	mediator *Mediator
	networks *network.Registry
	accounts *accounts.Manager
	notifier *fakeNotifier
	node     *rpcNode
	seed     []byte
}

func setupEnv(t *testing.T, timeout time.Duration) *env {
	t.Helper()

	node := &rpcNode{results: map[string]any{"eth_chainId": "0x3e7"}}
	srv := httptest.NewServer(node)
	t.Cleanup(srv.Close)

	prober := chainclient.NewProber(0)
	reg, err := network.NewRegistry(storage.NewMemory(), prober)
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	err = reg.AddCustom(context.Background(), network.Config{
		ChainID:  999,
		Name:     "Testchain",
		Symbol:   "TST",
		Decimals: 18,
		RPCURLs:  []string{srv.URL},
	})
	if err != nil {
		t.Fatalf("AddCustom() error: %v", err)
	}
	if err := reg.SetActive(999); err != nil {
		t.Fatalf("SetActive() error: %v", err)
	}

	seed, err := vault.SeedFromMnemonic(testPhrase)
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error: %v", err)
	}
	mgr, err := accounts.NewManager(storage.NewMemory(), reg)
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}
	if _, err := mgr.Create(seed, "Main"); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	notifier := &fakeNotifier{}
	m := NewMediator(Config{
		Networks:  reg,
		Accounts:  mgr,
		Clients:   chainclient.NewFactory(reg, 0),
		Approvals: NewApprovals(timeout),
		Sessions:  NewSessions(),
		Notifier:  notifier,
		Signer: func(_ context.Context, _, method string, _ []json.RawMessage) (any, error) {
			return "0xsigned-" + method, nil
		},
	})
	return &env{mediator: m, networks: reg, accounts: mgr, notifier: notifier, node: node, seed: seed}
}

func request(id int, method string, params ...any) []byte {
	raw, _ := json.Marshal(map[string]any{"id": id, "method": method, "params": params})
	return raw
}

type decoded struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func handle(t *testing.T, m *Mediator, origin string, raw []byte) decoded {
	t.Helper()
	var resp decoded
	if err := json.Unmarshal(m.Handle(context.Background(), origin, raw), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

// approveNext waits for a pending approval to appear and resolves it.
func approveNext(t *testing.T, m *Mediator, approve bool) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if pending := m.Approvals().Pending(); len(pending) > 0 {
			var err error
			if approve {
				err = m.Approvals().Approve(pending[0].ID)
			} else {
				err = m.Approvals().Reject(pending[0].ID)
			}
			if err != nil {
				t.Errorf("resolve approval: %v", err)
			}
			return
		}
		select {
		case <-deadline:
			t.Error("no approval appeared")
			return
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestMediator_DirectReads(t *testing.T) {
	e := setupEnv(t, 0)

	resp := handle(t, e.mediator, "dapp.example", request(1, "eth_chainId"))
	if resp.Error != nil {
		t.Fatalf("eth_chainId error: %+v", resp.Error)
	}
	if string(resp.Result) != `"0x3e7"` {
		t.Errorf("eth_chainId = %s, want \"0x3e7\"", resp.Result)
	}

	resp = handle(t, e.mediator, "dapp.example", request(2, "net_version"))
	if string(resp.Result) != `"999"` {
		t.Errorf("net_version = %s, want \"999\"", resp.Result)
	}

	// No session yet: empty account list, not an error.
	resp = handle(t, e.mediator, "dapp.example", request(3, "eth_accounts"))
	if string(resp.Result) != "[]" {
		t.Errorf("eth_accounts = %s, want []", resp.Result)
	}
}

func TestMediator_RequestAccountsFlow(t *testing.T) {
	e := setupEnv(t, 0)

	done := make(chan decoded, 1)
	go func() {
		done <- handle(t, e.mediator, "dapp.example", request(1, "eth_requestAccounts"))
	}()
	approveNext(t, e.mediator, true)
	resp := <-done

	if resp.Error != nil {
		t.Fatalf("eth_requestAccounts error: %+v", resp.Error)
	}
	var addrs []string
	if err := json.Unmarshal(resp.Result, &addrs); err != nil || len(addrs) != 1 {
		t.Fatalf("result = %s", resp.Result)
	}

	// The session now answers eth_accounts directly.
	resp = handle(t, e.mediator, "dapp.example", request(2, "eth_accounts"))
	var again []string
	if err := json.Unmarshal(resp.Result, &again); err != nil || len(again) != 1 || again[0] != addrs[0] {
		t.Errorf("eth_accounts after connect = %s", resp.Result)
	}
	if _, ok := e.mediator.Sessions().Get("dapp.example"); !ok {
		t.Error("no session recorded")
	}
}

func TestMediator_RejectedRequestMutatesNothing(t *testing.T) {
	e := setupEnv(t, 0)
	before := len(e.networks.All())

	done := make(chan decoded, 1)
	go func() {
		done <- handle(t, e.mediator, "dapp.example", request(1, "wallet_addEthereumChain",
			map[string]any{"chainId": "0x1234", "chainName": "X", "rpcUrls": []string{"https://x.example"}}))
	}()
	approveNext(t, e.mediator, false)
	resp := <-done

	if resp.Error == nil || resp.Error.Code != errs.CodeUserRejected {
		t.Fatalf("error = %+v, want code 4001", resp.Error)
	}
	if len(e.networks.All()) != before {
		t.Error("rejected request changed the network registry")
	}
	if _, ok := e.mediator.Sessions().Get("dapp.example"); ok {
		t.Error("rejected request created a session")
	}
}

func TestMediator_ConcurrentReadsNotBlockedByApproval(t *testing.T) {
	e := setupEnv(t, 0)

	// Park one request in AwaitingApproval.
	parked := make(chan decoded, 1)
	go func() {
		parked <- handle(t, e.mediator, "slow.example", request(1, "eth_requestAccounts"))
	}()
	deadline := time.After(5 * time.Second)
	for len(e.mediator.Approvals().Pending()) == 0 {
		select {
		case <-deadline:
			t.Fatal("approval never registered")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// 100 concurrent direct reads complete while the approval is pending.
	var wg sync.WaitGroup
	errCh := make(chan error, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			resp := handle(t, e.mediator, fmt.Sprintf("reader%d.example", n), request(n, "eth_chainId"))
			if resp.Error != nil {
				errCh <- fmt.Errorf("read %d failed: %+v", n, resp.Error)
			}
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Error(err)
	}

	if len(e.mediator.Approvals().Pending()) != 1 {
		t.Error("pending approval resolved by unrelated reads")
	}
	approveNext(t, e.mediator, true)
	<-parked
}

func TestMediator_ApprovalTimeout(t *testing.T) {
	e := setupEnv(t, 30*time.Millisecond)

	resp := handle(t, e.mediator, "dapp.example", request(1, "personal_sign", "0xdeadbeef", "0xabc"))
	if resp.Error == nil || resp.Error.Code != errs.CodeUserRejected {
		t.Fatalf("error = %+v, want code 4001 (timeout)", resp.Error)
	}

	// The id resolved exactly once; a late decision is a no-op.
	if err := e.mediator.Approvals().Approve("whatever"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("late Approve error = %v, want ErrNotFound", err)
	}
	if got := len(e.mediator.Approvals().Pending()); got != 0 {
		t.Errorf("%d approvals still pending after timeout", got)
	}
}

func TestMediator_CancelAll(t *testing.T) {
	e := setupEnv(t, 0)

	done := make(chan decoded, 2)
	go func() { done <- handle(t, e.mediator, "a.example", request(1, "personal_sign", "0x01", "0xabc")) }()
	go func() { done <- handle(t, e.mediator, "b.example", request(2, "eth_requestAccounts")) }()

	deadline := time.After(5 * time.Second)
	for len(e.mediator.Approvals().Pending()) < 2 {
		select {
		case <-deadline:
			t.Fatal("approvals never registered")
		case <-time.After(5 * time.Millisecond):
		}
	}

	e.mediator.Approvals().CancelAll()
	for i := 0; i < 2; i++ {
		resp := <-done
		if resp.Error == nil || resp.Error.Code != errs.CodeUserRejected {
			t.Errorf("response after CancelAll = %+v, want code 4001", resp.Error)
		}
	}
}

func TestMediator_SigningDelegated(t *testing.T) {
	e := setupEnv(t, 0)

	done := make(chan decoded, 1)
	go func() {
		done <- handle(t, e.mediator, "dapp.example", request(1, "personal_sign", "0x68690a", "0xabc"))
	}()
	approveNext(t, e.mediator, true)
	resp := <-done

	if resp.Error != nil {
		t.Fatalf("personal_sign error: %+v", resp.Error)
	}
	if string(resp.Result) != `"0xsigned-personal_sign"` {
		t.Errorf("result = %s", resp.Result)
	}
}

func TestMediator_SwitchChainBroadcasts(t *testing.T) {
	e := setupEnv(t, 0)

	// Connect two origins.
	for i, origin := range []string{"a.example", "b.example"} {
		done := make(chan decoded, 1)
		go func() { done <- handle(t, e.mediator, origin, request(i, "eth_requestAccounts")) }()
		approveNext(t, e.mediator, true)
		<-done
	}

	done := make(chan decoded, 1)
	go func() {
		done <- handle(t, e.mediator, "a.example", request(9, "wallet_switchEthereumChain",
			map[string]any{"chainId": "0x1"}))
	}()
	approveNext(t, e.mediator, true)
	resp := <-done

	if resp.Error != nil {
		t.Fatalf("wallet_switchEthereumChain error: %+v", resp.Error)
	}
	if e.networks.Active() != 1 {
		t.Errorf("active chain = %d, want 1", e.networks.Active())
	}
	// Both sessions moved and both origins were notified.
	for _, origin := range []string{"a.example", "b.example"} {
		sess, ok := e.mediator.Sessions().Get(origin)
		if !ok || sess.ChainID != 1 {
			t.Errorf("session %s = %+v, want chain 1", origin, sess)
		}
	}
	if e.notifier.count() < 2 {
		t.Errorf("notifier saw %d events, want 2 chainChanged", e.notifier.count())
	}
}

func TestMediator_SwitchToUnknownChain(t *testing.T) {
	e := setupEnv(t, 0)

	done := make(chan decoded, 1)
	go func() {
		done <- handle(t, e.mediator, "dapp.example", request(1, "wallet_switchEthereumChain",
			map[string]any{"chainId": "0xabcdef"}))
	}()
	approveNext(t, e.mediator, true)
	resp := <-done

	if resp.Error == nil || resp.Error.Code != errs.CodeUnrecognizedChain {
		t.Errorf("error = %+v, want code 4902", resp.Error)
	}
}

func TestMediator_Passthrough(t *testing.T) {
	e := setupEnv(t, 0)
	e.node.mu.Lock()
	e.node.results["eth_getBlockByHash"] = map[string]any{"number": "0x1"}
	e.node.mu.Unlock()

	resp := handle(t, e.mediator, "dapp.example", request(1, "eth_getBlockByHash", "0xdead", false))
	if resp.Error != nil {
		t.Fatalf("passthrough error: %+v", resp.Error)
	}

	// Node-level errors come back with the node's code.
	resp = handle(t, e.mediator, "dapp.example", request(2, "eth_unknownThing"))
	if resp.Error == nil || resp.Error.Code != -32601 {
		t.Errorf("error = %+v, want node code -32601", resp.Error)
	}
}

func TestMediator_MalformedRequest(t *testing.T) {
	e := setupEnv(t, 0)

	var resp decoded
	_ = json.Unmarshal(e.mediator.Handle(context.Background(), "x", []byte("{nope")), &resp)
	if resp.Error == nil || resp.Error.Code != errs.CodeParseError {
		t.Errorf("error = %+v, want -32700", resp.Error)
	}

	resp = handle(t, e.mediator, "x", []byte(`{"id":5,"params":[]}`))
	if resp.Error == nil || resp.Error.Code != errs.CodeInvalidRequest {
		t.Errorf("error = %+v, want -32600", resp.Error)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		method string
		want   classification
	}{
		{"eth_chainId", classDirect},
		{"eth_getBalance", classDirect},
		{"eth_requestAccounts", classApproval},
		{"eth_sendTransaction", classApproval},
		{"eth_signTypedData_v4", classApproval},
		{"wallet_watchAsset", classApproval},
		{"eth_getBlockByHash", classPassthrough},
	}
	for _, tt := range tests {
		if got := classify(tt.method); got != tt.want {
			t.Errorf("classify(%s) = %d, want %d", tt.method, got, tt.want)
		}
	}
}
