package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/wattxchange/wallet-core/config"
	"github.com/wattxchange/wallet-core/internal/accounts"
	"github.com/wattxchange/wallet-core/internal/chainclient"
	"github.com/wattxchange/wallet-core/internal/dapp"
	"github.com/wattxchange/wallet-core/internal/network"
	"github.com/wattxchange/wallet-core/internal/storage"
	"github.com/wattxchange/wallet-core/internal/vault"
	"github.com/wattxchange/wallet-core/pkg/errs"
)

const testPassword = "correct horse battery staple"

// newTestServer wires a bridge on a loopback port with an in-memory
// wallet behind it.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	db := storage.NewMemory()
	v := vault.New(storage.NewPrefixDB(db, []byte("vault:")),
		vault.Params{Memory: 64, Iterations: 1, Parallelism: 1})

	reg, err := network.NewRegistry(storage.NewPrefixDB(db, []byte("networks:")), nil)
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	clients := chainclient.NewFactory(reg, 0)
	mgr, err := accounts.NewManager(storage.NewPrefixDB(db, []byte("accounts:")), reg)
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}

	approvals := dapp.NewApprovals(2 * time.Second)
	sessions := dapp.NewSessions()
	events := NewEvents()
	mediator := dapp.NewMediator(dapp.Config{
		Networks:  reg,
		Accounts:  mgr,
		Clients:   clients,
		Approvals: approvals,
		Sessions:  sessions,
		Notifier:  events,
	})

	s := New(config.BridgeConfig{Addr: "127.0.0.1", Port: 0}, Deps{
		Vault:    v,
		Networks: reg,
		Clients:  clients,
		Accounts: mgr,
		Mediator: mediator,
		Events:   events,
	})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(func() { s.Stop() })
	return s
}

// hostCall issues a JSON-RPC request against the /host endpoint.
func hostCall(t *testing.T, s *Server, method string, params any) (json.RawMessage, *Error) {
	t.Helper()

	body := map[string]any{"jsonrpc": "2.0", "id": 1, "method": method}
	if params != nil {
		body["params"] = params
	}
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	resp, err := http.Post("http://"+s.Addr()+"/host", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST /host: %v", err)
	}
	defer resp.Body.Close()

	var out struct {
		Result json.RawMessage `json:"result"`
		Error  *Error          `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out.Result, out.Error
}

func initWallet(t *testing.T, s *Server) CreateResult {
	t.Helper()
	raw, rpcErr := hostCall(t, s, "wallet_create", CreateParam{Password: testPassword})
	if rpcErr != nil {
		t.Fatalf("wallet_create error: %+v", rpcErr)
	}
	var res CreateResult
	if err := json.Unmarshal(raw, &res); err != nil {
		t.Fatalf("decode create result: %v", err)
	}
	return res
}

func TestHost_StatusLifecycle(t *testing.T) {
	s := newTestServer(t)

	raw, rpcErr := hostCall(t, s, "wallet_getStatus", nil)
	if rpcErr != nil {
		t.Fatalf("wallet_getStatus error: %+v", rpcErr)
	}
	var status StatusResult
	if err := json.Unmarshal(raw, &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Initialized || !status.Locked {
		t.Errorf("fresh status = %+v, want uninitialized and locked", status)
	}
	if status.ActiveChainID != network.DefaultChainID {
		t.Errorf("active chain = %d, want %d", status.ActiveChainID, network.DefaultChainID)
	}

	created := initWallet(t, s)
	if created.Mnemonic == "" {
		t.Fatal("wallet_create returned no mnemonic")
	}
	if created.Account.Name != "Account 1" {
		t.Errorf("account name = %q", created.Account.Name)
	}

	raw, rpcErr = hostCall(t, s, "wallet_getStatus", nil)
	if rpcErr != nil {
		t.Fatalf("wallet_getStatus error: %+v", rpcErr)
	}
	if err := json.Unmarshal(raw, &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Initialized || status.Locked || status.AccountCount != 1 {
		t.Errorf("post-create status = %+v", status)
	}

	if _, rpcErr := hostCall(t, s, "wallet_lock", nil); rpcErr != nil {
		t.Fatalf("wallet_lock error: %+v", rpcErr)
	}
	if _, rpcErr := hostCall(t, s, "wallet_unlock", PasswordParam{Password: "wrong"}); rpcErr == nil {
		t.Fatal("unlock with wrong password succeeded")
	} else if rpcErr.Code != errs.CodeUnauthorized {
		t.Errorf("wrong password code = %d, want %d", rpcErr.Code, errs.CodeUnauthorized)
	}
	if _, rpcErr := hostCall(t, s, "wallet_unlock", PasswordParam{Password: testPassword}); rpcErr != nil {
		t.Fatalf("wallet_unlock error: %+v", rpcErr)
	}
}

func TestHost_CreateTwiceRejected(t *testing.T) {
	s := newTestServer(t)
	initWallet(t, s)

	_, rpcErr := hostCall(t, s, "wallet_create", CreateParam{Password: "another"})
	if rpcErr == nil {
		t.Fatal("second wallet_create succeeded")
	}
	if rpcErr.Code != errs.CodeInvalidParams {
		t.Errorf("code = %d, want %d", rpcErr.Code, errs.CodeInvalidParams)
	}
}

func TestHost_ApprovalResolvesDAppRequest(t *testing.T) {
	s := newTestServer(t)
	initWallet(t, s)

	type dappResult struct {
		body []byte
		err  error
	}
	resCh := make(chan dappResult, 1)
	go func() {
		payload := []byte(`{"id":7,"method":"eth_requestAccounts","params":[]}`)
		req, _ := http.NewRequest(http.MethodPost, "http://"+s.Addr()+"/", bytes.NewReader(payload))
		req.Header.Set("Origin", "https://dapp.example")
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			resCh <- dappResult{err: err}
			return
		}
		defer resp.Body.Close()
		var buf bytes.Buffer
		buf.ReadFrom(resp.Body)
		resCh <- dappResult{body: buf.Bytes()}
	}()

	// Poll until the request shows up, then approve it.
	var pending ApprovalListResult
	deadline := time.Now().Add(2 * time.Second)
	for {
		raw, rpcErr := hostCall(t, s, "approval_list", nil)
		if rpcErr != nil {
			t.Fatalf("approval_list error: %+v", rpcErr)
		}
		if err := json.Unmarshal(raw, &pending); err != nil {
			t.Fatalf("decode approvals: %v", err)
		}
		if len(pending.Requests) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("approval never became pending")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if pending.Requests[0].Origin != "https://dapp.example" {
		t.Errorf("origin = %q", pending.Requests[0].Origin)
	}

	if _, rpcErr := hostCall(t, s, "approval_approve", IDParam{ID: pending.Requests[0].ID}); rpcErr != nil {
		t.Fatalf("approval_approve error: %+v", rpcErr)
	}

	res := <-resCh
	if res.err != nil {
		t.Fatalf("dapp request error: %v", res.err)
	}
	var rpcResp struct {
		Result []string `json:"result"`
		Error  *Error   `json:"error"`
	}
	if err := json.Unmarshal(res.body, &rpcResp); err != nil {
		t.Fatalf("decode dapp response: %v", err)
	}
	if rpcResp.Error != nil {
		t.Fatalf("dapp error: %+v", rpcResp.Error)
	}
	if len(rpcResp.Result) != 1 || rpcResp.Result[0] == "" {
		t.Errorf("accounts = %v", rpcResp.Result)
	}

	// The session is now visible to the host.
	raw, rpcErr := hostCall(t, s, "session_list", nil)
	if rpcErr != nil {
		t.Fatalf("session_list error: %+v", rpcErr)
	}
	var sessions SessionListResult
	if err := json.Unmarshal(raw, &sessions); err != nil {
		t.Fatalf("decode sessions: %v", err)
	}
	if len(sessions.Sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions.Sessions))
	}
}

func TestHost_NetworkSwitchQueuesEvent(t *testing.T) {
	s := newTestServer(t)
	initWallet(t, s)

	// Fake a connected session so the switch has someone to notify.
	s.deps.Mediator.Sessions().Connect("https://dapp.example", network.DefaultChainID, []string{"0xabc"})

	if _, rpcErr := hostCall(t, s, "network_setActive", ChainIDParam{ChainID: 56}); rpcErr != nil {
		t.Fatalf("network_setActive error: %+v", rpcErr)
	}

	resp, err := http.Get("http://" + s.Addr() + "/events?origin=https://dapp.example")
	if err != nil {
		t.Fatalf("GET /events: %v", err)
	}
	defer resp.Body.Close()
	var events []Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events) != 1 || events[0].Event != "chainChanged" {
		t.Fatalf("events = %+v, want one chainChanged", events)
	}
	if events[0].Payload != "0x38" {
		t.Errorf("payload = %v, want 0x38", events[0].Payload)
	}

	// Drained queues stay empty.
	resp2, err := http.Get("http://" + s.Addr() + "/events?origin=https://dapp.example")
	if err != nil {
		t.Fatalf("GET /events: %v", err)
	}
	defer resp2.Body.Close()
	events = nil
	if err := json.NewDecoder(resp2.Body).Decode(&events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("second drain = %+v, want empty", events)
	}
}

func TestHost_UnknownMethod(t *testing.T) {
	s := newTestServer(t)

	_, rpcErr := hostCall(t, s, "wallet_selfDestruct", nil)
	if rpcErr == nil {
		t.Fatal("unknown method succeeded")
	}
	if rpcErr.Code != errs.CodeMethodNotFound {
		t.Errorf("code = %d, want %d", rpcErr.Code, errs.CodeMethodNotFound)
	}
}

func TestHost_AccountManagement(t *testing.T) {
	s := newTestServer(t)
	created := initWallet(t, s)

	raw, rpcErr := hostCall(t, s, "account_create", NameParam{Name: "Savings"})
	if rpcErr != nil {
		t.Fatalf("account_create error: %+v", rpcErr)
	}
	var second accounts.WalletAccount
	if err := json.Unmarshal(raw, &second); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	if second.Index != 1 {
		t.Errorf("second account index = %d, want 1", second.Index)
	}

	if _, rpcErr := hostCall(t, s, "account_setActive", IDParam{ID: second.ID}); rpcErr != nil {
		t.Fatalf("account_setActive error: %+v", rpcErr)
	}
	if _, rpcErr := hostCall(t, s, "account_rename", RenameParam{ID: created.Account.ID, Name: "Spending"}); rpcErr != nil {
		t.Fatalf("account_rename error: %+v", rpcErr)
	}

	raw, rpcErr = hostCall(t, s, "account_list", nil)
	if rpcErr != nil {
		t.Fatalf("account_list error: %+v", rpcErr)
	}
	var list AccountListResult
	if err := json.Unmarshal(raw, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Accounts) != 2 || list.ActiveID != second.ID {
		t.Errorf("list = %d accounts active=%s, want 2 active=%s",
			len(list.Accounts), list.ActiveID, second.ID)
	}
	for _, acct := range list.Accounts {
		if acct.ID == created.Account.ID && acct.Name != "Spending" {
			t.Errorf("renamed account = %q", acct.Name)
		}
	}
}

func TestDApp_DirectRead(t *testing.T) {
	s := newTestServer(t)

	payload := []byte(`{"id":1,"method":"eth_chainId","params":[]}`)
	resp, err := http.Post("http://"+s.Addr()+"/", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST /: %v", err)
	}
	defer resp.Body.Close()

	var out struct {
		Result string `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Result != "0x1" {
		t.Errorf("eth_chainId = %q, want 0x1", out.Result)
	}
}

func TestGuard_MethodRestrictions(t *testing.T) {
	s := newTestServer(t)

	resp, err := http.Get("http://" + s.Addr() + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	var out struct {
		Error *Error `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Error == nil || out.Error.Code != errs.CodeInvalidRequest {
		t.Errorf("GET / error = %+v, want invalid request", out.Error)
	}
}

func TestParseAllowedIPs(t *testing.T) {
	nets := parseAllowedIPs([]string{"127.0.0.1", "10.0.0.0/8", "not-an-ip", "::1"})
	if len(nets) != 3 {
		t.Fatalf("parsed %d entries, want 3", len(nets))
	}
	var checks = []struct {
		ip   string
		want bool
	}{
		{"127.0.0.1", true},
		{"10.1.2.3", true},
		{"192.168.1.1", false},
		{"::1", true},
	}
	s := &Server{allowedNets: nets}
	for _, c := range checks {
		ip := net.ParseIP(c.ip)
		if ip == nil {
			t.Fatalf("bad test ip %q", c.ip)
		}
		if got := s.isIPAllowed(ip); got != c.want {
			t.Errorf("isIPAllowed(%s) = %v, want %v", c.ip, got, c.want)
		}
	}
}

func TestEvents_QueueBound(t *testing.T) {
	e := NewEvents()
	for i := 0; i < maxQueuedEvents+10; i++ {
		e.Notify("origin", "chainChanged", fmt.Sprintf("0x%x", i))
	}
	got := e.Drain("origin")
	if len(got) != maxQueuedEvents {
		t.Fatalf("queue length = %d, want %d", len(got), maxQueuedEvents)
	}
	// Oldest entries were dropped.
	if got[0].Payload != fmt.Sprintf("0x%x", 10) {
		t.Errorf("oldest retained = %v", got[0].Payload)
	}
}
