package dapp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wattxchange/wallet-core/internal/log"
	"github.com/wattxchange/wallet-core/pkg/errs"
)

// DefaultApprovalTimeout bounds how long a request may sit awaiting the
// user before it resolves as a rejection.
const DefaultApprovalTimeout = 45 * time.Second

// ApprovalRequest is what the host UI renders for a pending decision.
type ApprovalRequest struct {
	ID        string          `json:"id"`
	Origin    string          `json:"origin"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params"`
	CreatedAt time.Time       `json:"created_at"`
}

type approvalResult struct {
	approved bool
	reason   string
}

type pendingApproval struct {
	req  ApprovalRequest
	done chan approvalResult
}

// Approvals tracks pending user decisions keyed by request id. Each
// resolution is terminal: a second Approve/Reject on the same id is a
// no-op returning ErrNotFound.
type Approvals struct {
	mu      sync.Mutex
	pending map[string]*pendingApproval
	timeout time.Duration
	logger  zerolog.Logger
}

// NewApprovals creates the approval tracker.
func NewApprovals(timeout time.Duration) *Approvals {
	if timeout <= 0 {
		timeout = DefaultApprovalTimeout
	}
	return &Approvals{
		pending: make(map[string]*pendingApproval),
		timeout: timeout,
		logger:  log.DApp,
	}
}

// Wait registers a pending approval and suspends the calling request
// until the user resolves it, the timeout fires, or ctx is cancelled.
// Timeout and cancellation both resolve as rejection.
func (a *Approvals) Wait(ctx context.Context, origin, method string, params json.RawMessage) error {
	req := ApprovalRequest{
		ID:        uuid.NewString(),
		Origin:    origin,
		Method:    method,
		Params:    params,
		CreatedAt: time.Now().UTC(),
	}
	p := &pendingApproval{
		req:  req,
		done: make(chan approvalResult, 1),
	}

	a.mu.Lock()
	a.pending[req.ID] = p
	a.mu.Unlock()
	a.logger.Info().Str("request", req.ID).Str("origin", origin).
		Str("method", method).Msg("awaiting approval")

	timer := time.NewTimer(a.timeout)
	defer timer.Stop()

	select {
	case res := <-p.done:
		if !res.approved {
			return fmt.Errorf("%w: %s", errs.ErrUserRejected, res.reason)
		}
		return nil
	case <-timer.C:
		a.resolve(req.ID, false, "approval timed out")
		// Drain in case the user resolved in the same instant; the map
		// entry decides who won.
		res := <-p.done
		if res.approved {
			return nil
		}
		return fmt.Errorf("%w: %s", errs.ErrUserRejected, res.reason)
	case <-ctx.Done():
		a.resolve(req.ID, false, "request cancelled")
		res := <-p.done
		if res.approved {
			return nil
		}
		return fmt.Errorf("%w: %s", errs.ErrUserRejected, res.reason)
	}
}

// resolve settles one pending id. Returns false if it was already settled.
func (a *Approvals) resolve(id string, approved bool, reason string) bool {
	a.mu.Lock()
	p, ok := a.pending[id]
	if ok {
		delete(a.pending, id)
	}
	a.mu.Unlock()
	if !ok {
		return false
	}
	p.done <- approvalResult{approved: approved, reason: reason}
	return true
}

// Approve settles a pending request in the user's favor.
func (a *Approvals) Approve(id string) error {
	if !a.resolve(id, true, "") {
		return fmt.Errorf("%w: approval %s", errs.ErrNotFound, id)
	}
	a.logger.Info().Str("request", id).Msg("request approved")
	return nil
}

// Reject settles a pending request against the user.
func (a *Approvals) Reject(id string) error {
	if !a.resolve(id, false, "user declined") {
		return fmt.Errorf("%w: approval %s", errs.ErrNotFound, id)
	}
	a.logger.Info().Str("request", id).Msg("request rejected")
	return nil
}

// CancelAll rejects every pending request. Called on surface teardown.
func (a *Approvals) CancelAll() {
	a.mu.Lock()
	pending := a.pending
	a.pending = make(map[string]*pendingApproval)
	a.mu.Unlock()

	for id, p := range pending {
		p.done <- approvalResult{approved: false, reason: "surface closed"}
		a.logger.Debug().Str("request", id).Msg("request cancelled by teardown")
	}
}

// Pending lists the requests awaiting a decision, oldest first.
func (a *Approvals) Pending() []ApprovalRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]ApprovalRequest, 0, len(a.pending))
	for _, p := range a.pending {
		out = append(out, p.req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
