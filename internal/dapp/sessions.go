package dapp

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one origin's live connection to the wallet.
type Session struct {
	ID          string    `json:"id"`
	Origin      string    `json:"origin"`
	ChainID     uint64    `json:"chain_id"`
	Accounts    []string  `json:"accounts"`
	Permissions []string  `json:"permissions"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Sessions tracks per-origin connections in memory. Sessions do not
// survive a restart; origins reconnect via eth_requestAccounts.
type Sessions struct {
	mu       sync.RWMutex
	byOrigin map[string]*Session
}

// NewSessions creates an empty session store.
func NewSessions() *Sessions {
	return &Sessions{byOrigin: make(map[string]*Session)}
}

// Connect creates or refreshes the session for origin.
func (s *Sessions) Connect(origin string, chainID uint64, addrs []string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byOrigin[origin]
	if !ok {
		sess = &Session{
			ID:          uuid.NewString(),
			Origin:      origin,
			Permissions: []string{"eth_accounts"},
			ConnectedAt: time.Now().UTC(),
		}
		s.byOrigin[origin] = sess
	}
	sess.ChainID = chainID
	sess.Accounts = append([]string(nil), addrs...)
	return *sess
}

// Get returns the session for origin, if connected.
func (s *Sessions) Get(origin string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.byOrigin[origin]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// SetChainAll moves every session to chainID. Network switches are
// broadcast to all connected origins, not scoped to the requesting one.
func (s *Sessions) SetChainAll(chainID uint64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	origins := make([]string, 0, len(s.byOrigin))
	for origin, sess := range s.byOrigin {
		sess.ChainID = chainID
		origins = append(origins, origin)
	}
	return origins
}

// SetAccountsAll replaces the account list of every session, for
// active-account switches.
func (s *Sessions) SetAccountsAll(addrs []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	origins := make([]string, 0, len(s.byOrigin))
	for origin, sess := range s.byOrigin {
		sess.Accounts = append([]string(nil), addrs...)
		origins = append(origins, origin)
	}
	return origins
}

// Disconnect drops one origin's session.
func (s *Sessions) Disconnect(origin string) {
	s.mu.Lock()
	delete(s.byOrigin, origin)
	s.mu.Unlock()
}

// DisconnectAll drops every session.
func (s *Sessions) DisconnectAll() {
	s.mu.Lock()
	s.byOrigin = make(map[string]*Session)
	s.mu.Unlock()
}

// All returns a snapshot of the connected sessions.
func (s *Sessions) All() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Session, 0, len(s.byOrigin))
	for _, sess := range s.byOrigin {
		out = append(out, *sess)
	}
	return out
}
