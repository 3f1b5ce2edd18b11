// Package store provides the Flux-style state container the SDK
// dispatches into. The store is an explicit collaborator injected into
// the transport and action layers, never a package-level singleton:
// everything the core reads from it goes through the narrow Store
// interface, which keeps those layers testable with a fake.
package store

import (
	"sync"

	"go.uber.org/zap"

	"github.com/piwi3910/gqlflux/session"
)

// Action is the unit of dispatch: a type constant plus a flat payload.
type Action struct {
	Type    string
	Payload map[string]any
}

// Well-known action types emitted by the SDK core itself. Entity
// action sets derive their own constants (see package action).
const (
	TypeSessionUpdated = "SESSION_UPDATED"
	TypeSessionCleared = "SESSION_CLEARED"

	// TypeNetworkRetry records an operation that could not be sent
	// because the network was unavailable or failed; the host decides
	// when to re-invoke.
	TypeNetworkRetry = "NETWORK_RETRY_REQUESTED"
)

// Dispatcher receives actions. UI layers subscribe to the concrete
// store; the SDK core only ever needs this write half.
type Dispatcher interface {
	Dispatch(action Action)
}

// Store is the full surface the SDK core needs: dispatch plus the
// session and connectivity reads.
type Store interface {
	Dispatcher

	Session() session.Session
	SetSession(s session.Session)
	ClearSession()

	NetworkAvailable() bool
}

// Memory is the in-process Store implementation. All state is guarded
// by one mutex; subscriber callbacks run outside the lock so they may
// re-enter the store.
type Memory struct {
	mu        sync.RWMutex
	sess      session.Session
	online    bool
	actions   []Action
	subs      map[int]func(Action)
	nextSubID int

	logger *zap.Logger
}

// Option configures a Memory store.
type Option func(*Memory)

// WithLogger sets the store's logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Memory) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMemory creates an in-process store. The network starts marked
// available.
func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		online: true,
		subs:   make(map[int]func(Action)),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dispatch records the action and notifies subscribers. Invocation
// order across subscribers is not guaranteed.
func (m *Memory) Dispatch(action Action) {
	m.mu.Lock()
	m.actions = append(m.actions, action)
	subs := make([]func(Action), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	m.logger.Debug("action dispatched", zap.String("type", action.Type))

	for _, fn := range subs {
		fn(action)
	}
}

// Subscribe registers a callback invoked for every dispatched action.
// The returned function removes the subscription.
func (m *Memory) Subscribe(fn func(Action)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Actions returns a copy of every action dispatched so far. Primarily
// for tests and debugging.
func (m *Memory) Actions() []Action {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Action, len(m.actions))
	copy(out, m.actions)
	return out
}

// ActionsOfType returns the dispatched actions matching the given type.
func (m *Memory) ActionsOfType(actionType string) []Action {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Action
	for _, a := range m.actions {
		if a.Type == actionType {
			out = append(out, a)
		}
	}
	return out
}

// Session returns the current session (zero value when signed out).
func (m *Memory) Session() session.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sess
}

// SetSession stores a new session. Partial sessions are rejected to
// preserve the all-or-nothing invariant; callers get the previous
// state unchanged.
func (m *Memory) SetSession(s session.Session) {
	if !s.Valid() {
		m.logger.Warn("ignoring invalid session: token and expiry are both required")
		return
	}
	m.mu.Lock()
	m.sess = s
	m.mu.Unlock()
}

// ClearSession drops all session state.
func (m *Memory) ClearSession() {
	m.mu.Lock()
	m.sess = session.Session{}
	m.mu.Unlock()
}

// NetworkAvailable reports the process-wide connectivity flag.
func (m *Memory) NetworkAvailable() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// SetNetworkAvailable flips the connectivity flag. Hosts wire this to
// whatever reachability signal they have.
func (m *Memory) SetNetworkAvailable(online bool) {
	m.mu.Lock()
	m.online = online
	m.mu.Unlock()
}
