// Package transport executes GraphQL operations against the backend
// with session-aware authentication: it refreshes tokens that are
// near expiry before an authenticated call, classifies failures into
// retryable and fatal kinds, and records unsendable operations in the
// store so hosts can replay them.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/piwi3910/gqlflux/graphql"
	"github.com/piwi3910/gqlflux/session"
	"github.com/piwi3910/gqlflux/store"
)

// Endpoint selects which backend URL an operation targets. The caller
// states this explicitly; the transport never infers it.
type Endpoint string

// Backend endpoints.
const (
	// EndpointApp is the authenticated application endpoint.
	EndpointApp Endpoint = "app"

	// EndpointPublic is the unauthenticated endpoint used for
	// sign-up, sign-in and password recovery.
	EndpointPublic Endpoint = "public"
)

// Config holds the transport's endpoint and session settings.
type Config struct {
	// AppURL is the authenticated GraphQL endpoint.
	AppURL string

	// PublicURL is the unauthenticated GraphQL endpoint.
	PublicURL string

	// RefreshWindow is the time-before-expiry threshold that triggers
	// a proactive token refresh.
	RefreshWindow time.Duration
}

// ExecOptions state how a single operation is sent.
type ExecOptions struct {
	// Authenticated attaches the bearer token and enables the
	// freshness check.
	Authenticated bool

	// Endpoint selects the target URL. Empty defaults to EndpointApp.
	Endpoint Endpoint
}

// Outcome is an operation's result. SessionInvalidated distinguishes
// the soft "token died, session cleared, nothing else wrong" condition
// from real data at the type level, so callers cannot confuse the two.
type Outcome struct {
	// Data is the raw value under the GraphQL "data" key. Empty when
	// SessionInvalidated is set.
	Data json.RawMessage

	// SessionInvalidated is true when the backend rejected the token.
	// The session has already been cleared from the store.
	SessionInvalidated bool
}

// envelope is the standard GraphQL response shape.
type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Client is the authenticated GraphQL transport. Safe for concurrent
// use; the refresh path is single-flight (concurrent near-expiry
// callers share one refresh mutation instead of racing).
type Client struct {
	cfg        Config
	httpClient *http.Client
	store      store.Store
	logger     *zap.Logger
	now        func() time.Time

	// refreshMu serializes token refresh. Waiters re-check freshness
	// after acquiring the lock and adopt the winner's token.
	refreshMu sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the transport logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the time source used by the freshness check.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient creates a transport bound to a store.
func NewClient(cfg Config, st store.Store, opts ...Option) (*Client, error) {
	if cfg.AppURL == "" {
		return nil, fmt.Errorf("app endpoint URL is required")
	}
	if cfg.PublicURL == "" {
		return nil, fmt.Errorf("public endpoint URL is required")
	}
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if cfg.RefreshWindow <= 0 {
		cfg.RefreshWindow = 5 * time.Minute
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		store:      st,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Execute sends one operation. Authenticated calls go through the
// session freshness check first; a near-expiry token is refreshed
// before the main operation, strictly ordered within this call.
func (c *Client) Execute(ctx context.Context, op graphql.Operation, opts ExecOptions) (*Outcome, error) {
	if err := op.Validate(); err != nil {
		return nil, fmt.Errorf("invalid operation: %w", err)
	}

	if !c.store.NetworkAvailable() {
		c.recordRetry(op, "network marked unavailable")
		return nil, &Error{
			Kind:      KindNetwork,
			Operation: op.OperationName(),
			Err:       ErrNetworkUnavailable,
		}
	}

	token := ""
	if opts.Authenticated {
		var err error
		token, err = c.freshToken(ctx)
		if err != nil {
			return nil, err
		}
	}

	start := c.now()
	out, err := c.send(ctx, op, c.endpointURL(opts.Endpoint), token)
	observeRequest(string(c.endpoint(opts.Endpoint)), op.OperationName(), start, err)
	return out, err
}

func (c *Client) endpoint(e Endpoint) Endpoint {
	if e == "" {
		return EndpointApp
	}
	return e
}

func (c *Client) endpointURL(e Endpoint) string {
	if c.endpoint(e) == EndpointPublic {
		return c.cfg.PublicURL
	}
	return c.cfg.AppURL
}

// freshToken returns a bearer token for the call, refreshing first if
// the session is near expiry. An absent session yields an empty token
// and lets the backend decide; partial auth failures surface as
// invalid_session there.
func (c *Client) freshToken(ctx context.Context) (string, error) {
	sess := c.store.Session()
	switch sess.Freshness(c.now(), c.cfg.RefreshWindow) {
	case session.Absent:
		return "", nil
	case session.Active:
		return sess.Token, nil
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	// Another caller may have refreshed while this one waited.
	sess = c.store.Session()
	if sess.Freshness(c.now(), c.cfg.RefreshWindow) != session.NearExpiry {
		return sess.Token, nil
	}

	refreshed, err := c.refreshSession(ctx, sess)
	if err != nil {
		return "", err
	}
	return refreshed.Token, nil
}

// refreshOperation builds the refresh mutation for the given token.
func refreshOperation(token string) graphql.Operation {
	return graphql.Mutation("users", "refreshSession",
		[]graphql.Variable{{Name: "token", Type: "String!", Value: token}},
		[]string{"token", "issued", "expires", "userId", "username"},
	)
}

// refreshSession runs the refresh mutation and adopts the new token.
// A refresh rejected as invalid_session clears the session and fails
// the originating call hard; there is no soft path here because the
// caller asked for an authenticated operation it can no longer have.
func (c *Client) refreshSession(ctx context.Context, current session.Session) (session.Session, error) {
	op := refreshOperation(current.Token)

	out, err := c.send(ctx, op, c.cfg.AppURL, current.Token)
	observeRefresh(err)
	if err != nil {
		return session.Session{}, err
	}
	if out.SessionInvalidated {
		return session.Session{}, &Error{
			Kind:      KindInvalidSession,
			Operation: op.OperationName(),
		}
	}

	raw, err := Extract(out.Data, op.Collection, op.FieldName())
	if err != nil {
		return session.Session{}, fmt.Errorf("refresh response: %w", err)
	}

	var refreshed session.Session
	if err := json.Unmarshal(raw, &refreshed); err != nil {
		return session.Session{}, fmt.Errorf("refresh response: %w", err)
	}
	if !refreshed.Valid() {
		return session.Session{}, fmt.Errorf("refresh response: incomplete session")
	}

	c.store.SetSession(refreshed)
	c.logger.Debug("session refreshed",
		zap.String("user", refreshed.Username),
		zap.Time("expires", refreshed.ExpiresAt()),
	)
	return refreshed, nil
}

// send posts the operation and classifies the response.
func (c *Client) send(ctx context.Context, op graphql.Operation, url, token string) (*Outcome, error) {
	body, err := json.Marshal(map[string]any{
		"query":     op.Document(),
		"variables": op.VariableValues(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordRetry(op, err.Error())
		return nil, &Error{Kind: KindNetwork, Operation: op.OperationName(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordRetry(op, err.Error())
		return nil, &Error{Kind: KindNetwork, Operation: op.OperationName(), Err: err}
	}

	if resp.StatusCode >= 500 {
		c.recordRetry(op, resp.Status)
		return nil, &Error{
			Kind:      KindNetwork,
			Operation: op.OperationName(),
			Messages:  []string{resp.Status},
		}
	}
	if resp.StatusCode >= 400 {
		return nil, &Error{
			Kind:      KindGraphQL,
			Operation: op.OperationName(),
			Messages:  []string{resp.Status, strings.TrimSpace(string(raw))},
		}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(env.Errors) > 0 {
		messages := make([]string, len(env.Errors))
		for i, e := range env.Errors {
			messages[i] = e.Message
		}

		switch classify(messages) {
		case KindNetwork:
			c.recordRetry(op, "backend reported network loss")
			return nil, &Error{Kind: KindNetwork, Operation: op.OperationName(), Messages: messages}

		case KindInvalidSession:
			c.store.ClearSession()
			c.logger.Info("session invalidated by backend",
				zap.String("operation", op.OperationName()),
			)
			observeSessionInvalidated()
			return &Outcome{SessionInvalidated: true}, nil

		default:
			return nil, &Error{Kind: KindGraphQL, Operation: op.OperationName(), Messages: messages}
		}
	}

	return &Outcome{Data: env.Data}, nil
}

// recordRetry dispatches a retry record so the host can observe, and
// later replay, an operation that could not be delivered. The
// transport itself never retries; unbounded invisible backoff is
// worse than an explicit queue.
func (c *Client) recordRetry(op graphql.Operation, reason string) {
	c.store.Dispatch(store.Action{
		Type: store.TypeNetworkRetry,
		Payload: map[string]any{
			"id":        uuid.NewString(),
			"operation": op.OperationName(),
			"document":  op.Document(),
			"variables": op.VariableValues(),
			"reason":    reason,
		},
	})
	observeRetryRecorded()
}

// Extract resolves the requested field path inside a GraphQL data
// payload: data.<collection>.<field> when a collection wraps the
// operation, or data.<field> for flat-shaped endpoints.
func Extract(data json.RawMessage, collection, field string) (json.RawMessage, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty data payload")
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("failed to decode data payload: %w", err)
	}

	scope := top
	if collection != "" {
		inner, ok := top[collection]
		if !ok {
			return nil, fmt.Errorf("collection %q missing from response", collection)
		}
		scope = map[string]json.RawMessage{}
		if err := json.Unmarshal(inner, &scope); err != nil {
			return nil, fmt.Errorf("failed to decode collection %q: %w", collection, err)
		}
	}

	value, ok := scope[field]
	if !ok {
		return nil, fmt.Errorf("field %q missing from response", field)
	}
	return value, nil
}
