// Package auth implements the user lifecycle operations: sign-up,
// sign-in, sign-out, password recovery and explicit session refresh.
// Sign-in and refresh write the resulting session into the store;
// sign-out clears it. All calls go through the shared transport, so
// failure classification and retry recording behave the same as for
// entity operations.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/piwi3910/gqlflux/graphql"
	"github.com/piwi3910/gqlflux/session"
	"github.com/piwi3910/gqlflux/store"
	"github.com/piwi3910/gqlflux/transport"
)

// usersCollection is the GraphQL root field for user operations.
const usersCollection = "users"

// sessionFields is the selection set for operations returning a
// session.
var sessionFields = []string{"token", "issued", "expires", "userId", "username"}

// Sentinel errors.
var (
	// ErrNotSignedIn is returned by operations that require an
	// existing session when the store holds none.
	ErrNotSignedIn = errors.New("not signed in")

	// ErrSessionExpired is returned when an explicit refresh finds the
	// stored session already past its expiry.
	ErrSessionExpired = errors.New("session expired")
)

// Executor is the transport slice the auth layer needs.
type Executor interface {
	Execute(ctx context.Context, op graphql.Operation, opts transport.ExecOptions) (*transport.Outcome, error)
}

// Client exposes the user lifecycle operations.
type Client struct {
	transport Executor
	store     store.Store
	logger    *zap.Logger
}

// NewClient builds an auth client bound to a transport and store.
func NewClient(tr Executor, st store.Store, logger *zap.Logger) (*Client, error) {
	if tr == nil {
		return nil, fmt.Errorf("transport cannot be nil")
	}
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{transport: tr, store: st, logger: logger.Named("auth")}, nil
}

// SignUp registers a new user on the public endpoint. It does not sign
// the user in; callers follow with SignIn.
func (c *Client) SignUp(ctx context.Context, username, email, password string) error {
	op := graphql.Mutation(usersCollection, "signUp",
		[]graphql.Variable{
			{Name: "username", Type: "String!", Value: username},
			{Name: "email", Type: "String!", Value: email},
			{Name: "password", Type: "String!", Value: password},
		},
		[]string{"id", "username"},
	)

	_, err := c.public(ctx, op)
	if err != nil {
		return err
	}
	c.logger.Info("user signed up", zap.String("username", username))
	return nil
}

// SignIn authenticates against the public endpoint and stores the
// returned session.
func (c *Client) SignIn(ctx context.Context, username, password string) (session.Session, error) {
	op := graphql.Mutation(usersCollection, "signIn",
		[]graphql.Variable{
			{Name: "username", Type: "String!", Value: username},
			{Name: "password", Type: "String!", Value: password},
		},
		sessionFields,
	)

	sess, err := c.sessionCall(ctx, op, transport.EndpointPublic, false)
	if err != nil {
		return session.Session{}, err
	}

	c.store.SetSession(sess)
	c.store.Dispatch(store.Action{
		Type:    store.TypeSessionUpdated,
		Payload: map[string]any{"userId": sess.UserID, "username": sess.Username},
	})
	c.logger.Info("signed in",
		zap.String("username", sess.Username),
		zap.Time("expires", sess.ExpiresAt()),
	)
	return sess, nil
}

// SignOut invalidates the session on the backend and clears local
// state. Local state is cleared even when the backend call fails;
// holding a token the user asked to drop is worse than a stray server
// side session.
func (c *Client) SignOut(ctx context.Context) error {
	if c.store.Session().IsAbsent() {
		return ErrNotSignedIn
	}

	op := graphql.Mutation(usersCollection, "signOut", nil, nil)
	_, err := c.transport.Execute(ctx, op, transport.ExecOptions{Authenticated: true})

	c.store.ClearSession()
	c.store.Dispatch(store.Action{Type: store.TypeSessionCleared})
	c.logger.Info("signed out")
	return err
}

// ForgotPassword starts the password recovery flow on the public
// endpoint.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	op := graphql.Mutation(usersCollection, "forgotPassword",
		[]graphql.Variable{{Name: "email", Type: "String!", Value: email}},
		nil,
	)
	_, err := c.public(ctx, op)
	return err
}

// RefreshSession forces a token refresh regardless of freshness. The
// transport already refreshes near-expiry tokens transparently; this
// exists for hosts that want to refresh eagerly, e.g. on app resume.
func (c *Client) RefreshSession(ctx context.Context) (session.Session, error) {
	current := c.store.Session()
	if current.IsAbsent() {
		return session.Session{}, ErrNotSignedIn
	}

	op := graphql.Mutation(usersCollection, "refreshSession",
		[]graphql.Variable{{Name: "token", Type: "String!", Value: current.Token}},
		sessionFields,
	)

	sess, err := c.sessionCall(ctx, op, transport.EndpointApp, true)
	if err != nil {
		return session.Session{}, err
	}

	c.store.SetSession(sess)
	c.store.Dispatch(store.Action{
		Type:    store.TypeSessionUpdated,
		Payload: map[string]any{"userId": sess.UserID, "username": sess.Username},
	})
	return sess, nil
}

// sessionCall executes an operation whose result is a session payload.
func (c *Client) sessionCall(ctx context.Context, op graphql.Operation, ep transport.Endpoint, authenticated bool) (session.Session, error) {
	out, err := c.transport.Execute(ctx, op, transport.ExecOptions{
		Authenticated: authenticated,
		Endpoint:      ep,
	})
	if err != nil {
		return session.Session{}, err
	}
	if out.SessionInvalidated {
		return session.Session{}, ErrSessionExpired
	}

	raw, err := transport.Extract(out.Data, op.Collection, op.FieldName())
	if err != nil {
		return session.Session{}, fmt.Errorf("%s response: %w", op.OperationName(), err)
	}

	var sess session.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return session.Session{}, fmt.Errorf("%s response: %w", op.OperationName(), err)
	}
	if !sess.Valid() {
		return session.Session{}, fmt.Errorf("%s response: incomplete session", op.OperationName())
	}
	return sess, nil
}

func (c *Client) public(ctx context.Context, op graphql.Operation) (*transport.Outcome, error) {
	return c.transport.Execute(ctx, op, transport.ExecOptions{Endpoint: transport.EndpointPublic})
}
