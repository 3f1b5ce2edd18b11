package auth_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/piwi3910/gqlflux/auth"
	"github.com/piwi3910/gqlflux/graphql"
	"github.com/piwi3910/gqlflux/session"
	"github.com/piwi3910/gqlflux/store"
	"github.com/piwi3910/gqlflux/transport"
)

type call struct {
	op   graphql.Operation
	opts transport.ExecOptions
}

type fakeExecutor struct {
	calls   []call
	respond func(op graphql.Operation) (*transport.Outcome, error)
}

func (f *fakeExecutor) Execute(_ context.Context, op graphql.Operation, opts transport.ExecOptions) (*transport.Outcome, error) {
	f.calls = append(f.calls, call{op: op, opts: opts})
	if f.respond == nil {
		return &transport.Outcome{Data: json.RawMessage(`{}`)}, nil
	}
	return f.respond(op)
}

func sessionResponse(op graphql.Operation, token string) (*transport.Outcome, error) {
	now := time.Now()
	data := fmt.Sprintf(`{"users":{"%s":{"token":"%s","issued":%d,"expires":%d,"userId":"u-1","username":"testuser"}}}`,
		op.FieldName(), token, now.UnixMilli(), now.Add(time.Hour).UnixMilli())
	return &transport.Outcome{Data: json.RawMessage(data)}, nil
}

func newClient(t *testing.T, exec *fakeExecutor, st *store.Memory) *auth.Client {
	t.Helper()
	c, err := auth.NewClient(exec, st, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	st := store.NewMemory()
	_, err := auth.NewClient(nil, st, nil)
	assert.Error(t, err)
	_, err = auth.NewClient(&fakeExecutor{}, nil, nil)
	assert.Error(t, err)
}

func TestSignIn_StoresSession(t *testing.T) {
	exec := &fakeExecutor{respond: func(op graphql.Operation) (*transport.Outcome, error) {
		return sessionResponse(op, "tok-1")
	}}
	st := store.NewMemory()
	c := newClient(t, exec, st)

	sess, err := c.SignIn(context.Background(), "testuser", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", sess.Token)
	assert.Equal(t, "testuser", sess.Username)

	assert.Equal(t, "tok-1", st.Session().Token)
	assert.Len(t, st.ActionsOfType(store.TypeSessionUpdated), 1)

	require.Len(t, exec.calls, 1)
	assert.Equal(t, transport.EndpointPublic, exec.calls[0].opts.Endpoint)
	assert.False(t, exec.calls[0].opts.Authenticated, "sign-in is never authenticated")
	assert.Equal(t, "UsersSignIn", exec.calls[0].op.OperationName())
}

func TestSignIn_BadCredentialsLeaveSessionUntouched(t *testing.T) {
	exec := &fakeExecutor{respond: func(op graphql.Operation) (*transport.Outcome, error) {
		return nil, &transport.Error{
			Kind:      transport.KindGraphQL,
			Operation: op.OperationName(),
			Messages:  []string{"invalid credentials"},
		}
	}}
	st := store.NewMemory()
	c := newClient(t, exec, st)

	_, err := c.SignIn(context.Background(), "testuser", "wrong")
	require.Error(t, err)
	assert.Regexp(t, `(?i)invalid|error|fail`, err.Error())
	assert.True(t, st.Session().IsAbsent())
	assert.Empty(t, st.ActionsOfType(store.TypeSessionUpdated))
}

func TestSignIn_IncompleteSessionRejected(t *testing.T) {
	exec := &fakeExecutor{respond: func(op graphql.Operation) (*transport.Outcome, error) {
		return &transport.Outcome{
			Data: json.RawMessage(`{"users":{"signIn":{"token":"tok-1"}}}`),
		}, nil
	}}
	st := store.NewMemory()
	c := newClient(t, exec, st)

	_, err := c.SignIn(context.Background(), "testuser", "hunter2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incomplete session")
	assert.True(t, st.Session().IsAbsent())
}

func TestSignOut(t *testing.T) {
	exec := &fakeExecutor{}
	st := store.NewMemory()
	c := newClient(t, exec, st)

	err := c.SignOut(context.Background())
	assert.ErrorIs(t, err, auth.ErrNotSignedIn)

	now := time.Now()
	st.SetSession(session.Session{Token: "tok", Expires: now.Add(time.Hour).UnixMilli()})

	require.NoError(t, c.SignOut(context.Background()))
	assert.True(t, st.Session().IsAbsent())
	assert.Len(t, st.ActionsOfType(store.TypeSessionCleared), 1)
	assert.Equal(t, "UsersSignOut", exec.calls[0].op.OperationName())
	assert.True(t, exec.calls[0].opts.Authenticated)
}

func TestSignOut_ClearsLocallyEvenOnBackendFailure(t *testing.T) {
	exec := &fakeExecutor{respond: func(op graphql.Operation) (*transport.Outcome, error) {
		return nil, &transport.Error{Kind: transport.KindNetwork, Operation: op.OperationName()}
	}}
	st := store.NewMemory()
	st.SetSession(session.Session{Token: "tok", Expires: time.Now().Add(time.Hour).UnixMilli()})
	c := newClient(t, exec, st)

	err := c.SignOut(context.Background())
	require.Error(t, err)
	assert.True(t, st.Session().IsAbsent(), "local session drops regardless of backend outcome")
}

func TestSignUp(t *testing.T) {
	exec := &fakeExecutor{respond: func(op graphql.Operation) (*transport.Outcome, error) {
		return &transport.Outcome{Data: json.RawMessage(`{"users":{"signUp":{"id":"u-2","username":"new"}}}`)}, nil
	}}
	st := store.NewMemory()
	c := newClient(t, exec, st)

	require.NoError(t, c.SignUp(context.Background(), "new", "new@example.com", "hunter2"))
	assert.True(t, st.Session().IsAbsent(), "sign-up does not sign in")
	assert.Equal(t, transport.EndpointPublic, exec.calls[0].opts.Endpoint)
}

func TestForgotPassword(t *testing.T) {
	exec := &fakeExecutor{}
	c := newClient(t, exec, store.NewMemory())

	require.NoError(t, c.ForgotPassword(context.Background(), "lost@example.com"))
	require.Len(t, exec.calls, 1)
	assert.Equal(t, "UsersForgotPassword", exec.calls[0].op.OperationName())
	assert.Equal(t, transport.EndpointPublic, exec.calls[0].opts.Endpoint)
}

func TestRefreshSession(t *testing.T) {
	exec := &fakeExecutor{respond: func(op graphql.Operation) (*transport.Outcome, error) {
		return sessionResponse(op, "tok-2")
	}}
	st := store.NewMemory()
	c := newClient(t, exec, st)

	_, err := c.RefreshSession(context.Background())
	assert.ErrorIs(t, err, auth.ErrNotSignedIn)

	st.SetSession(session.Session{Token: "tok-1", Expires: time.Now().Add(time.Hour).UnixMilli()})

	sess, err := c.RefreshSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", sess.Token)
	assert.Equal(t, "tok-2", st.Session().Token)
}

func TestRefreshSession_InvalidatedMapsToExpired(t *testing.T) {
	exec := &fakeExecutor{respond: func(graphql.Operation) (*transport.Outcome, error) {
		return &transport.Outcome{SessionInvalidated: true}, nil
	}}
	st := store.NewMemory()
	st.SetSession(session.Session{Token: "tok-1", Expires: time.Now().Add(time.Hour).UnixMilli()})
	c := newClient(t, exec, st)

	_, err := c.RefreshSession(context.Background())
	assert.ErrorIs(t, err, auth.ErrSessionExpired)
}
