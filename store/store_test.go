package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/piwi3910/gqlflux/session"
	"github.com/piwi3910/gqlflux/store"
)

func TestMemory_Dispatch(t *testing.T) {
	m := store.NewMemory(store.WithLogger(zap.NewNop()))

	m.Dispatch(store.Action{Type: "POSTS_ADD_ITEM_SUCCESS", Payload: map[string]any{"post": "p"}})
	m.Dispatch(store.Action{Type: "POSTS_ADD_ITEM_ERROR"})

	actions := m.Actions()
	require.Len(t, actions, 2)
	assert.Equal(t, "POSTS_ADD_ITEM_SUCCESS", actions[0].Type)
	assert.Equal(t, "p", actions[0].Payload["post"])

	errs := m.ActionsOfType("POSTS_ADD_ITEM_ERROR")
	require.Len(t, errs, 1)
}

func TestMemory_Subscribe(t *testing.T) {
	m := store.NewMemory()

	var seen []string
	unsub := m.Subscribe(func(a store.Action) {
		seen = append(seen, a.Type)
	})

	m.Dispatch(store.Action{Type: "A"})
	unsub()
	m.Dispatch(store.Action{Type: "B"})

	assert.Equal(t, []string{"A"}, seen)
}

func TestMemory_Subscribe_MayReenterStore(t *testing.T) {
	m := store.NewMemory()

	done := false
	m.Subscribe(func(a store.Action) {
		if a.Type == "A" && !done {
			done = true
			// Callbacks run outside the store lock, so re-entry must
			// not deadlock.
			m.Dispatch(store.Action{Type: "B"})
		}
	})

	m.Dispatch(store.Action{Type: "A"})
	assert.Len(t, m.Actions(), 2)
}

func TestMemory_Session(t *testing.T) {
	m := store.NewMemory()
	assert.True(t, m.Session().IsAbsent())

	s := session.Session{Token: "tok", Expires: 1893456000000, Username: "testuser"}
	m.SetSession(s)
	assert.Equal(t, s, m.Session())

	m.ClearSession()
	assert.True(t, m.Session().IsAbsent())
}

func TestMemory_SetSession_RejectsPartial(t *testing.T) {
	m := store.NewMemory()

	// Missing expiry violates the all-or-nothing invariant.
	m.SetSession(session.Session{Token: "tok"})
	assert.True(t, m.Session().IsAbsent())
}

func TestMemory_NetworkAvailable(t *testing.T) {
	m := store.NewMemory()
	assert.True(t, m.NetworkAvailable())

	m.SetNetworkAvailable(false)
	assert.False(t, m.NetworkAvailable())
}
