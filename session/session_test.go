package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/piwi3910/gqlflux/session"
)

func TestSession_Freshness(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	window := 10 * time.Minute

	tests := []struct {
		name string
		sess session.Session
		want session.Freshness
	}{
		{
			name: "absent",
			sess: session.Session{},
			want: session.Absent,
		},
		{
			name: "active well before window",
			sess: session.Session{Token: "t", Expires: now.Add(time.Hour).UnixMilli()},
			want: session.Active,
		},
		{
			name: "inside window",
			sess: session.Session{Token: "t", Expires: now.Add(5 * time.Minute).UnixMilli()},
			want: session.NearExpiry,
		},
		{
			name: "exactly at window boundary",
			sess: session.Session{Token: "t", Expires: now.Add(window).UnixMilli()},
			want: session.NearExpiry,
		},
		{
			name: "already expired",
			sess: session.Session{Token: "t", Expires: now.Add(-time.Minute).UnixMilli()},
			want: session.NearExpiry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sess.Freshness(now, window))
		})
	}
}

func TestSession_Valid(t *testing.T) {
	assert.False(t, session.Session{}.Valid())
	assert.False(t, session.Session{Token: "t"}.Valid())
	assert.False(t, session.Session{Expires: 123}.Valid())
	assert.True(t, session.Session{Token: "t", Expires: 123}.Valid())
}

func TestFreshness_String(t *testing.T) {
	assert.Equal(t, "absent", session.Absent.String())
	assert.Equal(t, "active", session.Active.String())
	assert.Equal(t, "near_expiry", session.NearExpiry.String())
}
