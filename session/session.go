// Package session holds the authenticated user's token and its
// issuance/expiry metadata, plus the freshness computation that drives
// proactive token refresh.
package session

import "time"

// Session is the authenticated user's token and metadata. The zero
// value means no session. Issued and Expires are epoch milliseconds,
// matching the wire format the backend returns.
//
// Invariant: a non-absent session always carries both Token and
// Expires; partial sessions are never stored.
type Session struct {
	Token    string `json:"token,omitempty"`
	Issued   int64  `json:"issued,omitempty"`
	Expires  int64  `json:"expires,omitempty"`
	UserID   string `json:"userId,omitempty"`
	Username string `json:"username,omitempty"`
}

// Freshness classifies a session relative to the refresh window.
type Freshness int

// Freshness states.
const (
	// Absent means no token is held.
	Absent Freshness = iota

	// Active means the token is held and outside the refresh window.
	Active

	// NearExpiry means the token is held and within the refresh
	// window (or already expired); a refresh should precede the next
	// authenticated call.
	NearExpiry
)

func (f Freshness) String() string {
	switch f {
	case Absent:
		return "absent"
	case Active:
		return "active"
	case NearExpiry:
		return "near_expiry"
	default:
		return "unknown"
	}
}

// IsAbsent reports whether no token is held.
func (s Session) IsAbsent() bool {
	return s.Token == ""
}

// Valid reports whether the session satisfies the all-or-nothing
// invariant: token and expiry both present.
func (s Session) Valid() bool {
	return s.Token != "" && s.Expires > 0
}

// ExpiresAt returns the expiry as a time.Time.
func (s Session) ExpiresAt() time.Time {
	return time.UnixMilli(s.Expires)
}

// Freshness computes the session's state at now given the refresh
// window. The comparison basis is the session's expiry: a session
// whose remaining lifetime is within the window is NearExpiry. (The
// system this replaces compared against expiry while naming the value
// after issuance; the expiry semantic is the deliberate choice here.)
func (s Session) Freshness(now time.Time, window time.Duration) Freshness {
	if s.IsAbsent() {
		return Absent
	}
	remaining := s.ExpiresAt().Sub(now)
	if remaining <= window {
		return NearExpiry
	}
	return Active
}
