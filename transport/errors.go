package transport

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a transport failure. The backend signals control
// codes through GraphQL error messages; the transport lifts them into
// typed kinds so callers never string-match.
type Kind string

// Failure kinds.
const (
	// KindNetwork marks a transient failure: the operation never
	// reached the backend (or the backend reported network loss). The
	// caller may re-invoke; a retry record has been dispatched to the
	// store for observability.
	KindNetwork Kind = "network_error"

	// KindInvalidSession marks a dead token. Session state has been
	// cleared by the time the caller sees this kind.
	KindInvalidSession Kind = "invalid_session"

	// KindGraphQL covers every other backend-reported error.
	KindGraphQL Kind = "graphql_error"
)

// Wire-level control codes carried in GraphQL error messages.
const (
	codeNetworkError   = "network_error"
	codeInvalidSession = "invalid_session"
)

// ErrNetworkUnavailable is the cause recorded when the store reports
// connectivity as down and the call is short-circuited before any I/O.
var ErrNetworkUnavailable = errors.New("network unavailable")

// Error is a classified transport failure.
type Error struct {
	// Kind is the failure classification.
	Kind Kind

	// Operation is the document-level operation name.
	Operation string

	// Messages holds the backend's error messages, if any.
	Messages []string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: operation %s failed", e.Kind, e.Operation)
	if len(e.Messages) > 0 {
		fmt.Fprintf(&b, ": %s", strings.Join(e.Messages, "; "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a transport error of the given kind.
func IsKind(err error, kind Kind) bool {
	var terr *Error
	return errors.As(err, &terr) && terr.Kind == kind
}

// classify maps a GraphQL error message list to a failure kind.
// network_error dominates invalid_session when both appear, matching
// the retry-first semantics: a flaky link should not kill the session.
func classify(messages []string) Kind {
	invalid := false
	for _, m := range messages {
		switch m {
		case codeNetworkError:
			return KindNetwork
		case codeInvalidSession:
			invalid = true
		}
	}
	if invalid {
		return KindInvalidSession
	}
	return KindGraphQL
}
