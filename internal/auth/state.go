package auth

import (
	"context"
	"errors"

	"github.com/noah-isme/userdesk/internal/shared"
)

// State is the authentication state of a browser session.
type State int

// Session states.
const (
	Anonymous State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "anonymous"
}

// SessionState wraps a session with the sign-in state machine. It is seeded
// from the persisted marker once, when the request's session is loaded.
type SessionState struct {
	sess  *shared.Session
	state State
	token string
}

// LoadState reads the session marker. A missing or malformed marker seeds Anonymous.
func LoadState(sess *shared.Session) *SessionState {
	st := &SessionState{sess: sess}
	if sess == nil {
		return st
	}
	if marker, ok := sess.Marker(); ok && marker.IsLoggedIn {
		st.state = Authenticated
		st.token = marker.Token
	}
	return st
}

// Login moves the session to Authenticated and persists the marker.
func (s *SessionState) Login(token string) error {
	if token == "" {
		return shared.ErrInvalidCredentials
	}
	if s.sess == nil {
		return errors.New("auth: session missing")
	}
	if err := s.sess.SetMarker(shared.SessionMarker{Token: token, IsLoggedIn: true}); err != nil {
		return err
	}
	s.state = Authenticated
	s.token = token
	return nil
}

// Logout moves the session back to Anonymous and removes the marker.
func (s *SessionState) Logout() {
	if s.sess != nil {
		s.sess.ClearMarker()
	}
	s.state = Anonymous
	s.token = ""
}

// State returns the current state.
func (s *SessionState) State() State {
	if s == nil {
		return Anonymous
	}
	return s.state
}

// Authenticated reports whether the session is signed in.
func (s *SessionState) Authenticated() bool {
	return s.State() == Authenticated
}

// Token returns the remote token, empty when anonymous.
func (s *SessionState) Token() string {
	if s == nil {
		return ""
	}
	return s.token
}

type stateContextKey struct{}

// ContextWithState stores the session state in context.
func ContextWithState(ctx context.Context, st *SessionState) context.Context {
	return context.WithValue(ctx, stateContextKey{}, st)
}

// StateFromContext extracts the session state; nil when the middleware did not run.
func StateFromContext(ctx context.Context) *SessionState {
	st, _ := ctx.Value(stateContextKey{}).(*SessionState)
	return st
}

// IsAuthenticated reports whether the request carries a signed-in session.
func IsAuthenticated(ctx context.Context) bool {
	return StateFromContext(ctx).Authenticated()
}
