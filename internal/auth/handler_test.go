package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/userdesk/internal/audit"
	"github.com/noah-isme/userdesk/internal/shared"
	"github.com/noah-isme/userdesk/internal/view"
)

type stubAuthenticator struct {
	token string
	err   error
	calls int
}

func (s *stubAuthenticator) Login(ctx context.Context, email, password string) (string, error) {
	s.calls++
	return s.token, s.err
}

type recordingListener struct {
	forgotten []string
}

func (l *recordingListener) Forget(sessionID string) {
	l.forgotten = append(l.forgotten, sessionID)
}

type recordingAudit struct {
	entries []audit.Entry
}

func (r *recordingAudit) Insert(ctx context.Context, entry audit.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

type authFixture struct {
	authn    *stubAuthenticator
	listener *recordingListener
	audit    *recordingAudit
	sess     *shared.Session
	router   http.Handler
}

func newAuthFixture(t *testing.T, authn *stubAuthenticator) *authFixture {
	t.Helper()
	sessions := newSessionManager(t)
	sess := newSession(t, sessions)
	templates, err := view.NewEngine()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	listener := &recordingListener{}
	auditRepo := &recordingAudit{}
	handler := NewHandler(logger, NewService(authn), templates, sessions, shared.NewCSRFManager("csrf"), audit.NewService(auditRepo, logger), listener)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return withSession(sess, next)
	})
	r.Use(StateMiddleware)
	r.Route("/auth", handler.MountRoutes)

	return &authFixture{authn: authn, listener: listener, audit: auditRepo, sess: sess, router: r}
}

func (f *authFixture) postLogin(email, password string) *httptest.ResponseRecorder {
	form := url.Values{"email": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestShowLoginRendersForm(t *testing.T) {
	f := newAuthFixture(t, &stubAuthenticator{token: "tok"})

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="password"`)
	assert.NotEmpty(t, f.sess.Get(shared.CSRFSessionKey))
}

func TestLoginSuccess(t *testing.T) {
	f := newAuthFixture(t, &stubAuthenticator{token: "QpwL5tke4Pnpja7X4"})
	f.sess.Set(shared.CSRFSessionKey, "before-login")

	rec := f.postLogin("eve.holt@reqres.in", "cityslicka")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	marker, ok := f.sess.Marker()
	require.True(t, ok)
	assert.Equal(t, shared.SessionMarker{Token: "QpwL5tke4Pnpja7X4", IsLoggedIn: true}, marker)
	assert.NotEqual(t, "before-login", f.sess.Get(shared.CSRFSessionKey))
	assert.Equal(t, "eve.holt@reqres.in", f.sess.Get(ActorSessionKey))
	assert.Equal(t, "Logged in successfully", f.sess.PopFlash().Message)

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, audit.ActionLogin, f.audit.entries[0].Action)
}

func TestLoginTrimsEmailBeforeValidation(t *testing.T) {
	f := newAuthFixture(t, &stubAuthenticator{token: "tok"})

	rec := f.postLogin("  eve.holt@reqres.in ", "cityslicka")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, 1, f.authn.calls)
	assert.Equal(t, "eve.holt@reqres.in", f.sess.Get(ActorSessionKey))
}

func TestLoginValidationNeverCallsDirectory(t *testing.T) {
	f := newAuthFixture(t, &stubAuthenticator{token: "tok"})

	rec := f.postLogin("not-an-email", "123")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Invalid email address")
	assert.Contains(t, body, "Password must be at least 6 characters")
	assert.Zero(t, f.authn.calls)
	_, ok := f.sess.Marker()
	assert.False(t, ok)
}

func TestLoginFailuresShareOneMessage(t *testing.T) {
	for name, err := range map[string]error{
		"rejected":  shared.ErrInvalidCredentials,
		"transport": errors.New("dial tcp: connection refused"),
	} {
		t.Run(name, func(t *testing.T) {
			f := newAuthFixture(t, &stubAuthenticator{err: err})

			rec := f.postLogin("eve.holt@reqres.in", "wrong-pass")
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "Invalid email or password")
			assert.Contains(t, rec.Body.String(), `value="eve.holt@reqres.in"`)
			assert.Equal(t, 1, f.authn.calls)
			_, ok := f.sess.Marker()
			assert.False(t, ok)
			assert.Empty(t, f.audit.entries)
		})
	}
}

func TestLoginPageRedirectsWhenSignedIn(t *testing.T) {
	f := newAuthFixture(t, &stubAuthenticator{token: "tok"})
	require.NoError(t, f.sess.SetMarker(shared.SessionMarker{Token: "tok", IsLoggedIn: true}))

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestLogoutClearsSession(t *testing.T) {
	f := newAuthFixture(t, &stubAuthenticator{token: "tok"})
	require.NoError(t, f.sess.SetMarker(shared.SessionMarker{Token: "tok", IsLoggedIn: true}))
	f.sess.Set(ActorSessionKey, "eve.holt@reqres.in")

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, LoginPath, rec.Header().Get("Location"))

	_, ok := f.sess.Marker()
	assert.False(t, ok)
	assert.True(t, f.sess.Destroyed())
	assert.Equal(t, []string{f.sess.ID}, f.listener.forgotten)
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, audit.ActionLogout, f.audit.entries[0].Action)
	assert.Equal(t, "eve.holt@reqres.in", f.audit.entries[0].Actor)
}
