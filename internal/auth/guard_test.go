package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/userdesk/internal/shared"
)

func withSession(sess *shared.Session, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(shared.ContextWithSession(r.Context(), sess)))
	})
}

func TestRequireAuthenticatedRedirectsBeforeHandler(t *testing.T) {
	sess := newSession(t, newSessionManager(t))
	called := false
	protected := withSession(sess, StateMiddleware(RequireAuthenticated(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, _ = w.Write([]byte("users"))
	}))))

	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, LoginPath, rec.Header().Get("Location"))
	assert.False(t, called)
	assert.NotContains(t, rec.Body.String(), "users")

	require.NoError(t, sess.SetMarker(shared.SessionMarker{Token: "tok", IsLoggedIn: true}))
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

func TestRequireAuthenticatedWithoutSession(t *testing.T) {
	rec := httptest.NewRecorder()
	StateMiddleware(RequireAuthenticated(http.NotFoundHandler())).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestRedirectAuthenticated(t *testing.T) {
	sess := newSession(t, newSessionManager(t))
	page := withSession(sess, StateMiddleware(RedirectAuthenticated("/")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))))

	rec := httptest.NewRecorder()
	page.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, LoginPath, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, sess.SetMarker(shared.SessionMarker{Token: "tok", IsLoggedIn: true}))
	rec = httptest.NewRecorder()
	page.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, LoginPath, nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}
