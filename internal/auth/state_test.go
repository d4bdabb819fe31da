package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/userdesk/internal/shared"
)

func newSessionManager(t *testing.T) *shared.SessionManager {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
}

func newSession(t *testing.T, sm *shared.SessionManager) *shared.Session {
	t.Helper()
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	return sess
}

func TestLoadStateWithoutMarkerIsAnonymous(t *testing.T) {
	st := LoadState(newSession(t, newSessionManager(t)))
	assert.Equal(t, Anonymous, st.State())
	assert.False(t, st.Authenticated())
	assert.Empty(t, st.Token())
}

func TestLoginPersistsMarker(t *testing.T) {
	sess := newSession(t, newSessionManager(t))
	st := LoadState(sess)

	require.NoError(t, st.Login("tok-1"))
	assert.Equal(t, Authenticated, st.State())
	assert.Equal(t, "tok-1", st.Token())

	marker, ok := sess.Marker()
	require.True(t, ok)
	assert.Equal(t, shared.SessionMarker{Token: "tok-1", IsLoggedIn: true}, marker)

	reloaded := LoadState(sess)
	assert.True(t, reloaded.Authenticated())
	assert.Equal(t, "tok-1", reloaded.Token())
}

func TestLoginRejectsEmptyToken(t *testing.T) {
	sess := newSession(t, newSessionManager(t))
	st := LoadState(sess)

	assert.ErrorIs(t, st.Login(""), shared.ErrInvalidCredentials)
	assert.Equal(t, Anonymous, st.State())
	_, ok := sess.Marker()
	assert.False(t, ok)
}

func TestLogoutClearsMarker(t *testing.T) {
	sess := newSession(t, newSessionManager(t))
	st := LoadState(sess)
	require.NoError(t, st.Login("tok-1"))

	st.Logout()
	assert.Equal(t, Anonymous, st.State())
	assert.Empty(t, st.Token())
	assert.False(t, LoadState(sess).Authenticated())
}

func TestMarkerWithoutFlagIsAnonymous(t *testing.T) {
	sess := newSession(t, newSessionManager(t))
	require.NoError(t, sess.SetMarker(shared.SessionMarker{Token: "tok", IsLoggedIn: false}))
	assert.False(t, LoadState(sess).Authenticated())

	sess.Set(shared.MarkerKey, "{broken")
	assert.False(t, LoadState(sess).Authenticated())
}

func TestNilStateIsAnonymous(t *testing.T) {
	var st *SessionState
	assert.Equal(t, Anonymous, st.State())
	assert.False(t, IsAuthenticated(context.Background()))
	assert.Equal(t, "anonymous", Anonymous.String())
	assert.Equal(t, "authenticated", Authenticated.String())
}
