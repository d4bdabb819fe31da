package shared

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
)

func newTestManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "test_session", "secret", time.Hour, false), mr
}

// roundTrip commits sess and loads it back through a request carrying the issued cookie.
func roundTrip(t *testing.T, sm *SessionManager, sess *Session) *Session {
	t.Helper()
	ctx := context.Background()
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, httptest.NewRequest(http.MethodGet, "/", nil), sess))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	return loaded
}

func TestSessionMarkerSurvivesRoundTrip(t *testing.T) {
	sm, _ := newTestManager(t)
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	_, ok := sess.Marker()
	assert.False(t, ok)

	require.NoError(t, sess.SetMarker(SessionMarker{Token: "QpwL5tke4Pnpja7X4", IsLoggedIn: true}))
	loaded := roundTrip(t, sm, sess)

	assert.Equal(t, sess.ID, loaded.ID)
	marker, ok := loaded.Marker()
	require.True(t, ok)
	assert.Equal(t, "QpwL5tke4Pnpja7X4", marker.Token)
	assert.True(t, marker.IsLoggedIn)
	assert.JSONEq(t, `{"token":"QpwL5tke4Pnpja7X4","isLoggedIn":true}`, loaded.Get(MarkerKey))
}

func TestSessionMalformedMarkerIsIgnored(t *testing.T) {
	sm, _ := newTestManager(t)
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	sess.Set(MarkerKey, "{not json")
	_, ok := sess.Marker()
	assert.False(t, ok)
}

func TestSessionFlashPersistsUntilPopped(t *testing.T) {
	sm, _ := newTestManager(t)
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	sess.AddFlash(FlashMessage{Kind: FlashSuccess, Message: "User deleted successfully"})
	next := roundTrip(t, sm, sess)

	flash := next.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "User deleted successfully", flash.Message)

	after := roundTrip(t, sm, next)
	assert.Nil(t, after.PopFlash())
}

func TestSessionDestroyClearsStore(t *testing.T) {
	sm, mr := newTestManager(t)
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NoError(t, sess.SetMarker(SessionMarker{Token: "t", IsLoggedIn: true}))

	loaded := roundTrip(t, sm, sess)
	require.True(t, mr.Exists("session:"+loaded.ID))

	sm.Destroy(loaded)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), rec, httptest.NewRequest(http.MethodPost, "/", nil), loaded))

	assert.False(t, mr.Exists("session:"+loaded.ID))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestSessionUnknownCookieStartsFresh(t *testing.T) {
	sm, _ := newTestManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: "forged"})

	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, "forged", sess.ID)
}

func TestCSRFRotateInvalidatesPreviousToken(t *testing.T) {
	sm, _ := newTestManager(t)
	csrf := NewCSRFManager("csrfsecret")
	ctx := context.Background()
	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	first, err := csrf.EnsureToken(ctx, sess)
	require.NoError(t, err)
	again, err := csrf.EnsureToken(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, first, again)
	require.NoError(t, csrf.VerifyToken(ctx, sess, first))

	rotated, err := csrf.RotateToken(ctx, sess)
	require.NoError(t, err)
	assert.NotEqual(t, first, rotated)
	assert.ErrorIs(t, csrf.VerifyToken(ctx, sess, first), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, csrf.VerifyToken(ctx, sess, ""), ErrCSRFTokenMissing)
}
