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
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "maderia_session", time.Hour, false), srv
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	res := rec.Result()
	defer res.Body.Close()
	for _, c := range res.Cookies() {
		if c.Name == "maderia_session" {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestSessionRoundTrip(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Zero(t, sess.UserID())

	sess.SetUserID(42)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)

	// Next request with the cookie restores the user.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	restored, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(42), restored.UserID())
}

func TestSessionCleanCommitWritesNothing(t *testing.T) {
	sm, srv := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	res := rec.Result()
	defer res.Body.Close()
	assert.Empty(t, res.Cookies())
	assert.Empty(t, srv.Keys())
}

func TestSessionDestroyRemovesState(t *testing.T) {
	sm, srv := newTestManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUserID(7)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	cookie := sessionCookie(t, rec)
	require.NotEmpty(t, srv.Keys())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	sess, err = sm.Load(ctx, req)
	require.NoError(t, err)
	sess.Destroy()

	rec = httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	cleared := sessionCookie(t, rec)
	assert.Equal(t, -1, cleared.MaxAge)
	assert.Empty(t, srv.Keys())

	// The stale cookie now resolves to a fresh anonymous session.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	sess, err = sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Zero(t, sess.UserID())
}

func TestSessionExpiresWithTTL(t *testing.T) {
	sm, srv := newTestManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUserID(9)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	cookie := sessionCookie(t, rec)

	srv.FastForward(2 * time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	sess, err = sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Zero(t, sess.UserID())
}
