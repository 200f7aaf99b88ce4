package cache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func setupRedis(t *testing.T) {
	t.Helper()
	require.NoError(t, InitRedis(""))
	t.Cleanup(func() { _ = Close() })
}

type likeEvent struct {
	Slug  string `json:"slug"`
	Likes int64  `json:"likes"`
}

func TestJSONRoundTrip(t *testing.T) {
	setupRedis(t)
	assert.True(t, IsEmbedded())
	in := likeEvent{Slug: "my-first-post", Likes: 3}
	require.NoError(t, SetJSON(ctx, LikeEventKey(in.Slug), in, TTLLikeEvent))

	var out likeEvent
	require.NoError(t, GetJSON(ctx, LikeEventKey(in.Slug), &out))
	assert.Equal(t, in, out)
}

func TestGetMissingKey(t *testing.T) {
	setupRedis(t)
	var out likeEvent
	assert.ErrorIs(t, GetJSON(ctx, "like-event:nope", &out), ErrMiss)
}

func TestDeletePattern(t *testing.T) {
	setupRedis(t)
	require.NoError(t, Set(ctx, "like-event:a", "1", time.Minute))
	require.NoError(t, Set(ctx, "like-event:b", "1", time.Minute))
	require.NoError(t, Set(ctx, "other", "1", time.Minute))

	require.NoError(t, DeletePattern(ctx, KeyLikeEventPrefix+"*"))
	_, err := Get(ctx, "like-event:a")
	assert.ErrorIs(t, err, ErrMiss)
	v, err := Get(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
}

func TestRedisStoreSaveLoadDelete(t *testing.T) {
	setupRedis(t)
	store := NewRedisStore(GetClient(), []byte("0123456789abcdef0123456789abcdef"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	sess, err := store.New(req, "postscript")
	require.NoError(t, err)
	assert.True(t, sess.IsNew)
	sess.Values["username"] = "alice"
	require.NoError(t, store.Save(req, rec, sess))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(cookies[0])
	loaded, err := store.New(req2, "postscript")
	require.NoError(t, err)
	assert.False(t, loaded.IsNew)
	assert.Equal(t, "alice", loaded.Values["username"])

	loaded.Options.MaxAge = -1
	require.NoError(t, store.Save(req2, httptest.NewRecorder(), loaded))
	_, err = Get(ctx, KeySessionPrefix+loaded.ID)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisStoreRenewIssuesNewId(t *testing.T) {
	setupRedis(t)
	store := NewRedisStore(GetClient(), []byte("0123456789abcdef0123456789abcdef"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	sess, err := store.New(req, "postscript")
	require.NoError(t, err)
	sess.Values["theme"] = "dark"
	require.NoError(t, store.Save(req, rec, sess))
	oldId := sess.ID
	planted := rec.Result().Cookies()[0]

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(planted)
	require.NoError(t, store.Renew(req2, "postscript"))
	renewed, err := store.Get(req2, "postscript")
	require.NoError(t, err)
	assert.Empty(t, renewed.ID)
	assert.Equal(t, "dark", renewed.Values["theme"])

	rec2 := httptest.NewRecorder()
	require.NoError(t, store.Save(req2, rec2, renewed))
	assert.NotEqual(t, oldId, renewed.ID)
	assert.NotEqual(t, planted.Value, rec2.Result().Cookies()[0].Value)

	_, err = Get(ctx, KeySessionPrefix+oldId)
	assert.ErrorIs(t, err, ErrMiss)
	_, err = Get(ctx, KeySessionPrefix+renewed.ID)
	assert.NoError(t, err)
}

func TestRevokeUserSessions(t *testing.T) {
	setupRedis(t)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, Set(ctx, KeySessionPrefix+id, "v", time.Minute))
	}
	require.NoError(t, TrackUserSession(ctx, 1, "a", time.Minute))
	require.NoError(t, TrackUserSession(ctx, 1, "b", time.Minute))
	require.NoError(t, TrackUserSession(ctx, 12, "c", time.Minute))

	require.NoError(t, RevokeUserSessions(ctx, 1))

	for _, key := range []string{KeySessionPrefix + "a", KeySessionPrefix + "b", UserSessionKey(1, "a"), UserSessionKey(1, "b")} {
		_, err := Get(ctx, key)
		assert.ErrorIs(t, err, ErrMiss, key)
	}
	for _, key := range []string{KeySessionPrefix + "c", UserSessionKey(12, "c")} {
		_, err := Get(ctx, key)
		assert.NoError(t, err, key)
	}
	assert.NoError(t, RevokeUserSessions(ctx, 99))
}

func TestRedisStoreRejectsForgedCookie(t *testing.T) {
	setupRedis(t)
	store := NewRedisStore(GetClient(), []byte("0123456789abcdef0123456789abcdef"))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "postscript", Value: "forged"})
	sess, err := store.New(req, "postscript")
	require.NoError(t, err)
	assert.True(t, sess.IsNew)
}

func TestOptions(t *testing.T) {
	opts, err := options("localhost:6380")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6380", opts.Addr)

	opts, err = options("redis://:pw@cache.internal:6379/2")
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6379", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)

	_, err = options("redis://host:6379/notadb")
	assert.Error(t, err)
}

func TestNotInitialized(t *testing.T) {
	require.NoError(t, Close())
	_, err := Get(ctx, "k")
	assert.ErrorIs(t, err, errNotInitialized)
	assert.False(t, IsEmbedded())
}
