package service

import (
	"bytes"
	"context"
	"mime/multipart"
	"path/filepath"
	"testing"
	"time"

	"github.com/postscript-blog/postscript/database"
	"github.com/postscript-blog/postscript/web/cache"
	"github.com/postscript-blog/postscript/web/entity"

	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func setup(t *testing.T) string {
	t.Helper()
	uploads := filepath.Join(t.TempDir(), "uploads")
	t.Setenv("POSTSCRIPT_UPLOAD_DIR", uploads)
	require.NoError(t, database.InitDB(filepath.Join(t.TempDir(), "test.db")))
	t.Cleanup(func() { _ = database.CloseDB() })
	return uploads
}

func signup(t *testing.T, username string) *entity.Principal {
	t.Helper()
	users := UserService{}
	u, err := users.Signup(username, username+"@example.com", "secret1")
	require.NoError(t, err)
	return &entity.Principal{UserId: u.Id, Username: u.Username}
}

func createPost(t *testing.T, p *entity.Principal, title string) string {
	t.Helper()
	posts := PostService{}
	post, err := posts.Create(p, PostInput{Title: title, Content: "Some content long enough.", Tags: "go, web"})
	require.NoError(t, err)
	return post.Slug
}

// fileHeader builds a multipart file header the way the HTTP layer would receive it.
func fileHeader(t *testing.T, field, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File[field][0]
}

// signedIn stores a fake session for p the way the session package tracks logins.
func signedIn(t *testing.T, p *entity.Principal, sessionId string) {
	t.Helper()
	require.NoError(t, cache.Set(ctx, cache.KeySessionPrefix+sessionId, "values", time.Hour))
	require.NoError(t, cache.TrackUserSession(ctx, p.UserId, sessionId, time.Hour))
}

func setupRedis(t *testing.T) {
	t.Helper()
	require.NoError(t, cache.InitRedis(""))
	t.Cleanup(func() { _ = cache.Close() })
}
