package service

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/postscript-blog/postscript/util/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadSave(t *testing.T) {
	s := UploadService{Dir: t.TempDir()}

	public, err := s.Save(fileHeader(t, "image", "pic.txt", pngHeader))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(public, UploadURLPrefix))
	assert.True(t, strings.HasSuffix(public, ".png"), "extension follows the content, not the name")
	assert.True(t, uploadExists(s, public))

	files, err := s.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{public}, files)

	s.Remove(public)
	assert.False(t, uploadExists(s, public))
}

func TestUploadRejects(t *testing.T) {
	s := UploadService{Dir: t.TempDir()}

	_, err := s.Save(fileHeader(t, "image", "evil.png", []byte("<html><script>alert(1)</script></html>")))
	assert.ErrorIs(t, err, common.ErrValidation)

	big := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, MaxUploadSize)...)
	_, err = s.Save(fileHeader(t, "image", "big.png", big))
	assert.ErrorIs(t, err, common.ErrValidation)

	files, err := s.Files()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestUploadRemoveIgnoresForeignPaths(t *testing.T) {
	dir := t.TempDir()
	outside := filepath.Join(dir, "keep.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))
	s := UploadService{Dir: filepath.Join(dir, "uploads")}

	s.Remove("")
	s.Remove("/static/keep.txt")
	s.Remove("/uploads/../keep.txt")
	assert.FileExists(t, outside)
}

func TestUploadFilesMissingDir(t *testing.T) {
	s := UploadService{Dir: filepath.Join(t.TempDir(), "none")}
	files, err := s.Files()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestCleanOrphans(t *testing.T) {
	uploads := setup(t)
	a := signup(t, "author_a")
	s := UploadService{}

	post, err := (&PostService{}).Create(a, PostInput{
		Title: "With image", Content: "Some content long enough.",
		Image: fileHeader(t, "image", "a.png", pngHeader),
	})
	require.NoError(t, err)
	orphan, err := s.Save(fileHeader(t, "image", "b.png", pngHeader))
	require.NoError(t, err)
	fresh, err := s.Save(fileHeader(t, "image", "c.png", pngHeader))
	require.NoError(t, err)

	old := time.Now().Add(-2 * time.Hour)
	for _, p := range []string{post.Image, orphan} {
		require.NoError(t, os.Chtimes(filepath.Join(uploads, filepath.Base(p)), old, old))
	}

	removed, err := s.CleanOrphans(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.True(t, uploadExists(s, post.Image))
	assert.False(t, uploadExists(s, orphan))
	assert.True(t, uploadExists(s, fresh))
}

func uploadExists(s UploadService, publicPath string) bool {
	file := s.localPath(publicPath)
	if file == "" {
		return false
	}
	_, err := os.Stat(file)
	return err == nil
}
