package service

import (
	"errors"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/postscript-blog/postscript/config"
	"github.com/postscript-blog/postscript/database"
	"github.com/postscript-blog/postscript/database/model"
	"github.com/postscript-blog/postscript/logger"
	"github.com/postscript-blog/postscript/util/common"
)

const (
	MaxUploadSize = 5 << 20
	// UploadURLPrefix is where saved files are served from.
	UploadURLPrefix = "/uploads/"
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// UploadService stores images on local disk. Dir defaults to the configured upload folder.
type UploadService struct {
	Dir string
}

func (s *UploadService) dir() string {
	if s.Dir != "" {
		return s.Dir
	}
	return config.GetUploadDir()
}

// Save stores an uploaded image under a random name and returns its public path.
// The type is taken from the file content, not from the client's header.
func (s *UploadService) Save(fh *multipart.FileHeader) (string, error) {
	if fh.Size > MaxUploadSize {
		return "", common.Validation("Image is too large, the limit is %s.", common.FormatBytes(MaxUploadSize))
	}
	src, err := fh.Open()
	if err != nil {
		return "", common.Validation("Could not read the uploaded image.")
	}
	defer src.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", common.Validation("Could not read the uploaded image.")
	}
	ext, ok := allowedImageTypes[http.DetectContentType(head[:n])]
	if !ok {
		return "", common.Validation("Only JPEG, PNG, GIF and WebP images are allowed.")
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", common.Server(err, "rewind upload")
	}

	if err := os.MkdirAll(s.dir(), 0o755); err != nil {
		return "", common.Server(err, "create upload dir")
	}
	name := uuid.New().String() + ext
	dst, err := os.Create(filepath.Join(s.dir(), name))
	if err != nil {
		return "", common.Server(err, "create upload file")
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(src, MaxUploadSize)); err != nil {
		_ = os.Remove(dst.Name())
		return "", common.Server(err, "write upload file")
	}
	return UploadURLPrefix + name, nil
}

// Remove deletes the file behind a public path. Empty paths, foreign paths and missing
// files are ignored.
func (s *UploadService) Remove(publicPath string) {
	file := s.localPath(publicPath)
	if file == "" {
		return
	}
	if err := os.Remove(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warningf("remove upload %s: %v", file, err)
	}
}

func (s *UploadService) localPath(publicPath string) string {
	if !strings.HasPrefix(publicPath, UploadURLPrefix) {
		return ""
	}
	name := path.Base(publicPath)
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return filepath.Join(s.dir(), name)
}

// Files lists the public paths of every stored upload.
func (s *UploadService) Files() ([]string, error) {
	entries, err := os.ReadDir(s.dir())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, UploadURLPrefix+e.Name())
		}
	}
	return files, nil
}

func referencedUploads() (map[string]bool, error) {
	db := database.GetDB()
	var avatars, images []string
	if err := db.Model(&model.User{}).Where("avatar <> ''").Pluck("avatar", &avatars).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Post{}).Where("image <> ''").Pluck("image", &images).Error; err != nil {
		return nil, err
	}
	refs := make(map[string]bool, len(avatars)+len(images))
	for _, p := range append(avatars, images...) {
		refs[p] = true
	}
	return refs, nil
}

// CleanOrphans deletes stored files that no user or post references. Files younger than
// minAge are kept since their post may still be in flight.
func (s *UploadService) CleanOrphans(minAge time.Duration) (int, error) {
	files, err := s.Files()
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, nil
	}
	refs, err := referencedUploads()
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-minAge)
	removed := 0
	for _, f := range files {
		if refs[f] {
			continue
		}
		info, err := os.Stat(s.localPath(f))
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		s.Remove(f)
		removed++
	}
	return removed, nil
}
