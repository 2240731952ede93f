package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"socialhub/internal/config"
	"socialhub/internal/models"
)

const (
	// PublicUploadPrefix is the URL prefix uploads are served under and the
	// prefix of every stored media path.
	PublicUploadPrefix = "uploads"

	profilePhotoDir = "profil"
	postMediaDir    = "postingan"

	DefaultMaxPhotoBytes = 5 * 1024 * 1024
	DefaultMaxMediaBytes = 10 * 1024 * 1024
)

var allowedPhotoMIME = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

var safeExt = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// UploadInput is a file received from a multipart form.
type UploadInput struct {
	Filename    string
	ContentType string
	Content     []byte
}

// MediaService validates uploads and writes them below the upload directory.
type MediaService struct {
	uploadDir     string
	maxPhotoBytes int64
	maxMediaBytes int64
	now           func() time.Time
	randN         func(n int64) int64
}

func NewMediaService(cfg *config.Config) *MediaService {
	s := &MediaService{
		uploadDir:     PublicUploadPrefix,
		maxPhotoBytes: DefaultMaxPhotoBytes,
		maxMediaBytes: DefaultMaxMediaBytes,
		now:           time.Now,
		randN:         rand.Int64N,
	}
	if cfg != nil {
		if cfg.UploadDir != "" {
			s.uploadDir = cfg.UploadDir
		}
		if cfg.MaxPhotoBytes > 0 {
			s.maxPhotoBytes = cfg.MaxPhotoBytes
		}
		if cfg.MaxMediaBytes > 0 {
			s.maxMediaBytes = cfg.MaxMediaBytes
		}
	}
	return s
}

// UploadDir is the directory served under /uploads.
func (s *MediaService) UploadDir() string { return s.uploadDir }

// SaveProfilePhoto stores a profile photo and returns its relative path.
func (s *MediaService) SaveProfilePhoto(_ context.Context, in UploadInput) (string, error) {
	mime := contentType(in)
	if len(in.Content) == 0 {
		return "", models.NewValidationError("Profile photo is required")
	}
	if !allowedPhotoMIME[mime] {
		return "", models.NewValidationError("Profile photo must be a JPEG, PNG, GIF or WebP image")
	}
	if int64(len(in.Content)) > s.maxPhotoBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxPhotoBytes/(1024*1024)))
	}
	return s.write(profilePhotoDir, in)
}

// SavePostMedia stores an image or video and returns its relative path and kind.
func (s *MediaService) SavePostMedia(_ context.Context, in UploadInput) (string, models.MediaKind, error) {
	mime := contentType(in)
	if len(in.Content) == 0 {
		return "", "", models.NewValidationError("Media file is required")
	}
	if !strings.HasPrefix(mime, "image/") && !strings.HasPrefix(mime, "video/") {
		return "", "", models.NewValidationError("Only image and video files are allowed")
	}
	if int64(len(in.Content)) > s.maxMediaBytes {
		return "", "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxMediaBytes/(1024*1024)))
	}
	rel, err := s.write(postMediaDir, in)
	if err != nil {
		return "", "", err
	}
	return rel, models.MediaKindFromMIME(mime), nil
}

// Discard removes a previously stored upload. Missing files are ignored.
func (s *MediaService) Discard(rel string) {
	abs, ok := s.localPath(rel)
	if !ok {
		return
	}
	_ = os.Remove(abs)
}

func (s *MediaService) write(sub string, in UploadInput) (string, error) {
	name := s.fileName(in.Filename)
	dir := filepath.Join(s.uploadDir, sub)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", models.NewInternalError(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), in.Content, 0o644); err != nil {
		return "", models.NewInternalError(err)
	}
	return path.Join(PublicUploadPrefix, sub, name), nil
}

// fileName is "<unix-ms>-<random><ext>".
func (s *MediaService) fileName(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if !safeExt.MatchString(ext) {
		ext = ""
	}
	return fmt.Sprintf("%d-%d%s", s.now().UnixMilli(), s.randN(1_000_000_000), ext)
}

func (s *MediaService) localPath(rel string) (string, bool) {
	rest, ok := strings.CutPrefix(rel, PublicUploadPrefix+"/")
	if !ok || strings.Contains(rest, "..") {
		return "", false
	}
	return filepath.Join(s.uploadDir, filepath.FromSlash(rest)), true
}

func contentType(in UploadInput) string {
	ct := strings.ToLower(strings.TrimSpace(in.ContentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "" || ct == "application/octet-stream" {
		ct, _, _ = strings.Cut(http.DetectContentType(in.Content), ";")
	}
	return ct
}
