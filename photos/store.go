// Package photos stores vehicle condition photos on local disk,
// recompressing every upload to a bounded JPEG before it is kept.
package photos

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxUploadBytes is the largest raw upload accepted before decoding.
const MaxUploadBytes = 10 << 20

// PrefixDeparture, PrefixArrival and PrefixIncident tag stored filenames by origin.
const (
	PrefixDeparture = "S"
	PrefixArrival   = "C"
	PrefixIncident  = "O"
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Store writes photos to Dir. Save never fails a caller: a photo that
// cannot be stored degrades to an empty reference so the trip itself
// still commits.
type Store struct {
	Dir      string
	MaxBytes int64
}

// NewStore creates the storage directory if it does not exist yet.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("photo store: %w", err)
	}
	return &Store{Dir: dir, MaxBytes: MaxUploadBytes}, nil
}

// Save recompresses the upload to a JPEG bounded to 1024x1024 and writes
// it under a generated name. It returns the stored filename, or "" when
// the upload is missing, oversized, unreadable or of a disallowed type.
func (s *Store) Save(fh *multipart.FileHeader, prefix string) string {
	if fh == nil || fh.Filename == "" {
		return ""
	}
	if fh.Size > s.MaxBytes {
		zap.S().Warnw("photo upload rejected, too large", "filename", fh.Filename, "size", fh.Size)
		return ""
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExtensions[ext] {
		zap.S().Warnw("photo upload rejected, disallowed extension", "filename", fh.Filename)
		return ""
	}

	file, err := fh.Open()
	if err != nil {
		zap.S().Errorw("photo upload could not be opened", "filename", fh.Filename, "error", err)
		return ""
	}
	defer file.Close()

	img, err := imaging.Decode(file, imaging.AutoOrientation(true))
	if err != nil {
		zap.S().Errorw("photo upload could not be decoded", "filename", fh.Filename, "error", err)
		return ""
	}
	img = imaging.Fit(img, 1024, 1024, imaging.Lanczos)

	name := fmt.Sprintf("%s_%s_%s.jpg", prefix, time.Now().Format("20060102150405"), uuid.New().String())
	if err := imaging.Save(img, filepath.Join(s.Dir, name), imaging.JPEGQuality(70)); err != nil {
		zap.S().Errorw("photo could not be written", "filename", name, "error", err)
		return ""
	}
	return name
}

// Path resolves a stored filename inside Dir, rejecting anything that
// would escape the storage directory.
func (s *Store) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid photo name %q", name)
	}
	full := filepath.Join(s.Dir, name)
	if _, err := os.Stat(full); err != nil {
		return "", err
	}
	return full, nil
}
