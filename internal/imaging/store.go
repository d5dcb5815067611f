// Package imaging stores uploaded images and performs the crop and resize
// operations applied before a search.
package imaging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/snappedai/snapsearch/internal/errors"
)

// Store writes uploads into a flat directory with generated names so user
// supplied filenames never reach the filesystem.
type Store struct {
	// Dir is the upload directory, created on first save.
	Dir string
	// MaxSize is the largest accepted upload in bytes.
	MaxSize int64
	// AllowedTypes lists accepted extensions, lowercase with leading dot.
	AllowedTypes []string
}

// NewStore creates an upload store rooted at dir. Extensions are accepted
// with or without the leading dot.
func NewStore(dir string, maxSize int64, allowedTypes []string) *Store {
	if len(allowedTypes) == 0 {
		allowedTypes = []string{"jpg", "jpeg", "png", "gif", "webp"}
	}
	normalized := make([]string, 0, len(allowedTypes))
	for _, t := range allowedTypes {
		normalized = append(normalized, "."+strings.TrimPrefix(strings.ToLower(t), "."))
	}
	return &Store{Dir: dir, MaxSize: maxSize, AllowedTypes: normalized}
}

// ValidateUpload checks the filename extension and declared size before any
// bytes are read.
func (s *Store) ValidateUpload(filename string, size int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !s.allowed(ext) {
		return errors.Newf("unsupported image type %q", ext).
			Component("imaging").
			Category(errors.CategoryValidation).
			Context("filename", filename).
			Build()
	}
	if s.MaxSize > 0 && size > s.MaxSize {
		return errors.Newf("image exceeds maximum size of %d bytes", s.MaxSize).
			Component("imaging").
			Category(errors.CategoryLimit).
			Context("size", size).
			Build()
	}
	return nil
}

// SaveUpload validates and stores the upload, returning the stored path.
// The size limit is also enforced while copying in case the declared size
// was wrong.
func (s *Store) SaveUpload(filename string, size int64, r io.Reader) (string, error) {
	if err := s.ValidateUpload(filename, size); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", errors.New(err).
			Component("imaging").
			Category(errors.CategoryFileIO).
			Context("dir", s.Dir).
			Build()
	}

	ext := strings.ToLower(filepath.Ext(filename))
	name := uuid.NewString() + ext
	path := filepath.Join(s.Dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", errors.New(err).
			Component("imaging").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer dst.Close()

	limit := s.MaxSize
	if limit <= 0 {
		limit = 50 << 20
	}
	written, err := io.Copy(dst, io.LimitReader(r, limit+1))
	if err != nil {
		os.Remove(path)
		return "", errors.New(err).
			Component("imaging").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	if written > limit {
		os.Remove(path)
		return "", errors.Newf("image exceeds maximum size of %d bytes", limit).
			Component("imaging").
			Category(errors.CategoryLimit).
			Build()
	}
	return path, nil
}

// DerivedPath returns a sibling path for an image derived from src, keeping
// the extension. A random component keeps repeated derivations of the same
// source from overwriting each other.
func (s *Store) DerivedPath(src, suffix string) string {
	ext := filepath.Ext(src)
	base := strings.TrimSuffix(filepath.Base(src), ext)
	name := fmt.Sprintf("%s_%s_%s%s", base, suffix, uuid.NewString(), ext)
	return filepath.Join(filepath.Dir(src), name)
}

func (s *Store) allowed(ext string) bool {
	for _, a := range s.AllowedTypes {
		if ext == a {
			return true
		}
	}
	return false
}
