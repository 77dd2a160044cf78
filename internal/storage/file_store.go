// Package storage persists uploaded attachments (book PDFs and posters,
// profile photos) on local disk under a single base directory served at the
// /uploads static mount.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileStore saves uploaded files to disk under a base directory. File names
// are generated (uuid + original extension) so concurrent uploads cannot
// collide and client-supplied names never reach the filesystem.
type FileStore struct {
	basePath string
}

// NewFileStore creates the base directory if missing.
func NewFileStore(basePath string) (*FileStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("storage base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// Save writes the reader's content under a freshly generated name and returns
// that name. ext should include the leading dot (".pdf"); anything unusable
// is dropped.
func (f *FileStore) Save(r io.Reader, ext string) (string, error) {
	name := uuid.NewString() + sanitizeExt(ext)
	target := filepath.Join(f.basePath, name)

	out, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		// Leave no partial file behind.
		os.Remove(target)
		return "", fmt.Errorf("write file: %w", err)
	}
	return name, nil
}

// Remove deletes a stored file. Missing files are not an error; callers that
// treat cleanup as best-effort can ignore the returned error entirely.
func (f *FileStore) Remove(name string) error {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." {
		return nil
	}
	err := os.Remove(filepath.Join(f.basePath, name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Exists reports whether a stored file is present on disk.
func (f *FileStore) Exists(name string) bool {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." {
		return false
	}
	_, err := os.Stat(filepath.Join(f.basePath, name))
	return err == nil
}

// Dir returns the base directory, for mounting as a static file route.
func (f *FileStore) Dir() string { return f.basePath }

// sanitizeExt keeps only a plain ".xyz" suffix; path separators and empty
// extensions are rejected.
func sanitizeExt(ext string) string {
	ext = strings.TrimSpace(strings.ToLower(ext))
	if ext == "" || strings.ContainsAny(ext, `/\`) {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if ext == "." {
		return ""
	}
	return ext
}
