package importer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var ErrOutsideStore = errors.New("path is outside the import directory")

// FileStore keeps uploaded workbooks on local disk until the worker has
// processed them.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Join(os.TempDir(), "qbank-imports")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve import dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create import dir: %w", err)
	}
	return &FileStore{dir: abs}, nil
}

func (s *FileStore) Dir() string { return s.dir }

// Save copies r into a new file and returns its path.
func (s *FileStore) Save(r io.Reader) (string, error) {
	f, err := os.CreateTemp(s.dir, "questions-*.xlsx")
	if err != nil {
		return "", fmt.Errorf("create import file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write import file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close import file: %w", err)
	}
	return f.Name(), nil
}

func (s *FileStore) Open(path string) (io.ReadCloser, error) {
	if err := s.check(path); err != nil {
		return nil, err
	}
	return os.Open(path)
}

func (s *FileStore) Remove(path string) error {
	if err := s.check(path); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Job paths travel through the queue, so they are confined to the store.
func (s *FileStore) check(path string) error {
	rel, err := filepath.Rel(s.dir, filepath.Clean(path))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return ErrOutsideStore
	}
	return nil
}
