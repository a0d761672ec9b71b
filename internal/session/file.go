package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/scibee/farmwiz/internal/wizard"
)

// FileBackend keeps one JSON file per record under a directory. It suits the
// single-user terminal runner.
type FileBackend struct {
	dir string
}

// NewFileBackend stores records under dir. The directory is created on first write.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir}
}

func (b *FileBackend) path(key string) string {
	return filepath.Join(b.dir, key+".json")
}

func (b *FileBackend) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(b.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, wizard.ErrNotFound
		}
		return nil, fmt.Errorf("reading record file: %w", err)
	}
	return data, nil
}

func (b *FileBackend) Put(_ context.Context, key string, data []byte) error {
	if err := os.MkdirAll(b.dir, 0755); err != nil {
		return fmt.Errorf("creating record directory: %w", err)
	}

	// Records are replaced by rename; readers never see a partial file.
	tmp, err := os.CreateTemp(b.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp record file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing record file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("closing record file: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.path(key)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replacing record file: %w", err)
	}
	return nil
}

func (b *FileBackend) Delete(_ context.Context, key string) error {
	if err := os.Remove(b.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing record file: %w", err)
	}
	return nil
}
