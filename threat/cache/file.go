package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Backend names accepted by configuration
const (
	BackendFile    = "file"
	BackendLevelDB = "leveldb"
	BackendSQLite  = "sqlite"
	BackendRedis   = "redis"
)

const fileSuffix = ".cache"

// FileBackend keeps one <key>.cache file per feed in a directory
type FileBackend struct {
	dir string
}

// NewFileBackend creates the cache directory if needed
func NewFileBackend(dir string) (*FileBackend, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) Name() string { return BackendFile }

// Dir returns the cache directory
func (b *FileBackend) Dir() string { return b.dir }

func (b *FileBackend) path(key string) string {
	return filepath.Join(b.dir, key+fileSuffix)
}

func (b *FileBackend) Read(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(b.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Write goes through a temp file and rename so readers never see a partial record
func (b *FileBackend) Write(_ context.Context, key string, data []byte) error {
	tmp, err := os.CreateTemp(b.dir, key+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, b.path(key)); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (b *FileBackend) entries() ([]string, error) {
	dirEntries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range dirEntries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileSuffix) {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func (b *FileBackend) Count(_ context.Context) (int, error) {
	names, err := b.entries()
	if err != nil {
		return 0, err
	}
	return len(names), nil
}

// Clear removes only *.cache files, leaving anything else in the directory alone
func (b *FileBackend) Clear(_ context.Context) error {
	names, err := b.entries()
	if err != nil {
		return err
	}
	var errs []error
	for _, name := range names {
		if err := os.Remove(filepath.Join(b.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *FileBackend) Close() error { return nil }
