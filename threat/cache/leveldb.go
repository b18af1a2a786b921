package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const levelDBEntryPrefix = "e:"

// LevelDBBackend stores entries in a goleveldb database under "e:<key>"
type LevelDBBackend struct {
	db *leveldb.DB
}

// NewLevelDBBackend opens (or creates) the database at path
func NewLevelDBBackend(path string) (*LevelDBBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create leveldb parent directory: %w", err)
	}
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb at %s: %w", path, err)
	}
	return &LevelDBBackend{db: db}, nil
}

func (b *LevelDBBackend) Name() string { return BackendLevelDB }

func (b *LevelDBBackend) Read(_ context.Context, key string) ([]byte, error) {
	data, err := b.db.Get([]byte(levelDBEntryPrefix+key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (b *LevelDBBackend) Write(_ context.Context, key string, data []byte) error {
	return b.db.Put([]byte(levelDBEntryPrefix+key), data, nil)
}

func (b *LevelDBBackend) Count(_ context.Context) (int, error) {
	it := b.db.NewIterator(util.BytesPrefix([]byte(levelDBEntryPrefix)), nil)
	defer it.Release()

	n := 0
	for it.Next() {
		n++
	}
	return n, it.Error()
}

func (b *LevelDBBackend) Clear(_ context.Context) error {
	it := b.db.NewIterator(util.BytesPrefix([]byte(levelDBEntryPrefix)), nil)
	batch := new(leveldb.Batch)
	for it.Next() {
		batch.Delete(append([]byte(nil), it.Key()...))
	}
	it.Release()
	if err := it.Error(); err != nil {
		return err
	}
	return b.db.Write(batch, nil)
}

func (b *LevelDBBackend) Close() error {
	return b.db.Close()
}
