package cache_fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/tagship/tagship/internal/domain"
)

// BlobCache is a filesystem key/value store for build artifacts.
// Payload and metadata live in separate files under one directory,
// both written atomically so a torn write reads as a miss.
type BlobCache struct {
	dir string
}

func New(dir string) *BlobCache { return &BlobCache{dir: dir} }

// Fingerprint derives the cache key from dependency-lock content.
// Identical lock bytes always yield the identical key.
func (c *BlobCache) Fingerprint(lock []byte) domain.CacheKey {
	return domain.CacheKey(fmt.Sprintf("%016x", xxhash.Sum64(lock)))
}

type metaDTO struct {
	Key   string   `json:"key"`
	Paths []string `json:"paths"`
}

// Lookup never fails: any unreadable or malformed entry is a miss.
func (c *BlobCache) Lookup(_ context.Context, key domain.CacheKey) (domain.CacheEntry, bool) {
	mb, err := os.ReadFile(c.metaPath(key))
	if err != nil {
		return domain.CacheEntry{}, false
	}

	var m metaDTO
	if err := json.Unmarshal(mb, &m); err != nil || m.Key != string(key) {
		return domain.CacheEntry{}, false
	}

	payload, err := os.ReadFile(c.payloadPath(key))
	if err != nil {
		return domain.CacheEntry{}, false
	}

	return domain.CacheEntry{Key: key, Paths: m.Paths, Payload: payload}, true
}

// Store overwrites any existing entry at the same key.
func (c *BlobCache) Store(_ context.Context, e domain.CacheEntry) error {
	if c.dir == "" {
		return &domain.CacheError{Op: "store", Key: e.Key, Err: os.ErrInvalid}
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return &domain.CacheError{Op: "store", Key: e.Key, Err: err}
	}

	if err := writeAtomic(c.payloadPath(e.Key), e.Payload); err != nil {
		return &domain.CacheError{Op: "store", Key: e.Key, Err: err}
	}

	mb, err := json.Marshal(metaDTO{Key: string(e.Key), Paths: e.Paths})
	if err != nil {
		return &domain.CacheError{Op: "store", Key: e.Key, Err: err}
	}
	if err := writeAtomic(c.metaPath(e.Key), mb); err != nil {
		return &domain.CacheError{Op: "store", Key: e.Key, Err: err}
	}

	return nil
}

func (c *BlobCache) metaPath(key domain.CacheKey) string {
	return filepath.Join(c.dir, string(key)+".json")
}

func (c *BlobCache) payloadPath(key domain.CacheKey) string {
	return filepath.Join(c.dir, string(key)+".bin")
}

func writeAtomic(path string, b []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}
