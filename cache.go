package stateshift

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Cache is the interface for remembering which sources are already expanded.
// The generator stores the digest of each expanded input under the source path
// and skips the expansion when the digest is unchanged.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// Clear removes all values from the cache.
	Clear(ctx context.Context) error
}

// CacheKey identifies one expansion input.
type CacheKey struct {
	File   string // source file path
	Digest string // hex sha256 of everything the output depends on
}

// NewCacheKey returns the key of file whose output depends on parts.
func NewCacheKey(file string, parts ...[]byte) CacheKey {
	h := sha256.New()
	for _, p := range parts {
		// Length prefix keeps ("ab","c") and ("a","bc") apart.
		fmt.Fprintf(h, "%d:", len(p))
		h.Write(p)
	}
	return CacheKey{File: file, Digest: hex.EncodeToString(h.Sum(nil))}
}

// String returns the string representation of the cache key.
func (k CacheKey) String() string {
	return k.File + ":" + k.Digest
}

// Fresh reports whether c holds exactly this key's digest.
func (k CacheKey) Fresh(ctx context.Context, c Cache) (bool, error) {
	v, err := c.Get(ctx, k.File)
	if err != nil {
		return false, err
	}
	return string(v) == k.Digest, nil
}

// Store records the key's digest in c.
func (k CacheKey) Store(ctx context.Context, c Cache) error {
	return c.Set(ctx, k.File, []byte(k.Digest))
}

// FileCache is a Cache persisted as a single msgpack-encoded file.
// Changes are kept in memory until Flush is called.
type FileCache struct {
	path string

	mu      sync.Mutex
	entries map[string][]byte
	dirty   bool
}

// OpenFileCache loads the cache stored at path. A missing file yields an empty cache.
func OpenFileCache(path string) (*FileCache, error) {
	c := &FileCache{path: path, entries: make(map[string][]byte)}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return c, nil
	case err != nil:
		return nil, fmt.Errorf("read cache %s: %w", path, err)
	}
	if len(data) == 0 {
		return c, nil
	}
	if err := msgpack.Unmarshal(data, &c.entries); err != nil {
		// A corrupt cache only costs a full regeneration.
		c.entries = make(map[string][]byte)
		c.dirty = true
	}
	return c, nil
}

// Path returns the file backing the cache.
func (c *FileCache) Path() string {
	return c.path
}

// Get implements Cache.
func (c *FileCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[key], nil
}

// Set implements Cache.
func (c *FileCache) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	c.dirty = true
	return nil
}

// Delete implements Cache.
func (c *FileCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.dirty = true
	}
	return nil
}

// Clear implements Cache.
func (c *FileCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]byte)
	c.dirty = true
	return nil
}

// Len returns the number of entries.
func (c *FileCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Flush writes pending changes to disk. The file is replaced atomically.
func (c *FileCache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}
	data, err := msgpack.Marshal(c.entries)
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	if err := WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("flush cache: %w", err)
	}
	c.dirty = false
	return nil
}

var _ Cache = (*FileCache)(nil)
