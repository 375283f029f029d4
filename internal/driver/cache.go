package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"filament/internal/core"
	"filament/internal/project"
)

// cacheSchema is bumped when the payload layout changes. The lowered
// program inside carries its own core.Schema as well.
const cacheSchema uint16 = 1

// DiskCache keeps lowered programs keyed by the digest of their input.
// It is safe for concurrent use.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

type cachePayload struct {
	Schema     uint16
	CoreSchema uint16
	Key        project.Digest
	Program    []byte
}

// OpenDiskCache opens the cache in dir, or in $XDG_CACHE_HOME/filament
// (falling back to ~/.cache/filament) when dir is empty.
func OpenDiskCache(dir string) (*DiskCache, error) {
	if dir == "" {
		base := os.Getenv("XDG_CACHE_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			base = filepath.Join(home, ".cache")
		}
		dir = filepath.Join(base, "filament")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(key project.Digest) string {
	return filepath.Join(c.dir, "lowered", key.String()+".mp")
}

// Put stores ns under key. The file is replaced atomically.
func (c *DiskCache) Put(key project.Digest, ns *core.Namespace) (err error) {
	if c == nil {
		return nil
	}
	data, err := core.Marshal(ns)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = rmErr
		}
	}()

	payload := cachePayload{Schema: cacheSchema, CoreSchema: core.Schema, Key: key, Program: data}
	if err := msgpack.NewEncoder(f).Encode(&payload); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get loads the program stored under key. A missing entry or one written
// with another schema is a miss, not an error.
func (c *DiskCache) Get(key project.Digest) (*core.Namespace, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var payload cachePayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, false, fmt.Errorf("driver: corrupt cache entry %s: %w", key, err)
	}
	if payload.Schema != cacheSchema || payload.CoreSchema != core.Schema || payload.Key != key {
		return nil, false, nil
	}
	ns, err := core.Unmarshal(payload.Program)
	if err != nil {
		return nil, false, err
	}
	return ns, true, nil
}
