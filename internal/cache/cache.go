// Package cache stores toolchain outcomes on disk, keyed by the code and
// the toolchain settings that produced them.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"moveforge/internal/toolchain"
)

// schemaVersion must be bumped whenever entry or Outcome changes shape.
const schemaVersion uint16 = 1

var errCacheSchema = errors.New("cache entry has a different schema")

// Key addresses one cache entry.
type Key [sha256.Size]byte

func (k Key) String() string { return hex.EncodeToString(k[:]) }

// KeyFor hashes the fingerprint and the code together with the schema.
func KeyFor(fingerprint, code string) Key {
	h := sha256.New()
	var ver [2]byte
	binary.BigEndian.PutUint16(ver[:], schemaVersion)
	h.Write(ver[:])
	h.Write([]byte(fingerprint))
	h.Write([]byte{0})
	h.Write([]byte(code))
	var k Key
	copy(k[:], h.Sum(nil))
	return k
}

type entry struct {
	Schema  uint16            `msgpack:"schema"`
	Stored  time.Time         `msgpack:"stored"`
	Outcome toolchain.Outcome `msgpack:"outcome"`
}

// Cache is a directory of msgpack-encoded outcomes. A nil *Cache is a
// valid, always-missing cache. Safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// Open creates the cache directory. An empty dir selects
// $XDG_CACHE_HOME/moveforge (or ~/.cache/moveforge).
func Open(dir string) (*Cache, error) {
	if dir == "" {
		base := os.Getenv("XDG_CACHE_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to locate cache dir: %w", err)
			}
			base = filepath.Join(home, ".cache")
		}
		dir = filepath.Join(base, "moveforge")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache directory, empty for a nil cache.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *Cache) pathFor(key Key) string {
	hexKey := key.String()
	// двухсимвольные подкаталоги, чтобы не держать всё в одном
	return filepath.Join(c.dir, "outcomes", hexKey[:2], hexKey+".mp")
}

// Put stores outcome under key, replacing any previous entry atomically.
func (c *Cache) Put(key Key, outcome toolchain.Outcome) error {
	if c == nil {
		return nil
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
	tmp := f.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmp)
		}
	}()

	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(&entry{Schema: schemaVersion, Stored: time.Now().UTC(), Outcome: outcome}); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	if err := os.Rename(tmp, p); err != nil {
		return err
	}
	committed = true
	return nil
}

// Get loads the outcome stored under key. A missing entry and an entry
// written by another schema are both misses.
func (c *Cache) Get(key Key) (toolchain.Outcome, bool, error) {
	if c == nil {
		return toolchain.Outcome{}, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	out, err := c.read(c.pathFor(key))
	switch {
	case errors.Is(err, os.ErrNotExist), errors.Is(err, errCacheSchema):
		return toolchain.Outcome{}, false, nil
	case err != nil:
		return toolchain.Outcome{}, false, err
	}
	return out, true, nil
}

func (c *Cache) read(path string) (toolchain.Outcome, error) {
	f, err := os.Open(path)
	if err != nil {
		return toolchain.Outcome{}, err
	}
	defer f.Close()

	var e entry
	if err := msgpack.NewDecoder(f).Decode(&e); err != nil {
		return toolchain.Outcome{}, fmt.Errorf("decode cache entry %s: %w", filepath.Base(path), err)
	}
	if e.Schema != schemaVersion {
		return toolchain.Outcome{}, errCacheSchema
	}
	return e.Outcome, nil
}

// Clear removes every entry.
func (c *Cache) Clear() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	// переименуем каталог и удалим
	root := filepath.Join(c.dir, "outcomes")
	old := root + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(root, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return os.RemoveAll(old)
}

// Compiler is the part of *toolchain.Toolchain the cache wraps.
type Compiler interface {
	Compile(ctx context.Context, code string) (toolchain.Outcome, error)
	Fingerprint() string
}

// Lookup is the answer of Through.
type Lookup struct {
	Outcome toolchain.Outcome
	Hit     bool
	// CacheErr reports a failed cache read or write. It never fails the
	// compile itself.
	CacheErr error
}

// Through answers from the cache when possible and otherwise compiles and
// stores the outcome. Transient outcomes are never stored.
func (c *Cache) Through(ctx context.Context, compiler Compiler, code string) (Lookup, error) {
	var res Lookup
	key := KeyFor(compiler.Fingerprint(), code)
	if cached, ok, err := c.Get(key); err != nil {
		res.CacheErr = err
	} else if ok {
		res.Outcome, res.Hit = cached, true
		return res, nil
	}

	out, err := compiler.Compile(ctx, code)
	if err != nil {
		return res, err
	}
	res.Outcome = out
	if out.Transient {
		return res, nil
	}
	if err := c.Put(key, out); err != nil && res.CacheErr == nil {
		res.CacheErr = err
	}
	return res, nil
}
