// Package memo provides the caches injected into the decode and filter
// paths. Keys are derived from content, so equal inputs share an entry.
package memo

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/bluele/gcache"
	"github.com/cespare/xxhash/v2"
)

// Store maps content keys to previously computed results. Implementations
// must be safe for concurrent use.
type Store interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// LRU is a size bounded Store whose entries expire after a TTL.
type LRU struct {
	cache gcache.Cache
}

// NewLRU returns an LRU holding at most size entries. A zero ttl disables
// expiry.
func NewLRU(size int, ttl time.Duration) *LRU {
	if size <= 0 {
		size = 1
	}
	b := gcache.New(size).LRU()
	if ttl > 0 {
		b = b.Expiration(ttl)
	}
	return &LRU{cache: b.Build()}
}

func (l *LRU) Get(key string) (any, bool) {
	v, err := l.cache.Get(key)
	if err != nil {
		return nil, false
	}
	return v, true
}

func (l *LRU) Set(key string, value any) {
	// Set only fails for a nil cache or loader errors, neither applies here.
	_ = l.cache.Set(key, value)
}

// Remove drops key and reports whether it was present.
func (l *LRU) Remove(key string) bool { return l.cache.Remove(key) }

// Len counts live entries.
func (l *LRU) Len() int { return l.cache.Len(true) }

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(string) (any, bool) { return nil, false }

func (Nop) Set(string, any) {}

// Key builds a key from a namespace and parts. Parts are length prefixed
// before hashing, so ("ab","c") and ("a","bc") differ.
func Key(namespace string, parts ...string) string {
	d := xxhash.New()
	var n [8]byte
	for _, p := range parts {
		binary.LittleEndian.PutUint64(n[:], uint64(len(p)))
		_, _ = d.Write(n[:])
		_, _ = d.WriteString(p)
	}
	return namespace + ":" + fmt.Sprintf("%016x", d.Sum64())
}

// BytesKey keys raw content such as a fetched feed body.
func BytesKey(namespace string, raw []byte) string {
	return namespace + ":" + fmt.Sprintf("%016x", xxhash.Sum64(raw))
}
