package batch

import (
	"encoding/binary"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/minio/highwayhash"

	"github.com/phobologic/filemap/internal/ranking"
	"github.com/phobologic/filemap/internal/render"
)

var hashKey = []byte("filemap/batch/cache-key-00000000")

// Key identifies a map by everything that determines it: language, budget,
// whether syntax checks ran and the source bytes.
func Key(language string, budget ranking.Budget, syntax bool, src []byte) (uint64, error) {
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		return 0, fmt.Errorf("creating hash: %w", err)
	}
	var hdr [17]byte
	binary.LittleEndian.PutUint64(hdr[0:], uint64(budget.Unit))
	binary.LittleEndian.PutUint64(hdr[8:], uint64(budget.Max))
	if syntax {
		hdr[16] = 1
	}
	_, _ = h.Write([]byte(language))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(hdr[:])
	_, _ = h.Write(src)
	return h.Sum64(), nil
}

// Cache is a thread-safe LRU of rendered maps keyed by Key. Cached maps are
// shared; callers must not modify them.
type Cache struct {
	maps *lru.Cache[uint64, *render.Map]
}

// NewCache creates a cache holding up to size maps.
func NewCache(size int) (*Cache, error) {
	maps, err := lru.New[uint64, *render.Map](size)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}
	return &Cache{maps: maps}, nil
}

// Get returns the cached map for key.
func (c *Cache) Get(key uint64) (*render.Map, bool) {
	return c.maps.Get(key)
}

// Add stores m under key.
func (c *Cache) Add(key uint64, m *render.Map) {
	c.maps.Add(key, m)
}

// Len returns the number of cached maps.
func (c *Cache) Len() int {
	return c.maps.Len()
}
