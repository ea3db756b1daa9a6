package imaging

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
)

// RasterCache is a bounded, thread-safe cache of decoded rasters.
//
// Only content-addressed sources (data: URLs) are cached: their bytes cannot
// change, so a hit is always equivalent to re-decoding. Network sources are
// fetched on every request.
//
// Cached rasters are shared and must be treated as read-only.
type RasterCache struct {
	entries *lru.Cache[string, *Raster]
}

// NewRasterCache creates a cache holding at most size rasters.
func NewRasterCache(size int) (*RasterCache, error) {
	if size <= 0 {
		size = 1
	}
	c, err := lru.New[string, *Raster](size)
	if err != nil {
		return nil, err
	}
	return &RasterCache{entries: c}, nil
}

// Get returns the cached raster for key.
func (c *RasterCache) Get(key string) (*Raster, bool) {
	return c.entries.Get(key)
}

// Add stores a raster under key, evicting the least recently used entry when
// the cache is full.
func (c *RasterCache) Add(key string, r *Raster) {
	c.entries.Add(key, r)
}

// Len returns the number of cached rasters.
func (c *RasterCache) Len() int {
	return c.entries.Len()
}

// Purge removes every entry.
func (c *RasterCache) Purge() {
	c.entries.Purge()
}

// cacheKey digests the source so multi-megabyte data URLs are not retained
// twice, and includes the requested size.
func cacheKey(source string, width, height int) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:]) + "@" + strconv.Itoa(width) + "x" + strconv.Itoa(height)
}
