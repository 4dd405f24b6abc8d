package docpipeline

import (
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// embedCache memoizes embedding calls by content hash so identical chunks
// (common across overlapping windows and re-ingested documents) don't pay
// for a second round trip to the embedding service.
type embedCache struct {
	cache *lru.Cache[string, []float32]
}

func newEmbedCache(size int) *embedCache {
	if size <= 0 {
		size = 10000
	}
	c, _ := lru.New[string, []float32](size)
	return &embedCache{cache: c}
}

func (e *embedCache) get(text string) ([]float32, bool) {
	if e.cache == nil {
		return nil, false
	}
	return e.cache.Get(hashText(text))
}

func (e *embedCache) put(text string, vector []float32) {
	if e.cache == nil {
		return
	}
	e.cache.Add(hashText(text), vector)
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
