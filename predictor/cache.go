package predictor

import (
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"

	"obesitycheck/artifacts"
	"obesitycheck/ml"
)

// resultCache remembers results per bundle and record. Keys carry the
// bundle load time, so a reload never serves results of older artifacts.
type resultCache struct {
	entries *lru.Cache[string, Result]
}

func newResultCache(size int) (*resultCache, error) {
	if size <= 0 {
		return nil, nil
	}
	entries, err := lru.New[string, Result](size)
	if err != nil {
		return nil, err
	}
	return &resultCache{entries: entries}, nil
}

func cacheKey(b *artifacts.Bundle, record ml.Record) string {
	return strconv.FormatInt(b.LoadedAt().UnixNano(), 36) + "/" + record.Key()
}

func (c *resultCache) get(key string) (Result, bool) {
	if c == nil {
		return Result{}, false
	}
	return c.entries.Get(key)
}

func (c *resultCache) add(key string, r Result) {
	if c == nil {
		return
	}
	c.entries.Add(key, r)
}

func (c *resultCache) purge() {
	if c == nil {
		return
	}
	c.entries.Purge()
}

func (c *resultCache) len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}
