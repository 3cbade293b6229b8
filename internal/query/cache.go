package query

import (
	"fmt"
	"math"

	"github.com/dgraph-io/ristretto"
)

// resultCache memoizes recent point-query results keyed by rounded
// coordinates and the active squash parameters. A size of zero disables
// caching entirely.
type resultCache struct {
	store *ristretto.Cache
}

func newResultCache(maxCost int64) (*resultCache, error) {
	if maxCost <= 0 {
		return nil, nil
	}
	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxCost * 10,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create result cache: %w", err)
	}
	return &resultCache{store: store}, nil
}

type cacheEntry struct {
	values []float64
	hit    bool
}

func cacheKey(x, y, z float64, squash bool, squashMinElev float64) string {
	round := func(v float64) float64 { return math.Round(v*1e6) / 1e6 }
	return fmt.Sprintf("%v:%v:%v:%v:%v", round(x), round(y), round(z), squash, round(squashMinElev))
}

func (c *resultCache) get(key string) ([]float64, bool, bool) {
	if c == nil {
		return nil, false, false
	}
	v, ok := c.store.Get(key)
	if !ok {
		return nil, false, false
	}
	entry := v.(cacheEntry)
	return entry.values, entry.hit, true
}

// clear discards all memoized results, used when Initialize replaces the
// model set so a reinitialized Query never serves results computed
// against the prior set of models.
func (c *resultCache) clear() {
	if c == nil {
		return
	}
	c.store.Clear()
}

func (c *resultCache) set(key string, values []float64, hit bool) {
	if c == nil {
		return
	}
	cp := append([]float64(nil), values...)
	c.store.Set(key, cacheEntry{values: cp, hit: hit}, int64(len(cp)+1))
	// Set is buffered; wait so the next get for this key can see it.
	c.store.Wait()
}
