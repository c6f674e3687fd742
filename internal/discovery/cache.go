package discovery

import (
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// suggestionTTL bounds how long a suggested research URL is trusted.
// Misses are cached too, so a flaky model does not get re-asked on every
// request.
const suggestionTTL = 6 * time.Hour

type suggestionCache struct {
	cache *ristretto.Cache[string, string]
}

func newSuggestionCache() (*suggestionCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &suggestionCache{cache: cache}, nil
}

func cacheKey(college, major string) string {
	return strings.ToLower(strings.TrimSpace(college)) + "|" + strings.ToLower(strings.TrimSpace(major))
}

// get returns the cached suggestion. ok distinguishes "cached miss" (ok
// true, empty url) from "never asked" (ok false).
func (c *suggestionCache) get(college, major string) (string, bool) {
	return c.cache.Get(cacheKey(college, major))
}

func (c *suggestionCache) put(college, major, url string) {
	c.cache.SetWithTTL(cacheKey(college, major), url, 1, suggestionTTL)
	c.cache.Wait()
}
