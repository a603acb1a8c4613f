package servicetest

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/tnqbao/gau-catalog-service/infra"
)

// MemoryCache mirrors infra.RedisClient: values round-trip through JSON.
type MemoryCache struct {
	mu     sync.Mutex
	values map[string][]byte
	Hits   int
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{values: make(map[string][]byte)}
}

func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = data
	return nil
}

func (c *MemoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	data, ok := c.values[key]
	if ok {
		c.Hits++
	}
	c.mu.Unlock()
	if !ok {
		return infra.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (c *MemoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.values, key)
	}
	return nil
}

func (c *MemoryCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.values[key]
	return ok
}

// Logger discards everything.
func Logger() *infra.LoggerClient {
	return infra.NewLoggerClient(slog.DiscardHandler)
}
