package websearch

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// cacheEntry запись кэша результатов внешнего поиска
type cacheEntry struct {
	brand      string
	expiration time.Time
}

// Cache кэш результатов поиска бренда с TTL. Повторные запросы с тем же
// текстом в пределах TTL не расходуют дневной бюджет.
type Cache struct {
	ttl  time.Duration
	mu   sync.RWMutex
	data map[string]cacheEntry
}

// NewCache создает кэш с заданным TTL записей
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:  ttl,
		data: make(map[string]cacheEntry),
	}
}

// Get возвращает закэшированный бренд по запросу
func (c *Cache) Get(query string) (string, bool) {
	key := cacheKey(query)

	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiration) {
		return "", false
	}
	return entry.brand, true
}

// Set сохраняет результат поиска в кэш
func (c *Cache) Set(query, brand string) {
	key := cacheKey(query)

	c.mu.Lock()
	c.data[key] = cacheEntry{
		brand:      brand,
		expiration: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
}

func cacheKey(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:])
}
