package mint

import "sync"

// Cache stores responses to POST requests keyed by an idempotency key
// derived from the request body, so a client retrying a mint/melt/swap
// request after a dropped connection gets back the original response
// instead of processing the operation twice.
type Cache struct {
	mu        sync.Mutex
	responses map[string][]byte
}

func NewCache() *Cache {
	return &Cache{responses: make(map[string][]byte)}
}

func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.responses[key]
	return res, ok
}

func (c *Cache) Set(key string, response []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses[key] = response
}
