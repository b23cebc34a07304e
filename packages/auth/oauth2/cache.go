package oauth2

import (
	"sync"
)

// TokenCache holds tokens by provider key. Expired tokens stay cached so
// their refresh token can still be used.
type TokenCache struct {
	mu     sync.RWMutex
	tokens map[string]*Token
}

func NewTokenCache() *TokenCache {
	return &TokenCache{
		tokens: make(map[string]*Token),
	}
}

func (c *TokenCache) Get(key string) *Token {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens[key]
}

func (c *TokenCache) Set(key string, token *Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[key] = token
}

func (c *TokenCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, key)
}

// Purge drops expired tokens that cannot be refreshed and reports how many
// remain.
func (c *TokenCache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, token := range c.tokens {
		if token.IsExpired() && token.RefreshToken == "" {
			delete(c.tokens, key)
		}
	}
	return len(c.tokens)
}

// Clear removes all tokens from the cache
func (c *TokenCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = make(map[string]*Token)
}

// GlobalCache is shared by providers built without WithCache.
var GlobalCache = NewTokenCache()
