package secrets

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/kevin07696/subscription-tracker/internal/domain/ports"
)

const defaultCacheSize = 128

// CachedSecretManager keeps recently read secrets in an expiring LRU.
// Misses and errors are not cached.
type CachedSecretManager struct {
	next  ports.SecretManagerAdapter
	cache *expirable.LRU[string, *ports.Secret]
}

// NewCachedSecretManager wraps next with a cache of size entries living ttl
func NewCachedSecretManager(next ports.SecretManagerAdapter, size int, ttl time.Duration) *CachedSecretManager {
	if size <= 0 {
		size = defaultCacheSize
	}
	return &CachedSecretManager{
		next:  next,
		cache: expirable.NewLRU[string, *ports.Secret](size, nil, ttl),
	}
}

func (c *CachedSecretManager) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	return c.load(path, func() (*ports.Secret, error) {
		return c.next.GetSecret(ctx, path)
	})
}

func (c *CachedSecretManager) GetSecretVersion(ctx context.Context, path string, version string) (*ports.Secret, error) {
	return c.load(path+"@"+version, func() (*ports.Secret, error) {
		return c.next.GetSecretVersion(ctx, path, version)
	})
}

// Invalidate drops every cached version of path
func (c *CachedSecretManager) Invalidate(path string) {
	for _, key := range c.cache.Keys() {
		if key == path || len(key) > len(path) && key[:len(path)+1] == path+"@" {
			c.cache.Remove(key)
		}
	}
}

func (c *CachedSecretManager) load(key string, fetch func() (*ports.Secret, error)) (*ports.Secret, error) {
	if secret, ok := c.cache.Get(key); ok {
		return secret, nil
	}

	secret, err := fetch()
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, secret)
	return secret, nil
}
