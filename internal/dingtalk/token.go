package dingtalk

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// tokenExpiryMargin is subtracted from expires_in so a token is never used
// right at the edge of its lifetime.
const tokenExpiryMargin = 5 * time.Minute

type refreshFunc func(ctx context.Context) (token string, ttl time.Duration, err error)

// tokenCache holds one access token. Concurrent callers share a single refresh.
type tokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func (c *tokenCache) getOrRefresh(ctx context.Context, now time.Time, refresh refreshFunc) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && now.Before(c.expiresAt) {
		return c.token, nil
	}

	token, ttl, err := refresh(ctx)
	if err != nil {
		c.token = ""
		return "", fmt.Errorf("%w: %w", ErrAuthExpired, err)
	}
	if token == "" {
		c.token = ""
		return "", fmt.Errorf("%w: empty access token", ErrAuthExpired)
	}

	c.token = token
	c.expiresAt = now.Add(ttl - tokenExpiryMargin)
	return token, nil
}

func (c *tokenCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.expiresAt = time.Time{}
}
