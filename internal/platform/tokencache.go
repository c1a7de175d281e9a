package platform

import (
	"sync"
	"time"
)

// Token is one cached OAuth access token, expiry tracked in epoch-ms.
type Token struct {
	AccessToken string
	ExpiresAtMS int64
}

// Expired reports whether the token must be refreshed before use.
func (t Token) Expired() bool {
	return t.AccessToken == "" || t.ExpiresAtMS <= time.Now().UnixMilli()
}

// TokenCache is the shared, mutex-guarded token store every Source built by
// one adapter's builder shares. Get refreshes transparently when the cached
// token has expired; concurrent workers serialize on the mutex so only one
// refresh runs at a time.
type TokenCache struct {
	mu    sync.Mutex
	token Token
}

// Get returns the cached token, calling refresh under the lock when the
// cached one is missing or expired.
func (c *TokenCache) Get(refresh func() (Token, error)) (Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.token.Expired() {
		return c.token, nil
	}

	token, err := refresh()
	if err != nil {
		return Token{}, err
	}

	c.token = token

	return token, nil
}
