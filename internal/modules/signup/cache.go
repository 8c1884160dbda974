package signup

import (
	"context"
	"strings"
	"sync"
	"time"
)

// DomainCache keeps the normalised allow-list for ttl. Refreshes are not
// coalesced; concurrent callers may each hit the source.
type DomainCache struct {
	source DomainSource
	ttl    time.Duration
	now    func() time.Time

	mu        sync.RWMutex
	domains   map[string]struct{}
	fetchedAt time.Time
}

func NewDomainCache(source DomainSource, ttl time.Duration) *DomainCache {
	return &DomainCache{source: source, ttl: ttl, now: time.Now}
}

// Allowed returns the current set, refreshing it when stale.
func (c *DomainCache) Allowed(ctx context.Context) (map[string]struct{}, error) {
	c.mu.RLock()
	domains, fetchedAt := c.domains, c.fetchedAt
	c.mu.RUnlock()

	if domains != nil && c.now().Sub(fetchedAt) < c.ttl {
		return domains, nil
	}
	return c.Refresh(ctx)
}

// Refresh reloads the set from the source regardless of age.
func (c *DomainCache) Refresh(ctx context.Context) (map[string]struct{}, error) {
	raw, err := c.source.Domains(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(raw))
	for _, d := range raw {
		if d = normalize(d); d != "" {
			set[d] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil, ErrNoDomains
	}

	c.mu.Lock()
	c.domains, c.fetchedAt = set, c.now()
	c.mu.Unlock()
	return set, nil
}

func normalize(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}
