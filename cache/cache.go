// cache/cache.go
package cache

import (
	"context"
	"sync"
	"time"

	"riskguard/logs"
	"riskguard/rules"
	"riskguard/store"
)

// snapshot is one immutable view of rules plus account metadata. Readers
// always see a complete snapshot; Refresh swaps the pointer, never mutates
// fields in place.
type snapshot struct {
	rules     map[string]rules.Rule
	accounts  map[int64]store.AccountMetadata
	fetchedAt time.Time
}

// Cache holds per-group risk rules and per-account metadata, refreshed on
// a cadence independent of the evaluation loop. Stale data is preferred
// over blocking: a failed refresh keeps the previous snapshot.
type Cache struct {
	mu        sync.RWMutex
	current   *snapshot
	src       store.AccountStore
	rulesFile string
}

// New creates a cache backed by the given metadata store and rules file.
// The cache starts empty; call Refresh before the first evaluation cycle.
func New(src store.AccountStore, rulesFile string) *Cache {
	return &Cache{
		current: &snapshot{
			rules:    make(map[string]rules.Rule),
			accounts: make(map[int64]store.AccountMetadata),
		},
		src:       src,
		rulesFile: rulesFile,
	}
}

// Refresh pulls the full active-account list and reloads the rules file,
// then swaps in a new snapshot. On account-fetch failure the previous
// snapshot is retained unchanged and the error is returned for logging
// only; callers never treat it as fatal.
func (c *Cache) Refresh(ctx context.Context) error {
	accounts, err := c.src.FetchActiveAccounts(ctx)
	if err != nil {
		return err
	}

	accountMap := make(map[int64]store.AccountMetadata, len(accounts))
	for _, a := range accounts {
		if a.Login == 0 {
			continue
		}
		accountMap[a.Login] = a
	}

	// Rules hot-reload is best-effort: a broken rules file keeps the
	// previously loaded set.
	ruleMap, err := rules.LoadFile(c.rulesFile)
	if err != nil {
		logs.Warnf("[Cache] Rules reload failed, keeping previous rule set: %v", err)
		c.mu.RLock()
		ruleMap = c.current.rules
		c.mu.RUnlock()
	}

	next := &snapshot{
		rules:     ruleMap,
		accounts:  accountMap,
		fetchedAt: time.Now(),
	}

	c.mu.Lock()
	c.current = next
	c.mu.Unlock()

	logs.Debugf("[Cache] Refreshed: %d accounts, %d rule groups", len(accountMap), len(ruleMap))
	return nil
}

// RuleFor returns the rule for a group, if one is loaded.
func (c *Cache) RuleFor(group string) (rules.Rule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.current.rules[group]
	return r, ok
}

// MetadataFor returns the cached metadata for a login, if present.
func (c *Cache) MetadataFor(login int64) (store.AccountMetadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.current.accounts[login]
	return m, ok
}

// Logins returns every cached login.
func (c *Cache) Logins() []int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]int64, 0, len(c.current.accounts))
	for login := range c.current.accounts {
		out = append(out, login)
	}
	return out
}

// Stale reports whether the snapshot is older than maxAge. A never-refreshed
// cache is always stale.
func (c *Cache) Stale(maxAge time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current.fetchedAt.IsZero() {
		return true
	}
	return time.Since(c.current.fetchedAt) > maxAge
}

// AccountCount reports the number of cached accounts.
func (c *Cache) AccountCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.current.accounts)
}
