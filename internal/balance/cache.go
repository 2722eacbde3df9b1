// Package balance holds the short-lived wallet balance cache shared by a chat session.
package balance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/michaelbrown/ibrl/internal/solana"
)

// DefaultTTL is the freshness window used when none is configured.
const DefaultTTL = 30 * time.Second

// Entry is a cached balance and when it was fetched.
type Entry struct {
	SOL       decimal.Decimal
	FetchedAt time.Time
}

// FetchFunc reads an address's balance in lamports from the network.
type FetchFunc func(ctx context.Context, address string) (uint64, error)

// Cache maps wallet addresses to recently fetched balances.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]Entry
}

// NewCache creates a cache whose entries stay fresh for ttl.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{ttl: ttl, now: time.Now, entries: make(map[string]Entry)}
}

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// SetClock replaces the time source. Used by tests.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Get returns the entry for address if it is still within the freshness window.
func (c *Cache) Get(address string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[address]
	if !ok || c.now().Sub(e.FetchedAt) >= c.ttl {
		return Entry{}, false
	}
	return e, true
}

// Put stores a freshly fetched balance, overwriting any previous entry.
func (c *Cache) Put(address string, sol decimal.Decimal) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := Entry{SOL: sol, FetchedAt: c.now()}
	c.entries[address] = e
	return e
}

// Invalidate drops the entry for address, typically after the wallet sends funds.
func (c *Cache) Invalidate(address string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, address)
}

// Lookup returns the cached balance of address, or fetches and stores a fresh one.
func (c *Cache) Lookup(ctx context.Context, address string, fetch FetchFunc) (Entry, error) {
	if e, ok := c.Get(address); ok {
		return e, nil
	}
	lamports, err := fetch(ctx, address)
	if err != nil {
		return Entry{}, fmt.Errorf("fetching balance of %s: %w", address, err)
	}
	return c.Put(address, solana.ToSOL(lamports)), nil
}
