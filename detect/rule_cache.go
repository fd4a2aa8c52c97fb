package detect

import (
	"context"
	"fmt"

	"dhikr/core"
	"dhikr/metrics"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultRuleCacheSize bounds the number of domains kept in memory
const DefaultRuleCacheSize = 1024

// CachedRuleStore memoizes FindRules per domain.
// Rules do not change after seeding, so entries are never invalidated;
// empty results are cached too since most visited domains have no rule.
type CachedRuleStore struct {
	store RuleStore
	cache *lru.Cache[string, []core.Rule]
}

// NewCachedRuleStore wraps store with an LRU cache of the given size
func NewCachedRuleStore(store RuleStore, size int) (*CachedRuleStore, error) {
	if size <= 0 {
		size = DefaultRuleCacheSize
	}
	cache, err := lru.New[string, []core.Rule](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create rule cache: %w", err)
	}
	return &CachedRuleStore{store: store, cache: cache}, nil
}

// FindRules serves from the cache, falling through to the store on a miss.
// Errors are not cached.
func (s *CachedRuleStore) FindRules(ctx context.Context, domain string) ([]core.Rule, error) {
	if rules, ok := s.cache.Get(domain); ok {
		metrics.CacheHits.WithLabelValues("rules").Inc()
		return rules, nil
	}
	metrics.CacheMisses.WithLabelValues("rules").Inc()

	rules, err := s.store.FindRules(ctx, domain)
	if err != nil {
		return nil, err
	}
	s.cache.Add(domain, rules)
	return rules, nil
}

// Purge drops every cached entry
func (s *CachedRuleStore) Purge() {
	s.cache.Purge()
}

// Len returns the number of cached domains
func (s *CachedRuleStore) Len() int {
	return s.cache.Len()
}
