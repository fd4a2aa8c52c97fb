package detect

import (
	"context"

	"dhikr/core"
	"dhikr/metrics"

	"go.uber.org/zap"
)

// RuleStore returns the rules registered for an exact domain, in insertion order.
type RuleStore interface {
	FindRules(ctx context.Context, domain string) ([]core.Rule, error)
}

// Classifier maps a (domain, path) pair to the rule that governs it.
type Classifier struct {
	store  RuleStore
	logger *zap.SugaredLogger
}

// NewClassifier creates a classifier over the given rule store
func NewClassifier(store RuleStore, logger *zap.SugaredLogger) *Classifier {
	return &Classifier{store: store, logger: logger}
}

// Match returns the governing rule for domain and path.
//
// Lookup is two-tier. With a path, the first rule whose path pattern equals
// it wins; failing that, the first domain-wide rule applies. Without a path
// only domain-wide rules are eligible. Store errors are logged and reported
// as no match so that callers can still record the event.
func (c *Classifier) Match(ctx context.Context, domain, path string) (*core.Rule, bool) {
	if domain == "" {
		metrics.Classifications.WithLabelValues("unmatched").Inc()
		return nil, false
	}

	rules, err := c.store.FindRules(ctx, domain)
	if err != nil {
		c.logger.Warnw("Rule lookup failed, treating as unclassified", "domain", domain, "error", err)
		metrics.Classifications.WithLabelValues("error").Inc()
		return nil, false
	}

	if rule := selectRule(rules, path); rule != nil {
		metrics.Classifications.WithLabelValues("matched").Inc()
		return rule, true
	}

	metrics.Classifications.WithLabelValues("unmatched").Inc()
	return nil, false
}

// Classify returns only the category key of the governing rule
func (c *Classifier) Classify(ctx context.Context, domain, path string) (string, bool) {
	rule, ok := c.Match(ctx, domain, path)
	if !ok {
		return "", false
	}
	return rule.CategoryKey, true
}

// selectRule returns a copy; rules may be shared with the rule cache.
func selectRule(rules []core.Rule, path string) *core.Rule {
	if path != "" {
		for _, r := range rules {
			if r.PathPattern == path {
				return &r
			}
		}
	}
	for _, r := range rules {
		if !r.HasPath() {
			return &r
		}
	}
	return nil
}
