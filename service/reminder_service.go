package service

import (
	"context"
	"fmt"

	"dhikr/core"

	"go.uber.org/zap"
)

// RuleMatcher returns the rule governing a (domain, path) pair
type RuleMatcher interface {
	Match(ctx context.Context, domain, path string) (*core.Rule, bool)
}

// ContentResolver resolves a verse reference; (nil, nil) means no provider had data
type ContentResolver interface {
	Resolve(ctx context.Context, reference, lang string) (*core.Content, error)
}

// RuleLister returns every stored rule
type RuleLister interface {
	ListRules(ctx context.Context) ([]core.Rule, error)
}

// Reminder is a matched rule together with its resolved verse
type Reminder struct {
	Category  string        `json:"category"`
	Reference string        `json:"reference"`
	Content   *core.Content `json:"content"`
}

// ReminderService picks the reminder for a page and resolves its verse
type ReminderService struct {
	matcher  RuleMatcher
	resolver ContentResolver
	rules    RuleLister
	logger   *zap.SugaredLogger
}

// NewReminderService creates a reminder service. rules may be nil when
// listing is not needed.
func NewReminderService(matcher RuleMatcher, resolver ContentResolver, rules RuleLister, logger *zap.SugaredLogger) *ReminderService {
	if matcher == nil {
		panic("matcher is required")
	}
	if resolver == nil {
		panic("resolver is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &ReminderService{matcher: matcher, resolver: resolver, rules: rules, logger: logger}
}

// GetReminder returns the reminder for domain and path.
//
// ERRORS:
//   - core.ErrRuleNotFound: no rule governs the page
//   - core.ErrInvalidReference: the matched rule carries a malformed reference
//   - core.ErrUpstreamUnavailable: neither content provider returned data
func (s *ReminderService) GetReminder(ctx context.Context, domain, path, lang string) (*Reminder, error) {
	rule, ok := s.matcher.Match(ctx, domain, path)
	if !ok {
		return nil, core.ErrRuleNotFound
	}

	content, err := s.GetVerse(ctx, rule.Reference, lang)
	if err != nil {
		return nil, err
	}

	return &Reminder{
		Category:  rule.CategoryKey,
		Reference: rule.Reference,
		Content:   content,
	}, nil
}

// GetVerse resolves a reference directly, mapping "no data" to core.ErrUpstreamUnavailable
func (s *ReminderService) GetVerse(ctx context.Context, reference, lang string) (*core.Content, error) {
	content, err := s.resolver.Resolve(ctx, reference, lang)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, fmt.Errorf("%w: %s", core.ErrUpstreamUnavailable, reference)
	}
	return content, nil
}

// ListRules returns every rule
func (s *ReminderService) ListRules(ctx context.Context) ([]core.Rule, error) {
	if s.rules == nil {
		return []core.Rule{}, nil
	}
	rules, err := s.rules.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	if rules == nil {
		rules = []core.Rule{}
	}
	return rules, nil
}
