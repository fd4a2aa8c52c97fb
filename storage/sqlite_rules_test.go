package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"dhikr/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSQLiteRuleStorage_SeedAndFind(t *testing.T) {
	sqlite := setupTestSQLite(t)
	store := NewSQLiteRuleStorage(sqlite, zap.NewNop().Sugar())
	ctx := context.Background()

	n, err := store.SeedRules(ctx, DefaultSeedRules())
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	rules, err := store.FindRules(ctx, "youtube.com")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "/shorts", rules[0].PathPattern)
	assert.Equal(t, "waste", rules[0].CategoryKey)
	assert.Equal(t, "103:1-3", rules[0].Reference)
	assert.NotZero(t, rules[0].ID)

	rules, err = store.FindRules(ctx, "x.com")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.False(t, rules[0].HasPath(), "NULL path_pattern maps to an empty path")

	rules, err = store.FindRules(ctx, "unknown.org")
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestSQLiteRuleStorage_SeedIsOnce(t *testing.T) {
	sqlite := setupTestSQLite(t)
	store := NewSQLiteRuleStorage(sqlite, zap.NewNop().Sugar())
	ctx := context.Background()

	_, err := store.SeedRules(ctx, DefaultSeedRules())
	require.NoError(t, err)

	n, err := store.SeedRules(ctx, []core.Rule{{DomainPattern: "a.com", CategoryKey: "x", Reference: "1:1"}})
	require.NoError(t, err)
	assert.Zero(t, n)

	count, err := store.CountRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, count)
}

func TestSQLiteRuleStorage_FindRulesKeepsInsertionOrder(t *testing.T) {
	sqlite := setupTestSQLite(t)
	store := NewSQLiteRuleStorage(sqlite, zap.NewNop().Sugar())
	ctx := context.Background()

	_, err := store.SeedRules(ctx, []core.Rule{
		{DomainPattern: "a.com", CategoryKey: "catDefault", Reference: "1:1"},
		{DomainPattern: "a.com", PathPattern: "/x", CategoryKey: "catX", Reference: "1:2"},
	})
	require.NoError(t, err)

	rules, err := store.FindRules(ctx, "a.com")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "catDefault", rules[0].CategoryKey)
	assert.Equal(t, "catX", rules[1].CategoryKey)
}

func TestSQLiteRuleStorage_SeedRejectsInvalidRule(t *testing.T) {
	sqlite := setupTestSQLite(t)
	store := NewSQLiteRuleStorage(sqlite, zap.NewNop().Sugar())

	_, err := store.SeedRules(context.Background(), []core.Rule{{DomainPattern: "a.com", CategoryKey: "x", Reference: "abc"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidSeedRule))
}

func TestLoadSeedRules(t *testing.T) {
	yamlDoc := `
rules:
  - domain: news.example
    path: /live
    category: distraction
    reference: "2:286"
  - domain: news.example
    category: waste
    reference: "103:1-3"
`
	rules, err := LoadSeedRules(strings.NewReader(yamlDoc))
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "/live", rules[0].PathPattern)
	assert.Equal(t, "", rules[1].PathPattern)
}

func TestLoadSeedRules_Invalid(t *testing.T) {
	tests := map[string]string{
		"missing domain":  "rules:\n  - category: waste\n    reference: \"1:1\"\n",
		"missing category": "rules:\n  - domain: a.com\n    reference: \"1:1\"\n",
		"bad reference":   "rules:\n  - domain: a.com\n    category: waste\n    reference: \"one\"\n",
		"unknown field":   "rules:\n  - domain: a.com\n    category: waste\n    reference: \"1:1\"\n    weight: 3\n",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadSeedRules(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestDefaultSeedRules(t *testing.T) {
	rules := DefaultSeedRules()
	require.Len(t, rules, 8)

	domains := make(map[string]bool)
	for _, r := range rules {
		domains[r.DomainPattern] = true
		assert.NoError(t, ValidateSeedRule(r))
	}
	for _, d := range []string{"youtube.com", "tiktok.com", "instagram.com", "twitter.com", "x.com", "facebook.com", "reddit.com", "twitch.tv"} {
		assert.True(t, domains[d], "missing default rule for %s", d)
	}
}
