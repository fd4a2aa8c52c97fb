package storage

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"dhikr/core"

	"gopkg.in/yaml.v3"
)

//go:embed seed_rules.yaml
var defaultSeedRules []byte

// seedFile is the on-disk shape of a rules YAML file
type seedFile struct {
	Rules []core.Rule `yaml:"rules"`
}

// LoadSeedRules decodes rules from YAML and validates each one
func LoadSeedRules(r io.Reader) ([]core.Rule, error) {
	var file seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode seed rules: %w", err)
	}

	for i, rule := range file.Rules {
		if err := ValidateSeedRule(rule); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return file.Rules, nil
}

// LoadSeedRulesFile reads rules from a YAML file
func LoadSeedRulesFile(path string) ([]core.Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()
	return LoadSeedRules(f)
}

// DefaultSeedRules returns the rules shipped with the binary
func DefaultSeedRules() []core.Rule {
	rules, err := LoadSeedRules(bytes.NewReader(defaultSeedRules))
	if err != nil {
		panic(fmt.Sprintf("embedded seed rules are invalid: %v", err))
	}
	return rules
}

// ValidateSeedRule checks required fields and that the reference parses
func ValidateSeedRule(r core.Rule) error {
	if strings.TrimSpace(r.DomainPattern) == "" {
		return fmt.Errorf("%w: domain is required", ErrInvalidSeedRule)
	}
	if strings.TrimSpace(r.CategoryKey) == "" {
		return fmt.Errorf("%w: category is required for %s", ErrInvalidSeedRule, r.DomainPattern)
	}
	if _, err := core.ParseReference(r.Reference); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSeedRule, err)
	}
	return nil
}
