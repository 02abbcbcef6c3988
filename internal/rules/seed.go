package rules

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rumor-ml/commons.systems/bankimport/internal/store"
)

//go:embed seed.yaml
var embeddedSeed []byte

// SeedRule is one entry of the shipped global rule set. Category is a name,
// not an ID; the store resolves or creates the matching global category when
// it loads the seed.
type SeedRule struct {
	Pattern   string                `yaml:"pattern"`
	MatchType store.MatchType       `yaml:"match_type"`
	Category  string                `yaml:"category"`
	Type      store.TransactionType `yaml:"type"`
}

type seedFile struct {
	Rules []SeedRule `yaml:"rules"`
}

// LoadSeed parses and validates a YAML rule set.
func LoadSeed(data []byte) ([]SeedRule, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML rules (check syntax, indentation, and field names): %w", err)
	}

	for i, r := range f.Rules {
		if strings.TrimSpace(r.Pattern) == "" {
			return nil, fmt.Errorf("rule %d: pattern cannot be empty", i)
		}
		if r.MatchType != store.MatchExact && r.MatchType != store.MatchContains {
			return nil, fmt.Errorf("rule %d (%s): invalid match_type %q (must be EXACT or CONTAINS)", i, r.Pattern, r.MatchType)
		}
		if strings.TrimSpace(r.Category) == "" {
			return nil, fmt.Errorf("rule %d (%s): category cannot be empty", i, r.Pattern)
		}
		if r.Type != store.TypeIncome && r.Type != store.TypeExpense {
			return nil, fmt.Errorf("rule %d (%s): invalid type %q", i, r.Pattern, r.Type)
		}
	}
	return f.Rules, nil
}

// EmbeddedSeed loads the global rules shipped in the binary.
func EmbeddedSeed() ([]SeedRule, error) {
	seed, err := LoadSeed(embeddedSeed)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded rules (possible binary corruption): %w", err)
	}
	return seed, nil
}
