// Package rules resolves transaction descriptions to categories through a
// tiered rule cascade: user rules, then global rules, then keyword matching
// against the user's own category names.
package rules

import (
	"context"
	"sort"
	"strings"

	"github.com/rumor-ml/commons.systems/bankimport/internal/normalize"
	"github.com/rumor-ml/commons.systems/bankimport/internal/store"
)

// Source identifies which tier of the cascade produced a guess.
type Source string

const (
	SourceUserRule     Source = "USER_RULE"
	SourceGlobalMatch  Source = "GLOBAL_MATCH"
	SourceKeywordMatch Source = "KEYWORD_MATCH"
	SourceUnknown      Source = "UNKNOWN"
)

// Guess is the outcome of a categorization attempt. CategoryID is empty when
// no tier matched; callers must treat that as "leave uncategorized", never
// force a fallback.
type Guess struct {
	CategoryID string
	Source     Source
}

// RuleSource is the read-only storage surface the engine consumes.
type RuleSource interface {
	ListRules(ctx context.Context, userID string) ([]store.Rule, error)
	ListGlobalRules(ctx context.Context) ([]store.Rule, error)
	ListCategories(ctx context.Context, userID string, txnType store.TransactionType) ([]store.Category, error)
}

// tier attempts one matching strategy. It returns an empty category ID when
// the strategy has no opinion; the engine then moves to the next tier.
type tier func(ctx context.Context, e *Engine, userID, desc string, txnType store.TransactionType) (string, Source, error)

// Engine evaluates the cascade strictly in order, first match wins. Adding a
// tier (say, a merchant-ID lookup) is appending to the list, not new
// branching.
type Engine struct {
	src   RuleSource
	tiers []tier
}

// NewEngine creates a cascade engine over the given rule source.
func NewEngine(src RuleSource) *Engine {
	return &Engine{
		src:   src,
		tiers: []tier{matchUserRules, matchGlobalRules, matchKeywords},
	}
}

// Guess resolves a category for a raw transaction description. The raw
// description is normalized once and the normalized form is the matching key
// for every tier. An empty normalized description short-circuits to UNKNOWN;
// there is nothing to match against.
func (e *Engine) Guess(ctx context.Context, userID, rawDescription string, txnType store.TransactionType) (Guess, error) {
	desc := normalize.NormalizeDescription(rawDescription)
	if desc == "" {
		return Guess{Source: SourceUnknown}, nil
	}

	for _, try := range e.tiers {
		categoryID, source, err := try(ctx, e, userID, desc, txnType)
		if err != nil {
			return Guess{Source: SourceUnknown}, err
		}
		if categoryID != "" {
			return Guess{CategoryID: categoryID, Source: source}, nil
		}
	}
	return Guess{Source: SourceUnknown}, nil
}

// matchUserRules checks the user's learned rules: an EXACT rule equal to the
// normalized description wins first, then any rule whose pattern is a
// substring of it. The substring pass ignores the stored match type, so an
// EXACT rule still matches as a substring when no rule matched exactly.
// Patterns are stored pre-normalized by the learning hook.
func matchUserRules(ctx context.Context, e *Engine, userID, desc string, _ store.TransactionType) (string, Source, error) {
	userRules, err := e.src.ListRules(ctx, userID)
	if err != nil {
		return "", SourceUserRule, err
	}

	for _, r := range userRules {
		if r.MatchType == store.MatchExact && r.Pattern == desc {
			return r.CategoryID, SourceUserRule, nil
		}
	}
	for _, r := range userRules {
		if r.Pattern != "" && strings.Contains(desc, r.Pattern) {
			return r.CategoryID, SourceUserRule, nil
		}
	}
	return "", SourceUserRule, nil
}

// matchGlobalRules checks seeded rules with no owning user. Global patterns
// are not pre-normalized at rest, so they are lower-cased before comparison.
func matchGlobalRules(ctx context.Context, e *Engine, _, desc string, _ store.TransactionType) (string, Source, error) {
	globalRules, err := e.src.ListGlobalRules(ctx)
	if err != nil {
		return "", SourceGlobalMatch, err
	}

	for _, r := range globalRules {
		pattern := strings.ToLower(r.Pattern)
		if pattern != "" && strings.Contains(desc, pattern) {
			return r.CategoryID, SourceGlobalMatch, nil
		}
	}
	return "", SourceGlobalMatch, nil
}

// matchKeywords matches the user's own category names for the transaction
// type against the description. Longest name first, so "Dining Out" beats
// "Dining" when both could match.
func matchKeywords(ctx context.Context, e *Engine, userID, desc string, txnType store.TransactionType) (string, Source, error) {
	categories, err := e.src.ListCategories(ctx, userID, txnType)
	if err != nil {
		return "", SourceKeywordMatch, err
	}

	sorted := make([]store.Category, len(categories))
	copy(sorted, categories)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Name) > len(sorted[j].Name)
	})

	for _, c := range sorted {
		name := strings.ToLower(c.Name)
		if name != "" && strings.Contains(desc, name) {
			return c.ID, SourceKeywordMatch, nil
		}
	}
	return "", SourceKeywordMatch, nil
}
