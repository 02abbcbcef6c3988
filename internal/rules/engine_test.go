package rules

import (
	"context"
	"errors"
	"testing"

	"github.com/rumor-ml/commons.systems/bankimport/internal/store"
)

type fakeSource struct {
	userRules   []store.Rule
	globalRules []store.Rule
	categories  []store.Category

	userErr     error
	globalErr   error
	categoryErr error
}

func (f *fakeSource) ListRules(ctx context.Context, userID string) ([]store.Rule, error) {
	return f.userRules, f.userErr
}

func (f *fakeSource) ListGlobalRules(ctx context.Context) ([]store.Rule, error) {
	return f.globalRules, f.globalErr
}

func (f *fakeSource) ListCategories(ctx context.Context, userID string, txnType store.TransactionType) ([]store.Category, error) {
	return f.categories, f.categoryErr
}

func TestGuess_UserRuleBeatsKeywordMatch(t *testing.T) {
	src := &fakeSource{
		userRules: []store.Rule{
			{Pattern: "supermercado", MatchType: store.MatchContains, CategoryID: "cat-rule"},
		},
		categories: []store.Category{
			{ID: "cat-name", Name: "Supermercado"},
		},
	}
	engine := NewEngine(src)

	guess, err := engine.Guess(context.Background(), "u1", "SUPERMERCADO 1234", store.TypeExpense)
	if err != nil {
		t.Fatalf("Guess() error = %v", err)
	}
	if guess.CategoryID != "cat-rule" || guess.Source != SourceUserRule {
		t.Errorf("Guess() = %+v, want cat-rule via USER_RULE", guess)
	}
}

func TestGuess_ExactUserRuleBeatsContains(t *testing.T) {
	src := &fakeSource{
		userRules: []store.Rule{
			{Pattern: "pago", MatchType: store.MatchContains, CategoryID: "cat-contains"},
			{Pattern: "pago tarjeta", MatchType: store.MatchExact, CategoryID: "cat-exact"},
		},
	}
	engine := NewEngine(src)

	guess, err := engine.Guess(context.Background(), "u1", "PAGO TARJETA 9981", store.TypeExpense)
	if err != nil {
		t.Fatalf("Guess() error = %v", err)
	}
	if guess.CategoryID != "cat-exact" {
		t.Errorf("Guess().CategoryID = %q, want cat-exact", guess.CategoryID)
	}
}

func TestGuess_ExactRuleMatchesAsSubstring(t *testing.T) {
	// The substring pass ignores the stored match type: an EXACT rule whose
	// pattern is a proper substring of the description still matches at the
	// user tier instead of falling through to lower tiers.
	src := &fakeSource{
		userRules: []store.Rule{
			{Pattern: "supermercado", MatchType: store.MatchExact, CategoryID: "cat-x"},
		},
	}
	engine := NewEngine(src)

	guess, err := engine.Guess(context.Background(), "u1", "SUPERMERCADO MADRID", store.TypeExpense)
	if err != nil {
		t.Fatalf("Guess() error = %v", err)
	}
	if guess.CategoryID != "cat-x" || guess.Source != SourceUserRule {
		t.Errorf("Guess() = %+v, want cat-x via USER_RULE", guess)
	}
}

func TestGuess_GlobalRulesLowercasedBeforeCompare(t *testing.T) {
	src := &fakeSource{
		globalRules: []store.Rule{
			{Pattern: "Mercadona", MatchType: store.MatchContains, CategoryID: "cat-groceries"},
		},
	}
	engine := NewEngine(src)

	guess, err := engine.Guess(context.Background(), "u1", "MERCADONA VALENCIA 0441", store.TypeExpense)
	if err != nil {
		t.Fatalf("Guess() error = %v", err)
	}
	if guess.CategoryID != "cat-groceries" || guess.Source != SourceGlobalMatch {
		t.Errorf("Guess() = %+v, want cat-groceries via GLOBAL_MATCH", guess)
	}
}

func TestGuess_KeywordPrefersLongerName(t *testing.T) {
	src := &fakeSource{
		categories: []store.Category{
			{ID: "cat-dining", Name: "Dining"},
			{ID: "cat-dining-out", Name: "Dining Out"},
		},
	}
	engine := NewEngine(src)

	guess, err := engine.Guess(context.Background(), "u1", "DINING OUT PLAZA MAYOR", store.TypeExpense)
	if err != nil {
		t.Fatalf("Guess() error = %v", err)
	}
	if guess.CategoryID != "cat-dining-out" || guess.Source != SourceKeywordMatch {
		t.Errorf("Guess() = %+v, want cat-dining-out via KEYWORD_MATCH", guess)
	}
}

func TestGuess_EmptyDescriptionShortCircuits(t *testing.T) {
	src := &fakeSource{userErr: errors.New("should not be called")}
	engine := NewEngine(src)

	for _, raw := range []string{"", "   ", "4521 0098"} {
		guess, err := engine.Guess(context.Background(), "u1", raw, store.TypeExpense)
		if err != nil {
			t.Fatalf("Guess(%q) error = %v", raw, err)
		}
		if guess.Source != SourceUnknown || guess.CategoryID != "" {
			t.Errorf("Guess(%q) = %+v, want UNKNOWN", raw, guess)
		}
	}
}

func TestGuess_NoMatchIsUnknown(t *testing.T) {
	engine := NewEngine(&fakeSource{})

	guess, err := engine.Guess(context.Background(), "u1", "SOMETHING NEW", store.TypeExpense)
	if err != nil {
		t.Fatalf("Guess() error = %v", err)
	}
	if guess.Source != SourceUnknown || guess.CategoryID != "" {
		t.Errorf("Guess() = %+v, want UNKNOWN with empty category", guess)
	}
}

func TestGuess_PropagatesSourceErrors(t *testing.T) {
	wantErr := errors.New("store down")
	engine := NewEngine(&fakeSource{userErr: wantErr})

	_, err := engine.Guess(context.Background(), "u1", "MERCADONA", store.TypeExpense)
	if !errors.Is(err, wantErr) {
		t.Errorf("Guess() error = %v, want %v", err, wantErr)
	}
}

func TestLoadSeed(t *testing.T) {
	seed, err := EmbeddedSeed()
	if err != nil {
		t.Fatalf("EmbeddedSeed() error = %v", err)
	}
	if len(seed) == 0 {
		t.Fatal("EmbeddedSeed() returned no rules")
	}

	if _, err := LoadSeed([]byte("rules:\n  - pattern: \"\"\n    match_type: CONTAINS\n    category: X\n    type: expense\n")); err == nil {
		t.Error("LoadSeed() expected error for empty pattern")
	}
	if _, err := LoadSeed([]byte("rules:\n  - pattern: x\n    match_type: FUZZY\n    category: X\n    type: expense\n")); err == nil {
		t.Error("LoadSeed() expected error for invalid match_type")
	}
}
