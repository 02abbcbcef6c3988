// Package category manages category creation: per-type caps, duplicate-name
// checks, and color allocation from fixed palettes.
package category

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"

	"github.com/rumor-ml/commons.systems/bankimport/internal/store"
)

// ErrPaletteExhausted signals that every color of the palette is in use.
// Exhaustion is an explicit condition, not a silent fallback color.
var ErrPaletteExhausted = errors.New("no available colors")

// ErrTooManyCategories signals the per-type category cap.
var ErrTooManyCategories = errors.New("category limit reached")

// ErrDuplicateName signals a category with the same name already exists.
var ErrDuplicateName = errors.New("category with this name already exists")

// Color palettes are process-wide constant configuration. Income gets a small
// green-leaning set; expenses get a larger high-separation set.
var (
	IncomeColors = []string{
		"#0d9488", "#86efac", "#22c55e", "#84cc16", "#15803d", "#052e16",
	}

	ExpenseColors = []string{
		"#000000", "#ffffff", "#111827", "#d1d5db",
		"#7f1d1d", "#ef4444", "#fb7185", "#be123c",
		"#c2410c", "#f97316", "#f59e0b", "#fde047", "#a16207",
		"#7c2d12", "#9a3412", "#e0c097", "#fed7aa",
		"#ec4899", "#ff00ff", "#d946ef", "#a21caf",
		"#7e22ce", "#581c87", "#7c3aed", "#c4b5fd",
		"#1e3a8a", "#2563eb", "#60a5fa", "#a5b4fc",
	}
)

const (
	MaxIncomeCategories  = 6
	MaxExpenseCategories = 26
)

// fallbackColor is the fixed color of the auto-created "Imported" category;
// it sits outside the palettes so it never competes with user choices.
const fallbackColor = "#9ca3af"

// fallbackNames are accepted, in order, as an existing catch-all category
// before a new "Imported" one is created.
var fallbackNames = []string{"Uncategorized", "General", "Imported", "Others", "Varios"}

// PickColor returns a random color from the palette that is not in used.
func PickColor(palette []string, used map[string]bool) (string, error) {
	available := make([]string, 0, len(palette))
	for _, c := range palette {
		if !used[c] {
			available = append(available, c)
		}
	}
	if len(available) == 0 {
		return "", ErrPaletteExhausted
	}
	return available[rand.IntN(len(available))], nil
}

// Store is the storage subset the category service needs.
type Store interface {
	ListCategories(ctx context.Context, userID string, txnType store.TransactionType) ([]store.Category, error)
	CreateCategory(ctx context.Context, cat store.Category) error
}

// Service creates categories with validation, caps, and color allocation.
type Service struct {
	store Store
}

// NewService creates a category service.
func NewService(s Store) *Service {
	return &Service{store: s}
}

// Create validates and inserts a new category, allocating an unused palette
// color for its type.
func (s *Service) Create(ctx context.Context, userID, name string, txnType store.TransactionType) (store.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Category{}, fmt.Errorf("category name is required")
	}
	if txnType != store.TypeIncome && txnType != store.TypeExpense {
		return store.Category{}, fmt.Errorf("invalid category type %q", txnType)
	}

	existing, err := s.store.ListCategories(ctx, userID, txnType)
	if err != nil {
		return store.Category{}, fmt.Errorf("failed to list categories: %w", err)
	}

	limit := MaxExpenseCategories
	palette := ExpenseColors
	if txnType == store.TypeIncome {
		limit = MaxIncomeCategories
		palette = IncomeColors
	}
	if len(existing) >= limit {
		return store.Category{}, fmt.Errorf("%w: maximum of %d %s categories", ErrTooManyCategories, limit, txnType)
	}

	used := make(map[string]bool, len(existing))
	for _, c := range existing {
		used[c.Color] = true
		if strings.EqualFold(c.Name, name) {
			return store.Category{}, ErrDuplicateName
		}
	}

	color, err := PickColor(palette, used)
	if err != nil {
		return store.Category{}, err
	}

	cat := store.Category{
		ID:     uuid.New().String(),
		UserID: userID,
		Name:   name,
		Color:  color,
		Type:   txnType,
	}
	if err := s.store.CreateCategory(ctx, cat); err != nil {
		return store.Category{}, fmt.Errorf("failed to create category: %w", err)
	}
	return cat, nil
}

// EnsureFallback returns an existing catch-all category for the type, or
// creates an "Imported" one. Used by the importer when fallback creation is
// enabled for UNKNOWN groups.
func (s *Service) EnsureFallback(ctx context.Context, userID string, txnType store.TransactionType) (store.Category, error) {
	existing, err := s.store.ListCategories(ctx, userID, txnType)
	if err != nil {
		return store.Category{}, fmt.Errorf("failed to list categories: %w", err)
	}

	for _, want := range fallbackNames {
		for _, c := range existing {
			if strings.EqualFold(c.Name, want) {
				return c, nil
			}
		}
	}

	cat := store.Category{
		ID:     uuid.New().String(),
		UserID: userID,
		Name:   "Imported",
		Color:  fallbackColor,
		Type:   txnType,
	}
	if err := s.store.CreateCategory(ctx, cat); err != nil {
		return store.Category{}, fmt.Errorf("failed to create fallback category: %w", err)
	}
	return cat, nil
}
