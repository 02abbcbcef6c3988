// Package learning turns manual recategorizations into merchant rules so the
// next import of the same merchant is categorized automatically.
package learning

import (
	"context"
	"fmt"
	"log"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/rumor-ml/commons.systems/bankimport/internal/normalize"
	"github.com/rumor-ml/commons.systems/bankimport/internal/store"
)

// minPatternRunes is the shortest normalized description worth learning a
// rule from. Shorter patterns match far too broadly as substrings.
const minPatternRunes = 3

// Store is the storage subset the learning service needs.
type Store interface {
	GetTransaction(ctx context.Context, id string) (store.Transaction, error)
	UpdateTransactionCategory(ctx context.Context, id, categoryID string) error
	UpsertRule(ctx context.Context, rule store.Rule) error
}

// Service applies manual category corrections and learns from them.
type Service struct {
	store Store
}

// NewService creates a learning service.
func NewService(s Store) *Service {
	return &Service{store: s}
}

// Recategorize moves a transaction to a new category and upserts a CONTAINS
// rule for its normalized description. The category update is the operation;
// the rule upsert is best effort and never fails the call.
func (s *Service) Recategorize(ctx context.Context, userID, transactionID, categoryID string) error {
	txn, err := s.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("failed to load transaction %s: %w", transactionID, err)
	}
	if txn.UserID != userID {
		// Same answer as a missing row so transaction IDs of other users
		// cannot be probed.
		return store.ErrNotFound
	}

	if err := s.store.UpdateTransactionCategory(ctx, transactionID, categoryID); err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}

	pattern := normalize.NormalizeDescription(txn.Description)
	if utf8.RuneCountInString(pattern) < minPatternRunes {
		return nil
	}

	rule := store.Rule{
		ID:         uuid.New().String(),
		UserID:     userID,
		Pattern:    pattern,
		MatchType:  store.MatchContains,
		CategoryID: categoryID,
	}
	if err := s.store.UpsertRule(ctx, rule); err != nil {
		log.Printf("WARNING: failed to learn rule %q for user %s: %v", pattern, userID, err)
	}
	return nil
}
