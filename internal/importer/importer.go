// Package importer reconciles parsed statement transactions against storage.
// Repeated imports of overlapping exports must not create duplicates, while
// legitimately repeated transactions (same merchant, amount, and day) must all
// be kept; the reconciler gets both by diffing per-group multiplicities
// instead of checking row existence.
package importer

import (
	"context"
	"log"
	"math"

	"github.com/rumor-ml/commons.systems/bankimport/internal/parser"
	"github.com/rumor-ml/commons.systems/bankimport/internal/rules"
	"github.com/rumor-ml/commons.systems/bankimport/internal/store"
)

// Store is the storage subset the reconciler needs: exact counts and inserts.
type Store interface {
	CountTransactions(ctx context.Context, userID, date, description string, amount float64, txnType store.TransactionType) (int, error)
	InsertTransaction(ctx context.Context, txn store.NewTransaction) error
}

// Resolver guesses a category for a transaction description.
type Resolver interface {
	Guess(ctx context.Context, userID, rawDescription string, txnType store.TransactionType) (rules.Guess, error)
}

// FallbackCreator supplies a catch-all category for unresolved groups when
// fallback creation is enabled.
type FallbackCreator interface {
	EnsureFallback(ctx context.Context, userID string, txnType store.TransactionType) (store.Category, error)
}

// Options tune reconciler behavior.
type Options struct {
	// CreateFallbackCategory resolves UNKNOWN groups to an auto-created
	// "Imported" category instead of leaving them uncategorized.
	CreateFallbackCategory bool
}

// Summary reports the outcome of one reconciliation run.
type Summary struct {
	Imported   int
	Duplicates int
}

// Reconciler drives the group/count/insert-deficit algorithm.
type Reconciler struct {
	store    Store
	resolver Resolver
	fallback FallbackCreator
	opts     Options
}

// NewReconciler creates a reconciler. fallback may be nil when
// Options.CreateFallbackCategory is false.
func NewReconciler(s Store, r Resolver, fallback FallbackCreator, opts Options) *Reconciler {
	return &Reconciler{store: s, resolver: r, fallback: fallback, opts: opts}
}

// groupKey is the in-file identity of a transaction group. Amount is signed
// here; the sign split into (type, absolute amount) happens per group.
type groupKey struct {
	date        string
	description string
	amount      float64
}

// Reconcile groups the parsed transactions, compares each group's multiplicity
// against storage, and inserts only the deficit. Groups run sequentially: one
// duplicate-count query and at most one category resolution per group. Every
// failure below the group level is logged and recovered locally; Reconcile
// itself always returns a summary.
func (r *Reconciler) Reconcile(ctx context.Context, userID string, parsed []parser.Transaction) Summary {
	var summary Summary

	// Group while preserving first-seen order for deterministic processing.
	counts := make(map[groupKey]int)
	var order []groupKey
	for _, txn := range parsed {
		key := groupKey{date: txn.Date, description: txn.Description, amount: txn.Amount}
		if counts[key] == 0 {
			order = append(order, key)
		}
		counts[key]++
	}

	for _, key := range order {
		n := counts[key]
		txnType := store.TypeForAmount(key.amount)
		absAmount := math.Abs(key.amount)

		existing, err := r.store.CountTransactions(ctx, userID, key.date, key.description, absAmount, txnType)
		if err != nil {
			// Inserting blind without a duplicate-count baseline risks
			// unbounded duplication, so the whole group is skipped: counted
			// neither as imported nor as duplicate.
			log.Printf("WARNING: skipping group (%s %q %.2f): duplicate count failed: %v",
				key.date, key.description, key.amount, err)
			continue
		}

		toInsert := n - existing
		if toInsert < 0 {
			toInsert = 0
		}
		summary.Duplicates += n - toInsert

		if toInsert == 0 {
			continue
		}

		categoryID := r.resolveCategory(ctx, userID, key.description, txnType)

		for i := 0; i < toInsert; i++ {
			err := r.store.InsertTransaction(ctx, store.NewTransaction{
				UserID:      userID,
				Amount:      absAmount,
				Type:        txnType,
				CategoryID:  categoryID,
				Description: key.description,
				Date:        key.date,
			})
			if err != nil {
				// Best-effort import: the failed row is neither imported nor
				// duplicate, and remaining inserts still run.
				log.Printf("WARNING: failed to insert transaction (%s %q %.2f): %v",
					key.date, key.description, key.amount, err)
				continue
			}
			summary.Imported++
		}
	}

	return summary
}

// resolveCategory runs the inference cascade once per group. Resolution
// failures never block inserts; the group just lands uncategorized (or on the
// fallback category when enabled).
func (r *Reconciler) resolveCategory(ctx context.Context, userID, description string, txnType store.TransactionType) string {
	guess, err := r.resolver.Guess(ctx, userID, description, txnType)
	if err != nil {
		log.Printf("WARNING: category resolution failed for %q: %v", description, err)
		guess = rules.Guess{Source: rules.SourceUnknown}
	}

	if guess.CategoryID == "" && r.opts.CreateFallbackCategory && r.fallback != nil {
		cat, err := r.fallback.EnsureFallback(ctx, userID, txnType)
		if err != nil {
			log.Printf("WARNING: fallback category unavailable for %q: %v", description, err)
			return ""
		}
		return cat.ID
	}
	return guess.CategoryID
}
