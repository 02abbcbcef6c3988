// Package store defines the storage collaborator boundary for the import
// pipeline. The core only counts existing transactions and writes new rows;
// everything else about persistence belongs to the implementations.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// TransactionType distinguishes inflows from outflows.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// TypeForAmount derives the transaction type from a signed amount:
// negative is an expense, zero or positive is income.
func TypeForAmount(amount float64) TransactionType {
	if amount < 0 {
		return TypeExpense
	}
	return TypeIncome
}

// MatchType defines how merchant rule patterns are matched against
// normalized descriptions.
type MatchType string

const (
	MatchExact    MatchType = "EXACT"
	MatchContains MatchType = "CONTAINS"
)

// Rule is a stored pattern-to-category mapping. User-scoped rules are learned
// from manual recategorizations; global rules are seeded.
type Rule struct {
	ID         string
	UserID     string // empty for global rules
	Pattern    string
	MatchType  MatchType
	CategoryID string
}

// Category is a user- or globally-owned transaction category.
type Category struct {
	ID     string
	UserID string // empty for global categories
	Name   string
	Color  string
	Type   TransactionType
}

// Transaction is a stored transaction row. Amount is always the absolute
// value; the sign lives in Type.
type Transaction struct {
	ID          string
	UserID      string
	Amount      float64
	Type        TransactionType
	CategoryID  string // empty = uncategorized
	Description string
	Date        string // ISO YYYY-MM-DD
	CreatedAt   time.Time
}

// NewTransaction carries the fields of a transaction row to insert.
type NewTransaction struct {
	UserID      string
	Amount      float64 // absolute value
	Type        TransactionType
	CategoryID  string // empty = uncategorized
	Description string
	Date        string // ISO YYYY-MM-DD
}

// Store is the full storage collaborator surface. Consumers should depend on
// the narrow subset they use; implementations live in store/sqlite and
// store/firestore.
type Store interface {
	// CountTransactions returns the exact number of stored transactions
	// matching the identity tuple. An exact count, not an existence check,
	// because multiplicities matter for idempotent re-imports.
	CountTransactions(ctx context.Context, userID, date, description string, amount float64, txnType TransactionType) (int, error)

	// InsertTransaction writes one new transaction row.
	InsertTransaction(ctx context.Context, txn NewTransaction) error

	// ListTransactions returns all transactions for a user, newest first.
	ListTransactions(ctx context.Context, userID string) ([]Transaction, error)

	// GetTransaction fetches one transaction by ID.
	GetTransaction(ctx context.Context, id string) (Transaction, error)

	// UpdateTransactionCategory reassigns a transaction's category.
	UpdateTransactionCategory(ctx context.Context, id, categoryID string) error

	// ListRules returns the merchant rules scoped to a user.
	ListRules(ctx context.Context, userID string) ([]Rule, error)

	// ListGlobalRules returns the merchant rules with no owning user.
	ListGlobalRules(ctx context.Context) ([]Rule, error)

	// UpsertRule creates or replaces a rule keyed by (userID, pattern).
	UpsertRule(ctx context.Context, rule Rule) error

	// ListCategories returns a user's categories of the given type.
	ListCategories(ctx context.Context, userID string, txnType TransactionType) ([]Category, error)

	// CreateCategory writes a new category row.
	CreateCategory(ctx context.Context, cat Category) error

	Close() error
}
