// Package sqlite implements the storage collaborator on a local SQLite file.
// It is the default backend for CLI imports.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/rumor-ml/commons.systems/bankimport/internal/rules"
	"github.com/rumor-ml/commons.systems/bankimport/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS categories (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL,
	color TEXT NOT NULL,
	type TEXT NOT NULL CHECK (type IN ('income', 'expense'))
);

CREATE TABLE IF NOT EXISTS transactions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	amount REAL NOT NULL,
	type TEXT NOT NULL CHECK (type IN ('income', 'expense')),
	category_id TEXT REFERENCES categories(id),
	description TEXT NOT NULL,
	date TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS merchant_rules (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL DEFAULT '',
	pattern TEXT NOT NULL,
	match_type TEXT NOT NULL CHECK (match_type IN ('EXACT', 'CONTAINS')),
	category_id TEXT NOT NULL REFERENCES categories(id),
	UNIQUE (user_id, pattern)
);

CREATE INDEX IF NOT EXISTS idx_transactions_identity
	ON transactions (user_id, date, description, amount, type);
`

// Store is a SQLite-backed store.Store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CountTransactions(ctx context.Context, userID, date, description string, amount float64, txnType store.TransactionType) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM transactions
		WHERE user_id = ? AND date = ? AND description = ? AND amount = ? AND type = ?
	`, userID, date, description, amount, string(txnType)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func (s *Store) InsertTransaction(ctx context.Context, txn store.NewTransaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, amount, type, category_id, description, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, uuid.New().String(), txn.UserID, txn.Amount, string(txn.Type),
		nullable(txn.CategoryID), txn.Description, txn.Date,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string) ([]store.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, amount, type, category_id, description, date, created_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY date DESC, created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []store.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, txn)
	}
	return out, rows.Err()
}

func (s *Store) GetTransaction(ctx context.Context, id string) (store.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, amount, type, category_id, description, date, created_at
		FROM transactions
		WHERE id = ?
	`, id)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Transaction{}, store.ErrNotFound
	}
	return txn, err
}

func (s *Store) UpdateTransactionCategory(ctx context.Context, id, categoryID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions SET category_id = ? WHERE id = ?
	`, nullable(categoryID), id)
	if err != nil {
		return fmt.Errorf("update transaction category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction category: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListRules(ctx context.Context, userID string) ([]store.Rule, error) {
	return s.queryRules(ctx, `
		SELECT id, user_id, pattern, match_type, category_id
		FROM merchant_rules
		WHERE user_id = ?
	`, userID)
}

func (s *Store) ListGlobalRules(ctx context.Context) ([]store.Rule, error) {
	return s.queryRules(ctx, `
		SELECT id, user_id, pattern, match_type, category_id
		FROM merchant_rules
		WHERE user_id = ''
	`)
}

func (s *Store) queryRules(ctx context.Context, query string, args ...any) ([]store.Rule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var out []store.Rule
	for rows.Next() {
		var r store.Rule
		var matchType string
		if err := rows.Scan(&r.ID, &r.UserID, &r.Pattern, &matchType, &r.CategoryID); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		r.MatchType = store.MatchType(matchType)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) UpsertRule(ctx context.Context, rule store.Rule) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO merchant_rules (id, user_id, pattern, match_type, category_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, pattern) DO UPDATE SET
			match_type = excluded.match_type,
			category_id = excluded.category_id
	`, rule.ID, rule.UserID, rule.Pattern, string(rule.MatchType), rule.CategoryID)
	if err != nil {
		return fmt.Errorf("upsert rule: %w", err)
	}
	return nil
}

func (s *Store) ListCategories(ctx context.Context, userID string, txnType store.TransactionType) ([]store.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, color, type
		FROM categories
		WHERE user_id = ? AND type = ?
		ORDER BY name
	`, userID, string(txnType))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []store.Category
	for rows.Next() {
		var c store.Category
		var catType string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Color, &catType); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Type = store.TransactionType(catType)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) CreateCategory(ctx context.Context, cat store.Category) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, user_id, name, color, type)
		VALUES (?, ?, ?, ?, ?)
	`, cat.ID, cat.UserID, cat.Name, cat.Color, string(cat.Type))
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// SeedGlobalRules installs the embedded global rule set: each seed names a
// category, which is created globally if missing, and becomes a global
// merchant rule. Safe to run on every startup.
func (s *Store) SeedGlobalRules(ctx context.Context, seeds []rules.SeedRule) error {
	catIDs := make(map[string]string)

	for _, t := range []store.TransactionType{store.TypeIncome, store.TypeExpense} {
		cats, err := s.ListCategories(ctx, "", t)
		if err != nil {
			return fmt.Errorf("seed rules: %w", err)
		}
		for _, c := range cats {
			catIDs[strings.ToLower(c.Name)+"/"+string(t)] = c.ID
		}
	}

	for _, seed := range seeds {
		key := strings.ToLower(seed.Category) + "/" + string(seed.Type)
		catID, ok := catIDs[key]
		if !ok {
			catID = uuid.New().String()
			err := s.CreateCategory(ctx, store.Category{
				ID:    catID,
				Name:  seed.Category,
				Color: "#9ca3af",
				Type:  seed.Type,
			})
			if err != nil {
				return fmt.Errorf("seed rules: %w", err)
			}
			catIDs[key] = catID
		}

		err := s.UpsertRule(ctx, store.Rule{
			ID:         uuid.New().String(),
			Pattern:    seed.Pattern,
			MatchType:  seed.MatchType,
			CategoryID: catID,
		})
		if err != nil {
			return fmt.Errorf("seed rules: %w", err)
		}
	}
	return nil
}

// nullable maps "" to NULL so uncategorized rows do not reference a
// nonexistent category.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (store.Transaction, error) {
	var txn store.Transaction
	var txnType, createdAt string
	var categoryID sql.NullString
	err := row.Scan(&txn.ID, &txn.UserID, &txn.Amount, &txnType, &categoryID,
		&txn.Description, &txn.Date, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Transaction{}, err
		}
		return store.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	txn.Type = store.TransactionType(txnType)
	txn.CategoryID = categoryID.String
	if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
		txn.CreatedAt = ts
	}
	return txn, nil
}
