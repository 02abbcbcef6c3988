// Package firestore implements the storage collaborator on Cloud Firestore.
// It is the backend behind the API server.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rumor-ml/commons.systems/bankimport/internal/store"
)

const (
	transactionsCollection = "bank-transactions"
	categoriesCollection   = "bank-categories"
	rulesCollection        = "bank-merchant-rules"
)

// Client implements store.Store on Firestore and exposes the Firebase Auth
// client for the HTTP middleware.
type Client struct {
	Firestore *firestore.Client
	Auth      *auth.Client
	projectID string
}

// NewClient creates a Firestore-backed store using Application Default
// Credentials, or an explicit credentials file when credsPath is set.
func NewClient(ctx context.Context, projectID, credsPath string) (*Client, error) {
	conf := &firebase.Config{ProjectID: projectID}

	var opts []option.ClientOption
	if credsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credsPath))
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	firestoreClient, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		firestoreClient.Close()
		return nil, fmt.Errorf("failed to create Auth client: %w", err)
	}

	return &Client{
		Firestore: firestoreClient,
		Auth:      authClient,
		projectID: projectID,
	}, nil
}

// Close closes the Firestore client.
func (c *Client) Close() error {
	return c.Firestore.Close()
}

// transactionDoc is the Firestore shape of a stored transaction.
type transactionDoc struct {
	ID          string    `firestore:"id"`
	UserID      string    `firestore:"userId"`
	Amount      float64   `firestore:"amount"`
	Type        string    `firestore:"type"`
	CategoryID  string    `firestore:"categoryId"`
	Description string    `firestore:"description"`
	Date        string    `firestore:"date"`
	CreatedAt   time.Time `firestore:"createdAt"`
}

type categoryDoc struct {
	ID     string `firestore:"id"`
	UserID string `firestore:"userId"`
	Name   string `firestore:"name"`
	Color  string `firestore:"color"`
	Type   string `firestore:"type"`
}

type ruleDoc struct {
	ID         string `firestore:"id"`
	UserID     string `firestore:"userId"`
	Pattern    string `firestore:"pattern"`
	MatchType  string `firestore:"matchType"`
	CategoryID string `firestore:"categoryId"`
}

func (c *Client) CountTransactions(ctx context.Context, userID, date, description string, amount float64, txnType store.TransactionType) (int, error) {
	iter := c.Firestore.Collection(transactionsCollection).
		Where("userId", "==", userID).
		Where("date", "==", date).
		Where("description", "==", description).
		Where("amount", "==", amount).
		Where("type", "==", string(txnType)).
		Documents(ctx)
	defer iter.Stop()

	n := 0
	for {
		_, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to count transactions for user %s: %w", userID, err)
		}
		n++
	}
	return n, nil
}

func (c *Client) InsertTransaction(ctx context.Context, txn store.NewTransaction) error {
	doc := transactionDoc{
		ID:          uuid.New().String(),
		UserID:      txn.UserID,
		Amount:      txn.Amount,
		Type:        string(txn.Type),
		CategoryID:  txn.CategoryID,
		Description: txn.Description,
		Date:        txn.Date,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := c.Firestore.Collection(transactionsCollection).Doc(doc.ID).Set(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (c *Client) ListTransactions(ctx context.Context, userID string) ([]store.Transaction, error) {
	iter := c.Firestore.Collection(transactionsCollection).
		Where("userId", "==", userID).
		OrderBy("date", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var out []store.Transaction
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate transactions for user %s: %w", userID, err)
		}

		var doc transactionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse transaction: %w", err)
		}
		out = append(out, docToTransaction(doc))
	}
	return out, nil
}

func (c *Client) GetTransaction(ctx context.Context, id string) (store.Transaction, error) {
	snap, err := c.Firestore.Collection(transactionsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return store.Transaction{}, store.ErrNotFound
		}
		return store.Transaction{}, fmt.Errorf("failed to get transaction %s: %w", id, err)
	}

	var doc transactionDoc
	if err := snap.DataTo(&doc); err != nil {
		return store.Transaction{}, fmt.Errorf("failed to parse transaction: %w", err)
	}
	return docToTransaction(doc), nil
}

func (c *Client) UpdateTransactionCategory(ctx context.Context, id, categoryID string) error {
	_, err := c.Firestore.Collection(transactionsCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "categoryId", Value: categoryID},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return store.ErrNotFound
		}
		return fmt.Errorf("failed to update transaction %s: %w", id, err)
	}
	return nil
}

func (c *Client) ListRules(ctx context.Context, userID string) ([]store.Rule, error) {
	return c.queryRules(ctx, userID)
}

func (c *Client) ListGlobalRules(ctx context.Context) ([]store.Rule, error) {
	return c.queryRules(ctx, "")
}

func (c *Client) queryRules(ctx context.Context, userID string) ([]store.Rule, error) {
	iter := c.Firestore.Collection(rulesCollection).
		Where("userId", "==", userID).
		Documents(ctx)
	defer iter.Stop()

	var out []store.Rule
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate rules: %w", err)
		}

		var doc ruleDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse rule: %w", err)
		}
		out = append(out, store.Rule{
			ID:         doc.ID,
			UserID:     doc.UserID,
			Pattern:    doc.Pattern,
			MatchType:  store.MatchType(doc.MatchType),
			CategoryID: doc.CategoryID,
		})
	}
	return out, nil
}

// UpsertRule replaces any existing rule with the same (userId, pattern). The
// lookup and write are not transactional; the rare race leaves two rules with
// the same pattern, which the matcher tolerates.
func (c *Client) UpsertRule(ctx context.Context, rule store.Rule) error {
	iter := c.Firestore.Collection(rulesCollection).
		Where("userId", "==", rule.UserID).
		Where("pattern", "==", rule.Pattern).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	docID := rule.ID
	snap, err := iter.Next()
	if err == nil {
		docID = snap.Ref.ID
	} else if err != iterator.Done {
		return fmt.Errorf("failed to look up rule: %w", err)
	}

	doc := ruleDoc{
		ID:         docID,
		UserID:     rule.UserID,
		Pattern:    rule.Pattern,
		MatchType:  string(rule.MatchType),
		CategoryID: rule.CategoryID,
	}
	if _, err := c.Firestore.Collection(rulesCollection).Doc(docID).Set(ctx, doc); err != nil {
		return fmt.Errorf("failed to upsert rule: %w", err)
	}
	return nil
}

func (c *Client) ListCategories(ctx context.Context, userID string, txnType store.TransactionType) ([]store.Category, error) {
	iter := c.Firestore.Collection(categoriesCollection).
		Where("userId", "==", userID).
		Where("type", "==", string(txnType)).
		Documents(ctx)
	defer iter.Stop()

	var out []store.Category
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate categories for user %s: %w", userID, err)
		}

		var doc categoryDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse category: %w", err)
		}
		out = append(out, store.Category{
			ID:     doc.ID,
			UserID: doc.UserID,
			Name:   doc.Name,
			Color:  doc.Color,
			Type:   store.TransactionType(doc.Type),
		})
	}
	return out, nil
}

func (c *Client) CreateCategory(ctx context.Context, cat store.Category) error {
	doc := categoryDoc{
		ID:     cat.ID,
		UserID: cat.UserID,
		Name:   cat.Name,
		Color:  cat.Color,
		Type:   string(cat.Type),
	}
	if _, err := c.Firestore.Collection(categoriesCollection).Doc(doc.ID).Set(ctx, doc); err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

func docToTransaction(doc transactionDoc) store.Transaction {
	return store.Transaction{
		ID:          doc.ID,
		UserID:      doc.UserID,
		Amount:      doc.Amount,
		Type:        store.TransactionType(doc.Type),
		CategoryID:  doc.CategoryID,
		Description: doc.Description,
		Date:        doc.Date,
		CreatedAt:   doc.CreatedAt,
	}
}
