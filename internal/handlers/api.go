// Package handlers implements the HTTP API on top of the import pipeline.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/rumor-ml/commons.systems/bankimport/internal/importer"
	"github.com/rumor-ml/commons.systems/bankimport/internal/middleware"
	"github.com/rumor-ml/commons.systems/bankimport/internal/store"
)

// maxUploadBytes bounds statement uploads. Real bank exports are well under
// a megabyte; 20 MB leaves room for bloated XLSX files.
const maxUploadBytes = 20 << 20

// FileImporter runs the import pipeline for an uploaded statement.
type FileImporter interface {
	ImportFile(ctx context.Context, userID, filename string, data []byte) importer.Result
}

// Recategorizer applies a manual category correction and learns from it.
type Recategorizer interface {
	Recategorize(ctx context.Context, userID, transactionID, categoryID string) error
}

// StoreReader is the read-only storage surface the API exposes.
type StoreReader interface {
	ListTransactions(ctx context.Context, userID string) ([]store.Transaction, error)
	ListCategories(ctx context.Context, userID string, txnType store.TransactionType) ([]store.Category, error)
}

// APIHandler handles API requests.
type APIHandler struct {
	importer FileImporter
	learner  Recategorizer
	store    StoreReader
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(imp FileImporter, learner Recategorizer, st StoreReader) *APIHandler {
	return &APIHandler{importer: imp, learner: learner, store: st}
}

// HealthCheck handles GET /health.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// Import handles POST /api/import: a multipart upload with the statement in
// the "file" field. The response is always the import result JSON; import
// failures are reported inside it, not as HTTP errors.
func (h *APIHandler) Import(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "Invalid multipart request", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Failed to read upload", http.StatusBadRequest)
		return
	}

	result := h.importer.ImportFile(r.Context(), userID, header.Filename, data)
	writeJSON(w, userID, result)
}

// GetTransactions handles GET /api/transactions.
func (h *APIHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	transactions, err := h.store.ListTransactions(r.Context(), userID)
	if err != nil {
		log.Printf("ERROR: failed to list transactions for user %s: %v", userID, err)
		http.Error(w, "Failed to fetch transactions", http.StatusInternalServerError)
		return
	}
	if transactions == nil {
		transactions = []store.Transaction{}
	}
	writeJSON(w, userID, transactions)
}

// GetCategories handles GET /api/categories. Both types are returned in one
// response, income first.
func (h *APIHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	categories := []store.Category{}
	for _, t := range []store.TransactionType{store.TypeIncome, store.TypeExpense} {
		cats, err := h.store.ListCategories(r.Context(), userID, t)
		if err != nil {
			log.Printf("ERROR: failed to list categories for user %s: %v", userID, err)
			http.Error(w, "Failed to fetch categories", http.StatusInternalServerError)
			return
		}
		categories = append(categories, cats...)
	}
	writeJSON(w, userID, categories)
}

// recategorizeRequest is the body of POST /api/transactions/{id}/category.
type recategorizeRequest struct {
	CategoryID string `json:"categoryId"`
}

// Recategorize handles POST /api/transactions/{id}/category.
func (h *APIHandler) Recategorize(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	transactionID := r.PathValue("id")
	if transactionID == "" {
		http.Error(w, "Missing transaction ID", http.StatusBadRequest)
		return
	}

	var req recategorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.CategoryID == "" {
		http.Error(w, "Missing categoryId", http.StatusBadRequest)
		return
	}

	err := h.learner.Recategorize(r.Context(), userID, transactionID, req.CategoryID)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Transaction not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("ERROR: failed to recategorize transaction %s for user %s: %v", transactionID, userID, err)
		http.Error(w, "Failed to update category", http.StatusInternalServerError)
		return
	}
	writeJSON(w, userID, map[string]bool{"success": true})
}

func writeJSON(w http.ResponseWriter, userID string, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode response for user %s: %v", userID, err)
	}
}
