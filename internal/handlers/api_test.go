package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rumor-ml/commons.systems/bankimport/internal/importer"
	"github.com/rumor-ml/commons.systems/bankimport/internal/middleware"
	"github.com/rumor-ml/commons.systems/bankimport/internal/store"
)

type fakeImporter struct {
	result   importer.Result
	filename string
	data     []byte
}

func (f *fakeImporter) ImportFile(ctx context.Context, userID, filename string, data []byte) importer.Result {
	f.filename = filename
	f.data = data
	return f.result
}

type fakeLearner struct {
	err    error
	userID string
	txnID  string
	catID  string
}

func (f *fakeLearner) Recategorize(ctx context.Context, userID, transactionID, categoryID string) error {
	f.userID = userID
	f.txnID = transactionID
	f.catID = categoryID
	return f.err
}

type fakeReader struct {
	transactions []store.Transaction
	categories   map[store.TransactionType][]store.Category
	err          error
}

func (f *fakeReader) ListTransactions(ctx context.Context, userID string) ([]store.Transaction, error) {
	return f.transactions, f.err
}

func (f *fakeReader) ListCategories(ctx context.Context, userID string, txnType store.TransactionType) ([]store.Category, error) {
	return f.categories[txnType], f.err
}

func authedRequest(method, target string, body *bytes.Buffer) *http.Request {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, "u1")
	return req.WithContext(ctx)
}

func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealthCheck(t *testing.T) {
	w := httptest.NewRecorder()
	HealthCheck(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestImport(t *testing.T) {
	imp := &fakeImporter{result: importer.Result{Success: true, ImportedCount: 5, DuplicateCount: 2}}
	h := NewAPIHandler(imp, &fakeLearner{}, &fakeReader{})

	body, contentType := multipartUpload(t, "movimientos.xlsx", []byte("PK\x03\x04data"))
	req := authedRequest(http.MethodPost, "/api/import", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	h.Import(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var res importer.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, 5, res.ImportedCount)
	assert.Equal(t, 2, res.DuplicateCount)
	assert.Equal(t, "movimientos.xlsx", imp.filename)
	assert.Equal(t, []byte("PK\x03\x04data"), imp.data)
}

func TestImport_FailureStaysHTTP200(t *testing.T) {
	imp := &fakeImporter{result: importer.Result{Error: "no transactions found in file"}}
	h := NewAPIHandler(imp, &fakeLearner{}, &fakeReader{})

	body, contentType := multipartUpload(t, "empty.csv", []byte("a;b;c"))
	req := authedRequest(http.MethodPost, "/api/import", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	h.Import(w, req)

	// Import failures travel inside the result body.
	require.Equal(t, http.StatusOK, w.Code)
	var res importer.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.Success)
	assert.Equal(t, "no transactions found in file", res.Error)
}

func TestImport_MissingFileField(t *testing.T) {
	h := NewAPIHandler(&fakeImporter{}, &fakeLearner{}, &fakeReader{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("other", "value"))
	require.NoError(t, mw.Close())

	req := authedRequest(http.MethodPost, "/api/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w := httptest.NewRecorder()
	h.Import(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImport_Unauthenticated(t *testing.T) {
	h := NewAPIHandler(&fakeImporter{}, &fakeLearner{}, &fakeReader{})

	req := httptest.NewRequest(http.MethodPost, "/api/import", nil)
	w := httptest.NewRecorder()
	h.Import(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetTransactions(t *testing.T) {
	reader := &fakeReader{transactions: []store.Transaction{
		{ID: "t1", UserID: "u1", Amount: 23.50, Type: store.TypeExpense, Description: "MERCADONA", Date: "2026-02-15"},
	}}
	h := NewAPIHandler(&fakeImporter{}, &fakeLearner{}, reader)

	w := httptest.NewRecorder()
	h.GetTransactions(w, authedRequest(http.MethodGet, "/api/transactions", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var got []store.Transaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].ID)
}

func TestGetTransactions_EmptyIsJSONArray(t *testing.T) {
	h := NewAPIHandler(&fakeImporter{}, &fakeLearner{}, &fakeReader{})

	w := httptest.NewRecorder()
	h.GetTransactions(w, authedRequest(http.MethodGet, "/api/transactions", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
}

func TestGetTransactions_StorageFailure(t *testing.T) {
	h := NewAPIHandler(&fakeImporter{}, &fakeLearner{}, &fakeReader{err: errors.New("storage down")})

	w := httptest.NewRecorder()
	h.GetTransactions(w, authedRequest(http.MethodGet, "/api/transactions", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetCategories_BothTypes(t *testing.T) {
	reader := &fakeReader{categories: map[store.TransactionType][]store.Category{
		store.TypeIncome:  {{ID: "c1", Name: "Salary", Type: store.TypeIncome}},
		store.TypeExpense: {{ID: "c2", Name: "Groceries", Type: store.TypeExpense}},
	}}
	h := NewAPIHandler(&fakeImporter{}, &fakeLearner{}, reader)

	w := httptest.NewRecorder()
	h.GetCategories(w, authedRequest(http.MethodGet, "/api/categories", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var got []store.Category
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Salary", got[0].Name, "income listed first")
}

func TestRecategorize(t *testing.T) {
	learner := &fakeLearner{}
	h := NewAPIHandler(&fakeImporter{}, learner, &fakeReader{})

	body := bytes.NewBufferString(`{"categoryId":"cat-1"}`)
	req := authedRequest(http.MethodPost, "/api/transactions/t1/category", body)
	req.SetPathValue("id", "t1")

	w := httptest.NewRecorder()
	h.Recategorize(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", learner.userID)
	assert.Equal(t, "t1", learner.txnID)
	assert.Equal(t, "cat-1", learner.catID)
}

func TestRecategorize_NotFound(t *testing.T) {
	h := NewAPIHandler(&fakeImporter{}, &fakeLearner{err: store.ErrNotFound}, &fakeReader{})

	body := bytes.NewBufferString(`{"categoryId":"cat-1"}`)
	req := authedRequest(http.MethodPost, "/api/transactions/missing/category", body)
	req.SetPathValue("id", "missing")

	w := httptest.NewRecorder()
	h.Recategorize(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecategorize_BadBody(t *testing.T) {
	h := NewAPIHandler(&fakeImporter{}, &fakeLearner{}, &fakeReader{})

	for name, body := range map[string]string{
		"invalid json":       "{not json",
		"missing categoryId": "{}",
	} {
		t.Run(name, func(t *testing.T) {
			req := authedRequest(http.MethodPost, "/api/transactions/t1/category", bytes.NewBufferString(body))
			req.SetPathValue("id", "t1")

			w := httptest.NewRecorder()
			h.Recategorize(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}
