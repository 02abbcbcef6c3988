package importer

import (
	"context"
	"log"

	"github.com/rumor-ml/commons.systems/bankimport/internal/parser"
	"github.com/rumor-ml/commons.systems/bankimport/internal/registry"
)

// Result is the caller-facing outcome of one import call. Errors cross this
// boundary as a message in the result, never as a Go error: only file-level
// conditions (unparseable, empty, unauthenticated) populate Error, and then
// the counts are meaningless.
type Result struct {
	Success        bool   `json:"success"`
	ImportedCount  int    `json:"importedCount"`
	DuplicateCount int    `json:"duplicateCount"`
	Error          string `json:"error,omitempty"`
}

// User-facing error messages for the three fatal file-level conditions.
const (
	errNotAuthenticated = "user not authenticated"
	errUnparseableFile  = "failed to parse file; please ensure it is a valid bank export"
	errNoTransactions   = "no transactions found in file"
)

// Importer is the import entrypoint: parser selection, parsing, and
// reconciliation behind one call.
type Importer struct {
	registry   *registry.Registry
	reconciler *Reconciler
}

// New creates an importer over the given registry and reconciler.
func New(reg *registry.Registry, rec *Reconciler) *Importer {
	return &Importer{registry: reg, reconciler: rec}
}

// ImportFile parses raw statement bytes and reconciles the result into
// storage. The filename is used only for parser selection.
func (i *Importer) ImportFile(ctx context.Context, userID, filename string, data []byte) Result {
	if userID == "" {
		return Result{Error: errNotAuthenticated}
	}

	p, err := i.registry.FindParser(filename, data)
	if err != nil {
		log.Printf("import: %v", err)
		return Result{Error: errUnparseableFile}
	}

	parsed, err := p.Parse(ctx, data)
	if err != nil {
		log.Printf("import: parse failed for %s with %s: %v", filename, p.Name(), err)
		return Result{Error: errUnparseableFile}
	}
	if len(parsed) == 0 {
		return Result{Error: errNoTransactions}
	}

	summary := i.reconciler.Reconcile(ctx, userID, parsed)
	return Result{
		Success:        true,
		ImportedCount:  summary.Imported,
		DuplicateCount: summary.Duplicates,
	}
}

// ImportBatch reconciles an externally-fetched transaction batch that already
// has the parsed shape (date, amount, description). Batches from
// credentials-based fetchers are just another transaction source feeding the
// same reconciler.
func (i *Importer) ImportBatch(ctx context.Context, userID string, batch []parser.Transaction) Result {
	if userID == "" {
		return Result{Error: errNotAuthenticated}
	}
	if len(batch) == 0 {
		return Result{Error: errNoTransactions}
	}

	summary := i.reconciler.Reconcile(ctx, userID, batch)
	return Result{
		Success:        true,
		ImportedCount:  summary.Imported,
		DuplicateCount: summary.Duplicates,
	}
}
