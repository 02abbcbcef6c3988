// Package parser defines the strategy interface for statement file parsers and
// the transaction record they emit.
package parser

import (
	"context"
	"strconv"
	"strings"
)

// PlaceholderDescription substitutes for a blank description cell. A row
// without a description is still a real transaction; a row without a date is
// not (see ExtractTransactions).
const PlaceholderDescription = "Imported Transaction"

// Parser is the strategy interface for all statement file formats.
type Parser interface {
	// Name returns the parser identifier (e.g., "xlsx-bbva", "csv-bbva")
	Name() string

	// CanParse checks if this parser should be used for the file,
	// based on the filename and the first bytes of content
	CanParse(filename string, header []byte) bool

	// Parse extracts transactions from raw file bytes. The returned slice is
	// fully materialized; a readable file with no usable rows yields an empty
	// slice, not an error.
	Parse(ctx context.Context, data []byte) ([]Transaction, error)
}

// Transaction is one parsed statement row. It lives only for the duration of a
// single import call and is never persisted directly.
type Transaction struct {
	Date        string  // ISO YYYY-MM-DD, operation date, always valid
	ValueDate   string  // ISO YYYY-MM-DD, falls back to Date when absent
	Amount      float64 // Signed: negative = outflow, positive = inflow
	Description string
	Balance     float64 // Running balance as reported, informational only
	Notes       string
}

// Fingerprint returns the composite key used to detect duplicate rows within a
// single parsed file. It spans all five data fields, unlike the stored-identity
// key, so two rows that differ only in balance or notes stay distinct here.
func (t Transaction) Fingerprint() string {
	return strings.Join([]string{
		t.Date,
		t.Description,
		formatFloat(t.Amount),
		formatFloat(t.Balance),
		t.Notes,
	}, "|")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
