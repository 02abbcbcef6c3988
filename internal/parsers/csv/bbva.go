// Package csv provides CSV statement parsing for bankimport. BBVA web exports
// offer the same grid as the Excel download in semicolon- or comma-delimited
// form, so this parser feeds the shared layout detection with a csv-decoded
// grid.
package csv

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rumor-ml/commons.systems/bankimport/internal/parser"
)

// Parser implements BBVA CSV parsing with a stateless design.
type Parser struct{}

var parserInstance = &Parser{}

// NewParser returns the shared CSV parser instance.
// Safe for concurrent use due to stateless design.
func NewParser() *Parser {
	return parserInstance
}

// Name returns the parser identifier
func (p *Parser) Name() string {
	return "csv-bbva"
}

// CanParse checks extension and that the content looks like text
func (p *Parser) CanParse(filename string, header []byte) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".csv" {
		return false
	}
	return utf8.Valid(header) && !bytes.ContainsRune(header, 0)
}

// Parse decodes the CSV grid and extracts transactions. The delimiter is
// sniffed from the first line since BBVA exports use ';' while re-saved files
// commonly use ','.
func (p *Parser) Parse(ctx context.Context, data []byte) ([]parser.Transaction, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	// Strip UTF-8 BOM so the first header cell compares clean
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV content: %w", err)
	}

	return parser.ExtractTransactions(rows), nil
}

// sniffDelimiter picks ';' or ',' by which occurs more often in the first line
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}
