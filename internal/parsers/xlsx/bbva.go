// Package xlsx provides BBVA Excel export parsing for bankimport
package xlsx

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/rumor-ml/commons.systems/bankimport/internal/parser"
)

// zipMagic is the leading signature of every xlsx container.
var zipMagic = []byte{'P', 'K', 0x03, 0x04}

// Parser implements BBVA XLSX parsing with a stateless design.
// The struct has no fields because workbook parsing requires no configuration
// state, making the parser safe for concurrent use without locking.
type Parser struct{}

var parserInstance = &Parser{}

// NewParser returns the shared XLSX parser instance.
func NewParser() *Parser {
	return parserInstance
}

// Name returns the parser identifier
func (p *Parser) Name() string {
	return "xlsx-bbva"
}

// CanParse checks extension and the zip container signature. Legacy OLE
// compound .xls files are not zip containers and the workbook decoder cannot
// read them, so only the modern zip-based extensions are claimed.
func (p *Parser) CanParse(filename string, header []byte) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".xlsx" && ext != ".xlsm" {
		return false
	}
	return bytes.HasPrefix(header, zipMagic)
}

// Parse decodes the workbook, takes the first sheet, and extracts transactions
// from the cell grid. Cells are read as display strings; all coercion happens
// in the normalize package. A decodable workbook with no recognizable rows
// yields an empty slice.
func (p *Parser) Parse(ctx context.Context, data []byte) ([]parser.Transaction, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return []parser.Transaction{}, nil
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	return parser.ExtractTransactions(rows), nil
}
