package parser

import (
	"strings"

	"github.com/rumor-ml/commons.systems/bankimport/internal/normalize"
)

// Real-world exports prepend a variable number of title/metadata rows before
// the actual header row, so the header is located by scanning rather than
// assumed at a fixed offset.
const (
	// headerScanLimit bounds the search for the header row
	headerScanLimit = 20
	// headerMatchThreshold is the minimum number of canonical header names a
	// row must contain to be accepted as the header row
	headerMatchThreshold = 3
)

// canonicalHeaders is the known BBVA export header set used for detection.
var canonicalHeaders = []string{"F.Valor", "Fecha", "Concepto", "Importe", "Divisa"}

// Column header names resolved to field positions. Absent columns resolve to
// -1 and the field is defaulted for every row.
const (
	headerValueDate     = "F.Valor"
	headerOperationDate = "Fecha"
	headerDescription   = "Concepto"
	headerAmount        = "Importe"
	headerBalance       = "Disponible"
	headerNotes         = "Observaciones"
)

// Layout maps named statement columns to their positions in the grid.
type Layout struct {
	ValueDate     int
	OperationDate int
	Description   int
	Amount        int
	Balance       int
	Notes         int
}

// DetectHeader scans the first rows of the grid for the row containing at
// least headerMatchThreshold of the canonical header names. When no row
// qualifies within the scan window it falls back to row 0 (best-effort
// degraded mode); header detection never fails outright.
func DetectHeader(rows [][]string) (int, Layout) {
	headerRow := 0
	limit := min(len(rows), headerScanLimit)

	for i := 0; i < limit; i++ {
		matches := 0
		for _, want := range canonicalHeaders {
			if rowContains(rows[i], want) {
				matches++
			}
		}
		if matches >= headerMatchThreshold {
			headerRow = i
			break
		}
	}

	return headerRow, resolveLayout(rows, headerRow)
}

func rowContains(row []string, name string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) == name {
			return true
		}
	}
	return false
}

func resolveLayout(rows [][]string, headerRow int) Layout {
	layout := Layout{
		ValueDate:     -1,
		OperationDate: -1,
		Description:   -1,
		Amount:        -1,
		Balance:       -1,
		Notes:         -1,
	}
	if headerRow >= len(rows) {
		return layout
	}

	for i, cell := range rows[headerRow] {
		switch strings.TrimSpace(cell) {
		case headerValueDate:
			if layout.ValueDate == -1 {
				layout.ValueDate = i
			}
		case headerOperationDate:
			if layout.OperationDate == -1 {
				layout.OperationDate = i
			}
		case headerDescription:
			if layout.Description == -1 {
				layout.Description = i
			}
		case headerAmount:
			if layout.Amount == -1 {
				layout.Amount = i
			}
		case headerBalance:
			if layout.Balance == -1 {
				layout.Balance = i
			}
		case headerNotes:
			if layout.Notes == -1 {
				layout.Notes = i
			}
		}
	}
	return layout
}

// ExtractTransactions converts the data rows after the detected header into
// transaction records. Rows whose operation date does not parse are dropped
// entirely; every other anomaly is recovered locally (placeholder description,
// zero amount, value date falling back to operation date).
func ExtractTransactions(rows [][]string) []Transaction {
	transactions := []Transaction{}
	if len(rows) == 0 {
		return transactions
	}

	headerRow, layout := DetectHeader(rows)

	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}

		// The operation date is the stable field across repeated exports of
		// overlapping periods; the value date can shift between exports of the
		// same underlying transaction, so it never drives Date.
		date := normalize.FormatDate(cell(row, layout.OperationDate))
		if date == "" {
			continue
		}

		valueDate := normalize.FormatDate(cell(row, layout.ValueDate))
		if valueDate == "" {
			valueDate = date
		}

		description := strings.TrimSpace(cell(row, layout.Description))
		if description == "" {
			description = PlaceholderDescription
		}

		transactions = append(transactions, Transaction{
			Date:        date,
			ValueDate:   valueDate,
			Amount:      normalize.ParseAmount(cell(row, layout.Amount)),
			Description: description,
			Balance:     normalize.ParseAmount(cell(row, layout.Balance)),
			Notes:       strings.TrimSpace(cell(row, layout.Notes)),
		})
	}

	return transactions
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func isEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
