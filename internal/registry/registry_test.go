package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rumor-ml/commons.systems/bankimport/internal/parser"
)

func TestFindParser(t *testing.T) {
	reg := New()

	tests := []struct {
		name     string
		filename string
		data     []byte
		want     string
	}{
		{
			name:     "xlsx by extension and zip magic",
			filename: "movimientos.xlsx",
			data:     []byte{'P', 'K', 0x03, 0x04, 0x14, 0x00},
			want:     "xlsx-bbva",
		},
		{
			name:     "csv by extension and text content",
			filename: "movimientos.csv",
			data:     []byte("F.Valor;Fecha;Concepto;Importe;Divisa\n"),
			want:     "csv-bbva",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := reg.FindParser(tt.filename, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name())
		})
	}
}

func TestFindParser_Unknown(t *testing.T) {
	reg := New()

	_, err := reg.FindParser("statement.pdf", []byte("%PDF-1.4"))
	assert.ErrorContains(t, err, "no parser found")

	// Extension alone is not enough: a .xlsx without the zip signature is
	// rejected rather than handed to the workbook decoder.
	_, err = reg.FindParser("fake.xlsx", []byte("plain text"))
	assert.Error(t, err)
}

type stubParser struct{}

func (stubParser) Name() string                          { return "stub" }
func (stubParser) CanParse(filename string, _ []byte) bool { return filename == "stub.dat" }
func (stubParser) Parse(ctx context.Context, data []byte) ([]parser.Transaction, error) {
	return nil, nil
}

func TestRegister(t *testing.T) {
	reg := New()
	reg.Register(stubParser{})

	assert.Equal(t, []string{"xlsx-bbva", "csv-bbva", "stub"}, reg.ListParsers())

	p, err := reg.FindParser("stub.dat", nil)
	require.NoError(t, err)
	assert.Equal(t, "stub", p.Name())
}
