// Package registry selects a statement parser for an incoming file.
package registry

import (
	"fmt"

	"github.com/rumor-ml/commons.systems/bankimport/internal/parser"
	csvparser "github.com/rumor-ml/commons.systems/bankimport/internal/parsers/csv"
	"github.com/rumor-ml/commons.systems/bankimport/internal/parsers/xlsx"
)

// sniffLen is how many leading bytes are offered to CanParse. Sufficient to
// detect the zip magic of xlsx containers and to sample a CSV header line.
const sniffLen = 512

// Registry holds all registered parsers
type Registry struct {
	parsers []parser.Parser
}

// New creates a registry with all built-in parsers
func New() *Registry {
	return &Registry{
		parsers: []parser.Parser{
			xlsx.NewParser(),
			csvparser.NewParser(),
		},
	}
}

// Register adds a custom parser (for extensibility)
func (r *Registry) Register(p parser.Parser) {
	r.parsers = append(r.parsers, p)
}

// FindParser returns the first parser claiming the file. Detection runs on the
// filename plus the first bytes of content, so uploads can be sniffed without
// touching the filesystem.
func (r *Registry) FindParser(filename string, data []byte) (parser.Parser, error) {
	header := data
	if len(header) > sniffLen {
		header = header[:sniffLen]
	}

	for _, p := range r.parsers {
		if p.CanParse(filename, header) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no parser found for file: %s", filename)
}

// ListParsers returns all registered parser names
func (r *Registry) ListParsers() []string {
	names := make([]string, len(r.parsers))
	for i, p := range r.parsers {
		names[i] = p.Name()
	}
	return names
}
