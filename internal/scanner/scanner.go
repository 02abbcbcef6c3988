// Package scanner walks a directory tree and finds bank statement files.
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// statementExtensions are the file types the parser registry can handle.
// Legacy OLE .xls is deliberately absent: the workbook decoder only reads
// zip-based containers, so collecting .xls files would guarantee a
// "no parser found" failure per file.
var statementExtensions = map[string]bool{
	".xlsx": true,
	".xlsm": true,
	".csv":  true,
}

// Scanner walks a directory tree and finds statement files.
type Scanner struct {
	rootDir string
}

// New creates a new scanner for the given root directory.
func New(rootDir string) *Scanner {
	return &Scanner{rootDir: rootDir}
}

// Scan walks the directory tree and returns the paths of all statement
// files, sorted for deterministic import order.
func (s *Scanner) Scan() ([]string, error) {
	rootDir := expandHome(s.rootDir)

	var results []string
	err := filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Hidden directories hold editor state and VCS data, not exports.
			if path != rootDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if IsStatementFile(path) {
			results = append(results, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	sort.Strings(results)
	return results, nil
}

// IsStatementFile checks if the file has a known statement extension.
func IsStatementFile(path string) bool {
	return statementExtensions[strings.ToLower(filepath.Ext(path))]
}

// expandHome expands a leading ~ to the home directory.
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}
