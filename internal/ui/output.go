// Package ui prints colored progress output for the CLI.
package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

const headerWidth = 60

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	infoColor    = color.New(color.FgBlue)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
)

// Header prints a banner with the given title.
func Header(text string) {
	line := strings.Repeat("=", headerWidth)
	headerColor.Fprintln(os.Stderr, line)
	headerColor.Fprintln(os.Stderr, center(text, headerWidth))
	headerColor.Fprintln(os.Stderr, line)
}

// Step prints a numbered progress step.
func Step(current, total int, text string) {
	infoColor.Fprintf(os.Stderr, "[%d/%d] %s\n", current, total, text)
}

// Success prints a success message.
func Success(text string) {
	successColor.Fprintf(os.Stderr, "✓ %s\n", text)
}

// Info prints an informational message.
func Info(text string) {
	infoColor.Fprintf(os.Stderr, "• %s\n", text)
}

// Warning prints a warning message.
func Warning(text string) {
	warnColor.Fprintf(os.Stderr, "⚠ %s\n", text)
}

// Error prints an error message.
func Error(text string) {
	errorColor.Fprintf(os.Stderr, "✗ %s\n", text)
}

// center left-pads text to sit in the middle of width. Text at or past the
// width is returned unchanged; trailing padding is never added.
func center(text string, width int) string {
	if len(text) >= width {
		return text
	}
	return fmt.Sprintf("%s%s", strings.Repeat(" ", (width-len(text))/2), text)
}
