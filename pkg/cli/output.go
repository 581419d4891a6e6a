package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// OutputFormat represents the output format for command summaries.
type OutputFormat string

const (
	// FormatText is human-readable output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is JSON output.
	FormatJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (valid: text, json)", s)
	}
}

// Formatter formats command output.
type Formatter interface {
	FormatTo(w io.Writer, data interface{}) error
}

// TextFormatter formats output with fmt's %v verb. Types that render
// themselves implement fmt.Stringer.
type TextFormatter struct{}

// FormatTo writes data to writer in text format.
func (f *TextFormatter) FormatTo(w io.Writer, data interface{}) error {
	_, err := fmt.Fprintf(w, "%v\n", data)
	return err
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes data to writer in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	if format == FormatJSON {
		return &JSONFormatter{Indent: true}
	}
	return &TextFormatter{}
}

// Printer writes status lines for humans. Colours are dropped when the
// output is not a terminal or NO_COLOR is set.
type Printer struct {
	w       io.Writer
	success *color.Color
	warn    *color.Color
	fail    *color.Color
	info    *color.Color
}

// NewPrinter creates a printer writing to w, or os.Stderr when w is nil.
// Status lines go to stderr by default so they never mix with a report
// written to stdout.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stderr
	}
	return &Printer{
		w:       w,
		success: color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		fail:    color.New(color.FgRed, color.Bold),
		info:    color.New(color.FgCyan),
	}
}

// Success prints a line prefixed with a check mark.
func (p *Printer) Success(format string, args ...interface{}) {
	p.success.Fprintf(p.w, "✓ "+format+"\n", args...)
}

// Warn prints a warning line.
func (p *Printer) Warn(format string, args ...interface{}) {
	p.warn.Fprintf(p.w, "! "+format+"\n", args...)
}

// Fail prints an error line.
func (p *Printer) Fail(format string, args ...interface{}) {
	p.fail.Fprintf(p.w, "✗ "+format+"\n", args...)
}

// Info prints an informational line.
func (p *Printer) Info(format string, args ...interface{}) {
	p.info.Fprintf(p.w, format+"\n", args...)
}
