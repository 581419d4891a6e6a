package export

import (
	"encoding/csv"
	"io"
)

// DefaultFlushInterval is the number of rows written between flushes.
const DefaultFlushInterval = 100

// CSVWriter streams a header and rows as RFC 4180 CSV with CRLF line endings.
type CSVWriter struct {
	writer        *csv.Writer
	flushInterval int
	rows          int
}

// NewCSVWriter creates a CSV writer that flushes every flushInterval rows.
func NewCSVWriter(w io.Writer, flushInterval int) *CSVWriter {
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	writer := csv.NewWriter(w)
	writer.UseCRLF = true
	return &CSVWriter{writer: writer, flushInterval: flushInterval}
}

// WriteHeader writes the header line and flushes it, so a caller sees the
// header even when no rows follow.
func (w *CSVWriter) WriteHeader(header []string) error {
	if err := w.writer.Write(header); err != nil {
		return err
	}
	return w.Flush()
}

// WriteRow writes one row, flushing periodically.
func (w *CSVWriter) WriteRow(row []string) error {
	if err := w.writer.Write(row); err != nil {
		return err
	}
	w.rows++

	if w.rows%w.flushInterval == 0 {
		return w.Flush()
	}
	return nil
}

// Flush writes buffered data to the underlying writer.
func (w *CSVWriter) Flush() error {
	w.writer.Flush()
	return w.writer.Error()
}

// Rows returns the number of rows written, excluding the header.
func (w *CSVWriter) Rows() int {
	return w.rows
}
