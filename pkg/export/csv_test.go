package export

import (
	"bytes"
	"testing"
)

func TestCSVWriter_QuotesOnDemand(t *testing.T) {
	var buf bytes.Buffer
	w := NewCSVWriter(&buf, 10)

	if err := w.WriteHeader([]string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteRow([]string{"plain", `has "quotes", commas`}); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteRow([]string{"multi\nline", ""}); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	want := "a,b\r\nplain,\"has \"\"quotes\"\", commas\"\r\n\"multi\r\nline\",\r\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
	if w.Rows() != 2 {
		t.Errorf("expected 2 rows, got %d", w.Rows())
	}
}

func TestCSVWriter_HeaderIsFlushedImmediately(t *testing.T) {
	var buf bytes.Buffer
	w := NewCSVWriter(&buf, 10)

	if err := w.WriteHeader([]string{"timestamp"}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "timestamp\r\n" {
		t.Errorf("expected header to be flushed, got %q", buf.String())
	}
}

func TestCSVWriter_PeriodicFlush(t *testing.T) {
	var buf bytes.Buffer
	w := NewCSVWriter(&buf, 2)
	_ = w.WriteHeader([]string{"n"})
	headerLen := buf.Len()

	_ = w.WriteRow([]string{"1"})
	if buf.Len() != headerLen {
		t.Error("expected first row to stay buffered")
	}
	_ = w.WriteRow([]string{"2"})
	if buf.String() != "n\r\n1\r\n2\r\n" {
		t.Errorf("expected flush after 2 rows, got %q", buf.String())
	}
}

func TestCSVWriter_SinkError(t *testing.T) {
	w := NewCSVWriter(&failingWriter{limit: 0}, 1)

	if err := w.WriteHeader([]string{"a"}); err == nil {
		t.Error("expected sink error")
	}
}
