package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

type recordedRequest struct {
	route  string
	method string
	code   int
}

type fakeRecorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (f *fakeRecorder) RecordHTTPRequest(route, method string, code int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, recordedRequest{route: route, method: method, code: code})
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	recorder := &fakeRecorder{}

	r := chi.NewRouter()
	r.Use(Logging(logger, recorder))
	r.Get("/reports/{id}", func(w http.ResponseWriter, r *http.Request) {
		if GetStartTime(r.Context()).IsZero() {
			t.Error("start time should be in the request context")
		}
		w.WriteHeader(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/reports/42", nil))

	if len(recorder.requests) != 1 {
		t.Fatalf("recorded %d requests, want 1", len(recorder.requests))
	}
	got := recorder.requests[0]
	if got.route != "/reports/{id}" || got.method != http.MethodGet || got.code != http.StatusTeapot {
		t.Errorf("recorded %+v, want route /reports/{id} GET 418", got)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "request completed" {
		t.Errorf("msg = %v, want request completed", entry["msg"])
	}
	if entry["level"] != "WARN" {
		t.Errorf("level = %v, want WARN for a 4xx", entry["level"])
	}
	if entry["route"] != "/reports/{id}" {
		t.Errorf("route = %v, want /reports/{id}", entry["route"])
	}
}

func TestLogging_DefaultStatus(t *testing.T) {
	recorder := &fakeRecorder{}
	handler := Logging(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), recorder)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	if len(recorder.requests) != 1 {
		t.Fatalf("recorded %d requests, want 1", len(recorder.requests))
	}
	if got := recorder.requests[0]; got.code != http.StatusOK || got.route != "unmatched" {
		t.Errorf("recorded %+v, want unmatched route with 200", got)
	}
}
