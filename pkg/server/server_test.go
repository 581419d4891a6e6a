package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casework-hq/auditexport/pkg/audit"
	"casework-hq/auditexport/pkg/audit/recorder"
	"casework-hq/auditexport/pkg/audit/storage"
	"casework-hq/auditexport/pkg/config"
	"casework-hq/auditexport/pkg/export"
	"casework-hq/auditexport/pkg/info"
	"casework-hq/auditexport/pkg/security/auth"
	"casework-hq/auditexport/pkg/server/handlers"
	"casework-hq/auditexport/pkg/telemetry/health"
	"casework-hq/auditexport/pkg/telemetry/metrics"
)

const (
	minCase = "3fa0c2b8-1111-4a2b-9c3d-0000000001a1"

	referenceYAML = `
case_types:
  - display_name: Ministerial
    short_code: a1
    type: MIN
  - display_name: Treat Official
    short_code: a2
    type: TRO
export_fields:
  TRO:
    - name: Owner
      display_name: Owner
      adapters: [Bogus]
`
)

type fixture struct {
	cfg       *config.Config
	handler   http.Handler
	collector *metrics.Collector
}

func newFixture(t *testing.T, mutate func(cfg *config.Config, refPath *string)) *fixture {
	t.Helper()

	refPath := filepath.Join(t.TempDir(), "reference.yaml")
	require.NoError(t, os.WriteFile(refPath, []byte(referenceYAML), 0o600))

	cfg := config.Defaults()
	cfg.Server.RateLimit.Enabled = false
	if mutate != nil {
		mutate(cfg, &refPath)
	}

	store := storage.NewMemoryStorage()
	require.NoError(t, store.Store(context.Background(), &audit.AuditRecord{
		ID:             "rec-1",
		CaseUUID:       minCase,
		CorrelationID:  "corr-1",
		RaisingService: "casework",
		Payload:        `{"topicUuid":"topic-1","topicName":"Animals"}`,
		Namespace:      "test",
		Timestamp:      time.Date(2019, 6, 3, 10, 0, 0, 0, time.UTC),
		Type:           audit.EventCaseTopicCreated,
		UserID:         "user-1",
	}))

	directory := info.NewFileDirectory(refPath)
	svc := export.NewService(store, directory, directory, &export.Config{Location: time.UTC})
	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())
	svc.SetObserver(collector)

	checker := health.New(time.Second)
	checker.RegisterCheck("audit_store", health.PingCheck(store), true)

	var authMW *auth.Middleware
	if cfg.Server.Auth.Enabled {
		keys, err := auth.NewKeyStore(cfg.Server.Auth.Keys)
		require.NoError(t, err)
		authMW = auth.NewMiddleware(keys, cfg.Server.Auth.Header, handlers.WriteError)
	}

	srv := New(cfg, Dependencies{
		Exporter: svc,
		Recorder: recorder.NewRecorder(store, &recorder.Config{AsyncBuffer: 0}),
		Health:   checker,
		Metrics:  collector,
		Location: time.UTC,
		Auth:     authMW,
		Build:    BuildInfo{Version: "1.2.3", Commit: "abc123"},
	})
	return &fixture{cfg: cfg, handler: srv.Handler(), collector: collector}
}

func (f *fixture) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) handlers.ErrorResponse {
	t.Helper()
	var resp handlers.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	return resp
}

func TestExport_StreamsCSV(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodGet, "/export?fromDate=2019-06-01&toDate=2019-06-30&caseType=MIN&exportType=TOPICS")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=min-topics-2019-06-01-2019-06-30.csv`, w.Header().Get("Content-Disposition"))
	assert.NotEmpty(t, w.Header().Get("X-Export-ID"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "timestamp,event,userId,caseUuid,topicUuid,topic", lines[0])
	assert.Contains(t, lines[1], "CASE_TOPIC_CREATED,user-1,"+minCase+",topic-1,Animals")
}

func TestExport_HeaderOnlyWhenNothingMatches(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodGet, "/export?fromDate=2020-01-01&toDate=2020-01-31&caseType=MIN&exportType=TOPICS")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "timestamp,event,userId,caseUuid,topicUuid,topic\n", w.Body.String())
}

func TestExport_Errors(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		wantCode int
		wantErr  string
	}{
		{
			name:     "missing parameter",
			target:   "/export?fromDate=2019-06-01&toDate=2019-06-30&caseType=MIN",
			wantCode: http.StatusBadRequest,
			wantErr:  handlers.CodeInvalidRequest,
		},
		{
			name:     "malformed date",
			target:   "/export?fromDate=01/06/2019&toDate=2019-06-30&caseType=MIN&exportType=TOPICS",
			wantCode: http.StatusBadRequest,
			wantErr:  handlers.CodeInvalidRequest,
		},
		{
			name:     "range ends before it starts",
			target:   "/export?fromDate=2019-07-01&toDate=2019-06-30&caseType=MIN&exportType=TOPICS",
			wantCode: http.StatusBadRequest,
			wantErr:  handlers.CodeInvalidRequest,
		},
		{
			name:     "unknown case type",
			target:   "/export?fromDate=2019-06-01&toDate=2019-06-30&caseType=XYZ&exportType=TOPICS",
			wantCode: http.StatusBadRequest,
			wantErr:  handlers.CodeInvalidRequest,
		},
		{
			name:     "unknown report type",
			target:   "/export?fromDate=2019-06-01&toDate=2019-06-30&caseType=MIN&exportType=SOMETHING",
			wantCode: http.StatusBadRequest,
			wantErr:  handlers.CodeInvalidRequest,
		},
		{
			name:     "unresolvable adapter tag",
			target:   "/export?fromDate=2019-06-01&toDate=2019-06-30&caseType=TRO&exportType=CASE_DATA",
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  handlers.CodeUnknownAdapter,
		},
	}

	f := newFixture(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodGet, tt.target)

			require.Equal(t, tt.wantCode, w.Code, w.Body.String())
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			resp := decodeError(t, w)
			assert.Equal(t, tt.wantErr, resp.Code)
			assert.NotEmpty(t, resp.RequestID)
		})
	}
}

func TestExport_ReferenceDataUnavailable(t *testing.T) {
	f := newFixture(t, func(_ *config.Config, refPath *string) {
		*refPath = filepath.Join(t.TempDir(), "missing.yaml")
	})

	w := f.do(t, http.MethodGet, "/export?fromDate=2019-06-01&toDate=2019-06-30&caseType=MIN&exportType=TOPICS")

	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, handlers.CodeUpstreamFailure, decodeError(t, w).Code)
}

func TestExport_MethodNotAllowed(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodPost, "/export")

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, handlers.CodeMethodNotAllowed, decodeError(t, w).Code)
}

func TestExport_RateLimited(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config, _ *string) {
		cfg.Server.RateLimit.Enabled = true
		cfg.Server.RateLimit.RequestsPerSecond = 0.001
		cfg.Server.RateLimit.Burst = 1
	})
	target := "/export?fromDate=2019-06-01&toDate=2019-06-30&caseType=MIN&exportType=TOPICS"

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, target).Code)

	w := f.do(t, http.MethodGet, target)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health").Code, "probes are not rate limited")
}

func TestAuth(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config, _ *string) {
		cfg.Server.Auth = config.AuthConfig{
			Enabled: true,
			Header:  "X-API-Key",
			Keys: []config.APIKeyConfig{
				{Name: "reporting", Key: "key-reporting", Scopes: []string{auth.ScopeExport}},
				{Name: "casework", Key: "key-casework", Scopes: []string{auth.ScopeAudit}},
			},
		}
	})
	exportTarget := "/export?fromDate=2019-06-01&toDate=2019-06-30&caseType=MIN&exportType=TOPICS"
	auditBody := `{"correlation_id":"c","raising_service":"s","namespace":"n","type":"CASE_CREATED","user_id":"u"}`

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		key        string
		wantStatus int
		wantCode   string
	}{
		{"export without key", http.MethodGet, exportTarget, "", "", http.StatusUnauthorized, handlers.CodeUnauthorized},
		{"export with unknown key", http.MethodGet, exportTarget, "", "guess", http.StatusUnauthorized, handlers.CodeUnauthorized},
		{"export with audit key", http.MethodGet, exportTarget, "", "key-casework", http.StatusForbidden, handlers.CodeForbidden},
		{"export with export key", http.MethodGet, exportTarget, "", "key-reporting", http.StatusOK, ""},
		{"audit with export key", http.MethodPost, AuditPath, auditBody, "key-reporting", http.StatusForbidden, handlers.CodeForbidden},
		{"audit with audit key", http.MethodPost, AuditPath, auditBody, "key-casework", http.StatusCreated, ""},
		{"probe without key", http.MethodGet, "/health", "", "", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			w := httptest.NewRecorder()
			f.handler.ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code, "body: %s", w.Body.String())
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, w).Code)
			}
			if tt.wantStatus == http.StatusUnauthorized {
				assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestProbesAndVersion(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/ready")
	require.Equal(t, http.StatusOK, w.Code)
	var status health.HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, health.StatusReady, status.Status)
	assert.Contains(t, status.Checks, "audit_store")

	w = f.do(t, http.MethodGet, "/version")
	require.Equal(t, http.StatusOK, w.Code)
	var version health.VersionInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &version))
	assert.Equal(t, "1.2.3", version.Version)
	assert.Equal(t, "abc123", version.Commit)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, nil)

	f.do(t, http.MethodGet, "/export?fromDate=2019-06-01&toDate=2019-06-30&caseType=MIN&exportType=TOPICS")
	w := f.do(t, http.MethodGet, "/metrics")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `casework_auditexport_http_requests_total{code="200",method="GET",route="/export"} 1`)
	assert.Contains(t, body, "casework_auditexport_exports_total")
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config, _ *string) {
		cfg.Telemetry.Metrics.Enabled = false
	})

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/metrics").Code)
}

func TestServer_StartAndShutdown(t *testing.T) {
	cfg := config.Defaults()
	cfg.Server.ListenAddress = "127.0.0.1:0"
	cfg.Server.ShutdownTimeout = 2 * time.Second

	srv := New(cfg, Dependencies{Exporter: export.NewService(storage.NewMemoryStorage(), nil, nil, nil)})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	require.Eventually(t, srv.IsRunning, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + srv.Addr().String() + "/health")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.False(t, srv.IsRunning())
}

func TestServer_StartTLS(t *testing.T) {
	// Borrow the test certificate of an httptest TLS server.
	ts := httptest.NewUnstartedServer(http.NotFoundHandler())
	ts.StartTLS()
	tlsConfig := ts.TLS.Clone()
	roots := x509.NewCertPool()
	roots.AddCert(ts.Certificate())
	ts.Close()
	client := &http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{RootCAs: roots}}}

	cfg := config.Defaults()
	cfg.Server.ListenAddress = "127.0.0.1:0"
	cfg.Server.ShutdownTimeout = 2 * time.Second

	srv := New(cfg, Dependencies{
		Exporter: export.NewService(storage.NewMemoryStorage(), nil, nil, nil),
		TLS:      tlsConfig,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	require.Eventually(t, srv.IsRunning, 2*time.Second, 10*time.Millisecond)

	resp, err := client.Get("https://" + srv.Addr().String() + "/health")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotNil(t, resp.TLS)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
