package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"casework-hq/auditexport/pkg/config"
	"casework-hq/auditexport/pkg/export"
)

func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:         true,
		Namespace:       "test",
		Subsystem:       "export",
		DurationBuckets: []float64{0.1, 1, 10},
	}
}

func TestCollector_ExportCompleted(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	tests := []struct {
		name   string
		result *export.Result
		err    error
		status string
	}{
		{
			name:   "success",
			result: &export.Result{ReportType: export.ReportTopics, CaseType: "MIN", Rows: 3, Duration: time.Second},
			status: StatusSuccess,
		},
		{
			name:   "rejected",
			result: &export.Result{ReportType: export.ReportTopics, CaseType: "MIN"},
			err:    export.NewUnknownReportTypeError("X"),
			status: StatusRejected,
		},
		{
			name:   "unknown adapter",
			result: &export.Result{ReportType: export.ReportTopics, CaseType: "MIN"},
			err:    export.NewUnknownAdapterTypeError("f", "Telepathy"),
			status: StatusRejected,
		},
		{
			name:   "sink failure",
			result: &export.Result{ReportType: export.ReportTopics, CaseType: "MIN", Rows: 1},
			err:    errors.New("broken pipe"),
			status: StatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := collector.exportMetrics.exportsTotal.WithLabelValues("TOPICS", "MIN", tt.status)
			before := testutil.ToFloat64(counter)

			collector.ExportCompleted(tt.result, tt.err)

			if got := testutil.ToFloat64(counter) - before; got != 1 {
				t.Errorf("expected %s count to increase by 1, got %v", tt.status, got)
			}
		})
	}

	if got := testutil.ToFloat64(collector.exportMetrics.rowsTotal.WithLabelValues("TOPICS")); got != 4 {
		t.Errorf("expected 4 rows, got %v", got)
	}
}

func TestCollector_RecordSkippedAndAdapterFailed(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordSkipped(export.ReportCaseData, export.NewPayloadDecodeError("r1", "CASE_UPDATED", errors.New("bad")))
	collector.AdapterFailed(export.ReportCaseData, export.NewAdapterConversionError("Owner", "Username", "u1", errors.New("missing")))
	collector.AdapterFailed(export.ReportCaseData, export.NewAdapterConversionError("Owner", "Username", "u2", errors.New("missing")))

	if got := testutil.ToFloat64(collector.exportMetrics.skippedTotal.WithLabelValues("CASE_DATA", "CASE_UPDATED")); got != 1 {
		t.Errorf("expected 1 skipped record, got %v", got)
	}
	if got := testutil.ToFloat64(collector.exportMetrics.adapterFailures.WithLabelValues("CASE_DATA", "Username")); got != 2 {
		t.Errorf("expected 2 adapter failures, got %v", got)
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, prometheus.NewRegistry())

	collector.ExportCompleted(&export.Result{ReportType: export.ReportTopics, CaseType: "MIN"}, nil)
	collector.RecordIngest("CASE_CREATED", nil)

	if got := testutil.CollectAndCount(collector.exportMetrics.exportsTotal); got != 0 {
		t.Errorf("expected no export series, got %d", got)
	}
	if got := testutil.CollectAndCount(collector.ingestMetrics.recordsTotal); got != 0 {
		t.Errorf("expected no ingest series, got %d", got)
	}
}

func TestCollector_CaseTypeCardinality(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	collector.caseTypes = NewCardinalityLimiter(1)

	collector.ExportCompleted(&export.Result{ReportType: export.ReportTopics, CaseType: "MIN"}, nil)
	collector.ExportCompleted(&export.Result{ReportType: export.ReportTopics, CaseType: "TRO"}, nil)

	if got := testutil.ToFloat64(collector.exportMetrics.exportsTotal.WithLabelValues("TOPICS", otherLabel, StatusSuccess)); got != 1 {
		t.Errorf("expected second case type folded into other, got %v", got)
	}
}

func TestCollector_RecordPrune(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordPrune(42, nil)
	collector.RecordPrune(0, errors.New("locked"))

	if got := testutil.ToFloat64(collector.retentionMetrics.prunedTotal); got != 42 {
		t.Errorf("expected 42 pruned, got %v", got)
	}
	if got := testutil.ToFloat64(collector.retentionMetrics.runsTotal.WithLabelValues(StatusFailed)); got != 1 {
		t.Errorf("expected 1 failed run, got %v", got)
	}
	if testutil.ToFloat64(collector.retentionMetrics.lastPruneTime) == 0 {
		t.Error("expected last prune time to be set")
	}
}

func TestCollector_RecordReferenceSync(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordReferenceSync(true, nil)
	collector.RecordReferenceSync(false, nil)
	collector.RecordReferenceSync(false, errors.New("authentication required"))

	if got := testutil.ToFloat64(collector.referenceMetrics.syncsTotal.WithLabelValues(StatusSuccess)); got != 2 {
		t.Errorf("expected 2 successful syncs, got %v", got)
	}
	if got := testutil.ToFloat64(collector.referenceMetrics.syncsTotal.WithLabelValues(StatusFailed)); got != 1 {
		t.Errorf("expected 1 failed sync, got %v", got)
	}
	if got := testutil.ToFloat64(collector.referenceMetrics.updatesTotal); got != 1 {
		t.Errorf("expected 1 reference update, got %v", got)
	}
}

func TestCollector_RecordIngest(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordIngest("CASE_CREATED", nil)
	collector.RecordIngest("CASE_CREATED", errors.New("invalid"))

	if got := testutil.ToFloat64(collector.ingestMetrics.recordsTotal.WithLabelValues("CASE_CREATED", StatusSuccess)); got != 1 {
		t.Errorf("expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(collector.ingestMetrics.recordsTotal.WithLabelValues("CASE_CREATED", StatusFailed)); got != 1 {
		t.Errorf("expected 1 failure, got %v", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	collector.RecordHTTPRequest("/export", http.MethodGet, http.StatusOK, 50*time.Millisecond)

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `test_export_http_requests_total{code="200",method="GET",route="/export"} 1`) {
		t.Errorf("expected http request series in output:\n%s", rec.Body.String())
	}
}

func TestCardinalityLimiter(t *testing.T) {
	cl := NewCardinalityLimiter(2)

	if !cl.Allow("a") || !cl.Allow("b") {
		t.Fatal("expected first two values to be allowed")
	}
	if cl.Allow("c") {
		t.Error("expected third value to be rejected")
	}
	if !cl.Allow("a") {
		t.Error("expected known value to stay allowed")
	}
	if cl.Count() != 2 {
		t.Errorf("expected count 2, got %d", cl.Count())
	}
}
