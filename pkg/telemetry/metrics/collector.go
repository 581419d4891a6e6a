package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"casework-hq/auditexport/pkg/config"
	"casework-hq/auditexport/pkg/export"
)

// Export status label values.
const (
	StatusSuccess  = "success"
	StatusRejected = "rejected"
	StatusFailed   = "failed"
)

// otherLabel replaces label values once a cardinality limit is reached.
const otherLabel = "other"

// Collector owns every Prometheus metric of the audit export service. It
// implements export.Observer so an export.Service can report into it
// directly.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	exportMetrics    *ExportMetrics
	ingestMetrics    *IngestMetrics
	retentionMetrics *RetentionMetrics
	referenceMetrics *ReferenceMetrics
	httpMetrics      *HTTPMetrics

	caseTypes *CardinalityLimiter
}

var _ export.Observer = (*Collector)(nil)

// NewCollector creates a collector registering into registry, or into a new
// registry when registry is nil.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	svc.SetObserver(collector)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = config.DefaultDurationBuckets
	}

	return &Collector{
		config:           cfg,
		registry:         registry,
		exportMetrics:    NewExportMetrics(cfg, registry),
		ingestMetrics:    NewIngestMetrics(cfg, registry),
		retentionMetrics: NewRetentionMetrics(cfg, registry),
		referenceMetrics: NewReferenceMetrics(cfg, registry),
		httpMetrics:      NewHTTPMetrics(cfg, registry),
		caseTypes:        NewCardinalityLimiter(100),
	}
}

// RecordSkipped counts an audit record dropped because its payload could
// not be decoded.
func (c *Collector) RecordSkipped(reportType export.ReportType, err *export.PayloadDecodeError) {
	if !c.config.Enabled {
		return
	}
	c.exportMetrics.RecordSkipped(string(reportType), err.Event)
}

// AdapterFailed counts a failed adapter step.
func (c *Collector) AdapterFailed(reportType export.ReportType, err *export.AdapterConversionError) {
	if !c.config.Enabled {
		return
	}
	c.exportMetrics.RecordAdapterFailure(string(reportType), err.Tag)
}

// ExportCompleted records the outcome of an export. Exports rejected by
// request validation are counted with status "rejected" and no duration.
func (c *Collector) ExportCompleted(result *export.Result, err error) {
	if !c.config.Enabled || result == nil {
		return
	}

	reportType := string(result.ReportType)
	if reportType == "" {
		reportType = "unknown"
	}
	caseType := result.CaseType
	if caseType == "" {
		caseType = "unknown"
	} else if !c.caseTypes.Allow(caseType) {
		caseType = otherLabel
	}

	status := StatusSuccess
	switch {
	case err == nil:
	case export.IsRequestError(err) || isSchemaError(err):
		status = StatusRejected
	default:
		status = StatusFailed
	}

	c.exportMetrics.RecordExport(reportType, caseType, status, result.Rows, result.Duration, status != StatusRejected)
}

func isSchemaError(err error) bool {
	var (
		adapterErr  *export.UnknownAdapterTypeError
		caseTypeErr *export.InvalidCaseTypeError
	)
	return errors.As(err, &adapterErr) || errors.As(err, &caseTypeErr)
}

// RecordIngest counts one ingested audit command.
func (c *Collector) RecordIngest(event string, err error) {
	if !c.config.Enabled {
		return
	}
	c.ingestMetrics.Record(event, err)
}

// RecordPrune records a pruning run. It matches retention.ResultFunc.
func (c *Collector) RecordPrune(deleted int64, err error) {
	if !c.config.Enabled {
		return
	}
	c.retentionMetrics.Record(deleted, err, time.Now())
}

// RecordReferenceSync records a reference repository sync.
func (c *Collector) RecordReferenceSync(referenceChanged bool, err error) {
	if !c.config.Enabled {
		return
	}
	c.referenceMetrics.Record(referenceChanged, err)
}

// RecordHTTPRequest records one served HTTP request.
func (c *Collector) RecordHTTPRequest(route, method string, code int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.httpMetrics.Record(route, method, code, duration)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter caps the number of distinct values a label may take.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter allowing maxCardinality values.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether value may be used as a label value. Values already
// seen are always allowed.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[value]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[value]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[value] = struct{}{}
	return true
}

// Count returns the number of distinct values seen.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
