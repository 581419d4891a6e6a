package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"casework-hq/auditexport/pkg/audit"
	"casework-hq/auditexport/pkg/audit/query"
	"casework-hq/auditexport/pkg/info"
	"casework-hq/auditexport/pkg/telemetry/logging"
	"casework-hq/auditexport/pkg/telemetry/tracing"
)

const (
	// DateLayout is the layout of export range dates.
	DateLayout = "2006-01-02"

	// TimestampLayout is the layout of the timestamp column.
	TimestampLayout = "2006-01-02T15:04:05.999999"

	tracerName = "casework-hq/auditexport/pkg/export"
)

// InfoService supplies case types, export field schemas and the user and
// team directories.
type InfoService interface {
	CaseTypes(ctx context.Context) ([]info.CaseType, error)
	ExportFields(ctx context.Context, caseTypeCode string) ([]info.FieldDefinition, error)
	Users(ctx context.Context) ([]info.User, error)
	Teams(ctx context.Context) ([]info.Team, error)
}

// CaseworkService supplies the case topic directory.
type CaseworkService interface {
	CaseTopics(ctx context.Context) ([]info.Topic, error)
}

// Observer is notified of per-record problems and finished exports.
// Implementations must be safe for concurrent use.
type Observer interface {
	RecordSkipped(reportType ReportType, err *PayloadDecodeError)
	AdapterFailed(reportType ReportType, err *AdapterConversionError)
	ExportCompleted(result *Result, err error)
}

type nopObserver struct{}

func (nopObserver) RecordSkipped(ReportType, *PayloadDecodeError)     {}
func (nopObserver) AdapterFailed(ReportType, *AdapterConversionError) {}
func (nopObserver) ExportCompleted(*Result, error)                    {}

// Config contains export service configuration.
type Config struct {
	// FlushInterval is the number of rows between output flushes.
	FlushInterval int

	// Location is the time zone export dates and timestamps are read in.
	// Defaults to UTC.
	Location *time.Location
}

// DefaultConfig returns the default export configuration.
func DefaultConfig() *Config {
	return &Config{
		FlushInterval: DefaultFlushInterval,
		Location:      time.UTC,
	}
}

// Request describes one export. From and Through are dates; the time of day
// is ignored and Through covers the whole day.
type Request struct {
	From       time.Time
	Through    time.Time
	CaseType   string
	ReportType string
}

// Result summarizes a finished export.
type Result struct {
	ExportID        string
	ReportType      ReportType
	CaseType        string
	Rows            int
	Skipped         int
	AdapterFailures int
	Duration        time.Duration
}

// Service runs CSV exports over the audit store.
type Service struct {
	store    audit.Storage
	info     InfoService
	casework CaseworkService
	config   *Config
	observer Observer
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewService creates an export service.
func NewService(store audit.Storage, infoService InfoService, casework CaseworkService, config *Config) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = DefaultFlushInterval
	}

	return &Service{
		store:    store,
		info:     infoService,
		casework: casework,
		config:   config,
		observer: nopObserver{},
		tracer:   otel.Tracer(tracerName),
		logger:   slog.Default().With("component", "export"),
	}
}

// SetObserver replaces the service's observer. Must be called before the
// first export.
func (s *Service) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	s.observer = o
}

// Export validates req and writes the report to w. Request and schema errors
// are returned before anything is written.
func (s *Service) Export(ctx context.Context, req *Request, w io.Writer) (*Result, error) {
	job, err := s.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return job.WriteTo(ctx, w)
}

// Prepare validates the request and resolves everything the export needs
// before output starts: the case type, the report rule, the column schema
// and, for case data, the adapter chains.
func (s *Service) Prepare(ctx context.Context, req *Request) (*Job, error) {
	job := &Job{
		ID:      uuid.New().String(),
		service: s,
		started: time.Now(),
	}
	ctx = logging.WithExportID(ctx, job.ID)

	ctx, span := s.tracer.Start(ctx, "export.prepare",
		trace.WithAttributes(tracing.ExportAttributes(job.ID, req.CaseType, req.ReportType)...))
	defer span.End()

	if err := job.prepare(ctx, req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.WarnContext(ctx, "export rejected",
			"case_type", req.CaseType,
			"report_type", req.ReportType,
			"error", err)
		s.observer.ExportCompleted(job.result(), err)
		return nil, err
	}

	return job, nil
}

// Job is a prepared export. It is written at most once.
type Job struct {
	ID string

	service   *Service
	rule      *ReportRule
	caseType  info.CaseType
	schema    *Schema
	converter *Converter
	query     *audit.Query
	from      time.Time
	through   time.Time
	started   time.Time

	rows            int
	skipped         int
	adapterFailures int
}

func (j *Job) prepare(ctx context.Context, req *Request) error {
	s := j.service
	loc := s.config.Location

	j.from = startOfDay(req.From, loc)
	j.through = startOfDay(req.Through, loc)
	if j.from.After(j.through) {
		return NewInvalidRangeError(j.from, j.through)
	}

	caseTypes, err := s.info.CaseTypes(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch case types: %w", err)
	}
	caseType, ok := findCaseType(caseTypes, req.CaseType)
	if !ok {
		return NewUnknownCaseTypeError(req.CaseType)
	}
	shortCode, err := normalizeShortCode(caseType)
	if err != nil {
		return err
	}
	caseType.ShortCode = shortCode
	j.caseType = caseType

	reportType, err := ParseReportType(req.ReportType)
	if err != nil {
		return err
	}
	if j.rule, err = RuleFor(reportType); err != nil {
		return err
	}

	if j.schema, err = ResolveSchema(ctx, j.rule, caseType, s.info); err != nil {
		return err
	}

	if j.rule.Dynamic {
		registry, err := LoadRegistry(ctx, s.info, s.casework)
		if err != nil {
			return err
		}
		if j.converter, err = NewConverter(j.schema.Fields, registry); err != nil {
			return err
		}
		j.converter.OnFailure(func(convErr *AdapterConversionError) {
			j.adapterFailures++
			s.observer.AdapterFailed(j.rule.Type, convErr)
		})
	}

	start := j.from
	end := endOfDay(j.through)
	j.query = &audit.Query{
		StartTime:         &start,
		EndTime:           &end,
		Types:             j.rule.Events,
		CaseTypeShortCode: caseType.ShortCode,
	}
	query.ApplyDefaults(j.query)
	return query.Validate(j.query)
}

// Header returns the CSV header the job will write.
func (j *Job) Header() []string {
	return j.schema.Header()
}

// Filename returns a download name for the report.
func (j *Job) Filename() string {
	return fmt.Sprintf("%s-%s-%s-%s.csv",
		strings.ToLower(j.caseType.Type),
		strings.ToLower(string(j.rule.Type)),
		j.from.Format(DateLayout),
		j.through.Format(DateLayout))
}

// WriteTo streams the report to w in a single pass over the matching records.
// If w fails the record stream is cancelled and the error returned; bytes
// already written are left intact.
func (j *Job) WriteTo(ctx context.Context, w io.Writer) (*Result, error) {
	s := j.service
	ctx = logging.WithExportID(ctx, j.ID)
	ctx = logging.WithCaseType(ctx, j.caseType.Type)
	ctx = logging.WithReportType(ctx, string(j.rule.Type))

	ctx, span := s.tracer.Start(ctx, "export.write",
		trace.WithAttributes(tracing.ExportAttributes(j.ID, j.caseType.Type, string(j.rule.Type))...),
		trace.WithAttributes(
			attribute.String(tracing.AttrRangeFrom, j.from.Format(DateLayout)),
			attribute.String(tracing.AttrRangeThrough, j.through.Format(DateLayout)),
		))
	defer span.End()

	// Stops the store's stream goroutine on every return path.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.logger.InfoContext(ctx, "export started",
		"from", j.from.Format(DateLayout),
		"through", j.through.Format(DateLayout))

	err := j.write(ctx, w)
	result := j.result()

	tracing.SetExportCounts(span, result.Rows, result.Skipped, result.AdapterFailures)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.ErrorContext(ctx, "export failed", "rows", result.Rows, "error", err)
	} else {
		s.logger.InfoContext(ctx, "export completed",
			"rows", result.Rows,
			"skipped", result.Skipped,
			"adapter_failures", result.AdapterFailures,
			"duration", result.Duration)
	}

	s.observer.ExportCompleted(result, err)
	return result, err
}

func (j *Job) write(ctx context.Context, w io.Writer) error {
	s := j.service

	recordsCh, errCh, err := s.store.QueryStream(ctx, j.query)
	if err != nil {
		return fmt.Errorf("failed to query audit records: %w", err)
	}

	out := NewCSVWriter(w, s.config.FlushInterval)
	if err := out.WriteHeader(j.Header()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	decoder := NewDecoder(j.rule, s.config.Location)
	for record := range recordsCh {
		row, err := decoder.Decode(record)
		if err != nil {
			var decodeErr *PayloadDecodeError
			if errors.As(err, &decodeErr) {
				j.skipped++
				s.logger.WarnContext(ctx, "skipping audit record with malformed payload",
					"record_id", record.ID,
					"event", record.Type,
					"error", decodeErr.Cause)
				s.observer.RecordSkipped(j.rule.Type, decodeErr)
				continue
			}
			return err
		}

		values := row.Values
		if j.converter != nil {
			values = append(values, j.converter.Row(row.Data)...)
		}
		if err := out.WriteRow(values); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
		j.rows++
	}

	if err := <-errCh; err != nil {
		return fmt.Errorf("audit record stream failed: %w", err)
	}

	if err := out.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	return nil
}

func (j *Job) result() *Result {
	r := &Result{
		ExportID:        j.ID,
		CaseType:        j.caseType.Type,
		Rows:            j.rows,
		Skipped:         j.skipped,
		AdapterFailures: j.adapterFailures,
		Duration:        time.Since(j.started),
	}
	if j.rule != nil {
		r.ReportType = j.rule.Type
	}
	return r
}

func findCaseType(caseTypes []info.CaseType, code string) (info.CaseType, bool) {
	code = strings.TrimSpace(code)
	for _, ct := range caseTypes {
		if strings.EqualFold(ct.Type, code) {
			return ct, true
		}
	}
	return info.CaseType{}, false
}

// normalizeShortCode lower-cases the short code of ct. An empty code would
// leave the query unfiltered and select every case type's records, so it is
// rejected along with codes of the wrong length.
func normalizeShortCode(ct info.CaseType) (string, error) {
	code := strings.ToLower(strings.TrimSpace(ct.ShortCode))
	switch {
	case code == "":
		return "", NewInvalidCaseTypeError(ct.Type, ct.ShortCode, "short code is empty")
	case len(code) != audit.ShortCodeLength:
		return "", NewInvalidCaseTypeError(ct.Type, ct.ShortCode,
			fmt.Sprintf("short code must be %d characters", audit.ShortCodeLength))
	}
	return code, nil
}

// startOfDay returns midnight in loc of t's calendar date.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// endOfDay returns the last microsecond of the day starting at t.
func endOfDay(t time.Time) time.Time {
	return t.AddDate(0, 0, 1).Add(-time.Microsecond)
}

// ParseDate parses an export range date.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected %s): %w", s, DateLayout, err)
	}
	return t, nil
}
