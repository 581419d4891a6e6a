package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"casework-hq/auditexport/pkg/audit"
)

// CreateAudit is the command raised by a casework service to record an event.
type CreateAudit struct {
	CorrelationID  string          `json:"correlation_id"`
	RaisingService string          `json:"raising_service"`
	Payload        json.RawMessage `json:"audit_payload,omitempty"`
	Namespace      string          `json:"namespace"`
	Type           string          `json:"type"`
	UserID         string          `json:"user_id"`
	CaseUUID       string          `json:"case_uuid,omitempty"`
	Timestamp      *time.Time      `json:"audit_timestamp,omitempty"`
}

// ErrInvalidCommand is wrapped by every CreateAudit validation error.
var ErrInvalidCommand = errors.New("invalid audit command")

// Validate checks that the command carries every mandatory field.
func (c *CreateAudit) Validate() error {
	missing := func(field string) error {
		return fmt.Errorf("%w: %s is required", ErrInvalidCommand, field)
	}
	switch {
	case c.CorrelationID == "":
		return missing("correlation_id")
	case c.RaisingService == "":
		return missing("raising_service")
	case c.Namespace == "":
		return missing("namespace")
	case c.Type == "":
		return missing("type")
	case c.UserID == "":
		return missing("user_id")
	}
	if len(c.Payload) > 0 && !json.Valid(c.Payload) {
		return fmt.Errorf("%w: audit_payload is not valid JSON", ErrInvalidCommand)
	}
	return nil
}

// Config contains configuration for the audit recorder.
type Config struct {
	// AsyncBuffer is the size of the async write channel buffer.
	// Zero makes Record store synchronously and return storage errors.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout is the timeout for writing a record to storage.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		AsyncBuffer:  1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder turns CreateAudit commands into audit records and persists them.
type Recorder struct {
	storage    audit.Storage
	config     *Config
	recordChan chan *audit.AuditRecord
	wg         sync.WaitGroup
	done       chan struct{}
	closeOnce  sync.Once
	logger     *slog.Logger
	now        func() time.Time
}

// NewRecorder creates a new audit recorder with the provided storage backend and configuration.
func NewRecorder(storage audit.Storage, config *Config) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}

	r := &Recorder{
		storage: storage,
		config:  config,
		done:    make(chan struct{}),
		logger:  slog.Default().With("component", "audit.recorder"),
		now:     time.Now,
	}

	if config.AsyncBuffer > 0 {
		r.recordChan = make(chan *audit.AuditRecord, config.AsyncBuffer)
		r.wg.Add(1)
		go r.worker()
	}

	r.logger.Info("audit recorder initialized",
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
	)

	return r
}

// Record validates cmd, assigns an ID and timestamp, and stores the record.
// In async mode it returns once the record is enqueued.
func (r *Recorder) Record(ctx context.Context, cmd *CreateAudit) (*audit.AuditRecord, error) {
	if err := cmd.Validate(); err != nil {
		return nil, audit.NewRecorderError(cmd.CorrelationID, err)
	}

	record := r.createAuditRecord(cmd)

	if r.recordChan == nil {
		if err := r.writeRecord(ctx, record); err != nil {
			return nil, audit.NewRecorderError(cmd.CorrelationID, err)
		}
		return record, nil
	}

	select {
	case <-r.done:
		return nil, audit.NewRecorderError(cmd.CorrelationID, context.Canceled)
	default:
	}

	select {
	case r.recordChan <- record:
		r.logger.Debug("audit record enqueued for writing",
			"record_id", record.ID,
			"correlation_id", record.CorrelationID,
		)
	case <-time.After(r.config.WriteTimeout):
		r.logger.Error("audit record channel full, dropping record",
			"record_id", record.ID,
			"correlation_id", record.CorrelationID,
			"channel_capacity", r.config.AsyncBuffer,
		)
		return nil, audit.NewRecorderError(cmd.CorrelationID, context.DeadlineExceeded)
	case <-r.done:
		return nil, audit.NewRecorderError(cmd.CorrelationID, context.Canceled)
	case <-ctx.Done():
		return nil, audit.NewRecorderError(cmd.CorrelationID, ctx.Err())
	}

	return record, nil
}

// Close drains pending writes and stops the background worker.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.logger.Info("shutting down audit recorder")
		close(r.done)
		r.wg.Wait()
		r.logger.Info("audit recorder shut down complete")
	})
	return nil
}

// worker drains the record channel and writes records to storage.
func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.writeRecord(context.Background(), record)

		case <-r.done:
			r.logger.Info("draining audit channel before shutdown",
				"pending_count", len(r.recordChan),
			)
			for {
				select {
				case record := <-r.recordChan:
					r.writeRecord(context.Background(), record)
				default:
					return
				}
			}
		}
	}
}

// writeRecord writes a single audit record to storage.
func (r *Recorder) writeRecord(ctx context.Context, record *audit.AuditRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.config.WriteTimeout)
	defer cancel()

	start := time.Now()

	if err := r.storage.Store(ctx, record); err != nil {
		r.logger.Error("failed to store audit record",
			"record_id", record.ID,
			"correlation_id", record.CorrelationID,
			"error", err,
		)
		return err
	}

	duration := time.Since(start)
	r.logger.Debug("audit recorded",
		"record_id", record.ID,
		"type", record.Type,
		"duration_ms", duration.Milliseconds(),
	)

	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow audit write",
			"record_id", record.ID,
			"duration_ms", duration.Milliseconds(),
			"threshold_ms", (r.config.WriteTimeout / 2).Milliseconds(),
		)
	}
	return nil
}

func (r *Recorder) createAuditRecord(cmd *CreateAudit) *audit.AuditRecord {
	ts := r.now().UTC()
	if cmd.Timestamp != nil {
		ts = cmd.Timestamp.UTC()
	}

	return &audit.AuditRecord{
		ID:             uuid.New().String(),
		CaseUUID:       cmd.CaseUUID,
		CorrelationID:  cmd.CorrelationID,
		RaisingService: cmd.RaisingService,
		Payload:        string(cmd.Payload),
		Namespace:      cmd.Namespace,
		Timestamp:      ts,
		Type:           cmd.Type,
		UserID:         cmd.UserID,
	}
}
