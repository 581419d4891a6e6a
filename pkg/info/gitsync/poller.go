package gitsync

import (
	"context"
	"log/slog"
	"time"
)

// SyncFunc observes the outcome of a poll.
type SyncFunc func(result *SyncResult, err error)

// Poller pulls the repository on a fixed interval.
type Poller struct {
	repo     *Repository
	interval time.Duration
	onSync   SyncFunc
	logger   *slog.Logger
}

// NewPoller creates a poller. A non-positive interval makes Run return
// immediately.
func NewPoller(repo *Repository, interval time.Duration) *Poller {
	return &Poller{
		repo:     repo,
		interval: interval,
		logger:   slog.Default().With("component", "reference.git.poller"),
	}
}

// OnSync registers fn to be called after every poll. Call before Run.
func (p *Poller) OnSync(fn SyncFunc) {
	p.onSync = fn
}

// Run polls until ctx is cancelled. Pull failures are logged and the
// previous checkout stays in place.
func (p *Poller) Run(ctx context.Context) error {
	if p.interval <= 0 {
		return nil
	}

	p.logger.Info("reference polling started", "poll_interval", p.interval)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("reference polling stopped")
			return nil
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll runs a single sync.
func (p *Poller) Poll(ctx context.Context) {
	result, err := p.repo.Sync(ctx)
	if err != nil {
		p.logger.Error("reference sync failed", "error", err)
	}
	if p.onSync != nil {
		p.onSync(result, err)
	}
}
