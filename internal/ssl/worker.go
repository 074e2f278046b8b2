package ssl

import (
	"context"
	"time"

	"github.com/ksyq12/sslops/internal/logger"
)

// DefaultSweepInterval is how often RenewWorker sweeps when no interval is set.
const DefaultSweepInterval = 12 * time.Hour

// RenewWorker runs Sweep on a fixed interval.
type RenewWorker struct {
	manager  *Manager
	interval time.Duration

	// OnSweep, if set, is called after every sweep.
	OnSweep func(*SweepReport, error)
}

// NewRenewWorker creates a worker. interval <= 0 uses DefaultSweepInterval.
func NewRenewWorker(m *Manager, interval time.Duration) *RenewWorker {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &RenewWorker{manager: m, interval: interval}
}

// Run sweeps immediately and then on every tick until ctx is cancelled.
func (w *RenewWorker) Run(ctx context.Context) {
	logger.Info("renew worker started (interval=%s)", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.tick(ctx)

	for {
		select {
		case <-ticker.C:
			w.tick(ctx)
		case <-ctx.Done():
			logger.Info("renew worker stopped")
			return
		}
	}
}

func (w *RenewWorker) tick(ctx context.Context) {
	report, err := w.manager.Sweep(ctx)
	if err != nil {
		logger.LogError(err, "sweep")
	} else {
		for _, f := range report.Failed {
			logger.WarnFields("renewal failed", map[string]interface{}{
				"sweep_id": report.ID,
				"domain":   f.Domain,
				"error":    f.Err.Error(),
			})
		}
	}
	if w.OnSweep != nil {
		w.OnSweep(report, err)
	}
}
