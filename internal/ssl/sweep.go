package ssl

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ksyq12/sslops/internal/errors"
	"github.com/ksyq12/sslops/internal/logger"
	"github.com/ksyq12/sslops/internal/model"
)

// SweepFailure is a domain the sweep could not renew.
type SweepFailure struct {
	Domain string
	Err    error
}

// SweepReport summarises one sweep.
type SweepReport struct {
	ID         string
	StartedAt  time.Time
	Duration   time.Duration
	Candidates int
	Renewed    []string
	Failed     []SweepFailure
}

// Sweep renews every domain whose certificate expires within the renew
// window. Each domain is attempted once, independently of the others. The
// only error returned is a failure to list candidates.
func (m *Manager) Sweep(ctx context.Context) (*SweepReport, error) {
	start := m.now()
	report := &SweepReport{ID: uuid.NewString(), StartedAt: start}

	candidates, err := m.store.ListRenewable(ctx, start, m.cfg.RenewWindow)
	if err != nil {
		if errors.CodeOf(err) != errors.ErrCodeStore {
			err = errors.Wrap(errors.ErrCodeStore, "failed to list renewable domains", err)
		}
		return nil, err
	}

	due := make([]*model.Domain, 0, len(candidates))
	for _, d := range candidates {
		if d.RenewalDue(start, m.cfg.RenewWindow) {
			due = append(due, d)
		}
	}
	report.Candidates = len(due)

	logger.InfoFields("sweep started", map[string]interface{}{
		"sweep_id":    report.ID,
		"candidates":  len(due),
		"concurrency": m.cfg.SweepConcurrency,
	})

	results := make([]error, len(due))
	var g errgroup.Group
	g.SetLimit(m.cfg.SweepConcurrency)
	for i, d := range due {
		g.Go(func() error {
			results[i] = m.Renew(ctx, d)
			return nil
		})
	}
	_ = g.Wait()

	for i, d := range due {
		if results[i] != nil {
			report.Failed = append(report.Failed, SweepFailure{Domain: d.Name, Err: results[i]})
			continue
		}
		report.Renewed = append(report.Renewed, d.Name)
	}
	report.Duration = m.now().Sub(start)
	m.metrics.ObserveSweep(len(report.Renewed), len(report.Failed))

	logger.InfoFields("sweep finished", map[string]interface{}{
		"sweep_id": report.ID,
		"renewed":  len(report.Renewed),
		"failed":   len(report.Failed),
		"duration": report.Duration.String(),
	})
	return report, nil
}
