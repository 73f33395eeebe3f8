package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"clima/internal/domain/catalog"
	"clima/internal/platform/metrics"
)

const (
	JobPeriodSweep    = "period_sweep"
	JobRetentionSweep = "retention_sweep"
)

// Replayed submissions only need protection within a realistic retry
// horizon; older idempotency keys are noise.
const idempotencyRetention = 7 * 24 * time.Hour

// KeyPruner deletes stale idempotency keys. Implemented by the transport
// layer's idempotency store.
type KeyPruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// Service runs background work on a single queue and records every run in
// job_runs so operators can see what happened and when.
type Service struct {
	DB      *pgxpool.Pool
	Catalog *catalog.Service
	Metrics *metrics.Collector
	Keys    KeyPruner
	queue   chan job
}

type job struct {
	Type string
	Run  func(context.Context) (any, error)
}

func New(db *pgxpool.Pool, catalogSvc *catalog.Service, collector *metrics.Collector, keys KeyPruner) *Service {
	return &Service{
		DB:      db,
		Catalog: catalogSvc,
		Metrics: collector,
		Keys:    keys,
		queue:   make(chan job, 128),
	}
}

// Start launches the worker plus, when sweepInterval is positive, a ticker
// that enqueues the periodic sweeps. Tests pass a zero interval and trigger
// runs explicitly.
func (s *Service) Start(ctx context.Context, sweepInterval time.Duration) {
	go s.worker(ctx)
	if sweepInterval > 0 {
		go s.scheduleSweeps(ctx, sweepInterval)
	}
}

func (s *Service) Enqueue(jobType string, run func(context.Context) (any, error)) {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType)
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

// runJob brackets the work with a job_runs row. Bookkeeping failures are
// logged, never allowed to fail the job itself.
func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	err := s.DB.QueryRow(ctx,
		`INSERT INTO job_runs (job_type, status) VALUES ($1, 'running') RETURNING id`,
		j.Type).Scan(&runID)
	if err != nil {
		slog.Warn("job run insert failed", "jobType", j.Type, "err", err)
	}

	details, runErr := j.Run(ctx)

	status := "completed"
	if runErr != nil {
		status = "failed"
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		slog.Warn("job details marshal failed", "jobType", j.Type, "err", err)
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		_, err = s.DB.Exec(ctx,
			`UPDATE job_runs SET status = $1, details_json = $2, completed_at = now() WHERE id = $3`,
			status, detailsJSON, runID)
		if err != nil {
			slog.Warn("job run update failed", "jobType", j.Type, "err", err)
		}
	}
	return details, runErr
}

// RunPeriodSweep runs the sweep immediately instead of waiting for the
// ticker. Operators use it after fixing period dates by hand.
func (s *Service) RunPeriodSweep(ctx context.Context) (any, error) {
	return s.RunNow(ctx, JobPeriodSweep, s.periodSweep)
}

// RunRetentionSweep prunes expired idempotency keys and old job history now.
func (s *Service) RunRetentionSweep(ctx context.Context) (any, error) {
	return s.RunNow(ctx, JobRetentionSweep, s.retentionSweep)
}

// periodSweep closes active periods whose end date has passed, so late
// submissions cannot bind to a period that is already over.
func (s *Service) periodSweep(ctx context.Context) (any, error) {
	closed, err := s.Catalog.CloseExpiredPeriods(ctx, time.Now())
	if err == nil && closed > 0 {
		slog.Info("expired periods closed", "count", closed)
		if s.Metrics != nil {
			s.Metrics.RecordPeriodsClosed(closed)
		}
	}
	return map[string]any{"closed": closed}, err
}

func (s *Service) retentionSweep(ctx context.Context) (any, error) {
	prunedKeys := 0
	if s.Keys != nil {
		n, err := s.Keys.PruneBefore(ctx, time.Now().Add(-idempotencyRetention))
		if err != nil {
			return map[string]any{"prunedKeys": prunedKeys}, err
		}
		prunedKeys = n
	}

	// Completed run history older than a quarter is never consulted.
	tag, err := s.DB.Exec(ctx,
		`DELETE FROM job_runs WHERE started_at < $1 AND status <> 'running'`,
		time.Now().AddDate(0, -3, 0))
	details := map[string]any{"prunedKeys": prunedKeys, "prunedRuns": int(tag.RowsAffected())}
	if prunedKeys > 0 || tag.RowsAffected() > 0 {
		slog.Info("retention sweep pruned", "keys", prunedKeys, "runs", tag.RowsAffected())
	}
	return details, err
}

func (s *Service) scheduleSweeps(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(JobPeriodSweep, s.periodSweep)
			s.Enqueue(JobRetentionSweep, s.retentionSweep)
		}
	}
}
