package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/locafrota/locafrota/internal/jobmetrics"
)

// OverdueSweeper describes the behaviour required to reclassify overdue
// invoices.
type OverdueSweeper interface {
	MarkOverdueInvoices(ctx context.Context) (int64, error)
}

// OverdueSweepJob coordinates the scheduled overdue sweep.
type OverdueSweepJob struct {
	Service OverdueSweeper
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewOverdueSweepJob constructs the job handler.
func NewOverdueSweepJob(service OverdueSweeper, logger *slog.Logger, metrics *jobmetrics.Metrics) *OverdueSweepJob {
	return &OverdueSweepJob{
		Service: service,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the overdue sweep job.
func (j *OverdueSweepJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("overdue sweep: dependencies not configured")
	}

	tracker := j.metrics().Track(TaskOverdueSweep)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	start := j.now()
	marked, err := j.Service.MarkOverdueInvoices(ctx)
	if err != nil {
		resultErr = err
		j.log().Error("mark overdue invoices", slog.Any("error", err))
		return resultErr
	}

	j.metrics().AddOverdue(marked)
	j.log().Info("swept overdue invoices",
		slog.Int64("marked", marked),
		slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *OverdueSweepJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *OverdueSweepJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskOverdueSweep))
	}
	return slog.Default().With(slog.String("job", TaskOverdueSweep))
}

func (j *OverdueSweepJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *OverdueSweepJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}
