package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/locafrota/locafrota/internal/billing"
	"github.com/locafrota/locafrota/internal/jobmetrics"
)

// BillingGenerator describes the behaviour required to produce the monthly
// invoices.
type BillingGenerator interface {
	GenerateMonthlyInvoices(ctx context.Context) (billing.GenerateResult, error)
}

// BillingGenerateJob coordinates the scheduled invoice generation run.
type BillingGenerateJob struct {
	Service BillingGenerator
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewBillingGenerateJob constructs the job handler.
func NewBillingGenerateJob(service BillingGenerator, logger *slog.Logger, metrics *jobmetrics.Metrics) *BillingGenerateJob {
	return &BillingGenerateJob{
		Service: service,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the billing generation job.
func (j *BillingGenerateJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("billing generate: dependencies not configured")
	}

	tracker := j.metrics().Track(TaskBillingGenerate)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	start := j.now()
	result, err := j.Service.GenerateMonthlyInvoices(ctx)
	if err != nil {
		resultErr = err
		j.log().Error("generate monthly invoices", slog.Any("error", err))
		return resultErr
	}
	if result.AlreadyRunning {
		j.log().Info("billing run already held elsewhere", slog.String("reference_month", result.ReferenceMonth))
		return resultErr
	}

	j.metrics().AddInvoices(result.Created, result.Skipped)
	j.log().Info("generated monthly invoices",
		slog.String("reference_month", result.ReferenceMonth),
		slog.Int("created", result.Created),
		slog.Int("skipped", result.Skipped),
		slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *BillingGenerateJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *BillingGenerateJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskBillingGenerate))
	}
	return slog.Default().With(slog.String("job", TaskBillingGenerate))
}

func (j *BillingGenerateJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *BillingGenerateJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}
