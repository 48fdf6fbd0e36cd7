package jobs

import (
	"github.com/hibiken/asynq"

	"github.com/locafrota/locafrota/internal/jobmetrics"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBillingGenerate runs the monthly invoice generation.
	TaskBillingGenerate = "billing:generate"
	// TaskOverdueSweep reclassifies pending invoices past their due date.
	TaskOverdueSweep = "billing:overdue_sweep"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// NewBillingGenerateTask creates the Asynq task for invoice generation. The
// job recomputes everything from persisted data, so it carries no payload.
func NewBillingGenerateTask() *asynq.Task {
	return asynq.NewTask(TaskBillingGenerate, nil, asynq.Queue(QueueDefault))
}

// NewOverdueSweepTask creates the Asynq task for the overdue sweep.
func NewOverdueSweepTask() *asynq.Task {
	return asynq.NewTask(TaskOverdueSweep, nil, asynq.Queue(QueueDefault))
}
