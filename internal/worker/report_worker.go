// Package worker runs report exports and periodic housekeeping outside the web server.
package worker

import (
	"context"

	"finanze/internal/amqp"
	"finanze/internal/log"
)

// JobRunner processes one report job by id.
type JobRunner interface {
	Process(ctx context.Context, jobID int64) error
}

// ReportWorker turns queue notifications into job runs.
type ReportWorker struct {
	runner JobRunner
}

func NewReportWorker(runner JobRunner) *ReportWorker {
	return &ReportWorker{runner: runner}
}

// HandleReportJob processes the announced job. A returned error requeues the message.
func (w *ReportWorker) HandleReportJob(ctx context.Context, msg *amqp.ReportJobMessage) error {
	log.FromContext(ctx).WithComponent(log.ComponentWorker).DebugContext(ctx, "Processing report job message",
		log.FieldJobID, msg.JobID, "published_at", msg.Timestamp)
	return w.runner.Process(ctx, msg.JobID)
}
