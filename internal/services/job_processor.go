package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"finanze/internal/core"
	"finanze/internal/log"
	"finanze/internal/report"
)

// SheetsWriter appends a report to a spreadsheet and returns a reference to it.
type SheetsWriter interface {
	AppendReport(ctx context.Context, jobID int64, d report.Data) (string, error)
}

// JobProcessorConfig holds configuration for the job processor
type JobProcessorConfig struct {
	// PollInterval is how often to check for pending jobs (default: 10s)
	PollInterval time.Duration

	// BatchSize is the max number of jobs to process per poll cycle (default: 10)
	BatchSize int

	// MaxAttempts is how many times a job runs before it is marked failed (default: 3)
	MaxAttempts int

	// StaleAfter returns jobs stuck in processing to pending (default: 15m)
	StaleAfter time.Duration

	// ExportDir is where rendered files are written, one directory per user.
	ExportDir string
}

// DefaultJobProcessorConfig returns sensible defaults
func DefaultJobProcessorConfig() JobProcessorConfig {
	return JobProcessorConfig{
		PollInterval: 10 * time.Second,
		BatchSize:    10,
		MaxAttempts:  3,
		StaleAfter:   15 * time.Minute,
		ExportDir:    "data/exports",
	}
}

// JobProcessor renders queued report exports.
type JobProcessor struct {
	queue   JobQueue
	reports *ReportService
	sheets  SheetsWriter
	config  JobProcessorConfig
	now     func() time.Time

	// one job at a time, whether polled or pushed
	work sync.Mutex

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewJobProcessor creates a processor. sheets may be nil when no
// spreadsheet is configured; such jobs then fail.
func NewJobProcessor(queue JobQueue, reports *ReportService, sheets SheetsWriter, config JobProcessorConfig) *JobProcessor {
	def := DefaultJobProcessorConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = def.MaxAttempts
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = def.StaleAfter
	}
	if config.ExportDir == "" {
		config.ExportDir = def.ExportDir
	}
	return &JobProcessor{queue: queue, reports: reports, sheets: sheets, config: config, now: time.Now}
}

func (p *JobProcessor) logger(ctx context.Context) *log.Logger {
	return log.FromContext(ctx).WithComponent(log.ComponentWorker)
}

// Start begins the polling loop. Returns an error if already running.
func (p *JobProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("job processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	p.ResetStale(ctx)

	go p.runLoop(ctx)

	p.logger(ctx).InfoContext(ctx, "Job processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *JobProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		p.logger(ctx).InfoContext(ctx, "Job processor stopped gracefully")
	case <-ctx.Done():
		p.logger(ctx).WarnContext(ctx, "Job processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

// IsRunning returns whether the processor is currently running
func (p *JobProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *JobProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.ProcessPending(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessPending(ctx)
		}
	}
}

// ResetStale puts jobs abandoned in processing back to pending.
func (p *JobProcessor) ResetStale(ctx context.Context) {
	n, err := p.queue.ResetStaleJobs(ctx, p.now().Add(-p.config.StaleAfter))
	if err != nil {
		p.logger(ctx).WarnContext(ctx, "Failed to reset stale jobs", log.FieldError, err)
		return
	}
	if n > 0 {
		p.logger(ctx).InfoContext(ctx, "Reset stale jobs", log.FieldCount, n)
	}
}

// ProcessPending runs one batch of pending jobs, oldest first.
func (p *JobProcessor) ProcessPending(ctx context.Context) {
	jobs, err := p.queue.PendingJobs(ctx, p.config.BatchSize)
	if err != nil {
		p.logger(ctx).ErrorContext(ctx, "Failed to list pending jobs", log.FieldError, err)
		return
	}
	for _, j := range jobs {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}
		if err := p.Process(ctx, j.ID); err != nil {
			p.logger(ctx).ErrorContext(ctx, "Failed to process job", log.FieldJobID, j.ID, log.FieldError, err)
		}
	}
}

// Process claims and runs one job. A job that is gone or already taken is
// skipped. Export failures are recorded on the job; only queue errors are returned.
func (p *JobProcessor) Process(ctx context.Context, jobID int64) error {
	p.work.Lock()
	defer p.work.Unlock()

	job, claimed, err := p.queue.ClaimJob(ctx, jobID)
	if err != nil {
		return err
	}
	if !claimed {
		p.logger(ctx).DebugContext(ctx, "Job not pending, skipping", log.FieldJobID, jobID)
		return nil
	}

	logger := p.logger(ctx).With(log.FieldJobID, job.ID, log.FieldUserID, job.UserID,
		log.FieldReportType, string(job.ReportType), log.FieldFormat, string(job.Format), log.FieldAttempt, job.Attempts)
	start := p.now()

	location, exportErr := p.export(ctx, job)
	if exportErr != nil {
		status, err := p.queue.FailJob(ctx, job.ID, exportErr.Error(), p.config.MaxAttempts)
		if err != nil {
			return err
		}
		logger.WarnContext(ctx, "Report export failed", log.FieldError, exportErr, "status", string(status))
		return nil
	}
	if err := p.queue.CompleteJob(ctx, job.ID, location); err != nil {
		return err
	}
	logger.InfoContext(ctx, "Report exported",
		log.FieldLocation, location, log.FieldDuration, p.now().Sub(start).Milliseconds())
	return nil
}

func (p *JobProcessor) export(ctx context.Context, job core.ReportJob) (string, error) {
	d, err := p.reports.Build(ctx, job.UserID, ReportRequest{Type: job.ReportType, Start: job.Start, End: job.End})
	if err != nil {
		return "", fmt.Errorf("build report: %w", err)
	}
	if job.Format == core.FormatSheets {
		if p.sheets == nil {
			return "", fmt.Errorf("google sheets export is not configured")
		}
		return p.sheets.AppendReport(ctx, job.ID, d)
	}
	r, err := report.ForFormat(job.Format)
	if err != nil {
		return "", err
	}
	return p.writeFile(job, r, d)
}

// writeFile renders into a temp file beside the target and renames it into place.
func (p *JobProcessor) writeFile(job core.ReportJob, r report.Renderer, d report.Data) (string, error) {
	dir := filepath.Join(p.config.ExportDir, strconv.FormatInt(job.UserID, 10))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := r.Render(tmp, d); err != nil {
		tmp.Close()
		return "", fmt.Errorf("render %s: %w", r.Extension(), err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close export: %w", err)
	}

	name := fmt.Sprintf("%d_%s", job.ID, report.FileName(job.ReportType, job.Start, job.End, r.Extension()))
	path := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("move export: %w", err)
	}
	return path, nil
}
