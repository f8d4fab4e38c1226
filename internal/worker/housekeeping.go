package worker

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"finanze/internal/log"
)

// HousekeepingStore removes expired rows.
type HousekeepingStore interface {
	PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error)
	PurgeFinishedJobs(ctx context.Context, cutoff time.Time) ([]string, error)
}

// Schedules of the housekeeping jobs, in cron descriptor syntax.
const (
	SessionPurgeSchedule = "@hourly"
	JobPurgeSchedule     = "@daily"
)

// Housekeeping purges expired sessions and old finished exports on a cron schedule.
type Housekeeping struct {
	store     HousekeepingStore
	retention time.Duration
	logger    *log.Logger
	cron      *cron.Cron
	now       func() time.Time
	extra     []scheduled
}

type scheduled struct {
	spec string
	fn   func(context.Context)
}

// NewHousekeeping keeps finished jobs and their files for retention.
func NewHousekeeping(store HousekeepingStore, retention time.Duration, logger *log.Logger) *Housekeeping {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	logger = logger.WithComponent(log.ComponentCron)
	return &Housekeeping{
		store:     store,
		retention: retention,
		logger:    logger,
		cron:      cron.New(cron.WithLogger(cronLogger{logger}), cron.WithChain(cron.Recover(cronLogger{logger}))),
		now:       time.Now,
	}
}

// Start registers the schedules and starts the cron runner.
func (h *Housekeeping) Start(ctx context.Context) error {
	if _, err := h.cron.AddFunc(SessionPurgeSchedule, func() { h.PurgeSessions(ctx) }); err != nil {
		return err
	}
	if _, err := h.cron.AddFunc(JobPurgeSchedule, func() { h.PurgeJobs(ctx) }); err != nil {
		return err
	}
	for _, e := range h.extra {
		fn := e.fn
		if _, err := h.cron.AddFunc(e.spec, func() { fn(ctx) }); err != nil {
			return err
		}
	}
	h.cron.Start()
	h.logger.InfoContext(ctx, "Housekeeping scheduled",
		"sessions", SessionPurgeSchedule, "jobs", JobPurgeSchedule, "job_retention", h.retention)
	return nil
}

// Add schedules fn alongside the purge jobs. It must be called before Start.
func (h *Housekeeping) Add(spec string, fn func(ctx context.Context)) {
	h.extra = append(h.extra, scheduled{spec: spec, fn: fn})
}

// Stop waits for running jobs or ctx, whichever ends first.
func (h *Housekeeping) Stop(ctx context.Context) error {
	done := h.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PurgeSessions deletes expired sessions.
func (h *Housekeeping) PurgeSessions(ctx context.Context) {
	n, err := h.store.PurgeExpiredSessions(ctx, h.now())
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to purge sessions", log.FieldError, err, log.FieldOperation, log.OpPurge)
		return
	}
	h.logger.InfoContext(ctx, "Expired sessions purged", log.FieldCount, n)
}

// PurgeJobs deletes finished jobs older than the retention and their files.
func (h *Housekeeping) PurgeJobs(ctx context.Context) {
	locations, err := h.store.PurgeFinishedJobs(ctx, h.now().Add(-h.retention))
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to purge jobs", log.FieldError, err, log.FieldOperation, log.OpPurge)
		return
	}
	removed := 0
	for _, loc := range locations {
		err := os.Remove(loc)
		switch {
		case err == nil:
			removed++
		case errors.Is(err, os.ErrNotExist):
		default:
			h.logger.WarnContext(ctx, "Failed to remove export", log.FieldLocation, loc, log.FieldError, err)
		}
	}
	h.logger.InfoContext(ctx, "Finished jobs purged", log.FieldCount, len(locations), "files_removed", removed)
}

// cronLogger adapts log.Logger to cron.Logger.
type cronLogger struct {
	l *log.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, log.FieldError, err)...)
}
