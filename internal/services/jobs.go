package services

import (
	"context"
	"path/filepath"
	"strings"

	"finanze/internal/core"
	"finanze/internal/log"
)

// JobListLimit is how many jobs the reports page shows.
const JobListLimit = 20

// JobService queues report exports for the worker.
type JobService struct {
	store     JobStore
	publisher JobPublisher
	exportDir string
	sheets    bool
}

// NewJobService returns a service that publishes new jobs on publisher when
// it is not nil. Jobs targeting Google Sheets are accepted only when sheets is set.
func NewJobService(store JobStore, publisher JobPublisher, exportDir string, sheets bool) *JobService {
	return &JobService{store: store, publisher: publisher, exportDir: exportDir, sheets: sheets}
}

// Enqueue stores a pending job and announces it.
func (s *JobService) Enqueue(ctx context.Context, userID int64, req ReportRequest, format core.Format) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}
	if format == core.FormatSheets && !s.sheets {
		return 0, core.NewValidationError("format", "Google Sheets export is not configured")
	}
	id, err := s.store.CreateJob(ctx, core.ReportJob{
		UserID:     userID,
		ReportType: req.Type,
		Format:     format,
		Start:      req.Start,
		End:        req.End,
	})
	if err != nil {
		return 0, err
	}

	logger := log.FromContext(ctx).WithComponent(log.ComponentJobs)
	if s.publisher != nil {
		// the worker also polls, so a lost message only delays the job
		if err := s.publisher.PublishReportJob(ctx, id); err != nil {
			logger.WarnContext(ctx, "Failed to publish report job", log.FieldJobID, id, log.FieldError, err)
		}
	}
	logger.InfoContext(ctx, "Report job queued",
		log.FieldUserID, userID, log.FieldJobID, id, log.FieldReportType, string(req.Type), log.FieldFormat, string(format))
	return id, nil
}

func (s *JobService) List(ctx context.Context, userID int64) ([]core.ReportJob, error) {
	return s.store.ListUserJobs(ctx, userID, JobListLimit)
}

// Download returns a finished file job of the user and the path of its output.
func (s *JobService) Download(ctx context.Context, userID, jobID int64) (core.ReportJob, string, error) {
	job, err := s.store.GetUserJob(ctx, userID, jobID)
	if err != nil {
		return core.ReportJob{}, "", err
	}
	if job.Status != core.JobDone || job.Format == core.FormatSheets || job.Location == "" {
		return core.ReportJob{}, "", core.ErrNotFound
	}
	path, ok := s.within(job.Location)
	if !ok {
		return core.ReportJob{}, "", core.ErrNotFound
	}
	return job, path, nil
}

// within resolves location and reports whether it lies under the export directory.
func (s *JobService) within(location string) (string, bool) {
	root, err := filepath.Abs(s.exportDir)
	if err != nil {
		return "", false
	}
	path, err := filepath.Abs(location)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return path, true
}
