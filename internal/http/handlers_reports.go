package http

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"finanze/internal/core"
	"finanze/internal/log"
	"finanze/internal/report"
)

type reportsView struct {
	Start         string
	End           string
	Jobs          []core.ReportJob
	SheetsEnabled bool
	Error         string
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	id, _ := identity(r)
	first, last := core.MonthBounds(s.now())
	view := reportsView{
		Start:         first.String(),
		End:           last.String(),
		SheetsEnabled: s.opts.SheetsEnabled,
	}
	jobs, err := s.svc.Jobs.List(r.Context(), id.UserID)
	if err != nil {
		s.logFailure(r, log.ComponentJobs, log.OpList, err)
		view.Error = userMessage(err)
	}
	view.Jobs = jobs
	s.render(w, r, http.StatusOK, "reports.html", "Reports", "reports", view)
}

// handleReportAction streams a report directly or queues it for the worker.
func (s *Server) handleReportAction(w http.ResponseWriter, r *http.Request) {
	if errResp := ParseFormOrFail(r); errResp != nil {
		errResp.Write(w)
		return
	}
	id, _ := identity(r)
	ctx := r.Context()

	req, format, err := ParseReportRequest(r.PostForm)
	if err != nil {
		s.fail(w, r, "/reports", err)
		return
	}

	if formValue(r, "action") == "queue" {
		jobID, err := s.svc.Jobs.Enqueue(ctx, id.UserID, req, format)
		if err != nil {
			s.logFailure(r, log.ComponentJobs, log.OpEnqueue, err)
			s.fail(w, r, "/reports", err)
			return
		}
		atomic.AddInt64(&s.metrics.jobsQueued, 1)
		s.done(w, r, "/reports", fmt.Sprintf("Report queued as job #%d.", jobID))
		return
	}

	if format == core.FormatSheets {
		s.fail(w, r, "/reports", core.NewValidationError("format", "Google Sheets exports run in the background, queue them instead"))
		return
	}
	var buf bytes.Buffer
	renderer, err := s.svc.Reports.Render(ctx, id.UserID, req, format, &buf)
	if err != nil {
		s.logFailure(r, log.ComponentReport, log.OpRender, err)
		s.fail(w, r, "/reports", err)
		return
	}
	atomic.AddInt64(&s.metrics.reportsRendered, 1)

	name := report.FileName(req.Type, req.Start, req.End, renderer.Extension())
	w.Header().Set("Content-Type", renderer.ContentType())
	w.Header().Set("Content-Disposition", attachment(name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleJobDownload(w http.ResponseWriter, r *http.Request) {
	id, _ := identity(r)
	jobID, err := parseID(url.Values{"id": {r.PathValue("id")}}, "id")
	if err != nil {
		NotFoundError(msgNotFound).Write(w)
		return
	}
	job, path, err := s.svc.Jobs.Download(r.Context(), id.UserID, jobID)
	if err != nil {
		s.logFailure(r, log.ComponentJobs, log.OpExport, err)
		ErrorResponse(statusFor(err), userMessage(err)).Write(w)
		return
	}
	f, err := os.Open(path)
	if err != nil {
		// the file was purged or moved after the job finished
		s.logFailure(r, log.ComponentJobs, log.OpExport, err)
		NotFoundError(msgNotFound).Write(w)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		s.logFailure(r, log.ComponentJobs, log.OpExport, err)
		InternalServerError(msgInternal).Write(w)
		return
	}

	name := report.FileName(job.ReportType, job.Start, job.End, strings.TrimPrefix(filepath.Ext(path), "."))
	w.Header().Set("Content-Disposition", attachment(name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func attachment(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}
