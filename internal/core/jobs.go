package core

import (
	"strings"
	"time"
)

// ReportType selects the sections of a financial report.
type ReportType string

const (
	ReportSummary  ReportType = "summary"
	ReportDetailed ReportType = "detailed"
	ReportTrend    ReportType = "trend"
)

func ParseReportType(s string) (ReportType, error) {
	switch ReportType(strings.ToLower(strings.TrimSpace(s))) {
	case ReportSummary:
		return ReportSummary, nil
	case ReportDetailed:
		return ReportDetailed, nil
	case ReportTrend:
		return ReportTrend, nil
	}
	return "", NewValidationError("report_type", "invalid report type")
}

// Format is the output encoding of a report.
type Format string

const (
	FormatPDF    Format = "pdf"
	FormatXLSX   Format = "xlsx"
	FormatSheets Format = "sheets"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatPDF:
		return FormatPDF, nil
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatSheets:
		return FormatSheets, nil
	}
	return "", NewValidationError("format", "invalid report format")
}

// JobStatus is the lifecycle state of a queued export.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobDone       JobStatus = "done"
	JobFailed     JobStatus = "failed"
)

// ReportJob is an asynchronous report export request.
type ReportJob struct {
	ID         int64
	UserID     int64
	ReportType ReportType
	Format     Format
	Start      Date
	End        Date
	Status     JobStatus
	Attempts   int
	Location   string
	Error      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Session is a server-side login session. Only the token hash is stored.
type Session struct {
	TokenHash  string
	UserID     int64
	CreatedAt  time.Time
	ExpiresAt  time.Time
	LastSeenAt time.Time
}

// ValidateRange checks a report window.
func ValidateRange(start, end Date) error {
	if start.IsZero() || end.IsZero() {
		return NewValidationError("period", "start and end dates are required")
	}
	if start.After(end) {
		return NewValidationError("end_date", "end date cannot be before start date")
	}
	return nil
}
