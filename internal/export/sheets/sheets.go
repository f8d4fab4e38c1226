// Package sheets writes report exports into a Google Spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finanze/internal/core"
	"finanze/internal/log"
	"finanze/internal/report"
)

// Config selects the spreadsheet and the service account used to reach it.
type Config struct {
	SpreadsheetID      string
	ServiceAccountFile string
	ServiceAccountJSON string
}

// Enabled reports whether a spreadsheet is configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.SpreadsheetID) != ""
}

// Client appends report listings to one spreadsheet, one tab per job.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if !cfg.Enabled() {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	log.FromContext(ctx).WithComponent(log.ComponentSheets).InfoContext(ctx, "Google Sheets client ready",
		"spreadsheet_id", cfg.SpreadsheetID)
	return &Client{svc: svc, spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID)}, nil
}

func credentials(cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.ServiceAccountJSON)
	file := strings.TrimSpace(cfg.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	}
	return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
}

// AppendReport adds a tab for the job and writes the summary and the
// transaction listing into it. The returned reference names the tab.
func (c *Client) AppendReport(ctx context.Context, jobID int64, d report.Data) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	title := TabTitle(jobID, d)

	if err := c.ensureTab(ctx, title); err != nil {
		return "", err
	}

	rng := fmt.Sprintf("'%s'!A1", title)
	vr := &gsheet.ValueRange{Values: Rows(d)}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", title, err)
	}
	return fmt.Sprintf("sheets:%s/%s", c.spreadsheetID, title), nil
}

func (c *Client) ensureTab(ctx context.Context, title string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return nil
		}
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	return nil
}

// TabTitle names the tab of one export, e.g. "Job 7 detailed 2024-01-01..2024-01-31".
func TabTitle(jobID int64, d report.Data) string {
	return fmt.Sprintf("Job %d %s %s..%s", jobID, d.Type, d.Start, d.End)
}

// Rows lays out the summary block followed by the transaction listing.
func Rows(d report.Data) [][]any {
	rows := [][]any{
		{d.Title()},
		{"Period", d.Period()},
		{"Client", d.User.FullName(), d.User.Email},
		{},
		{"Total income", amount(d.Summary.Income)},
		{"Total expenses", amount(d.Summary.Expenses)},
		{"Net savings", amount(d.Summary.Savings())},
		{"Savings %", d.Summary.SavingsPercent()},
		{},
		{"Date", "Type", "Category", "Description", "Amount"},
	}
	for _, t := range d.Transactions {
		rows = append(rows, []any{t.Date.String(), kindLabel(t.Kind), t.Category, t.Description, amount(t.Amount)})
	}
	return rows
}

func amount(m core.Money) float64 {
	f, _ := m.Decimal().Float64()
	return f
}

func kindLabel(k core.Kind) string {
	if k == core.KindIncome {
		return "Income"
	}
	return "Expense"
}
