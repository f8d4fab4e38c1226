package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"finanze/internal/core"
	"finanze/internal/log"
	"finanze/internal/query"
)

// maxImportRows bounds a single upload.
const maxImportRows = 5000

// TransactionInput is the user-editable part of a ledger row.
type TransactionInput struct {
	CategoryID  int64
	Amount      core.Money
	Description string
	Date        core.Date
}

// RowError reports why one import row was skipped.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

// ImportResult summarises an upload.
type ImportResult struct {
	Imported int
	Errors   []RowError
}

// LedgerService records income and expenses.
type LedgerService struct {
	store       LedgerStore
	categories  CategoryStore
	invalidator Invalidator
}

func NewLedgerService(store LedgerStore, categories CategoryStore, inv Invalidator) *LedgerService {
	if inv == nil {
		inv = noopInvalidator{}
	}
	return &LedgerService{store: store, categories: categories, invalidator: inv}
}

func (s *LedgerService) Create(ctx context.Context, userID int64, kind core.Kind, in TransactionInput) (int64, error) {
	t := newTransaction(userID, kind, in)
	if err := t.Validate(); err != nil {
		return 0, err
	}
	id, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return 0, err
	}
	s.invalidator.Invalidate(userID)
	log.FromContext(ctx).WithComponent(log.ComponentLedger).InfoContext(ctx, "Transaction created",
		log.FieldUserID, userID, log.FieldKind, string(kind), log.FieldRecordID, id, log.FieldAmountCents, t.Amount.Cents)
	return id, nil
}

// Update replaces every editable field of a row the user owns.
func (s *LedgerService) Update(ctx context.Context, userID int64, kind core.Kind, id int64, in TransactionInput) error {
	t := newTransaction(userID, kind, in)
	t.ID = id
	if err := t.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateTransaction(ctx, t); err != nil {
		return err
	}
	s.invalidator.Invalidate(userID)
	return nil
}

func (s *LedgerService) Delete(ctx context.Context, userID int64, kind core.Kind, id int64) error {
	if err := s.store.DeleteTransaction(ctx, userID, kind, id); err != nil {
		return err
	}
	s.invalidator.Invalidate(userID)
	log.FromContext(ctx).WithComponent(log.ComponentLedger).InfoContext(ctx, "Transaction deleted",
		log.FieldUserID, userID, log.FieldKind, string(kind), log.FieldRecordID, id)
	return nil
}

func (s *LedgerService) Get(ctx context.Context, userID int64, kind core.Kind, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, userID, kind, id)
}

// List runs the transaction view restricted to one ledger.
func (s *LedgerService) List(ctx context.Context, userID int64, kind core.Kind, f query.Filter, sort query.Sort, page int) (query.Result, error) {
	f.Type = query.TypeFor(kind)
	return s.store.QueryTransactions(ctx, userID, f, sort, query.NewPage(page))
}

// Query runs the combined transaction view.
func (s *LedgerService) Query(ctx context.Context, userID int64, f query.Filter, sort query.Sort, page int) (query.Result, error) {
	return s.store.QueryTransactions(ctx, userID, f, sort, query.NewPage(page))
}

func newTransaction(userID int64, kind core.Kind, in TransactionInput) core.Transaction {
	return core.Transaction{
		Kind:        kind,
		UserID:      userID,
		CategoryID:  in.CategoryID,
		Amount:      in.Amount,
		Description: strings.TrimSpace(in.Description),
		Date:        in.Date,
	}
}

// Import reads the first worksheet of an XLSX upload with columns
// date | category | amount | description. Invalid rows are reported and
// skipped; the valid ones are stored together.
func (s *LedgerService) Import(ctx context.Context, userID int64, kind core.Kind, r io.Reader) (ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return ImportResult{}, core.NewValidationError("file", "the upload is not a readable .xlsx file")
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0), excelize.Options{RawCellValue: true})
	if err != nil {
		return ImportResult{}, core.NewValidationError("file", "the first worksheet could not be read")
	}
	first := 1
	if len(rows) > 0 && len(rows[0]) > 0 && strings.EqualFold(strings.TrimSpace(rows[0][0]), "date") {
		rows = rows[1:]
		first = 2
	}
	if len(rows) > maxImportRows {
		return ImportResult{}, core.NewValidationError("file", fmt.Sprintf("at most %d rows can be imported at once", maxImportRows))
	}

	var (
		res   ImportResult
		valid []core.Transaction
		cats  = map[string]int64{}
	)
	for i, row := range rows {
		line := i + first
		if blankRow(row) {
			continue
		}
		t, err := s.parseImportRow(ctx, userID, kind, row, cats)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: line, Err: err})
			continue
		}
		valid = append(valid, t)
	}
	if len(valid) == 0 {
		return res, nil
	}

	n, err := s.store.ImportTransactions(ctx, valid)
	if err != nil {
		return res, err
	}
	res.Imported = n
	s.invalidator.Invalidate(userID)
	log.FromContext(ctx).WithComponent(log.ComponentLedger).InfoContext(ctx, "Transactions imported",
		log.FieldUserID, userID, log.FieldKind, string(kind), log.FieldCount, n, "skipped", len(res.Errors))
	return res, nil
}

func (s *LedgerService) parseImportRow(ctx context.Context, userID int64, kind core.Kind, row []string, cats map[string]int64) (core.Transaction, error) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	date, err := parseCellDate(cell(0))
	if err != nil {
		return core.Transaction{}, core.NewValidationError("date", "invalid date "+strconv.Quote(cell(0)))
	}

	name := cell(1)
	if name == "" {
		return core.Transaction{}, core.NewValidationError("category", "category is required")
	}
	key := strings.ToLower(name)
	catID, ok := cats[key]
	if !ok {
		c, err := s.categories.FindVisibleCategoryByName(ctx, userID, kind, name)
		if errors.Is(err, core.ErrNotFound) {
			return core.Transaction{}, core.NewValidationError("category", "unknown category "+strconv.Quote(name))
		}
		if err != nil {
			return core.Transaction{}, err
		}
		catID = c.ID
		cats[key] = catID
	}

	amount, err := core.ParseAmount(cell(2))
	if err != nil {
		return core.Transaction{}, err
	}

	t := core.Transaction{
		Kind:        kind,
		UserID:      userID,
		CategoryID:  catID,
		Amount:      amount,
		Description: cell(3),
		Date:        date,
	}
	return t, t.Validate()
}

var importDateLayouts = []string{"2006-01-02", "02/01/2006", "2006/01/02", "02.01.2006"}

// parseCellDate accepts Excel serial dates as well as common text layouts.
func parseCellDate(s string) (core.Date, error) {
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return core.Date{}, err
		}
		return core.DateOf(t), nil
	}
	for _, layout := range importDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.DateOf(t), nil
		}
	}
	return core.Date{}, fmt.Errorf("unrecognised date %q", s)
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
