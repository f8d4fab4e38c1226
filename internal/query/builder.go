package query

import (
	"fmt"
	"math"
	"strings"

	"finanze/internal/core"
)

// PageSize is the fixed number of rows per page.
const PageSize = 20

// Statement is a SQL text plus its bind arguments.
type Statement struct {
	SQL  string
	Args []any
}

// Page selects a window of the ordered result. Size 0 means no limit.
type Page struct {
	Number int
	Size   int
}

// maxPage keeps the offset of the last reachable page inside int.
const maxPage = math.MaxInt / PageSize

// NewPage clamps n into [1, maxPage] and uses PageSize.
func NewPage(n int) Page {
	if n < 1 {
		n = 1
	}
	if n > maxPage {
		n = maxPage
	}
	return Page{Number: n, Size: PageSize}
}

// offset saturates at math.MaxInt so a huge page number still lands past the end.
func (p Page) offset() int {
	if p.Number < 1 || p.Size <= 0 {
		return 0
	}
	if p.Number-1 > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return (p.Number - 1) * p.Size
}

// Result is one page of the transaction view.
type Result struct {
	Rows         []core.LedgerRow
	TotalRecords int
	TotalPages   int
	Page         int
	PageSize     int
}

// TotalPages returns ceil(total/size), zero for an empty set.
func TotalPages(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Union compiles the filter for every ledger taking part and joins the
// branches with UNION ALL.
func Union(userID int64, f Filter) (Statement, error) {
	preds := f.Predicates(userID)
	kinds := f.Type.kinds()

	parts := make([]string, 0, len(kinds))
	var args []any
	for _, kind := range kinds {
		src := sourceFor(kind)
		where, a, err := src.compile(preds)
		if err != nil {
			return Statement{}, fmt.Errorf("compile %s branch: %w", kind, err)
		}
		parts = append(parts, src.projection()+where)
		args = append(args, a...)
	}
	return Statement{SQL: strings.Join(parts, " UNION ALL "), Args: args}, nil
}

// Build returns the page statement and the matching count statement.
// Both share the same union so the count always reflects the filtered set.
func Build(userID int64, f Filter, s Sort, p Page) (list, count Statement, err error) {
	union, err := Union(userID, f)
	if err != nil {
		return Statement{}, Statement{}, err
	}

	s = s.normalized()
	var b strings.Builder
	b.WriteString("SELECT id, type, amount, description, transaction_date, category FROM (")
	b.WriteString(union.SQL)
	fmt.Fprintf(&b, ") AS combined ORDER BY %s %s, type %s, id %s", s.column(), s.Order, s.Order, s.Order)

	listArgs := append([]any(nil), union.Args...)
	if p.Size > 0 {
		b.WriteString(" LIMIT ? OFFSET ?")
		listArgs = append(listArgs, p.Size, p.offset())
	}

	list = Statement{SQL: b.String(), Args: listArgs}
	count = Statement{
		SQL:  "SELECT COUNT(*) FROM (" + union.SQL + ") AS combined",
		Args: append([]any(nil), union.Args...),
	}
	return list, count, nil
}
