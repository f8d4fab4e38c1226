package query

import (
	"strings"

	"finanze/internal/core"
)

// Type selects which ledgers take part in the view.
type Type string

const (
	TypeAll     Type = "all"
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
)

// ParseType maps user input to a Type, defaulting to TypeAll.
func ParseType(s string) Type {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case TypeIncome:
		return TypeIncome
	case TypeExpense:
		return TypeExpense
	}
	return TypeAll
}

// TypeFor returns the Type matching a single ledger.
func TypeFor(kind core.Kind) Type {
	if kind == core.KindIncome {
		return TypeIncome
	}
	return TypeExpense
}

func (t Type) kinds() []core.Kind {
	switch t {
	case TypeIncome:
		return []core.Kind{core.KindIncome}
	case TypeExpense:
		return []core.Kind{core.KindExpense}
	}
	return []core.Kind{core.KindIncome, core.KindExpense}
}

// Filter holds the optional conditions of a transaction query. A nil field means "not filtered".
type Filter struct {
	Type      Type
	DateStart *core.Date
	DateEnd   *core.Date
	Category  *string
	MinAmount *core.Money
	MaxAmount *core.Money
	Search    *string
}

// Predicates returns the condition list shared by both ledgers, user scope first.
func (f Filter) Predicates(userID int64) []Predicate {
	preds := []Predicate{{Column: ColUser, Operator: OpEq, Value: userID}}
	if f.DateStart != nil {
		preds = append(preds, Predicate{Column: ColDate, Operator: OpGte, Value: *f.DateStart})
	}
	if f.DateEnd != nil {
		preds = append(preds, Predicate{Column: ColDate, Operator: OpLte, Value: *f.DateEnd})
	}
	if f.Category != nil {
		preds = append(preds, Predicate{Column: ColCategory, Operator: OpEq, Value: *f.Category})
	}
	if f.MinAmount != nil {
		preds = append(preds, Predicate{Column: ColAmount, Operator: OpGte, Value: *f.MinAmount})
	}
	if f.MaxAmount != nil {
		preds = append(preds, Predicate{Column: ColAmount, Operator: OpLte, Value: *f.MaxAmount})
	}
	if f.Search != nil && *f.Search != "" {
		preds = append(preds, Predicate{Column: ColDescription, Operator: OpContains, Value: *f.Search})
	}
	return preds
}

// SortField is a whitelisted ordering column.
type SortField string

const (
	SortDate     SortField = "date"
	SortAmount   SortField = "amount"
	SortCategory SortField = "category"
)

// SortOrder is ASC or DESC.
type SortOrder string

const (
	Asc  SortOrder = "ASC"
	Desc SortOrder = "DESC"
)

// Sort is an ordering request. The zero value sorts by date descending.
type Sort struct {
	By    SortField
	Order SortOrder
}

// DefaultSort is date, newest first.
var DefaultSort = Sort{By: SortDate, Order: Desc}

// ParseSort validates user input, replacing anything unknown with the default.
func ParseSort(by, order string) Sort {
	s := DefaultSort
	switch SortField(strings.ToLower(strings.TrimSpace(by))) {
	case SortAmount:
		s.By = SortAmount
	case SortCategory:
		s.By = SortCategory
	}
	if SortOrder(strings.ToUpper(strings.TrimSpace(order))) == Asc {
		s.Order = Asc
	}
	return s
}

func (s Sort) normalized() Sort {
	out := DefaultSort
	switch s.By {
	case SortAmount, SortCategory:
		out.By = s.By
	}
	if s.Order == Asc {
		out.Order = Asc
	}
	return out
}

func (s Sort) column() string {
	switch s.By {
	case SortAmount:
		return "amount"
	case SortCategory:
		return "category"
	}
	return "transaction_date"
}
