// Package query builds the unified income/expense transaction view.
//
// Filters are turned into a list of typed predicates which is compiled once
// per ledger table, so both halves of the union always carry the same
// conditions. Only whitelisted identifiers reach the SQL text; every value
// travels as a bind argument.
package query

import (
	"fmt"
	"strings"

	"finanze/internal/core"
)

// Column is a logical column of the transaction projection.
type Column string

const (
	ColUser        Column = "user"
	ColDate        Column = "date"
	ColCategory    Column = "category"
	ColAmount      Column = "amount"
	ColDescription Column = "description"
)

// Operator is a comparison supported by the compiler.
type Operator string

const (
	OpEq       Operator = "="
	OpGte      Operator = ">="
	OpLte      Operator = "<="
	OpContains Operator = "contains"
)

// FoldFunc is the SQL function the storage layer registers to lower-case
// text with full Unicode rules. SQLite's LIKE only folds ASCII letters.
const FoldFunc = "unicode_fold"

// Fold is the Go side of FoldFunc.
func Fold(s string) string { return strings.ToLower(s) }

// Predicate is a single {column, operator, value} condition.
type Predicate struct {
	Column   Column
	Operator Operator
	Value    any
}

func (p Predicate) String() string {
	return fmt.Sprintf("%s %s %v", p.Column, p.Operator, p.Value)
}

// source describes how one ledger table maps onto the projection.
type source struct {
	kind      core.Kind
	table     string
	alias     string
	catTable  string
	catAlias  string
	dateField string
}

var (
	incomeSource = source{
		kind:      core.KindIncome,
		table:     "income",
		alias:     "i",
		catTable:  "income_categories",
		catAlias:  "ic",
		dateField: "income_date",
	}
	expenseSource = source{
		kind:      core.KindExpense,
		table:     "expenses",
		alias:     "e",
		catTable:  "expense_categories",
		catAlias:  "ec",
		dateField: "expense_date",
	}
)

func sourceFor(kind core.Kind) source {
	if kind == core.KindIncome {
		return incomeSource
	}
	return expenseSource
}

func (s source) column(c Column) (string, error) {
	switch c {
	case ColUser:
		return s.alias + ".user_id", nil
	case ColDate:
		return s.alias + "." + s.dateField, nil
	case ColCategory:
		return s.catAlias + ".name", nil
	case ColAmount:
		return s.alias + ".amount_cents", nil
	case ColDescription:
		return s.alias + ".description", nil
	}
	return "", fmt.Errorf("unknown column %q", c)
}

// projection renders the SELECT for one side, shaped
// {id, type, amount, description, transaction_date, category}.
func (s source) projection() string {
	return fmt.Sprintf(
		"SELECT %[1]s.id AS id, '%[2]s' AS type, %[1]s.amount_cents AS amount, "+
			"COALESCE(%[1]s.description, '') AS description, %[1]s.%[3]s AS transaction_date, %[4]s.name AS category "+
			"FROM %[5]s %[1]s JOIN %[6]s %[4]s ON %[1]s.category_id = %[4]s.id",
		s.alias, s.kind, s.dateField, s.catAlias, s.table, s.catTable)
}

// compile turns predicates into a WHERE clause for this side.
func (s source) compile(preds []Predicate) (string, []any, error) {
	if len(preds) == 0 {
		return "", nil, nil
	}
	conds := make([]string, 0, len(preds))
	args := make([]any, 0, len(preds))
	for _, p := range preds {
		col, err := s.column(p.Column)
		if err != nil {
			return "", nil, err
		}
		switch p.Operator {
		case OpEq, OpGte, OpLte:
			conds = append(conds, fmt.Sprintf("%s %s ?", col, p.Operator))
			args = append(args, bindValue(p.Value))
		case OpContains:
			conds = append(conds, FoldFunc+"("+col+`) LIKE ? ESCAPE '\'`)
			args = append(args, "%"+escapeLike(Fold(fmt.Sprint(bindValue(p.Value))))+"%")
		default:
			return "", nil, fmt.Errorf("unknown operator %q", p.Operator)
		}
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// bindValue converts domain values into driver arguments.
func bindValue(v any) any {
	switch val := v.(type) {
	case core.Date:
		return val.String()
	case *core.Date:
		return val.String()
	case core.Money:
		return val.Cents
	case *core.Money:
		return val.Cents
	case *string:
		return *val
	}
	return v
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
