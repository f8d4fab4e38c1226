package core

import (
	"strings"
	"time"
)

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

const (
	OriginSystem Origin = "system"
	OriginUser   Origin = "user"
)

const dateLayout = "2006-01-02"

type (
	// Kind selects one of the two parallel ledgers.
	Kind string

	// Origin tells whether a category is shared by everybody or owned by a user.
	Origin string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID           int64
		Username     string
		Email        string
		PasswordHash string
		FirstName    string
		LastName     string
		IsAdmin      bool
		CreatedAt    time.Time
	}

	Category struct {
		ID          int64
		Kind        Kind
		OwnerID     *int64 // nil for system categories
		Name        string
		Description string
		UsageCount  int64
	}

	Transaction struct {
		ID          int64
		Kind        Kind
		UserID      int64
		CategoryID  int64
		Category    string
		Amount      Money
		Description string
		Date        Date
	}

	Budget struct {
		ID          int64
		UserID      int64
		CategoryID  int64
		Category    string
		Amount      Money
		PeriodStart Date
		PeriodEnd   Date
		Spent       Money
	}
)

// ParseKind returns the ledger kind for s, reporting false for unknown values.
func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindIncome:
		return KindIncome, true
	case KindExpense:
		return KindExpense, true
	}
	return "", false
}

func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

func (k Kind) String() string {
	return string(k)
}

// Origin reports whether the category is a system one.
func (c Category) Origin() Origin {
	if c.OwnerID == nil {
		return OriginSystem
	}
	return OriginUser
}

// OwnedBy reports whether userID owns the category. System categories are owned by nobody.
func (c Category) OwnedBy(userID int64) bool {
	return c.OwnerID != nil && *c.OwnerID == userID
}

// FullName joins first and last name, falling back to the username.
func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String renders the date in the storage layout.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

// After reports whether d is strictly after o.
func (d Date) After(o Date) bool {
	return d.Time.After(o.Time)
}

func (d Date) AddMonths(n int) Date {
	return Date{Time: d.AddDate(0, n, 0)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return NewValidationError("date", "date is required")
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return NewValidationError("amount", "amount must be a positive number")
	}
	return nil
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

const (
	maxCategoryName        = 50
	maxCategoryDescription = 255
	maxDescription         = 255
)

// Validate checks name and description lengths of a category.
func (c Category) Validate() error {
	if !c.Kind.Valid() {
		return NewValidationError("type", "category type must be income or expense")
	}
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return NewValidationError("name", "category name is required")
	}
	if len([]rune(name)) > maxCategoryName {
		return NewValidationError("name", "category name must be at most 50 characters")
	}
	if len([]rune(c.Description)) > maxCategoryDescription {
		return NewValidationError("description", "description must be at most 255 characters")
	}
	return nil
}

func (t Transaction) Validate() error {
	if !t.Kind.Valid() {
		return NewValidationError("type", "transaction type must be income or expense")
	}
	if t.CategoryID <= 0 {
		return NewValidationError("category_id", "category is required")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len([]rune(t.Description)) > maxDescription {
		return NewValidationError("description", "description must be at most 255 characters")
	}
	return nil
}

func (b Budget) Validate() error {
	if b.CategoryID <= 0 {
		return NewValidationError("category_id", "category is required")
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if b.PeriodStart.IsZero() || b.PeriodEnd.IsZero() {
		return NewValidationError("period", "period start and end are required")
	}
	if b.PeriodEnd.Before(b.PeriodStart) {
		return NewValidationError("period_end", "end date cannot be before start date")
	}
	return nil
}

// Overlaps reports whether the budget period shares at least one day with [start, end].
func (b Budget) Overlaps(start, end Date) bool {
	return !b.PeriodStart.After(end) && !b.PeriodEnd.Before(start)
}
