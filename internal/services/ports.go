package services

import (
	"context"
	"time"

	"finanze/internal/core"
	"finanze/internal/query"
)

// CategoryStore persists income and expense categories.
type CategoryStore interface {
	ListCategories(ctx context.Context, userID int64, kind core.Kind) ([]core.Category, error)
	FindVisibleCategoryByName(ctx context.Context, userID int64, kind core.Kind, name string) (core.Category, error)
	CreateCategory(ctx context.Context, userID int64, c core.Category) (int64, error)
	UpdateCategory(ctx context.Context, userID int64, c core.Category) error
	DeleteCategory(ctx context.Context, userID int64, kind core.Kind, id int64) error
	InsertSystemCategory(ctx context.Context, c core.Category) (bool, error)
}

// LedgerStore persists income and expense rows and runs the transaction view.
type LedgerStore interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (int64, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) error
	DeleteTransaction(ctx context.Context, userID int64, kind core.Kind, id int64) error
	GetTransaction(ctx context.Context, userID int64, kind core.Kind, id int64) (core.Transaction, error)
	ImportTransactions(ctx context.Context, rows []core.Transaction) (int, error)
	QueryTransactions(ctx context.Context, userID int64, f query.Filter, s query.Sort, p query.Page) (query.Result, error)
}

// BudgetStore persists budgets.
type BudgetStore interface {
	CreateBudget(ctx context.Context, b core.Budget) (int64, error)
	UpdateBudget(ctx context.Context, b core.Budget) error
	DeleteBudget(ctx context.Context, userID, id int64) error
	GetBudget(ctx context.Context, userID, id int64) (core.Budget, error)
	ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error)
	BudgetStatus(ctx context.Context, userID int64, start, end core.Date) ([]core.BudgetStatus, error)
}

// SummaryStore answers aggregate reads used by the dashboard and reports.
type SummaryStore interface {
	Totals(ctx context.Context, userID int64, start, end core.Date) (core.Summary, error)
	CategoryTotals(ctx context.Context, userID int64, kind core.Kind, start, end core.Date) ([]core.CategoryAmount, error)
	BudgetStatus(ctx context.Context, userID int64, start, end core.Date) ([]core.BudgetStatus, error)
	RecentTransactions(ctx context.Context, userID int64, n int) ([]core.LedgerRow, error)
	AllTransactions(ctx context.Context, userID int64, f query.Filter, s query.Sort) ([]core.LedgerRow, error)
}

// UserReader loads one account.
type UserReader interface {
	GetUser(ctx context.Context, id int64) (core.User, error)
}

// UserStore persists accounts.
type UserStore interface {
	UserReader
	CreateUser(ctx context.Context, u core.User, defaults []core.Category) (int64, error)
	FindUserByLogin(ctx context.Context, login string) (core.User, error)
	UpdateProfile(ctx context.Context, u core.User) error
	UpdatePasswordHash(ctx context.Context, userID int64, hash string) error
	DeleteUserSessions(ctx context.Context, userID int64, keepHash string) error
}

// JobStore persists report export jobs.
type JobStore interface {
	CreateJob(ctx context.Context, j core.ReportJob) (int64, error)
	GetUserJob(ctx context.Context, userID, id int64) (core.ReportJob, error)
	ListUserJobs(ctx context.Context, userID int64, limit int) ([]core.ReportJob, error)
}

// JobQueue is the worker-side view of the job table.
type JobQueue interface {
	GetJob(ctx context.Context, id int64) (core.ReportJob, error)
	PendingJobs(ctx context.Context, limit int) ([]core.ReportJob, error)
	ClaimJob(ctx context.Context, id int64) (core.ReportJob, bool, error)
	CompleteJob(ctx context.Context, id int64, location string) error
	FailJob(ctx context.Context, id int64, reason string, maxAttempts int) (core.JobStatus, error)
	ResetStaleJobs(ctx context.Context, cutoff time.Time) (int64, error)
}

// JobPublisher announces a new job to the worker.
type JobPublisher interface {
	PublishReportJob(ctx context.Context, jobID int64) error
}

// Invalidator drops cached aggregates of a user after a write.
type Invalidator interface {
	Invalidate(userID int64)
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(int64) {}
