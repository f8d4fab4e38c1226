package services

import (
	"context"

	"finanze/internal/core"
	"finanze/internal/log"
)

// BudgetInput is the user-editable part of a budget.
type BudgetInput struct {
	CategoryID  int64
	Amount      core.Money
	PeriodStart core.Date
	PeriodEnd   core.Date
}

func (in BudgetInput) budget(userID, id int64) core.Budget {
	return core.Budget{
		ID:          id,
		UserID:      userID,
		CategoryID:  in.CategoryID,
		Amount:      in.Amount,
		PeriodStart: in.PeriodStart,
		PeriodEnd:   in.PeriodEnd,
	}
}

// BudgetService tracks spending limits per expense category and period.
type BudgetService struct {
	store       BudgetStore
	invalidator Invalidator
}

func NewBudgetService(store BudgetStore, inv Invalidator) *BudgetService {
	if inv == nil {
		inv = noopInvalidator{}
	}
	return &BudgetService{store: store, invalidator: inv}
}

// Create stores a budget. Overlapping periods for the same category are rejected.
func (s *BudgetService) Create(ctx context.Context, userID int64, in BudgetInput) (int64, error) {
	b := in.budget(userID, 0)
	if err := b.Validate(); err != nil {
		return 0, err
	}
	id, err := s.store.CreateBudget(ctx, b)
	if err != nil {
		return 0, err
	}
	s.invalidator.Invalidate(userID)
	log.FromContext(ctx).WithComponent(log.ComponentBudget).InfoContext(ctx, "Budget created",
		log.FieldUserID, userID, log.FieldRecordID, id,
		log.FieldPeriodStart, b.PeriodStart.String(), log.FieldPeriodEnd, b.PeriodEnd.String())
	return id, nil
}

func (s *BudgetService) Update(ctx context.Context, userID, id int64, in BudgetInput) error {
	b := in.budget(userID, id)
	if err := b.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateBudget(ctx, b); err != nil {
		return err
	}
	s.invalidator.Invalidate(userID)
	return nil
}

func (s *BudgetService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteBudget(ctx, userID, id); err != nil {
		return err
	}
	s.invalidator.Invalidate(userID)
	log.FromContext(ctx).WithComponent(log.ComponentBudget).InfoContext(ctx, "Budget deleted",
		log.FieldUserID, userID, log.FieldRecordID, id)
	return nil
}

func (s *BudgetService) Get(ctx context.Context, userID, id int64) (core.Budget, error) {
	return s.store.GetBudget(ctx, userID, id)
}

func (s *BudgetService) List(ctx context.Context, userID int64) ([]core.Budget, error) {
	return s.store.ListBudgets(ctx, userID)
}

// StatusForPeriod reports spent-vs-budget for every budget intersecting the window.
func (s *BudgetService) StatusForPeriod(ctx context.Context, userID int64, start, end core.Date) ([]core.BudgetStatus, error) {
	if err := core.ValidateRange(start, end); err != nil {
		return nil, err
	}
	return s.store.BudgetStatus(ctx, userID, start, end)
}
