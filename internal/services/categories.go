package services

import (
	"context"
	"strings"

	"finanze/internal/core"
	"finanze/internal/log"
)

// CategoryService manages the user's income and expense categories.
type CategoryService struct {
	store       CategoryStore
	invalidator Invalidator
}

func NewCategoryService(store CategoryStore, inv Invalidator) *CategoryService {
	if inv == nil {
		inv = noopInvalidator{}
	}
	return &CategoryService{store: store, invalidator: inv}
}

// List returns owned and system categories of kind with usage counts.
func (s *CategoryService) List(ctx context.Context, userID int64, kind core.Kind) ([]core.Category, error) {
	if !kind.Valid() {
		return nil, core.NewValidationError("type", "category type must be income or expense")
	}
	return s.store.ListCategories(ctx, userID, kind)
}

// Create adds a user-owned category.
func (s *CategoryService) Create(ctx context.Context, userID int64, kind core.Kind, name, description string) (int64, error) {
	c := normalizeCategory(core.Category{Kind: kind, Name: name, Description: description})
	if err := c.Validate(); err != nil {
		return 0, err
	}
	id, err := s.store.CreateCategory(ctx, userID, c)
	if err != nil {
		return 0, err
	}
	log.FromContext(ctx).WithComponent(log.ComponentCategory).InfoContext(ctx, "Category created",
		log.FieldUserID, userID, log.FieldKind, string(kind), log.FieldRecordID, id)
	return id, nil
}

// Update renames a category the user owns.
func (s *CategoryService) Update(ctx context.Context, userID int64, kind core.Kind, id int64, name, description string) error {
	c := normalizeCategory(core.Category{ID: id, Kind: kind, Name: name, Description: description})
	if err := c.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateCategory(ctx, userID, c); err != nil {
		return err
	}
	// cached breakdowns and recent rows carry the old name
	s.invalidator.Invalidate(userID)
	return nil
}

// Delete removes an unused category the user owns.
func (s *CategoryService) Delete(ctx context.Context, userID int64, kind core.Kind, id int64) error {
	if !kind.Valid() {
		return core.NewValidationError("type", "category type must be income or expense")
	}
	if err := s.store.DeleteCategory(ctx, userID, kind, id); err != nil {
		return err
	}
	s.invalidator.Invalidate(userID)
	log.FromContext(ctx).WithComponent(log.ComponentCategory).InfoContext(ctx, "Category deleted",
		log.FieldUserID, userID, log.FieldKind, string(kind), log.FieldRecordID, id)
	return nil
}

// AddSystem adds a category shared by every user. It reports false when a
// system category of that name already exists.
func (s *CategoryService) AddSystem(ctx context.Context, kind core.Kind, name, description string) (bool, error) {
	c := normalizeCategory(core.Category{Kind: kind, Name: name, Description: description})
	if err := c.Validate(); err != nil {
		return false, err
	}
	inserted, err := s.store.InsertSystemCategory(ctx, c)
	if err != nil {
		return false, err
	}
	if inserted {
		log.FromContext(ctx).WithComponent(log.ComponentCategory).InfoContext(ctx, "System category added",
			log.FieldKind, string(kind), "name", c.Name)
	}
	return inserted, nil
}

func normalizeCategory(c core.Category) core.Category {
	c.Name = strings.TrimSpace(c.Name)
	c.Description = strings.TrimSpace(c.Description)
	return c
}
