package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"moneta/internal/core"
	"moneta/internal/log"
)

// CategoryService manages the owner's categories. Names are unique per
// owner, and a category stays undeletable while transactions reference it.
type CategoryService struct {
	categories CategoryRepository
	logger     *log.Logger
}

func NewCategoryService(categories CategoryRepository, logger *log.Logger) *CategoryService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &CategoryService{
		categories: categories,
		logger:     logger.WithComponent(log.ComponentApp),
	}
}

func (s *CategoryService) CreateCategory(ctx context.Context, owner, name string) (core.Category, error) {
	c := core.Category{
		ID:    uuid.New(),
		Owner: owner,
		Name:  name,
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if err := s.categories.CreateCategory(ctx, c); err != nil {
		return core.Category{}, err
	}
	return c, nil
}

func (s *CategoryService) ListCategories(ctx context.Context, owner string) ([]core.Category, error) {
	return s.categories.ListCategories(ctx, owner)
}

// DeleteCategory removes an owner's category unless transactions still
// reference it.
func (s *CategoryService) DeleteCategory(ctx context.Context, owner string, id uuid.UUID) error {
	c, err := s.categories.GetCategory(ctx, owner, id)
	if err != nil {
		return err
	}

	n, err := s.categories.CountTransactionsByCategory(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("count category references: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("category %q referenced by %d transactions: %w", c.Name, n, core.ErrCategoryInUse)
	}

	if err := s.categories.DeleteCategory(ctx, c.ID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Category deleted",
		log.FieldCategoryID, c.ID,
		log.FieldOwner, owner)
	return nil
}
