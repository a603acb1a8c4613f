package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tnqbao/gau-catalog-service/entity"
	"github.com/tnqbao/gau-catalog-service/infra"
	"gorm.io/gorm"
)

type CategoryInput struct {
	Name        string
	Description string
}

type CategoryUpdate struct {
	Name        *string
	Description *string
}

type CategoryService struct {
	categories CategoryRepository
	projects   ProjectRepository
	logger     *infra.LoggerClient
}

func NewCategoryService(categories CategoryRepository, projects ProjectRepository, logger *infra.LoggerClient) *CategoryService {
	return &CategoryService{categories: categories, projects: projects, logger: logger}
}

func (s *CategoryService) List(ctx context.Context) ([]entity.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if categories == nil {
		categories = []entity.Category{}
	}
	return categories, nil
}

func (s *CategoryService) Get(ctx context.Context, id uuid.UUID) (*entity.Category, error) {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("load category %s: %w", id, err)
	}
	return category, nil
}

func (s *CategoryService) Create(ctx context.Context, input CategoryInput) (*entity.Category, error) {
	name := strings.TrimSpace(input.Name)
	verr := &ValidationError{}
	requireField(verr, "name", name)
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	exists, err := s.categories.ExistsByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("check category name: %w", err)
	}
	if exists {
		return nil, ErrCategoryExists
	}

	category := &entity.Category{
		ID:          uuid.New(),
		Name:        name,
		Description: strings.TrimSpace(input.Description),
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	s.logger.InfoWithContextf(ctx, "[Category] Created category %s (%s)", category.ID, category.Name)
	return category, nil
}

// Update refuses to rename a category that projects still reference.
func (s *CategoryService) Update(ctx context.Context, id uuid.UUID, update CategoryUpdate) (*entity.Category, error) {
	category, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	previousName := category.Name
	applyField(verr, "name", update.Name, &category.Name)
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	if update.Description != nil {
		category.Description = strings.TrimSpace(*update.Description)
	}

	if category.Name != previousName {
		exists, err := s.categories.ExistsByName(ctx, category.Name)
		if err != nil {
			return nil, fmt.Errorf("check category name: %w", err)
		}
		if exists {
			return nil, ErrCategoryExists
		}
		if err := s.ensureUnreferenced(ctx, previousName); err != nil {
			return nil, err
		}
	}

	if err := s.categories.Update(ctx, category); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	return category, nil
}

func (s *CategoryService) Delete(ctx context.Context, id uuid.UUID) error {
	category, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.ensureUnreferenced(ctx, category.Name); err != nil {
		return err
	}

	if err := s.categories.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("delete category: %w", err)
	}

	s.logger.InfoWithContextf(ctx, "[Category] Deleted category %s (%s)", id, category.Name)
	return nil
}

func (s *CategoryService) ensureUnreferenced(ctx context.Context, name string) error {
	count, err := s.projects.CountByCategory(ctx, name)
	if err != nil {
		return fmt.Errorf("count projects in category: %w", err)
	}
	if count > 0 {
		s.logger.WarningWithContextf(ctx, "[Category] Category %s still referenced by %d project(s)", name, count)
		return ErrCategoryInUse
	}
	return nil
}
