package services

import (
	"context"
	"fmt"
	"sort"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

// CategoryService handles business logic related to catalog categories,
// including flattening the parent/child hierarchy for listing UIs.
type CategoryService struct {
	repo repositories.CategoryRepository
}

// NewCategoryService creates a new CategoryService.
func NewCategoryService(repo repositories.CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

// GetAllCategories retrieves all categories.
func (s *CategoryService) GetAllCategories(ctx context.Context) ([]models.Category, error) {
	return s.repo.GetAll(ctx)
}

// GetCategoryByID retrieves a single category by its ID.
func (s *CategoryService) GetCategoryByID(ctx context.Context, id string) (*models.Category, error) {
	return s.repo.GetByID(ctx, id)
}

// CreateCategory creates a new category. A non-empty ParentID must refer to
// an existing category.
func (s *CategoryService) CreateCategory(ctx context.Context, category *models.Category) error {
	if category.ParentID != "" {
		if _, err := s.repo.GetByID(ctx, category.ParentID); err != nil {
			return fmt.Errorf("parent category %s: %w", category.ParentID, err)
		}
	}
	return s.repo.Create(ctx, category)
}

// UpdateCategory updates an existing category.
func (s *CategoryService) UpdateCategory(ctx context.Context, category *models.Category) error {
	if category.ParentID != "" {
		if category.ParentID == category.ID {
			return fmt.Errorf("category %s cannot be its own parent", category.ID)
		}
		if _, err := s.repo.GetByID(ctx, category.ParentID); err != nil {
			return fmt.Errorf("parent category %s: %w", category.ParentID, err)
		}
	}
	return s.repo.Update(ctx, category)
}

// DeleteCategory deletes a category. Categories that still have children
// cannot be deleted.
func (s *CategoryService) DeleteCategory(ctx context.Context, id string) error {
	categories, err := s.repo.GetAll(ctx)
	if err != nil {
		return err
	}
	for _, c := range categories {
		if c.ParentID == id {
			return fmt.Errorf("category %s still has child categories", id)
		}
	}
	return s.repo.Delete(ctx, id)
}

// FlattenedTree returns the hierarchy as a depth-first list: roots sorted by
// name, each followed by its children, with depth and full path filled in.
// Categories whose parent no longer exists are treated as roots.
func (s *CategoryService) FlattenedTree(ctx context.Context) ([]models.FlatCategory, error) {
	categories, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	children := make(map[string][]models.Category)
	var roots []models.Category
	for _, c := range categories {
		if c.ParentID == "" {
			roots = append(roots, c)
			continue
		}
		if _, ok := byID[c.ParentID]; !ok {
			roots = append(roots, c)
			continue
		}
		children[c.ParentID] = append(children[c.ParentID], c)
	}

	sortByName(roots)
	for id := range children {
		sortByName(children[id])
	}

	flat := make([]models.FlatCategory, 0, len(categories))
	var walk func(c models.Category, depth int, path string)
	walk = func(c models.Category, depth int, path string) {
		fullPath := c.Name
		if path != "" {
			fullPath = path + " / " + c.Name
		}
		flat = append(flat, models.FlatCategory{Category: c, Depth: depth, Path: fullPath})
		for _, child := range children[c.ID] {
			walk(child, depth+1, fullPath)
		}
	}
	for _, root := range roots {
		walk(root, 0, "")
	}
	return flat, nil
}

func sortByName(categories []models.Category) {
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Name < categories[j].Name
	})
}
