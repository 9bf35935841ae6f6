package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/meridian-ops/meridian/internal/shared"
)

// Catalog provides business logic for the service catalog.
type Catalog struct {
	repo Repository
}

// NewCatalog constructs a catalog service.
func NewCatalog(repo Repository) *Catalog {
	return &Catalog{repo: repo}
}

// CreateService adds a catalog entry. The category, when given, must exist.
func (c *Catalog) CreateService(ctx context.Context, req CreateServiceRequest) (*Service, error) {
	if req.CategoryID != nil {
		if _, err := c.repo.GetCategory(ctx, *req.CategoryID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, fmt.Errorf("%w: category %d does not exist", shared.ErrValidation, *req.CategoryID)
			}
			return nil, fmt.Errorf("verify category: %w", err)
		}
	}

	id, err := c.repo.CreateService(ctx, Service{
		Name:         req.Name,
		CategoryID:   req.CategoryID,
		UnitPrice:    req.UnitPrice,
		Remarks:      req.Remarks,
		TimelineDays: req.TimelineDays,
		IsActive:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}

	return c.repo.GetService(ctx, id)
}

// UpdateService applies a partial update to a catalog entry.
func (c *Catalog) UpdateService(ctx context.Context, id int64, req UpdateServiceRequest) (*Service, error) {
	existing, err := c.repo.GetService(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}

	if req.CategoryID != nil {
		if _, err := c.repo.GetCategory(ctx, *req.CategoryID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, fmt.Errorf("%w: category %d does not exist", shared.ErrValidation, *req.CategoryID)
			}
			return nil, fmt.Errorf("verify category: %w", err)
		}
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.CategoryID != nil {
		updates["category_id"] = *req.CategoryID
	}
	if req.UnitPrice != nil {
		updates["unit_price"] = *req.UnitPrice
	}
	if req.Remarks != nil {
		updates["remarks"] = *req.Remarks
	}
	if req.TimelineDays != nil {
		updates["timeline_days"] = *req.TimelineDays
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) == 0 {
		return existing, nil
	}

	if err := c.repo.UpdateService(ctx, id, updates); err != nil {
		return nil, fmt.Errorf("update service: %w", err)
	}

	return c.repo.GetService(ctx, id)
}

// GetService retrieves a catalog entry by ID.
func (c *Catalog) GetService(ctx context.Context, id int64) (*Service, error) {
	return c.repo.GetService(ctx, id)
}

// ListServices returns a paginated list of catalog entries.
func (c *Catalog) ListServices(ctx context.Context, req ListServicesRequest) ([]ServiceWithCategory, int, error) {
	return c.repo.ListServices(ctx, req)
}

// DeleteService removes a catalog entry.
func (c *Catalog) DeleteService(ctx context.Context, id int64) error {
	return c.repo.DeleteService(ctx, id)
}

// CreateCategory adds a category.
func (c *Catalog) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*ServiceCategory, error) {
	id, err := c.repo.CreateCategory(ctx, ServiceCategory{Name: req.Name})
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return c.repo.GetCategory(ctx, id)
}

// ListCategories returns all categories.
func (c *Catalog) ListCategories(ctx context.Context) ([]ServiceCategory, error) {
	return c.repo.ListCategories(ctx)
}
