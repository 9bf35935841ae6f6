package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-ops/meridian/internal/shared"
)

type mockRepository struct {
	services     map[int64]*Service
	categories   map[int64]*ServiceCategory
	nextService  int64
	nextCategory int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		services:     make(map[int64]*Service),
		categories:   make(map[int64]*ServiceCategory),
		nextService:  1,
		nextCategory: 1,
	}
}

func (m *mockRepository) GetService(ctx context.Context, id int64) (*Service, error) {
	s, ok := m.services[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	out := *s
	return &out, nil
}

func (m *mockRepository) ListServices(ctx context.Context, req ListServicesRequest) ([]ServiceWithCategory, int, error) {
	var results []ServiceWithCategory
	for _, s := range m.services {
		if req.Search != nil && !strings.Contains(strings.ToLower(s.Name), strings.ToLower(*req.Search)) {
			continue
		}
		if req.IsActive != nil && s.IsActive != *req.IsActive {
			continue
		}
		if req.CategoryID != nil && (s.CategoryID == nil || *s.CategoryID != *req.CategoryID) {
			continue
		}
		swc := ServiceWithCategory{Service: *s}
		if s.CategoryID != nil {
			if cat, ok := m.categories[*s.CategoryID]; ok {
				swc.CategoryName = &cat.Name
			}
		}
		results = append(results, swc)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, len(results), nil
}

func (m *mockRepository) CreateService(ctx context.Context, svc Service) (int64, error) {
	id := m.nextService
	m.nextService++
	svc.ID = id
	svc.CreatedAt = time.Now()
	svc.UpdatedAt = svc.CreatedAt
	m.services[id] = &svc
	return id, nil
}

func (m *mockRepository) UpdateService(ctx context.Context, id int64, updates map[string]interface{}) error {
	s, ok := m.services[id]
	if !ok {
		return shared.ErrNotFound
	}
	if v, ok := updates["name"]; ok {
		s.Name = v.(string)
	}
	if v, ok := updates["unit_price"]; ok {
		s.UnitPrice = v.(float64)
	}
	if v, ok := updates["category_id"]; ok {
		catID := v.(int64)
		s.CategoryID = &catID
	}
	if v, ok := updates["is_active"]; ok {
		s.IsActive = v.(bool)
	}
	return nil
}

func (m *mockRepository) DeleteService(ctx context.Context, id int64) error {
	if _, ok := m.services[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.services, id)
	return nil
}

func (m *mockRepository) GetCategory(ctx context.Context, id int64) (*ServiceCategory, error) {
	c, ok := m.categories[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (m *mockRepository) ListCategories(ctx context.Context) ([]ServiceCategory, error) {
	var out []ServiceCategory
	for id := int64(1); id < m.nextCategory; id++ {
		if c, ok := m.categories[id]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockRepository) CreateCategory(ctx context.Context, c ServiceCategory) (int64, error) {
	id := m.nextCategory
	m.nextCategory++
	c.ID = id
	m.categories[id] = &c
	return id, nil
}

func ptr[T any](v T) *T {
	return &v
}

func TestCreateService(t *testing.T) {
	repo := newMockRepository()
	catalog := NewCatalog(repo)
	ctx := context.Background()

	category, err := catalog.CreateCategory(ctx, CreateCategoryRequest{Name: "Consulting"})
	require.NoError(t, err)

	svc, err := catalog.CreateService(ctx, CreateServiceRequest{
		Name:         "Discovery workshop",
		CategoryID:   &category.ID,
		UnitPrice:    1500,
		TimelineDays: ptr(5),
	})
	require.NoError(t, err)

	assert.Equal(t, "Discovery workshop", svc.Name)
	assert.InDelta(t, 1500.0, svc.UnitPrice, 1e-6)
	assert.True(t, svc.IsActive, "new services start active")
}

func TestCreateServiceUnknownCategory(t *testing.T) {
	catalog := NewCatalog(newMockRepository())

	_, err := catalog.CreateService(context.Background(), CreateServiceRequest{
		Name:       "Orphan",
		CategoryID: ptr(int64(42)),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestUpdateService(t *testing.T) {
	repo := newMockRepository()
	catalog := NewCatalog(repo)
	ctx := context.Background()

	created, err := catalog.CreateService(ctx, CreateServiceRequest{Name: "Audit", UnitPrice: 800})
	require.NoError(t, err)

	updated, err := catalog.UpdateService(ctx, created.ID, UpdateServiceRequest{
		UnitPrice: ptr(950.0),
		IsActive:  ptr(false),
	})
	require.NoError(t, err)
	assert.InDelta(t, 950.0, updated.UnitPrice, 1e-6)
	assert.False(t, updated.IsActive)

	same, err := catalog.UpdateService(ctx, created.ID, UpdateServiceRequest{})
	require.NoError(t, err)
	assert.InDelta(t, updated.UnitPrice, same.UnitPrice, 1e-6)

	_, err = catalog.UpdateService(ctx, 99999, UpdateServiceRequest{Name: ptr("Ghost")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestListServicesFilters(t *testing.T) {
	repo := newMockRepository()
	catalog := NewCatalog(repo)
	ctx := context.Background()

	category, err := catalog.CreateCategory(ctx, CreateCategoryRequest{Name: "Development"})
	require.NoError(t, err)

	dev, err := catalog.CreateService(ctx, CreateServiceRequest{Name: "API build", CategoryID: &category.ID, UnitPrice: 5000})
	require.NoError(t, err)
	_, err = catalog.CreateService(ctx, CreateServiceRequest{Name: "Audit", UnitPrice: 800})
	require.NoError(t, err)

	results, total, err := catalog.ListServices(ctx, ListServicesRequest{CategoryID: &category.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, results, 1)
	assert.Equal(t, dev.ID, results[0].ID)
	require.NotNil(t, results[0].CategoryName)
	assert.Equal(t, "Development", *results[0].CategoryName)

	results, _, err = catalog.ListServices(ctx, ListServicesRequest{Search: ptr("audit")})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Audit", results[0].Name)
}

func TestDeleteService(t *testing.T) {
	repo := newMockRepository()
	catalog := NewCatalog(repo)
	ctx := context.Background()

	created, err := catalog.CreateService(ctx, CreateServiceRequest{Name: "Temp", UnitPrice: 1})
	require.NoError(t, err)

	require.NoError(t, catalog.DeleteService(ctx, created.ID))
	_, err = catalog.GetService(ctx, created.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}
