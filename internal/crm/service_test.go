package crm

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
	clients    map[int64]*Client
	types      map[int64]*ClientType
	nextClient int64
	nextType   int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		clients:    make(map[int64]*Client),
		types:      make(map[int64]*ClientType),
		nextClient: 1,
		nextType:   1,
	}
}

func (m *mockRepository) GetClient(ctx context.Context, id int64) (*Client, error) {
	c, ok := m.clients[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (m *mockRepository) ListClients(ctx context.Context, req ListClientsRequest) ([]ClientWithType, int, error) {
	var results []ClientWithType
	for _, c := range m.clients {
		if req.Search != nil && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(*req.Search)) {
			continue
		}
		if req.IsActive != nil && c.IsActive != *req.IsActive {
			continue
		}
		cwt := ClientWithType{Client: *c}
		if c.ClientTypeID != nil {
			if ct, ok := m.types[*c.ClientTypeID]; ok {
				cwt.ClientTypeName = &ct.Name
			}
		}
		results = append(results, cwt)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, len(results), nil
}

func (m *mockRepository) CreateClient(ctx context.Context, client Client) (int64, error) {
	id := m.nextClient
	m.nextClient++
	client.ID = id
	client.CreatedAt = time.Now()
	client.UpdatedAt = client.CreatedAt
	m.clients[id] = &client
	return id, nil
}

func (m *mockRepository) UpdateClient(ctx context.Context, id int64, updates map[string]interface{}) error {
	c, ok := m.clients[id]
	if !ok {
		return shared.ErrNotFound
	}
	if v, ok := updates["name"]; ok {
		c.Name = v.(string)
	}
	if v, ok := updates["email"]; ok {
		email := v.(string)
		c.Email = &email
	}
	if v, ok := updates["is_active"]; ok {
		c.IsActive = v.(bool)
	}
	if v, ok := updates["client_type_id"]; ok {
		typeID := v.(int64)
		c.ClientTypeID = &typeID
	}
	return nil
}

func (m *mockRepository) DeleteClient(ctx context.Context, id int64) error {
	if _, ok := m.clients[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.clients, id)
	return nil
}

func (m *mockRepository) GetClientType(ctx context.Context, id int64) (*ClientType, error) {
	ct, ok := m.types[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	out := *ct
	return &out, nil
}

func (m *mockRepository) ListClientTypes(ctx context.Context) ([]ClientType, error) {
	var out []ClientType
	for id := int64(1); id < m.nextType; id++ {
		if ct, ok := m.types[id]; ok {
			out = append(out, *ct)
		}
	}
	return out, nil
}

func (m *mockRepository) CreateClientType(ctx context.Context, ct ClientType) (int64, error) {
	id := m.nextType
	m.nextType++
	ct.ID = id
	m.types[id] = &ct
	return id, nil
}

func ptr[T any](v T) *T {
	return &v
}

func TestCreateClient(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	typeID, err := repo.CreateClientType(ctx, ClientType{Name: "Corporate"})
	require.NoError(t, err)

	client, err := svc.CreateClient(ctx, CreateClientRequest{
		Name:         "Acme Holdings",
		Email:        ptr("billing@acme.test"),
		ClientTypeID: &typeID,
	})
	require.NoError(t, err)

	assert.Equal(t, "Acme Holdings", client.Name)
	assert.True(t, client.IsActive, "new clients start active")
	require.NotNil(t, client.Email)
	assert.Equal(t, "billing@acme.test", *client.Email)
}

func TestCreateClientUnknownType(t *testing.T) {
	svc := NewService(newMockRepository())

	_, err := svc.CreateClient(context.Background(), CreateClientRequest{
		Name:         "Acme Holdings",
		ClientTypeID: ptr(int64(99)),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestUpdateClient(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.CreateClient(ctx, CreateClientRequest{Name: "Acme Holdings"})
	require.NoError(t, err)

	updated, err := svc.UpdateClient(ctx, created.ID, UpdateClientRequest{
		Name:     ptr("Acme Holdings Ltd"),
		IsActive: ptr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Holdings Ltd", updated.Name)
	assert.False(t, updated.IsActive)

	// an empty patch is a no-op, not an error
	same, err := svc.UpdateClient(ctx, created.ID, UpdateClientRequest{})
	require.NoError(t, err)
	assert.Equal(t, updated.Name, same.Name)

	_, err = svc.UpdateClient(ctx, 99999, UpdateClientRequest{Name: ptr("Ghost")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestListClientsFilters(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	a, err := svc.CreateClient(ctx, CreateClientRequest{Name: "Acme Holdings"})
	require.NoError(t, err)
	b, err := svc.CreateClient(ctx, CreateClientRequest{Name: "Borealis Labs"})
	require.NoError(t, err)
	_, err = svc.UpdateClient(ctx, b.ID, UpdateClientRequest{IsActive: ptr(false)})
	require.NoError(t, err)

	results, total, err := svc.ListClients(ctx, ListClientsRequest{Search: ptr("acme")})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, results, 1)
	assert.Equal(t, a.ID, results[0].ID)

	results, _, err = svc.ListClients(ctx, ListClientsRequest{IsActive: ptr(true)})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, a.ID, results[0].ID)
}

func TestClientTypes(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.CreateClientType(ctx, CreateClientTypeRequest{
		Name:        "Government",
		Description: ptr("Public sector bodies"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Government", created.Name)

	all, err := svc.ListClientTypes(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, created.ID, all[0].ID)
}
