package crm

import (
	"context"
	"errors"
	"fmt"

	"github.com/meridian-ops/meridian/internal/shared"
)

// Service provides business logic for CRM operations.
type Service struct {
	repo Repository
}

// NewService constructs a CRM service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateClient creates a new client. The client type, when given, must exist.
func (s *Service) CreateClient(ctx context.Context, req CreateClientRequest) (*Client, error) {
	if req.ClientTypeID != nil {
		if _, err := s.repo.GetClientType(ctx, *req.ClientTypeID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, fmt.Errorf("%w: client type %d does not exist", shared.ErrValidation, *req.ClientTypeID)
			}
			return nil, fmt.Errorf("verify client type: %w", err)
		}
	}

	client := Client{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Address:      req.Address,
		ClientTypeID: req.ClientTypeID,
		IsActive:     true,
		Notes:        req.Notes,
	}

	id, err := s.repo.CreateClient(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	return s.repo.GetClient(ctx, id)
}

// UpdateClient applies a partial update to an existing client.
func (s *Service) UpdateClient(ctx context.Context, id int64, req UpdateClientRequest) (*Client, error) {
	existing, err := s.repo.GetClient(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}

	if req.ClientTypeID != nil {
		if _, err := s.repo.GetClientType(ctx, *req.ClientTypeID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, fmt.Errorf("%w: client type %d does not exist", shared.ErrValidation, *req.ClientTypeID)
			}
			return nil, fmt.Errorf("verify client type: %w", err)
		}
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.ClientTypeID != nil {
		updates["client_type_id"] = *req.ClientTypeID
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}

	if len(updates) == 0 {
		return existing, nil
	}

	if err := s.repo.UpdateClient(ctx, id, updates); err != nil {
		return nil, fmt.Errorf("update client: %w", err)
	}

	return s.repo.GetClient(ctx, id)
}

// GetClient retrieves a client by ID.
func (s *Service) GetClient(ctx context.Context, id int64) (*Client, error) {
	return s.repo.GetClient(ctx, id)
}

// ListClients returns a paginated list of clients with type names.
func (s *Service) ListClients(ctx context.Context, req ListClientsRequest) ([]ClientWithType, int, error) {
	return s.repo.ListClients(ctx, req)
}

// DeleteClient removes a client.
func (s *Service) DeleteClient(ctx context.Context, id int64) error {
	return s.repo.DeleteClient(ctx, id)
}

// CreateClientType creates a classification entry.
func (s *Service) CreateClientType(ctx context.Context, req CreateClientTypeRequest) (*ClientType, error) {
	id, err := s.repo.CreateClientType(ctx, ClientType{Name: req.Name, Description: req.Description})
	if err != nil {
		return nil, fmt.Errorf("create client type: %w", err)
	}
	return s.repo.GetClientType(ctx, id)
}

// ListClientTypes returns all classification entries.
func (s *Service) ListClientTypes(ctx context.Context) ([]ClientType, error) {
	return s.repo.ListClientTypes(ctx)
}
