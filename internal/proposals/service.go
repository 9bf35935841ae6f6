package proposals

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/meridian-ops/meridian/internal/crm"
	"github.com/meridian-ops/meridian/internal/shared"
)

// ClientDirectory is the slice of the CRM repository the proposal service
// needs to verify client references.
type ClientDirectory interface {
	GetClient(ctx context.Context, id int64) (*crm.Client, error)
}

// Service provides business logic for proposal operations.
type Service struct {
	repo    Repository
	clients ClientDirectory
	audit   *shared.AuditLogger
	now     func() time.Time
}

// NewService constructs a proposal service.
func NewService(repo Repository, clients ClientDirectory, audit *shared.AuditLogger) *Service {
	return &Service{
		repo:    repo,
		clients: clients,
		audit:   audit,
		now:     time.Now,
	}
}

// WithClock overrides the service clock. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create creates a proposal with its lines. The reference is allocated and
// the rows written in a single transaction.
func (s *Service) Create(ctx context.Context, req CreateProposalRequest, createdBy int64) (*Proposal, error) {
	if _, err := s.clients.GetClient(ctx, req.ClientID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("%w: client %d does not exist", shared.ErrValidation, req.ClientID)
		}
		return nil, fmt.Errorf("verify client: %w", err)
	}

	proposalDate := req.ProposalDate
	if proposalDate.IsZero() {
		proposalDate = s.now()
	}

	var totalAmount float64
	for _, lineReq := range req.Lines {
		totalAmount += CalculateLineTotal(lineReq.Quantity, lineReq.UnitPrice, lineReq.DiscountPercent)
	}

	var proposalID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		reference, err := repo.GenerateReference(ctx, proposalDate)
		if err != nil {
			return fmt.Errorf("generate reference: %w", err)
		}

		id, err := repo.Create(ctx, Proposal{
			Reference:    reference,
			ClientID:     req.ClientID,
			ProjectName:  req.ProjectName,
			Description:  req.Description,
			ProposalDate: proposalDate,
			Status:       ProposalStatusDraft,
			TotalAmount:  totalAmount,
			Notes:        req.Notes,
			CreatedBy:    createdBy,
		})
		if err != nil {
			return fmt.Errorf("create proposal: %w", err)
		}
		proposalID = id

		for _, lineReq := range req.Lines {
			line := ProposalLine{
				ProposalID:      proposalID,
				ServiceID:       lineReq.ServiceID,
				Description:     lineReq.Description,
				Quantity:        lineReq.Quantity,
				UnitPrice:       lineReq.UnitPrice,
				DiscountPercent: lineReq.DiscountPercent,
				LineTotal:       CalculateLineTotal(lineReq.Quantity, lineReq.UnitPrice, lineReq.DiscountPercent),
			}
			if _, err := repo.InsertLine(ctx, line); err != nil {
				return fmt.Errorf("insert proposal line: %w", err)
			}
		}

		return repo.RecalculateTotal(ctx, proposalID)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, proposalID)
}

// Update modifies header fields and optionally replaces the lines. Only DRAFT
// proposals can be updated.
func (s *Service) Update(ctx context.Context, id int64, req UpdateProposalRequest) (*Proposal, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get proposal: %w", err)
	}

	if existing.Status != ProposalStatusDraft {
		return nil, fmt.Errorf("%w: only DRAFT proposals can be updated", shared.ErrInvalidStatus)
	}

	updates := make(map[string]interface{})
	if req.ProjectName != nil {
		updates["project_name"] = *req.ProjectName
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.ProposalDate != nil {
		updates["proposal_date"] = *req.ProposalDate
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if len(updates) > 0 {
			if err := repo.Update(ctx, id, updates); err != nil {
				return err
			}
		}

		if req.Lines != nil {
			if err := repo.DeleteLines(ctx, id); err != nil {
				return fmt.Errorf("delete proposal lines: %w", err)
			}
			for _, lineReq := range *req.Lines {
				line := ProposalLine{
					ProposalID:      id,
					ServiceID:       lineReq.ServiceID,
					Description:     lineReq.Description,
					Quantity:        lineReq.Quantity,
					UnitPrice:       lineReq.UnitPrice,
					DiscountPercent: lineReq.DiscountPercent,
					LineTotal:       CalculateLineTotal(lineReq.Quantity, lineReq.UnitPrice, lineReq.DiscountPercent),
				}
				if _, err := repo.InsertLine(ctx, line); err != nil {
					return fmt.Errorf("insert proposal line: %w", err)
				}
			}
			return repo.RecalculateTotal(ctx, id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update proposal: %w", err)
	}

	return s.repo.Get(ctx, id)
}

// AddLine appends a line to a DRAFT proposal and recomputes the total.
func (s *Service) AddLine(ctx context.Context, proposalID int64, req ProposalLineRequest) (*Proposal, error) {
	existing, err := s.repo.Get(ctx, proposalID)
	if err != nil {
		return nil, fmt.Errorf("get proposal: %w", err)
	}
	if existing.Status != ProposalStatusDraft {
		return nil, fmt.Errorf("%w: only DRAFT proposals can be modified", shared.ErrInvalidStatus)
	}

	line := ProposalLine{
		ProposalID:      proposalID,
		ServiceID:       req.ServiceID,
		Description:     req.Description,
		Quantity:        req.Quantity,
		UnitPrice:       req.UnitPrice,
		DiscountPercent: req.DiscountPercent,
		LineTotal:       CalculateLineTotal(req.Quantity, req.UnitPrice, req.DiscountPercent),
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.InsertLine(ctx, line); err != nil {
			return fmt.Errorf("insert proposal line: %w", err)
		}
		return repo.RecalculateTotal(ctx, proposalID)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, proposalID)
}

// UpdateLine rewrites a line and recomputes the total.
func (s *Service) UpdateLine(ctx context.Context, proposalID, lineID int64, req ProposalLineRequest) (*Proposal, error) {
	existing, err := s.repo.Get(ctx, proposalID)
	if err != nil {
		return nil, fmt.Errorf("get proposal: %w", err)
	}
	if existing.Status != ProposalStatusDraft {
		return nil, fmt.Errorf("%w: only DRAFT proposals can be modified", shared.ErrInvalidStatus)
	}

	current, err := s.repo.GetLine(ctx, lineID)
	if err != nil {
		return nil, fmt.Errorf("get proposal line: %w", err)
	}
	if current.ProposalID != proposalID {
		return nil, fmt.Errorf("%w: line %d does not belong to proposal %d", shared.ErrNotFound, lineID, proposalID)
	}

	line := ProposalLine{
		ID:              lineID,
		ProposalID:      proposalID,
		ServiceID:       req.ServiceID,
		Description:     req.Description,
		Quantity:        req.Quantity,
		UnitPrice:       req.UnitPrice,
		DiscountPercent: req.DiscountPercent,
		LineTotal:       CalculateLineTotal(req.Quantity, req.UnitPrice, req.DiscountPercent),
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.UpdateLine(ctx, line); err != nil {
			return fmt.Errorf("update proposal line: %w", err)
		}
		return repo.RecalculateTotal(ctx, proposalID)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, proposalID)
}

// RemoveLine deletes a line and recomputes the total.
func (s *Service) RemoveLine(ctx context.Context, proposalID, lineID int64) (*Proposal, error) {
	existing, err := s.repo.Get(ctx, proposalID)
	if err != nil {
		return nil, fmt.Errorf("get proposal: %w", err)
	}
	if existing.Status != ProposalStatusDraft {
		return nil, fmt.Errorf("%w: only DRAFT proposals can be modified", shared.ErrInvalidStatus)
	}

	current, err := s.repo.GetLine(ctx, lineID)
	if err != nil {
		return nil, fmt.Errorf("get proposal line: %w", err)
	}
	if current.ProposalID != proposalID {
		return nil, fmt.Errorf("%w: line %d does not belong to proposal %d", shared.ErrNotFound, lineID, proposalID)
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.DeleteLine(ctx, lineID); err != nil {
			return fmt.Errorf("delete proposal line: %w", err)
		}
		return repo.RecalculateTotal(ctx, proposalID)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, proposalID)
}

// Send transitions a proposal from DRAFT to SENT.
func (s *Service) Send(ctx context.Context, id int64, userID int64) (*Proposal, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get proposal: %w", err)
	}
	if existing.Status != ProposalStatusDraft {
		return nil, fmt.Errorf("%w: can only send DRAFT proposals", shared.ErrInvalidStatus)
	}

	if err := s.repo.UpdateStatus(ctx, id, ProposalStatusSent); err != nil {
		return nil, fmt.Errorf("send proposal: %w", err)
	}

	s.recordAudit(ctx, userID, "proposal.send", id, map[string]any{"reference": existing.Reference})
	return s.repo.Get(ctx, id)
}

// MarkSent flips a DRAFT proposal to SENT after a successful email dispatch.
// Proposals already past DRAFT are left untouched.
func (s *Service) MarkSent(ctx context.Context, id int64) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get proposal: %w", err)
	}
	if existing.Status != ProposalStatusDraft {
		return nil
	}
	return s.repo.UpdateStatus(ctx, id, ProposalStatusSent)
}

// Reject transitions a proposal from SENT to REJECTED.
func (s *Service) Reject(ctx context.Context, id int64, userID int64) (*Proposal, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get proposal: %w", err)
	}
	if existing.Status != ProposalStatusSent {
		return nil, fmt.Errorf("%w: can only reject SENT proposals", shared.ErrInvalidStatus)
	}

	if err := s.repo.UpdateStatus(ctx, id, ProposalStatusRejected); err != nil {
		return nil, fmt.Errorf("reject proposal: %w", err)
	}

	s.recordAudit(ctx, userID, "proposal.reject", id, map[string]any{"reference": existing.Reference})
	return s.repo.Get(ctx, id)
}

// Delete removes a proposal and its lines.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Get retrieves a proposal with its lines.
func (s *Service) Get(ctx context.Context, id int64) (*Proposal, error) {
	return s.repo.Get(ctx, id)
}

// GetWithClient retrieves a proposal joined with its client's name.
func (s *Service) GetWithClient(ctx context.Context, id int64) (*ProposalWithClient, error) {
	return s.repo.GetWithClient(ctx, id)
}

// List returns a paginated list of proposals.
func (s *Service) List(ctx context.Context, req ListProposalsRequest) ([]ProposalWithClient, int, error) {
	return s.repo.List(ctx, req)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "proposal",
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	})
}
