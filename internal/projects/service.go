package projects

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/meridian-ops/meridian/internal/crm"
	"github.com/meridian-ops/meridian/internal/proposals"
	"github.com/meridian-ops/meridian/internal/shared"
)

// ClientDirectory is the slice of the CRM repository the project service
// needs to verify client references.
type ClientDirectory interface {
	GetClient(ctx context.Context, id int64) (*crm.Client, error)
}

// Service provides business logic for project operations, including the
// conversion of accepted proposals into projects.
type Service struct {
	repo    Repository
	clients ClientDirectory
	audit   *shared.AuditLogger
	now     func() time.Time
}

// NewService constructs a project service.
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

// ConvertProposal turns a proposal into a project. Header fields come from
// the request overrides, then the proposal, then a name derived from the
// client and reference. Lines are copied with the discount folded into the
// price, so quantity * price still sums to the proposal total. The project
// insert, the line copies, the total recalculation and the proposal's flip
// to ACCEPTED happen in one transaction.
func (s *Service) ConvertProposal(ctx context.Context, proposalID int64, req ConvertProposalRequest, actorID int64) (*Project, error) {
	var created *Project
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		snap, err := repo.GetProposalSnapshot(ctx, proposalID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return fmt.Errorf("%w: proposal %d", shared.ErrNotFound, proposalID)
			}
			return fmt.Errorf("read proposal: %w", err)
		}

		switch proposals.ProposalStatus(snap.Status) {
		case proposals.ProposalStatusAccepted:
			return fmt.Errorf("%w: proposal %s is already converted", shared.ErrAlreadyExists, snap.Reference)
		case proposals.ProposalStatusRejected:
			return fmt.Errorf("%w: proposal %s is rejected", shared.ErrInvalidStatus, snap.Reference)
		}

		if existing, err := repo.GetByProposal(ctx, proposalID); err == nil {
			return fmt.Errorf("%w: proposal %s already has project %d",
				shared.ErrAlreadyExists, snap.Reference, existing.ID)
		} else if !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("check existing project: %w", err)
		}

		name := projectName(req.ProjectName, snap)
		startDate := req.StartDate
		if startDate == nil {
			today := s.now()
			startDate = &today
		}
		description := req.Description
		if description == nil {
			description = snap.Description
		}

		id, err := repo.Create(ctx, Project{
			ProposalID:  &snap.ID,
			ClientID:    snap.ClientID,
			Name:        name,
			Description: description,
			Status:      ProjectStatusPending,
			StartDate:   startDate,
			CreatedBy:   actorID,
		})
		if err != nil {
			return fmt.Errorf("create project: %w", err)
		}

		for _, lineSnap := range snap.Lines {
			line := ProjectLine{
				ProjectID:   id,
				ServiceID:   lineSnap.ServiceID,
				Description: lineSnap.Description,
				Quantity:    lineSnap.Quantity,
				Price:       lineSnap.UnitPrice * (1 - lineSnap.DiscountPercent/100),
				Status:      LineStatusPending,
			}
			if _, err := repo.InsertLine(ctx, line); err != nil {
				return fmt.Errorf("copy proposal line: %w", err)
			}
		}

		if err := repo.RecalculateTotal(ctx, id); err != nil {
			return err
		}
		if err := repo.UpdateProposalStatus(ctx, proposalID, string(proposals.ProposalStatusAccepted)); err != nil {
			return fmt.Errorf("mark proposal accepted: %w", err)
		}

		created, err = repo.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actorID, "project.convert", created.ID, map[string]any{
		"proposal_id": proposalID,
	})
	return created, nil
}

// Create creates a project directly, without a backing proposal.
func (s *Service) Create(ctx context.Context, req CreateProjectRequest, createdBy int64) (*Project, error) {
	if _, err := s.clients.GetClient(ctx, req.ClientID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("%w: client %d does not exist", shared.ErrValidation, req.ClientID)
		}
		return nil, fmt.Errorf("verify client: %w", err)
	}

	var projectID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		id, err := repo.Create(ctx, Project{
			ClientID:    req.ClientID,
			Name:        req.Name,
			Description: req.Description,
			Status:      ProjectStatusPending,
			StartDate:   req.StartDate,
			EndDate:     req.EndDate,
			CreatedBy:   createdBy,
		})
		if err != nil {
			return fmt.Errorf("create project: %w", err)
		}
		projectID = id

		for _, lineReq := range req.Lines {
			line := ProjectLine{
				ProjectID:   projectID,
				ServiceID:   lineReq.ServiceID,
				Description: lineReq.Description,
				Quantity:    lineReq.Quantity,
				Price:       lineReq.Price,
				Status:      LineStatusPending,
			}
			if _, err := repo.InsertLine(ctx, line); err != nil {
				return fmt.Errorf("insert project line: %w", err)
			}
		}

		return repo.RecalculateTotal(ctx, projectID)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, projectID)
}

// Update modifies header fields. Completed and cancelled projects are frozen.
func (s *Service) Update(ctx context.Context, id int64, req UpdateProjectRequest) (*Project, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := mutable(existing); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.StartDate != nil {
		updates["start_date"] = *req.StartDate
	}
	if req.EndDate != nil {
		updates["end_date"] = *req.EndDate
	}

	if len(updates) > 0 {
		if err := s.repo.Update(ctx, id, updates); err != nil {
			return nil, err
		}
	}
	return s.repo.Get(ctx, id)
}

// AddLine appends a line and recomputes the total in one transaction.
func (s *Service) AddLine(ctx context.Context, projectID int64, req ProjectLineRequest) (*Project, error) {
	existing, err := s.repo.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := mutable(existing); err != nil {
		return nil, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		line := ProjectLine{
			ProjectID:   projectID,
			ServiceID:   req.ServiceID,
			Description: req.Description,
			Quantity:    req.Quantity,
			Price:       req.Price,
			Status:      LineStatusPending,
		}
		if _, err := repo.InsertLine(ctx, line); err != nil {
			return fmt.Errorf("insert project line: %w", err)
		}
		return repo.RecalculateTotal(ctx, projectID)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, projectID)
}

// RemoveLine deletes a line and recomputes the total in one transaction.
func (s *Service) RemoveLine(ctx context.Context, projectID, lineID int64) (*Project, error) {
	existing, err := s.repo.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := mutable(existing); err != nil {
		return nil, err
	}

	current, err := s.repo.GetLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if current.ProjectID != projectID {
		return nil, shared.ErrNotFound
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.DeleteLine(ctx, lineID); err != nil {
			return err
		}
		return repo.RecalculateTotal(ctx, projectID)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, projectID)
}

// SetLineStatus marks a single line PENDING or COMPLETED.
func (s *Service) SetLineStatus(ctx context.Context, projectID, lineID int64, status LineStatus) (*Project, error) {
	if status != LineStatusPending && status != LineStatusCompleted {
		return nil, fmt.Errorf("%w: unknown line status %q", shared.ErrValidation, status)
	}

	current, err := s.repo.GetLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if current.ProjectID != projectID {
		return nil, shared.ErrNotFound
	}

	if err := s.repo.UpdateLineStatus(ctx, lineID, status); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, projectID)
}

// RecordPayment adds to the project's paid amount.
func (s *Service) RecordPayment(ctx context.Context, id int64, amount float64, actorID int64) (*Project, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: payment amount must be positive", shared.ErrValidation)
	}

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status == ProjectStatusCancelled {
		return nil, fmt.Errorf("%w: project is cancelled", shared.ErrInvalidStatus)
	}

	if err := s.repo.AddPayment(ctx, id, amount); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actorID, "project.payment", id, map[string]any{
		"amount": amount,
	})
	return s.repo.Get(ctx, id)
}

// Start transitions PENDING -> IN_PROGRESS.
func (s *Service) Start(ctx context.Context, id int64, actorID int64) (*Project, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status != ProjectStatusPending {
		return nil, fmt.Errorf("%w: only pending projects can be started, got %s",
			shared.ErrInvalidStatus, existing.Status)
	}

	if err := s.repo.UpdateStatus(ctx, id, ProjectStatusInProgress); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "project.start", id, nil)
	return s.repo.Get(ctx, id)
}

// Complete transitions IN_PROGRESS -> COMPLETED. The project must be fully
// paid before it can be completed.
func (s *Service) Complete(ctx context.Context, id int64, actorID int64) (*Project, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status != ProjectStatusInProgress {
		return nil, fmt.Errorf("%w: only in-progress projects can be completed, got %s",
			shared.ErrInvalidStatus, existing.Status)
	}
	if existing.PaidAmount < existing.TotalAmount {
		return nil, fmt.Errorf("%w: outstanding balance %.2f",
			shared.ErrValidation, existing.TotalAmount-existing.PaidAmount)
	}

	if err := s.repo.UpdateStatus(ctx, id, ProjectStatusCompleted); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "project.complete", id, nil)
	return s.repo.Get(ctx, id)
}

// Cancel transitions PENDING or IN_PROGRESS -> CANCELLED.
func (s *Service) Cancel(ctx context.Context, id int64, actorID int64) (*Project, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status != ProjectStatusPending && existing.Status != ProjectStatusInProgress {
		return nil, fmt.Errorf("%w: project is %s", shared.ErrInvalidStatus, existing.Status)
	}

	if err := s.repo.UpdateStatus(ctx, id, ProjectStatusCancelled); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "project.cancel", id, nil)
	return s.repo.Get(ctx, id)
}

// Delete removes a project and its lines.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Get returns a project with its lines.
func (s *Service) Get(ctx context.Context, id int64) (*Project, error) {
	return s.repo.Get(ctx, id)
}

// GetWithClient returns a project joined with its client name.
func (s *Service) GetWithClient(ctx context.Context, id int64) (*ProjectWithClient, error) {
	return s.repo.GetWithClient(ctx, id)
}

// List returns projects matching the filter, newest first.
func (s *Service) List(ctx context.Context, req ListProjectsRequest) ([]ProjectWithClient, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "project",
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
		At:       s.now(),
	})
}

func mutable(p *Project) error {
	if p.Status == ProjectStatusCompleted || p.Status == ProjectStatusCancelled {
		return fmt.Errorf("%w: project is %s", shared.ErrInvalidStatus, p.Status)
	}
	return nil
}

func projectName(override *string, snap *ProposalSnapshot) string {
	if override != nil && *override != "" {
		return *override
	}
	if snap.ProjectName != nil && *snap.ProjectName != "" {
		return *snap.ProjectName
	}
	return snap.ClientName + " " + snap.Reference
}
