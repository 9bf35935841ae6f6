package documents

import (
	"context"
	"fmt"

	"github.com/meridian-ops/meridian/internal/projects"
	"github.com/meridian-ops/meridian/internal/proposals"
)

// ProposalSource fetches proposals for rendering.
type ProposalSource interface {
	GetWithClient(ctx context.Context, id int64) (*proposals.ProposalWithClient, error)
}

// ProjectSource fetches projects for rendering.
type ProjectSource interface {
	GetWithClient(ctx context.Context, id int64) (*projects.ProjectWithClient, error)
}

// Service assembles render-ready documents and drives the renderer.
type Service struct {
	renderer  *Renderer
	proposals ProposalSource
	projects  ProjectSource
}

// NewService constructs a document service.
func NewService(renderer *Renderer, proposalSrc ProposalSource, projectSrc ProjectSource) *Service {
	return &Service{
		renderer:  renderer,
		proposals: proposalSrc,
		projects:  projectSrc,
	}
}

// ProposalPDF renders the PDF for a proposal. The filename is derived from
// the reference.
func (s *Service) ProposalPDF(ctx context.Context, id int64) ([]byte, string, error) {
	p, err := s.proposals.GetWithClient(ctx, id)
	if err != nil {
		return nil, "", err
	}

	doc := ProposalDocument(p)
	pdf, err := s.renderer.Render(ctx, doc)
	if err != nil {
		return nil, "", fmt.Errorf("render proposal pdf: %w", err)
	}
	return pdf, doc.Reference + ".pdf", nil
}

// ProjectPDF renders the PDF summary for a project.
func (s *Service) ProjectPDF(ctx context.Context, id int64) ([]byte, string, error) {
	p, err := s.projects.GetWithClient(ctx, id)
	if err != nil {
		return nil, "", err
	}

	doc := ProjectDocument(p)
	pdf, err := s.renderer.Render(ctx, doc)
	if err != nil {
		return nil, "", fmt.Errorf("render project pdf: %w", err)
	}
	return pdf, fmt.Sprintf("project-%d.pdf", p.ID), nil
}

// ProposalDocument flattens a proposal into the render shape.
func ProposalDocument(p *proposals.ProposalWithClient) Document {
	doc := Document{
		Kind:       "proposal",
		Title:      "Proposal",
		Reference:  p.Reference,
		ClientName: p.ClientName,
		Date:       p.ProposalDate,
		Status:     string(p.Status),
		Total:      p.TotalAmount,
		UpdatedAt:  p.UpdatedAt,
	}
	if p.ProjectName != nil {
		doc.Title = "Proposal: " + *p.ProjectName
	}
	if p.Notes != nil {
		doc.Notes = *p.Notes
	}
	for _, line := range p.Lines {
		doc.Lines = append(doc.Lines, DocumentLine{
			Label:           lineLabel(line.Description, line.ServiceID),
			Quantity:        line.Quantity,
			UnitPrice:       line.UnitPrice,
			DiscountPercent: line.DiscountPercent,
			Amount:          line.LineTotal,
		})
	}
	return doc
}

// ProjectDocument flattens a project into the render shape.
func ProjectDocument(p *projects.ProjectWithClient) Document {
	doc := Document{
		Kind:       "project",
		Title:      "Project: " + p.Name,
		Reference:  fmt.Sprintf("PRJ-%d", p.ID),
		ClientName: p.ClientName,
		Date:       p.CreatedAt,
		Status:     string(p.Status),
		Total:      p.TotalAmount,
		UpdatedAt:  p.UpdatedAt,
	}
	if p.StartDate != nil {
		doc.Date = *p.StartDate
	}
	if p.Description != nil {
		doc.Notes = *p.Description
	}
	for _, line := range p.Lines {
		doc.Lines = append(doc.Lines, DocumentLine{
			Label:     lineLabel(line.Description, line.ServiceID),
			Quantity:  line.Quantity,
			UnitPrice: line.Price,
			Amount:    line.Quantity * line.Price,
		})
	}
	return doc
}

func lineLabel(description *string, serviceID int64) string {
	if description != nil && *description != "" {
		return *description
	}
	return fmt.Sprintf("Service #%d", serviceID)
}
