package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/meridian-ops/meridian/internal/crm"
	"github.com/meridian-ops/meridian/internal/proposals"
	"github.com/meridian-ops/meridian/internal/shared"
)

// ProposalDirectory is the slice of the proposal service the mailer needs.
// MarkSent flips DRAFT proposals to SENT once their email goes out.
type ProposalDirectory interface {
	GetWithClient(ctx context.Context, id int64) (*proposals.ProposalWithClient, error)
	MarkSent(ctx context.Context, id int64) error
}

// ClientDirectory resolves the default recipient address.
type ClientDirectory interface {
	GetClient(ctx context.Context, id int64) (*crm.Client, error)
}

// PDFSource renders the proposal attachment.
type PDFSource interface {
	ProposalPDF(ctx context.Context, id int64) ([]byte, string, error)
}

// Enqueuer hands delivery off to the background worker.
type Enqueuer interface {
	EnqueueEmail(ctx context.Context, emailID int64) error
}

// SendEmailRequest overrides the composed defaults.
type SendEmailRequest struct {
	Recipient *string `json:"recipient,omitempty" validate:"omitempty,email"`
	Subject   *string `json:"subject,omitempty" validate:"omitempty,max=255"`
	Message   *string `json:"message,omitempty"`
}

// Service queues proposal emails and delivers them from the worker.
type Service struct {
	logger    *slog.Logger
	repo      Repository
	proposals ProposalDirectory
	clients   ClientDirectory
	pdfs      PDFSource
	sender    Sender
	enqueuer  Enqueuer
	now       func() time.Time
}

// NewService constructs a mailer service.
func NewService(logger *slog.Logger, repo Repository, proposalDir ProposalDirectory,
	clients ClientDirectory, pdfs PDFSource, sender Sender, enqueuer Enqueuer) *Service {
	return &Service{
		logger:    logger,
		repo:      repo,
		proposals: proposalDir,
		clients:   clients,
		pdfs:      pdfs,
		sender:    sender,
		enqueuer:  enqueuer,
		now:       time.Now,
	}
}

// WithClock overrides the service clock. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Queue records a PENDING email for the proposal and enqueues delivery.
func (s *Service) Queue(ctx context.Context, proposalID int64, req SendEmailRequest) (*Email, error) {
	proposal, err := s.proposals.GetWithClient(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.Status == proposals.ProposalStatusRejected {
		return nil, fmt.Errorf("%w: proposal %s is rejected", shared.ErrInvalidStatus, proposal.Reference)
	}

	recipient, err := s.resolveRecipient(ctx, proposal, req.Recipient)
	if err != nil {
		return nil, err
	}

	subject := fmt.Sprintf("Proposal %s", proposal.Reference)
	if req.Subject != nil && *req.Subject != "" {
		subject = *req.Subject
	}

	email := Email{
		ProposalID: proposalID,
		Recipient:  recipient,
		Subject:    subject,
		Body:       composeBody(proposal, req.Message),
		Status:     EmailStatusPending,
	}
	id, err := s.repo.Create(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("create email: %w", err)
	}

	if err := s.enqueuer.EnqueueEmail(ctx, id); err != nil {
		// The row stays PENDING; a requeue can pick it up later.
		s.logger.Error("enqueue email failed", "error", err, "email_id", id)
		return nil, fmt.Errorf("enqueue email: %w", err)
	}

	return s.repo.Get(ctx, id)
}

// Deliver sends one queued email. Called from the worker; returning an error
// makes the task retry, so permanent failures are marked FAILED first.
func (s *Service) Deliver(ctx context.Context, emailID int64) error {
	email, err := s.repo.Get(ctx, emailID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("email vanished before delivery", "email_id", emailID)
			return nil
		}
		return err
	}
	if email.Status == EmailStatusSent {
		return nil
	}

	pdf, filename, err := s.pdfs.ProposalPDF(ctx, email.ProposalID)
	if err != nil {
		_ = s.repo.MarkFailed(ctx, emailID, err.Error())
		return fmt.Errorf("render attachment: %w", err)
	}

	msg := Message{
		To:         email.Recipient,
		Subject:    email.Subject,
		Body:       email.Body,
		Attachment: pdf,
		Filename:   filename,
	}
	if err := s.sender.Send(msg); err != nil {
		_ = s.repo.MarkFailed(ctx, emailID, err.Error())
		return fmt.Errorf("send email %d: %w", emailID, err)
	}

	if err := s.repo.MarkSent(ctx, emailID, s.now()); err != nil {
		return err
	}
	if err := s.proposals.MarkSent(ctx, email.ProposalID); err != nil {
		s.logger.Error("mark proposal sent failed", "error", err, "proposal_id", email.ProposalID)
	}

	s.logger.Info("email delivered", "email_id", emailID, "proposal_id", email.ProposalID)
	return nil
}

// ListByProposal returns the email history for a proposal.
func (s *Service) ListByProposal(ctx context.Context, proposalID int64) ([]Email, error) {
	return s.repo.ListByProposal(ctx, proposalID)
}

func (s *Service) resolveRecipient(ctx context.Context, proposal *proposals.ProposalWithClient, override *string) (string, error) {
	if override != nil && *override != "" {
		return *override, nil
	}
	client, err := s.clients.GetClient(ctx, proposal.ClientID)
	if err != nil {
		return "", fmt.Errorf("resolve client: %w", err)
	}
	if client.Email == nil || *client.Email == "" {
		return "", fmt.Errorf("%w: client %s has no email address", shared.ErrValidation, client.Name)
	}
	return *client.Email, nil
}

func composeBody(proposal *proposals.ProposalWithClient, message *string) string {
	intro := fmt.Sprintf("Please find attached proposal %s.", proposal.Reference)
	if message != nil && *message != "" {
		intro = *message
	}
	return fmt.Sprintf(`<p>Dear %s,</p><p>%s</p><p>Kind regards</p>`,
		proposal.ClientName, intro)
}
