package mailer

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-ops/meridian/internal/crm"
	"github.com/meridian-ops/meridian/internal/proposals"
	"github.com/meridian-ops/meridian/internal/shared"
)

// ============================================================================
// MOCKS
// ============================================================================

type mockRepository struct {
	emails map[int64]*Email
	nextID int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{emails: make(map[int64]*Email), nextID: 1}
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*Email, error) {
	e, ok := m.emails[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	out := *e
	return &out, nil
}

func (m *mockRepository) ListByProposal(ctx context.Context, proposalID int64) ([]Email, error) {
	var out []Email
	for id := int64(1); id < m.nextID; id++ {
		if e, ok := m.emails[id]; ok && e.ProposalID == proposalID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *mockRepository) Create(ctx context.Context, email Email) (int64, error) {
	id := m.nextID
	m.nextID++
	email.ID = id
	email.CreatedAt = time.Now()
	email.UpdatedAt = email.CreatedAt
	m.emails[id] = &email
	return id, nil
}

func (m *mockRepository) MarkSent(ctx context.Context, id int64, sentAt time.Time) error {
	e, ok := m.emails[id]
	if !ok {
		return shared.ErrNotFound
	}
	e.Status = EmailStatusSent
	e.SentAt = &sentAt
	e.Error = nil
	return nil
}

func (m *mockRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	e, ok := m.emails[id]
	if !ok {
		return shared.ErrNotFound
	}
	e.Status = EmailStatusFailed
	e.Error = &reason
	return nil
}

type mockProposals struct {
	proposals map[int64]*proposals.ProposalWithClient
	sent      []int64
}

func (m *mockProposals) GetWithClient(ctx context.Context, id int64) (*proposals.ProposalWithClient, error) {
	p, ok := m.proposals[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (m *mockProposals) MarkSent(ctx context.Context, id int64) error {
	m.sent = append(m.sent, id)
	return nil
}

type mockClients struct {
	clients map[int64]*crm.Client
}

func (m *mockClients) GetClient(ctx context.Context, id int64) (*crm.Client, error) {
	c, ok := m.clients[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return c, nil
}

type mockPDFs struct {
	err error
}

func (m *mockPDFs) ProposalPDF(ctx context.Context, id int64) ([]byte, string, error) {
	if m.err != nil {
		return nil, "", m.err
	}
	return []byte("%PDF-mock"), "PROP-202503-0007.pdf", nil
}

type mockSender struct {
	sent []Message
	err  error
}

func (m *mockSender) Send(msg Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type mockEnqueuer struct {
	queued []int64
	err    error
}

func (m *mockEnqueuer) EnqueueEmail(ctx context.Context, emailID int64) error {
	if m.err != nil {
		return m.err
	}
	m.queued = append(m.queued, emailID)
	return nil
}

type testFixture struct {
	svc       *Service
	repo      *mockRepository
	proposals *mockProposals
	clients   *mockClients
	pdfs      *mockPDFs
	sender    *mockSender
	enqueuer  *mockEnqueuer
}

func newTestFixture() *testFixture {
	f := &testFixture{
		repo: newMockRepository(),
		proposals: &mockProposals{proposals: map[int64]*proposals.ProposalWithClient{
			41: {
				Proposal: proposals.Proposal{
					ID:        41,
					Reference: "PROP-202503-0007",
					ClientID:  7,
					Status:    proposals.ProposalStatusDraft,
				},
				ClientName: "Acme Holdings",
			},
		}},
		clients: &mockClients{clients: map[int64]*crm.Client{
			7: {ID: 7, Name: "Acme Holdings", Email: ptr("billing@acme.test")},
		}},
		pdfs:     &mockPDFs{},
		sender:   &mockSender{},
		enqueuer: &mockEnqueuer{},
	}
	f.svc = NewService(slog.Default(), f.repo, f.proposals, f.clients, f.pdfs, f.sender, f.enqueuer).
		WithClock(func() time.Time {
			return time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
		})
	return f
}

func ptr[T any](v T) *T {
	return &v
}

// ============================================================================
// TESTS
// ============================================================================

func TestQueueEmail(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()

	email, err := f.svc.Queue(ctx, 41, SendEmailRequest{})
	require.NoError(t, err)

	assert.Equal(t, EmailStatusPending, email.Status)
	assert.Equal(t, "billing@acme.test", email.Recipient)
	assert.Equal(t, "Proposal PROP-202503-0007", email.Subject)
	assert.Contains(t, email.Body, "Dear Acme Holdings")
	assert.Contains(t, email.Body, "PROP-202503-0007")
	assert.Equal(t, []int64{email.ID}, f.enqueuer.queued)
	assert.Empty(t, f.sender.sent, "queueing must not send synchronously")
}

func TestQueueEmailOverrides(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()

	email, err := f.svc.Queue(ctx, 41, SendEmailRequest{
		Recipient: ptr("cfo@acme.test"),
		Subject:   ptr("Revised quote"),
		Message:   ptr("As discussed on the call."),
	})
	require.NoError(t, err)

	assert.Equal(t, "cfo@acme.test", email.Recipient)
	assert.Equal(t, "Revised quote", email.Subject)
	assert.Contains(t, email.Body, "As discussed on the call.")
}

func TestQueueEmailClientWithoutAddress(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()
	f.clients.clients[7].Email = nil

	_, err := f.svc.Queue(ctx, 41, SendEmailRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrValidation))
	assert.Empty(t, f.repo.emails)
}

func TestQueueEmailRejectedProposal(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()
	f.proposals.proposals[41].Status = proposals.ProposalStatusRejected

	_, err := f.svc.Queue(ctx, 41, SendEmailRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInvalidStatus))
}

func TestQueueEmailEnqueueFailureKeepsRow(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()
	f.enqueuer.err = errors.New("redis down")

	_, err := f.svc.Queue(ctx, 41, SendEmailRequest{})
	require.Error(t, err)

	// the PENDING row survives so a manual requeue can retry it
	require.Len(t, f.repo.emails, 1)
	assert.Equal(t, EmailStatusPending, f.repo.emails[1].Status)
}

func TestDeliverEmail(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()

	email, err := f.svc.Queue(ctx, 41, SendEmailRequest{})
	require.NoError(t, err)

	require.NoError(t, f.svc.Deliver(ctx, email.ID))

	stored := f.repo.emails[email.ID]
	assert.Equal(t, EmailStatusSent, stored.Status)
	require.NotNil(t, stored.SentAt)
	assert.Equal(t, time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC), *stored.SentAt)

	require.Len(t, f.sender.sent, 1)
	msg := f.sender.sent[0]
	assert.Equal(t, "billing@acme.test", msg.To)
	assert.Equal(t, "PROP-202503-0007.pdf", msg.Filename)
	assert.Equal(t, []byte("%PDF-mock"), msg.Attachment)

	// delivering the proposal email promotes the draft
	assert.Equal(t, []int64{41}, f.proposals.sent)
}

func TestDeliverEmailIsIdempotent(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()

	email, err := f.svc.Queue(ctx, 41, SendEmailRequest{})
	require.NoError(t, err)
	require.NoError(t, f.svc.Deliver(ctx, email.ID))
	require.NoError(t, f.svc.Deliver(ctx, email.ID))

	assert.Len(t, f.sender.sent, 1, "a SENT email must not be resent")
	assert.Len(t, f.proposals.sent, 1)
}

func TestDeliverEmailSenderFailure(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()

	email, err := f.svc.Queue(ctx, 41, SendEmailRequest{})
	require.NoError(t, err)

	f.sender.err = errors.New("smtp: 550 mailbox unavailable")
	err = f.svc.Deliver(ctx, email.ID)
	require.Error(t, err)

	stored := f.repo.emails[email.ID]
	assert.Equal(t, EmailStatusFailed, stored.Status)
	require.NotNil(t, stored.Error)
	assert.Contains(t, *stored.Error, "550 mailbox unavailable")
	assert.Empty(t, f.proposals.sent)
}

func TestDeliverEmailRenderFailure(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()

	email, err := f.svc.Queue(ctx, 41, SendEmailRequest{})
	require.NoError(t, err)

	f.pdfs.err = errors.New("gotenberg unreachable")
	err = f.svc.Deliver(ctx, email.ID)
	require.Error(t, err)
	assert.Equal(t, EmailStatusFailed, f.repo.emails[email.ID].Status)
	assert.Empty(t, f.sender.sent)
}

func TestDeliverMissingEmailIsNoop(t *testing.T) {
	f := newTestFixture()
	require.NoError(t, f.svc.Deliver(context.Background(), 99999))
	assert.Empty(t, f.sender.sent)
}

func TestListByProposal(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()

	first, err := f.svc.Queue(ctx, 41, SendEmailRequest{})
	require.NoError(t, err)
	second, err := f.svc.Queue(ctx, 41, SendEmailRequest{Subject: ptr("Follow-up")})
	require.NoError(t, err)

	history, err := f.svc.ListByProposal(ctx, 41)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, first.ID, history[0].ID)
	assert.Equal(t, second.ID, history[1].ID)
}
