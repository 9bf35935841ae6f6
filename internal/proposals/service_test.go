package proposals

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-ops/meridian/internal/crm"
	"github.com/meridian-ops/meridian/internal/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockRepository struct {
	proposals      map[int64]*Proposal
	lines          map[int64]*ProposalLine
	sequences      map[string]int64
	nextProposalID int64
	nextLineID     int64

	txError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		proposals:      make(map[int64]*Proposal),
		lines:          make(map[int64]*ProposalLine),
		sequences:      make(map[string]int64),
		nextProposalID: 1,
		nextLineID:     1,
	}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	if m.txError != nil {
		return m.txError
	}
	return fn(ctx, m)
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*Proposal, error) {
	p, ok := m.proposals[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	out := *p
	out.Lines = m.linesFor(id)
	return &out, nil
}

func (m *mockRepository) GetWithClient(ctx context.Context, id int64) (*ProposalWithClient, error) {
	p, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ProposalWithClient{Proposal: *p, ClientName: "Mock Client"}, nil
}

func (m *mockRepository) List(ctx context.Context, req ListProposalsRequest) ([]ProposalWithClient, int, error) {
	var results []ProposalWithClient
	for _, p := range m.proposals {
		if req.Status != nil && p.Status != *req.Status {
			continue
		}
		if req.ClientID != nil && p.ClientID != *req.ClientID {
			continue
		}
		results = append(results, ProposalWithClient{Proposal: *p, ClientName: "Mock Client"})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, len(results), nil
}

func (m *mockRepository) GetLine(ctx context.Context, lineID int64) (*ProposalLine, error) {
	line, ok := m.lines[lineID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	out := *line
	return &out, nil
}

func (m *mockRepository) GenerateReference(ctx context.Context, date time.Time) (string, error) {
	period := date.Format("200601")
	m.sequences[period]++
	return fmt.Sprintf("PROP-%s-%04d", period, m.sequences[period]), nil
}

func (m *mockRepository) Create(ctx context.Context, p Proposal) (int64, error) {
	id := m.nextProposalID
	m.nextProposalID++
	p.ID = id
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.proposals[id] = &p
	return id, nil
}

func (m *mockRepository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	p, ok := m.proposals[id]
	if !ok {
		return shared.ErrNotFound
	}
	if v, ok := updates["project_name"]; ok {
		name := v.(string)
		p.ProjectName = &name
	}
	if v, ok := updates["description"]; ok {
		desc := v.(string)
		p.Description = &desc
	}
	if v, ok := updates["proposal_date"]; ok {
		p.ProposalDate = v.(time.Time)
	}
	if v, ok := updates["notes"]; ok {
		notes := v.(string)
		p.Notes = &notes
	}
	return nil
}

func (m *mockRepository) UpdateStatus(ctx context.Context, id int64, status ProposalStatus) error {
	p, ok := m.proposals[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.Status = status
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.proposals[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.proposals, id)
	for lineID, line := range m.lines {
		if line.ProposalID == id {
			delete(m.lines, lineID)
		}
	}
	return nil
}

func (m *mockRepository) InsertLine(ctx context.Context, line ProposalLine) (int64, error) {
	id := m.nextLineID
	m.nextLineID++
	line.ID = id
	m.lines[id] = &line
	return id, nil
}

func (m *mockRepository) UpdateLine(ctx context.Context, line ProposalLine) error {
	if _, ok := m.lines[line.ID]; !ok {
		return shared.ErrNotFound
	}
	m.lines[line.ID] = &line
	return nil
}

func (m *mockRepository) DeleteLine(ctx context.Context, lineID int64) error {
	if _, ok := m.lines[lineID]; !ok {
		return shared.ErrNotFound
	}
	delete(m.lines, lineID)
	return nil
}

func (m *mockRepository) DeleteLines(ctx context.Context, proposalID int64) error {
	for lineID, line := range m.lines {
		if line.ProposalID == proposalID {
			delete(m.lines, lineID)
		}
	}
	return nil
}

func (m *mockRepository) RecalculateTotal(ctx context.Context, proposalID int64) error {
	p, ok := m.proposals[proposalID]
	if !ok {
		return shared.ErrNotFound
	}
	var total float64
	for _, line := range m.lines {
		if line.ProposalID == proposalID {
			total += line.LineTotal
		}
	}
	p.TotalAmount = total
	return nil
}

func (m *mockRepository) linesFor(proposalID int64) []ProposalLine {
	var lines []ProposalLine
	for _, line := range m.lines {
		if line.ProposalID == proposalID {
			lines = append(lines, *line)
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })
	return lines
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

func newTestService() (*Service, *mockRepository) {
	repo := newMockRepository()
	clients := &mockClients{clients: map[int64]*crm.Client{
		7: {ID: 7, Name: "Acme Holdings"},
	}}
	svc := NewService(repo, clients, nil).WithClock(func() time.Time {
		return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	})
	return svc, repo
}

func ptr[T any](v T) *T {
	return &v
}

// ============================================================================
// TESTS
// ============================================================================

func TestCalculateLineTotal(t *testing.T) {
	cases := []struct {
		quantity, unitPrice, discount, want float64
	}{
		{1, 100, 0, 100},
		{2, 100, 0, 200},
		{2, 100, 10, 180},
		{1, 100, 100, 0},
		{3, 33.33, 0, 99.99},
		{1.5, 200, 12.5, 262.5},
		{0.25, 1000, 7.5, 231.25},
	}
	for _, tc := range cases {
		got := CalculateLineTotal(tc.quantity, tc.unitPrice, tc.discount)
		assert.InDelta(t, tc.want, got, 1e-6,
			"qty=%g price=%g discount=%g", tc.quantity, tc.unitPrice, tc.discount)
	}
}

func TestCreateProposal(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	req := CreateProposalRequest{
		ClientID:     7,
		ProjectName:  ptr("Website relaunch"),
		ProposalDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Lines: []ProposalLineRequest{
			{ServiceID: 1, Quantity: 2, UnitPrice: 100},
			{ServiceID: 2, Quantity: 1, UnitPrice: 500, DiscountPercent: 10},
		},
	}

	proposal, err := svc.Create(ctx, req, 100)
	require.NoError(t, err)
	require.NotNil(t, proposal)

	assert.Equal(t, "PROP-202503-0001", proposal.Reference)
	assert.Equal(t, ProposalStatusDraft, proposal.Status)
	assert.Equal(t, int64(7), proposal.ClientID)
	assert.Equal(t, int64(100), proposal.CreatedBy)
	require.Len(t, proposal.Lines, 2)
	assert.InDelta(t, 200.0, proposal.Lines[0].LineTotal, 1e-6)
	assert.InDelta(t, 450.0, proposal.Lines[1].LineTotal, 1e-6)
	assert.InDelta(t, 650.0, proposal.TotalAmount, 1e-6)
}

func TestCreateProposalUnknownClient(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	req := CreateProposalRequest{
		ClientID:     999,
		ProposalDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Lines:        []ProposalLineRequest{{ServiceID: 1, Quantity: 1, UnitPrice: 50}},
	}

	_, err := svc.Create(ctx, req, 100)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestReferenceSequenceIncrementsWithinMonth(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	for i, want := range []string{"PROP-202503-0001", "PROP-202503-0002", "PROP-202503-0003"} {
		req := CreateProposalRequest{
			ClientID:     7,
			ProposalDate: date.AddDate(0, 0, i),
			Lines:        []ProposalLineRequest{{ServiceID: 1, Quantity: 1, UnitPrice: 100}},
		}
		proposal, err := svc.Create(ctx, req, 100)
		require.NoError(t, err)
		assert.Equal(t, want, proposal.Reference)
	}
}

func TestReferenceSequenceResetsPerMonth(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	march := CreateProposalRequest{
		ClientID:     7,
		ProposalDate: time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		Lines:        []ProposalLineRequest{{ServiceID: 1, Quantity: 1, UnitPrice: 100}},
	}
	first, err := svc.Create(ctx, march, 100)
	require.NoError(t, err)
	assert.Equal(t, "PROP-202503-0001", first.Reference)

	april := march
	april.ProposalDate = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	second, err := svc.Create(ctx, april, 100)
	require.NoError(t, err)
	assert.Equal(t, "PROP-202504-0001", second.Reference)
}

func TestTotalRecalculatedOnLineMutations(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	proposal, err := svc.Create(ctx, CreateProposalRequest{
		ClientID:     7,
		ProposalDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Lines:        []ProposalLineRequest{{ServiceID: 1, Quantity: 2, UnitPrice: 100}},
	}, 100)
	require.NoError(t, err)
	require.InDelta(t, 200.0, proposal.TotalAmount, 1e-6)

	// add
	proposal, err = svc.AddLine(ctx, proposal.ID, ProposalLineRequest{
		ServiceID: 2, Quantity: 1, UnitPrice: 300, DiscountPercent: 50,
	})
	require.NoError(t, err)
	assert.InDelta(t, 350.0, proposal.TotalAmount, 1e-6)

	// update
	lineID := proposal.Lines[0].ID
	proposal, err = svc.UpdateLine(ctx, proposal.ID, lineID, ProposalLineRequest{
		ServiceID: 1, Quantity: 4, UnitPrice: 100,
	})
	require.NoError(t, err)
	assert.InDelta(t, 550.0, proposal.TotalAmount, 1e-6)

	// remove both, one at a time
	proposal, err = svc.RemoveLine(ctx, proposal.ID, lineID)
	require.NoError(t, err)
	assert.InDelta(t, 150.0, proposal.TotalAmount, 1e-6)

	proposal, err = svc.RemoveLine(ctx, proposal.ID, proposal.Lines[0].ID)
	require.NoError(t, err)
	assert.Zero(t, proposal.TotalAmount)
	assert.Empty(t, proposal.Lines)
}

func TestTotalMatchesSumOfLines(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	proposal, err := svc.Create(ctx, CreateProposalRequest{
		ClientID:     7,
		ProposalDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Lines: []ProposalLineRequest{
			{ServiceID: 1, Quantity: 3, UnitPrice: 19.99},
			{ServiceID: 2, Quantity: 7, UnitPrice: 42.5, DiscountPercent: 12.5},
			{ServiceID: 3, Quantity: 1, UnitPrice: 0.01},
		},
	}, 100)
	require.NoError(t, err)

	var sum float64
	for _, line := range proposal.Lines {
		sum += line.LineTotal
	}
	assert.InDelta(t, sum, proposal.TotalAmount, 1e-6)

	// recalculating again must not drift
	require.NoError(t, repo.RecalculateTotal(ctx, proposal.ID))
	again, err := svc.Get(ctx, proposal.ID)
	require.NoError(t, err)
	assert.True(t, math.Abs(again.TotalAmount-proposal.TotalAmount) < 1e-9)
}

func TestUpdateRequiresDraft(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	proposal, err := svc.Create(ctx, CreateProposalRequest{
		ClientID:     7,
		ProposalDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Lines:        []ProposalLineRequest{{ServiceID: 1, Quantity: 1, UnitPrice: 100}},
	}, 100)
	require.NoError(t, err)

	_, err = svc.Send(ctx, proposal.ID, 100)
	require.NoError(t, err)

	_, err = svc.Update(ctx, proposal.ID, UpdateProposalRequest{Notes: ptr("too late")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInvalidStatus))

	_, err = svc.AddLine(ctx, proposal.ID, ProposalLineRequest{ServiceID: 1, Quantity: 1, UnitPrice: 10})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInvalidStatus))
}

func TestUpdateReplacesLines(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	proposal, err := svc.Create(ctx, CreateProposalRequest{
		ClientID:     7,
		ProposalDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Lines: []ProposalLineRequest{
			{ServiceID: 1, Quantity: 2, UnitPrice: 100},
			{ServiceID: 2, Quantity: 1, UnitPrice: 500},
		},
	}, 100)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, proposal.ID, UpdateProposalRequest{
		Lines: ptr([]ProposalLineRequest{{ServiceID: 3, Quantity: 1, UnitPrice: 80}}),
	})
	require.NoError(t, err)
	require.Len(t, updated.Lines, 1)
	assert.Equal(t, int64(3), updated.Lines[0].ServiceID)
	assert.InDelta(t, 80.0, updated.TotalAmount, 1e-6)
}

func TestSendAndReject(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	proposal, err := svc.Create(ctx, CreateProposalRequest{
		ClientID:     7,
		ProposalDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Lines:        []ProposalLineRequest{{ServiceID: 1, Quantity: 1, UnitPrice: 100}},
	}, 100)
	require.NoError(t, err)

	// rejecting a DRAFT is not allowed
	_, err = svc.Reject(ctx, proposal.ID, 100)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInvalidStatus))

	sent, err := svc.Send(ctx, proposal.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, ProposalStatusSent, sent.Status)

	// sending twice is not allowed
	_, err = svc.Send(ctx, proposal.ID, 100)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInvalidStatus))

	rejected, err := svc.Reject(ctx, proposal.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, ProposalStatusRejected, rejected.Status)
}

func TestMarkSentIsIdempotent(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	proposal, err := svc.Create(ctx, CreateProposalRequest{
		ClientID:     7,
		ProposalDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Lines:        []ProposalLineRequest{{ServiceID: 1, Quantity: 1, UnitPrice: 100}},
	}, 100)
	require.NoError(t, err)

	require.NoError(t, svc.MarkSent(ctx, proposal.ID))
	require.NoError(t, svc.MarkSent(ctx, proposal.ID))

	got, err := svc.Get(ctx, proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, ProposalStatusSent, got.Status)

	// MarkSent never regresses a later status
	_, err = svc.Reject(ctx, proposal.ID, 100)
	require.NoError(t, err)
	require.NoError(t, svc.MarkSent(ctx, proposal.ID))
	got, err = svc.Get(ctx, proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, ProposalStatusRejected, got.Status)
}

func TestLineOwnershipGuard(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateProposalRequest{
		ClientID:     7,
		ProposalDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Lines:        []ProposalLineRequest{{ServiceID: 1, Quantity: 1, UnitPrice: 100}},
	}, 100)
	require.NoError(t, err)

	second, err := svc.Create(ctx, CreateProposalRequest{
		ClientID:     7,
		ProposalDate: time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC),
		Lines:        []ProposalLineRequest{{ServiceID: 2, Quantity: 1, UnitPrice: 200}},
	}, 100)
	require.NoError(t, err)

	_, err = svc.UpdateLine(ctx, first.ID, second.Lines[0].ID, ProposalLineRequest{
		ServiceID: 2, Quantity: 5, UnitPrice: 200,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	_, err = svc.RemoveLine(ctx, first.ID, second.Lines[0].ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestDeleteProposalRemovesLines(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	proposal, err := svc.Create(ctx, CreateProposalRequest{
		ClientID:     7,
		ProposalDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Lines: []ProposalLineRequest{
			{ServiceID: 1, Quantity: 1, UnitPrice: 100},
			{ServiceID: 2, Quantity: 2, UnitPrice: 50},
		},
	}, 100)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, proposal.ID))
	_, err = svc.Get(ctx, proposal.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
	assert.Empty(t, repo.lines)
}
