package proposals

import "time"

type ProposalStatus string

const (
	ProposalStatusDraft    ProposalStatus = "DRAFT"
	ProposalStatusSent     ProposalStatus = "SENT"
	ProposalStatusAccepted ProposalStatus = "ACCEPTED"
	ProposalStatusRejected ProposalStatus = "REJECTED"
)

// Proposal is a priced offer to a client. TotalAmount is denormalized and
// recomputed from the lines after every line mutation.
type Proposal struct {
	ID           int64          `json:"id"`
	Reference    string         `json:"reference"`
	ClientID     int64          `json:"client_id"`
	ProjectName  *string        `json:"project_name,omitempty"`
	Description  *string        `json:"description,omitempty"`
	ProposalDate time.Time      `json:"proposal_date"`
	Status       ProposalStatus `json:"status"`
	TotalAmount  float64        `json:"total_amount"`
	Notes        *string        `json:"notes,omitempty"`
	CreatedBy    int64          `json:"created_by"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Lines        []ProposalLine `json:"lines,omitempty"`
}

// ProposalLine attaches a catalog service to a proposal. LineTotal always
// equals quantity * unit_price * (1 - discount_percent/100).
type ProposalLine struct {
	ID              int64     `json:"id"`
	ProposalID      int64     `json:"proposal_id"`
	ServiceID       int64     `json:"service_id"`
	Description     *string   `json:"description,omitempty"`
	Quantity        float64   `json:"quantity"`
	UnitPrice       float64   `json:"unit_price"`
	DiscountPercent float64   `json:"discount_percent"`
	LineTotal       float64   `json:"line_total"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ProposalWithClient joins a proposal with its client's name for listings.
type ProposalWithClient struct {
	Proposal
	ClientName string `json:"client_name"`
}
