package projects

import "time"

type ProjectStatus string

const (
	ProjectStatusPending    ProjectStatus = "PENDING"
	ProjectStatusInProgress ProjectStatus = "IN_PROGRESS"
	ProjectStatusCompleted  ProjectStatus = "COMPLETED"
	ProjectStatusCancelled  ProjectStatus = "CANCELLED"
)

type LineStatus string

const (
	LineStatusPending   LineStatus = "PENDING"
	LineStatusCompleted LineStatus = "COMPLETED"
)

// Project is a client engagement. It is either created directly or converted
// from an accepted proposal, in which case ProposalID points back at it.
// TotalAmount is denormalized and recomputed from the lines after every line
// mutation; PaidAmount accumulates recorded payments.
type Project struct {
	ID          int64         `json:"id"`
	ProposalID  *int64        `json:"proposal_id,omitempty"`
	ClientID    int64         `json:"client_id"`
	Name        string        `json:"name"`
	Description *string       `json:"description,omitempty"`
	Status      ProjectStatus `json:"status"`
	StartDate   *time.Time    `json:"start_date,omitempty"`
	EndDate     *time.Time    `json:"end_date,omitempty"`
	TotalAmount float64       `json:"total_amount"`
	PaidAmount  float64       `json:"paid_amount"`
	CreatedBy   int64         `json:"created_by"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Lines       []ProjectLine `json:"lines,omitempty"`
}

// ProjectLine is a unit of work on a project. Unlike proposal lines there is
// no discount column; Price already carries any discount applied upstream.
type ProjectLine struct {
	ID          int64      `json:"id"`
	ProjectID   int64      `json:"project_id"`
	ServiceID   int64      `json:"service_id"`
	Description *string    `json:"description,omitempty"`
	Quantity    float64    `json:"quantity"`
	Price       float64    `json:"price"`
	Status      LineStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ProjectWithClient joins a project with its client's name for listings.
type ProjectWithClient struct {
	Project
	ClientName string `json:"client_name"`
}

// ProposalSnapshot is the slice of a proposal the converter needs, read inside
// the conversion transaction so the copied lines and the status flip see the
// same state.
type ProposalSnapshot struct {
	ID          int64
	Reference   string
	ClientID    int64
	ClientName  string
	ProjectName *string
	Description *string
	Status      string
	TotalAmount float64
	Lines       []ProposalLineSnapshot
}

// ProposalLineSnapshot mirrors one proposal line for conversion.
type ProposalLineSnapshot struct {
	ServiceID       int64
	Description     *string
	Quantity        float64
	UnitPrice       float64
	DiscountPercent float64
}
