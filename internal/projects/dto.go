package projects

import "time"

type CreateProjectRequest struct {
	ClientID    int64                `json:"client_id" validate:"required,gt=0"`
	Name        string               `json:"name" validate:"required,max=255"`
	Description *string              `json:"description,omitempty"`
	StartDate   *time.Time           `json:"start_date,omitempty"`
	EndDate     *time.Time           `json:"end_date,omitempty"`
	Lines       []ProjectLineRequest `json:"lines,omitempty" validate:"omitempty,dive"`
}

type ProjectLineRequest struct {
	ServiceID   int64   `json:"service_id" validate:"required,gt=0"`
	Description *string `json:"description,omitempty"`
	Quantity    float64 `json:"quantity" validate:"required,gt=0"`
	Price       float64 `json:"price" validate:"gte=0"`
}

// ConvertProposalRequest overrides fields on the project produced from a
// proposal. Absent fields fall back to the proposal's own values.
type ConvertProposalRequest struct {
	ProjectName *string    `json:"project_name,omitempty" validate:"omitempty,max=255"`
	Description *string    `json:"description,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
}

type UpdateProjectRequest struct {
	Name        *string    `json:"name,omitempty" validate:"omitempty,max=255"`
	Description *string    `json:"description,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

type RecordPaymentRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

type ListProjectsRequest struct {
	ClientID *int64         `json:"client_id,omitempty"`
	Status   *ProjectStatus `json:"status,omitempty"`
	Limit    int            `json:"limit" validate:"gte=0,lte=1000"`
	Offset   int            `json:"offset" validate:"gte=0"`
}
