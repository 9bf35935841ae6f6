package proposals

import "time"

type CreateProposalRequest struct {
	ClientID     int64                   `json:"client_id" validate:"required,gt=0"`
	ProjectName  *string                 `json:"project_name,omitempty" validate:"omitempty,max=255"`
	Description  *string                 `json:"description,omitempty"`
	ProposalDate time.Time               `json:"proposal_date" validate:"required"`
	Notes        *string                 `json:"notes,omitempty"`
	Lines        []ProposalLineRequest   `json:"lines" validate:"required,min=1,dive"`
}

type ProposalLineRequest struct {
	ServiceID       int64   `json:"service_id" validate:"required,gt=0"`
	Description     *string `json:"description,omitempty"`
	Quantity        float64 `json:"quantity" validate:"required,gt=0"`
	UnitPrice       float64 `json:"unit_price" validate:"gte=0"`
	DiscountPercent float64 `json:"discount_percent" validate:"gte=0,lte=100"`
}

type UpdateProposalRequest struct {
	ProjectName  *string                `json:"project_name,omitempty" validate:"omitempty,max=255"`
	Description  *string                `json:"description,omitempty"`
	ProposalDate *time.Time             `json:"proposal_date,omitempty"`
	Notes        *string                `json:"notes,omitempty"`
	Lines        *[]ProposalLineRequest `json:"lines,omitempty" validate:"omitempty,min=1,dive"`
}

type ListProposalsRequest struct {
	ClientID *int64          `json:"client_id,omitempty"`
	Status   *ProposalStatus `json:"status,omitempty"`
	DateFrom *time.Time      `json:"date_from,omitempty"`
	DateTo   *time.Time      `json:"date_to,omitempty"`
	Limit    int             `json:"limit" validate:"gte=0,lte=1000"`
	Offset   int             `json:"offset" validate:"gte=0"`
}
