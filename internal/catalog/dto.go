package catalog

type CreateServiceRequest struct {
	Name         string  `json:"name" validate:"required,max=255"`
	CategoryID   *int64  `json:"category_id,omitempty" validate:"omitempty,gt=0"`
	UnitPrice    float64 `json:"unit_price" validate:"gte=0"`
	Remarks      *string `json:"remarks,omitempty"`
	TimelineDays *int    `json:"timeline_days,omitempty" validate:"omitempty,gt=0"`
}

type UpdateServiceRequest struct {
	Name         *string  `json:"name,omitempty" validate:"omitempty,max=255"`
	CategoryID   *int64   `json:"category_id,omitempty" validate:"omitempty,gt=0"`
	UnitPrice    *float64 `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
	Remarks      *string  `json:"remarks,omitempty"`
	TimelineDays *int     `json:"timeline_days,omitempty" validate:"omitempty,gt=0"`
	IsActive     *bool    `json:"is_active,omitempty"`
}

type ListServicesRequest struct {
	Search     *string `json:"search,omitempty"`
	CategoryID *int64  `json:"category_id,omitempty"`
	IsActive   *bool   `json:"is_active,omitempty"`
	Limit      int     `json:"limit" validate:"gte=0,lte=1000"`
	Offset     int     `json:"offset" validate:"gte=0"`
}

type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}
