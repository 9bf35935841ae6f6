package crm

type CreateClientRequest struct {
	Name         string  `json:"name" validate:"required,max=255"`
	Email        *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone        *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Address      *string `json:"address,omitempty"`
	ClientTypeID *int64  `json:"client_type_id,omitempty" validate:"omitempty,gt=0"`
	Notes        *string `json:"notes,omitempty"`
}

type UpdateClientRequest struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,max=255"`
	Email        *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone        *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Address      *string `json:"address,omitempty"`
	ClientTypeID *int64  `json:"client_type_id,omitempty" validate:"omitempty,gt=0"`
	IsActive     *bool   `json:"is_active,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}

type ListClientsRequest struct {
	Search       *string `json:"search,omitempty"`
	ClientTypeID *int64  `json:"client_type_id,omitempty"`
	IsActive     *bool   `json:"is_active,omitempty"`
	Limit        int     `json:"limit" validate:"gte=0,lte=1000"`
	Offset       int     `json:"offset" validate:"gte=0"`
}

type CreateClientTypeRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description,omitempty"`
}
