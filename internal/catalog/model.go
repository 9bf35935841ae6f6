package catalog

import "time"

// Service is a catalog entry offered to clients.
type Service struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	CategoryID   *int64    `json:"category_id,omitempty"`
	UnitPrice    float64   `json:"unit_price"`
	Remarks      *string   `json:"remarks,omitempty"`
	TimelineDays *int      `json:"timeline_days,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ServiceCategory groups catalog entries.
type ServiceCategory struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ServiceWithCategory joins a service with its category name for listings.
type ServiceWithCategory struct {
	Service
	CategoryName *string `json:"category_name,omitempty"`
}
