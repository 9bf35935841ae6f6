package crm

import "time"

// Client represents a customer account of the agency.
type Client struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        *string   `json:"email,omitempty"`
	Phone        *string   `json:"phone,omitempty"`
	Address      *string   `json:"address,omitempty"`
	ClientTypeID *int64    `json:"client_type_id,omitempty"`
	IsActive     bool      `json:"is_active"`
	Notes        *string   `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ClientType classifies clients (e.g. individual, company, government).
type ClientType struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// ClientWithType joins a client with its type name for listings.
type ClientWithType struct {
	Client
	ClientTypeName *string `json:"client_type_name,omitempty"`
}
