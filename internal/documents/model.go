package documents

import "time"

// Document is the render-ready view of a proposal or project. Both flows
// flatten into this shape before hitting a renderer.
type Document struct {
	Kind       string
	Title      string
	Reference  string
	ClientName string
	Date       time.Time
	Status     string
	Notes      string
	Lines      []DocumentLine
	Total      float64
	UpdatedAt  time.Time
}

// DocumentLine is one row of the line-item table.
type DocumentLine struct {
	Label           string
	Quantity        float64
	UnitPrice       float64
	DiscountPercent float64
	Amount          float64
}
