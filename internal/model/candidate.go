// Package model defines the core domain types shared across pipeline stages.
package model

import (
	"encoding/json"
	"time"
)

// Status represents the lifecycle state of a product candidate.
type Status string

const (
	StatusNew      Status = "new"
	StatusScored   Status = "scored"
	StatusSelected Status = "selected"
	StatusRejected Status = "rejected"
	StatusLaunched Status = "launched"
)

// Sticky reports whether a status survives re-ingestion without force.
// Rejected candidates re-enter the pipeline on the next discover run;
// scored/selected/launched ones keep their place.
func (s Status) Sticky() bool {
	switch s {
	case StatusScored, StatusSelected, StatusLaunched:
		return true
	}
	return false
}

// Valid reports whether s is one of the known lifecycle statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusScored, StatusSelected, StatusRejected, StatusLaunched:
		return true
	}
	return false
}

// Candidate is a product under evaluation for resale, keyed by its
// marketplace ASIN.
type Candidate struct {
	ID                   string          `json:"id"`
	ASIN                 string          `json:"asin"`
	Title                string          `json:"title,omitempty"`
	Category             string          `json:"category,omitempty"`
	SourceMarketplace    string          `json:"source_marketplace"`
	AvgPrice             *float64        `json:"avg_price,omitempty"`
	BSR                  *int            `json:"bsr,omitempty"`
	EstimatedSalesPerDay *float64        `json:"estimated_sales_per_day,omitempty"`
	ReviewsCount         *int            `json:"reviews_count,omitempty"`
	Rating               *float64        `json:"rating,omitempty"`
	RawData              json.RawMessage `json:"raw_data,omitempty"`
	Status               Status          `json:"status"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// Observation is one raw product sighting returned by a market harvester.
// The discover job folds observations into candidates via the store upsert.
type Observation struct {
	ASIN                 string          `json:"asin"`
	Title                string          `json:"title,omitempty"`
	Category             string          `json:"category,omitempty"`
	AvgPrice             *float64        `json:"avg_price,omitempty"`
	BSR                  *int            `json:"bsr,omitempty"`
	EstimatedSalesPerDay *float64        `json:"estimated_sales_per_day,omitempty"`
	ReviewsCount         *int            `json:"reviews_count,omitempty"`
	Rating               *float64        `json:"rating,omitempty"`
	Raw                  json.RawMessage `json:"raw,omitempty"`
}
