package model

import "time"

// ListingTemplate holds generated listing copy for a selected candidate.
// Copy generation lives behind the listing.Generator interface; the core
// engine only stores the result.
type ListingTemplate struct {
	ID           string    `json:"id"`
	CandidateID  string    `json:"candidate_id"`
	Title        string    `json:"title"`
	BulletPoints []string  `json:"bullet_points,omitempty"`
	Description  string    `json:"description,omitempty"`
	SearchTerms  string    `json:"search_terms,omitempty"`
	Brandable    bool      `json:"brandable"`
	BrandName    string    `json:"brand_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
