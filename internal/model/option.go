package model

import (
	"encoding/json"
	"time"
)

// SourcingType labels the supply channel an option comes from.
type SourcingType string

const (
	SourcingImportCN      SourcingType = "import_CN"
	SourcingEUWholesale   SourcingType = "EU_wholesale"
	SourcingExistingStock SourcingType = "existing_stock"
)

// SourcingOption is one supply arrangement for a candidate. Options are
// immutable after creation; a candidate may have many.
type SourcingOption struct {
	ID               string          `json:"id"`
	CandidateID      string          `json:"candidate_id"`
	SupplierName     string          `json:"supplier_name"`
	SourcingType     SourcingType    `json:"sourcing_type"`
	UnitCost         *float64        `json:"unit_cost,omitempty"`
	ShippingCostUnit *float64        `json:"shipping_cost_unit,omitempty"`
	MOQ              *int            `json:"moq,omitempty"`
	LeadTimeDays     *int            `json:"lead_time_days,omitempty"`
	Brandable        bool            `json:"brandable"`
	BundleCapable    bool            `json:"bundle_capable"`
	Notes            string          `json:"notes,omitempty"`
	RawSupplierData  json.RawMessage `json:"raw_supplier_data,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Pair couples a candidate with one of its sourcing options for scoring.
type Pair struct {
	Candidate Candidate
	Option    SourcingOption
}
