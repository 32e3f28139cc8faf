package match

import (
	"encoding/json"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/margincraft/resale-cli/internal/catalog"
	"github.com/margincraft/resale-cli/internal/model"
)

// Config tunes default-option synthesis for candidates with no catalog
// match.
type Config struct {
	// CostRatio estimates unit cost as a fraction of the observed
	// average selling price.
	CostRatio float64
	// CategoryCosts is the fallback unit cost table when no price is
	// known, keyed by category label.
	CategoryCosts map[string]float64
	// FallbackCost applies when the category is unknown too.
	FallbackCost float64
	// DefaultShipping, DefaultMOQ and DefaultLeadTimeDays fill the
	// synthesized option's supply terms.
	DefaultShipping     float64
	DefaultMOQ          int
	DefaultLeadTimeDays int
	// BrandableCategories lists category labels whose products are
	// assumed brandable.
	BrandableCategories []string
}

// DefaultConfig returns the built-in default-option synthesis settings.
func DefaultConfig() Config {
	return Config{
		CostRatio: 0.4,
		CategoryCosts: map[string]float64{
			"Electronics & Photo":      20.00,
			"Home & Kitchen":           15.00,
			"Sports & Outdoors":        18.00,
			"Tools & Home Improvement": 25.00,
			"Beauty & Personal Care":   10.00,
			"Toys & Games":             12.00,
		},
		FallbackCost:        15.00,
		DefaultShipping:     2.00,
		DefaultMOQ:          10,
		DefaultLeadTimeDays: 14,
		BrandableCategories: []string{
			"Electronics & Photo",
			"Beauty & Personal Care",
			"Sports & Outdoors",
		},
	}
}

// Matcher finds sourcing options for candidates. It never persists;
// callers own the returned options.
type Matcher struct {
	suppliers []catalog.Supplier
	catalog   *catalog.Catalog
	cfg       Config
}

// NewMatcher creates a Matcher over the given suppliers.
func NewMatcher(suppliers []catalog.Supplier, cat *catalog.Catalog, cfg Config) *Matcher {
	if cat == nil {
		cat = catalog.New()
	}
	return &Matcher{suppliers: suppliers, catalog: cat, cfg: cfg}
}

// FindOptions returns sourcing options for a candidate: one per catalog
// match, or exactly one synthesized default when nothing matches. A
// candidate without a title yields no options at all.
func (m *Matcher) FindOptions(candidate model.Candidate) []model.SourcingOption {
	if candidate.Title == "" {
		zap.L().Debug("match: candidate has no title, skipping",
			zap.String("asin", candidate.ASIN),
		)
		return nil
	}

	keywords := Keywords(candidate.Title + " " + candidate.Category)
	if len(keywords) == 0 {
		zap.L().Debug("match: no significant keywords",
			zap.String("asin", candidate.ASIN),
		)
		return nil
	}

	var options []model.SourcingOption
	for _, supplier := range m.suppliers {
		rows, err := m.catalog.Rows(supplier)
		if err != nil {
			// An unreadable catalog must not abort matching against
			// the remaining suppliers.
			zap.L().Error("match: catalog unreadable, skipping supplier",
				zap.String("supplier", supplier.Name),
				zap.String("path", supplier.Path),
				zap.Error(err),
			)
			continue
		}

		for _, row := range rows {
			entrySet := keywordSet(Keywords(row.Name + " " + row.Keywords))
			if !overlaps(keywords, entrySet) {
				continue
			}
			options = append(options, buildOption(candidate, supplier, row))
			zap.L().Debug("match: catalog hit",
				zap.String("asin", candidate.ASIN),
				zap.String("supplier", supplier.Name),
				zap.String("sku", row.SKU),
			)
		}
	}

	if len(options) == 0 {
		options = append(options, m.defaultOption(candidate))
	}

	zap.L().Debug("match: options found",
		zap.String("asin", candidate.ASIN),
		zap.Int("count", len(options)),
	)
	return options
}

func buildOption(candidate model.Candidate, supplier catalog.Supplier, row catalog.Row) model.SourcingOption {
	brandable := supplier.Brandable
	if row.Brandable != nil {
		brandable = *row.Brandable
	}
	bundleCapable := supplier.BundleCapable
	if row.BundleCapable != nil {
		bundleCapable = *row.BundleCapable
	}

	notes := fmt.Sprintf("Matched by catalog supplier: %s", supplier.Name)
	if row.Name != "" {
		notes += " - " + row.Name
	}

	shipping := 0.0
	raw, _ := json.Marshal(row.Raw)

	return model.SourcingOption{
		CandidateID:      candidate.ID,
		SupplierName:     supplier.Name,
		SourcingType:     supplier.SourcingType,
		UnitCost:         row.UnitCost,
		ShippingCostUnit: &shipping,
		MOQ:              row.MOQ,
		LeadTimeDays:     row.LeadTimeDays,
		Brandable:        brandable,
		BundleCapable:    bundleCapable,
		Notes:            notes,
		RawSupplierData:  raw,
	}
}

func (m *Matcher) defaultOption(candidate model.Candidate) model.SourcingOption {
	var unitCost float64
	if candidate.AvgPrice != nil && *candidate.AvgPrice > 0 {
		unitCost = math.Round(*candidate.AvgPrice*m.cfg.CostRatio*100) / 100
	} else if cost, ok := m.cfg.CategoryCosts[candidate.Category]; ok {
		unitCost = cost
	} else {
		unitCost = m.cfg.FallbackCost
	}

	brandable := false
	for _, cat := range m.cfg.BrandableCategories {
		if candidate.Category == cat {
			brandable = true
			break
		}
	}

	shipping := m.cfg.DefaultShipping
	moq := m.cfg.DefaultMOQ
	leadTime := m.cfg.DefaultLeadTimeDays

	raw, _ := json.Marshal(map[string]any{
		"source":   "default",
		"category": candidate.Category,
	})

	return model.SourcingOption{
		CandidateID:      candidate.ID,
		SupplierName:     "Default Generic Supplier",
		SourcingType:     model.SourcingEUWholesale,
		UnitCost:         &unitCost,
		ShippingCostUnit: &shipping,
		MOQ:              &moq,
		LeadTimeDays:     &leadTime,
		Brandable:        brandable,
		BundleCapable:    false,
		Notes:            fmt.Sprintf("Synthesized default option for %s", candidate.ASIN),
		RawSupplierData:  raw,
	}
}
