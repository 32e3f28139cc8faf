// Package catalog loads supplier registries and their tabular product
// catalogs (CSV or XLSX) for sourcing matches.
package catalog

import (
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/margincraft/resale-cli/internal/model"
)

// SupplierType identifies how a supplier's catalog is read.
type SupplierType string

const (
	SupplierCSV  SupplierType = "csv_catalog"
	SupplierXLSX SupplierType = "xlsx_catalog"
)

// Supplier describes one supplier and where its catalog lives.
type Supplier struct {
	Name          string             `yaml:"name"`
	Type          SupplierType       `yaml:"type"`
	Path          string             `yaml:"path"`
	SourcingType  model.SourcingType `yaml:"sourcing_type"`
	Brandable     bool               `yaml:"brandable"`
	BundleCapable bool               `yaml:"bundle_capable"`
	Active        bool               `yaml:"active"`
}

type suppliersFile struct {
	Suppliers []Supplier `yaml:"suppliers"`
}

// LoadSuppliers reads the supplier registry and returns the active
// entries. A missing or unparsable registry is logged and yields no
// suppliers; the matcher then synthesizes default options instead of
// aborting the batch.
func LoadSuppliers(path string) []Supplier {
	data, err := os.ReadFile(path)
	if err != nil {
		zap.L().Warn("catalog: supplier registry unavailable",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil
	}

	var f suppliersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		zap.L().Error("catalog: supplier registry unparsable",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil
	}

	var active []Supplier
	for _, s := range f.Suppliers {
		if !s.Active {
			continue
		}
		if s.Name == "" || s.Path == "" {
			zap.L().Warn("catalog: skipping supplier without name or path",
				zap.String("name", s.Name),
			)
			continue
		}
		active = append(active, s)
	}

	zap.L().Info("catalog: suppliers loaded",
		zap.String("path", path),
		zap.Int("active", len(active)),
	)
	return active
}
