package catalog

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Row is one catalog entry, keyed by free-text name and keywords. Typed
// fields are parsed best-effort; Raw keeps every original column for the
// option's provenance payload.
type Row struct {
	Name          string
	SKU           string
	Keywords      string
	UnitCost      *float64
	MOQ           *int
	LeadTimeDays  *int
	Brandable     *bool
	BundleCapable *bool
	Raw           map[string]string
}

// ReadRows loads a supplier's catalog according to its type.
func ReadRows(s Supplier) ([]Row, error) {
	switch s.Type {
	case SupplierCSV:
		return readCSV(s.Path)
	case SupplierXLSX:
		return readXLSX(s.Path)
	default:
		return nil, eris.Errorf("catalog: unsupported supplier type %q for %s", s.Type, s.Name)
	}
}

func readCSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: open %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // allow variable fields

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read header %s", path)
	}
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "catalog: read row %s", path)
		}
		rows = append(rows, rowFromRecord(header, record))
	}
	return rows, nil
}

func readXLSX(path string) ([]Row, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: open %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("catalog: no sheets in %s", path)
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, nil
	}

	header := make([]string, 0, len(sheet.Rows[0].Cells))
	for _, cell := range sheet.Rows[0].Cells {
		header = append(header, strings.ToLower(strings.TrimSpace(cell.String())))
	}

	var rows []Row
	for _, r := range sheet.Rows[1:] {
		record := make([]string, 0, len(r.Cells))
		for _, cell := range r.Cells {
			record = append(record, cell.String())
		}
		rows = append(rows, rowFromRecord(header, record))
	}
	return rows, nil
}

func rowFromRecord(header, record []string) Row {
	raw := make(map[string]string, len(header))
	for i, col := range header {
		if i < len(record) {
			raw[col] = strings.TrimSpace(record[i])
		}
	}

	return Row{
		Name:          raw["name"],
		SKU:           raw["sku"],
		Keywords:      raw["keywords"],
		UnitCost:      parseFloat(raw["unit_cost"]),
		MOQ:           parseInt(raw["moq"]),
		LeadTimeDays:  parseInt(raw["lead_time_days"]),
		Brandable:     parseBool(raw["brandable"]),
		BundleCapable: parseBool(raw["bundle_capable"]),
		Raw:           raw,
	}
}

func parseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	// Catalogs sometimes carry integer columns as "10.0".
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	n := int(v)
	return &n
}

func parseBool(s string) *bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	var v bool
	switch s {
	case "1", "true", "yes", "oui", "o":
		v = true
	default:
		v = false
	}
	return &v
}
