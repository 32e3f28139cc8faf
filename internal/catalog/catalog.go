package catalog

import "sync"

// Catalog serves supplier rows with a per-path cache so a sourcing batch
// reads each catalog file once.
type Catalog struct {
	mu    sync.Mutex
	cache map[string][]Row
}

// New creates an empty Catalog.
func New() *Catalog {
	return &Catalog{cache: make(map[string][]Row)}
}

// Rows returns the catalog rows for a supplier, reading and caching the
// backing file on first use.
func (c *Catalog) Rows(s Supplier) ([]Row, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rows, ok := c.cache[s.Path]; ok {
		return rows, nil
	}

	rows, err := ReadRows(s)
	if err != nil {
		return nil, err
	}
	c.cache[s.Path] = rows
	return rows, nil
}
