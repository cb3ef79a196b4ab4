// Package catalog loads the product catalog and derives the text used to embed it.
package catalog

import (
	"strings"
)

// RowID is the stable position of a product in the catalog, assigned at load
// time over the kept rows (0..N-1).
type RowID int

// Well-known column names. Every other column is carried opaquely.
const (
	ColumnName         = "name"
	ColumnMainCategory = "main_category"
	ColumnSubCategory  = "sub_category"
	ColumnDescription  = "description"
	ColumnActualPrice  = "actual_price"
	ColumnRatings      = "ratings"
	ColumnRatingCount  = "no_of_ratings"
)

// Product is one catalog record. Optional fields are empty when the source
// cell was absent or null.
type Product struct {
	ID           RowID
	Name         string
	MainCategory string
	SubCategory  string
	Description  string
	ActualPrice  string
	Ratings      string

	// Attributes holds every non-null cell keyed by column name, including
	// the well-known columns above.
	Attributes map[string]string
}

// Field returns the value of an arbitrary column, or "" if absent.
func (p Product) Field(column string) string {
	return p.Attributes[strings.ToLower(column)]
}

// Catalog is an ordered, immutable collection of products.
type Catalog struct {
	columns  []string
	products []Product
}

// New builds a catalog from attribute maps, assigning RowIDs in order. Rows
// without a name are dropped, matching Load.
func New(columns []string, rows []map[string]string) *Catalog {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = normalizeHeader(c)
	}

	products := make([]Product, 0, len(rows))
	for _, row := range rows {
		attrs := make(map[string]string, len(row))
		for k, v := range row {
			if isNull(v) {
				continue
			}
			attrs[normalizeHeader(k)] = strings.TrimSpace(v)
		}
		if attrs[ColumnName] == "" {
			continue
		}
		products = append(products, newProduct(RowID(len(products)), attrs))
	}

	return &Catalog{columns: cols, products: products}
}

func newProduct(id RowID, attrs map[string]string) Product {
	return Product{
		ID:           id,
		Name:         attrs[ColumnName],
		MainCategory: attrs[ColumnMainCategory],
		SubCategory:  attrs[ColumnSubCategory],
		Description:  attrs[ColumnDescription],
		ActualPrice:  attrs[ColumnActualPrice],
		Ratings:      attrs[ColumnRatings],
		Attributes:   attrs,
	}
}

// Empty returns a catalog with no products.
func Empty() *Catalog {
	return &Catalog{}
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.products)
}

// At returns the product with the given RowID.
func (c *Catalog) At(id RowID) (Product, bool) {
	if c == nil || id < 0 || int(id) >= len(c.products) {
		return Product{}, false
	}
	return c.products[id], true
}

// IDs returns every RowID in ascending order.
func (c *Catalog) IDs() []RowID {
	ids := make([]RowID, c.Len())
	for i := range ids {
		ids[i] = RowID(i)
	}
	return ids
}

// Columns returns the header columns in source order.
func (c *Catalog) Columns() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.columns))
	copy(out, c.columns)
	return out
}

// Describe renders a product as "column: value" pairs in column order,
// skipping null cells. This is the form handed to the text-generation service.
func (c *Catalog) Describe(id RowID) string {
	p, ok := c.At(id)
	if !ok {
		return ""
	}

	parts := make([]string, 0, len(p.Attributes))
	seen := make(map[string]bool, len(c.columns))
	for _, col := range c.columns {
		seen[col] = true
		if v, ok := p.Attributes[col]; ok {
			parts = append(parts, col+": "+v)
		}
	}
	// Columns only present on programmatically built rows.
	if len(parts) < len(p.Attributes) {
		for _, col := range sortedKeys(p.Attributes) {
			if !seen[col] {
				parts = append(parts, col+": "+p.Attributes[col])
			}
		}
	}
	return strings.Join(parts, ", ")
}
