package catalog

import "strings"

// ProjectionSeparator joins projected fields.
const ProjectionSeparator = " | "

// Project derives the descriptive string embedded for a product. Fields are
// taken in fixed order (name, main category, sub category, description) and
// absent ones are skipped. The result is non-empty for any product with a name.
func Project(p Product) string {
	fields := make([]string, 0, 4)
	for _, v := range [...]string{p.Name, p.MainCategory, p.SubCategory, p.Description} {
		if v != "" {
			fields = append(fields, v)
		}
	}
	return strings.Join(fields, ProjectionSeparator)
}

// ProjectAll projects every product in catalog order.
func ProjectAll(c *Catalog) []string {
	texts := make([]string, c.Len())
	for i := range texts {
		p, _ := c.At(RowID(i))
		texts[i] = Project(p)
	}
	return texts
}
