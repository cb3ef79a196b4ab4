// Package filter prunes and orders candidate products by user constraints.
package filter

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/giftlens/giftlens/internal/catalog"
)

// Boolean attribute columns.
const (
	ColumnEcoFriendly = "eco_friendly"
	ColumnHandmade    = "handmade"
	ColumnLocal       = "local"
)

// Sort keys accepted by Sort.
const (
	SortPriceAsc   = "price_asc"
	SortPrice      = "price"
	SortPriceDesc  = "price_desc"
	SortRating     = "rating"
	SortRatingDesc = "rating_desc"
	SortPopularity = "popularity"
)

// Policy decides what happens to a product whose constrained value cannot be
// parsed as a number.
type Policy int

const (
	// Permissive keeps products with unparsable values.
	Permissive Policy = iota
	// Strict drops them.
	Strict
)

// ParsePolicy maps a config string to a Policy. Unknown values are permissive.
func ParsePolicy(s string) Policy {
	if strings.EqualFold(strings.TrimSpace(s), "strict") {
		return Strict
	}
	return Permissive
}

func (p Policy) String() string {
	if p == Strict {
		return "strict"
	}
	return "permissive"
}

// Options are the optional constraints of a request. A nil field means no
// constraint.
type Options struct {
	Category    *string  `json:"category,omitempty"`
	PriceMin    *float64 `json:"price_min,omitempty" validate:"omitempty,gte=0"`
	PriceMax    *float64 `json:"price_max,omitempty" validate:"omitempty,gte=0"`
	RatingMin   *float64 `json:"rating_min,omitempty" validate:"omitempty,gte=0"`
	EcoFriendly *bool    `json:"eco_friendly,omitempty"`
	Handmade    *bool    `json:"handmade,omitempty"`
	Local       *bool    `json:"local,omitempty"`
	SortBy      *string  `json:"sort_by,omitempty"`
}

// IsZero reports whether no constraint is set.
func (o Options) IsZero() bool {
	return o.Category == nil && o.PriceMin == nil && o.PriceMax == nil &&
		o.RatingMin == nil && o.EcoFriendly == nil && o.Handmade == nil &&
		o.Local == nil && o.SortBy == nil
}

// ParsePrice extracts a number from a display price such as "₹1,299" or
// "Rs. 1,299". The currency prefix up to the first digit is discarded, then
// every rune other than digits and '.' is dropped before parsing.
func ParsePrice(s string) (float64, bool) {
	start := strings.IndexFunc(s, unicode.IsDigit)
	if start < 0 {
		return 0, false
	}
	// ".50" keeps its point; "Rs.50" does not.
	if start > 0 && s[start-1] == '.' {
		if prev, _ := utf8.DecodeLastRuneInString(s[:start-1]); !unicode.IsLetter(prev) {
			start--
		}
	}

	var b strings.Builder
	for _, r := range s[start:] {
		if unicode.IsDigit(r) || r == '.' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseRating parses a rating or count cell, tolerating thousands separators.
func ParseRating(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseBool reports the truthiness of a flag cell and whether it was present.
func ParseBool(s string) (value, present bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return false, false
	}
	switch s {
	case "true", "yes", "1", "y":
		return true, true
	}
	return false, true
}

// Apply returns the subset of candidates satisfying every constraint in
// opts, preserving input order. Absent (null) values always pass; unparsable
// values pass or fail according to policy.
func Apply(cands []catalog.RowID, cat *catalog.Catalog, opts Options, policy Policy) []catalog.RowID {
	out := make([]catalog.RowID, 0, len(cands))
	for _, id := range cands {
		p, ok := cat.At(id)
		if !ok {
			continue
		}
		if Match(p, opts, policy) {
			out = append(out, id)
		}
	}
	return out
}

// Match evaluates opts against a single product.
func Match(p catalog.Product, opts Options, policy Policy) bool {
	if opts.Category != nil && *opts.Category != "" {
		if !strings.Contains(strings.ToLower(p.MainCategory), strings.ToLower(*opts.Category)) {
			return false
		}
	}

	if opts.PriceMin != nil || opts.PriceMax != nil {
		if !numericInRange(p.ActualPrice, ParsePrice, opts.PriceMin, opts.PriceMax, policy) {
			return false
		}
	}

	if opts.RatingMin != nil {
		if !numericInRange(p.Ratings, ParseRating, opts.RatingMin, nil, policy) {
			return false
		}
	}

	for _, flag := range []struct {
		want   *bool
		column string
	}{
		{opts.EcoFriendly, ColumnEcoFriendly},
		{opts.Handmade, ColumnHandmade},
		{opts.Local, ColumnLocal},
	} {
		if flag.want == nil {
			continue
		}
		v, present := ParseBool(p.Field(flag.column))
		if present && v != *flag.want {
			return false
		}
	}

	return true
}

func numericInRange(raw string, parse func(string) (float64, bool), lo, hi *float64, policy Policy) bool {
	if strings.TrimSpace(raw) == "" {
		return true
	}
	v, ok := parse(raw)
	if !ok {
		return policy == Permissive
	}
	if lo != nil && v < *lo {
		return false
	}
	if hi != nil && v > *hi {
		return false
	}
	return true
}

// Sort reorders rows in place by key. Unknown or empty keys keep the input
// order. Products with unparsable values sink to the end in input order.
func Sort(rows []catalog.RowID, cat *catalog.Catalog, key string) {
	var value func(catalog.Product) (float64, bool)
	desc := false
	switch strings.ToLower(strings.TrimSpace(key)) {
	case SortPriceAsc, SortPrice:
		value = func(p catalog.Product) (float64, bool) { return ParsePrice(p.ActualPrice) }
	case SortPriceDesc:
		value = func(p catalog.Product) (float64, bool) { return ParsePrice(p.ActualPrice) }
		desc = true
	case SortRating, SortRatingDesc:
		value = func(p catalog.Product) (float64, bool) { return ParseRating(p.Ratings) }
		desc = true
	case SortPopularity:
		value = func(p catalog.Product) (float64, bool) { return ParseRating(p.Field(catalog.ColumnRatingCount)) }
		desc = true
	default:
		return
	}

	type keyed struct {
		v  float64
		ok bool
	}
	keys := make(map[catalog.RowID]keyed, len(rows))
	for _, id := range rows {
		p, found := cat.At(id)
		if !found {
			continue
		}
		v, ok := value(p)
		keys[id] = keyed{v, ok}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := keys[rows[i]], keys[rows[j]]
		if a.ok != b.ok {
			return a.ok
		}
		if !a.ok {
			return false
		}
		if desc {
			return a.v > b.v
		}
		return a.v < b.v
	})
}
