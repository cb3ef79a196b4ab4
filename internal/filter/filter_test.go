package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/giftlens/giftlens/internal/catalog"
)

func ptr[T any](v T) *T { return &v }

func priceCatalog() *catalog.Catalog {
	return catalog.New(
		[]string{"name", "main_category", "actual_price", "ratings", "no_of_ratings", "eco_friendly"},
		[]map[string]string{
			{"name": "A", "main_category": "Fitness", "actual_price": "₹100", "ratings": "4.5", "no_of_ratings": "1,200", "eco_friendly": "yes"},
			{"name": "B", "main_category": "Home & Kitchen", "actual_price": "₹99", "ratings": "3.9", "no_of_ratings": "15"},
			{"name": "C", "main_category": "Fitness Gear", "actual_price": "₹150", "ratings": "4.8", "no_of_ratings": "300", "eco_friendly": "no"},
			{"name": "D", "main_category": "Books", "actual_price": "N/A", "ratings": "not rated"},
			{"name": "E", "actual_price": "free!", "ratings": "4.0", "eco_friendly": "1"},
		},
	)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"₹100", 100, true},
		{"₹1,299", 1299, true},
		{"$12.50", 12.5, true},
		{"Rs. 1,299", 1299, true},
		{"Rs.1,299", 1299, true},
		{"INR 1,299.00", 1299, true},
		{"$.50", 0.5, true},
		{"  42 ", 42, true},
		{"N/A", 0, false},
		{"", 0, false},
		{"1.2.3", 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ParsePrice(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestApply_PriceRangeExact(t *testing.T) {
	cat := priceCatalog()
	got := Apply(cat.IDs(), cat, Options{PriceMin: ptr(100.0), PriceMax: ptr(100.0)}, Permissive)

	// A (₹100) matches; D has a null price and passes; E is unparsable and
	// passes under the permissive policy.
	assert.Equal(t, []catalog.RowID{0, 3, 4}, got)
}

func TestApply_PriceWithDottedCurrencyPrefix(t *testing.T) {
	cat := catalog.New([]string{"name", "actual_price"}, []map[string]string{
		{"name": "Lamp", "actual_price": "Rs. 1,299"},
		{"name": "Pen", "actual_price": "Rs. 99"},
	})

	got := Apply(cat.IDs(), cat, Options{PriceMin: ptr(1000.0), PriceMax: ptr(2000.0)}, Strict)
	assert.Equal(t, []catalog.RowID{0}, got)
}

func TestApply_StrictPolicyDropsUnparsable(t *testing.T) {
	cat := priceCatalog()
	got := Apply(cat.IDs(), cat, Options{PriceMin: ptr(100.0), PriceMax: ptr(100.0)}, Strict)
	assert.Equal(t, []catalog.RowID{0, 3}, got)
}

func TestApply(t *testing.T) {
	cat := priceCatalog()

	tests := []struct {
		name   string
		opts   Options
		policy Policy
		want   []catalog.RowID
	}{
		{"no constraints", Options{}, Permissive, []catalog.RowID{0, 1, 2, 3, 4}},
		{"category substring case-insensitive", Options{Category: ptr("fitness")}, Permissive, []catalog.RowID{0, 2}},
		{"empty category ignored", Options{Category: ptr("")}, Permissive, []catalog.RowID{0, 1, 2, 3, 4}},
		{"price min", Options{PriceMin: ptr(100.0)}, Strict, []catalog.RowID{0, 2, 3}},
		{"rating floor permissive", Options{RatingMin: ptr(4.5)}, Permissive, []catalog.RowID{0, 2, 3}},
		{"rating floor strict", Options{RatingMin: ptr(4.5)}, Strict, []catalog.RowID{0, 2}},
		{"eco friendly", Options{EcoFriendly: ptr(true)}, Permissive, []catalog.RowID{0, 1, 3, 4}},
		{"not eco friendly", Options{EcoFriendly: ptr(false)}, Permissive, []catalog.RowID{1, 2, 3}},
		{"combined", Options{Category: ptr("fitness"), RatingMin: ptr(4.6)}, Permissive, []catalog.RowID{2}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Apply(cat.IDs(), cat, tc.opts, tc.policy))
		})
	}
}

func TestApply_PreservesInputOrder(t *testing.T) {
	cat := priceCatalog()
	got := Apply([]catalog.RowID{4, 2, 0, 42}, cat, Options{}, Permissive)
	assert.Equal(t, []catalog.RowID{4, 2, 0}, got)
}

func TestSort(t *testing.T) {
	cat := priceCatalog()

	tests := []struct {
		key  string
		want []catalog.RowID
	}{
		{"", []catalog.RowID{0, 1, 2, 3, 4}},
		{"unknown", []catalog.RowID{0, 1, 2, 3, 4}},
		{"price_asc", []catalog.RowID{1, 0, 2, 3, 4}},
		{"price", []catalog.RowID{1, 0, 2, 3, 4}},
		{"price_desc", []catalog.RowID{2, 0, 1, 3, 4}},
		{"rating", []catalog.RowID{2, 0, 4, 1, 3}},
		{"popularity", []catalog.RowID{0, 2, 1, 3, 4}},
	}

	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			rows := cat.IDs()
			Sort(rows, cat, tc.key)
			assert.Equal(t, tc.want, rows)
		})
	}
}

func TestParsePolicy(t *testing.T) {
	assert.Equal(t, Strict, ParsePolicy("STRICT"))
	assert.Equal(t, Permissive, ParsePolicy("permissive"))
	assert.Equal(t, Permissive, ParsePolicy(""))
	assert.Equal(t, "strict", Strict.String())
}

func TestOptionsIsZero(t *testing.T) {
	assert.True(t, Options{}.IsZero())
	assert.False(t, Options{SortBy: ptr("price")}.IsZero())
}
