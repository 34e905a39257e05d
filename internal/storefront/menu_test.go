package storefront

import (
	"testing"
	"time"

	"github.com/fjod/food-storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func menuFixture() []domain.Product {
	day := func(d int) time.Time { return time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC) }
	return []domain.Product{
		{ID: "1", Name: "Pho Bo", Description: "beef noodle soup", Price: decimal.NewFromInt(50000), Category: "Noodles", Rating: 4.5, CreatedAt: day(1)},
		{ID: "2", Name: "banh mi", Description: "baguette sandwich", Price: decimal.NewFromInt(25000), Category: "Bread", Rating: 4.8, CreatedAt: day(3)},
		{ID: "3", Name: "Bun Cha", Description: "grilled pork with noodles", Price: decimal.NewFromInt(45000), Category: "noodles", Rating: 4.5, CreatedAt: day(2)},
		{ID: "4", Name: "Iced Tea", Price: decimal.NewFromInt(10000), Rating: 3.9, CreatedAt: day(4)},
	}
}

func ids(products []domain.Product) []domain.ProductID {
	out := make([]domain.ProductID, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func TestFilterProducts(t *testing.T) {
	tests := []struct {
		name  string
		query MenuQuery
		want  []domain.ProductID
	}{
		{name: "no filters keeps order", query: MenuQuery{}, want: []domain.ProductID{"1", "2", "3", "4"}},
		{name: "category is case insensitive", query: MenuQuery{Category: "NOODLES"}, want: []domain.ProductID{"1", "3"}},
		{name: "query matches name", query: MenuQuery{Query: "BANH"}, want: []domain.ProductID{"2"}},
		{name: "query matches description", query: MenuQuery{Query: "noodle"}, want: []domain.ProductID{"1", "3"}},
		{
			name:  "price bounds are inclusive",
			query: MenuQuery{MinPrice: decimal.NewNullDecimal(decimal.NewFromInt(25000)), MaxPrice: decimal.NewNullDecimal(decimal.NewFromInt(45000))},
			want:  []domain.ProductID{"2", "3"},
		},
		{
			name:  "filters compose",
			query: MenuQuery{Category: "noodles", MaxPrice: decimal.NewNullDecimal(decimal.NewFromInt(49999))},
			want:  []domain.ProductID{"3"},
		},
		{name: "no match", query: MenuQuery{Query: "pizza"}, want: []domain.ProductID{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterProducts(menuFixture(), tt.query)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestSortProducts(t *testing.T) {
	tests := []struct {
		key  string
		want []domain.ProductID
	}{
		{key: SortPriceAsc, want: []domain.ProductID{"4", "2", "3", "1"}},
		{key: SortPriceDesc, want: []domain.ProductID{"1", "3", "2", "4"}},
		{key: SortNameAsc, want: []domain.ProductID{"2", "3", "4", "1"}},
		{key: SortNameDesc, want: []domain.ProductID{"1", "4", "3", "2"}},
		// 1 and 3 tie on rating and keep their relative order
		{key: SortRating, want: []domain.ProductID{"2", "1", "3", "4"}},
		{key: SortNewest, want: []domain.ProductID{"4", "2", "3", "1"}},
		{key: "", want: []domain.ProductID{"1", "2", "3", "4"}},
		{key: "bogus", want: []domain.ProductID{"1", "2", "3", "4"}},
	}

	for _, tt := range tests {
		t.Run("sort="+tt.key, func(t *testing.T) {
			products := menuFixture()
			SortProducts(products, tt.key)
			assert.Equal(t, tt.want, ids(products))
		})
	}
}

func TestCategories(t *testing.T) {
	assert.Equal(t, []string{"Noodles", "Bread"}, Categories(menuFixture()))
	assert.Empty(t, Categories(nil))
}
