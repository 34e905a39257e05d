package storefront

import (
	"cmp"
	"slices"
	"strings"

	"github.com/fjod/food-storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// Menu sort keys accepted in MenuQuery.Sort. Anything else keeps backend order.
const (
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNameAsc   = "name_asc"
	SortNameDesc  = "name_desc"
	SortRating    = "rating"
	SortNewest    = "newest"
)

type MenuQuery struct {
	Category string
	Query    string
	MinPrice decimal.NullDecimal
	MaxPrice decimal.NullDecimal
	Sort     string
}

// FilterProducts returns the products matching every set field of q, in input order.
func FilterProducts(products []domain.Product, q MenuQuery) []domain.Product {
	query := strings.ToLower(strings.TrimSpace(q.Query))
	category := strings.TrimSpace(q.Category)

	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Name), query) &&
			!strings.Contains(strings.ToLower(p.Description), query) {
			continue
		}
		if q.MinPrice.Valid && p.Price.LessThan(q.MinPrice.Decimal) {
			continue
		}
		if q.MaxPrice.Valid && p.Price.GreaterThan(q.MaxPrice.Decimal) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// SortProducts sorts products in place by key. The sort is stable so ties keep backend order.
func SortProducts(products []domain.Product, key string) {
	var compare func(a, b domain.Product) int
	switch key {
	case SortPriceAsc:
		compare = func(a, b domain.Product) int { return a.Price.Cmp(b.Price) }
	case SortPriceDesc:
		compare = func(a, b domain.Product) int { return b.Price.Cmp(a.Price) }
	case SortNameAsc:
		compare = func(a, b domain.Product) int { return compareNames(a.Name, b.Name) }
	case SortNameDesc:
		compare = func(a, b domain.Product) int { return compareNames(b.Name, a.Name) }
	case SortRating:
		compare = func(a, b domain.Product) int { return cmp.Compare(b.Rating, a.Rating) }
	case SortNewest:
		compare = func(a, b domain.Product) int { return b.CreatedAt.Compare(a.CreatedAt) }
	default:
		return
	}
	slices.SortStableFunc(products, compare)
}

func compareNames(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// Categories lists the distinct non-empty categories in first-seen order.
func Categories(products []domain.Product) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, p := range products {
		if p.Category == "" {
			continue
		}
		key := strings.ToLower(p.Category)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}
