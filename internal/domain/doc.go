// Package domain holds the storefront's data types: cart line items and the
// backend view models (products, reviews, orders) they are copied from.
package domain

import "github.com/shopspring/decimal"

func init() {
	// Prices travel as JSON numbers in both the cart slot and the backend API.
	decimal.MarshalJSONWithoutQuotes = true
}
