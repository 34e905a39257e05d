package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          ProductID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image,omitempty"`
	Category    string          `json:"category,omitempty"`
	Rating      float64         `json:"rating,omitempty"`
	Featured    bool            `json:"featured,omitempty"`
	CreatedAt   time.Time       `json:"created_at,omitzero"`
}

// LineItem copies the product's display fields into a cart line item.
func (p Product) LineItem(quantity int) LineItem {
	item := LineItem{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Image:    p.Image,
		Quantity: quantity,
	}

	extra := make(map[string]json.RawMessage)
	if p.Category != "" {
		extra["category"], _ = json.Marshal(p.Category)
	}
	if p.Description != "" {
		extra["description"], _ = json.Marshal(p.Description)
	}
	if len(extra) > 0 {
		item.Extra = extra
	}
	return item
}

type Review struct {
	ID        string    `json:"id,omitempty"`
	ProductID ProductID `json:"product_id"`
	Author    string    `json:"author"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}
