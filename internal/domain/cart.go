package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/shopspring/decimal"
)

// ProductID is an opaque product identifier. The backend hands out numeric ids,
// so numeric-looking values are written back to JSON as numbers.
type ProductID string

func (id ProductID) MarshalJSON() ([]byte, error) {
	if isInteger(string(id)) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *ProductID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ProductID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("product id: %w", err)
	}
	*id = ProductID(n.String())
	return nil
}

func isInteger(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' {
		s = s[1:]
	}
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// LineItem is one product entry in the cart. Display fields the cart does not
// know about are kept in Extra and written back untouched.
type LineItem struct {
	ID       ProductID
	Name     string
	Price    decimal.Decimal
	Image    string
	Quantity int
	Extra    map[string]json.RawMessage
}

// Subtotal is price × quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Clone returns a copy that shares nothing mutable with li.
func (li LineItem) Clone() LineItem {
	out := li
	if li.Extra != nil {
		out.Extra = maps.Clone(li.Extra)
	}
	return out
}

func (li LineItem) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(li.Extra)+5)
	for k, v := range li.Extra {
		fields[k] = v
	}
	fields["id"] = li.ID
	fields["price"] = li.Price
	fields["quantity"] = li.Quantity
	if li.Name != "" {
		fields["name"] = li.Name
	}
	if li.Image != "" {
		fields["image"] = li.Image
	}
	return json.Marshal(fields)
}

func (li *LineItem) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	var item LineItem
	if v, ok := raw["id"]; ok {
		if err := json.Unmarshal(v, &item.ID); err != nil {
			return err
		}
		delete(raw, "id")
	}
	if v, ok := raw["name"]; ok {
		if err := json.Unmarshal(v, &item.Name); err != nil {
			return fmt.Errorf("line item name: %w", err)
		}
		delete(raw, "name")
	}
	if v, ok := raw["price"]; ok {
		if err := item.Price.UnmarshalJSON(v); err != nil {
			return fmt.Errorf("line item price: %w", err)
		}
		delete(raw, "price")
	}
	if v, ok := raw["image"]; ok {
		if err := json.Unmarshal(v, &item.Image); err != nil {
			return fmt.Errorf("line item image: %w", err)
		}
		delete(raw, "image")
	}
	if v, ok := raw["quantity"]; ok {
		if err := json.Unmarshal(v, &item.Quantity); err != nil {
			return fmt.Errorf("line item quantity: %w", err)
		}
		delete(raw, "quantity")
	}
	if len(raw) > 0 {
		item.Extra = raw
	}

	*li = item
	return nil
}
