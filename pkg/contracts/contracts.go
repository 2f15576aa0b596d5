// Package contracts holds the payloads shared by the cart, orders and products
// services: the persisted aggregate shapes, the event payloads and the
// catalog DTO.
package contracts

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

const (
	StoreName = "statestore"

	CartKey          = "cart"
	CurrentOrdersKey = "currentOrders"

	TopicNewCartItem = "new.cart.item"
	TopicNewOrders   = "new.orders"
)

type CartDto struct {
	Items []string `json:"items"`
}

// OrderDto is both the "new.orders" payload and the shape returned by GET /orders.
// ID is the idempotency key stamped by checkout; it is empty on aggregates.
type OrderDto struct {
	ID    string   `json:"id,omitempty"`
	Items []string `json:"items" validate:"required,min=1"`
}

type ProductDto struct {
	Name      string          `json:"name" validate:"required,max=200"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// MarshalJSON writes UnitPrice as a JSON number. Decoding accepts numbers and
// quoted strings alike.
func (p ProductDto) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name      string      `json:"name"`
		UnitPrice json.Number `json:"unitPrice"`
	}{
		Name:      p.Name,
		UnitPrice: json.Number(p.UnitPrice.String()),
	})
}
