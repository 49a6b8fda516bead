package cart

import (
	"time"

	"github.com/google/uuid"
)

// CartItemDTO is one cart line with its live availability resolved at read
// time. Availability is never persisted; the snapshot fields are.
type CartItemDTO struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      uuid.UUID  `json:"product_id"`
	VariantID      *uuid.UUID `json:"variant_id,omitempty"`
	Name           string     `json:"name"`
	SKU            string     `json:"sku,omitempty"`
	Quantity       int        `json:"quantity"`
	UnitPriceCents int        `json:"unit_price_cents"`
	LineTotalCents int        `json:"line_total_cents"`
	Available      bool       `json:"available"`
	AvailableStock int        `json:"available_stock"`
	AddedAt        time.Time  `json:"added_at"`
}

// CartDTO is the cart payload returned to clients.
type CartDTO struct {
	ID            uuid.UUID     `json:"id"`
	UserID        uuid.UUID     `json:"user_id"`
	Items         []CartItemDTO `json:"items"`
	SubtotalCents int           `json:"subtotal_cents"`
}
