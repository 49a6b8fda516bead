package orders

import (
	"time"

	"github.com/evanrosales/shopsphere-backend/pkg/db/models"
	"github.com/evanrosales/shopsphere-backend/pkg/enums"
	"github.com/evanrosales/shopsphere-backend/pkg/types"
	"github.com/google/uuid"
)

// OrderLineDTO is one immutable order line snapshot.
type OrderLineDTO struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      uuid.UUID  `json:"product_id"`
	VariantID      *uuid.UUID `json:"variant_id,omitempty"`
	Name           string     `json:"name"`
	SKU            string     `json:"sku,omitempty"`
	Quantity       int        `json:"quantity"`
	UnitPriceCents int        `json:"unit_price_cents"`
	TotalCents     int        `json:"total_cents"`
}

// StatusEventDTO is one entry of the append-only status history.
type StatusEventDTO struct {
	Status    enums.OrderStatus `json:"status"`
	ActorID   uuid.UUID         `json:"actor_id"`
	Note      *string           `json:"note,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// OrderDTO is the order payload returned to clients.
type OrderDTO struct {
	ID              uuid.UUID           `json:"id"`
	UserID          uuid.UUID           `json:"user_id"`
	Status          enums.OrderStatus   `json:"status"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	PaymentStatus   enums.PaymentStatus `json:"payment_status"`
	SubtotalCents   int                 `json:"subtotal_cents"`
	ShippingCents   int                 `json:"shipping_cents"`
	DiscountCents   int                 `json:"discount_cents"`
	TotalCents      int                 `json:"total_cents"`
	CouponCode      *string             `json:"coupon_code,omitempty"`
	ShippingAddress types.Address       `json:"shipping_address"`
	ContactPhone    string              `json:"contact_phone,omitempty"`
	Items           []OrderLineDTO      `json:"items"`
	StatusHistory   []StatusEventDTO    `json:"status_history"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// OrderListResult is one page of orders plus the cursor for the next.
type OrderListResult struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// NewOrderDTO maps the model to its API shape.
func NewOrderDTO(o *models.Order) *OrderDTO {
	dto := &OrderDTO{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          o.Status,
		PaymentMethod:   o.PaymentMethod,
		PaymentStatus:   o.PaymentStatus,
		SubtotalCents:   o.SubtotalCents,
		ShippingCents:   o.ShippingCents,
		DiscountCents:   o.DiscountCents,
		TotalCents:      o.TotalCents,
		CouponCode:      o.CouponCode,
		ShippingAddress: o.ShippingAddress,
		ContactPhone:    o.ContactPhone,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	for _, item := range o.Items {
		dto.Items = append(dto.Items, OrderLineDTO{
			ID:             item.ID,
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			Name:           item.Name,
			SKU:            item.SKU,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			TotalCents:     item.TotalCents,
		})
	}
	for _, event := range o.StatusHistory {
		dto.StatusHistory = append(dto.StatusHistory, StatusEventDTO{
			Status:    event.Status,
			ActorID:   event.ActorID,
			Note:      event.Note,
			CreatedAt: event.CreatedAt,
		})
	}
	return dto
}
