package models

import (
	"time"

	"github.com/evanrosales/shopsphere-backend/pkg/enums"
	"github.com/evanrosales/shopsphere-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order is the permanent audit record produced by checkout. Line items are
// immutable snapshots; status moves only through the order state machine and
// every move is appended to StatusHistory. Orders are never deleted.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Status          enums.OrderStatus   `gorm:"column:status;not null;default:'pending'"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;not null;default:'cod'"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;not null;default:'unpaid'"`
	SubtotalCents   int                 `gorm:"column:subtotal_cents;not null"`
	ShippingCents   int                 `gorm:"column:shipping_cents;not null;default:0"`
	DiscountCents   int                 `gorm:"column:discount_cents;not null;default:0"`
	TotalCents      int                 `gorm:"column:total_cents;not null"`
	CouponCode      *string             `gorm:"column:coupon_code"`
	ShippingAddress types.Address       `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	ContactPhone    string              `gorm:"column:contact_phone"`
	Items           []OrderLineItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusHistory   []OrderStatusEvent  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
