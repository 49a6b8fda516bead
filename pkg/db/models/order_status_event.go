package models

import (
	"time"

	"github.com/evanrosales/shopsphere-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderStatusEvent is one entry in an order's append-only status history.
// Rows are only ever inserted, never updated or removed.
type OrderStatusEvent struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	Status    enums.OrderStatus `gorm:"column:status;not null"`
	ActorID   uuid.UUID         `gorm:"column:actor_id;type:uuid;not null"`
	Note      *string           `gorm:"column:note"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (e *OrderStatusEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
