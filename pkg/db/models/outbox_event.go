package models

import (
	"encoding/json"
	"time"

	"github.com/evanrosales/shopsphere-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OutboxEvent represents an append-only event emitted via the outbox pattern.
type OutboxEvent struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	EventType     enums.EventType     `gorm:"column:event_type;not null"`
	AggregateType enums.AggregateType `gorm:"column:aggregate_type;not null"`
	AggregateID   uuid.UUID           `gorm:"column:aggregate_id;type:uuid;not null"`
	Payload       json.RawMessage     `gorm:"column:payload;type:jsonb;not null"`
	Status        enums.OutboxStatus  `gorm:"column:status;not null;default:'pending';index"`
	AttemptCount  int                 `gorm:"column:attempt_count;not null;default:0"`
	LastError     *string             `gorm:"column:last_error"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	PublishedAt   *time.Time          `gorm:"column:published_at"`
}

func (e *OutboxEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
