package models

import (
	"time"

	"github.com/evanrosales/shopsphere-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductVariant is a sellable unit owned by exactly one product. The
// attribute fingerprint enforces uniqueness of attribute combinations within
// the parent product.
type ProductVariant struct {
	ID                   uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	ProductID            uuid.UUID          `gorm:"column:product_id;type:uuid;not null;uniqueIndex:uniq_variant_attributes"`
	SKU                  string             `gorm:"column:sku;not null"`
	PriceCents           int                `gorm:"column:price_cents;not null"`
	CompareAtPriceCents  *int               `gorm:"column:compare_at_price_cents"`
	Stock                int                `gorm:"column:stock;not null;default:0"`
	Sold                 int                `gorm:"column:sold;not null;default:0"`
	Attributes           types.AttributeSet `gorm:"column:attributes;type:jsonb;serializer:json"`
	AttributeFingerprint string             `gorm:"column:attribute_fingerprint;not null;uniqueIndex:uniq_variant_attributes"`
	IsDefault            bool               `gorm:"column:is_default;not null;default:false"`
	CreatedAt            time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *ProductVariant) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.AttributeFingerprint == "" {
		v.AttributeFingerprint = v.Attributes.Fingerprint()
	}
	return nil
}
