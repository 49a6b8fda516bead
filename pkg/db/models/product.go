package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Product represents a catalog entry. Stock and price are authoritative only
// for variant-less products; with variants they are derived aggregates
// (stock = sum of variant stock, price = min variant price) maintained by the
// catalog service and the inventory ledger.
type Product struct {
	ID                  uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID             uuid.UUID        `gorm:"column:owner_id;type:uuid;not null"`
	Name                string           `gorm:"column:name;not null"`
	Brand               string           `gorm:"column:brand"`
	Category            string           `gorm:"column:category;not null"`
	Description         string           `gorm:"column:description"`
	Tags                pq.StringArray   `gorm:"column:tags;type:text[]"`
	PriceCents          int              `gorm:"column:price_cents;not null"`
	CompareAtPriceCents *int             `gorm:"column:compare_at_price_cents"`
	Stock               int              `gorm:"column:stock;not null;default:0"`
	Sold                int              `gorm:"column:sold;not null;default:0"`
	IsApproved          bool             `gorm:"column:is_approved;not null;default:false"`
	Variants            []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time        `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt           gorm.DeletedAt   `gorm:"column:deleted_at;index"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// HasVariants reports whether the product sells through variants.
func (p *Product) HasVariants() bool {
	return len(p.Variants) > 0
}

// DefaultVariant returns the variant flagged as default, if any.
func (p *Product) DefaultVariant() *ProductVariant {
	for i := range p.Variants {
		if p.Variants[i].IsDefault {
			return &p.Variants[i]
		}
	}
	return nil
}
