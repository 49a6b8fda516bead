package catalog

import (
	"time"

	"github.com/evanrosales/shopsphere-backend/pkg/db/models"
	"github.com/evanrosales/shopsphere-backend/pkg/types"
	"github.com/google/uuid"
)

// VariantDTO is the variant payload returned to clients.
type VariantDTO struct {
	ID                  uuid.UUID          `json:"id"`
	SKU                 string             `json:"sku"`
	PriceCents          int                `json:"price_cents"`
	CompareAtPriceCents *int               `json:"compare_at_price_cents,omitempty"`
	Stock               int                `json:"stock"`
	Sold                int                `json:"sold"`
	Attributes          types.AttributeSet `json:"attributes"`
	IsDefault           bool               `json:"is_default"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// ProductDTO is the product payload returned to clients. Stock and price on
// a variant product are the derived aggregates, not independent values.
type ProductDTO struct {
	ID                  uuid.UUID    `json:"id"`
	OwnerID             uuid.UUID    `json:"owner_id"`
	Name                string       `json:"name"`
	Brand               string       `json:"brand,omitempty"`
	Category            string       `json:"category"`
	Description         string       `json:"description,omitempty"`
	Tags                []string     `json:"tags"`
	PriceCents          int          `json:"price_cents"`
	CompareAtPriceCents *int         `json:"compare_at_price_cents,omitempty"`
	Stock               int          `json:"stock"`
	Sold                int          `json:"sold"`
	IsApproved          bool         `json:"is_approved"`
	Variants            []VariantDTO `json:"variants,omitempty"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// ProductListResult is one page of products plus the cursor for the next.
type ProductListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// NewProductDTO maps the model to its API shape.
func NewProductDTO(p *models.Product) *ProductDTO {
	dto := &ProductDTO{
		ID:                  p.ID,
		OwnerID:             p.OwnerID,
		Name:                p.Name,
		Brand:               p.Brand,
		Category:            p.Category,
		Description:         p.Description,
		Tags:                append([]string{}, p.Tags...),
		PriceCents:          p.PriceCents,
		CompareAtPriceCents: p.CompareAtPriceCents,
		Stock:               p.Stock,
		Sold:                p.Sold,
		IsApproved:          p.IsApproved,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
	for i := range p.Variants {
		dto.Variants = append(dto.Variants, newVariantDTO(&p.Variants[i]))
	}
	return dto
}

func newVariantDTO(v *models.ProductVariant) VariantDTO {
	return VariantDTO{
		ID:                  v.ID,
		SKU:                 v.SKU,
		PriceCents:          v.PriceCents,
		CompareAtPriceCents: v.CompareAtPriceCents,
		Stock:               v.Stock,
		Sold:                v.Sold,
		Attributes:          v.Attributes,
		IsDefault:           v.IsDefault,
		CreatedAt:           v.CreatedAt,
		UpdatedAt:           v.UpdatedAt,
	}
}
