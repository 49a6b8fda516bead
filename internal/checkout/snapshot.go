package checkout

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/evanrosales/shopsphere-backend/internal/inventory"
	"github.com/evanrosales/shopsphere-backend/pkg/db/models"
	pkgerrors "github.com/evanrosales/shopsphere-backend/pkg/errors"
)

// LineRequest is one requested purchase line before resolution.
type LineRequest struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

// Snapshot is the resolved, immutable order content. Lines carry the price,
// name and sku captured at build time; Units parallel Lines and feed the
// ledger reserve calls.
type Snapshot struct {
	Lines         []models.OrderLineItem
	Units         []inventory.Unit
	SubtotalCents int
}

// BuildSnapshot resolves every requested line against the supplied catalog
// state. Unit price comes from the variant when one is referenced, else from
// the product. Any missing reference rejects the whole batch; a partial
// snapshot is never returned.
func BuildSnapshot(requests []LineRequest, products map[uuid.UUID]*models.Product) (*Snapshot, error) {
	if len(requests) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to check out")
	}

	snapshot := &Snapshot{
		Lines: make([]models.OrderLineItem, 0, len(requests)),
		Units: make([]inventory.Unit, 0, len(requests)),
	}
	for _, req := range requests {
		if req.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
		product, ok := products[req.ProductID]
		if !ok || product == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", req.ProductID))
		}

		unitPrice := product.PriceCents
		sku := ""
		label := product.Name
		if req.VariantID != nil {
			variant := findVariant(product, *req.VariantID)
			if variant == nil {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound,
					fmt.Sprintf("variant %s of %s not found", *req.VariantID, product.Name))
			}
			unitPrice = variant.PriceCents
			sku = variant.SKU
			label = fmt.Sprintf("%s (%s)", product.Name, variant.SKU)
		} else if product.HasVariants() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("%s requires a variant selection", product.Name))
		}

		lineTotal := unitPrice * req.Quantity
		snapshot.Lines = append(snapshot.Lines, models.OrderLineItem{
			ProductID:      req.ProductID,
			VariantID:      req.VariantID,
			Name:           product.Name,
			SKU:            sku,
			Quantity:       req.Quantity,
			UnitPriceCents: unitPrice,
			TotalCents:     lineTotal,
		})
		snapshot.Units = append(snapshot.Units, inventory.Unit{
			ProductID: req.ProductID,
			VariantID: req.VariantID,
			Label:     label,
		})
		snapshot.SubtotalCents += lineTotal
	}
	return snapshot, nil
}

func findVariant(product *models.Product, variantID uuid.UUID) *models.ProductVariant {
	for i := range product.Variants {
		if product.Variants[i].ID == variantID {
			return &product.Variants[i]
		}
	}
	return nil
}
