package inventory

import (
	"context"
	"fmt"

	"github.com/evanrosales/shopsphere-backend/pkg/db/models"
	pkgerrors "github.com/evanrosales/shopsphere-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Unit identifies one sellable stock-keeping entity: a variant-less product,
// or a single variant of a product.
type Unit struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	// Label names the unit in error messages (product name or variant sku).
	Label string
}

func (u Unit) label() string {
	if u.Label != "" {
		return u.Label
	}
	if u.VariantID != nil {
		return u.VariantID.String()
	}
	return u.ProductID.String()
}

// Ledger holds the authoritative stock count per unit. Both Reserve and
// Release are single conditional UPDATE statements, so concurrent callers
// racing for the same unit are serialized by the database: at most one wins
// the last item, the rest observe insufficient stock at their own update.
//
// All stock mutations anywhere in the system go through this type.
type Ledger struct{}

// NewLedger returns the stateless ledger; callers supply the transaction.
func NewLedger() Ledger {
	return Ledger{}
}

// Reserve atomically checks stock >= qty and decrements it, incrementing the
// cumulative sold counter in the same statement. Insufficient stock is a
// normal business outcome surfaced as a conflict error naming the unit.
func (Ledger) Reserve(ctx context.Context, tx *gorm.DB, unit Unit, qty int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "reserve requires a transaction")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "reserve quantity must be positive")
	}

	var res *gorm.DB
	if unit.VariantID != nil {
		res = tx.WithContext(ctx).Exec(
			`UPDATE product_variants
			 SET stock = stock - ?, sold = sold + ?, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND product_id = ? AND stock >= ?`,
			qty, qty, *unit.VariantID, unit.ProductID, qty,
		)
	} else {
		res = tx.WithContext(ctx).Exec(
			`UPDATE products
			 SET stock = stock - ?, sold = sold + ?, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND deleted_at IS NULL AND stock >= ?`,
			qty, qty, unit.ProductID, qty,
		)
	}
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve stock")
	}
	if res.RowsAffected == 0 {
		exists, err := unitExists(ctx, tx, unit)
		if err != nil {
			return err
		}
		if !exists {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("unit %s not found", unit.label()))
		}
		return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("insufficient stock for %s", unit.label())).
			WithDetails(map[string]any{
				"product_id": unit.ProductID,
				"variant_id": unit.VariantID,
				"requested":  qty,
			})
	}

	if unit.VariantID != nil {
		return SyncProductStock(ctx, tx, unit.ProductID)
	}
	return nil
}

// Release atomically returns qty units of stock, reversing a prior reserve.
// The sold counter is clamped at zero rather than failing.
func (Ledger) Release(ctx context.Context, tx *gorm.DB, unit Unit, qty int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "release requires a transaction")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "release quantity must be positive")
	}

	var res *gorm.DB
	if unit.VariantID != nil {
		res = tx.WithContext(ctx).Exec(
			`UPDATE product_variants
			 SET stock = stock + ?,
			     sold = CASE WHEN sold >= ? THEN sold - ? ELSE 0 END,
			     updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND product_id = ?`,
			qty, qty, qty, *unit.VariantID, unit.ProductID,
		)
	} else {
		// No deleted_at guard here: compensation must restock a product even
		// after it was soft-removed from the catalog.
		res = tx.WithContext(ctx).Exec(
			`UPDATE products
			 SET stock = stock + ?,
			     sold = CASE WHEN sold >= ? THEN sold - ? ELSE 0 END,
			     updated_at = CURRENT_TIMESTAMP
			 WHERE id = ?`,
			qty, qty, qty, unit.ProductID,
		)
	}
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("unit %s not found", unit.label()))
	}

	if unit.VariantID != nil {
		return SyncProductStock(ctx, tx, unit.ProductID)
	}
	return nil
}

// Adjust applies a signed manual stock correction (catalog management). It
// uses the same conditional-update primitive, so a negative adjustment can
// never drive stock below zero; the sold counter is untouched.
func (Ledger) Adjust(ctx context.Context, tx *gorm.DB, unit Unit, delta int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "adjust requires a transaction")
	}
	if delta == 0 {
		return nil
	}

	var res *gorm.DB
	if unit.VariantID != nil {
		res = tx.WithContext(ctx).Exec(
			`UPDATE product_variants
			 SET stock = stock + ?, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND product_id = ? AND stock + ? >= 0`,
			delta, *unit.VariantID, unit.ProductID, delta,
		)
	} else {
		res = tx.WithContext(ctx).Exec(
			`UPDATE products
			 SET stock = stock + ?, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND deleted_at IS NULL AND stock + ? >= 0`,
			delta, unit.ProductID, delta,
		)
	}
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "adjust stock")
	}
	if res.RowsAffected == 0 {
		exists, err := unitExists(ctx, tx, unit)
		if err != nil {
			return err
		}
		if !exists {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("unit %s not found", unit.label()))
		}
		return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("adjustment would drive %s below zero", unit.label()))
	}

	if unit.VariantID != nil {
		return SyncProductStock(ctx, tx, unit.ProductID)
	}
	return nil
}

// SyncProductStock re-derives a product's aggregate stock from its variants.
// Runs in the caller's transaction so the derived value is never observed
// stale by a committed reader.
func SyncProductStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID) error {
	err := tx.WithContext(ctx).Exec(
		`UPDATE products
		 SET stock = (SELECT COALESCE(SUM(stock), 0) FROM product_variants WHERE product_id = ?),
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		productID, productID,
	).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync product stock")
	}
	return nil
}

func unitExists(ctx context.Context, tx *gorm.DB, unit Unit) (bool, error) {
	var count int64
	var err error
	if unit.VariantID != nil {
		err = tx.WithContext(ctx).
			Model(&models.ProductVariant{}).
			Where("id = ? AND product_id = ?", *unit.VariantID, unit.ProductID).
			Count(&count).Error
	} else {
		err = tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ?", unit.ProductID).
			Count(&count).Error
	}
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check unit existence")
	}
	return count > 0, nil
}
