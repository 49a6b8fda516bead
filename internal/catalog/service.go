package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/evanrosales/shopsphere-backend/internal/inventory"
	"github.com/evanrosales/shopsphere-backend/pkg/db"
	"github.com/evanrosales/shopsphere-backend/pkg/db/models"
	pkgerrors "github.com/evanrosales/shopsphere-backend/pkg/errors"
	"github.com/evanrosales/shopsphere-backend/pkg/pagination"
	"github.com/evanrosales/shopsphere-backend/pkg/types"
)

// Service exposes catalog management and browsing operations.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	SetApproval(ctx context.Context, id uuid.UUID, approved bool) (*ProductDTO, error)
	AddVariant(ctx context.Context, productID uuid.UUID, input VariantInput) (*ProductDTO, error)
	UpdateVariant(ctx context.Context, productID, variantID uuid.UUID, input UpdateVariantInput) (*ProductDTO, error)
	RemoveVariant(ctx context.Context, productID, variantID uuid.UUID) (*ProductDTO, error)
	AdjustStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, delta int) (*ProductDTO, error)
}

// VariantInput holds the validated payload to create a variant.
type VariantInput struct {
	SKU                 string
	PriceCents          int
	CompareAtPriceCents *int
	Stock               int
	Attributes          types.AttributeSet
	IsDefault           bool
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name                string
	Brand               string
	Category            string
	Description         string
	Tags                []string
	PriceCents          int
	CompareAtPriceCents *int
	Stock               int
	Variants            []VariantInput
}

// UpdateProductInput holds optional mutation values for a product. Stock is
// deliberately absent; stock moves only through AdjustStock and the ledger.
type UpdateProductInput struct {
	Name                *string
	Brand               *string
	Category            *string
	Description         *string
	Tags                *[]string
	PriceCents          *int
	CompareAtPriceCents *int
}

// UpdateVariantInput holds optional mutation values for a variant.
type UpdateVariantInput struct {
	SKU                 *string
	PriceCents          *int
	CompareAtPriceCents *int
	Attributes          *types.AttributeSet
	IsDefault           *bool
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	ledger   inventory.Ledger
	ownerID  uuid.UUID
}

// NewService constructs a catalog service instance. The owner id stamps every
// created product; it comes from deploy configuration.
func NewService(repo *Repository, dbClient *db.Client, ledger inventory.Ledger, ownerID uuid.UUID) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if ownerID == uuid.Nil {
		return nil, fmt.Errorf("catalog owner id required")
	}
	return &service{
		repo:     repo,
		dbClient: dbClient,
		ledger:   ledger,
		ownerID:  ownerID,
	}, nil
}

// CreateProduct creates the product with its variants in one transaction.
// Variant products get derived aggregates: stock is the sum of variant stock
// and price is the minimum variant price.
func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	if input.PriceCents < 0 || input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price and stock cannot be negative")
	}
	if err := validateVariantSet(input.Variants); err != nil {
		return nil, err
	}

	product := &models.Product{
		OwnerID:             s.ownerID,
		Name:                input.Name,
		Brand:               input.Brand,
		Category:            input.Category,
		Description:         input.Description,
		Tags:                input.Tags,
		PriceCents:          input.PriceCents,
		CompareAtPriceCents: input.CompareAtPriceCents,
		Stock:               input.Stock,
	}

	if len(input.Variants) > 0 {
		defaulted := false
		stockSum := 0
		minPrice := input.Variants[0].PriceCents
		for _, v := range input.Variants {
			if v.PriceCents < 0 || v.Stock < 0 {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant price and stock cannot be negative")
			}
			if v.IsDefault {
				defaulted = true
			}
			product.Variants = append(product.Variants, models.ProductVariant{
				SKU:                 v.SKU,
				PriceCents:          v.PriceCents,
				CompareAtPriceCents: v.CompareAtPriceCents,
				Stock:               v.Stock,
				Attributes:          v.Attributes,
				IsDefault:           v.IsDefault,
			})
			stockSum += v.Stock
			if v.PriceCents < minPrice {
				minPrice = v.PriceCents
			}
		}
		// First variant becomes the default when none is flagged.
		if !defaulted {
			product.Variants[0].IsDefault = true
		}
		product.Stock = stockSum
		product.PriceCents = minPrice
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).CreateProduct(ctx, product); err != nil {
			if db.IsUniqueViolation(err, "uniq_variant_attributes") {
				return pkgerrors.New(pkgerrors.CodeConflict, "duplicate variant attributes")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}

	return s.GetProduct(ctx, product.ID)
}

// GetProduct loads one product with variants.
func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	return NewProductDTO(product), nil
}

// ListProducts returns one cursor page of products.
func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	rows, err := s.repo.List(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "list products")
	}

	limit := pagination.NormalizeLimit(input.Pagination.Limit)
	result := &ProductListResult{Products: make([]ProductDTO, 0, len(rows))}
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	for i := range rows {
		result.Products = append(result.Products, *NewProductDTO(&rows[i]))
	}
	if hasMore {
		last := rows[len(rows)-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return result, nil
}

// UpdateProduct applies a partial update. Direct price edits are rejected on
// variant products because their price is derived from the variants.
func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}

	fields := map[string]any{}
	if input.Name != nil {
		fields["name"] = *input.Name
	}
	if input.Brand != nil {
		fields["brand"] = *input.Brand
	}
	if input.Category != nil {
		fields["category"] = *input.Category
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	if input.Tags != nil {
		fields["tags"] = pq.StringArray(*input.Tags)
	}
	if input.PriceCents != nil {
		if product.HasVariants() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price of a variant product is derived from its variants")
		}
		if *input.PriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		fields["price_cents"] = *input.PriceCents
	}
	if input.CompareAtPriceCents != nil {
		fields["compare_at_price_cents"] = *input.CompareAtPriceCents
	}
	if len(fields) == 0 {
		return NewProductDTO(product), nil
	}

	if err := s.repo.UpdateProductFields(ctx, id, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
	}
	return s.GetProduct(ctx, id)
}

// DeleteProduct soft-deletes the product; order snapshots are unaffected.
func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
	}
	return nil
}

// SetApproval flips the listing visibility flag.
func (s *service) SetApproval(ctx context.Context, id uuid.UUID, approved bool) (*ProductDTO, error) {
	if err := s.repo.UpdateProductFields(ctx, id, map[string]any{"is_approved": approved}); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update approval")
	}
	return s.GetProduct(ctx, id)
}

// AddVariant appends a variant and re-derives the product aggregates.
func (s *service) AddVariant(ctx context.Context, productID uuid.UUID, input VariantInput) (*ProductDTO, error) {
	if input.PriceCents < 0 || input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant price and stock cannot be negative")
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}

	variant := &models.ProductVariant{
		ProductID:           productID,
		SKU:                 input.SKU,
		PriceCents:          input.PriceCents,
		CompareAtPriceCents: input.CompareAtPriceCents,
		Stock:               input.Stock,
		Attributes:          input.Attributes,
		IsDefault:           input.IsDefault || !product.HasVariants(),
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := txRepo.CreateVariant(ctx, variant); err != nil {
			if db.IsUniqueViolation(err, "uniq_variant_attributes") {
				return pkgerrors.New(pkgerrors.CodeConflict, "duplicate variant attributes")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert variant")
		}
		if variant.IsDefault {
			if err := txRepo.ClearDefault(ctx, productID, variant.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear default variant")
			}
		}
		return s.recomputeDerived(ctx, txRepo, tx, productID)
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add variant")
	}

	return s.GetProduct(ctx, productID)
}

// UpdateVariant applies a partial update and re-derives aggregates.
func (s *service) UpdateVariant(ctx context.Context, productID, variantID uuid.UUID, input UpdateVariantInput) (*ProductDTO, error) {
	fields := map[string]any{}
	if input.SKU != nil {
		fields["sku"] = *input.SKU
	}
	if input.PriceCents != nil {
		if *input.PriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant price cannot be negative")
		}
		fields["price_cents"] = *input.PriceCents
	}
	if input.CompareAtPriceCents != nil {
		fields["compare_at_price_cents"] = *input.CompareAtPriceCents
	}
	if input.Attributes != nil {
		fields["attributes"] = *input.Attributes
		fields["attribute_fingerprint"] = input.Attributes.Fingerprint()
	}
	if input.IsDefault != nil && *input.IsDefault {
		fields["is_default"] = true
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if len(fields) > 0 {
			if err := txRepo.UpdateVariantFields(ctx, productID, variantID, fields); err != nil {
				if db.IsNotFound(err) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
				}
				if db.IsUniqueViolation(err, "uniq_variant_attributes") {
					return pkgerrors.New(pkgerrors.CodeConflict, "duplicate variant attributes")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update variant")
			}
		}
		if input.IsDefault != nil && *input.IsDefault {
			if err := txRepo.ClearDefault(ctx, productID, variantID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear default variant")
			}
		}
		return s.recomputeDerived(ctx, txRepo, tx, productID)
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update variant")
	}

	return s.GetProduct(ctx, productID)
}

// RemoveVariant deletes a variant, promotes a new default when needed, and
// re-derives aggregates.
func (s *service) RemoveVariant(ctx context.Context, productID, variantID uuid.UUID) (*ProductDTO, error) {
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		variant, err := txRepo.FindVariant(ctx, productID, variantID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load variant")
		}
		if err := txRepo.DeleteVariant(ctx, productID, variantID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete variant")
		}
		if variant.IsDefault {
			remaining, err := txRepo.ListVariants(ctx, productID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list variants")
			}
			if len(remaining) > 0 {
				err = txRepo.UpdateVariantFields(ctx, productID, remaining[0].ID, map[string]any{"is_default": true})
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: promote default variant")
				}
			}
		}
		return s.recomputeDerived(ctx, txRepo, tx, productID)
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove variant")
	}

	return s.GetProduct(ctx, productID)
}

// AdjustStock applies a signed manual stock correction through the ledger.
// Variant products must be adjusted per variant.
func (s *service) AdjustStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, delta int) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	if product.HasVariants() && variantID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant products are adjusted per variant")
	}
	if !product.HasVariants() && variantID != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product has no variants")
	}

	unit := inventory.Unit{ProductID: productID, VariantID: variantID, Label: product.Name}
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		return s.ledger.Adjust(ctx, tx, unit, delta)
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust stock")
	}

	return s.GetProduct(ctx, productID)
}

// recomputeDerived re-derives stock and price for a variant product inside
// the caller's transaction.
func (s *service) recomputeDerived(ctx context.Context, txRepo *Repository, tx *gorm.DB, productID uuid.UUID) error {
	variants, err := txRepo.ListVariants(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list variants")
	}
	if len(variants) == 0 {
		if err := inventory.SyncProductStock(ctx, tx, productID); err != nil {
			return err
		}
		return nil
	}

	stockSum := 0
	minPrice := variants[0].PriceCents
	for _, v := range variants {
		stockSum += v.Stock
		if v.PriceCents < minPrice {
			minPrice = v.PriceCents
		}
	}
	err = txRepo.UpdateProductFields(ctx, productID, map[string]any{
		"stock":       stockSum,
		"price_cents": minPrice,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update derived fields")
	}
	return nil
}

func validateVariantSet(variants []VariantInput) error {
	defaults := 0
	seen := map[string]struct{}{}
	for _, v := range variants {
		if v.IsDefault {
			defaults++
		}
		fp := v.Attributes.Fingerprint()
		if _, dup := seen[fp]; dup {
			return pkgerrors.New(pkgerrors.CodeConflict, "duplicate variant attributes")
		}
		seen[fp] = struct{}{}
	}
	if defaults > 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at most one variant can be the default")
	}
	return nil
}
