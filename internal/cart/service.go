package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/evanrosales/shopsphere-backend/pkg/db"
	"github.com/evanrosales/shopsphere-backend/pkg/db/models"
	pkgerrors "github.com/evanrosales/shopsphere-backend/pkg/errors"
)

// Service exposes per-user cart operations. Every user owns at most one
// cart, created lazily on first access.
type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error)
	SetQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

// AddItemInput holds the validated payload to add a cart line.
type AddItemInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

type productReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type service struct {
	repo     *Repository
	products productReader
}

// NewService constructs a cart service instance.
func NewService(repo *Repository, products productReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	return &service{repo: repo, products: products}, nil
}

// GetCart returns the user's cart, creating it on first access. Availability
// of each line is resolved against live stock on every read.
func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.buildDTO(ctx, cart)
}

// AddItem adds a product or variant to the cart, snapshotting price, name
// and sku at add time. An existing line for the same unit is merged.
func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	if !product.IsApproved {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available for sale")
	}

	unitPrice := product.PriceCents
	sku := ""
	if product.HasVariants() {
		if input.VariantID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant selection required for this product")
		}
		variant := findVariant(product, *input.VariantID)
		if variant == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		unitPrice = variant.PriceCents
		sku = variant.SKU
	} else if input.VariantID != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product has no variants")
	}

	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindLine(ctx, cart.ID, input.ProductID, input.VariantID)
	switch {
	case err == nil:
		err = s.repo.UpdateItemQuantity(ctx, existing.ID, existing.Quantity+input.Quantity)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: merge cart line")
		}
	case db.IsNotFound(err):
		item := &models.CartItem{
			CartID:         cart.ID,
			ProductID:      input.ProductID,
			VariantID:      input.VariantID,
			Quantity:       input.Quantity,
			UnitPriceCents: unitPrice,
			Name:           product.Name,
			SKU:            sku,
		}
		if err := s.repo.CreateItem(ctx, item); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert cart line")
		}
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find cart line")
	}

	return s.GetCart(ctx, userID)
}

// SetQuantity replaces the quantity on one line; zero removes the line.
func (s *service) SetQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*CartDTO, error) {
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.FindItem(ctx, cart.ID, itemID); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart line")
	}

	if quantity == 0 {
		if err := s.repo.DeleteItem(ctx, cart.ID, itemID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete cart line")
		}
	} else if err := s.repo.UpdateItemQuantity(ctx, itemID, quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update cart line")
	}

	return s.GetCart(ctx, userID)
}

// RemoveItem deletes one line from the cart.
func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error) {
	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteItem(ctx, cart.ID, itemID); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete cart line")
	}
	return s.GetCart(ctx, userID)
}

// Clear empties the cart. The cart row itself survives.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteAllItems(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear cart")
	}
	return nil
}

func (s *service) getOrCreate(ctx context.Context, userID uuid.UUID) (*models.CartRecord, error) {
	cart, err := s.repo.FindByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
	}
	cart, err = s.repo.Create(ctx, userID)
	if err != nil {
		// Two first-access requests can race on the unique user index.
		if db.IsUniqueViolation(err, "uniq_cart_records_user_id") {
			return s.repo.FindByUserID(ctx, userID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create cart")
	}
	return cart, nil
}

func (s *service) buildDTO(ctx context.Context, cart *models.CartRecord) (*CartDTO, error) {
	dto := &CartDTO{
		ID:     cart.ID,
		UserID: cart.UserID,
		Items:  make([]CartItemDTO, 0, len(cart.Items)),
	}
	for _, item := range cart.Items {
		line := CartItemDTO{
			ID:             item.ID,
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			Name:           item.Name,
			SKU:            item.SKU,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			LineTotalCents: item.UnitPriceCents * item.Quantity,
			AddedAt:        item.CreatedAt,
		}
		line.Available, line.AvailableStock = s.resolveAvailability(ctx, item)
		dto.Items = append(dto.Items, line)
		dto.SubtotalCents += line.LineTotalCents
	}
	return dto, nil
}

func (s *service) resolveAvailability(ctx context.Context, item models.CartItem) (bool, int) {
	product, err := s.products.FindByID(ctx, item.ProductID)
	if err != nil {
		return false, 0
	}
	if !product.IsApproved {
		return false, 0
	}
	if item.VariantID != nil {
		variant := findVariant(product, *item.VariantID)
		if variant == nil {
			return false, 0
		}
		return variant.Stock >= item.Quantity, variant.Stock
	}
	return product.Stock >= item.Quantity, product.Stock
}

func findVariant(product *models.Product, variantID uuid.UUID) *models.ProductVariant {
	for i := range product.Variants {
		if product.Variants[i].ID == variantID {
			return &product.Variants[i]
		}
	}
	return nil
}
