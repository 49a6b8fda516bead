package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/evanrosales/shopsphere-backend/pkg/db/models"
	"github.com/evanrosales/shopsphere-backend/pkg/pagination"
)

// ListProductsInput filters and paginates the public product listing.
type ListProductsInput struct {
	Category     string
	Search       string
	ApprovedOnly bool
	Pagination   pagination.Params
}

// Repository wires together all catalog persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreateProduct inserts the product together with any nested variants.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// FindByID loads the product with its variants.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// UpdateProductFields applies a partial column update.
func (r *Repository) UpdateProductFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SoftDelete marks the product deleted; historical orders keep their snapshots.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns one cursor page ordered by newest first.
func (r *Repository) List(ctx context.Context, input ListProductsInput) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{}).
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		})

	if input.Category != "" {
		query = query.Where("category = ?", input.Category)
	}
	if input.Search != "" {
		pattern := "%" + input.Search + "%"
		query = query.Where("LOWER(name) LIKE LOWER(?) OR LOWER(brand) LIKE LOWER(?)", pattern, pattern)
	}
	if input.ApprovedOnly {
		query = query.Where("is_approved = ?", true)
	}

	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var products []models.Product
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(input.Pagination.Limit)).
		Find(&products).Error
	return products, err
}

// CreateVariant inserts one variant row.
func (r *Repository) CreateVariant(ctx context.Context, variant *models.ProductVariant) (*models.ProductVariant, error) {
	if err := r.db.WithContext(ctx).Create(variant).Error; err != nil {
		return nil, err
	}
	return variant, nil
}

// FindVariant loads a variant scoped to its parent product.
func (r *Repository) FindVariant(ctx context.Context, productID, variantID uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := r.db.WithContext(ctx).
		First(&variant, "id = ? AND product_id = ?", variantID, productID).Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// ListVariants returns all variants of a product in creation order.
func (r *Repository) ListVariants(ctx context.Context, productID uuid.UUID) ([]models.ProductVariant, error) {
	var variants []models.ProductVariant
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at ASC, id ASC").
		Find(&variants).Error
	return variants, err
}

// UpdateVariantFields applies a partial column update to one variant.
func (r *Repository) UpdateVariantFields(ctx context.Context, productID, variantID uuid.UUID, fields map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ? AND product_id = ?", variantID, productID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteVariant removes one variant row.
func (r *Repository) DeleteVariant(ctx context.Context, productID, variantID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Delete(&models.ProductVariant{}, "id = ? AND product_id = ?", variantID, productID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ClearDefault unsets the default flag on every variant except the given one.
func (r *Repository) ClearDefault(ctx context.Context, productID uuid.UUID, exceptID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("product_id = ? AND id <> ?", productID, exceptID).
		Update("is_default", false).Error
}
