package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evanrosales/shopsphere-backend/internal/inventory"
	"github.com/evanrosales/shopsphere-backend/pkg/config"
	"github.com/evanrosales/shopsphere-backend/pkg/db"
	"github.com/evanrosales/shopsphere-backend/pkg/db/models"
	pkgerrors "github.com/evanrosales/shopsphere-backend/pkg/errors"
	"github.com/evanrosales/shopsphere-backend/pkg/pagination"
	"github.com/evanrosales/shopsphere-backend/pkg/types"
)

func newTestClient(t *testing.T) *db.Client {
	t.Helper()
	cfg := config.DBConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:catalog_%s?mode=memory&cache=shared", uuid.NewString()),
	}
	client, err := db.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.NoError(t, client.DB().AutoMigrate(&models.Product{}, &models.ProductVariant{}))
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func newTestService(t *testing.T) (Service, *db.Client, uuid.UUID) {
	t.Helper()
	client := newTestClient(t)
	ownerID := uuid.New()
	svc, err := NewService(NewRepository(client.DB()), client, inventory.NewLedger(), ownerID)
	require.NoError(t, err)
	return svc, client, ownerID
}

func TestCreateProduct_VariantLess(t *testing.T) {
	svc, _, ownerID := newTestService(t)

	dto, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:       "walnut desk organizer",
		Category:   "home",
		PriceCents: 3400,
		Stock:      12,
		Tags:       []string{"desk", "wood"},
	})
	require.NoError(t, err)
	assert.Equal(t, ownerID, dto.OwnerID)
	assert.Equal(t, 3400, dto.PriceCents)
	assert.Equal(t, 12, dto.Stock)
	assert.False(t, dto.IsApproved)
	assert.Empty(t, dto.Variants)
}

func TestCreateProduct_DerivesAggregatesFromVariants(t *testing.T) {
	svc, _, _ := newTestService(t)

	dto, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:     "canvas tote",
		Category: "bags",
		Variants: []VariantInput{
			{SKU: "TOTE-S", PriceCents: 1900, Stock: 5, Attributes: types.AttributeSet{"size": "s"}},
			{SKU: "TOTE-L", PriceCents: 2400, Stock: 3, Attributes: types.AttributeSet{"size": "l"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 8, dto.Stock, "stock is the sum of variant stock")
	assert.Equal(t, 1900, dto.PriceCents, "price is the minimum variant price")
	require.Len(t, dto.Variants, 2)
	defaults := map[string]bool{}
	for _, v := range dto.Variants {
		defaults[v.SKU] = v.IsDefault
	}
	assert.True(t, defaults["TOTE-S"], "first listed variant defaults when none is flagged")
	assert.False(t, defaults["TOTE-L"])
}

func TestCreateProduct_RejectsDuplicateVariantAttributes(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:     "canvas tote",
		Category: "bags",
		Variants: []VariantInput{
			{SKU: "TOTE-1", PriceCents: 1900, Stock: 5, Attributes: types.AttributeSet{"size": "s"}},
			{SKU: "TOTE-2", PriceCents: 2400, Stock: 3, Attributes: types.AttributeSet{"size": "s"}},
		},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestCreateProduct_RejectsMultipleDefaults(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:     "canvas tote",
		Category: "bags",
		Variants: []VariantInput{
			{SKU: "TOTE-S", PriceCents: 1900, Stock: 5, Attributes: types.AttributeSet{"size": "s"}, IsDefault: true},
			{SKU: "TOTE-L", PriceCents: 2400, Stock: 3, Attributes: types.AttributeSet{"size": "l"}, IsDefault: true},
		},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateProduct_RejectsPriceEditOnVariantProduct(t *testing.T) {
	svc, _, _ := newTestService(t)

	dto, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:     "canvas tote",
		Category: "bags",
		Variants: []VariantInput{
			{SKU: "TOTE-S", PriceCents: 1900, Stock: 5, Attributes: types.AttributeSet{"size": "s"}},
		},
	})
	require.NoError(t, err)

	price := 999
	_, err = svc.UpdateProduct(context.Background(), dto.ID, UpdateProductInput{PriceCents: &price})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateProduct_PartialFields(t *testing.T) {
	svc, _, _ := newTestService(t)

	dto, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:       "walnut desk organizer",
		Category:   "home",
		PriceCents: 3400,
		Stock:      12,
	})
	require.NoError(t, err)

	name := "oak desk organizer"
	price := 3600
	updated, err := svc.UpdateProduct(context.Background(), dto.ID, UpdateProductInput{
		Name:       &name,
		PriceCents: &price,
	})
	require.NoError(t, err)
	assert.Equal(t, "oak desk organizer", updated.Name)
	assert.Equal(t, 3600, updated.PriceCents)
	assert.Equal(t, "home", updated.Category, "untouched fields survive")
}

func TestAddVariant_RecomputesAggregatesAndDefault(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	dto, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:     "canvas tote",
		Category: "bags",
		Variants: []VariantInput{
			{SKU: "TOTE-S", PriceCents: 1900, Stock: 5, Attributes: types.AttributeSet{"size": "s"}},
		},
	})
	require.NoError(t, err)

	updated, err := svc.AddVariant(ctx, dto.ID, VariantInput{
		SKU: "TOTE-L", PriceCents: 1500, Stock: 2,
		Attributes: types.AttributeSet{"size": "l"},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Stock)
	assert.Equal(t, 1500, updated.PriceCents)
	require.Len(t, updated.Variants, 2)
}

func TestAddVariant_RejectsDuplicateAttributes(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	dto, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:     "canvas tote",
		Category: "bags",
		Variants: []VariantInput{
			{SKU: "TOTE-S", PriceCents: 1900, Stock: 5, Attributes: types.AttributeSet{"size": "s"}},
		},
	})
	require.NoError(t, err)

	_, err = svc.AddVariant(ctx, dto.ID, VariantInput{
		SKU: "TOTE-S2", PriceCents: 2100, Stock: 4,
		Attributes: types.AttributeSet{"size": "s"},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "same attribute set must conflict, not 503")

	refreshed, err := svc.GetProduct(ctx, dto.ID)
	require.NoError(t, err)
	assert.Len(t, refreshed.Variants, 1, "rejected variant leaves nothing behind")
}

func TestRemoveVariant_PromotesNewDefault(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	dto, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:     "canvas tote",
		Category: "bags",
		Variants: []VariantInput{
			{SKU: "TOTE-S", PriceCents: 1900, Stock: 5, Attributes: types.AttributeSet{"size": "s"}, IsDefault: true},
			{SKU: "TOTE-L", PriceCents: 2400, Stock: 3, Attributes: types.AttributeSet{"size": "l"}},
		},
	})
	require.NoError(t, err)

	var defaultID uuid.UUID
	for _, v := range dto.Variants {
		if v.IsDefault {
			defaultID = v.ID
		}
	}
	require.NotEqual(t, uuid.Nil, defaultID)

	updated, err := svc.RemoveVariant(ctx, dto.ID, defaultID)
	require.NoError(t, err)
	require.Len(t, updated.Variants, 1)
	assert.True(t, updated.Variants[0].IsDefault)
	assert.Equal(t, 3, updated.Stock)
	assert.Equal(t, 2400, updated.PriceCents)
}

func TestSetApproval(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	dto, err := svc.CreateProduct(ctx, CreateProductInput{
		Name: "walnut desk organizer", Category: "home", PriceCents: 3400, Stock: 1,
	})
	require.NoError(t, err)
	assert.False(t, dto.IsApproved)

	approved, err := svc.SetApproval(ctx, dto.ID, true)
	require.NoError(t, err)
	assert.True(t, approved.IsApproved)
}

func TestAdjustStock_VariantLessProduct(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	dto, err := svc.CreateProduct(ctx, CreateProductInput{
		Name: "walnut desk organizer", Category: "home", PriceCents: 3400, Stock: 4,
	})
	require.NoError(t, err)

	updated, err := svc.AdjustStock(ctx, dto.ID, nil, 6)
	require.NoError(t, err)
	assert.Equal(t, 10, updated.Stock)

	_, err = svc.AdjustStock(ctx, dto.ID, nil, -20)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestAdjustStock_VariantProductRequiresVariantID(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	dto, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:     "canvas tote",
		Category: "bags",
		Variants: []VariantInput{
			{SKU: "TOTE-S", PriceCents: 1900, Stock: 5, Attributes: types.AttributeSet{"size": "s"}},
		},
	})
	require.NoError(t, err)

	_, err = svc.AdjustStock(ctx, dto.ID, nil, 2)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	variantID := dto.Variants[0].ID
	updated, err := svc.AdjustStock(ctx, dto.ID, &variantID, 2)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Stock, "aggregate follows the variant")
}

func TestDeleteProduct_SoftDeletesAndHidesFromReads(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	dto, err := svc.CreateProduct(ctx, CreateProductInput{
		Name: "walnut desk organizer", Category: "home", PriceCents: 3400, Stock: 1,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, dto.ID))

	_, err = svc.GetProduct(ctx, dto.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListProducts_FiltersAndPaginates(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		dto, err := svc.CreateProduct(ctx, CreateProductInput{
			Name:       fmt.Sprintf("lamp %d", i),
			Category:   "home",
			PriceCents: 1000 + i,
			Stock:      1,
		})
		require.NoError(t, err)
		if i < 2 {
			_, err = svc.SetApproval(ctx, dto.ID, true)
			require.NoError(t, err)
		}
	}
	_, err := svc.CreateProduct(ctx, CreateProductInput{
		Name: "canvas tote", Category: "bags", PriceCents: 1900, Stock: 1,
	})
	require.NoError(t, err)

	page, err := svc.ListProducts(ctx, ListProductsInput{
		Category:     "home",
		ApprovedOnly: true,
		Pagination:   pagination.Params{Limit: 1},
	})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	require.NotEmpty(t, page.NextCursor)

	page2, err := svc.ListProducts(ctx, ListProductsInput{
		Category:     "home",
		ApprovedOnly: true,
		Pagination:   pagination.Params{Limit: 10, Cursor: page.NextCursor},
	})
	require.NoError(t, err)
	require.Len(t, page2.Products, 1)
	assert.NotEqual(t, page.Products[0].ID, page2.Products[0].ID)
	assert.Empty(t, page2.NextCursor)
}

func TestListProducts_Search(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateProductInput{
		Name: "Walnut Desk Organizer", Category: "home", PriceCents: 3400, Stock: 1,
	})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, CreateProductInput{
		Name: "canvas tote", Category: "bags", PriceCents: 1900, Stock: 1,
	})
	require.NoError(t, err)

	page, err := svc.ListProducts(ctx, ListProductsInput{
		Search:     "walnut",
		Pagination: pagination.Params{Limit: 10},
	})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Walnut Desk Organizer", page.Products[0].Name)
}
