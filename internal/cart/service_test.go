package cart

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/evanrosales/shopsphere-backend/internal/catalog"
	"github.com/evanrosales/shopsphere-backend/pkg/db/models"
	pkgerrors "github.com/evanrosales/shopsphere-backend/pkg/errors"
	"github.com/evanrosales/shopsphere-backend/pkg/types"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:cart_%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&models.Product{}, &models.ProductVariant{},
		&models.CartRecord{}, &models.CartItem{},
	))
	return gdb
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	gdb := testDB(t)
	svc, err := NewService(NewRepository(gdb), catalog.NewRepository(gdb))
	require.NoError(t, err)
	return svc, gdb
}

func seedProduct(t *testing.T, gdb *gorm.DB, name string, priceCents, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		OwnerID:    uuid.New(),
		Name:       name,
		Category:   "home",
		PriceCents: priceCents,
		Stock:      stock,
		IsApproved: true,
	}
	require.NoError(t, gdb.Create(p).Error)
	return p
}

func seedVariantProduct(t *testing.T, gdb *gorm.DB, name string) *models.Product {
	t.Helper()
	p := &models.Product{
		OwnerID:    uuid.New(),
		Name:       name,
		Category:   "bags",
		PriceCents: 1900,
		Stock:      8,
		IsApproved: true,
		Variants: []models.ProductVariant{
			{SKU: "V-S", PriceCents: 1900, Stock: 5, Attributes: types.AttributeSet{"size": "s"}, IsDefault: true},
			{SKU: "V-L", PriceCents: 2400, Stock: 3, Attributes: types.AttributeSet{"size": "l"}},
		},
	}
	require.NoError(t, gdb.Create(p).Error)
	return p
}

func TestGetCart_CreatesLazily(t *testing.T) {
	svc, _ := newTestService(t)
	userID := uuid.New()

	dto, err := svc.GetCart(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, userID, dto.UserID)
	assert.Empty(t, dto.Items)
	assert.Zero(t, dto.SubtotalCents)

	again, err := svc.GetCart(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, dto.ID, again.ID, "same cart on every access")
}

func TestAddItem_SnapshotsPriceAndName(t *testing.T) {
	svc, gdb := newTestService(t)
	p := seedProduct(t, gdb, "walnut desk organizer", 3400, 10)
	userID := uuid.New()

	dto, err := svc.AddItem(context.Background(), userID, AddItemInput{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, dto.Items, 1)
	assert.Equal(t, 3400, dto.Items[0].UnitPriceCents)
	assert.Equal(t, "walnut desk organizer", dto.Items[0].Name)
	assert.Equal(t, 6800, dto.SubtotalCents)

	// Later catalog edits do not touch the snapshot.
	require.NoError(t, gdb.Model(&models.Product{}).Where("id = ?", p.ID).
		Updates(map[string]any{"price_cents": 9900, "name": "renamed"}).Error)

	dto, err = svc.GetCart(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 3400, dto.Items[0].UnitPriceCents)
	assert.Equal(t, "walnut desk organizer", dto.Items[0].Name)
}

func TestAddItem_MergesSameLine(t *testing.T) {
	svc, gdb := newTestService(t)
	p := seedProduct(t, gdb, "walnut desk organizer", 3400, 10)
	userID := uuid.New()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	dto, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)

	require.Len(t, dto.Items, 1, "same unit merges into one line")
	assert.Equal(t, 5, dto.Items[0].Quantity)
}

func TestAddItem_VariantLinesStaySeparate(t *testing.T) {
	svc, gdb := newTestService(t)
	p := seedVariantProduct(t, gdb, "canvas tote")
	userID := uuid.New()
	ctx := context.Background()

	var variants []models.ProductVariant
	require.NoError(t, gdb.Where("product_id = ?", p.ID).Order("sku ASC").Find(&variants).Error)
	require.Len(t, variants, 2)

	_, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: p.ID, VariantID: &variants[0].ID, Quantity: 1})
	require.NoError(t, err)
	dto, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: p.ID, VariantID: &variants[1].ID, Quantity: 1})
	require.NoError(t, err)

	assert.Len(t, dto.Items, 2, "different variants are different lines")
}

func TestAddItem_VariantRequiredForVariantProduct(t *testing.T) {
	svc, gdb := newTestService(t)
	p := seedVariantProduct(t, gdb, "canvas tote")

	_, err := svc.AddItem(context.Background(), uuid.New(), AddItemInput{ProductID: p.ID, Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestAddItem_UnknownProductAndVariant(t *testing.T) {
	svc, gdb := newTestService(t)
	p := seedVariantProduct(t, gdb, "canvas tote")
	ctx := context.Background()

	_, err := svc.AddItem(ctx, uuid.New(), AddItemInput{ProductID: uuid.New(), Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	ghost := uuid.New()
	_, err = svc.AddItem(ctx, uuid.New(), AddItemInput{ProductID: p.ID, VariantID: &ghost, Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestAddItem_RejectsUnapprovedProduct(t *testing.T) {
	svc, gdb := newTestService(t)
	p := seedProduct(t, gdb, "hidden widget", 500, 10)
	require.NoError(t, gdb.Model(&models.Product{}).Where("id = ?", p.ID).Update("is_approved", false).Error)

	_, err := svc.AddItem(context.Background(), uuid.New(), AddItemInput{ProductID: p.ID, Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSetQuantity_ZeroRemovesLine(t *testing.T) {
	svc, gdb := newTestService(t)
	p := seedProduct(t, gdb, "walnut desk organizer", 3400, 10)
	userID := uuid.New()
	ctx := context.Background()

	dto, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	itemID := dto.Items[0].ID

	dto, err = svc.SetQuantity(ctx, userID, itemID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, dto.Items[0].Quantity)

	dto, err = svc.SetQuantity(ctx, userID, itemID, 0)
	require.NoError(t, err)
	assert.Empty(t, dto.Items)
}

func TestRemoveItemAndClear(t *testing.T) {
	svc, gdb := newTestService(t)
	p1 := seedProduct(t, gdb, "lamp", 1000, 10)
	p2 := seedProduct(t, gdb, "chair", 2000, 10)
	userID := uuid.New()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: p1.ID, Quantity: 1})
	require.NoError(t, err)
	dto, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: p2.ID, Quantity: 1})
	require.NoError(t, err)
	require.Len(t, dto.Items, 2)

	dto, err = svc.RemoveItem(ctx, userID, dto.Items[0].ID)
	require.NoError(t, err)
	assert.Len(t, dto.Items, 1)

	require.NoError(t, svc.Clear(ctx, userID))
	dto, err = svc.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, dto.Items)
}

func TestAvailability_ResolvedAtReadTime(t *testing.T) {
	svc, gdb := newTestService(t)
	p := seedProduct(t, gdb, "walnut desk organizer", 3400, 5)
	userID := uuid.New()
	ctx := context.Background()

	dto, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)
	assert.True(t, dto.Items[0].Available)
	assert.Equal(t, 5, dto.Items[0].AvailableStock)

	// Stock drops below the requested quantity; the line flips unavailable
	// without being mutated.
	require.NoError(t, gdb.Model(&models.Product{}).Where("id = ?", p.ID).Update("stock", 2).Error)

	dto, err = svc.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.False(t, dto.Items[0].Available)
	assert.Equal(t, 2, dto.Items[0].AvailableStock)
	assert.Equal(t, 3, dto.Items[0].Quantity, "quantity untouched")
}

func TestAvailability_DeletedProduct(t *testing.T) {
	svc, gdb := newTestService(t)
	p := seedProduct(t, gdb, "lamp", 1000, 5)
	userID := uuid.New()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, gdb.Delete(&models.Product{}, "id = ?", p.ID).Error)

	dto, err := svc.GetCart(ctx, userID)
	require.NoError(t, err)
	require.Len(t, dto.Items, 1, "line survives the delete")
	assert.False(t, dto.Items[0].Available)
}
