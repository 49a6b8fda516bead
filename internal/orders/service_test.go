package orders

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
	"github.com/evanrosales/shopsphere-backend/pkg/enums"
	pkgerrors "github.com/evanrosales/shopsphere-backend/pkg/errors"
	"github.com/evanrosales/shopsphere-backend/pkg/outbox"
)

func newTestClient(t *testing.T) *db.Client {
	t.Helper()
	cfg := config.DBConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:orders_%s?mode=memory&cache=shared", uuid.NewString()),
	}
	client, err := db.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.NoError(t, client.DB().AutoMigrate(
		&models.Product{}, &models.ProductVariant{},
		&models.Order{}, &models.OrderLineItem{}, &models.OrderStatusEvent{},
		&models.OutboxEvent{},
	))
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func newTestService(t *testing.T) (Service, *db.Client) {
	t.Helper()
	client := newTestClient(t)
	events := outbox.NewService(outbox.NewRepository(client.DB()), nil)
	svc, err := NewService(NewRepository(client.DB()), client, inventory.NewLedger(), events, nil)
	require.NoError(t, err)
	return svc, client
}

func seedOrder(t *testing.T, client *db.Client, status enums.OrderStatus, payment enums.PaymentStatus) (*models.Order, *models.Product) {
	t.Helper()
	product := &models.Product{
		OwnerID:    uuid.New(),
		Name:       "mechanical keyboard",
		Category:   "electronics",
		PriceCents: 12900,
		Stock:      7,
		Sold:       3,
		IsApproved: true,
	}
	require.NoError(t, client.DB().Create(product).Error)

	order := &models.Order{
		UserID:        uuid.New(),
		Status:        status,
		PaymentMethod: enums.PaymentMethodCard,
		PaymentStatus: payment,
		SubtotalCents: 38700,
		ShippingCents: 500,
		TotalCents:    39200,
		Items: []models.OrderLineItem{
			{
				ProductID:      product.ID,
				Name:           product.Name,
				Quantity:       3,
				UnitPriceCents: 12900,
				TotalCents:     38700,
			},
		},
		StatusHistory: []models.OrderStatusEvent{
			{Status: enums.OrderStatusPending, ActorID: uuid.New()},
		},
	}
	require.NoError(t, client.DB().Create(order).Error)
	return order, product
}

func TestCanTransition_Table(t *testing.T) {
	cases := []struct {
		from, to enums.OrderStatus
		want     bool
	}{
		{enums.OrderStatusPending, enums.OrderStatusPreparing, true},
		{enums.OrderStatusPending, enums.OrderStatusCancelled, true},
		{enums.OrderStatusPending, enums.OrderStatusShipped, false},
		{enums.OrderStatusPending, enums.OrderStatusFailed, false},
		{enums.OrderStatusPreparing, enums.OrderStatusShipped, true},
		{enums.OrderStatusPreparing, enums.OrderStatusCancelled, true},
		{enums.OrderStatusPreparing, enums.OrderStatusFailed, true},
		{enums.OrderStatusPreparing, enums.OrderStatusDelivered, false},
		{enums.OrderStatusShipped, enums.OrderStatusDelivered, true},
		{enums.OrderStatusShipped, enums.OrderStatusFailed, true},
		{enums.OrderStatusShipped, enums.OrderStatusCancelled, false},
		{enums.OrderStatusDelivered, enums.OrderStatusFailed, false},
		{enums.OrderStatusFailed, enums.OrderStatusPending, false},
		{enums.OrderStatusCancelled, enums.OrderStatusPreparing, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTransition_AppendsHistory(t *testing.T) {
	svc, client := newTestService(t)
	order, _ := seedOrder(t, client, enums.OrderStatusPending, enums.PaymentStatusUnpaid)
	actor := uuid.New()

	dto, err := svc.Transition(context.Background(), order.ID, enums.OrderStatusPreparing, actor, nil)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPreparing, dto.Status)
	require.Len(t, dto.StatusHistory, 2)
	assert.Equal(t, enums.OrderStatusPreparing, dto.StatusHistory[1].Status)
	assert.Equal(t, actor, dto.StatusHistory[1].ActorID)
}

func TestTransition_InvalidMutatesNothing(t *testing.T) {
	svc, client := newTestService(t)
	order, _ := seedOrder(t, client, enums.OrderStatusPending, enums.PaymentStatusUnpaid)

	_, err := svc.Transition(context.Background(), order.ID, enums.OrderStatusShipped, uuid.New(), nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	dto, err := svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, dto.Status)
	assert.Len(t, dto.StatusHistory, 1, "no history row for the rejected transition")
}

func TestTransition_SelfIsNoop(t *testing.T) {
	svc, client := newTestService(t)
	order, _ := seedOrder(t, client, enums.OrderStatusPending, enums.PaymentStatusUnpaid)

	dto, err := svc.Transition(context.Background(), order.ID, enums.OrderStatusPending, uuid.New(), nil)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, dto.Status)
	assert.Len(t, dto.StatusHistory, 1)
}

func TestTransition_FailedRequiresNote(t *testing.T) {
	svc, client := newTestService(t)
	order, _ := seedOrder(t, client, enums.OrderStatusPreparing, enums.PaymentStatusUnpaid)

	_, err := svc.Transition(context.Background(), order.ID, enums.OrderStatusFailed, uuid.New(), nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	empty := ""
	_, err = svc.Transition(context.Background(), order.ID, enums.OrderStatusFailed, uuid.New(), &empty)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	reason := "carrier lost the parcel"
	dto, err := svc.Transition(context.Background(), order.ID, enums.OrderStatusFailed, uuid.New(), &reason)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusFailed, dto.Status)
	require.NotNil(t, dto.StatusHistory[len(dto.StatusHistory)-1].Note)
	assert.Equal(t, reason, *dto.StatusHistory[len(dto.StatusHistory)-1].Note)
}

func TestTransition_CancelReleasesStockAndRefunds(t *testing.T) {
	svc, client := newTestService(t)
	order, product := seedOrder(t, client, enums.OrderStatusPending, enums.PaymentStatusPaid)

	dto, err := svc.Transition(context.Background(), order.ID, enums.OrderStatusCancelled, uuid.New(), nil)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, dto.Status)
	assert.Equal(t, enums.PaymentStatusRefunded, dto.PaymentStatus)

	var got models.Product
	require.NoError(t, client.DB().First(&got, "id = ?", product.ID).Error)
	assert.Equal(t, 10, got.Stock, "reserved units restored")
	assert.Equal(t, 0, got.Sold, "sold counter reversed")
}

func TestTransition_CancelUnpaidDoesNotRefund(t *testing.T) {
	svc, client := newTestService(t)
	order, _ := seedOrder(t, client, enums.OrderStatusPending, enums.PaymentStatusUnpaid)

	dto, err := svc.Transition(context.Background(), order.ID, enums.OrderStatusCancelled, uuid.New(), nil)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusUnpaid, dto.PaymentStatus)
}

func TestTransition_TerminalStatesRejectFurtherMoves(t *testing.T) {
	svc, client := newTestService(t)
	order, product := seedOrder(t, client, enums.OrderStatusPending, enums.PaymentStatusUnpaid)
	ctx := context.Background()

	_, err := svc.Transition(ctx, order.ID, enums.OrderStatusCancelled, uuid.New(), nil)
	require.NoError(t, err)

	_, err = svc.Transition(ctx, order.ID, enums.OrderStatusPreparing, uuid.New(), nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	// Repeating the cancel is a self-transition no-op, so stock is not
	// released a second time.
	_, err = svc.Transition(ctx, order.ID, enums.OrderStatusCancelled, uuid.New(), nil)
	require.NoError(t, err)

	var got models.Product
	require.NoError(t, client.DB().First(&got, "id = ?", product.ID).Error)
	assert.Equal(t, 10, got.Stock)
}

func TestTransition_FullLifecycleToDelivered(t *testing.T) {
	svc, client := newTestService(t)
	order, product := seedOrder(t, client, enums.OrderStatusPending, enums.PaymentStatusPaid)
	ctx := context.Background()
	actor := uuid.New()

	for _, target := range []enums.OrderStatus{
		enums.OrderStatusPreparing,
		enums.OrderStatusShipped,
		enums.OrderStatusDelivered,
	} {
		_, err := svc.Transition(ctx, order.ID, target, actor, nil)
		require.NoError(t, err, "to %s", target)
	}

	dto, err := svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, dto.Status)
	assert.Equal(t, enums.PaymentStatusPaid, dto.PaymentStatus, "delivery never refunds")
	assert.Len(t, dto.StatusHistory, 4)

	var got models.Product
	require.NoError(t, client.DB().First(&got, "id = ?", product.ID).Error)
	assert.Equal(t, 7, got.Stock, "successful delivery keeps stock reserved")
}

func TestTransition_EmitsOutboxEvent(t *testing.T) {
	svc, client := newTestService(t)
	order, _ := seedOrder(t, client, enums.OrderStatusPending, enums.PaymentStatusUnpaid)

	_, err := svc.Transition(context.Background(), order.ID, enums.OrderStatusPreparing, uuid.New(), nil)
	require.NoError(t, err)

	var events []models.OutboxEvent
	require.NoError(t, client.DB().Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderStatusChanged, events[0].EventType)
	assert.Equal(t, order.ID, events[0].AggregateID)
}

func TestMarkPaid(t *testing.T) {
	svc, client := newTestService(t)
	order, _ := seedOrder(t, client, enums.OrderStatusPending, enums.PaymentStatusUnpaid)
	ctx := context.Background()

	dto, err := svc.MarkPaid(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, dto.PaymentStatus)

	// Idempotent.
	dto, err = svc.MarkPaid(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, dto.PaymentStatus)
}

func TestMarkPaid_RefundedOrderRejects(t *testing.T) {
	svc, client := newTestService(t)
	order, _ := seedOrder(t, client, enums.OrderStatusPending, enums.PaymentStatusPaid)
	ctx := context.Background()

	_, err := svc.Transition(ctx, order.ID, enums.OrderStatusCancelled, uuid.New(), nil)
	require.NoError(t, err)

	_, err = svc.MarkPaid(ctx, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestMarkPaid_CancelledOrderRejectsLateCapture(t *testing.T) {
	svc, client := newTestService(t)
	order, _ := seedOrder(t, client, enums.OrderStatusPending, enums.PaymentStatusUnpaid)
	ctx := context.Background()

	_, err := svc.Transition(ctx, order.ID, enums.OrderStatusCancelled, uuid.New(), nil)
	require.NoError(t, err)

	// The cancel already released stock, so a late provider callback must
	// not flip the order to paid.
	_, err = svc.MarkPaid(ctx, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	dto, err := svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusUnpaid, dto.PaymentStatus)
}

func TestGetForUser_HidesForeignOrders(t *testing.T) {
	svc, client := newTestService(t)
	order, _ := seedOrder(t, client, enums.OrderStatusPending, enums.PaymentStatusUnpaid)
	ctx := context.Background()

	dto, err := svc.GetForUser(ctx, order.UserID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, dto.ID)

	_, err = svc.GetForUser(ctx, uuid.New(), order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
