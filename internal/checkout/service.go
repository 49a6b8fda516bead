package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/evanrosales/shopsphere-backend/internal/inventory"
	"github.com/evanrosales/shopsphere-backend/internal/orders"
	"github.com/evanrosales/shopsphere-backend/pkg/config"
	"github.com/evanrosales/shopsphere-backend/pkg/db"
	"github.com/evanrosales/shopsphere-backend/pkg/db/models"
	"github.com/evanrosales/shopsphere-backend/pkg/enums"
	pkgerrors "github.com/evanrosales/shopsphere-backend/pkg/errors"
	"github.com/evanrosales/shopsphere-backend/pkg/logger"
	"github.com/evanrosales/shopsphere-backend/pkg/metrics"
	"github.com/evanrosales/shopsphere-backend/pkg/outbox"
	"github.com/evanrosales/shopsphere-backend/pkg/types"
)

// Service is the all-or-nothing coordinator between the snapshot builder,
// the inventory ledger and order creation.
type Service interface {
	CheckoutCart(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*orders.OrderDTO, error)
	BuyNow(ctx context.Context, userID uuid.UUID, line LineRequest, input CheckoutInput) (*orders.OrderDTO, error)
}

// CheckoutInput carries shipping, contact and payment choices for one
// checkout attempt.
type CheckoutInput struct {
	PaymentMethod   enums.PaymentMethod
	ShippingAddress types.Address
	ContactPhone    string
	CouponCode      *string
}

type cartSource interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.CartRecord, error)
	DeleteAllItems(ctx context.Context, cartID uuid.UUID) error
}

type productReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type service struct {
	carts     cartSource
	products  productReader
	orderRepo *orders.Repository
	dbClient  *db.Client
	ledger    inventory.Ledger
	events    *outbox.Service
	metrics   *metrics.CheckoutMetrics
	logg      *logger.Logger
	cfg       config.CheckoutConfig
}

// NewService constructs the checkout coordinator.
func NewService(
	carts cartSource,
	products productReader,
	orderRepo *orders.Repository,
	dbClient *db.Client,
	ledger inventory.Ledger,
	events *outbox.Service,
	m *metrics.CheckoutMetrics,
	logg *logger.Logger,
	cfg config.CheckoutConfig,
) (Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart source required")
	}
	if products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{
		carts:     carts,
		products:  products,
		orderRepo: orderRepo,
		dbClient:  dbClient,
		ledger:    ledger,
		events:    events,
		metrics:   m,
		logg:      logg,
		cfg:       cfg,
	}, nil
}

// CheckoutCart converts the user's whole cart into an order. Reservation of
// every line and order creation commit atomically; the cart is emptied only
// after a successful commit, as a best-effort follow-up.
func (s *service) CheckoutCart(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*orders.OrderDTO, error) {
	cart, err := s.carts.FindByUserID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
	}
	if len(cart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	requests := make([]LineRequest, 0, len(cart.Items))
	for _, item := range cart.Items {
		requests = append(requests, LineRequest{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}

	dto, err := s.execute(ctx, userID, requests, input)
	if err != nil {
		return nil, err
	}

	// Losing cart contents after a committed order is the safe failure
	// direction, so a clear failure is logged and swallowed.
	if err := s.carts.DeleteAllItems(ctx, cart.ID); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithOrderID(ctx, dto.ID.String()), "clearing cart after checkout", err)
	}
	return dto, nil
}

// BuyNow purchases a single unit directly, bypassing the cart.
func (s *service) BuyNow(ctx context.Context, userID uuid.UUID, line LineRequest, input CheckoutInput) (*orders.OrderDTO, error) {
	return s.execute(ctx, userID, []LineRequest{line}, input)
}

func (s *service) execute(ctx context.Context, userID uuid.UUID, requests []LineRequest, input CheckoutInput) (*orders.OrderDTO, error) {
	started := time.Now()

	method := input.PaymentMethod
	if method == "" {
		method = enums.PaymentMethodCOD
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment method %q", input.PaymentMethod))
	}

	products, err := s.loadProducts(ctx, requests)
	if err != nil {
		return nil, err
	}
	snapshot, err := BuildSnapshot(requests, products)
	if err != nil {
		return nil, err
	}

	discount, err := s.discountFor(input.CouponCode, snapshot.SubtotalCents)
	if err != nil {
		return nil, err
	}
	shipping := s.shippingFor(snapshot.SubtotalCents)
	total := snapshot.SubtotalCents + shipping - discount
	if total < 0 {
		total = 0
	}

	order := &models.Order{
		UserID:          userID,
		Status:          enums.OrderStatusPending,
		PaymentMethod:   method,
		PaymentStatus:   enums.PaymentStatusUnpaid,
		SubtotalCents:   snapshot.SubtotalCents,
		ShippingCents:   shipping,
		DiscountCents:   discount,
		TotalCents:      total,
		CouponCode:      input.CouponCode,
		ShippingAddress: input.ShippingAddress,
		ContactPhone:    input.ContactPhone,
		Items:           snapshot.Lines,
		StatusHistory: []models.OrderStatusEvent{
			{Status: enums.OrderStatusPending, ActorID: userID},
		},
	}

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		for i, unit := range snapshot.Units {
			if err := s.ledger.Reserve(ctx, tx, unit, snapshot.Lines[i].Quantity); err != nil {
				return err
			}
		}
		if _, err := s.orderRepo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert order")
		}
		if s.events != nil {
			err := s.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         &outbox.ActorRef{UserID: userID},
				Data: map[string]any{
					"total_cents": total,
					"line_count":  len(snapshot.Lines),
				},
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created")
			}
		}
		return nil
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			s.metrics.IncStockConflict()
			s.metrics.ObserveAttempt("insufficient_stock", time.Since(started))
			return nil, err
		}
		s.metrics.ObserveAttempt("error", time.Since(started))
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout transaction")
	}
	s.metrics.ObserveAttempt("success", time.Since(started))

	created, err := s.orderRepo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load created order")
	}
	return orders.NewOrderDTO(created), nil
}

func (s *service) loadProducts(ctx context.Context, requests []LineRequest) (map[uuid.UUID]*models.Product, error) {
	products := make(map[uuid.UUID]*models.Product, len(requests))
	for _, req := range requests {
		if _, ok := products[req.ProductID]; ok {
			continue
		}
		product, err := s.products.FindByID(ctx, req.ProductID)
		if err != nil {
			if db.IsNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", req.ProductID))
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
		}
		products[req.ProductID] = product
	}
	return products, nil
}

// discountFor resolves a coupon code to a cent discount on the subtotal.
// Percent math runs on decimals and truncates toward zero.
func (s *service) discountFor(code *string, subtotalCents int) (int, error) {
	if code == nil || *code == "" {
		return 0, nil
	}
	percent, ok := s.cfg.CouponPercents[*code]
	if !ok {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown coupon code %q", *code))
	}
	discount := decimal.NewFromInt(int64(subtotalCents)).
		Mul(decimal.NewFromInt(int64(percent))).
		Div(decimal.NewFromInt(100)).
		IntPart()
	return int(discount), nil
}

func (s *service) shippingFor(subtotalCents int) int {
	if s.cfg.FreeShippingMinCents > 0 && subtotalCents >= s.cfg.FreeShippingMinCents {
		return 0
	}
	return s.cfg.ShippingFlatCents
}
