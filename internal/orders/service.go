package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/evanrosales/shopsphere-backend/internal/inventory"
	"github.com/evanrosales/shopsphere-backend/pkg/db"
	"github.com/evanrosales/shopsphere-backend/pkg/db/models"
	"github.com/evanrosales/shopsphere-backend/pkg/enums"
	pkgerrors "github.com/evanrosales/shopsphere-backend/pkg/errors"
	"github.com/evanrosales/shopsphere-backend/pkg/metrics"
	"github.com/evanrosales/shopsphere-backend/pkg/outbox"
	"github.com/evanrosales/shopsphere-backend/pkg/pagination"
)

// Service drives the order lifecycle after checkout. Orders only change
// through Transition and MarkPaid; everything else is read-only.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*OrderDTO, error)
	GetForUser(ctx context.Context, userID, id uuid.UUID) (*OrderDTO, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderListResult, error)
	Transition(ctx context.Context, id uuid.UUID, target enums.OrderStatus, actorID uuid.UUID, note *string) (*OrderDTO, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (*OrderDTO, error)
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	ledger   inventory.Ledger
	events   *outbox.Service
	metrics  *metrics.OrderMetrics
}

// NewService constructs an order service instance. The outbox service and
// metrics may be nil in tools that neither publish nor serve /metrics.
func NewService(repo *Repository, dbClient *db.Client, ledger inventory.Ledger, events *outbox.Service, m *metrics.OrderMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{
		repo:     repo,
		dbClient: dbClient,
		ledger:   ledger,
		events:   events,
		metrics:  m,
	}, nil
}

// Get loads one order with items and history.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
	}
	return NewOrderDTO(order), nil
}

// GetForUser loads one order and enforces ownership. A foreign order reads
// as not found rather than forbidden, so order ids are not probeable.
func (s *service) GetForUser(ctx context.Context, userID, id uuid.UUID) (*OrderDTO, error) {
	dto, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if dto.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return dto, nil
}

// ListForUser returns one cursor page of the user's orders.
func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderListResult, error) {
	rows, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "list orders")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	result := &OrderListResult{Orders: make([]OrderDTO, 0, len(rows))}
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	for i := range rows {
		result.Orders = append(result.Orders, *NewOrderDTO(&rows[i]))
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

// Transition moves the order to the target status. Status update, history
// append, stock compensation and refund flip all commit in one transaction;
// an invalid transition mutates nothing.
func (s *service) Transition(ctx context.Context, id uuid.UUID, target enums.OrderStatus, actorID uuid.UUID, note *string) (*OrderDTO, error) {
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", target))
	}
	if target == enums.OrderStatusFailed && (note == nil || *note == "") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a failure note is required")
	}

	var from enums.OrderStatus
	noop := false

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		order, err := txRepo.FindByID(ctx, id)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
		}
		from = order.Status

		if order.Status == target {
			noop = true
			return nil
		}
		if !CanTransition(order.Status, target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot transition order from %s to %s", order.Status, target))
		}

		if err := txRepo.UpdateStatus(ctx, id, target); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update order status")
		}
		event := &models.OrderStatusEvent{
			OrderID: id,
			Status:  target,
			ActorID: actorID,
			Note:    note,
		}
		if err := txRepo.AppendStatusEvent(ctx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: append status event")
		}

		if compensates(target) {
			if err := s.compensate(ctx, tx, txRepo, order); err != nil {
				return err
			}
		}

		if s.events != nil {
			err := s.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderStatusChanged,
				AggregateType: enums.AggregateOrder,
				AggregateID:   id,
				Actor:         &outbox.ActorRef{UserID: actorID},
				Data: map[string]any{
					"from": from,
					"to":   target,
					"note": note,
				},
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit status event")
			}
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition order")
	}

	if !noop {
		s.metrics.IncTransition(from.String(), target.String())
	}
	return s.Get(ctx, id)
}

// MarkPaid flips the local payment status from unpaid to paid, normally
// driven by a payment provider callback. Marking an already paid order is a
// no-op; a refunded order cannot be re-paid, and a cancelled or failed order
// rejects late captures because its stock was already released.
func (s *service) MarkPaid(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		order, err := txRepo.FindByID(ctx, id)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
		}
		switch order.PaymentStatus {
		case enums.PaymentStatusPaid:
			return nil
		case enums.PaymentStatusRefunded:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order was already refunded")
		}
		if compensates(order.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot capture payment on a %s order", order.Status))
		}

		if err := txRepo.UpdatePaymentStatus(ctx, id, enums.PaymentStatusPaid); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update payment status")
		}
		if s.events != nil {
			err := s.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderPaid,
				AggregateType: enums.AggregateOrder,
				AggregateID:   id,
				Data:          map[string]any{"total_cents": order.TotalCents},
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit paid event")
			}
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
	}

	return s.Get(ctx, id)
}

// compensate restores stock for every line and refunds a captured payment,
// inside the caller's transaction.
func (s *service) compensate(ctx context.Context, tx *gorm.DB, txRepo *Repository, order *models.Order) error {
	for _, item := range order.Items {
		unit := inventory.Unit{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Label:     item.Name,
		}
		if err := s.ledger.Release(ctx, tx, unit, item.Quantity); err != nil {
			// A unit hard-removed from the catalog has no stock row left to
			// restore; the order record itself is the audit trail.
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				continue
			}
			return err
		}
	}

	if order.PaymentStatus == enums.PaymentStatusPaid {
		if err := txRepo.UpdatePaymentStatus(ctx, order.ID, enums.PaymentStatusRefunded); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: refund payment status")
		}
		if s.events != nil {
			err := s.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderRefunded,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Data:          map[string]any{"total_cents": order.TotalCents},
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit refund event")
			}
		}
	}
	return nil
}
