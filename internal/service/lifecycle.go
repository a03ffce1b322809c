package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Uniqwrites1/vendorrPWA-backend/internal/database"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

var (
	ErrInvalidFulfillmentTransition = errors.New("invalid order status transition")
	ErrConcurrentModification       = errors.New("order changed concurrently, please retry")
	ErrPaymentRequired              = errors.New("order cannot be confirmed before payment")
)

const maxTransitionRetries = 3

// allowedTransitions lists the legal fulfillment moves. A ready order can no
// longer be cancelled: the food is already on the counter.
var allowedTransitions = map[database.OrderStatus][]database.OrderStatus{
	database.OrderStatusPendingPayment: {database.OrderStatusConfirmed, database.OrderStatusCancelled},
	database.OrderStatusConfirmed:      {database.OrderStatusPreparing, database.OrderStatusCancelled},
	database.OrderStatusPreparing:      {database.OrderStatusReady, database.OrderStatusCancelled},
	database.OrderStatusReady:          {database.OrderStatusCompleted},
}

func validateStatusTransition(from, to database.OrderStatus) error {
	for _, allowed := range allowedTransitions[from] {
		if to == allowed {
			return nil
		}
	}
	return fmt.Errorf("%s -> %s: %w", from, to, ErrInvalidFulfillmentTransition)
}

// LifecycleStore is the data access for fulfillment transitions.
// Satisfied by *database.Queries; narrow interface for testability.
type LifecycleStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	UpdateOrderPayment(ctx context.Context, arg database.UpdateOrderPaymentParams) (database.Order, error)
}

// NewLifecycleStore builds a LifecycleStore bound to the given transaction.
type NewLifecycleStore func(db database.DBTX) LifecycleStore

type LifecycleService struct {
	pool       TxBeginner
	store      LifecycleStore
	newStore   NewLifecycleStore
	dispatcher Dispatcher
}

func NewLifecycleService(pool TxBeginner, store LifecycleStore, newStore NewLifecycleStore, dispatcher Dispatcher) *LifecycleService {
	return &LifecycleService{pool: pool, store: store, newStore: newStore, dispatcher: dispatcher}
}

// Advance moves an order to the given fulfillment status. The update is a
// compare-and-swap against the status read here, so a concurrent transition
// forces a re-read; after maxTransitionRetries lost races the caller gets
// ErrConcurrentModification. Cancellations take the transactional path
// because they may couple a refund.
func (s *LifecycleService) Advance(ctx context.Context, orderID uuid.UUID, to database.OrderStatus, estimatedReady *time.Time) (database.Order, error) {
	if to == database.OrderStatusCancelled {
		return s.Cancel(ctx, orderID)
	}

	var est pgtype.Timestamptz
	if estimatedReady != nil {
		est = pgtype.Timestamptz{Time: *estimatedReady, Valid: true}
	}

	for attempt := 0; attempt < maxTransitionRetries; attempt++ {
		current, err := s.store.GetOrder(ctx, orderID)
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		if err != nil {
			return database.Order{}, fmt.Errorf("get order: %w", err)
		}

		if err := validateStatusTransition(current.Status, to); err != nil {
			return database.Order{}, err
		}
		if to == database.OrderStatusConfirmed && current.PaymentStatus != database.PaymentStatusPaid {
			return database.Order{}, ErrPaymentRequired
		}

		updated, err := s.store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
			ID:                 orderID,
			Status:             to,
			ExpectedStatus:     current.Status,
			EstimatedReadyTime: est,
		})
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost the race; re-read and re-validate.
			continue
		}
		if err != nil {
			return database.Order{}, fmt.Errorf("update order status: %w", err)
		}

		s.notifyStatus(ctx, updated)
		return updated, nil
	}
	return database.Order{}, ErrConcurrentModification
}

// Cancel moves an order to cancelled and, in the same transaction, flips a
// paid payment to refunded. An order is never left cancelled while holding
// the customer's money.
func (s *LifecycleService) Cancel(ctx context.Context, orderID uuid.UUID) (database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return database.Order{}, ErrOrderNotFound
	}
	if err != nil {
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}

	if err := validateStatusTransition(order.Status, database.OrderStatusCancelled); err != nil {
		return database.Order{}, err
	}

	refunded := false
	if order.PaymentStatus == database.PaymentStatusPaid {
		if _, err := store.UpdateOrderPayment(ctx, database.UpdateOrderPaymentParams{
			ID:                    orderID,
			PaymentStatus:         database.PaymentStatusRefunded,
			ExpectedPaymentStatus: database.PaymentStatusPaid,
		}); err != nil {
			return database.Order{}, fmt.Errorf("refund payment: %w", err)
		}
		refunded = true
	}

	cancelled, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:             orderID,
		Status:         database.OrderStatusCancelled,
		ExpectedStatus: order.Status,
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("cancel order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}

	s.notifyStatus(ctx, cancelled)
	if refunded {
		s.notifyRefunded(ctx, cancelled)
	}
	return cancelled, nil
}

var statusNotifications = map[database.OrderStatus]struct {
	kind, title, template string
}{
	database.OrderStatusConfirmed: {enum.NotificationOrderConfirmed, "Order confirmed", "Order %s is confirmed and queued for the kitchen."},
	database.OrderStatusPreparing: {enum.NotificationOrderPreparing, "Order in the kitchen", "Order %s is being prepared."},
	database.OrderStatusReady:     {enum.NotificationOrderReady, "Order ready", "Order %s is ready for pickup."},
	database.OrderStatusCompleted: {enum.NotificationOrderCompleted, "Order completed", "Order %s is complete. Thank you!"},
	database.OrderStatusCancelled: {enum.NotificationOrderCancelled, "Order cancelled", "Order %s has been cancelled."},
}

func (s *LifecycleService) notifyStatus(ctx context.Context, order database.Order) {
	n, ok := statusNotifications[order.Status]
	if !ok {
		return
	}
	notifyOrder(ctx, s.dispatcher, order, n.kind, n.title,
		fmt.Sprintf(n.template, order.OrderNumber),
		map[string]string{
			"order_number": order.OrderNumber,
			"status":       string(order.Status),
		})
}

func (s *LifecycleService) notifyRefunded(ctx context.Context, order database.Order) {
	notifyOrder(ctx, s.dispatcher, order, enum.NotificationPaymentRefunded,
		"Payment refunded",
		fmt.Sprintf("The payment for order %s will be refunded.", order.OrderNumber),
		map[string]string{
			"order_number": order.OrderNumber,
			"amount":       numericString(order.TotalAmount),
		})
}
