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
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyOrder      = errors.New("order must contain at least one item")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrItemUnavailable = errors.New("menu item is not available")
	ErrGuestContact    = errors.New("guest orders require a name and phone number")
	ErrInvalidTip      = errors.New("tip amount must be a non-negative number")
	ErrOrdersPaused    = errors.New("the restaurant is not accepting orders right now")
	ErrOrderNotFound   = errors.New("order not found")
)

const maxOrderNumberRetries = 3

// TxBeginner is satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore is the data access needed to build an order.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetRestaurantSettings(ctx context.Context) (database.RestaurantSetting, error)
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	GetNextOrderNumber(ctx context.Context, prefix string) (int64, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
}

// NewOrderStore builds an OrderStore bound to the given transaction.
type NewOrderStore func(db database.DBTX) OrderStore

type OrderItemRequest struct {
	MenuItemID     uuid.UUID `json:"menu_item_id"`
	Quantity       int32     `json:"quantity"`
	Customizations string    `json:"customizations,omitempty"`
	Notes          string    `json:"notes,omitempty"`
}

type CreateOrderRequest struct {
	CustomerID    uuid.UUID          `json:"-"`
	CustomerName  string             `json:"customer_name,omitempty"`
	CustomerPhone string             `json:"customer_phone,omitempty"`
	CustomerEmail string             `json:"customer_email,omitempty"`
	Items         []OrderItemRequest `json:"items"`
	TipAmount     string             `json:"tip_amount,omitempty"`
	Notes         string             `json:"notes,omitempty"`
	PaymentMethod string             `json:"payment_method,omitempty"`
}

type CreateOrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

type OrderService struct {
	pool       TxBeginner
	newStore   NewOrderStore
	tax        TaxPolicy
	dispatcher Dispatcher
}

func NewOrderService(pool TxBeginner, newStore NewOrderStore, tax TaxPolicy, dispatcher Dispatcher) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, tax: tax, dispatcher: dispatcher}
}

// CreateOrder validates and persists a new order. Daily order numbers can
// collide under concurrent checkouts; the unique constraint catches that and
// the whole transaction is retried with a fresh number.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if err := validateCreateOrder(req); err != nil {
		return nil, err
	}

	tip := decimal.Zero
	if req.TipAmount != "" {
		var err error
		tip, err = decimal.NewFromString(req.TipAmount)
		if err != nil || tip.IsNegative() {
			return nil, ErrInvalidTip
		}
	}

	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.createOrderTx(ctx, req, tip)
		if err != nil {
			if isOrderNumberConflict(err) {
				continue
			}
			return nil, err
		}
		s.notifyPlaced(ctx, result.Order)
		return result, nil
	}
	return nil, fmt.Errorf("create order: retries exhausted for order number conflict")
}

func validateCreateOrder(req CreateOrderRequest) error {
	if len(req.Items) == 0 {
		return ErrEmptyOrder
	}
	for i, item := range req.Items {
		if item.MenuItemID == uuid.Nil {
			return fmt.Errorf("item[%d]: menu_item_id is required", i)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
	}
	if req.CustomerID == uuid.Nil && (req.CustomerName == "" || req.CustomerPhone == "") {
		return ErrGuestContact
	}
	if req.PaymentMethod != "" && req.PaymentMethod != enum.PaymentMethodGateway && req.PaymentMethod != enum.PaymentMethodBankTransfer {
		return fmt.Errorf("unknown payment method %q", req.PaymentMethod)
	}
	return nil
}

func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest, tip decimal.Decimal) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	settings, err := store.GetRestaurantSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	if !settings.IsAcceptingOrders {
		return nil, ErrOrdersPaused
	}
	taxRate, err := numericToDecimal(settings.TaxRate)
	if err != nil {
		return nil, fmt.Errorf("settings tax rate: %w", err)
	}

	// Re-validate every line against the live catalog; prices are
	// snapshotted here, not at browse time.
	subtotal := decimal.Zero
	lines := make([]database.CreateOrderItemParams, 0, len(req.Items))
	for i, reqItem := range req.Items {
		item, err := store.GetMenuItem(ctx, reqItem.MenuItemID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrItemNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, err)
		}
		if !itemOrderable(item) {
			return nil, fmt.Errorf("item[%d] %s: %w", i, item.Name, ErrItemUnavailable)
		}

		price, err := numericToDecimal(item.Price)
		if err != nil {
			return nil, fmt.Errorf("item[%d] price: %w", i, err)
		}
		lineTotal := price.Mul(decimal.NewFromInt32(reqItem.Quantity))
		subtotal = subtotal.Add(lineTotal)

		unitPrice, err := decimalToNumeric(price)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, err)
		}
		totalPrice, err := decimalToNumeric(lineTotal)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, err)
		}

		lines = append(lines, database.CreateOrderItemParams{
			MenuItemID:     item.ID,
			ItemName:       item.Name,
			Quantity:       reqItem.Quantity,
			UnitPrice:      unitPrice,
			TotalPrice:     totalPrice,
			Customizations: textOrNull(reqItem.Customizations),
			Notes:          textOrNull(reqItem.Notes),
		})
	}

	taxAmount := s.tax.TaxFor(subtotal, taxRate)
	total := subtotal.Add(taxAmount).Add(tip)

	prefix := fmt.Sprintf("VND-%s-", time.Now().Format("20060102"))
	next, err := store.GetNextOrderNumber(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("next order number: %w", err)
	}
	orderNumber := fmt.Sprintf("%s%04d", prefix, next)

	subtotalNum, err := decimalToNumeric(subtotal)
	if err != nil {
		return nil, err
	}
	taxNum, err := decimalToNumeric(taxAmount)
	if err != nil {
		return nil, err
	}
	tipNum, err := decimalToNumeric(tip)
	if err != nil {
		return nil, err
	}
	totalNum, err := decimalToNumeric(total)
	if err != nil {
		return nil, err
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderNumber:   orderNumber,
		CustomerID:    uuidOrNull(req.CustomerID),
		CustomerName:  textOrNull(req.CustomerName),
		CustomerPhone: textOrNull(req.CustomerPhone),
		CustomerEmail: textOrNull(req.CustomerEmail),
		Status:        database.OrderStatusPendingPayment,
		PaymentStatus: database.PaymentStatusPending,
		Subtotal:      subtotalNum,
		TaxAmount:     taxNum,
		TipAmount:     tipNum,
		TotalAmount:   totalNum,
		Notes:         textOrNull(req.Notes),
		PaymentMethod: textOrNull(req.PaymentMethod),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	items := make([]database.OrderItem, 0, len(lines))
	for i := range lines {
		lines[i].OrderID = order.ID
		item, err := store.CreateOrderItem(ctx, lines[i])
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{Order: order, Items: items}, nil
}

func (s *OrderService) notifyPlaced(ctx context.Context, order database.Order) {
	if s.dispatcher == nil {
		return
	}
	title := "Order placed"
	msg := fmt.Sprintf("Order %s has been placed and is awaiting payment.", order.OrderNumber)
	payload := map[string]string{
		"order_number": order.OrderNumber,
		"total_amount": numericString(order.TotalAmount),
	}

	// Staff always hear about new orders; registered customers get their
	// own copy.
	s.dispatcher.Notify(ctx, uuid.Nil, order.ID, enum.NotificationOrderPlaced, title, msg, payload)
	if order.CustomerID.Valid {
		s.dispatcher.Notify(ctx, uuid.UUID(order.CustomerID.Bytes), order.ID, enum.NotificationOrderPlaced, title, msg, payload)
	}
}

// isOrderNumberConflict reports whether err is the unique violation raised
// when two checkouts race for the same daily order number.
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_number_key"
	}
	return false
}
