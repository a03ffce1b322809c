package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Uniqwrites1/vendorrPWA-backend/internal/database"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPaymentTransition = errors.New("invalid payment status transition")
	ErrPaymentMismatch          = errors.New("gateway amount does not match order total")
	ErrReconciliationMismatch   = errors.New("transfer amount does not match order total")
	ErrInvalidSignature         = errors.New("invalid webhook signature")
	ErrBadCallback              = errors.New("malformed gateway callback")
	ErrTransferNotFound         = errors.New("transfer confirmation not found")
)

// GatewayVerifier authenticates a webhook body against its signature header.
type GatewayVerifier interface {
	Verify(body []byte, signature string) bool
}

// HMACVerifier checks an HMAC-SHA512 hex signature computed over the raw
// request body, the scheme used by card gateways like Paystack.
type HMACVerifier struct {
	Secret string
}

func (v HMACVerifier) Verify(body []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(v.Secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// GatewayCallback is the decoded body of a payment gateway webhook.
type GatewayCallback struct {
	Reference   string `json:"reference"`
	OrderNumber string `json:"order_number"`
	Amount      string `json:"amount"`
	Status      string `json:"status"`
}

// PaymentStore is the data access for payment reconciliation.
// Satisfied by *database.Queries; narrow interface for testability.
type PaymentStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOrderByNumberForUpdate(ctx context.Context, orderNumber string) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	UpdateOrderPayment(ctx context.Context, arg database.UpdateOrderPaymentParams) (database.Order, error)
	CreateBankTransfer(ctx context.Context, arg database.CreateBankTransferParams) (database.BankTransferConfirmation, error)
	GetBankTransferForUpdate(ctx context.Context, id uuid.UUID) (database.BankTransferConfirmation, error)
	ConfirmBankTransfer(ctx context.Context, arg database.ConfirmBankTransferParams) (database.BankTransferConfirmation, error)
	ListExpiredPendingPayments(ctx context.Context, cutoff time.Time) ([]database.Order, error)
}

// NewPaymentStore builds a PaymentStore bound to the given transaction.
type NewPaymentStore func(db database.DBTX) PaymentStore

type PaymentService struct {
	pool           TxBeginner
	store          PaymentStore
	newStore       NewPaymentStore
	verifier       GatewayVerifier
	dispatcher     Dispatcher
	pendingTimeout time.Duration
}

func NewPaymentService(pool TxBeginner, store PaymentStore, newStore NewPaymentStore, verifier GatewayVerifier, dispatcher Dispatcher, pendingTimeout time.Duration) *PaymentService {
	return &PaymentService{
		pool:           pool,
		store:          store,
		newStore:       newStore,
		verifier:       verifier,
		dispatcher:     dispatcher,
		pendingTimeout: pendingTimeout,
	}
}

// HandleGatewayCallback processes a payment gateway webhook. Deliveries are
// at-least-once: a repeated success callback for an already-paid order is a
// no-op and sends no second notification.
func (s *PaymentService) HandleGatewayCallback(ctx context.Context, body []byte, signature string) (database.Order, error) {
	if !s.verifier.Verify(body, signature) {
		return database.Order{}, ErrInvalidSignature
	}

	var cb GatewayCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		return database.Order{}, fmt.Errorf("decode callback: %w", ErrBadCallback)
	}
	if cb.OrderNumber == "" {
		return database.Order{}, fmt.Errorf("callback missing order_number: %w", ErrBadCallback)
	}

	switch cb.Status {
	case "success":
		return s.applyGatewaySuccess(ctx, cb)
	case "failed":
		return s.applyGatewayFailure(ctx, cb)
	default:
		return database.Order{}, fmt.Errorf("unknown callback status %q: %w", cb.Status, ErrBadCallback)
	}
}

func (s *PaymentService) applyGatewaySuccess(ctx context.Context, cb GatewayCallback) (database.Order, error) {
	amount, err := decimal.NewFromString(cb.Amount)
	if err != nil {
		return database.Order{}, fmt.Errorf("callback amount %q: %w", cb.Amount, ErrBadCallback)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// Lock the order before inspecting payment state so concurrent
	// callbacks serialize here.
	order, err := store.GetOrderByNumberForUpdate(ctx, cb.OrderNumber)
	if errors.Is(err, pgx.ErrNoRows) {
		return database.Order{}, ErrOrderNotFound
	}
	if err != nil {
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}

	// Retried delivery of a callback we already applied.
	if order.PaymentStatus == database.PaymentStatusPaid {
		return order, nil
	}
	if order.PaymentStatus != database.PaymentStatusPending {
		return database.Order{}, fmt.Errorf("payment is %s: %w", order.PaymentStatus, ErrInvalidPaymentTransition)
	}
	// A success callback can land after staff already cancelled the order.
	// Keep the payment pending for the expiry sweep rather than marking a
	// cancelled order paid.
	if order.Status == database.OrderStatusCancelled {
		return database.Order{}, fmt.Errorf("order is cancelled: %w", ErrInvalidPaymentTransition)
	}

	total, err := numericToDecimal(order.TotalAmount)
	if err != nil {
		return database.Order{}, fmt.Errorf("order total: %w", err)
	}
	if !amount.Equal(total) {
		return database.Order{}, fmt.Errorf("gateway paid %s, order total %s: %w",
			amount.StringFixed(2), total.StringFixed(2), ErrPaymentMismatch)
	}

	paid, err := store.UpdateOrderPayment(ctx, database.UpdateOrderPaymentParams{
		ID:                    order.ID,
		PaymentStatus:         database.PaymentStatusPaid,
		ExpectedPaymentStatus: database.PaymentStatusPending,
		PaymentMethod:         textOrNull(enum.PaymentMethodGateway),
		PaymentReference:      textOrNull(cb.Reference),
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("mark paid: %w", err)
	}

	// Payment settles the order: a paid pending_payment order confirms in
	// the same transaction.
	confirmed := paid
	if paid.Status == database.OrderStatusPendingPayment {
		confirmed, err = store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
			ID:             order.ID,
			Status:         database.OrderStatusConfirmed,
			ExpectedStatus: database.OrderStatusPendingPayment,
		})
		if err != nil {
			return database.Order{}, fmt.Errorf("confirm order: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}

	s.notifyPaid(ctx, confirmed)
	return confirmed, nil
}

func (s *PaymentService) applyGatewayFailure(ctx context.Context, cb GatewayCallback) (database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderByNumberForUpdate(ctx, cb.OrderNumber)
	if errors.Is(err, pgx.ErrNoRows) {
		return database.Order{}, ErrOrderNotFound
	}
	if err != nil {
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}

	if order.PaymentStatus == database.PaymentStatusFailed {
		return order, nil
	}
	if order.PaymentStatus != database.PaymentStatusPending {
		return database.Order{}, fmt.Errorf("payment is %s: %w", order.PaymentStatus, ErrInvalidPaymentTransition)
	}

	failed, err := store.UpdateOrderPayment(ctx, database.UpdateOrderPaymentParams{
		ID:                    order.ID,
		PaymentStatus:         database.PaymentStatusFailed,
		ExpectedPaymentStatus: database.PaymentStatusPending,
		PaymentReference:      textOrNull(cb.Reference),
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("mark failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}

	s.notifyFailed(ctx, failed)
	return failed, nil
}

type SubmitTransferParams struct {
	OrderID          uuid.UUID
	SenderName       string
	TransferAmount   decimal.Decimal
	TransferDate     time.Time
	ReferenceNumber  string
	ReceiptImagePath string
}

// SubmitBankTransfer records a customer's claim that they paid by bank
// transfer. The claim changes nothing on the order; staff reconcile it
// against the actual bank statement later.
func (s *PaymentService) SubmitBankTransfer(ctx context.Context, p SubmitTransferParams) (database.BankTransferConfirmation, error) {
	order, err := s.store.GetOrder(ctx, p.OrderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return database.BankTransferConfirmation{}, ErrOrderNotFound
	}
	if err != nil {
		return database.BankTransferConfirmation{}, fmt.Errorf("get order: %w", err)
	}
	if order.PaymentStatus != database.PaymentStatusPending {
		return database.BankTransferConfirmation{}, fmt.Errorf("payment is %s: %w", order.PaymentStatus, ErrInvalidPaymentTransition)
	}
	if order.Status == database.OrderStatusCancelled {
		return database.BankTransferConfirmation{}, fmt.Errorf("order is cancelled: %w", ErrInvalidPaymentTransition)
	}

	amount, err := decimalToNumeric(p.TransferAmount)
	if err != nil {
		return database.BankTransferConfirmation{}, err
	}

	transfer, err := s.store.CreateBankTransfer(ctx, database.CreateBankTransferParams{
		OrderID:          p.OrderID,
		SenderName:       p.SenderName,
		TransferAmount:   amount,
		TransferDate:     pgtype.Date{Time: p.TransferDate, Valid: true},
		ReferenceNumber:  textOrNull(p.ReferenceNumber),
		ReceiptImagePath: textOrNull(p.ReceiptImagePath),
	})
	if errors.Is(err, pgx.ErrNoRows) {
		// Upsert matched a confirmed claim; nothing left to report.
		return database.BankTransferConfirmation{}, fmt.Errorf("claim for order %s: %w", order.OrderNumber, ErrInvalidPaymentTransition)
	}
	if err != nil {
		return database.BankTransferConfirmation{}, fmt.Errorf("create transfer claim: %w", err)
	}

	if s.dispatcher != nil {
		s.dispatcher.Notify(ctx, uuid.Nil, order.ID, enum.NotificationTransferSubmitted,
			"Transfer claim submitted",
			fmt.Sprintf("A bank transfer of %s was reported for order %s.", p.TransferAmount.StringFixed(2), order.OrderNumber),
			map[string]string{
				"order_number": order.OrderNumber,
				"amount":       p.TransferAmount.StringFixed(2),
				"sender_name":  p.SenderName,
			})
	}

	return transfer, nil
}

// ConfirmBankTransfer applies a staff reconciliation of a transfer claim.
// The claimed amount must equal the order total exactly; any difference
// rolls back and leaves the claim unconfirmed for manual follow-up.
func (s *PaymentService) ConfirmBankTransfer(ctx context.Context, transferID, staffID uuid.UUID, notes string) (database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	transfer, err := store.GetBankTransferForUpdate(ctx, transferID)
	if errors.Is(err, pgx.ErrNoRows) {
		return database.Order{}, ErrTransferNotFound
	}
	if err != nil {
		return database.Order{}, fmt.Errorf("get transfer: %w", err)
	}

	order, err := store.GetOrderForUpdate(ctx, transfer.OrderID)
	if err != nil {
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}

	// A second confirmation of the same claim is a no-op.
	if transfer.IsConfirmed {
		return order, nil
	}

	if order.PaymentStatus != database.PaymentStatusPending {
		return database.Order{}, fmt.Errorf("payment is %s: %w", order.PaymentStatus, ErrInvalidPaymentTransition)
	}
	if order.Status == database.OrderStatusCancelled {
		return database.Order{}, fmt.Errorf("order is cancelled: %w", ErrInvalidPaymentTransition)
	}

	claimed, err := numericToDecimal(transfer.TransferAmount)
	if err != nil {
		return database.Order{}, fmt.Errorf("transfer amount: %w", err)
	}
	total, err := numericToDecimal(order.TotalAmount)
	if err != nil {
		return database.Order{}, fmt.Errorf("order total: %w", err)
	}
	if !claimed.Equal(total) {
		return database.Order{}, fmt.Errorf("transfer claims %s, order total %s: %w",
			claimed.StringFixed(2), total.StringFixed(2), ErrReconciliationMismatch)
	}

	if _, err := store.ConfirmBankTransfer(ctx, database.ConfirmBankTransferParams{
		ID:                transferID,
		ConfirmedBy:       uuidOrNull(staffID),
		ConfirmationNotes: textOrNull(notes),
	}); err != nil {
		return database.Order{}, fmt.Errorf("confirm transfer: %w", err)
	}

	reference := transfer.ReferenceNumber
	if !reference.Valid {
		reference = textOrNull("transfer:" + transfer.ID.String())
	}
	paid, err := store.UpdateOrderPayment(ctx, database.UpdateOrderPaymentParams{
		ID:                    order.ID,
		PaymentStatus:         database.PaymentStatusPaid,
		ExpectedPaymentStatus: database.PaymentStatusPending,
		PaymentMethod:         textOrNull(enum.PaymentMethodBankTransfer),
		PaymentReference:      reference,
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("mark paid: %w", err)
	}

	confirmed := paid
	if paid.Status == database.OrderStatusPendingPayment {
		confirmed, err = store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
			ID:             order.ID,
			Status:         database.OrderStatusConfirmed,
			ExpectedStatus: database.OrderStatusPendingPayment,
		})
		if err != nil {
			return database.Order{}, fmt.Errorf("confirm order: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}

	notifyOrder(ctx, s.dispatcher, confirmed, enum.NotificationTransferConfirmed,
		"Transfer verified",
		fmt.Sprintf("Your bank transfer for order %s has been verified.", confirmed.OrderNumber),
		map[string]string{"order_number": confirmed.OrderNumber})
	s.notifyPaid(ctx, confirmed)
	return confirmed, nil
}

// Refund flips a paid order to refunded. Fulfillment is untouched: staff can
// refund a completed order without reopening it.
func (s *PaymentService) Refund(ctx context.Context, orderID uuid.UUID) (database.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return database.Order{}, ErrOrderNotFound
	}
	if err != nil {
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	if order.PaymentStatus != database.PaymentStatusPaid {
		return database.Order{}, fmt.Errorf("payment is %s: %w", order.PaymentStatus, ErrInvalidPaymentTransition)
	}

	refunded, err := s.store.UpdateOrderPayment(ctx, database.UpdateOrderPaymentParams{
		ID:                    orderID,
		PaymentStatus:         database.PaymentStatusRefunded,
		ExpectedPaymentStatus: database.PaymentStatusPaid,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return database.Order{}, ErrConcurrentModification
	}
	if err != nil {
		return database.Order{}, fmt.Errorf("refund payment: %w", err)
	}

	notifyOrder(ctx, s.dispatcher, refunded, enum.NotificationPaymentRefunded,
		"Payment refunded",
		fmt.Sprintf("The payment for order %s will be refunded.", refunded.OrderNumber),
		map[string]string{
			"order_number": refunded.OrderNumber,
			"amount":       numericString(refunded.TotalAmount),
		})
	return refunded, nil
}

// RetryPayment reopens a failed payment so the customer can try again.
func (s *PaymentService) RetryPayment(ctx context.Context, orderID uuid.UUID) (database.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return database.Order{}, ErrOrderNotFound
	}
	if err != nil {
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	if order.PaymentStatus != database.PaymentStatusFailed {
		return database.Order{}, fmt.Errorf("payment is %s: %w", order.PaymentStatus, ErrInvalidPaymentTransition)
	}
	if order.Status == database.OrderStatusCancelled {
		return database.Order{}, fmt.Errorf("order is cancelled: %w", ErrInvalidPaymentTransition)
	}

	pending, err := s.store.UpdateOrderPayment(ctx, database.UpdateOrderPaymentParams{
		ID:                    orderID,
		PaymentStatus:         database.PaymentStatusPending,
		ExpectedPaymentStatus: database.PaymentStatusFailed,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return database.Order{}, ErrConcurrentModification
	}
	if err != nil {
		return database.Order{}, fmt.Errorf("reopen payment: %w", err)
	}
	return pending, nil
}

// SweepExpiredPending fails payments that sat pending longer than the
// configured timeout. Each order is swept in its own transaction so one
// failure does not hold up the rest.
func (s *PaymentService) SweepExpiredPending(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.pendingTimeout)
	expired, err := s.store.ListExpiredPendingPayments(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list expired pending payments: %w", err)
	}

	swept := 0
	for _, order := range expired {
		ok, err := s.sweepOrder(ctx, order.ID)
		if err != nil {
			log.Error().Err(err).Str("order_number", order.OrderNumber).Msg("sweep expired payment")
			continue
		}
		if ok {
			swept++
		}
	}
	return swept, nil
}

func (s *PaymentService) sweepOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		return false, fmt.Errorf("get order: %w", err)
	}
	// Settled between listing and locking; nothing to sweep.
	if order.PaymentStatus != database.PaymentStatusPending || order.Status != database.OrderStatusPendingPayment {
		return false, nil
	}

	failed, err := store.UpdateOrderPayment(ctx, database.UpdateOrderPaymentParams{
		ID:                    orderID,
		PaymentStatus:         database.PaymentStatusFailed,
		ExpectedPaymentStatus: database.PaymentStatusPending,
	})
	if err != nil {
		return false, fmt.Errorf("mark failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}

	s.notifyFailed(ctx, failed)
	return true, nil
}

func (s *PaymentService) notifyPaid(ctx context.Context, order database.Order) {
	notifyOrder(ctx, s.dispatcher, order, enum.NotificationPaymentReceived,
		"Payment received",
		fmt.Sprintf("Payment for order %s has been received.", order.OrderNumber),
		map[string]string{
			"order_number": order.OrderNumber,
			"amount":       numericString(order.TotalAmount),
		})
	if order.Status == database.OrderStatusConfirmed {
		n := statusNotifications[database.OrderStatusConfirmed]
		notifyOrder(ctx, s.dispatcher, order, n.kind, n.title,
			fmt.Sprintf(n.template, order.OrderNumber),
			map[string]string{
				"order_number": order.OrderNumber,
				"status":       string(order.Status),
			})
	}
}

func (s *PaymentService) notifyFailed(ctx context.Context, order database.Order) {
	notifyOrder(ctx, s.dispatcher, order, enum.NotificationPaymentFailed,
		"Payment failed",
		fmt.Sprintf("Payment for order %s failed. You can retry from your orders page.", order.OrderNumber),
		map[string]string{"order_number": order.OrderNumber})
}
