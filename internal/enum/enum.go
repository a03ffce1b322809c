package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusConfirmed      = "confirmed"
	OrderStatusPreparing      = "preparing"
	OrderStatusReady          = "ready"
	OrderStatusCompleted      = "completed"
	OrderStatusCancelled      = "cancelled"
)

const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

const (
	MenuItemStatusAvailable   = "available"
	MenuItemStatusUnavailable = "unavailable"
	MenuItemStatusHidden      = "hidden"
)

// ── Group B: Access control (CHECK constrained in DB) ──

const (
	UserRoleCustomer = "customer"
	UserRoleStaff    = "staff"
	UserRoleKitchen  = "kitchen"
	UserRoleCounter  = "counter"
	UserRoleAdmin    = "admin"
)

// ── Group C: Configurable labels (no DB constraint) ──

const (
	PaymentMethodGateway      = "gateway"
	PaymentMethodBankTransfer = "bank_transfer"
)

const (
	NotificationOrderPlaced       = "order_placed"
	NotificationOrderConfirmed    = "order_confirmed"
	NotificationOrderPreparing    = "order_preparing"
	NotificationOrderReady        = "order_ready"
	NotificationOrderCompleted    = "order_completed"
	NotificationOrderCancelled    = "order_cancelled"
	NotificationPaymentReceived   = "payment_received"
	NotificationPaymentFailed     = "payment_failed"
	NotificationPaymentRefunded   = "payment_refunded"
	NotificationTransferSubmitted = "transfer_submitted"
	NotificationTransferConfirmed = "transfer_confirmed"
)
