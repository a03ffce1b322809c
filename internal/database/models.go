package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusReady          OrderStatus = "ready"
	OrderStatusCompleted      OrderStatus = "completed"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type MenuItemStatus string

const (
	MenuItemStatusAvailable   MenuItemStatus = "available"
	MenuItemStatusUnavailable MenuItemStatus = "unavailable"
	MenuItemStatusHidden      MenuItemStatus = "hidden"
)

type MenuCategory struct {
	ID           uuid.UUID
	Name         string
	Description  pgtype.Text
	ImageUrl     pgtype.Text
	DisplayOrder int32
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type MenuItem struct {
	ID              uuid.UUID
	CategoryID      uuid.UUID
	Name            string
	Description     pgtype.Text
	Price           pgtype.Numeric
	ImageUrl        pgtype.Text
	IsAvailable     bool
	Status          MenuItemStatus
	PreparationTime pgtype.Int4
	SpiceLevel      pgtype.Int4
	DietaryTags     pgtype.Text
	IsFeatured      bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Order struct {
	ID                 uuid.UUID
	OrderNumber        string
	CustomerID         pgtype.UUID
	CustomerName       pgtype.Text
	CustomerPhone      pgtype.Text
	CustomerEmail      pgtype.Text
	Status             OrderStatus
	PaymentStatus      PaymentStatus
	Subtotal           pgtype.Numeric
	TaxAmount          pgtype.Numeric
	TipAmount          pgtype.Numeric
	TotalAmount        pgtype.Numeric
	Notes              pgtype.Text
	PaymentMethod      pgtype.Text
	PaymentReference   pgtype.Text
	EstimatedReadyTime pgtype.Timestamptz
	ActualReadyTime    pgtype.Timestamptz
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type OrderItem struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	MenuItemID     uuid.UUID
	ItemName       string
	Quantity       int32
	UnitPrice      pgtype.Numeric
	TotalPrice     pgtype.Numeric
	Customizations pgtype.Text
	Notes          pgtype.Text
}

type BankTransferConfirmation struct {
	ID                uuid.UUID
	OrderID           uuid.UUID
	SenderName        string
	TransferAmount    pgtype.Numeric
	TransferDate      pgtype.Date
	ReferenceNumber   pgtype.Text
	ReceiptImagePath  pgtype.Text
	IsConfirmed       bool
	ConfirmedBy       pgtype.UUID
	ConfirmedAt       pgtype.Timestamptz
	ConfirmationNotes pgtype.Text
	CreatedAt         time.Time
}

// Notification rows with a NULL user_id address all staff rather than a
// single customer.
type Notification struct {
	ID        uuid.UUID
	UserID    pgtype.UUID
	OrderID   pgtype.UUID
	Kind      string
	Title     string
	Message   string
	Payload   pgtype.Text
	IsRead    bool
	IsSent    bool
	CreatedAt time.Time
	ReadAt    pgtype.Timestamptz
}

type User struct {
	ID             uuid.UUID
	Email          string
	Phone          pgtype.Text
	HashedPassword string
	FirstName      string
	LastName       pgtype.Text
	Role           string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RestaurantSetting is a single-row table (id = 1, CHECK constrained).
type RestaurantSetting struct {
	ID                int32
	RestaurantName    string
	Phone             pgtype.Text
	WhatsappNumber    pgtype.Text
	Address           pgtype.Text
	OpeningTime       pgtype.Text
	ClosingTime       pgtype.Text
	IsAcceptingOrders bool
	TaxRate           pgtype.Numeric
	BankName          pgtype.Text
	BankAccountName   pgtype.Text
	BankAccountNumber pgtype.Text
	UpdatedAt         time.Time
}

type Review struct {
	ID           uuid.UUID
	OrderID      pgtype.UUID
	CustomerID   pgtype.UUID
	CustomerName pgtype.Text
	Rating       int32
	Comment      pgtype.Text
	IsApproved   bool
	CreatedAt    time.Time
}
