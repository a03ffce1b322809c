package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Uniqwrites1/vendorrPWA-backend/internal/auth"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/database"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/enum"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/middleware"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// OrderServicer defines the service methods needed to place orders.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
}

// LifecycleServicer defines the service methods that move orders through
// fulfillment. Satisfied by *service.LifecycleService.
type LifecycleServicer interface {
	Advance(ctx context.Context, orderID uuid.UUID, to database.OrderStatus, estimatedReady *time.Time) (database.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID) (database.Order, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrdersByCustomer(ctx context.Context, arg database.ListOrdersByCustomerParams) ([]database.Order, error)
	ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc       OrderServicer
	lifecycle LifecycleServicer
	store     OrderStore
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, lifecycle LifecycleServicer, store OrderStore) *OrderHandler {
	return &OrderHandler{svc: svc, lifecycle: lifecycle, store: store}
}

// RegisterPublicRoutes registers order endpoints that work without a token.
// Checkout is mounted with optional authentication so signed-in customers
// get the order attached to their account.
func (h *OrderHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/orders", h.Create)
	r.Get("/orders/track/{number}", h.Track)
}

// RegisterRoutes registers order endpoints for authenticated users.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders/mine", h.ListMine)
	r.Get("/orders/{id}", h.Get)
	r.Post("/orders/{id}/cancel", h.Cancel)
}

// RegisterStaffRoutes registers order endpoints for staff roles.
func (h *OrderHandler) RegisterStaffRoutes(r chi.Router) {
	r.Get("/orders", h.List)
	r.Patch("/orders/{id}/status", h.UpdateStatus)
}

// --- Request / Response types ---

type orderResponse struct {
	ID                 uuid.UUID           `json:"id"`
	OrderNumber        string              `json:"order_number"`
	CustomerName       *string             `json:"customer_name,omitempty"`
	CustomerPhone      *string             `json:"customer_phone,omitempty"`
	Status             string              `json:"status"`
	PaymentStatus      string              `json:"payment_status"`
	Subtotal           string              `json:"subtotal"`
	TaxAmount          string              `json:"tax_amount"`
	TipAmount          string              `json:"tip_amount"`
	TotalAmount        string              `json:"total_amount"`
	Notes              *string             `json:"notes,omitempty"`
	PaymentMethod      *string             `json:"payment_method,omitempty"`
	PaymentReference   *string             `json:"payment_reference,omitempty"`
	EstimatedReadyTime *time.Time          `json:"estimated_ready_time,omitempty"`
	ActualReadyTime    *time.Time          `json:"actual_ready_time,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
	Items              []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID             uuid.UUID `json:"id"`
	MenuItemID     uuid.UUID `json:"menu_item_id"`
	ItemName       string    `json:"item_name"`
	Quantity       int32     `json:"quantity"`
	UnitPrice      string    `json:"unit_price"`
	TotalPrice     string    `json:"total_price"`
	Customizations *string   `json:"customizations,omitempty"`
	Notes          *string   `json:"notes,omitempty"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// trackResponse deliberately omits names, contacts and amounts: order
// numbers are sequential and anyone can probe them.
type trackResponse struct {
	OrderNumber        string     `json:"order_number"`
	Status             string     `json:"status"`
	PaymentStatus      string     `json:"payment_status"`
	EstimatedReadyTime *time.Time `json:"estimated_ready_time,omitempty"`
	ActualReadyTime    *time.Time `json:"actual_ready_time,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

type updateStatusRequest struct {
	Status             string `json:"status"`
	EstimatedReadyTime string `json:"estimated_ready_time,omitempty"`
}

// --- Handlers ---

// Create handles POST /orders for guests and signed-in customers alike.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}
	for i, item := range req.Items {
		if item.MenuItemID == uuid.Nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": formatItemError(i, "menu_item_id is required")})
			return
		}
		if item.Quantity <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": formatItemError(i, "quantity must be > 0")})
			return
		}
	}
	switch req.PaymentMethod {
	case "", enum.PaymentMethodGateway, enum.PaymentMethodBankTransfer:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown payment method"})
		return
	}

	// A signed-in customer owns the order; a guest order carries contact
	// details only. The body can never set the customer ID itself.
	req.CustomerID = uuid.Nil
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		req.CustomerID = claims.UserID
	}

	result, err := h.svc.CreateOrder(r.Context(), req)
	if err != nil {
		if isOrderValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if errors.Is(err, service.ErrOrdersPaused) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		log.Error().Err(err).Msg("create order")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := dbOrderToResponse(result.Order)
	resp.Items = make([]orderItemResponse, len(result.Items))
	for i, item := range result.Items {
		resp.Items[i] = dbOrderItemToResponse(item)
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Track handles GET /orders/track/{number}, the public status page.
func (h *OrderHandler) Track(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	if number == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order number is required"})
		return
	}

	order, err := h.store.GetOrderByNumber(r.Context(), number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Error().Err(err).Msg("track order")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, trackResponse{
		OrderNumber:        order.OrderNumber,
		Status:             string(order.Status),
		PaymentStatus:      string(order.PaymentStatus),
		EstimatedReadyTime: timestampOrNil(order.EstimatedReadyTime),
		ActualReadyTime:    timestampOrNil(order.ActualReadyTime),
		CreatedAt:          order.CreatedAt,
	})
}

// List handles GET /orders for staff, with optional status filters.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r, 20)

	params := database.ListOrdersParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	}

	if s := r.URL.Query().Get("status"); s != "" {
		if !isValidOrderStatus(database.OrderStatus(s)) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status filter"})
			return
		}
		params.Status = s
	}
	if s := r.URL.Query().Get("payment_status"); s != "" {
		if !isValidPaymentStatus(database.PaymentStatus(s)) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payment_status filter"})
			return
		}
		params.PaymentStatus = s
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Error().Err(err).Msg("list orders")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}

	writeJSON(w, http.StatusOK, orderListResponse{Orders: resp, Limit: limit, Offset: offset})
}

// ListMine handles GET /orders/mine for signed-in customers.
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	limit, offset := parsePagination(r, 20)

	orders, err := h.store.ListOrdersByCustomer(r.Context(), database.ListOrdersByCustomerParams{
		CustomerID: claims.UserID,
		Limit:      int32(limit),
		Offset:     int32(offset),
	})
	if err != nil {
		log.Error().Err(err).Msg("list customer orders")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}

	writeJSON(w, http.StatusOK, orderListResponse{Orders: resp, Limit: limit, Offset: offset})
}

// Get handles GET /orders/{id} with line items.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Error().Err(err).Msg("get order")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	// Customers only see their own orders; respond 404 rather than
	// confirming the order exists.
	if !canViewOrder(claims, order) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}

	items, err := h.store.ListOrderItems(r.Context(), orderID)
	if err != nil {
		log.Error().Err(err).Msg("list order items")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := dbOrderToResponse(order)
	resp.Items = make([]orderItemResponse, len(items))
	for i, item := range items {
		resp.Items[i] = dbOrderItemToResponse(item)
	}

	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus handles PATCH /orders/{id}/status for staff.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}
	newStatus := database.OrderStatus(req.Status)
	if !isValidOrderStatus(newStatus) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	var estimatedReady *time.Time
	if req.EstimatedReadyTime != "" {
		t, err := time.Parse(time.RFC3339, req.EstimatedReadyTime)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid estimated_ready_time, use RFC 3339"})
			return
		}
		estimatedReady = &t
	}

	order, err := h.lifecycle.Advance(r.Context(), orderID, newStatus, estimatedReady)
	if err != nil {
		writeLifecycleError(w, err, "update order status")
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}

// Cancel handles POST /orders/{id}/cancel. Staff may cancel any order the
// state machine allows; customers only their own, and only before paying.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	if !isStaffRole(claims.Role) {
		order, err := h.store.GetOrder(r.Context(), orderID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
				return
			}
			log.Error().Err(err).Msg("get order for cancel")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		if !canViewOrder(claims, order) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		// Once the kitchen may have started, cancellation becomes a staff
		// call (and possibly a refund conversation).
		if order.Status != database.OrderStatusPendingPayment {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "order can no longer be cancelled online, please contact the restaurant"})
			return
		}
	}

	order, err := h.lifecycle.Cancel(r.Context(), orderID)
	if err != nil {
		writeLifecycleError(w, err, "cancel order")
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}

// --- Helpers ---

func formatItemError(idx int, msg string) string {
	return "items[" + strconv.Itoa(idx) + "]: " + msg
}

func parsePagination(r *http.Request, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset = 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}

// isOrderValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isOrderValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyOrder) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrItemNotFound) ||
		errors.Is(err, service.ErrItemUnavailable) ||
		errors.Is(err, service.ErrGuestContact) ||
		errors.Is(err, service.ErrInvalidTip)
}

func writeLifecycleError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
	case errors.Is(err, service.ErrInvalidFulfillmentTransition),
		errors.Is(err, service.ErrPaymentRequired),
		errors.Is(err, service.ErrConcurrentModification):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Error().Err(err).Msg(msg)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func isStaffRole(role string) bool {
	switch role {
	case enum.UserRoleStaff, enum.UserRoleKitchen, enum.UserRoleCounter, enum.UserRoleAdmin:
		return true
	}
	return false
}

func canViewOrder(claims *auth.Claims, order database.Order) bool {
	if isStaffRole(claims.Role) {
		return true
	}
	return order.CustomerID.Valid && uuid.UUID(order.CustomerID.Bytes) == claims.UserID
}

func isValidOrderStatus(s database.OrderStatus) bool {
	switch s {
	case database.OrderStatusPendingPayment,
		database.OrderStatusConfirmed,
		database.OrderStatusPreparing,
		database.OrderStatusReady,
		database.OrderStatusCompleted,
		database.OrderStatusCancelled:
		return true
	}
	return false
}

func isValidPaymentStatus(s database.PaymentStatus) bool {
	switch s {
	case database.PaymentStatusPending,
		database.PaymentStatusPaid,
		database.PaymentStatusFailed,
		database.PaymentStatusRefunded:
		return true
	}
	return false
}

// dbOrderToResponse converts a database.Order to an orderResponse.
func dbOrderToResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:                 o.ID,
		OrderNumber:        o.OrderNumber,
		Status:             string(o.Status),
		PaymentStatus:      string(o.PaymentStatus),
		Subtotal:           numericToString(o.Subtotal),
		TaxAmount:          numericToString(o.TaxAmount),
		TipAmount:          numericToString(o.TipAmount),
		TotalAmount:        numericToString(o.TotalAmount),
		EstimatedReadyTime: timestampOrNil(o.EstimatedReadyTime),
		ActualReadyTime:    timestampOrNil(o.ActualReadyTime),
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}

	if o.CustomerName.Valid {
		resp.CustomerName = &o.CustomerName.String
	}
	if o.CustomerPhone.Valid {
		resp.CustomerPhone = &o.CustomerPhone.String
	}
	if o.Notes.Valid {
		resp.Notes = &o.Notes.String
	}
	if o.PaymentMethod.Valid {
		resp.PaymentMethod = &o.PaymentMethod.String
	}
	if o.PaymentReference.Valid {
		resp.PaymentReference = &o.PaymentReference.String
	}

	return resp
}

func dbOrderItemToResponse(item database.OrderItem) orderItemResponse {
	resp := orderItemResponse{
		ID:         item.ID,
		MenuItemID: item.MenuItemID,
		ItemName:   item.ItemName,
		Quantity:   item.Quantity,
		UnitPrice:  numericToString(item.UnitPrice),
		TotalPrice: numericToString(item.TotalPrice),
	}
	if item.Customizations.Valid {
		resp.Customizations = &item.Customizations.String
	}
	if item.Notes.Valid {
		resp.Notes = &item.Notes.String
	}
	return resp
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	return decimal.NewFromBigInt(n.Int, n.Exp).StringFixed(2)
}

func timestampOrNil(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}
