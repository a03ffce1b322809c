package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/Uniqwrites1/vendorrPWA-backend/internal/database"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/middleware"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// signatureHeader carries the gateway's HMAC over the raw request body.
const signatureHeader = "X-Webhook-Signature"

// PaymentServicer defines the service methods needed by payment handlers.
// Satisfied by *service.PaymentService; narrow interface for testability.
type PaymentServicer interface {
	HandleGatewayCallback(ctx context.Context, body []byte, signature string) (database.Order, error)
	Refund(ctx context.Context, orderID uuid.UUID) (database.Order, error)
	RetryPayment(ctx context.Context, orderID uuid.UUID) (database.Order, error)
}

// PaymentHandler handles the gateway webhook and payment state endpoints.
type PaymentHandler struct {
	svc   PaymentServicer
	store OrderStore
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(svc PaymentServicer, store OrderStore) *PaymentHandler {
	return &PaymentHandler{svc: svc, store: store}
}

// RegisterPublicRoutes registers the gateway webhook endpoint. The gateway
// authenticates with a signature, not a bearer token.
func (h *PaymentHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/payments/webhook", h.Webhook)
}

// RegisterRoutes registers payment endpoints for authenticated users.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/orders/{id}/payment/retry", h.Retry)
}

// RegisterStaffRoutes registers payment endpoints for staff roles.
// Expected to be mounted under /admin.
func (h *PaymentHandler) RegisterStaffRoutes(r chi.Router) {
	r.Post("/orders/{id}/refund", h.Refund)
}

// --- Handlers ---

// Webhook handles POST /payments/webhook. The signature covers the raw
// body, so the body is handed to the service unparsed.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unable to read request body"})
		return
	}

	order, err := h.svc.HandleGatewayCallback(r.Context(), body, r.Header.Get(signatureHeader))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSignature):
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
		case errors.Is(err, service.ErrBadCallback):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		case errors.Is(err, service.ErrPaymentMismatch),
			errors.Is(err, service.ErrInvalidPaymentTransition):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			// A 5xx tells the gateway to redeliver later.
			log.Error().Err(err).Msg("gateway callback")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}

// Refund handles POST /admin/orders/{id}/refund.
func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.svc.Refund(r.Context(), orderID)
	if err != nil {
		writePaymentError(w, err, "refund order")
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}

// Retry handles POST /orders/{id}/payment/retry. A customer whose gateway
// payment failed reopens the payment window and tries again.
func (h *PaymentHandler) Retry(w http.ResponseWriter, r *http.Request) {
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
			log.Error().Err(err).Msg("get order for payment retry")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		// Respond 404 rather than confirming the order exists.
		if !canViewOrder(claims, order) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
	}

	order, err := h.svc.RetryPayment(r.Context(), orderID)
	if err != nil {
		writePaymentError(w, err, "retry payment")
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}

// --- Helpers ---

func writePaymentError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
	case errors.Is(err, service.ErrInvalidPaymentTransition),
		errors.Is(err, service.ErrConcurrentModification):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Error().Err(err).Msg(msg)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
