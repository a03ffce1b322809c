package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Uniqwrites1/vendorrPWA-backend/internal/database"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/middleware"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// transferDateLayout is the wire format for bank transfer dates.
const transferDateLayout = "2006-01-02"

// TransferServicer defines the service methods needed by transfer handlers.
// Satisfied by *service.PaymentService; narrow interface for testability.
type TransferServicer interface {
	SubmitBankTransfer(ctx context.Context, p service.SubmitTransferParams) (database.BankTransferConfirmation, error)
	ConfirmBankTransfer(ctx context.Context, transferID, staffID uuid.UUID, notes string) (database.Order, error)
}

// TransferStore defines the database methods needed by transfer handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type TransferStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetBankTransferByOrder(ctx context.Context, orderID uuid.UUID) (database.BankTransferConfirmation, error)
	ListPendingBankTransfers(ctx context.Context) ([]database.BankTransferConfirmation, error)
}

// TransferHandler handles bank transfer claim endpoints.
type TransferHandler struct {
	svc   TransferServicer
	store TransferStore
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(svc TransferServicer, store TransferStore) *TransferHandler {
	return &TransferHandler{svc: svc, store: store}
}

// RegisterPublicRoutes registers the claim submission endpoint. It is
// mounted with optional authentication because guests pay by transfer too;
// possession of the order's UUID stands in for a login.
func (h *TransferHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/orders/{id}/transfer", h.Submit)
	r.Get("/orders/{id}/transfer", h.GetForOrder)
}

// RegisterStaffRoutes registers transfer reconciliation endpoints for staff.
// Expected to be mounted under /admin.
func (h *TransferHandler) RegisterStaffRoutes(r chi.Router) {
	r.Get("/transfers", h.ListPending)
	r.Post("/transfers/{id}/confirm", h.Confirm)
}

// --- Request / Response types ---

type submitTransferRequest struct {
	SenderName       string `json:"sender_name"`
	Amount           string `json:"amount"`
	TransferDate     string `json:"transfer_date"`
	ReferenceNumber  string `json:"reference_number"`
	ReceiptImagePath string `json:"receipt_image_path"`
}

type confirmTransferRequest struct {
	Notes string `json:"notes"`
}

type transferResponse struct {
	ID                uuid.UUID  `json:"id"`
	OrderID           uuid.UUID  `json:"order_id"`
	SenderName        string     `json:"sender_name"`
	TransferAmount    string     `json:"transfer_amount"`
	TransferDate      string     `json:"transfer_date"`
	ReferenceNumber   *string    `json:"reference_number,omitempty"`
	ReceiptImagePath  *string    `json:"receipt_image_path,omitempty"`
	IsConfirmed       bool       `json:"is_confirmed"`
	ConfirmedAt       *time.Time `json:"confirmed_at,omitempty"`
	ConfirmationNotes *string    `json:"confirmation_notes,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// --- Handlers ---

// Submit handles POST /orders/{id}/transfer. The customer reports an
// already-made bank transfer; nothing changes on the order until staff
// verify the claim against the bank statement.
func (h *TransferHandler) Submit(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req submitTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.SenderName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "sender_name is required"})
		return
	}
	if req.Amount == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount is required"})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount must be positive"})
		return
	}
	if req.TransferDate == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "transfer_date is required"})
		return
	}
	transferDate, err := time.Parse(transferDateLayout, req.TransferDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "transfer_date must be formatted as YYYY-MM-DD"})
		return
	}

	// A signed-in customer may only claim against their own orders. An
	// anonymous request is the guest flow: the order UUID is unguessable
	// and stands in for a credential.
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil && !isStaffRole(claims.Role) {
		order, err := h.store.GetOrder(r.Context(), orderID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
				return
			}
			log.Error().Err(err).Msg("get order for transfer claim")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		if !canViewOrder(claims, order) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
	}

	transfer, err := h.svc.SubmitBankTransfer(r.Context(), service.SubmitTransferParams{
		OrderID:          orderID,
		SenderName:       req.SenderName,
		TransferAmount:   amount,
		TransferDate:     transferDate,
		ReferenceNumber:  req.ReferenceNumber,
		ReceiptImagePath: req.ReceiptImagePath,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		case errors.Is(err, service.ErrInvalidPaymentTransition):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			log.Error().Err(err).Msg("submit transfer claim")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, dbTransferToResponse(transfer))
}

// GetForOrder handles GET /orders/{id}/transfer. Customers poll this while
// waiting for staff to confirm their claim.
func (h *TransferHandler) GetForOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil && !isStaffRole(claims.Role) {
		order, err := h.store.GetOrder(r.Context(), orderID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
				return
			}
			log.Error().Err(err).Msg("get order for transfer status")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		if !canViewOrder(claims, order) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
	}

	transfer, err := h.store.GetBankTransferByOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no transfer claim for this order"})
			return
		}
		log.Error().Err(err).Msg("get transfer claim")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbTransferToResponse(transfer))
}

// ListPending handles GET /admin/transfers. Returns unconfirmed claims,
// oldest first, for the reconciliation queue.
func (h *TransferHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	transfers, err := h.store.ListPendingBankTransfers(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("list pending transfers")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]transferResponse, len(transfers))
	for i, t := range transfers {
		resp[i] = dbTransferToResponse(t)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Confirm handles POST /admin/transfers/{id}/confirm. The claim must match
// the order total exactly; a mismatch leaves it unconfirmed.
func (h *TransferHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	transferID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid transfer ID"})
		return
	}

	var req confirmTransferRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}

	order, err := h.svc.ConfirmBankTransfer(r.Context(), transferID, claims.UserID, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTransferNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "transfer not found"})
		case errors.Is(err, service.ErrReconciliationMismatch),
			errors.Is(err, service.ErrInvalidPaymentTransition),
			errors.Is(err, service.ErrConcurrentModification):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			log.Error().Err(err).Msg("confirm transfer")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}

// --- Helpers ---

func dbTransferToResponse(t database.BankTransferConfirmation) transferResponse {
	resp := transferResponse{
		ID:             t.ID,
		OrderID:        t.OrderID,
		SenderName:     t.SenderName,
		TransferAmount: numericToString(t.TransferAmount),
		IsConfirmed:    t.IsConfirmed,
		CreatedAt:      t.CreatedAt,
	}
	if t.TransferDate.Valid {
		resp.TransferDate = t.TransferDate.Time.Format(transferDateLayout)
	}
	if t.ReferenceNumber.Valid {
		resp.ReferenceNumber = &t.ReferenceNumber.String
	}
	if t.ReceiptImagePath.Valid {
		resp.ReceiptImagePath = &t.ReceiptImagePath.String
	}
	if t.ConfirmedAt.Valid {
		resp.ConfirmedAt = &t.ConfirmedAt.Time
	}
	if t.ConfirmationNotes.Valid {
		resp.ConfirmationNotes = &t.ConfirmationNotes.String
	}
	return resp
}
