package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/Uniqwrites1/vendorrPWA-backend/internal/database"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/reconcile"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// maxStatementSize caps uploaded bank statements at 5 MB.
const maxStatementSize = 5 << 20

// ReconcileStore defines the database methods needed by the reconciliation
// screen. Satisfied by *database.Queries; narrow interface for testability.
type ReconcileStore interface {
	ListPendingBankTransfers(ctx context.Context) ([]database.BankTransferConfirmation, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
}

// ReconcileHandler matches uploaded bank statements against unconfirmed
// transfer claims. It only suggests; confirming stays a separate, explicit
// staff action per claim.
type ReconcileHandler struct {
	store ReconcileStore
}

// NewReconcileHandler creates a new ReconcileHandler.
func NewReconcileHandler(store ReconcileStore) *ReconcileHandler {
	return &ReconcileHandler{store: store}
}

// RegisterStaffRoutes registers the statement upload endpoint.
// Expected to be mounted under /admin.
func (h *ReconcileHandler) RegisterStaffRoutes(r chi.Router) {
	r.Post("/reconcile/statement", h.UploadStatement)
}

// --- Response types ---

type reconcileClaimView struct {
	TransferID   uuid.UUID `json:"transfer_id"`
	OrderID      uuid.UUID `json:"order_id"`
	OrderNumber  string    `json:"order_number"`
	SenderName   string    `json:"sender_name"`
	Amount       string    `json:"amount"`
	TransferDate string    `json:"transfer_date,omitempty"`
}

type reconcileLineResult struct {
	Row         int                  `json:"row"`
	Date        string               `json:"date"`
	Reference   string               `json:"reference,omitempty"`
	Description string               `json:"description,omitempty"`
	Amount      string               `json:"amount"`
	Status      string               `json:"status"`
	Match       *reconcileClaimView  `json:"match,omitempty"`
	Candidates  []reconcileClaimView `json:"candidates,omitempty"`
}

type reconcileResponse struct {
	Lines         []reconcileLineResult `json:"lines"`
	Warnings      []string              `json:"warnings,omitempty"`
	PendingClaims int                   `json:"pending_claims"`
}

// --- Handlers ---

// UploadStatement handles POST /admin/reconcile/statement. Accepts either a
// multipart upload under the "statement" field or a raw CSV body.
func (h *ReconcileHandler) UploadStatement(w http.ResponseWriter, r *http.Request) {
	var reader io.Reader = http.MaxBytesReader(w, r.Body, maxStatementSize)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxStatementSize); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
			return
		}
		file, _, err := r.FormFile("statement")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "statement file is required"})
			return
		}
		defer file.Close()
		reader = file
	}

	statement, err := reconcile.ParseStatement(reader)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	claims, err := h.loadClaims(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("load transfer claims")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	matcher := reconcile.NewMatcher(claims)
	results := matcher.MatchAll(statement.Lines)

	lines := make([]reconcileLineResult, len(results))
	for i, res := range results {
		lines[i] = toLineResult(res)
	}

	writeJSON(w, http.StatusOK, reconcileResponse{
		Lines:         lines,
		Warnings:      statement.Warnings,
		PendingClaims: len(claims),
	})
}

// --- Helpers ---

// loadClaims joins pending transfer claims with their orders for matching.
func (h *ReconcileHandler) loadClaims(ctx context.Context) ([]reconcile.Claim, error) {
	transfers, err := h.store.ListPendingBankTransfers(ctx)
	if err != nil {
		return nil, err
	}

	claims := make([]reconcile.Claim, 0, len(transfers))
	for _, t := range transfers {
		order, err := h.store.GetOrder(ctx, t.OrderID)
		if err != nil {
			// A claim whose order vanished cannot be confirmed anyway.
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return nil, err
		}

		claim := reconcile.Claim{
			TransferID:  t.ID,
			OrderID:     t.OrderID,
			OrderNumber: order.OrderNumber,
			SenderName:  t.SenderName,
		}
		if t.ReferenceNumber.Valid {
			claim.Reference = t.ReferenceNumber.String
		}
		if t.TransferAmount.Valid {
			claim.Amount = decimal.NewFromBigInt(t.TransferAmount.Int, t.TransferAmount.Exp)
		}
		if t.TransferDate.Valid {
			claim.TransferDate = t.TransferDate.Time
		}
		claims = append(claims, claim)
	}

	return claims, nil
}

func toLineResult(res reconcile.MatchResult) reconcileLineResult {
	line := reconcileLineResult{
		Row:         res.Line.RowNum,
		Date:        res.Line.Date.Format("2006-01-02"),
		Reference:   res.Line.Reference,
		Description: res.Line.Description,
		Amount:      res.Line.Amount.StringFixed(2),
		Status:      strings.ToLower(res.Status.String()),
	}
	if res.Claim != nil {
		v := toClaimView(*res.Claim)
		line.Match = &v
	}
	for _, c := range res.Candidates {
		line.Candidates = append(line.Candidates, toClaimView(c))
	}
	return line
}

func toClaimView(c reconcile.Claim) reconcileClaimView {
	view := reconcileClaimView{
		TransferID:  c.TransferID,
		OrderID:     c.OrderID,
		OrderNumber: c.OrderNumber,
		SenderName:  c.SenderName,
		Amount:      c.Amount.StringFixed(2),
	}
	if !c.TransferDate.IsZero() {
		view.TransferDate = c.TransferDate.Format("2006-01-02")
	}
	return view
}
