package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Uniqwrites1/vendorrPWA-backend/internal/database"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog/log"
)

// ReviewStore defines the database methods needed by review handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReviewStore interface {
	CreateReview(ctx context.Context, arg database.CreateReviewParams) (database.Review, error)
	ListApprovedReviews(ctx context.Context, arg database.ListReviewsParams) ([]database.Review, error)
	ListReviews(ctx context.Context, arg database.ListReviewsParams) ([]database.Review, error)
	SetReviewApproval(ctx context.Context, arg database.SetReviewApprovalParams) (database.Review, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
}

// ReviewHandler handles customer reviews. New reviews are held for
// moderation; only approved ones appear publicly.
type ReviewHandler struct {
	store ReviewStore
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(store ReviewStore) *ReviewHandler {
	return &ReviewHandler{store: store}
}

// RegisterPublicRoutes registers the public review endpoints. Submission is
// mounted with optional authentication: guests review with the order UUID
// they got at checkout.
func (h *ReviewHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/reviews", h.ListApproved)
	r.Post("/reviews", h.Create)
}

// RegisterAdminRoutes registers review moderation endpoints.
// Expected to be mounted under /admin.
func (h *ReviewHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/reviews", h.ListAll)
	r.Patch("/reviews/{id}/approval", h.SetApproval)
}

// --- Request / Response types ---

type createReviewRequest struct {
	OrderID      string `json:"order_id"`
	CustomerName string `json:"customer_name"`
	Rating       int32  `json:"rating"`
	Comment      string `json:"comment"`
}

type reviewApprovalRequest struct {
	IsApproved *bool `json:"is_approved"`
}

type reviewResponse struct {
	ID           uuid.UUID  `json:"id"`
	OrderID      *uuid.UUID `json:"order_id,omitempty"`
	CustomerName *string    `json:"customer_name,omitempty"`
	Rating       int32      `json:"rating"`
	Comment      *string    `json:"comment,omitempty"`
	IsApproved   bool       `json:"is_approved"`
	CreatedAt    time.Time  `json:"created_at"`
}

// --- Handlers ---

// ListApproved handles GET /reviews.
func (h *ReviewHandler) ListApproved(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r, 20)

	reviews, err := h.store.ListApprovedReviews(r.Context(), database.ListReviewsParams{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		log.Error().Err(err).Msg("list approved reviews")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]reviewResponse, len(reviews))
	for i, rv := range reviews {
		resp[i] = dbReviewToResponse(rv)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Create handles POST /reviews. A review tied to an order requires that
// order to be completed first.
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Rating < 1 || req.Rating > 5 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "rating must be between 1 and 5"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())

	var orderID pgtype.UUID
	if req.OrderID != "" {
		id, err := uuid.Parse(req.OrderID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order_id"})
			return
		}
		order, err := h.store.GetOrder(r.Context(), id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
				return
			}
			log.Error().Err(err).Msg("get order for review")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		if claims != nil && !isStaffRole(claims.Role) && !canViewOrder(claims, order) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		if order.Status != database.OrderStatusCompleted {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "order is not completed yet"})
			return
		}
		orderID = pgtype.UUID{Bytes: id, Valid: true}
	}

	var customerID pgtype.UUID
	if claims != nil {
		customerID = pgtype.UUID{Bytes: claims.UserID, Valid: true}
	}
	if req.CustomerName == "" && claims == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "customer_name is required"})
		return
	}

	review, err := h.store.CreateReview(r.Context(), database.CreateReviewParams{
		OrderID:      orderID,
		CustomerID:   customerID,
		CustomerName: textOrNull(req.CustomerName),
		Rating:       req.Rating,
		Comment:      textOrNull(req.Comment),
	})
	if err != nil {
		log.Error().Err(err).Msg("create review")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, dbReviewToResponse(review))
}

// ListAll handles GET /admin/reviews, including unapproved submissions.
func (h *ReviewHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r, 20)

	reviews, err := h.store.ListReviews(r.Context(), database.ListReviewsParams{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		log.Error().Err(err).Msg("list reviews")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]reviewResponse, len(reviews))
	for i, rv := range reviews {
		resp[i] = dbReviewToResponse(rv)
	}

	writeJSON(w, http.StatusOK, resp)
}

// SetApproval handles PATCH /admin/reviews/{id}/approval.
func (h *ReviewHandler) SetApproval(w http.ResponseWriter, r *http.Request) {
	reviewID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid review ID"})
		return
	}

	var req reviewApprovalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.IsApproved == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "is_approved is required"})
		return
	}

	review, err := h.store.SetReviewApproval(r.Context(), database.SetReviewApprovalParams{
		ID:         reviewID,
		IsApproved: *req.IsApproved,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "review not found"})
			return
		}
		log.Error().Err(err).Msg("set review approval")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbReviewToResponse(review))
}

// --- Helpers ---

func dbReviewToResponse(rv database.Review) reviewResponse {
	resp := reviewResponse{
		ID:         rv.ID,
		Rating:     rv.Rating,
		IsApproved: rv.IsApproved,
		CreatedAt:  rv.CreatedAt,
	}
	if rv.OrderID.Valid {
		id := uuid.UUID(rv.OrderID.Bytes)
		resp.OrderID = &id
	}
	if rv.CustomerName.Valid {
		resp.CustomerName = &rv.CustomerName.String
	}
	if rv.Comment.Valid {
		resp.Comment = &rv.Comment.String
	}
	return resp
}
