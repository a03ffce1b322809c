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
	"github.com/rs/zerolog/log"
)

// NotificationStore defines the database methods needed by notification
// handlers. Satisfied by *database.Queries; narrow interface for testability.
type NotificationStore interface {
	ListNotificationsByUser(ctx context.Context, arg database.ListNotificationsByUserParams) ([]database.Notification, error)
	ListStaffNotifications(ctx context.Context, arg database.ListStaffNotificationsParams) ([]database.Notification, error)
	MarkNotificationRead(ctx context.Context, arg database.MarkNotificationReadParams) (database.Notification, error)
	MarkStaffNotificationRead(ctx context.Context, id uuid.UUID) (database.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) error
	MarkAllStaffNotificationsRead(ctx context.Context) error
	CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error)
	CountUnreadStaffNotifications(ctx context.Context) (int64, error)
}

// NotificationHandler handles the in-app notification feed. Staff share one
// feed (rows with no user); customers each see their own.
type NotificationHandler struct {
	store NotificationStore
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(store NotificationStore) *NotificationHandler {
	return &NotificationHandler{store: store}
}

// RegisterRoutes registers notification endpoints for authenticated users.
func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/notifications", h.List)
	r.Get("/notifications/unread-count", h.UnreadCount)
	r.Post("/notifications/{id}/read", h.MarkRead)
	r.Post("/notifications/read-all", h.MarkAllRead)
}

// --- Request / Response types ---

type notificationResponse struct {
	ID        uuid.UUID       `json:"id"`
	OrderID   *uuid.UUID      `json:"order_id,omitempty"`
	Kind      string          `json:"kind"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	IsRead    bool            `json:"is_read"`
	CreatedAt time.Time       `json:"created_at"`
	ReadAt    *time.Time      `json:"read_at,omitempty"`
}

type unreadCountResponse struct {
	Count int64 `json:"count"`
}

// --- Handlers ---

// List handles GET /notifications.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	limit, offset := parsePagination(r, 20)

	var (
		notifs []database.Notification
		err    error
	)
	if isStaffRole(claims.Role) {
		notifs, err = h.store.ListStaffNotifications(r.Context(), database.ListStaffNotificationsParams{
			Limit:  int32(limit),
			Offset: int32(offset),
		})
	} else {
		notifs, err = h.store.ListNotificationsByUser(r.Context(), database.ListNotificationsByUserParams{
			UserID: claims.UserID,
			Limit:  int32(limit),
			Offset: int32(offset),
		})
	}
	if err != nil {
		log.Error().Err(err).Msg("list notifications")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]notificationResponse, len(notifs))
	for i, n := range notifs {
		resp[i] = dbNotificationToResponse(n)
	}

	writeJSON(w, http.StatusOK, resp)
}

// UnreadCount handles GET /notifications/unread-count, the badge number.
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var (
		count int64
		err   error
	)
	if isStaffRole(claims.Role) {
		count, err = h.store.CountUnreadStaffNotifications(r.Context())
	} else {
		count, err = h.store.CountUnreadNotifications(r.Context(), claims.UserID)
	}
	if err != nil {
		log.Error().Err(err).Msg("count unread notifications")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, unreadCountResponse{Count: count})
}

// MarkRead handles POST /notifications/{id}/read. Scoped to the caller's
// feed, so one customer cannot mark another's notification.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	notifID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid notification ID"})
		return
	}

	var notif database.Notification
	if isStaffRole(claims.Role) {
		notif, err = h.store.MarkStaffNotificationRead(r.Context(), notifID)
	} else {
		notif, err = h.store.MarkNotificationRead(r.Context(), database.MarkNotificationReadParams{
			ID:     notifID,
			UserID: claims.UserID,
		})
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "notification not found"})
			return
		}
		log.Error().Err(err).Msg("mark notification read")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbNotificationToResponse(notif))
}

// MarkAllRead handles POST /notifications/read-all.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var err error
	if isStaffRole(claims.Role) {
		err = h.store.MarkAllStaffNotificationsRead(r.Context())
	} else {
		err = h.store.MarkAllNotificationsRead(r.Context(), claims.UserID)
	}
	if err != nil {
		log.Error().Err(err).Msg("mark all notifications read")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func dbNotificationToResponse(n database.Notification) notificationResponse {
	resp := notificationResponse{
		ID:        n.ID,
		Kind:      n.Kind,
		Title:     n.Title,
		Message:   n.Message,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
	if n.OrderID.Valid {
		id := uuid.UUID(n.OrderID.Bytes)
		resp.OrderID = &id
	}
	if n.Payload.Valid {
		resp.Payload = json.RawMessage(n.Payload.String)
	}
	if n.ReadAt.Valid {
		resp.ReadAt = &n.ReadAt.Time
	}
	return resp
}
