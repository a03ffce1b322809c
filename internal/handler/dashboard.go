package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/Uniqwrites1/vendorrPWA-backend/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// DashboardStore defines the database methods needed by the dashboard.
// Satisfied by *database.Queries; narrow interface for testability.
type DashboardStore interface {
	GetDashboardStats(ctx context.Context, arg database.GetDashboardStatsParams) (database.GetDashboardStatsRow, error)
	CountPendingBankTransfers(ctx context.Context) (int64, error)
}

// DashboardHandler serves the staff overview screen.
type DashboardHandler struct {
	store DashboardStore
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(store DashboardStore) *DashboardHandler {
	return &DashboardHandler{store: store}
}

// RegisterRoutes registers the dashboard endpoint.
// Expected to be mounted under /admin.
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.Stats)
}

// --- Response types ---

type dashboardOrderCounts struct {
	Total          int64 `json:"total"`
	PendingPayment int64 `json:"pending_payment"`
	Confirmed      int64 `json:"confirmed"`
	Preparing      int64 `json:"preparing"`
	Ready          int64 `json:"ready"`
	Completed      int64 `json:"completed"`
	Cancelled      int64 `json:"cancelled"`
}

type dashboardResponse struct {
	Date             string               `json:"date"`
	Orders           dashboardOrderCounts `json:"orders"`
	PaidRevenue      string               `json:"paid_revenue"`
	PendingPayments  int64                `json:"pending_payments"`
	PendingTransfers int64                `json:"pending_transfers"`
}

// --- Handlers ---

// Stats handles GET /admin/dashboard. Defaults to today; an optional
// ?date=YYYY-MM-DD query shows a past day.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	day := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be formatted as YYYY-MM-DD"})
			return
		}
		day = parsed
	}

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.Local)
	dayEnd := dayStart.Add(24 * time.Hour)

	stats, err := h.store.GetDashboardStats(r.Context(), database.GetDashboardStatsParams{
		DayStart: dayStart,
		DayEnd:   dayEnd,
	})
	if err != nil {
		log.Error().Err(err).Msg("dashboard stats")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	// The transfer queue is not day-scoped: old unreconciled claims still
	// need attention today.
	pendingTransfers, err := h.store.CountPendingBankTransfers(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("count pending transfers")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		Date: dayStart.Format("2006-01-02"),
		Orders: dashboardOrderCounts{
			Total:          stats.TotalOrders,
			PendingPayment: stats.PendingPayment,
			Confirmed:      stats.Confirmed,
			Preparing:      stats.Preparing,
			Ready:          stats.Ready,
			Completed:      stats.Completed,
			Cancelled:      stats.Cancelled,
		},
		PaidRevenue:      numericToString(stats.PaidRevenue),
		PendingPayments:  stats.PendingPayments,
		PendingTransfers: pendingTransfers,
	})
}
