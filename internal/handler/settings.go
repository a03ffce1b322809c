package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Uniqwrites1/vendorrPWA-backend/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// SettingsStore defines the database methods needed by settings handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type SettingsStore interface {
	GetRestaurantSettings(ctx context.Context) (database.RestaurantSetting, error)
	UpdateRestaurantSettings(ctx context.Context, arg database.UpdateRestaurantSettingsParams) (database.RestaurantSetting, error)
}

// SettingsHandler handles restaurant profile and configuration endpoints.
type SettingsHandler struct {
	store SettingsStore
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(store SettingsStore) *SettingsHandler {
	return &SettingsHandler{store: store}
}

// RegisterPublicRoutes registers the public restaurant info endpoint. Bank
// details are included: transfer customers need somewhere to send money.
func (h *SettingsHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/restaurant", h.Get)
}

// RegisterAdminRoutes registers settings management endpoints.
// Expected to be mounted under /admin.
func (h *SettingsHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/settings", h.Get)
	r.Put("/settings", h.Update)
}

// --- Request / Response types ---

type updateSettingsRequest struct {
	RestaurantName    string `json:"restaurant_name"`
	Phone             string `json:"phone"`
	WhatsappNumber    string `json:"whatsapp_number"`
	Address           string `json:"address"`
	OpeningTime       string `json:"opening_time"`
	ClosingTime       string `json:"closing_time"`
	IsAcceptingOrders *bool  `json:"is_accepting_orders"`
	TaxRate           string `json:"tax_rate"`
	BankName          string `json:"bank_name"`
	BankAccountName   string `json:"bank_account_name"`
	BankAccountNumber string `json:"bank_account_number"`
}

type settingsResponse struct {
	RestaurantName    string    `json:"restaurant_name"`
	Phone             *string   `json:"phone,omitempty"`
	WhatsappNumber    *string   `json:"whatsapp_number,omitempty"`
	Address           *string   `json:"address,omitempty"`
	OpeningTime       *string   `json:"opening_time,omitempty"`
	ClosingTime       *string   `json:"closing_time,omitempty"`
	IsAcceptingOrders bool      `json:"is_accepting_orders"`
	TaxRate           string    `json:"tax_rate"`
	BankName          *string   `json:"bank_name,omitempty"`
	BankAccountName   *string   `json:"bank_account_name,omitempty"`
	BankAccountNumber *string   `json:"bank_account_number,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// --- Handlers ---

// Get handles GET /restaurant and GET /admin/settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.GetRestaurantSettings(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("get restaurant settings")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbSettingsToResponse(settings))
}

// Update handles PUT /admin/settings. Full replace of the singleton row.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.RestaurantName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "restaurant_name is required"})
		return
	}
	if req.TaxRate == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tax_rate is required"})
		return
	}
	rate, err := decimal.NewFromString(req.TaxRate)
	if err != nil || rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tax_rate must be a fraction between 0 and 1"})
		return
	}
	for _, t := range []string{req.OpeningTime, req.ClosingTime} {
		if t == "" {
			continue
		}
		if _, err := time.Parse("15:04", t); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "opening and closing times must be formatted as HH:MM"})
			return
		}
	}

	isAccepting := true
	if req.IsAcceptingOrders != nil {
		isAccepting = *req.IsAcceptingOrders
	}

	var taxRate pgtype.Numeric
	if err := taxRate.Scan(rate.String()); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tax_rate"})
		return
	}

	settings, err := h.store.UpdateRestaurantSettings(r.Context(), database.UpdateRestaurantSettingsParams{
		RestaurantName:    req.RestaurantName,
		Phone:             textOrNull(req.Phone),
		WhatsappNumber:    textOrNull(req.WhatsappNumber),
		Address:           textOrNull(req.Address),
		OpeningTime:       textOrNull(req.OpeningTime),
		ClosingTime:       textOrNull(req.ClosingTime),
		IsAcceptingOrders: isAccepting,
		TaxRate:           taxRate,
		BankName:          textOrNull(req.BankName),
		BankAccountName:   textOrNull(req.BankAccountName),
		BankAccountNumber: textOrNull(req.BankAccountNumber),
	})
	if err != nil {
		log.Error().Err(err).Msg("update restaurant settings")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbSettingsToResponse(settings))
}

// --- Helpers ---

func dbSettingsToResponse(s database.RestaurantSetting) settingsResponse {
	return settingsResponse{
		RestaurantName:    s.RestaurantName,
		Phone:             textPtr(s.Phone),
		WhatsappNumber:    textPtr(s.WhatsappNumber),
		Address:           textPtr(s.Address),
		OpeningTime:       textPtr(s.OpeningTime),
		ClosingTime:       textPtr(s.ClosingTime),
		IsAcceptingOrders: s.IsAcceptingOrders,
		TaxRate:           rateToString(s.TaxRate),
		BankName:          textPtr(s.BankName),
		BankAccountName:   textPtr(s.BankAccountName),
		BankAccountNumber: textPtr(s.BankAccountNumber),
		UpdatedAt:         s.UpdatedAt,
	}
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

// rateToString keeps the full precision of a rate column. StringFixed(2)
// would turn 0.075 into 0.08.
func rateToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0"
	}
	return decimal.NewFromBigInt(n.Int, n.Exp).String()
}
