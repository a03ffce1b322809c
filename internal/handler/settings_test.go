package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Uniqwrites1/vendorrPWA-backend/internal/database"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/enum"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/handler"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// --- Mocks ---

type mockSettingsStore struct {
	settings database.RestaurantSetting
	getErr   error

	gotUpdate database.UpdateRestaurantSettingsParams
	updates   int
}

func (m *mockSettingsStore) GetRestaurantSettings(_ context.Context) (database.RestaurantSetting, error) {
	if m.getErr != nil {
		return database.RestaurantSetting{}, m.getErr
	}
	return m.settings, nil
}

func (m *mockSettingsStore) UpdateRestaurantSettings(_ context.Context, arg database.UpdateRestaurantSettingsParams) (database.RestaurantSetting, error) {
	m.gotUpdate = arg
	m.updates++
	s := m.settings
	s.RestaurantName = arg.RestaurantName
	s.IsAcceptingOrders = arg.IsAcceptingOrders
	s.TaxRate = arg.TaxRate
	s.BankName = arg.BankName
	s.UpdatedAt = time.Now()
	return s, nil
}

// --- Helpers ---

func newSettingsRouter(store handler.SettingsStore) chi.Router {
	h := handler.NewSettingsHandler(store)
	r := chi.NewRouter()
	h.RegisterPublicRoutes(r)
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Authenticate(testSecret))
		r.Use(middleware.RequireRole(enum.UserRoleAdmin))
		h.RegisterAdminRoutes(r)
	})
	return r
}

func makeSettings(t *testing.T) database.RestaurantSetting {
	t.Helper()
	return database.RestaurantSetting{
		ID:                1,
		RestaurantName:    "Vendorr Kitchen",
		IsAcceptingOrders: true,
		TaxRate:           mustNumeric(t, "0.075"),
		BankName:          pgtype.Text{String: "GTBank", Valid: true},
		BankAccountName:   pgtype.Text{String: "Vendorr Kitchen Ltd", Valid: true},
		BankAccountNumber: pgtype.Text{String: "0123456789", Valid: true},
		UpdatedAt:         time.Now(),
	}
}

// --- Tests ---

func TestGetRestaurant_Public(t *testing.T) {
	store := &mockSettingsStore{settings: makeSettings(t)}
	r := newSettingsRouter(store)

	rr := doJSON(t, r, "GET", "/restaurant", "", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["restaurant_name"] != "Vendorr Kitchen" {
		t.Errorf("restaurant_name: got %v", resp["restaurant_name"])
	}
	// Transfer customers read the account details from here.
	if resp["bank_account_number"] != "0123456789" {
		t.Errorf("bank_account_number: got %v", resp["bank_account_number"])
	}
	// A tax rate like 7.5% must not be rounded to two decimal places.
	if resp["tax_rate"] != "0.075" {
		t.Errorf("tax_rate: got %v, want 0.075", resp["tax_rate"])
	}
}

func TestUpdateSettings_Valid(t *testing.T) {
	store := &mockSettingsStore{settings: makeSettings(t)}
	r := newSettingsRouter(store)

	rr := doJSON(t, r, "PUT", "/admin/settings", tokenFor(t, uuid.New(), enum.UserRoleAdmin),
		map[string]interface{}{
			"restaurant_name":     "Vendorr Kitchen Lekki",
			"tax_rate":            "0.08",
			"is_accepting_orders": false,
			"opening_time":        "09:00",
			"closing_time":        "21:30",
			"bank_name":           "Access Bank",
		})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if store.gotUpdate.RestaurantName != "Vendorr Kitchen Lekki" {
		t.Errorf("restaurant_name: got %q", store.gotUpdate.RestaurantName)
	}
	if store.gotUpdate.IsAcceptingOrders {
		t.Error("expected is_accepting_orders false")
	}
	resp := decodeResponse(t, rr)
	if resp["is_accepting_orders"] != false {
		t.Errorf("is_accepting_orders: got %v, want false", resp["is_accepting_orders"])
	}
}

func TestUpdateSettings_AcceptingDefaultsTrue(t *testing.T) {
	store := &mockSettingsStore{settings: makeSettings(t)}
	r := newSettingsRouter(store)

	rr := doJSON(t, r, "PUT", "/admin/settings", tokenFor(t, uuid.New(), enum.UserRoleAdmin),
		map[string]interface{}{
			"restaurant_name": "Vendorr Kitchen",
			"tax_rate":        "0.075",
		})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if !store.gotUpdate.IsAcceptingOrders {
		t.Error("is_accepting_orders should default to true when omitted")
	}
}

func TestUpdateSettings_TaxRateOutOfRange(t *testing.T) {
	store := &mockSettingsStore{settings: makeSettings(t)}
	r := newSettingsRouter(store)

	// 1.2 would be a 120% tax; the rate is a fraction, not a percentage.
	rr := doJSON(t, r, "PUT", "/admin/settings", tokenFor(t, uuid.New(), enum.UserRoleAdmin),
		map[string]interface{}{
			"restaurant_name": "Vendorr Kitchen",
			"tax_rate":        "1.2",
		})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if store.updates != 0 {
		t.Error("update must not reach the store")
	}
}

func TestUpdateSettings_BadTimeFormat(t *testing.T) {
	r := newSettingsRouter(&mockSettingsStore{settings: makeSettings(t)})

	rr := doJSON(t, r, "PUT", "/admin/settings", tokenFor(t, uuid.New(), enum.UserRoleAdmin),
		map[string]interface{}{
			"restaurant_name": "Vendorr Kitchen",
			"tax_rate":        "0.075",
			"opening_time":    "9am",
		})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestUpdateSettings_NameRequired(t *testing.T) {
	r := newSettingsRouter(&mockSettingsStore{settings: makeSettings(t)})

	rr := doJSON(t, r, "PUT", "/admin/settings", tokenFor(t, uuid.New(), enum.UserRoleAdmin),
		map[string]interface{}{"tax_rate": "0.075"})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestUpdateSettings_StaffForbidden(t *testing.T) {
	r := newSettingsRouter(&mockSettingsStore{settings: makeSettings(t)})

	rr := doJSON(t, r, "PUT", "/admin/settings", tokenFor(t, uuid.New(), enum.UserRoleStaff),
		map[string]interface{}{
			"restaurant_name": "Hijacked Kitchen",
			"tax_rate":        "0.075",
		})

	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}
