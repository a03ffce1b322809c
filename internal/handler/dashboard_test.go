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
)

// --- Mocks ---

type mockDashboardStore struct {
	stats            database.GetDashboardStatsRow
	pendingTransfers int64

	gotParams database.GetDashboardStatsParams
}

func (m *mockDashboardStore) GetDashboardStats(_ context.Context, arg database.GetDashboardStatsParams) (database.GetDashboardStatsRow, error) {
	m.gotParams = arg
	return m.stats, nil
}

func (m *mockDashboardStore) CountPendingBankTransfers(_ context.Context) (int64, error) {
	return m.pendingTransfers, nil
}

// --- Helpers ---

func newDashboardRouter(store handler.DashboardStore) chi.Router {
	h := handler.NewDashboardHandler(store)
	r := chi.NewRouter()
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Authenticate(testSecret))
		r.Use(middleware.RequireRole(enum.UserRoleAdmin))
		h.RegisterRoutes(r)
	})
	return r
}

// --- Tests ---

func TestDashboard_Counts(t *testing.T) {
	store := &mockDashboardStore{
		stats: database.GetDashboardStatsRow{
			TotalOrders:     12,
			PendingPayment:  2,
			Confirmed:       1,
			Preparing:       3,
			Ready:           1,
			Completed:       4,
			Cancelled:       1,
			PaidRevenue:     mustNumeric(t, "45200.00"),
			PendingPayments: 2,
		},
		pendingTransfers: 3,
	}
	r := newDashboardRouter(store)

	rr := doJSON(t, r, "GET", "/admin/dashboard", tokenFor(t, uuid.New(), enum.UserRoleAdmin), nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	orders, ok := resp["orders"].(map[string]interface{})
	if !ok {
		t.Fatalf("orders: got %v", resp["orders"])
	}
	if orders["total"] != float64(12) {
		t.Errorf("total: got %v, want 12", orders["total"])
	}
	if orders["preparing"] != float64(3) {
		t.Errorf("preparing: got %v, want 3", orders["preparing"])
	}
	if resp["paid_revenue"] != "45200.00" {
		t.Errorf("paid_revenue: got %v, want 45200.00", resp["paid_revenue"])
	}
	if resp["pending_transfers"] != float64(3) {
		t.Errorf("pending_transfers: got %v, want 3", resp["pending_transfers"])
	}
}

func TestDashboard_PastDate(t *testing.T) {
	store := &mockDashboardStore{}
	r := newDashboardRouter(store)

	rr := doJSON(t, r, "GET", "/admin/dashboard?date=2026-08-01",
		tokenFor(t, uuid.New(), enum.UserRoleAdmin), nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	wantStart := time.Date(2026, 8, 1, 0, 0, 0, 0, time.Local)
	if !store.gotParams.DayStart.Equal(wantStart) {
		t.Errorf("day start: got %v, want %v", store.gotParams.DayStart, wantStart)
	}
	if !store.gotParams.DayEnd.Equal(wantStart.Add(24 * time.Hour)) {
		t.Errorf("day end: got %v, want %v", store.gotParams.DayEnd, wantStart.Add(24*time.Hour))
	}

	resp := decodeResponse(t, rr)
	if resp["date"] != "2026-08-01" {
		t.Errorf("date: got %v, want 2026-08-01", resp["date"])
	}
}

func TestDashboard_BadDate(t *testing.T) {
	r := newDashboardRouter(&mockDashboardStore{})

	rr := doJSON(t, r, "GET", "/admin/dashboard?date=yesterday",
		tokenFor(t, uuid.New(), enum.UserRoleAdmin), nil)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestDashboard_StaffForbidden(t *testing.T) {
	r := newDashboardRouter(&mockDashboardStore{})

	rr := doJSON(t, r, "GET", "/admin/dashboard", tokenFor(t, uuid.New(), enum.UserRoleCounter), nil)

	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}
