package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/Uniqwrites1/vendorrPWA-backend/internal/database"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/enum"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/handler"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/middleware"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// --- Mocks ---

type mockTransferService struct {
	transfer database.BankTransferConfirmation
	order    database.Order
	err      error

	gotSubmit   service.SubmitTransferParams
	gotStaffID  uuid.UUID
	gotNotes    string
	confirmHits int
}

func (m *mockTransferService) SubmitBankTransfer(_ context.Context, p service.SubmitTransferParams) (database.BankTransferConfirmation, error) {
	m.gotSubmit = p
	if m.err != nil {
		return database.BankTransferConfirmation{}, m.err
	}
	return m.transfer, nil
}

func (m *mockTransferService) ConfirmBankTransfer(_ context.Context, _ uuid.UUID, staffID uuid.UUID, notes string) (database.Order, error) {
	m.confirmHits++
	m.gotStaffID = staffID
	m.gotNotes = notes
	if m.err != nil {
		return database.Order{}, m.err
	}
	return m.order, nil
}

type mockTransferStore struct {
	orders  map[uuid.UUID]database.Order
	claims  map[uuid.UUID]database.BankTransferConfirmation
	pending []database.BankTransferConfirmation
}

func (m *mockTransferStore) GetOrder(_ context.Context, id uuid.UUID) (database.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *mockTransferStore) GetBankTransferByOrder(_ context.Context, orderID uuid.UUID) (database.BankTransferConfirmation, error) {
	c, ok := m.claims[orderID]
	if !ok {
		return database.BankTransferConfirmation{}, pgx.ErrNoRows
	}
	return c, nil
}

func (m *mockTransferStore) ListPendingBankTransfers(_ context.Context) ([]database.BankTransferConfirmation, error) {
	return m.pending, nil
}

// --- Helpers ---

func newTransferRouter(svc handler.TransferServicer, store handler.TransferStore) chi.Router {
	h := handler.NewTransferHandler(svc, store)
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuthenticate(testSecret))
		h.RegisterPublicRoutes(r)
	})
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Authenticate(testSecret))
		r.Use(middleware.RequireRole(enum.UserRoleStaff, enum.UserRoleCounter, enum.UserRoleAdmin))
		h.RegisterStaffRoutes(r)
	})
	return r
}

func makeTransfer(t *testing.T, orderID uuid.UUID) database.BankTransferConfirmation {
	t.Helper()
	return database.BankTransferConfirmation{
		ID:             uuid.New(),
		OrderID:        orderID,
		SenderName:     "ADA OBI",
		TransferAmount: mustNumeric(t, "6800.00"),
		TransferDate:   pgtype.Date{Time: time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC), Valid: true},
		CreatedAt:      time.Now(),
	}
}

// --- Submit tests ---

func TestSubmitTransfer_GuestClaim(t *testing.T) {
	orderID := uuid.New()
	svc := &mockTransferService{transfer: makeTransfer(t, orderID)}
	r := newTransferRouter(svc, &mockTransferStore{})

	rr := doJSON(t, r, "POST", "/orders/"+orderID.String()+"/transfer", "", map[string]string{
		"sender_name":      "ADA OBI",
		"amount":           "6800.00",
		"transfer_date":    "2026-08-15",
		"reference_number": "FT2608150001",
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	if svc.gotSubmit.OrderID != orderID {
		t.Errorf("order ID: got %v, want %v", svc.gotSubmit.OrderID, orderID)
	}
	if svc.gotSubmit.TransferAmount.StringFixed(2) != "6800.00" {
		t.Errorf("amount: got %s, want 6800.00", svc.gotSubmit.TransferAmount)
	}
	if got := svc.gotSubmit.TransferDate.Format("2006-01-02"); got != "2026-08-15" {
		t.Errorf("transfer date: got %s, want 2026-08-15", got)
	}

	resp := decodeResponse(t, rr)
	if resp["is_confirmed"] != false {
		t.Errorf("is_confirmed: got %v, want false", resp["is_confirmed"])
	}
}

func TestSubmitTransfer_MissingSenderName(t *testing.T) {
	r := newTransferRouter(&mockTransferService{}, &mockTransferStore{})

	rr := doJSON(t, r, "POST", "/orders/"+uuid.New().String()+"/transfer", "", map[string]string{
		"amount":        "6800.00",
		"transfer_date": "2026-08-15",
	})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestSubmitTransfer_NegativeAmount(t *testing.T) {
	r := newTransferRouter(&mockTransferService{}, &mockTransferStore{})

	rr := doJSON(t, r, "POST", "/orders/"+uuid.New().String()+"/transfer", "", map[string]string{
		"sender_name":   "ADA OBI",
		"amount":        "-50.00",
		"transfer_date": "2026-08-15",
	})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestSubmitTransfer_BadDateFormat(t *testing.T) {
	r := newTransferRouter(&mockTransferService{}, &mockTransferStore{})

	rr := doJSON(t, r, "POST", "/orders/"+uuid.New().String()+"/transfer", "", map[string]string{
		"sender_name":   "ADA OBI",
		"amount":        "6800.00",
		"transfer_date": "15/08/2026",
	})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestSubmitTransfer_OtherCustomersOrder(t *testing.T) {
	store := &mockTransferStore{orders: map[uuid.UUID]database.Order{}}
	order := makeOrder(t)
	order.CustomerID = pgtype.UUID{Bytes: uuid.New(), Valid: true}
	store.orders[order.ID] = order

	svc := &mockTransferService{}
	r := newTransferRouter(svc, store)

	rr := doJSON(t, r, "POST", "/orders/"+order.ID.String()+"/transfer",
		tokenFor(t, uuid.New(), enum.UserRoleCustomer), map[string]string{
			"sender_name":   "ADA OBI",
			"amount":        "6800.00",
			"transfer_date": "2026-08-15",
		})

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
	if svc.gotSubmit.OrderID != uuid.Nil {
		t.Error("claim must not reach the service for another customer's order")
	}
}

func TestSubmitTransfer_AlreadyPaidOrder(t *testing.T) {
	svc := &mockTransferService{err: service.ErrInvalidPaymentTransition}
	r := newTransferRouter(svc, &mockTransferStore{})

	rr := doJSON(t, r, "POST", "/orders/"+uuid.New().String()+"/transfer", "", map[string]string{
		"sender_name":   "ADA OBI",
		"amount":        "6800.00",
		"transfer_date": "2026-08-15",
	})

	if rr.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

// --- Claim status tests ---

func TestGetTransferForOrder_Guest(t *testing.T) {
	orderID := uuid.New()
	transfer := makeTransfer(t, orderID)
	transfer.IsConfirmed = true
	store := &mockTransferStore{claims: map[uuid.UUID]database.BankTransferConfirmation{orderID: transfer}}
	r := newTransferRouter(&mockTransferService{}, store)

	rr := doJSON(t, r, "GET", "/orders/"+orderID.String()+"/transfer", "", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["is_confirmed"] != true {
		t.Errorf("is_confirmed: got %v, want true", resp["is_confirmed"])
	}
}

func TestGetTransferForOrder_NoClaim(t *testing.T) {
	r := newTransferRouter(&mockTransferService{}, &mockTransferStore{})

	rr := doJSON(t, r, "GET", "/orders/"+uuid.New().String()+"/transfer", "", nil)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestGetTransferForOrder_OtherCustomersOrder(t *testing.T) {
	order := makeOrder(t)
	order.CustomerID = pgtype.UUID{Bytes: uuid.New(), Valid: true}
	store := &mockTransferStore{
		orders: map[uuid.UUID]database.Order{order.ID: order},
		claims: map[uuid.UUID]database.BankTransferConfirmation{order.ID: makeTransfer(t, order.ID)},
	}
	r := newTransferRouter(&mockTransferService{}, store)

	rr := doJSON(t, r, "GET", "/orders/"+order.ID.String()+"/transfer",
		tokenFor(t, uuid.New(), enum.UserRoleCustomer), nil)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

// --- Queue tests ---

func TestListPendingTransfers(t *testing.T) {
	store := &mockTransferStore{pending: []database.BankTransferConfirmation{
		makeTransfer(t, uuid.New()),
		makeTransfer(t, uuid.New()),
	}}
	r := newTransferRouter(&mockTransferService{}, store)

	rr := doJSON(t, r, "GET", "/admin/transfers", tokenFor(t, uuid.New(), enum.UserRoleCounter), nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	var resp []map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("expected 2 pending claims, got %d", len(resp))
	}
	if resp[0]["transfer_amount"] != "6800.00" {
		t.Errorf("transfer_amount: got %v, want 6800.00", resp[0]["transfer_amount"])
	}
	if resp[0]["transfer_date"] != "2026-08-15" {
		t.Errorf("transfer_date: got %v, want 2026-08-15", resp[0]["transfer_date"])
	}
}

func TestListPendingTransfers_CustomerForbidden(t *testing.T) {
	r := newTransferRouter(&mockTransferService{}, &mockTransferStore{})

	rr := doJSON(t, r, "GET", "/admin/transfers", tokenFor(t, uuid.New(), enum.UserRoleCustomer), nil)

	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

// --- Confirm tests ---

func TestConfirmTransfer_Succeeds(t *testing.T) {
	confirmed := makeOrder(t)
	confirmed.Status = database.OrderStatusConfirmed
	confirmed.PaymentStatus = database.PaymentStatusPaid
	svc := &mockTransferService{order: confirmed}
	r := newTransferRouter(svc, &mockTransferStore{})

	staffID := uuid.New()
	rr := doJSON(t, r, "POST", "/admin/transfers/"+uuid.New().String()+"/confirm",
		tokenFor(t, staffID, enum.UserRoleCounter),
		map[string]string{"notes": "matched statement line 14"})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	// The confirming account comes from the token, never the body.
	if svc.gotStaffID != staffID {
		t.Errorf("staff ID: got %v, want %v", svc.gotStaffID, staffID)
	}
	if svc.gotNotes != "matched statement line 14" {
		t.Errorf("notes: got %q", svc.gotNotes)
	}

	resp := decodeResponse(t, rr)
	if resp["payment_status"] != "paid" {
		t.Errorf("payment_status: got %v, want paid", resp["payment_status"])
	}
	if resp["status"] != "confirmed" {
		t.Errorf("status: got %v, want confirmed", resp["status"])
	}
}

func TestConfirmTransfer_EmptyBodyAllowed(t *testing.T) {
	svc := &mockTransferService{order: makeOrder(t)}
	r := newTransferRouter(svc, &mockTransferStore{})

	rr := doJSON(t, r, "POST", "/admin/transfers/"+uuid.New().String()+"/confirm",
		tokenFor(t, uuid.New(), enum.UserRoleCounter), nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if svc.gotNotes != "" {
		t.Errorf("notes: got %q, want empty", svc.gotNotes)
	}
}

func TestConfirmTransfer_AmountMismatch(t *testing.T) {
	svc := &mockTransferService{err: service.ErrReconciliationMismatch}
	r := newTransferRouter(svc, &mockTransferStore{})

	rr := doJSON(t, r, "POST", "/admin/transfers/"+uuid.New().String()+"/confirm",
		tokenFor(t, uuid.New(), enum.UserRoleCounter), nil)

	if rr.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestConfirmTransfer_UnknownClaim(t *testing.T) {
	svc := &mockTransferService{err: service.ErrTransferNotFound}
	r := newTransferRouter(svc, &mockTransferStore{})

	rr := doJSON(t, r, "POST", "/admin/transfers/"+uuid.New().String()+"/confirm",
		tokenFor(t, uuid.New(), enum.UserRoleCounter), nil)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}
