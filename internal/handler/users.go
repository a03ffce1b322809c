package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Uniqwrites1/vendorrPWA-backend/internal/database"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/enum"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// UserStore defines the database methods needed by user admin handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type UserStore interface {
	ListUsers(ctx context.Context, arg database.ListUsersParams) ([]database.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	UpdateUserAccess(ctx context.Context, arg database.UpdateUserAccessParams) (database.User, error)
}

// UserHandler handles account administration. Public registration only
// creates customers; staff accounts are created here by an admin.
type UserHandler struct {
	store UserStore
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(store UserStore) *UserHandler {
	return &UserHandler{store: store}
}

// RegisterAdminRoutes registers user management endpoints.
// Expected to be mounted under /admin with the admin role required.
func (h *UserHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/users", h.List)
	r.Post("/users", h.Create)
	r.Get("/users/{id}", h.Get)
	r.Patch("/users/{id}/access", h.UpdateAccess)
}

// --- Request types ---

type createStaffRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
}

type updateAccessRequest struct {
	Role     string `json:"role"`
	IsActive *bool  `json:"is_active"`
}

// --- Handlers ---

// List handles GET /admin/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r, 50)

	users, err := h.store.ListUsers(r.Context(), database.ListUsersParams{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		log.Error().Err(err).Msg("list users")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]userResponse, len(users))
	for i, u := range users {
		resp[i] = toUserResponse(u)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Create handles POST /admin/users.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "a valid email is required"})
		return
	}
	if len(req.Password) < 8 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "password must be at least 8 characters"})
		return
	}
	if req.FirstName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "first_name is required"})
		return
	}
	if !isValidRole(req.Role) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid role"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("hash password")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	user, err := h.store.CreateUser(r.Context(), database.CreateUserParams{
		Email:          req.Email,
		Phone:          textOrNull(req.Phone),
		HashedPassword: string(hashed),
		FirstName:      req.FirstName,
		LastName:       textOrNull(req.LastName),
		Role:           req.Role,
	})
	if err != nil {
		if isUniqueViolation(err, "users_email_key") {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "email already registered"})
			return
		}
		log.Error().Err(err).Msg("create staff user")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// Get handles GET /admin/users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID"})
		return
	}

	user, err := h.store.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		log.Error().Err(err).Msg("get user")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// UpdateAccess handles PATCH /admin/users/{id}/access. Changing your own
// access is rejected so an admin cannot lock themselves out.
func (h *UserHandler) UpdateAccess(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID"})
		return
	}

	if userID == claims.UserID {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "cannot change your own access"})
		return
	}

	var req updateAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if !isValidRole(req.Role) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid role"})
		return
	}
	if req.IsActive == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "is_active is required"})
		return
	}

	user, err := h.store.UpdateUserAccess(r.Context(), database.UpdateUserAccessParams{
		ID:       userID,
		Role:     req.Role,
		IsActive: *req.IsActive,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		log.Error().Err(err).Msg("update user access")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// --- Helpers ---

func isValidRole(role string) bool {
	switch role {
	case enum.UserRoleCustomer,
		enum.UserRoleStaff,
		enum.UserRoleKitchen,
		enum.UserRoleCounter,
		enum.UserRoleAdmin:
		return true
	}
	return false
}
