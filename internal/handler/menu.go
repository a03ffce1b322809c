package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Uniqwrites1/vendorrPWA-backend/internal/database"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// CatalogServicer defines the service methods needed by menu handlers.
// Satisfied by *service.CatalogService; narrow interface for testability.
type CatalogServicer interface {
	Menu(ctx context.Context) ([]service.Category, []service.Item, error)
	InvalidateMenu(ctx context.Context)
}

// MenuStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	ListMenuItems(ctx context.Context) ([]database.MenuItem, error)
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	UpdateMenuItemAvailability(ctx context.Context, arg database.UpdateMenuItemAvailabilityParams) (database.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id uuid.UUID) error
	ListMenuCategories(ctx context.Context) ([]database.MenuCategory, error)
	CreateMenuCategory(ctx context.Context, arg database.CreateMenuCategoryParams) (database.MenuCategory, error)
	UpdateMenuCategory(ctx context.Context, arg database.UpdateMenuCategoryParams) (database.MenuCategory, error)
	DeleteMenuCategory(ctx context.Context, id uuid.UUID) error
}

// MenuHandler handles the public menu and the admin catalog CRUD.
type MenuHandler struct {
	svc   CatalogServicer
	store MenuStore
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(svc CatalogServicer, store MenuStore) *MenuHandler {
	return &MenuHandler{svc: svc, store: store}
}

// RegisterPublicRoutes registers the customer-facing menu endpoints.
func (h *MenuHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/menu", h.Menu)
	r.Get("/menu/items/{id}", h.GetItem)
}

// RegisterStaffRoutes registers catalog management endpoints.
// Expected to be mounted under /admin.
func (h *MenuHandler) RegisterStaffRoutes(r chi.Router) {
	r.Route("/menu/categories", func(r chi.Router) {
		r.Get("/", h.ListCategories)
		r.Post("/", h.CreateCategory)
		r.Put("/{id}", h.UpdateCategory)
		r.Delete("/{id}", h.DeleteCategory)
	})
	r.Route("/menu/items", func(r chi.Router) {
		r.Get("/", h.ListItems)
		r.Post("/", h.CreateItem)
		r.Put("/{id}", h.UpdateItem)
		r.Put("/{id}/availability", h.UpdateAvailability)
		r.Delete("/{id}", h.DeleteItem)
	})
}

// --- Request / Response types ---

type menuResponse struct {
	Categories []service.Category `json:"categories"`
	Items      []service.Item     `json:"items"`
}

type categoryRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	ImageURL     string `json:"image_url"`
	DisplayOrder int32  `json:"display_order"`
	IsActive     *bool  `json:"is_active"`
}

type menuItemRequest struct {
	CategoryID      string `json:"category_id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	Price           string `json:"price"`
	ImageURL        string `json:"image_url"`
	IsAvailable     *bool  `json:"is_available"`
	Status          string `json:"status"`
	PreparationTime *int32 `json:"preparation_time"`
	SpiceLevel      *int32 `json:"spice_level"`
	DietaryTags     string `json:"dietary_tags"`
	IsFeatured      bool   `json:"is_featured"`
}

type availabilityRequest struct {
	IsAvailable *bool  `json:"is_available"`
	Status      string `json:"status"`
}

type menuCategoryResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description,omitempty"`
	ImageURL     *string   `json:"image_url,omitempty"`
	DisplayOrder int32     `json:"display_order"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type menuItemResponse struct {
	ID              uuid.UUID `json:"id"`
	CategoryID      uuid.UUID `json:"category_id"`
	Name            string    `json:"name"`
	Description     *string   `json:"description,omitempty"`
	Price           string    `json:"price"`
	ImageURL        *string   `json:"image_url,omitempty"`
	IsAvailable     bool      `json:"is_available"`
	Status          string    `json:"status"`
	PreparationTime *int32    `json:"preparation_time,omitempty"`
	SpiceLevel      *int32    `json:"spice_level,omitempty"`
	DietaryTags     *string   `json:"dietary_tags,omitempty"`
	IsFeatured      bool      `json:"is_featured"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// --- Handlers ---

// Menu handles GET /menu. Served from the shared cache when warm.
func (h *MenuHandler) Menu(w http.ResponseWriter, r *http.Request) {
	cats, items, err := h.svc.Menu(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("load menu")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, menuResponse{Categories: cats, Items: items})
}

// GetItem handles GET /menu/items/{id}. Hidden items 404 for customers.
func (h *MenuHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	item, err := h.store.GetMenuItem(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
			return
		}
		log.Error().Err(err).Msg("get menu item")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if item.Status == database.MenuItemStatusHidden {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
		return
	}

	writeJSON(w, http.StatusOK, dbMenuItemToResponse(item))
}

// ListCategories handles GET /admin/menu/categories. Inactive categories
// are included so staff can reactivate them.
func (h *MenuHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListMenuCategories(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("list categories")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuCategoryResponse, len(categories))
	for i, c := range categories {
		resp[i] = dbCategoryToResponse(c)
	}

	writeJSON(w, http.StatusOK, resp)
}

// CreateCategory handles POST /admin/menu/categories.
func (h *MenuHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	category, err := h.store.CreateMenuCategory(r.Context(), database.CreateMenuCategoryParams{
		Name:         req.Name,
		Description:  textOrNull(req.Description),
		ImageUrl:     textOrNull(req.ImageURL),
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		log.Error().Err(err).Msg("create category")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.svc.InvalidateMenu(r.Context())
	writeJSON(w, http.StatusCreated, dbCategoryToResponse(category))
}

// UpdateCategory handles PUT /admin/menu/categories/{id}. Full replace;
// is_active defaults to true when omitted.
func (h *MenuHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	catID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category ID"})
		return
	}

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	category, err := h.store.UpdateMenuCategory(r.Context(), database.UpdateMenuCategoryParams{
		ID:           catID,
		Name:         req.Name,
		Description:  textOrNull(req.Description),
		ImageUrl:     textOrNull(req.ImageURL),
		DisplayOrder: req.DisplayOrder,
		IsActive:     isActive,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "category not found"})
			return
		}
		log.Error().Err(err).Msg("update category")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.svc.InvalidateMenu(r.Context())
	writeJSON(w, http.StatusOK, dbCategoryToResponse(category))
}

// DeleteCategory handles DELETE /admin/menu/categories/{id}.
func (h *MenuHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	catID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category ID"})
		return
	}

	if err := h.store.DeleteMenuCategory(r.Context(), catID); err != nil {
		// Items reference their category; the FK blocks deleting a
		// category that still has items.
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "category still has items"})
			return
		}
		log.Error().Err(err).Msg("delete category")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.svc.InvalidateMenu(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// ListItems handles GET /admin/menu/items. Includes hidden items.
func (h *MenuHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListMenuItems(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("list menu items")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, m := range items {
		resp[i] = dbMenuItemToResponse(m)
	}

	writeJSON(w, http.StatusOK, resp)
}

// CreateItem handles POST /admin/menu/items.
func (h *MenuHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	categoryID, price, errMsg := validateItemRequest(req)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errMsg})
		return
	}

	isAvailable := true
	if req.IsAvailable != nil {
		isAvailable = *req.IsAvailable
	}
	status := database.MenuItemStatusAvailable
	if req.Status != "" {
		status = database.MenuItemStatus(req.Status)
		if !isValidItemStatus(status) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
	}

	item, err := h.store.CreateMenuItem(r.Context(), database.CreateMenuItemParams{
		CategoryID:      categoryID,
		Name:            req.Name,
		Description:     textOrNull(req.Description),
		Price:           price,
		ImageUrl:        textOrNull(req.ImageURL),
		IsAvailable:     isAvailable,
		Status:          status,
		PreparationTime: int4OrNull(req.PreparationTime),
		SpiceLevel:      int4OrNull(req.SpiceLevel),
		DietaryTags:     textOrNull(req.DietaryTags),
		IsFeatured:      req.IsFeatured,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "category does not exist"})
			return
		}
		log.Error().Err(err).Msg("create menu item")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.svc.InvalidateMenu(r.Context())
	writeJSON(w, http.StatusCreated, dbMenuItemToResponse(item))
}

// UpdateItem handles PUT /admin/menu/items/{id}. Availability is managed
// through its own endpoint so a price edit cannot silently re-enable a
// sold-out item.
func (h *MenuHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	categoryID, price, errMsg := validateItemRequest(req)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errMsg})
		return
	}

	item, err := h.store.UpdateMenuItem(r.Context(), database.UpdateMenuItemParams{
		ID:              itemID,
		CategoryID:      categoryID,
		Name:            req.Name,
		Description:     textOrNull(req.Description),
		Price:           price,
		ImageUrl:        textOrNull(req.ImageURL),
		PreparationTime: int4OrNull(req.PreparationTime),
		SpiceLevel:      int4OrNull(req.SpiceLevel),
		DietaryTags:     textOrNull(req.DietaryTags),
		IsFeatured:      req.IsFeatured,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
			return
		}
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "category does not exist"})
			return
		}
		log.Error().Err(err).Msg("update menu item")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.svc.InvalidateMenu(r.Context())
	writeJSON(w, http.StatusOK, dbMenuItemToResponse(item))
}

// UpdateAvailability handles PUT /admin/menu/items/{id}/availability, the
// quick toggle for selling out and restocking during service.
func (h *MenuHandler) UpdateAvailability(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.IsAvailable == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "is_available is required"})
		return
	}

	status := database.MenuItemStatusAvailable
	if !*req.IsAvailable {
		status = database.MenuItemStatusUnavailable
	}
	if req.Status != "" {
		status = database.MenuItemStatus(req.Status)
		if !isValidItemStatus(status) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
	}

	item, err := h.store.UpdateMenuItemAvailability(r.Context(), database.UpdateMenuItemAvailabilityParams{
		ID:          itemID,
		IsAvailable: *req.IsAvailable,
		Status:      status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
			return
		}
		log.Error().Err(err).Msg("update item availability")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.svc.InvalidateMenu(r.Context())
	writeJSON(w, http.StatusOK, dbMenuItemToResponse(item))
}

// DeleteItem handles DELETE /admin/menu/items/{id}.
func (h *MenuHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	if err := h.store.DeleteMenuItem(r.Context(), itemID); err != nil {
		// Order items keep a FK to the menu item for reorder flows, so an
		// item that has ever been sold cannot be hard-deleted. Hide it.
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "item has been ordered before, hide it instead"})
			return
		}
		log.Error().Err(err).Msg("delete menu item")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.svc.InvalidateMenu(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

// validateItemRequest checks the fields shared by create and update and
// parses the IDs and money out of their wire form.
func validateItemRequest(req menuItemRequest) (uuid.UUID, pgtype.Numeric, string) {
	if req.Name == "" {
		return uuid.Nil, pgtype.Numeric{}, "name is required"
	}
	if req.CategoryID == "" {
		return uuid.Nil, pgtype.Numeric{}, "category_id is required"
	}
	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		return uuid.Nil, pgtype.Numeric{}, "invalid category_id"
	}
	if req.Price == "" {
		return uuid.Nil, pgtype.Numeric{}, "price is required"
	}
	d, err := decimal.NewFromString(req.Price)
	if err != nil || d.LessThanOrEqual(decimal.Zero) {
		return uuid.Nil, pgtype.Numeric{}, "price must be positive"
	}
	price, err := decimalToNumeric(d)
	if err != nil {
		return uuid.Nil, pgtype.Numeric{}, "invalid price"
	}
	if req.SpiceLevel != nil && (*req.SpiceLevel < 0 || *req.SpiceLevel > 5) {
		return uuid.Nil, pgtype.Numeric{}, "spice_level must be between 0 and 5"
	}
	return categoryID, price, ""
}

func isValidItemStatus(s database.MenuItemStatus) bool {
	switch s {
	case database.MenuItemStatusAvailable,
		database.MenuItemStatusUnavailable,
		database.MenuItemStatusHidden:
		return true
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func decimalToNumeric(d decimal.Decimal) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	if err := n.Scan(d.StringFixed(2)); err != nil {
		return pgtype.Numeric{}, err
	}
	return n, nil
}

func int4OrNull(i *int32) pgtype.Int4 {
	if i == nil {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: *i, Valid: true}
}

func dbCategoryToResponse(c database.MenuCategory) menuCategoryResponse {
	resp := menuCategoryResponse{
		ID:           c.ID,
		Name:         c.Name,
		DisplayOrder: c.DisplayOrder,
		IsActive:     c.IsActive,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
	if c.Description.Valid {
		resp.Description = &c.Description.String
	}
	if c.ImageUrl.Valid {
		resp.ImageURL = &c.ImageUrl.String
	}
	return resp
}

func dbMenuItemToResponse(m database.MenuItem) menuItemResponse {
	resp := menuItemResponse{
		ID:          m.ID,
		CategoryID:  m.CategoryID,
		Name:        m.Name,
		Price:       numericToString(m.Price),
		IsAvailable: m.IsAvailable,
		Status:      string(m.Status),
		IsFeatured:  m.IsFeatured,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.Description.Valid {
		resp.Description = &m.Description.String
	}
	if m.ImageUrl.Valid {
		resp.ImageURL = &m.ImageUrl.String
	}
	if m.PreparationTime.Valid {
		resp.PreparationTime = &m.PreparationTime.Int32
	}
	if m.SpiceLevel.Valid {
		resp.SpiceLevel = &m.SpiceLevel.Int32
	}
	if m.DietaryTags.Valid {
		resp.DietaryTags = &m.DietaryTags.String
	}
	return resp
}
