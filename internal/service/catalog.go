package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Uniqwrites1/vendorrPWA-backend/internal/database"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var ErrItemNotFound = errors.New("menu item not found")

// CatalogStore is the data access for menu reads.
// Satisfied by *database.Queries; narrow interface for testability.
type CatalogStore interface {
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	ListActiveMenuCategories(ctx context.Context) ([]database.MenuCategory, error)
	ListVisibleMenuItems(ctx context.Context) ([]database.MenuItem, error)
}

const (
	menuCacheKey = "menu:v1"
	menuCacheTTL = 5 * time.Minute
)

// Availability is the orderability snapshot for a single menu item.
type Availability struct {
	Available     bool
	PriceSnapshot decimal.Decimal
	Name          string
}

type Category struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	ImageURL     string    `json:"image_url,omitempty"`
	DisplayOrder int32     `json:"display_order"`
}

type Item struct {
	ID              uuid.UUID `json:"id"`
	CategoryID      uuid.UUID `json:"category_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Price           string    `json:"price"`
	ImageURL        string    `json:"image_url,omitempty"`
	IsAvailable     bool      `json:"is_available"`
	Status          string    `json:"status"`
	PreparationTime *int32    `json:"preparation_time,omitempty"`
	SpiceLevel      *int32    `json:"spice_level,omitempty"`
	DietaryTags     string    `json:"dietary_tags,omitempty"`
	IsFeatured      bool      `json:"is_featured"`
}

type cachedMenu struct {
	Categories []Category `json:"categories"`
	Items      []Item     `json:"items"`
}

type CatalogService struct {
	store CatalogStore
	rdb   *redis.Client // nil disables caching
}

func NewCatalogService(store CatalogStore, rdb *redis.Client) *CatalogService {
	return &CatalogService{store: store, rdb: rdb}
}

func itemOrderable(item database.MenuItem) bool {
	return item.IsAvailable && item.Status == database.MenuItemStatusAvailable
}

// GetAvailability reads the item fresh from the database: cached menu data
// is fine for browsing but never for checkout.
func (s *CatalogService) GetAvailability(ctx context.Context, itemID uuid.UUID) (Availability, error) {
	item, err := s.store.GetMenuItem(ctx, itemID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Availability{}, ErrItemNotFound
	}
	if err != nil {
		return Availability{}, fmt.Errorf("get menu item: %w", err)
	}

	price, err := numericToDecimal(item.Price)
	if err != nil {
		return Availability{}, fmt.Errorf("item %s price: %w", item.ID, err)
	}

	return Availability{
		Available:     itemOrderable(item),
		PriceSnapshot: price,
		Name:          item.Name,
	}, nil
}

// Menu returns the browsable menu, served from cache when possible.
func (s *CatalogService) Menu(ctx context.Context) ([]Category, []Item, error) {
	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, menuCacheKey).Result()
		if err == nil {
			var m cachedMenu
			if err := json.Unmarshal([]byte(cached), &m); err == nil {
				return m.Categories, m.Items, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Msg("menu cache read")
		}
	}

	dbCats, err := s.store.ListActiveMenuCategories(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list categories: %w", err)
	}
	dbItems, err := s.store.ListVisibleMenuItems(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list items: %w", err)
	}

	cats := make([]Category, 0, len(dbCats))
	for _, c := range dbCats {
		cats = append(cats, categoryView(c))
	}
	items := make([]Item, 0, len(dbItems))
	for _, m := range dbItems {
		item, err := itemView(m)
		if err != nil {
			return nil, nil, err
		}
		items = append(items, item)
	}

	if s.rdb != nil {
		if b, err := json.Marshal(cachedMenu{Categories: cats, Items: items}); err == nil {
			if err := s.rdb.Set(ctx, menuCacheKey, b, menuCacheTTL).Err(); err != nil {
				log.Warn().Err(err).Msg("menu cache write")
			}
		}
	}

	return cats, items, nil
}

// InvalidateMenu drops the cached menu after an admin edit.
func (s *CatalogService) InvalidateMenu(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, menuCacheKey).Err(); err != nil {
		log.Warn().Err(err).Msg("menu cache invalidate")
	}
}

func categoryView(c database.MenuCategory) Category {
	return Category{
		ID:           c.ID,
		Name:         c.Name,
		Description:  textValue(c.Description),
		ImageURL:     textValue(c.ImageUrl),
		DisplayOrder: c.DisplayOrder,
	}
}

func itemView(m database.MenuItem) (Item, error) {
	price, err := numericToDecimal(m.Price)
	if err != nil {
		return Item{}, fmt.Errorf("item %s price: %w", m.ID, err)
	}
	return Item{
		ID:              m.ID,
		CategoryID:      m.CategoryID,
		Name:            m.Name,
		Description:     textValue(m.Description),
		Price:           price.StringFixed(2),
		ImageURL:        textValue(m.ImageUrl),
		IsAvailable:     m.IsAvailable,
		Status:          string(m.Status),
		PreparationTime: int4Ptr(m.PreparationTime),
		SpiceLevel:      int4Ptr(m.SpiceLevel),
		DietaryTags:     textValue(m.DietaryTags),
		IsFeatured:      m.IsFeatured,
	}, nil
}

func textValue(t pgtype.Text) string {
	if t.Valid {
		return t.String
	}
	return ""
}

func int4Ptr(i pgtype.Int4) *int32 {
	if !i.Valid {
		return nil
	}
	v := i.Int32
	return &v
}
