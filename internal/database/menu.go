package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuItemColumns = `id, category_id, name, description, price, image_url,
	is_available, status, preparation_time, spice_level, dietary_tags, is_featured,
	created_at, updated_at`

func scanMenuItem(row pgx.Row) (MenuItem, error) {
	var m MenuItem
	err := row.Scan(
		&m.ID, &m.CategoryID, &m.Name, &m.Description, &m.Price, &m.ImageUrl,
		&m.IsAvailable, &m.Status, &m.PreparationTime, &m.SpiceLevel, &m.DietaryTags, &m.IsFeatured,
		&m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}

func collectMenuItems(rows pgx.Rows) ([]MenuItem, error) {
	defer rows.Close()
	var items []MenuItem
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const categoryColumns = `id, name, description, image_url, display_order, is_active, created_at, updated_at`

func scanMenuCategory(row pgx.Row) (MenuCategory, error) {
	var c MenuCategory
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.ImageUrl, &c.DisplayOrder, &c.IsActive,
		&c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func collectMenuCategories(rows pgx.Rows) ([]MenuCategory, error) {
	defer rows.Close()
	var cats []MenuCategory
	for rows.Next() {
		c, err := scanMenuCategory(rows)
		if err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// ── Categories ──

type CreateMenuCategoryParams struct {
	Name         string
	Description  pgtype.Text
	ImageUrl     pgtype.Text
	DisplayOrder int32
}

const createMenuCategory = `
INSERT INTO menu_categories (name, description, image_url, display_order)
VALUES ($1, $2, $3, $4)
RETURNING ` + categoryColumns

func (q *Queries) CreateMenuCategory(ctx context.Context, arg CreateMenuCategoryParams) (MenuCategory, error) {
	row := q.db.QueryRow(ctx, createMenuCategory, arg.Name, arg.Description, arg.ImageUrl, arg.DisplayOrder)
	return scanMenuCategory(row)
}

type UpdateMenuCategoryParams struct {
	ID           uuid.UUID
	Name         string
	Description  pgtype.Text
	ImageUrl     pgtype.Text
	DisplayOrder int32
	IsActive     bool
}

const updateMenuCategory = `
UPDATE menu_categories
SET name = $2, description = $3, image_url = $4, display_order = $5, is_active = $6, updated_at = now()
WHERE id = $1
RETURNING ` + categoryColumns

func (q *Queries) UpdateMenuCategory(ctx context.Context, arg UpdateMenuCategoryParams) (MenuCategory, error) {
	row := q.db.QueryRow(ctx, updateMenuCategory,
		arg.ID, arg.Name, arg.Description, arg.ImageUrl, arg.DisplayOrder, arg.IsActive)
	return scanMenuCategory(row)
}

const deleteMenuCategory = `DELETE FROM menu_categories WHERE id = $1`

func (q *Queries) DeleteMenuCategory(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteMenuCategory, id)
	return err
}

const listMenuCategories = `SELECT ` + categoryColumns + ` FROM menu_categories ORDER BY display_order, name`

func (q *Queries) ListMenuCategories(ctx context.Context) ([]MenuCategory, error) {
	rows, err := q.db.Query(ctx, listMenuCategories)
	if err != nil {
		return nil, err
	}
	return collectMenuCategories(rows)
}

const listActiveMenuCategories = `
SELECT ` + categoryColumns + `
FROM menu_categories
WHERE is_active = TRUE
ORDER BY display_order, name
`

func (q *Queries) ListActiveMenuCategories(ctx context.Context) ([]MenuCategory, error) {
	rows, err := q.db.Query(ctx, listActiveMenuCategories)
	if err != nil {
		return nil, err
	}
	return collectMenuCategories(rows)
}

// ── Items ──

type CreateMenuItemParams struct {
	CategoryID      uuid.UUID
	Name            string
	Description     pgtype.Text
	Price           pgtype.Numeric
	ImageUrl        pgtype.Text
	IsAvailable     bool
	Status          MenuItemStatus
	PreparationTime pgtype.Int4
	SpiceLevel      pgtype.Int4
	DietaryTags     pgtype.Text
	IsFeatured      bool
}

const createMenuItem = `
INSERT INTO menu_items (
	category_id, name, description, price, image_url,
	is_available, status, preparation_time, spice_level, dietary_tags, is_featured
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + menuItemColumns

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, createMenuItem,
		arg.CategoryID, arg.Name, arg.Description, arg.Price, arg.ImageUrl,
		arg.IsAvailable, arg.Status, arg.PreparationTime, arg.SpiceLevel, arg.DietaryTags, arg.IsFeatured,
	)
	return scanMenuItem(row)
}

type UpdateMenuItemParams struct {
	ID              uuid.UUID
	CategoryID      uuid.UUID
	Name            string
	Description     pgtype.Text
	Price           pgtype.Numeric
	ImageUrl        pgtype.Text
	PreparationTime pgtype.Int4
	SpiceLevel      pgtype.Int4
	DietaryTags     pgtype.Text
	IsFeatured      bool
}

const updateMenuItem = `
UPDATE menu_items
SET category_id = $2, name = $3, description = $4, price = $5, image_url = $6,
    preparation_time = $7, spice_level = $8, dietary_tags = $9, is_featured = $10,
    updated_at = now()
WHERE id = $1
RETURNING ` + menuItemColumns

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, updateMenuItem,
		arg.ID, arg.CategoryID, arg.Name, arg.Description, arg.Price, arg.ImageUrl,
		arg.PreparationTime, arg.SpiceLevel, arg.DietaryTags, arg.IsFeatured,
	)
	return scanMenuItem(row)
}

type UpdateMenuItemAvailabilityParams struct {
	ID          uuid.UUID
	IsAvailable bool
	Status      MenuItemStatus
}

const updateMenuItemAvailability = `
UPDATE menu_items
SET is_available = $2, status = $3, updated_at = now()
WHERE id = $1
RETURNING ` + menuItemColumns

func (q *Queries) UpdateMenuItemAvailability(ctx context.Context, arg UpdateMenuItemAvailabilityParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, updateMenuItemAvailability, arg.ID, arg.IsAvailable, arg.Status)
	return scanMenuItem(row)
}

const deleteMenuItem = `DELETE FROM menu_items WHERE id = $1`

func (q *Queries) DeleteMenuItem(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteMenuItem, id)
	return err
}

const getMenuItem = `SELECT ` + menuItemColumns + ` FROM menu_items WHERE id = $1`

func (q *Queries) GetMenuItem(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, getMenuItem, id))
}

const listMenuItems = `SELECT ` + menuItemColumns + ` FROM menu_items ORDER BY name`

func (q *Queries) ListMenuItems(ctx context.Context) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItems)
	if err != nil {
		return nil, err
	}
	return collectMenuItems(rows)
}

// ListVisibleMenuItems returns items shown on the public menu: everything in
// an active category that is not hidden. Unavailable items still appear so
// the storefront can grey them out.
const listVisibleMenuItems = `
SELECT ` + menuItemColumns + `
FROM menu_items
WHERE status <> 'hidden'
  AND category_id IN (SELECT id FROM menu_categories WHERE is_active = TRUE)
ORDER BY name
`

func (q *Queries) ListVisibleMenuItems(ctx context.Context) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listVisibleMenuItems)
	if err != nil {
		return nil, err
	}
	return collectMenuItems(rows)
}
