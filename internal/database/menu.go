package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getMenuItem = `
SELECT id, name, category, base_price, is_active, created_at, updated_at
FROM menu_items
WHERE id = $1
`

func (q *Queries) GetMenuItem(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	var m MenuItem
	err := q.db.QueryRow(ctx, getMenuItem, id).
		Scan(&m.ID, &m.Name, &m.Category, &m.BasePrice, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

type ListMenuItemsParams struct {
	Limit  int32
	Offset int32
}

const listMenuItems = `
SELECT id, name, category, base_price, is_active, created_at, updated_at
FROM menu_items
ORDER BY name
LIMIT $1 OFFSET $2
`

func (q *Queries) ListMenuItems(ctx context.Context, arg ListMenuItemsParams) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItems, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MenuItem
	for rows.Next() {
		var m MenuItem
		if err := rows.Scan(&m.ID, &m.Name, &m.Category, &m.BasePrice, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const getMenuVariant = `
SELECT id, menu_item_id, name, price_modifier, is_active
FROM menu_variants
WHERE id = $1
`

func (q *Queries) GetMenuVariant(ctx context.Context, id uuid.UUID) (MenuVariant, error) {
	var v MenuVariant
	err := q.db.QueryRow(ctx, getMenuVariant, id).
		Scan(&v.ID, &v.MenuItemID, &v.Name, &v.PriceModifier, &v.IsActive)
	return v, err
}

const listMenuVariantsByItem = `
SELECT id, menu_item_id, name, price_modifier, is_active
FROM menu_variants
WHERE menu_item_id = $1
ORDER BY name
`

func (q *Queries) ListMenuVariantsByItem(ctx context.Context, menuItemID uuid.UUID) ([]MenuVariant, error) {
	rows, err := q.db.Query(ctx, listMenuVariantsByItem, menuItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MenuVariant
	for rows.Next() {
		var v MenuVariant
		if err := rows.Scan(&v.ID, &v.MenuItemID, &v.Name, &v.PriceModifier, &v.IsActive); err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

type GetLatestRecipeVersionParams struct {
	MenuItemID uuid.UUID
	VariantID  pgtype.UUID
}

const getLatestRecipeVersion = `
SELECT COALESCE(MAX(version), 0)
FROM recipes
WHERE menu_item_id = $1 AND variant_id IS NOT DISTINCT FROM $2
`

// GetLatestRecipeVersion returns the current recipe version for the exact
// (menu item, variant) key — 0 when no recipe set exists for that key.
func (q *Queries) GetLatestRecipeVersion(ctx context.Context, arg GetLatestRecipeVersionParams) (int32, error) {
	var v int32
	err := q.db.QueryRow(ctx, getLatestRecipeVersion, arg.MenuItemID, arg.VariantID).Scan(&v)
	return v, err
}

type ListRecipeSetParams struct {
	MenuItemID uuid.UUID
	VariantID  pgtype.UUID
	Version    int32
}

const listRecipeSet = `
SELECT id, menu_item_id, variant_id, ingredient_id, quantity_required, unit, version
FROM recipes
WHERE menu_item_id = $1 AND variant_id IS NOT DISTINCT FROM $2 AND version = $3
ORDER BY ingredient_id
`

// ListRecipeSet returns the recipe rows for the exact (menu item, variant,
// version) key. Variant recipe sets fully replace the base set; the query
// never falls back across keys.
func (q *Queries) ListRecipeSet(ctx context.Context, arg ListRecipeSetParams) ([]Recipe, error) {
	rows, err := q.db.Query(ctx, listRecipeSet, arg.MenuItemID, arg.VariantID, arg.Version)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Recipe
	for rows.Next() {
		var r Recipe
		if err := rows.Scan(&r.ID, &r.MenuItemID, &r.VariantID, &r.IngredientID,
			&r.QuantityRequired, &r.Unit, &r.Version); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const getIngredient = `
SELECT id, name, unit, cost_per_unit, created_at
FROM ingredients
WHERE id = $1
`

func (q *Queries) GetIngredient(ctx context.Context, id uuid.UUID) (Ingredient, error) {
	var i Ingredient
	err := q.db.QueryRow(ctx, getIngredient, id).
		Scan(&i.ID, &i.Name, &i.Unit, &i.CostPerUnit, &i.CreatedAt)
	return i, err
}

const listIngredients = `
SELECT id, name, unit, cost_per_unit, created_at
FROM ingredients
ORDER BY name
`

func (q *Queries) ListIngredients(ctx context.Context) ([]Ingredient, error) {
	rows, err := q.db.Query(ctx, listIngredients)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Ingredient
	for rows.Next() {
		var i Ingredient
		if err := rows.Scan(&i.ID, &i.Name, &i.Unit, &i.CostPerUnit, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
