package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kopitiam-pos/api/internal/database"
)

// RecipeStore defines the DB methods needed to resolve recipes.
type RecipeStore interface {
	GetLatestRecipeVersion(ctx context.Context, arg database.GetLatestRecipeVersionParams) (int32, error)
	ListRecipeSet(ctx context.Context, arg database.ListRecipeSetParams) ([]database.Recipe, error)
}

// resolvedRecipe is the recipe set picked for an order line. SetVariantID is
// the key the set lives under: the variant's ID when the variant has its own
// recipe, null when the base set applied. Order items snapshot both the
// version and this key, so a refund re-reads the exact set that was deducted.
type resolvedRecipe struct {
	Lines        []database.Recipe
	Version      int32
	SetVariantID pgtype.UUID
}

// resolveRecipe returns the recipe set for a menu item in a given variant. A
// variant with its own recipe replaces the base recipe entirely; only when
// the variant has none does the base recipe apply.
func resolveRecipe(ctx context.Context, store RecipeStore, item database.MenuItem, variantID pgtype.UUID) (resolvedRecipe, error) {
	if variantID.Valid {
		version, err := store.GetLatestRecipeVersion(ctx, database.GetLatestRecipeVersionParams{
			MenuItemID: item.ID,
			VariantID:  variantID,
		})
		if err != nil {
			return resolvedRecipe{}, fmt.Errorf("latest variant recipe version: %w", err)
		}
		if version > 0 {
			lines, err := store.ListRecipeSet(ctx, database.ListRecipeSetParams{
				MenuItemID: item.ID,
				VariantID:  variantID,
				Version:    version,
			})
			if err != nil {
				return resolvedRecipe{}, fmt.Errorf("list variant recipe: %w", err)
			}
			return resolvedRecipe{Lines: lines, Version: version, SetVariantID: variantID}, nil
		}
	}

	base := pgtype.UUID{}
	version, err := store.GetLatestRecipeVersion(ctx, database.GetLatestRecipeVersionParams{
		MenuItemID: item.ID,
		VariantID:  base,
	})
	if err != nil {
		return resolvedRecipe{}, fmt.Errorf("latest recipe version: %w", err)
	}
	if version == 0 {
		return resolvedRecipe{}, fmt.Errorf("%w: %s", ErrRecipeNotFound, item.Name)
	}
	lines, err := store.ListRecipeSet(ctx, database.ListRecipeSetParams{
		MenuItemID: item.ID,
		VariantID:  base,
		Version:    version,
	})
	if err != nil {
		return resolvedRecipe{}, fmt.Errorf("list recipe: %w", err)
	}
	if len(lines) == 0 {
		return resolvedRecipe{}, fmt.Errorf("%w: %s", ErrRecipeNotFound, item.Name)
	}
	return resolvedRecipe{Lines: lines, Version: version, SetVariantID: base}, nil
}

// recipeSetForVersion loads the exact recipe set an order item was created
// with, keyed by the snapshotted (recipe_variant_id, version). Guessing the
// key from the sold variant would be wrong once a variant set is added after
// a sale that fell back to the base set: both sequences start at version 1,
// so the numbers collide.
func recipeSetForVersion(ctx context.Context, store RecipeStore, item database.OrderItem) ([]database.Recipe, error) {
	lines, err := store.ListRecipeSet(ctx, database.ListRecipeSetParams{
		MenuItemID: item.MenuItemID,
		VariantID:  item.RecipeVariantID,
		Version:    item.RecipeVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("list recipe version %d: %w", item.RecipeVersion, err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: version %d", ErrRecipeNotFound, item.RecipeVersion)
	}
	return lines, nil
}
