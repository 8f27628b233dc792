package app

import (
	"errors"
	"fmt"

	"recipebook/pkg/auth"
	"recipebook/pkg/domain"
)

// AddFavorite links the caller to an existing recipe.
func (a *App) AddFavorite(claim *domain.Claim, recipeID string) error {
	if err := auth.Authorize(auth.RequireAuthenticated, claim); err != nil {
		return err
	}
	if recipeID == "" {
		return domain.NewValidationError("recipeId", "is required")
	}
	if err := a.store.AddFavorite(claim.UserID, recipeID); err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrConflict) {
			return err
		}
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite unlinks the caller from a recipe.
func (a *App) RemoveFavorite(claim *domain.Claim, recipeID string) error {
	if err := auth.Authorize(auth.RequireAuthenticated, claim); err != nil {
		return err
	}
	if recipeID == "" {
		return domain.NewValidationError("recipeId", "is required")
	}
	if err := a.store.RemoveFavorite(claim.UserID, recipeID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

// ListFavorites resolves the caller's favorites at read time. IDs whose
// recipe has been deleted are skipped.
func (a *App) ListFavorites(claim *domain.Claim) ([]domain.Recipe, error) {
	if err := auth.Authorize(auth.RequireAuthenticated, claim); err != nil {
		return nil, err
	}
	ids, err := a.store.ListFavoriteIDs(claim.UserID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	out := make([]domain.Recipe, 0, len(ids))
	for _, id := range ids {
		r, ok, err := a.store.GetRecipe(id)
		if err != nil {
			return nil, fmt.Errorf("resolve favorite %s: %w", id, err)
		}
		if !ok {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
