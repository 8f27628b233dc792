package app

import (
	"fmt"

	"recipebook/pkg/auth"
	"recipebook/pkg/domain"
)

// UpsertRating stores the caller's rating on a recipe, replacing any
// earlier one. It reports false when the recipe does not exist.
func (a *App) UpsertRating(claim *domain.Claim, recipeID string, rating int, review string) (domain.Recipe, bool, error) {
	if err := auth.Authorize(auth.RequireAuthenticated, claim); err != nil {
		return domain.Recipe{}, false, err
	}
	if err := ValidateRating(rating); err != nil {
		return domain.Recipe{}, false, err
	}
	r, ok, err := a.store.UpsertRating(recipeID, claim.UserID, rating, review, a.now())
	if err != nil {
		return domain.Recipe{}, false, fmt.Errorf("upsert rating: %w", err)
	}
	return r, ok, nil
}

// GetRating returns the caller's own rating on a recipe.
func (a *App) GetRating(claim *domain.Claim, recipeID string) (domain.Rating, bool, error) {
	if err := auth.Authorize(auth.RequireAuthenticated, claim); err != nil {
		return domain.Rating{}, false, err
	}
	rt, ok, err := a.store.GetRating(recipeID, claim.UserID)
	if err != nil {
		return domain.Rating{}, false, fmt.Errorf("get rating: %w", err)
	}
	return rt, ok, nil
}
