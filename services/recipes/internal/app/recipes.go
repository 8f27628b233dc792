package app

import (
	"errors"
	"fmt"
	"strings"

	"recipebook/pkg/auth"
	"recipebook/pkg/domain"
	"recipebook/pkg/store"
)

// ListRecipes returns recipes in creation order. Search matches title or
// content case-insensitively; category is a case-insensitive exact match.
// Both filters are ANDed.
func (a *App) ListRecipes(claim *domain.Claim, filter domain.RecipeFilter) ([]domain.Recipe, error) {
	if err := auth.Authorize(auth.ReadPublic, claim); err != nil {
		return nil, err
	}
	all, err := a.store.ListRecipes()
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	category := strings.TrimSpace(filter.Category)
	out := make([]domain.Recipe, 0, len(all))
	for _, r := range all {
		if search != "" &&
			!strings.Contains(strings.ToLower(r.Title), search) &&
			!strings.Contains(strings.ToLower(r.Content), search) {
			continue
		}
		if category != "" && !strings.EqualFold(r.Category, category) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// ListRecipesByAuthor returns the recipes the caller authored.
func (a *App) ListRecipesByAuthor(claim *domain.Claim) ([]domain.Recipe, error) {
	if err := auth.Authorize(auth.RequireAuthenticated, claim); err != nil {
		return nil, err
	}
	all, err := a.store.ListRecipes()
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	out := make([]domain.Recipe, 0)
	for _, r := range all {
		if r.AuthorID == claim.UserID {
			out = append(out, r)
		}
	}
	return out, nil
}

// GetRecipe returns a recipe by ID.
func (a *App) GetRecipe(claim *domain.Claim, id string) (domain.Recipe, bool, error) {
	if err := auth.Authorize(auth.ReadPublic, claim); err != nil {
		return domain.Recipe{}, false, err
	}
	r, ok, err := a.store.GetRecipe(id)
	if err != nil {
		return domain.Recipe{}, false, fmt.Errorf("get recipe: %w", err)
	}
	return r, ok, nil
}

// GetRecipeBySlug returns the recipe holding slug.
func (a *App) GetRecipeBySlug(claim *domain.Claim, slug string) (domain.Recipe, bool, error) {
	if err := auth.Authorize(auth.ReadPublic, claim); err != nil {
		return domain.Recipe{}, false, err
	}
	r, ok, err := a.store.GetRecipeBySlug(slug)
	if err != nil {
		return domain.Recipe{}, false, fmt.Errorf("get recipe by slug: %w", err)
	}
	return r, ok, nil
}

// CreateRecipe stores a new recipe authored by the caller.
func (a *App) CreateRecipe(claim *domain.Claim, in domain.RecipeInput) (domain.Recipe, error) {
	if err := auth.Authorize(auth.RequireAdmin, claim); err != nil {
		return domain.Recipe{}, err
	}
	return a.insertRecipe(claim.UserID, in)
}

func (a *App) insertRecipe(authorID string, in domain.RecipeInput) (domain.Recipe, error) {
	if err := validateRecipeInput(in); err != nil {
		return domain.Recipe{}, err
	}
	r := domain.Recipe{
		ID:          store.NewID(),
		Slug:        strings.TrimSpace(in.Slug),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Content:     in.Content,
		ImageURL:    strings.TrimSpace(in.ImageURL),
		Category:    strings.TrimSpace(in.Category),
		PrepTime:    in.PrepTime,
		CookTime:    in.CookTime,
		CreatedAt:   a.now(),
		AuthorID:    authorID,
		Ratings:     []domain.Rating{},
	}
	if err := a.store.InsertRecipe(r); err != nil {
		return domain.Recipe{}, fmt.Errorf("insert recipe: %w", err)
	}
	return r.Clone(), nil
}

// UpdateRecipe merges the provided fields onto recipe id. It reports false
// when the recipe does not exist.
func (a *App) UpdateRecipe(claim *domain.Claim, id string, patch domain.RecipePatch) (domain.Recipe, bool, error) {
	if err := auth.Authorize(auth.RequireAdmin, claim); err != nil {
		return domain.Recipe{}, false, err
	}
	if err := validateRecipePatch(patch); err != nil {
		return domain.Recipe{}, false, err
	}
	patch = trimPatch(patch)
	r, ok, err := a.store.UpdateRecipe(id, patch)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.Recipe{}, ok, err
		}
		return domain.Recipe{}, ok, fmt.Errorf("update recipe: %w", err)
	}
	return r, ok, nil
}

// DeleteRecipe removes recipe id and its ratings. Favorites naming it are
// left to dangle.
func (a *App) DeleteRecipe(claim *domain.Claim, id string) (bool, error) {
	if err := auth.Authorize(auth.RequireAdmin, claim); err != nil {
		return false, err
	}
	ok, err := a.store.DeleteRecipe(id)
	if err != nil {
		return false, fmt.Errorf("delete recipe: %w", err)
	}
	return ok, nil
}

func trimPatch(p domain.RecipePatch) domain.RecipePatch {
	trim := func(v *string) *string {
		if v == nil {
			return nil
		}
		s := strings.TrimSpace(*v)
		return &s
	}
	p.Slug = trim(p.Slug)
	p.Title = trim(p.Title)
	p.Description = trim(p.Description)
	p.ImageURL = trim(p.ImageURL)
	p.Category = trim(p.Category)
	return p
}

// ListCategories returns the distinct recipe categories in first-seen order.
func (a *App) ListCategories(claim *domain.Claim) ([]string, error) {
	if err := auth.Authorize(auth.ReadPublic, claim); err != nil {
		return nil, err
	}
	all, err := a.store.ListRecipes()
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	seen := make(map[string]struct{}, len(all))
	out := make([]string, 0)
	for _, r := range all {
		key := strings.ToLower(r.Category)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r.Category)
	}
	return out, nil
}
