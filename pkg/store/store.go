package store

import (
	"time"

	"recipebook/pkg/domain"
)

// UserStore owns user records. CreateUser must reject a duplicate email
// atomically with domain.ErrEmailAlreadyExists.
type UserStore interface {
	CreateUser(domain.User) error
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)
	UserCount() (int, error)
}

// RecipeStore owns recipes and the ratings embedded in them.
type RecipeStore interface {
	InsertRecipe(domain.Recipe) error
	ListRecipes() ([]domain.Recipe, error)
	GetRecipe(id string) (domain.Recipe, bool, error)
	GetRecipeBySlug(slug string) (domain.Recipe, bool, error)
	UpdateRecipe(id string, patch domain.RecipePatch) (domain.Recipe, bool, error)
	DeleteRecipe(id string) (bool, error)

	// ratings
	UpsertRating(recipeID, userID string, rating int, review string, at time.Time) (domain.Recipe, bool, error)
	GetRating(recipeID, userID string) (domain.Rating, bool, error)
}

// FavoriteStore owns the per-user favorite sets. Entries are weak
// references: the recipe they name may since have been deleted.
type FavoriteStore interface {
	AddFavorite(userID, recipeID string) error
	RemoveFavorite(userID, recipeID string) error
	ListFavoriteIDs(userID string) ([]string, error)
}

// Store bundles every collection the application owns.
type Store interface {
	UserStore
	RecipeStore
	FavoriteStore
}

// SessionStore issues and resolves stateless session tokens.
type SessionStore interface {
	Issue(user domain.User) (string, error)
	Resolve(token string) (domain.Claim, bool)
}
