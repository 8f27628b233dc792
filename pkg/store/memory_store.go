package store

import (
	"sync"
	"time"

	"recipebook/pkg/domain"
)

// MemoryStore keeps every collection in-process. Each collection has its
// own lock so that unrelated operations do not serialize behind each other.
// Lock order, when more than one is held: favorites before recipes.
type MemoryStore struct {
	usersMu sync.RWMutex
	users   map[string]domain.User // key: user ID
	email   map[string]string      // email -> user ID

	recipesMu sync.RWMutex
	recipes   map[string]domain.Recipe
	slugs     map[string]string // slug -> recipe ID
	orders    []string

	favoritesMu sync.RWMutex
	favorites   map[string][]string // user ID -> recipe IDs
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]domain.User),
		email:     make(map[string]string),
		recipes:   make(map[string]domain.Recipe),
		slugs:     make(map[string]string),
		favorites: make(map[string][]string),
	}
}

// CreateUser registers a user unless the email is already taken.
func (m *MemoryStore) CreateUser(u domain.User) error {
	m.usersMu.Lock()
	defer m.usersMu.Unlock()
	if _, exists := m.email[u.Email]; exists {
		return domain.ErrEmailAlreadyExists
	}
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

// GetUserByEmail looks up a user by exact email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.usersMu.RLock()
	defer m.usersMu.RUnlock()
	if id, ok := m.email[email]; ok {
		u, exists := m.users[id]
		return u, exists, nil
	}
	return domain.User{}, false, nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.usersMu.RLock()
	defer m.usersMu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// UserCount returns number of users.
func (m *MemoryStore) UserCount() (int, error) {
	m.usersMu.RLock()
	defer m.usersMu.RUnlock()
	return len(m.users), nil
}

// InsertRecipe stores a new recipe and tracks insertion order.
func (m *MemoryStore) InsertRecipe(r domain.Recipe) error {
	m.recipesMu.Lock()
	defer m.recipesMu.Unlock()
	if _, exists := m.recipes[r.ID]; exists {
		return domain.ErrConflict
	}
	if _, taken := m.slugs[r.Slug]; taken {
		return domain.ErrSlugAlreadyExists
	}
	m.recipes[r.ID] = r.Clone()
	m.slugs[r.Slug] = r.ID
	m.orders = append(m.orders, r.ID)
	return nil
}

// ListRecipes returns recipes in insertion order.
func (m *MemoryStore) ListRecipes() ([]domain.Recipe, error) {
	m.recipesMu.RLock()
	defer m.recipesMu.RUnlock()
	res := make([]domain.Recipe, 0, len(m.orders))
	for _, id := range m.orders {
		if r, ok := m.recipes[id]; ok {
			res = append(res, r.Clone())
		}
	}
	return res, nil
}

// GetRecipe retrieves a recipe by ID.
func (m *MemoryStore) GetRecipe(id string) (domain.Recipe, bool, error) {
	m.recipesMu.RLock()
	defer m.recipesMu.RUnlock()
	r, ok := m.recipes[id]
	if !ok {
		return domain.Recipe{}, false, nil
	}
	return r.Clone(), true, nil
}

// GetRecipeBySlug retrieves a recipe by its slug.
func (m *MemoryStore) GetRecipeBySlug(slug string) (domain.Recipe, bool, error) {
	m.recipesMu.RLock()
	defer m.recipesMu.RUnlock()
	id, ok := m.slugs[slug]
	if !ok {
		return domain.Recipe{}, false, nil
	}
	r, ok := m.recipes[id]
	if !ok {
		return domain.Recipe{}, false, nil
	}
	return r.Clone(), true, nil
}

// UpdateRecipe merges the non-nil patch fields onto an existing recipe.
// ID, CreatedAt, AuthorID and Ratings are never touched.
func (m *MemoryStore) UpdateRecipe(id string, patch domain.RecipePatch) (domain.Recipe, bool, error) {
	m.recipesMu.Lock()
	defer m.recipesMu.Unlock()
	r, ok := m.recipes[id]
	if !ok {
		return domain.Recipe{}, false, nil
	}
	if patch.Slug != nil && *patch.Slug != r.Slug {
		if owner, taken := m.slugs[*patch.Slug]; taken && owner != id {
			return domain.Recipe{}, true, domain.ErrSlugAlreadyExists
		}
		delete(m.slugs, r.Slug)
		r.Slug = *patch.Slug
		m.slugs[r.Slug] = id
	}
	if patch.Title != nil {
		r.Title = *patch.Title
	}
	if patch.Description != nil {
		r.Description = *patch.Description
	}
	if patch.Content != nil {
		r.Content = *patch.Content
	}
	if patch.ImageURL != nil {
		r.ImageURL = *patch.ImageURL
	}
	if patch.Category != nil {
		r.Category = *patch.Category
	}
	if patch.PrepTime != nil {
		n := *patch.PrepTime
		r.PrepTime = &n
	}
	if patch.CookTime != nil {
		n := *patch.CookTime
		r.CookTime = &n
	}
	m.recipes[id] = r
	return r.Clone(), true, nil
}

// DeleteRecipe removes a recipe and its ratings. Favorites pointing at it
// are left in place.
func (m *MemoryStore) DeleteRecipe(id string) (bool, error) {
	m.recipesMu.Lock()
	defer m.recipesMu.Unlock()
	r, ok := m.recipes[id]
	if !ok {
		return false, nil
	}
	delete(m.recipes, id)
	if m.slugs[r.Slug] == id {
		delete(m.slugs, r.Slug)
	}
	filtered := m.orders[:0]
	for _, item := range m.orders {
		if item != id {
			filtered = append(filtered, item)
		}
	}
	m.orders = filtered
	return true, nil
}

// UpsertRating records one rating per user per recipe, overwriting any
// previous value and review in place.
func (m *MemoryStore) UpsertRating(recipeID, userID string, rating int, review string, at time.Time) (domain.Recipe, bool, error) {
	m.recipesMu.Lock()
	defer m.recipesMu.Unlock()
	r, ok := m.recipes[recipeID]
	if !ok {
		return domain.Recipe{}, false, nil
	}
	for i := range r.Ratings {
		if r.Ratings[i].UserID == userID {
			r.Ratings[i].Rating = rating
			r.Ratings[i].Review = review
			r.Ratings[i].UpdatedAt = at
			m.recipes[recipeID] = r
			return r.Clone(), true, nil
		}
	}
	r.Ratings = append(r.Ratings, domain.Rating{
		UserID:    userID,
		Rating:    rating,
		Review:    review,
		CreatedAt: at,
		UpdatedAt: at,
	})
	m.recipes[recipeID] = r
	return r.Clone(), true, nil
}

// GetRating returns the rating userID left on recipeID.
func (m *MemoryStore) GetRating(recipeID, userID string) (domain.Rating, bool, error) {
	m.recipesMu.RLock()
	defer m.recipesMu.RUnlock()
	r, ok := m.recipes[recipeID]
	if !ok {
		return domain.Rating{}, false, nil
	}
	for _, rt := range r.Ratings {
		if rt.UserID == userID {
			return rt, true, nil
		}
	}
	return domain.Rating{}, false, nil
}

// AddFavorite links a user to an existing recipe.
func (m *MemoryStore) AddFavorite(userID, recipeID string) error {
	m.favoritesMu.Lock()
	defer m.favoritesMu.Unlock()
	m.recipesMu.RLock()
	_, exists := m.recipes[recipeID]
	m.recipesMu.RUnlock()
	if !exists {
		return domain.ErrRecipeNotFound
	}
	for _, id := range m.favorites[userID] {
		if id == recipeID {
			return domain.ErrAlreadyFavorited
		}
	}
	m.favorites[userID] = append(m.favorites[userID], recipeID)
	return nil
}

// RemoveFavorite unlinks a user from a recipe.
func (m *MemoryStore) RemoveFavorite(userID, recipeID string) error {
	m.favoritesMu.Lock()
	defer m.favoritesMu.Unlock()
	ids := m.favorites[userID]
	for i, id := range ids {
		if id != recipeID {
			continue
		}
		ids = append(ids[:i], ids[i+1:]...)
		if len(ids) == 0 {
			delete(m.favorites, userID)
		} else {
			m.favorites[userID] = ids
		}
		return nil
	}
	return domain.ErrNotFavorited
}

// ListFavoriteIDs returns the recipe IDs a user favorited. Some may no
// longer resolve.
func (m *MemoryStore) ListFavoriteIDs(userID string) ([]string, error) {
	m.favoritesMu.RLock()
	defer m.favoritesMu.RUnlock()
	ids := m.favorites[userID]
	out := make([]string, len(ids))
	copy(out, ids)
	return out, nil
}
