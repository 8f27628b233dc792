package domain

import "time"

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Claim is the identity and role carried by a session token.
// It is trusted for the duration of one request and never stored.
type Claim struct {
	UserID string   `json:"userId"`
	Role   UserRole `json:"role"`
}

// IsAdmin reports whether the claim carries the admin role.
func (c Claim) IsAdmin() bool {
	return c.Role == RoleAdmin
}

type Recipe struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	ImageURL    string    `json:"imageUrl"`
	Category    string    `json:"category"`
	PrepTime    *int      `json:"prepTime,omitempty"`
	CookTime    *int      `json:"cookTime,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	AuthorID    string    `json:"authorId"`
	Ratings     []Rating  `json:"ratings"`
}

// Clone returns a deep copy so callers never share the rating slice
// or the optional time fields with the owning store.
func (r Recipe) Clone() Recipe {
	out := r
	out.PrepTime = cloneInt(r.PrepTime)
	out.CookTime = cloneInt(r.CookTime)
	out.Ratings = make([]Rating, len(r.Ratings))
	copy(out.Ratings, r.Ratings)
	return out
}

// AverageRating is derived at read time; it is never stored.
func (r Recipe) AverageRating() (float64, int) {
	if len(r.Ratings) == 0 {
		return 0, 0
	}
	sum := 0
	for _, rt := range r.Ratings {
		sum += rt.Rating
	}
	return float64(sum) / float64(len(r.Ratings)), len(r.Ratings)
}

type Rating struct {
	UserID    string    `json:"userId"`
	Rating    int       `json:"rating"`
	Review    string    `json:"review,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RecipeFilter narrows a recipe listing. Empty fields do not filter.
type RecipeFilter struct {
	Search   string
	Category string
}

// RecipeInput carries the client-editable fields of a new recipe.
type RecipeInput struct {
	Slug        string
	Title       string
	Description string
	Content     string
	ImageURL    string
	Category    string
	PrepTime    *int
	CookTime    *int
}

// RecipePatch holds the fields of a partial update; nil means "leave unchanged".
type RecipePatch struct {
	Slug        *string
	Title       *string
	Description *string
	Content     *string
	ImageURL    *string
	Category    *string
	PrepTime    *int
	CookTime    *int
}

// Empty reports whether the patch carries no field at all.
func (p RecipePatch) Empty() bool {
	return p.Slug == nil && p.Title == nil && p.Description == nil && p.Content == nil &&
		p.ImageURL == nil && p.Category == nil && p.PrepTime == nil && p.CookTime == nil
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}
