package app

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"recipebook/pkg/auth"
	"recipebook/pkg/domain"
)

// DefaultImageBaseURL hosts the demo recipe images.
const DefaultImageBaseURL = "http://localhost:3000"

// SeedAdmin ensures an admin account exists for email. Signup always
// assigns role user, so this is the only way an admin comes to exist.
// An existing account with that email is left untouched.
func (a *App) SeedAdmin(name, email, password string) (domain.User, bool, error) {
	existing, ok, err := a.FindByEmail(email)
	if err != nil {
		return domain.User{}, false, err
	}
	if ok {
		if existing.Role != domain.RoleAdmin {
			slog.Warn("seed admin: email belongs to a non-admin account", "user_id", existing.ID)
		}
		return existing, false, nil
	}
	if strings.TrimSpace(name) == "" {
		name = "Administrator"
	}
	if err := auth.ValidatePassword(password); err != nil {
		return domain.User{}, false, fmt.Errorf("seed admin: %w", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, false, fmt.Errorf("hash password: %w", err)
	}
	user, err := a.createUser(strings.TrimSpace(name), email, hash, domain.RoleAdmin)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// lost a race with a concurrent signup
			existing, _, ferr := a.FindByEmail(email)
			return existing, false, ferr
		}
		return domain.User{}, false, err
	}
	return user, true, nil
}

type demoRecipe struct {
	slug, title, description, content, image, category string
	prep, cook                                         int
}

var demoRecipes = []demoRecipe{
	{"banitsa", "Banitsa", "Cheese, eggs, and filo pastry. A classic Bulgarian breakfast.",
		"Mix filo pastry, eggs, cheese, and yogurt. Bake at 180°C for 40 minutes.", "/banitsa.jpg", "Breakfast", 15, 40},
	{"shopska-salad", "Shopska Salad", "Fresh salad with tomato, cucumber, and cheese.",
		"Combine tomato, cucumber, pepper, onion, parsley, and grated cheese. Season with olive oil and vinegar.", "/shopska-salad.jpg", "Salad", 10, 5},
	{"chicken-soup", "Chicken Soup", "Comforting homemade chicken soup with vegetables.",
		"Boil chicken with carrots, celery, onion, and seasoning. Simmer for 45 minutes. Serve hot with fresh herbs.", "/chicken-soup.jpg", "Soup", 15, 45},
	{"chocolate-cake", "Chocolate Cake", "Rich and moist chocolate cake with a silky frosting.",
		"Mix flour, cocoa, sugar, eggs, butter, and baking powder. Bake at 180°C for 30 minutes. Frost with chocolate ganache.", "/chocolate-cake.jpg", "Dessert", 20, 30},
	{"vegan-stir-fry", "Vegan Stir-Fry", "Colorful vegetables stir-fried in a savory sauce.",
		"Sauté broccoli, bell peppers, carrots, and tofu in soy sauce and garlic. Serve over rice or noodles.", "/vegan-stir-fry.jpg", "Vegan", 10, 15},
	{"tomato-soup", "Tomato Soup", "Smooth and creamy tomato soup perfect for any meal.",
		"Cook tomatoes, onion, and garlic until soft. Blend and simmer with vegetable broth. Serve with a drizzle of cream.", "/tomato-soup.jpg", "Soup", 10, 25},
}

// SeedDemoRecipes inserts the demo catalogue authored by authorID. Slugs
// already present are skipped, so repeated runs add nothing.
func (a *App) SeedDemoRecipes(authorID, imageBaseURL string) (int, error) {
	if strings.TrimSpace(authorID) == "" {
		return 0, errors.New("seed demo: author required")
	}
	base := strings.TrimRight(strings.TrimSpace(imageBaseURL), "/")
	if base == "" {
		base = DefaultImageBaseURL
	}
	added := 0
	for _, d := range demoRecipes {
		if _, ok, err := a.store.GetRecipeBySlug(d.slug); err != nil {
			return added, fmt.Errorf("seed demo %s: %w", d.slug, err)
		} else if ok {
			continue
		}
		prep, cook := d.prep, d.cook
		_, err := a.insertRecipe(authorID, domain.RecipeInput{
			Slug:        d.slug,
			Title:       d.title,
			Description: d.description,
			Content:     d.content,
			ImageURL:    base + d.image,
			Category:    d.category,
			PrepTime:    &prep,
			CookTime:    &cook,
		})
		if err != nil {
			if errors.Is(err, domain.ErrConflict) {
				continue
			}
			return added, fmt.Errorf("seed demo %s: %w", d.slug, err)
		}
		added++
	}
	return added, nil
}
