package app

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"recipebook/pkg/domain"
)

// MinContentLength is the shortest instructions text accepted.
const MinContentLength = 10

func validateRecipeInput(in domain.RecipeInput) error {
	issues := &domain.ValidationError{}
	requireText(issues, "slug", in.Slug)
	requireText(issues, "title", in.Title)
	requireText(issues, "description", in.Description)
	requireText(issues, "category", in.Category)
	checkContent(issues, in.Content)
	checkImageURL(issues, in.ImageURL)
	checkMinutes(issues, "prepTime", in.PrepTime)
	checkMinutes(issues, "cookTime", in.CookTime)
	return issues.Err()
}

func validateRecipePatch(p domain.RecipePatch) error {
	issues := &domain.ValidationError{}
	if p.Slug != nil {
		requireText(issues, "slug", *p.Slug)
	}
	if p.Title != nil {
		requireText(issues, "title", *p.Title)
	}
	if p.Description != nil {
		requireText(issues, "description", *p.Description)
	}
	if p.Category != nil {
		requireText(issues, "category", *p.Category)
	}
	if p.Content != nil {
		checkContent(issues, *p.Content)
	}
	if p.ImageURL != nil {
		checkImageURL(issues, *p.ImageURL)
	}
	checkMinutes(issues, "prepTime", p.PrepTime)
	checkMinutes(issues, "cookTime", p.CookTime)
	return issues.Err()
}

func requireText(issues *domain.ValidationError, field, v string) {
	if strings.TrimSpace(v) == "" {
		issues.Add(field, "is required")
	}
}

func checkContent(issues *domain.ValidationError, v string) {
	if utf8.RuneCountInString(strings.TrimSpace(v)) < MinContentLength {
		issues.Add("content", fmt.Sprintf("must be at least %d characters", MinContentLength))
	}
}

func checkImageURL(issues *domain.ValidationError, v string) {
	if !validImageURL(v) {
		issues.Add("imageUrl", "must be an absolute http(s) URL")
	}
}

func checkMinutes(issues *domain.ValidationError, field string, v *int) {
	if v != nil && *v < 0 {
		issues.Add(field, "must not be negative")
	}
}

func validImageURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// ValidateRating checks the boundary rule for a rating value.
func ValidateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return domain.NewValidationError("rating", "must be an integer between 1 and 5")
	}
	return nil
}
