package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"recipebook/pkg/domain"
	"recipebook/services/recipes/internal/app"
)

var errInvalidJSON = errors.New("invalid JSON body")

// Server-owned recipe fields. A payload naming any of them is rejected.
var immutableRecipeFields = []string{"id", "createdAt", "authorId", "ratings"}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type favoriteRequest struct {
	RecipeID string `json:"recipeId"`
}

// minutes accepts a JSON number or a numeric string; HTML forms post the
// latter. Empty string and null mean "not provided".
type minutes struct {
	value *int
}

func (m *minutes) UnmarshalJSON(data []byte) error {
	v, err := parseMinutes(data)
	if err != nil {
		return err
	}
	m.value = v
	return nil
}

var errInvalidMinutes = errors.New("must be a whole number of minutes")

func parseMinutes(data []byte) (*int, error) {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil, nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, errInvalidMinutes
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			return nil, nil
		}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, errInvalidMinutes
	}
	return &n, nil
}

type recipeRequest struct {
	Slug        *string  `json:"slug"`
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Content     *string  `json:"content"`
	ImageURL    *string  `json:"imageUrl"`
	Category    *string  `json:"category"`
	PrepTime    *minutes `json:"prepTime"`
	CookTime    *minutes `json:"cookTime"`
}

func (req recipeRequest) input() domain.RecipeInput {
	return domain.RecipeInput{
		Slug:        deref(req.Slug),
		Title:       deref(req.Title),
		Description: deref(req.Description),
		Content:     deref(req.Content),
		ImageURL:    deref(req.ImageURL),
		Category:    deref(req.Category),
		PrepTime:    req.PrepTime.ptr(),
		CookTime:    req.CookTime.ptr(),
	}
}

func (req recipeRequest) patch() domain.RecipePatch {
	return domain.RecipePatch{
		Slug:        req.Slug,
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		ImageURL:    req.ImageURL,
		Category:    req.Category,
		PrepTime:    req.PrepTime.ptr(),
		CookTime:    req.CookTime.ptr(),
	}
}

func (m *minutes) ptr() *int {
	if m == nil {
		return nil
	}
	return m.value
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// decodeRecipeRequest reads a create or update body. Server-owned fields
// and unknown fields are rejected rather than ignored.
func decodeRecipeRequest(r *http.Request) (recipeRequest, error) {
	var req recipeRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return req, errInvalidJSON
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(body, &keys); err != nil {
		return req, errInvalidJSON
	}
	issues := &domain.ValidationError{}
	for _, field := range immutableRecipeFields {
		if _, ok := keys[field]; ok {
			issues.Add(field, "is assigned by the server and cannot be set")
		}
	}
	for _, field := range []string{"prepTime", "cookTime"} {
		if raw, ok := keys[field]; ok {
			if _, err := parseMinutes(raw); err != nil {
				issues.Add(field, err.Error())
			}
		}
	}
	if err := issues.Err(); err != nil {
		return req, err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if strings.HasPrefix(err.Error(), "json: unknown field ") {
			name := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
			return req, domain.NewValidationError(name, "is not a recipe field")
		}
		return req, errInvalidJSON
	}
	return req, nil
}

func decodeRecipePatch(r *http.Request) (domain.RecipePatch, error) {
	req, err := decodeRecipeRequest(r)
	if err != nil {
		return domain.RecipePatch{}, err
	}
	patch := req.patch()
	if patch.Empty() {
		return patch, domain.NewValidationError("body", "no recipe fields to update")
	}
	return patch, nil
}

type ratingRequest struct {
	RecipeID string      `json:"recipeId"`
	Rating   json.Number `json:"rating"`
	Review   string      `json:"review"`
}

type ratingInput struct {
	recipeID string
	rating   int
	review   string
}

// decodeRatingRequest validates the rating bounds before the core sees it.
func decodeRatingRequest(r *http.Request) (ratingInput, error) {
	var req ratingRequest
	if err := decodeJSON(r, &req); err != nil {
		return ratingInput{}, errInvalidJSON
	}
	issues := &domain.ValidationError{}
	recipeID := strings.TrimSpace(req.RecipeID)
	if recipeID == "" {
		issues.Add("recipeId", "is required")
	}
	n, err := strconv.Atoi(req.Rating.String())
	if err != nil {
		issues.Add("rating", "must be an integer between 1 and 5")
	} else if app.ValidateRating(n) != nil {
		issues.Add("rating", "must be an integer between 1 and 5")
	}
	if err := issues.Err(); err != nil {
		return ratingInput{}, err
	}
	return ratingInput{recipeID: recipeID, rating: n, review: strings.TrimSpace(req.Review)}, nil
}

// recipeResponse adds the read-time rating aggregate to a recipe.
type recipeResponse struct {
	domain.Recipe
	AverageRating float64 `json:"averageRating"`
	RatingCount   int     `json:"ratingCount"`
}

func toRecipeResponse(r domain.Recipe) recipeResponse {
	if r.Ratings == nil {
		r.Ratings = []domain.Rating{}
	}
	avg, n := r.AverageRating()
	return recipeResponse{Recipe: r, AverageRating: avg, RatingCount: n}
}

func toRecipeResponses(recipes []domain.Recipe) []recipeResponse {
	out := make([]recipeResponse, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, toRecipeResponse(r))
	}
	return out
}
