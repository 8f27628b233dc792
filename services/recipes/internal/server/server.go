package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"recipebook/internal/ratelimit"
	"recipebook/internal/util"
	"recipebook/pkg/auth"
	"recipebook/pkg/domain"
	"recipebook/services/recipes/internal/app"
)

const maxBodyBytes = 1 << 20

// Config wires required dependencies for the HTTP server. Nil limiters
// disable rate limiting for that endpoint.
type Config struct {
	App            *app.App
	SignupLimiter  ratelimit.Limiter
	LoginLimiter   ratelimit.Limiter
	TrustedProxies *util.TrustedProxies
	AllowedOrigins []string
}

// Server exposes the recipe API over HTTP.
type Server struct {
	app            *app.App
	mux            *http.ServeMux
	signupLimiter  ratelimit.Limiter
	loginLimiter   ratelimit.Limiter
	trustedProxies *util.TrustedProxies
	cors           func(http.Handler) http.Handler
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("server: app is required")
	}
	s := &Server{
		app:            cfg.App,
		mux:            http.NewServeMux(),
		signupLimiter:  cfg.SignupLimiter,
		loginLimiter:   cfg.LoginLimiter,
		trustedProxies: cfg.TrustedProxies,
		cors:           util.CORS(cfg.AllowedOrigins),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("recipes", util.WithSecurityHeaders(s.cors(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth
	s.mux.HandleFunc("/api/auth/signup", s.handleSignup)
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)
	s.mux.HandleFunc("/api/auth/session", s.handleSession)

	// recipes
	s.mux.HandleFunc("/api/recipes", s.handleRecipes)
	s.mux.HandleFunc("/api/recipes/", s.handleRecipeSubtree)

	// per-user collections
	s.mux.HandleFunc("/api/favorites", s.handleFavorites)
	s.mux.HandleFunc("/api/ratings", s.handleRatings)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// claim resolves the bearer token. A missing or invalid token is "no
// claim"; the operation decides whether that is acceptable.
func (s *Server) claim(r *http.Request) *domain.Claim {
	token, ok := bearerToken(r)
	if !ok {
		return nil
	}
	claim := s.app.ResolveToken(token)
	if claim == nil {
		s.audit(r, "recipes.token.resolve", "fail", "reason", "invalid_or_expired")
	}
	return claim
}

// auth handlers
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.signupLimiter, "too many signup attempts") {
		s.audit(r, "recipes.signup", "rate_limited")
		return
	}
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		s.audit(r, "recipes.signup", "fail", "reason", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := s.app.Register(req.Name, req.Email, req.Password)
	if err != nil {
		s.audit(r, "recipes.signup", "fail", "reason", failureReason(err))
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "recipes.signup", "success", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.loginLimiter, "too many login attempts") {
		s.audit(r, "recipes.login", "rate_limited")
		return
	}
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.audit(r, "recipes.login", "fail", "reason", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		s.audit(r, "recipes.login", "fail", "reason", "missing_credentials")
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}
	user, token, err := s.app.Login(req.Email, req.Password)
	if err != nil {
		s.audit(r, "recipes.login", "fail", "reason", failureReason(err))
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "recipes.login", "success", "user_id", user.ID)
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	claim, err := s.app.Session(s.claim(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

// recipe handlers
func (s *Server) handleRecipes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		recipes, err := s.app.ListRecipes(s.claim(r), domain.RecipeFilter{
			Search:   q.Get("search"),
			Category: q.Get("category"),
		})
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toRecipeResponses(recipes))
	case http.MethodPost:
		s.handleCreateRecipe(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCreateRecipe(w http.ResponseWriter, r *http.Request) {
	claim := s.claim(r)
	// authorize before reading the body so a denied caller never sees a 400
	if err := auth.Authorize(auth.RequireAdmin, claim); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	req, err := decodeRecipeRequest(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	recipe, err := s.app.CreateRecipe(claim, req.input())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "recipes.recipe.create", "success", "user_id", claim.UserID, "recipe_id", recipe.ID)
	writeJSON(w, http.StatusCreated, toRecipeResponse(recipe))
}

func (s *Server) handleRecipeSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/recipes/"), "/")
	switch {
	case rest == "":
		s.handleRecipes(w, r)
	case rest == "mine":
		s.handleMyRecipes(w, r)
	case rest == "categories":
		s.handleCategories(w, r)
	case strings.HasPrefix(rest, "slug/"):
		s.handleRecipeBySlug(w, r, strings.TrimPrefix(rest, "slug/"))
	case strings.Contains(rest, "/"):
		writeError(w, http.StatusNotFound, "not found")
	default:
		s.handleRecipeByID(w, r, rest)
	}
}

func (s *Server) handleMyRecipes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	recipes, err := s.app.ListRecipesByAuthor(s.claim(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecipeResponses(recipes))
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	categories, err := s.app.ListCategories(s.claim(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleRecipeBySlug(w http.ResponseWriter, r *http.Request, slug string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	recipe, ok, err := s.app.GetRecipeBySlug(s.claim(r), slug)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "recipe not found")
		return
	}
	writeJSON(w, http.StatusOK, toRecipeResponse(recipe))
}

func (s *Server) handleRecipeByID(w http.ResponseWriter, r *http.Request, id string) {
	claim := s.claim(r)
	switch r.Method {
	case http.MethodGet:
		recipe, ok, err := s.app.GetRecipe(claim, id)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "recipe not found")
			return
		}
		writeJSON(w, http.StatusOK, toRecipeResponse(recipe))
	case http.MethodPut, http.MethodPatch:
		if err := auth.Authorize(auth.RequireAdmin, claim); err != nil {
			s.writeAppError(w, r, err)
			return
		}
		patch, err := decodeRecipePatch(r)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		recipe, ok, err := s.app.UpdateRecipe(claim, id, patch)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "recipe not found")
			return
		}
		s.audit(r, "recipes.recipe.update", "success", "user_id", claim.UserID, "recipe_id", id)
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Recipe updated successfully",
			"recipe":  toRecipeResponse(recipe),
		})
	case http.MethodDelete:
		ok, err := s.app.DeleteRecipe(claim, id)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "recipe not found")
			return
		}
		s.audit(r, "recipes.recipe.delete", "success", "user_id", claim.UserID, "recipe_id", id)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Recipe deleted successfully"})
	default:
		methodNotAllowed(w)
	}
}

// favorites
func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	claim := s.claim(r)
	switch r.Method {
	case http.MethodGet:
		recipes, err := s.app.ListFavorites(claim)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toRecipeResponses(recipes))
	case http.MethodPost, http.MethodDelete:
		if err := auth.Authorize(auth.RequireAuthenticated, claim); err != nil {
			s.writeAppError(w, r, err)
			return
		}
		recipeID, err := favoriteTarget(r)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		if r.Method == http.MethodPost {
			if err := s.app.AddFavorite(claim, recipeID); err != nil {
				s.writeAppError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"message": "Added to favorites"})
			return
		}
		if err := s.app.RemoveFavorite(claim, recipeID); err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Removed from favorites"})
	default:
		methodNotAllowed(w)
	}
}

// favoriteTarget reads recipeId from the JSON body, falling back to the
// query string for clients that cannot send a DELETE body.
func favoriteTarget(r *http.Request) (string, error) {
	if id := strings.TrimSpace(r.URL.Query().Get("recipeId")); id != "" {
		return id, nil
	}
	var req favoriteRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		return "", errInvalidJSON
	}
	id := strings.TrimSpace(req.RecipeID)
	if id == "" {
		return "", domain.NewValidationError("recipeId", "is required")
	}
	return id, nil
}

// ratings
func (s *Server) handleRatings(w http.ResponseWriter, r *http.Request) {
	claim := s.claim(r)
	switch r.Method {
	case http.MethodGet:
		recipeID := strings.TrimSpace(r.URL.Query().Get("recipeId"))
		if err := auth.Authorize(auth.RequireAuthenticated, claim); err != nil {
			s.writeAppError(w, r, err)
			return
		}
		if recipeID == "" {
			s.writeAppError(w, r, domain.NewValidationError("recipeId", "is required"))
			return
		}
		rating, ok, err := s.app.GetRating(claim, recipeID)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		if !ok {
			writeJSON(w, http.StatusOK, nil)
			return
		}
		writeJSON(w, http.StatusOK, rating)
	case http.MethodPost:
		if err := auth.Authorize(auth.RequireAuthenticated, claim); err != nil {
			s.writeAppError(w, r, err)
			return
		}
		req, err := decodeRatingRequest(r)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		recipe, ok, err := s.app.UpsertRating(claim, req.recipeID, req.rating, req.review)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "recipe not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Rating saved successfully",
			"recipe":  toRecipeResponse(recipe),
		})
	default:
		methodNotAllowed(w)
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", s.clientIP(r),
	}
	logAttrs = append(logAttrs, attrs...)
	logger := util.LoggerFromContext(r.Context())
	if outcome == "success" {
		logger.Info("security_event", logAttrs...)
		return
	}
	logger.Warn("security_event", logAttrs...)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter ratelimit.Limiter, msg string) bool {
	if limiter == nil {
		return true
	}
	key := r.URL.Path + "|" + s.clientIP(r)
	decision := limiter.Allow(r.Context(), key)
	if decision.Allowed {
		return true
	}
	secs := int(decision.RetryAfter.Seconds())
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

func (s *Server) clientIP(r *http.Request) string {
	return util.ClientIP(r, s.trustedProxies)
}

var publicErrors = []error{
	domain.ErrEmailAlreadyExists,
	domain.ErrSlugAlreadyExists,
	domain.ErrRecipeNotFound,
	domain.ErrAlreadyFavorited,
	domain.ErrNotFavorited,
}

// writeAppError maps the domain taxonomy onto HTTP statuses. Internal
// failures are logged in full and reported generically.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"issues": verr.Issues,
		})
	case errors.Is(err, errInvalidJSON):
		writeError(w, http.StatusBadRequest, "invalid JSON body")
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation failed")
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, domain.ErrUnauthorized):
		s.audit(r, "recipes.authorize", "fail", "reason", "unauthenticated")
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		s.audit(r, "recipes.authorize", "fail", "reason", "forbidden")
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, publicMessage(err, "not found"))
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, publicMessage(err, "conflict"))
	default:
		util.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func publicMessage(err error, fallback string) string {
	for _, known := range publicErrors {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return fallback
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrUnauthorized):
		return "invalid_credentials"
	default:
		return "internal"
	}
}
