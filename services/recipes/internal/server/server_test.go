package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"recipebook/pkg/domain"
	"recipebook/pkg/store"
	"recipebook/services/recipes/internal/app"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testEnv struct {
	srv        *httptest.Server
	app        *app.App
	adminToken string
	userToken  string
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	sessions, err := store.NewJWTSessionStore(testSecret, time.Hour, store.JWTOptions{})
	if err != nil {
		t.Fatalf("session store: %v", err)
	}
	core, err := app.New(app.Config{Store: store.NewMemoryStore(), Sessions: sessions})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	if _, _, err := core.SeedAdmin("Admin", "admin@example.com", "admin-pass"); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	if _, err := core.Register("Regular", "user@example.com", "user-pass"); err != nil {
		t.Fatalf("register user: %v", err)
	}
	cfg.App = core
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)

	env := &testEnv{srv: srv, app: core}
	env.adminToken = env.login(t, "admin@example.com", "admin-pass")
	env.userToken = env.login(t, "user@example.com", "user-pass")
	return env
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", email, resp.StatusCode, body)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.Token == "" {
		t.Fatalf("decode login: %v %s", err, body)
	}
	return out.Token
}

func (e *testEnv) do(t *testing.T, method, path, token string, payload any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	switch p := payload.(type) {
	case nil:
	case string:
		reader = strings.NewReader(p)
	default:
		data, err := json.Marshal(p)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, body
}

func (e *testEnv) createRecipe(t *testing.T, slug, title, category string) recipeResponse {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/api/recipes", e.adminToken, map[string]any{
		"slug":        slug,
		"title":       title,
		"description": "Tasty " + title,
		"content":     "Combine the ingredients and cook with care.",
		"imageUrl":    "https://images.example.com/" + slug + ".jpg",
		"category":    category,
		"prepTime":    "15",
		"cookTime":    30,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create %s: status %d body %s", slug, resp.StatusCode, body)
	}
	var out recipeResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode recipe: %v", err)
	}
	return out
}

func TestHealthAndHeaders(t *testing.T) {
	env := newTestEnv(t, Config{})
	resp, _ := env.do(t, http.MethodGet, "/healthz", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("expected security headers")
	}
}

func TestSignupFlow(t *testing.T) {
	env := newTestEnv(t, Config{})
	resp, body := env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": "Newbie", "email": "new@example.com", "password": "new-pass",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup expected 201, got %d: %s", resp.StatusCode, body)
	}
	if bytes.Contains(body, []byte("$2a$")) || bytes.Contains(body, []byte("passwordHash")) {
		t.Fatalf("password hash leaked: %s", body)
	}
	var user domain.User
	if err := json.Unmarshal(body, &user); err != nil || user.Role != domain.RoleUser {
		t.Fatalf("unexpected signup body: %s", body)
	}

	resp, _ = env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": "Newbie", "email": "new@example.com", "password": "new-pass",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate signup expected 409, got %d", resp.StatusCode)
	}

	resp, body = env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": "N", "email": "bad", "password": "x",
	})
	if resp.StatusCode != http.StatusBadRequest || !bytes.Contains(body, []byte("issues")) {
		t.Fatalf("invalid signup expected 400 with issues, got %d: %s", resp.StatusCode, body)
	}

	resp, _ = env.do(t, http.MethodPost, "/api/auth/signup", "", "{not json")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed json expected 400, got %d", resp.StatusCode)
	}
}

func TestLoginAndSession(t *testing.T) {
	env := newTestEnv(t, Config{})
	resp, body := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "user@example.com", "password": "wrong-pass",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad password expected 401, got %d", resp.StatusCode)
	}
	if !bytes.Contains(body, []byte("invalid email or password")) {
		t.Fatalf("unexpected body %s", body)
	}
	resp, _ = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": "whatever",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unknown email expected 401, got %d", resp.StatusCode)
	}

	resp, body = env.do(t, http.MethodGet, "/api/auth/session", env.adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("session expected 200, got %d", resp.StatusCode)
	}
	var claim domain.Claim
	if err := json.Unmarshal(body, &claim); err != nil || claim.Role != domain.RoleAdmin {
		t.Fatalf("unexpected session %s", body)
	}
	resp, _ = env.do(t, http.MethodGet, "/api/auth/session", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous session expected 401, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodGet, "/api/auth/session", env.userToken+"x", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("tampered token expected 401, got %d", resp.StatusCode)
	}
}

func TestRecipeWriteAuthorization(t *testing.T) {
	env := newTestEnv(t, Config{})
	payload := map[string]any{"title": "X"}

	resp, _ := env.do(t, http.MethodPost, "/api/recipes", "", payload)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous create expected 401, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodPost, "/api/recipes", env.userToken, payload)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("user create expected 403, got %d", resp.StatusCode)
	}

	r := env.createRecipe(t, "soup", "Soup", "Soup")
	resp, _ = env.do(t, http.MethodPatch, "/api/recipes/"+r.ID, env.userToken, map[string]string{"title": "Hacked"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("user update expected 403, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodDelete, "/api/recipes/"+r.ID, env.userToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("user delete expected 403, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodDelete, "/api/recipes/"+r.ID, "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous delete expected 401, got %d", resp.StatusCode)
	}
}

func TestRecipeCRUD(t *testing.T) {
	env := newTestEnv(t, Config{})
	r := env.createRecipe(t, "cake", "Chocolate Cake", "Dessert")
	if r.PrepTime == nil || *r.PrepTime != 15 || r.CookTime == nil || *r.CookTime != 30 {
		t.Fatalf("times not parsed: %+v", r.Recipe)
	}
	if r.RatingCount != 0 || r.Ratings == nil {
		t.Fatalf("expected empty ratings: %+v", r)
	}

	resp, body := env.do(t, http.MethodGet, "/api/recipes/"+r.ID, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get expected 200, got %d", resp.StatusCode)
	}
	resp, body = env.do(t, http.MethodGet, "/api/recipes/slug/cake", "", nil)
	if resp.StatusCode != http.StatusOK || !bytes.Contains(body, []byte(r.ID)) {
		t.Fatalf("get by slug: %d %s", resp.StatusCode, body)
	}

	resp, body = env.do(t, http.MethodPut, "/api/recipes/"+r.ID, env.adminToken, map[string]string{"title": "Dark Chocolate Cake"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update expected 200, got %d: %s", resp.StatusCode, body)
	}
	var updated struct {
		Message string         `json:"message"`
		Recipe  recipeResponse `json:"recipe"`
	}
	if err := json.Unmarshal(body, &updated); err != nil {
		t.Fatalf("decode update: %v", err)
	}
	if updated.Recipe.Title != "Dark Chocolate Cake" || updated.Recipe.Description != r.Description {
		t.Fatalf("unexpected merge: %+v", updated.Recipe)
	}
	if updated.Recipe.AuthorID != r.AuthorID || !updated.Recipe.CreatedAt.Equal(r.CreatedAt) {
		t.Fatalf("immutable fields changed")
	}

	resp, _ = env.do(t, http.MethodDelete, "/api/recipes/"+r.ID, env.adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete expected 200, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodDelete, "/api/recipes/"+r.ID, env.adminToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete expected 404, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodGet, "/api/recipes/"+r.ID, "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get deleted expected 404, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodPatch, "/api/recipes/missing", env.adminToken, map[string]string{"title": "X"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("update missing expected 404, got %d", resp.StatusCode)
	}
}

func TestRecipeUpdateRejectsServerOwnedFields(t *testing.T) {
	env := newTestEnv(t, Config{})
	r := env.createRecipe(t, "stew", "Stew", "Main")
	for _, body := range []string{
		`{"title":"T","id":"other"}`,
		`{"title":"T","authorId":"someone"}`,
		`{"createdAt":"2020-01-01T00:00:00Z"}`,
		`{"ratings":[]}`,
		`{"title":"T","chef":"me"}`,
		`{}`,
	} {
		resp, out := env.do(t, http.MethodPatch, "/api/recipes/"+r.ID, env.adminToken, body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %s expected 400, got %d: %s", body, resp.StatusCode, out)
		}
	}
	resp, body := env.do(t, http.MethodGet, "/api/recipes/"+r.ID, "", nil)
	if resp.StatusCode != http.StatusOK || !bytes.Contains(body, []byte(`"title":"Stew"`)) {
		t.Fatalf("rejected updates must not apply: %s", body)
	}
}

func TestRecipeCreateValidation(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.createRecipe(t, "taken", "Taken", "Main")
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"missing fields", `{"title":"Only title"}`, http.StatusBadRequest},
		{"relative image", `{"slug":"a","title":"A","description":"d","content":"long enough content","imageUrl":"/a.jpg","category":"c"}`, http.StatusBadRequest},
		{"negative time", `{"slug":"a","title":"A","description":"d","content":"long enough content","imageUrl":"https://x.io/a.jpg","category":"c","prepTime":-1}`, http.StatusBadRequest},
		{"non numeric time", `{"slug":"a","title":"A","description":"d","content":"long enough content","imageUrl":"https://x.io/a.jpg","category":"c","cookTime":"soon"}`, http.StatusBadRequest},
		{"client author", `{"slug":"a","title":"A","description":"d","content":"long enough content","imageUrl":"https://x.io/a.jpg","category":"c","authorId":"me"}`, http.StatusBadRequest},
		{"duplicate slug", `{"slug":"taken","title":"A","description":"d","content":"long enough content","imageUrl":"https://x.io/a.jpg","category":"c"}`, http.StatusConflict},
		{"empty string time", `{"slug":"b","title":"B","description":"d","content":"long enough content","imageUrl":"https://x.io/b.jpg","category":"c","prepTime":""}`, http.StatusCreated},
	}
	for _, tc := range tests {
		resp, body := env.do(t, http.MethodPost, "/api/recipes", env.adminToken, tc.body)
		if resp.StatusCode != tc.status {
			t.Fatalf("%s: expected %d, got %d: %s", tc.name, tc.status, resp.StatusCode, body)
		}
	}
}

func TestRecipeListFilters(t *testing.T) {
	env := newTestEnv(t, Config{})
	cake := env.createRecipe(t, "chocolate-cake", "Chocolate Cake", "Dessert")
	banitsa := env.createRecipe(t, "banitsa", "Banitsa", "Breakfast")

	list := func(query string) []recipeResponse {
		t.Helper()
		resp, body := env.do(t, http.MethodGet, "/api/recipes"+query, "", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("list %s: %d", query, resp.StatusCode)
		}
		var out []recipeResponse
		if err := json.Unmarshal(body, &out); err != nil {
			t.Fatalf("decode list: %v", err)
		}
		return out
	}
	if got := list(""); len(got) != 2 || got[0].ID != cake.ID || got[1].ID != banitsa.ID {
		t.Fatalf("unexpected full list %+v", got)
	}
	if got := list("?search=CAKE"); len(got) != 1 || got[0].ID != cake.ID {
		t.Fatalf("search: %+v", got)
	}
	if got := list("?category=breakfast"); len(got) != 1 || got[0].ID != banitsa.ID {
		t.Fatalf("category: %+v", got)
	}
	if got := list("?search=zzz"); len(got) != 0 {
		t.Fatalf("expected empty list, got %+v", got)
	}

	resp, body := env.do(t, http.MethodGet, "/api/recipes/mine", env.adminToken, nil)
	if resp.StatusCode != http.StatusOK || !bytes.Contains(body, []byte(cake.ID)) {
		t.Fatalf("mine: %d %s", resp.StatusCode, body)
	}
	resp, body = env.do(t, http.MethodGet, "/api/recipes/mine", env.userToken, nil)
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != "[]" {
		t.Fatalf("user mine: %d %s", resp.StatusCode, body)
	}
	resp, body = env.do(t, http.MethodGet, "/api/recipes/categories", "", nil)
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != `["Dessert","Breakfast"]` {
		t.Fatalf("categories: %d %s", resp.StatusCode, body)
	}
}

func TestFavoritesEndpoints(t *testing.T) {
	env := newTestEnv(t, Config{})
	r := env.createRecipe(t, "fav", "Fav", "Main")
	body := map[string]string{"recipeId": r.ID}

	resp, _ := env.do(t, http.MethodPost, "/api/favorites", "", body)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous favorite expected 401, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodPost, "/api/favorites", env.userToken, map[string]string{"recipeId": "nope"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing recipe expected 404, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodPost, "/api/favorites", env.userToken, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add expected 200, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodPost, "/api/favorites", env.userToken, body)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate add expected 409, got %d", resp.StatusCode)
	}
	resp, out := env.do(t, http.MethodGet, "/api/favorites", env.userToken, nil)
	if resp.StatusCode != http.StatusOK || !bytes.Contains(out, []byte(r.ID)) {
		t.Fatalf("list favorites: %d %s", resp.StatusCode, out)
	}
	resp, _ = env.do(t, http.MethodDelete, "/api/favorites?recipeId="+r.ID, env.userToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("remove expected 200, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodDelete, "/api/favorites", env.userToken, body)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second remove expected 404, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodPost, "/api/favorites", env.userToken, map[string]string{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing recipeId expected 400, got %d", resp.StatusCode)
	}
}

func TestRatingsEndpoints(t *testing.T) {
	env := newTestEnv(t, Config{})
	r := env.createRecipe(t, "rated", "Rated", "Main")

	resp, body := env.do(t, http.MethodGet, "/api/ratings?recipeId="+r.ID, env.userToken, nil)
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != "null" {
		t.Fatalf("no rating yet: %d %s", resp.StatusCode, body)
	}
	for _, v := range []any{0, 6, 4.5, "x"} {
		resp, _ = env.do(t, http.MethodPost, "/api/ratings", env.userToken, map[string]any{"recipeId": r.ID, "rating": v})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("rating %v expected 400, got %d", v, resp.StatusCode)
		}
	}
	resp, _ = env.do(t, http.MethodPost, "/api/ratings", "", map[string]any{"recipeId": r.ID, "rating": 3})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous rating expected 401, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodPost, "/api/ratings", env.userToken, map[string]any{"recipeId": "missing", "rating": 3})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing recipe expected 404, got %d", resp.StatusCode)
	}

	resp, _ = env.do(t, http.MethodPost, "/api/ratings", env.userToken, map[string]any{"recipeId": r.ID, "rating": 3, "review": "ok"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first rating expected 200, got %d", resp.StatusCode)
	}
	resp, body = env.do(t, http.MethodPost, "/api/ratings", env.userToken, map[string]any{"recipeId": r.ID, "rating": 5})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("second rating expected 200, got %d", resp.StatusCode)
	}
	var saved struct {
		Recipe recipeResponse `json:"recipe"`
	}
	if err := json.Unmarshal(body, &saved); err != nil {
		t.Fatalf("decode rating: %v", err)
	}
	if saved.Recipe.RatingCount != 1 || saved.Recipe.AverageRating != 5 || len(saved.Recipe.Ratings) != 1 {
		t.Fatalf("expected single overwritten rating: %+v", saved.Recipe)
	}

	resp, body = env.do(t, http.MethodGet, "/api/ratings?recipeId="+r.ID, env.userToken, nil)
	var mine domain.Rating
	if resp.StatusCode != http.StatusOK || json.Unmarshal(body, &mine) != nil || mine.Rating != 5 {
		t.Fatalf("get rating: %d %s", resp.StatusCode, body)
	}
	resp, body = env.do(t, http.MethodGet, "/api/ratings?recipeId="+r.ID, env.adminToken, nil)
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != "null" {
		t.Fatalf("ratings are per caller: %d %s", resp.StatusCode, body)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, Config{})
	resp, _ := env.do(t, http.MethodGet, "/api/auth/login", "", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

func TestNewRequiresApp(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error without app")
	}
}
