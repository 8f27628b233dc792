package app

import (
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"unicode/utf8"

	"recipebook/pkg/auth"
	"recipebook/pkg/domain"
	"recipebook/pkg/store"
)

// MinNameLength is the shortest display name accepted at signup.
const MinNameLength = 2

// FindByEmail looks up a user by exact email. Absence is not an error.
func (a *App) FindByEmail(email string) (domain.User, bool, error) {
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, false, fmt.Errorf("fetch user: %w", err)
	}
	return user, ok, nil
}

// Register validates signup input, hashes the password and stores a new
// user with role user. A taken email yields domain.ErrEmailAlreadyExists.
func (a *App) Register(name, email, password string) (domain.User, error) {
	name = strings.TrimSpace(name)
	issues := &domain.ValidationError{}
	if utf8.RuneCountInString(name) < MinNameLength {
		issues.Add("name", fmt.Sprintf("must be at least %d characters", MinNameLength))
	}
	if !validEmail(email) {
		issues.Add("email", "must be a valid email address")
	}
	if err := auth.ValidatePassword(password); err != nil {
		issues.Add("password", err.Error())
	}
	if err := issues.Err(); err != nil {
		return domain.User{}, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	return a.createUser(name, email, hash, domain.RoleUser)
}

func (a *App) createUser(name, email, hash string, role domain.UserRole) (domain.User, error) {
	user := domain.User{
		ID:           store.NewID(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    a.now(),
	}
	if err := a.store.CreateUser(user); err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Verify returns the user when password matches the stored hash.
func (a *App) Verify(email, password string) (domain.User, bool) {
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		slog.Error("verify: fetch user failed", "err", err)
		return domain.User{}, false
	}
	if !ok {
		auth.BurnPasswordCheck(password)
		return domain.User{}, false
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, false
	}
	return user, true
}

// Login verifies credentials and issues a session token.
func (a *App) Login(email, password string) (domain.User, string, error) {
	user, ok := a.Verify(email, password)
	if !ok {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := a.sessions.Issue(user)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// ResolveToken decodes a session token. An absent or invalid token yields
// nil, which every operation treats as "no claim".
func (a *App) ResolveToken(token string) *domain.Claim {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	claim, ok := a.sessions.Resolve(token)
	if !ok {
		return nil
	}
	return &claim
}

// Session returns the caller's claim.
func (a *App) Session(claim *domain.Claim) (domain.Claim, error) {
	if err := auth.Authorize(auth.RequireAuthenticated, claim); err != nil {
		return domain.Claim{}, err
	}
	return *claim, nil
}

func validEmail(email string) bool {
	if email == "" || strings.TrimSpace(email) != email {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	return at > 0 && strings.Contains(email[at+1:], ".")
}
