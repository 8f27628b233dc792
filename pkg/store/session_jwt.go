package store

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"recipebook/pkg/domain"
)

const defaultJWTIssuer = "recipebook"

var defaultJWTLeeway = 30 * time.Second

// MinSecretLength is the shortest HS256 signing secret accepted.
const MinSecretLength = 32

var ErrWeakSecret = errors.New("jwt secret must be at least 32 bytes")

// JWTOptions configures JWT claim validation behavior.
type JWTOptions struct {
	Issuer string
	Leeway time.Duration
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Role domain.UserRole `json:"role"`
}

// JWTSessionStore issues and validates HS256 session tokens. It keeps no
// server-side state, so a token cannot be revoked before it expires.
type JWTSessionStore struct {
	secret []byte
	ttl    time.Duration
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// NewJWTSessionStore builds a stateless JWT session store.
func NewJWTSessionStore(secret string, ttl time.Duration, opts JWTOptions) (*JWTSessionStore, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if strings.TrimSpace(opts.Issuer) == "" {
		opts.Issuer = defaultJWTIssuer
	}
	if opts.Leeway < 0 {
		opts.Leeway = 0
	} else if opts.Leeway == 0 {
		opts.Leeway = defaultJWTLeeway
	}
	return &JWTSessionStore{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: strings.TrimSpace(opts.Issuer),
		leeway: opts.Leeway,
		now:    time.Now,
	}, nil
}

// Issue creates a signed token carrying the user's ID and role.
func (s *JWTSessionStore) Issue(user domain.User) (string, error) {
	if strings.TrimSpace(user.ID) == "" {
		return "", errors.New("user id required")
	}
	if !user.Role.Valid() {
		return "", errors.New("invalid user role")
	}
	now := s.now().UTC()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        randomHexID(12),
		},
		Role: user.Role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Resolve verifies a token and reconstitutes its claim. Tampered,
// malformed or expired tokens yield false.
func (s *JWTSessionStore) Resolve(token string) (domain.Claim, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Claim{}, false
	}
	claims := &sessionClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(s.now),
	)
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return domain.Claim{}, false
	}
	if strings.TrimSpace(claims.Subject) == "" || !claims.Role.Valid() {
		return domain.Claim{}, false
	}
	return domain.Claim{UserID: claims.Subject, Role: claims.Role}, true
}
