package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// DefaultTokenTTL is how long an admin session token stays valid.
const DefaultTokenTTL = 24 * time.Hour

// ErrInvalidCredentials is returned for a failed admin login.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService issues and verifies admin session tokens. Credentials are a
// single admin username plus a bcrypt password hash supplied via config.
type AuthService struct {
	username     string
	passwordHash []byte
	secret       []byte
	tokenTTL     time.Duration
	now          func() time.Time
}

// AuthOptions contains configuration for creating an AuthService.
type AuthOptions struct {
	Username     string
	PasswordHash string // bcrypt hash
	Secret       string // HMAC signing secret
	TokenTTL     time.Duration
}

// NewAuthService creates a new AuthService.
func NewAuthService(opts AuthOptions) *AuthService {
	ttl := opts.TokenTTL
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	return &AuthService{
		username:     opts.Username,
		passwordHash: []byte(opts.PasswordHash),
		secret:       []byte(opts.Secret),
		tokenTTL:     ttl,
		now:          time.Now,
	}
}

// Login verifies the credentials and returns a signed session token.
func (a *AuthService) Login(username, password string) (string, error) {
	if username != a.username {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify checks a session token and returns the admin username.
func (a *AuthService) Verify(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidCredentials
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidCredentials
	}
	return claims.Subject, nil
}

// Middleware guards admin routes with a Bearer session token.
func (a *AuthService) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if _, err := a.Verify(token); err != nil {
			respondError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HashPassword produces a bcrypt hash for operator tooling and tests.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
