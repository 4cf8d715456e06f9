package auth

import (
	"RagDesk/backend/go/internal/config"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultExpireHours = 48
	issuer             = "ragdesk_ui"
	// ContextUserKey is the gin context key holding the authenticated user name.
	ContextUserKey = "username"
)

var (
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrAuthDisabled       = errors.New("authentication is not configured")
)

// Authenticator checks UI accounts and issues HS256 tokens.
// With no accounts configured it is disabled and lets every request through.
type Authenticator struct {
	accounts map[string][]byte
	secret   []byte
	expire   time.Duration
	dummy    []byte
	now      func() time.Time
}

// New parses cfg.Accounts, each "user:bcrypt-hash".
func New(cfg config.AuthConfig) (*Authenticator, error) {
	a := &Authenticator{
		accounts: make(map[string][]byte, len(cfg.Accounts)),
		secret:   []byte(cfg.TokenSecret),
		now:      time.Now,
	}
	hours := cfg.TokenExpireHours
	if hours <= 0 {
		hours = defaultExpireHours
	}
	a.expire = time.Duration(hours) * time.Hour

	for _, entry := range cfg.Accounts {
		user, hash, ok := strings.Cut(entry, ":")
		user = strings.TrimSpace(user)
		if !ok || user == "" || hash == "" {
			return nil, fmt.Errorf("invalid account entry %q, want user:bcrypt-hash", entry)
		}
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("account %s: password is not a bcrypt hash: %w", user, err)
		}
		a.accounts[user] = []byte(hash)
	}
	if !a.Enabled() {
		return a, nil
	}
	if len(a.secret) == 0 {
		return nil, errors.New("auth.tokenSecret is required when accounts are configured")
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("ragdesk"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	a.dummy = dummy
	return a, nil
}

// Enabled reports whether any account is configured.
func (a *Authenticator) Enabled() bool {
	return len(a.accounts) > 0
}

// ExpireHours returns the token lifetime in hours.
func (a *Authenticator) ExpireHours() int {
	return int(a.expire / time.Hour)
}

// Login verifies the password and returns a signed token.
func (a *Authenticator) Login(username, password string) (string, error) {
	if !a.Enabled() {
		return "", ErrAuthDisabled
	}
	hash, ok := a.accounts[username]
	if !ok {
		// Keep timing uniform for unknown users.
		_ = bcrypt.CompareHashAndPassword(a.dummy, []byte(password))
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := a.now()
	claims := jwt.MapClaims{
		"sub": username,
		"iss": issuer,
		"iat": now.Unix(),
		"exp": now.Add(a.expire).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify parses a token and returns its subject.
func (a *Authenticator) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("invalid token claims")
	}
	if _, known := a.accounts[sub]; !known {
		return "", errors.New("unknown account")
	}
	return sub, nil
}

// Middleware requires a valid "Authorization: Bearer <token>" when auth is enabled.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Enabled() {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is missing"})
			return
		}
		scheme, tokenString, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer <token>"})
			return
		}

		user, err := a.Verify(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		c.Set(ContextUserKey, user)
		c.Next()
	}
}
