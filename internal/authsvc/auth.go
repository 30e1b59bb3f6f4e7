// Package authsvc issues and verifies the JWTs that gate the chat HTTP API
// and websocket upgrade, and hashes the passwords stored alongside each
// account.
package authsvc

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// AuthConfig configures token issuance. SecretKey is required; TokenExpiry
// and Issuer fall back to sane defaults when left zero.
type AuthConfig struct {
	SecretKey   string
	TokenExpiry time.Duration
	Issuer      string
}

// Claims is the JWT payload identifying the authenticated account.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Middleware issues and validates bearer tokens for gin routes.
type Middleware struct {
	secretKey   string
	tokenExpiry time.Duration
	issuer      string
	log         *logrus.Logger
}

// NewMiddleware builds a Middleware from cfg. SecretKey must be non-empty.
func NewMiddleware(cfg AuthConfig, log *logrus.Logger) (*Middleware, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("authsvc: secret key is required")
	}
	if cfg.TokenExpiry <= 0 {
		cfg.TokenExpiry = 24 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "chatcore"
	}
	if log == nil {
		log = logrus.New()
	}
	return &Middleware{secretKey: cfg.SecretKey, tokenExpiry: cfg.TokenExpiry, issuer: cfg.Issuer, log: log}, nil
}

// GenerateToken signs a new JWT for the given account.
func (m *Middleware) GenerateToken(userID, username, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenExpiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.secretKey))
	if err != nil {
		return "", fmt.Errorf("authsvc: sign token: %w", err)
	}
	return signed, nil
}

func (m *Middleware) validateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(m.secretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("authsvc: parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("authsvc: invalid token")
	}
	return claims, nil
}

// RefreshToken validates tokenString and issues a new token carrying the
// same claims with a fresh expiry.
func (m *Middleware) RefreshToken(tokenString string) (string, error) {
	claims, err := m.validateToken(tokenString)
	if err != nil {
		return "", err
	}
	return m.GenerateToken(claims.UserID, claims.Username, claims.Role)
}

// ExtractTokenFromHeader pulls the bearer token out of an Authorization
// header value, returning "" if the header is missing or malformed.
func (m *Middleware) ExtractTokenFromHeader(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

// Handler returns a gin handler that rejects requests without a valid
// bearer token, skipping any path listed in skipPaths.
func (m *Middleware) Handler(skipPaths []string) gin.HandlerFunc {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}
	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}
		token := m.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed authorization header"})
			return
		}
		claims, err := m.validateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// Optional behaves like Handler but never aborts: requests without a valid
// token simply proceed unauthenticated.
func (m *Middleware) Optional(skipPaths []string) gin.HandlerFunc {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}
	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}
		token := m.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if token == "" {
			c.Next()
			return
		}
		if claims, err := m.validateToken(token); err == nil {
			setClaims(c, claims)
		}
		c.Next()
	}
}

// RequireRole aborts with 403 unless the authenticated request's role
// matches role exactly. Must run after Handler.
func (m *Middleware) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !HasRole(c, role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			return
		}
		c.Next()
	}
}

func setClaims(c *gin.Context, claims *Claims) {
	c.Set("claims", claims)
	c.Set("user_id", claims.UserID)
	c.Set("role", claims.Role)
}

// GetCurrentUser returns the authenticated request's claims, or nil.
func GetCurrentUser(c *gin.Context) *Claims {
	v, ok := c.Get("claims")
	if !ok {
		return nil
	}
	claims, ok := v.(*Claims)
	if !ok {
		return nil
	}
	return claims
}

// GetUserID returns the authenticated request's user id, or "".
func GetUserID(c *gin.Context) string {
	v, ok := c.Get("user_id")
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// GetUserRole returns the authenticated request's role, or "".
func GetUserRole(c *gin.Context) string {
	v, ok := c.Get("role")
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// IsAuthenticated reports whether the request carries valid claims.
func IsAuthenticated(c *gin.Context) bool {
	return GetCurrentUser(c) != nil
}

// HasRole reports whether the authenticated request has exactly role.
func HasRole(c *gin.Context, role string) bool {
	return GetUserRole(c) == role
}

// IsAdmin reports whether the authenticated request has the admin role.
func IsAdmin(c *gin.Context) bool {
	return HasRole(c, "admin")
}
