// Package session issues and verifies the signed session cookie.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/williamjonathanliem/elysian-cms/pkg/villa"
)

const (
	defaultCookieName = "token"
	defaultIssuer     = "villa-cms"
	defaultTTL        = 24 * time.Hour
	cookiePath        = "/"
)

var (
	ErrMissingToken       = errors.New("missing session token")
	ErrInvalidToken       = errors.New("invalid session token")
	ErrRevokedToken       = errors.New("revoked session token")
	ErrInvalidSessionConf = errors.New("invalid session config")
)

// Claims is the JWT payload carried in the session cookie.
type Claims struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Config holds cookie and signing settings.
type Config struct {
	SigningKey   string
	Issuer       string
	CookieName   string
	TTL          time.Duration
	SecureCookie bool
}

// Manager mints, parses and revokes session tokens.
type Manager struct {
	cfg     Config
	nowFn   func() time.Time
	revoker Revoker
}

// NewManager validates cfg and fills defaults. revoker may be nil.
func NewManager(cfg Config, now func() time.Time, revoker Revoker) (*Manager, error) {
	if strings.TrimSpace(cfg.SigningKey) == "" {
		return nil, fmt.Errorf("%w: signing key is required", ErrInvalidSessionConf)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidSessionConf)
	}
	if cfg.Issuer == "" {
		cfg.Issuer = defaultIssuer
	}
	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	return &Manager{cfg: cfg, nowFn: now, revoker: revoker}, nil
}

// CookieName returns the configured cookie name.
func (manager *Manager) CookieName() string {
	return manager.cfg.CookieName
}

// Issue signs a token for user.
func (manager *Manager) Issue(user villa.User) (string, *Claims, error) {
	issuedAt := manager.nowFn().UTC()
	claims := &Claims{
		UserID:   user.ID.Int64(),
		Username: user.Username,
		Role:     user.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    manager.cfg.Issuer,
			Subject:   fmt.Sprintf("%d", user.ID.Int64()),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(manager.cfg.TTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(manager.cfg.SigningKey))
	if err != nil {
		return "", nil, fmt.Errorf("sign session: %w", err)
	}
	return signed, claims, nil
}

// Parse verifies signature, issuer, expiry and revocation.
func (manager *Manager) Parse(ctx context.Context, rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, ErrMissingToken
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(rawToken, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(manager.cfg.SigningKey), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(manager.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(manager.nowFn),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID <= 0 {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}
	if manager.revoker != nil {
		revoked, err := manager.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("revocation lookup: %w", err)
		}
		if revoked {
			return nil, ErrRevokedToken
		}
	}
	return claims, nil
}

// Revoke denies claims until they would have expired anyway.
func (manager *Manager) Revoke(ctx context.Context, claims *Claims) error {
	if manager.revoker == nil || claims == nil || claims.ID == "" {
		return nil
	}
	remaining := manager.cfg.TTL
	if claims.ExpiresAt != nil {
		remaining = claims.ExpiresAt.Time.Sub(manager.nowFn())
	}
	if remaining <= 0 {
		return nil
	}
	return manager.revoker.Revoke(ctx, claims.ID, remaining)
}

// SetCookie writes the session cookie.
func (manager *Manager) SetCookie(ctx *gin.Context, token string) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(manager.cfg.CookieName, token, int(manager.cfg.TTL.Seconds()), cookiePath, "", manager.cfg.SecureCookie, true)
}

// ClearCookie expires the session cookie.
func (manager *Manager) ClearCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(manager.cfg.CookieName, "", -1, cookiePath, "", manager.cfg.SecureCookie, true)
}
