package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/wedding-api/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

const (
	CookieName = "admin_token"
	HeaderName = "X-Admin-Key"

	adminRole = "admin"
)

var ErrUnauthorized = errors.New("unauthorized")

// AdminAuth gates moderation behind the configured admin key. A successful
// login trades the key for a signed session cookie.
type AdminAuth struct {
	cfg *config.Config
	now func() time.Time
}

func NewAdminAuth(cfg *config.Config) *AdminAuth {
	return &AdminAuth{cfg: cfg, now: time.Now}
}

// AdminInput is embedded in every admin operation input.
type AdminInput struct {
	Key   string `header:"X-Admin-Key" doc:"Shared admin key"`
	Token string `cookie:"admin_token" doc:"Session issued by the admin login"`
}

func (h *AdminAuth) Authorize(ctx context.Context, input AdminInput) error {
	if _, err := h.verify(input.Key, input.Token); err != nil {
		return huma.Error401Unauthorized("Unauthorized")
	}
	return nil
}

// verify accepts either the admin key or a valid session token. For a
// token it returns the expiry.
func (h *AdminAuth) verify(key, token string) (time.Time, error) {
	if key != "" {
		if h.keyMatches(key) {
			return time.Time{}, nil
		}
		return time.Time{}, ErrUnauthorized
	}
	if token == "" {
		return time.Time{}, ErrUnauthorized
	}
	return h.parseToken(token)
}

func (h *AdminAuth) keyMatches(key string) bool {
	if h.cfg.AdminKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(h.cfg.AdminKey)) == 1
}

func (h *AdminAuth) GenerateToken() (string, time.Time, error) {
	now := h.now()
	expires := now.Add(h.cfg.AdminSessionTTL)
	claims := jwt.MapClaims{
		"role": adminRole,
		"iat":  now.Unix(),
		"exp":  expires.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(h.cfg.JWTSecret))
	return signed, expires, err
}

func (h *AdminAuth) parseToken(tokenString string) (time.Time, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(h.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(h.now))
	if err != nil || !token.Valid {
		return time.Time{}, ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["role"] != adminRole {
		return time.Time{}, ErrUnauthorized
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, ErrUnauthorized
	}
	return exp.Time, nil
}

func (h *AdminAuth) sessionCookie(token string, expires time.Time) http.Cookie {
	return http.Cookie{
		Name:     CookieName,
		Value:    token,
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	}
}

type LoginInput struct {
	Body struct {
		Key string `json:"key" doc:"Shared admin key"`
	}
}

type LoginOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      struct {
		Message   string    `json:"message"`
		ExpiresAt time.Time `json:"expires_at"`
	}
}

func (h *AdminAuth) HandleLogin(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
	if !h.keyMatches(input.Body.Key) {
		return nil, huma.Error401Unauthorized("Invalid admin key")
	}

	token, expires, err := h.GenerateToken()
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to create session")
	}

	res := &LoginOutput{SetCookie: h.sessionCookie(token, expires)}
	res.Body.Message = "Logged in"
	res.Body.ExpiresAt = expires
	return res, nil
}
