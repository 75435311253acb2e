package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAdminMiddleware_SlidingSession(t *testing.T) {
	cfg := testConfig()
	handler := NewAdminAuth(cfg)

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	middleware := handler.AdminMiddleware(nextHandler)

	signed := func(expiresIn time.Duration) string {
		claims := jwt.MapClaims{
			"role": "admin",
			"exp":  time.Now().Add(expiresIn).Unix(),
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		tokenString, _ := token.SignedString([]byte(cfg.JWTSecret))
		return tokenString
	}

	t.Run("TokenRenewed", func(t *testing.T) {
		// 11 hours left is less than AdminSessionTTL/2 = 12 hours
		tokenString := signed(11 * time.Hour)

		req, _ := http.NewRequest("GET", "/metrics", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: tokenString})
		rr := httptest.NewRecorder()
		middleware.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status OK, got %v", rr.Code)
		}

		found := false
		for _, c := range rr.Result().Cookies() {
			if c.Name == CookieName {
				found = true
				if c.Value == tokenString {
					t.Errorf("expected new token value, but got the old one")
				}
			}
		}
		if !found {
			t.Errorf("expected new %s cookie to be set", CookieName)
		}
	})

	t.Run("TokenNotRenewed", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/metrics", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: signed(13 * time.Hour)})
		rr := httptest.NewRecorder()
		middleware.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status OK, got %v", rr.Code)
		}
		for _, c := range rr.Result().Cookies() {
			if c.Name == CookieName {
				t.Errorf("did not expect a new %s cookie to be set", CookieName)
			}
		}
	})

	t.Run("AdminKeyHeader", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/metrics", nil)
		req.Header.Set(HeaderName, "sesame")
		rr := httptest.NewRecorder()
		middleware.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status OK, got %v", rr.Code)
		}
		if len(rr.Result().Cookies()) != 0 {
			t.Error("did not expect a cookie for key authentication")
		}
	})

	t.Run("WrongRole", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"role": "guest",
			"exp":  time.Now().Add(time.Hour).Unix(),
		})
		tokenString, _ := token.SignedString([]byte(cfg.JWTSecret))

		req, _ := http.NewRequest("GET", "/metrics", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: tokenString})
		rr := httptest.NewRecorder()
		middleware.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %v", rr.Code)
		}
	})

	t.Run("NoCredentials", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/metrics", nil)
		rr := httptest.NewRecorder()
		middleware.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %v", rr.Code)
		}
	})
}
