package auth

import (
	"net/http"
)

// IsAdmin reports whether r carries the admin key or a valid session.
func (h *AdminAuth) IsAdmin(r *http.Request) bool {
	_, err := h.verify(r.Header.Get(HeaderName), sessionToken(r))
	return err == nil
}

func sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// AdminMiddleware protects plain chi routes, such as the metrics endpoint,
// with the same rules as the admin API operations.
func (h *AdminAuth) AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expires, err := h.verify(r.Header.Get(HeaderName), sessionToken(r))
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		// Sliding session: refresh the cookie once half of its lifetime is used.
		if !expires.IsZero() && expires.Sub(h.now()) < h.cfg.AdminSessionTTL/2 {
			if newToken, newExpires, err := h.GenerateToken(); err == nil {
				cookie := h.sessionCookie(newToken, newExpires)
				http.SetCookie(w, &cookie)
			}
		}

		next.ServeHTTP(w, r)
	})
}
