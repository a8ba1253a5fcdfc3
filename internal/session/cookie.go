package session

import (
	"net/http"
	"strings"
	"time"
)

// SetCookie writes the session cookie. Its expiry tracks expiresAt.
func (s *Service) SetCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	maxAge := int(expiresAt.Sub(s.now()).Seconds())
	if maxAge <= 0 {
		s.ClearCookie(w)
		return
	}
	writeCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie (Max-Age=0).
func (s *Service) ClearCookie(w http.ResponseWriter) {
	writeCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// TokenFromRequest returns the session cookie value, or "".
func (s *Service) TokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(s.cfg.CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// writeCookie sets c and drops any Set-Cookie for the same name already queued
// on w, so a response never carries two values for the session cookie.
func writeCookie(w http.ResponseWriter, c *http.Cookie) {
	h := w.Header()
	prefix := c.Name + "="
	var kept []string
	for _, v := range h["Set-Cookie"] {
		if !strings.HasPrefix(v, prefix) {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		h.Del("Set-Cookie")
	} else {
		h["Set-Cookie"] = kept
	}
	http.SetCookie(w, c)
}
