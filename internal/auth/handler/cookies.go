package handler

import (
	"net/http"
	"time"

	"github.com/nexo/nexo-backend/pkg/config"
)

// Cookie names shared with the browser client.
const (
	AccessTokenCookie  = "nexo_access_token"
	RefreshTokenCookie = "nexo_refresh_token"
	OrgCookie          = "nexo_org"
)

func newCookie(cfg *config.AuthConfig, name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   cfg.CookieDomain,
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// SetAuthCookies writes the token pair as httponly cookies.
func SetAuthCookies(w http.ResponseWriter, cfg *config.AuthConfig, accessToken, refreshToken string, accessTTL, refreshTTL time.Duration) {
	http.SetCookie(w, newCookie(cfg, AccessTokenCookie, accessToken, accessTTL))
	http.SetCookie(w, newCookie(cfg, RefreshTokenCookie, refreshToken, refreshTTL))
}

// SetOrgCookie pins the active organization for subsequent requests.
// It is readable by the client, so it is not httponly.
func SetOrgCookie(w http.ResponseWriter, cfg *config.AuthConfig, orgID string, ttl time.Duration) {
	c := newCookie(cfg, OrgCookie, orgID, ttl)
	c.HttpOnly = false
	http.SetCookie(w, c)
}

// ClearAuthCookies expires every auth cookie.
func ClearAuthCookies(w http.ResponseWriter, cfg *config.AuthConfig) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie, OrgCookie} {
		c := newCookie(cfg, name, "", 0)
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
