package security

import (
	"net/http"
	"time"
)

// DashboardCookieName holds the parent dashboard token for browser clients
const DashboardCookieName = "eudguide_dashboard"

// IsSecureRequest determines if the request is over HTTPS
// Checks TLS connection, X-Forwarded-Proto header (for reverse proxies), and URL scheme
func IsSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" {
		return true
	}
	return r.URL.Scheme == "https"
}

// CreateDashboardCookie wraps a dashboard token in a cookie scoped to the parent API
func CreateDashboardCookie(r *http.Request, token string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     DashboardCookieName,
		Value:    token,
		Path:     "/api/parent",
		Expires:  expires,
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
		SameSite: http.SameSiteStrictMode,
	}
}

// CreateDeleteCookie clears the dashboard cookie
func CreateDeleteCookie(r *http.Request) *http.Cookie {
	return &http.Cookie{
		Name:     DashboardCookieName,
		Value:    "",
		Path:     "/api/parent",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
	}
}

// DashboardToken extracts a bearer token or the dashboard cookie
func DashboardToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); len(auth) > 7 && auth[:7] == "Bearer " {
		return auth[7:]
	}
	if c, err := r.Cookie(DashboardCookieName); err == nil {
		return c.Value
	}
	return ""
}
