package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
	csrfHashCookie     = "csrf_hash"

	// The refresh credential only travels to the auth endpoints. Logout
	// needs it to revoke the presented session, so the scope is /auth
	// rather than the rotation endpoint alone.
	refreshCookiePath = "/auth"
)

// CookieWriter centralizes the auth cookie attributes so every handler
// issues and clears them consistently
type CookieWriter struct {
	secure        bool
	accessMaxAge  int
	refreshMaxAge int
}

// NewCookieWriter creates a new cookie writer
func NewCookieWriter(secure bool, accessTTL, refreshTTL time.Duration) *CookieWriter {
	return &CookieWriter{
		secure:        secure,
		accessMaxAge:  int(accessTTL.Seconds()),
		refreshMaxAge: int(refreshTTL.Seconds()),
	}
}

// SetAuthCookies issues the access and refresh token cookies
func (w *CookieWriter) SetAuthCookies(c *gin.Context, accessToken, refreshToken string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    accessToken,
		Path:     "/",
		MaxAge:   w.accessMaxAge,
		HttpOnly: true,
		Secure:   w.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    refreshToken,
		Path:     refreshCookiePath,
		MaxAge:   w.refreshMaxAge,
		HttpOnly: true,
		Secure:   w.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetCsrfCookie issues the CSRF hash cookie. The matching raw token goes
// back in the response body; writes must present both.
func (w *CookieWriter) SetCsrfCookie(c *gin.Context, hash string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     csrfHashCookie,
		Value:    hash,
		Path:     "/",
		MaxAge:   w.refreshMaxAge,
		HttpOnly: true,
		Secure:   w.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearAuthCookies expires every auth cookie
func (w *CookieWriter) ClearAuthCookies(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   w.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   w.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     csrfHashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   w.secure,
		SameSite: http.SameSiteStrictMode,
	})
}
