package handler

import (
	"errors"
	"net/http"

	"github.com/dropforge/case-service/internal/domain"
	"github.com/dropforge/case-service/internal/dto"
	"github.com/dropforge/case-service/internal/service"
	"github.com/gin-gonic/gin"
)

// loginRedirectPath is where a freshly logged-in user lands; newly created
// accounts sit there until an admin approves them
const loginRedirectPath = "/pending"

// AuthHandler handles the OAuth login flow and session endpoints
type AuthHandler struct {
	authService service.AuthService
	cookies     *CookieWriter
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService service.AuthService, cookies *CookieWriter) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookies:     cookies,
	}
}

// Login starts the OAuth flow and redirects to the provider
func (h *AuthHandler) Login(c *gin.Context) {
	authorizeURL, err := h.authService.StartLogin(c.Request.Context(), c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		respondError(c, err)
		return
	}

	c.Redirect(http.StatusFound, authorizeURL)
}

// Callback finishes the OAuth flow: the state and code are validated and
// consumed exactly once, cookies are issued and the client is redirected
func (h *AuthHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Message: "missing code or state",
		})
		return
	}

	result, err := h.authService.HandleCallback(c.Request.Context(), code, state, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		respondError(c, err)
		return
	}

	h.cookies.SetAuthCookies(c, result.AccessToken, result.RefreshToken)

	c.Redirect(http.StatusFound, loginRedirectPath)
}

// Refresh rotates the refresh credential and resets the auth cookies.
// A compromised lineage clears the cookies so the client falls back to a
// fresh login.
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie(refreshTokenCookie)
	if err != nil || refreshToken == "" {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Message: "refresh token not found",
		})
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), refreshToken, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, domain.ErrSessionRevoked) || errors.Is(err, domain.ErrUnauthenticated) {
			h.cookies.ClearAuthCookies(c)
		}
		respondError(c, err)
		return
	}

	h.cookies.SetAuthCookies(c, result.AccessToken, result.RefreshToken)

	c.JSON(http.StatusOK, dto.SuccessResponse{OK: true})
}

// Logout revokes the presented session and clears the auth cookies
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken, _ := c.Cookie(refreshTokenCookie)

	if err := h.authService.Logout(c.Request.Context(), refreshToken, c.ClientIP()); err != nil {
		respondError(c, err)
		return
	}

	h.cookies.ClearAuthCookies(c)

	c.JSON(http.StatusOK, dto.SuccessResponse{OK: true})
}

// Csrf issues a fresh CSRF token/hash pair: the hash goes into a cookie,
// the raw token into the response body
func (h *AuthHandler) Csrf(c *gin.Context) {
	token, hash, err := h.authService.IssueCsrfToken()
	if err != nil {
		respondError(c, err)
		return
	}

	h.cookies.SetCsrfCookie(c, hash)

	c.JSON(http.StatusOK, dto.CsrfResponse{CsrfToken: token})
}
