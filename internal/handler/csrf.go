package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/dropforge/case-service/internal/dto"
	"github.com/dropforge/case-service/internal/utils"
	"github.com/gin-gonic/gin"
)

// csrfHeader carries the raw token matching the hash in the CSRF cookie
const csrfHeader = "X-CSRF-Token"

// CsrfMiddleware guards state-changing requests with the double-submit
// scheme. Checks run in a fixed order: content type first, then the
// token/hash pair, then the request origin.
func CsrfMiddleware(csrfManager *utils.CsrfManager, allowedHosts []string) gin.HandlerFunc {
	hosts := make(map[string]struct{}, len(allowedHosts))
	for _, host := range allowedHosts {
		hosts[strings.ToLower(host)] = struct{}{}
	}

	return func(c *gin.Context) {
		contentType := c.ContentType()
		if contentType != "application/json" {
			c.JSON(http.StatusUnsupportedMediaType, dto.ErrorResponse{
				Message: "unsupported content type",
			})
			c.Abort()
			return
		}

		token := c.GetHeader(csrfHeader)
		hash, err := c.Cookie(csrfHashCookie)
		if token == "" || err != nil || !csrfManager.VerifyToken(token, hash) {
			c.JSON(http.StatusForbidden, dto.ErrorResponse{
				Message: "invalid csrf token",
			})
			c.Abort()
			return
		}

		if !originAllowed(c, hosts) {
			c.JSON(http.StatusForbidden, dto.ErrorResponse{
				Message: "origin not allowed",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// originAllowed checks the Origin header, falling back to Referer, against
// the allow-listed hosts
func originAllowed(c *gin.Context, hosts map[string]struct{}) bool {
	source := c.GetHeader("Origin")
	if source == "" {
		source = c.GetHeader("Referer")
	}
	if source == "" {
		return false
	}

	parsed, err := url.Parse(source)
	if err != nil || parsed.Host == "" {
		return false
	}

	_, ok := hosts[strings.ToLower(parsed.Host)]
	return ok
}
