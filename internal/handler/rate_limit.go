package handler

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/dropforge/case-service/internal/dto"
	"github.com/dropforge/case-service/internal/service"
	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware checks the request against a limiter and rejects with
// 429 plus a retry-after hint when the key is over its budget
func RateLimitMiddleware(limiter service.Limiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := limiter.Check(keyFunc(c))
		if !decision.Allowed {
			retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.JSON(http.StatusTooManyRequests, dto.ErrorResponse{
				Message:    "too many requests",
				RetryAfter: retryAfter,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// IPBasedKey extracts the rate limit key from the client IP
func IPBasedKey(c *gin.Context) string {
	ip := c.GetHeader("X-Forwarded-For")
	if ip != "" {
		// X-Forwarded-For can contain multiple IPs, take the first one
		parts := strings.Split(ip, ",")
		return strings.TrimSpace(parts[0])
	}
	return c.ClientIP()
}

// UserBasedKey keys the limiter by the authenticated user, falling back to
// the client IP before authentication resolved
func UserBasedKey(c *gin.Context) string {
	if userID := c.GetString(contextUserID); userID != "" {
		return userID
	}
	return IPBasedKey(c)
}
