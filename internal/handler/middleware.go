package handler

import (
	"context"
	"net/http"

	"github.com/dropforge/case-service/internal/domain"
	"github.com/dropforge/case-service/internal/dto"
	"github.com/dropforge/case-service/internal/service"
	"github.com/gin-gonic/gin"
)

const (
	contextUserID = "user_id"
	contextClaims = "claims"
	contextActor  = "actor"
)

// UserLoader resolves the fresh user record behind a set of token claims
type UserLoader interface {
	GetByID(ctx context.Context, discordID string) (*domain.User, error)
}

// AuthMiddleware validates the access token cookie and adds the claims to
// the request context
func AuthMiddleware(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(accessTokenCookie)
		if err != nil || token == "" {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Message: "authentication required",
			})
			c.Abort()
			return
		}

		claims, err := authService.ValidateAccessToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Message: "invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set(contextUserID, claims.Subject)
		c.Set(contextClaims, claims)

		c.Next()
	}
}

// RequireLevel reloads the caller from storage and gates the request on the
// minimum level. Reloading makes blocks and demotions effective immediately
// instead of at token expiry.
func RequireLevel(users UserLoader, minLevel domain.Level) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(contextUserID)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Message: "authentication required",
			})
			c.Abort()
			return
		}

		user, err := users.GetByID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusForbidden, dto.ErrorResponse{
				Message: "access denied",
			})
			c.Abort()
			return
		}

		if !user.CanAccess() || !user.Level.AtLeast(minLevel) {
			c.JSON(http.StatusForbidden, dto.ErrorResponse{
				Message: "access denied",
			})
			c.Abort()
			return
		}

		c.Set(contextActor, user)

		c.Next()
	}
}

// actorFromContext returns the user loaded by RequireLevel
func actorFromContext(c *gin.Context) (*domain.User, bool) {
	value, exists := c.Get(contextActor)
	if !exists {
		return nil, false
	}
	actor, ok := value.(*domain.User)
	return actor, ok
}
