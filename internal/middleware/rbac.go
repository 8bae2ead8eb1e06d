package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-facility-api/internal/models"
	appErrors "github.com/noah-isme/sma-facility-api/pkg/errors"
	"github.com/noah-isme/sma-facility-api/pkg/response"
)

// RequireRoles blocks callers whose role is not in the allowed set. Ownership
// checks (a teacher touching their own booking) live in the services, not
// here.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
