package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
	"github.com/noah-isme/sma-bulletin-api/pkg/response"
)

// RequireRoles lets the request through only for the listed roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return requireClaims(func(claims *models.JWTClaims) bool {
		_, ok := allowed[claims.Role]
		return ok
	})
}

// RequireContentManager admits roles allowed to edit bulletin content.
func RequireContentManager() gin.HandlerFunc {
	return requireClaims(func(claims *models.JWTClaims) bool {
		return claims.Role.CanManageContent()
	})
}

func requireClaims(allow func(*models.JWTClaims) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CurrentUser(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !allow(claims) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
