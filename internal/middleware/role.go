package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"salonbook/internal/pkg/jwt"
	"salonbook/internal/pkg/response"
)

// RequireRole ensures that the authenticated user has the specified role
func RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		if role == "" {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Role not found in token")
			return
		}

		if role != requiredRole {
			response.Abort(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
			return
		}

		c.Next()
	}
}

// AdminOnly guards wallet top-ups and slot generation.
func AdminOnly() gin.HandlerFunc {
	return RequireRole(jwt.RoleAdmin)
}
