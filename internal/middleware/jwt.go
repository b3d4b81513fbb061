package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/expo-directory/backend/internal/auth"
	"github.com/expo-directory/backend/pkg/response"
)

// JWT validates the bearer token and stores the exhibitor identity in the context.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(strings.TrimSpace(token))
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(auth.ContextExhibitorID, claims.ExhibitorID)
		c.Set(auth.ContextExhibitorName, claims.Name)
		c.Next()
	}
}
