package middlewares

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/adaudit_backend/config"
	"github.com/mmdatafocus/adaudit_backend/utils"
)

func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			c.Next()
			return
		}
		username, exists, err := config.GetRedisValue("Token:" + token)
		if err != nil || !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := context.WithValue(c.Request.Context(), utils.ContextKeyToken, token)
		ctx = context.WithValue(ctx, utils.ContextKeyUsername, username)
		// The jwt carries the operator id and role; the Redis entry above
		// is what makes the session revocable.
		if parsed, err := utils.JwtValidate(token); err == nil && parsed.Valid {
			if claims, ok := parsed.Claims.(*utils.JwtCustomClaim); ok {
				ctx = utils.SetUserIdInContext(ctx, claims.ID)
				ctx = utils.SetIsAdminInContext(ctx, claims.Role == "Admin")
			}
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
