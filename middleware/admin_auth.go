package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// AdminTokenHeader carries the plaintext admin token
const AdminTokenHeader = "X-Admin-Token"

// AdminAuth guards maintenance routes with a bcrypt-hashed token.
// With an empty hash the routes are disabled and answer 404.
func AdminAuth(tokenHash string) gin.HandlerFunc {
	hash := []byte(tokenHash)
	return func(c *gin.Context) {
		if len(hash) == 0 {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Admin endpoints are disabled",
				},
			})
			return
		}

		token := c.GetHeader(AdminTokenHeader)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Missing " + AdminTokenHeader + " header",
				},
			})
			return
		}

		if err := bcrypt.CompareHashAndPassword(hash, []byte(token)); err != nil {
			log.Warn().Str("path", c.FullPath()).Str("ip", c.ClientIP()).Msg("rejected admin token")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FORBIDDEN",
					"message": "Invalid admin token",
				},
			})
			return
		}
		c.Next()
	}
}
