package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clout9/backend/internal/api/respond"
	"github.com/clout9/backend/internal/db"
)

// TokenAuth authenticates requests carrying "Authorization: Token <key>"
// headers and aborts with 401 otherwise.
func TokenAuth(repo *db.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"detail": "Authentication credentials were not provided.",
			})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Token" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"detail": "Invalid token header.",
			})
			return
		}

		token, err := repo.Tokens().GetByKey(c.Request.Context(), parts[1])
		if err != nil || token == nil || token.User == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"detail": "Invalid token.",
			})
			return
		}

		respond.SetCurrentUser(c, token.User)
		c.Next()
	}
}
