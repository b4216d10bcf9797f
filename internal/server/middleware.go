package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// userIDKey is the gin context key the auth middleware stores the
// authenticated user ID under.
const userIDKey = "intake_user_id"

// authMiddleware verifies the bearer token and stores the user ID in the
// request context for handlers.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status": "error",
				"error":  errorBody{Kind: "auth", Message: "missing bearer token"},
			})
			return
		}

		claims, err := s.auth.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status": "error",
				"error":  errorBody{Kind: "auth", Message: "invalid or expired token"},
			})
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Next()
	}
}

// userID returns the authenticated user ID set by authMiddleware.
func userID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// extractBearerToken pulls the token out of "Authorization: Bearer <token>".
// Returns empty string if the header is missing or malformed. The scheme
// is case-insensitive per RFC 7235.
func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
