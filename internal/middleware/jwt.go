package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/warbler/internal/auth"
	"github.com/d60-Lab/warbler/pkg/response"
)

const tokenUserKey = "warbler.token_user"

// JWTAuth 校验 Authorization: Bearer <token>
func JWTAuth(tokens *auth.TokenProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			response.Unauthorized(c, "missing bearer token")
			return
		}
		userID, err := tokens.Validate(strings.TrimSpace(raw))
		if err != nil {
			response.Unauthorized(c, "invalid token")
			return
		}
		c.Set(tokenUserKey, userID)
		c.Next()
	}
}

// TokenUserID JWTAuth 解析出的用户 id
func TokenUserID(c *gin.Context) string {
	return c.GetString(tokenUserKey)
}
