package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/phq9-intake/internal/application"
	"github.com/oksasatya/phq9-intake/pkg/helpers"
	"github.com/oksasatya/phq9-intake/pkg/response"
)

const (
	CtxUserIDKey    = "userID"
	CtxSessionIDKey = "sessionID"
)

// accessToken reads the access_token cookie, falling back to a Bearer header.
func accessToken(c *gin.Context) string {
	if tok, err := c.Cookie(helpers.AccessCookie); err == nil && tok != "" {
		return tok
	}
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// verify parses the token and, when Redis is available, checks that it
// belongs to the user's current session.
func verify(c *gin.Context, rdb *redis.Client, jwt *helpers.JWTManager, token string) (*helpers.Claims, string) {
	claims, err := jwt.ParseAccessToken(token)
	if err != nil {
		return nil, "invalid access token"
	}
	if rdb == nil {
		return claims, ""
	}
	sid, err := rdb.HGet(c.Request.Context(), application.SessionKey(claims.UserID), "sid").Result()
	if err != nil || sid == "" || sid != claims.SessionID {
		return nil, "session not found"
	}
	return claims, ""
}

// Auth validates the access token and ensures an active session exists in Redis.
// It sets userID and sessionID in the Gin context on success.
func Auth(rdb *redis.Client, jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := accessToken(c)
		if token == "" {
			response.Error[any](c, http.StatusUnauthorized, "missing access token", nil)
			c.Abort()
			return
		}
		claims, msg := verify(c, rdb, jwt, token)
		if claims == nil {
			response.Error[any](c, http.StatusUnauthorized, msg, nil)
			c.Abort()
			return
		}
		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxSessionIDKey, claims.SessionID)
		c.Next()
	}
}

// OptionalAuth sets userID when a valid token is present and never aborts.
func OptionalAuth(rdb *redis.Client, jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := accessToken(c); token != "" {
			if claims, _ := verify(c, rdb, jwt, token); claims != nil {
				c.Set(CtxUserIDKey, claims.UserID)
				c.Set(CtxSessionIDKey, claims.SessionID)
			}
		}
		c.Next()
	}
}
