package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const ctxUserID = "auth_user_id"

// AuthMiddleware validates Bearer JWTs (HS256). The numeric subject claim is
// the acting user id; admin routes additionally require role=admin.
type AuthMiddleware struct {
	secret []byte
}

func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret)}
}

// RequireUser authenticates the request and stores the user id in the gin
// context for handlers.
func (m *AuthMiddleware) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := m.parse(c)
		if !ok {
			return
		}

		sub, _ := claims.GetSubject()
		userID, err := strconv.ParseUint(sub, 10, 64)
		if err != nil || userID == 0 {
			abortUnauthorized(c, "invalid subject in token")
			return
		}

		c.Set(ctxUserID, userID)
		c.Next()
	}
}

// RequireAdmin authenticates the request and checks the admin role claim.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := m.parse(c)
		if !ok {
			return
		}

		if role, _ := claims["role"].(string); role != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "forbidden",
				"msg":     "admin role required",
			})
			return
		}
		c.Next()
	}
}

func (m *AuthMiddleware) parse(c *gin.Context) (jwt.MapClaims, bool) {
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		abortUnauthorized(c, "missing bearer token")
		return nil, false
	}

	token, err := jwt.Parse(strings.TrimPrefix(header, "Bearer "), func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		abortUnauthorized(c, "invalid or expired token")
		return nil, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		abortUnauthorized(c, "invalid token claims")
		return nil, false
	}
	return claims, true
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"msg":     msg,
	})
}

// UserID returns the authenticated user id set by RequireUser.
func UserID(c *gin.Context) uint64 {
	v, _ := c.Get(ctxUserID)
	id, _ := v.(uint64)
	return id
}
