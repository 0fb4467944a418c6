package middleware

import (
	"net/http"
	"strings"

	"billing/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Auth requires a valid Bearer token and resolves it to a domain.Caller
// for the handlers downstream.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFromToken(c, secret)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "authentication required"})
			return
		}
		c.Set(domain.CallerContextKey, caller)
		c.Next()
	}
}

// AuthOptional resolves a Bearer token when present but lets anonymous
// requests through.
func AuthOptional(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if caller, ok := callerFromToken(c, secret); ok {
			c.Set(domain.CallerContextKey, caller)
		}
		c.Next()
	}
}

func callerFromToken(c *gin.Context, secret string) (domain.Caller, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return domain.Caller{}, false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return domain.Caller{}, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Caller{}, false
	}

	caller := domain.Caller{}
	if id, ok := claims["user_id"].(float64); ok {
		caller.ID = domain.ID(id)
	}
	if caller.ID == 0 {
		return domain.Caller{}, false
	}
	if raw, ok := claims["roles"].([]any); ok {
		for _, r := range raw {
			if s, ok := r.(string); ok {
				caller.Roles = append(caller.Roles, s)
			}
		}
	}
	return caller, true
}
