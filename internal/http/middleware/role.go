package middleware

import (
	"net/http"

	"billing/internal/domain"

	"github.com/gin-gonic/gin"
)

// AcceptRoles refuses callers who carry none of the named roles. An
// empty list accepts everyone authenticated.
func AcceptRoles(names ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(domain.CallerContextKey)
		caller, cast := v.(domain.Caller)
		if !ok || !cast || caller.Anonymous() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "authentication required"})
			return
		}
		if !caller.HasAnyRole(names...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"message": domain.ForbiddenError{Operation: "Access"}.Error(),
			})
			return
		}
		c.Next()
	}
}
