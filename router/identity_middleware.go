package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// IdentityMiddleware resolves the calling owner from the X-Owner header
// and exposes it to handlers under the RequestUser context key, where
// wscutils.GetRequestUser picks it up. Requests without the header are
// answered with 401.
//
// Batch ownership is the only identity the screening engine checks, so
// a header is enough here. Installations fronted by a real identity
// provider swap this for their own middleware that sets RequestUser
// from the verified token.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := c.GetHeader("X-Owner")
		if owner == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, scenarioResponse(MissingOwner))
			return
		}

		c.Set("RequestUser", owner)
		c.Next()
	}
}
