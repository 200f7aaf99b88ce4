// Package middleware holds gin middleware shared by the route groups.
package middleware

import (
	"github.com/postscript-blog/postscript/web/entity"
	"github.com/postscript-blog/postscript/web/session"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// LoadPrincipal reads the session once per request and stores the caller in the gin
// context. Anonymous requests store nothing.
func LoadPrincipal() gin.HandlerFunc {
	return func(c *gin.Context) {
		if p := session.GetPrincipal(c); p != nil {
			c.Set(principalKey, p)
		}
		c.Next()
	}
}

// Principal returns the caller stored by LoadPrincipal, or nil.
func Principal(c *gin.Context) *entity.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(*entity.Principal); ok {
			return p
		}
	}
	return nil
}
