// Package csrfgin mounts a csrf.Protector on gin routers.
package csrfgin

import (
	"net/http"

	"github.com/JeanGrijp/csrfguard/csrf"
	"github.com/gin-gonic/gin"
)

// Middleware adapts the net/http CSRF middleware to Gin.
// A rejected request is aborted after the guard has written its 403 response.
func Middleware(p *csrf.Protector) gin.HandlerFunc {
	return func(c *gin.Context) {
		passed := false
		h := p.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			// keep gin context in sync with the request carrying the token
			c.Request = r
			c.Next()
		}))
		h.ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
		}
	}
}

// TokenHandler serves the issuance envelope from a gin route.
func TokenHandler(p *csrf.Protector) gin.HandlerFunc {
	h := p.TokenHandler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
