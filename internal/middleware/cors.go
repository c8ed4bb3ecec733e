package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// The POS frontends run on a different origin than the API, so every browser
// request goes through a preflight. Methods must include PATCH for the stock
// adjustment endpoint.
var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":   "*",
	"Access-Control-Allow-Methods":  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	"Access-Control-Allow-Headers":  "Authorization, Content-Type, X-Request-ID",
	"Access-Control-Expose-Headers": "X-Request-ID",
}

// CORS answers preflight requests and exposes the request id to browser
// clients.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		for name, value := range corsHeaders {
			h.Set(name, value)
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
