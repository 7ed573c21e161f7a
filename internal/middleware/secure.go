package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
)

// NewSecureOptions returns the security header policy for the API.
func NewSecureOptions(isProduction bool) secure.Options {
	return secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'none'",
		SSLRedirect:           isProduction,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !isProduction,
	}
}

// SecureHeaders applies the unrolled/secure policy to every response.
func SecureHeaders(s *secure.Secure) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.Process(c.Writer, c.Request); err != nil {
			c.Abort()
			return
		}
		// secure may have written a redirect.
		if status := c.Writer.Status(); status > 300 && status < 399 {
			c.Abort()
			return
		}
		c.Next()
	}
}
