package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"vote-service/internal/session"
	"vote-service/internal/signer"
)

const signerContextKey = "authSigner"

// SignerFromContext extracts the authenticated signer placed by
// RequireAuth.
func SignerFromContext(c *gin.Context) (*signer.Signer, bool) {
	v, ok := c.Get(signerContextKey)
	if !ok {
		return nil, false
	}
	sg, ok := v.(*signer.Signer)
	return sg, ok
}

type AuthMiddleware struct {
	gateway *session.Gateway
}

func NewAuthMiddleware(gateway *session.Gateway) *AuthMiddleware {
	return &AuthMiddleware{gateway: gateway}
}

// RequireAuth validates the bearer token and device id against the
// session gateway. Every session failure is surfaced uniformly as 401
// "please re-authenticate"; the taxonomy is not leaked to the caller.
func (a *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		deviceID := deviceID(c)

		sg, err := a.gateway.Validate(c.Request.Context(), token, deviceID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "please re-authenticate",
			})
			return
		}

		c.Set(signerContextKey, sg)
		c.Next()
	}
}

// bearerToken reads the Authorization header, falling back to the
// access_token cookie.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}

	if cookie, err := c.Request.Cookie(session.TokenCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// deviceID reads the device-id header, falling back to the device_id
// cookie.
func deviceID(c *gin.Context) string {
	if id := c.GetHeader("device-id"); id != "" {
		return id
	}
	if cookie, err := c.Request.Cookie(session.DeviceCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
