package middleware

import (
	"net/http"
	"strings"

	"construction-pos/internal/service"
	"construction-pos/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	actorKey        = "actor"
	accessTokenName = "access_token"
)

// TokenParser verifies a bearer token. The user service implements it.
type TokenParser interface {
	ParseToken(token string) (*service.Claims, error)
}

// SetTokenCookie stores the access token as an HttpOnly cookie for the browser UI
func SetTokenCookie(c *gin.Context, token string, maxAge int, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(accessTokenName, token, maxAge, "/", "", secure, true)
}

// ClearTokenCookie removes the access token cookie
func ClearTokenCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(accessTokenName, "", -1, "/", "", secure, true)
}

// tokenFrom tries the cookie first, then the Authorization header.
func tokenFrom(c *gin.Context) (string, string) {
	if token, err := c.Cookie(accessTokenName); err == nil && token != "" {
		return token, ""
	}
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", "Authorization is missing"
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", "Invalid authorization format. Expected 'Bearer <token>'"
	}
	return parts[1], ""
}

// Authenticate verifies the JWT and stores the operator on the context.
func Authenticate(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, problem := tokenFrom(c)
		if problem != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, problem))
			return
		}

		claims, err := parser.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
			return
		}

		c.Set(actorKey, claims.Actor())
		c.Next()
	}
}

// RequireRole lets the request through when the authenticated role is one of allowedRoles.
// It must run after Authenticate.
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := c.Get(actorKey)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authentication required"))
			return
		}
		role := actor.(service.Actor).Role
		for _, allowed := range allowedRoles {
			if role == allowed {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
	}
}

// ActorFrom returns the operator set by Authenticate, or the system actor.
func ActorFrom(c *gin.Context) service.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(service.Actor); ok {
			return actor
		}
	}
	return service.Actor{}
}
