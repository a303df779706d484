// Package gateway implements auth and HTTP plumbing shared across plateful
// services: JWT middleware, CORS, rate limiting and instrumentation.
package gateway

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"

	"github.com/plateful/plateful/apperr"
)

// AuthMiddleware is a JWT authorization middleware. It resolves the owner id
// from the Authorization header and stores it on the request context; handlers
// behind it can trust gateway.UserID.
func (j *JWTAuth) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "empty header was sent", "code": "unauthorized"})
			return
		}
		h = strings.TrimPrefix(h, "Bearer ")

		claims, err := j.VerifyJWT(h)
		if err != nil {
			if e, ok := err.(*jwt.ValidationError); ok && e.Errors&jwt.ValidationErrorExpired != 0 {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "token has expired", "code": "jwt_expired"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "malformed token", "code": "jwt_malformed"})
			return
		}
		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Next()
	}
}

// UserID returns the authenticated user's id, or zero when the request did not
// pass AuthMiddleware.
func UserID(c *gin.Context) uint {
	return c.GetUint("user_id")
}

// AbortError writes err as a JSON error response using the apperr taxonomy.
func AbortError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperr.Status(err), apperr.Payload(err))
}

// OptionsMiddleware for cors headers
func OptionsMiddleware(c *gin.Context) {
	if c.Request.Method != http.MethodOptions {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Next()
	} else {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "authorization, origin, content-type, accept")
		c.Header("Allow", "HEAD,GET,POST,PUT,PATCH,DELETE,OPTIONS")
		c.Header("Content-Type", "application/json")
		c.AbortWithStatus(http.StatusOK)
	}
}
