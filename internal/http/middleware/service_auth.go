package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/coursecommerce-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

// ServiceAuth verifies HS256 bearer tokens minted by trusted collaborators
// (payment processor, content delivery, auth layer).
type ServiceAuth struct {
	log    *logger.Logger
	secret []byte
	issuer string
}

func NewServiceAuth(log *logger.Logger, secret, issuer string) *ServiceAuth {
	return &ServiceAuth{
		log:    log.With("middleware", "ServiceAuth"),
		secret: []byte(secret),
		issuer: strings.TrimSpace(issuer),
	}
}

func (a *ServiceAuth) RequireService() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		claims, err := a.Verify(tokenString)
		if err != nil {
			a.log.Warn("rejected service token", "path", c.FullPath(), "error", err)
			abortUnauthorized(c, "invalid token")
			return
		}
		ctx := ctxutil.WithCaller(c.Request.Context(), ctxutil.Caller{
			Subject: claims.Subject,
			Issuer:  claims.Issuer,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Verify parses and validates a token. Issuer is enforced when configured.
func (a *ServiceAuth) Verify(tokenString string) (*jwt.RegisteredClaims, error) {
	if len(a.secret) == 0 {
		return nil, errors.New("service auth secret not configured")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{"message": msg, "code": "unauthorized"},
	})
}
