package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/quimbellmunt/medscan/config"
	"github.com/quimbellmunt/medscan/pkg/logger"
)

// tokenIssuer identifies tokens minted by this service. Tokens from any
// other issuer are rejected.
const tokenIssuer = "medscan"

// Claims scope a token to one tenant's documents.
type Claims struct {
	Tenant string `json:"tenant"`
	jwt.RegisteredClaims
}

// GenerateToken mints a tenant-scoped HS256 token for a user.
func GenerateToken(username, tenant string, cfg *config.AuthConfig) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(time.Duration(cfg.TokenExpireHours) * time.Hour)

	claims := Claims{
		Tenant: tenant,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// AuthMiddleware validates the bearer token and stamps the tenant and
// username onto both the gin context and the request context, so that
// handlers and their log lines see the same caller.
func AuthMiddleware(cfg *config.AuthConfig) gin.HandlerFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)

	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Bearer token required"})
			return
		}

		claims := &Claims{}
		token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid || claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(string(logger.UsernameKey), claims.Subject)
		c.Set(string(logger.TenantKey), claims.Tenant)

		requestID := GetRequestID(c)
		ctx := logger.WithRequest(c.Request.Context(), requestID, claims.Tenant, claims.Subject)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header.
func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// GetUsername gets the authenticated username from context
func GetUsername(c *gin.Context) string {
	return c.GetString(string(logger.UsernameKey))
}

// GetTenant gets the authenticated tenant from context
func GetTenant(c *gin.Context) string {
	return c.GetString(string(logger.TenantKey))
}
