package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ragavi-632007/exam-timetable/internal/models"
	"github.com/ragavi-632007/exam-timetable/internal/service"
	appErrors "github.com/ragavi-632007/exam-timetable/pkg/errors"
	"github.com/ragavi-632007/exam-timetable/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// JWT protects routes by requiring a valid access token issued by the auth provider.
func JWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing or malformed bearer token"))
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// DevIdentity attaches fixed claims to every request. It stands in for JWT when auth is
// disabled in local environments.
func DevIdentity(claims models.JWTClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		scoped := claims
		c.Set(ContextUserKey, &scoped)
		c.Next()
	}
}

// Claims returns the claims attached by JWT or DevIdentity.
func Claims(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	claims, _ := value.(*models.JWTClaims)
	return claims
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
