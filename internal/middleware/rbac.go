package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/ragavi-632007/exam-timetable/internal/models"
	appErrors "github.com/ragavi-632007/exam-timetable/pkg/errors"
	"github.com/ragavi-632007/exam-timetable/pkg/response"
)

// RequireRoles admits only callers whose token carries one of the roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(claims.Role)+" may not perform this action"))
			c.Abort()
			return
		}
		c.Next()
	}
}
