package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ragavi-632007/exam-timetable/internal/middleware"
	"github.com/ragavi-632007/exam-timetable/internal/models"
	appErrors "github.com/ragavi-632007/exam-timetable/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// dateQuery parses an optional YYYY-MM-DD query parameter.
func dateQuery(c *gin.Context, key string) (*models.Date, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, key+" must be a YYYY-MM-DD date")
	}
	return &d, nil
}

func intQuery(c *gin.Context, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, key+" must be a non-negative integer")
	}
	return n, nil
}

func examTypeQuery(c *gin.Context) (models.ExamType, error) {
	raw := models.ExamType(strings.ToUpper(strings.TrimSpace(c.Query("examType"))))
	if raw == "" {
		return "", nil
	}
	for _, t := range models.ExamTypes {
		if t == raw {
			return raw, nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrValidation, "examType must be one of IA1, IA2, MODEL")
}
