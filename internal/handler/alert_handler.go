package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ragavi-632007/exam-timetable/internal/models"
	"github.com/ragavi-632007/exam-timetable/internal/service"
	appErrors "github.com/ragavi-632007/exam-timetable/pkg/errors"
	"github.com/ragavi-632007/exam-timetable/pkg/response"
)

type alertService interface {
	Create(ctx context.Context, req service.CreateAlertRequest, createdBy string) (*models.ExamAlert, error)
	Get(ctx context.Context, id string) (*models.ExamAlert, error)
	List(ctx context.Context, filter models.ExamAlertFilter, activeOnly bool) ([]models.ExamAlert, error)
}

// AlertHandler exposes exam window alerts.
type AlertHandler struct {
	service alertService
}

// NewAlertHandler constructs the handler.
func NewAlertHandler(svc *service.AlertService) *AlertHandler {
	return &AlertHandler{service: svc}
}

// Create godoc
// @Summary Open an exam scheduling window
// @Tags Alerts
// @Accept json
// @Produce json
// @Param payload body service.CreateAlertRequest true "Alert payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /alerts [post]
func (h *AlertHandler) Create(c *gin.Context) {
	var req service.CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid alert payload"))
		return
	}
	alert, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c).Identity())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, alert)
}

// List godoc
// @Summary List exam scheduling windows
// @Tags Alerts
// @Produce json
// @Param active query bool false "Only windows containing today"
// @Param examType query string false "IA1, IA2 or MODEL"
// @Param year query int false "Year of study"
// @Success 200 {object} response.Envelope
// @Router /alerts [get]
func (h *AlertHandler) List(c *gin.Context) {
	examType, err := examTypeQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	year, err := intQuery(c, "year")
	if err != nil {
		response.Error(c, err)
		return
	}
	active, _ := strconv.ParseBool(c.DefaultQuery("active", "false"))

	alerts, err := h.service.List(c.Request.Context(), models.ExamAlertFilter{ExamType: examType, Year: year}, active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alerts, nil)
}

// Get godoc
// @Summary Get an exam scheduling window
// @Tags Alerts
// @Produce json
// @Param id path string true "Alert ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /alerts/{id} [get]
func (h *AlertHandler) Get(c *gin.Context) {
	alert, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alert, nil)
}
