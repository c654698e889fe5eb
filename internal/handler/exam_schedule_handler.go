package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ragavi-632007/exam-timetable/internal/middleware"
	"github.com/ragavi-632007/exam-timetable/internal/models"
	"github.com/ragavi-632007/exam-timetable/internal/service"
	appErrors "github.com/ragavi-632007/exam-timetable/pkg/errors"
	"github.com/ragavi-632007/exam-timetable/pkg/response"
)

type examScheduler interface {
	ScheduleExam(ctx context.Context, req service.ScheduleExamRequest) (*service.ScheduleExamResult, error)
}

type timetableService interface {
	List(ctx context.Context, filter models.ExamScheduleFilter) ([]models.ExamScheduleDetail, *models.Pagination, bool, error)
	Get(ctx context.Context, id string) (*models.ExamSchedule, error)
	Delete(ctx context.Context, id string) error
	Export(ctx context.Context, filter models.ExamScheduleFilter, format service.ExportFormat) (*service.ExportedTimetable, error)
}

// ExamScheduleHandler exposes exam scheduling and timetable endpoints.
type ExamScheduleHandler struct {
	scheduler examScheduler
	timetable timetableService
}

// NewExamScheduleHandler constructs the handler.
func NewExamScheduleHandler(scheduler *service.SchedulingService, timetable *service.ExamScheduleService) *ExamScheduleHandler {
	return &ExamScheduleHandler{scheduler: scheduler, timetable: timetable}
}

// Schedule godoc
// @Summary Schedule an exam
// @Description Books the subject for the caller's department and every department teaching a subject of the same name. Conflicts return 409 with the conflicting department and date.
// @Tags Exam Schedules
// @Accept json
// @Produce json
// @Param payload body service.ScheduleExamRequest true "Scheduling request"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /exam-schedules [post]
func (h *ExamScheduleHandler) Schedule(c *gin.Context) {
	var req service.ScheduleExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}
	if identity := claimsFromContext(c).Identity(); identity != "" {
		req.AssignedBy = identity
	}

	result, err := h.scheduler.ScheduleExam(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List scheduled exams
// @Tags Exam Schedules
// @Produce json
// @Param date query string false "Exact exam date (YYYY-MM-DD)"
// @Param from query string false "Range start (YYYY-MM-DD)"
// @Param to query string false "Range end (YYYY-MM-DD)"
// @Param departmentId query string false "Department ID"
// @Param examType query string false "IA1, IA2 or MODEL"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /exam-schedules [get]
func (h *ExamScheduleHandler) List(c *gin.Context) {
	filter, err := scheduleFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, pagination, hit, err := h.timetable.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, items, pagination, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get a scheduled exam
// @Tags Exam Schedules
// @Produce json
// @Param id path string true "Exam schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exam-schedules/{id} [get]
func (h *ExamScheduleHandler) Get(c *gin.Context) {
	sched, err := h.timetable.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sched, nil)
}

// Export godoc
// @Summary Export the timetable
// @Tags Exam Schedules
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Param from query string false "Range start (YYYY-MM-DD)"
// @Param to query string false "Range end (YYYY-MM-DD)"
// @Param departmentId query string false "Department ID"
// @Param examType query string false "IA1, IA2 or MODEL"
// @Success 200 {file} file
// @Router /exam-schedules/export [get]
func (h *ExamScheduleHandler) Export(c *gin.Context) {
	filter, err := scheduleFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportCSV)))
	doc, err := h.timetable.Export(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, doc.Filename, doc.ContentType, doc.Body)
}

// Delete godoc
// @Summary Delete a scheduled exam
// @Description Removes one booking. Bookings synchronized into other departments are kept.
// @Tags Exam Schedules
// @Param id path string true "Exam schedule ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /exam-schedules/{id} [delete]
func (h *ExamScheduleHandler) Delete(c *gin.Context) {
	if err := h.timetable.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func scheduleFilterFromQuery(c *gin.Context) (models.ExamScheduleFilter, error) {
	var filter models.ExamScheduleFilter
	var err error
	if filter.Date, err = dateQuery(c, "date"); err != nil {
		return filter, err
	}
	if filter.From, err = dateQuery(c, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = dateQuery(c, "to"); err != nil {
		return filter, err
	}
	if filter.ExamType, err = examTypeQuery(c); err != nil {
		return filter, err
	}
	if filter.Page, err = intQuery(c, "page"); err != nil {
		return filter, err
	}
	if filter.PageSize, err = intQuery(c, "limit"); err != nil {
		return filter, err
	}
	filter.DepartmentID = c.Query("departmentId")
	return filter, nil
}
