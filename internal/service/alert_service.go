package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ragavi-632007/exam-timetable/internal/models"
	appErrors "github.com/ragavi-632007/exam-timetable/pkg/errors"
)

type alertRepository interface {
	Create(ctx context.Context, alert *models.ExamAlert) error
	FindByID(ctx context.Context, id string) (*models.ExamAlert, error)
	List(ctx context.Context, filter models.ExamAlertFilter) ([]models.ExamAlert, error)
}

// CreateAlertRequest opens a window in which departments schedule one exam type.
type CreateAlertRequest struct {
	Title     string          `json:"title" validate:"required,max=200"`
	StartDate string          `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string          `json:"end_date" validate:"required,datetime=2006-01-02"`
	Year      int             `json:"year" validate:"required,min=1,max=5"`
	Semester  int             `json:"semester" validate:"required,min=1,max=10"`
	ExamType  models.ExamType `json:"exam_type" validate:"required,oneof=IA1 IA2 MODEL"`
}

// AlertService manages exam scheduling windows.
type AlertService struct {
	repo      alertRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAlertService constructs an AlertService.
func NewAlertService(repo alertRepository, validate *validator.Validate, logger *zap.Logger) *AlertService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertService{repo: repo, validator: validate, logger: logger, now: time.Now}
}

// Create stores a new alert window.
func (s *AlertService) Create(ctx context.Context, req CreateAlertRequest, createdBy string) (*models.ExamAlert, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid alert payload")
	}
	start, err := models.ParseDate(req.StartDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start_date")
	}
	end, err := models.ParseDate(req.EndDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end_date")
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}

	alert := &models.ExamAlert{
		Title:     strings.TrimSpace(req.Title),
		StartDate: start,
		EndDate:   end,
		Year:      req.Year,
		Semester:  req.Semester,
		ExamType:  req.ExamType,
		CreatedBy: createdBy,
	}
	if err := s.repo.Create(ctx, alert); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create alert")
	}
	s.logger.Info("exam alert created", zap.String("id", alert.ID), zap.String("exam_type", string(alert.ExamType)),
		zap.String("start", start.String()), zap.String("end", end.String()))
	return alert, nil
}

// Get returns an alert by id.
func (s *AlertService) Get(ctx context.Context, id string) (*models.ExamAlert, error) {
	alert, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "alert not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load alert")
	}
	return alert, nil
}

// List returns alerts. When activeOnly is set, only windows containing today are returned.
func (s *AlertService) List(ctx context.Context, filter models.ExamAlertFilter, activeOnly bool) ([]models.ExamAlert, error) {
	if activeOnly && filter.ActiveOn == nil {
		today := models.NewDate(s.now())
		filter.ActiveOn = &today
	}
	alerts, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list alerts")
	}
	if alerts == nil {
		alerts = []models.ExamAlert{}
	}
	return alerts, nil
}
