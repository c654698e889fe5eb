package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalmiddleware "github.com/ragavi-632007/exam-timetable/internal/middleware"
	"github.com/ragavi-632007/exam-timetable/internal/models"
	"github.com/ragavi-632007/exam-timetable/internal/service"
)

type alertServiceMock struct {
	createdBy  string
	req        service.CreateAlertRequest
	filter     models.ExamAlertFilter
	activeOnly bool
}

func (m *alertServiceMock) Create(ctx context.Context, req service.CreateAlertRequest, createdBy string) (*models.ExamAlert, error) {
	m.req = req
	m.createdBy = createdBy
	return &models.ExamAlert{ID: "alert-1", Title: req.Title}, nil
}

func (m *alertServiceMock) Get(ctx context.Context, id string) (*models.ExamAlert, error) {
	return &models.ExamAlert{ID: id}, nil
}

func (m *alertServiceMock) List(ctx context.Context, filter models.ExamAlertFilter, activeOnly bool) ([]models.ExamAlert, error) {
	m.filter = filter
	m.activeOnly = activeOnly
	return []models.ExamAlert{}, nil
}

func TestAlertHandlerCreate(t *testing.T) {
	mock := &alertServiceMock{}
	handler := &AlertHandler{service: mock}
	c, w := newTestContext(http.MethodPost, "/alerts",
		[]byte(`{"title":"IA1 window","start_date":"2025-09-01","end_date":"2025-09-10","year":2,"semester":3,"exam_type":"IA1"}`))
	c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "admin-1", mock.createdBy)
	assert.Equal(t, "2025-09-10", mock.req.EndDate)
}

func TestAlertHandlerListActive(t *testing.T) {
	mock := &alertServiceMock{}
	handler := &AlertHandler{service: mock}
	c, w := newTestContext(http.MethodGet, "/alerts?active=true&year=3&examType=IA2", nil)

	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mock.activeOnly)
	assert.Equal(t, 3, mock.filter.Year)
	assert.Equal(t, models.ExamTypeIA2, mock.filter.ExamType)
}
