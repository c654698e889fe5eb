package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ragavi-632007/exam-timetable/internal/models"
	appErrors "github.com/ragavi-632007/exam-timetable/pkg/errors"
	"github.com/ragavi-632007/exam-timetable/pkg/export"
)

const exportPageSize = 200

type examScheduleReader interface {
	List(ctx context.Context, filter models.ExamScheduleFilter) ([]models.ExamScheduleDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.ExamSchedule, error)
	Delete(ctx context.Context, id string) error
}

type timetableRenderer interface {
	ContentType() string
	Extension() string
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFormat selects the rendered timetable document type.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// ExportedTimetable is a rendered timetable document.
type ExportedTimetable struct {
	Filename    string
	ContentType string
	Body        []byte
}

type examSchedulePage struct {
	Items []models.ExamScheduleDetail `json:"items"`
	Total int                         `json:"total"`
}

// ExamScheduleService serves timetable reads, deletes and exports.
type ExamScheduleService struct {
	repo      examScheduleReader
	cache     *CacheService
	metrics   *MetricsService
	renderers map[ExportFormat]timetableRenderer
	logger    *zap.Logger
}

// NewExamScheduleService constructs the service. Nil renderers fall back to the defaults.
func NewExamScheduleService(repo examScheduleReader, cache *CacheService, metrics *MetricsService, logger *zap.Logger, csv, pdf timetableRenderer) *ExamScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter("")
	}
	return &ExamScheduleService{
		repo:      repo,
		cache:     cache,
		metrics:   metrics,
		renderers: map[ExportFormat]timetableRenderer{ExportCSV: csv, ExportPDF: pdf},
		logger:    logger,
	}
}

// List returns one page of the timetable. The boolean reports a cache hit.
func (s *ExamScheduleService) List(ctx context.Context, filter models.ExamScheduleFilter) ([]models.ExamScheduleDetail, *models.Pagination, bool, error) {
	filter = normalizeScheduleFilter(filter)
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, nil, false, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}

	key := examScheduleCacheKey(filter)
	var page examSchedulePage
	if hit, _ := s.cache.Get(ctx, key, &page); hit {
		return page.Items, paginationFor(filter, page.Total), true, nil
	}

	start := time.Now()
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exam schedules")
	}
	s.metrics.ObserveDBQuery("exam_schedules_list", time.Since(start))
	if items == nil {
		items = []models.ExamScheduleDetail{}
	}

	_ = s.cache.Set(ctx, key, examSchedulePage{Items: items, Total: total}, 0)
	return items, paginationFor(filter, total), false, nil
}

// Get returns a single booking.
func (s *ExamScheduleService) Get(ctx context.Context, id string) (*models.ExamSchedule, error) {
	sched, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam schedule")
	}
	return sched, nil
}

// Delete removes a single booking. Synchronized copies in other departments are left alone.
func (s *ExamScheduleService) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "id is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "exam schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete exam schedule")
	}
	if err := s.cache.Invalidate(ctx, examScheduleCachePattern); err != nil {
		s.logger.Warn("failed to invalidate timetable cache", zap.String("id", id), zap.Error(err))
	}
	s.logger.Info("exam schedule deleted", zap.String("id", id))
	return nil
}

// Export renders every schedule matching filter, ignoring its pagination.
func (s *ExamScheduleService) Export(ctx context.Context, filter models.ExamScheduleFilter, format ExportFormat) (*ExportedTimetable, error) {
	renderer, ok := s.renderers[ExportFormat(strings.ToLower(string(format)))]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	var rows []models.ExamScheduleDetail
	filter.PageSize = exportPageSize
	for page := 1; ; page++ {
		filter.Page = page
		items, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam schedules for export")
		}
		rows = append(rows, items...)
		if len(items) == 0 || len(rows) >= total {
			break
		}
	}

	body, err := renderer.Render(timetableDataset(rows), timetableTitle(filter))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable")
	}
	return &ExportedTimetable{
		Filename:    fmt.Sprintf("exam-timetable-%s.%s", time.Now().UTC().Format("20060102"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

var timetableHeaders = []string{"Date", "Exam Type", "Department", "Subject Code", "Subject", "Synchronized From"}

func timetableDataset(rows []models.ExamScheduleDetail) export.Dataset {
	data := export.Dataset{Headers: timetableHeaders, Rows: make([]map[string]string, 0, len(rows))}
	for _, r := range rows {
		syncedFrom := ""
		if r.Synchronized() {
			_, syncedFrom = r.OriginDepartment()
		}
		data.Rows = append(data.Rows, map[string]string{
			"Date":              r.ExamDate.String(),
			"Exam Type":         string(r.ExamType),
			"Department":        r.DepartmentName,
			"Subject Code":      r.SubjectCode,
			"Subject":           strings.TrimSpace(r.SubjectName),
			"Synchronized From": syncedFrom,
		})
	}
	return data
}

func timetableTitle(filter models.ExamScheduleFilter) string {
	title := "Exam Timetable"
	if filter.ExamType != "" {
		title = string(filter.ExamType) + " " + title
	}
	switch {
	case filter.Date != nil:
		title += " - " + filter.Date.String()
	case filter.From != nil && filter.To != nil:
		title += fmt.Sprintf(" - %s to %s", filter.From, filter.To)
	}
	return title
}

func normalizeScheduleFilter(filter models.ExamScheduleFilter) models.ExamScheduleFilter {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	if filter.PageSize > exportPageSize {
		filter.PageSize = exportPageSize
	}
	filter.DepartmentID = strings.TrimSpace(filter.DepartmentID)
	return filter
}

func paginationFor(filter models.ExamScheduleFilter, total int) *models.Pagination {
	return &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
}

func examScheduleCacheKey(filter models.ExamScheduleFilter) string {
	parts := []string{"exam_schedules",
		"date=" + dateKey(filter.Date),
		"from=" + dateKey(filter.From),
		"to=" + dateKey(filter.To),
		"dept=" + strings.ReplaceAll(filter.DepartmentID, ":", "|"),
		"type=" + string(filter.ExamType),
		"page=" + strconv.Itoa(filter.Page),
		"size=" + strconv.Itoa(filter.PageSize),
	}
	return strings.Join(parts, ":")
}

func dateKey(d *models.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}
