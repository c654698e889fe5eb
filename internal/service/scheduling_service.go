package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ragavi-632007/exam-timetable/internal/models"
	"github.com/ragavi-632007/exam-timetable/pkg/database"
	appErrors "github.com/ragavi-632007/exam-timetable/pkg/errors"
	"github.com/ragavi-632007/exam-timetable/pkg/middleware/requestid"
)

// examScheduleCachePattern matches every cached timetable listing.
const examScheduleCachePattern = "exam_schedules:*"

type schedulingSubjectStore interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Subject, error)
	FindByName(ctx context.Context, exec sqlx.ExtContext, name string) ([]models.Subject, error)
	FindByCode(ctx context.Context, exec sqlx.ExtContext, code string) (*models.Subject, error)
	Create(ctx context.Context, exec sqlx.ExtContext, subject *models.Subject) error
}

type schedulingDepartmentStore interface {
	FindByName(ctx context.Context, exec sqlx.ExtContext, name string) (*models.Department, error)
}

type schedulingStaffStore interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Staff, error)
}

type examScheduleStore interface {
	ListByDate(ctx context.Context, exec sqlx.ExtContext, date models.Date) ([]models.ExamScheduleDetail, error)
	ListBySubjectName(ctx context.Context, exec sqlx.ExtContext, name string) ([]models.ExamScheduleDetail, error)
	FindBySubjectAndDepartment(ctx context.Context, exec sqlx.ExtContext, subjectID, departmentID string) (*models.ExamSchedule, error)
	BulkCreate(ctx context.Context, exec sqlx.ExtContext, schedules []models.ExamSchedule) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type departmentNotifier interface {
	Notify(ctx context.Context, notifications []models.DepartmentNotification)
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// ScheduleExamRequest is the payload of a scheduling request. Exactly one of SubjectID and
// StaffID is set; StaffID selects the subject embedded in a legacy staff profile.
type ScheduleExamRequest struct {
	SubjectID  string          `json:"subject_id" validate:"required_without=StaffID,excluded_with=StaffID"`
	StaffID    string          `json:"staff_id" validate:"required_without=SubjectID"`
	ExamDate   string          `json:"exam_date" validate:"required,datetime=2006-01-02"`
	AssignedBy string          `json:"assigned_by" validate:"required"`
	ExamType   models.ExamType `json:"exam_type" validate:"required,oneof=IA1 IA2 MODEL"`
}

// SubjectRef returns the subject reference carried by the request.
func (r ScheduleExamRequest) SubjectRef() models.SubjectRef {
	if strings.TrimSpace(r.SubjectID) != "" {
		return models.CatalogSubject(strings.TrimSpace(r.SubjectID))
	}
	return models.StaffEmbeddedSubject(strings.TrimSpace(r.StaffID))
}

// ScheduleExamResult lists the committed records, the originating one first.
type ScheduleExamResult struct {
	Subject                 models.Subject        `json:"subject"`
	Department              models.Department     `json:"department"`
	Schedules               []models.ExamSchedule `json:"schedules"`
	SynchronizedDepartments []string              `json:"synchronized_departments"`
}

// SchedulingConfig tunes the scheduling transaction.
type SchedulingConfig struct {
	Serializable bool
	TxRetries    int
}

// SchedulingService validates exam dates against department and shared-subject rules and
// commits the originating booking together with its synchronized copies.
type SchedulingService struct {
	subjects    schedulingSubjectStore
	departments schedulingDepartmentStore
	staff       schedulingStaffStore
	schedules   examScheduleStore
	tx          txProvider
	notifier    departmentNotifier
	cache       cacheInvalidator
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         SchedulingConfig
}

// NewSchedulingService wires the scheduling engine.
func NewSchedulingService(
	subjects schedulingSubjectStore,
	departments schedulingDepartmentStore,
	staff schedulingStaffStore,
	schedules examScheduleStore,
	tx txProvider,
	notifier departmentNotifier,
	cache cacheInvalidator,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg SchedulingConfig,
) *SchedulingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TxRetries < 0 {
		cfg.TxRetries = 0
	}
	return &SchedulingService{
		subjects:    subjects,
		departments: departments,
		staff:       staff,
		schedules:   schedules,
		tx:          tx,
		notifier:    notifier,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
	}
}

// schedulePlan is the validated outcome of one attempt, ready to be inserted.
type schedulePlan struct {
	subject       models.Subject
	department    models.Department
	records       []models.ExamSchedule
	notifications []models.DepartmentNotification
}

type fanOutTarget struct {
	subject    models.Subject
	department models.Department
}

// ScheduleExam books req's subject on the requested date for its department and every other
// department teaching a subject of the same name.
func (s *SchedulingService) ScheduleExam(ctx context.Context, req ScheduleExamRequest) (*ScheduleExamResult, error) {
	start := time.Now()
	result, err := s.scheduleExam(ctx, req)

	if err == nil {
		s.metrics.ObserveScheduling(OutcomeScheduled, "", len(result.Schedules), time.Since(start))
		return result, nil
	}
	appErr := appErrors.FromError(err)
	outcome := OutcomeRejected
	if appErr.Status >= http.StatusInternalServerError {
		outcome = OutcomeFailed
	}
	s.metrics.ObserveScheduling(outcome, appErr.Code, 0, time.Since(start))
	return nil, err
}

func (s *SchedulingService) scheduleExam(ctx context.Context, req ScheduleExamRequest) (*ScheduleExamResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	date, err := models.ParseDate(req.ExamDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam date")
	}
	ref := req.SubjectRef()
	logger := s.logger.With(
		zap.String("request_id", requestid.FromContext(ctx)),
		zap.Stringer("subject_ref", ref),
		zap.String("exam_date", date.String()),
	)

	var plan *schedulePlan
	for attempt := 0; ; attempt++ {
		plan, err = s.attempt(ctx, ref, date, req, logger)
		if err == nil || attempt >= s.cfg.TxRetries || !retryable(err) {
			break
		}
		s.metrics.IncTxRetry()
		logger.Info("scheduling transaction restarted", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	if err != nil {
		appErr := schedulingAppError(err, date)
		if appErr.Status >= http.StatusInternalServerError {
			logger.Error("scheduling failed", zap.Error(err))
		} else {
			logger.Info("scheduling rejected", zap.String("code", appErr.Code), zap.String("reason", appErr.Message))
		}
		return nil, appErr
	}

	logger.Info("exam scheduled",
		zap.String("department", plan.department.Name),
		zap.String("subject", plan.subject.Name),
		zap.Int("records", len(plan.records)))

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, examScheduleCachePattern); err != nil {
			logger.Warn("failed to invalidate timetable cache", zap.Error(err))
		}
	}
	if s.notifier != nil && len(plan.notifications) > 0 {
		s.notifier.Notify(ctx, plan.notifications)
	}

	synced := make([]string, 0, len(plan.notifications))
	for _, n := range plan.notifications {
		synced = append(synced, n.DepartmentName)
	}
	return &ScheduleExamResult{
		Subject:                 plan.subject,
		Department:              plan.department,
		Schedules:               plan.records,
		SynchronizedDepartments: synced,
	}, nil
}

func (s *SchedulingService) txOptions() *sql.TxOptions {
	if !s.cfg.Serializable {
		return nil
	}
	return &sql.TxOptions{Isolation: sql.LevelSerializable}
}

// attempt runs validation and the insert inside one transaction.
func (s *SchedulingService) attempt(ctx context.Context, ref models.SubjectRef, date models.Date, req ScheduleExamRequest, logger *zap.Logger) (plan *schedulePlan, err error) {
	tx, err := s.tx.BeginTxx(ctx, s.txOptions())
	if err != nil {
		return nil, fmt.Errorf("begin scheduling transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	plan, err = s.plan(ctx, tx, ref, date, req, logger)
	if err != nil {
		return nil, err
	}
	if err = s.schedules.BulkCreate(ctx, tx, plan.records); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit scheduling transaction: %w", err)
	}
	return plan, nil
}

func (s *SchedulingService) plan(ctx context.Context, exec sqlx.ExtContext, ref models.SubjectRef, date models.Date, req ScheduleExamRequest, logger *zap.Logger) (*schedulePlan, error) {
	subject, err := s.resolveSubject(ctx, exec, ref, logger)
	if err != nil {
		return nil, err
	}
	groupName := strings.TrimSpace(subject.Name)

	dept, err := s.departments.FindByName(ctx, exec, subject.DepartmentName())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.SchedulingError{
			Kind:       models.DepartmentNotFound,
			Message:    fmt.Sprintf("Department %s of subject %s does not exist", subject.DepartmentName(), groupName),
			Department: subject.DepartmentName(),
		}
	}
	if err != nil {
		return nil, err
	}

	// A booked pair skips the same-day check: its own record would trip it. It still goes through
	// the shared date rule so a synchronized department learns which date it must keep.
	existing, err := s.schedules.FindBySubjectAndDepartment(ctx, exec, subject.ID, dept.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	booked := err == nil

	var sameDay []models.ExamScheduleDetail
	if !booked {
		if sameDay, err = s.schedules.ListByDate(ctx, exec, date); err != nil {
			return nil, err
		}
		if err := checkDoubleBooking(sameDay, groupName, *dept, date); err != nil {
			return nil, err
		}
	}

	group, err := s.schedules.ListBySubjectName(ctx, exec, groupName)
	if err != nil {
		return nil, err
	}
	if err := s.checkSharedDate(group, groupName, *dept, date, booked, logger); err != nil {
		return nil, err
	}
	if booked {
		return nil, alreadyScheduled(groupName, *dept, existing.ExamDate)
	}

	targets, err := s.discoverFanOut(ctx, exec, *subject, *dept, logger)
	if err != nil {
		return nil, err
	}

	originID := dept.ID
	plan := &schedulePlan{
		subject:    *subject,
		department: *dept,
		records: []models.ExamSchedule{{
			SubjectID:    subject.ID,
			ExamDate:     date,
			DepartmentID: dept.ID,
			AssignedBy:   req.AssignedBy,
			ExamType:     req.ExamType,
		}},
	}

	for _, target := range targets {
		existing, err := s.schedules.FindBySubjectAndDepartment(ctx, exec, target.subject.ID, target.department.ID)
		switch {
		case err == nil && existing.ExamDate.Equal(date):
			// already carries the group date
			continue
		case err == nil:
			return nil, alreadyScheduled(groupName, target.department, existing.ExamDate)
		case !errors.Is(err, sql.ErrNoRows):
			return nil, err
		}
		if err := checkDoubleBooking(sameDay, groupName, target.department, date); err != nil {
			return nil, err
		}

		plan.records = append(plan.records, models.ExamSchedule{
			SubjectID:          target.subject.ID,
			ExamDate:           date,
			DepartmentID:       target.department.ID,
			AssignedBy:         req.AssignedBy,
			PriorityDepartment: &originID,
			ExamType:           req.ExamType,
		})
		plan.notifications = append(plan.notifications, models.DepartmentNotification{
			DepartmentID:       target.department.ID,
			DepartmentName:     target.department.Name,
			SubjectName:        groupName,
			ExamDate:           date.String(),
			ExamType:           string(req.ExamType),
			OriginDepartmentID: dept.ID,
			OriginDepartment:   dept.Name,
			AssignedBy:         req.AssignedBy,
		})
	}

	return plan, nil
}

// resolveSubject turns a reference into a catalog subject, materializing the subject of a
// legacy staff profile when no catalog row carries its code yet.
func (s *SchedulingService) resolveSubject(ctx context.Context, exec sqlx.ExtContext, ref models.SubjectRef, logger *zap.Logger) (*models.Subject, error) {
	switch ref.Kind {
	case models.CatalogSubjectRef:
		subject, err := s.subjects.FindByID(ctx, exec, ref.ID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.SchedulingError{Kind: models.SubjectNotFound, Message: fmt.Sprintf("Subject %s does not exist", ref.ID)}
		}
		return subject, err

	case models.StaffEmbeddedSubjectRef:
		staff, err := s.staff.FindByID(ctx, exec, ref.ID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.SchedulingError{Kind: models.SubjectNotFound, Message: fmt.Sprintf("Staff member %s does not exist", ref.ID)}
		}
		if err != nil {
			return nil, err
		}
		name, code, ok := staff.EmbeddedSubject()
		if !ok {
			return nil, &models.SchedulingError{Kind: models.SubjectNotFound, Message: fmt.Sprintf("Staff member %s has no subject assigned", staff.Name)}
		}

		subject, err := s.subjects.FindByCode(ctx, exec, code)
		if err == nil {
			return subject, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		shared := code
		subject = &models.Subject{
			Code:              code,
			Name:              name,
			Department:        strings.TrimSpace(staff.Department),
			IsShared:          true,
			SharedSubjectCode: &shared,
		}
		if err := s.subjects.Create(ctx, exec, subject); err != nil {
			return nil, err
		}
		logger.Info("materialized subject from staff profile", zap.String("staff_id", staff.ID), zap.String("code", code))
		return subject, nil

	default:
		return nil, &models.SchedulingError{Kind: models.SubjectNotFound, Message: "Subject reference is empty"}
	}
}

// checkSharedDate rejects a date that differs from any date already held by the subject-name
// group. When the requester's pair is booked, records it originated are left to the existence
// check so the caller gets AlreadyScheduled for its own booking.
func (s *SchedulingService) checkSharedDate(group []models.ExamScheduleDetail, groupName string, dept models.Department, date models.Date, booked bool, logger *zap.Logger) error {
	dates := make(map[string]struct{}, 1)
	for _, rec := range group {
		dates[rec.ExamDate.String()] = struct{}{}
	}
	if len(dates) > 1 {
		s.metrics.IncSharedSubjectInconsistency()
		found := make([]string, 0, len(dates))
		for d := range dates {
			found = append(found, d)
		}
		logger.Warn("shared subject group holds several exam dates", zap.String("subject", groupName), zap.Strings("dates", found))
	}

	for _, rec := range group {
		if rec.ExamDate.Equal(date) {
			continue
		}
		originID, originName := rec.OriginDepartment()
		if booked && (originID == dept.ID || strings.EqualFold(originName, strings.TrimSpace(dept.Name))) {
			continue
		}
		return &models.SchedulingError{
			Kind:       models.SharedSubjectDateMismatch,
			Message:    fmt.Sprintf("Subject %s is already scheduled by %s on %s. Please choose the same date.", groupName, originName, rec.ExamDate),
			Department: originName,
			ExamDate:   rec.ExamDate.String(),
		}
	}
	return nil
}

// discoverFanOut returns one target per other department teaching a subject of the same name.
func (s *SchedulingService) discoverFanOut(ctx context.Context, exec sqlx.ExtContext, subject models.Subject, origin models.Department, logger *zap.Logger) ([]fanOutTarget, error) {
	siblings, err := s.subjects.FindByName(ctx, exec, subject.Name)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{origin.ID: {}}
	targets := make([]fanOutTarget, 0, len(siblings))
	for _, sibling := range siblings {
		if sibling.ID == subject.ID || sibling.DepartmentName() == subject.DepartmentName() {
			continue
		}
		dept, err := s.departments.FindByName(ctx, exec, sibling.DepartmentName())
		if errors.Is(err, sql.ErrNoRows) {
			logger.Warn("skipping shared subject in unknown department",
				zap.String("subject_id", sibling.ID), zap.String("department", sibling.DepartmentName()))
			continue
		}
		if err != nil {
			return nil, err
		}
		if _, dup := seen[dept.ID]; dup {
			continue
		}
		seen[dept.ID] = struct{}{}
		targets = append(targets, fanOutTarget{subject: sibling, department: *dept})
	}
	return targets, nil
}

// checkDoubleBooking fails when dept already has an exam of another subject group on date.
func checkDoubleBooking(sameDay []models.ExamScheduleDetail, groupName string, dept models.Department, date models.Date) error {
	deptName := strings.TrimSpace(dept.Name)
	for _, rec := range sameDay {
		if strings.TrimSpace(rec.SubjectName) == groupName {
			continue
		}
		if rec.DepartmentID != dept.ID && strings.TrimSpace(rec.DepartmentName) != deptName {
			continue
		}
		return &models.SchedulingError{
			Kind:       models.DepartmentDoubleBooked,
			Message:    fmt.Sprintf("%s already has an exam (%s) scheduled on %s", deptName, strings.TrimSpace(rec.SubjectName), date),
			Department: deptName,
			ExamDate:   date.String(),
		}
	}
	return nil
}

func alreadyScheduled(subjectName string, dept models.Department, on models.Date) *models.SchedulingError {
	return &models.SchedulingError{
		Kind:       models.AlreadyScheduled,
		Message:    fmt.Sprintf("Subject %s is already scheduled for %s on %s", subjectName, strings.TrimSpace(dept.Name), on),
		Department: strings.TrimSpace(dept.Name),
		ExamDate:   on.String(),
	}
}

// retryable reports whether a failed attempt may succeed when re-run from scratch.
func retryable(err error) bool {
	if database.IsRetryable(err) {
		return true
	}
	// a concurrent request materialized the same staff subject; the re-run finds it
	return database.IsDuplicateConstraintError(err, database.ConstraintSubjectCode)
}

var schedulingKindErrors = map[models.SchedulingErrorKind]*appErrors.Error{
	models.SubjectNotFound:           appErrors.ErrSubjectNotFound,
	models.DepartmentNotFound:        appErrors.ErrDepartmentNotFound,
	models.DepartmentDoubleBooked:    appErrors.ErrDepartmentDoubleBooked,
	models.SharedSubjectDateMismatch: appErrors.ErrSharedSubjectDateMismatch,
	models.AlreadyScheduled:          appErrors.ErrAlreadyScheduled,
	models.PersistenceError:          appErrors.ErrPersistence,
}

// schedulingAppError converts an attempt failure into the HTTP-aware error returned to callers.
func schedulingAppError(err error, date models.Date) *appErrors.Error {
	var schedErr *models.SchedulingError
	if !errors.As(err, &schedErr) {
		schedErr = classifyStoreError(err, date)
	}
	base, ok := schedulingKindErrors[schedErr.Kind]
	if !ok {
		base = appErrors.ErrPersistence
	}
	return appErrors.WithDetails(appErrors.WrapAs(base, schedErr, schedErr.Message), schedErr)
}

// classifyStoreError maps constraint violations raced in by concurrent writers onto the rule
// they protect; anything else is a persistence failure.
func classifyStoreError(err error, date models.Date) *models.SchedulingError {
	if constraint, ok := database.UniqueViolation(err); ok {
		switch constraint {
		case database.ConstraintSubjectDepartment:
			return &models.SchedulingError{
				Kind:    models.AlreadyScheduled,
				Message: "Subject was scheduled for this department by a concurrent request",
				Err:     err,
			}
		case database.ConstraintDepartmentDate:
			return &models.SchedulingError{
				Kind:     models.DepartmentDoubleBooked,
				Message:  fmt.Sprintf("A department already has an exam scheduled on %s", date),
				ExamDate: date.String(),
				Err:      err,
			}
		}
	}
	return &models.SchedulingError{
		Kind:    models.PersistenceError,
		Message: "Schedule store is unavailable, please retry",
		Err:     err,
	}
}
