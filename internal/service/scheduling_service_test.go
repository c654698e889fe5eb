package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragavi-632007/exam-timetable/internal/models"
	"github.com/ragavi-632007/exam-timetable/pkg/database"
	appErrors "github.com/ragavi-632007/exam-timetable/pkg/errors"
)

// memoryStore is an in-memory catalog and schedule store guarded by one mutex. It enforces
// the same unique constraints as the migration so raced inserts fail like Postgres would.
type memoryStore struct {
	mu          sync.Mutex
	departments []models.Department
	subjects    []models.Subject
	staff       map[string]models.Staff
	schedules   []models.ExamSchedule
	seq         int

	failOn     map[string]error
	beforeBulk func()
	bulkErrs   []error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		departments: []models.Department{
			{ID: "dept-cse", Name: "CSE", Code: "CS"},
			{ID: "dept-it", Name: "IT", Code: "IT"},
			{ID: "dept-ece", Name: "ECE", Code: "EC"},
			{ID: "dept-mech", Name: "MECH", Code: "ME"},
		},
		staff:  map[string]models.Staff{},
		failOn: map[string]error{},
	}
}

func (m *memoryStore) addSubject(id, code, name, dept string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects = append(m.subjects, models.Subject{ID: id, Code: code, Name: name, Department: dept})
}

func (m *memoryStore) addSchedule(subjectID, deptID, date string, priority *string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, _ := models.ParseDate(date)
	m.seq++
	m.schedules = append(m.schedules, models.ExamSchedule{
		ID: fmt.Sprintf("seed-%d", m.seq), SubjectID: subjectID, DepartmentID: deptID, ExamDate: d,
		AssignedBy: "seed", PriorityDepartment: priority, ExamType: models.ExamTypeIA1,
	})
}

func (m *memoryStore) snapshot() []models.ExamSchedule {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ExamSchedule, len(m.schedules))
	copy(out, m.schedules)
	return out
}

func (m *memoryStore) fail(op string) error {
	return m.failOn[op]
}

func (m *memoryStore) subjectByID(id string) (models.Subject, bool) {
	for _, s := range m.subjects {
		if s.ID == id {
			return s, true
		}
	}
	return models.Subject{}, false
}

func (m *memoryStore) departmentByID(id string) (models.Department, bool) {
	for _, d := range m.departments {
		if d.ID == id {
			return d, true
		}
	}
	return models.Department{}, false
}

func (m *memoryStore) detail(s models.ExamSchedule) models.ExamScheduleDetail {
	d := models.ExamScheduleDetail{ExamSchedule: s}
	if subj, ok := m.subjectByID(s.SubjectID); ok {
		d.SubjectName = subj.Name
		d.SubjectCode = subj.Code
	}
	if dept, ok := m.departmentByID(s.DepartmentID); ok {
		d.DepartmentName = dept.Name
	}
	if s.PriorityDepartment != nil {
		if dept, ok := m.departmentByID(*s.PriorityDepartment); ok {
			name := dept.Name
			d.PriorityDepartmentName = &name
		}
	}
	return d
}

type memSubjects struct{ *memoryStore }

func (m memSubjects) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("subjects.FindByID"); err != nil {
		return nil, err
	}
	if s, ok := m.subjectByID(id); ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m memSubjects) FindByName(ctx context.Context, exec sqlx.ExtContext, name string) ([]models.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Subject
	for _, s := range m.subjects {
		if strings.TrimSpace(s.Name) == strings.TrimSpace(name) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m memSubjects) FindByCode(ctx context.Context, exec sqlx.ExtContext, code string) (*models.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subjects {
		if s.Code == code {
			found := s
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m memSubjects) Create(ctx context.Context, exec sqlx.ExtContext, subject *models.Subject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subjects {
		if s.Department == subject.Department && s.Code == subject.Code {
			return &pq.Error{Code: "23505", Constraint: database.ConstraintSubjectCode}
		}
	}
	m.seq++
	subject.ID = fmt.Sprintf("subject-%d", m.seq)
	m.subjects = append(m.subjects, *subject)
	return nil
}

type memDepartments struct{ *memoryStore }

func (m memDepartments) FindByName(ctx context.Context, exec sqlx.ExtContext, name string) (*models.Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.departments {
		if d.Name == strings.TrimSpace(name) {
			found := d
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

type memStaff struct{ *memoryStore }

func (m memStaff) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.staff[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

type memSchedules struct{ *memoryStore }

func (m memSchedules) ListByDate(ctx context.Context, exec sqlx.ExtContext, date models.Date) ([]models.ExamScheduleDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("schedules.ListByDate"); err != nil {
		return nil, err
	}
	var out []models.ExamScheduleDetail
	for _, s := range m.schedules {
		if s.ExamDate.Equal(date) {
			out = append(out, m.detail(s))
		}
	}
	return out, nil
}

func (m memSchedules) ListBySubjectName(ctx context.Context, exec sqlx.ExtContext, name string) ([]models.ExamScheduleDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ExamScheduleDetail
	for _, s := range m.schedules {
		d := m.detail(s)
		if strings.TrimSpace(d.SubjectName) == strings.TrimSpace(name) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m memSchedules) FindBySubjectAndDepartment(ctx context.Context, exec sqlx.ExtContext, subjectID, departmentID string) (*models.ExamSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.schedules {
		if s.SubjectID == subjectID && s.DepartmentID == departmentID {
			found := s
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m memSchedules) BulkCreate(ctx context.Context, exec sqlx.ExtContext, schedules []models.ExamSchedule) error {
	if m.beforeBulk != nil {
		m.beforeBulk()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.bulkErrs) > 0 {
		err := m.bulkErrs[0]
		m.bulkErrs = m.bulkErrs[1:]
		if err != nil {
			return err
		}
	}
	all := append([]models.ExamSchedule{}, m.schedules...)
	for _, s := range schedules {
		for _, existing := range all {
			if existing.SubjectID == s.SubjectID && existing.DepartmentID == s.DepartmentID {
				return &pq.Error{Code: "23505", Constraint: database.ConstraintSubjectDepartment}
			}
			if existing.DepartmentID == s.DepartmentID && existing.ExamDate.Equal(s.ExamDate) {
				return &pq.Error{Code: "23505", Constraint: database.ConstraintDepartmentDate}
			}
		}
		all = append(all, s)
	}
	for i := range schedules {
		m.seq++
		schedules[i].ID = fmt.Sprintf("schedule-%d", m.seq)
	}
	m.schedules = append(m.schedules, schedules...)
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.DepartmentNotification
}

func (n *recordingNotifier) Notify(ctx context.Context, notifications []models.DepartmentNotification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notifications...)
}

type recordingInvalidator struct {
	mu       sync.Mutex
	patterns []string
}

func (c *recordingInvalidator) Invalidate(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.patterns = append(c.patterns, pattern)
	return nil
}

type engineFixture struct {
	store    *memoryStore
	mock     sqlmock.Sqlmock
	notifier *recordingNotifier
	cache    *recordingInvalidator
	metrics  *MetricsService
	svc      *SchedulingService
}

func newEngineFixture(t *testing.T, cfg SchedulingConfig) *engineFixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &engineFixture{
		store:    newMemoryStore(),
		mock:     mock,
		notifier: &recordingNotifier{},
		cache:    &recordingInvalidator{},
		metrics:  NewMetricsService(),
	}
	f.svc = NewSchedulingService(
		memSubjects{f.store}, memDepartments{f.store}, memStaff{f.store}, memSchedules{f.store},
		sqlx.NewDb(db, "sqlmock"), f.notifier, f.cache, f.metrics, nil, nil, cfg,
	)
	return f
}

func (f *engineFixture) expectCommit() {
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
}

func (f *engineFixture) expectRollback() {
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
}

func (f *engineFixture) schedule(subjectID, date string) (*ScheduleExamResult, error) {
	return f.svc.ScheduleExam(context.Background(), ScheduleExamRequest{
		SubjectID: subjectID, ExamDate: date, AssignedBy: "staff-a", ExamType: models.ExamTypeIA1,
	})
}

func schedulingErr(t *testing.T, err error) *models.SchedulingError {
	t.Helper()
	require.Error(t, err)
	var schedErr *models.SchedulingError
	require.True(t, errors.As(err, &schedErr), "expected scheduling error, got %v", err)
	return schedErr
}

// seedDataStructures registers "Data Structures" for CSE (s1) and IT (s2).
func seedDataStructures(store *memoryStore) {
	store.addSubject("s1", "CS201", "Data Structures", "CSE")
	store.addSubject("s2", "IT201", "Data Structures", "IT")
}

func TestScheduleExamFansOutToSharedSubjectDepartments(t *testing.T) {
	f := newEngineFixture(t, SchedulingConfig{Serializable: true})
	seedDataStructures(f.store)
	f.expectCommit()

	result, err := f.schedule("s1", "2025-08-04")
	require.NoError(t, err)
	require.Len(t, result.Schedules, 2)

	origin := result.Schedules[0]
	assert.Equal(t, "s1", origin.SubjectID)
	assert.Equal(t, "dept-cse", origin.DepartmentID)
	assert.Nil(t, origin.PriorityDepartment)
	assert.Equal(t, "2025-08-04", origin.ExamDate.String())

	synced := result.Schedules[1]
	assert.Equal(t, "s2", synced.SubjectID)
	assert.Equal(t, "dept-it", synced.DepartmentID)
	require.NotNil(t, synced.PriorityDepartment)
	assert.Equal(t, "dept-cse", *synced.PriorityDepartment)
	assert.Equal(t, "2025-08-04", synced.ExamDate.String())

	assert.Equal(t, []string{"IT"}, result.SynchronizedDepartments)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "dept-it", f.notifier.sent[0].DepartmentID)
	assert.Equal(t, "CSE", f.notifier.sent[0].OriginDepartment)
	assert.Equal(t, []string{examScheduleCachePattern}, f.cache.patterns)
	assert.Len(t, f.store.snapshot(), 2)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestScheduleExamRejectsDifferentDateForSharedSubject(t *testing.T) {
	f := newEngineFixture(t, SchedulingConfig{})
	seedDataStructures(f.store)
	f.expectCommit()
	_, err := f.schedule("s1", "2025-08-04")
	require.NoError(t, err)

	f.expectRollback()
	_, err = f.svc.ScheduleExam(context.Background(), ScheduleExamRequest{
		SubjectID: "s2", ExamDate: "2025-08-05", AssignedBy: "staff-b", ExamType: models.ExamTypeIA1,
	})
	schedErr := schedulingErr(t, err)
	assert.Equal(t, models.SharedSubjectDateMismatch, schedErr.Kind)
	assert.Equal(t, "CSE", schedErr.Department)
	assert.Equal(t, "2025-08-04", schedErr.ExamDate)
	assert.Contains(t, schedErr.Message, "CSE")
	assert.Contains(t, schedErr.Message, "2025-08-04")

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrSharedSubjectDateMismatch.Code, appErr.Code)
	assert.Equal(t, 409, appErr.Status)
	assert.Len(t, f.store.snapshot(), 2)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestScheduleExamRejectsSecondDateFromSameDepartment(t *testing.T) {
	f := newEngineFixture(t, SchedulingConfig{})
	seedDataStructures(f.store)
	f.store.addSubject("s1b", "CS201B", "Data Structures", "CSE")
	f.store.addSchedule("s1b", "dept-cse", "2025-08-04", nil)

	f.expectRollback()
	_, err := f.schedule("s1", "2025-08-06")
	schedErr := schedulingErr(t, err)
	assert.Equal(t, models.SharedSubjectDateMismatch, schedErr.Kind)
	assert.Equal(t, "2025-08-04", schedErr.ExamDate)
	assert.Len(t, f.store.snapshot(), 1)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestScheduleExamPointsOriginAtDateHeldBySyncedCopy(t *testing.T) {
	f := newEngineFixture(t, SchedulingConfig{})
	seedDataStructures(f.store)
	origin := "dept-cse"
	f.store.addSchedule("s2", "dept-it", "2025-08-04", &origin)

	f.expectRollback()
	_, err := f.schedule("s1", "2025-08-06")
	schedErr := schedulingErr(t, err)
	assert.Equal(t, models.SharedSubjectDateMismatch, schedErr.Kind)
	assert.Equal(t, "2025-08-04", schedErr.ExamDate)
	assert.Contains(t, schedErr.Message, "2025-08-04")
	assert.Equal(t, appErrors.ErrSharedSubjectDateMismatch.Code, appErrors.FromError(err).Code)
	assert.Len(t, f.store.snapshot(), 1)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestScheduleExamRejectionMessageIsNotRepeated(t *testing.T) {
	f := newEngineFixture(t, SchedulingConfig{})
	seedDataStructures(f.store)
	f.store.addSchedule("s2", "dept-it", "2025-08-04", nil)

	f.expectRollback()
	_, err := f.schedule("s1", "2025-08-06")
	schedErr := schedulingErr(t, err)
	assert.Equal(t, schedErr.Message, err.Error())
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestScheduleExamRejectsDepartmentDoubleBooking(t *testing.T) {
	f := newEngineFixture(t, SchedulingConfig{})
	f.store.addSubject("alg", "CS301", "Algorithms", "CSE")
	f.store.addSubject("net", "CS302", "Networks", "CSE")
	f.store.addSchedule("alg", "dept-cse", "2025-08-04", nil)

	f.expectRollback()
	_, err := f.schedule("net", "2025-08-04")
	schedErr := schedulingErr(t, err)
	assert.Equal(t, models.DepartmentDoubleBooked, schedErr.Kind)
	assert.Equal(t, "CSE", schedErr.Department)
	assert.Contains(t, schedErr.Message, "Algorithms")
	assert.Len(t, f.store.snapshot(), 1)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestScheduleExamRejectsRescheduleOfBookedPair(t *testing.T) {
	f := newEngineFixture(t, SchedulingConfig{})
	seedDataStructures(f.store)
	f.expectCommit()
	_, err := f.schedule("s1", "2025-08-04")
	require.NoError(t, err)

	f.expectRollback()
	_, err = f.schedule("s1", "2025-08-06")
	assert.Equal(t, models.AlreadyScheduled, schedulingErr(t, err).Kind)
	assert.Len(t, f.store.snapshot(), 2)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestScheduleExamIdenticalRequestIsRejectedOnce(t *testing.T) {
	f := newEngineFixture(t, SchedulingConfig{})
	seedDataStructures(f.store)
	f.expectCommit()
	f.expectRollback()

	_, first := f.schedule("s1", "2025-08-04")
	_, second := f.schedule("s1", "2025-08-04")

	require.NoError(t, first)
	assert.Equal(t, models.AlreadyScheduled, schedulingErr(t, second).Kind)
	assert.Equal(t, appErrors.ErrAlreadyScheduled.Code, appErrors.FromError(second).Code)
	assert.Len(t, f.store.snapshot(), 2)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestScheduleExamMaterializesStaffEmbeddedSubject(t *testing.T) {
	f := newEngineFixture(t, SchedulingConfig{})
	name, code := "Engineering Mathematics", "MA101"
	f.store.staff["staff-1"] = models.Staff{ID: "staff-1", Name: "R. Kumar", Department: "MECH ", SubjectName: &name, SubjectCode: &code}
	f.store.addSubject("cse-ma", "MA101C", "Engineering Mathematics", "CSE")

	f.expectCommit()
	result, err := f.svc.ScheduleExam(context.Background(), ScheduleExamRequest{
		StaffID: "staff-1", ExamDate: "2025-08-04", AssignedBy: "staff-1", ExamType: models.ExamTypeModel,
	})
	require.NoError(t, err)

	assert.True(t, result.Subject.IsShared)
	require.NotNil(t, result.Subject.SharedSubjectCode)
	assert.Equal(t, "MA101", *result.Subject.SharedSubjectCode)
	assert.Equal(t, "MECH", result.Subject.Department)
	assert.Equal(t, "dept-mech", result.Department.ID)

	require.Len(t, result.Schedules, 2)
	assert.Equal(t, result.Subject.ID, result.Schedules[0].SubjectID)
	assert.Equal(t, "cse-ma", result.Schedules[1].SubjectID)
	require.NotNil(t, result.Schedules[1].PriorityDepartment)
	assert.Equal(t, "dept-mech", *result.Schedules[1].PriorityDepartment)

	// the second request finds the catalog row by code instead of creating another one
	f.expectRollback()
	_, err = f.svc.ScheduleExam(context.Background(), ScheduleExamRequest{
		StaffID: "staff-1", ExamDate: "2025-08-04", AssignedBy: "staff-1", ExamType: models.ExamTypeModel,
	})
	assert.Equal(t, models.AlreadyScheduled, schedulingErr(t, err).Kind)
	subjects, _ := memSubjects{f.store}.FindByName(context.Background(), nil, name)
	assert.Len(t, subjects, 2)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestScheduleExamRejectsWhenSyncedDepartmentIsBusy(t *testing.T) {
	f := newEngineFixture(t, SchedulingConfig{})
	seedDataStructures(f.store)
	f.store.addSubject("it-net", "IT302", "Networks", "IT")
	f.store.addSchedule("it-net", "dept-it", "2025-08-04", nil)

	f.expectRollback()
	_, err := f.schedule("s1", "2025-08-04")
	schedErr := schedulingErr(t, err)
	assert.Equal(t, models.DepartmentDoubleBooked, schedErr.Kind)
	assert.Equal(t, "IT", schedErr.Department)
	assert.Len(t, f.store.snapshot(), 1)
	assert.Empty(t, f.notifier.sent)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestScheduleExamSkipsUnknownDepartmentsAndDuplicates(t *testing.T) {
	f := newEngineFixture(t, SchedulingConfig{})
	seedDataStructures(f.store)
	f.store.addSubject("s3", "AE201", "Data Structures", "AERO")
	f.store.addSubject("s4", "IT201B", " Data Structures ", "IT")

	f.expectCommit()
	result, err := f.schedule("s1", "2025-08-04")
	require.NoError(t, err)
	require.Len(t, result.Schedules, 2)
	assert.Equal(t, "dept-it", result.Schedules[1].DepartmentID)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestScheduleExamJoinsGroupAlreadyOnRequestedDate(t *testing.T) {
	f := newEngineFixture(t, SchedulingConfig{})
	seedDataStructures(f.store)
	f.expectCommit()
	_, err := f.schedule("s1", "2025-08-04")
	require.NoError(t, err)

	f.store.addSubject("s5", "EC201", "Data Structures", "ECE")
	f.expectCommit()
	result, err := f.schedule("s5", "2025-08-04")
	require.NoError(t, err)
	require.Len(t, result.Schedules, 1)
	assert.Equal(t, "dept-ece", result.Schedules[0].DepartmentID)

	dates := map[string]struct{}{}
	for _, s := range f.store.snapshot() {
		dates[s.ExamDate.String()] = struct{}{}
	}
	assert.Len(t, dates, 1)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestScheduleExamNotFound(t *testing.T) {
	f := newEngineFixture(t, SchedulingConfig{})
	f.store.addSubject("orphan", "XX100", "Orphan", "PHYSICS")

	f.expectRollback()
	_, err := f.schedule("missing", "2025-08-04")
	assert.Equal(t, models.SubjectNotFound, schedulingErr(t, err).Kind)
	assert.Equal(t, 404, appErrors.FromError(err).Status)

	f.expectRollback()
	_, err = f.svc.ScheduleExam(context.Background(), ScheduleExamRequest{
		StaffID: "ghost", ExamDate: "2025-08-04", AssignedBy: "x", ExamType: models.ExamTypeIA2,
	})
	assert.Equal(t, models.SubjectNotFound, schedulingErr(t, err).Kind)

	f.expectRollback()
	_, err = f.schedule("orphan", "2025-08-04")
	assert.Equal(t, models.DepartmentNotFound, schedulingErr(t, err).Kind)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestScheduleExamValidation(t *testing.T) {
	f := newEngineFixture(t, SchedulingConfig{})
	cases := []ScheduleExamRequest{
		{ExamDate: "2025-08-04", AssignedBy: "a", ExamType: models.ExamTypeIA1},
		{SubjectID: "s1", StaffID: "staff-1", ExamDate: "2025-08-04", AssignedBy: "a", ExamType: models.ExamTypeIA1},
		{SubjectID: "s1", ExamDate: "04-08-2025", AssignedBy: "a", ExamType: models.ExamTypeIA1},
		{SubjectID: "s1", ExamDate: "2025-08-04", AssignedBy: "a", ExamType: "FINAL"},
		{SubjectID: "s1", ExamDate: "2025-08-04", ExamType: models.ExamTypeIA1},
	}
	for i, req := range cases {
		_, err := f.svc.ScheduleExam(context.Background(), req)
		require.Error(t, err, "case %d", i)
		assert.True(t, errors.Is(err, appErrors.ErrValidation), "case %d", i)
	}
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestScheduleExamStoreFailureIsPersistenceError(t *testing.T) {
	f := newEngineFixture(t, SchedulingConfig{TxRetries: 3})
	seedDataStructures(f.store)
	f.store.failOn["schedules.ListByDate"] = errors.New("connection refused")

	f.expectRollback()
	_, err := f.schedule("s1", "2025-08-04")
	assert.Equal(t, models.PersistenceError, schedulingErr(t, err).Kind)
	assert.Equal(t, 503, appErrors.FromError(err).Status)
	assert.Empty(t, f.store.snapshot())
	assert.Empty(t, f.notifier.sent)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestScheduleExamBeginFailure(t *testing.T) {
	f := newEngineFixture(t, SchedulingConfig{})
	seedDataStructures(f.store)
	f.mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	_, err := f.schedule("s1", "2025-08-04")
	assert.Equal(t, models.PersistenceError, schedulingErr(t, err).Kind)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestScheduleExamTranslatesRacedUniqueViolations(t *testing.T) {
	t.Run("subject department", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingConfig{})
		seedDataStructures(f.store)
		f.store.beforeBulk = func() {
			f.store.beforeBulk = nil
			f.store.addSchedule("s2", "dept-it", "2025-08-09", nil)
		}

		f.expectRollback()
		_, err := f.schedule("s1", "2025-08-04")
		schedErr := schedulingErr(t, err)
		assert.Equal(t, models.AlreadyScheduled, schedErr.Kind)
		assert.True(t, database.IsDuplicateConstraintError(err, database.ConstraintSubjectDepartment))
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("department date", func(t *testing.T) {
		f := newEngineFixture(t, SchedulingConfig{})
		seedDataStructures(f.store)
		f.store.addSubject("alg", "CS301", "Algorithms", "CSE")
		f.store.beforeBulk = func() {
			f.store.beforeBulk = nil
			f.store.addSchedule("alg", "dept-cse", "2025-08-04", nil)
		}

		f.expectRollback()
		_, err := f.schedule("s1", "2025-08-04")
		assert.Equal(t, models.DepartmentDoubleBooked, schedulingErr(t, err).Kind)
		assert.Len(t, f.store.snapshot(), 1)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})
}

func TestScheduleExamRetriesSerializationFailure(t *testing.T) {
	f := newEngineFixture(t, SchedulingConfig{Serializable: true, TxRetries: 2})
	seedDataStructures(f.store)
	f.store.bulkErrs = []error{&pq.Error{Code: "40001"}}

	f.expectRollback()
	f.expectCommit()
	result, err := f.schedule("s1", "2025-08-04")
	require.NoError(t, err)
	assert.Len(t, result.Schedules, 2)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.txRetries))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestScheduleExamGivesUpAfterRetries(t *testing.T) {
	f := newEngineFixture(t, SchedulingConfig{TxRetries: 1})
	seedDataStructures(f.store)
	f.store.bulkErrs = []error{&pq.Error{Code: "40001"}, &pq.Error{Code: "40001"}}

	f.expectRollback()
	f.expectRollback()
	_, err := f.schedule("s1", "2025-08-04")
	assert.Equal(t, models.PersistenceError, schedulingErr(t, err).Kind)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestScheduleExamCountsInconsistentGroups(t *testing.T) {
	f := newEngineFixture(t, SchedulingConfig{})
	seedDataStructures(f.store)
	f.store.addSubject("s5", "EC201", "Data Structures", "ECE")
	f.store.addSchedule("s1", "dept-cse", "2025-08-04", nil)
	f.store.addSchedule("s2", "dept-it", "2025-08-07", nil)

	f.expectRollback()
	_, err := f.schedule("s5", "2025-08-07")
	schedErr := schedulingErr(t, err)
	assert.Equal(t, models.SharedSubjectDateMismatch, schedErr.Kind)
	assert.Equal(t, "CSE", schedErr.Department)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.sharedInconsistent))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestScheduleExamConcurrentRequestsKeepDepartmentExclusive(t *testing.T) {
	f := newEngineFixture(t, SchedulingConfig{Serializable: true})
	f.mock.MatchExpectationsInOrder(false)
	names := []string{"Algorithms", "Networks", "Compilers", "Databases", "Graphics"}
	for i, name := range names {
		f.store.addSubject(fmt.Sprintf("c%d", i), fmt.Sprintf("CS4%02d", i), name, "CSE")
		f.mock.ExpectBegin()
	}
	f.mock.ExpectCommit()
	for range names[1:] {
		f.mock.ExpectRollback()
	}

	var wg sync.WaitGroup
	errs := make([]error, len(names))
	for i := range names {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.schedule(fmt.Sprintf("c%d", i), "2025-08-04")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, models.DepartmentDoubleBooked, schedulingErr(t, err).Kind)
	}
	assert.Equal(t, 1, succeeded)

	seen := map[string]int{}
	for _, s := range f.store.snapshot() {
		seen[s.DepartmentID+"|"+s.ExamDate.String()]++
	}
	for key, count := range seen {
		assert.Equal(t, 1, count, key)
	}
	assert.NoError(t, f.mock.ExpectationsWereMet())
}
