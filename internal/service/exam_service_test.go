package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupanel/campus-api/internal/models"
	"github.com/edupanel/campus-api/internal/repository"
	appErrors "github.com/edupanel/campus-api/pkg/errors"
)

type mockExamRepo struct {
	exams   map[string]*models.Exam
	results map[string][]models.ExamResult
	deleted []string
	nextID  int
}

func newMockExamRepo() *mockExamRepo {
	return &mockExamRepo{
		exams:   make(map[string]*models.Exam),
		results: make(map[string][]models.ExamResult),
	}
}

func (m *mockExamRepo) List(_ context.Context, _ models.ExamFilter) ([]models.Exam, int, error) {
	exams := make([]models.Exam, 0, len(m.exams))
	for _, exam := range m.exams {
		exams = append(exams, *exam)
	}
	return exams, len(exams), nil
}

func (m *mockExamRepo) FindByID(_ context.Context, id string) (*models.Exam, error) {
	exam, ok := m.exams[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *exam
	return &copied, nil
}

func (m *mockExamRepo) Create(_ context.Context, exam *models.Exam) error {
	m.nextID++
	exam.ID = fmt.Sprintf("exam-%d", m.nextID)
	stored := *exam
	m.exams[exam.ID] = &stored
	return nil
}

func (m *mockExamRepo) Update(_ context.Context, exam *models.Exam) error {
	stored := *exam
	m.exams[exam.ID] = &stored
	return nil
}

func (m *mockExamRepo) Delete(_ context.Context, id string) error {
	delete(m.exams, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockExamRepo) CountResults(_ context.Context, examID string) (int, error) {
	return len(m.results[examID]), nil
}

func (m *mockExamRepo) ListResults(_ context.Context, examID string) ([]models.ExamResult, error) {
	return m.results[examID], nil
}

func (m *mockExamRepo) CreateResult(_ context.Context, result *models.ExamResult) error {
	for _, existing := range m.results[result.ExamID] {
		if existing.StudentID == result.StudentID {
			return repository.ErrDuplicate
		}
	}
	result.ID = fmt.Sprintf("result-%d", len(m.results[result.ExamID])+1)
	m.results[result.ExamID] = append(m.results[result.ExamID], *result)
	return nil
}

func newExamFixture() (*ExamService, *mockExamRepo) {
	repo := newMockExamRepo()
	classes := &mockClassLookup{classes: map[string]*models.Class{
		"class-1": {ID: "class-1", Name: "Grade 10", Section: "A"},
	}}
	subjects := &mockSubjectLookup{subjects: map[string]*models.Subject{
		"subj-1": {ID: "subj-1", Name: "Mathematics", Code: "MATH101"},
	}}
	return NewExamService(repo, classes, subjects, nil, nil), repo
}

func TestExamServiceCreate(t *testing.T) {
	svc, repo := newExamFixture()

	exam, err := svc.Create(context.Background(), ExamRequest{
		Title:     "Midterm",
		ClassID:   "class-1",
		SubjectID: "subj-1",
		Date:      "2026-03-15",
		MaxMarks:  100,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, exam.ID)
	assert.Equal(t, "Midterm", exam.Title)
	assert.Len(t, repo.exams, 1)
}

func TestExamServiceCreateUnknownClass(t *testing.T) {
	svc, repo := newExamFixture()

	_, err := svc.Create(context.Background(), ExamRequest{
		Title:     "Midterm",
		ClassID:   "class-missing",
		SubjectID: "subj-1",
		Date:      "2026-03-15",
		MaxMarks:  100,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
	assert.Empty(t, repo.exams)
}

func TestExamServiceCreateBadDate(t *testing.T) {
	svc, _ := newExamFixture()

	_, err := svc.Create(context.Background(), ExamRequest{
		Title:     "Midterm",
		ClassID:   "class-1",
		SubjectID: "subj-1",
		Date:      "15-03-2026",
		MaxMarks:  100,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
}

func TestExamServiceRecordResultGrades(t *testing.T) {
	svc, _ := newExamFixture()

	exam, err := svc.Create(context.Background(), ExamRequest{
		Title:     "Final",
		ClassID:   "class-1",
		SubjectID: "subj-1",
		Date:      "2026-06-01",
		MaxMarks:  200,
	})
	require.NoError(t, err)

	cases := []struct {
		student string
		marks   float64
		grade   string
	}{
		{"student-1", 180, "A"},
		{"student-2", 170, "B"},
		{"student-3", 145, "C"},
		{"student-4", 120, "D"},
		{"student-5", 90, "F"},
	}
	for _, tc := range cases {
		result, err := svc.RecordResult(context.Background(), exam.ID, ExamResultRequest{
			StudentID: tc.student,
			Marks:     tc.marks,
		})
		require.NoError(t, err)
		assert.Equal(t, tc.grade, result.Grade, "marks %v", tc.marks)
	}
}

func TestExamServiceRecordResultExceedsMax(t *testing.T) {
	svc, _ := newExamFixture()

	exam, err := svc.Create(context.Background(), ExamRequest{
		Title:     "Quiz",
		ClassID:   "class-1",
		SubjectID: "subj-1",
		Date:      "2026-04-10",
		MaxMarks:  50,
	})
	require.NoError(t, err)

	_, err = svc.RecordResult(context.Background(), exam.ID, ExamResultRequest{
		StudentID: "student-1",
		Marks:     51,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
}

func TestExamServiceRecordResultDuplicateStudent(t *testing.T) {
	svc, _ := newExamFixture()

	exam, err := svc.Create(context.Background(), ExamRequest{
		Title:     "Quiz",
		ClassID:   "class-1",
		SubjectID: "subj-1",
		Date:      "2026-04-10",
		MaxMarks:  50,
	})
	require.NoError(t, err)

	_, err = svc.RecordResult(context.Background(), exam.ID, ExamResultRequest{StudentID: "student-1", Marks: 40})
	require.NoError(t, err)

	_, err = svc.RecordResult(context.Background(), exam.ID, ExamResultRequest{StudentID: "student-1", Marks: 45})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Status, appErrors.FromError(err).Status)
}

func TestExamServiceUpdateBlockedAfterResults(t *testing.T) {
	svc, _ := newExamFixture()

	exam, err := svc.Create(context.Background(), ExamRequest{
		Title:     "Quiz",
		ClassID:   "class-1",
		SubjectID: "subj-1",
		Date:      "2026-04-10",
		MaxMarks:  50,
	})
	require.NoError(t, err)

	_, err = svc.RecordResult(context.Background(), exam.ID, ExamResultRequest{StudentID: "student-1", Marks: 40})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), exam.ID, ExamRequest{
		Title:     "Quiz v2",
		ClassID:   "class-1",
		SubjectID: "subj-1",
		Date:      "2026-04-11",
		MaxMarks:  60,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Status, appErrors.FromError(err).Status)
}

func TestExamServiceDeleteBlockedAfterResults(t *testing.T) {
	svc, repo := newExamFixture()

	exam, err := svc.Create(context.Background(), ExamRequest{
		Title:     "Quiz",
		ClassID:   "class-1",
		SubjectID: "subj-1",
		Date:      "2026-04-10",
		MaxMarks:  50,
	})
	require.NoError(t, err)

	_, err = svc.RecordResult(context.Background(), exam.ID, ExamResultRequest{StudentID: "student-1", Marks: 40})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), exam.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Status, appErrors.FromError(err).Status)
	assert.Empty(t, repo.deleted)

	results, err := svc.ListResults(context.Background(), exam.ID)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestExamServiceDeleteWithoutResults(t *testing.T) {
	svc, repo := newExamFixture()

	exam, err := svc.Create(context.Background(), ExamRequest{
		Title:     "Quiz",
		ClassID:   "class-1",
		SubjectID: "subj-1",
		Date:      "2026-04-10",
		MaxMarks:  50,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), exam.ID))
	assert.Equal(t, []string{exam.ID}, repo.deleted)

	_, err = svc.Get(context.Background(), exam.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Status, appErrors.FromError(err).Status)
}
