package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edupanel/campus-api/internal/models"
	"github.com/edupanel/campus-api/internal/repository"
	appErrors "github.com/edupanel/campus-api/pkg/errors"
)

type examRepository interface {
	List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, int, error)
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	Create(ctx context.Context, exam *models.Exam) error
	Update(ctx context.Context, exam *models.Exam) error
	Delete(ctx context.Context, id string) error
	CountResults(ctx context.Context, examID string) (int, error)
	ListResults(ctx context.Context, examID string) ([]models.ExamResult, error)
	CreateResult(ctx context.Context, result *models.ExamResult) error
}

type examClassLookup interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type examSubjectLookup interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

// ExamRequest captures fields for creating or updating exams.
type ExamRequest struct {
	Title     string  `json:"title" validate:"required"`
	ClassID   string  `json:"class_id" validate:"required"`
	SubjectID string  `json:"subject_id" validate:"required"`
	Date      string  `json:"date" validate:"required"`
	MaxMarks  float64 `json:"max_marks" validate:"required,gt=0"`
}

// ExamResultRequest records one student's marks.
type ExamResultRequest struct {
	StudentID string  `json:"student_id" validate:"required"`
	Marks     float64 `json:"marks" validate:"gte=0"`
}

// ExamService handles exam and result workflows.
type ExamService struct {
	repo      examRepository
	classes   examClassLookup
	subjects  examSubjectLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExamService creates a new exam service.
func NewExamService(repo examRepository, classes examClassLookup, subjects examSubjectLookup, validate *validator.Validate, logger *zap.Logger) *ExamService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExamService{repo: repo, classes: classes, subjects: subjects, validator: validate, logger: logger}
}

// List returns paginated exams.
func (s *ExamService) List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, *models.Pagination, error) {
	exams, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exams")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return exams, pagination, nil
}

// Get returns an exam by identifier.
func (s *ExamService) Get(ctx context.Context, id string) (*models.Exam, error) {
	exam, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	return exam, nil
}

// Create schedules a new exam for a class and subject.
func (s *ExamService) Create(ctx context.Context, req ExamRequest) (*models.Exam, error) {
	exam, err := s.buildExam(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam")
	}
	return exam, nil
}

// Update modifies an exam that has no recorded results yet.
func (s *ExamService) Update(ctx context.Context, id string, req ExamRequest) (*models.Exam, error) {
	updated, err := s.buildExam(ctx, req)
	if err != nil {
		return nil, err
	}

	exam, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}

	results, err := s.repo.CountResults(ctx, exam.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check exam results")
	}
	if results > 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "exam already has recorded results")
	}

	exam.Title = updated.Title
	exam.ClassID = updated.ClassID
	exam.SubjectID = updated.SubjectID
	exam.Date = updated.Date
	exam.MaxMarks = updated.MaxMarks

	if err := s.repo.Update(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update exam")
	}
	return exam, nil
}

// Delete removes an exam unless results exist.
func (s *ExamService) Delete(ctx context.Context, id string) error {
	exam, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}

	results, err := s.repo.CountResults(ctx, exam.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check exam results")
	}
	if results > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "exam has recorded results")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete exam")
	}
	return nil
}

// ListResults returns the recorded results for an exam.
func (s *ExamService) ListResults(ctx context.Context, examID string) ([]models.ExamResult, error) {
	if _, err := s.repo.FindByID(ctx, examID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}

	results, err := s.repo.ListResults(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exam results")
	}
	return results, nil
}

// RecordResult stores marks for a student; each student gets one result
// per exam and marks must not exceed the exam maximum.
func (s *ExamService) RecordResult(ctx context.Context, examID string, req ExamResultRequest) (*models.ExamResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam result payload")
	}

	exam, err := s.repo.FindByID(ctx, examID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}

	if req.Marks > exam.MaxMarks {
		return nil, appErrors.Clone(appErrors.ErrValidation, "marks exceed the exam maximum")
	}

	result := &models.ExamResult{
		ExamID:    exam.ID,
		StudentID: req.StudentID,
		Marks:     req.Marks,
		Grade:     gradeFor(req.Marks, exam.MaxMarks),
	}

	if err := s.repo.CreateResult(ctx, result); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "result already recorded for this student")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record result")
	}
	return result, nil
}

func (s *ExamService) buildExam(ctx context.Context, req ExamRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD")
	}

	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "class does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if _, err := s.subjects.FindByID(ctx, req.SubjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "subject does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	return &models.Exam{
		Title:     req.Title,
		ClassID:   req.ClassID,
		SubjectID: req.SubjectID,
		Date:      date,
		MaxMarks:  req.MaxMarks,
	}, nil
}

func gradeFor(marks, maxMarks float64) string {
	pct := marks / maxMarks * 100
	switch {
	case pct >= 90:
		return "A"
	case pct >= 80:
		return "B"
	case pct >= 70:
		return "C"
	case pct >= 60:
		return "D"
	default:
		return "F"
	}
}
