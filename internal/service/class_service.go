package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edupanel/campus-api/internal/models"
	"github.com/edupanel/campus-api/internal/repository"
	appErrors "github.com/edupanel/campus-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error)
	ExistsByName(ctx context.Context, name, section, excludeID string) (bool, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	CountStudents(ctx context.Context, classID string) (int, error)
	ListStudents(ctx context.Context, classID string) ([]models.ClassStudent, error)
	AssignStudents(ctx context.Context, classID string, studentIDs []string) error
	RemoveStudent(ctx context.Context, classID, studentID string) error
	DeleteCascade(ctx context.Context, id string) error
}

type classUserLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// CreateClassRequest captures fields for creating classes.
type CreateClassRequest struct {
	Name      string  `json:"name" validate:"required"`
	Section   string  `json:"section" validate:"required"`
	Grade     string  `json:"grade" validate:"required"`
	Capacity  int     `json:"capacity" validate:"required,gt=0"`
	TeacherID *string `json:"teacher_id,omitempty"`
}

// UpdateClassRequest modifies class fields.
type UpdateClassRequest struct {
	Name      string  `json:"name" validate:"required"`
	Section   string  `json:"section" validate:"required"`
	Grade     string  `json:"grade" validate:"required"`
	Capacity  int     `json:"capacity" validate:"required,gt=0"`
	TeacherID *string `json:"teacher_id,omitempty"`
}

// EnrollStudentsRequest assigns students to a class roster.
type EnrollStudentsRequest struct {
	StudentIDs []string `json:"student_ids" validate:"required,min=1,dive,required"`
}

// ClassService handles class domain workflows.
type ClassService struct {
	repo      classRepository
	users     classUserLookup
	cache     summaryInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService creates a new class service. The cache may be nil.
func NewClassService(repo classRepository, users classUserLookup, cache summaryInvalidator, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, users: users, cache: cache, validator: validate, logger: logger}
}

// List returns paginated classes.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, *models.Pagination, error) {
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
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
	return classes, pagination, nil
}

// Get returns a class detail with teacher name and roster size.
func (s *ClassService) Get(ctx context.Context, id string) (*models.ClassDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return detail, nil
}

// Create adds a new class ensuring the name/section pair is unique.
func (s *ClassService) Create(ctx context.Context, req CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	if err := s.checkTeacher(ctx, req.TeacherID); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByName(ctx, req.Name, req.Section, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class with this name and section already exists")
	}

	class := &models.Class{
		Name:      req.Name,
		Section:   req.Section,
		Grade:     req.Grade,
		Capacity:  req.Capacity,
		TeacherID: req.TeacherID,
	}

	if err := s.repo.Create(ctx, class); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "class with this name and section already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	invalidateSummary(ctx, s.cache, s.logger)
	return class, nil
}

// Update modifies an existing class.
func (s *ClassService) Update(ctx context.Context, id string, req UpdateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	if err := s.checkTeacher(ctx, req.TeacherID); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByName(ctx, req.Name, req.Section, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class with this name and section already exists")
	}

	class.Name = req.Name
	class.Section = req.Section
	class.Grade = req.Grade
	class.Capacity = req.Capacity
	class.TeacherID = req.TeacherID

	if err := s.repo.Update(ctx, class); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "class with this name and section already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	return class, nil
}

// Delete removes a class when no students remain enrolled. Schedules and
// subject links are removed in the same transaction.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	enrolled, err := s.repo.CountStudents(ctx, class.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrolled students")
	}
	if enrolled > 0 {
		return appErrors.Clone(appErrors.ErrValidation, "class still has enrolled students")
	}

	if err := s.repo.DeleteCascade(ctx, class.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	invalidateSummary(ctx, s.cache, s.logger)
	return nil
}

// ListStudents returns the roster for a class.
func (s *ClassService) ListStudents(ctx context.Context, classID string) ([]models.ClassStudent, error) {
	if _, err := s.repo.FindByID(ctx, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	students, err := s.repo.ListStudents(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, nil
}

// EnrollStudents assigns students to the class enforcing capacity and
// rejecting students already placed in another class.
func (s *ClassService) EnrollStudents(ctx context.Context, classID string, req EnrollStudentsRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	class, err := s.repo.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	enrolled, err := s.repo.CountStudents(ctx, class.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrolled students")
	}
	if enrolled+len(req.StudentIDs) > class.Capacity {
		return appErrors.Clone(appErrors.ErrValidation, "class capacity exceeded")
	}

	for _, studentID := range req.StudentIDs {
		student, err := s.users.FindByID(ctx, studentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
		if student.Role != models.RoleStudent {
			return appErrors.Clone(appErrors.ErrValidation, "user is not a student")
		}
		if student.ClassID != nil && *student.ClassID != "" {
			return appErrors.Clone(appErrors.ErrConflict, "student already enrolled in a class")
		}
	}

	if err := s.repo.AssignStudents(ctx, class.ID, req.StudentIDs); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll students")
	}
	return nil
}

// RemoveStudent removes one student from the class roster.
func (s *ClassService) RemoveStudent(ctx context.Context, classID, studentID string) error {
	if err := s.repo.RemoveStudent(ctx, classID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not enrolled in class")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove student")
	}
	return nil
}

func (s *ClassService) checkTeacher(ctx context.Context, teacherID *string) error {
	if teacherID == nil || *teacherID == "" {
		return nil
	}
	teacher, err := s.users.FindByID(ctx, *teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "assigned teacher does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if teacher.Role != models.RoleTeacher {
		return appErrors.Clone(appErrors.ErrValidation, "assigned user is not a teacher")
	}
	return nil
}
