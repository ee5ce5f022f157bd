package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edupanel/campus-api/internal/models"
	appErrors "github.com/edupanel/campus-api/pkg/errors"
)

type scheduleRepository interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error)
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	ListByClassAndDay(ctx context.Context, classID, dayOfWeek string) ([]models.Schedule, error)
	Create(ctx context.Context, schedule *models.Schedule) error
	Update(ctx context.Context, schedule *models.Schedule) error
	Delete(ctx context.Context, id string) error
}

type scheduleClassLookup interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type scheduleSubjectLookup interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

// Times must be zero-padded HH:MM so string order matches clock order.
var timeOfDayPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ScheduleRequest captures fields for creating or updating timetable
// entries.
type ScheduleRequest struct {
	ClassID   string  `json:"class_id" validate:"required"`
	SubjectID string  `json:"subject_id" validate:"required"`
	TeacherID *string `json:"teacher_id,omitempty"`
	DayOfWeek string  `json:"day_of_week" validate:"required"`
	StartTime string  `json:"start_time" validate:"required"`
	EndTime   string  `json:"end_time" validate:"required"`
	Room      *string `json:"room,omitempty"`
}

// ScheduleService handles timetable workflows including overlap
// detection.
type ScheduleService struct {
	repo      scheduleRepository
	classes   scheduleClassLookup
	subjects  scheduleSubjectLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService creates a new schedule service.
func NewScheduleService(repo scheduleRepository, classes scheduleClassLookup, subjects scheduleSubjectLookup, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, classes: classes, subjects: subjects, validator: validate, logger: logger}
}

// List returns paginated timetable entries.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, *models.Pagination, error) {
	schedules, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
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
	return schedules, pagination, nil
}

// Get returns a timetable entry by identifier.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return schedule, nil
}

// Create adds a timetable entry after validating the slot and checking
// for overlaps within the same class and day.
func (s *ScheduleService) Create(ctx context.Context, req ScheduleRequest) (*models.Schedule, error) {
	if err := s.validateRequest(ctx, req); err != nil {
		return nil, err
	}

	candidate := &models.Schedule{
		ClassID:   req.ClassID,
		SubjectID: req.SubjectID,
		TeacherID: req.TeacherID,
		DayOfWeek: req.DayOfWeek,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Room:      req.Room,
	}

	if err := s.checkOverlap(ctx, candidate, ""); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, candidate); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}
	return candidate, nil
}

// Update modifies a timetable entry, ignoring the entry itself during
// overlap detection.
func (s *ScheduleService) Update(ctx context.Context, id string, req ScheduleRequest) (*models.Schedule, error) {
	if err := s.validateRequest(ctx, req); err != nil {
		return nil, err
	}

	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	schedule.ClassID = req.ClassID
	schedule.SubjectID = req.SubjectID
	schedule.TeacherID = req.TeacherID
	schedule.DayOfWeek = req.DayOfWeek
	schedule.StartTime = req.StartTime
	schedule.EndTime = req.EndTime
	schedule.Room = req.Room

	if err := s.checkOverlap(ctx, schedule, schedule.ID); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule")
	}
	return schedule, nil
}

// Delete removes a timetable entry.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}
	return nil
}

func (s *ScheduleService) validateRequest(ctx context.Context, req ScheduleRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	if !models.ValidDay(req.DayOfWeek) {
		return appErrors.Clone(appErrors.ErrValidation, "day_of_week must be MONDAY through SUNDAY")
	}
	if !timeOfDayPattern.MatchString(req.StartTime) || !timeOfDayPattern.MatchString(req.EndTime) {
		return appErrors.Clone(appErrors.ErrValidation, "times must be zero-padded HH:MM")
	}
	if req.StartTime >= req.EndTime {
		return appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}

	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "class does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if _, err := s.subjects.FindByID(ctx, req.SubjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "subject does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return nil
}

func (s *ScheduleService) checkOverlap(ctx context.Context, candidate *models.Schedule, excludeID string) error {
	existing, err := s.repo.ListByClassAndDay(ctx, candidate.ClassID, candidate.DayOfWeek)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing schedules")
	}

	for _, entry := range existing {
		if entry.ID == excludeID {
			continue
		}
		if candidate.Overlaps(entry) {
			conflictErr := &models.ScheduleConflictError{Conflict: models.ScheduleConflict{
				ExistingID: entry.ID,
				ClassID:    entry.ClassID,
				DayOfWeek:  entry.DayOfWeek,
				StartTime:  entry.StartTime,
				EndTime:    entry.EndTime,
			}}
			return appErrors.Wrap(conflictErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "schedule overlaps an existing entry")
		}
	}
	return nil
}
