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
	"github.com/edupanel/campus-api/pkg/export"
)

type attendanceRepository interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceSession, int, error)
	FindByID(ctx context.Context, id string) (*models.AttendanceSession, error)
	FindByClassAndDate(ctx context.Context, classID string, date time.Time) (*models.AttendanceSession, error)
	CreateWithRecords(ctx context.Context, session *models.AttendanceSession, records []models.AttendanceRecord) error
	ReplaceRecords(ctx context.Context, sessionID string, records []models.AttendanceRecord) error
	ListRecords(ctx context.Context, sessionID string) ([]models.AttendanceRecord, error)
	ListExportRows(ctx context.Context, classID string, from, to time.Time) ([]models.AttendanceExportRow, error)
}

type attendanceClassLookup interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// AttendanceEntry is one student's status in a submission.
type AttendanceEntry struct {
	StudentID string                  `json:"student_id" validate:"required"`
	Status    models.AttendanceStatus `json:"status" validate:"required"`
	Notes     *string                 `json:"notes,omitempty"`
}

// CreateAttendanceRequest records one roll call for a class and date.
type CreateAttendanceRequest struct {
	ClassID string            `json:"class_id" validate:"required"`
	Date    string            `json:"date" validate:"required"`
	Entries []AttendanceEntry `json:"entries" validate:"required,min=1,dive"`
}

// UpdateAttendanceRequest replaces the records of an existing session.
type UpdateAttendanceRequest struct {
	Entries []AttendanceEntry `json:"entries" validate:"required,min=1,dive"`
}

// AttendanceService handles roll-call workflows.
type AttendanceService struct {
	repo      attendanceRepository
	classes   attendanceClassLookup
	exporter  *export.CSVExporter
	cache     summaryInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService creates a new attendance service. The cache may
// be nil.
func NewAttendanceService(repo attendanceRepository, classes attendanceClassLookup, exporter *export.CSVExporter, cache summaryInvalidator, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if exporter == nil {
		exporter = export.NewCSVExporter()
	}
	return &AttendanceService{repo: repo, classes: classes, exporter: exporter, cache: cache, validator: validate, logger: logger}
}

// List returns paginated attendance sessions.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceSession, *models.Pagination, error) {
	sessions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance sessions")
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
	return sessions, pagination, nil
}

// Get returns a session with its records.
func (s *AttendanceService) Get(ctx context.Context, id string) (*models.AttendanceSessionDetail, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance session")
	}

	records, err := s.repo.ListRecords(ctx, session.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance records")
	}

	return &models.AttendanceSessionDetail{AttendanceSession: *session, Records: records}, nil
}

// Create records one roll call per class and date. A second submission
// for the same pair is rejected and the original records stay intact.
func (s *AttendanceService) Create(ctx context.Context, takenBy string, req CreateAttendanceRequest) (*models.AttendanceSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD")
	}

	for _, entry := range req.Entries {
		if !entry.Status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown attendance status")
		}
	}

	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "class does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	if _, err := s.repo.FindByClassAndDate(ctx, req.ClassID, date); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "attendance already recorded for this class and date")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing session")
	}

	session := &models.AttendanceSession{
		ClassID: req.ClassID,
		Date:    date,
		TakenBy: takenBy,
	}

	records := make([]models.AttendanceRecord, 0, len(req.Entries))
	for _, entry := range req.Entries {
		records = append(records, models.AttendanceRecord{
			StudentID: entry.StudentID,
			Status:    entry.Status,
			Notes:     entry.Notes,
		})
	}

	if err := s.repo.CreateWithRecords(ctx, session, records); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "attendance already recorded for this class and date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}
	invalidateSummary(ctx, s.cache, s.logger)
	return session, nil
}

// Update replaces the records of an existing session.
func (s *AttendanceService) Update(ctx context.Context, id string, req UpdateAttendanceRequest) (*models.AttendanceSessionDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	for _, entry := range req.Entries {
		if !entry.Status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown attendance status")
		}
	}

	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance session")
	}

	records := make([]models.AttendanceRecord, 0, len(req.Entries))
	for _, entry := range req.Entries {
		records = append(records, models.AttendanceRecord{
			StudentID: entry.StudentID,
			Status:    entry.Status,
			Notes:     entry.Notes,
		})
	}

	if err := s.repo.ReplaceRecords(ctx, session.ID, records); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update attendance records")
	}

	stored, err := s.repo.ListRecords(ctx, session.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload attendance records")
	}
	invalidateSummary(ctx, s.cache, s.logger)
	return &models.AttendanceSessionDetail{AttendanceSession: *session, Records: stored}, nil
}

// ExportCSV renders attendance for a class and date range as CSV.
func (s *AttendanceService) ExportCSV(ctx context.Context, classID, fromStr, toStr string) ([]byte, error) {
	if classID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class_id is required")
	}

	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from must be formatted YYYY-MM-DD")
	}
	to, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must be formatted YYYY-MM-DD")
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not precede from")
	}

	rows, err := s.repo.ListExportRows(ctx, classID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance rows")
	}

	dataset := export.Dataset{Headers: []string{"date", "student_id", "student_name", "status"}}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"date":         row.Date.Format("2006-01-02"),
			"student_id":   row.StudentID,
			"student_name": row.StudentName,
			"status":       string(row.Status),
		})
	}

	payload, err := s.exporter.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return payload, nil
}
