package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edupanel/campus-api/internal/models"
	"github.com/edupanel/campus-api/internal/repository"
	appErrors "github.com/edupanel/campus-api/pkg/errors"
)

type admissionRepository interface {
	List(ctx context.Context, filter models.AdmissionFilter) ([]models.AdmissionApplication, int, error)
	FindByID(ctx context.Context, id string) (*models.AdmissionApplication, error)
	FindByNumber(ctx context.Context, number string) (*models.AdmissionApplication, error)
	CreateWithTimeline(ctx context.Context, application *models.AdmissionApplication, entry *models.AdmissionTimelineEntry) error
	UpdateStatus(ctx context.Context, id string, status models.AdmissionStatus, entry *models.AdmissionTimelineEntry) error
	ListTimeline(ctx context.Context, applicationID string) ([]models.AdmissionTimelineEntry, error)
}

type admissionAuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// SubmitAdmissionRequest is the public intake payload.
type SubmitAdmissionRequest struct {
	StudentName      string `json:"student_name" validate:"required"`
	StudentBirthDate string `json:"student_birth_date" validate:"required"`
	DesiredGrade     string `json:"desired_grade" validate:"required"`
	ParentName       string `json:"parent_name" validate:"required"`
	ParentEmail      string `json:"parent_email" validate:"required,email"`
	ParentPhone      string `json:"parent_phone" validate:"required"`
	Address          string `json:"address" validate:"required"`
}

// AdmissionStatusRequest moves an application through the funnel.
type AdmissionStatusRequest struct {
	Status models.AdmissionStatus `json:"status" validate:"required"`
	Note   string                 `json:"note"`
}

// AdmissionService handles the public admissions funnel.
type AdmissionService struct {
	repo      admissionRepository
	audit     admissionAuditWriter
	cache     summaryInvalidator
	open      bool
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAdmissionService creates a new admission service. The open flag
// gates public submissions; the cache may be nil.
func NewAdmissionService(repo admissionRepository, audit admissionAuditWriter, cache summaryInvalidator, open bool, validate *validator.Validate, logger *zap.Logger) *AdmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdmissionService{repo: repo, audit: audit, cache: cache, open: open, validator: validate, logger: logger}
}

// List returns paginated applications for staff review.
func (s *AdmissionService) List(ctx context.Context, filter models.AdmissionFilter) ([]models.AdmissionApplication, *models.Pagination, error) {
	applications, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
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
	return applications, pagination, nil
}

// Get returns an application with its timeline.
func (s *AdmissionService) Get(ctx context.Context, id string) (*models.AdmissionDetail, error) {
	application, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	return s.withTimeline(ctx, application)
}

// Track returns an application by its public application number.
func (s *AdmissionService) Track(ctx context.Context, number string) (*models.AdmissionDetail, error) {
	if number == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "application number is required")
	}
	application, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	return s.withTimeline(ctx, application)
}

// Submit accepts a public application, assigns an application number
// and opens the timeline with a SUBMITTED entry.
func (s *AdmissionService) Submit(ctx context.Context, req SubmitAdmissionRequest) (*models.AdmissionApplication, error) {
	if !s.open {
		return nil, appErrors.Clone(appErrors.ErrValidation, "admissions are currently closed")
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}

	birthDate, err := time.Parse("2006-01-02", req.StudentBirthDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student_birth_date must be formatted YYYY-MM-DD")
	}
	if !birthDate.Before(time.Now().UTC()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student_birth_date must be in the past")
	}

	application := &models.AdmissionApplication{
		StudentName:      req.StudentName,
		StudentBirthDate: birthDate,
		DesiredGrade:     req.DesiredGrade,
		ParentName:       req.ParentName,
		ParentEmail:      req.ParentEmail,
		ParentPhone:      req.ParentPhone,
		Address:          req.Address,
		Status:           models.AdmissionStatusSubmitted,
	}

	// Retried a few times: the number carries a random suffix and the
	// column is unique.
	for attempt := 0; attempt < 5; attempt++ {
		number, err := s.generateApplicationNumber()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate application number")
		}
		application.ApplicationNumber = number

		entry := &models.AdmissionTimelineEntry{
			Status: models.AdmissionStatusSubmitted,
			Note:   "Application received",
		}

		err = s.repo.CreateWithTimeline(ctx, application, entry)
		if err == nil {
			invalidateSummary(ctx, s.cache, s.logger)
			return application, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store application")
		}
	}
	return nil, appErrors.Clone(appErrors.ErrInternal, "could not allocate an application number")
}

// UpdateStatus moves an application through the funnel and appends a
// timeline entry.
func (s *AdmissionService) UpdateStatus(ctx context.Context, actorID, id string, req AdmissionStatusRequest) (*models.AdmissionDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown admission status")
	}

	application, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}

	if application.Status == models.AdmissionStatusAccepted || application.Status == models.AdmissionStatusRejected {
		return nil, appErrors.Clone(appErrors.ErrValidation, "application already finalised")
	}
	if req.Status == application.Status {
		return nil, appErrors.Clone(appErrors.ErrValidation, "application already in this status")
	}

	entry := &models.AdmissionTimelineEntry{
		Status: req.Status,
		Note:   req.Note,
	}
	if actorID != "" {
		entry.ActorID = &actorID
	}

	if err := s.repo.UpdateStatus(ctx, application.ID, req.Status, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update application status")
	}
	application.Status = req.Status

	if s.audit != nil {
		values, _ := json.Marshal(map[string]string{"status": string(req.Status)})
		auditEntry := &models.AuditLog{
			Action:     models.AuditActionAdmissionStatus,
			Resource:   "admissions",
			ResourceID: &application.ID,
			NewValues:  values,
		}
		if actorID != "" {
			auditEntry.UserID = &actorID
		}
		if err := s.audit.CreateAuditLog(ctx, auditEntry); err != nil {
			s.logger.Warn("failed to record admission audit log", zap.Error(err))
		}
	}

	invalidateSummary(ctx, s.cache, s.logger)
	return s.withTimeline(ctx, application)
}

func (s *AdmissionService) withTimeline(ctx context.Context, application *models.AdmissionApplication) (*models.AdmissionDetail, error) {
	timeline, err := s.repo.ListTimeline(ctx, application.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timeline")
	}
	return &models.AdmissionDetail{AdmissionApplication: *application, Timeline: timeline}, nil
}

func (s *AdmissionService) generateApplicationNumber() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(100000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("APP-%d-%05d", time.Now().UTC().Year(), n.Int64()), nil
}
