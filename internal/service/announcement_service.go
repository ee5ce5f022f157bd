package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edupanel/campus-api/internal/models"
	appErrors "github.com/edupanel/campus-api/pkg/errors"
)

type announcementRepository interface {
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error)
	FindByID(ctx context.Context, id string) (*models.Announcement, error)
	Create(ctx context.Context, announcement *models.Announcement) error
	Update(ctx context.Context, announcement *models.Announcement) error
	Delete(ctx context.Context, id string) error
}

// CreateAnnouncementRequest captures fields for publishing
// announcements. The event fields are required when type is EVENT and
// rejected otherwise.
type CreateAnnouncementRequest struct {
	Title     string                  `json:"title" validate:"required"`
	Content   string                  `json:"content" validate:"required"`
	Type      models.AnnouncementType `json:"type" validate:"required"`
	Priority  int                     `json:"priority" validate:"omitempty,gte=1,lte=5"`
	EventDate *string                 `json:"event_date,omitempty"`
	StartTime *string                 `json:"start_time,omitempty"`
	EndTime   *string                 `json:"end_time,omitempty"`
	Location  *string                 `json:"location,omitempty"`
}

// UpdateAnnouncementRequest partially updates an announcement; absent
// fields keep their stored values.
type UpdateAnnouncementRequest struct {
	Title     *string `json:"title,omitempty"`
	Content   *string `json:"content,omitempty"`
	Priority  *int    `json:"priority,omitempty"`
	EventDate *string `json:"event_date,omitempty"`
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
	Location  *string `json:"location,omitempty"`
}

// AnnouncementService handles announcement and event workflows.
type AnnouncementService struct {
	repo      announcementRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAnnouncementService creates a new announcement service.
func NewAnnouncementService(repo announcementRepository, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnnouncementService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated announcements, newest first.
func (s *AnnouncementService) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, *models.Pagination, error) {
	announcements, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list announcements")
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
	return announcements, pagination, nil
}

// Get returns an announcement by identifier.
func (s *AnnouncementService) Get(ctx context.Context, id string) (*models.Announcement, error) {
	announcement, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}
	return announcement, nil
}

// GetEvent returns an announcement only when it is an event, so the
// events endpoints never leak plain announcements.
func (s *AnnouncementService) GetEvent(ctx context.Context, id string) (*models.Announcement, error) {
	announcement, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if announcement.Type != models.AnnouncementTypeEvent {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
	}
	return announcement, nil
}

// Create publishes an announcement. Event scheduling fields are stored
// as typed columns, never folded into the content text.
func (s *AnnouncementService) Create(ctx context.Context, createdBy string, req CreateAnnouncementRequest) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}
	if !req.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown announcement type")
	}

	priority := req.Priority
	if priority == 0 {
		priority = 1
	}

	announcement := &models.Announcement{
		Title:     req.Title,
		Content:   req.Content,
		Type:      req.Type,
		Priority:  priority,
		Location:  req.Location,
		CreatedBy: createdBy,
	}

	if req.Type == models.AnnouncementTypeEvent {
		if req.EventDate == nil || req.StartTime == nil || req.EndTime == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "events require event_date, start_time and end_time")
		}
		eventDate, err := time.Parse("2006-01-02", *req.EventDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "event_date must be formatted YYYY-MM-DD")
		}
		if !timeOfDayPattern.MatchString(*req.StartTime) || !timeOfDayPattern.MatchString(*req.EndTime) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "event times must be zero-padded HH:MM")
		}
		if *req.StartTime >= *req.EndTime {
			return nil, appErrors.Clone(appErrors.ErrValidation, "event start_time must be before end_time")
		}
		announcement.EventDate = &eventDate
		announcement.StartTime = req.StartTime
		announcement.EndTime = req.EndTime
	} else if req.EventDate != nil || req.StartTime != nil || req.EndTime != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event fields are only valid for EVENT announcements")
	}

	if err := s.repo.Create(ctx, announcement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create announcement")
	}
	return announcement, nil
}

// Update partially modifies an announcement; omitted fields keep their
// existing values.
func (s *AnnouncementService) Update(ctx context.Context, id string, req UpdateAnnouncementRequest) (*models.Announcement, error) {
	announcement, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}

	if req.Title != nil {
		if *req.Title == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "title cannot be empty")
		}
		announcement.Title = *req.Title
	}
	if req.Content != nil {
		if *req.Content == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "content cannot be empty")
		}
		announcement.Content = *req.Content
	}
	if req.Priority != nil {
		if *req.Priority < 1 || *req.Priority > 5 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "priority must be between 1 and 5")
		}
		announcement.Priority = *req.Priority
	}

	if announcement.Type == models.AnnouncementTypeEvent {
		if req.EventDate != nil {
			eventDate, err := time.Parse("2006-01-02", *req.EventDate)
			if err != nil {
				return nil, appErrors.Clone(appErrors.ErrValidation, "event_date must be formatted YYYY-MM-DD")
			}
			announcement.EventDate = &eventDate
		}
		if req.StartTime != nil {
			if !timeOfDayPattern.MatchString(*req.StartTime) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be zero-padded HH:MM")
			}
			announcement.StartTime = req.StartTime
		}
		if req.EndTime != nil {
			if !timeOfDayPattern.MatchString(*req.EndTime) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be zero-padded HH:MM")
			}
			announcement.EndTime = req.EndTime
		}
		if announcement.StartTime != nil && announcement.EndTime != nil && *announcement.StartTime >= *announcement.EndTime {
			return nil, appErrors.Clone(appErrors.ErrValidation, "event start_time must be before end_time")
		}
		if req.Location != nil {
			announcement.Location = req.Location
		}
	} else if req.EventDate != nil || req.StartTime != nil || req.EndTime != nil || req.Location != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event fields are only valid for EVENT announcements")
	}

	if err := s.repo.Update(ctx, announcement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update announcement")
	}
	return announcement, nil
}

// Delete removes an announcement.
func (s *AnnouncementService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete announcement")
	}
	return nil
}
