package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edupanel/campus-api/internal/models"
	appErrors "github.com/edupanel/campus-api/pkg/errors"
)

type settingsRepository interface {
	ListAll(ctx context.Context) ([]models.Setting, error)
	Upsert(ctx context.Context, setting *models.Setting) error
}

type settingsAuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

var allowedSettingKeys = map[string]bool{
	models.SettingSchoolName:   true,
	models.SettingCurrency:     true,
	models.SettingAcademicYear: true,
	models.SettingThemePrimary: true,
	models.SettingThemeAccent:  true,
}

// UpdateSettingsRequest carries key/value pairs to store. Keys outside
// the known set are rejected.
type UpdateSettingsRequest struct {
	Values map[string]string `json:"values" validate:"required,min=1"`
}

// SettingsService serves school settings through a process-wide
// read-through cache. Entries expire after the configured TTL and the
// cache is dropped on every write, so a read after a write always sees
// fresh values. Readers elsewhere may observe values up to one TTL old.
type SettingsService struct {
	repo      settingsRepository
	audit     settingsAuditWriter
	ttl       time.Duration
	validator *validator.Validate
	logger    *zap.Logger

	mu       sync.RWMutex
	cached   *models.SchoolSettings
	cachedAt time.Time
}

// NewSettingsService creates a new settings service.
func NewSettingsService(repo settingsRepository, audit settingsAuditWriter, ttl time.Duration, validate *validator.Validate, logger *zap.Logger) *SettingsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SettingsService{repo: repo, audit: audit, ttl: ttl, validator: validate, logger: logger}
}

// Get returns the assembled settings view, from cache when fresh.
func (s *SettingsService) Get(ctx context.Context) (*models.SchoolSettings, error) {
	s.mu.RLock()
	if s.cached != nil && time.Since(s.cachedAt) < s.ttl {
		cached := *s.cached
		s.mu.RUnlock()
		return &cached, nil
	}
	s.mu.RUnlock()

	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}

	settings := assembleSettings(rows)

	s.mu.Lock()
	s.cached = settings
	s.cachedAt = time.Now()
	s.mu.Unlock()

	result := *settings
	return &result, nil
}

// Update stores the provided keys and invalidates the cache so the next
// read reflects the write immediately.
func (s *SettingsService) Update(ctx context.Context, actorID string, req UpdateSettingsRequest) (*models.SchoolSettings, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settings payload")
	}

	for key := range req.Values {
		if !allowedSettingKeys[key] {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown settings key: "+key)
		}
	}

	for key, value := range req.Values {
		setting := &models.Setting{Key: key, Value: value}
		if actorID != "" {
			setting.UpdatedBy = &actorID
		}
		if err := s.repo.Upsert(ctx, setting); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store setting")
		}
	}

	s.Invalidate()

	if s.audit != nil {
		values, _ := json.Marshal(req.Values)
		entry := &models.AuditLog{
			Action:    models.AuditActionSettingsUpdate,
			Resource:  "settings",
			NewValues: values,
		}
		if actorID != "" {
			entry.UserID = &actorID
		}
		if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
			s.logger.Warn("failed to record settings audit log", zap.Error(err))
		}
	}

	return s.Get(ctx)
}

// Invalidate drops the cached settings view.
func (s *SettingsService) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.cachedAt = time.Time{}
	s.mu.Unlock()
}

func assembleSettings(rows []models.Setting) *models.SchoolSettings {
	settings := &models.SchoolSettings{}
	for _, row := range rows {
		switch row.Key {
		case models.SettingSchoolName:
			settings.SchoolName = row.Value
		case models.SettingCurrency:
			settings.Currency = row.Value
		case models.SettingAcademicYear:
			settings.AcademicYear = row.Value
		case models.SettingThemePrimary:
			settings.ThemePrimary = row.Value
		case models.SettingThemeAccent:
			settings.ThemeAccent = row.Value
		}
	}
	return settings
}
