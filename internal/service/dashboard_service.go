package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/edupanel/campus-api/internal/models"
	appErrors "github.com/edupanel/campus-api/pkg/errors"
)

type dashboardUserCounter interface {
	CountByRole(ctx context.Context, role models.UserRole) (int, error)
}

type dashboardClassCounter interface {
	CountAll(ctx context.Context) (int, error)
}

type dashboardAdmissionCounter interface {
	CountByStatus(ctx context.Context, status models.AdmissionStatus) (int, error)
}

type dashboardFeeAggregator interface {
	SumPayments(ctx context.Context) (collected float64, outstanding float64, err error)
}

type dashboardAttendanceRater interface {
	TodayRate(ctx context.Context, day time.Time) (present int, total int, err error)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// summaryInvalidator drops cached dashboard aggregates. Services that
// mutate a dashboard input hold one so stale summaries never outlive a
// write by more than the request that made it.
type summaryInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

const (
	dashboardCacheKey     = "dashboard:summary"
	dashboardCachePattern = "dashboard:*"
)

// invalidateSummary drops cached dashboard entries after a mutation.
// Failures are logged and swallowed; the TTL bounds staleness anyway.
func invalidateSummary(ctx context.Context, cache summaryInvalidator, logger *zap.Logger) {
	if cache == nil {
		return
	}
	if err := cache.DeleteByPattern(ctx, dashboardCachePattern); err != nil {
		logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

// DashboardService aggregates counts for the admin dashboard with an
// optional Redis cache in front of the aggregate queries.
type DashboardService struct {
	users       dashboardUserCounter
	classes     dashboardClassCounter
	admissions  dashboardAdmissionCounter
	fees        dashboardFeeAggregator
	attendances dashboardAttendanceRater
	cache       dashboardCache
	metrics     *MetricsService
	ttl         time.Duration
	logger      *zap.Logger
}

// NewDashboardService creates a new dashboard service. Passing a nil
// cache disables caching.
func NewDashboardService(users dashboardUserCounter, classes dashboardClassCounter, admissions dashboardAdmissionCounter, fees dashboardFeeAggregator, attendances dashboardAttendanceRater, cache dashboardCache, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DashboardService{
		users:       users,
		classes:     classes,
		admissions:  admissions,
		fees:        fees,
		attendances: attendances,
		cache:       cache,
		metrics:     metrics,
		ttl:         ttl,
		logger:      logger,
	}
}

// Summary returns dashboard aggregates. The second return value reports
// whether the payload was served from cache.
func (s *DashboardService) Summary(ctx context.Context) (*models.DashboardSummary, bool, error) {
	if s.cache != nil {
		var cached models.DashboardSummary
		err := s.cache.Get(ctx, dashboardCacheKey, &cached)
		if err == nil {
			s.metrics.RecordCacheOperation(true)
			return &cached, true, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
		s.metrics.RecordCacheOperation(false)
	}

	summary, err := s.build(ctx)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardCacheKey, summary, s.ttl); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return summary, false, nil
}

func (s *DashboardService) build(ctx context.Context) (*models.DashboardSummary, error) {
	students, err := s.users.CountByRole(ctx, models.RoleStudent)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	teachers, err := s.users.CountByRole(ctx, models.RoleTeacher)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count teachers")
	}
	classes, err := s.classes.CountAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count classes")
	}
	pending, err := s.admissions.CountByStatus(ctx, models.AdmissionStatusSubmitted)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count applications")
	}
	collected, outstanding, err := s.fees.SumPayments(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate fees")
	}
	// sessions store date at midnight UTC, so the equality match needs
	// the clock stripped
	today := time.Now().UTC().Truncate(24 * time.Hour)
	present, total, err := s.attendances.TodayRate(ctx, today)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute attendance rate")
	}

	rate := 0.0
	if total > 0 {
		rate = float64(present) / float64(total) * 100
	}

	return &models.DashboardSummary{
		Students:            students,
		Teachers:            teachers,
		Classes:             classes,
		PendingApplications: pending,
		FeesCollected:       collected,
		FeesOutstanding:     outstanding,
		AttendanceRateToday: rate,
	}, nil
}
