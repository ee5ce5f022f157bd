package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupanel/campus-api/internal/models"
	appErrors "github.com/edupanel/campus-api/pkg/errors"
)

type mockUserCounter struct {
	byRole map[models.UserRole]int
	calls  int
}

func (m *mockUserCounter) CountByRole(_ context.Context, role models.UserRole) (int, error) {
	m.calls++
	return m.byRole[role], nil
}

type mockClassCounter struct{ total int }

func (m *mockClassCounter) CountAll(_ context.Context) (int, error) { return m.total, nil }

type mockAdmissionCounter struct{ pending int }

func (m *mockAdmissionCounter) CountByStatus(_ context.Context, _ models.AdmissionStatus) (int, error) {
	return m.pending, nil
}

type mockFeeAggregator struct{ collected, outstanding float64 }

func (m *mockFeeAggregator) SumPayments(_ context.Context) (float64, float64, error) {
	return m.collected, m.outstanding, nil
}

type mockAttendanceRater struct {
	present, total int
	day            time.Time
}

func (m *mockAttendanceRater) TodayRate(_ context.Context, day time.Time) (int, int, error) {
	m.day = day
	return m.present, m.total, nil
}

type mockSummaryCache struct {
	entries map[string]models.DashboardSummary
	sets    int
}

func newMockSummaryCache() *mockSummaryCache {
	return &mockSummaryCache{entries: make(map[string]models.DashboardSummary)}
}

func (m *mockSummaryCache) Get(_ context.Context, key string, dest interface{}) error {
	cached, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*dest.(*models.DashboardSummary) = cached
	return nil
}

func (m *mockSummaryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.sets++
	m.entries[key] = *value.(*models.DashboardSummary)
	return nil
}

func newDashboardFixture(cache dashboardCache) (*DashboardService, *mockUserCounter) {
	users := &mockUserCounter{byRole: map[models.UserRole]int{
		models.RoleStudent: 240,
		models.RoleTeacher: 18,
	}}
	svc := NewDashboardService(
		users,
		&mockClassCounter{total: 12},
		&mockAdmissionCounter{pending: 7},
		&mockFeeAggregator{collected: 125000, outstanding: 34000},
		&mockAttendanceRater{present: 228, total: 240},
		cache,
		nil,
		time.Minute,
		nil,
	)
	return svc, users
}

func TestDashboardServiceSummary(t *testing.T) {
	svc, _ := newDashboardFixture(nil)

	summary, cached, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 240, summary.Students)
	assert.Equal(t, 18, summary.Teachers)
	assert.Equal(t, 12, summary.Classes)
	assert.Equal(t, 7, summary.PendingApplications)
	assert.Equal(t, 125000.0, summary.FeesCollected)
	assert.Equal(t, 34000.0, summary.FeesOutstanding)
	assert.InDelta(t, 95.0, summary.AttendanceRateToday, 0.01)
}

func TestDashboardServiceSecondReadHitsCache(t *testing.T) {
	cache := newMockSummaryCache()
	svc, users := newDashboardFixture(cache)

	_, cached, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	callsAfterBuild := users.calls
	assert.Equal(t, 1, cache.sets)

	summary, cached, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 240, summary.Students)
	assert.Equal(t, callsAfterBuild, users.calls)
}

func TestDashboardServiceInvalidationForcesRebuild(t *testing.T) {
	cache := newMockSummaryCache()
	svc, users := newDashboardFixture(cache)

	_, _, err := svc.Summary(context.Background())
	require.NoError(t, err)

	delete(cache.entries, dashboardCacheKey)
	users.byRole[models.RoleStudent] = 241

	summary, cached, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 241, summary.Students)
}

func TestDashboardServiceQueriesTodayAtMidnightUTC(t *testing.T) {
	rater := &mockAttendanceRater{present: 10, total: 10}
	svc := NewDashboardService(
		&mockUserCounter{byRole: map[models.UserRole]int{}},
		&mockClassCounter{},
		&mockAdmissionCounter{},
		&mockFeeAggregator{},
		rater,
		nil,
		nil,
		time.Minute,
		nil,
	)

	_, _, err := svc.Summary(context.Background())
	require.NoError(t, err)

	// session dates are stored at midnight UTC; the aggregate query
	// matches by equality
	assert.Equal(t, time.UTC, rater.day.Location())
	assert.Equal(t, rater.day, rater.day.Truncate(24*time.Hour))
	assert.WithinDuration(t, time.Now().UTC(), rater.day, 24*time.Hour)
}

func TestDashboardServiceZeroAttendanceSessions(t *testing.T) {
	svc := NewDashboardService(
		&mockUserCounter{byRole: map[models.UserRole]int{}},
		&mockClassCounter{},
		&mockAdmissionCounter{},
		&mockFeeAggregator{},
		&mockAttendanceRater{present: 0, total: 0},
		nil,
		nil,
		time.Minute,
		nil,
	)

	summary, _, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.AttendanceRateToday)
}
