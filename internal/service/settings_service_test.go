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

type mockSettingsRepo struct {
	rows     map[string]string
	listHits int
	upserted []models.Setting
}

func newMockSettingsRepo() *mockSettingsRepo {
	return &mockSettingsRepo{rows: map[string]string{
		models.SettingSchoolName: "Hillview Academy",
		models.SettingCurrency:   "USD",
	}}
}

func (m *mockSettingsRepo) ListAll(_ context.Context) ([]models.Setting, error) {
	m.listHits++
	rows := make([]models.Setting, 0, len(m.rows))
	for key, value := range m.rows {
		rows = append(rows, models.Setting{Key: key, Value: value})
	}
	return rows, nil
}

func (m *mockSettingsRepo) Upsert(_ context.Context, setting *models.Setting) error {
	m.rows[setting.Key] = setting.Value
	m.upserted = append(m.upserted, *setting)
	return nil
}

func TestSettingsServiceGetCachesWithinTTL(t *testing.T) {
	repo := newMockSettingsRepo()
	svc := NewSettingsService(repo, nil, time.Minute, nil, nil)

	first, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Hillview Academy", first.SchoolName)
	assert.Equal(t, "USD", first.Currency)

	repo.rows[models.SettingSchoolName] = "Renamed Behind The Cache"
	second, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Hillview Academy", second.SchoolName)
	assert.Equal(t, 1, repo.listHits)
}

func TestSettingsServiceUpdateInvalidatesCache(t *testing.T) {
	repo := newMockSettingsRepo()
	svc := NewSettingsService(repo, nil, time.Minute, nil, nil)

	_, err := svc.Get(context.Background())
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), "admin-1", UpdateSettingsRequest{
		Values: map[string]string{models.SettingSchoolName: "Lakeside School"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Lakeside School", updated.SchoolName)
	assert.Equal(t, "USD", updated.Currency)

	require.Len(t, repo.upserted, 1)
	require.NotNil(t, repo.upserted[0].UpdatedBy)
	assert.Equal(t, "admin-1", *repo.upserted[0].UpdatedBy)
}

func TestSettingsServiceUpdateRecordsAudit(t *testing.T) {
	repo := newMockSettingsRepo()
	audit := &mockAuditWriter{}
	svc := NewSettingsService(repo, audit, time.Minute, nil, nil)

	_, err := svc.Update(context.Background(), "admin-1", UpdateSettingsRequest{
		Values: map[string]string{models.SettingCurrency: "IDR"},
	})
	require.NoError(t, err)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionSettingsUpdate, audit.entries[0].Action)
	assert.Equal(t, "settings", audit.entries[0].Resource)
}

func TestSettingsServiceUpdateUnknownKey(t *testing.T) {
	repo := newMockSettingsRepo()
	svc := NewSettingsService(repo, nil, time.Minute, nil, nil)

	_, err := svc.Update(context.Background(), "admin-1", UpdateSettingsRequest{
		Values: map[string]string{"mascot": "Otter"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
	assert.Empty(t, repo.upserted)
}

func TestSettingsServiceUpdateEmptyPayload(t *testing.T) {
	svc := NewSettingsService(newMockSettingsRepo(), nil, time.Minute, nil, nil)

	_, err := svc.Update(context.Background(), "admin-1", UpdateSettingsRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
}

func TestSettingsServiceInvalidateForcesReload(t *testing.T) {
	repo := newMockSettingsRepo()
	svc := NewSettingsService(repo, nil, time.Hour, nil, nil)

	_, err := svc.Get(context.Background())
	require.NoError(t, err)

	repo.rows[models.SettingAcademicYear] = "2026/2027"
	svc.Invalidate()

	settings, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2026/2027", settings.AcademicYear)
	assert.Equal(t, 2, repo.listHits)
}
