package service

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupanel/campus-api/internal/models"
	appErrors "github.com/edupanel/campus-api/pkg/errors"
)

type mockAdmissionRepo struct {
	byID     map[string]*models.AdmissionApplication
	byNumber map[string]*models.AdmissionApplication
	timeline map[string][]models.AdmissionTimelineEntry
	nextID   int
}

func newMockAdmissionRepo() *mockAdmissionRepo {
	return &mockAdmissionRepo{
		byID:     make(map[string]*models.AdmissionApplication),
		byNumber: make(map[string]*models.AdmissionApplication),
		timeline: make(map[string][]models.AdmissionTimelineEntry),
	}
}

func (m *mockAdmissionRepo) List(_ context.Context, _ models.AdmissionFilter) ([]models.AdmissionApplication, int, error) {
	items := make([]models.AdmissionApplication, 0, len(m.byID))
	for _, application := range m.byID {
		items = append(items, *application)
	}
	return items, len(items), nil
}

func (m *mockAdmissionRepo) FindByID(_ context.Context, id string) (*models.AdmissionApplication, error) {
	application, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *application
	return &copied, nil
}

func (m *mockAdmissionRepo) FindByNumber(_ context.Context, number string) (*models.AdmissionApplication, error) {
	application, ok := m.byNumber[number]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *application
	return &copied, nil
}

func (m *mockAdmissionRepo) CreateWithTimeline(_ context.Context, application *models.AdmissionApplication, entry *models.AdmissionTimelineEntry) error {
	m.nextID++
	application.ID = fmt.Sprintf("app-%d", m.nextID)
	stored := *application
	m.byID[application.ID] = &stored
	m.byNumber[application.ApplicationNumber] = &stored
	m.timeline[application.ID] = []models.AdmissionTimelineEntry{{
		ApplicationID: application.ID,
		Status:        entry.Status,
		Note:          entry.Note,
	}}
	return nil
}

func (m *mockAdmissionRepo) UpdateStatus(_ context.Context, id string, status models.AdmissionStatus, entry *models.AdmissionTimelineEntry) error {
	application, ok := m.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	application.Status = status
	m.timeline[id] = append(m.timeline[id], models.AdmissionTimelineEntry{
		ApplicationID: id,
		Status:        entry.Status,
		Note:          entry.Note,
		ActorID:       entry.ActorID,
	})
	return nil
}

func (m *mockAdmissionRepo) ListTimeline(_ context.Context, applicationID string) ([]models.AdmissionTimelineEntry, error) {
	return m.timeline[applicationID], nil
}

type mockInvalidator struct {
	patterns []string
}

func (m *mockInvalidator) DeleteByPattern(_ context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	return nil
}

func validAdmissionRequest() SubmitAdmissionRequest {
	return SubmitAdmissionRequest{
		StudentName:      "Mia Tan",
		StudentBirthDate: "2015-09-04",
		DesiredGrade:     "Grade 5",
		ParentName:       "Rina Tan",
		ParentEmail:      "rina.tan@example.com",
		ParentPhone:      "+6281234567890",
		Address:          "12 Orchard Lane",
	}
}

func TestAdmissionServiceSubmit(t *testing.T) {
	repo := newMockAdmissionRepo()
	cache := &mockInvalidator{}
	svc := NewAdmissionService(repo, nil, cache, true, nil, nil)

	application, err := svc.Submit(context.Background(), validAdmissionRequest())
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^APP-\d{4}-\d{5}$`), application.ApplicationNumber)
	assert.Equal(t, models.AdmissionStatusSubmitted, application.Status)
	assert.Equal(t, []string{"dashboard:*"}, cache.patterns)

	detail, err := svc.Track(context.Background(), application.ApplicationNumber)
	require.NoError(t, err)
	require.Len(t, detail.Timeline, 1)
	assert.Equal(t, models.AdmissionStatusSubmitted, detail.Timeline[0].Status)
}

func TestAdmissionServiceSubmitClosed(t *testing.T) {
	repo := newMockAdmissionRepo()
	svc := NewAdmissionService(repo, nil, nil, false, nil, nil)

	_, err := svc.Submit(context.Background(), validAdmissionRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
	assert.Empty(t, repo.byID)
}

func TestAdmissionServiceSubmitFutureBirthDate(t *testing.T) {
	svc := NewAdmissionService(newMockAdmissionRepo(), nil, nil, true, nil, nil)

	req := validAdmissionRequest()
	req.StudentBirthDate = "2099-01-01"
	_, err := svc.Submit(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
}

func TestAdmissionServiceSubmitBadEmail(t *testing.T) {
	svc := NewAdmissionService(newMockAdmissionRepo(), nil, nil, true, nil, nil)

	req := validAdmissionRequest()
	req.ParentEmail = "not-an-email"
	_, err := svc.Submit(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
}

func TestAdmissionServiceStatusProgression(t *testing.T) {
	repo := newMockAdmissionRepo()
	audit := &mockAuditWriter{}
	svc := NewAdmissionService(repo, audit, nil, true, nil, nil)

	application, err := svc.Submit(context.Background(), validAdmissionRequest())
	require.NoError(t, err)

	detail, err := svc.UpdateStatus(context.Background(), "admin-1", application.ID, AdmissionStatusRequest{
		Status: models.AdmissionStatusReviewing,
		Note:   "Documents look complete",
	})
	require.NoError(t, err)
	assert.Equal(t, models.AdmissionStatusReviewing, detail.Status)
	require.Len(t, detail.Timeline, 2)
	assert.Equal(t, "Documents look complete", detail.Timeline[1].Note)
	require.NotNil(t, detail.Timeline[1].ActorID)
	assert.Equal(t, "admin-1", *detail.Timeline[1].ActorID)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionAdmissionStatus, audit.entries[0].Action)
}

func TestAdmissionServiceFinalisedIsLocked(t *testing.T) {
	repo := newMockAdmissionRepo()
	svc := NewAdmissionService(repo, nil, nil, true, nil, nil)

	application, err := svc.Submit(context.Background(), validAdmissionRequest())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), "admin-1", application.ID, AdmissionStatusRequest{
		Status: models.AdmissionStatusAccepted,
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), "admin-1", application.ID, AdmissionStatusRequest{
		Status: models.AdmissionStatusRejected,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
}

func TestAdmissionServiceRepeatedStatusRejected(t *testing.T) {
	repo := newMockAdmissionRepo()
	svc := NewAdmissionService(repo, nil, nil, true, nil, nil)

	application, err := svc.Submit(context.Background(), validAdmissionRequest())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), "admin-1", application.ID, AdmissionStatusRequest{
		Status: models.AdmissionStatusSubmitted,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
}

func TestAdmissionServiceTrackUnknownNumber(t *testing.T) {
	svc := NewAdmissionService(newMockAdmissionRepo(), nil, nil, true, nil, nil)

	_, err := svc.Track(context.Background(), "APP-2026-99999")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Status, appErrors.FromError(err).Status)
}
