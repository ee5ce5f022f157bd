package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupanel/campus-api/internal/models"
	appErrors "github.com/edupanel/campus-api/pkg/errors"
)

type mockAnnouncementRepo struct {
	items   map[string]*models.Announcement
	deleted []string
	nextID  int
}

func newMockAnnouncementRepo() *mockAnnouncementRepo {
	return &mockAnnouncementRepo{items: make(map[string]*models.Announcement)}
}

func (m *mockAnnouncementRepo) List(_ context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error) {
	items := make([]models.Announcement, 0, len(m.items))
	for _, announcement := range m.items {
		if filter.Type != nil && announcement.Type != *filter.Type {
			continue
		}
		items = append(items, *announcement)
	}
	return items, len(items), nil
}

func (m *mockAnnouncementRepo) FindByID(_ context.Context, id string) (*models.Announcement, error) {
	announcement, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *announcement
	return &copied, nil
}

func (m *mockAnnouncementRepo) Create(_ context.Context, announcement *models.Announcement) error {
	m.nextID++
	announcement.ID = fmt.Sprintf("ann-%d", m.nextID)
	stored := *announcement
	m.items[announcement.ID] = &stored
	return nil
}

func (m *mockAnnouncementRepo) Update(_ context.Context, announcement *models.Announcement) error {
	stored := *announcement
	m.items[announcement.ID] = &stored
	return nil
}

func (m *mockAnnouncementRepo) Delete(_ context.Context, id string) error {
	delete(m.items, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func strPtr(s string) *string { return &s }

func TestAnnouncementServiceCreateGeneral(t *testing.T) {
	repo := newMockAnnouncementRepo()
	svc := NewAnnouncementService(repo, nil, nil)

	announcement, err := svc.Create(context.Background(), "admin-1", CreateAnnouncementRequest{
		Title:    "Library hours",
		Content:  "The library closes at 17:00 during exam week.",
		Type:     models.AnnouncementTypeGeneral,
		Priority: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "admin-1", announcement.CreatedBy)
	assert.Nil(t, announcement.EventDate)
}

func TestAnnouncementServiceEventRequiresScheduling(t *testing.T) {
	svc := NewAnnouncementService(newMockAnnouncementRepo(), nil, nil)

	_, err := svc.Create(context.Background(), "admin-1", CreateAnnouncementRequest{
		Title:   "Sports day",
		Content: "Annual sports day on the main field.",
		Type:    models.AnnouncementTypeEvent,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
}

func TestAnnouncementServiceEventStoresTypedFields(t *testing.T) {
	svc := NewAnnouncementService(newMockAnnouncementRepo(), nil, nil)

	announcement, err := svc.Create(context.Background(), "admin-1", CreateAnnouncementRequest{
		Title:     "Sports day",
		Content:   "Annual sports day on the main field.",
		Type:      models.AnnouncementTypeEvent,
		EventDate: strPtr("2026-05-20"),
		StartTime: strPtr("08:00"),
		EndTime:   strPtr("14:00"),
		Location:  strPtr("Main field"),
	})
	require.NoError(t, err)
	require.NotNil(t, announcement.EventDate)
	assert.Equal(t, "2026-05-20", announcement.EventDate.Format("2006-01-02"))
	assert.Equal(t, "08:00", *announcement.StartTime)
	assert.Equal(t, "14:00", *announcement.EndTime)
	assert.Equal(t, "Main field", *announcement.Location)
	assert.NotContains(t, announcement.Content, "08:00")
}

func TestAnnouncementServiceEventFieldsRejectedForGeneral(t *testing.T) {
	svc := NewAnnouncementService(newMockAnnouncementRepo(), nil, nil)

	_, err := svc.Create(context.Background(), "admin-1", CreateAnnouncementRequest{
		Title:     "Library hours",
		Content:   "Closes early.",
		Type:      models.AnnouncementTypeGeneral,
		EventDate: strPtr("2026-05-20"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
}

func TestAnnouncementServiceEventRejectsInvertedTimes(t *testing.T) {
	svc := NewAnnouncementService(newMockAnnouncementRepo(), nil, nil)

	_, err := svc.Create(context.Background(), "admin-1", CreateAnnouncementRequest{
		Title:     "Sports day",
		Content:   "Annual sports day.",
		Type:      models.AnnouncementTypeEvent,
		EventDate: strPtr("2026-05-20"),
		StartTime: strPtr("14:00"),
		EndTime:   strPtr("08:00"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
}

func TestAnnouncementServiceCreateUnknownType(t *testing.T) {
	svc := NewAnnouncementService(newMockAnnouncementRepo(), nil, nil)

	_, err := svc.Create(context.Background(), "admin-1", CreateAnnouncementRequest{
		Title:   "Misc",
		Content: "Misc content.",
		Type:    models.AnnouncementType("GOSSIP"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
}

func TestAnnouncementServicePartialUpdateKeepsStoredValues(t *testing.T) {
	svc := NewAnnouncementService(newMockAnnouncementRepo(), nil, nil)

	announcement, err := svc.Create(context.Background(), "admin-1", CreateAnnouncementRequest{
		Title:     "Sports day",
		Content:   "Annual sports day.",
		Type:      models.AnnouncementTypeEvent,
		Priority:  2,
		EventDate: strPtr("2026-05-20"),
		StartTime: strPtr("08:00"),
		EndTime:   strPtr("14:00"),
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), announcement.ID, UpdateAnnouncementRequest{
		EndTime: strPtr("15:00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Sports day", updated.Title)
	assert.Equal(t, 2, updated.Priority)
	assert.Equal(t, "08:00", *updated.StartTime)
	assert.Equal(t, "15:00", *updated.EndTime)
}

func TestAnnouncementServiceUpdateRejectsEventFieldsForGeneral(t *testing.T) {
	svc := NewAnnouncementService(newMockAnnouncementRepo(), nil, nil)

	announcement, err := svc.Create(context.Background(), "admin-1", CreateAnnouncementRequest{
		Title:   "Library hours",
		Content: "Closes early.",
		Type:    models.AnnouncementTypeGeneral,
	})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), announcement.ID, UpdateAnnouncementRequest{
		Location: strPtr("Main hall"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
}

func TestAnnouncementServiceListFiltersEvents(t *testing.T) {
	repo := newMockAnnouncementRepo()
	svc := NewAnnouncementService(repo, nil, nil)

	_, err := svc.Create(context.Background(), "admin-1", CreateAnnouncementRequest{
		Title: "Library hours", Content: "Closes early.", Type: models.AnnouncementTypeGeneral,
	})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), "admin-1", CreateAnnouncementRequest{
		Title: "Sports day", Content: "Annual sports day.", Type: models.AnnouncementTypeEvent,
		EventDate: strPtr("2026-05-20"), StartTime: strPtr("08:00"), EndTime: strPtr("14:00"),
	})
	require.NoError(t, err)

	eventType := models.AnnouncementTypeEvent
	events, pagination, err := svc.List(context.Background(), models.AnnouncementFilter{Type: &eventType})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Sports day", events[0].Title)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestAnnouncementServiceDelete(t *testing.T) {
	repo := newMockAnnouncementRepo()
	svc := NewAnnouncementService(repo, nil, nil)

	announcement, err := svc.Create(context.Background(), "admin-1", CreateAnnouncementRequest{
		Title: "Library hours", Content: "Closes early.", Type: models.AnnouncementTypeGeneral,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), announcement.ID))
	assert.Equal(t, []string{announcement.ID}, repo.deleted)

	err = svc.Delete(context.Background(), announcement.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Status, appErrors.FromError(err).Status)
}

func TestAnnouncementServiceGetEventRejectsGeneral(t *testing.T) {
	svc := NewAnnouncementService(newMockAnnouncementRepo(), nil, nil)

	general, err := svc.Create(context.Background(), "admin-1", CreateAnnouncementRequest{
		Title:   "Library hours",
		Content: "The library closes at 17:00 during exam week.",
		Type:    models.AnnouncementTypeGeneral,
	})
	require.NoError(t, err)

	event, err := svc.Create(context.Background(), "admin-1", CreateAnnouncementRequest{
		Title:     "Sports day",
		Content:   "Annual sports day on the main field.",
		Type:      models.AnnouncementTypeEvent,
		EventDate: strPtr("2026-05-20"),
		StartTime: strPtr("08:00"),
		EndTime:   strPtr("14:00"),
	})
	require.NoError(t, err)

	got, err := svc.GetEvent(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.ID, got.ID)

	_, err = svc.GetEvent(context.Background(), general.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Status, appErrors.FromError(err).Status)

	_, err = svc.GetEvent(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Status, appErrors.FromError(err).Status)
}
