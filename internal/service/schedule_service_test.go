package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupanel/campus-api/internal/models"
	appErrors "github.com/edupanel/campus-api/pkg/errors"
)

type mockScheduleRepo struct {
	items   map[string]*models.Schedule
	created []*models.Schedule
	updated []*models.Schedule
}

func (m *mockScheduleRepo) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	var out []models.Schedule
	for _, s := range m.items {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (m *mockScheduleRepo) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	if s, ok := m.items[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockScheduleRepo) ListByClassAndDay(ctx context.Context, classID, dayOfWeek string) ([]models.Schedule, error) {
	var out []models.Schedule
	for _, s := range m.items {
		if s.ClassID == classID && s.DayOfWeek == dayOfWeek {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockScheduleRepo) Create(ctx context.Context, schedule *models.Schedule) error {
	if m.items == nil {
		m.items = make(map[string]*models.Schedule)
	}
	if schedule.ID == "" {
		schedule.ID = "generated"
	}
	cp := *schedule
	m.items[schedule.ID] = &cp
	m.created = append(m.created, &cp)
	return nil
}

func (m *mockScheduleRepo) Update(ctx context.Context, schedule *models.Schedule) error {
	cp := *schedule
	m.items[schedule.ID] = &cp
	m.updated = append(m.updated, &cp)
	return nil
}

func (m *mockScheduleRepo) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

type mockClassLookup struct {
	classes map[string]*models.Class
}

func (m *mockClassLookup) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if c, ok := m.classes[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type mockSubjectLookup struct {
	subjects map[string]*models.Subject
}

func (m *mockSubjectLookup) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if s, ok := m.subjects[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func newScheduleFixture() (*ScheduleService, *mockScheduleRepo) {
	repo := &mockScheduleRepo{items: map[string]*models.Schedule{
		"existing": {
			ID:        "existing",
			ClassID:   "class-1",
			SubjectID: "subj-1",
			DayOfWeek: models.DayMonday,
			StartTime: "09:00",
			EndTime:   "10:00",
		},
	}}
	classes := &mockClassLookup{classes: map[string]*models.Class{
		"class-1": {ID: "class-1", Name: "10", Section: "A", Capacity: 30},
		"class-2": {ID: "class-2", Name: "10", Section: "B", Capacity: 30},
	}}
	subjects := &mockSubjectLookup{subjects: map[string]*models.Subject{
		"subj-1": {ID: "subj-1", Name: "Mathematics", Code: "MATH101"},
	}}
	return NewScheduleService(repo, classes, subjects, nil, nil), repo
}

func TestScheduleServiceCreateOverlapRejected(t *testing.T) {
	svc, repo := newScheduleFixture()

	_, err := svc.Create(context.Background(), ScheduleRequest{
		ClassID:   "class-1",
		SubjectID: "subj-1",
		DayOfWeek: models.DayMonday,
		StartTime: "09:30",
		EndTime:   "10:30",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)
	assert.Empty(t, repo.created)
}

func TestScheduleServiceCreateAdjacentAccepted(t *testing.T) {
	svc, repo := newScheduleFixture()

	created, err := svc.Create(context.Background(), ScheduleRequest{
		ClassID:   "class-1",
		SubjectID: "subj-1",
		DayOfWeek: models.DayMonday,
		StartTime: "10:00",
		EndTime:   "11:00",
	})
	require.NoError(t, err)
	assert.Len(t, repo.created, 1)
	assert.Equal(t, "10:00", created.StartTime)
}

func TestScheduleServiceCreateOtherClassAccepted(t *testing.T) {
	svc, _ := newScheduleFixture()

	_, err := svc.Create(context.Background(), ScheduleRequest{
		ClassID:   "class-2",
		SubjectID: "subj-1",
		DayOfWeek: models.DayMonday,
		StartTime: "09:30",
		EndTime:   "10:30",
	})
	require.NoError(t, err)
}

func TestScheduleServiceCreateOtherDayAccepted(t *testing.T) {
	svc, _ := newScheduleFixture()

	_, err := svc.Create(context.Background(), ScheduleRequest{
		ClassID:   "class-1",
		SubjectID: "subj-1",
		DayOfWeek: models.DayTuesday,
		StartTime: "09:30",
		EndTime:   "10:30",
	})
	require.NoError(t, err)
}

func TestScheduleServiceUpdateIgnoresSelf(t *testing.T) {
	svc, repo := newScheduleFixture()

	// Shifting the only entry within its own slot must not conflict
	// with itself.
	updated, err := svc.Update(context.Background(), "existing", ScheduleRequest{
		ClassID:   "class-1",
		SubjectID: "subj-1",
		DayOfWeek: models.DayMonday,
		StartTime: "09:15",
		EndTime:   "10:15",
	})
	require.NoError(t, err)
	assert.Equal(t, "09:15", updated.StartTime)
	assert.Len(t, repo.updated, 1)
}

func TestScheduleServiceRejectsInvalidTimes(t *testing.T) {
	svc, _ := newScheduleFixture()

	cases := []struct {
		name  string
		start string
		end   string
	}{
		{"unpadded hour", "9:00", "10:00"},
		{"start after end", "11:00", "10:00"},
		{"start equals end", "10:00", "10:00"},
		{"out of range", "25:00", "26:00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), ScheduleRequest{
				ClassID:   "class-1",
				SubjectID: "subj-1",
				DayOfWeek: models.DayMonday,
				StartTime: tc.start,
				EndTime:   tc.end,
			})
			require.Error(t, err)
			assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
		})
	}
}

func TestScheduleServiceRejectsUnknownDay(t *testing.T) {
	svc, _ := newScheduleFixture()

	_, err := svc.Create(context.Background(), ScheduleRequest{
		ClassID:   "class-1",
		SubjectID: "subj-1",
		DayOfWeek: "FUNDAY",
		StartTime: "09:00",
		EndTime:   "10:00",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}

func TestScheduleServiceRejectsUnknownClass(t *testing.T) {
	svc, _ := newScheduleFixture()

	_, err := svc.Create(context.Background(), ScheduleRequest{
		ClassID:   "missing",
		SubjectID: "subj-1",
		DayOfWeek: models.DayMonday,
		StartTime: "09:00",
		EndTime:   "10:00",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}
