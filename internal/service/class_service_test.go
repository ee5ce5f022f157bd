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

type mockClassRepo struct {
	items        map[string]*models.Class
	studentCount map[string]int
	assigned     map[string][]string
	cascaded     []string
	removed      [][2]string
}

func (m *mockClassRepo) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error) {
	var out []models.Class
	for _, c := range m.items {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (m *mockClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if c, ok := m.items[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassRepo) FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error) {
	if c, ok := m.items[id]; ok {
		return &models.ClassDetail{Class: *c, StudentCount: m.studentCount[id]}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassRepo) ExistsByName(ctx context.Context, name, section, excludeID string) (bool, error) {
	for id, c := range m.items {
		if id == excludeID {
			continue
		}
		if c.Name == name && c.Section == section {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockClassRepo) Create(ctx context.Context, class *models.Class) error {
	if m.items == nil {
		m.items = make(map[string]*models.Class)
	}
	if class.ID == "" {
		class.ID = "generated"
	}
	cp := *class
	m.items[class.ID] = &cp
	return nil
}

func (m *mockClassRepo) Update(ctx context.Context, class *models.Class) error {
	cp := *class
	m.items[class.ID] = &cp
	return nil
}

func (m *mockClassRepo) CountStudents(ctx context.Context, classID string) (int, error) {
	return m.studentCount[classID], nil
}

func (m *mockClassRepo) ListStudents(ctx context.Context, classID string) ([]models.ClassStudent, error) {
	return nil, nil
}

func (m *mockClassRepo) AssignStudents(ctx context.Context, classID string, studentIDs []string) error {
	if m.assigned == nil {
		m.assigned = make(map[string][]string)
	}
	m.assigned[classID] = append(m.assigned[classID], studentIDs...)
	return nil
}

func (m *mockClassRepo) RemoveStudent(ctx context.Context, classID, studentID string) error {
	m.removed = append(m.removed, [2]string{classID, studentID})
	return nil
}

func (m *mockClassRepo) DeleteCascade(ctx context.Context, id string) error {
	delete(m.items, id)
	m.cascaded = append(m.cascaded, id)
	return nil
}

type mockClassUsers struct {
	users map[string]*models.User
}

func (m *mockClassUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func newClassFixture() (*ClassService, *mockClassRepo, *mockClassUsers) {
	repo := &mockClassRepo{
		items: map[string]*models.Class{
			"class-1": {ID: "class-1", Name: "10", Section: "A", Grade: "10", Capacity: 2},
		},
		studentCount: map[string]int{},
	}
	users := &mockClassUsers{users: map[string]*models.User{
		"teacher-1": {ID: "teacher-1", Role: models.RoleTeacher, Active: true},
		"student-1": {ID: "student-1", Role: models.RoleStudent, Active: true},
		"student-2": {ID: "student-2", Role: models.RoleStudent, Active: true},
		"student-3": {ID: "student-3", Role: models.RoleStudent, Active: true},
	}}
	return NewClassService(repo, users, nil, nil, nil), repo, users
}

func TestClassServiceDeleteBlockedWhileEnrolled(t *testing.T) {
	svc, repo, _ := newClassFixture()
	repo.studentCount["class-1"] = 3

	err := svc.Delete(context.Background(), "class-1")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
	assert.Empty(t, repo.cascaded)
	assert.Contains(t, repo.items, "class-1")
}

func TestClassServiceDeleteEmptyClassCascades(t *testing.T) {
	svc, repo, _ := newClassFixture()

	require.NoError(t, svc.Delete(context.Background(), "class-1"))
	assert.Equal(t, []string{"class-1"}, repo.cascaded)
}

func TestClassServiceCreateDuplicateNameSection(t *testing.T) {
	svc, _, _ := newClassFixture()

	_, err := svc.Create(context.Background(), CreateClassRequest{
		Name:     "10",
		Section:  "A",
		Grade:    "10",
		Capacity: 30,
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)
}

func TestClassServiceCreateRejectsNonTeacher(t *testing.T) {
	svc, _, _ := newClassFixture()
	studentID := "student-1"

	_, err := svc.Create(context.Background(), CreateClassRequest{
		Name:      "11",
		Section:   "A",
		Grade:     "11",
		Capacity:  30,
		TeacherID: &studentID,
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}

func TestClassServiceEnrollStudents(t *testing.T) {
	svc, repo, _ := newClassFixture()

	err := svc.EnrollStudents(context.Background(), "class-1", EnrollStudentsRequest{
		StudentIDs: []string{"student-1", "student-2"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"student-1", "student-2"}, repo.assigned["class-1"])
}

func TestClassServiceEnrollOverCapacity(t *testing.T) {
	svc, repo, _ := newClassFixture()
	repo.studentCount["class-1"] = 1

	err := svc.EnrollStudents(context.Background(), "class-1", EnrollStudentsRequest{
		StudentIDs: []string{"student-1", "student-2"},
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
	assert.Empty(t, repo.assigned)
}

func TestClassServiceEnrollAlreadyEnrolledStudent(t *testing.T) {
	svc, repo, users := newClassFixture()
	other := "class-9"
	users.users["student-1"].ClassID = &other

	err := svc.EnrollStudents(context.Background(), "class-1", EnrollStudentsRequest{
		StudentIDs: []string{"student-1"},
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)
	assert.Empty(t, repo.assigned)
}

func TestClassServiceEnrollRejectsTeacher(t *testing.T) {
	svc, _, _ := newClassFixture()

	err := svc.EnrollStudents(context.Background(), "class-1", EnrollStudentsRequest{
		StudentIDs: []string{"teacher-1"},
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}
