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

type mockExpenseRepo struct {
	items   map[string]*models.Expense
	deleted []string
	nextID  int
}

func newMockExpenseRepo() *mockExpenseRepo {
	return &mockExpenseRepo{items: make(map[string]*models.Expense)}
}

func (m *mockExpenseRepo) List(_ context.Context, _ models.ExpenseFilter) ([]models.Expense, int, error) {
	items := make([]models.Expense, 0, len(m.items))
	for _, expense := range m.items {
		items = append(items, *expense)
	}
	return items, len(items), nil
}

func (m *mockExpenseRepo) FindByID(_ context.Context, id string) (*models.Expense, error) {
	expense, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *expense
	return &copied, nil
}

func (m *mockExpenseRepo) Create(_ context.Context, expense *models.Expense) error {
	m.nextID++
	expense.ID = fmt.Sprintf("expense-%d", m.nextID)
	stored := *expense
	m.items[expense.ID] = &stored
	return nil
}

func (m *mockExpenseRepo) Update(_ context.Context, expense *models.Expense) error {
	stored := *expense
	m.items[expense.ID] = &stored
	return nil
}

func (m *mockExpenseRepo) Delete(_ context.Context, id string) error {
	delete(m.items, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockAuditWriter struct {
	entries []models.AuditLog
}

func (m *mockAuditWriter) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	m.entries = append(m.entries, *log)
	return nil
}

func newExpenseFixture() (*ExpenseService, *mockExpenseRepo, *mockAuditWriter) {
	repo := newMockExpenseRepo()
	audit := &mockAuditWriter{}
	return NewExpenseService(repo, audit, nil, nil), repo, audit
}

func createPendingExpense(t *testing.T, svc *ExpenseService) *models.Expense {
	t.Helper()
	expense, err := svc.Create(context.Background(), ExpenseRequest{
		Category:    "MAINTENANCE",
		Description: "Roof repairs for block B",
		Amount:      1500,
		ExpenseDate: "2026-02-10",
	})
	require.NoError(t, err)
	return expense
}

func TestExpenseServiceCreateStartsPending(t *testing.T) {
	svc, _, _ := newExpenseFixture()

	expense := createPendingExpense(t, svc)
	assert.Equal(t, models.ExpenseStatusPending, expense.Status)
	assert.Nil(t, expense.ApprovedBy)
}

func TestExpenseServiceApprovalRecordsActor(t *testing.T) {
	svc, _, audit := newExpenseFixture()
	expense := createPendingExpense(t, svc)

	updated, err := svc.UpdateStatus(context.Background(), "admin-1", expense.ID, ExpenseStatusRequest{
		Status: models.ExpenseStatusApproved,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.ApprovedBy)
	assert.Equal(t, "admin-1", *updated.ApprovedBy)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionExpenseApprove, audit.entries[0].Action)
}

func TestExpenseServiceStatusOnlyMovesForward(t *testing.T) {
	svc, _, _ := newExpenseFixture()
	expense := createPendingExpense(t, svc)

	_, err := svc.UpdateStatus(context.Background(), "admin-1", expense.ID, ExpenseStatusRequest{
		Status: models.ExpenseStatusApproved,
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), "admin-1", expense.ID, ExpenseStatusRequest{
		Status: models.ExpenseStatusPending,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
}

func TestExpenseServicePayoutRequiresApproval(t *testing.T) {
	svc, _, _ := newExpenseFixture()
	expense := createPendingExpense(t, svc)

	_, err := svc.UpdateStatus(context.Background(), "admin-1", expense.ID, ExpenseStatusRequest{
		Status: models.ExpenseStatusPaid,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
}

func TestExpenseServicePaidIsImmutable(t *testing.T) {
	svc, repo, _ := newExpenseFixture()
	expense := createPendingExpense(t, svc)

	_, err := svc.UpdateStatus(context.Background(), "admin-1", expense.ID, ExpenseStatusRequest{
		Status: models.ExpenseStatusApproved,
	})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), "admin-1", expense.ID, ExpenseStatusRequest{
		Status: models.ExpenseStatusPaid,
	})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), expense.ID, ExpenseRequest{
		Category:    "MAINTENANCE",
		Description: "Adjusted description",
		Amount:      1600,
		ExpenseDate: "2026-02-11",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Status, appErrors.FromError(err).Status)

	err = svc.Delete(context.Background(), expense.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Status, appErrors.FromError(err).Status)
	assert.Empty(t, repo.deleted)
}

func TestExpenseServiceUnknownStatusRejected(t *testing.T) {
	svc, _, _ := newExpenseFixture()
	expense := createPendingExpense(t, svc)

	_, err := svc.UpdateStatus(context.Background(), "admin-1", expense.ID, ExpenseStatusRequest{
		Status: models.ExpenseStatus("REIMBURSED"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
}

func TestExpenseServiceDeletePending(t *testing.T) {
	svc, repo, _ := newExpenseFixture()
	expense := createPendingExpense(t, svc)

	require.NoError(t, svc.Delete(context.Background(), expense.ID))
	assert.Equal(t, []string{expense.ID}, repo.deleted)
}

func TestExpenseServiceRejectsBadDate(t *testing.T) {
	svc, _, _ := newExpenseFixture()

	_, err := svc.Create(context.Background(), ExpenseRequest{
		Category:    "MAINTENANCE",
		Description: "Roof repairs",
		Amount:      1500,
		ExpenseDate: "10/02/2026",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
}
