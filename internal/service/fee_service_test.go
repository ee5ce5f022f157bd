package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupanel/campus-api/internal/models"
	appErrors "github.com/edupanel/campus-api/pkg/errors"
)

type mockFeeRepo struct {
	fees            map[string]*models.Fee
	payments        map[string]*models.FeePaymentDetail
	paymentsByPair  map[[2]string]string
	paymentCount    map[string]int
	deletedFees     []string
	deletedPayments []string
}

func newMockFeeRepo() *mockFeeRepo {
	return &mockFeeRepo{
		fees:           map[string]*models.Fee{},
		payments:       map[string]*models.FeePaymentDetail{},
		paymentsByPair: map[[2]string]string{},
		paymentCount:   map[string]int{},
	}
}

func (m *mockFeeRepo) ListFees(ctx context.Context) ([]models.Fee, error) {
	var out []models.Fee
	for _, f := range m.fees {
		out = append(out, *f)
	}
	return out, nil
}

func (m *mockFeeRepo) FindFeeByID(ctx context.Context, id string) (*models.Fee, error) {
	if f, ok := m.fees[id]; ok {
		cp := *f
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockFeeRepo) CreateFee(ctx context.Context, fee *models.Fee) error {
	if fee.ID == "" {
		fee.ID = "generated"
	}
	cp := *fee
	m.fees[fee.ID] = &cp
	return nil
}

func (m *mockFeeRepo) UpdateFee(ctx context.Context, fee *models.Fee) error {
	cp := *fee
	m.fees[fee.ID] = &cp
	return nil
}

func (m *mockFeeRepo) DeleteFee(ctx context.Context, id string) error {
	delete(m.fees, id)
	m.deletedFees = append(m.deletedFees, id)
	return nil
}

func (m *mockFeeRepo) CountPayments(ctx context.Context, feeID string) (int, error) {
	return m.paymentCount[feeID], nil
}

func (m *mockFeeRepo) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.FeePaymentDetail, int, error) {
	var out []models.FeePaymentDetail
	for _, p := range m.payments {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *mockFeeRepo) FindPaymentByID(ctx context.Context, id string) (*models.FeePaymentDetail, error) {
	if p, ok := m.payments[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockFeeRepo) PaymentExists(ctx context.Context, feeID, studentID string) (bool, error) {
	_, ok := m.paymentsByPair[[2]string{feeID, studentID}]
	return ok, nil
}

func (m *mockFeeRepo) CreatePayment(ctx context.Context, payment *models.FeePayment) error {
	if payment.ID == "" {
		payment.ID = "generated"
	}
	m.payments[payment.ID] = &models.FeePaymentDetail{FeePayment: *payment}
	m.paymentsByPair[[2]string{payment.FeeID, payment.StudentID}] = payment.ID
	m.paymentCount[payment.FeeID]++
	return nil
}

func (m *mockFeeRepo) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus, paidAt *time.Time) error {
	if p, ok := m.payments[id]; ok {
		p.Status = status
		p.PaidAt = paidAt
	}
	return nil
}

func (m *mockFeeRepo) DeletePayment(ctx context.Context, id string) error {
	delete(m.payments, id)
	m.deletedPayments = append(m.deletedPayments, id)
	return nil
}

type mockSettingsProvider struct {
	settings *models.SchoolSettings
}

func (m *mockSettingsProvider) Get(ctx context.Context) (*models.SchoolSettings, error) {
	return m.settings, nil
}

func newFeeFixture() (*FeeService, *mockFeeRepo) {
	repo := newMockFeeRepo()
	repo.fees["fee-1"] = &models.Fee{ID: "fee-1", Type: "TUITION", Amount: 500, DueDate: time.Now().Add(720 * time.Hour)}
	users := &mockClassUsers{users: map[string]*models.User{
		"student-1": {ID: "student-1", FullName: "Student One", Role: models.RoleStudent, Active: true},
		"teacher-1": {ID: "teacher-1", Role: models.RoleTeacher, Active: true},
	}}
	settings := &mockSettingsProvider{settings: &models.SchoolSettings{SchoolName: "Hillside High", Currency: "USD"}}
	return NewFeeService(repo, users, settings, nil, nil, nil, nil), repo
}

func TestFeeServiceCreatePaymentFullAmountSettles(t *testing.T) {
	svc, _ := newFeeFixture()

	payment, err := svc.CreatePayment(context.Background(), CreatePaymentRequest{
		FeeID:      "fee-1",
		StudentID:  "student-1",
		AmountPaid: 500,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, payment.Status)
	require.NotNil(t, payment.PaidAt)
}

func TestFeeServiceCreatePaymentPartialStaysPending(t *testing.T) {
	svc, _ := newFeeFixture()

	payment, err := svc.CreatePayment(context.Background(), CreatePaymentRequest{
		FeeID:      "fee-1",
		StudentID:  "student-1",
		AmountPaid: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Nil(t, payment.PaidAt)
}

func TestFeeServiceCreatePaymentDuplicateConflict(t *testing.T) {
	svc, _ := newFeeFixture()

	_, err := svc.CreatePayment(context.Background(), CreatePaymentRequest{
		FeeID:      "fee-1",
		StudentID:  "student-1",
		AmountPaid: 500,
	})
	require.NoError(t, err)

	_, err = svc.CreatePayment(context.Background(), CreatePaymentRequest{
		FeeID:      "fee-1",
		StudentID:  "student-1",
		AmountPaid: 500,
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)
}

func TestFeeServiceCreatePaymentUnknownFee(t *testing.T) {
	svc, _ := newFeeFixture()

	_, err := svc.CreatePayment(context.Background(), CreatePaymentRequest{
		FeeID:      "missing",
		StudentID:  "student-1",
		AmountPaid: 500,
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}

func TestFeeServiceCreatePaymentRejectsNonStudent(t *testing.T) {
	svc, _ := newFeeFixture()

	_, err := svc.CreatePayment(context.Background(), CreatePaymentRequest{
		FeeID:      "fee-1",
		StudentID:  "teacher-1",
		AmountPaid: 500,
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}

func TestFeeServiceDeleteSettledPaymentBlocked(t *testing.T) {
	svc, repo := newFeeFixture()

	payment, err := svc.CreatePayment(context.Background(), CreatePaymentRequest{
		FeeID:      "fee-1",
		StudentID:  "student-1",
		AmountPaid: 500,
	})
	require.NoError(t, err)

	err = svc.DeletePayment(context.Background(), payment.ID)
	require.Error(t, err)
	assert.Empty(t, repo.deletedPayments)
}

func TestFeeServiceDeleteFeeWithPaymentsBlocked(t *testing.T) {
	svc, repo := newFeeFixture()
	repo.paymentCount["fee-1"] = 1

	err := svc.DeleteFee(context.Background(), "fee-1")
	require.Error(t, err)
	assert.Empty(t, repo.deletedFees)
}

func TestFeeServiceReceiptOnlyForSettled(t *testing.T) {
	svc, _ := newFeeFixture()

	pending, err := svc.CreatePayment(context.Background(), CreatePaymentRequest{
		FeeID:      "fee-1",
		StudentID:  "student-1",
		AmountPaid: 100,
	})
	require.NoError(t, err)

	_, err = svc.Receipt(context.Background(), pending.ID)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}

func TestFeeServiceReceiptRendersPDF(t *testing.T) {
	svc, repo := newFeeFixture()

	payment, err := svc.CreatePayment(context.Background(), CreatePaymentRequest{
		FeeID:      "fee-1",
		StudentID:  "student-1",
		AmountPaid: 500,
	})
	require.NoError(t, err)
	repo.payments[payment.ID].FeeType = "TUITION"
	repo.payments[payment.ID].StudentName = "Student One"

	data, err := svc.Receipt(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.True(t, len(data) > 0)
	assert.Equal(t, "%PDF", string(data[:4]))
}
