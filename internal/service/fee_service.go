package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edupanel/campus-api/internal/models"
	"github.com/edupanel/campus-api/internal/repository"
	appErrors "github.com/edupanel/campus-api/pkg/errors"
	"github.com/edupanel/campus-api/pkg/export"
)

type feeRepository interface {
	ListFees(ctx context.Context) ([]models.Fee, error)
	FindFeeByID(ctx context.Context, id string) (*models.Fee, error)
	CreateFee(ctx context.Context, fee *models.Fee) error
	UpdateFee(ctx context.Context, fee *models.Fee) error
	DeleteFee(ctx context.Context, id string) error
	CountPayments(ctx context.Context, feeID string) (int, error)
	ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.FeePaymentDetail, int, error)
	FindPaymentByID(ctx context.Context, id string) (*models.FeePaymentDetail, error)
	PaymentExists(ctx context.Context, feeID, studentID string) (bool, error)
	CreatePayment(ctx context.Context, payment *models.FeePayment) error
	UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus, paidAt *time.Time) error
	DeletePayment(ctx context.Context, id string) error
}

type feeUserLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type feeSettingsProvider interface {
	Get(ctx context.Context) (*models.SchoolSettings, error)
}

// FeeRequest captures fields for creating or updating fees.
type FeeRequest struct {
	Type    string  `json:"type" validate:"required"`
	Amount  float64 `json:"amount" validate:"required,gt=0"`
	DueDate string  `json:"due_date" validate:"required"`
}

// CreatePaymentRequest records a student's payment against a fee.
type CreatePaymentRequest struct {
	FeeID      string  `json:"fee_id" validate:"required"`
	StudentID  string  `json:"student_id" validate:"required"`
	AmountPaid float64 `json:"amount_paid" validate:"required,gt=0"`
}

// UpdatePaymentStatusRequest moves a payment through its lifecycle.
type UpdatePaymentStatusRequest struct {
	Status models.PaymentStatus `json:"status" validate:"required"`
}

// FeeService handles fee and payment workflows.
type FeeService struct {
	repo      feeRepository
	users     feeUserLookup
	settings  feeSettingsProvider
	pdf       *export.PDFExporter
	cache     summaryInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFeeService creates a new fee service. The cache may be nil.
func NewFeeService(repo feeRepository, users feeUserLookup, settings feeSettingsProvider, pdf *export.PDFExporter, cache summaryInvalidator, validate *validator.Validate, logger *zap.Logger) *FeeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &FeeService{repo: repo, users: users, settings: settings, pdf: pdf, cache: cache, validator: validate, logger: logger}
}

// ListFees returns every fee.
func (s *FeeService) ListFees(ctx context.Context) ([]models.Fee, error) {
	fees, err := s.repo.ListFees(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list fees")
	}
	return fees, nil
}

// GetFee returns a fee by identifier.
func (s *FeeService) GetFee(ctx context.Context, id string) (*models.Fee, error) {
	fee, err := s.repo.FindFeeByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee")
	}
	return fee, nil
}

// CreateFee adds a billable item.
func (s *FeeService) CreateFee(ctx context.Context, req FeeRequest) (*models.Fee, error) {
	fee, err := s.buildFee(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateFee(ctx, fee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create fee")
	}
	return fee, nil
}

// UpdateFee modifies a fee.
func (s *FeeService) UpdateFee(ctx context.Context, id string, req FeeRequest) (*models.Fee, error) {
	updated, err := s.buildFee(req)
	if err != nil {
		return nil, err
	}

	fee, err := s.repo.FindFeeByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee")
	}

	fee.Type = updated.Type
	fee.Amount = updated.Amount
	fee.DueDate = updated.DueDate

	if err := s.repo.UpdateFee(ctx, fee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update fee")
	}
	return fee, nil
}

// DeleteFee removes a fee when no payments reference it.
func (s *FeeService) DeleteFee(ctx context.Context, id string) error {
	fee, err := s.repo.FindFeeByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "fee not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee")
	}

	payments, err := s.repo.CountPayments(ctx, fee.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check fee payments")
	}
	if payments > 0 {
		return appErrors.Clone(appErrors.ErrValidation, "fee has recorded payments")
	}

	if err := s.repo.DeleteFee(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete fee")
	}
	return nil
}

// ListPayments returns paginated payments with fee and student metadata.
func (s *FeeService) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.FeePaymentDetail, *models.Pagination, error) {
	payments, total, err := s.repo.ListPayments(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return payments, pagination, nil
}

// CreatePayment records one payment per fee and student. A duplicate
// submission is rejected and the original row is untouched.
func (s *FeeService) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*models.FeePayment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	fee, err := s.repo.FindFeeByID(ctx, req.FeeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "fee does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee")
	}

	student, err := s.users.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "student does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user is not a student")
	}

	exists, err := s.repo.PaymentExists(ctx, fee.ID, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing payment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "payment already recorded for this fee and student")
	}

	status := models.PaymentStatusPending
	var paidAt *time.Time
	if req.AmountPaid >= fee.Amount {
		status = models.PaymentStatusPaid
		now := time.Now().UTC()
		paidAt = &now
	}

	payment := &models.FeePayment{
		FeeID:      fee.ID,
		StudentID:  student.ID,
		AmountPaid: req.AmountPaid,
		Status:     status,
		PaidAt:     paidAt,
	}

	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "payment already recorded for this fee and student")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}
	invalidateSummary(ctx, s.cache, s.logger)
	return payment, nil
}

// UpdatePaymentStatus moves a payment to a new lifecycle status.
func (s *FeeService) UpdatePaymentStatus(ctx context.Context, id string, req UpdatePaymentStatusRequest) (*models.FeePaymentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment status payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown payment status")
	}

	payment, err := s.repo.FindPaymentByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}

	var paidAt *time.Time
	if req.Status == models.PaymentStatusPaid {
		now := time.Now().UTC()
		paidAt = &now
	}

	if err := s.repo.UpdatePaymentStatus(ctx, payment.ID, req.Status, paidAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update payment status")
	}

	payment.Status = req.Status
	payment.PaidAt = paidAt
	invalidateSummary(ctx, s.cache, s.logger)
	return payment, nil
}

// DeletePayment removes a payment unless it was already settled.
func (s *FeeService) DeletePayment(ctx context.Context, id string) error {
	payment, err := s.repo.FindPaymentByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}

	if payment.Status == models.PaymentStatusPaid {
		return appErrors.Clone(appErrors.ErrValidation, "settled payments cannot be deleted")
	}

	if err := s.repo.DeletePayment(ctx, payment.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete payment")
	}
	invalidateSummary(ctx, s.cache, s.logger)
	return nil
}

// Receipt renders a PDF receipt for a settled payment.
func (s *FeeService) Receipt(ctx context.Context, paymentID string) ([]byte, error) {
	payment, err := s.repo.FindPaymentByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}

	if payment.Status != models.PaymentStatusPaid {
		return nil, appErrors.Clone(appErrors.ErrValidation, "receipt available only for settled payments")
	}

	schoolName := "School"
	currency := ""
	if s.settings != nil {
		if cfg, err := s.settings.Get(ctx); err == nil {
			if cfg.SchoolName != "" {
				schoolName = cfg.SchoolName
			}
			currency = cfg.Currency
		} else {
			s.logger.Warn("failed to load settings for receipt", zap.Error(err))
		}
	}

	paidAt := ""
	if payment.PaidAt != nil {
		paidAt = payment.PaidAt.Format("2006-01-02 15:04")
	}

	receipt := export.Receipt{
		SchoolName: schoolName,
		Title:      "Payment Receipt",
		Number:     payment.ID,
		Lines: []export.ReceiptLine{
			{Label: "Student", Value: payment.StudentName},
			{Label: "Fee", Value: payment.FeeType},
			{Label: "Amount", Value: fmt.Sprintf("%s %.2f", currency, payment.AmountPaid)},
			{Label: "Paid At", Value: paidAt},
			{Label: "Status", Value: string(payment.Status)},
		},
		Footer: "This is a system generated receipt.",
	}

	payload, err := s.pdf.RenderReceipt(receipt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return payload, nil
}

func (s *FeeService) buildFee(req FeeRequest) (*models.Fee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee payload")
	}

	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "due_date must be formatted YYYY-MM-DD")
	}

	return &models.Fee{
		Type:    req.Type,
		Amount:  req.Amount,
		DueDate: dueDate,
	}, nil
}
