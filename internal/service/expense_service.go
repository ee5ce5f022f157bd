package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edupanel/campus-api/internal/models"
	appErrors "github.com/edupanel/campus-api/pkg/errors"
)

type expenseRepository interface {
	List(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, int, error)
	FindByID(ctx context.Context, id string) (*models.Expense, error)
	Create(ctx context.Context, expense *models.Expense) error
	Update(ctx context.Context, expense *models.Expense) error
	Delete(ctx context.Context, id string) error
}

type expenseAuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ExpenseRequest captures fields for creating or updating expenses.
type ExpenseRequest struct {
	Category    string  `json:"category" validate:"required"`
	Description string  `json:"description" validate:"required"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	ExpenseDate string  `json:"expense_date" validate:"required"`
}

// ExpenseStatusRequest advances an expense through its lifecycle.
type ExpenseStatusRequest struct {
	Status models.ExpenseStatus `json:"status" validate:"required"`
}

// ExpenseService handles expense workflows.
type ExpenseService struct {
	repo      expenseRepository
	audit     expenseAuditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExpenseService creates a new expense service.
func NewExpenseService(repo expenseRepository, audit expenseAuditWriter, validate *validator.Validate, logger *zap.Logger) *ExpenseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpenseService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns paginated expenses.
func (s *ExpenseService) List(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, *models.Pagination, error) {
	expenses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list expenses")
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
	return expenses, pagination, nil
}

// Get returns an expense by identifier.
func (s *ExpenseService) Get(ctx context.Context, id string) (*models.Expense, error) {
	expense, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "expense not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load expense")
	}
	return expense, nil
}

// Create records a new pending expense.
func (s *ExpenseService) Create(ctx context.Context, req ExpenseRequest) (*models.Expense, error) {
	expense, err := s.buildExpense(req)
	if err != nil {
		return nil, err
	}
	expense.Status = models.ExpenseStatusPending

	if err := s.repo.Create(ctx, expense); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create expense")
	}
	return expense, nil
}

// Update modifies an expense that has not been paid out yet.
func (s *ExpenseService) Update(ctx context.Context, id string, req ExpenseRequest) (*models.Expense, error) {
	updated, err := s.buildExpense(req)
	if err != nil {
		return nil, err
	}

	expense, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "expense not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load expense")
	}

	if expense.Status == models.ExpenseStatusPaid {
		return nil, appErrors.Clone(appErrors.ErrConflict, "paid expenses are immutable")
	}

	expense.Category = updated.Category
	expense.Description = updated.Description
	expense.Amount = updated.Amount
	expense.ExpenseDate = updated.ExpenseDate

	if err := s.repo.Update(ctx, expense); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update expense")
	}
	return expense, nil
}

// UpdateStatus advances an expense; approvals record the acting admin.
// The lifecycle only moves forward: PENDING, APPROVED, then PAID.
func (s *ExpenseService) UpdateStatus(ctx context.Context, actorID, id string, req ExpenseStatusRequest) (*models.Expense, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid expense status payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown expense status")
	}

	expense, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "expense not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load expense")
	}

	if expense.Status == models.ExpenseStatusPaid {
		return nil, appErrors.Clone(appErrors.ErrConflict, "paid expenses are immutable")
	}
	if expenseRank(req.Status) <= expenseRank(expense.Status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "expense status can only move forward")
	}
	if req.Status == models.ExpenseStatusPaid && expense.Status != models.ExpenseStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrValidation, "expense must be approved before payout")
	}

	expense.Status = req.Status
	if req.Status == models.ExpenseStatusApproved && actorID != "" {
		expense.ApprovedBy = &actorID
	}

	if err := s.repo.Update(ctx, expense); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update expense status")
	}

	if s.audit != nil {
		values, _ := json.Marshal(map[string]string{"status": string(req.Status)})
		entry := &models.AuditLog{
			Action:     models.AuditActionExpenseApprove,
			Resource:   "expenses",
			ResourceID: &expense.ID,
			NewValues:  values,
		}
		if actorID != "" {
			entry.UserID = &actorID
		}
		if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
			s.logger.Warn("failed to record expense audit log", zap.Error(err))
		}
	}

	return expense, nil
}

// Delete removes an expense that has not been paid out.
func (s *ExpenseService) Delete(ctx context.Context, id string) error {
	expense, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "expense not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load expense")
	}

	if expense.Status == models.ExpenseStatusPaid {
		return appErrors.Clone(appErrors.ErrConflict, "paid expenses cannot be deleted")
	}

	if err := s.repo.Delete(ctx, expense.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete expense")
	}
	return nil
}

func (s *ExpenseService) buildExpense(req ExpenseRequest) (*models.Expense, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid expense payload")
	}

	date, err := time.Parse("2006-01-02", req.ExpenseDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "expense_date must be formatted YYYY-MM-DD")
	}

	return &models.Expense{
		Category:    req.Category,
		Description: req.Description,
		Amount:      req.Amount,
		ExpenseDate: date,
	}, nil
}

func expenseRank(status models.ExpenseStatus) int {
	switch status {
	case models.ExpenseStatusPending:
		return 0
	case models.ExpenseStatusApproved:
		return 1
	case models.ExpenseStatusPaid:
		return 2
	default:
		return -1
	}
}
