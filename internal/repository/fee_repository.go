package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edupanel/campus-api/internal/models"
)

// FeeRepository manages persistence for fees and payments.
type FeeRepository struct {
	db *sqlx.DB
}

// NewFeeRepository constructs a new fee repository.
func NewFeeRepository(db *sqlx.DB) *FeeRepository {
	return &FeeRepository{db: db}
}

// ListFees returns every fee ordered by due date.
func (r *FeeRepository) ListFees(ctx context.Context) ([]models.Fee, error) {
	const query = `SELECT id, type, amount, due_date, created_at, updated_at FROM fees ORDER BY due_date ASC`
	var fees []models.Fee
	if err := r.db.SelectContext(ctx, &fees, query); err != nil {
		return nil, fmt.Errorf("list fees: %w", err)
	}
	return fees, nil
}

// FindFeeByID returns a fee record by ID.
func (r *FeeRepository) FindFeeByID(ctx context.Context, id string) (*models.Fee, error) {
	const query = `SELECT id, type, amount, due_date, created_at, updated_at FROM fees WHERE id = $1`
	var fee models.Fee
	if err := r.db.GetContext(ctx, &fee, query, id); err != nil {
		return nil, err
	}
	return &fee, nil
}

// CreateFee persists a fee record.
func (r *FeeRepository) CreateFee(ctx context.Context, fee *models.Fee) error {
	if fee.ID == "" {
		fee.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if fee.CreatedAt.IsZero() {
		fee.CreatedAt = now
	}
	fee.UpdatedAt = now

	const query = `INSERT INTO fees (id, type, amount, due_date, created_at, updated_at) VALUES (:id, :type, :amount, :due_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, fee); err != nil {
		return fmt.Errorf("create fee: %w", err)
	}
	return nil
}

// UpdateFee modifies a fee record.
func (r *FeeRepository) UpdateFee(ctx context.Context, fee *models.Fee) error {
	fee.UpdatedAt = time.Now().UTC()
	const query = `UPDATE fees SET type = :type, amount = :amount, due_date = :due_date, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, fee); err != nil {
		return fmt.Errorf("update fee: %w", err)
	}
	return nil
}

// DeleteFee removes a fee record.
func (r *FeeRepository) DeleteFee(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM fees WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete fee: %w", err)
	}
	return nil
}

// CountPayments returns how many payments reference a fee.
func (r *FeeRepository) CountPayments(ctx context.Context, feeID string) (int, error) {
	const query = `SELECT COUNT(*) FROM fee_payments WHERE fee_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, feeID); err != nil {
		return 0, fmt.Errorf("count fee payments: %w", err)
	}
	return count, nil
}

// ListPayments returns payments with fee and student metadata.
func (r *FeeRepository) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.FeePaymentDetail, int, error) {
	base := `FROM fee_payments p JOIN fees f ON f.id = p.fee_id JOIN users u ON u.id = p.student_id WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.FeeID != "" {
		conditions = append(conditions, fmt.Sprintf("p.fee_id = $%d", len(args)+1))
		args = append(args, filter.FeeID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("p.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("p.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT p.id, p.fee_id, p.student_id, p.amount_paid, p.status, p.paid_at, p.created_at, p.updated_at,
		f.type AS fee_type, f.amount AS fee_amount, u.full_name AS student_name %s ORDER BY p.created_at DESC LIMIT %d OFFSET %d`, base, size, offset)
	var payments []models.FeePaymentDetail
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}
	return payments, total, nil
}

// FindPaymentByID returns a payment with metadata.
func (r *FeeRepository) FindPaymentByID(ctx context.Context, id string) (*models.FeePaymentDetail, error) {
	const query = `SELECT p.id, p.fee_id, p.student_id, p.amount_paid, p.status, p.paid_at, p.created_at, p.updated_at,
		f.type AS fee_type, f.amount AS fee_amount, u.full_name AS student_name
		FROM fee_payments p JOIN fees f ON f.id = p.fee_id JOIN users u ON u.id = p.student_id WHERE p.id = $1`
	var payment models.FeePaymentDetail
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		return nil, err
	}
	return &payment, nil
}

// PaymentExists checks for an existing payment on the (fee, student) pair.
func (r *FeeRepository) PaymentExists(ctx context.Context, feeID, studentID string) (bool, error) {
	const query = `SELECT 1 FROM fee_payments WHERE fee_id = $1 AND student_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, feeID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check payment exists: %w", err)
	}
	return true, nil
}

// CreatePayment persists a payment. A duplicate (fee, student) pair
// resolves to ErrDuplicate at the unique constraint.
func (r *FeeRepository) CreatePayment(ctx context.Context, payment *models.FeePayment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	payment.UpdatedAt = now

	const query = `INSERT INTO fee_payments (id, fee_id, student_id, amount_paid, status, paid_at, created_at, updated_at) VALUES (:id, :fee_id, :student_id, :amount_paid, :status, :paid_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		if translated := translateError(err); translated == ErrDuplicate {
			return ErrDuplicate
		}
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// UpdatePaymentStatus changes a payment's status.
func (r *FeeRepository) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus, paidAt *time.Time) error {
	const query = `UPDATE fee_payments SET status = $2, paid_at = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, paidAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	return nil
}

// DeletePayment removes a payment record.
func (r *FeeRepository) DeletePayment(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM fee_payments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	return nil
}

// SumPayments returns collected and outstanding totals.
func (r *FeeRepository) SumPayments(ctx context.Context) (collected float64, outstanding float64, err error) {
	const query = `SELECT
		COALESCE(SUM(amount_paid) FILTER (WHERE status = 'PAID'), 0) AS collected,
		COALESCE(SUM(amount_paid) FILTER (WHERE status = 'PENDING' OR status = 'OVERDUE'), 0) AS outstanding
		FROM fee_payments`
	row := r.db.QueryRowxContext(ctx, query)
	if err := row.Scan(&collected, &outstanding); err != nil {
		return 0, 0, fmt.Errorf("sum payments: %w", err)
	}
	return collected, outstanding, nil
}
