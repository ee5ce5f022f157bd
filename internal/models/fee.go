package models

import "time"

// PaymentStatus represents the lifecycle of a fee payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusPaid      PaymentStatus = "PAID"
	PaymentStatusOverdue   PaymentStatus = "OVERDUE"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// Valid returns true when the status is a supported value.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusOverdue, PaymentStatusCancelled:
		return true
	default:
		return false
	}
}

// Fee is a billable item (tuition, transport, lab, ...).
type Fee struct {
	ID        string    `db:"id" json:"id"`
	Type      string    `db:"type" json:"type"`
	Amount    float64   `db:"amount" json:"amount"`
	DueDate   time.Time `db:"due_date" json:"due_date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// FeePayment records one student's payment against a fee. The
// (fee_id, student_id) pair is unique.
type FeePayment struct {
	ID         string        `db:"id" json:"id"`
	FeeID      string        `db:"fee_id" json:"fee_id"`
	StudentID  string        `db:"student_id" json:"student_id"`
	AmountPaid float64       `db:"amount_paid" json:"amount_paid"`
	Status     PaymentStatus `db:"status" json:"status"`
	PaidAt     *time.Time    `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}

// FeePaymentDetail joins a payment with fee and student metadata.
type FeePaymentDetail struct {
	FeePayment
	FeeType     string  `db:"fee_type" json:"fee_type"`
	FeeAmount   float64 `db:"fee_amount" json:"fee_amount"`
	StudentName string  `db:"student_name" json:"student_name"`
}

// PaymentFilter captures filtering criteria for listing payments.
type PaymentFilter struct {
	FeeID     string
	StudentID string
	Status    *PaymentStatus
	Page      int
	PageSize  int
}
