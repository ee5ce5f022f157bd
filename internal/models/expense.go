package models

import "time"

// ExpenseStatus represents the lifecycle of a school expense.
type ExpenseStatus string

const (
	ExpenseStatusPending  ExpenseStatus = "PENDING"
	ExpenseStatusApproved ExpenseStatus = "APPROVED"
	ExpenseStatusPaid     ExpenseStatus = "PAID"
)

// Valid returns true when the status is a supported value.
func (s ExpenseStatus) Valid() bool {
	switch s {
	case ExpenseStatusPending, ExpenseStatusApproved, ExpenseStatusPaid:
		return true
	default:
		return false
	}
}

// Expense is an outgoing school expense. Paid expenses are immutable.
type Expense struct {
	ID          string        `db:"id" json:"id"`
	Category    string        `db:"category" json:"category"`
	Description string        `db:"description" json:"description"`
	Amount      float64       `db:"amount" json:"amount"`
	Status      ExpenseStatus `db:"status" json:"status"`
	ApprovedBy  *string       `db:"approved_by" json:"approved_by,omitempty"`
	ExpenseDate time.Time     `db:"expense_date" json:"expense_date"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// ExpenseFilter captures filtering criteria for listing expenses.
type ExpenseFilter struct {
	Category string
	Status   *ExpenseStatus
	Page     int
	PageSize int
}
