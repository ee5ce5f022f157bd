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

// AttendanceRepository manages persistence for attendance sessions.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs a new attendance repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// List returns attendance sessions matching filter criteria.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceSession, int, error) {
	base := "FROM attendance_sessions WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
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

	query := fmt.Sprintf("SELECT id, class_id, date, taken_by, created_at, updated_at %s ORDER BY date DESC LIMIT %d OFFSET %d", base, size, offset)
	var sessions []models.AttendanceSession
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance sessions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance sessions: %w", err)
	}
	return sessions, total, nil
}

// FindByID returns an attendance session by ID.
func (r *AttendanceRepository) FindByID(ctx context.Context, id string) (*models.AttendanceSession, error) {
	const query = `SELECT id, class_id, date, taken_by, created_at, updated_at FROM attendance_sessions WHERE id = $1`
	var session models.AttendanceSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// FindByClassAndDate returns the session for the unique (class, date) pair.
func (r *AttendanceRepository) FindByClassAndDate(ctx context.Context, classID string, date time.Time) (*models.AttendanceSession, error) {
	const query = `SELECT id, class_id, date, taken_by, created_at, updated_at FROM attendance_sessions WHERE class_id = $1 AND date = $2 LIMIT 1`
	var session models.AttendanceSession
	if err := r.db.GetContext(ctx, &session, query, classID, date); err != nil {
		return nil, err
	}
	return &session, nil
}

// CreateWithRecords inserts the session and all records in one
// transaction. A concurrent duplicate for the same (class, date)
// resolves to ErrDuplicate at the unique constraint.
func (r *AttendanceRepository) CreateWithRecords(ctx context.Context, session *models.AttendanceSession, records []models.AttendanceRecord) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance create: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const sessionQuery = `INSERT INTO attendance_sessions (id, class_id, date, taken_by, created_at, updated_at) VALUES (:id, :class_id, :date, :taken_by, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, sessionQuery, session); err != nil {
		if translated := translateError(err); translated == ErrDuplicate {
			return ErrDuplicate
		}
		return fmt.Errorf("create attendance session: %w", err)
	}

	const recordQuery = `INSERT INTO attendance_records (id, session_id, student_id, status, notes, created_at) VALUES (:id, :session_id, :student_id, :status, :notes, :created_at)`
	for i := range records {
		records[i].SessionID = session.ID
		if records[i].ID == "" {
			records[i].ID = uuid.NewString()
		}
		if records[i].CreatedAt.IsZero() {
			records[i].CreatedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, recordQuery, records[i]); err != nil {
			if translated := translateError(err); translated == ErrDuplicate {
				return ErrDuplicate
			}
			return fmt.Errorf("create attendance record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance create: %w", err)
	}
	return nil
}

// ReplaceRecords swaps the record set of an existing session.
func (r *AttendanceRepository) ReplaceRecords(ctx context.Context, sessionID string, records []models.AttendanceRecord) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance replace: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM attendance_records WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("clear attendance records: %w", err)
	}

	now := time.Now().UTC()
	const recordQuery = `INSERT INTO attendance_records (id, session_id, student_id, status, notes, created_at) VALUES (:id, :session_id, :student_id, :status, :notes, :created_at)`
	for i := range records {
		records[i].SessionID = sessionID
		if records[i].ID == "" {
			records[i].ID = uuid.NewString()
		}
		if records[i].CreatedAt.IsZero() {
			records[i].CreatedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, recordQuery, records[i]); err != nil {
			return fmt.Errorf("insert attendance record: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE attendance_sessions SET updated_at = $2 WHERE id = $1`, sessionID, now); err != nil {
		return fmt.Errorf("touch attendance session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance replace: %w", err)
	}
	return nil
}

// ListRecords returns the records of a session.
func (r *AttendanceRepository) ListRecords(ctx context.Context, sessionID string) ([]models.AttendanceRecord, error) {
	const query = `SELECT id, session_id, student_id, status, notes, created_at FROM attendance_records WHERE session_id = $1 ORDER BY student_id ASC`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, sessionID); err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	return records, nil
}

// ListExportRows returns flattened rows for a class/date range export.
func (r *AttendanceRepository) ListExportRows(ctx context.Context, classID string, from, to time.Time) ([]models.AttendanceExportRow, error) {
	const query = `SELECT s.date, r.student_id, u.full_name AS student_name, r.status
		FROM attendance_records r
		JOIN attendance_sessions s ON s.id = r.session_id
		JOIN users u ON u.id = r.student_id
		WHERE s.class_id = $1 AND s.date >= $2 AND s.date <= $3
		ORDER BY s.date ASC, u.full_name ASC`
	var rows []models.AttendanceExportRow
	if err := r.db.SelectContext(ctx, &rows, query, classID, from, to); err != nil {
		return nil, fmt.Errorf("list attendance export rows: %w", err)
	}
	return rows, nil
}

// TodayRate returns present/total counts for today's sessions.
func (r *AttendanceRepository) TodayRate(ctx context.Context, day time.Time) (present int, total int, err error) {
	const query = `SELECT
		COUNT(*) FILTER (WHERE r.status = 'PRESENT' OR r.status = 'LATE') AS present,
		COUNT(*) AS total
		FROM attendance_records r JOIN attendance_sessions s ON s.id = r.session_id
		WHERE s.date = $1`
	row := r.db.QueryRowxContext(ctx, query, day)
	if err := row.Scan(&present, &total); err != nil {
		if err == sql.ErrNoRows {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("attendance today rate: %w", err)
	}
	return present, total, nil
}
