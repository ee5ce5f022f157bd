package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edupanel/campus-api/internal/models"
)

// AdmissionRepository manages persistence for admission applications.
type AdmissionRepository struct {
	db *sqlx.DB
}

// NewAdmissionRepository constructs a new admission repository.
func NewAdmissionRepository(db *sqlx.DB) *AdmissionRepository {
	return &AdmissionRepository{db: db}
}

const admissionColumns = `id, application_number, student_name, student_birth_date, desired_grade, parent_name, parent_email, parent_phone, address, status, created_at, updated_at`

// List returns applications matching filter criteria.
func (r *AdmissionRepository) List(ctx context.Context, filter models.AdmissionFilter) ([]models.AdmissionApplication, int, error) {
	base := "FROM admission_applications WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(student_name) LIKE $%d OR LOWER(parent_email) LIKE $%d OR application_number LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", admissionColumns, base, size, offset)
	var applications []models.AdmissionApplication
	if err := r.db.SelectContext(ctx, &applications, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}
	return applications, total, nil
}

// FindByID returns an application by internal ID.
func (r *AdmissionRepository) FindByID(ctx context.Context, id string) (*models.AdmissionApplication, error) {
	query := fmt.Sprintf(`SELECT %s FROM admission_applications WHERE id = $1`, admissionColumns)
	var application models.AdmissionApplication
	if err := r.db.GetContext(ctx, &application, query, id); err != nil {
		return nil, err
	}
	return &application, nil
}

// FindByNumber returns an application by its public number.
func (r *AdmissionRepository) FindByNumber(ctx context.Context, number string) (*models.AdmissionApplication, error) {
	query := fmt.Sprintf(`SELECT %s FROM admission_applications WHERE application_number = $1`, admissionColumns)
	var application models.AdmissionApplication
	if err := r.db.GetContext(ctx, &application, query, number); err != nil {
		return nil, err
	}
	return &application, nil
}

// CreateWithTimeline inserts an application and its first timeline
// entry in one transaction.
func (r *AdmissionRepository) CreateWithTimeline(ctx context.Context, application *models.AdmissionApplication, entry *models.AdmissionTimelineEntry) error {
	if application.ID == "" {
		application.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if application.CreatedAt.IsZero() {
		application.CreatedAt = now
	}
	application.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin admission create: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const appQuery = `INSERT INTO admission_applications (id, application_number, student_name, student_birth_date, desired_grade, parent_name, parent_email, parent_phone, address, status, created_at, updated_at)
		VALUES (:id, :application_number, :student_name, :student_birth_date, :desired_grade, :parent_name, :parent_email, :parent_phone, :address, :status, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, appQuery, application); err != nil {
		if translated := translateError(err); translated == ErrDuplicate {
			return ErrDuplicate
		}
		return fmt.Errorf("create application: %w", err)
	}

	entry.ApplicationID = application.ID
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	const entryQuery = `INSERT INTO admission_timeline (id, application_id, status, note, actor_id, created_at) VALUES (:id, :application_id, :status, :note, :actor_id, :created_at)`
	if _, err := tx.NamedExecContext(ctx, entryQuery, entry); err != nil {
		return fmt.Errorf("create timeline entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit admission create: %w", err)
	}
	return nil
}

// UpdateStatus changes the application status and appends the timeline
// entry atomically. The timeline is append-only.
func (r *AdmissionRepository) UpdateStatus(ctx context.Context, id string, status models.AdmissionStatus, entry *models.AdmissionTimelineEntry) error {
	now := time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin status update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `UPDATE admission_applications SET status = $2, updated_at = $3 WHERE id = $1`, id, status, now); err != nil {
		return fmt.Errorf("update application status: %w", err)
	}

	entry.ApplicationID = id
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	const entryQuery = `INSERT INTO admission_timeline (id, application_id, status, note, actor_id, created_at) VALUES (:id, :application_id, :status, :note, :actor_id, :created_at)`
	if _, err := tx.NamedExecContext(ctx, entryQuery, entry); err != nil {
		return fmt.Errorf("append timeline entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit status update: %w", err)
	}
	return nil
}

// ListTimeline returns every timeline entry for an application.
func (r *AdmissionRepository) ListTimeline(ctx context.Context, applicationID string) ([]models.AdmissionTimelineEntry, error) {
	const query = `SELECT id, application_id, status, note, actor_id, created_at FROM admission_timeline WHERE application_id = $1 ORDER BY created_at ASC`
	var entries []models.AdmissionTimelineEntry
	if err := r.db.SelectContext(ctx, &entries, query, applicationID); err != nil {
		return nil, fmt.Errorf("list timeline: %w", err)
	}
	return entries, nil
}

// CountByStatus returns the number of applications in a status.
func (r *AdmissionRepository) CountByStatus(ctx context.Context, status models.AdmissionStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM admission_applications WHERE status = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, status); err != nil {
		return 0, fmt.Errorf("count applications by status: %w", err)
	}
	return count, nil
}
