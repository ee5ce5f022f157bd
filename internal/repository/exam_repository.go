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

// ExamRepository manages persistence for exams and results.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository constructs a new exam repository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

// List returns exams matching filter criteria.
func (r *ExamRepository) List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, int, error) {
	base := "FROM exams WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
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

	query := fmt.Sprintf("SELECT id, title, class_id, subject_id, date, max_marks, created_at, updated_at %s ORDER BY date DESC LIMIT %d OFFSET %d", base, size, offset)
	var exams []models.Exam
	if err := r.db.SelectContext(ctx, &exams, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list exams: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count exams: %w", err)
	}
	return exams, total, nil
}

// FindByID returns an exam record by ID.
func (r *ExamRepository) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	const query = `SELECT id, title, class_id, subject_id, date, max_marks, created_at, updated_at FROM exams WHERE id = $1`
	var exam models.Exam
	if err := r.db.GetContext(ctx, &exam, query, id); err != nil {
		return nil, err
	}
	return &exam, nil
}

// Create persists an exam record.
func (r *ExamRepository) Create(ctx context.Context, exam *models.Exam) error {
	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if exam.CreatedAt.IsZero() {
		exam.CreatedAt = now
	}
	exam.UpdatedAt = now

	const query = `INSERT INTO exams (id, title, class_id, subject_id, date, max_marks, created_at, updated_at) VALUES (:id, :title, :class_id, :subject_id, :date, :max_marks, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, exam); err != nil {
		return fmt.Errorf("create exam: %w", err)
	}
	return nil
}

// Update modifies an exam record.
func (r *ExamRepository) Update(ctx context.Context, exam *models.Exam) error {
	exam.UpdatedAt = time.Now().UTC()
	const query = `UPDATE exams SET title = :title, class_id = :class_id, subject_id = :subject_id, date = :date, max_marks = :max_marks, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, exam); err != nil {
		return fmt.Errorf("update exam: %w", err)
	}
	return nil
}

// Delete removes an exam record.
func (r *ExamRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM exams WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	return nil
}

// CountResults returns how many results are recorded for an exam.
func (r *ExamRepository) CountResults(ctx context.Context, examID string) (int, error) {
	const query = `SELECT COUNT(*) FROM exam_results WHERE exam_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, examID); err != nil {
		return 0, fmt.Errorf("count exam results: %w", err)
	}
	return count, nil
}

// ListResults returns the results of an exam.
func (r *ExamRepository) ListResults(ctx context.Context, examID string) ([]models.ExamResult, error) {
	const query = `SELECT id, exam_id, student_id, marks, grade, created_at FROM exam_results WHERE exam_id = $1 ORDER BY marks DESC`
	var results []models.ExamResult
	if err := r.db.SelectContext(ctx, &results, query, examID); err != nil {
		return nil, fmt.Errorf("list exam results: %w", err)
	}
	return results, nil
}

// CreateResult persists an exam result. A duplicate (exam, student)
// pair resolves to ErrDuplicate at the unique constraint.
func (r *ExamRepository) CreateResult(ctx context.Context, result *models.ExamResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO exam_results (id, exam_id, student_id, marks, grade, created_at) VALUES (:id, :exam_id, :student_id, :marks, :grade, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, result); err != nil {
		if translated := translateError(err); translated == ErrDuplicate {
			return ErrDuplicate
		}
		return fmt.Errorf("create exam result: %w", err)
	}
	return nil
}
