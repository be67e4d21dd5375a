package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/educonnect/backend/core"
	"github.com/educonnect/backend/core/assignment"
)

type assignmentRow struct {
	ID          string       `db:"id"`
	ClassID     string       `db:"class_id"`
	TeacherID   string       `db:"teacher_id"`
	Title       string       `db:"title"`
	Description string       `db:"description"`
	DueDate     null.Time    `db:"due_date"`
	FileURL     string       `db:"file_url"`
	MaxGrade    null.Float64 `db:"max_grade"`
	CreatedAt   time.Time    `db:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at"`
}

func (row assignmentRow) toAssignment() assignment.Assignment {
	return assignment.Assignment{
		ID:          row.ID,
		ClassID:     row.ClassID,
		TeacherID:   row.TeacherID,
		Title:       row.Title,
		Description: row.Description,
		DueDate:     row.DueDate,
		FileURL:     row.FileURL,
		MaxGrade:    row.MaxGrade,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

type submissionRow struct {
	ID           string       `db:"id"`
	AssignmentID string       `db:"assignment_id"`
	StudentID    string       `db:"student_id"`
	Content      string       `db:"content"`
	FileURL      string       `db:"file_url"`
	Grade        null.Float64 `db:"grade"`
	GradedBy     null.String  `db:"graded_by"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

func (row submissionRow) toSubmission() assignment.Submission {
	return assignment.Submission{
		ID:           row.ID,
		AssignmentID: row.AssignmentID,
		StudentID:    row.StudentID,
		Content:      row.Content,
		FileURL:      row.FileURL,
		Grade:        row.Grade,
		GradedBy:     row.GradedBy,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

const (
	assignmentColumns = `id, class_id, teacher_id, title, description, due_date, file_url, max_grade, created_at, updated_at`
	submissionColumns = `id, assignment_id, student_id, content, file_url, grade, graded_by, created_at, updated_at`
)

type assignmentRepository struct {
	db *sqlx.DB
}

var _ assignment.Repository = (*assignmentRepository)(nil)

func NewAssignmentRepository(db *sql.DB) *assignmentRepository {
	return &assignmentRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	q := `
		INSERT INTO assignment (class_id, teacher_id, title, description, due_date, file_url, max_grade, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	err := repo.db.GetContext(ctx, &asg.ID, q,
		asg.ClassID, asg.TeacherID, asg.Title, asg.Description, asg.DueDate, asg.FileURL, asg.MaxGrade, asg.CreatedAt, asg.UpdatedAt)
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "creating assignment")
	}
	return asg, nil
}

func (repo *assignmentRepository) GetAssignmentByID(ctx context.Context, id string) (assignment.Assignment, error) {
	var row assignmentRow
	q := `SELECT ` + assignmentColumns + ` FROM assignment WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return assignment.Assignment{}, assignment.ErrNotFound
		}
		return assignment.Assignment{}, errors.Wrap(err, "getting assignment")
	}
	return row.toAssignment(), nil
}

func (repo *assignmentRepository) QueryAssignments(ctx context.Context, filter *assignment.QueryFilter, ordering []core.DBOrdering) ([]assignment.Assignment, error) {
	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.ClassID != "" {
			conds = append(conds, "class_id = "+arg(filter.ClassID))
		}
		if filter.TeacherID != "" {
			conds = append(conds, "teacher_id = "+arg(filter.TeacherID))
		}
	}

	q := `SELECT ` + assignmentColumns + ` FROM assignment`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += orderBy(ordering, "created_at DESC")

	var rows []assignmentRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}

	asgs := make([]assignment.Assignment, 0, len(rows))
	for _, row := range rows {
		asgs = append(asgs, row.toAssignment())
	}
	return asgs, nil
}

func (repo *assignmentRepository) UpdateAssignment(ctx context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	q := `
		UPDATE assignment
		SET title = $1, description = $2, due_date = $3, file_url = $4, max_grade = $5, updated_at = $6
		WHERE id = $7
		RETURNING ` + assignmentColumns
	var row assignmentRow
	err := repo.db.GetContext(ctx, &row, q,
		asg.Title, asg.Description, asg.DueDate, asg.FileURL, asg.MaxGrade, asg.UpdatedAt, asg.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return assignment.Assignment{}, assignment.ErrNotFound
		}
		return assignment.Assignment{}, errors.Wrap(err, "updating assignment")
	}
	return row.toAssignment(), nil
}

func (repo *assignmentRepository) DeleteAssignmentsByID(ctx context.Context, ids ...string) (int, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM assignment WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting assignments")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting assignments")
	}
	return int(n), nil
}

func (repo *assignmentRepository) CreateSubmission(ctx context.Context, sub assignment.Submission) (assignment.Submission, error) {
	q := `
		INSERT INTO submission (assignment_id, student_id, content, file_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := repo.db.GetContext(ctx, &sub.ID, q,
		sub.AssignmentID, sub.StudentID, sub.Content, sub.FileURL, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return assignment.Submission{}, errors.Wrap(err, "creating submission")
	}
	return sub, nil
}

func (repo *assignmentRepository) GetSubmissionByID(ctx context.Context, id string) (assignment.Submission, error) {
	var row submissionRow
	q := `SELECT ` + submissionColumns + ` FROM submission WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return assignment.Submission{}, assignment.ErrSubmissionNotFound
		}
		return assignment.Submission{}, errors.Wrap(err, "getting submission")
	}
	return row.toSubmission(), nil
}

func (repo *assignmentRepository) GetSubmission(ctx context.Context, assignmentID, studentID string) (assignment.Submission, error) {
	var row submissionRow
	q := `SELECT ` + submissionColumns + ` FROM submission WHERE assignment_id = $1 AND student_id = $2`
	if err := repo.db.GetContext(ctx, &row, q, assignmentID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return assignment.Submission{}, assignment.ErrSubmissionNotFound
		}
		return assignment.Submission{}, errors.Wrap(err, "getting submission")
	}
	return row.toSubmission(), nil
}

func (repo *assignmentRepository) QuerySubmissions(ctx context.Context, filter *assignment.SubmissionFilter, ordering []core.DBOrdering) ([]assignment.Submission, error) {
	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.AssignmentID != "" {
			conds = append(conds, "assignment_id = "+arg(filter.AssignmentID))
		}
		if filter.StudentID != "" {
			conds = append(conds, "student_id = "+arg(filter.StudentID))
		}
		if filter.Graded != nil {
			if *filter.Graded {
				conds = append(conds, "grade IS NOT NULL")
			} else {
				conds = append(conds, "grade IS NULL")
			}
		}
	}

	q := `SELECT ` + submissionColumns + ` FROM submission`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += orderBy(ordering, "created_at DESC")

	var rows []submissionRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}

	subs := make([]assignment.Submission, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, row.toSubmission())
	}
	return subs, nil
}

func (repo *assignmentRepository) UpdateSubmission(ctx context.Context, sub assignment.Submission) (assignment.Submission, error) {
	q := `
		UPDATE submission
		SET content = $1, file_url = $2, grade = $3, graded_by = $4, updated_at = $5
		WHERE id = $6
		RETURNING ` + submissionColumns
	var row submissionRow
	err := repo.db.GetContext(ctx, &row, q,
		sub.Content, sub.FileURL, sub.Grade, sub.GradedBy, sub.UpdatedAt, sub.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return assignment.Submission{}, assignment.ErrSubmissionNotFound
		}
		return assignment.Submission{}, errors.Wrap(err, "updating submission")
	}
	return row.toSubmission(), nil
}
