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

	"github.com/educonnect/backend/core"
	"github.com/educonnect/backend/core/class"
)

type classRow struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Description string         `db:"description"`
	TeacherID   string         `db:"teacher_id"`
	StudentIDs  pq.StringArray `db:"student_ids"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (row classRow) toClass() class.Class {
	return class.Class{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		TeacherID:   row.TeacherID,
		StudentIDs:  row.StudentIDs,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

// classQuery aggregates the roster into a text[] so a Class always loads in one round trip.
const classQuery = `
	SELECT c.id, c.name, c.description, c.teacher_id,
	       COALESCE(array_agg(cs.student_id::text) FILTER (WHERE cs.student_id IS NOT NULL), '{}') AS student_ids,
	       c.created_at, c.updated_at
	FROM class c
	LEFT JOIN class_student cs ON cs.class_id = c.id`

type classRepository struct {
	db *sqlx.DB
}

var _ class.Repository = (*classRepository)(nil)

func NewClassRepository(db *sql.DB) *classRepository {
	return &classRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *classRepository) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	q := `
		INSERT INTO class (name, description, teacher_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err := repo.db.GetContext(ctx, &cls.ID, q, cls.Name, cls.Description, cls.TeacherID, cls.CreatedAt, cls.UpdatedAt)
	if err != nil {
		return class.Class{}, errors.Wrap(err, "creating class")
	}
	return cls, nil
}

func (repo *classRepository) GetClassByID(ctx context.Context, id string) (class.Class, error) {
	var row classRow
	q := classQuery + ` WHERE c.id = $1 GROUP BY c.id`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return class.Class{}, class.ErrNotFound
		}
		return class.Class{}, errors.Wrap(err, "getting class")
	}
	return row.toClass(), nil
}

func (repo *classRepository) QueryClasses(ctx context.Context, filter *class.QueryFilter, ordering []core.DBOrdering) ([]class.Class, error) {
	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			p := arg("%" + filter.Search + "%")
			conds = append(conds, fmt.Sprintf("(c.name ILIKE %[1]s OR c.description ILIKE %[1]s)", p))
		}
		if filter.TeacherID != "" {
			conds = append(conds, "c.teacher_id = "+arg(filter.TeacherID))
		}
		if filter.StudentID != "" {
			conds = append(conds, "EXISTS (SELECT 1 FROM class_student e WHERE e.class_id = c.id AND e.student_id = "+arg(filter.StudentID)+")")
		}
	}

	q := classQuery
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " GROUP BY c.id" + orderBy(ordering, "c.created_at DESC")

	var rows []classRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}

	classes := make([]class.Class, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, row.toClass())
	}
	return classes, nil
}

func (repo *classRepository) UpdateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	q := `UPDATE class SET name = $1, description = $2, updated_at = $3 WHERE id = $4`
	res, err := repo.db.ExecContext(ctx, q, cls.Name, cls.Description, cls.UpdatedAt, cls.ID)
	if err != nil {
		return class.Class{}, errors.Wrap(err, "updating class")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return class.Class{}, class.ErrNotFound
	}
	return repo.GetClassByID(ctx, cls.ID)
}

func (repo *classRepository) DeleteClassesByID(ctx context.Context, ids ...string) (int, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM class WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting classes")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting classes")
	}
	return int(n), nil
}

func (repo *classRepository) AddStudent(ctx context.Context, classID, studentID string) error {
	q := `INSERT INTO class_student (class_id, student_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := repo.db.ExecContext(ctx, q, classID, studentID); err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return nil
}

func (repo *classRepository) RemoveStudent(ctx context.Context, classID, studentID string) error {
	q := `DELETE FROM class_student WHERE class_id = $1 AND student_id = $2`
	if _, err := repo.db.ExecContext(ctx, q, classID, studentID); err != nil {
		return errors.Wrap(err, "unenrolling student")
	}
	return nil
}
