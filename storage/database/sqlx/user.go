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
	"github.com/educonnect/backend/core/user"
)

type userRow struct {
	ID                 string    `db:"id"`
	Name               string    `db:"name"`
	Role               string    `db:"role"`
	Email              string    `db:"email"`
	RegistrationNumber string    `db:"registration_number"`
	IsActive           bool      `db:"is_active"`
	PasswordHash       []byte    `db:"password_hash"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
	LastLogin          null.Time `db:"last_login"`
}

func (row userRow) toUser() user.User {
	usr := user.User{
		ID:                 row.ID,
		Name:               row.Name,
		Role:               user.Role(row.Role),
		Email:              row.Email,
		RegistrationNumber: row.RegistrationNumber,
		IsActive:           row.IsActive,
		PasswordHash:       row.PasswordHash,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
	if row.LastLogin.Valid {
		usr.LastLogin = row.LastLogin.Time
	}
	return usr
}

const userColumns = `id, name, role, email, registration_number, is_active, password_hash, created_at, updated_at, last_login`

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sql.DB) *userRepository {
	return &userRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *userRepository) CheckIdentifierUniqueness(ctx context.Context, email, regNum string, excludedUsers ...user.User) error {
	exclIDs := make([]string, 0, len(excludedUsers))
	for _, usr := range excludedUsers {
		exclIDs = append(exclIDs, usr.ID)
	}

	check := func(column, value string, existsErr error) error {
		if value == "" {
			return nil
		}
		q := `SELECT EXISTS (SELECT 1 FROM "user" WHERE ` + column + ` = $1 AND NOT (id = ANY($2)))`
		var exists bool
		if err := repo.db.GetContext(ctx, &exists, q, value, pq.Array(exclIDs)); err != nil {
			return errors.Wrapf(err, "checking %s uniqueness", column)
		}
		if exists {
			return existsErr
		}
		return nil
	}

	if err := check("email", email, user.ErrEmailExists); err != nil {
		return err
	}
	return check("registration_number", regNum, user.ErrRegistrationNumberExists)
}

// uniquenessError maps a unique index violation on "user" to its
// application-level conflict. The pre-flight check cannot catch concurrent
// registrations; the index is the authority.
func uniquenessError(err error) error {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	if !ok || pqErr.Code != "23505" {
		return nil
	}
	switch pqErr.Constraint {
	case "user_email_uniq_idx":
		return core.NewConflictError(user.ErrEmailExists, core.FieldError{Field: "email", Error: user.ErrEmailExists.Error()})
	case "user_registration_number_uniq_idx":
		return core.NewConflictError(user.ErrRegistrationNumberExists, core.FieldError{Field: "registration_number", Error: user.ErrRegistrationNumberExists.Error()})
	default:
		return core.NewConflictError(user.ErrUserExists)
	}
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `
		INSERT INTO "user" (name, role, email, registration_number, is_active, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	err := repo.db.GetContext(ctx, &usr.ID, q,
		usr.Name, usr.Role.String(), usr.Email, usr.RegistrationNumber, usr.IsActive, usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt)
	if err != nil {
		if cErr := uniquenessError(err); cErr != nil {
			return user.User{}, cErr
		}
		return user.User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var where string
	var arg interface{}
	switch {
	case filter.ID != "":
		where, arg = "id = $1", filter.ID
	case filter.Email != "":
		where, arg = "email = $1", filter.Email
	case filter.RegistrationNumber != "":
		where, arg = "registration_number = $1", filter.RegistrationNumber
	case filter.Identifier != "":
		if user.IsEmailIdentifier(filter.Identifier) {
			where = "email = $1"
		} else {
			where = "registration_number = $1"
		}
		arg = filter.Identifier
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	q := `SELECT ` + userColumns + ` FROM "user" WHERE ` + where
	if err := repo.db.GetContext(ctx, &row, q, arg); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			p := arg("%" + filter.Search + "%")
			conds = append(conds, fmt.Sprintf("(name ILIKE %[1]s OR email ILIKE %[1]s OR registration_number ILIKE %[1]s)", p))
		}
		if filter.Role != "" {
			conds = append(conds, "role = "+arg(filter.Role.String()))
		}
		if filter.IsActive != nil {
			conds = append(conds, "is_active = "+arg(*filter.IsActive))
		}
		if !filter.CreatedFrom.IsZero() {
			conds = append(conds, "created_at >= "+arg(filter.CreatedFrom))
		}
		if !filter.CreatedTo.IsZero() {
			conds = append(conds, "created_at <= "+arg(filter.CreatedTo))
		}
	}

	q := `SELECT ` + userColumns + ` FROM "user"`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += orderBy(ordering, "created_at DESC")

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}

	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toUser())
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	var sets []string
	var args []interface{}
	set := func(column string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if usr.Name != "" {
		set("name", usr.Name)
	}
	if usr.Email != "" {
		set("email", usr.Email)
	}
	if usr.RegistrationNumber != "" {
		set("registration_number", usr.RegistrationNumber)
	}
	if usr.PasswordHash != nil {
		set("password_hash", usr.PasswordHash)
	}
	if !usr.LastLogin.IsZero() {
		set("last_login", usr.LastLogin)
	}
	if !usr.UpdatedAt.IsZero() {
		set("updated_at", usr.UpdatedAt)
	}
	if isActive != nil {
		set("is_active", *isActive)
	}
	if len(sets) == 0 {
		return repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
	}

	args = append(args, usr.ID)
	q := fmt.Sprintf(`UPDATE "user" SET %s WHERE id = $%d RETURNING %s`, strings.Join(sets, ", "), len(args), userColumns)

	var row userRow
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		if cErr := uniquenessError(err); cErr != nil {
			return user.User{}, cErr
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM "user" WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	return int(n), nil
}
