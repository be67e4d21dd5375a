package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/educonnect/backend/core"
	"github.com/educonnect/backend/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.table))
	for _, u := range repo.db.table {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users
}

func isExcluded(usr user.User, excludedUsers []user.User) bool {
	for _, excl := range excludedUsers {
		if usr.ID == excl.ID {
			return true
		}
	}
	return false
}

// checkUniqueness is the lock-free core of CheckIdentifierUniqueness so
// writers can run it under the write lock they already hold.
func (repo *userRepository) checkUniqueness(email, regNum string, excludedUsers ...user.User) error {
	for _, usr := range repo.query() {
		if isExcluded(usr, excludedUsers) {
			continue
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
		if regNum != "" && usr.RegistrationNumber == regNum {
			return user.ErrRegistrationNumberExists
		}
	}
	return nil
}

// uniquenessConflict mirrors what the SQL store reports when the unique
// index on "user" fires.
func uniquenessConflict(err error) error {
	field := "email"
	if err == user.ErrRegistrationNumberExists {
		field = "registration_number"
	}
	return core.NewConflictError(err, core.FieldError{Field: field, Error: err.Error()})
}

func (repo *userRepository) CheckIdentifierUniqueness(ctx context.Context, email, regNum string, excludedUsers ...user.User) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return repo.checkUniqueness(email, regNum, excludedUsers...)
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if err := repo.checkUniqueness(usr.Email, usr.RegistrationNumber); err != nil {
		return user.User{}, uniquenessConflict(err)
	}

	usr.ID = newPK()
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.table[filter.ID]; ok {
			return *usr, nil
		}
		return user.User{}, user.ErrNotFound
	}

	email, regNum := filter.Email, filter.RegistrationNumber
	if filter.Identifier != "" {
		if user.IsEmailIdentifier(filter.Identifier) {
			email = filter.Identifier
		} else {
			regNum = filter.Identifier
		}
	}
	for _, usr := range repo.db.table {
		if email != "" && usr.Email == email {
			return *usr, nil
		}
		if regNum != "" && usr.RegistrationNumber == regNum {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	users := repo.query()
	if filter == nil || filter.IsEmpty() {
		return users, nil
	}

	matches := make([]user.User, 0, len(users))
	for _, usr := range users {
		if filter.Search != "" && !matchesSearch(usr, filter.Search) {
			continue
		}
		if filter.Role != "" && usr.Role != filter.Role {
			continue
		}
		if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
			continue
		}
		if !filter.CreatedFrom.IsZero() && usr.CreatedAt.Before(filter.CreatedFrom) {
			continue
		}
		if !filter.CreatedTo.IsZero() && usr.CreatedAt.After(filter.CreatedTo) {
			continue
		}
		matches = append(matches, usr)
	}
	return matches, nil
}

func matchesSearch(usr user.User, search string) bool {
	search = strings.ToLower(search)
	return strings.Contains(strings.ToLower(usr.Name), search) ||
		strings.Contains(strings.ToLower(usr.Email), search) ||
		strings.Contains(strings.ToLower(usr.RegistrationNumber), search)
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	if usr.Email != "" || usr.RegistrationNumber != "" {
		if err := repo.checkUniqueness(usr.Email, usr.RegistrationNumber, *orig); err != nil {
			return user.User{}, uniquenessConflict(err)
		}
	}

	if usr.Name != "" {
		orig.Name = usr.Name
	}
	if usr.Email != "" {
		orig.Email = usr.Email
	}
	if usr.RegistrationNumber != "" {
		orig.RegistrationNumber = usr.RegistrationNumber
	}
	if usr.PasswordHash != nil {
		orig.PasswordHash = usr.PasswordHash
	}
	if !usr.LastLogin.IsZero() {
		orig.LastLogin = usr.LastLogin
	}
	if !usr.UpdatedAt.IsZero() {
		orig.UpdatedAt = usr.UpdatedAt
	}
	if isActive != nil {
		orig.IsActive = *isActive
	}
	return *orig, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.table[id]; ok {
			delete(repo.db.table, id)
			n++
		}
	}
	return n, nil
}
