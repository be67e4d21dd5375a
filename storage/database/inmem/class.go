package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/educonnect/backend/core"
	"github.com/educonnect/backend/core/class"
)

type classRepository struct {
	db *classTable
}

var _ class.Repository = (*classRepository)(nil)

func NewClassRepository(db *DB) *classRepository {
	return &classRepository{db: db.class}
}

func copyClass(cls class.Class) class.Class {
	cls.StudentIDs = append([]string(nil), cls.StudentIDs...)
	return cls
}

func (repo *classRepository) query() []class.Class {
	classes := make([]class.Class, 0, len(repo.db.table))
	for _, cls := range repo.db.table {
		classes = append(classes, copyClass(*cls))
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].CreatedAt.After(classes[j].CreatedAt) })
	return classes
}

func (repo *classRepository) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cls.ID = newPK()
	if cls.StudentIDs == nil {
		cls.StudentIDs = []string{}
	}
	stored := copyClass(cls)
	repo.db.table[cls.ID] = &stored
	return cls, nil
}

func (repo *classRepository) GetClassByID(ctx context.Context, id string) (class.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if cls, ok := repo.db.table[id]; ok {
		return copyClass(*cls), nil
	}
	return class.Class{}, class.ErrNotFound
}

func (repo *classRepository) QueryClasses(ctx context.Context, filter *class.QueryFilter, ordering []core.DBOrdering) ([]class.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	classes := repo.query()
	if filter == nil || filter.IsEmpty() {
		return classes, nil
	}

	matches := make([]class.Class, 0, len(classes))
	for _, cls := range classes {
		if filter.Search != "" {
			search := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(cls.Name), search) &&
				!strings.Contains(strings.ToLower(cls.Description), search) {
				continue
			}
		}
		if filter.TeacherID != "" && cls.TeacherID != filter.TeacherID {
			continue
		}
		if filter.StudentID != "" && !cls.HasStudent(filter.StudentID) {
			continue
		}
		matches = append(matches, cls)
	}
	return matches, nil
}

func (repo *classRepository) UpdateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[cls.ID]
	if !ok {
		return class.Class{}, class.ErrNotFound
	}

	if cls.Name != "" {
		orig.Name = cls.Name
	}
	if cls.Description != "" {
		orig.Description = cls.Description
	}
	if !cls.UpdatedAt.IsZero() {
		orig.UpdatedAt = cls.UpdatedAt
	}
	return copyClass(*orig), nil
}

func (repo *classRepository) DeleteClassesByID(ctx context.Context, ids ...string) (int, error) {
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

func (repo *classRepository) AddStudent(ctx context.Context, classID, studentID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cls, ok := repo.db.table[classID]
	if !ok {
		return class.ErrNotFound
	}
	if !cls.HasStudent(studentID) {
		cls.StudentIDs = append(cls.StudentIDs, studentID)
	}
	return nil
}

func (repo *classRepository) RemoveStudent(ctx context.Context, classID, studentID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cls, ok := repo.db.table[classID]
	if !ok {
		return class.ErrNotFound
	}
	for i, id := range cls.StudentIDs {
		if id == studentID {
			cls.StudentIDs = append(cls.StudentIDs[:i], cls.StudentIDs[i+1:]...)
			break
		}
	}
	return nil
}
