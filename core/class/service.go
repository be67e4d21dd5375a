package class

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/educonnect/backend/core"
	"github.com/educonnect/backend/core/user"
)

var (
	// errors
	ErrNotFound   = errors.New("class not found")
	ErrNotStudent = errors.New("only students can join a class")
)

type (
	Repository interface {
		CreateClass(ctx context.Context, cls Class) (Class, error)
		GetClassByID(ctx context.Context, id string) (Class, error)
		QueryClasses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Class, error)
		UpdateClass(ctx context.Context, cls Class) (Class, error)
		DeleteClassesByID(ctx context.Context, ids ...string) (int, error)
		AddStudent(ctx context.Context, classID, studentID string) error
		RemoveStudent(ctx context.Context, classID, studentID string) error
	}

	Service interface {
		Create(ctx context.Context, teacherID string, nc NewClass) (Class, error)
		GetByID(ctx context.Context, id string) (Class, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Class, error)
		Update(ctx context.Context, id string, uc UpdateClass) (Class, error)
		Delete(ctx context.Context, ids ...string) error
		Join(ctx context.Context, classID string, student user.User) (Class, error)
		Leave(ctx context.Context, classID string, student user.User) (Class, error)
		Students(ctx context.Context, classID string) ([]user.User, error)
	}

	service struct {
		repo    Repository
		usrRepo user.Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrRepo user.Repository) Service {
	return &service{
		repo:    repo,
		usrRepo: usrRepo,
	}
}

func (svc *service) Create(ctx context.Context, teacherID string, nc NewClass) (Class, error) {
	now := time.Now().UTC()
	cls := Class{
		Name:        nc.Name,
		Description: nc.Description,
		TeacherID:   teacherID,
		StudentIDs:  []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateClass(ctx, cls)
}

func (svc *service) GetByID(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClassByID(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Class, error) {
	return svc.repo.QueryClasses(ctx, filter, ordering)
}

func (svc *service) Update(ctx context.Context, id string, uc UpdateClass) (Class, error) {
	cls := Class{
		ID:          id,
		Name:        uc.Name,
		Description: uc.Description,
		UpdatedAt:   time.Now().UTC(),
	}
	return svc.repo.UpdateClass(ctx, cls)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteClassesByID(ctx, ids...)
	return err
}

// Join enrolls a student; joining a class twice is a no-op.
func (svc *service) Join(ctx context.Context, classID string, student user.User) (Class, error) {
	if !student.IsStudent() {
		return Class{}, ErrNotStudent
	}
	cls, err := svc.repo.GetClassByID(ctx, classID)
	if err != nil {
		return Class{}, err
	}
	if cls.HasStudent(student.ID) {
		return cls, nil
	}
	if err = svc.repo.AddStudent(ctx, classID, student.ID); err != nil {
		return Class{}, errors.Wrap(err, "adding student to class")
	}
	return svc.repo.GetClassByID(ctx, classID)
}

func (svc *service) Leave(ctx context.Context, classID string, student user.User) (Class, error) {
	cls, err := svc.repo.GetClassByID(ctx, classID)
	if err != nil {
		return Class{}, err
	}
	if !cls.HasStudent(student.ID) {
		return cls, nil
	}
	if err = svc.repo.RemoveStudent(ctx, classID, student.ID); err != nil {
		return Class{}, errors.Wrap(err, "removing student from class")
	}
	return svc.repo.GetClassByID(ctx, classID)
}

// Students returns the enrolled roster.
func (svc *service) Students(ctx context.Context, classID string) ([]user.User, error) {
	cls, err := svc.repo.GetClassByID(ctx, classID)
	if err != nil {
		return nil, err
	}
	students := make([]user.User, 0, len(cls.StudentIDs))
	for _, id := range cls.StudentIDs {
		usr, err := svc.usrRepo.GetUser(ctx, user.GetFilter{ID: id})
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				continue
			}
			return nil, errors.Wrap(err, "finding student by ID")
		}
		students = append(students, usr)
	}
	return students, nil
}
