package inmemdb

import (
	"context"
	"sort"

	"github.com/educonnect/backend/core"
	"github.com/educonnect/backend/core/assignment"
)

type assignmentRepository struct {
	db    *assignmentTable
	subDB *submissionTable
}

var _ assignment.Repository = (*assignmentRepository)(nil)

func NewAssignmentRepository(db *DB) *assignmentRepository {
	return &assignmentRepository{db: db.assignment, subDB: db.submission}
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	asg.ID = newPK()
	repo.db.table[asg.ID] = &asg
	return asg, nil
}

func (repo *assignmentRepository) GetAssignmentByID(ctx context.Context, id string) (assignment.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if asg, ok := repo.db.table[id]; ok {
		return *asg, nil
	}
	return assignment.Assignment{}, assignment.ErrNotFound
}

func (repo *assignmentRepository) QueryAssignments(ctx context.Context, filter *assignment.QueryFilter, ordering []core.DBOrdering) ([]assignment.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	asgs := make([]assignment.Assignment, 0, len(repo.db.table))
	for _, asg := range repo.db.table {
		if filter != nil {
			if filter.ClassID != "" && asg.ClassID != filter.ClassID {
				continue
			}
			if filter.TeacherID != "" && asg.TeacherID != filter.TeacherID {
				continue
			}
		}
		asgs = append(asgs, *asg)
	}
	sort.Slice(asgs, func(i, j int) bool { return asgs[i].CreatedAt.After(asgs[j].CreatedAt) })
	return asgs, nil
}

func (repo *assignmentRepository) UpdateAssignment(ctx context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[asg.ID]
	if !ok {
		return assignment.Assignment{}, assignment.ErrNotFound
	}

	if asg.Title != "" {
		orig.Title = asg.Title
	}
	if asg.Description != "" {
		orig.Description = asg.Description
	}
	if asg.DueDate.Valid {
		orig.DueDate = asg.DueDate
	}
	if asg.FileURL != "" {
		orig.FileURL = asg.FileURL
	}
	if asg.MaxGrade.Valid {
		orig.MaxGrade = asg.MaxGrade
	}
	if !asg.UpdatedAt.IsZero() {
		orig.UpdatedAt = asg.UpdatedAt
	}
	return *orig, nil
}

func (repo *assignmentRepository) DeleteAssignmentsByID(ctx context.Context, ids ...string) (int, error) {
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

func (repo *assignmentRepository) CreateSubmission(ctx context.Context, sub assignment.Submission) (assignment.Submission, error) {
	repo.subDB.mutex.Lock()
	defer repo.subDB.mutex.Unlock()

	sub.ID = newPK()
	repo.subDB.table[sub.ID] = &sub
	return sub, nil
}

func (repo *assignmentRepository) GetSubmissionByID(ctx context.Context, id string) (assignment.Submission, error) {
	repo.subDB.mutex.RLock()
	defer repo.subDB.mutex.RUnlock()

	if sub, ok := repo.subDB.table[id]; ok {
		return *sub, nil
	}
	return assignment.Submission{}, assignment.ErrSubmissionNotFound
}

func (repo *assignmentRepository) GetSubmission(ctx context.Context, assignmentID, studentID string) (assignment.Submission, error) {
	repo.subDB.mutex.RLock()
	defer repo.subDB.mutex.RUnlock()

	for _, sub := range repo.subDB.table {
		if sub.AssignmentID == assignmentID && sub.StudentID == studentID {
			return *sub, nil
		}
	}
	return assignment.Submission{}, assignment.ErrSubmissionNotFound
}

func (repo *assignmentRepository) QuerySubmissions(ctx context.Context, filter *assignment.SubmissionFilter, ordering []core.DBOrdering) ([]assignment.Submission, error) {
	repo.subDB.mutex.RLock()
	defer repo.subDB.mutex.RUnlock()

	subs := make([]assignment.Submission, 0, len(repo.subDB.table))
	for _, sub := range repo.subDB.table {
		if filter != nil {
			if filter.AssignmentID != "" && sub.AssignmentID != filter.AssignmentID {
				continue
			}
			if filter.StudentID != "" && sub.StudentID != filter.StudentID {
				continue
			}
			if filter.Graded != nil && sub.IsGraded() != *filter.Graded {
				continue
			}
		}
		subs = append(subs, *sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].CreatedAt.After(subs[j].CreatedAt) })
	return subs, nil
}

func (repo *assignmentRepository) UpdateSubmission(ctx context.Context, sub assignment.Submission) (assignment.Submission, error) {
	repo.subDB.mutex.Lock()
	defer repo.subDB.mutex.Unlock()

	orig, ok := repo.subDB.table[sub.ID]
	if !ok {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}

	orig.Content = sub.Content
	orig.FileURL = sub.FileURL
	orig.Grade = sub.Grade
	orig.GradedBy = sub.GradedBy
	if !sub.UpdatedAt.IsZero() {
		orig.UpdatedAt = sub.UpdatedAt
	}
	return *orig, nil
}
