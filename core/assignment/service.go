package assignment

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/educonnect/backend/core"
	"github.com/educonnect/backend/core/class"
	"github.com/educonnect/backend/core/user"
)

var (
	// errors
	ErrNotFound           = errors.New("assignment not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrNotClassMember     = errors.New("student is not enrolled in this class")
	ErrGradeOutOfRange    = errors.New("grade is out of range")
)

type (
	Repository interface {
		CreateAssignment(ctx context.Context, asg Assignment) (Assignment, error)
		GetAssignmentByID(ctx context.Context, id string) (Assignment, error)
		QueryAssignments(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Assignment, error)
		UpdateAssignment(ctx context.Context, asg Assignment) (Assignment, error)
		DeleteAssignmentsByID(ctx context.Context, ids ...string) (int, error)

		CreateSubmission(ctx context.Context, sub Submission) (Submission, error)
		GetSubmissionByID(ctx context.Context, id string) (Submission, error)
		// GetSubmission fetches the unique (assignment, student) submission.
		GetSubmission(ctx context.Context, assignmentID, studentID string) (Submission, error)
		QuerySubmissions(ctx context.Context, filter *SubmissionFilter, ordering []core.DBOrdering) ([]Submission, error)
		UpdateSubmission(ctx context.Context, sub Submission) (Submission, error)
	}

	Service interface {
		Create(ctx context.Context, cls class.Class, na NewAssignment) (Assignment, error)
		GetByID(ctx context.Context, id string) (Assignment, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Assignment, error)
		Update(ctx context.Context, id string, ua UpdateAssignment) (Assignment, error)
		Delete(ctx context.Context, ids ...string) error

		Submit(ctx context.Context, assignmentID string, student user.User, ns NewSubmission) (Submission, error)
		GetSubmissionByID(ctx context.Context, id string) (Submission, error)
		QuerySubmissions(ctx context.Context, filter *SubmissionFilter, ordering []core.DBOrdering) ([]Submission, error)
		Grade(ctx context.Context, submissionID, graderID string, gs GradeSubmission) (Submission, error)
		StudentPerformance(ctx context.Context, studentID string) (Performance, error)
	}

	service struct {
		repo    Repository
		clsRepo class.Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, clsRepo class.Repository) Service {
	return &service{
		repo:    repo,
		clsRepo: clsRepo,
	}
}

func (svc *service) Create(ctx context.Context, cls class.Class, na NewAssignment) (Assignment, error) {
	now := time.Now().UTC()
	asg := Assignment{
		ClassID:     cls.ID,
		TeacherID:   cls.TeacherID,
		Title:       na.Title,
		Description: na.Description,
		DueDate:     na.DueDate,
		FileURL:     na.FileURL,
		MaxGrade:    na.MaxGrade,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateAssignment(ctx, asg)
}

func (svc *service) GetByID(ctx context.Context, id string) (Assignment, error) {
	return svc.repo.GetAssignmentByID(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Assignment, error) {
	return svc.repo.QueryAssignments(ctx, filter, ordering)
}

func (svc *service) Update(ctx context.Context, id string, ua UpdateAssignment) (Assignment, error) {
	asg := Assignment{
		ID:          id,
		Title:       ua.Title,
		Description: ua.Description,
		DueDate:     ua.DueDate,
		FileURL:     ua.FileURL,
		MaxGrade:    ua.MaxGrade,
		UpdatedAt:   time.Now().UTC(),
	}
	return svc.repo.UpdateAssignment(ctx, asg)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteAssignmentsByID(ctx, ids...)
	return err
}

// Submit records a student's work. The student must be enrolled in the
// assignment's class. Resubmission replaces the previous work and clears
// any grade.
func (svc *service) Submit(ctx context.Context, assignmentID string, student user.User, ns NewSubmission) (Submission, error) {
	asg, err := svc.repo.GetAssignmentByID(ctx, assignmentID)
	if err != nil {
		return Submission{}, err
	}

	cls, err := svc.clsRepo.GetClassByID(ctx, asg.ClassID)
	if err != nil {
		return Submission{}, errors.Wrap(err, "finding assignment class")
	}
	if !cls.HasStudent(student.ID) {
		return Submission{}, ErrNotClassMember
	}

	now := time.Now().UTC()
	sub, err := svc.repo.GetSubmission(ctx, asg.ID, student.ID)
	switch errors.Cause(err) {
	case nil:
		sub.Content = ns.Content
		sub.FileURL = ns.FileURL
		sub.Grade = null.Float64{}
		sub.GradedBy = null.String{}
		sub.UpdatedAt = now
		return svc.repo.UpdateSubmission(ctx, sub)
	case ErrSubmissionNotFound:
		sub = Submission{
			AssignmentID: asg.ID,
			StudentID:    student.ID,
			Content:      ns.Content,
			FileURL:      ns.FileURL,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return svc.repo.CreateSubmission(ctx, sub)
	default:
		return Submission{}, errors.Wrap(err, "finding existing submission")
	}
}

func (svc *service) GetSubmissionByID(ctx context.Context, id string) (Submission, error) {
	return svc.repo.GetSubmissionByID(ctx, id)
}

func (svc *service) QuerySubmissions(ctx context.Context, filter *SubmissionFilter, ordering []core.DBOrdering) ([]Submission, error) {
	return svc.repo.QuerySubmissions(ctx, filter, ordering)
}

// Grade records a grade on a submission; bounds are 0..MaxGrade (100 when
// the assignment does not set one).
func (svc *service) Grade(ctx context.Context, submissionID, graderID string, gs GradeSubmission) (Submission, error) {
	sub, err := svc.repo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return Submission{}, err
	}
	asg, err := svc.repo.GetAssignmentByID(ctx, sub.AssignmentID)
	if err != nil {
		return Submission{}, errors.Wrap(err, "finding submission assignment")
	}

	maxGrade := float64(100)
	if asg.MaxGrade.Valid {
		maxGrade = asg.MaxGrade.Float64
	}
	if gs.Grade.Float64 < 0 || gs.Grade.Float64 > maxGrade {
		return Submission{}, core.NewValidationError(ErrGradeOutOfRange,
			core.FieldError{Field: "grade", Error: ErrGradeOutOfRange.Error()})
	}

	sub.Grade = gs.Grade
	sub.GradedBy = null.StringFrom(graderID)
	sub.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSubmission(ctx, sub)
}

// StudentPerformance aggregates grading metrics over a student's submissions.
func (svc *service) StudentPerformance(ctx context.Context, studentID string) (Performance, error) {
	subs, err := svc.repo.QuerySubmissions(ctx, &SubmissionFilter{StudentID: studentID}, nil)
	if err != nil {
		return Performance{}, err
	}

	perf := Performance{TotalSubmissions: len(subs)}
	var sum float64
	for _, sub := range subs {
		if sub.IsGraded() {
			perf.GradedSubmissions++
			sum += sub.Grade.Float64
		} else {
			perf.PendingGrading++
		}
	}
	if perf.GradedSubmissions > 0 {
		perf.AverageGrade = math.Round(sum/float64(perf.GradedSubmissions)*100) / 100
	}
	return perf, nil
}
