package assignment

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/educonnect/backend/core"
)

type Assignment struct {
	ID          string       `json:"id"`
	ClassID     string       `json:"class_id"`
	TeacherID   string       `json:"teacher_id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	DueDate     null.Time    `json:"due_date,omitempty"`
	FileURL     string       `json:"file_url,omitempty"`
	MaxGrade    null.Float64 `json:"max_grade,omitempty"`
	CreatedAt   time.Time    `json:"created_at"` // UTC
	UpdatedAt   time.Time    `json:"updated_at"` // UTC
}

type Submission struct {
	ID           string       `json:"id"`
	AssignmentID string       `json:"assignment_id"`
	StudentID    string       `json:"student_id"`
	Content      string       `json:"content,omitempty"`
	FileURL      string       `json:"file_url,omitempty"`
	Grade        null.Float64 `json:"grade,omitempty"`
	GradedBy     null.String  `json:"graded_by,omitempty"`
	CreatedAt    time.Time    `json:"created_at"` // UTC
	UpdatedAt    time.Time    `json:"updated_at"` // UTC
}

func (s Submission) IsGraded() bool { return s.Grade.Valid }

// NewAssignment contains information needed to create a new Assignment.
type NewAssignment struct {
	Title       string       `json:"title" validate:"required"`
	Description string       `json:"description"`
	DueDate     null.Time    `json:"due_date"`
	FileURL     string       `json:"file_url" validate:"omitempty,url"`
	MaxGrade    null.Float64 `json:"max_grade"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	return validate.Struct(na)
}

// UpdateAssignment defines what information may be provided to modify an existing Assignment.
type UpdateAssignment struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	DueDate     null.Time    `json:"due_date"`
	FileURL     string       `json:"file_url" validate:"omitempty,url"`
	MaxGrade    null.Float64 `json:"max_grade"`
}

func (ua *UpdateAssignment) Validate(origAsg Assignment, validate *validator.Validate) error {
	title := core.CleanString(ua.Title)
	if title != "" {
		ua.Title = title
	} else {
		ua.Title = origAsg.Title
	}

	desc := core.CleanString(ua.Description)
	if desc != "" {
		ua.Description = desc
	} else {
		ua.Description = origAsg.Description
	}

	if !ua.DueDate.Valid {
		ua.DueDate = origAsg.DueDate
	}
	if ua.FileURL == "" {
		ua.FileURL = origAsg.FileURL
	}
	if !ua.MaxGrade.Valid {
		ua.MaxGrade = origAsg.MaxGrade
	}
	return validate.Struct(ua)
}

// NewSubmission contains a student's work; at least one of content or file URL.
type NewSubmission struct {
	Content string `json:"content" validate:"required_without=FileURL"`
	FileURL string `json:"file_url" validate:"omitempty,url,required_without=Content"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	ns.Content = core.CleanString(ns.Content)
	ns.FileURL = core.CleanString(ns.FileURL)
	return validate.Struct(ns)
}

type GradeSubmission struct {
	Grade null.Float64 `json:"grade" validate:"required"`
}

func (gs GradeSubmission) Validate(validate *validator.Validate) error {
	return validate.Struct(gs)
}

type QueryFilter struct {
	ClassID   string `query:"class_id"`
	TeacherID string `query:"teacher_id"`
}

type SubmissionFilter struct {
	AssignmentID string `query:"assignment_id"`
	StudentID    string `query:"student_id"`
	Graded       *bool  `query:"graded"`
}

// Performance summarizes a student's submissions across all assignments.
type Performance struct {
	TotalSubmissions  int     `json:"total_submissions"`
	GradedSubmissions int     `json:"graded_submissions"`
	PendingGrading    int     `json:"pending_grading"`
	AverageGrade      float64 `json:"average_grade"`
}
