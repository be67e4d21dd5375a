package class

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/educonnect/backend/core"
)

type Class struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	TeacherID   string    `json:"teacher_id"`
	StudentIDs  []string  `json:"student_ids"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// HasStudent reports whether the student is enrolled.
func (c Class) HasStudent(studentID string) bool {
	for _, id := range c.StudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

// UpdateClass defines what information may be provided to modify an existing Class.
type UpdateClass struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (uc *UpdateClass) Validate(origCls Class, validate *validator.Validate) error {
	name := core.CleanString(uc.Name)
	if name != "" {
		uc.Name = name
	} else {
		uc.Name = origCls.Name
	}

	desc := core.CleanString(uc.Description)
	if desc != "" {
		uc.Description = desc
	} else {
		uc.Description = origCls.Description
	}
	return validate.Struct(uc)
}

type QueryFilter struct {
	Search    string `query:"search"`
	TeacherID string `query:"teacher_id"`
	StudentID string `query:"student_id"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.TeacherID == "" && qf.StudentID == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
