// Package testutil provides shared fixtures for tests across the repo.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/educonnect/backend/core"
	"github.com/educonnect/backend/core/assignment"
	"github.com/educonnect/backend/core/class"
	"github.com/educonnect/backend/core/user"
)

// NewTestConfig returns a self-contained config; nothing is read from the
// environment.
func NewTestConfig() *core.Config {
	return &core.Config{
		TestMode: true,
		Env:      "TEST",
		Build:    "test",

		AppName:   "EduConnect",
		SecretKey: []byte("secret"),

		FrontendBaseURL: "http://localhost:3000",

		Server: core.ServerConfig{
			Host:                      "localhost",
			Port:                      8000,
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
			LoginEnforcesRole:         true,
		},
	}
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name string,
	role user.Role,
	email, regNum, pwd string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:               name,
		Role:               role,
		Email:              email,
		RegistrationNumber: regNum,
		IsActive:           isActive,
		CreatedAt:          tstamp,
		UpdatedAt:          tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateTeacher(t *testing.T, repo user.Repository, name, email string) user.User {
	t.Helper()
	return CreateUser(t, repo, name, user.RoleTeacher, email, "", "", true)
}

func CreateStudent(t *testing.T, repo user.Repository, name, regNum string, email ...string) user.User {
	t.Helper()
	var mail string
	if len(email) > 0 {
		mail = email[0]
	}
	return CreateUser(t, repo, name, user.RoleStudent, mail, regNum, "", true)
}

func CreateClass(t *testing.T, repo class.Repository, name string, teacher user.User, students ...user.User) class.Class {
	t.Helper()

	now := time.Now().UTC()
	cls, err := repo.CreateClass(context.Background(), class.Class{
		Name:       name,
		TeacherID:  teacher.ID,
		StudentIDs: []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	for _, s := range students {
		if err = repo.AddStudent(context.Background(), cls.ID, s.ID); err != nil {
			t.Fatalf("CreateClass() failed: %v", err)
		}
	}
	cls, err = repo.GetClassByID(context.Background(), cls.ID)
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return cls
}

func CreateAssignment(t *testing.T, repo assignment.Repository, cls class.Class, title string, maxGrade ...float64) assignment.Assignment {
	t.Helper()

	now := time.Now().UTC()
	asg := assignment.Assignment{
		ClassID:   cls.ID,
		TeacherID: cls.TeacherID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(maxGrade) > 0 {
		asg.MaxGrade = null.Float64From(maxGrade[0])
	}
	asg, err := repo.CreateAssignment(context.Background(), asg)
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	return asg
}

func CreateSubmission(t *testing.T, repo assignment.Repository, asg assignment.Assignment, student user.User, content string) assignment.Submission {
	t.Helper()

	now := time.Now().UTC()
	sub, err := repo.CreateSubmission(context.Background(), assignment.Submission{
		AssignmentID: asg.ID,
		StudentID:    student.ID,
		Content:      content,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateSubmission() failed: %v", err)
	}
	return sub
}
