// Package inmemdb provides map-backed repositories for tests and local runs.
package inmemdb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/educonnect/backend/core/announcement"
	"github.com/educonnect/backend/core/assignment"
	"github.com/educonnect/backend/core/class"
	"github.com/educonnect/backend/core/user"
)

type (
	userTable struct {
		mutex sync.RWMutex
		table map[string]*user.User
	}
	classTable struct {
		mutex sync.RWMutex
		table map[string]*class.Class
	}
	assignmentTable struct {
		mutex sync.RWMutex
		table map[string]*assignment.Assignment
	}
	submissionTable struct {
		mutex sync.RWMutex
		table map[string]*assignment.Submission
	}
	announcementTable struct {
		mutex sync.RWMutex
		table map[string]*announcement.Announcement
	}

	DB struct {
		user         *userTable
		class        *classTable
		assignment   *assignmentTable
		submission   *submissionTable
		announcement *announcementTable
	}
)

func NewDB() *DB {
	return &DB{
		user:         &userTable{table: make(map[string]*user.User)},
		class:        &classTable{table: make(map[string]*class.Class)},
		assignment:   &assignmentTable{table: make(map[string]*assignment.Assignment)},
		submission:   &submissionTable{table: make(map[string]*assignment.Submission)},
		announcement: &announcementTable{table: make(map[string]*announcement.Announcement)},
	}
}

func newPK() string { return uuid.NewString() }
