package class_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/educonnect/backend/core/class"
	inmemdb "github.com/educonnect/backend/storage/database/inmem"
	testutil "github.com/educonnect/backend/tests"
)

func setup(t *testing.T) (class.Service, *inmemdb.DB) {
	t.Helper()
	db := inmemdb.NewDB()
	return class.NewService(inmemdb.NewClassRepository(db), inmemdb.NewUserRepository(db)), db
}

func Test_service_Join(t *testing.T) {
	svc, db := setup(t)
	usrRepo := inmemdb.NewUserRepository(db)
	clsRepo := inmemdb.NewClassRepository(db)

	teacher := testutil.CreateTeacher(t, usrRepo, "Teacher", "teacher@edu.test")
	student := testutil.CreateStudent(t, usrRepo, "Student", "std0001")
	cls := testutil.CreateClass(t, clsRepo, "Mathematics", teacher)

	ctx := context.Background()

	t.Run("Teachers cannot join", func(t *testing.T) {
		_, err := svc.Join(ctx, cls.ID, teacher)
		if errors.Cause(err) != class.ErrNotStudent {
			t.Errorf("err = %v, want %v", err, class.ErrNotStudent)
		}
	})

	t.Run("Unknown class", func(t *testing.T) {
		_, err := svc.Join(ctx, "eeee0000-0000-0000-0000-000000000000", student)
		if errors.Cause(err) != class.ErrNotFound {
			t.Errorf("err = %v, want %v", err, class.ErrNotFound)
		}
	})

	t.Run("Joining twice is a no-op", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			got, err := svc.Join(ctx, cls.ID, student)
			if err != nil {
				t.Fatalf("Join() failed: %v", err)
			}
			if len(got.StudentIDs) != 1 || got.StudentIDs[0] != student.ID {
				t.Errorf("roster = %v, want [%s]", got.StudentIDs, student.ID)
			}
		}
	})
}

func Test_service_Leave(t *testing.T) {
	svc, db := setup(t)
	usrRepo := inmemdb.NewUserRepository(db)
	clsRepo := inmemdb.NewClassRepository(db)

	teacher := testutil.CreateTeacher(t, usrRepo, "Teacher", "teacher@edu.test")
	student := testutil.CreateStudent(t, usrRepo, "Student", "std0001")
	cls := testutil.CreateClass(t, clsRepo, "Mathematics", teacher, student)

	ctx := context.Background()

	got, err := svc.Leave(ctx, cls.ID, student)
	if err != nil {
		t.Fatalf("Leave() failed: %v", err)
	}
	if len(got.StudentIDs) != 0 {
		t.Errorf("roster = %v, want empty", got.StudentIDs)
	}

	// leaving a class the student is not in is a no-op
	if _, err = svc.Leave(ctx, cls.ID, student); err != nil {
		t.Errorf("Leave() failed: %v", err)
	}
}

func Test_service_Students(t *testing.T) {
	svc, db := setup(t)
	usrRepo := inmemdb.NewUserRepository(db)
	clsRepo := inmemdb.NewClassRepository(db)

	teacher := testutil.CreateTeacher(t, usrRepo, "Teacher", "teacher@edu.test")
	std1 := testutil.CreateStudent(t, usrRepo, "Student One", "std0001")
	std2 := testutil.CreateStudent(t, usrRepo, "Student Two", "std0002")
	cls := testutil.CreateClass(t, clsRepo, "Mathematics", teacher, std1, std2)

	ctx := context.Background()

	students, err := svc.Students(ctx, cls.ID)
	if err != nil {
		t.Fatalf("Students() failed: %v", err)
	}
	if want := 2; len(students) != want {
		t.Fatalf("students = %d, want %d", len(students), want)
	}

	// deleted accounts silently drop off the roster
	if _, err = inmemdb.NewUserRepository(db).DeleteUsersByID(ctx, std1.ID); err != nil {
		t.Fatalf("DeleteUsersByID() failed: %v", err)
	}
	students, err = svc.Students(ctx, cls.ID)
	if err != nil {
		t.Fatalf("Students() failed: %v", err)
	}
	if want := 1; len(students) != want || students[0].ID != std2.ID {
		t.Errorf("students = %v, want [%s]", students, std2.ID)
	}
}
