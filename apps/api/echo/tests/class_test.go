package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/educonnect/backend/core/class"
	testutil "github.com/educonnect/backend/tests"
)

func Test_classApi_queryAndRetrieve(t *testing.T) {
	app := setup(t)

	teacher1 := testutil.CreateTeacher(t, app.usrRepo, "Teacher One", "one@edu.test")
	teacher2 := testutil.CreateTeacher(t, app.usrRepo, "Teacher Two", "two@edu.test")
	student := testutil.CreateStudent(t, app.usrRepo, "Student", "std0001")

	maths := testutil.CreateClass(t, app.clsRepo, "Mathematics", teacher1, student)
	physics := testutil.CreateClass(t, app.clsRepo, "Physics", teacher1)
	biology := testutil.CreateClass(t, app.clsRepo, "Biology", teacher2)

	token := getToken(t, student)

	tests := []httpTest{
		{name: "Auth required", path: "/api/classes", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "All classes", path: "/api/classes", token: token, wantData: marchallList(t, maths, physics, biology)},
		{name: "Filter by teacher", path: "/api/classes?teacher_id=" + teacher2.ID, token: token, wantData: marchallList(t, biology)},
		{name: "Filter by student", path: "/api/classes?student_id=" + student.ID, token: token, wantData: marchallList(t, maths)},
		{name: "Search by name", path: "/api/classes?search=phys", token: token, wantData: marchallList(t, physics)},
		{name: "No match", path: "/api/classes?search=chemistry", token: token, wantData: marchallList(t)},
		{name: "Retrieve", path: "/api/classes/" + maths.ID, token: token, wantData: marchallObj(t, maths)},
		{
			name: "Retrieve unknown", path: "/api/classes/eeee0000-0000-0000-0000-000000000000", token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "class not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_classApi_create(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateTeacher(t, app.usrRepo, "Teacher", "teacher@edu.test")
	student := testutil.CreateStudent(t, app.usrRepo, "Student", "std0001")

	// a token issued before deactivation must stop working
	gone := testutil.CreateTeacher(t, app.usrRepo, "Gone", "gone@edu.test")
	goneToken := getToken(t, gone)
	if _, err := app.usrSvc.Deactivate(context.Background(), gone.ID); err != nil {
		t.Fatalf("Deactivate() failed: %v", err)
	}

	tests := []httpTest{
		{
			name: "Students cannot create classes", token: getToken(t, student),
			body:     marchallObj(t, map[string]string{"name": "Mathematics"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Deactivated teachers are locked out", token: goneToken,
			body:     marchallObj(t, map[string]string{"name": "Mathematics"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "Name is required", token: getToken(t, teacher), body: marchallObj(t, map[string]string{}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"name": "this field is required"}),
		},
		{
			name: "Teacher creates a class", token: getToken(t, teacher),
			body:     marchallObj(t, map[string]string{"name": "Mathematics", "description": "Numbers and shapes"}),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/api/classes", tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if rec.Code != http.StatusCreated {
				return
			}
			var cls class.Class
			if err := json.Unmarshal(rec.Body.Bytes(), &cls); err != nil {
				t.Fatalf("unmarshalling response: %v", err)
			}
			if cls.TeacherID != teacher.ID {
				t.Errorf("teacherID = %q, want %q", cls.TeacherID, teacher.ID)
			}
			if len(cls.StudentIDs) != 0 {
				t.Errorf("expected an empty roster, got %v", cls.StudentIDs)
			}
		})
	}
}

func Test_classApi_updateAndDestroy(t *testing.T) {
	app := setup(t)

	owner := testutil.CreateTeacher(t, app.usrRepo, "Owner", "owner@edu.test")
	other := testutil.CreateTeacher(t, app.usrRepo, "Other", "other@edu.test")
	cls := testutil.CreateClass(t, app.clsRepo, "Mathematics", owner)

	path := "/api/classes/" + cls.ID
	permissionDenied := marchallObj(t, httpErr{Error: "permission denied"})

	t.Run("Only the owner updates", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, path, getToken(t, other), marchallObj(t, map[string]string{"name": "Hijacked"}))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: permissionDenied}, rec)
	})

	t.Run("Partial update keeps omitted fields", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, path, getToken(t, owner), marchallObj(t, map[string]string{"description": "Numbers"}))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var got class.Class
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if got.Name != "Mathematics" {
			t.Errorf("name = %q, want %q", got.Name, "Mathematics")
		}
		if got.Description != "Numbers" {
			t.Errorf("description = %q, want %q", got.Description, "Numbers")
		}
	})

	t.Run("Only the owner destroys", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, path, getToken(t, other))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: permissionDenied}, rec)
	})

	t.Run("Owner destroys", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, path, getToken(t, owner))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("code = %d, want %d", rec.Code, http.StatusNoContent)
		}

		req, rec = newAuthRequest(http.MethodGet, path, getToken(t, owner))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})
}

func Test_classApi_joinAndLeave(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateTeacher(t, app.usrRepo, "Teacher", "teacher@edu.test")
	student := testutil.CreateStudent(t, app.usrRepo, "Student", "std0001")
	cls := testutil.CreateClass(t, app.clsRepo, "Mathematics", teacher)

	join := fmt.Sprintf("/api/classes/%s/join", cls.ID)
	leave := fmt.Sprintf("/api/classes/%s/leave", cls.ID)

	t.Run("Teachers cannot join", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, join, getToken(t, teacher))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)
	})

	t.Run("Student joins, twice is a no-op", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			req, rec := newAuthRequest(http.MethodPost, join, getToken(t, student))
			app.server.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("code = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
			}
			var got class.Class
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("unmarshalling response: %v", err)
			}
			if want := []string{student.ID}; !equalStrings(got.StudentIDs, want) {
				t.Errorf("roster = %v, want %v", got.StudentIDs, want)
			}
		}
	})

	t.Run("Student leaves", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, leave, getToken(t, student))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var got class.Class
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(got.StudentIDs) != 0 {
			t.Errorf("roster = %v, want empty", got.StudentIDs)
		}
	})
}

func Test_classApi_students(t *testing.T) {
	app := setup(t)

	owner := testutil.CreateTeacher(t, app.usrRepo, "Owner", "owner@edu.test")
	other := testutil.CreateTeacher(t, app.usrRepo, "Other", "other@edu.test")
	std1 := testutil.CreateStudent(t, app.usrRepo, "Student One", "std0001")
	std2 := testutil.CreateStudent(t, app.usrRepo, "Student Two", "std0002")
	cls := testutil.CreateClass(t, app.clsRepo, "Mathematics", owner, std1, std2)

	path := fmt.Sprintf("/api/classes/%s/students", cls.ID)

	tests := []httpTest{
		{name: "Students cannot list the roster", token: getToken(t, std1), wantCode: http.StatusForbidden},
		{name: "Non-owner cannot list the roster", token: getToken(t, other), wantCode: http.StatusForbidden},
		{name: "Owner lists the roster", token: getToken(t, owner), wantData: marchallList(t, std1, std2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, path, tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func equalStrings(s1, s2 []string) bool {
	if len(s1) != len(s2) {
		return false
	}
	for i := range s1 {
		if s1[i] != s2[i] {
			return false
		}
	}
	return true
}
