package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/educonnect/backend/core/assignment"
	testutil "github.com/educonnect/backend/tests"
)

func Test_assignmentApi_createAndQuery(t *testing.T) {
	app := setup(t)

	owner := testutil.CreateTeacher(t, app.usrRepo, "Owner", "owner@edu.test")
	other := testutil.CreateTeacher(t, app.usrRepo, "Other", "other@edu.test")
	student := testutil.CreateStudent(t, app.usrRepo, "Student", "std0001")
	cls := testutil.CreateClass(t, app.clsRepo, "Mathematics", owner, student)

	path := fmt.Sprintf("/api/classes/%s/assignments", cls.ID)
	permissionDenied := marchallObj(t, httpErr{Error: "permission denied"})

	tests := []httpTest{
		{
			name: "Students cannot create assignments", token: getToken(t, student),
			body:     marchallObj(t, map[string]string{"title": "Homework 1"}),
			wantCode: http.StatusForbidden, wantData: permissionDenied,
		},
		{
			name: "Non-owner cannot create assignments", token: getToken(t, other),
			body:     marchallObj(t, map[string]string{"title": "Homework 1"}),
			wantCode: http.StatusForbidden, wantData: permissionDenied,
		},
		{
			name: "Title is required", token: getToken(t, owner), body: marchallObj(t, map[string]string{}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"title": "this field is required"}),
		},
		{
			name: "File URL must be a URL", token: getToken(t, owner),
			body:     marchallObj(t, map[string]string{"title": "Homework 1", "file_url": "not-a-url"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "Owner creates an assignment", token: getToken(t, owner),
			body: marchallObj(t, map[string]interface{}{
				"title": "Homework 1", "description": "Chapters 1-3", "max_grade": 20,
			}),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, path, tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if rec.Code != http.StatusCreated {
				return
			}
			var asg assignment.Assignment
			if err := json.Unmarshal(rec.Body.Bytes(), &asg); err != nil {
				t.Fatalf("unmarshalling response: %v", err)
			}
			if asg.ClassID != cls.ID {
				t.Errorf("classID = %q, want %q", asg.ClassID, cls.ID)
			}
			if asg.TeacherID != owner.ID {
				t.Errorf("teacherID = %q, want %q", asg.TeacherID, owner.ID)
			}
			if !asg.MaxGrade.Valid || asg.MaxGrade.Float64 != 20 {
				t.Errorf("maxGrade = %v, want 20", asg.MaxGrade)
			}
		})
	}

	t.Run("Enrolled student lists class assignments", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, getToken(t, student))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var asgs []assignment.Assignment
		if err := json.Unmarshal(rec.Body.Bytes(), &asgs); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if want := 1; len(asgs) != want {
			t.Errorf("assignments = %d, want %d", len(asgs), want)
		}
	})
}

func Test_assignmentApi_updateAndDestroy(t *testing.T) {
	app := setup(t)

	owner := testutil.CreateTeacher(t, app.usrRepo, "Owner", "owner@edu.test")
	other := testutil.CreateTeacher(t, app.usrRepo, "Other", "other@edu.test")
	cls := testutil.CreateClass(t, app.clsRepo, "Mathematics", owner)
	asg := testutil.CreateAssignment(t, app.asgRepo, cls, "Homework 1")

	path := "/api/assignments/" + asg.ID

	t.Run("Only the owner updates", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, path, getToken(t, other), marchallObj(t, map[string]string{"title": "Hijacked"}))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("Partial update keeps omitted fields", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, path, getToken(t, owner), marchallObj(t, map[string]string{"description": "Chapters 1-3"}))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var got assignment.Assignment
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if got.Title != "Homework 1" {
			t.Errorf("title = %q, want %q", got.Title, "Homework 1")
		}
		if got.Description != "Chapters 1-3" {
			t.Errorf("description = %q, want %q", got.Description, "Chapters 1-3")
		}
	})

	t.Run("Owner destroys", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, path, getToken(t, owner))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("code = %d, want %d", rec.Code, http.StatusNoContent)
		}

		req, rec = newAuthRequest(http.MethodGet, path, getToken(t, owner))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "assignment not found"}),
		}, rec)
	})
}

func Test_assignmentApi_submit(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateTeacher(t, app.usrRepo, "Teacher", "teacher@edu.test")
	member := testutil.CreateStudent(t, app.usrRepo, "Member", "std0001")
	outsider := testutil.CreateStudent(t, app.usrRepo, "Outsider", "std0002")
	cls := testutil.CreateClass(t, app.clsRepo, "Mathematics", teacher, member)
	asg := testutil.CreateAssignment(t, app.asgRepo, cls, "Homework 1", 20)

	path := fmt.Sprintf("/api/assignments/%s/submissions", asg.ID)

	tests := []httpTest{
		{
			name: "Teachers cannot submit", token: getToken(t, teacher),
			body:     marchallObj(t, map[string]string{"content": "my work"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Only enrolled students submit", token: getToken(t, outsider),
			body:     marchallObj(t, map[string]string{"content": "my work"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "student is not enrolled in this class"}),
		},
		{
			name: "Content or file URL is required", token: getToken(t, member),
			body: marchallObj(t, map[string]string{}), wantCode: http.StatusBadRequest,
		},
		{
			name: "Member submits content", token: getToken(t, member),
			body: marchallObj(t, map[string]string{"content": "my work"}), wantCode: http.StatusCreated,
		},
		{
			name: "Member submits a file", token: getToken(t, member),
			body:     marchallObj(t, map[string]string{"file_url": "https://files.edu.test/work.pdf"}),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, path, tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// both successful submissions target the same assignment; only one row
	t.Run("Resubmission replaces the previous work", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path+"?ordering=created_at", getToken(t, teacher))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var subs []assignment.Submission
		if err := json.Unmarshal(rec.Body.Bytes(), &subs); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if want := 1; len(subs) != want {
			t.Fatalf("submissions = %d, want %d", len(subs), want)
		}
		if subs[0].FileURL != "https://files.edu.test/work.pdf" {
			t.Errorf("fileURL = %q, want the resubmitted file", subs[0].FileURL)
		}
	})
}

func Test_assignmentApi_grade(t *testing.T) {
	app := setup(t)

	owner := testutil.CreateTeacher(t, app.usrRepo, "Owner", "owner@edu.test")
	other := testutil.CreateTeacher(t, app.usrRepo, "Other", "other@edu.test")
	student := testutil.CreateStudent(t, app.usrRepo, "Student", "std0001")
	cls := testutil.CreateClass(t, app.clsRepo, "Mathematics", owner, student)
	asg := testutil.CreateAssignment(t, app.asgRepo, cls, "Homework 1", 20)
	sub := testutil.CreateSubmission(t, app.asgRepo, asg, student, "my work")

	path := fmt.Sprintf("/api/submissions/%s/grade", sub.ID)
	gradeBody := func(grade float64) []byte {
		return marchallObj(t, map[string]float64{"grade": grade})
	}

	tests := []httpTest{
		{
			name: "Students cannot grade", token: getToken(t, student), body: gradeBody(18),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Only the assignment owner grades", token: getToken(t, other), body: gradeBody(18),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Grade is required", token: getToken(t, owner), body: marchallObj(t, map[string]string{}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"grade": "this field is required"}),
		},
		{
			name: "Grade cannot exceed the maximum", token: getToken(t, owner), body: gradeBody(21),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"grade": "grade is out of range"}),
		},
		{
			name: "Grade cannot be negative", token: getToken(t, owner), body: gradeBody(-1),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"grade": "grade is out of range"}),
		},
		{name: "Owner grades", token: getToken(t, owner), body: gradeBody(18)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPut, path, tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if rec.Code != http.StatusOK {
				return
			}
			var got assignment.Submission
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("unmarshalling response: %v", err)
			}
			if !got.IsGraded() || got.Grade.Float64 != 18 {
				t.Errorf("grade = %v, want 18", got.Grade)
			}
			if got.GradedBy.String != owner.ID {
				t.Errorf("gradedBy = %q, want %q", got.GradedBy.String, owner.ID)
			}
		})
	}

	t.Run("Resubmission clears the grade", func(t *testing.T) {
		req, rec := newAuthRequest(
			http.MethodPost,
			fmt.Sprintf("/api/assignments/%s/submissions", asg.ID),
			getToken(t, student),
			marchallObj(t, map[string]string{"content": "revised work"}),
		)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %d, want %d; body: %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var got assignment.Submission
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if got.IsGraded() {
			t.Errorf("grade = %v, want cleared", got.Grade)
		}
		if got.Content != "revised work" {
			t.Errorf("content = %q, want %q", got.Content, "revised work")
		}
	})

	t.Run("Default maximum is 100", func(t *testing.T) {
		ungraded := testutil.CreateAssignment(t, app.asgRepo, cls, "Homework 2")
		sub2 := testutil.CreateSubmission(t, app.asgRepo, ungraded, student, "more work")

		req, rec := newAuthRequest(http.MethodPut, fmt.Sprintf("/api/submissions/%s/grade", sub2.ID), getToken(t, owner), gradeBody(101))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"grade": "grade is out of range"}),
		}, rec)

		req, rec = newAuthRequest(http.MethodPut, fmt.Sprintf("/api/submissions/%s/grade", sub2.ID), getToken(t, owner), gradeBody(100))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("code = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
	})
}

func Test_assignmentApi_mySubmissions(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateTeacher(t, app.usrRepo, "Teacher", "teacher@edu.test")
	std1 := testutil.CreateStudent(t, app.usrRepo, "Student One", "std0001")
	std2 := testutil.CreateStudent(t, app.usrRepo, "Student Two", "std0002")
	cls := testutil.CreateClass(t, app.clsRepo, "Mathematics", teacher, std1, std2)
	asg1 := testutil.CreateAssignment(t, app.asgRepo, cls, "Homework 1")
	asg2 := testutil.CreateAssignment(t, app.asgRepo, cls, "Homework 2")

	sub1 := testutil.CreateSubmission(t, app.asgRepo, asg1, std1, "work 1")
	sub2 := testutil.CreateSubmission(t, app.asgRepo, asg2, std1, "work 2")
	testutil.CreateSubmission(t, app.asgRepo, asg1, std2, "someone else's work")

	tests := []httpTest{
		{name: "Teachers have no submissions view", token: getToken(t, teacher), wantCode: http.StatusForbidden},
		{name: "Own submissions only", token: getToken(t, std1), wantData: marchallList(t, sub1, sub2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/api/submissions", tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
