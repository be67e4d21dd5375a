package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/volatiletech/null/v8"

	. "github.com/educonnect/backend/apps/api/echo"
	"github.com/educonnect/backend/core/assignment"
	testutil "github.com/educonnect/backend/tests"
)

func Test_studentApi_query(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateTeacher(t, app.usrRepo, "Teacher", "teacher@edu.test")
	std1 := testutil.CreateStudent(t, app.usrRepo, "Amina K", "std0001")
	std2 := testutil.CreateStudent(t, app.usrRepo, "Moyo B", "std0002", "moyo@edu.test")

	tests := []httpTest{
		{name: "Auth required", path: "/api/students", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Students cannot browse the directory", path: "/api/students", token: getToken(t, std1),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		// teachers never show up in the directory
		{name: "Directory lists students only", path: "/api/students", token: getToken(t, teacher), wantData: marchallList(t, std1, std2)},
		{name: "Directory search", path: "/api/students?search=moyo", token: getToken(t, teacher), wantData: marchallList(t, std2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_studentApi_search(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateTeacher(t, app.usrRepo, "Teacher", "teacher@edu.test")
	std1 := testutil.CreateStudent(t, app.usrRepo, "Amina K", "std0001")
	std2 := testutil.CreateStudent(t, app.usrRepo, "Amina Junior", "std0002")

	token := getToken(t, teacher)

	tests := []httpTest{
		{
			name: "Query is required", path: "/api/students/search", token: token,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"q": "this field is required"}),
		},
		// an exact registration number hit wins over the name match
		{name: "Exact registration number", path: "/api/students/search?q=std0001", token: token, wantData: marchallList(t, std1)},
		{name: "Registration number is case-insensitive", path: "/api/students/search?q=STD0001", token: token, wantData: marchallList(t, std1)},
		{name: "Name fallback", path: "/api/students/search?q=amina", token: token, wantData: marchallList(t, std1, std2)},
		{name: "No match", path: "/api/students/search?q=nobody", token: token, wantData: marchallList(t)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_studentApi_retrieve(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateTeacher(t, app.usrRepo, "Teacher", "teacher@edu.test")
	student := testutil.CreateStudent(t, app.usrRepo, "Amina K", "std0001")
	cls := testutil.CreateClass(t, app.clsRepo, "Mathematics", teacher, student)

	asg1 := testutil.CreateAssignment(t, app.asgRepo, cls, "Homework 1")
	asg2 := testutil.CreateAssignment(t, app.asgRepo, cls, "Homework 2")
	asg3 := testutil.CreateAssignment(t, app.asgRepo, cls, "Homework 3")

	sub1 := testutil.CreateSubmission(t, app.asgRepo, asg1, student, "work 1")
	sub2 := testutil.CreateSubmission(t, app.asgRepo, asg2, student, "work 2")
	testutil.CreateSubmission(t, app.asgRepo, asg3, student, "work 3")

	ctx := context.Background()
	grades := []struct {
		subID string
		grade float64
	}{
		{sub1.ID, 80},
		{sub2.ID, 85.5},
	}
	for _, g := range grades {
		if _, err := app.asgSvc.Grade(ctx, g.subID, teacher.ID, assignment.GradeSubmission{Grade: null.Float64From(g.grade)}); err != nil {
			t.Fatalf("grading submission: %v", err)
		}
	}

	tests := []httpTest{
		{
			name: "Unknown student", path: "/api/students/eeee0000-0000-0000-0000-000000000000", token: getToken(t, teacher),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "user not found"}),
		},
		// teachers are not reachable through the student directory
		{
			name: "Teacher ID is not found", path: "/api/students/" + teacher.ID, token: getToken(t, teacher),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "Student with performance", path: "/api/students/" + student.ID, token: getToken(t, teacher),
			wantData: marchallObj(t, StudentDetailResponse{
				User: student,
				Performance: assignment.Performance{
					TotalSubmissions:  3,
					GradedSubmissions: 2,
					PendingGrading:    1,
					AverageGrade:      82.75,
				},
			}),
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
