package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/educonnect/backend/core"
	"github.com/educonnect/backend/core/assignment"
	"github.com/educonnect/backend/core/user"
)

type studentApi struct {
	usrSvc user.Service
	asgSvc assignment.Service
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, usrSvc user.Service, asgSvc assignment.Service) {
	api := studentApi{
		usrSvc: usrSvc,
		asgSvc: asgSvc,
	}

	// the student directory is a teacher surface
	sg := g.Group("/students", jwt, teacherMiddleware(api.usrSvc))
	sg.GET("", api.query)
	sg.GET("/search", api.search)
	sg.GET("/:id", api.retrieve)
}

// Handlers

func (api *studentApi) query(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	filter.Clean()
	filter.Role = user.RoleStudent
	ordering := new(Ordering)
	ordering.Bind(ctx)

	students, err := api.usrSvc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []user.User{}
	}
	return ctx.JSON(http.StatusOK, students)
}

// search looks up a student by exact registration number first, then falls
// back to a name/email/registration number match.
func (api *studentApi) search(ctx echo.Context) error {
	q := core.CleanString(ctx.QueryParam("q"))
	if q == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "q", Error: "this field is required"})
	}

	if usr, err := api.usrSvc.GetByRegistrationNumber(ctx.Request().Context(), q); err == nil {
		return ctx.JSON(http.StatusOK, []user.User{usr})
	} else if errors.Cause(err) != user.ErrNotFound {
		return errors.Wrap(err, "finding student by registration number")
	}

	students, err := api.usrSvc.Query(ctx.Request().Context(), &user.QueryFilter{Search: q, Role: user.RoleStudent}, nil)
	if err != nil {
		return errors.Wrap(err, "searching students")
	}
	if students == nil {
		students = []user.User{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	usr, err := api.usrSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding student by ID")
	}
	if !usr.IsStudent() {
		return errHttpNotFound
	}

	perf, err := api.asgSvc.StudentPerformance(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "computing student performance")
	}
	return ctx.JSON(http.StatusOK, StudentDetailResponse{User: usr, Performance: perf})
}

type StudentDetailResponse struct {
	User        user.User              `json:"user"`
	Performance assignment.Performance `json:"performance"`
}
