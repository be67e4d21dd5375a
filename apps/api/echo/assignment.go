package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/educonnect/backend/core/assignment"
	"github.com/educonnect/backend/core/class"
	"github.com/educonnect/backend/core/user"
)

type assignmentApi struct {
	svc      assignment.Service
	clsSvc   class.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerAssignmentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc assignment.Service,
	clsSvc class.Service,
	usrSvc user.Service,
	validate *validator.Validate,
) {
	api := assignmentApi{
		svc:      svc,
		clsSvc:   clsSvc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	cg := g.Group("/classes/:id/assignments", jwt)
	cg.GET("", api.queryByClass)
	cg.POST("", api.create, teacherMiddleware(api.usrSvc))

	ag := g.Group("/assignments/:id", jwt)
	ag.GET("", api.retrieve)
	ag.PUT("", api.update, teacherMiddleware(api.usrSvc))
	ag.DELETE("", api.destroy, teacherMiddleware(api.usrSvc))
	ag.GET("/submissions", api.querySubmissions, teacherMiddleware(api.usrSvc))
	ag.POST("/submissions", api.submit, studentMiddleware(api.usrSvc))

	sg := g.Group("/submissions", jwt)
	sg.GET("", api.mySubmissions, studentMiddleware(api.usrSvc))
	sg.PUT("/:id/grade", api.grade, teacherMiddleware(api.usrSvc))
}

// getOwnedAssignment loads the assignment and rejects teachers that do not own it.
func (api *assignmentApi) getOwnedAssignment(ctx echo.Context) (assignment.Assignment, error) {
	asg, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "finding assignment by ID")
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "getting context claims")
	}
	if asg.TeacherID != claims.Subject {
		return assignment.Assignment{}, errHttpForbidden
	}
	return asg, nil
}

// Handlers

func (api *assignmentApi) queryByClass(ctx echo.Context) error {
	cls, err := api.clsSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding class by ID")
	}

	ordering := new(Ordering)
	ordering.Bind(ctx)

	asgs, err := api.svc.Query(ctx.Request().Context(), &assignment.QueryFilter{ClassID: cls.ID}, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if asgs == nil {
		asgs = []assignment.Assignment{}
	}
	return ctx.JSON(http.StatusOK, asgs)
}

func (api *assignmentApi) create(ctx echo.Context) error {
	cls, err := api.clsSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding class by ID")
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if cls.TeacherID != claims.Subject {
		return errHttpForbidden
	}

	var data assignment.NewAssignment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	asg, err := api.svc.Create(ctx.Request().Context(), cls, data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, asg)
}

func (api *assignmentApi) retrieve(ctx echo.Context) error {
	asg, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding assignment by ID")
	}
	return ctx.JSON(http.StatusOK, asg)
}

func (api *assignmentApi) update(ctx echo.Context) error {
	asg, err := api.getOwnedAssignment(ctx)
	if err != nil {
		return err
	}

	var data assignment.UpdateAssignment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssignment")
	}
	if err = data.Validate(asg, api.validate); err != nil {
		return err
	}

	asg, err = api.svc.Update(ctx.Request().Context(), asg.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating assignment")
	}
	return ctx.JSON(http.StatusOK, asg)
}

func (api *assignmentApi) destroy(ctx echo.Context) error {
	asg, err := api.getOwnedAssignment(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), asg.ID); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *assignmentApi) submit(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data assignment.NewSubmission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.Submit(ctx.Request().Context(), ctx.Param("id"), usr, data)
	if err != nil {
		return errors.Wrap(err, "submitting assignment")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *assignmentApi) querySubmissions(ctx echo.Context) error {
	asg, err := api.getOwnedAssignment(ctx)
	if err != nil {
		return err
	}

	filter := &assignment.SubmissionFilter{AssignmentID: asg.ID}
	if graded := ctx.QueryParam("graded"); graded != "" {
		g := graded == "true"
		filter.Graded = &g
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	subs, err := api.svc.QuerySubmissions(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []assignment.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

// mySubmissions lists the authed student's own submissions.
func (api *assignmentApi) mySubmissions(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := &assignment.SubmissionFilter{StudentID: claims.Subject}
	if graded := ctx.QueryParam("graded"); graded != "" {
		g := graded == "true"
		filter.Graded = &g
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	subs, err := api.svc.QuerySubmissions(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []assignment.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *assignmentApi) grade(ctx echo.Context) error {
	sub, err := api.svc.GetSubmissionByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding submission by ID")
	}
	asg, err := api.svc.GetByID(ctx.Request().Context(), sub.AssignmentID)
	if err != nil {
		return errors.Wrap(err, "finding submission assignment")
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if asg.TeacherID != claims.Subject {
		return errHttpForbidden
	}

	var data assignment.GradeSubmission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeSubmission")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	sub, err = api.svc.Grade(ctx.Request().Context(), sub.ID, claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "grading submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}
