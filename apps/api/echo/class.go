package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/educonnect/backend/core/class"
	"github.com/educonnect/backend/core/user"
)

type classApi struct {
	svc      class.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerClassAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc class.Service, usrSvc user.Service, validate *validator.Validate) {
	api := classApi{
		svc:      svc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	cg := g.Group("/classes", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create, teacherMiddleware(api.usrSvc))

	// detail endpoints
	dg := cg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, teacherMiddleware(api.usrSvc))
	dg.DELETE("", api.destroy, teacherMiddleware(api.usrSvc))
	dg.POST("/join", api.join, studentMiddleware(api.usrSvc))
	dg.POST("/leave", api.leave, studentMiddleware(api.usrSvc))
	dg.GET("/students", api.students, teacherMiddleware(api.usrSvc))
}

// getOwnedClass loads the class and rejects teachers that do not own it.
func (api *classApi) getOwnedClass(ctx echo.Context) (class.Class, error) {
	cls, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return class.Class{}, errors.Wrap(err, "finding class by ID")
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return class.Class{}, errors.Wrap(err, "getting context claims")
	}
	if cls.TeacherID != claims.Subject {
		return class.Class{}, errHttpForbidden
	}
	return cls, nil
}

// Handlers

func (api *classApi) query(ctx echo.Context) error {
	filter := new(class.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []class.Class{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	classes, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []class.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) create(ctx echo.Context) error {
	var data class.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	cls, err := api.svc.Create(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classApi) retrieve(ctx echo.Context) error {
	cls, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding class by ID")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) update(ctx echo.Context) error {
	cls, err := api.getOwnedClass(ctx)
	if err != nil {
		return err
	}

	var data class.UpdateClass
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}
	if err = data.Validate(cls, api.validate); err != nil {
		return err
	}

	cls, err = api.svc.Update(ctx.Request().Context(), cls.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) destroy(ctx echo.Context) error {
	cls, err := api.getOwnedClass(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), cls.ID); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) join(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	cls, err := api.svc.Join(ctx.Request().Context(), ctx.Param("id"), usr)
	if err != nil {
		return errors.Wrap(err, "joining class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) leave(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	cls, err := api.svc.Leave(ctx.Request().Context(), ctx.Param("id"), usr)
	if err != nil {
		return errors.Wrap(err, "leaving class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) students(ctx echo.Context) error {
	cls, err := api.getOwnedClass(ctx)
	if err != nil {
		return err
	}

	students, err := api.svc.Students(ctx.Request().Context(), cls.ID)
	if err != nil {
		return errors.Wrap(err, "listing class students")
	}
	if students == nil {
		students = []user.User{}
	}
	return ctx.JSON(http.StatusOK, students)
}
