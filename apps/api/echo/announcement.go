package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/educonnect/backend/core/announcement"
	"github.com/educonnect/backend/core/class"
	"github.com/educonnect/backend/core/user"
)

type announcementApi struct {
	svc      announcement.Service
	clsSvc   class.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerAnnouncementAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc announcement.Service,
	clsSvc class.Service,
	usrSvc user.Service,
	validate *validator.Validate,
) {
	api := announcementApi{
		svc:      svc,
		clsSvc:   clsSvc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	ag := g.Group("/classes/:id/announcements", jwt)
	ag.GET("", api.queryByClass)
	ag.POST("", api.create, teacherMiddleware(api.usrSvc))
}

// Handlers

// queryByClass lists a class feed; only the owning teacher and enrolled
// students can read it.
func (api *announcementApi) queryByClass(ctx echo.Context) error {
	cls, err := api.clsSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding class by ID")
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if cls.TeacherID != claims.Subject && !cls.HasStudent(claims.Subject) {
		return errHttpForbidden
	}

	ordering := new(Ordering)
	ordering.Bind(ctx)

	anns, err := api.svc.QueryByClass(ctx.Request().Context(), cls.ID, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying announcements")
	}
	if anns == nil {
		anns = []announcement.Announcement{}
	}
	return ctx.JSON(http.StatusOK, anns)
}

func (api *announcementApi) create(ctx echo.Context) error {
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

	var data announcement.NewAnnouncement
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnnouncement")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	ann, err := api.svc.Post(ctx.Request().Context(), cls, claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "posting announcement")
	}
	return ctx.JSON(http.StatusCreated, ann)
}
