package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/educonnect/backend/core/user"
)

// roleMiddleware gates a route on the caller's live account, not just the
// token: deactivated accounts and stale role claims are locked out as soon
// as the store changes, without waiting for the token to expire.
func roleMiddleware(role user.Role, svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if !usr.IsActive {
				return user.ErrAccountDeactivated
			}
			if usr.Role != role {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

func teacherMiddleware(svc user.Service) echo.MiddlewareFunc {
	return roleMiddleware(user.RoleTeacher, svc)
}
func studentMiddleware(svc user.Service) echo.MiddlewareFunc {
	return roleMiddleware(user.RoleStudent, svc)
}
