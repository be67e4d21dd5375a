package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/educonnect/backend/core"
	"github.com/educonnect/backend/core/assignment"
	"github.com/educonnect/backend/core/class"
	"github.com/educonnect/backend/core/user"
)

var (
	errUnauthorized   = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errRefreshExpired = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden  = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound   = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			code = http.StatusBadRequest
			message = errorMessage(origErr.Error(), origErr.Fields)
		case *core.ConflictError:
			code = http.StatusConflict
			message = errorMessage(origErr.Error(), origErr.Fields)
		default:
			switch origErr {
			case user.ErrAuthenticationFailed:
				code = http.StatusUnauthorized
				message = origErr.Error()
			case user.ErrAccountDeactivated, class.ErrNotStudent, assignment.ErrNotClassMember:
				code = http.StatusForbidden
				message = origErr.Error()
			case user.ErrNotFound, class.ErrNotFound, assignment.ErrNotFound, assignment.ErrSubmissionNotFound:
				code = http.StatusNotFound
				message = origErr.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				var usr user.User
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					usr.ID = claims.Subject
					usr.Name = claims.Name
					usr.Role = user.Role(claims.Role)
				}
				logger.Error(msg, errors.Wrap(err, msg), usr)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug && code >= http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func errorMessage(msg string, fields []core.FieldError) interface{} {
	if len(fields) == 0 {
		return msg
	}
	fldErrs := make(map[string]string, len(fields))
	for _, fErr := range fields {
		fldErrs[fErr.Field] = fErr.Error
	}
	return fldErrs
}
