package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/secmun/podium/core"
	"github.com/secmun/podium/core/attendance"
	"github.com/secmun/podium/core/event"
	"github.com/secmun/podium/core/finance"
	"github.com/secmun/podium/core/member"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "member not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// notFoundErrs maps domain sentinel errors to 404s.
var notFoundErrs = map[error]bool{
	member.ErrNotFound:            true,
	attendance.ErrSessionNotFound: true,
	attendance.ErrEntryNotFound:   true,
	event.ErrNotFound:             true,
	event.ErrRegistrationNotFound: true,
	finance.ErrNotFound:           true,
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		switch origErr := cause.(type) {
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
			if origErr.Fields != nil {
				message = origErr.FieldMap()
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			switch {
			case notFoundErrs[cause]:
				code = http.StatusNotFound
				message = cause.Error()
			case cause == event.ErrRegistrationExists:
				code = http.StatusConflict
				message = cause.Error()
			case cause == event.ErrRegistrationClosed:
				code = http.StatusBadRequest
				message = cause.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				var mbr member.Member
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					mbr.ID = claims.Subject
					mbr.Username = claims.Username
					mbr.Email = claims.Email
				}
				logger.Error(msg, errors.Wrap(err, msg), mbr)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
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
