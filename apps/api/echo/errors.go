package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/announcement"
	"github.com/trezcool/escola/core/dashboard"
	"github.com/trezcool/escola/core/grade"
	"github.com/trezcool/escola/core/lessonplan"
	"github.com/trezcool/escola/core/subject"
	"github.com/trezcool/escola/core/user"
)

var (
	errHttpNotFound = echo.NewHTTPError(http.StatusNotFound, "not found")

	// not found errors: 404 on pages, flash on actions
	notFoundErrs = map[error]bool{
		user.ErrNotFound:             true,
		subject.ErrNotFound:          true,
		grade.ErrAssessmentNotFound:  true,
		lessonplan.ErrNotFound:       true,
		announcement.ErrNotFound:     true,
		dashboard.ErrStudentNotFound: true,
	}

	// errors reported as a warning flash, the operation being skipped
	warningErrs = map[error]bool{
		user.ErrLinkExists:         true,
		user.ErrDeleteSelf:         true,
		user.ErrNotGuardian:        true,
		user.ErrNotStudent:         true,
		subject.ErrAlreadyAssigned: true,
		subject.ErrAlreadyEnrolled: true,
		subject.ErrNotTeacher:      true,
		subject.ErrNotStudent:      true,
		dashboard.ErrForbidden:     true,
		dashboard.ErrNotLinked:     true,
	}

	// malformed or rejected input that carries no field errors
	formErrs = map[error]bool{
		errInvalidID:                 true,
		user.ErrAuthenticationFailed: true,
		user.ErrInvalidRole:          true,
		user.ErrInvalidToken:         true,
		user.ErrTokenExpired:         true,
	}
)

func isNotFound(err error) bool {
	return notFoundErrs[errors.Cause(err)]
}

// pageError turns not found errors into a plain 404.
func pageError(err error) error {
	if isNotFound(err) {
		return errHttpNotFound
	}
	return err
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that answers in plain text.
// Unexpected errors are logged with the caller's identity and never shown outside debug mode.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var (
			code    int
			message string
		)

		if herr, ok := errors.Cause(err).(*echo.HTTPError); ok {
			if herr.Internal != nil {
				if inner, ok := herr.Internal.(*echo.HTTPError); ok {
					herr = inner
				}
			}
			code = herr.Code
			message = fmt.Sprint(herr.Message)
		} else {
			code = http.StatusInternalServerError
			message = http.StatusText(code)
			logger.Error(message, errors.Wrap(err, message), contextIdentity(ctx))

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.String(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
