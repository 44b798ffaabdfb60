package echoapi

import (
	"strconv"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/escola/core"
)

var errInvalidID = errors.New("invalid id")

// pathID parses the named path param; malformed ids answer 404.
func pathID(ctx echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}

// formID parses the named form value.
func formID(ctx echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(ctx.FormValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// queryID parses the named query param, 0 when absent or malformed.
func queryID(ctx echo.Context, name string) int64 {
	id, _ := strconv.ParseInt(ctx.QueryParam(name), 10, 64)
	return id
}

// bind fills data from the request, failing with a 400 on malformed input.
func bind(ctx echo.Context, data interface{}) error {
	if err := ctx.Bind(data); err != nil {
		return core.NewValidationError(errors.New("malformed form data"))
	}
	return nil
}

// formError reports err to the user as flashes and redirects to redirectTo.
// Errors the user cannot act upon are returned as is.
func formError(ctx echo.Context, translator ut.Translator, err error, redirectTo string) error {
	if flds := core.FieldErrors(err, translator); flds != nil {
		for _, f := range flds {
			msg := f.Error
			if f.Field != "" && !strings.HasPrefix(msg, f.Field) {
				msg = f.Field + ": " + msg
			}
			if err := addFlash(ctx, flashDanger, msg); err != nil {
				return err
			}
		}
		return redirect(ctx, redirectTo)
	}

	cause := errors.Cause(err)
	if warningErrs[cause] || notFoundErrs[cause] || formErrs[cause] {
		return redirectWithFlash(ctx, redirectTo, flashWarning, cause.Error())
	}
	return err
}
