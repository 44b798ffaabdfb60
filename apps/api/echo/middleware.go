package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/escola/core/user"
)

// identityHandler is a route handler that needs the caller's identity.
type identityHandler func(ctx echo.Context, id user.Identity) error

// gate only calls handler when the session holds an identity whose role is in roles.
// Anonymous callers are sent to the login page, others to their own landing page.
func gate(handler identityHandler, roles ...user.Role) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		id := contextIdentity(ctx)
		if id.IsZero() {
			return redirectWithFlash(ctx, "/login", flashWarning, "Please log in to continue.")
		}
		if !id.Role.In(roles...) {
			return redirectWithFlash(ctx, landing(id), flashDanger, "You are not allowed to access this page.")
		}
		return handler(ctx, id)
	}
}

// refreshIdentity reloads the session's user on every request, so role changes apply
// at once and deleted users are logged out.
func refreshIdentity(usrSvc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id := contextIdentity(ctx)
			if id.IsZero() {
				return next(ctx)
			}
			usr, err := usrSvc.GetByID(ctx.Request().Context(), id.ID)
			switch {
			case errors.Cause(err) == user.ErrNotFound:
				err = logout(ctx)
			case err != nil:
				return errors.Wrap(err, "refreshing identity")
			case usr.Identity() != id:
				err = login(ctx, usr.Identity())
			}
			if err != nil {
				return err
			}
			return next(ctx)
		}
	}
}

// landing returns the home route of id's role.
func landing(id user.Identity) string {
	switch id.Role {
	case user.RoleManager:
		return "/"
	case user.RoleTeacher:
		return "/teachers/" + strconv.FormatInt(id.ID, 10)
	case user.RoleStudent, user.RoleGuardian:
		return "/student/dashboard"
	default:
		return "/login"
	}
}

func redirect(ctx echo.Context, to string) error {
	return ctx.Redirect(http.StatusSeeOther, to)
}

func redirectWithFlash(ctx echo.Context, to, level, msg string) error {
	if err := addFlash(ctx, level, msg); err != nil {
		return err
	}
	return redirect(ctx, to)
}
