package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/escola/core/user"
)

type profileApi struct {
	usrSvc     user.Service
	translator ut.Translator
}

func registerProfileRoutes(e *echo.Echo, opts *Options) {
	api := profileApi{usrSvc: opts.UserSvc, translator: opts.Translator}

	e.GET("/profile", gate(api.retrieve, user.AllRoles...))
	e.POST("/profile", gate(api.update, user.AllRoles...))
}

func (api *profileApi) retrieve(ctx echo.Context, id user.Identity) error {
	usr, err := api.usrSvc.GetByID(ctx.Request().Context(), id.ID)
	if err != nil {
		return errors.Wrap(err, "getting profile")
	}
	return render(ctx, http.StatusOK, "profile", echo.Map{"user": usr})
}

func (api *profileApi) update(ctx echo.Context, id user.Identity) error {
	var data user.UpdateProfile
	if err := bind(ctx, &data); err != nil {
		return formError(ctx, api.translator, err, "/profile")
	}

	usr, err := api.usrSvc.UpdateProfile(ctx.Request().Context(), id.ID, data)
	if err != nil {
		return formError(ctx, api.translator, err, "/profile")
	}
	// the session keeps the displayed name
	if err = login(ctx, usr.Identity()); err != nil {
		return err
	}
	return redirectWithFlash(ctx, "/profile", flashSuccess, "Profile updated successfully!")
}
