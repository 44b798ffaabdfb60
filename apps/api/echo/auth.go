package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/escola/core/user"
)

type (
	loginForm struct {
		Email    string `form:"email"`
		Password string `form:"password"`
	}

	forgotPasswordForm struct {
		Email string `form:"email"`
	}
)

type authApi struct {
	usrSvc     user.Service
	translator ut.Translator
}

func registerAuthRoutes(e *echo.Echo, opts *Options) {
	api := authApi{usrSvc: opts.UserSvc, translator: opts.Translator}

	// TODO: rate limit `/login` & `/forgot-password`
	e.GET("/login", api.loginPage)
	e.POST("/login", api.login)
	e.GET("/logout", api.logout)
	e.GET("/forgot-password", api.forgotPasswordPage)
	e.POST("/forgot-password", api.forgotPassword)
	e.GET("/reset-password/:token", api.resetPasswordPage)
	e.POST("/reset-password/:token", api.resetPassword)
}

func (api *authApi) loginPage(ctx echo.Context) error {
	if id := contextIdentity(ctx); !id.IsZero() {
		return redirect(ctx, landing(id))
	}
	return render(ctx, http.StatusOK, "login", nil)
}

func (api *authApi) login(ctx echo.Context) error {
	var data loginForm
	if err := bind(ctx, &data); err != nil {
		return formError(ctx, api.translator, err, "/login")
	}

	usr, err := api.usrSvc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		if errors.Cause(err) == user.ErrAuthenticationFailed {
			return redirectWithFlash(ctx, "/login", flashDanger, err.Error())
		}
		return errors.Wrap(err, "authenticating")
	}

	id := usr.Identity()
	if err = login(ctx, id); err != nil {
		return err
	}
	return redirectWithFlash(ctx, landing(id), flashSuccess, "Welcome, "+usr.Name+"!")
}

func (api *authApi) logout(ctx echo.Context) error {
	if err := logout(ctx); err != nil {
		return err
	}
	return redirectWithFlash(ctx, "/login", flashInfo, "You have been logged out.")
}

func (api *authApi) forgotPasswordPage(ctx echo.Context) error {
	return render(ctx, http.StatusOK, "forgot_password", nil)
}

// forgotPassword answers the same way whether the email is known or not.
func (api *authApi) forgotPassword(ctx echo.Context) error {
	var data forgotPasswordForm
	if err := bind(ctx, &data); err != nil {
		return formError(ctx, api.translator, err, "/forgot-password")
	}
	if err := api.usrSvc.RequestPasswordReset(ctx.Request().Context(), data.Email); err != nil {
		return errors.Wrap(err, "requesting password reset")
	}
	return redirectWithFlash(ctx, "/login", flashInfo,
		"If an account exists for this email, a password reset link has been sent to it.")
}

func (api *authApi) resetPasswordPage(ctx echo.Context) error {
	return render(ctx, http.StatusOK, "reset_password", echo.Map{"token": ctx.Param("token")})
}

func (api *authApi) resetPassword(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := bind(ctx, &data); err != nil {
		return formError(ctx, api.translator, err, ctx.Request().URL.Path)
	}

	_, err := api.usrSvc.ResetPassword(ctx.Request().Context(), data)
	if err != nil {
		switch errors.Cause(err) {
		case user.ErrTokenExpired:
			return redirectWithFlash(ctx, "/forgot-password", flashDanger,
				"This password reset link has expired. Please request a new one.")
		case user.ErrInvalidToken:
			return redirectWithFlash(ctx, "/forgot-password", flashDanger,
				"This password reset link is invalid or has already been used.")
		}
		return formError(ctx, api.translator, err, ctx.Request().URL.Path)
	}
	return redirectWithFlash(ctx, "/login", flashSuccess, "Your password has been reset. You can now log in.")
}
