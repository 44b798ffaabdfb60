package echoapi

import (
	"net/http"
	"strconv"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/escola/core/user"
)

type userApi struct {
	svc        user.Service
	translator ut.Translator
}

func registerUserRoutes(e *echo.Echo, opts *Options) {
	api := userApi{svc: opts.UserSvc, translator: opts.Translator}

	e.GET("/users", gate(api.query, user.RoleManager))
	e.POST("/users", gate(api.create, user.RoleManager))
	e.GET("/users/:id/edit", gate(api.edit, user.RoleManager))
	e.POST("/users/:id/edit", gate(api.update, user.RoleManager))
	e.POST("/users/:id/delete", gate(api.destroy, user.RoleManager))

	e.POST("/guardians/:id/students", gate(api.linkStudent, user.RoleManager))
	e.POST("/guardians/:id/students/:studentID/delete", gate(api.unlinkStudent, user.RoleManager))
}

func userEditURL(id int64) string {
	return "/users/" + strconv.FormatInt(id, 10) + "/edit"
}

// Handlers

func (api *userApi) query(ctx echo.Context, _ user.Identity) error {
	var filter user.QueryFilter
	if err := bind(ctx, &filter); err != nil {
		return formError(ctx, api.translator, err, "/users")
	}

	users, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	return render(ctx, http.StatusOK, "users", echo.Map{
		"users":  users,
		"filter": filter,
		"roles":  user.AllRoles,
	})
}

func (api *userApi) create(ctx echo.Context, _ user.Identity) error {
	var data user.NewUser
	if err := bind(ctx, &data); err != nil {
		return formError(ctx, api.translator, err, "/users")
	}

	if _, err := api.svc.Create(ctx.Request().Context(), data); err != nil {
		return formError(ctx, api.translator, err, "/users")
	}
	return redirectWithFlash(ctx, "/users", flashSuccess, "User created successfully!")
}

func (api *userApi) edit(ctx echo.Context, _ user.Identity) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return pageError(errors.Wrap(err, "getting user"))
	}

	data := echo.Map{"user": usr, "roles": user.AllRoles}
	if usr.Role == user.RoleGuardian {
		linked, err := api.svc.LinkedStudents(ctx.Request().Context(), usr.ID)
		if err != nil {
			return errors.Wrap(err, "getting linked students")
		}
		unlinked, err := api.svc.UnlinkedStudents(ctx.Request().Context())
		if err != nil {
			return errors.Wrap(err, "getting unlinked students")
		}
		data["linked_students"] = linked
		data["unlinked_students"] = unlinked
	}
	return render(ctx, http.StatusOK, "user_edit", data)
}

func (api *userApi) update(ctx echo.Context, _ user.Identity) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data user.UpdateUser
	if err = bind(ctx, &data); err != nil {
		return formError(ctx, api.translator, err, userEditURL(id))
	}

	if _, err = api.svc.Update(ctx.Request().Context(), id, data); err != nil {
		if isNotFound(err) {
			return formError(ctx, api.translator, err, "/users")
		}
		return formError(ctx, api.translator, err, userEditURL(id))
	}
	return redirectWithFlash(ctx, "/users", flashSuccess, "User updated successfully!")
}

func (api *userApi) destroy(ctx echo.Context, actor user.Identity) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), actor, id); err != nil {
		return formError(ctx, api.translator, err, "/users")
	}
	return redirectWithFlash(ctx, "/users", flashInfo, "User deleted successfully.")
}

func (api *userApi) linkStudent(ctx echo.Context, _ user.Identity) error {
	guardianID, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	back := userEditURL(guardianID)
	studentID, err := formID(ctx, "student_id")
	if err != nil {
		return formError(ctx, api.translator, err, back)
	}

	if err = api.svc.LinkStudent(ctx.Request().Context(), guardianID, studentID); err != nil {
		return formError(ctx, api.translator, err, back)
	}
	return redirectWithFlash(ctx, back, flashSuccess, "Student linked successfully!")
}

func (api *userApi) unlinkStudent(ctx echo.Context, _ user.Identity) error {
	guardianID, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	studentID, err := pathID(ctx, "studentID")
	if err != nil {
		return err
	}

	if err = api.svc.UnlinkStudent(ctx.Request().Context(), guardianID, studentID); err != nil {
		return errors.Wrap(err, "unlinking student")
	}
	return redirectWithFlash(ctx, userEditURL(guardianID), flashInfo, "Student unlinked.")
}
