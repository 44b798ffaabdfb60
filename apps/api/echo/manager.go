package echoapi

import (
	"net/http"
	"strconv"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/escola/core/announcement"
	"github.com/trezcool/escola/core/dashboard"
	"github.com/trezcool/escola/core/subject"
	"github.com/trezcool/escola/core/user"
)

type managerApi struct {
	subSvc     subject.Service
	annSvc     announcement.Service
	dashSvc    dashboard.Service
	translator ut.Translator
}

func registerManagerRoutes(e *echo.Echo, opts *Options) {
	registerUserRoutes(e, opts)

	api := managerApi{
		subSvc:     opts.SubjectSvc,
		annSvc:     opts.AnnouncementSvc,
		dashSvc:    opts.DashboardSvc,
		translator: opts.Translator,
	}
	manager := user.RoleManager

	e.GET("/", gate(api.home, manager))
	e.GET("/reports", gate(api.reports, manager))

	e.GET("/subjects", gate(api.querySubjects, manager))
	e.POST("/subjects", gate(api.createSubject, manager))
	e.GET("/subjects/:id", gate(api.subjectDetails, manager))
	e.GET("/subjects/:id/edit", gate(api.editSubject, manager))
	e.POST("/subjects/:id/edit", gate(api.updateSubject, manager))
	e.POST("/subjects/:id/delete", gate(api.destroySubject, manager))
	e.POST("/subjects/:id/teachers", gate(api.assignTeacher, manager))
	e.POST("/subjects/:id/teachers/:teacherID/delete", gate(api.unassignTeacher, manager))
	e.POST("/subjects/:id/students", gate(api.enrollStudent, manager))
	e.POST("/subjects/:id/students/:studentID/delete", gate(api.unenrollStudent, manager))

	e.GET("/announcements", gate(api.queryAnnouncements, manager))
	e.POST("/announcements", gate(api.publishAnnouncement, manager))
	e.POST("/announcements/:id/delete", gate(api.destroyAnnouncement, manager))
}

func subjectURL(id int64) string {
	return "/subjects/" + strconv.FormatInt(id, 10)
}

func (api *managerApi) home(ctx echo.Context, _ user.Identity) error {
	home, err := api.dashSvc.ManagerHome(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building manager home")
	}
	return render(ctx, http.StatusOK, "manager_home", home)
}

func (api *managerApi) reports(ctx echo.Context, _ user.Identity) error {
	averages, err := api.dashSvc.GradeReport(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building grade report")
	}
	return render(ctx, http.StatusOK, "reports", echo.Map{"averages": averages})
}

// Subjects

func (api *managerApi) querySubjects(ctx echo.Context, _ user.Identity) error {
	subjects, err := api.subSvc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	return render(ctx, http.StatusOK, "subjects", echo.Map{"subjects": subjects})
}

func (api *managerApi) createSubject(ctx echo.Context, _ user.Identity) error {
	var data subject.NewSubject
	if err := bind(ctx, &data); err != nil {
		return formError(ctx, api.translator, err, "/subjects")
	}

	if _, err := api.subSvc.Create(ctx.Request().Context(), data); err != nil {
		return formError(ctx, api.translator, err, "/subjects")
	}
	return redirectWithFlash(ctx, "/subjects", flashSuccess, "Subject created successfully!")
}

func (api *managerApi) subjectDetails(ctx echo.Context, _ user.Identity) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	details, err := api.subSvc.Details(ctx.Request().Context(), id)
	if err != nil {
		return pageError(errors.Wrap(err, "getting subject details"))
	}
	return render(ctx, http.StatusOK, "subject_detail", details)
}

func (api *managerApi) editSubject(ctx echo.Context, _ user.Identity) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	sub, err := api.subSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return pageError(errors.Wrap(err, "getting subject"))
	}
	return render(ctx, http.StatusOK, "subject_edit", echo.Map{"subject": sub})
}

func (api *managerApi) updateSubject(ctx echo.Context, _ user.Identity) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	back := subjectURL(id) + "/edit"
	var data subject.NewSubject
	if err = bind(ctx, &data); err != nil {
		return formError(ctx, api.translator, err, back)
	}

	if _, err = api.subSvc.Update(ctx.Request().Context(), id, data); err != nil {
		if isNotFound(err) {
			return formError(ctx, api.translator, err, "/subjects")
		}
		return formError(ctx, api.translator, err, back)
	}
	return redirectWithFlash(ctx, subjectURL(id), flashSuccess, "Subject updated successfully!")
}

func (api *managerApi) destroySubject(ctx echo.Context, _ user.Identity) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.subSvc.Delete(ctx.Request().Context(), id); err != nil {
		return formError(ctx, api.translator, err, "/subjects")
	}
	return redirectWithFlash(ctx, "/subjects", flashInfo, "Subject deleted successfully.")
}

// subjectMember runs op on the subject of the path and the member id of the form.
func (api *managerApi) subjectMember(ctx echo.Context, field, done string, op func(ctx echo.Context, subjectID, memberID int64) error) error {
	subjectID, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	back := subjectURL(subjectID)
	memberID, err := formID(ctx, field)
	if err != nil {
		return formError(ctx, api.translator, err, back)
	}
	if err = op(ctx, subjectID, memberID); err != nil {
		return formError(ctx, api.translator, err, back)
	}
	return redirectWithFlash(ctx, back, flashSuccess, done)
}

func (api *managerApi) assignTeacher(ctx echo.Context, _ user.Identity) error {
	return api.subjectMember(ctx, "teacher_id", "Teacher assigned successfully!",
		func(ctx echo.Context, subjectID, teacherID int64) error {
			return api.subSvc.AssignTeacher(ctx.Request().Context(), subjectID, teacherID)
		})
}

func (api *managerApi) enrollStudent(ctx echo.Context, _ user.Identity) error {
	return api.subjectMember(ctx, "student_id", "Student enrolled successfully!",
		func(ctx echo.Context, subjectID, studentID int64) error {
			return api.subSvc.EnrollStudent(ctx.Request().Context(), subjectID, studentID)
		})
}

func (api *managerApi) unassignTeacher(ctx echo.Context, _ user.Identity) error {
	subjectID, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	teacherID, err := pathID(ctx, "teacherID")
	if err != nil {
		return err
	}
	if err = api.subSvc.UnassignTeacher(ctx.Request().Context(), subjectID, teacherID); err != nil {
		return errors.Wrap(err, "unassigning teacher")
	}
	return redirectWithFlash(ctx, subjectURL(subjectID), flashInfo, "Teacher removed from the subject.")
}

func (api *managerApi) unenrollStudent(ctx echo.Context, _ user.Identity) error {
	subjectID, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	studentID, err := pathID(ctx, "studentID")
	if err != nil {
		return err
	}
	if err = api.subSvc.UnenrollStudent(ctx.Request().Context(), subjectID, studentID); err != nil {
		return errors.Wrap(err, "unenrolling student")
	}
	return redirectWithFlash(ctx, subjectURL(subjectID), flashInfo, "Student removed from the subject.")
}

// Announcements

func (api *managerApi) queryAnnouncements(ctx echo.Context, _ user.Identity) error {
	anns, err := api.annSvc.Recent(ctx.Request().Context(), 0)
	if err != nil {
		return errors.Wrap(err, "querying announcements")
	}
	return render(ctx, http.StatusOK, "announcements", echo.Map{"announcements": anns})
}

func (api *managerApi) publishAnnouncement(ctx echo.Context, author user.Identity) error {
	var data announcement.NewAnnouncement
	if err := bind(ctx, &data); err != nil {
		return formError(ctx, api.translator, err, "/announcements")
	}

	if _, err := api.annSvc.Publish(ctx.Request().Context(), author.ID, data); err != nil {
		return formError(ctx, api.translator, err, "/announcements")
	}
	return redirectWithFlash(ctx, "/announcements", flashSuccess, "Announcement published successfully!")
}

func (api *managerApi) destroyAnnouncement(ctx echo.Context, _ user.Identity) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.annSvc.Delete(ctx.Request().Context(), id); err != nil {
		return formError(ctx, api.translator, err, "/announcements")
	}
	return redirectWithFlash(ctx, "/announcements", flashInfo, "Announcement deleted successfully.")
}
