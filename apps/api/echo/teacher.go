package echoapi

import (
	"net/http"
	"net/url"
	"strconv"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/attendance"
	"github.com/trezcool/escola/core/dashboard"
	"github.com/trezcool/escola/core/grade"
	"github.com/trezcool/escola/core/lessonplan"
	"github.com/trezcool/escola/core/subject"
	"github.com/trezcool/escola/core/user"
)

const errNotAssigned = "You are not assigned to this subject."

type (
	teacherApi struct {
		subSvc     subject.Service
		gradeSvc   grade.Service
		attSvc     attendance.Service
		planSvc    lessonplan.Service
		dashSvc    dashboard.Service
		translator ut.Translator
	}

	// subjectHandler is a route handler scoped to one subject of the calling teacher.
	subjectHandler func(ctx echo.Context, id user.Identity, subjectID int64) error
)

func registerTeacherRoutes(e *echo.Echo, opts *Options) {
	api := teacherApi{
		subSvc:     opts.SubjectSvc,
		gradeSvc:   opts.GradeSvc,
		attSvc:     opts.AttendanceSvc,
		planSvc:    opts.LessonPlanSvc,
		dashSvc:    opts.DashboardSvc,
		translator: opts.Translator,
	}
	teacher := user.RoleTeacher

	e.GET("/teachers/:id", gate(api.dashboard, teacher))

	e.GET("/subjects/:id/grades", gate(api.ownSubject(api.gradebook), teacher))
	e.POST("/subjects/:id/grades", gate(api.ownSubject(api.saveGrades), teacher))
	e.POST("/subjects/:id/assessments", gate(api.ownSubject(api.createAssessment), teacher))
	e.POST("/subjects/:id/assessments/:assessmentID/delete", gate(api.ownSubject(api.destroyAssessment), teacher))

	e.GET("/subjects/:id/attendance", gate(api.ownSubject(api.attendanceSheet), teacher))
	e.POST("/subjects/:id/attendance", gate(api.ownSubject(api.saveAttendance), teacher))

	e.GET("/subjects/:id/lesson-plans", gate(api.ownSubject(api.queryPlans), teacher))
	e.POST("/subjects/:id/lesson-plans", gate(api.ownSubject(api.createPlan), teacher))
	e.GET("/lesson-plans/:id/edit", gate(api.editPlan, teacher))
	e.POST("/lesson-plans/:id/edit", gate(api.updatePlan, teacher))
	e.POST("/lesson-plans/:id/delete", gate(api.destroyPlan, teacher))
}

func gradesURL(subjectID int64) string {
	return subjectURL(subjectID) + "/grades"
}

func plansURL(subjectID int64) string {
	return subjectURL(subjectID) + "/lesson-plans"
}

func attendanceURL(subjectID int64, date string) string {
	u := subjectURL(subjectID) + "/attendance"
	if date != "" {
		u += "?" + url.Values{"date": {date}}.Encode()
	}
	return u
}

// ownSubject only calls h when the teacher is assigned to the subject of the path.
func (api *teacherApi) ownSubject(h subjectHandler) identityHandler {
	return func(ctx echo.Context, id user.Identity) error {
		subjectID, err := pathID(ctx, "id")
		if err != nil {
			return err
		}
		ok, err := api.isAssigned(ctx, id, subjectID)
		if !ok {
			return err
		}
		return h(ctx, id, subjectID)
	}
}

// isAssigned reports whether the teacher may manage the subject.
// When not, the teacher has already been redirected away.
func (api *teacherApi) isAssigned(ctx echo.Context, id user.Identity, subjectID int64) (bool, error) {
	ok, err := api.subSvc.IsTeacherOf(ctx.Request().Context(), id.ID, subjectID)
	if err != nil {
		return false, errors.Wrap(err, "checking subject assignment")
	}
	if !ok {
		return false, redirectWithFlash(ctx, landing(id), flashDanger, errNotAssigned)
	}
	return true, nil
}

func (api *teacherApi) dashboard(ctx echo.Context, id user.Identity) error {
	teacherID, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if teacherID != id.ID {
		return redirectWithFlash(ctx, landing(id), flashDanger, "You are not allowed to access this page.")
	}

	dash, err := api.dashSvc.TeacherDashboard(ctx.Request().Context(), teacherID)
	if err != nil {
		return pageError(errors.Wrap(err, "building teacher dashboard"))
	}
	return render(ctx, http.StatusOK, "teacher_dashboard", dash)
}

// Grades

func (api *teacherApi) gradebook(ctx echo.Context, _ user.Identity, subjectID int64) error {
	gb, err := api.gradeSvc.Gradebook(ctx.Request().Context(), subjectID)
	if err != nil {
		return pageError(errors.Wrap(err, "building gradebook"))
	}
	return render(ctx, http.StatusOK, "gradebook", gb)
}

func (api *teacherApi) saveGrades(ctx echo.Context, _ user.Identity, subjectID int64) error {
	form, err := ctx.FormParams()
	if err != nil {
		return formError(ctx, api.translator, core.NewValidationError(errors.New("malformed form data")), gradesURL(subjectID))
	}

	saved, err := api.gradeSvc.SaveGrades(ctx.Request().Context(), subjectID, form)
	if err != nil {
		return formError(ctx, api.translator, err, gradesURL(subjectID))
	}
	if saved == 0 {
		return redirectWithFlash(ctx, gradesURL(subjectID), flashInfo, "No grades to save.")
	}
	return redirectWithFlash(ctx, gradesURL(subjectID), flashSuccess, strconv.Itoa(saved)+" grade(s) saved successfully!")
}

func (api *teacherApi) createAssessment(ctx echo.Context, _ user.Identity, subjectID int64) error {
	var data grade.NewAssessment
	if err := bind(ctx, &data); err != nil {
		return formError(ctx, api.translator, err, gradesURL(subjectID))
	}

	if _, err := api.gradeSvc.CreateAssessment(ctx.Request().Context(), subjectID, data); err != nil {
		return formError(ctx, api.translator, err, gradesURL(subjectID))
	}
	return redirectWithFlash(ctx, gradesURL(subjectID), flashSuccess, "Assessment created successfully!")
}

func (api *teacherApi) destroyAssessment(ctx echo.Context, _ user.Identity, subjectID int64) error {
	assessmentID, err := pathID(ctx, "assessmentID")
	if err != nil {
		return err
	}
	if err = api.gradeSvc.DeleteAssessment(ctx.Request().Context(), subjectID, assessmentID); err != nil {
		return formError(ctx, api.translator, err, gradesURL(subjectID))
	}
	return redirectWithFlash(ctx, gradesURL(subjectID), flashInfo, "Assessment deleted.")
}

// Attendance

func (api *teacherApi) attendanceSheet(ctx echo.Context, _ user.Identity, subjectID int64) error {
	date, err := attendance.ParseDate(ctx.QueryParam("date"))
	if err != nil {
		return formError(ctx, api.translator, err, attendanceURL(subjectID, ""))
	}

	sheet, err := api.attSvc.Sheet(ctx.Request().Context(), subjectID, date)
	if err != nil {
		return pageError(errors.Wrap(err, "building attendance sheet"))
	}
	return render(ctx, http.StatusOK, "attendance", sheet)
}

func (api *teacherApi) saveAttendance(ctx echo.Context, _ user.Identity, subjectID int64) error {
	form, err := ctx.FormParams()
	if err != nil {
		return formError(ctx, api.translator, core.NewValidationError(errors.New("malformed form data")), attendanceURL(subjectID, ""))
	}
	date, err := attendance.ParseDate(form.Get("date"))
	if err != nil {
		return formError(ctx, api.translator, err, attendanceURL(subjectID, ""))
	}
	back := attendanceURL(subjectID, date.Format(core.DateLayout))
	present, err := attendance.ParsePresentForm(form)
	if err != nil {
		return formError(ctx, api.translator, err, back)
	}

	if _, err = api.attSvc.Save(ctx.Request().Context(), subjectID, date, present); err != nil {
		return formError(ctx, api.translator, err, back)
	}
	return redirectWithFlash(ctx, back, flashSuccess, "Attendance saved successfully!")
}

// Lesson plans

func (api *teacherApi) queryPlans(ctx echo.Context, _ user.Identity, subjectID int64) error {
	sub, err := api.subSvc.GetByID(ctx.Request().Context(), subjectID)
	if err != nil {
		return pageError(errors.Wrap(err, "getting subject"))
	}
	plans, err := api.planSvc.QueryBySubject(ctx.Request().Context(), subjectID)
	if err != nil {
		return errors.Wrap(err, "querying lesson plans")
	}
	return render(ctx, http.StatusOK, "lesson_plans", echo.Map{"subject": sub, "plans": plans})
}

func (api *teacherApi) createPlan(ctx echo.Context, id user.Identity, subjectID int64) error {
	var data lessonplan.NewPlan
	if err := bind(ctx, &data); err != nil {
		return formError(ctx, api.translator, err, plansURL(subjectID))
	}

	if _, err := api.planSvc.Create(ctx.Request().Context(), subjectID, id.ID, data); err != nil {
		return formError(ctx, api.translator, err, plansURL(subjectID))
	}
	return redirectWithFlash(ctx, plansURL(subjectID), flashSuccess, "Lesson plan created successfully!")
}

// ownPlan returns the plan of the path when its subject is assigned to the teacher.
func (api *teacherApi) ownPlan(ctx echo.Context, id user.Identity) (lessonplan.Plan, bool, error) {
	planID, err := pathID(ctx, "id")
	if err != nil {
		return lessonplan.Plan{}, false, err
	}
	plan, err := api.planSvc.GetByID(ctx.Request().Context(), planID)
	if err != nil {
		return lessonplan.Plan{}, false, pageError(errors.Wrap(err, "getting lesson plan"))
	}
	ok, err := api.isAssigned(ctx, id, plan.SubjectID)
	return plan, ok, err
}

func (api *teacherApi) editPlan(ctx echo.Context, id user.Identity) error {
	plan, ok, err := api.ownPlan(ctx, id)
	if !ok {
		return err
	}
	return render(ctx, http.StatusOK, "lesson_plan_edit", echo.Map{"plan": plan})
}

func (api *teacherApi) updatePlan(ctx echo.Context, id user.Identity) error {
	plan, ok, err := api.ownPlan(ctx, id)
	if !ok {
		return err
	}
	back := "/lesson-plans/" + strconv.FormatInt(plan.ID, 10) + "/edit"
	var data lessonplan.NewPlan
	if err = bind(ctx, &data); err != nil {
		return formError(ctx, api.translator, err, back)
	}

	if _, err = api.planSvc.Update(ctx.Request().Context(), plan.ID, data); err != nil {
		return formError(ctx, api.translator, err, back)
	}
	return redirectWithFlash(ctx, plansURL(plan.SubjectID), flashSuccess, "Lesson plan updated successfully!")
}

func (api *teacherApi) destroyPlan(ctx echo.Context, id user.Identity) error {
	plan, ok, err := api.ownPlan(ctx, id)
	if !ok {
		return err
	}
	if err = api.planSvc.Delete(ctx.Request().Context(), plan.ID); err != nil {
		return formError(ctx, api.translator, err, plansURL(plan.SubjectID))
	}
	return redirectWithFlash(ctx, plansURL(plan.SubjectID), flashInfo, "Lesson plan deleted.")
}
