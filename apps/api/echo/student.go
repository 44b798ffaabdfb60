package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/escola/core/dashboard"
	"github.com/trezcool/escola/core/user"
)

type studentApi struct {
	dashSvc dashboard.Service
}

func registerStudentRoutes(e *echo.Echo, opts *Options) {
	api := studentApi{dashSvc: opts.DashboardSvc}

	e.GET("/student/dashboard", gate(api.dashboard, user.RoleStudent, user.RoleGuardian))
	e.GET("/students/:id/report-card", gate(api.reportCard, user.RoleStudent, user.RoleGuardian))
}

func (api *studentApi) dashboard(ctx echo.Context, id user.Identity) error {
	dash, err := api.dashSvc.StudentDashboard(ctx.Request().Context(), id, queryID(ctx, "student_id"))
	if err != nil {
		switch errors.Cause(err) {
		case dashboard.ErrNotLinked:
			return redirectWithFlash(ctx, "/student/dashboard", flashWarning, err.Error())
		case dashboard.ErrForbidden:
			return redirectWithFlash(ctx, landing(id), flashDanger, err.Error())
		}
		return pageError(errors.Wrap(err, "building student dashboard"))
	}

	if dash.Student == nil {
		if err = addFlash(ctx, flashWarning, "No student is linked to your account yet."); err != nil {
			return err
		}
	}
	return render(ctx, http.StatusOK, "student_dashboard", dash)
}

func (api *studentApi) reportCard(ctx echo.Context, id user.Identity) error {
	studentID, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	card, err := api.dashSvc.ReportCard(ctx.Request().Context(), id, studentID)
	if err != nil {
		switch errors.Cause(err) {
		case dashboard.ErrNotLinked, dashboard.ErrForbidden:
			return redirectWithFlash(ctx, "/student/dashboard", flashDanger, err.Error())
		}
		return pageError(errors.Wrap(err, "building report card"))
	}
	return render(ctx, http.StatusOK, "report_card", card)
}
