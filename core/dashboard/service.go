package dashboard

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/announcement"
	"github.com/trezcool/escola/core/attendance"
	"github.com/trezcool/escola/core/grade"
	"github.com/trezcool/escola/core/subject"
	"github.com/trezcool/escola/core/user"
)

var (
	// errors
	ErrForbidden       = errors.New("you are not allowed to see this student")
	ErrNotLinked       = errors.New("you are not linked to this student")
	ErrStudentNotFound = errors.New("student not found")
)

type (
	Service interface {
		ManagerHome(ctx context.Context) (ManagerHome, error)
		TeacherDashboard(ctx context.Context, teacherID int64) (TeacherDashboard, error)
		// StudentDashboard resolves the student to show: the viewer themself, or for a guardian the
		// requested linked student, defaulting to the first linked one by name.
		StudentDashboard(ctx context.Context, viewer user.Identity, requestedID int64) (StudentDashboard, error)
		ReportCard(ctx context.Context, viewer user.Identity, studentID int64) (ReportCard, error)
		GradeReport(ctx context.Context) ([]grade.SubjectAverage, error)
	}

	service struct {
		usrSvc   user.Service
		subSvc   subject.Service
		gradeSvc grade.Service
		attSvc   attendance.Service
		annSvc   announcement.Service
	}
)

var _ Service = (*service)(nil)

func NewService(
	usrSvc user.Service,
	subSvc subject.Service,
	gradeSvc grade.Service,
	attSvc attendance.Service,
	annSvc announcement.Service,
) Service {
	return &service{
		usrSvc:   usrSvc,
		subSvc:   subSvc,
		gradeSvc: gradeSvc,
		attSvc:   attSvc,
		annSvc:   annSvc,
	}
}

func (svc *service) ManagerHome(ctx context.Context) (ManagerHome, error) {
	counts, err := svc.usrSvc.CountByRole(ctx)
	if err != nil {
		return ManagerHome{}, errors.Wrap(err, "counting users")
	}
	subjects, err := svc.subSvc.Count(ctx)
	if err != nil {
		return ManagerHome{}, errors.Wrap(err, "counting subjects")
	}
	anns, err := svc.annSvc.Recent(ctx, managerAnnouncements)
	if err != nil {
		return ManagerHome{}, errors.Wrap(err, "querying announcements")
	}
	return ManagerHome{
		Students:      counts[user.RoleStudent],
		Teachers:      counts[user.RoleTeacher],
		Guardians:     counts[user.RoleGuardian],
		Subjects:      subjects,
		Announcements: anns,
	}, nil
}

func (svc *service) TeacherDashboard(ctx context.Context, teacherID int64) (TeacherDashboard, error) {
	teacher, err := svc.usrSvc.GetByID(ctx, teacherID)
	if err != nil {
		return TeacherDashboard{}, err
	}
	if teacher.Role != user.RoleTeacher {
		return TeacherDashboard{}, user.ErrNotFound
	}
	subs, err := svc.subSvc.TeacherSubjects(ctx, teacherID)
	if err != nil {
		return TeacherDashboard{}, errors.Wrap(err, "querying subjects")
	}
	anns, err := svc.annSvc.Recent(ctx, recentAnnouncements)
	if err != nil {
		return TeacherDashboard{}, errors.Wrap(err, "querying announcements")
	}
	return TeacherDashboard{Teacher: teacher, Subjects: subs, Announcements: anns}, nil
}

func (svc *service) StudentDashboard(ctx context.Context, viewer user.Identity, requestedID int64) (StudentDashboard, error) {
	var (
		dash      StudentDashboard
		studentID int64
		err       error
	)

	switch viewer.Role {
	case user.RoleStudent:
		studentID = viewer.ID
	case user.RoleGuardian:
		if dash.LinkedStudents, err = svc.usrSvc.LinkedStudents(ctx, viewer.ID); err != nil {
			return StudentDashboard{}, errors.Wrap(err, "querying linked students")
		}
		if requestedID != 0 {
			if !hasUser(dash.LinkedStudents, requestedID) {
				return StudentDashboard{}, ErrNotLinked
			}
			studentID = requestedID
		} else if len(dash.LinkedStudents) > 0 {
			studentID = dash.LinkedStudents[0].ID
		}
	default:
		return StudentDashboard{}, ErrForbidden
	}

	if dash.Announcements, err = svc.annSvc.Recent(ctx, recentAnnouncements); err != nil {
		return StudentDashboard{}, errors.Wrap(err, "querying announcements")
	}
	if studentID == 0 {
		return dash, nil
	}

	student, err := svc.student(ctx, studentID)
	if err != nil {
		return StudentDashboard{}, err
	}
	dash.Student = &student

	subs, err := svc.subSvc.StudentSubjects(ctx, studentID)
	if err != nil {
		return StudentDashboard{}, errors.Wrap(err, "querying subjects")
	}
	dash.Subjects = make([]SubjectProgress, 0, len(subs))
	for _, sub := range subs {
		p, err := svc.progress(ctx, studentID, sub)
		if err != nil {
			return StudentDashboard{}, err
		}
		dash.Subjects = append(dash.Subjects, p)
	}
	return dash, nil
}

func (svc *service) progress(ctx context.Context, studentID int64, sub subject.Subject) (SubjectProgress, error) {
	grades, err := svc.gradeSvc.StudentHistory(ctx, studentID, sub.ID)
	if err != nil {
		return SubjectProgress{}, errors.Wrap(err, "querying grades")
	}
	records, err := svc.attSvc.StudentRecords(ctx, studentID, sub.ID)
	if err != nil {
		return SubjectProgress{}, errors.Wrap(err, "querying attendance")
	}
	summary := attendance.Summarize(records)

	newest := make([]attendance.Record, len(records))
	for i, r := range records {
		newest[len(records)-1-i] = r
	}
	return SubjectProgress{
		Subject:    sub,
		Average:    grade.Average(grade.Values(grades)),
		Grades:     grades,
		Attendance: summary,
		Percent:    int(summary.Percentage),
		Records:    newest,
	}, nil
}

func (svc *service) ReportCard(ctx context.Context, viewer user.Identity, studentID int64) (ReportCard, error) {
	switch viewer.Role {
	case user.RoleStudent:
		if viewer.ID != studentID {
			return ReportCard{}, ErrForbidden
		}
	case user.RoleGuardian:
		ok, err := svc.usrSvc.IsGuardianOf(ctx, viewer.ID, studentID)
		if err != nil {
			return ReportCard{}, errors.Wrap(err, "checking guardian link")
		}
		if !ok {
			return ReportCard{}, ErrNotLinked
		}
	default:
		return ReportCard{}, ErrForbidden
	}

	student, err := svc.student(ctx, studentID)
	if err != nil {
		return ReportCard{}, err
	}
	card := ReportCard{Student: student}

	subs, err := svc.subSvc.StudentSubjects(ctx, studentID)
	if err != nil {
		return ReportCard{}, errors.Wrap(err, "querying subjects")
	}
	card.Subjects = make([]ReportCardSubject, 0, len(subs))
	for _, sub := range subs {
		assessments, err := svc.gradeSvc.StudentAssessments(ctx, studentID, sub.ID)
		if err != nil {
			return ReportCard{}, errors.Wrap(err, "querying assessments")
		}
		records, err := svc.attSvc.StudentRecords(ctx, studentID, sub.ID)
		if err != nil {
			return ReportCard{}, errors.Wrap(err, "querying attendance")
		}
		summary := attendance.Summarize(records)
		summary.Percentage = core.Round(summary.Percentage, 2)
		card.Subjects = append(card.Subjects, ReportCardSubject{
			Subject:     sub,
			Assessments: assessments,
			Records:     records,
			Attendance:  summary,
		})
	}

	if card.Announcements, err = svc.annSvc.Recent(ctx, recentAnnouncements); err != nil {
		return ReportCard{}, errors.Wrap(err, "querying announcements")
	}
	return card, nil
}

func (svc *service) GradeReport(ctx context.Context) ([]grade.SubjectAverage, error) {
	return svc.gradeSvc.SubjectAverages(ctx)
}

func (svc *service) student(ctx context.Context, id int64) (user.User, error) {
	usr, err := svc.usrSvc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, ErrStudentNotFound
		}
		return user.User{}, errors.Wrap(err, "finding student")
	}
	if usr.Role != user.RoleStudent {
		return user.User{}, ErrStudentNotFound
	}
	return usr, nil
}

func hasUser(users []user.User, id int64) bool {
	for _, u := range users {
		if u.ID == id {
			return true
		}
	}
	return false
}
