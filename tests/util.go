package testutil

import (
	"context"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/announcement"
	"github.com/trezcool/escola/core/attendance"
	"github.com/trezcool/escola/core/dashboard"
	"github.com/trezcool/escola/core/grade"
	"github.com/trezcool/escola/core/lessonplan"
	"github.com/trezcool/escola/core/subject"
	"github.com/trezcool/escola/core/user"
	"github.com/trezcool/escola/fs"
	"github.com/trezcool/escola/services/email"
	"github.com/trezcool/escola/storage/database/inmem"
)

// Services wires every core service over a fresh in-memory store.
type Services struct {
	Conf       *core.Config
	DB         *inmemdb.DB
	Validate   *validator.Validate
	Translator ut.Translator

	UsrRepo user.Repository

	Users         user.Service
	Subjects      subject.Service
	Grades        grade.Service
	Attendance    attendance.Service
	LessonPlans   lessonplan.Service
	Announcements announcement.Service
	Dashboard     dashboard.Service
}

func NewValidator() *validator.Validate {
	validate, _ := NewValidatorTranslator()
	return validate
}

// NewValidatorTranslator returns a validator with every app validator registered, and its translator.
func NewValidatorTranslator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

func NewServices(t *testing.T) *Services {
	t.Helper()
	if err := core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, true); err != nil {
		t.Fatalf("ParseEmailTemplates() failed: %v", err)
	}
	emailsvc.ClearSentMessages()

	conf := core.NewTestConfig()
	db := inmemdb.NewDB()
	validate, translator := NewValidatorTranslator()
	usrRepo := inmemdb.NewUserRepository(db)

	s := &Services{Conf: conf, DB: db, Validate: validate, Translator: translator, UsrRepo: usrRepo}
	s.Users = user.NewService(conf, usrRepo, emailsvc.NewConsoleServiceMock(conf), validate)
	s.Subjects = subject.NewService(inmemdb.NewSubjectRepository(db), s.Users, validate)
	s.Grades = grade.NewService(inmemdb.NewGradeRepository(db), s.Subjects, validate)
	s.Attendance = attendance.NewService(inmemdb.NewAttendanceRepository(db), s.Subjects)
	s.LessonPlans = lessonplan.NewService(inmemdb.NewLessonPlanRepository(db), validate)
	s.Announcements = announcement.NewService(inmemdb.NewAnnouncementRepository(db), validate)
	s.Dashboard = dashboard.NewService(s.Users, s.Subjects, s.Grades, s.Attendance, s.Announcements)
	return s
}

// CreateUser stores a user directly; pwd may be empty when the test never logs in.
func CreateUser(t *testing.T, repo user.Repository, name, email, pwd string, role user.Role) user.User {
	t.Helper()
	now := core.NowFunc().UTC()
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.Create(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateSubject(t *testing.T, svc subject.Service, name string, year int, term string) subject.Subject {
	t.Helper()
	sub, err := svc.Create(context.Background(), subject.NewSubject{Name: name, Year: year, Term: term})
	if err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}
	return sub
}

func Enroll(t *testing.T, svc subject.Service, subjectID int64, studentIDs ...int64) {
	t.Helper()
	for _, id := range studentIDs {
		if err := svc.EnrollStudent(context.Background(), subjectID, id); err != nil {
			t.Fatalf("Enroll() failed: %v", err)
		}
	}
}

func Assign(t *testing.T, svc subject.Service, subjectID int64, teacherIDs ...int64) {
	t.Helper()
	for _, id := range teacherIDs {
		if err := svc.AssignTeacher(context.Background(), subjectID, id); err != nil {
			t.Fatalf("Assign() failed: %v", err)
		}
	}
}

func CreateAssessment(t *testing.T, svc grade.Service, subjectID int64, title, date string) grade.Assessment {
	t.Helper()
	a, err := svc.CreateAssessment(context.Background(), subjectID, grade.NewAssessment{Title: title, Date: date})
	if err != nil {
		t.Fatalf("CreateAssessment() failed: %v", err)
	}
	return a
}
