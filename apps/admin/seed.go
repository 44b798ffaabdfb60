package main

import (
	"context"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/announcement"
	"github.com/trezcool/escola/core/grade"
	"github.com/trezcool/escola/core/lessonplan"
	"github.com/trezcool/escola/core/subject"
	"github.com/trezcool/escola/core/user"
)

const (
	defaultSeedPassword = "Escola.2024"
	seedAttendanceDays  = 10
)

var errNotEmpty = errors.New("the database already has users, refusing to seed")

type (
	seedUser struct {
		name, email string
		role        user.Role
	}

	seedAssessment struct {
		subject     int // index in seedSubjects
		title, date string
	}
)

var (
	seedManagers = []seedUser{
		{"Helena Ribeiro", "helena.ribeiro@escola.test", user.RoleManager},
	}
	seedTeachers = []seedUser{
		{"Maria Silva", "maria.silva@escola.test", user.RoleTeacher},
		{"João Santos", "joao.santos@escola.test", user.RoleTeacher},
		{"Ana Costa", "ana.costa@escola.test", user.RoleTeacher},
	}
	seedStudents = []seedUser{
		{"Pedro Oliveira", "pedro.oliveira@escola.test", user.RoleStudent},
		{"Ana Souza", "ana.souza@escola.test", user.RoleStudent},
		{"Carlos Lima", "carlos.lima@escola.test", user.RoleStudent},
		{"Mariana Santos", "mariana.santos@escola.test", user.RoleStudent},
		{"Lucas Ferreira", "lucas.ferreira@escola.test", user.RoleStudent},
	}
	// guardian i is linked to student i
	seedGuardians = []seedUser{
		{"José Oliveira", "jose.oliveira@escola.test", user.RoleGuardian},
		{"Maria Souza", "maria.souza@escola.test", user.RoleGuardian},
		{"Roberto Lima", "roberto.lima@escola.test", user.RoleGuardian},
	}

	// teacher i teaches subjects i and i+3
	seedSubjects = []subject.NewSubject{
		{Name: "Mathematics", Year: 9, Term: "1st semester"},
		{Name: "Portuguese", Year: 9, Term: "1st semester"},
		{Name: "History", Year: 9, Term: "1st semester"},
		{Name: "Geography", Year: 9, Term: "1st semester"},
		{Name: "Science", Year: 9, Term: "1st semester"},
		{Name: "English", Year: 9, Term: "1st semester"},
	}
	seedAssessments = []seedAssessment{
		{0, "Test 1 - Algebra", "2024-03-15"},
		{0, "Project - Geometry", "2024-04-10"},
		{1, "Test 1 - Grammar", "2024-03-20"},
		{1, "Essay", "2024-04-05"},
		{2, "Test - Colonial Brazil", "2024-03-25"},
	}
)

// seedGrade returns a stable grade between 6.0 and 10.0.
func seedGrade(student, assessment int) string {
	v := 6 + float64((student*7+assessment*3)%41)/10
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func (cli *commandLine) seedUsers(ctx context.Context, pwd string, seeds []seedUser) ([]user.User, error) {
	users := make([]user.User, 0, len(seeds))
	for _, s := range seeds {
		usr, err := cli.usrSvc.Create(ctx, user.NewUser{Name: s.name, Email: s.email, Password: pwd, Role: s.role.String()})
		if err != nil {
			return nil, errors.Wrapf(err, "creating %s", s.email)
		}
		users = append(users, usr)
	}
	return users, nil
}

// seed fills an empty database with a small school.
func (cli *commandLine) seed(pwd string) error {
	ctx := context.Background()

	counts, err := cli.usrSvc.CountByRole(ctx)
	if err != nil {
		return errors.Wrap(err, "counting users")
	}
	for _, n := range counts {
		if n > 0 {
			return errNotEmpty
		}
	}

	managers, err := cli.seedUsers(ctx, pwd, seedManagers)
	if err != nil {
		return err
	}
	teachers, err := cli.seedUsers(ctx, pwd, seedTeachers)
	if err != nil {
		return err
	}
	students, err := cli.seedUsers(ctx, pwd, seedStudents)
	if err != nil {
		return err
	}
	guardians, err := cli.seedUsers(ctx, pwd, seedGuardians)
	if err != nil {
		return err
	}
	for i, g := range guardians {
		if err = cli.usrSvc.LinkStudent(ctx, g.ID, students[i].ID); err != nil {
			return errors.Wrap(err, "linking student")
		}
	}
	logger.Printf("%d users created", len(managers)+len(teachers)+len(students)+len(guardians))

	subjects := make([]subject.Subject, 0, len(seedSubjects))
	for i, ns := range seedSubjects {
		sub, err := cli.subSvc.Create(ctx, ns)
		if err != nil {
			return errors.Wrapf(err, "creating subject %s", ns.Name)
		}
		subjects = append(subjects, sub)

		if err = cli.subSvc.AssignTeacher(ctx, sub.ID, teachers[i%len(teachers)].ID); err != nil {
			return errors.Wrap(err, "assigning teacher")
		}
		for _, s := range students {
			if err = cli.subSvc.EnrollStudent(ctx, sub.ID, s.ID); err != nil {
				return errors.Wrap(err, "enrolling student")
			}
		}
	}
	logger.Printf("%d subjects created", len(subjects))

	for j, sa := range seedAssessments {
		sub := subjects[sa.subject]
		a, err := cli.gradeSvc.CreateAssessment(ctx, sub.ID, grade.NewAssessment{Title: sa.title, Date: sa.date})
		if err != nil {
			return errors.Wrapf(err, "creating assessment %s", sa.title)
		}
		form := make(url.Values, len(students))
		for i, s := range students {
			form.Set(grade.FieldName(s.ID, a.ID), seedGrade(i, j))
		}
		if _, err = cli.gradeSvc.SaveGrades(ctx, sub.ID, form); err != nil {
			return errors.Wrap(err, "saving grades")
		}
	}
	logger.Printf("%d assessments graded", len(seedAssessments))

	today := core.Today()
	for day := 1; day <= seedAttendanceDays; day++ {
		date := today.AddDate(0, 0, -day)
		for k, sub := range subjects {
			present := make([]int64, 0, len(students))
			for i, s := range students {
				if (i+day+k)%7 != 0 {
					present = append(present, s.ID)
				}
			}
			if _, err = cli.attSvc.Save(ctx, sub.ID, date, present); err != nil {
				return errors.Wrap(err, "saving attendance")
			}
		}
	}
	logger.Printf("%d days of attendance recorded", seedAttendanceDays)

	for i, sub := range subjects {
		np := lessonplan.NewPlan{
			Title:       "Introduction to " + sub.Name,
			Description: "Course overview and expectations.",
			PlannedOn:   today.AddDate(0, 0, 7).Format(core.DateLayout),
		}
		if _, err = cli.planSvc.Create(ctx, sub.ID, teachers[i%len(teachers)].ID, np); err != nil {
			return errors.Wrap(err, "creating lesson plan")
		}
	}

	for _, na := range []announcement.NewAnnouncement{
		{Title: "Welcome back!", Body: "Classes start on Monday. Check your subjects on your dashboard."},
		{Title: "Parents meeting", Body: "Guardians are invited to meet the teachers next Friday at 6pm."},
	} {
		if _, err = cli.annSvc.Publish(ctx, managers[0].ID, na); err != nil {
			return errors.Wrap(err, "publishing announcement")
		}
	}
	logger.Printf("seeding done; every sample user logs in with %q", pwd)
	return nil
}
