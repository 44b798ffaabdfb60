package subject

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/user"
)

var (
	// errors
	ErrNotFound        = errors.New("subject not found")
	ErrAlreadyAssigned = errors.New("teacher is already assigned to this subject")
	ErrAlreadyEnrolled = errors.New("student is already enrolled in this subject")
	ErrNotTeacher      = errors.New("user is not a teacher")
	ErrNotStudent      = errors.New("user is not a student")
)

type (
	Repository interface {
		Create(ctx context.Context, sub Subject) (Subject, error)
		Update(ctx context.Context, sub Subject) (Subject, error)
		// Delete removes the subject and every row depending on it in one transaction.
		Delete(ctx context.Context, id int64) error
		GetByID(ctx context.Context, id int64) (Subject, error)
		// Query returns all subjects, latest year first then by name.
		Query(ctx context.Context) ([]Subject, error)
		Count(ctx context.Context) (int, error)

		AssignTeacher(ctx context.Context, subjectID, teacherID int64) error
		UnassignTeacher(ctx context.Context, subjectID, teacherID int64) error
		EnrollStudent(ctx context.Context, subjectID, studentID int64) error
		UnenrollStudent(ctx context.Context, subjectID, studentID int64) error

		// Teachers and Students are ordered by name.
		Teachers(ctx context.Context, subjectID int64) ([]user.User, error)
		Students(ctx context.Context, subjectID int64) ([]user.User, error)
		// TeacherSubjects and StudentSubjects are ordered by name.
		TeacherSubjects(ctx context.Context, teacherID int64) ([]Subject, error)
		StudentSubjects(ctx context.Context, studentID int64) ([]Subject, error)
	}

	Service interface {
		Create(ctx context.Context, ns NewSubject) (Subject, error)
		Update(ctx context.Context, id int64, ns NewSubject) (Subject, error)
		Delete(ctx context.Context, id int64) error
		GetByID(ctx context.Context, id int64) (Subject, error)
		Query(ctx context.Context) ([]Subject, error)
		Count(ctx context.Context) (int, error)
		Details(ctx context.Context, id int64) (Details, error)

		AssignTeacher(ctx context.Context, subjectID, teacherID int64) error
		UnassignTeacher(ctx context.Context, subjectID, teacherID int64) error
		EnrollStudent(ctx context.Context, subjectID, studentID int64) error
		UnenrollStudent(ctx context.Context, subjectID, studentID int64) error

		Teachers(ctx context.Context, subjectID int64) ([]user.User, error)
		Students(ctx context.Context, subjectID int64) ([]user.User, error)
		TeacherSubjects(ctx context.Context, teacherID int64) ([]Subject, error)
		StudentSubjects(ctx context.Context, studentID int64) ([]Subject, error)
		IsTeacherOf(ctx context.Context, teacherID, subjectID int64) (bool, error)
		IsEnrolled(ctx context.Context, studentID, subjectID int64) (bool, error)
	}

	service struct {
		repo     Repository
		usrSvc   user.Service
		validate *validator.Validate
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrSvc user.Service, validate *validator.Validate) Service {
	return &service{
		repo:     repo,
		usrSvc:   usrSvc,
		validate: validate,
	}
}

func (svc *service) Create(ctx context.Context, ns NewSubject) (Subject, error) {
	ns.clean()
	if err := svc.validate.Struct(ns); err != nil {
		return Subject{}, err
	}
	return svc.repo.Create(ctx, Subject{
		Name:      ns.Name,
		Year:      ns.Year,
		Term:      ns.Term,
		CreatedAt: core.NowFunc().UTC(),
	})
}

func (svc *service) Update(ctx context.Context, id int64, ns NewSubject) (Subject, error) {
	ns.clean()
	if err := svc.validate.Struct(ns); err != nil {
		return Subject{}, err
	}
	sub, err := svc.repo.GetByID(ctx, id)
	if err != nil {
		return Subject{}, err
	}
	sub.Name = ns.Name
	sub.Year = ns.Year
	sub.Term = ns.Term
	return svc.repo.Update(ctx, sub)
}

func (svc *service) Delete(ctx context.Context, id int64) error {
	return svc.repo.Delete(ctx, id)
}

func (svc *service) GetByID(ctx context.Context, id int64) (Subject, error) {
	return svc.repo.GetByID(ctx, id)
}

func (svc *service) Query(ctx context.Context) ([]Subject, error) {
	return svc.repo.Query(ctx)
}

func (svc *service) Count(ctx context.Context) (int, error) {
	return svc.repo.Count(ctx)
}

// Details returns the subject with its members and the users that could still join it.
func (svc *service) Details(ctx context.Context, id int64) (Details, error) {
	sub, err := svc.repo.GetByID(ctx, id)
	if err != nil {
		return Details{}, err
	}
	d := Details{Subject: sub}

	if d.Teachers, err = svc.repo.Teachers(ctx, id); err != nil {
		return Details{}, errors.Wrap(err, "querying teachers")
	}
	if d.Students, err = svc.repo.Students(ctx, id); err != nil {
		return Details{}, errors.Wrap(err, "querying students")
	}

	allTeachers, err := svc.usrSvc.Query(ctx, user.QueryFilter{Role: user.RoleTeacher})
	if err != nil {
		return Details{}, errors.Wrap(err, "querying all teachers")
	}
	d.AvailableTeachers = exclude(allTeachers, d.Teachers)

	allStudents, err := svc.usrSvc.Query(ctx, user.QueryFilter{Role: user.RoleStudent})
	if err != nil {
		return Details{}, errors.Wrap(err, "querying all students")
	}
	d.AvailableStudents = exclude(allStudents, d.Students)
	return d, nil
}

func exclude(all, members []user.User) []user.User {
	ids := make(map[int64]bool, len(members))
	for _, m := range members {
		ids[m.ID] = true
	}
	rest := make([]user.User, 0, len(all))
	for _, u := range all {
		if !ids[u.ID] {
			rest = append(rest, u)
		}
	}
	return rest
}

func (svc *service) checkRole(ctx context.Context, userID int64, role user.Role, roleErr error) error {
	usr, err := svc.usrSvc.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if usr.Role != role {
		return roleErr
	}
	return nil
}

func (svc *service) AssignTeacher(ctx context.Context, subjectID, teacherID int64) error {
	if _, err := svc.repo.GetByID(ctx, subjectID); err != nil {
		return err
	}
	if err := svc.checkRole(ctx, teacherID, user.RoleTeacher, ErrNotTeacher); err != nil {
		return err
	}
	return svc.repo.AssignTeacher(ctx, subjectID, teacherID)
}

func (svc *service) UnassignTeacher(ctx context.Context, subjectID, teacherID int64) error {
	return svc.repo.UnassignTeacher(ctx, subjectID, teacherID)
}

func (svc *service) EnrollStudent(ctx context.Context, subjectID, studentID int64) error {
	if _, err := svc.repo.GetByID(ctx, subjectID); err != nil {
		return err
	}
	if err := svc.checkRole(ctx, studentID, user.RoleStudent, ErrNotStudent); err != nil {
		return err
	}
	return svc.repo.EnrollStudent(ctx, subjectID, studentID)
}

func (svc *service) UnenrollStudent(ctx context.Context, subjectID, studentID int64) error {
	return svc.repo.UnenrollStudent(ctx, subjectID, studentID)
}

func (svc *service) Teachers(ctx context.Context, subjectID int64) ([]user.User, error) {
	return svc.repo.Teachers(ctx, subjectID)
}

func (svc *service) Students(ctx context.Context, subjectID int64) ([]user.User, error) {
	return svc.repo.Students(ctx, subjectID)
}

func (svc *service) TeacherSubjects(ctx context.Context, teacherID int64) ([]Subject, error) {
	return svc.repo.TeacherSubjects(ctx, teacherID)
}

func (svc *service) StudentSubjects(ctx context.Context, studentID int64) ([]Subject, error) {
	return svc.repo.StudentSubjects(ctx, studentID)
}

func (svc *service) IsTeacherOf(ctx context.Context, teacherID, subjectID int64) (bool, error) {
	subs, err := svc.repo.TeacherSubjects(ctx, teacherID)
	if err != nil {
		return false, err
	}
	return contains(subs, subjectID), nil
}

func (svc *service) IsEnrolled(ctx context.Context, studentID, subjectID int64) (bool, error) {
	subs, err := svc.repo.StudentSubjects(ctx, studentID)
	if err != nil {
		return false, err
	}
	return contains(subs, subjectID), nil
}

func contains(subs []Subject, id int64) bool {
	for _, s := range subs {
		if s.ID == id {
			return true
		}
	}
	return false
}
