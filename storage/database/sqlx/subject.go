package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/subject"
	"github.com/trezcool/escola/core/user"
)

var subjectColumns = []string{"s.id", "s.name", "s.year", "s.term", "s.created_at"}

type subjectRepository struct {
	db      core.DB
	usrRepo *userRepository
}

var _ subject.Repository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(db core.DB) subject.Repository {
	return &subjectRepository{db: db, usrRepo: &userRepository{db: db}}
}

func selectSubjects() sq.SelectBuilder {
	return psql.Select(subjectColumns...).From("subjects s")
}

func (repo *subjectRepository) selectMany(ctx context.Context, b sq.SelectBuilder) ([]subject.Subject, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	subs := make([]subject.Subject, 0)
	if err = sqlx.SelectContext(ctx, repo.db, &subs, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting subjects")
	}
	return subs, nil
}

func (repo *subjectRepository) Create(ctx context.Context, sub subject.Subject) (subject.Subject, error) {
	q, args, err := psql.Insert("subjects").
		Columns("name", "year", "term", "created_at").
		Values(sub.Name, sub.Year, sub.Term, sub.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return subject.Subject{}, errors.Wrap(err, "building query")
	}
	if err = sqlx.GetContext(ctx, repo.db, &sub.ID, q, args...); err != nil {
		return subject.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return sub, nil
}

func (repo *subjectRepository) Update(ctx context.Context, sub subject.Subject) (subject.Subject, error) {
	b := psql.Update("subjects").
		Set("name", sub.Name).
		Set("year", sub.Year).
		Set("term", sub.Term).
		Where(sq.Eq{"id": sub.ID})
	if err := execAffecting(ctx, repo.db, b, subject.ErrNotFound); err != nil {
		if err == subject.ErrNotFound {
			return subject.Subject{}, err
		}
		return subject.Subject{}, errors.Wrap(err, "updating subject")
	}
	return sub, nil
}

// Delete relies on the foreign keys to drop assignments, enrollments, assessments,
// grades, attendance and lesson plans with the subject.
func (repo *subjectRepository) Delete(ctx context.Context, id int64) error {
	b := psql.Delete("subjects").Where(sq.Eq{"id": id})
	if err := execAffecting(ctx, repo.db, b, subject.ErrNotFound); err != nil {
		if err == subject.ErrNotFound {
			return err
		}
		return errors.Wrap(err, "deleting subject")
	}
	return nil
}

func (repo *subjectRepository) GetByID(ctx context.Context, id int64) (subject.Subject, error) {
	q, args, err := selectSubjects().Where(sq.Eq{"s.id": id}).ToSql()
	if err != nil {
		return subject.Subject{}, errors.Wrap(err, "building query")
	}
	var sub subject.Subject
	if err = sqlx.GetContext(ctx, repo.db, &sub, q, args...); err != nil {
		return subject.Subject{}, trapNoRows(err, subject.ErrNotFound, "selecting subject")
	}
	return sub, nil
}

func (repo *subjectRepository) Query(ctx context.Context) ([]subject.Subject, error) {
	return repo.selectMany(ctx, selectSubjects().OrderBy("s.year DESC", "lower(s.name)", "s.id"))
}

func (repo *subjectRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, repo.db, &n, "SELECT COUNT(*) FROM subjects"); err != nil {
		return 0, errors.Wrap(err, "counting subjects")
	}
	return n, nil
}

func (repo *subjectRepository) link(ctx context.Context, table, userCol string, subjectID, userID int64, exists error) error {
	q, args, err := psql.Insert(table).
		Columns("subject_id", userCol).
		Values(subjectID, userID).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, q, args...); err != nil {
		if isUniqueViolation(err) {
			return exists
		}
		return errors.Wrapf(err, "inserting into %s", table)
	}
	return nil
}

func (repo *subjectRepository) unlink(ctx context.Context, table, userCol string, subjectID, userID int64) error {
	q, args, err := psql.Delete(table).
		Where(sq.Eq{"subject_id": subjectID, userCol: userID}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, q, args...); err != nil {
		return errors.Wrapf(err, "deleting from %s", table)
	}
	return nil
}

func (repo *subjectRepository) AssignTeacher(ctx context.Context, subjectID, teacherID int64) error {
	return repo.link(ctx, "subject_teachers", "teacher_id", subjectID, teacherID, subject.ErrAlreadyAssigned)
}

func (repo *subjectRepository) UnassignTeacher(ctx context.Context, subjectID, teacherID int64) error {
	return repo.unlink(ctx, "subject_teachers", "teacher_id", subjectID, teacherID)
}

func (repo *subjectRepository) EnrollStudent(ctx context.Context, subjectID, studentID int64) error {
	return repo.link(ctx, "enrollments", "student_id", subjectID, studentID, subject.ErrAlreadyEnrolled)
}

func (repo *subjectRepository) UnenrollStudent(ctx context.Context, subjectID, studentID int64) error {
	return repo.unlink(ctx, "enrollments", "student_id", subjectID, studentID)
}

func (repo *subjectRepository) members(ctx context.Context, table, userCol string, subjectID int64) ([]user.User, error) {
	b := selectUsers().
		Join(table+" m ON m."+userCol+" = u.id").
		Where(sq.Eq{"m.subject_id": subjectID}).
		OrderBy("lower(u.name)", "u.id")
	return repo.usrRepo.selectMany(ctx, b)
}

func (repo *subjectRepository) Teachers(ctx context.Context, subjectID int64) ([]user.User, error) {
	return repo.members(ctx, "subject_teachers", "teacher_id", subjectID)
}

func (repo *subjectRepository) Students(ctx context.Context, subjectID int64) ([]user.User, error) {
	return repo.members(ctx, "enrollments", "student_id", subjectID)
}

func (repo *subjectRepository) memberOf(ctx context.Context, table, userCol string, userID int64) ([]subject.Subject, error) {
	b := selectSubjects().
		Join(table+" m ON m.subject_id = s.id").
		Where(sq.Eq{"m." + userCol: userID}).
		OrderBy("lower(s.name)", "s.id")
	return repo.selectMany(ctx, b)
}

func (repo *subjectRepository) TeacherSubjects(ctx context.Context, teacherID int64) ([]subject.Subject, error) {
	return repo.memberOf(ctx, "subject_teachers", "teacher_id", teacherID)
}

func (repo *subjectRepository) StudentSubjects(ctx context.Context, studentID int64) ([]subject.Subject, error) {
	return repo.memberOf(ctx, "enrollments", "student_id", studentID)
}
