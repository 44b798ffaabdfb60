package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/grade"
)

var assessmentColumns = []string{"a.id", "a.subject_id", "a.title", "a.assessed_on", "a.created_at"}

type gradeRepository struct {
	db core.DB
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db core.DB) grade.Repository {
	return &gradeRepository{db: db}
}

func (repo *gradeRepository) CreateAssessment(ctx context.Context, a grade.Assessment) (grade.Assessment, error) {
	b := psql.Insert("assessments")
	if a.Date.IsZero() {
		b = b.Columns("subject_id", "title", "created_at").
			Values(a.SubjectID, a.Title, a.CreatedAt)
	} else {
		b = b.Columns("subject_id", "title", "assessed_on", "created_at").
			Values(a.SubjectID, a.Title, a.Date, a.CreatedAt)
	}
	q, args, err := b.Suffix("RETURNING id, assessed_on").ToSql()
	if err != nil {
		return grade.Assessment{}, errors.Wrap(err, "building query")
	}

	row := repo.db.QueryRowxContext(ctx, q, args...)
	if err = row.Scan(&a.ID, &a.Date); err != nil {
		return grade.Assessment{}, errors.Wrap(err, "inserting assessment")
	}
	a.Date = core.TruncateDate(a.Date)
	return a, nil
}

func (repo *gradeRepository) DeleteAssessment(ctx context.Context, id int64) error {
	b := psql.Delete("assessments").Where(sq.Eq{"id": id})
	if err := execAffecting(ctx, repo.db, b, grade.ErrAssessmentNotFound); err != nil {
		if err == grade.ErrAssessmentNotFound {
			return err
		}
		return errors.Wrap(err, "deleting assessment")
	}
	return nil
}

func (repo *gradeRepository) GetAssessment(ctx context.Context, id int64) (grade.Assessment, error) {
	q, args, err := psql.Select(assessmentColumns...).From("assessments a").Where(sq.Eq{"a.id": id}).ToSql()
	if err != nil {
		return grade.Assessment{}, errors.Wrap(err, "building query")
	}
	var a grade.Assessment
	if err = sqlx.GetContext(ctx, repo.db, &a, q, args...); err != nil {
		return grade.Assessment{}, trapNoRows(err, grade.ErrAssessmentNotFound, "selecting assessment")
	}
	return a, nil
}

func (repo *gradeRepository) Assessments(ctx context.Context, subjectID int64) ([]grade.Assessment, error) {
	q, args, err := psql.Select(assessmentColumns...).
		From("assessments a").
		Where(sq.Eq{"a.subject_id": subjectID}).
		OrderBy("a.id").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	as := make([]grade.Assessment, 0)
	if err = sqlx.SelectContext(ctx, repo.db, &as, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting assessments")
	}
	return as, nil
}

func (repo *gradeRepository) SubjectGrades(ctx context.Context, subjectID int64) ([]grade.Grade, error) {
	q, args, err := psql.Select("g.student_id", "g.assessment_id", "g.value", "g.updated_at").
		From("grades g").
		Join("assessments a ON a.id = g.assessment_id").
		Where(sq.Eq{"a.subject_id": subjectID}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	grades := make([]grade.Grade, 0)
	if err = sqlx.SelectContext(ctx, repo.db, &grades, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting grades")
	}
	return grades, nil
}

func (repo *gradeRepository) SaveGrades(ctx context.Context, grades []grade.Grade) error {
	if len(grades) == 0 {
		return nil
	}
	b := psql.Insert("grades").Columns("student_id", "assessment_id", "value", "updated_at")
	for _, g := range grades {
		b = b.Values(g.StudentID, g.AssessmentID, g.Value, g.UpdatedAt)
	}
	q, args, err := b.
		Suffix("ON CONFLICT (student_id, assessment_id) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}

	return inTx(ctx, repo.db, func(exec core.DBExecutor) error {
		if _, err := exec.ExecContext(ctx, q, args...); err != nil {
			return errors.Wrap(err, "upserting grades")
		}
		return nil
	})
}

func (repo *gradeRepository) StudentGrades(ctx context.Context, studentID, subjectID int64) ([]grade.StudentGrade, error) {
	q, args, err := psql.Select("a.id AS assessment_id", "a.title", "a.assessed_on", "g.value").
		From("assessments a").
		LeftJoin("grades g ON g.assessment_id = a.id AND g.student_id = ?", studentID).
		Where(sq.Eq{"a.subject_id": subjectID}).
		OrderBy("a.assessed_on", "a.id").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	sgs := make([]grade.StudentGrade, 0)
	if err = sqlx.SelectContext(ctx, repo.db, &sgs, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting student grades")
	}
	return sgs, nil
}

func (repo *gradeRepository) SubjectAverages(ctx context.Context) ([]grade.SubjectAverage, error) {
	q, args, err := psql.Select("s.id AS subject_id", "s.name", "AVG(g.value) AS average").
		From("grades g").
		Join("assessments a ON a.id = g.assessment_id").
		Join("subjects s ON s.id = a.subject_id").
		GroupBy("s.id", "s.name").
		OrderBy("average DESC", "s.id").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	avgs := make([]grade.SubjectAverage, 0)
	if err = sqlx.SelectContext(ctx, repo.db, &avgs, q, args...); err != nil {
		return nil, errors.Wrap(err, "averaging grades")
	}
	return avgs, nil
}
