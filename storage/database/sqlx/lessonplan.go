package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/lessonplan"
)

var lessonPlanColumns = []string{"id", "subject_id", "teacher_id", "title", "description", "planned_on", "created_at"}

type lessonPlanRepository struct {
	db core.DB
}

var _ lessonplan.Repository = (*lessonPlanRepository)(nil) // interface compliance check

func NewLessonPlanRepository(db core.DB) lessonplan.Repository {
	return &lessonPlanRepository{db: db}
}

func (repo *lessonPlanRepository) Create(ctx context.Context, p lessonplan.Plan) (lessonplan.Plan, error) {
	q, args, err := psql.Insert("lesson_plans").
		Columns("subject_id", "teacher_id", "title", "description", "planned_on", "created_at").
		Values(p.SubjectID, p.TeacherID, p.Title, p.Description, p.PlannedOn, p.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return lessonplan.Plan{}, errors.Wrap(err, "building query")
	}
	if err = sqlx.GetContext(ctx, repo.db, &p.ID, q, args...); err != nil {
		return lessonplan.Plan{}, errors.Wrap(err, "inserting lesson plan")
	}
	return p, nil
}

func (repo *lessonPlanRepository) Update(ctx context.Context, p lessonplan.Plan) (lessonplan.Plan, error) {
	b := psql.Update("lesson_plans").
		Set("title", p.Title).
		Set("description", p.Description).
		Set("planned_on", p.PlannedOn).
		Where(sq.Eq{"id": p.ID})
	if err := execAffecting(ctx, repo.db, b, lessonplan.ErrNotFound); err != nil {
		if err == lessonplan.ErrNotFound {
			return lessonplan.Plan{}, err
		}
		return lessonplan.Plan{}, errors.Wrap(err, "updating lesson plan")
	}
	return p, nil
}

func (repo *lessonPlanRepository) Delete(ctx context.Context, id int64) error {
	b := psql.Delete("lesson_plans").Where(sq.Eq{"id": id})
	if err := execAffecting(ctx, repo.db, b, lessonplan.ErrNotFound); err != nil {
		if err == lessonplan.ErrNotFound {
			return err
		}
		return errors.Wrap(err, "deleting lesson plan")
	}
	return nil
}

func (repo *lessonPlanRepository) GetByID(ctx context.Context, id int64) (lessonplan.Plan, error) {
	q, args, err := psql.Select(lessonPlanColumns...).From("lesson_plans").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return lessonplan.Plan{}, errors.Wrap(err, "building query")
	}
	var p lessonplan.Plan
	if err = sqlx.GetContext(ctx, repo.db, &p, q, args...); err != nil {
		return lessonplan.Plan{}, trapNoRows(err, lessonplan.ErrNotFound, "selecting lesson plan")
	}
	return p, nil
}

func (repo *lessonPlanRepository) QueryBySubject(ctx context.Context, subjectID int64) ([]lessonplan.Plan, error) {
	q, args, err := psql.Select(lessonPlanColumns...).
		From("lesson_plans").
		Where(sq.Eq{"subject_id": subjectID}).
		OrderBy("planned_on DESC NULLS LAST", "lower(title)").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	plans := make([]lessonplan.Plan, 0)
	if err = sqlx.SelectContext(ctx, repo.db, &plans, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting lesson plans")
	}
	return plans, nil
}
