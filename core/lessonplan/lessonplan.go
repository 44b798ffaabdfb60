package lessonplan

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/escola/core"
)

var ErrNotFound = errors.New("lesson plan not found")

type (
	Plan struct {
		ID          int64      `db:"id" json:"id"`
		SubjectID   int64      `db:"subject_id" json:"subject_id"`
		TeacherID   null.Int64 `db:"teacher_id" json:"teacher_id"`
		Title       string     `db:"title" json:"title"`
		Description string     `db:"description" json:"description"`
		PlannedOn   null.Time  `db:"planned_on" json:"planned_on"`
		CreatedAt   time.Time  `db:"created_at" json:"created_at"` // UTC
	}

	// NewPlan is used both to create and to edit a Plan.
	NewPlan struct {
		Title       string `form:"title" validate:"required,notblank"`
		Description string `form:"description"`
		PlannedOn   string `form:"planned_on" validate:"isodate"`
	}

	Repository interface {
		Create(ctx context.Context, p Plan) (Plan, error)
		Update(ctx context.Context, p Plan) (Plan, error)
		Delete(ctx context.Context, id int64) error
		GetByID(ctx context.Context, id int64) (Plan, error)
		// QueryBySubject returns the plans of a subject, latest planned date first, then by title.
		QueryBySubject(ctx context.Context, subjectID int64) ([]Plan, error)
	}

	Service interface {
		Create(ctx context.Context, subjectID, teacherID int64, np NewPlan) (Plan, error)
		Update(ctx context.Context, id int64, np NewPlan) (Plan, error)
		Delete(ctx context.Context, id int64) error
		GetByID(ctx context.Context, id int64) (Plan, error)
		QueryBySubject(ctx context.Context, subjectID int64) ([]Plan, error)
	}

	service struct {
		repo     Repository
		validate *validator.Validate
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, validate *validator.Validate) Service {
	return &service{repo: repo, validate: validate}
}

func (np *NewPlan) clean() {
	np.Title = core.CleanString(np.Title)
	np.Description = core.CleanString(np.Description)
	np.PlannedOn = core.CleanString(np.PlannedOn)
}

func (np NewPlan) plannedOn() (null.Time, error) {
	if np.PlannedOn == "" {
		return null.Time{}, nil
	}
	t, err := time.Parse(core.DateLayout, np.PlannedOn)
	if err != nil {
		return null.Time{}, errors.Wrap(err, "parsing planned date")
	}
	return null.TimeFrom(t), nil
}

func (svc *service) Create(ctx context.Context, subjectID, teacherID int64, np NewPlan) (Plan, error) {
	np.clean()
	if err := svc.validate.Struct(np); err != nil {
		return Plan{}, err
	}
	plannedOn, err := np.plannedOn()
	if err != nil {
		return Plan{}, err
	}
	return svc.repo.Create(ctx, Plan{
		SubjectID:   subjectID,
		TeacherID:   null.Int64From(teacherID),
		Title:       np.Title,
		Description: np.Description,
		PlannedOn:   plannedOn,
		CreatedAt:   core.NowFunc().UTC(),
	})
}

func (svc *service) Update(ctx context.Context, id int64, np NewPlan) (Plan, error) {
	np.clean()
	if err := svc.validate.Struct(np); err != nil {
		return Plan{}, err
	}
	p, err := svc.repo.GetByID(ctx, id)
	if err != nil {
		return Plan{}, err
	}
	if p.PlannedOn, err = np.plannedOn(); err != nil {
		return Plan{}, err
	}
	p.Title = np.Title
	p.Description = np.Description
	return svc.repo.Update(ctx, p)
}

func (svc *service) Delete(ctx context.Context, id int64) error {
	return svc.repo.Delete(ctx, id)
}

func (svc *service) GetByID(ctx context.Context, id int64) (Plan, error) {
	return svc.repo.GetByID(ctx, id)
}

func (svc *service) QueryBySubject(ctx context.Context, subjectID int64) ([]Plan, error) {
	return svc.repo.QueryBySubject(ctx, subjectID)
}
