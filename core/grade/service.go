package grade

import (
	"context"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/subject"
)

var (
	// errors
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrUnknownAssessment  = errors.New("assessment does not belong to this subject")
	ErrStudentNotEnrolled = errors.New("student is not enrolled in this subject")
)

type (
	Repository interface {
		// CreateAssessment lets the store default a zero Date to the current date.
		CreateAssessment(ctx context.Context, a Assessment) (Assessment, error)
		DeleteAssessment(ctx context.Context, id int64) error
		GetAssessment(ctx context.Context, id int64) (Assessment, error)
		// Assessments returns the assessments of a subject by id.
		Assessments(ctx context.Context, subjectID int64) ([]Assessment, error)
		SubjectGrades(ctx context.Context, subjectID int64) ([]Grade, error)
		// SaveGrades upserts every grade in one transaction: nothing is written if one fails.
		SaveGrades(ctx context.Context, grades []Grade) error
		// StudentGrades returns every assessment of the subject with the student's value, by date.
		StudentGrades(ctx context.Context, studentID, subjectID int64) ([]StudentGrade, error)
		// SubjectAverages returns the mean grade of every graded subject, highest first.
		SubjectAverages(ctx context.Context) ([]SubjectAverage, error)
	}

	Service interface {
		CreateAssessment(ctx context.Context, subjectID int64, na NewAssessment) (Assessment, error)
		DeleteAssessment(ctx context.Context, subjectID, assessmentID int64) error
		Assessments(ctx context.Context, subjectID int64) ([]Assessment, error)
		SaveGrades(ctx context.Context, subjectID int64, form url.Values) (int, error)
		Gradebook(ctx context.Context, subjectID int64) (Gradebook, error)
		StudentHistory(ctx context.Context, studentID, subjectID int64) ([]StudentGrade, error)
		StudentAssessments(ctx context.Context, studentID, subjectID int64) ([]StudentGrade, error)
		SubjectAverages(ctx context.Context) ([]SubjectAverage, error)
	}

	service struct {
		repo     Repository
		subSvc   subject.Service
		validate *validator.Validate
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, subSvc subject.Service, validate *validator.Validate) Service {
	return &service{
		repo:     repo,
		subSvc:   subSvc,
		validate: validate,
	}
}

func (svc *service) CreateAssessment(ctx context.Context, subjectID int64, na NewAssessment) (Assessment, error) {
	na.clean()
	if err := svc.validate.Struct(na); err != nil {
		return Assessment{}, err
	}
	if _, err := svc.subSvc.GetByID(ctx, subjectID); err != nil {
		return Assessment{}, err
	}

	a := Assessment{
		SubjectID: subjectID,
		Title:     na.Title,
		CreatedAt: core.NowFunc().UTC(),
	}
	if na.Date != "" {
		date, err := time.Parse(core.DateLayout, na.Date)
		if err != nil {
			return Assessment{}, errors.Wrap(err, "parsing date")
		}
		a.Date = date
	}
	return svc.repo.CreateAssessment(ctx, a)
}

func (svc *service) DeleteAssessment(ctx context.Context, subjectID, assessmentID int64) error {
	a, err := svc.repo.GetAssessment(ctx, assessmentID)
	if err != nil {
		return err
	}
	if a.SubjectID != subjectID {
		return ErrAssessmentNotFound
	}
	return svc.repo.DeleteAssessment(ctx, assessmentID)
}

func (svc *service) Assessments(ctx context.Context, subjectID int64) ([]Assessment, error) {
	return svc.repo.Assessments(ctx, subjectID)
}

// SaveGrades upserts the grades posted for a subject and returns how many were saved.
func (svc *service) SaveGrades(ctx context.Context, subjectID int64, form url.Values) (int, error) {
	grades, err := ParseGradeForm(form)
	if err != nil {
		return 0, err
	}
	if len(grades) == 0 {
		return 0, nil
	}

	assessments, err := svc.repo.Assessments(ctx, subjectID)
	if err != nil {
		return 0, errors.Wrap(err, "querying assessments")
	}
	known := make(map[int64]bool, len(assessments))
	for _, a := range assessments {
		known[a.ID] = true
	}
	students, err := svc.subSvc.Students(ctx, subjectID)
	if err != nil {
		return 0, errors.Wrap(err, "querying students")
	}
	enrolled := make(map[int64]bool, len(students))
	for _, s := range students {
		enrolled[s.ID] = true
	}

	now := core.NowFunc().UTC()
	for i, g := range grades {
		if !known[g.AssessmentID] {
			return 0, core.NewValidationError(ErrUnknownAssessment)
		}
		if !enrolled[g.StudentID] {
			return 0, core.NewValidationError(ErrStudentNotEnrolled)
		}
		grades[i].UpdatedAt = now
	}

	if err = svc.repo.SaveGrades(ctx, grades); err != nil {
		return 0, errors.Wrap(err, "saving grades")
	}
	return len(grades), nil
}

// Gradebook returns the grade grid of a subject: enrolled students by assessments.
func (svc *service) Gradebook(ctx context.Context, subjectID int64) (Gradebook, error) {
	sub, err := svc.subSvc.GetByID(ctx, subjectID)
	if err != nil {
		return Gradebook{}, err
	}
	gb := Gradebook{Subject: sub}

	if gb.Students, err = svc.subSvc.Students(ctx, subjectID); err != nil {
		return Gradebook{}, errors.Wrap(err, "querying students")
	}
	if gb.Assessments, err = svc.repo.Assessments(ctx, subjectID); err != nil {
		return Gradebook{}, errors.Wrap(err, "querying assessments")
	}
	grades, err := svc.repo.SubjectGrades(ctx, subjectID)
	if err != nil {
		return Gradebook{}, errors.Wrap(err, "querying grades")
	}
	gb.Values = make(map[string]float64, len(grades))
	for _, g := range grades {
		gb.Values[FieldName(g.StudentID, g.AssessmentID)] = g.Value
	}
	return gb, nil
}

// StudentHistory returns the graded assessments of a student in a subject, by date.
func (svc *service) StudentHistory(ctx context.Context, studentID, subjectID int64) ([]StudentGrade, error) {
	all, err := svc.repo.StudentGrades(ctx, studentID, subjectID)
	if err != nil {
		return nil, err
	}
	graded := make([]StudentGrade, 0, len(all))
	for _, g := range all {
		if g.Value.Valid {
			graded = append(graded, g)
		}
	}
	return graded, nil
}

func (svc *service) StudentAssessments(ctx context.Context, studentID, subjectID int64) ([]StudentGrade, error) {
	return svc.repo.StudentGrades(ctx, studentID, subjectID)
}

func (svc *service) SubjectAverages(ctx context.Context) ([]SubjectAverage, error) {
	avgs, err := svc.repo.SubjectAverages(ctx)
	if err != nil {
		return nil, err
	}
	for i := range avgs {
		avgs[i].Average = core.Round(avgs[i].Average, 2)
	}
	return avgs, nil
}
