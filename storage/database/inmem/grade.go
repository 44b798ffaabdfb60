package inmemdb

import (
	"context"
	"sort"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/grade"
)

type gradeRepository struct {
	db *DB
}

var _ grade.Repository = (*gradeRepository)(nil)

func NewGradeRepository(db *DB) grade.Repository {
	return &gradeRepository{db: db}
}

func (repo *gradeRepository) CreateAssessment(_ context.Context, a grade.Assessment) (grade.Assessment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if a.Date.IsZero() {
		a.Date = core.Today()
	}
	a.ID = repo.db.nextPK()
	repo.db.assessments[a.ID] = &a
	return a, nil
}

func (repo *gradeRepository) DeleteAssessment(_ context.Context, id int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.assessments[id]; !ok {
		return grade.ErrAssessmentNotFound
	}
	delete(repo.db.assessments, id)
	for p := range repo.db.grades {
		if p.b == id {
			delete(repo.db.grades, p)
		}
	}
	return nil
}

func (repo *gradeRepository) GetAssessment(_ context.Context, id int64) (grade.Assessment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if a, ok := repo.db.assessments[id]; ok {
		return *a, nil
	}
	return grade.Assessment{}, grade.ErrAssessmentNotFound
}

// assessments must be called with mu held.
func (repo *gradeRepository) assessments(subjectID int64) []grade.Assessment {
	as := make([]grade.Assessment, 0)
	for _, a := range repo.db.assessments {
		if a.SubjectID == subjectID {
			as = append(as, *a)
		}
	}
	sort.Slice(as, func(i, j int) bool { return as[i].ID < as[j].ID })
	return as
}

func (repo *gradeRepository) Assessments(_ context.Context, subjectID int64) ([]grade.Assessment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.assessments(subjectID), nil
}

func (repo *gradeRepository) SubjectGrades(_ context.Context, subjectID int64) ([]grade.Grade, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	grades := make([]grade.Grade, 0)
	for _, g := range repo.db.grades {
		if a, ok := repo.db.assessments[g.AssessmentID]; ok && a.SubjectID == subjectID {
			grades = append(grades, *g)
		}
	}
	return grades, nil
}

func (repo *gradeRepository) SaveGrades(_ context.Context, grades []grade.Grade) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	// all or nothing
	for _, g := range grades {
		if _, ok := repo.db.assessments[g.AssessmentID]; !ok {
			return grade.ErrAssessmentNotFound
		}
	}
	for _, g := range grades {
		g := g
		p := pair{g.StudentID, g.AssessmentID}
		if orig, ok := repo.db.grades[p]; ok {
			orig.Value = g.Value
			orig.UpdatedAt = g.UpdatedAt
		} else {
			repo.db.grades[p] = &g
		}
	}
	return nil
}

func (repo *gradeRepository) StudentGrades(_ context.Context, studentID, subjectID int64) ([]grade.StudentGrade, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	as := repo.assessments(subjectID)
	sort.SliceStable(as, func(i, j int) bool { return as[i].Date.Before(as[j].Date) })

	sgs := make([]grade.StudentGrade, 0, len(as))
	for _, a := range as {
		sg := grade.StudentGrade{AssessmentID: a.ID, Title: a.Title, Date: a.Date}
		if g, ok := repo.db.grades[pair{studentID, a.ID}]; ok {
			sg.Value = null.Float64From(g.Value)
		}
		sgs = append(sgs, sg)
	}
	return sgs, nil
}

func (repo *gradeRepository) SubjectAverages(_ context.Context) ([]grade.SubjectAverage, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	type acc struct {
		sum float64
		n   int
	}
	accs := make(map[int64]*acc)
	for _, g := range repo.db.grades {
		a, ok := repo.db.assessments[g.AssessmentID]
		if !ok {
			continue
		}
		if accs[a.SubjectID] == nil {
			accs[a.SubjectID] = new(acc)
		}
		accs[a.SubjectID].sum += g.Value
		accs[a.SubjectID].n++
	}

	avgs := make([]grade.SubjectAverage, 0, len(accs))
	for subID, ac := range accs {
		sub, ok := repo.db.subjects[subID]
		if !ok {
			continue
		}
		avgs = append(avgs, grade.SubjectAverage{SubjectID: subID, Name: sub.Name, Average: ac.sum / float64(ac.n)})
	}
	sort.Slice(avgs, func(i, j int) bool {
		if avgs[i].Average == avgs[j].Average {
			return avgs[i].SubjectID < avgs[j].SubjectID
		}
		return avgs[i].Average > avgs[j].Average
	})
	return avgs, nil
}
