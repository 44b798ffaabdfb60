package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/escola/core/lessonplan"
)

type lessonPlanRepository struct {
	db *DB
}

var _ lessonplan.Repository = (*lessonPlanRepository)(nil)

func NewLessonPlanRepository(db *DB) lessonplan.Repository {
	return &lessonPlanRepository{db: db}
}

func (repo *lessonPlanRepository) Create(_ context.Context, p lessonplan.Plan) (lessonplan.Plan, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	p.ID = repo.db.nextPK()
	repo.db.lessonPlans[p.ID] = &p
	return p, nil
}

func (repo *lessonPlanRepository) Update(_ context.Context, p lessonplan.Plan) (lessonplan.Plan, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.lessonPlans[p.ID]
	if !ok {
		return lessonplan.Plan{}, lessonplan.ErrNotFound
	}
	orig.Title = p.Title
	orig.Description = p.Description
	orig.PlannedOn = p.PlannedOn
	return *orig, nil
}

func (repo *lessonPlanRepository) Delete(_ context.Context, id int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.lessonPlans[id]; !ok {
		return lessonplan.ErrNotFound
	}
	delete(repo.db.lessonPlans, id)
	return nil
}

func (repo *lessonPlanRepository) GetByID(_ context.Context, id int64) (lessonplan.Plan, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if p, ok := repo.db.lessonPlans[id]; ok {
		return *p, nil
	}
	return lessonplan.Plan{}, lessonplan.ErrNotFound
}

func (repo *lessonPlanRepository) QueryBySubject(_ context.Context, subjectID int64) ([]lessonplan.Plan, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	plans := make([]lessonplan.Plan, 0)
	for _, p := range repo.db.lessonPlans {
		if p.SubjectID == subjectID {
			plans = append(plans, *p)
		}
	}
	// NULL planned dates last, like postgres DESC NULLS LAST
	sort.Slice(plans, func(i, j int) bool {
		pi, pj := plans[i].PlannedOn, plans[j].PlannedOn
		if pi.Valid != pj.Valid {
			return pi.Valid
		}
		if pi.Valid && !pi.Time.Equal(pj.Time) {
			return pi.Time.After(pj.Time)
		}
		return strings.ToLower(plans[i].Title) < strings.ToLower(plans[j].Title)
	})
	return plans, nil
}
