package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/escola/core/subject"
	"github.com/trezcool/escola/core/user"
)

type subjectRepository struct {
	db *DB
}

var _ subject.Repository = (*subjectRepository)(nil)

func NewSubjectRepository(db *DB) subject.Repository {
	return &subjectRepository{db: db}
}

func (repo *subjectRepository) Create(_ context.Context, sub subject.Subject) (subject.Subject, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	sub.ID = repo.db.nextPK()
	repo.db.subjects[sub.ID] = &sub
	return sub, nil
}

func (repo *subjectRepository) Update(_ context.Context, sub subject.Subject) (subject.Subject, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.subjects[sub.ID]
	if !ok {
		return subject.Subject{}, subject.ErrNotFound
	}
	orig.Name = sub.Name
	orig.Year = sub.Year
	orig.Term = sub.Term
	return *orig, nil
}

func (repo *subjectRepository) Delete(_ context.Context, id int64) error {
	db := repo.db
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.subjects[id]; !ok {
		return subject.ErrNotFound
	}
	delete(db.subjects, id)

	for p := range db.subjectTeachers {
		if p.a == id {
			delete(db.subjectTeachers, p)
		}
	}
	for p := range db.enrollments {
		if p.a == id {
			delete(db.enrollments, p)
		}
	}
	for aID, a := range db.assessments {
		if a.SubjectID != id {
			continue
		}
		delete(db.assessments, aID)
		for p := range db.grades {
			if p.b == aID {
				delete(db.grades, p)
			}
		}
	}
	for k := range db.attendance {
		if k.subjectID == id {
			delete(db.attendance, k)
		}
	}
	for lpID, lp := range db.lessonPlans {
		if lp.SubjectID == id {
			delete(db.lessonPlans, lpID)
		}
	}
	return nil
}

func (repo *subjectRepository) GetByID(_ context.Context, id int64) (subject.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if sub, ok := repo.db.subjects[id]; ok {
		return *sub, nil
	}
	return subject.Subject{}, subject.ErrNotFound
}

func (repo *subjectRepository) Query(_ context.Context) ([]subject.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	subs := make([]subject.Subject, 0, len(repo.db.subjects))
	for _, sub := range repo.db.subjects {
		subs = append(subs, *sub)
	}
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].Year != subs[j].Year {
			return subs[i].Year > subs[j].Year
		}
		ni, nj := strings.ToLower(subs[i].Name), strings.ToLower(subs[j].Name)
		if ni == nj {
			return subs[i].ID < subs[j].ID
		}
		return ni < nj
	})
	return subs, nil
}

func (repo *subjectRepository) Count(_ context.Context) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return len(repo.db.subjects), nil
}

func (repo *subjectRepository) AssignTeacher(_ context.Context, subjectID, teacherID int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	p := pair{subjectID, teacherID}
	if repo.db.subjectTeachers[p] {
		return subject.ErrAlreadyAssigned
	}
	repo.db.subjectTeachers[p] = true
	return nil
}

func (repo *subjectRepository) UnassignTeacher(_ context.Context, subjectID, teacherID int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.subjectTeachers, pair{subjectID, teacherID})
	return nil
}

func (repo *subjectRepository) EnrollStudent(_ context.Context, subjectID, studentID int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	p := pair{subjectID, studentID}
	if repo.db.enrollments[p] {
		return subject.ErrAlreadyEnrolled
	}
	repo.db.enrollments[p] = true
	return nil
}

func (repo *subjectRepository) UnenrollStudent(_ context.Context, subjectID, studentID int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.enrollments, pair{subjectID, studentID})
	return nil
}

func (repo *subjectRepository) members(table map[pair]bool, subjectID int64) []user.User {
	var ids []int64
	for p := range table {
		if p.a == subjectID {
			ids = append(ids, p.b)
		}
	}
	return repo.db.usersByID(ids)
}

func (repo *subjectRepository) Teachers(_ context.Context, subjectID int64) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.members(repo.db.subjectTeachers, subjectID), nil
}

func (repo *subjectRepository) Students(_ context.Context, subjectID int64) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.members(repo.db.enrollments, subjectID), nil
}

func (repo *subjectRepository) memberOf(table map[pair]bool, userID int64) []subject.Subject {
	subs := make([]subject.Subject, 0)
	for p := range table {
		if p.b != userID {
			continue
		}
		if sub, ok := repo.db.subjects[p.a]; ok {
			subs = append(subs, *sub)
		}
	}
	sortSubjectsByName(subs)
	return subs
}

func (repo *subjectRepository) TeacherSubjects(_ context.Context, teacherID int64) ([]subject.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.memberOf(repo.db.subjectTeachers, teacherID), nil
}

func (repo *subjectRepository) StudentSubjects(_ context.Context, studentID int64) ([]subject.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.memberOf(repo.db.enrollments, studentID), nil
}
