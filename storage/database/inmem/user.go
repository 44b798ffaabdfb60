package inmemdb

import (
	"context"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/escola/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

// emailTaken must be called with mu held.
func (repo *userRepository) emailTaken(email string, excludedID int64) bool {
	for _, u := range repo.db.users {
		if u.Email == email && u.ID != excludedID {
			return true
		}
	}
	return false
}

func (repo *userRepository) Create(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.emailTaken(usr.Email, 0) {
		return user.User{}, user.ErrEmailExists
	}
	usr.ID = repo.db.nextPK()
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) Update(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if repo.emailTaken(usr.Email, usr.ID) {
		return user.User{}, user.ErrEmailExists
	}
	orig.Name = usr.Name
	orig.Email = usr.Email
	orig.Role = usr.Role
	orig.PasswordHash = usr.PasswordHash
	orig.UpdatedAt = usr.UpdatedAt
	return *orig, nil
}

func (repo *userRepository) SetLastLogin(_ context.Context, id int64, at time.Time) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	usr, ok := repo.db.users[id]
	if !ok {
		return user.ErrNotFound
	}
	usr.LastLogin = null.TimeFrom(at)
	return nil
}

func (repo *userRepository) Delete(_ context.Context, id int64) error {
	db := repo.db
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.users[id]; !ok {
		return user.ErrNotFound
	}
	delete(db.users, id)

	for p := range db.guardianStudents {
		if p.a == id || p.b == id {
			delete(db.guardianStudents, p)
		}
	}
	for p := range db.subjectTeachers {
		if p.b == id {
			delete(db.subjectTeachers, p)
		}
	}
	for p := range db.enrollments {
		if p.b == id {
			delete(db.enrollments, p)
		}
	}
	for p := range db.grades {
		if p.a == id {
			delete(db.grades, p)
		}
	}
	for k := range db.attendance {
		if k.studentID == id {
			delete(db.attendance, k)
		}
	}
	for _, lp := range db.lessonPlans {
		if lp.TeacherID.Valid && lp.TeacherID.Int64 == id {
			lp.TeacherID = null.Int64{}
		}
	}
	for _, a := range db.announcements {
		if a.AuthorID.Valid && a.AuthorID.Int64 == id {
			a.AuthorID = null.Int64{}
		}
	}
	return nil
}

func (repo *userRepository) GetByID(_ context.Context, id int64) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetByEmail(_ context.Context, email string) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, usr := range repo.db.users {
		if usr.Email == email {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) Query(_ context.Context, filter user.QueryFilter) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range repo.db.users {
		if filter.Role != "" && usr.Role != filter.Role {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(usr.Name), search) &&
			!strings.Contains(usr.Email, search) {
			continue
		}
		users = append(users, *usr)
	}
	sortUsers(users)
	return users, nil
}

func (repo *userRepository) CountByRole(_ context.Context) (user.RoleCounts, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	counts := make(user.RoleCounts, len(user.AllRoles))
	for _, usr := range repo.db.users {
		counts[usr.Role]++
	}
	return counts, nil
}

func (repo *userRepository) LinkStudent(_ context.Context, guardianID, studentID int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	p := pair{guardianID, studentID}
	if repo.db.guardianStudents[p] {
		return user.ErrLinkExists
	}
	repo.db.guardianStudents[p] = true
	return nil
}

func (repo *userRepository) UnlinkStudent(_ context.Context, guardianID, studentID int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.guardianStudents, pair{guardianID, studentID})
	return nil
}

func (repo *userRepository) LinkedStudents(_ context.Context, guardianID int64) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var ids []int64
	for p := range repo.db.guardianStudents {
		if p.a == guardianID {
			ids = append(ids, p.b)
		}
	}
	return repo.db.usersByID(ids), nil
}

func (repo *userRepository) UnlinkedStudents(_ context.Context) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	linked := make(map[int64]bool)
	for p := range repo.db.guardianStudents {
		linked[p.b] = true
	}
	var ids []int64
	for _, usr := range repo.db.users {
		if usr.Role == user.RoleStudent && !linked[usr.ID] {
			ids = append(ids, usr.ID)
		}
	}
	return repo.db.usersByID(ids), nil
}
