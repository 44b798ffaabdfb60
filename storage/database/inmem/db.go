package inmemdb

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/trezcool/escola/core/announcement"
	"github.com/trezcool/escola/core/attendance"
	"github.com/trezcool/escola/core/grade"
	"github.com/trezcool/escola/core/lessonplan"
	"github.com/trezcool/escola/core/subject"
	"github.com/trezcool/escola/core/user"
)

type (
	pair struct{ a, b int64 }

	attKey struct {
		studentID, subjectID int64
		date                 time.Time
	}

	// DB is an in-memory store with the same referential rules as the postgres schema.
	DB struct {
		mu sync.RWMutex
		pk int64

		users            map[int64]*user.User
		guardianStudents map[pair]bool // {guardian, student}
		subjects         map[int64]*subject.Subject
		subjectTeachers  map[pair]bool // {subject, teacher}
		enrollments      map[pair]bool // {subject, student}
		assessments      map[int64]*grade.Assessment
		grades           map[pair]*grade.Grade // {student, assessment}
		attendance       map[attKey]*attendance.Record
		lessonPlans      map[int64]*lessonplan.Plan
		announcements    map[int64]*announcement.Announcement
	}
)

func NewDB() *DB {
	return &DB{
		users:            make(map[int64]*user.User),
		guardianStudents: make(map[pair]bool),
		subjects:         make(map[int64]*subject.Subject),
		subjectTeachers:  make(map[pair]bool),
		enrollments:      make(map[pair]bool),
		assessments:      make(map[int64]*grade.Assessment),
		grades:           make(map[pair]*grade.Grade),
		attendance:       make(map[attKey]*attendance.Record),
		lessonPlans:      make(map[int64]*lessonplan.Plan),
		announcements:    make(map[int64]*announcement.Announcement),
	}
}

// nextPK must be called with mu held.
func (db *DB) nextPK() int64 {
	db.pk++
	return db.pk
}

// usersByID returns the users matching ids, ordered by name. mu must be held.
func (db *DB) usersByID(ids []int64) []user.User {
	users := make([]user.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := db.users[id]; ok {
			users = append(users, *u)
		}
	}
	sortUsers(users)
	return users
}

func sortUsers(users []user.User) {
	sort.Slice(users, func(i, j int) bool {
		ni, nj := strings.ToLower(users[i].Name), strings.ToLower(users[j].Name)
		if ni == nj {
			return users[i].ID < users[j].ID
		}
		return ni < nj
	})
}

func sortSubjectsByName(subs []subject.Subject) {
	sort.Slice(subs, func(i, j int) bool {
		ni, nj := strings.ToLower(subs[i].Name), strings.ToLower(subs[j].Name)
		if ni == nj {
			return subs[i].ID < subs[j].ID
		}
		return ni < nj
	})
}
