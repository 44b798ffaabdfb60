package subject

import (
	"time"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/user"
)

type Subject struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Year      int       `db:"year" json:"year"`
	Term      string    `db:"term" json:"term"`
	CreatedAt time.Time `db:"created_at" json:"created_at"` // UTC
}

// NewSubject is used both to create and to edit a Subject.
type NewSubject struct {
	Name string `form:"name" validate:"required,notblank"`
	Year int    `form:"year" validate:"required,min=1"`
	Term string `form:"term" validate:"max=64"`
}

func (ns *NewSubject) clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.Term = core.CleanString(ns.Term)
}

// Details is the manager's view of one subject.
type Details struct {
	Subject           Subject     `json:"subject"`
	Teachers          []user.User `json:"teachers"`
	Students          []user.User `json:"students"`
	AvailableTeachers []user.User `json:"available_teachers"`
	AvailableStudents []user.User `json:"available_students"`
}
