package attendance

import (
	"time"

	"github.com/trezcool/escola/core/subject"
	"github.com/trezcool/escola/core/user"
)

// PresentField is the form field listing the ids of present students.
const PresentField = "present"

type (
	// Record is whether a student attended a subject on a date; one per triple.
	Record struct {
		StudentID int64     `db:"student_id" json:"student_id"`
		SubjectID int64     `db:"subject_id" json:"subject_id"`
		Date      time.Time `db:"date" json:"date"`
		Present   bool      `db:"present" json:"present"`
	}

	SheetRow struct {
		Student  user.User `json:"student"`
		Present  bool      `json:"present"`
		Recorded bool      `json:"recorded"`
	}

	// Sheet is the roll call of a subject for one date.
	Sheet struct {
		Subject subject.Subject `json:"subject"`
		Date    time.Time       `json:"date"`
		Rows    []SheetRow      `json:"rows"`
	}

	Summary struct {
		Total      int     `json:"total"`
		Presences  int     `json:"presences"`
		Absences   int     `json:"absences"`
		Percentage float64 `json:"percentage"`
	}
)

// Percentage returns presences over total as a percentage; 100 when there is nothing recorded.
func Percentage(presences, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(presences) / float64(total) * 100
}

func Summarize(records []Record) Summary {
	s := Summary{Total: len(records)}
	for _, r := range records {
		if r.Present {
			s.Presences++
		}
	}
	s.Absences = s.Total - s.Presences
	s.Percentage = Percentage(s.Presences, s.Total)
	return s
}
