package grade

import (
	"strconv"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/subject"
	"github.com/trezcool/escola/core/user"
)

// FieldPrefix starts every grade input name: grade-<studentID>-<assessmentID>.
const FieldPrefix = "grade-"

type (
	Assessment struct {
		ID        int64     `db:"id" json:"id"`
		SubjectID int64     `db:"subject_id" json:"subject_id"`
		Title     string    `db:"title" json:"title"`
		Date      time.Time `db:"assessed_on" json:"date"`
		CreatedAt time.Time `db:"created_at" json:"created_at"` // UTC
	}

	NewAssessment struct {
		Title string `form:"title" validate:"required,notblank"`
		Date  string `form:"date" validate:"isodate"` // empty: today
	}

	// Grade is the value a student got for an assessment; one per pair.
	Grade struct {
		StudentID    int64     `db:"student_id" json:"student_id"`
		AssessmentID int64     `db:"assessment_id" json:"assessment_id"`
		Value        float64   `db:"value" json:"value"`
		UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
	}

	// StudentGrade is one assessment of a subject as seen by a student; Value is null when not graded.
	StudentGrade struct {
		AssessmentID int64        `db:"assessment_id" json:"assessment_id"`
		Title        string       `db:"title" json:"title"`
		Date         time.Time    `db:"assessed_on" json:"date"`
		Value        null.Float64 `db:"value" json:"value"`
	}

	SubjectAverage struct {
		SubjectID int64   `db:"subject_id" json:"subject_id"`
		Name      string  `db:"name" json:"name"`
		Average   float64 `db:"average" json:"average"`
	}

	Gradebook struct {
		Subject     subject.Subject    `json:"subject"`
		Students    []user.User        `json:"students"`
		Assessments []Assessment       `json:"assessments"`
		Values      map[string]float64 `json:"values"` // keyed by FieldName
	}
)

func (na *NewAssessment) clean() {
	na.Title = core.CleanString(na.Title)
	na.Date = core.CleanString(na.Date)
}

// FieldName returns the form input name holding the grade of a student for an assessment.
func FieldName(studentID, assessmentID int64) string {
	return FieldPrefix + strconv.FormatInt(studentID, 10) + "-" + strconv.FormatInt(assessmentID, 10)
}

// Value returns the recorded grade of a student for an assessment, if any.
func (gb Gradebook) Value(studentID, assessmentID int64) (float64, bool) {
	v, ok := gb.Values[FieldName(studentID, assessmentID)]
	return v, ok
}

// Average returns the mean of values rounded to one decimal, or null when there are none.
func Average(values []float64) null.Float64 {
	if len(values) == 0 {
		return null.Float64{}
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return null.Float64From(core.Round(sum/float64(len(values)), 1))
}

// Values returns the recorded values of grades, in order.
func Values(grades []StudentGrade) []float64 {
	vals := make([]float64, 0, len(grades))
	for _, g := range grades {
		if g.Value.Valid {
			vals = append(vals, g.Value.Float64)
		}
	}
	return vals
}
