package grade

import (
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/escola/core"
)

var errMalformedGrade = errors.New("malformed grade")

// ParseGradeForm extracts the grades posted as grade-<studentID>-<assessmentID>=<value>.
// Empty values are skipped; a malformed key or value fails the whole form.
func ParseGradeForm(form url.Values) ([]Grade, error) {
	keys := make([]string, 0, len(form))
	for key := range form {
		if strings.HasPrefix(key, FieldPrefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	grades := make([]Grade, 0, len(keys))
	var fldErrs []core.FieldError
	for _, key := range keys {
		raw := core.CleanString(form.Get(key))
		if raw == "" {
			continue
		}

		ids := strings.Split(strings.TrimPrefix(key, FieldPrefix), "-")
		if len(ids) != 2 {
			fldErrs = append(fldErrs, core.FieldError{Field: key, Error: "unknown grade field"})
			continue
		}
		studentID, err1 := strconv.ParseInt(ids[0], 10, 64)
		assessmentID, err2 := strconv.ParseInt(ids[1], 10, 64)
		// only the canonical spelling, so one pair cannot be posted twice
		if err1 != nil || err2 != nil || studentID <= 0 || assessmentID <= 0 || key != FieldName(studentID, assessmentID) {
			fldErrs = append(fldErrs, core.FieldError{Field: key, Error: "unknown grade field"})
			continue
		}

		value, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
		if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
			fldErrs = append(fldErrs, core.FieldError{Field: key, Error: raw + " is not a number"})
			continue
		}
		grades = append(grades, Grade{StudentID: studentID, AssessmentID: assessmentID, Value: value})
	}

	if len(fldErrs) > 0 {
		return nil, core.NewValidationError(errMalformedGrade, fldErrs...)
	}
	return grades, nil
}
