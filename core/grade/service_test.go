package grade_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/grade"
	"github.com/trezcool/escola/core/user"
	"github.com/trezcool/escola/tests"
)

func Test_service_CreateAssessment(t *testing.T) {
	s := testutil.NewServices(t)
	ctx := context.Background()
	sub := testutil.CreateSubject(t, s.Subjects, "Mathematics", 9, "1")

	_, err := s.Grades.CreateAssessment(ctx, sub.ID, grade.NewAssessment{Title: " "})
	assert.NotNil(t, core.FieldErrors(err, core.NewTranslator()))

	_, err = s.Grades.CreateAssessment(ctx, sub.ID, grade.NewAssessment{Title: "Test", Date: "13/01/2024"})
	assert.NotNil(t, core.FieldErrors(err, core.NewTranslator()))

	a, err := s.Grades.CreateAssessment(ctx, sub.ID, grade.NewAssessment{Title: " Test 1 "})
	require.NoError(t, err)
	assert.Equal(t, "Test 1", a.Title)
	assert.Equal(t, core.Today(), a.Date, "defaults to today")

	a, err = s.Grades.CreateAssessment(ctx, sub.ID, grade.NewAssessment{Title: "Test 2", Date: "2024-03-01"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), a.Date)

	require.Equal(t, grade.ErrAssessmentNotFound, s.Grades.DeleteAssessment(ctx, sub.ID+1, a.ID))
	require.NoError(t, s.Grades.DeleteAssessment(ctx, sub.ID, a.ID))
	as, err := s.Grades.Assessments(ctx, sub.ID)
	require.NoError(t, err)
	assert.Len(t, as, 1)
}

func Test_service_SaveGrades(t *testing.T) {
	s := testutil.NewServices(t)
	ctx := context.Background()
	sub := testutil.CreateSubject(t, s.Subjects, "Mathematics", 9, "1")
	other := testutil.CreateSubject(t, s.Subjects, "History", 9, "1")
	zoe := testutil.CreateUser(t, s.UsrRepo, "Zoe", "zoe@escola.test", "", user.RoleStudent)
	ben := testutil.CreateUser(t, s.UsrRepo, "Ben", "ben@escola.test", "", user.RoleStudent)
	testutil.Enroll(t, s.Subjects, sub.ID, zoe.ID)
	a1 := testutil.CreateAssessment(t, s.Grades, sub.ID, "Test 1", "2024-03-01")
	a2 := testutil.CreateAssessment(t, s.Grades, sub.ID, "Test 2", "2024-03-08")
	foreign := testutil.CreateAssessment(t, s.Grades, other.ID, "Quiz", "")

	field := grade.FieldName
	tests := []struct {
		name    string
		form    url.Values
		want    int
		wantErr error
	}{
		{name: "nothing", form: url.Values{}},
		{name: "foreign assessment", form: url.Values{field(zoe.ID, foreign.ID): {"5"}}, wantErr: grade.ErrUnknownAssessment},
		{name: "student not enrolled", form: url.Values{field(ben.ID, a1.ID): {"5"}}, wantErr: grade.ErrStudentNotEnrolled},
		{
			name:    "malformed value fails the whole form",
			form:    url.Values{field(zoe.ID, a1.ID): {"9"}, field(zoe.ID, a2.ID): {"x"}},
			wantErr: errors.New("malformed grade"),
		},
		{name: "saved", form: url.Values{field(zoe.ID, a1.ID): {"8.5"}, field(zoe.ID, a2.ID): {""}}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := s.Grades.SaveGrades(ctx, sub.ID, tt.form)
			if tt.wantErr != nil {
				vErr, ok := core.AsValidationError(err)
				require.True(t, ok, "want a validation error, got %v", err)
				assert.EqualError(t, vErr.Err, tt.wantErr.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}

	gb, err := s.Grades.Gradebook(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, []user.User{zoe}, gb.Students)
	assert.Equal(t, []grade.Assessment{a1, a2}, gb.Assessments)
	assert.Equal(t, map[string]float64{field(zoe.ID, a1.ID): 8.5}, gb.Values)
}

// saving twice for the same pair updates in place
func Test_service_SaveGrades_upsert(t *testing.T) {
	s := testutil.NewServices(t)
	ctx := context.Background()
	sub := testutil.CreateSubject(t, s.Subjects, "Mathematics", 9, "1")
	zoe := testutil.CreateUser(t, s.UsrRepo, "Zoe", "zoe@escola.test", "", user.RoleStudent)
	testutil.Enroll(t, s.Subjects, sub.ID, zoe.ID)
	a := testutil.CreateAssessment(t, s.Grades, sub.ID, "Test 1", "")

	for _, v := range []string{"8.5", "7.5"} {
		_, err := s.Grades.SaveGrades(ctx, sub.ID, url.Values{grade.FieldName(zoe.ID, a.ID): {v}})
		require.NoError(t, err)
	}

	history, err := s.Grades.StudentHistory(ctx, zoe.ID, sub.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, null.Float64From(7.5), history[0].Value)
	assert.Equal(t, null.Float64From(7.5), grade.Average(grade.Values(history)))
}

func Test_service_StudentGrades(t *testing.T) {
	s := testutil.NewServices(t)
	ctx := context.Background()
	sub := testutil.CreateSubject(t, s.Subjects, "Mathematics", 9, "1")
	zoe := testutil.CreateUser(t, s.UsrRepo, "Zoe", "zoe@escola.test", "", user.RoleStudent)
	testutil.Enroll(t, s.Subjects, sub.ID, zoe.ID)
	late := testutil.CreateAssessment(t, s.Grades, sub.ID, "Final", "2024-06-01")
	early := testutil.CreateAssessment(t, s.Grades, sub.ID, "Quiz", "2024-02-01")
	mid := testutil.CreateAssessment(t, s.Grades, sub.ID, "Midterm", "2024-04-01")

	_, err := s.Grades.SaveGrades(ctx, sub.ID, url.Values{
		grade.FieldName(zoe.ID, late.ID):  {"6"},
		grade.FieldName(zoe.ID, early.ID): {"9"},
	})
	require.NoError(t, err)

	all, err := s.Grades.StudentAssessments(ctx, zoe.ID, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, []grade.StudentGrade{
		{AssessmentID: early.ID, Title: "Quiz", Date: early.Date, Value: null.Float64From(9)},
		{AssessmentID: mid.ID, Title: "Midterm", Date: mid.Date},
		{AssessmentID: late.ID, Title: "Final", Date: late.Date, Value: null.Float64From(6)},
	}, all)

	history, err := s.Grades.StudentHistory(ctx, zoe.ID, sub.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, null.Float64From(7.5), grade.Average(grade.Values(history)))
}

func Test_service_SubjectAverages(t *testing.T) {
	s := testutil.NewServices(t)
	ctx := context.Background()
	math := testutil.CreateSubject(t, s.Subjects, "Mathematics", 9, "1")
	hist := testutil.CreateSubject(t, s.Subjects, "History", 9, "1")
	testutil.CreateSubject(t, s.Subjects, "Art", 9, "1") // no grades
	zoe := testutil.CreateUser(t, s.UsrRepo, "Zoe", "zoe@escola.test", "", user.RoleStudent)
	ben := testutil.CreateUser(t, s.UsrRepo, "Ben", "ben@escola.test", "", user.RoleStudent)
	testutil.Enroll(t, s.Subjects, math.ID, zoe.ID, ben.ID)
	testutil.Enroll(t, s.Subjects, hist.ID, zoe.ID)
	m1 := testutil.CreateAssessment(t, s.Grades, math.ID, "Test 1", "")
	h1 := testutil.CreateAssessment(t, s.Grades, hist.ID, "Essay", "")

	_, err := s.Grades.SaveGrades(ctx, math.ID, url.Values{
		grade.FieldName(zoe.ID, m1.ID): {"7"},
		grade.FieldName(ben.ID, m1.ID): {"6"},
	})
	require.NoError(t, err)
	_, err = s.Grades.SaveGrades(ctx, hist.ID, url.Values{grade.FieldName(zoe.ID, h1.ID): {"9.333"}})
	require.NoError(t, err)

	avgs, err := s.Grades.SubjectAverages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []grade.SubjectAverage{
		{SubjectID: hist.ID, Name: "History", Average: 9.33},
		{SubjectID: math.ID, Name: "Mathematics", Average: 6.5},
	}, avgs)
}
