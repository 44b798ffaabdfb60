package lessonplan_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/lessonplan"
	"github.com/trezcool/escola/core/user"
	"github.com/trezcool/escola/tests"
)

func Test_service_Create(t *testing.T) {
	s := testutil.NewServices(t)
	ctx := context.Background()
	sub := testutil.CreateSubject(t, s.Subjects, "Mathematics", 9, "1")
	teacher := testutil.CreateUser(t, s.UsrRepo, "Tom", "tom@escola.test", "", user.RoleTeacher)

	tests := []struct {
		name       string
		np         lessonplan.NewPlan
		wantFields []string
	}{
		{name: "blank title", np: lessonplan.NewPlan{Title: "  "}, wantFields: []string{"title"}},
		{name: "bad date", np: lessonplan.NewPlan{Title: "Fractions", PlannedOn: "next monday"}, wantFields: []string{"planned_on"}},
		{name: "ok", np: lessonplan.NewPlan{Title: " Fractions ", Description: " halves ", PlannedOn: "2024-03-04"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := s.LessonPlans.Create(ctx, sub.ID, teacher.ID, tt.np)
			if tt.wantFields != nil {
				var fields []string
				for _, f := range core.FieldErrors(err, core.NewTranslator()) {
					fields = append(fields, f.Field)
				}
				assert.Equal(t, tt.wantFields, fields)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Fractions", p.Title)
			assert.Equal(t, "halves", p.Description)
			assert.Equal(t, null.Int64From(teacher.ID), p.TeacherID)
			assert.Equal(t, null.TimeFrom(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)), p.PlannedOn)
		})
	}
}

func Test_service_UpdateDelete(t *testing.T) {
	s := testutil.NewServices(t)
	ctx := context.Background()
	sub := testutil.CreateSubject(t, s.Subjects, "Mathematics", 9, "1")
	teacher := testutil.CreateUser(t, s.UsrRepo, "Tom", "tom@escola.test", "", user.RoleTeacher)

	p, err := s.LessonPlans.Create(ctx, sub.ID, teacher.ID, lessonplan.NewPlan{Title: "Fractions", PlannedOn: "2024-03-04"})
	require.NoError(t, err)

	p, err = s.LessonPlans.Update(ctx, p.ID, lessonplan.NewPlan{Title: "Decimals"})
	require.NoError(t, err)
	assert.Equal(t, "Decimals", p.Title)
	assert.False(t, p.PlannedOn.Valid, "clearing the date unsets it")

	_, err = s.LessonPlans.Update(ctx, p.ID+100, lessonplan.NewPlan{Title: "Decimals"})
	assert.Equal(t, lessonplan.ErrNotFound, errors.Cause(err))

	// deleting the author keeps the plan
	require.NoError(t, s.Users.Delete(ctx, user.Identity{}, teacher.ID))
	p, err = s.LessonPlans.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, p.TeacherID.Valid)

	require.NoError(t, s.LessonPlans.Delete(ctx, p.ID))
	_, err = s.LessonPlans.GetByID(ctx, p.ID)
	assert.Equal(t, lessonplan.ErrNotFound, errors.Cause(err))
	assert.Equal(t, lessonplan.ErrNotFound, errors.Cause(s.LessonPlans.Delete(ctx, p.ID)))
}

func Test_service_QueryBySubject(t *testing.T) {
	s := testutil.NewServices(t)
	ctx := context.Background()
	sub := testutil.CreateSubject(t, s.Subjects, "Mathematics", 9, "1")
	other := testutil.CreateSubject(t, s.Subjects, "History", 9, "1")
	teacher := testutil.CreateUser(t, s.UsrRepo, "Tom", "tom@escola.test", "", user.RoleTeacher)

	for _, np := range []lessonplan.NewPlan{
		{Title: "Unscheduled"},
		{Title: "Early", PlannedOn: "2024-01-10"},
		{Title: "b late", PlannedOn: "2024-05-10"},
		{Title: "A late", PlannedOn: "2024-05-10"},
	} {
		_, err := s.LessonPlans.Create(ctx, sub.ID, teacher.ID, np)
		require.NoError(t, err)
	}
	_, err := s.LessonPlans.Create(ctx, other.ID, teacher.ID, lessonplan.NewPlan{Title: "Romans"})
	require.NoError(t, err)

	plans, err := s.LessonPlans.QueryBySubject(ctx, sub.ID)
	require.NoError(t, err)
	var titles []string
	for _, p := range plans {
		titles = append(titles, p.Title)
	}
	assert.Equal(t, []string{"A late", "b late", "Early", "Unscheduled"}, titles)
}
