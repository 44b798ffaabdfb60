package subject_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/subject"
	"github.com/trezcool/escola/core/user"
	"github.com/trezcool/escola/tests"
)

func Test_service_CreateUpdate(t *testing.T) {
	s := testutil.NewServices(t)
	ctx := context.Background()

	_, err := s.Subjects.Create(ctx, subject.NewSubject{Name: " ", Year: 0})
	flds := core.FieldErrors(err, core.NewTranslator())
	require.Len(t, flds, 2)
	assert.ElementsMatch(t, []string{"name", "year"}, []string{flds[0].Field, flds[1].Field})

	sub, err := s.Subjects.Create(ctx, subject.NewSubject{Name: " Mathematics ", Year: 9, Term: "1st term"})
	require.NoError(t, err)
	assert.Equal(t, "Mathematics", sub.Name)

	updated, err := s.Subjects.Update(ctx, sub.ID, subject.NewSubject{Name: "Maths", Year: 10})
	require.NoError(t, err)
	assert.Equal(t, "Maths", updated.Name)
	assert.Equal(t, 10, updated.Year)
	assert.Equal(t, "", updated.Term)

	_, err = s.Subjects.Update(ctx, 999, subject.NewSubject{Name: "Maths", Year: 10})
	assert.Equal(t, subject.ErrNotFound, errors.Cause(err))
}

func Test_service_Query(t *testing.T) {
	s := testutil.NewServices(t)
	ctx := context.Background()
	bio9 := testutil.CreateSubject(t, s.Subjects, "Biology", 9, "")
	math10 := testutil.CreateSubject(t, s.Subjects, "Mathematics", 10, "")
	art9 := testutil.CreateSubject(t, s.Subjects, "Art", 9, "")

	subs, err := s.Subjects.Query(ctx)
	require.NoError(t, err)
	assert.Equal(t, []subject.Subject{math10, art9, bio9}, subs)

	n, err := s.Subjects.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func Test_service_members(t *testing.T) {
	s := testutil.NewServices(t)
	ctx := context.Background()
	sub := testutil.CreateSubject(t, s.Subjects, "Mathematics", 9, "1")
	teacher := testutil.CreateUser(t, s.UsrRepo, "Teach", "teach@escola.test", "", user.RoleTeacher)
	zoe := testutil.CreateUser(t, s.UsrRepo, "Zoe", "zoe@escola.test", "", user.RoleStudent)
	ben := testutil.CreateUser(t, s.UsrRepo, "Ben", "ben@escola.test", "", user.RoleStudent)

	tests := []struct {
		name    string
		do      func() error
		wantErr error
	}{
		{name: "assign student as teacher", do: func() error { return s.Subjects.AssignTeacher(ctx, sub.ID, zoe.ID) }, wantErr: subject.ErrNotTeacher},
		{name: "assign to unknown subject", do: func() error { return s.Subjects.AssignTeacher(ctx, 999, teacher.ID) }, wantErr: subject.ErrNotFound},
		{name: "assign", do: func() error { return s.Subjects.AssignTeacher(ctx, sub.ID, teacher.ID) }},
		{name: "assign twice", do: func() error { return s.Subjects.AssignTeacher(ctx, sub.ID, teacher.ID) }, wantErr: subject.ErrAlreadyAssigned},
		{name: "enroll teacher", do: func() error { return s.Subjects.EnrollStudent(ctx, sub.ID, teacher.ID) }, wantErr: subject.ErrNotStudent},
		{name: "enroll unknown user", do: func() error { return s.Subjects.EnrollStudent(ctx, sub.ID, 999) }, wantErr: user.ErrNotFound},
		{name: "enroll zoe", do: func() error { return s.Subjects.EnrollStudent(ctx, sub.ID, zoe.ID) }},
		{name: "enroll ben", do: func() error { return s.Subjects.EnrollStudent(ctx, sub.ID, ben.ID) }},
		{name: "enroll twice", do: func() error { return s.Subjects.EnrollStudent(ctx, sub.ID, ben.ID) }, wantErr: subject.ErrAlreadyEnrolled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, errors.Cause(tt.do()))
		})
	}

	d, err := s.Subjects.Details(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub, d.Subject)
	assert.Equal(t, []user.User{teacher}, d.Teachers)
	assert.Equal(t, []user.User{ben, zoe}, d.Students)
	assert.Empty(t, d.AvailableTeachers)
	assert.Empty(t, d.AvailableStudents)

	ok, err := s.Subjects.IsTeacherOf(ctx, teacher.ID, sub.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Subjects.IsEnrolled(ctx, zoe.ID, sub.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Subjects.UnenrollStudent(ctx, sub.ID, zoe.ID))
	require.NoError(t, s.Subjects.UnassignTeacher(ctx, sub.ID, teacher.ID))
	d, err = s.Subjects.Details(ctx, sub.ID)
	require.NoError(t, err)
	assert.Empty(t, d.Teachers)
	assert.Equal(t, []user.User{ben}, d.Students)
	assert.Equal(t, []user.User{teacher}, d.AvailableTeachers)
	assert.Equal(t, []user.User{zoe}, d.AvailableStudents)

	subs, err := s.Subjects.StudentSubjects(ctx, ben.ID)
	require.NoError(t, err)
	assert.Equal(t, []subject.Subject{sub}, subs)
}

func Test_service_Delete_cascades(t *testing.T) {
	s := testutil.NewServices(t)
	ctx := context.Background()
	sub := testutil.CreateSubject(t, s.Subjects, "Mathematics", 9, "1")
	teacher := testutil.CreateUser(t, s.UsrRepo, "Teach", "teach@escola.test", "", user.RoleTeacher)
	zoe := testutil.CreateUser(t, s.UsrRepo, "Zoe", "zoe@escola.test", "", user.RoleStudent)
	testutil.Assign(t, s.Subjects, sub.ID, teacher.ID)
	testutil.Enroll(t, s.Subjects, sub.ID, zoe.ID)
	testutil.CreateAssessment(t, s.Grades, sub.ID, "Test 1", "")

	require.NoError(t, s.Subjects.Delete(ctx, sub.ID))
	assert.Equal(t, subject.ErrNotFound, errors.Cause(s.Subjects.Delete(ctx, sub.ID)))

	subs, err := s.Subjects.TeacherSubjects(ctx, teacher.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)
	subs, err = s.Subjects.StudentSubjects(ctx, zoe.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)
	as, err := s.Grades.Assessments(ctx, sub.ID)
	require.NoError(t, err)
	assert.Empty(t, as)
}
