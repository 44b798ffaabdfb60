package echoapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/escola/core/announcement"
	"github.com/trezcool/escola/core/subject"
	"github.com/trezcool/escola/core/user"
	"github.com/trezcool/escola/tests"
)

func Test_userApi(t *testing.T) {
	srv, svcs := setup(t)
	ctx := context.Background()
	manager := testutil.CreateUser(t, svcs.UsrRepo, "Maria", "maria@test.cd", testPwd, user.RoleManager)
	mc := loggedIn(t, srv, manager)

	t.Run("create", func(t *testing.T) {
		form := url.Values{
			"name":     {"  Ben  "},
			"email":    {"Ben@Test.cd"},
			"password": {testPwd},
			"role":     {"student"},
		}
		v := mc.follow(mc.post("/users", form))
		assert.Equal(t, "users", v.Template)
		assert.Equal(t, []string{"success: User created successfully!"}, flashMessages(v.Flashes))

		usr, err := svcs.Users.GetByEmail(ctx, "ben@test.cd")
		require.NoError(t, err)
		assert.Equal(t, "Ben", usr.Name)
		assert.Equal(t, user.RoleStudent, usr.Role)

		// same email again
		v = mc.follow(mc.post("/users", form))
		assert.Equal(t, []string{"danger: email: " + user.ErrEmailExists.Error()}, flashMessages(v.Flashes))
	})

	t.Run("create invalid", func(t *testing.T) {
		form := url.Values{"name": {"X"}, "email": {"not-an-email"}, "password": {"12345678"}, "role": {"janitor"}}
		v := mc.follow(mc.post("/users", form))
		assert.Len(t, v.Flashes, 3) // email, password, role
		for _, f := range v.Flashes {
			assert.Equal(t, "danger", f.Level)
		}
	})

	t.Run("create with a password bcrypt cannot hash", func(t *testing.T) {
		form := url.Values{"name": {"Liz"}, "email": {"liz@test.cd"}, "password": {strings.Repeat("Pwd.", 21)}, "role": {"student"}}
		rec := mc.post("/users", form)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		v := mc.follow(rec)
		assert.Equal(t, []string{"danger: password cannot be longer than 72 bytes"}, flashMessages(v.Flashes))
		_, err := svcs.Users.GetByEmail(ctx, "liz@test.cd")
		assert.ErrorIs(t, err, user.ErrNotFound)
	})

	t.Run("query", func(t *testing.T) {
		v := mc.page("/users?role=student&search=BEN")
		var data struct {
			Users []user.User `json:"users"`
		}
		require.NoError(t, json.Unmarshal(v.Data, &data))
		if assert.Len(t, data.Users, 1) {
			assert.Equal(t, "ben@test.cd", data.Users[0].Email)
		}
	})

	t.Run("update and delete", func(t *testing.T) {
		usr := testutil.CreateUser(t, svcs.UsrRepo, "Tom", "tom@test.cd", "", user.RoleTeacher)
		path := "/users/" + strconv.FormatInt(usr.ID, 10)

		assert.Equal(t, "user_edit", mc.page(path+"/edit").Template)

		rec := mc.post(path+"/edit", url.Values{"name": {"Tommy"}, "email": {"maria@test.cd"}, "role": {"teacher"}})
		assert.Equal(t, path+"/edit", rec.Header().Get("Location"))
		v := mc.follow(rec)
		assert.Equal(t, []string{"danger: email: " + user.ErrEmailExists.Error()}, flashMessages(v.Flashes))

		v = mc.follow(mc.post(path+"/edit", url.Values{"name": {"Tommy"}, "email": {"tom@test.cd"}, "role": {"teacher"}}))
		assert.Equal(t, []string{"success: User updated successfully!"}, flashMessages(v.Flashes))
		got, err := svcs.Users.GetByID(ctx, usr.ID)
		require.NoError(t, err)
		assert.Equal(t, "Tommy", got.Name)

		v = mc.follow(mc.post(path+"/delete", nil))
		assert.Equal(t, []string{"info: User deleted successfully."}, flashMessages(v.Flashes))
		_, err = svcs.Users.GetByID(ctx, usr.ID)
		assert.ErrorIs(t, err, user.ErrNotFound)

		v = mc.follow(mc.post(path+"/delete", nil))
		assert.Equal(t, []string{"warning: " + user.ErrNotFound.Error()}, flashMessages(v.Flashes))
	})

	t.Run("delete self", func(t *testing.T) {
		v := mc.follow(mc.post("/users/"+strconv.FormatInt(manager.ID, 10)+"/delete", nil))
		assert.Equal(t, []string{"warning: " + user.ErrDeleteSelf.Error()}, flashMessages(v.Flashes))
	})

	t.Run("guardian links", func(t *testing.T) {
		guardian := testutil.CreateUser(t, svcs.UsrRepo, "Gina", "gina@test.cd", "", user.RoleGuardian)
		student := testutil.CreateUser(t, svcs.UsrRepo, "Zoe", "zoe@test.cd", "", user.RoleStudent)
		gPath := "/guardians/" + strconv.FormatInt(guardian.ID, 10) + "/students"
		sID := strconv.FormatInt(student.ID, 10)

		v := mc.follow(mc.post(gPath, url.Values{"student_id": {sID}}))
		assert.Equal(t, "user_edit", v.Template)
		assert.Equal(t, []string{"success: Student linked successfully!"}, flashMessages(v.Flashes))

		v = mc.follow(mc.post(gPath, url.Values{"student_id": {sID}}))
		assert.Equal(t, []string{"warning: " + user.ErrLinkExists.Error()}, flashMessages(v.Flashes))

		v = mc.follow(mc.post(gPath, url.Values{"student_id": {"abc"}}))
		assert.Equal(t, []string{"warning: invalid id"}, flashMessages(v.Flashes))

		var data struct {
			Linked []user.User `json:"linked_students"`
		}
		require.NoError(t, json.Unmarshal(mc.page("/users/"+strconv.FormatInt(guardian.ID, 10)+"/edit").Data, &data))
		assert.Len(t, data.Linked, 1)

		v = mc.follow(mc.post(gPath+"/"+sID+"/delete", nil))
		assert.Equal(t, []string{"info: Student unlinked."}, flashMessages(v.Flashes))
		linked, err := svcs.Users.LinkedStudents(ctx, guardian.ID)
		require.NoError(t, err)
		assert.Empty(t, linked)
	})
}

func Test_managerApi_subjects(t *testing.T) {
	srv, svcs := setup(t)
	ctx := context.Background()
	manager := testutil.CreateUser(t, svcs.UsrRepo, "Maria", "maria@test.cd", testPwd, user.RoleManager)
	teacher := testutil.CreateUser(t, svcs.UsrRepo, "Tom", "tom@test.cd", "", user.RoleTeacher)
	student := testutil.CreateUser(t, svcs.UsrRepo, "Zoe", "zoe@test.cd", "", user.RoleStudent)
	mc := loggedIn(t, srv, manager)

	v := mc.follow(mc.post("/subjects", url.Values{"name": {""}, "year": {"9"}}))
	assert.Equal(t, "subjects", v.Template)
	assert.Equal(t, []string{"danger: name is required"}, flashMessages(v.Flashes))

	v = mc.follow(mc.post("/subjects", url.Values{"name": {"Math"}, "year": {"9"}, "term": {"1st"}}))
	assert.Equal(t, []string{"success: Subject created successfully!"}, flashMessages(v.Flashes))
	subs, err := svcs.Subjects.Query(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	path := "/subjects/" + strconv.FormatInt(subs[0].ID, 10)

	v = mc.follow(mc.post(path+"/teachers", url.Values{"teacher_id": {strconv.FormatInt(teacher.ID, 10)}}))
	assert.Equal(t, "subject_detail", v.Template)
	assert.Equal(t, []string{"success: Teacher assigned successfully!"}, flashMessages(v.Flashes))

	v = mc.follow(mc.post(path+"/teachers", url.Values{"teacher_id": {strconv.FormatInt(student.ID, 10)}}))
	assert.Equal(t, []string{"warning: " + subject.ErrNotTeacher.Error()}, flashMessages(v.Flashes))

	v = mc.follow(mc.post(path+"/students", url.Values{"student_id": {strconv.FormatInt(student.ID, 10)}}))
	assert.Equal(t, []string{"success: Student enrolled successfully!"}, flashMessages(v.Flashes))

	v = mc.follow(mc.post(path+"/students", url.Values{"student_id": {strconv.FormatInt(student.ID, 10)}}))
	assert.Equal(t, []string{"warning: " + subject.ErrAlreadyEnrolled.Error()}, flashMessages(v.Flashes))

	var details subject.Details
	require.NoError(t, json.Unmarshal(v.Data, &details))
	assert.Len(t, details.Teachers, 1)
	assert.Len(t, details.Students, 1)
	assert.Empty(t, details.AvailableStudents)

	v = mc.follow(mc.post(path+"/edit", url.Values{"name": {"Maths"}, "year": {"10"}}))
	assert.Equal(t, []string{"success: Subject updated successfully!"}, flashMessages(v.Flashes))

	v = mc.follow(mc.post(path+"/students/"+strconv.FormatInt(student.ID, 10)+"/delete", nil))
	assert.Equal(t, []string{"info: Student removed from the subject."}, flashMessages(v.Flashes))
	v = mc.follow(mc.post(path+"/teachers/"+strconv.FormatInt(teacher.ID, 10)+"/delete", nil))
	assert.Equal(t, []string{"info: Teacher removed from the subject."}, flashMessages(v.Flashes))

	v = mc.follow(mc.post(path+"/delete", nil))
	assert.Equal(t, "subjects", v.Template)
	assert.Equal(t, []string{"info: Subject deleted successfully."}, flashMessages(v.Flashes))
	assert.Equal(t, http.StatusNotFound, mc.get(path).Code)
}

func Test_managerApi_announcements(t *testing.T) {
	srv, svcs := setup(t)
	ctx := context.Background()
	manager := testutil.CreateUser(t, svcs.UsrRepo, "Maria", "maria@test.cd", testPwd, user.RoleManager)
	mc := loggedIn(t, srv, manager)

	v := mc.follow(mc.post("/announcements", url.Values{"title": {"Exams"}, "body": {"  "}}))
	assert.Equal(t, "announcements", v.Template)
	assert.Equal(t, []string{"danger: body is required"}, flashMessages(v.Flashes))

	v = mc.follow(mc.post("/announcements", url.Values{"title": {"Exams"}, "body": {"Next week."}}))
	assert.Equal(t, []string{"success: Announcement published successfully!"}, flashMessages(v.Flashes))

	var data struct {
		Announcements []announcement.Announcement `json:"announcements"`
	}
	require.NoError(t, json.Unmarshal(v.Data, &data))
	require.Len(t, data.Announcements, 1)
	assert.Equal(t, "Maria", data.Announcements[0].AuthorName.String)

	v = mc.follow(mc.post("/announcements/"+strconv.FormatInt(data.Announcements[0].ID, 10)+"/delete", nil))
	assert.Equal(t, []string{"info: Announcement deleted successfully."}, flashMessages(v.Flashes))
	anns, err := svcs.Announcements.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, anns)

	assert.Equal(t, "reports", mc.page("/reports").Template)
}
