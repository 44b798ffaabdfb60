package echoapi_test

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/escola/core/user"
	"github.com/trezcool/escola/services/email"
	"github.com/trezcool/escola/tests"
)

func Test_authApi_login(t *testing.T) {
	srv, svcs := setup(t)
	teacher := testutil.CreateUser(t, svcs.UsrRepo, "Tom", "tom@test.cd", testPwd, user.RoleTeacher)
	teacherHome := "/teachers/" + strconv.FormatInt(teacher.ID, 10)

	t.Run("wrong password", func(t *testing.T) {
		c := newClient(t, srv)
		v := c.follow(c.post("/login", url.Values{"email": {"tom@test.cd"}, "password": {"nope"}}))
		assert.Equal(t, "login", v.Template)
		assert.True(t, v.Identity.IsZero())
		assert.Equal(t, []string{"danger: " + user.ErrAuthenticationFailed.Error()}, flashMessages(v.Flashes))
	})

	t.Run("unknown email", func(t *testing.T) {
		c := newClient(t, srv)
		v := c.follow(c.post("/login", url.Values{"email": {"who@test.cd"}, "password": {testPwd}}))
		assert.Equal(t, []string{"danger: " + user.ErrAuthenticationFailed.Error()}, flashMessages(v.Flashes))
	})

	t.Run("success", func(t *testing.T) {
		c := newClient(t, srv)
		rec := c.post("/login", url.Values{"email": {" TOM@test.cd "}, "password": {testPwd}})
		assert.Equal(t, teacherHome, rec.Header().Get("Location"))

		v := c.follow(rec)
		assert.Equal(t, "teacher_dashboard", v.Template)
		assert.Equal(t, teacher.Identity(), v.Identity)
		assert.Equal(t, []string{"success: Welcome, Tom!"}, flashMessages(v.Flashes))

		usr, err := svcs.Users.GetByID(context.Background(), teacher.ID)
		require.NoError(t, err)
		assert.True(t, usr.LastLogin.Valid)

		// already logged in
		rec = c.get("/login")
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, teacherHome, rec.Header().Get("Location"))

		v = c.follow(c.get("/logout"))
		assert.Equal(t, "login", v.Template)
		assert.True(t, v.Identity.IsZero())
		assert.Equal(t, []string{"info: You have been logged out."}, flashMessages(v.Flashes))

		rec = c.get(teacherHome)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	})
}

func Test_authApi_forgotPassword(t *testing.T) {
	srv, svcs := setup(t)
	testutil.CreateUser(t, svcs.UsrRepo, "Tom", "tom@test.cd", testPwd, user.RoleTeacher)
	wantFlash := []string{"info: If an account exists for this email, a password reset link has been sent to it."}

	c := newClient(t, srv)
	v := c.follow(c.post("/forgot-password", url.Values{"email": {"who@test.cd"}}))
	assert.Equal(t, "login", v.Template)
	assert.Equal(t, wantFlash, flashMessages(v.Flashes))
	assert.Empty(t, emailsvc.SentMessages())

	v = c.follow(c.post("/forgot-password", url.Values{"email": {"tom@test.cd"}}))
	assert.Equal(t, wantFlash, flashMessages(v.Flashes))
	msgs := emailsvc.SentMessages()
	if assert.Len(t, msgs, 1) {
		assert.Equal(t, "tom@test.cd", msgs[0].To[0].Address)
		assert.Contains(t, msgs[0].TextContent, svcs.Conf.Server.BaseURL+"/reset-password/")
	}
}

func Test_authApi_resetPassword(t *testing.T) {
	srv, svcs := setup(t)
	usr := testutil.CreateUser(t, svcs.UsrRepo, "Tom", "tom@test.cd", testPwd, user.RoleTeacher)
	newPwd := url.Values{"password": {"N3w.Passw0rd"}, "password_confirm": {"N3w.Passw0rd"}}

	token := func(t *testing.T, timeout time.Duration) string {
		tok, err := user.MakeResetToken(usr, svcs.Conf.SecretKey, timeout)
		require.NoError(t, err)
		return tok
	}

	t.Run("page", func(t *testing.T) {
		c := newClient(t, srv)
		assert.Equal(t, "reset_password", c.page("/reset-password/"+token(t, time.Hour)).Template)
	})

	t.Run("expired", func(t *testing.T) {
		c := newClient(t, srv)
		v := c.follow(c.post("/reset-password/"+token(t, -time.Minute), newPwd))
		assert.Equal(t, "forgot_password", v.Template)
		assert.Equal(t, []string{"danger: This password reset link has expired. Please request a new one."}, flashMessages(v.Flashes))
	})

	t.Run("tampered", func(t *testing.T) {
		c := newClient(t, srv)
		v := c.follow(c.post("/reset-password/"+token(t, time.Hour)+"x", newPwd))
		assert.Equal(t, []string{"danger: This password reset link is invalid or has already been used."}, flashMessages(v.Flashes))
	})

	t.Run("mismatching passwords", func(t *testing.T) {
		c := newClient(t, srv)
		tok := token(t, time.Hour)
		rec := c.post("/reset-password/"+tok, url.Values{"password": {"N3w.Passw0rd"}, "password_confirm": {"other"}})
		assert.Equal(t, "/reset-password/"+tok, rec.Header().Get("Location"))
		v := c.follow(rec)
		if assert.Len(t, v.Flashes, 1) {
			assert.Equal(t, "danger", v.Flashes[0].Level)
		}
	})

	t.Run("success then reuse", func(t *testing.T) {
		c := newClient(t, srv)
		tok := token(t, time.Hour)
		v := c.follow(c.post("/reset-password/"+tok, newPwd))
		assert.Equal(t, "login", v.Template)
		assert.Equal(t, []string{"success: Your password has been reset. You can now log in."}, flashMessages(v.Flashes))

		rec := c.post("/login", url.Values{"email": {usr.Email}, "password": {"N3w.Passw0rd"}})
		assert.Equal(t, "/teachers/"+strconv.FormatInt(usr.ID, 10), rec.Header().Get("Location"))

		c = newClient(t, srv)
		v = c.follow(c.post("/reset-password/"+tok, newPwd))
		assert.Equal(t, "forgot_password", v.Template)
		assert.Equal(t, []string{"danger: This password reset link is invalid or has already been used."}, flashMessages(v.Flashes))
	})
}
