package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/escola/core/user"
	testutil "github.com/trezcool/escola/tests"
)

func setup(t *testing.T) (*commandLine, *testutil.Services) {
	logger = log.New(io.Discard, "", 0)
	svcs := testutil.NewServices(t)

	// start CLI
	return &commandLine{
		usrRepo:  svcs.UsrRepo,
		usrSvc:   svcs.Users,
		subSvc:   svcs.Subjects,
		gradeSvc: svcs.Grades,
		attSvc:   svcs.Attendance,
		planSvc:  svcs.LessonPlans,
		annSvc:   svcs.Announcements,
	}, svcs
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func checkRunErr(t *testing.T, tt cliTest, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Contains(t, err.Error(), tt.wantErrStr)
		}
	default:
		assert.NoError(t, err)
	}
}

func mockPassword(t *testing.T, pwd string) {
	t.Helper()
	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	orig := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = orig })
	gooseRunFunc = func(_ *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkRunErr(t, tt, cli.run(args))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, svcs := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no role", args: []string{"adduser", "-name", "Maria", "-email", "maria@test.cd"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-name", "Maria", "-email", "maria@test.cd", "-role", "manager"}, wantErr: errHelp},
		{
			name: "weak password", args: []string{"adduser", "-name", "Maria", "-email", "maria@test.cd", "-role", "manager"},
			extra: "12345678", wantErrStr: "Key: 'NewUser.password' Error:Field validation for 'password' failed on the 'pwdnotallnum' tag",
		},
		{
			name: "invalid role", args: []string{"adduser", "-name", "Maria", "-email", "maria@test.cd", "-role", "janitor"},
			extra: testPwd, wantErrStr: "Key: 'NewUser.role' Error:Field validation for 'role' failed on the 'role' tag",
		},
		{name: "created", args: []string{"adduser", "-name", "Maria", "-email", "Maria@Test.cd", "-role", "MANAGER"}, extra: testPwd},
		{
			name: "email taken", args: []string{"adduser", "-name", "Maria", "-email", "maria@test.cd", "-role", "manager"},
			extra: testPwd, wantErrStr: user.ErrEmailExists.Error(),
		},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			pwd, _ := tt.extra.(string)
			mockPassword(t, pwd)
			checkRunErr(t, tt, cli.run(args))
		})
	}

	usr, err := svcs.Users.Authenticate(context.Background(), "maria@test.cd", testPwd)
	require.NoError(t, err)
	assert.Equal(t, user.RoleManager, usr.Role)
}

const testPwd = "Pwd.12345"

func Test_commandLine_resetPassword(t *testing.T) {
	cli, svcs := setup(t)
	usr := testutil.CreateUser(t, svcs.UsrRepo, "Tom", "tom@test.cd", "mdr", user.RoleTeacher)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol"}, extra: "lol", wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", " TOM@test.cd"}, extra: "lmao"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			pwd, _ := tt.extra.(string)
			mockPassword(t, pwd)
			err := cli.run(args)
			checkRunErr(t, tt, err)
			if err == nil {
				refreshedUsr, err := svcs.UsrRepo.GetByID(context.Background(), usr.ID)
				require.NoError(t, err)
				assert.False(t, bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash), "failed to update new password")
				assert.NoError(t, refreshedUsr.CheckPassword(pwd))
			}
		})
	}
}

func Test_commandLine_seed(t *testing.T) {
	cli, svcs := setup(t)
	ctx := context.Background()

	require.NoError(t, cli.run([]string{"admin", "seed", "-password", testPwd}))

	counts, err := svcs.Users.CountByRole(ctx)
	require.NoError(t, err)
	assert.Equal(t, user.RoleCounts{
		user.RoleManager:  len(seedManagers),
		user.RoleTeacher:  len(seedTeachers),
		user.RoleStudent:  len(seedStudents),
		user.RoleGuardian: len(seedGuardians),
	}, counts)

	nSubjects, err := svcs.Subjects.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(seedSubjects), nSubjects)

	guardian, err := svcs.Users.Authenticate(ctx, seedGuardians[0].email, testPwd)
	require.NoError(t, err)
	dash, err := svcs.Dashboard.StudentDashboard(ctx, guardian.Identity(), 0)
	require.NoError(t, err)
	require.NotNil(t, dash.Student)
	assert.Equal(t, seedStudents[0].email, dash.Student.Email)
	require.Len(t, dash.Subjects, len(seedSubjects))
	for _, p := range dash.Subjects {
		assert.Len(t, p.Records, seedAttendanceDays)
	}
	assert.Len(t, dash.Announcements, 2)

	averages, err := svcs.Dashboard.GradeReport(ctx)
	require.NoError(t, err)
	assert.Len(t, averages, 3) // graded subjects only
	for _, a := range averages {
		assert.True(t, a.Average >= 6 && a.Average <= 10, a)
	}

	assert.Equal(t, errNotEmpty, cli.run([]string{"admin", "seed"}))
}

func TestSeedGrade(t *testing.T) {
	for s := 0; s < len(seedStudents); s++ {
		for a := 0; a < len(seedAssessments); a++ {
			v, err := strconv.ParseFloat(seedGrade(s, a), 64)
			require.NoError(t, err)
			assert.True(t, v >= 6 && v <= 10, v)
		}
	}
	assert.Equal(t, "6.0", seedGrade(0, 0))
	assert.Equal(t, "6.7", seedGrade(1, 0))
}
