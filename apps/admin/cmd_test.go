package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/access"
	"github.com/trezcool/escuela/core/user"
	"github.com/trezcool/escuela/testutil"
)

func setup(t *testing.T) (*commandLine, *testutil.Env) {
	env := testutil.NewEnv(t)
	return &commandLine{
		db:        new(sql.DB),
		usrSvc:    env.UserSvc,
		schoolSvc: env.SchoolSvc,
		out:       new(bytes.Buffer),
	}, env
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func checkErr(t *testing.T, tt cliTest, err error) {
	if err == nil {
		if tt.wantErr != nil || tt.wantErrStr != "" {
			t.Errorf("cli.run() error = nil, wantErr %v%s", tt.wantErr, tt.wantErrStr)
		}
		return
	}
	switch {
	case tt.wantErr != nil:
		if err != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
		}
	default:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	var ran []string
	migrateFunc = func(command string, db *sql.DB) error {
		switch command {
		case "up", "up-by-one", "down", "redo":
			ran = append(ran, command)
			return nil
		default:
			return fmt.Errorf("%q: no such command", command)
		}
	}

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "redo", args: []string{"migrate", "redo"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}
	assert.Equal(t, []string{"up", "up-by-one", "down", "redo"}, ran)

	t.Run("in-memory backend", func(t *testing.T) {
		cli.db = nil
		checkErr(t, cliTest{wantErr: errNoSQL}, cli.run([]string{"admin", "migrate", "up"}))
	})
}

func Test_commandLine_addSchool(t *testing.T) {
	cli, _ := setup(t)

	tests := []cliTest{
		{name: "no args", args: []string{"addschool"}, wantErr: errHelp},
		{name: "blank name", args: []string{"addschool", "-name", "   "}, wantErrStr: "this field is required"},
		{name: "success", args: []string{"addschool", "-name", "Lycée Wima"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}

	assert.Contains(t, cli.out.(*bytes.Buffer).String(), `school "Lycée Wima" created: `)
}

func Test_commandLine_addUser(t *testing.T) {
	cli, env := setup(t)
	sch := testutil.CreateSchool(t, env.Schools, "Lycée Wima")

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no role", args: []string{"adduser", "-email", "dir@test.cd", "-name", "Dir"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-email", "dir@test.cd", "-name", "Dir", "-role", "director"}, wantErr: errHelp},
		{
			name: "unknown school", args: []string{"adduser", "-email", "dir@test.cd", "-name", "Dir", "-role", "director", "-school", "lol"},
			extra: extra{pwd: "Pwd.1234"}, wantErrStr: "school not found",
		},
		{
			name: "success", args: []string{"adduser", "-email", "DIR@test.cd", "-name", "Dir", "-role", "directora", "-school", sch.ID},
			extra: extra{pwd: "Pwd.1234"},
		},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		pwd := ""
		if e, ok := tt.extra.(extra); ok {
			pwd = e.pwd
		}
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}

	t.Run("invalid", func(t *testing.T) {
		mockPassword("Pwd.1234")
		err := cli.run([]string{"admin", "adduser", "-email", "x@test.cd", "-name", "X", "-role", "student"})
		require.Error(t, err)

		mockPassword("12345678")
		err = cli.run([]string{"admin", "adduser", "-email", "y@test.cd", "-name", "Y", "-role", "teacher"})
		require.Error(t, err)

		mockPassword("Pwd.1234")
		err = cli.run([]string{"admin", "adduser", "-email", "dir@test.cd", "-name", "Dir", "-role", "teacher"})
		assert.True(t, core.IsValidationError(err), "duplicate email: %v", err)
	})

	usr, err := env.UserSvc.GetByEmail(context.Background(), "dir@test.cd")
	require.NoError(t, err)
	assert.Equal(t, access.RoleDirector, usr.Role)
	assert.Equal(t, sch.ID, usr.SchoolID)
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword("Pwd.1234"))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, env := setup(t)

	usr := testutil.CreateUser(t, env.Users, "User", "awe@test.cd", "Old.Pwd.1", access.RoleTeacher, "", true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@test.cd"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@test.cd"}, extra: extra{pwd: "New.Pwd.1"}, wantErr: user.ErrNotFound},
		{name: "weak password", args: []string{"resetpassword", "-email", usr.Email}, extra: extra{pwd: "short"}},
		{name: "reset", args: []string{"resetpassword", "-email", "AWE@test.cd"}, extra: extra{pwd: "New.Pwd.1"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		pwd := ""
		if e, ok := tt.extra.(extra); ok {
			pwd = e.pwd
		}
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if tt.name == "weak password" {
				assert.True(t, core.IsValidationError(err), "err = %v", err)
				return
			}
			checkErr(t, tt, err)
			if err == nil {
				refreshed, err := env.UserSvc.GetByID(context.Background(), usr.ID)
				require.NoError(t, err)
				if bytes.Equal(refreshed.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
				assert.NoError(t, refreshed.CheckPassword(pwd))
			}
		})
	}
}

func Test_commandLine_setProfile(t *testing.T) {
	cli, env := setup(t)
	sch := testutil.CreateSchool(t, env.Schools, "Lycée Wima")
	usr := testutil.CreateUser(t, env.Users, "User", "awe@test.cd", "", access.RoleGuardian, "", true)

	tests := []cliTest{
		{name: "no args", args: []string{"setprofile"}, wantErr: errHelp},
		{name: "user not found", args: []string{"setprofile", "-email", "lol@test.cd", "-role", "teacher"}, wantErr: user.ErrNotFound},
		{name: "unknown school", args: []string{"setprofile", "-email", usr.Email, "-school", "lol"}, wantErrStr: "school not found"},
		{name: "invalid active", args: []string{"setprofile", "-email", usr.Email, "-active", "lol"}, wantErrStr: "\"lol\" is not a boolean"},
		{name: "role & school", args: []string{"setprofile", "-email", usr.Email, "-role", "maestra", "-school", sch.ID}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}

	ctx := context.Background()
	refreshed, err := env.UserSvc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, access.RoleTeacher, refreshed.Role)
	assert.Equal(t, sch.ID, refreshed.SchoolID)

	require.NoError(t, cli.run([]string{"admin", "setprofile", "-email", usr.Email, "-school", "none", "-active", "false"}))
	refreshed, err = env.UserSvc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.Empty(t, refreshed.SchoolID)
	assert.False(t, refreshed.IsActive)
}
