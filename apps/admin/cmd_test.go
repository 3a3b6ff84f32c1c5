package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kikundi/core/user"
	dummydb "github.com/trezcool/kikundi/storage/database/dummy"
	"github.com/trezcool/kikundi/tests"
)

var usrRepo user.Repository

func setup(t *testing.T) *commandLine {
	t.Helper()

	conf := testutil.NewConfig()
	conf.Bootstrap.TeacherName = "Mwalimu"
	conf.Bootstrap.TeacherEmail = "mwalimu@test.cd"
	conf.Bootstrap.TeacherPassword = "kikundi-admin"

	usrRepo = dummydb.NewUserRepository(dummydb.Open())
	return &commandLine{
		usrSvc: user.NewService(usrRepo, conf),
		conf:   conf,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string   // typed at the password prompt
	wantErr    error
	wantErrStr string
}

func (tt cliTest) run(t *testing.T, cli *commandLine) error {
	t.Helper()
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(tt.pwd), nil
	}
	return cli.run(append([]string{"admin"}, tt.args...))
}

func (tt cliTest) checkErr(t *testing.T, err error) bool {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		return assert.NoError(t, err)
	}
	return false
}

func Test_commandLine_usage(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.checkErr(t, tt.run(t, cli))
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	defaultRun := gooseRunFunc
	defer func() { gooseRunFunc = defaultRun }()

	var gotDir string
	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		gotDir = dir
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
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
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotDir = ""
			if tt.checkErr(t, tt.run(t, cli)) {
				assert.Equal(t, "migrations", gotDir)
			}
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	usr := testutil.CreateUser(t, usrRepo, "Amani", "amani@test.cd", "old-password", user.RoleStudent)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "amani@test.cd"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@test.cd"}, pwd: "lol", wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", "amani@test.cd"}, pwd: "new-password"},
		{name: "reset with mixed case email", args: []string{"resetpassword", "-email", " Amani@Test.cd "}, pwd: "newer-password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.checkErr(t, tt.run(t, cli)) {
				refreshed, err := usrRepo.GetUserByID(context.Background(), usr.ID)
				require.NoError(t, err)
				assert.False(t, bytes.Equal(refreshed.PasswordHash, usr.PasswordHash), "password not updated")
				assert.NoError(t, refreshed.CheckPassword(tt.pwd))
				usr = refreshed
			}
		})
	}
}

func Test_commandLine_addTeacher(t *testing.T) {
	cli := setup(t)
	testutil.CreateUser(t, usrRepo, "Baraka", "baraka@test.cd", "old-password", user.RoleStudent)

	tests := []struct {
		cliTest
		wantName string
	}{
		{cliTest: cliTest{name: "no args", args: []string{"addteacher"}, wantErr: errHelp}},
		{cliTest: cliTest{name: "email but no password", args: []string{"addteacher", "-email", "neema@test.cd"}, wantErr: errHelp}},
		{
			cliTest:  cliTest{name: "new teacher", args: []string{"addteacher", "-email", "Neema@test.cd", "-name", "Neema"}, pwd: "teach-me"},
			wantName: "Neema",
		},
		{
			cliTest:  cliTest{name: "new teacher without name", args: []string{"addteacher", "-email", "zuri@test.cd"}, pwd: "teach-me"},
			wantName: "zuri@test.cd",
		},
		{
			cliTest:  cliTest{name: "promote student", args: []string{"addteacher", "-email", "baraka@test.cd", "-name", "Mr Baraka"}, pwd: "teach-me"},
			wantName: "Mr Baraka",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.checkErr(t, tt.run(t, cli)) {
				email := tt.args[2]
				usr, err := cli.usrSvc.GetByEmail(context.Background(), email)
				require.NoError(t, err)
				assert.Equal(t, user.RoleTeacher, usr.Role)
				assert.Equal(t, tt.wantName, usr.Name)
				assert.NoError(t, usr.CheckPassword(tt.pwd))
			}
		})
	}
}

func Test_commandLine_seed(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	require.NoError(t, cliTest{args: []string{"seed"}}.run(t, cli))
	usr, err := cli.usrSvc.GetByEmail(ctx, "mwalimu@test.cd")
	require.NoError(t, err)
	assert.Equal(t, user.RoleTeacher, usr.Role)
	assert.NoError(t, usr.CheckPassword("kikundi-admin"))

	// second run is a no-op
	require.NoError(t, cliTest{args: []string{"seed"}}.run(t, cli))
	count, err := usrRepo.CountUsersByRole(ctx, user.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
