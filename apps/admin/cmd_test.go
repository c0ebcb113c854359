package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/access"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/user"
	emailsvc "github.com/jorgefranciscopaz/E-Learning-English-Platform/services/email"
	inmemdb "github.com/jorgefranciscopaz/E-Learning-English-Platform/storage/database/inmem"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/testutil"
)

var usrRepo user.Repository

func setup() *commandLine {
	conf := testutil.TestConfig()
	usrRepo = inmemdb.NewUserRepository(inmemdb.Open())

	return &commandLine{
		usrRepo: usrRepo,
		usrSvc:  user.NewService(usrRepo, emailsvc.NewConsoleServiceMock(conf, testutil.NopLogger{}), conf),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup()

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
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
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "badges", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup()
	ctx := context.Background()

	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-username", "boss"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		mockPassword("")
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	t.Run("invalid role", func(t *testing.T) {
		mockPassword("Bl4ckb0ard!")
		err := cli.run([]string{"admin", "adduser", "-username", "boss", "-role", "janitor"})
		assert.EqualError(t, err, "\"janitor\": invalid role")
	})

	t.Run("create admin", func(t *testing.T) {
		mockPassword("Bl4ckb0ard!")
		require.NoError(t, cli.run([]string{"admin", "adduser", "-username", "Boss", "-email", "Boss@School.com"}))

		usr, err := usrRepo.GetUserByUsernameOrEmail(ctx, "boss")
		require.NoError(t, err)
		assert.Equal(t, "boss@school.com", usr.Email)
		assert.Equal(t, access.RoleAdmin, usr.Role)
		assert.True(t, usr.IsActive)
		assert.NoError(t, usr.CheckPassword("Bl4ckb0ard!"))
	})

	t.Run("update existing", func(t *testing.T) {
		mockPassword("Wh1teb0ard?")
		require.NoError(t, cli.run([]string{"admin", "adduser", "-username", "boss", "-role", "docente"}))

		usr, err := usrRepo.GetUserByUsernameOrEmail(ctx, "boss")
		require.NoError(t, err)
		assert.Equal(t, "boss@school.com", usr.Email, "email is kept when not given")
		assert.Equal(t, access.RoleTeacher, usr.Role)
		assert.NoError(t, usr.CheckPassword("Wh1teb0ard?"))
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup()

	usr := testutil.CreateUser(t, usrRepo, "awe", "awe@test.cd", "Bl4ckb0ard!", access.RoleTeacher, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		pwd := ""
		if extra, ok := tt.extra.(extra); ok {
			pwd = extra.pwd
		}
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			refreshed, err := usrRepo.GetUserByID(context.Background(), usr.ID)
			require.NoError(t, err)
			assert.NoError(t, refreshed.CheckPassword(pwd))
		})
	}
}
