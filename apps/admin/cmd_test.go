package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/user"
	"github.com/trezcool/kampus/storage/database/dummydb"
	testutil "github.com/trezcool/kampus/tests"
)

var usrRepo user.Repository

func setup(t *testing.T) *commandLine {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}
	usrRepo = dummydb.NewUserRepository(db)

	return &commandLine{
		db:      &sqlx.DB{},
		usrRepo: usrRepo,
		conf:    core.NewTestConfig(),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

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
		{name: "create", args: []string{"migrate", "create", "grades", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	readPasswordFunc = func(int) ([]byte, error) { return []byte("S3cr3t!pwd"), nil }

	t.Run("no email", func(t *testing.T) {
		if err := cli.run([]string{"admin", "adduser"}); err != errHelp {
			t.Errorf("cli.run() error = %v, wantErr %v", err, errHelp)
		}
	})

	t.Run("new admin account", func(t *testing.T) {
		if err := cli.run([]string{"admin", "adduser", "-email", "boss@test.cd", "-admin"}); err != nil {
			t.Fatalf("cli.run() unexpected error = %v", err)
		}
		usr, err := usrRepo.GetUserByEmail(ctx, "boss@test.cd")
		if err != nil {
			t.Fatalf("GetUserByEmail(): %v", err)
		}
		if usr.Level != user.LevelAdmin {
			t.Errorf("level = %v, want %v", usr.Level, user.LevelAdmin)
		}
		if err := usr.CheckPassword("S3cr3t!pwd", cli.conf.HashSecret); err != nil {
			t.Errorf("CheckPassword(): %v", err)
		}
	})

	t.Run("existing account is updated", func(t *testing.T) {
		testutil.CreateUser(t, usrRepo, cli.conf, "Old", "Timer", "old@test.cd", "", "0ld!Passw0rd", user.LevelStudent, false)

		if err := cli.run([]string{"admin", "adduser", "-email", "old@test.cd", "-admin"}); err != nil {
			t.Fatalf("cli.run() unexpected error = %v", err)
		}
		usr, err := usrRepo.GetUserByEmail(ctx, "old@test.cd")
		if err != nil {
			t.Fatalf("GetUserByEmail(): %v", err)
		}
		if usr.Level != user.LevelAdmin {
			t.Errorf("level = %v, want %v", usr.Level, user.LevelAdmin)
		}
		if usr.IsActive == nil || !*usr.IsActive {
			t.Error("account should be reactivated")
		}
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	testutil.CreateUser(t, usrRepo, cli.conf, "Jane", "Doe", "jane@test.cd", "", "0ld!Passw0rd", user.LevelStudent, true)
	readPasswordFunc = func(int) ([]byte, error) { return []byte("N3w!Passw0rd"), nil }

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "unknown email", args: []string{"resetpassword", "-email", "ghost@test.cd"}, wantErr: user.ErrNotFound},
		{name: "ok", args: []string{"resetpassword", "-email", "jane@test.cd"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("cli.run() unexpected error = %v", err)
			}
			usr, err := usrRepo.GetUserByEmail(ctx, "jane@test.cd")
			if err != nil {
				t.Fatalf("GetUserByEmail(): %v", err)
			}
			if err := usr.CheckPassword("N3w!Passw0rd", cli.conf.HashSecret); err != nil {
				t.Errorf("CheckPassword(): %v", err)
			}
		})
	}
}
