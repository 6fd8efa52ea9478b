package main

import (
	"context"
	"time"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/user"
)

// addUser updates or creates an account.
func (cli *commandLine) addUser(email, pwd string, isAdmin bool) error {
	var usr user.User
	var err error
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	if usr, err = cli.usrRepo.GetUserByEmail(ctx, email); err != nil {
		if err != user.ErrNotFound {
			return err
		}
		now := time.Now().UTC()
		usr = user.User{
			Email:     email,
			Level:     user.LevelStudent,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	if isAdmin {
		usr.Level = user.LevelAdmin
	}
	usr.SetActive(true)
	if err := usr.SetPassword(pwd, cli.conf.HashSecret); err != nil {
		return err
	}
	if _, err := cli.usrRepo.UpdateOrCreateUser(ctx, usr); err != nil {
		return err
	}
	return nil
}
