package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/access"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/user"
)

// addUser updates or creates an active user.User with the given role
func (cli *commandLine) addUser(uname, email, pwd string, role access.Role) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	now := time.Now().UTC()

	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, uname)
	exists := err == nil
	if err != nil && errors.Cause(err) != user.ErrNotFound {
		return err
	}
	if !exists {
		usr = user.User{Username: uname, CreatedAt: now}
	}
	if email != "" {
		usr.Email = email
	}
	usr.Role = role
	usr.IsActive = true
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}

	if exists {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	}
	return err
}
