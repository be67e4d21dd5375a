package main

import (
	"context"
	"time"

	"github.com/educonnect/backend/core"
	"github.com/educonnect/backend/core/user"
)

// addTeacher creates a teacher account, or resets the password of an existing one.
func (cli *commandLine) addTeacher(name, email, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		now := time.Now().UTC()
		usr = user.User{
			Name:      name,
			Role:      user.RoleTeacher,
			Email:     email,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err = usr.SetPassword(pwd); err != nil {
			return err
		}
		_, err = cli.usrRepo.CreateUser(ctx, usr)
		return err
	}

	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	active := true
	_, err = cli.usrRepo.UpdateUser(ctx, user.User{
		ID:           usr.ID,
		Name:         name,
		PasswordHash: usr.PasswordHash,
		UpdatedAt:    time.Now().UTC(),
	}, &active)
	return err
}
