package main

import (
	"context"
	"time"

	"github.com/educonnect/backend/core"
	"github.com/educonnect/backend/core/user"
)

func (cli *commandLine) resetPassword(identifier, pwd string) error {
	ctx := context.Background()
	identifier = core.CleanString(identifier, true /* lower */)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Identifier: identifier})
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.usrRepo.UpdateUser(ctx, user.User{
		ID:           usr.ID,
		PasswordHash: usr.PasswordHash,
		UpdatedAt:    time.Now().UTC(),
	}, nil)
	return err
}
