package main

import (
	"context"

	"github.com/trezcool/escola/core"
)

// resetPassword overwrites the password of a user, bypassing the password policy.
func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrRepo.GetByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = core.NowFunc().UTC()
	if _, err = cli.usrRepo.Update(ctx, usr); err != nil {
		return err
	}
	logger.Printf("password of %s updated", usr.Email)
	return nil
}
