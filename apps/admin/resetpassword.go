package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) resetPassword(ctx context.Context, email, pwd string) error {
	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if _, err = cli.usrSvc.SetPassword(ctx, usr.ID, pwd); err != nil {
		return err
	}
	fmt.Printf("Password updated for %s\n", usr.Email)
	return nil
}
