package main

import (
	"context"

	"github.com/trezcool/escola/core/user"
)

// addUser creates a user through the user service, so the usual validation applies.
func (cli *commandLine) addUser(name, email, role, pwd string) error {
	usr, err := cli.usrSvc.Create(context.Background(), user.NewUser{
		Name:     name,
		Email:    email,
		Password: pwd,
		Role:     role,
	})
	if err != nil {
		return err
	}
	logger.Printf("user %d created: %s <%s> (%s)", usr.ID, usr.Name, usr.Email, usr.Role.Label())
	return nil
}
