package main

import (
	"context"
	"fmt"

	"github.com/trezcool/kikundi/core"
	"github.com/trezcool/kikundi/core/user"
)

// addTeacher creates a TEACHER or promotes the User with the same email.
func (cli *commandLine) addTeacher(ctx context.Context, email, name, pwd string) error {
	email = core.CleanString(email, true /* lower */)
	name = core.CleanString(name)
	if name == "" {
		name = email
	}

	usr, err := cli.usrSvc.AddTeacher(ctx, user.NewUser{Name: name, Email: email, Password: pwd})
	if err != nil {
		return err
	}
	fmt.Printf("Teacher ready: %s <%s>\n", usr.Name, usr.Email)
	return nil
}

// seed runs the bootstrap step of the API.
func (cli *commandLine) seed(ctx context.Context) error {
	created, err := cli.usrSvc.EnsureTeacher(ctx, user.NewUser{
		Name:     cli.conf.Bootstrap.TeacherName,
		Email:    cli.conf.Bootstrap.TeacherEmail,
		Password: cli.conf.Bootstrap.TeacherPassword,
	})
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("Default teacher created: %s\n", cli.conf.Bootstrap.TeacherEmail)
	} else {
		fmt.Println("A teacher already exists: nothing to do")
	}
	return nil
}
