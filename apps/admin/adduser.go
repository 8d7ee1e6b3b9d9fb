package main

import (
	"context"
	"fmt"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/user"
)

// addUser creates an active user.User, attached to schoolID when set.
func (cli *commandLine) addUser(email, name, role, schoolID, pwd string) error {
	ctx := context.Background()

	schoolID = core.CleanString(schoolID)
	if schoolID != "" {
		if _, err := cli.schoolSvc.GetSchool(ctx, schoolID); err != nil {
			return err
		}
	}

	usr, err := cli.usrSvc.Create(ctx, user.NewUser{
		Email:           email,
		DisplayName:     name,
		Role:            role,
		SchoolID:        schoolID,
		Password:        pwd,
		PasswordConfirm: pwd,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s %q created: %s\n", usr.Role, usr.Email, usr.ID)
	return nil
}
