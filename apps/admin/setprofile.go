package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/user"
)

const noSchool = "none"

// setProfile changes the role, school, name or active flag of a user. Empty values are left untouched.
func (cli *commandLine) setProfile(email, name, role, schoolID, active string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	up := user.UpdateProfile{DisplayName: name, Role: role}
	switch schoolID = core.CleanString(schoolID); schoolID {
	case "":
	case noSchool:
		up.SchoolID = new(string)
	default:
		if _, err = cli.schoolSvc.GetSchool(ctx, schoolID); err != nil {
			return err
		}
		up.SchoolID = &schoolID
	}
	if active != "" {
		isActive, err := strconv.ParseBool(active)
		if err != nil {
			return core.NewFieldValidationError("active", fmt.Sprintf("%q is not a boolean", active))
		}
		up.IsActive = &isActive
	}

	usr, err = cli.usrSvc.UpdateProfile(ctx, usr.ID, up)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%q updated: role=%s school=%q active=%t\n", usr.Email, usr.Role, usr.SchoolID, usr.IsActive)
	return nil
}
