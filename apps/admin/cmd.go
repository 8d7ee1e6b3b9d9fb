package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/escuela/core/school"
	"github.com/trezcool/escuela/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp  = errors.New("help provided")
	errNoSQL = errors.New("migrations need a PostgreSQL database")
)

type commandLine struct {
	db        *sql.DB // nil with the in-memory backend
	usrSvc    *user.Service
	schoolSvc *school.Service
	out       io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate up|up-by-one|down|redo - run the database migrations")
	fmt.Fprintln(cli.out, "  addschool -name NAME - create a school and print its ID")
	fmt.Fprintln(cli.out, "  adduser -email EMAIL -name NAME -role ROLE [-school SCHOOL_ID] - create a user; the password is prompted")
	fmt.Fprintln(cli.out, "  resetpassword -email EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  setprofile -email EMAIL [-name NAME] [-role ROLE] [-school SCHOOL_ID] [-active true|false] - change a user's profile")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addSchoolCmd := flag.NewFlagSet("addschool", flag.ContinueOnError)
	addSchoolName := addSchoolCmd.String("name", "", "The school's name.")

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserName := addUserCmd.String("name", "", "The user's display name.")
	addUserRole := addUserCmd.String("role", "", "The user's role: director, teacher or guardian.")
	addUserSchool := addUserCmd.String("school", "", "The ID of the user's school.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	setProfileCmd := flag.NewFlagSet("setprofile", flag.ContinueOnError)
	setProfileEmail := setProfileCmd.String("email", "", "The user's email.")
	setProfileName := setProfileCmd.String("name", "", "The new display name.")
	setProfileRole := setProfileCmd.String("role", "", "The new role: director, teacher or guardian.")
	setProfileSchool := setProfileCmd.String("school", "", "The ID of the new school; \"none\" detaches the user from its school.")
	setProfileActive := setProfileCmd.String("active", "", "Activate (true) or deactivate (false) the user.")

	for _, fs := range []*flag.FlagSet{addSchoolCmd, addUserCmd, resetPasswordCmd, setProfileCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2])

	case "addschool":
		if err := addSchoolCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addSchoolName == "" {
			addSchoolCmd.Usage()
			return errHelp
		}
		return cli.addSchool(*addSchoolName)

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserEmail == "" || *addUserName == "" || *addUserRole == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserEmail, *addUserName, *addUserRole, *addUserSchool, pwd)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	case "setprofile":
		if err := setProfileCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *setProfileEmail == "" {
			setProfileCmd.Usage()
			return errHelp
		}
		return cli.setProfile(*setProfileEmail, *setProfileName, *setProfileRole, *setProfileSchool, *setProfileActive)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) readPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	return string(pwd), err
}
