package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/educonnect/backend/core"
	"github.com/educonnect/backend/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db      *sql.DB
	conf    *core.Config
	usrRepo user.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate up|down|version                - manage database migrations")
	fmt.Println("  addteacher -name NAME -email EMAIL     - create or update a teacher account")
	fmt.Println("  resetpassword -identifier EMAIL|REGNUM - reset user's password")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addTeacherCmd := flag.NewFlagSet("addteacher", flag.ExitOnError)
	addTeacherName := addTeacherCmd.String("name", "", "The teacher's full name.")
	addTeacherEmail := addTeacherCmd.String("email", "", "The teacher's email. The password will be prompted next.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordIdent := resetPasswordCmd.String("identifier", "", "The user's email or registration number. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2])
	case "addteacher":
		if err := addTeacherCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addTeacherName == "" || *addTeacherEmail == "" {
			addTeacherCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addTeacherCmd.Usage()
			return errHelp
		}
		return cli.addTeacher(*addTeacherName, *addTeacherEmail, pwd)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordIdent == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordIdent, pwd)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
