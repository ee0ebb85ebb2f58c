package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/secmun/podium/core/member"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db      *sqlx.DB
	mbrRepo member.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  addmember -name NAME -username USERNAME -email EMAIL [-role ROLE] - update or create a member")
	fmt.Println("  resetpassword -username USERNAME|EMAIL - reset a member's password")
	fmt.Println("  migrate COMMAND [args] - run a database migration command (up, down, status, ...)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addMemberCmd := flag.NewFlagSet("addmember", flag.ExitOnError)
	addMemberName := addMemberCmd.String("name", "", "The member's full name.")
	addMemberUname := addMemberCmd.String("username", "", "The member's username.")
	addMemberEmail := addMemberCmd.String("email", "", "The member's email.")
	addMemberRole := addMemberCmd.String("role", member.RolePresident, "The member's role.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The member's username or email. The password will be prompted next.")

	switch args[1] {
	case "addmember":
		if err := addMemberCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addMemberName == "" || *addMemberUname == "" || *addMemberEmail == "" {
			addMemberCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addMemberCmd.Usage()
			return errHelp
		}
		return cli.addMember(*addMemberName, *addMemberUname, *addMemberEmail, pwd, *addMemberRole)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
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
		return cli.resetPassword(*resetPasswordUname, pwd)
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
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
