package main

import (
	"github.com/secmun/podium/storage/database"
)

var runMigrationsFunc = database.RunMigrations // mockable

func (cli *commandLine) migrate(args []string) error {
	command := args[0]
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return runMigrationsFunc(cli.db.DB, command, arguments...)
}
