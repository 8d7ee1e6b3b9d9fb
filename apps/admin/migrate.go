package main

import (
	"github.com/trezcool/escuela/storage/database"
)

var migrateFunc = database.RunMigration // mockable

func (cli *commandLine) migrate(command string) error {
	if cli.db == nil {
		return errNoSQL
	}
	return migrateFunc(command, cli.db)
}
