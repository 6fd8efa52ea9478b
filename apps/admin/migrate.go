package main

import (
	"path/filepath"

	"github.com/pressly/goose/v3"

	"github.com/trezcool/kampus/core"
)

var gooseRunFunc = goose.Run // mockable

// migrate runs the schema/procedure migrations living in /migrations.
func (cli *commandLine) migrate(args []string) error {
	if len(args) == 0 {
		cli.printUsage()
		return errHelp
	}
	if err := goose.SetDialect(cli.conf.Database.Engine); err != nil {
		return err
	}
	dir := filepath.Join(core.Getwd(), "migrations")
	return gooseRunFunc(args[0], cli.db.DB, dir, args[1:]...)
}
