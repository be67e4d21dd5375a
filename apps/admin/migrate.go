package main

import (
	"fmt"

	"github.com/educonnect/backend/storage/database"
)

// mockable
var (
	migrateUpFunc      = database.Migrate
	migrateDownFunc    = database.MigrateDown
	migrateVersionFunc = database.MigrateVersion
)

func (cli *commandLine) migrate(command string) error {
	switch command {
	case "up":
		return migrateUpFunc(cli.db, cli.conf)
	case "down":
		return migrateDownFunc(cli.db, cli.conf)
	case "version":
		version, dirty, err := migrateVersionFunc(cli.db, cli.conf)
		if err != nil {
			return err
		}
		fmt.Printf("version: %d (dirty: %t)\n", version, dirty)
		return nil
	default:
		return fmt.Errorf("%q: no such command", command)
	}
}
