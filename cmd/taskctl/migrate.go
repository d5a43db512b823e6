package main

import (
	"github.com/hugh/taskboard/internal/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, _, err := connect()
		if err != nil {
			return err
		}
		defer database.Close(db)

		if err := database.AutoMigrate(db); err != nil {
			return err
		}
		cmd.Println("schema is up to date")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert roles and the default organization with its workflow",
	Long:  `seed is idempotent: existing roles, organizations and states are left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, _, err := connect()
		if err != nil {
			return err
		}
		defer database.Close(db)

		if err := database.Seed(cmd.Context(), db); err != nil {
			return err
		}
		cmd.Println("seed complete")
		return nil
	},
}
