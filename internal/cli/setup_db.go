package cli

import (
	"fmt"

	"github.com/jackc/pgx"
	"github.com/spf13/cobra"

	"github.com/terraguard/viewsync/db"
)

// Flags
var (
	setupDBSchema string
	setupDBTables []string
)

// defaultSourceTables are the base tables the dashboard views stream from.
var defaultSourceTables = []string{
	"land_health",
	"degradation_risk",
	"climate_data",
	"alerts",
	"recommendations",
}

var setupDBCmd = &cobra.Command{
	Use:   "setup-db",
	Short: "Setup the source database",
	Long: `Setup the source database for publishing row changes.

This command adds a new 'viewsync' schema with a 'notify_change' trigger
function, and registers the trigger on the dashboard source tables so every
INSERT, UPDATE, or DELETE is published on the 'viewsync_changes' notification
channel.

Once this is setup, 'viewsync <view>' can stream live record sets.
	`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		config, err := parseConfig()
		if err != nil {
			return err
		}

		conn, err := pgx.Connect(pgx.ConnConfig{
			Host:     config.Database.Host,
			Port:     uint16(config.Database.Port),
			User:     config.Database.User,
			Password: config.Database.Password,
			Database: config.Database.Database,
		})
		if err != nil {
			return err
		}

		err = db.Prepare(conn, setupDBSchema, setupDBTables)
		if err != nil {
			return err
		}

		fmt.Println("Successfully created `viewsync` schema")
		return nil
	},
}

var teardownDBCmd = &cobra.Command{
	Use:   "teardown-db",
	Short: "Teardown the `viewsync` schema",
	Long:  `Teardown the 'viewsync' schema in the source database.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		config, err := parseConfig()
		if err != nil {
			return err
		}

		conn, err := pgx.Connect(pgx.ConnConfig{
			Host:     config.Database.Host,
			Port:     uint16(config.Database.Port),
			User:     config.Database.User,
			Password: config.Database.Password,
			Database: config.Database.Database,
		})
		if err != nil {
			return err
		}

		err = db.Teardown(conn)
		if err != nil {
			return err
		}

		fmt.Println("Successfully removed `viewsync` schema")
		return nil
	},
}

func init() {
	setupDBCmd.Flags().StringVarP(&setupDBSchema, "schema", "S", "public", "schema the source tables live in")
	setupDBCmd.Flags().StringSliceVarP(&setupDBTables, "tables", "t", defaultSourceTables, "tables to register the trigger on")
}
