package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yukikurage/chainboard/internal/config"
	"github.com/yukikurage/chainboard/internal/database"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the task and settings tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(configPath)
			if err != nil {
				return err
			}
			if cfg.DBDriver == config.DriverMemory {
				return fmt.Errorf("DB_DRIVER=%s has no schema", config.DriverMemory)
			}

			if err := database.Connect(cfg); err != nil {
				return err
			}
			return database.Migrate()
		},
	}
}
