package main

import (
	"context"
	"fmt"

	"github.com/anjiri1684/driving_school/database"
	"github.com/anjiri1684/driving_school/utils"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, closeStore, err := database.OpenStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()
			return database.Migrate(store)
		},
	}
}

func newSeedCmd() *cobra.Command {
	var demo bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the admin account and optionally demo instructors",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, closeStore, err := database.OpenStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()
			if err := database.Migrate(store); err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ids := utils.UUIDAllocator{}
			if err := database.SeedAdmin(ctx, store, ids, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminFullName); err != nil {
				return err
			}
			if !demo {
				return nil
			}
			if cfg.AdminPassword == "" {
				return fmt.Errorf("--demo needs ADMIN_PASSWORD for the demo accounts")
			}
			_, err = database.SeedDemoInstructors(ctx, store, ids, cfg.AdminPassword, cfg.Currency)
			return err
		},
	}
	cmd.Flags().BoolVar(&demo, "demo", false, "also create demo instructors")
	return cmd
}
