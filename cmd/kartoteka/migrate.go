package main

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"kartoteka.org/internal/config"
	"kartoteka.org/internal/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate {up|down|status}",
	Short: "Apply or roll back database migrations",
	Args:  cobra.ExactArgs(1),
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.DatabaseDSN == "" {
		return errors.New("migrate requires database_dsn (KARTOTEKA_DATABASE_DSN)")
	}
	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	mgr := migrate.NewManager(db, cfg.MigrationsDir)
	ctx := cmd.Context()
	switch args[0] {
	case "up":
		return mgr.Up(ctx)
	case "down":
		return mgr.Down(ctx)
	case "status":
		applied, err := mgr.Status(ctx)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			fmt.Println("no migrations applied")
			return nil
		}
		for _, name := range applied {
			fmt.Println(name)
		}
		return nil
	default:
		return fmt.Errorf("unknown migrate action %q", args[0])
	}
}
