package main

import (
	"fmt"

	"github.com/dataforge/dataset-pipeline/internal/config"
	"github.com/dataforge/dataset-pipeline/internal/store"
	"github.com/dataforge/dataset-pipeline/pkg/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the db",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, teardown, err := setup()
		if err != nil {
			return fmt.Errorf("reading configuration: %w", err)
		}
		defer teardown()

		zap.S().Info("Initializing data store")
		db, err := store.InitDB(cfg)
		if err != nil {
			return fmt.Errorf("initializing data store: %w", err)
		}

		s := store.NewStore(db)
		defer s.Close()

		if err := migrate(db, s, cfg); err != nil {
			return err
		}

		zap.S().Info("Db migrated")
		return nil
	},
}

// migrate runs the goose migrations when a folder is configured and gorm's
// auto migration otherwise.
func migrate(db *gorm.DB, s store.Store, cfg *config.Config) error {
	if cfg.Service.MigrationFolder != "" {
		zap.S().Infow("running sql migrations", "folder", cfg.Service.MigrationFolder)
		if err := migrations.MigrateStore(db, cfg); err != nil {
			return fmt.Errorf("running sql migrations: %w", err)
		}
		return nil
	}

	zap.S().Info("running auto migration")
	if err := s.AutoMigrate(); err != nil {
		return fmt.Errorf("running auto migration: %w", err)
	}
	return nil
}
