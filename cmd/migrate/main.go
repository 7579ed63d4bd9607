// Package main provides the match history migration runner.
package main

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/cory-johannsen/arena/internal/config"
)

var (
	flagConfig     string
	flagMigrations string
	flagSteps      int
)

var rootCmd = &cobra.Command{
	Use:           "migrate",
	Short:         "Apply or roll back the match history schema",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagConfig, "config", "configs/dev.yaml", "path to configuration file")
	flags.StringVar(&flagMigrations, "path", "migrations", "directory holding migration files")
	flags.IntVar(&flagSteps, "steps", 0, "number of steps (0 = all)")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, _ []string) error { return run(cmd, "up") },
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back applied migrations",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, _ []string) error { return run(cmd, "down") },
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				m, err := newMigrator()
				if err != nil {
					return err
				}
				defer m.Close()
				version, dirty, err := m.Version()
				if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
					return fmt.Errorf("reading version: %w", err)
				}
				cmd.Printf("version=%d dirty=%v\n", version, dirty)
				return nil
			},
		},
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("migrate: %v", err)
	}
}

func newMigrator() (*migrate.Migrate, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	m, err := migrate.New("file://"+flagMigrations, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	return m, nil
}

func run(cmd *cobra.Command, direction string) error {
	start := time.Now()

	m, err := newMigrator()
	if err != nil {
		return err
	}
	defer m.Close()

	switch {
	case direction == "up" && flagSteps > 0:
		err = m.Steps(flagSteps)
	case direction == "up":
		err = m.Up()
	case flagSteps > 0:
		err = m.Steps(-flagSteps)
	default:
		err = m.Down()
	}

	noChange := errors.Is(err, migrate.ErrNoChange)
	if err != nil && !noChange {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, _ := m.Version()
	if noChange {
		cmd.Printf("no changes (version=%d dirty=%v) [%s]\n", version, dirty, time.Since(start))
		return nil
	}
	cmd.Printf("migrated %s to version=%d dirty=%v [%s]\n", direction, version, dirty, time.Since(start))
	return nil
}
