// Package migrate implements the migrate sub-command.
package migrate

import (
	"context"

	"github.com/acme/user-service/internal/config"
	registrymigrate "github.com/acme/user-service/internal/registry/migrate"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	// Import plugins to trigger init() registration of their migrators.
	// Store plugins register their own migrators alongside their primary interface.
	_ "github.com/acme/user-service/internal/plugin/store/postgres"
	_ "github.com/acme/user-service/internal/plugin/store/sqlite"
)

// Command returns the migrate sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Run database migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db-kind",
				Sources: cli.EnvVars("USER_SERVICE_DB_KIND"),
				Usage:   "Backend store (sqlite|postgres)",
				Value:   "sqlite",
			},
			&cli.StringFlag{
				Name:    "db-url",
				Sources: cli.EnvVars("USER_SERVICE_DB_URL"),
				Usage:   "Database connection URL (postgres DSN or sqlite file path)",
				Value:   "user-service.db",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := config.DefaultConfig()
			cfg.DBKind = cmd.String("db-kind")
			cfg.DBURL = cmd.String("db-url")
			ctx = config.WithContext(ctx, &cfg)

			log.Info("Running migrations...")
			if err := registrymigrate.RunAll(ctx); err != nil {
				return err
			}
			log.Info("All migrations completed successfully")
			return nil
		},
	}
}
