// Command admin is the operator CLI for a plenum deployment: migrations,
// plugin management, backups and tokens.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Marga-Ghale/plenum-backend/internal/config"
	"github.com/Marga-Ghale/plenum-backend/internal/db"
	"github.com/Marga-Ghale/plenum-backend/internal/hook"
	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var v = config.NewViper()

var rootCmd = &cobra.Command{
	Use:   "plenum-admin",
	Short: "Operate a plenum deployment",
	Long: `plenum-admin runs database migrations, manages meeting form and
motion type plugins, exports and restores plenum backups and issues
participant tokens.

Settings are read from plenum.yaml, .env and the environment. Flags
override them.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger := zap.NewNop()
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			logger, _ = zap.NewDevelopment()
		}
		zap.ReplaceGlobals(logger)
	},
}

func init() {
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection URL")
	rootCmd.PersistentFlags().String("migrations", "", "Migrations directory")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log to stderr")
	bindFlag("database_url", "database-url")
	bindFlag("migrations_path", "migrations")

	rootCmd.AddGroup(&cobra.Group{ID: "schema", Title: "Schema Commands"})
	rootCmd.AddGroup(&cobra.Group{ID: "data", Title: "Data Commands"})

	migrateCmd.GroupID = "schema"
	pluginsCmd.GroupID = "data"
	backupCmd.GroupID = "data"
	tokenCmd.GroupID = "data"
	hashKeyCmd.GroupID = "data"

	rootCmd.AddCommand(migrateCmd, pluginsCmd, backupCmd, tokenCmd, hashKeyCmd)
}

func bindFlag(key, flag string) {
	if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	return config.FromViper(v)
}

// withServices opens the database and builds the services for one command.
func withServices(ctx context.Context, fn func(cfg *config.Config, services *service.Services) error) error {
	cfg := loadConfig()

	pg, err := db.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer pg.Close()

	services := service.NewServices(&service.ServiceDeps{
		Config:     cfg,
		Repos:      repository.NewRepositories(pg.Pool, pg.DB),
		Dispatcher: hook.NewDispatcher(),
	})
	return fn(cfg, services)
}
