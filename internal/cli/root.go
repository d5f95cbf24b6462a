package cli

import (
	"context"
	"fmt"

	"pizza-service/config"
	"pizza-service/internal/store"
	"pizza-service/internal/util"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type globalOptions struct {
	driver      string
	databaseURL string
	verbose     bool
}

func newRootCmd() *cobra.Command {
	cfg := config.Load()
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "pizzactl",
		Short:         "Administer the pizza service database",
		Long:          "pizzactl migrates the schema, seeds the catalog from YAML and manages orders without going through the HTTP API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.verbose {
				return util.InitLogger(cfg.Server.Env)
			}
			util.SetLogger(zap.NewNop())
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.driver, "driver", cfg.Database.Driver, "database driver (postgres, pgx, sqlite)")
	cmd.PersistentFlags().StringVar(&opts.databaseURL, "database-url", cfg.Database.URL, "database connection string")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log service activity")

	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newSeedCmd(opts))
	cmd.AddCommand(newOrdersCmd(opts, cfg))
	return cmd
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

func Execute() error {
	return newRootCmd().Execute()
}

// openStore connects and brings the schema up to date.
func openStore(ctx context.Context, opts *globalOptions) (*store.Store, error) {
	db, err := store.NewStore(opts.driver, opts.databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return db, nil
}
