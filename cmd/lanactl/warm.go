package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Amund211/lana/internal/adapters/cache"
	"github.com/Amund211/lana/internal/adapters/database"
	"github.com/Amund211/lana/internal/adapters/generator"
	"github.com/Amund211/lana/internal/adapters/kvstore"
	"github.com/Amund211/lana/internal/app"
	"github.com/Amund211/lana/internal/config"
	"github.com/Amund211/lana/internal/logging"
	"github.com/spf13/cobra"
)

// openSharedStore connects to the database the server would use as its cache backend
func openSharedStore(ctx context.Context, conf config.Config, logger *slog.Logger) (*kvstore.Store, func(), error) {
	switch {
	case conf.DatabaseURL() != "":
		db, err := database.NewPostgresDatabaseFromConfig(conf)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		schemaName := database.GetSchemaName(!conf.IsProduction())
		if err := database.NewDatabaseMigrator(db, logger).Migrate(ctx, schemaName); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to migrate postgres: %w", err)
		}
		return kvstore.NewPostgres(db, schemaName, time.Now), func() { db.Close() }, nil
	case conf.SQLitePath() != "":
		db, err := database.NewSQLiteDatabase(ctx, conf.SQLitePath())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		if err := database.NewDatabaseMigrator(db, logger).MigrateSQLite(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to migrate sqlite: %w", err)
		}
		return kvstore.NewSQLite(db, time.Now), func() { db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("%w: DATABASE_URL or SQLITE_PATH", config.ErrMissingRequiredValue)
}

func newWarmCmd(newLogger func() *slog.Logger) *cobra.Command {
	var (
		topicsFile string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "warm",
		Short: "Precompute lessons for the popular topics into the shared cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			logging.SetFallback(logger)

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			ctx = logging.AddToContext(ctx, logger)

			conf, err := config.ConfigFromEnv()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			kv, closeDB, err := openSharedStore(ctx, conf, logger)
			if err != nil {
				return err
			}
			defer closeDB()

			store := cache.NewStore(cache.NamespaceConfigsFromConfig(conf), cache.WithBackend(kv))
			defer store.Close()

			gen, err := generator.NewGeneratorOrMock(conf, newHTTPClient())
			if err != nil {
				return fmt.Errorf("failed to initialize content generator: %w", err)
			}

			if topicsFile == "" {
				topicsFile = conf.PopularTopicsFile()
			}
			popular, err := app.LoadPopularTopics(topicsFile)
			if err != nil {
				return fmt.Errorf("failed to load popular topics: %w", err)
			}

			logger.Info("Warming popular lessons", "topics", len(popular.Topics()), "backend", store.BackendName())
			summary := app.BuildWarmPopularLessons(store, gen, popular)(ctx)

			fmt.Fprintf(cmd.OutOrStdout(), "precomputed: %d\nskipped:     %d\nfallbacks:   %d\n", summary.Precomputed, summary.Skipped, summary.Fallbacks)
			return nil
		},
	}

	cmd.Flags().StringVar(&topicsFile, "topics", "", "YAML file with the popular topics (defaults to POPULAR_TOPICS_FILE)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "give up after this long")

	return cmd
}
