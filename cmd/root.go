// Package cmd defines and implements the CLI commands for the siteharvest
// executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jbours/siteharvest/internal/app"
	"github.com/jbours/siteharvest/internal/extract"
	"github.com/jbours/siteharvest/internal/fetch"
	"github.com/jbours/siteharvest/internal/ledger"
	"github.com/jbours/siteharvest/internal/logging"
	"github.com/jbours/siteharvest/internal/notify"
	"github.com/jbours/siteharvest/internal/ratelimit"
	"github.com/jbours/siteharvest/internal/sink"
	"github.com/jbours/siteharvest/pkg/config"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands use. This allows us to
// inject a mock app during tests.
type App interface {
	Close()
	GetLogger() *zap.Logger
	GetFetcher() fetch.Fetcher
	GetCache() *fetch.PageCache
	GetExtractor() extract.Extractor
	GetLedger() ledger.Ledger
	GetSink() sink.Provider
	GetNotifier() notify.Provider
	GetLimiter() *ratelimit.Limiter
}

// newApp is the application factory. It is a variable so tests can replace
// it with a mock factory.
var newApp = func(ctx context.Context) (App, error) {
	return app.NewApp(ctx)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "siteharvest",
		Short: "A batch scraper that turns vendor websites into structured JSON.",
		Long: `siteharvest walks a list of vendor sites, fetches rendered HTML through
a managed scraping API or a local headless browser, strips the markup down
to what matters, and asks an LLM to extract product and company records.
Each processed domain is written to a ledger so interrupted runs resume
where they left off.`,

		// Runs after config is loaded but before the subcommand's RunE,
		// which makes it the right place to build and inject the app.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logging.NewWithFile(viper.GetBool("log.debug"), viper.GetString("log.file"))
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			logging.L = logger

			appInstance, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}

			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		// Ensures services are shut down gracefully.
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cobra.OnInitialize(config.InitConfig)

	cmd.PersistentFlags().String("log-file", "", "also write logs to this file")
	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	_ = viper.BindPFlag("log.file", cmd.PersistentFlags().Lookup("log-file"))
	_ = viper.BindPFlag("log.debug", cmd.PersistentFlags().Lookup("debug"))

	cmd.AddCommand(newBatchCmd())
	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newCacheCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	logging.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logging.L.Error("Command execution failed", zap.Error(err))
		os.Exit(1)
	}
}
