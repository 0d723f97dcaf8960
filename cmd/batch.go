package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jbours/siteharvest/internal/api"
	"github.com/jbours/siteharvest/internal/batch"
	iduuid "github.com/jbours/siteharvest/internal/id/uuid"
)

// errRunHadFailures makes the process exit nonzero when any URL in the
// batch could not be processed.
var errRunHadFailures = errors.New("batch run finished with failures")

// newBatchCmd creates and configures the 'batch' subcommand.
func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Scrapes every URL in a file",
		Long: `Reads a URL list (one per line, # comments allowed) and runs the full
pipeline for each: fetch, minimize, extract, save. Domains already present
in the processed ledger are skipped, and per-domain retry state lets an
interrupted run resume.`,

		RunE: runBatchCommand,
	}

	cmd.Flags().StringP("file", "f", "", "path of the URL list (required)")
	cmd.Flags().StringP("output", "o", "output", "directory for result and summary files")
	cmd.Flags().StringP("type", "t", "product", "scrape type: product, company, or auto")
	cmd.Flags().Bool("browser", true, "request browser-rendered HTML")
	cmd.Flags().IntP("limit", "l", 0, "process at most this many URLs (0 = all)")
	cmd.Flags().Duration("delay", 2*time.Second, "pause between consecutive URLs")
	cmd.Flags().Int("retries", 3, "extra attempts per URL after the first failure")
	cmd.Flags().Duration("retry-delay", 5*time.Second, "base backoff between attempts")
	cmd.Flags().Bool("skip-processed", true, "skip domains already in the ledger")
	cmd.Flags().Bool("force-refresh", false, "bypass the page cache")
	_ = cmd.MarkFlagRequired("file")

	_ = viper.BindPFlag("scraper.file", cmd.Flags().Lookup("file"))
	_ = viper.BindPFlag("scraper.output_dir", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("scraper.type", cmd.Flags().Lookup("type"))
	_ = viper.BindPFlag("scraper.browser", cmd.Flags().Lookup("browser"))
	_ = viper.BindPFlag("scraper.limit", cmd.Flags().Lookup("limit"))
	_ = viper.BindPFlag("scraper.delay", cmd.Flags().Lookup("delay"))
	_ = viper.BindPFlag("scraper.retries", cmd.Flags().Lookup("retries"))
	_ = viper.BindPFlag("scraper.retry_delay", cmd.Flags().Lookup("retry-delay"))
	_ = viper.BindPFlag("scraper.skip_processed", cmd.Flags().Lookup("skip-processed"))
	_ = viper.BindPFlag("cache.force_refresh", cmd.Flags().Lookup("force-refresh"))

	return cmd
}

func runBatchCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.GetLogger()

	runID, err := iduuid.New().NewRawID()
	if err != nil {
		return fmt.Errorf("generate run id: %w", err)
	}

	driver, err := batch.New(runID, batch.Options{
		File:          viper.GetString("scraper.file"),
		OutputDir:     viper.GetString("scraper.output_dir"),
		StatusDir:     viper.GetString("scraper.status_dir"),
		ScrapeType:    viper.GetString("scraper.type"),
		Limit:         viper.GetInt("scraper.limit"),
		Delay:         viper.GetDuration("scraper.delay"),
		Retries:       viper.GetInt("scraper.retries"),
		RetryDelay:    viper.GetDuration("scraper.retry_delay"),
		SkipProcessed: viper.GetBool("scraper.skip_processed"),
	}, batch.Deps{
		Fetcher:   appInstance.GetFetcher(),
		Extractor: appInstance.GetExtractor(),
		Ledger:    appInstance.GetLedger(),
		Sink:      appInstance.GetSink(),
		Notifier:  appInstance.GetNotifier(),
		Limiter:   appInstance.GetLimiter(),
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("build batch driver: %w", err)
	}

	// An optional status server exposes progress and Prometheus metrics
	// while the batch runs.
	if addr := viper.GetString("server.addr"); addr != "" {
		statusSrv := api.NewServer(driver.Tracker(), logger)
		statusSrv.Start(addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := statusSrv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Status server shutdown failed", zap.Error(err))
			}
		}()
	}

	summary, err := driver.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("run batch: %w", err)
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%w: %d of %d urls failed", errRunHadFailures, summary.Failed, summary.Total)
	}
	return nil
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}
