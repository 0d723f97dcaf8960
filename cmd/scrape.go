package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jbours/siteharvest/internal/batch"
	"github.com/jbours/siteharvest/internal/extract"
	"github.com/jbours/siteharvest/internal/ledger"
	"github.com/jbours/siteharvest/internal/sink"
)

// newScrapeCmd creates and configures the 'scrape' subcommand for one-off
// runs against a single URL.
func newScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape <url>",
		Short: "Scrapes a single URL and prints the result",
		Long: `Runs the fetch and extraction pipeline for one URL and prints the
structured result as JSON. Useful for testing prompts and configuration
before a full batch run. Nothing is recorded in the ledger.`,
		Args: cobra.ExactArgs(1),
		RunE: runScrapeCommand,
	}

	cmd.Flags().StringP("type", "t", "product", "scrape type: product, company, or auto")
	cmd.Flags().Bool("browser", true, "request browser-rendered HTML")
	cmd.Flags().Bool("save", false, "also save the result through the configured sink")
	_ = viper.BindPFlag("scraper.type", cmd.Flags().Lookup("type"))
	_ = viper.BindPFlag("scraper.browser", cmd.Flags().Lookup("browser"))
	_ = viper.BindPFlag("scraper.save_single", cmd.Flags().Lookup("save"))

	return cmd
}

func runScrapeCommand(cmd *cobra.Command, args []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	rawURL := args[0]

	page, err := appInstance.GetFetcher().Fetch(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	html := string(page.Body)

	extractor := appInstance.GetExtractor()
	kind := viper.GetString("scraper.type")
	if kind == batch.TypeAuto {
		kind, err = extractor.Classify(ctx, rawURL, html)
		if err != nil {
			return fmt.Errorf("classify site: %w", err)
		}
	}

	result := extract.Result{
		Metadata: extract.Metadata{
			URL:        rawURL,
			Timestamp:  time.Now().UTC(),
			ScrapeType: kind,
			Attempts:   1,
		},
	}
	switch kind {
	case batch.TypeProduct:
		discovery, derr := extractor.DiscoverProductURLs(ctx, rawURL, html)
		if derr != nil {
			return fmt.Errorf("discover product urls: %w", derr)
		}
		result.ProductURLs = discovery.ProductURLs
		for _, productURL := range discovery.ProductURLs {
			productPage, ferr := appInstance.GetFetcher().Fetch(ctx, productURL)
			if ferr != nil {
				continue
			}
			product, perr := extractor.ExtractProduct(ctx, productURL, string(productPage.Body))
			if perr != nil {
				continue
			}
			result.Products = append(result.Products, product)
		}
	case batch.TypeCompany:
		company, cerr := extractor.ExtractCompany(ctx, rawURL, html)
		if cerr != nil {
			return fmt.Errorf("extract company: %w", cerr)
		}
		result.Company = &company
	default:
		return fmt.Errorf("unknown scrape type %q", kind)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	cmd.Println(string(data))

	if viper.GetBool("scraper.save_single") {
		name := sink.ResultObjectName(ledger.Domain(rawURL))
		if err := appInstance.GetSink().Save(ctx, name, data); err != nil {
			return fmt.Errorf("save result: %w", err)
		}
		appInstance.GetLogger().Info("Result saved")
	}
	return nil
}
