package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newCacheCmd creates the 'cache' command group.
func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manages the Redis page cache",
	}
	cmd.AddCommand(newCacheClearCmd())
	return cmd
}

// newCacheClearCmd creates the 'cache clear' subcommand.
func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [url]",
		Short: "Removes cached pages",
		Long: `Removes the cached HTML for the given URL, in both browser and plain
modes. Without a URL, the entire page cache namespace is cleared.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCacheClearCommand,
	}
}

func runCacheClearCommand(cmd *cobra.Command, args []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cache := appInstance.GetCache()
	if cache == nil {
		return errors.New("page cache is not enabled")
	}

	rawURL := ""
	if len(args) > 0 {
		rawURL = args[0]
	}
	removed, err := cache.Clear(cmd.Context(), rawURL)
	if err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	appInstance.GetLogger().Info("Cache cleared", zap.Int64("removed", removed), zap.String("url", rawURL))
	return nil
}
