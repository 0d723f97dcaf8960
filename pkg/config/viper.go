// Package config is responsible for initializing the application's
// configuration. It uses the Viper library to read settings from a config
// file, environment variables, and command-line flags, providing a unified
// configuration system.
package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jbours/siteharvest/internal/logging"
)

// InitConfig initializes the application's configuration using Viper. It
// sets up default values, defines configuration search paths, and enables
// reading from environment variables. This function is designed to be called
// once at application startup.
func InitConfig() {
	// A local .env file is convenient for API keys during development.
	if err := godotenv.Load(); err == nil {
		logging.L.Info("Loaded environment from .env file")
	}

	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/siteharvest/")
	viper.AddConfigPath("$HOME/.siteharvest")

	// --- Set Defaults ---
	const defaultUA = "SiteHarvest/1.0 (+https://github.com/jbours/siteharvest)"
	viper.SetDefault("scraper.user_agent", defaultUA)
	viper.SetDefault("scraper.output_dir", "output")
	viper.SetDefault("scraper.browser", true)
	viper.SetDefault("scraper.type", "product")
	viper.SetDefault("scraper.limit", 0)
	viper.SetDefault("scraper.delay", "2s")
	viper.SetDefault("scraper.retries", 3)
	viper.SetDefault("scraper.retry_delay", "5s")
	viper.SetDefault("scraper.skip_processed", true)
	viper.SetDefault("scraper.rps", 1.0)
	viper.SetDefault("scraper.burst", 1)

	viper.SetDefault("fetch.provider", "remote")
	viper.SetDefault("fetch.remote.endpoint", "")
	viper.SetDefault("fetch.remote.timeout", "120s")
	viper.SetDefault("fetch.local.timeout", "30s")
	viper.SetDefault("fetch.local.max_body_bytes", 5*1024*1024)
	viper.SetDefault("fetch.local.respect_robots", true)
	viper.SetDefault("fetch.local.render_timeout", "30s")
	viper.SetDefault("fetch.local.render_concurrency", 2)
	viper.SetDefault("fetch.local.render_domain_qps", 0.5)

	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.redis.addr", "localhost:6379")
	viper.SetDefault("cache.redis.db", 0)
	viper.SetDefault("cache.ttl_days", 100)
	viper.SetDefault("cache.force_refresh", false)

	viper.SetDefault("llm.model", "o3-mini")
	viper.SetDefault("llm.max_html_bytes", 50000)
	viper.SetDefault("llm.prompts_file", "prompts.txt")

	viper.SetDefault("ledger.provider", "file")
	viper.SetDefault("ledger.file.path", "processed.txt")
	viper.SetDefault("ledger.postgres.table", "processed_domains")

	viper.SetDefault("sink.provider", "local")
	viper.SetDefault("notify.provider", "noop")

	viper.SetDefault("server.addr", "")

	// --- Environment Variables ---
	viper.SetEnvPrefix("SITEHARVEST") // e.g., SITEHARVEST_LLM_API_KEY=...
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// --- Read Config File ---
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logging.L.Warn("Config file not found; using defaults and environment variables.")
		} else {
			logging.L.Error("Error reading config file", zap.Error(err))
		}
	} else {
		logging.L.Info("Using config file", zap.String("path", viper.ConfigFileUsed()))
	}
}
