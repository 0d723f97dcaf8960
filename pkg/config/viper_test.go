package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestInitConfigDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	InitConfig()

	require.Equal(t, "product", viper.GetString("scraper.type"))
	require.Equal(t, 3, viper.GetInt("scraper.retries"))
	require.True(t, viper.GetBool("scraper.skip_processed"))
	require.Equal(t, "remote", viper.GetString("fetch.provider"))
	require.Equal(t, 100, viper.GetInt("cache.ttl_days"))
	require.Equal(t, "file", viper.GetString("ledger.provider"))
	require.Equal(t, "local", viper.GetString("sink.provider"))
	require.Equal(t, "noop", viper.GetString("notify.provider"))
}
