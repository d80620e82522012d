package main

import (
	"flag"
	"testing"

	"github.com/plenumhq/plenum/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestParseStatus(t *testing.T) {
	status, err := parseStatus("completed")
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, status)

	status, err = parseStatus("Failed")
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, status)

	_, err = parseStatus("bogus")
	assert.Error(t, err)
}

func TestSetupLogger(t *testing.T) {
	newContext := func(level string) *cli.Context {
		set := flag.NewFlagSet("test", flag.ContinueOnError)
		set.String("log-level", level, "")
		return cli.NewContext(cli.NewApp(), set, nil)
	}

	t.Run("accepts known levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "DEBUG"} {
			assert.NoError(t, setupLogger(newContext(level)), level)
		}
	})

	t.Run("rejects unknown level", func(t *testing.T) {
		err := setupLogger(newContext("verbose"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "verbose")
	})
}

func TestLoadConfigOverrides(t *testing.T) {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String("config", "", "")
	set.String("db", "", "")
	set.String("work-dir", "", "")
	set.String("host", "", "")
	set.String("api-key", "", "")
	require.NoError(t, set.Parse([]string{}))
	require.NoError(t, set.Set("db", "/custom/db"))
	require.NoError(t, set.Set("host", "http://localhost:11434"))

	cfg, err := loadConfig(cli.NewContext(cli.NewApp(), set, nil))
	require.NoError(t, err)

	assert.Equal(t, "/custom/db", cfg.DataDir)
	assert.Equal(t, "http://localhost:11434", cfg.AI.Host)
	// untouched values keep their defaults
	assert.Equal(t, "text-embedding-3-small", cfg.AI.EmbeddingModel)
}
