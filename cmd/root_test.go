package cmd

import (
	"testing"

	"git-browser-web/pkg/config"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyOverrides(t *testing.T) {
	v := viper.New()
	v.Set("token", "tok")
	v.Set("api-base-url", "http://localhost:9000")
	v.Set("cache", true)
	v.Set("addr", ":9999")

	cfg := config.Default()
	applyOverrides(cfg, v, true)

	assert.Equal(t, "tok", cfg.Github.Token)
	assert.Equal(t, "http://localhost:9000", cfg.Github.APIBaseURL)
	assert.True(t, cfg.IsCacheEnabled())
	assert.Equal(t, ":9999", cfg.GetAddr())
	assert.Equal(t, "info", cfg.GetLogLevel())
}

func TestCLILogLevelDefaultsToWarn(t *testing.T) {
	cfg := config.Default()
	applyOverrides(cfg, viper.New(), false)
	assert.Equal(t, "warn", cfg.GetLogLevel())

	v := viper.New()
	v.Set("log-level", "debug")
	cfg = config.Default()
	applyOverrides(cfg, v, false)
	assert.Equal(t, "debug", cfg.GetLogLevel())
}

func TestRootCommands(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"serve", "tree", "cat", "branches"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("token"))
}
