// File: internal/config/config_test.go
package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "applyflow", cfg.Logger.ServiceName)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 12, cfg.Apply.MaxSteps)
	assert.False(t, cfg.Apply.Submit, "submit must default to off")
	assert.Equal(t, 1, cfg.Apply.Concurrency)
	assert.Equal(t, "li_at", cfg.Session.CookieName)
	assert.Equal(t, "sqlite", cfg.Bank.Driver)
}

func TestNewFromViperExpandsHomePaths(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	v := viper.New()
	SetDefaults(v)
	v.Set("bank.path", "~/.applyflow/applyflow.db")
	v.Set("apply.resume_path", "~/docs/resume.pdf")

	cfg, err := NewFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, home+"/.applyflow/applyflow.db", cfg.Bank.Path)
	assert.Equal(t, home+"/docs/resume.pdf", cfg.Apply.ResumePath)
}

func TestValidate(t *testing.T) {
	base := func() *Config { return NewDefaultConfig() }

	t.Run("defaults validate", func(t *testing.T) {
		require.NoError(t, base().Validate())
	})

	t.Run("max_steps must be positive", func(t *testing.T) {
		cfg := base()
		cfg.Apply.MaxSteps = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("concurrency must be positive", func(t *testing.T) {
		cfg := base()
		cfg.Apply.Concurrency = -1
		assert.Error(t, cfg.Validate())
	})

	t.Run("cookie name required", func(t *testing.T) {
		cfg := base()
		cfg.Session.CookieName = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("sqlite driver needs a path", func(t *testing.T) {
		cfg := base()
		cfg.Bank.Path = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("postgres driver needs a url", func(t *testing.T) {
		cfg := base()
		cfg.Bank.Driver = "postgres"
		assert.Error(t, cfg.Validate())

		cfg.Bank.URL = "postgres://localhost/applyflow"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("unknown driver rejected", func(t *testing.T) {
		cfg := base()
		cfg.Bank.Driver = "mysql"
		assert.Error(t, cfg.Validate())
	})

	t.Run("debug ceiling must be positive", func(t *testing.T) {
		cfg := base()
		cfg.Debug.MaxSizeMB = 0
		assert.Error(t, cfg.Validate())
	})
}
