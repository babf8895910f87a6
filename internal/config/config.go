// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	Network   NetworkConfig   `mapstructure:"network" yaml:"network"`
	Session   SessionConfig   `mapstructure:"session" yaml:"session"`
	Apply     ApplyConfig     `mapstructure:"apply" yaml:"apply"`
	Candidate CandidateConfig `mapstructure:"candidate" yaml:"candidate"`
	Bank      BankConfig      `mapstructure:"bank" yaml:"bank"`
	Debug     DebugConfig     `mapstructure:"debug" yaml:"debug"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the driven Chrome instance.
type BrowserConfig struct {
	Headless bool `mapstructure:"headless" yaml:"headless"`
	// UserDataDir keeps the long-lived login across runs. Required for the
	// session guard to find anything worth guarding.
	UserDataDir string   `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	Args        []string `mapstructure:"args" yaml:"args"`
}

// NetworkConfig tunes navigation and settle behavior.
type NetworkConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	SettleWait        time.Duration `mapstructure:"settle_wait" yaml:"settle_wait"`
}

// SessionConfig describes how an authenticated session is recognized.
type SessionConfig struct {
	Origin     string `mapstructure:"origin" yaml:"origin"`
	CookieName string `mapstructure:"cookie_name" yaml:"cookie_name"`
	LandingURL string `mapstructure:"landing_url" yaml:"landing_url"`
	// CheckpointPattern matches login/verification interstitial URLs.
	CheckpointPattern string `mapstructure:"checkpoint_pattern" yaml:"checkpoint_pattern"`
}

// ApplyConfig controls one application attempt.
type ApplyConfig struct {
	MaxSteps       int           `mapstructure:"max_steps" yaml:"max_steps"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout" yaml:"attempt_timeout"`
	// Submit must be set explicitly; without it the walker stops in front of
	// any final-submit control and reports needs_manual.
	Submit      bool          `mapstructure:"submit" yaml:"submit"`
	ResumePath  string        `mapstructure:"resume_path" yaml:"resume_path"`
	Concurrency int           `mapstructure:"concurrency" yaml:"concurrency"`
	PaceMin     time.Duration `mapstructure:"pace_min" yaml:"pace_min"`
	PaceJitter  time.Duration `mapstructure:"pace_jitter" yaml:"pace_jitter"`
}

// CandidateConfig supplies static contact answers. Values stored in the
// profile KV table take precedence over these.
type CandidateConfig struct {
	Name         string `mapstructure:"name" yaml:"name"`
	Phone        string `mapstructure:"phone" yaml:"phone"`
	PhoneCountry string `mapstructure:"phone_country" yaml:"phone_country"`
	Email        string `mapstructure:"email" yaml:"email"`
	LinkedIn     string `mapstructure:"linkedin" yaml:"linkedin"`
}

// BankConfig selects the answer-bank backend.
type BankConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"` // "sqlite" or "postgres"
	Path   string `mapstructure:"path" yaml:"path"`     // sqlite file
	URL    string `mapstructure:"url" yaml:"url"`       // postgres DSN
}

// DebugConfig bounds the diagnostic snapshot directory.
type DebugConfig struct {
	Dir        string `mapstructure:"dir" yaml:"dir"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	Screenshot bool   `mapstructure:"screenshot" yaml:"screenshot"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "applyflow")
	v.SetDefault("logger.log_file", "applyflow.log")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.user_data_dir", "~/.applyflow/chrome")

	// -- Network --
	v.SetDefault("network.navigation_timeout", "30s")
	v.SetDefault("network.settle_wait", "1200ms")

	// -- Session --
	v.SetDefault("session.origin", "https://www.linkedin.com")
	v.SetDefault("session.cookie_name", "li_at")
	v.SetDefault("session.landing_url", "https://www.linkedin.com/feed/")
	v.SetDefault("session.checkpoint_pattern", `/checkpoint/|/login|/uas/login|captcha|security verification`)

	// -- Apply --
	v.SetDefault("apply.max_steps", 12)
	v.SetDefault("apply.attempt_timeout", "6m")
	v.SetDefault("apply.submit", false)
	v.SetDefault("apply.concurrency", 1)
	v.SetDefault("apply.pace_min", "45s")
	v.SetDefault("apply.pace_jitter", "30s")

	// -- Candidate --
	v.SetDefault("candidate.phone_country", "Vietnam (+84)")

	// -- Bank --
	v.SetDefault("bank.driver", "sqlite")
	v.SetDefault("bank.path", "~/.applyflow/applyflow.db")

	// -- Debug --
	v.SetDefault("debug.dir", "~/.applyflow/debug")
	v.SetDefault("debug.max_size_mb", 100)
	v.SetDefault("debug.screenshot", true)
}

// NewFromViper creates a configuration instance from a viper object, expands
// home-relative paths and validates the result.
func NewFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	for _, p := range []*string{
		&cfg.Browser.UserDataDir,
		&cfg.Apply.ResumePath,
		&cfg.Bank.Path,
		&cfg.Debug.Dir,
	} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return nil, fmt.Errorf("failed to expand path %q: %w", *p, err)
		}
		*p = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// NewDefaultConfig creates a configuration populated with defaults only.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := NewFromViper(v)
	if err != nil {
		// Defaults must always validate.
		panic(fmt.Sprintf("failed to build default config: %v", err))
	}
	return cfg
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Apply.MaxSteps <= 0 {
		return fmt.Errorf("apply.max_steps must be a positive integer")
	}
	if c.Apply.Concurrency <= 0 {
		return fmt.Errorf("apply.concurrency must be a positive integer")
	}
	if c.Session.LandingURL == "" {
		return fmt.Errorf("session.landing_url is required")
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("session.cookie_name is required")
	}
	switch c.Bank.Driver {
	case "sqlite":
		if c.Bank.Path == "" {
			return fmt.Errorf("bank.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Bank.URL == "" {
			return fmt.Errorf("bank.url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported bank.driver %q (want sqlite or postgres)", c.Bank.Driver)
	}
	if c.Debug.MaxSizeMB <= 0 {
		return fmt.Errorf("debug.max_size_mb must be a positive integer")
	}
	return nil
}
