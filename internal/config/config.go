// README: Config loader; defaults, optional peerride.yaml, PEERRIDE_* env overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type TripsConfig struct {
	// MaxActive caps open/paired, not-yet-departed trips per host.
	MaxActive int `mapstructure:"max_active"`
}

type RecaptchaConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Secret    string        `mapstructure:"secret"`
	MinScore  float64       `mapstructure:"min_score"`
	VerifyURL string        `mapstructure:"verify_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type SignupConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// NotifyConfig controls the pairing-request watcher. With Redis configured
// only the replica holding the lease runs the listener.
type NotifyConfig struct {
	Watch        bool          `mapstructure:"watch"`
	LeaseTTL     time.Duration `mapstructure:"lease_ttl"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	MaxBackoff   time.Duration `mapstructure:"max_backoff"`
}

type CleanupConfig struct {
	Hour       int           `mapstructure:"hour"`
	Timezone   string        `mapstructure:"timezone"`
	MaxRetries uint64        `mapstructure:"max_retries"`
	LeaseTTL   time.Duration `mapstructure:"lease_ttl"`
}

type Config struct {
	HTTP struct {
		Addr        string   `mapstructure:"addr"`
		CORSOrigins []string `mapstructure:"cors_origins"`
	} `mapstructure:"http"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
	Firebase struct {
		ProjectID       string `mapstructure:"project_id"`
		CredentialsFile string `mapstructure:"credentials_file"`
	} `mapstructure:"firebase"`
	// DB is the Postgres audit log; an empty DSN disables it.
	DB struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"db"`
	// Redis backs the cleanup and watcher leases; an empty address runs both
	// unguarded.
	Redis struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"redis"`
	Maps struct {
		APIKey string `mapstructure:"api_key"`
	} `mapstructure:"maps"`
	Frontend struct {
		BaseURL string `mapstructure:"base_url"`
	} `mapstructure:"frontend"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Trips     TripsConfig     `mapstructure:"trips"`
	Recaptcha RecaptchaConfig `mapstructure:"recaptcha"`
	Signup    SignupConfig    `mapstructure:"signup"`
	Cleanup   CleanupConfig   `mapstructure:"cleanup"`
}

var defaults = map[string]any{
	"http.addr":                 ":8080",
	"http.cors_origins":         []string{"http://localhost:5173"},
	"log.level":                 "info",
	"firebase.project_id":       "",
	"firebase.credentials_file": "",
	"db.dsn":                    "",
	"redis.addr":                "",
	"maps.api_key":              "",
	"frontend.base_url":         "http://localhost:5173",
	"notify.watch":              true,
	"notify.lease_ttl":          "30s",
	"notify.retry_backoff":      "1s",
	"notify.max_backoff":        "1m",
	"trips.max_active":          5,
	"recaptcha.enabled":         false,
	"recaptcha.secret":          "",
	"recaptcha.min_score":       0.5,
	"recaptcha.verify_url":      "https://www.google.com/recaptcha/api/siteverify",
	"recaptcha.timeout":         "5s",
	"signup.cache_ttl":          "60s",
	"cleanup.hour":              3,
	"cleanup.timezone":          "Asia/Taipei",
	"cleanup.max_retries":       3,
	"cleanup.lease_ttl":         "1h",
}

// Load reads peerride.yaml from the working directory when present, then
// applies PEERRIDE_* environment variables (PEERRIDE_FIREBASE_PROJECT_ID, ...).
func Load() (Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetConfigName("peerride")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("PEERRIDE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var missing []string
	if c.Firebase.ProjectID == "" {
		missing = append(missing, "PEERRIDE_FIREBASE_PROJECT_ID")
	}
	if c.Recaptcha.Enabled && c.Recaptcha.Secret == "" {
		missing = append(missing, "PEERRIDE_RECAPTCHA_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("required configuration not set: %s", strings.Join(missing, ", "))
	}
	if c.Trips.MaxActive < 1 {
		return fmt.Errorf("trips.max_active must be positive, got %d", c.Trips.MaxActive)
	}
	if c.Cleanup.Hour < 0 || c.Cleanup.Hour > 23 {
		return fmt.Errorf("cleanup.hour must be within 0-23, got %d", c.Cleanup.Hour)
	}
	if _, err := time.LoadLocation(c.Cleanup.Timezone); err != nil {
		return fmt.Errorf("cleanup.timezone: %w", err)
	}
	if c.Notify.LeaseTTL <= 0 || c.Notify.RetryBackoff <= 0 {
		return fmt.Errorf("notify.lease_ttl and notify.retry_backoff must be positive")
	}
	return nil
}
