package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	HubSpot    HubSpotConfig    `yaml:"hubspot" mapstructure:"hubspot"`
	TrackerRMS TrackerRMSConfig `yaml:"trackerrms" mapstructure:"trackerrms"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	CRM        CRMConfig        `yaml:"crm" mapstructure:"crm"`
	Sync       SyncConfig       `yaml:"sync" mapstructure:"sync"`
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	BaseURL        string   `yaml:"base_url" mapstructure:"base_url"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// StoreConfig configures the credential store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// HubSpotConfig holds HubSpot app OAuth and API settings. AccessToken is a
// private-app token; when set it is used instead of stored OAuth
// credentials. WebhookMaxAgeSecs bounds how old a signed webhook timestamp
// may be.
type HubSpotConfig struct {
	ClientID          string   `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret      string   `yaml:"client_secret" mapstructure:"client_secret"`
	AccessToken       string   `yaml:"access_token" mapstructure:"access_token"`
	RedirectURL       string   `yaml:"redirect_url" mapstructure:"redirect_url"`
	Scopes            []string `yaml:"scopes" mapstructure:"scopes"`
	AuthURL           string   `yaml:"auth_url" mapstructure:"auth_url"`
	BaseURL           string   `yaml:"base_url" mapstructure:"base_url"`
	RateLimit         float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	WebhookMaxAgeSecs int      `yaml:"webhook_max_age_secs" mapstructure:"webhook_max_age_secs"`
}

// TrackerRMSConfig holds TrackerRMS API settings.
type TrackerRMSConfig struct {
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	APIKey    string  `yaml:"api_key" mapstructure:"api_key"`
	PageSize  int     `yaml:"page_size" mapstructure:"page_size"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// SalesforceConfig holds Salesforce JWT auth settings for the Opportunity
// deal backend.
type SalesforceConfig struct {
	ClientID  string  `yaml:"client_id" mapstructure:"client_id"`
	Username  string  `yaml:"username" mapstructure:"username"`
	KeyPath   string  `yaml:"key_path" mapstructure:"key_path"`
	LoginURL  string  `yaml:"login_url" mapstructure:"login_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// CRMConfig selects the deal backend.
type CRMConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
}

// SyncConfig configures the TrackerRMS → CRM sync.
type SyncConfig struct {
	Concurrency      int     `yaml:"concurrency" mapstructure:"concurrency"`
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
}

// ScoringConfig holds the overall-score weights.
type ScoringConfig struct {
	VelocityWeight float64 `yaml:"velocity_weight" mapstructure:"velocity_weight"`
	ROIWeight      float64 `yaml:"roi_weight" mapstructure:"roi_weight"`
}

// Load reads configuration from ./config.yaml (optional) and environment.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom reads configuration from path and environment. An empty path
// falls back to an optional ./config.yaml; an explicit path must exist.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("REVATTR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("hubspot.auth_url", "https://app.hubspot.com/oauth/authorize")
	v.SetDefault("hubspot.base_url", "https://api.hubapi.com")
	v.SetDefault("hubspot.scopes", []string{"crm.objects.deals.read", "crm.objects.deals.write", "oauth"})
	v.SetDefault("hubspot.rate_limit", 9)
	v.SetDefault("hubspot.webhook_max_age_secs", 300)
	v.SetDefault("trackerrms.base_url", "https://evoapi.tracker-rms.com/api/v1")
	v.SetDefault("trackerrms.page_size", 100)
	v.SetDefault("trackerrms.rate_limit", 5)
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.rate_limit", 10)
	v.SetDefault("crm.provider", "hubspot")
	v.SetDefault("sync.concurrency", 4)
	v.SetDefault("sync.max_attempts", 3)
	v.SetDefault("sync.initial_backoff_ms", 500)
	v.SetDefault("sync.max_backoff_ms", 10000)
	v.SetDefault("sync.multiplier", 2.0)
	v.SetDefault("scoring.velocity_weight", 0.4)
	v.SetDefault("scoring.roi_weight", 0.6)

	// Secrets have no default but must be known keys for env binding.
	for _, key := range []string{
		"store.database_url",
		"hubspot.client_id", "hubspot.client_secret", "hubspot.access_token", "hubspot.redirect_url",
		"trackerrms.api_key",
		"salesforce.client_id", "salesforce.username", "salesforce.key_path",
	} {
		v.SetDefault(key, "")
	}

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes: serve,
// sync, score.
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.Scoring.VelocityWeight < 0 {
		errs = append(errs, "scoring.velocity_weight must be >= 0")
	}
	if c.Scoring.ROIWeight < 0 {
		errs = append(errs, "scoring.roi_weight must be >= 0")
	}

	switch mode {
	case "score":
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validateSync()...)
	case "sync":
		if c.TrackerRMS.BaseURL == "" {
			errs = append(errs, "trackerrms.base_url is required")
		}
		if c.TrackerRMS.APIKey == "" {
			errs = append(errs, "trackerrms.api_key is required")
		}
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validateSync()...)
		errs = append(errs, c.validateCRM()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case "memory":
		return nil
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{fmt.Sprintf("store.database_url is required for driver %s", c.Store.Driver)}
		}
		return nil
	default:
		return []string{fmt.Sprintf("store.driver %q is not one of memory, sqlite, postgres", c.Store.Driver)}
	}
}

func (c *Config) validateSync() []string {
	var errs []string
	if c.Sync.Concurrency < 1 || c.Sync.Concurrency > 32 {
		errs = append(errs, "sync.concurrency must be between 1 and 32")
	}
	if c.Sync.MaxAttempts < 1 {
		errs = append(errs, "sync.max_attempts must be >= 1")
	}
	return errs
}

func (c *Config) validateCRM() []string {
	switch c.CRM.Provider {
	case "hubspot":
		if c.HubSpot.AccessToken == "" && (c.HubSpot.ClientID == "" || c.HubSpot.ClientSecret == "") {
			return []string{"hubspot.access_token or hubspot.client_id and hubspot.client_secret are required"}
		}
	case "salesforce":
		if c.Salesforce.ClientID == "" || c.Salesforce.KeyPath == "" {
			return []string{"salesforce.client_id and salesforce.key_path are required"}
		}
	default:
		return []string{fmt.Sprintf("crm.provider %q is not one of hubspot, salesforce", c.CRM.Provider)}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
