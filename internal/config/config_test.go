package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "https://api.hubapi.com", cfg.HubSpot.BaseURL)
	assert.Equal(t, 300, cfg.HubSpot.WebhookMaxAgeSecs)
	assert.Contains(t, cfg.HubSpot.Scopes, "crm.objects.deals.write")
	assert.Equal(t, 100, cfg.TrackerRMS.PageSize)
	assert.Equal(t, "hubspot", cfg.CRM.Provider)
	assert.Equal(t, 4, cfg.Sync.Concurrency)
	assert.Equal(t, 3, cfg.Sync.MaxAttempts)
	assert.InDelta(t, 0.4, cfg.Scoring.VelocityWeight, 0.001)
	assert.InDelta(t, 0.6, cfg.Scoring.ROIWeight, 0.001)
	assert.Equal(t, "https://login.salesforce.com", cfg.Salesforce.LoginURL)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  database_url: file:creds.db
log:
  level: debug
  format: console
server:
  port: 9090
scoring:
  velocity_weight: 0.5
  roi_weight: 0.5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "file:creds.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.InDelta(t, 0.5, cfg.Scoring.VelocityWeight, 0.001)
	// Defaults still apply for unset values
	assert.Equal(t, 100, cfg.TrackerRMS.PageSize)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("REVATTR_STORE_DRIVER", "postgres")
	t.Setenv("REVATTR_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvSecrets(t *testing.T) {
	chdirTemp(t)

	t.Setenv("REVATTR_TRACKERRMS_API_KEY", "trk-key")
	t.Setenv("REVATTR_HUBSPOT_ACCESS_TOKEN", "pat-na1-123")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "trk-key", cfg.TrackerRMS.APIKey)
	assert.Equal(t, "pat-na1-123", cfg.HubSpot.AccessToken)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [port"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestLoadFrom_ExplicitPath(t *testing.T) {
	chdirTemp(t)
	path := filepath.Join(t.TempDir(), "revattr.yml")
	require.NoError(t, os.WriteFile(path, []byte("crm:\n  provider: salesforce\n"), 0644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "salesforce", cfg.CRM.Provider)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadFrom_MissingExplicitPath(t *testing.T) {
	chdirTemp(t)

	_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.Store.Driver = "memory"
	cfg.CRM.Provider = "hubspot"
	cfg.HubSpot.AccessToken = "pat"
	cfg.TrackerRMS.BaseURL = "https://trackerrms.test"
	cfg.TrackerRMS.APIKey = "key"
	cfg.Sync.Concurrency = 4
	cfg.Sync.MaxAttempts = 3
	cfg.Scoring.VelocityWeight = 0.4
	cfg.Scoring.ROIWeight = 0.6
	return cfg
}

func TestValidate_AllModesPass(t *testing.T) {
	cfg := validDefaults()
	for _, mode := range []string{"serve", "sync", "score"} {
		assert.NoError(t, cfg.Validate(mode), mode)
	}
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateStoreDriver(t *testing.T) {
	cfg := validDefaults()

	cfg.Store.Driver = "sqlite"
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required for driver sqlite")

	cfg.Store.DatabaseURL = "file:test.db"
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Store.Driver = "redis"
	err = cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}

func TestValidateSync_MissingTrackerRMS(t *testing.T) {
	cfg := validDefaults()
	cfg.TrackerRMS.APIKey = ""

	err := cfg.Validate("sync")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "trackerrms.api_key is required")
}

func TestValidateSync_CRMProvider(t *testing.T) {
	cfg := validDefaults()

	cfg.HubSpot.AccessToken = ""
	err := cfg.Validate("sync")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "hubspot.access_token")

	cfg.HubSpot.ClientID = "id"
	cfg.HubSpot.ClientSecret = "secret"
	assert.NoError(t, cfg.Validate("sync"))

	cfg.CRM.Provider = "salesforce"
	err = cfg.Validate("sync")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "salesforce.client_id")

	cfg.Salesforce.ClientID = "cid"
	cfg.Salesforce.KeyPath = "/keys/sf.pem"
	assert.NoError(t, cfg.Validate("sync"))

	cfg.CRM.Provider = "pipedrive"
	err = cfg.Validate("sync")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "crm.provider")
}

func TestValidateConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Sync.Concurrency = 0
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sync.concurrency must be between 1 and 32")

	cfg.Sync.Concurrency = 33
	assert.Error(t, cfg.Validate("serve"))

	cfg.Sync.Concurrency = 32
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateNegativeWeights(t *testing.T) {
	cfg := validDefaults()
	cfg.Scoring.ROIWeight = -1

	err := cfg.Validate("score")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "scoring.roi_weight must be >= 0")
}
