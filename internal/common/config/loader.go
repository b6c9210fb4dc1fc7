// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// environment overlay, e.g. config.production.yaml
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finalize(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finalize(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	// FUNNEL_GATE_BLOCK_WINDOW_DAYS overrides gate.block_window_days
	v.SetEnvPrefix("FUNNEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func finalize(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets from well-known env vars when the file left them empty.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Database.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Database.Redis.Password = val
		}
	}
	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
	if cfg.Integrations.HubSpot.AccessToken == "" {
		if val := os.Getenv("HUBSPOT_ACCESS_TOKEN"); val != "" {
			cfg.Integrations.HubSpot.AccessToken = val
		}
	}
	if cfg.Tracking.GTMContainerID == "" {
		if val := os.Getenv("GTM_CONTAINER_ID"); val != "" {
			cfg.Tracking.GTMContainerID = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "loan-funnel"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	// Server defaults
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 15000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30000
	}

	if cfg.Session.CookieName == "" {
		cfg.Session.CookieName = "funnel_session"
	}
	if cfg.Session.MaxAgeDays == 0 {
		cfg.Session.MaxAgeDays = 60
	}

	// Database defaults
	if cfg.Database.Redis.KeyPrefix == "" {
		cfg.Database.Redis.KeyPrefix = "funnel"
	}
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "loan-applications"
	}

	// Integration defaults
	if cfg.Integrations.AWS.Region == "" {
		cfg.Integrations.AWS.Region = "us-east-1"
	}
	if cfg.Integrations.HubSpot.BaseURL == "" {
		cfg.Integrations.HubSpot.BaseURL = "https://api.hubapi.com"
	}
	if cfg.Integrations.HubSpot.Timeout == 0 {
		cfg.Integrations.HubSpot.Timeout = 5000
	}

	// Verification defaults
	if cfg.Verification.CodeTTL == 0 {
		cfg.Verification.CodeTTL = 600000
	}
	if cfg.Verification.ManualAfterAttempts == 0 {
		cfg.Verification.ManualAfterAttempts = 2
	}
	if cfg.Verification.MaxAttempts == 0 {
		cfg.Verification.MaxAttempts = 5
	}
	if cfg.Verification.ResendCooldown == 0 {
		cfg.Verification.ResendCooldown = 30000
	}
	if cfg.Verification.MessageTemplate == "" {
		cfg.Verification.MessageTemplate = "Your verification code is %s"
	}

	// Gate defaults
	if cfg.Gate.BlockWindowDays == 0 {
		cfg.Gate.BlockWindowDays = 30
	}
	if cfg.Gate.RetentionDays == 0 {
		cfg.Gate.RetentionDays = cfg.Gate.BlockWindowDays
	}
	if cfg.Gate.ResetTokenTTL == 0 {
		cfg.Gate.ResetTokenTTL = 300000
	}
	if cfg.Gate.ContactPhone == "" {
		cfg.Gate.ContactPhone = "(855) 303-1455"
	}
	if cfg.Gate.ContactPhoneURI == "" {
		cfg.Gate.ContactPhoneURI = "tel:8553031455"
	}
	if cfg.Gate.PartnerOffersURL == "" {
		cfg.Gate.PartnerOffersURL = "https://fiona.com/partner/symple-lending-loans/loans"
	}
	if cfg.Gate.BusinessTimezone == "" {
		cfg.Gate.BusinessTimezone = "America/New_York"
	}
	if cfg.Gate.BusinessOpenHour == 0 && cfg.Gate.BusinessCloseHour == 0 {
		cfg.Gate.BusinessOpenHour = 9
		cfg.Gate.BusinessCloseHour = 18
	}

	// Workflow defaults
	if cfg.Workflow.ProcessID == "" {
		cfg.Workflow.ProcessID = "loan-eligibility-decision"
	}
	if cfg.Workflow.RequestTimeout == 0 {
		cfg.Workflow.RequestTimeout = 30000
	}
	if cfg.Workflow.MaxRetries == 0 {
		cfg.Workflow.MaxRetries = 3
	}
	if cfg.Workflow.Worker.RegistryPath == "" {
		cfg.Workflow.Worker.RegistryPath = "configs/activity-registry.json"
	}
	if cfg.Workflow.Worker.ApproveThreshold == 0 {
		cfg.Workflow.Worker.ApproveThreshold = 50
	}
	if cfg.Workflow.Worker.MinimumAge == 0 {
		cfg.Workflow.Worker.MinimumAge = 18
	}
	if cfg.Workflow.Worker.MaxJobsActive == 0 {
		cfg.Workflow.Worker.MaxJobsActive = 16
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = cfg.App.Name
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	if cfg.Database.Postgres.Enabled {
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	}

	if cfg.Database.Elasticsearch.Enabled && cfg.Database.Elasticsearch.GetURL() == "" {
		return fmt.Errorf("database.elasticsearch.addresses or url is required")
	}

	if cfg.Workflow.Enabled && cfg.Workflow.BrokerAddress == "" {
		return fmt.Errorf("workflow.broker_address is required")
	}

	if cfg.Integrations.HubSpot.Enabled && cfg.Integrations.HubSpot.AccessToken == "" {
		return fmt.Errorf("integrations.hubspot.access_token is required")
	}

	if cfg.Gate.BlockWindowDays < 0 {
		return fmt.Errorf("gate.block_window_days must not be negative")
	}

	if cfg.Gate.BusinessOpenHour < 0 || cfg.Gate.BusinessCloseHour > 24 ||
		cfg.Gate.BusinessOpenHour >= cfg.Gate.BusinessCloseHour {
		return fmt.Errorf("gate business hours must satisfy 0 <= open < close <= 24")
	}

	if _, err := time.LoadLocation(cfg.Gate.BusinessTimezone); err != nil {
		return fmt.Errorf("gate.business_timezone: %w", err)
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// Days converts a day count from config to time.Duration
func Days(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}
