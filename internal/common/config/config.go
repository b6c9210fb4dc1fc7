// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Session       SessionConfig       `mapstructure:"session"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Integrations  IntegrationConfig   `mapstructure:"integrations"`
	Tracking      TrackingConfig      `mapstructure:"tracking"`
	Verification  VerificationConfig  `mapstructure:"verification"`
	Gate          GateConfig          `mapstructure:"gate"`
	Features      FeaturesConfig      `mapstructure:"features"`
	Workflow      WorkflowConfig      `mapstructure:"workflow"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string   `mapstructure:"address"`
	ReadTimeout     int      `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int      `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int      `mapstructure:"shutdown_timeout"` // milliseconds
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
}

type SessionConfig struct {
	CookieName string `mapstructure:"cookie_name"`
	Secure     bool   `mapstructure:"secure"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"`
	Index      string   `mapstructure:"index"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// IntegrationConfig holds settings for the SMS, email and CRM services.
type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled            bool   `mapstructure:"enabled"`
			DefaultSMSSenderID string `mapstructure:"default_sms_sender_id"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`

	HubSpot HubSpotConfig `mapstructure:"hubspot"`
}

type HubSpotConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BaseURL     string `mapstructure:"base_url"`
	AccessToken string `mapstructure:"access_token"`
	Timeout     int    `mapstructure:"timeout"` // milliseconds
}

// TrackingConfig drives tag injection on the page shell.
type TrackingConfig struct {
	GTMContainerID  string `mapstructure:"gtm_container_id"`
	HubSpotPortalID string `mapstructure:"hubspot_portal_id"`
}

type VerificationConfig struct {
	CodeTTL             int    `mapstructure:"code_ttl"` // milliseconds
	ManualAfterAttempts int    `mapstructure:"manual_after_attempts"`
	MaxAttempts         int    `mapstructure:"max_attempts"`    // wrong guesses per issued code
	ResendCooldown      int    `mapstructure:"resend_cooldown"` // milliseconds
	MessageTemplate     string `mapstructure:"message_template"`
}

type GateConfig struct {
	BlockWindowDays   int    `mapstructure:"block_window_days"`
	RetentionDays     int    `mapstructure:"retention_days"`
	ResetTokenTTL     int    `mapstructure:"reset_token_ttl"` // milliseconds
	ContactPhone      string `mapstructure:"contact_phone"`
	ContactPhoneURI   string `mapstructure:"contact_phone_uri"`
	PartnerOffersURL  string `mapstructure:"partner_offers_url"`
	BusinessTimezone  string `mapstructure:"business_timezone"`
	BusinessOpenHour  int    `mapstructure:"business_open_hour"`
	BusinessCloseHour int    `mapstructure:"business_close_hour"`
}

type FeaturesConfig struct {
	SchedulerEnabled bool `mapstructure:"scheduler_enabled"`
}

// WorkflowConfig configures the eligibility decision process on Zeebe.
type WorkflowConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	ProcessID      string `mapstructure:"process_id"`
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
	MaxRetries     int    `mapstructure:"max_retries"`
	UsePlaintext   bool   `mapstructure:"use_plaintext"`

	Worker WorkerConfig `mapstructure:"worker"`
}

// WorkerConfig drives the decision worker that serves the process's job types.
type WorkerConfig struct {
	RegistryPath     string `mapstructure:"registry_path"`
	ApproveThreshold int    `mapstructure:"approve_threshold"`
	MinimumAge       int    `mapstructure:"minimum_age"`
	MaxJobsActive    int    `mapstructure:"max_jobs_active"`
}

type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	TracingEnabled bool   `mapstructure:"tracing_enabled"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
