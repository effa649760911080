package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file used when neither a flag nor
// GRAYLOGIC_CONFIG names one.
const DefaultPath = "configs/config.yaml"

// Config is the root configuration structure for the automation core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site       SiteConfig       `yaml:"site"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Logging    LoggingConfig    `yaml:"logging"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Automation AutomationConfig `yaml:"automation"`
	Monitor    MonitorConfig    `yaml:"monitor"`

	// Warnings lists environment overrides that were ignored because they
	// did not parse. The process logs them once logging is up.
	Warnings []string `yaml:"-"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	// Enabled connects the event bus to the broker. With it off, the core
	// runs rules against in-process events only.
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SchedulerConfig sizes the job scheduler's pools. Out-of-range values are
// not rejected here: the scheduler logs them and falls back to its defaults.
type SchedulerConfig struct {
	MinPoolSize        int `yaml:"min_pool_size"`
	MaxPoolSize        int `yaml:"max_pool_size"`
	KeepAliveMillis    int `yaml:"keep_alive_ms"`
	BackgroundPoolSize int `yaml:"background_pool_size"`
}

// AutomationConfig contains rule engine settings.
type AutomationConfig struct {
	Enabled bool `yaml:"enabled"`

	// RuleTimeout bounds a single rule execution, in seconds.
	RuleTimeout int `yaml:"rule_timeout"`

	// ModelsDir holds *.rules files loaded into the model registry at start.
	ModelsDir string `yaml:"models_dir"`
}

// MonitorConfig contains event monitoring settings.
type MonitorConfig struct {
	// EventLog logs every command and state event at info level.
	EventLog bool `yaml:"event_log"`
}

// ResolvePath picks the config file: an explicit flag value wins, then
// GRAYLOGIC_CONFIG, then DefaultPath.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv("GRAYLOGIC_CONFIG"); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
// For example: GRAYLOGIC_DATABASE_PATH, GRAYLOGIC_THREADPOOL_MAX
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file is present,
// with environment overrides applied.
func Default() *Config {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	return cfg
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "Gray Logic",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/graylogic.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-automation",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Scheduler: SchedulerConfig{
			MinPoolSize:        4,
			MaxPoolSize:        16,
			KeepAliveMillis:    1000,
			BackgroundPoolSize: 6,
		},
		Automation: AutomationConfig{
			Enabled:     true,
			RuleTimeout: 30,
			ModelsDir:   "./rules",
		},
		Monitor: MonitorConfig{
			EventLog: true,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("GRAYLOGIC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("GRAYLOGIC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("GRAYLOGIC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Scheduler
	cfg.envInt("GRAYLOGIC_THREADPOOL_MIN", &cfg.Scheduler.MinPoolSize)
	cfg.envInt("GRAYLOGIC_THREADPOOL_MAX", &cfg.Scheduler.MaxPoolSize)
	cfg.envInt("GRAYLOGIC_THREADPOOL_KEEPALIVE", &cfg.Scheduler.KeepAliveMillis)
	cfg.envInt("GRAYLOGIC_THREADPOOL_BACKGROUND_SIZE", &cfg.Scheduler.BackgroundPoolSize)

	// Automation
	if v := os.Getenv("GRAYLOGIC_NO_RULES"); strings.EqualFold(v, "true") {
		cfg.Automation.Enabled = false
	}
	if v := os.Getenv("GRAYLOGIC_RULES_DIR"); v != "" {
		cfg.Automation.ModelsDir = v
	}
}

// envInt overrides dst with an integer variable. A value that does not
// parse leaves dst unchanged and is recorded in Warnings.
func (c *Config) envInt(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		c.Warnings = append(c.Warnings, fmt.Sprintf("invalid thread pool property value %s=%q, keeping %d", key, v, *dst))
		return
	}
	*dst = n
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && (c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535) {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.Automation.RuleTimeout < 0 {
		errs = append(errs, "automation.rule_timeout must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetRuleTimeout returns the rule execution timeout as a Duration. Zero
// means the engine's default.
func (c *Config) GetRuleTimeout() time.Duration {
	return time.Duration(c.Automation.RuleTimeout) * time.Second
}

// GetKeepAlive returns the idle worker keep-alive as a Duration.
func (c *Config) GetKeepAlive() time.Duration {
	return time.Duration(c.Scheduler.KeepAliveMillis) * time.Millisecond
}
