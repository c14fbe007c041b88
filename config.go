package viewsync

import (
	"errors"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DBConfig is a struct that stores database connection settings.
type DBConfig struct {
	Host     string `envconfig:"DB_HOST" yaml:"host"`
	Port     int    `envconfig:"DB_PORT" yaml:"port"`
	User     string `envconfig:"DB_USER" yaml:"user"`
	Password string `envconfig:"DB_PASS" yaml:"password"`
	Database string `envconfig:"DB_NAME" yaml:"database"`
}

// ConnString returns a libpq-style connection string.
func (c *DBConfig) ConnString() string {
	return fmt.Sprintf("user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.Database,
		c.Host,
		c.Port,
		"disable",
	)
}

// Config is a struct that stores viewsync configuration settings.
type Config struct {
	// Database configuration settings.
	Database DBConfig `yaml:"database"`
	// Schema is the schema stream predicates are scoped to.
	Schema string `envconfig:"SCHEMA" default:"public" yaml:"schema"`
	// NotifyChannel is the Postgres notification channel change payloads
	// arrive on.
	NotifyChannel string `envconfig:"NOTIFY_CHANNEL" default:"viewsync_changes" yaml:"notify_channel"`
	// ReconnectDelaySeconds is the fixed delay before a dropped stream
	// connection is reactivated.
	ReconnectDelaySeconds int `envconfig:"RECONNECT_DELAY_SECONDS" default:"5" yaml:"reconnect_delay_seconds"`
	// RecommendationServiceURL is the base URL of the recommendation-generation
	// service.
	RecommendationServiceURL string `envconfig:"RECOMMENDATION_SERVICE_URL" yaml:"recommendation_service_url"`
	// Logging level
	LogLevel string `envconfig:"LOG_LEVEL" default:"info" yaml:"log_level"`
}

// NewConfigFromEnv returns a new Config initialized with values read from the environment.
func NewConfigFromEnv() (*Config, error) {
	var c Config
	err := envconfig.Process("vs", &c)
	if err != nil {
		return nil, errors.New("unable to parse configuration from environment")
	}
	return &c, nil
}

// LoadConfigFile reads configuration overrides from a YAML file on top of the
// environment values.
func LoadConfigFile(path string) (*Config, error) {
	c, err := NewConfigFromEnv()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("unable to parse config file %s: %w", path, err)
	}

	return c, nil
}

// ParseLogLevel parses a logrus level from a config string.
func ParseLogLevel(level string) (logrus.Level, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return 0, fmt.Errorf("'%s' is not a valid log level. Must be one of: 'trace', 'debug', 'info', 'warn', 'error', 'fatal'", level)
	}
	return lvl, err
}
