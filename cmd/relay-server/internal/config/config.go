// Package config loads the relay server configuration from the environment.
// Every key has a default; values are validated before use.
package config

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// Config holds all configuration for the relay server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	MQTT     MQTTConfig
	Relay    RelayConfig
	LogLevel string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver   string // mysql, postgres, sqlite3
	Host     string
	Port     int
	User     string
	Password string
	Database string // Database name, or file path for sqlite3
	Prefix   string // Table prefix (default: "relay_")
}

// MQTTConfig holds broker connection configuration.
type MQTTConfig struct {
	Broker         string
	Port           int
	Username       string
	Password       string
	ClientID       string // Generated when empty
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	AutoStart      bool // Run the relay inside `serve`
	PublishAcks    bool // Wait for PUBACK/PUBCOMP on QoS 1 and 2 publishes
}

// RelayConfig tunes the relay engine.
type RelayConfig struct {
	Workers              int
	QueueSize            int
	NotificationQoS      int
	SubscribeTimeout     time.Duration
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
	ReconnectMaxAttempts int // 0 = unlimited
}

var defaults = map[string]interface{}{
	"SERVER_HOST": "0.0.0.0",
	"SERVER_PORT": 8080,

	"DB_DRIVER":   "sqlite3",
	"DB_HOST":     "localhost",
	"DB_PORT":     3306,
	"DB_USER":     "relay",
	"DB_PASSWORD": "",
	"DB_NAME":     "relay.db",
	"DB_PREFIX":   "relay_",

	"MQTT_BROKER":          "localhost",
	"MQTT_PORT":            1883,
	"MQTT_USER":            "",
	"MQTT_PASS":            "",
	"MQTT_CLIENT_ID":       "",
	"MQTT_KEEPALIVE":       "60s",
	"MQTT_CONNECT_TIMEOUT": "10s",
	"MQTT_AUTO_START":      false,
	"MQTT_PUBLISH_ACKS":    false,

	"RELAY_WORKERS":                8,
	"RELAY_QUEUE_SIZE":             1024,
	"RELAY_NOTIFICATION_QOS":       0,
	"RELAY_SUBSCRIBE_TIMEOUT":      "10s",
	"RELAY_RECONNECT_BASE_DELAY":   "1s",
	"RELAY_RECONNECT_MAX_DELAY":    "1m",
	"RELAY_RECONNECT_MAX_ATTEMPTS": 0,

	"LOG_LEVEL": "info",
}

// Load loads configuration from environment variables.
// Follows 12-factor app principles - configuration via environment.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(v.GetString("DB_DRIVER")),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Database: v.GetString("DB_NAME"),
			Prefix:   v.GetString("DB_PREFIX"),
		},
		MQTT: MQTTConfig{
			Broker:         v.GetString("MQTT_BROKER"),
			Port:           v.GetInt("MQTT_PORT"),
			Username:       v.GetString("MQTT_USER"),
			Password:       v.GetString("MQTT_PASS"),
			ClientID:       v.GetString("MQTT_CLIENT_ID"),
			KeepAlive:      v.GetDuration("MQTT_KEEPALIVE"),
			ConnectTimeout: v.GetDuration("MQTT_CONNECT_TIMEOUT"),
			AutoStart:      v.GetBool("MQTT_AUTO_START"),
			PublishAcks:    v.GetBool("MQTT_PUBLISH_ACKS"),
		},
		Relay: RelayConfig{
			Workers:              v.GetInt("RELAY_WORKERS"),
			QueueSize:            v.GetInt("RELAY_QUEUE_SIZE"),
			NotificationQoS:      v.GetInt("RELAY_NOTIFICATION_QOS"),
			SubscribeTimeout:     v.GetDuration("RELAY_SUBSCRIBE_TIMEOUT"),
			ReconnectBaseDelay:   v.GetDuration("RELAY_RECONNECT_BASE_DELAY"),
			ReconnectMaxDelay:    v.GetDuration("RELAY_RECONNECT_MAX_DELAY"),
			ReconnectMaxAttempts: v.GetInt("RELAY_RECONNECT_MAX_ATTEMPTS"),
		},
		LogLevel: strings.ToLower(v.GetString("LOG_LEVEL")),
	}

	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "relay-" + uuid.NewString()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	return validation.Errors{
		"server":   c.Server.Validate(),
		"database": c.Database.Validate(),
		"mqtt":     c.MQTT.Validate(),
		"relay":    c.Relay.Validate(),
		"logLevel": validation.Validate(c.LogLevel, validation.In("debug", "info", "warn", "error")),
	}.Filter()
}

// Validate implements validation.Validatable.
func (c ServerConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// Validate implements validation.Validatable. A password is required for
// networked databases.
func (c DatabaseConfig) Validate() error {
	networked := c.Driver != "sqlite3"
	return validation.ValidateStruct(&c,
		validation.Field(&c.Driver, validation.Required, validation.In("mysql", "postgres", "sqlite3")),
		validation.Field(&c.Database, validation.Required),
		validation.Field(&c.Host, validation.When(networked, validation.Required)),
		validation.Field(&c.Password, validation.When(networked, validation.Required)),
	)
}

// Validate implements validation.Validatable.
func (c MQTTConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Broker, validation.Required),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.KeepAlive, validation.Required),
		validation.Field(&c.ConnectTimeout, validation.Required),
	)
}

// Validate implements validation.Validatable.
func (c RelayConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Workers, validation.Required, validation.Min(1)),
		validation.Field(&c.QueueSize, validation.Min(0)),
		validation.Field(&c.NotificationQoS, validation.Min(0), validation.Max(2)),
		validation.Field(&c.SubscribeTimeout, validation.Required),
		validation.Field(&c.ReconnectBaseDelay, validation.Required),
		validation.Field(&c.ReconnectMaxDelay, validation.Required),
		validation.Field(&c.ReconnectMaxAttempts, validation.Min(0)),
	)
}

// GetDSN returns the database connection string based on driver.
func (c *DatabaseConfig) GetDSN() string {
	switch c.Driver {
	case "mysql":
		// Migrations run multi-statement files.
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
			c.User, c.Password, c.Host, c.Port, c.Database)
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.Host, c.Port, c.User, c.Password, c.Database)
	case "sqlite3":
		return c.Database // SQLite uses file path as DSN
	default:
		return ""
	}
}
