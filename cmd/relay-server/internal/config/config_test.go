package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "relay.db", cfg.Database.Database)
	assert.Equal(t, "relay_", cfg.Database.Prefix)
	assert.Equal(t, "localhost", cfg.MQTT.Broker)
	assert.Equal(t, 1883, cfg.MQTT.Port)
	assert.Equal(t, 60*time.Second, cfg.MQTT.KeepAlive)
	assert.Equal(t, 10*time.Second, cfg.MQTT.ConnectTimeout)
	assert.False(t, cfg.MQTT.AutoStart)
	assert.False(t, cfg.MQTT.PublishAcks)
	assert.True(t, strings.HasPrefix(cfg.MQTT.ClientID, "relay-"))
	assert.Equal(t, 8, cfg.Relay.Workers)
	assert.Equal(t, 1024, cfg.Relay.QueueSize)
	assert.Equal(t, 0, cfg.Relay.NotificationQoS)
	assert.Equal(t, time.Second, cfg.Relay.ReconnectBaseDelay)
	assert.Equal(t, time.Minute, cfg.Relay.ReconnectMaxDelay)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "relay")
	t.Setenv("MQTT_BROKER", "broker.local")
	t.Setenv("MQTT_CLIENT_ID", "relay-fixed")
	t.Setenv("MQTT_KEEPALIVE", "30s")
	t.Setenv("MQTT_AUTO_START", "true")
	t.Setenv("RELAY_WORKERS", "4")
	t.Setenv("RELAY_NOTIFICATION_QOS", "1")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "broker.local", cfg.MQTT.Broker)
	assert.Equal(t, "relay-fixed", cfg.MQTT.ClientID)
	assert.Equal(t, 30*time.Second, cfg.MQTT.KeepAlive)
	assert.True(t, cfg.MQTT.AutoStart)
	assert.Equal(t, 4, cfg.Relay.Workers)
	assert.Equal(t, 1, cfg.Relay.NotificationQoS)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "host=db port=5432 user=relay password=secret dbname=relay sslmode=disable", cfg.Database.GetDSN())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown driver", map[string]string{"DB_DRIVER": "oracle"}, "database"},
		{"networked database without password", map[string]string{"DB_DRIVER": "mysql"}, "database"},
		{"zero workers", map[string]string{"RELAY_WORKERS": "0"}, "relay"},
		{"qos out of range", map[string]string{"RELAY_NOTIFICATION_QOS": "3"}, "relay"},
		{"bad log level", map[string]string{"LOG_LEVEL": "verbose"}, "logLevel"},
		{"bad port", map[string]string{"MQTT_PORT": "70000"}, "mqtt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDatabaseConfig_GetDSN(t *testing.T) {
	mysql := DatabaseConfig{Driver: "mysql", Host: "db", Port: 3306, User: "u", Password: "p", Database: "relay"}
	assert.Equal(t, "u:p@tcp(db:3306)/relay?parseTime=true&multiStatements=true", mysql.GetDSN())

	sqlite := DatabaseConfig{Driver: "sqlite3", Database: "/tmp/relay.db"}
	assert.Equal(t, "/tmp/relay.db", sqlite.GetDSN())

	unknown := DatabaseConfig{Driver: "oracle"}
	assert.Empty(t, unknown.GetDSN())
}
