package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	relay "github.com/coregx/brokerrelay"
	"github.com/coregx/brokerrelay/adapters/paho"
	"github.com/coregx/brokerrelay/adapters/relica"
	"github.com/coregx/brokerrelay/cmd/relay-server/internal/config"
	"github.com/coregx/brokerrelay/cmd/relay-server/internal/logging"
	"github.com/coregx/brokerrelay/retry"
)

// app holds what every command needs: configuration, logger and database.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	db       *sql.DB
	registry *prometheus.Registry
}

// bootstrap loads configuration, builds the logger and opens the database.
func bootstrap(command string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	base, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := base.With("command", command)

	db, err := sql.Open(cfg.Database.Driver, cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Infof("Database connection established (%s)", cfg.Database.Driver)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &app{cfg: cfg, logger: logger, db: db, registry: registry}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.logger.Errorf("Failed to close database: %v", err)
	}
	_ = a.logger.Sync()
}

func (a *app) repositories() *relica.Repositories {
	if a.cfg.Database.Prefix != "" {
		return relica.NewRepositoriesWithPrefix(a.db, a.cfg.Database.Driver, a.cfg.Database.Prefix)
	}
	return relica.NewRepositories(a.db, a.cfg.Database.Driver)
}

// newRelay builds the relay engine on the Relica repositories and the paho client.
func (a *app) newRelay() (*relay.Relay, error) {
	metrics, err := relay.NewMetrics(a.registry)
	if err != nil {
		return nil, err
	}

	var clientOpts []paho.Option
	if a.cfg.MQTT.PublishAcks {
		clientOpts = append(clientOpts, paho.WithPublishAcks())
	}

	repos := a.repositories()
	return relay.NewRelay(
		relay.WithRepositories(repos.Topic, repos.User, repos.Subscription, repos.Message),
		relay.WithBrokerClient(paho.NewClient(clientOpts...)),
		relay.WithLogger(a.logger),
		relay.WithMetrics(metrics),
		relay.WithClientID(a.cfg.MQTT.ClientID),
		relay.WithKeepAlive(a.cfg.MQTT.KeepAlive),
		relay.WithConnectTimeout(a.cfg.MQTT.ConnectTimeout),
		relay.WithSubscribeTimeout(a.cfg.Relay.SubscribeTimeout),
		relay.WithWorkers(a.cfg.Relay.Workers),
		relay.WithQueueSize(a.cfg.Relay.QueueSize),
		relay.WithNotificationQoS(relay.QoS(a.cfg.Relay.NotificationQoS)),
	)
}

func (a *app) endpoint() relay.Endpoint {
	return relay.Endpoint{Address: a.cfg.MQTT.Broker, Port: a.cfg.MQTT.Port}
}

func (a *app) credentials() relay.Credentials {
	return relay.Credentials{Username: a.cfg.MQTT.Username, Password: a.cfg.MQTT.Password}
}

func (a *app) reconnectStrategy() retry.Strategy {
	return retry.Strategy{
		MaxAttempts:     a.cfg.Relay.ReconnectMaxAttempts,
		BaseDelay:       a.cfg.Relay.ReconnectBaseDelay,
		MaxDelay:        a.cfg.Relay.ReconnectMaxDelay,
		ExponentialBase: 2.0,
	}
}
