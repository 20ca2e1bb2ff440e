package relay

import (
	"fmt"
	"time"
)

// Option is a function that configures a Relay.
//
// Example:
//
//	r, err := relay.NewRelay(
//	    relay.WithRepositories(repos.Topic, repos.User, repos.Subscription, repos.Message),
//	    relay.WithBrokerClient(paho.NewClient()),
//	    relay.WithLogger(logger),
//	    relay.WithWorkers(16), // optional
//	)
type Option func(*Relay) error

// WithRepositories sets the required repository dependencies.
// All four repositories are required and must not be nil.
//
// This is a required option for NewRelay.
func WithRepositories(
	topics TopicRepository,
	users UserRepository,
	subscriptions SubscriptionRepository,
	messages MessageRepository,
) Option {
	return func(r *Relay) error {
		if topics == nil {
			return fmt.Errorf("topics repository cannot be nil")
		}
		if users == nil {
			return fmt.Errorf("users repository cannot be nil")
		}
		if subscriptions == nil {
			return fmt.Errorf("subscriptions repository cannot be nil")
		}
		if messages == nil {
			return fmt.Errorf("messages repository cannot be nil")
		}

		r.topicRepo = topics
		r.userRepo = users
		r.subscriptionRepo = subscriptions
		r.messageRepo = messages
		return nil
	}
}

// WithBrokerClient sets the wire-protocol client.
//
// This is a required option for NewRelay.
func WithBrokerClient(client BrokerClient) Option {
	return func(r *Relay) error {
		if client == nil {
			return fmt.Errorf("broker client cannot be nil")
		}
		r.client = client
		return nil
	}
}

// WithLogger sets the logger instance. Use NoopLogger for silent operation.
//
// This is a required option for NewRelay.
func WithLogger(logger Logger) Option {
	return func(r *Relay) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		r.logger = logger
		return nil
	}
}

// WithMetrics records relay activity in m. Without it nothing is recorded.
func WithMetrics(m *Metrics) Option {
	return func(r *Relay) error {
		r.metrics = m
		return nil
	}
}

// WithWorkers sets the size of the worker pool that runs persistence and
// notification. Default is 8.
func WithWorkers(n int) Option {
	return func(r *Relay) error {
		if n <= 0 {
			return fmt.Errorf("workers must be > 0, got %d", n)
		}
		r.workers = n
		return nil
	}
}

// WithQueueSize sets how many deliveries may wait for the dispatcher before
// the broker's delivery loop is held back. Default is 1024.
func WithQueueSize(n int) Option {
	return func(r *Relay) error {
		if n < 0 {
			return fmt.Errorf("queue size must be >= 0, got %d", n)
		}
		r.queueSize = n
		return nil
	}
}

// WithClientID sets the client identifier presented to the broker.
func WithClientID(id string) Option {
	return func(r *Relay) error {
		r.connection.ClientID = id
		return nil
	}
}

// WithKeepAlive sets the session keep-alive interval. Default is 60s.
func WithKeepAlive(d time.Duration) Option {
	return func(r *Relay) error {
		if d <= 0 {
			return fmt.Errorf("keep-alive must be > 0, got %s", d)
		}
		r.connection.KeepAlive = d
		return nil
	}
}

// WithConnectTimeout bounds the broker handshake. Default is 10s.
func WithConnectTimeout(d time.Duration) Option {
	return func(r *Relay) error {
		if d <= 0 {
			return fmt.Errorf("connect timeout must be > 0, got %s", d)
		}
		r.connection.ConnectTimeout = d
		return nil
	}
}

// WithSubscribeTimeout bounds each subscribe round trip. Default is 10s.
func WithSubscribeTimeout(d time.Duration) Option {
	return func(r *Relay) error {
		if d <= 0 {
			return fmt.Errorf("subscribe timeout must be > 0, got %s", d)
		}
		r.subscribeTimeout = d
		return nil
	}
}

// WithNotificationQoS sets the QoS used for notifications sent by the
// inbound pipeline. Default is AtMostOnce. Higher levels make every
// notification wait for the broker's acknowledgement.
func WithNotificationQoS(qos QoS) Option {
	return func(r *Relay) error {
		if !qos.Valid() {
			return fmt.Errorf("unsupported QoS %d", qos)
		}
		r.notificationQoS = qos
		return nil
	}
}

// WithFanOut caps concurrent publishes within one broadcast. Zero, the
// default, publishes to every recipient concurrently.
func WithFanOut(limit int) Option {
	return func(r *Relay) error {
		if limit < 0 {
			return fmt.Errorf("fan-out limit must be >= 0, got %d", limit)
		}
		r.fanOut = limit
		return nil
	}
}
