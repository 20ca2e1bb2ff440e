package relay

import (
	"context"
	"time"

	"github.com/coregx/brokerrelay/model"
)

// Relay wires the engine together: directory, message store, connection
// manager, subscription manager, publisher, notifier, pipeline and dispatcher.
//
// Connecting runs SubscribeAll once per established session. Inbound
// deliveries flow from the broker client through the dispatcher into the
// pipeline. Reconnecting after a loss is the caller's job; see Wait.
type Relay struct {
	topicRepo        TopicRepository
	userRepo         UserRepository
	subscriptionRepo SubscriptionRepository
	messageRepo      MessageRepository
	client           BrokerClient
	logger           Logger
	metrics          *Metrics

	workers          int
	queueSize        int
	fanOut           int
	subscribeTimeout time.Duration
	notificationQoS  QoS
	connection       ConnectionConfig

	directory     *Directory
	store         *MessageStore
	connections   *ConnectionManager
	subscriptions *SubscriptionManager
	publisher     *Publisher
	notifier      *Notifier
	pipeline      *Pipeline
	dispatcher    *Dispatcher
}

// NewRelay creates a Relay with the provided options.
//
// Required options:
//   - WithRepositories
//   - WithBrokerClient
//   - WithLogger
func NewRelay(opts ...Option) (*Relay, error) {
	r := &Relay{
		workers:          8,
		queueSize:        1024,
		subscribeTimeout: 10 * time.Second,
		notificationQoS:  AtMostOnce,
		connection:       DefaultConnectionConfig(),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply relay option", err)
		}
	}

	if r.topicRepo == nil {
		return nil, NewError(ErrCodeConfiguration, "repositories are required (use WithRepositories)")
	}
	if r.client == nil {
		return nil, NewError(ErrCodeConfiguration, "BrokerClient is required (use WithBrokerClient)")
	}
	if r.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithLogger)")
	}

	if err := r.build(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Relay) build() error {
	var err error

	r.directory, err = NewDirectory(r.topicRepo, r.userRepo, r.subscriptionRepo, r.messageRepo, r.logger)
	if err != nil {
		return err
	}
	r.store, err = NewMessageStore(r.messageRepo, r.logger)
	if err != nil {
		return err
	}

	r.connections, err = NewConnectionManager(r.client, r.connection, r.logger, r.metrics)
	if err != nil {
		return err
	}

	r.subscriptions, err = NewSubscriptionManager(
		WithSubscriptionManagerTopics(r.directory),
		WithSubscriptionManagerSession(r.connections),
		WithSubscriptionManagerLogger(r.logger),
		WithSubscriptionManagerTimeout(r.subscribeTimeout),
	)
	if err != nil {
		return err
	}

	r.publisher, err = NewPublisher(
		WithPublisherSession(r.connections),
		WithPublisherLogger(r.logger),
		WithPublisherMetrics(r.metrics),
	)
	if err != nil {
		return err
	}

	r.notifier, err = NewNotifier(
		WithNotifierPublisher(r.publisher),
		WithNotifierAudience(r.directory),
		WithNotifierLogger(r.logger),
		WithNotifierMetrics(r.metrics),
		WithFanOutLimit(r.fanOut),
	)
	if err != nil {
		return err
	}

	r.pipeline, err = NewPipeline(r.directory, r.store, r.notifier, r.notificationQoS, r.logger, r.metrics)
	if err != nil {
		return err
	}

	r.dispatcher, err = NewDispatcher(r.pipeline, r.workers, r.queueSize, r.logger, r.metrics)
	if err != nil {
		return err
	}

	r.connections.AttachDispatcher(r.dispatcher)
	r.connections.OnConnected(func(ctx context.Context) {
		// Failures are logged by the subscription manager.
		_, _ = r.subscriptions.SubscribeAll(ctx)
	})
	return nil
}

// Connect opens the broker session and subscribes to all active topics.
func (r *Relay) Connect(ctx context.Context, endpoint Endpoint, creds Credentials) error {
	return r.connections.Connect(ctx, endpoint, creds)
}

// Wait blocks until the current session ends; see ConnectionManager.Wait.
func (r *Relay) Wait(ctx context.Context) error {
	return r.connections.Wait(ctx)
}

// State returns the broker session state.
func (r *Relay) State() State {
	return r.connections.State()
}

// Disconnect closes the broker session, leaving the relay reusable.
func (r *Relay) Disconnect() {
	r.connections.Disconnect()
}

// Close disconnects and waits for in-flight deliveries until ctx expires.
func (r *Relay) Close(ctx context.Context) error {
	return r.connections.Close(ctx)
}

// Publish sends payload to topic on the live session.
func (r *Relay) Publish(ctx context.Context, topic string, payload []byte, qos QoS) (PublishOutcome, error) {
	return r.publisher.Publish(ctx, topic, payload, qos)
}

// Notify sends message to recipient's notification topic, or to every
// active user when recipient is nil.
func (r *Relay) Notify(ctx context.Context, message string, recipient *model.User, qos QoS) NotificationReport {
	return r.notifier.Notify(ctx, message, recipient, qos)
}

// SubscribeAll re-subscribes to every active topic.
func (r *Relay) SubscribeAll(ctx context.Context) (int, error) {
	return r.subscriptions.SubscribeAll(ctx)
}

// SubscribeTopic subscribes to one topic on the live session.
func (r *Relay) SubscribeTopic(ctx context.Context, name string) error {
	return r.subscriptions.SubscribeTopic(ctx, name)
}

// Directory returns the topic, user and subscription directory.
func (r *Relay) Directory() *Directory {
	return r.directory
}

// Messages returns the message store.
func (r *Relay) Messages() *MessageStore {
	return r.store
}
