package relay

import (
	"context"
	"fmt"
	"time"
)

// TopicLister supplies the names of the topics the relay listens on.
// *Directory implements it.
type TopicLister interface {
	ListActiveTopics(ctx context.Context) ([]string, error)
}

// SubscriptionManager subscribes the broker session to active topics.
//
// SubscribeAll sends one batch request covering every active topic at QoS 0.
// It is run once per successful connect. An empty topic set is a successful
// no-op and issues no broker call.
//
// Thread safety: Safe for concurrent use.
type SubscriptionManager struct {
	topics  TopicLister
	session Session
	logger  Logger
	timeout time.Duration
}

// SubscriptionManagerOption configures a SubscriptionManager.
type SubscriptionManagerOption func(*SubscriptionManager) error

// NewSubscriptionManager creates a new SubscriptionManager with the provided options.
//
// Required options:
//   - WithSubscriptionManagerTopics: active topic source
//   - WithSubscriptionManagerSession: broker session
//   - WithSubscriptionManagerLogger: logger instance
//
// Example:
//
//	manager, err := relay.NewSubscriptionManager(
//	    relay.WithSubscriptionManagerTopics(directory),
//	    relay.WithSubscriptionManagerSession(connections),
//	    relay.WithSubscriptionManagerLogger(logger),
//	)
func NewSubscriptionManager(opts ...SubscriptionManagerOption) (*SubscriptionManager, error) {
	sm := &SubscriptionManager{timeout: 10 * time.Second}

	for _, opt := range opts {
		if err := opt(sm); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply subscription manager option", err)
		}
	}

	// Validate required dependencies
	if sm.topics == nil {
		return nil, NewError(ErrCodeConfiguration, "TopicLister is required")
	}
	if sm.session == nil {
		return nil, NewError(ErrCodeConfiguration, "Session is required")
	}
	if sm.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required")
	}

	return sm, nil
}

// WithSubscriptionManagerTopics sets the source of active topic names.
func WithSubscriptionManagerTopics(topics TopicLister) SubscriptionManagerOption {
	return func(sm *SubscriptionManager) error {
		if topics == nil {
			return fmt.Errorf("topics cannot be nil")
		}
		sm.topics = topics
		return nil
	}
}

// WithSubscriptionManagerSession sets the broker session subscriptions are sent on.
func WithSubscriptionManagerSession(session Session) SubscriptionManagerOption {
	return func(sm *SubscriptionManager) error {
		if session == nil {
			return fmt.Errorf("session cannot be nil")
		}
		sm.session = session
		return nil
	}
}

// WithSubscriptionManagerLogger sets the logger for the subscription manager.
func WithSubscriptionManagerLogger(logger Logger) SubscriptionManagerOption {
	return func(sm *SubscriptionManager) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		sm.logger = withComponent(logger, "subscriptions")
		return nil
	}
}

// WithSubscriptionManagerTimeout bounds each subscribe round trip, including the topic query.
func WithSubscriptionManagerTimeout(timeout time.Duration) SubscriptionManagerOption {
	return func(sm *SubscriptionManager) error {
		if timeout <= 0 {
			return fmt.Errorf("subscribe timeout must be > 0, got %s", timeout)
		}
		sm.timeout = timeout
		return nil
	}
}

// SubscribeAll subscribes to every active topic in a single request and
// returns how many topics were included.
func (sm *SubscriptionManager) SubscribeAll(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, sm.timeout)
	defer cancel()

	names, err := sm.topics.ListActiveTopics(ctx)
	if err != nil {
		sm.logger.Errorf("Failed to load active topics: %v", err)
		return 0, NewErrorWithCause(ErrCodeSubscription, "failed to load active topics", err)
	}
	if len(names) == 0 {
		sm.logger.Info("No active topics found to subscribe.")
		return 0, nil
	}

	filters := make([]TopicFilter, 0, len(names))
	for _, name := range names {
		filters = append(filters, TopicFilter{Topic: name, QoS: AtMostOnce})
	}

	if err := sm.send(ctx, filters); err != nil {
		return 0, err
	}

	sm.logger.Infof("Successfully subscribed to %d topics.", len(filters))
	return len(filters), nil
}

// SubscribeTopic subscribes to one topic, typically right after it is created.
func (sm *SubscriptionManager) SubscribeTopic(ctx context.Context, name string) error {
	if name == "" {
		return NewError(ErrCodeValidation, "topic name is required")
	}

	ctx, cancel := context.WithTimeout(ctx, sm.timeout)
	defer cancel()

	if err := sm.send(ctx, []TopicFilter{{Topic: name, QoS: AtMostOnce}}); err != nil {
		return err
	}
	sm.logger.Infof("Subscribed to topic %s", name)
	return nil
}

func (sm *SubscriptionManager) send(ctx context.Context, filters []TopicFilter) error {
	code, err := sm.session.Subscribe(ctx, filters)
	if err != nil {
		sm.logger.Errorf("Subscription request for %d topics failed: %v", len(filters), err)
		return NewErrorWithCause(ErrCodeSubscription, "subscribe request failed", err)
	}
	if !code.Success() {
		sm.logger.Warnf("Subscription request for %d topics failed with return code %s", len(filters), code)
		return NewError(ErrCodeSubscription, fmt.Sprintf("broker returned code %s", code))
	}
	return nil
}
