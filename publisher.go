package relay

import (
	"context"
	"fmt"
)

// Publisher sends outbound messages over the broker session. It performs no
// retries; a failed publish is reported to the caller and nothing else.
type Publisher struct {
	session Session
	logger  Logger
	metrics *Metrics
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher) error

// NewPublisher creates a new Publisher with the provided options.
//
// Required options:
//   - WithPublisherSession: the live broker session
//   - WithPublisherLogger: logger instance
//
// Example:
//
//	publisher, err := relay.NewPublisher(
//	    relay.WithPublisherSession(connections),
//	    relay.WithPublisherLogger(logger),
//	)
func NewPublisher(opts ...PublisherOption) (*Publisher, error) {
	p := &Publisher{}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply publisher option", err)
		}
	}

	if p.session == nil {
		return nil, NewError(ErrCodeConfiguration, "Session is required (use WithPublisherSession)")
	}
	if p.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithPublisherLogger)")
	}

	return p, nil
}

// WithPublisherSession sets the session messages are published on.
func WithPublisherSession(session Session) PublisherOption {
	return func(p *Publisher) error {
		if session == nil {
			return fmt.Errorf("session cannot be nil")
		}
		p.session = session
		return nil
	}
}

// WithPublisherLogger sets the logger instance.
func WithPublisherLogger(logger Logger) PublisherOption {
	return func(p *Publisher) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		p.logger = withComponent(logger, "publisher")
		return nil
	}
}

// WithPublisherMetrics records publish results in m.
func WithPublisherMetrics(m *Metrics) PublisherOption {
	return func(p *Publisher) error {
		p.metrics = m
		return nil
	}
}

// PublishOutcome describes an accepted publish.
type PublishOutcome struct {
	Topic string
	QoS   QoS
	Code  ReasonCode // Client acknowledgement, always success when returned without error
}

// Publish sends payload to topic at the given QoS.
//
// Errors:
//   - ErrCodeValidation: empty topic or unsupported QoS
//   - ErrNotConnected: no live session
//   - ErrCodePublish: the client failed or returned a non-zero code
func (p *Publisher) Publish(ctx context.Context, topic string, payload []byte, qos QoS) (PublishOutcome, error) {
	outcome := PublishOutcome{Topic: topic, QoS: qos}

	if topic == "" {
		return outcome, NewError(ErrCodeValidation, "topic is required")
	}
	if !qos.Valid() {
		return outcome, NewError(ErrCodeValidation, fmt.Sprintf("unsupported QoS %d", qos))
	}

	code, err := p.session.Publish(ctx, topic, payload, qos)
	outcome.Code = code
	if err != nil {
		p.metrics.published(false)
		p.logger.Errorf("Failed to publish message to %s: %v", topic, err)
		if HasCode(err, ErrCodePublish) {
			return outcome, err
		}
		return outcome, NewErrorWithCause(ErrCodePublish, fmt.Sprintf("failed to publish to %s", topic), err)
	}
	if !code.Success() {
		p.metrics.published(false)
		p.logger.Errorf("Failed to publish message to %s, return code %s", topic, code)
		return outcome, NewError(ErrCodePublish, fmt.Sprintf("publish to %s returned code %s", topic, code))
	}

	p.metrics.published(true)
	p.logger.Debugf("Message published to %s (qos=%d, %d bytes)", topic, qos, len(payload))
	return outcome, nil
}
