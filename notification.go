package relay

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/iter"

	"github.com/coregx/brokerrelay/model"
)

// Notification modes, also used as metric labels.
const (
	NotifyDirect    = "direct"
	NotifyBroadcast = "broadcast"
)

// MessagePublisher publishes a single outbound message. *Publisher implements it.
type MessagePublisher interface {
	Publish(ctx context.Context, topic string, payload []byte, qos QoS) (PublishOutcome, error)
}

// Audience lists the users a broadcast goes to. *Directory implements it.
type Audience interface {
	ListActiveUsers(ctx context.Context) ([]model.User, error)
}

// RecipientOutcome is the result of notifying one user.
type RecipientOutcome struct {
	UserID int64
	Topic  string
	Err    error
}

// OK reports whether the publish was accepted.
func (o RecipientOutcome) OK() bool {
	return o.Err == nil
}

// NotificationReport pairs every recipient with its own outcome. Partial
// failure is normal; Outcomes holds one entry per attempted recipient.
type NotificationReport struct {
	Mode     string
	Outcomes []RecipientOutcome

	// Err is set when the broadcast audience could not be loaded.
	Err error
}

// Succeeded returns the number of accepted publishes.
func (r NotificationReport) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// Failed returns the number of failed publishes.
func (r NotificationReport) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}

// Notifier sends per-user notifications on "notification/<userID>" topics,
// either to one recipient or to every active user.
type Notifier struct {
	publisher   MessagePublisher
	audience    Audience
	logger      Logger
	metrics     *Metrics
	concurrency int
}

// NotifierOption configures a Notifier.
type NotifierOption func(*Notifier) error

// NewNotifier creates a new Notifier.
//
// Required options:
//   - WithNotifierPublisher
//   - WithNotifierAudience
//   - WithNotifierLogger
func NewNotifier(opts ...NotifierOption) (*Notifier, error) {
	n := &Notifier{}

	for _, opt := range opts {
		if err := opt(n); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply notifier option", err)
		}
	}

	if n.publisher == nil {
		return nil, NewError(ErrCodeConfiguration, "MessagePublisher is required (use WithNotifierPublisher)")
	}
	if n.audience == nil {
		return nil, NewError(ErrCodeConfiguration, "Audience is required (use WithNotifierAudience)")
	}
	if n.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithNotifierLogger)")
	}

	return n, nil
}

// WithNotifierPublisher sets the publisher used for every recipient.
func WithNotifierPublisher(p MessagePublisher) NotifierOption {
	return func(n *Notifier) error {
		if p == nil {
			return fmt.Errorf("publisher cannot be nil")
		}
		n.publisher = p
		return nil
	}
}

// WithNotifierAudience sets where broadcast recipients come from.
func WithNotifierAudience(a Audience) NotifierOption {
	return func(n *Notifier) error {
		if a == nil {
			return fmt.Errorf("audience cannot be nil")
		}
		n.audience = a
		return nil
	}
}

// WithNotifierLogger sets the logger instance.
func WithNotifierLogger(logger Logger) NotifierOption {
	return func(n *Notifier) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		n.logger = withComponent(logger, "notifier")
		return nil
	}
}

// WithNotifierMetrics records per-recipient results in m.
func WithNotifierMetrics(m *Metrics) NotifierOption {
	return func(n *Notifier) error {
		n.metrics = m
		return nil
	}
}

// WithFanOutLimit caps concurrent publishes in one broadcast. Zero issues
// every recipient's publish at once.
func WithFanOutLimit(limit int) NotifierOption {
	return func(n *Notifier) error {
		if limit < 0 {
			return fmt.Errorf("fan-out limit must be >= 0, got %d", limit)
		}
		n.concurrency = limit
		return nil
	}
}

// Notify publishes message to recipient's notification topic, or to every
// active user when recipient is nil. It never fails as a whole; per-recipient
// failures are logged and reported.
func (n *Notifier) Notify(ctx context.Context, message string, recipient *model.User, qos QoS) NotificationReport {
	if recipient != nil {
		outcome := n.notifyOne(ctx, recipient.ID, message, qos, NotifyDirect)
		return NotificationReport{Mode: NotifyDirect, Outcomes: []RecipientOutcome{outcome}}
	}
	return n.broadcast(ctx, message, qos)
}

func (n *Notifier) broadcast(ctx context.Context, message string, qos QoS) NotificationReport {
	report := NotificationReport{Mode: NotifyBroadcast}

	users, err := n.audience.ListActiveUsers(ctx)
	if err != nil {
		n.logger.Errorf("Failed to load broadcast audience: %v", err)
		report.Err = err
		return report
	}
	if len(users) == 0 {
		n.logger.Warnf("Broadcast skipped: no active users")
		return report
	}

	width := n.concurrency
	if width == 0 || width > len(users) {
		width = len(users)
	}
	mapper := iter.Mapper[model.User, RecipientOutcome]{MaxGoroutines: width}
	report.Outcomes = mapper.Map(users, func(u *model.User) RecipientOutcome {
		return n.notifyOne(ctx, u.ID, message, qos, NotifyBroadcast)
	})

	n.logger.Infof("Broadcast notification: %d sent, %d failed", report.Succeeded(), report.Failed())
	return report
}

func (n *Notifier) notifyOne(ctx context.Context, userID int64, message string, qos QoS, mode string) (outcome RecipientOutcome) {
	outcome = RecipientOutcome{UserID: userID, Topic: model.NotificationTopic(userID)}

	defer func() {
		if r := recover(); r != nil {
			outcome.Err = fmt.Errorf("publish panicked: %v", r)
		}
		n.metrics.notified(mode, outcome.OK())
		if outcome.OK() {
			n.logger.Infof("Notification sent to user %d on topic %s", userID, outcome.Topic)
		} else {
			n.logger.Errorf("Failed to send notification to user %d on topic %s: %v", userID, outcome.Topic, outcome.Err)
		}
	}()

	_, outcome.Err = n.publisher.Publish(ctx, outcome.Topic, []byte(message), qos)
	return outcome
}

// notificationText renders the notification for a stored message.
func notificationText(sender *model.User, content string) string {
	if sender == nil {
		return fmt.Sprintf("New message: %s", content)
	}
	return fmt.Sprintf("New message from %s: %s", sender.DisplayName(), content)
}
