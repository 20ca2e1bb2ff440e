package relay

import (
	"context"
	"fmt"

	"github.com/coregx/brokerrelay/model"
)

// payloadLogLimit caps how much of a raw payload is written to logs.
const payloadLogLimit = 128

// InboundMessage is a delivery whose payload decoded successfully.
type InboundMessage struct {
	Delivery
	Payload model.InboundPayload
}

// Pipeline turns inbound deliveries into stored messages and notifications.
//
// For each delivery, in order: decode the payload, get or create the topic,
// resolve sender and receiver, append the message, then notify the receiver
// or broadcast when there is none. Unknown users are stored as null
// references; the message is still persisted. Errors are logged and counted,
// never returned, so one bad delivery cannot stall the ones behind it.
type Pipeline struct {
	directory *Directory
	store     *MessageStore
	notifier  *Notifier
	logger    Logger
	metrics   *Metrics
	qos       QoS
}

// NewPipeline wires the pipeline stages together. Notifications are sent at qos.
func NewPipeline(directory *Directory, store *MessageStore, notifier *Notifier, qos QoS, logger Logger, metrics *Metrics) (*Pipeline, error) {
	if directory == nil {
		return nil, NewError(ErrCodeConfiguration, "Directory is required")
	}
	if store == nil {
		return nil, NewError(ErrCodeConfiguration, "MessageStore is required")
	}
	if notifier == nil {
		return nil, NewError(ErrCodeConfiguration, "Notifier is required")
	}
	if !qos.Valid() {
		return nil, NewError(ErrCodeConfiguration, fmt.Sprintf("unsupported notification QoS %d", qos))
	}
	if logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required")
	}

	return &Pipeline{
		directory: directory,
		store:     store,
		notifier:  notifier,
		logger:    withComponent(logger, "pipeline"),
		metrics:   metrics,
		qos:       qos,
	}, nil
}

// Decode implements DeliveryProcessor. Malformed payloads are logged and dropped.
func (p *Pipeline) Decode(d Delivery) (InboundMessage, bool) {
	p.metrics.delivered()

	payload, err := model.DecodePayload(d.Payload)
	if err != nil {
		p.metrics.decodeFailed()
		decodeErr := NewErrorWithCause(ErrCodePayloadDecode, "dropping delivery", err)
		p.logger.Warnf("%v (topic=%s, payload=%q)", decodeErr, d.Topic, model.Truncate(d.Payload, payloadLogLimit))
		return InboundMessage{}, false
	}

	return InboundMessage{Delivery: d, Payload: payload}, true
}

// Process implements DeliveryProcessor.
func (p *Pipeline) Process(ctx context.Context, msg InboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			p.metrics.pipelineFailed()
			p.logger.Errorf("Panic while processing delivery %d (topic=%s, payload=%q): %v",
				msg.Seq, msg.Topic, model.Truncate(msg.Delivery.Payload, payloadLogLimit), r)
		}
	}()

	if err := p.process(ctx, msg); err != nil {
		p.metrics.pipelineFailed()
		p.logger.Errorf("Failed to process delivery %d (topic=%s, payload=%q): %v",
			msg.Seq, msg.Topic, model.Truncate(msg.Delivery.Payload, payloadLogLimit), err)
	}
}

// Handle runs every stage for one delivery on the calling goroutine.
func (p *Pipeline) Handle(ctx context.Context, topic string, payload []byte) {
	msg, ok := p.Decode(Delivery{Topic: topic, Payload: payload})
	if !ok {
		return
	}
	p.Process(ctx, msg)
}

func (p *Pipeline) process(ctx context.Context, msg InboundMessage) error {
	topic, err := p.directory.GetOrCreateTopic(ctx, msg.Topic)
	if err != nil {
		return err
	}

	sender := p.resolve(ctx, "sender", msg.Payload.Sender)
	receiver := p.resolve(ctx, "receiver", msg.Payload.Receiver)

	stored, err := p.store.Append(ctx, topic, msg.Payload.Message, sender, receiver)
	if err != nil {
		return err
	}
	p.metrics.messagePersisted()
	p.logger.Infof("Message %d stored on topic %s", stored.ID, topic.Name)

	report := p.notifier.Notify(ctx, notificationText(sender, stored.Content), receiver, p.qos)
	if report.Err != nil || report.Failed() > 0 {
		p.logger.Warnf("Message %d notification incomplete: %d sent, %d failed",
			stored.ID, report.Succeeded(), report.Failed())
	}
	return nil
}

// resolve looks up a user reference. Lookup failures degrade to an absent user.
func (p *Pipeline) resolve(ctx context.Context, role string, ref model.UserRef) *model.User {
	user, err := p.directory.ResolveUser(ctx, ref)
	if err != nil {
		p.logger.Warnf("Could not resolve %s %s, storing without it: %v", role, ref, err)
		return nil
	}
	return user
}
