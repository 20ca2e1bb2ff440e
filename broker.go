package relay

import (
	"context"
	"fmt"
	"time"
)

// QoS is the broker delivery-guarantee level of a publish or subscribe.
type QoS byte

// Quality of service levels. Their semantics belong to the transport.
const (
	AtMostOnce  QoS = 0 // fire-and-forget
	AtLeastOnce QoS = 1 // acknowledged delivery
	ExactlyOnce QoS = 2 // four-way handshake
)

// Valid reports whether q is one of the three defined levels.
func (q QoS) Valid() bool {
	return q <= ExactlyOnce
}

// ReasonCode is the broker's return code for connect, subscribe and publish.
// Zero always means success.
type ReasonCode byte

// Success reports whether the code is the zero success code.
func (c ReasonCode) Success() bool {
	return c == 0
}

// String renders the code the way brokers document it.
func (c ReasonCode) String() string {
	return fmt.Sprintf("0x%02x", byte(c))
}

// Endpoint addresses a broker.
type Endpoint struct {
	Address string
	Port    int
}

// String returns "address:port".
func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%d", e.Address, e.Port)
}

// Credentials are the username/password pair sent in the broker handshake.
type Credentials struct {
	Username string
	Password string
}

// ConnectOptions carries everything a BrokerClient needs to open a session.
type ConnectOptions struct {
	Endpoint    Endpoint
	Credentials Credentials
	ClientID    string
	KeepAlive   time.Duration

	// OnConnectionLost is invoked by the client when an established session
	// drops. It may be called from any goroutine.
	OnConnectionLost func(err error)
}

// TopicFilter is one entry of a subscribe request.
type TopicFilter struct {
	Topic string
	QoS   QoS
}

// MessageHandler receives inbound deliveries. The client invokes it from its
// own delivery loop, strictly one call at a time in delivery order, so it must
// return promptly.
type MessageHandler func(topic string, payload []byte)

// BrokerClient is the wire-protocol capability the relay is built on.
// Implementations speak the protocol; the relay owns lifecycle and policy.
//
// The relay never calls Connect and Disconnect concurrently; Subscribe and
// Publish may be called from many goroutines once connected.
type BrokerClient interface {
	// Connect performs the credential handshake and blocks until the broker
	// acknowledges or the transport fails. A non-nil error is a transport
	// failure; otherwise the returned code is the broker's acknowledgement.
	Connect(ctx context.Context, opts ConnectOptions) (ReasonCode, error)

	// StartLoop begins the delivery loop, routing every inbound message to handler.
	StartLoop(handler MessageHandler) error

	// Subscribe subscribes to all filters in one request and returns the
	// worst per-filter code.
	Subscribe(ctx context.Context, filters []TopicFilter) (ReasonCode, error)

	// Publish hands one message to the client's outbound queue.
	Publish(ctx context.Context, topic string, payload []byte, qos QoS) (ReasonCode, error)

	// Disconnect stops the delivery loop and closes the session.
	Disconnect(quiesce time.Duration)
}
