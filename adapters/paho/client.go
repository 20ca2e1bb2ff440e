// Package paho implements relay.BrokerClient on top of the Eclipse Paho MQTT client.
package paho

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	relay "github.com/coregx/brokerrelay"
)

// subscribeFailure is the SUBACK code for a rejected filter.
const subscribeFailure relay.ReasonCode = 0x80

// Client adapts a paho client to relay.BrokerClient. A new paho client is
// created on every Connect, so one Client can be reconnected after a loss.
//
// Paho's own reconnect logic is disabled; the relay decides when to reconnect.
type Client struct {
	mu      sync.RWMutex
	client  mqtt.Client
	handler relay.MessageHandler

	awaitAcks bool

	// newClient is swapped in tests.
	newClient func(*mqtt.ClientOptions) mqtt.Client
}

// Option configures a Client.
type Option func(*Client)

// WithPublishAcks makes Publish at QoS 1 and 2 wait for the broker's
// acknowledgement instead of returning once the message is queued.
func WithPublishAcks() Option {
	return func(c *Client) {
		c.awaitAcks = true
	}
}

// NewClient creates an unconnected Client.
func NewClient(opts ...Option) *Client {
	c := &Client{newClient: mqtt.NewClient}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ relay.BrokerClient = (*Client)(nil)

// Connect implements relay.BrokerClient.
func (c *Client) Connect(ctx context.Context, opts relay.ConnectOptions) (relay.ReasonCode, error) {
	client := c.newClient(c.clientOptions(opts))

	token := client.Connect()
	if err := wait(ctx, token); err != nil {
		go func() {
			<-token.Done()
			if token.Error() == nil {
				client.Disconnect(0)
			}
		}()
		return 0, err
	}

	if ct, ok := token.(*mqtt.ConnectToken); ok && ct.ReturnCode() != 0 {
		return relay.ReasonCode(ct.ReturnCode()), nil
	}
	if err := token.Error(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.client = client
	c.mu.Unlock()
	return 0, nil
}

func (c *Client) clientOptions(opts relay.ConnectOptions) *mqtt.ClientOptions {
	o := mqtt.NewClientOptions().
		AddBroker(brokerURL(opts.Endpoint)).
		SetClientID(opts.ClientID).
		SetUsername(opts.Credentials.Username).
		SetPassword(opts.Credentials.Password).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetOrderMatters(true).
		SetDefaultPublishHandler(func(_ mqtt.Client, msg mqtt.Message) {
			c.deliver(msg)
		})

	if opts.KeepAlive > 0 {
		o.SetKeepAlive(opts.KeepAlive)
	}
	if opts.OnConnectionLost != nil {
		lost := opts.OnConnectionLost
		o.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			lost(err)
		})
	}
	return o
}

// StartLoop implements relay.BrokerClient. Paho runs its own delivery
// goroutine; with OrderMatters set it calls the handler one message at a time.
func (c *Client) StartLoop(handler relay.MessageHandler) error {
	if handler == nil {
		return errors.New("paho: nil message handler")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return errNotConnected
	}
	c.handler = handler
	return nil
}

func (c *Client) deliver(msg mqtt.Message) {
	c.mu.RLock()
	handler := c.handler
	c.mu.RUnlock()
	if handler != nil {
		handler(msg.Topic(), msg.Payload())
	}
}

// Subscribe implements relay.BrokerClient.
func (c *Client) Subscribe(ctx context.Context, filters []relay.TopicFilter) (relay.ReasonCode, error) {
	client, err := c.current()
	if err != nil {
		return 0, err
	}

	request := make(map[string]byte, len(filters))
	for _, f := range filters {
		request[f.Topic] = byte(f.QoS)
	}

	token := client.SubscribeMultiple(request, nil)
	if err := wait(ctx, token); err != nil {
		return 0, err
	}
	if err := token.Error(); err != nil {
		return 0, err
	}

	if st, ok := token.(*mqtt.SubscribeToken); ok {
		return worstGrant(st.Result()), nil
	}
	return 0, nil
}

// Publish implements relay.BrokerClient. A QoS 0 message succeeds once paho
// has written it. At QoS 1 and 2 it succeeds once paho has queued it for
// delivery; the handshake completes in the background unless the Client was
// built WithPublishAcks.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte, qos relay.QoS) (relay.ReasonCode, error) {
	client, err := c.current()
	if err != nil {
		return 0, err
	}

	token := client.Publish(topic, byte(qos), false, payload)
	if qos == relay.AtMostOnce || c.awaitAcks {
		if err := wait(ctx, token); err != nil {
			return 0, err
		}
		return 0, token.Error()
	}

	select {
	case <-token.Done():
		return 0, token.Error()
	default:
		return 0, nil
	}
}

// Disconnect implements relay.BrokerClient.
func (c *Client) Disconnect(quiesce time.Duration) {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.handler = nil
	c.mu.Unlock()

	if client != nil {
		client.Disconnect(uint(quiesce.Milliseconds()))
	}
}

var errNotConnected = errors.New("paho: not connected")

func (c *Client) current() (mqtt.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.client == nil || !c.client.IsConnectionOpen() {
		return nil, errNotConnected
	}
	return c.client, nil
}

// wait blocks until token completes or ctx is done.
func wait(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("paho: %w", ctx.Err())
	}
}

func brokerURL(e relay.Endpoint) string {
	return fmt.Sprintf("tcp://%s", e)
}

// worstGrant folds per-filter SUBACK grants into one code: the failure code
// if any filter was rejected, success otherwise.
func worstGrant(grants map[string]byte) relay.ReasonCode {
	for _, g := range grants {
		if relay.ReasonCode(g) >= subscribeFailure {
			return subscribeFailure
		}
	}
	return 0
}
