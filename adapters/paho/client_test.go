package paho

import (
	"context"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	relay "github.com/coregx/brokerrelay"
)

func TestBrokerURL(t *testing.T) {
	assert.Equal(t, "tcp://localhost:1883", brokerURL(relay.Endpoint{Address: "localhost", Port: 1883}))
}

func TestWorstGrant(t *testing.T) {
	tests := []struct {
		name   string
		grants map[string]byte
		want   relay.ReasonCode
	}{
		{"empty", map[string]byte{}, 0},
		{"all granted", map[string]byte{"a": 0, "b": 1, "c": 2}, 0},
		{"one rejected", map[string]byte{"a": 0, "b": 0x80}, subscribeFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, worstGrant(tt.grants))
		})
	}
}

func TestClient_NotConnected(t *testing.T) {
	c := NewClient()
	ctx := context.Background()

	_, err := c.Publish(ctx, "chat", []byte("x"), relay.AtMostOnce)
	assert.ErrorIs(t, err, errNotConnected)

	_, err = c.Subscribe(ctx, []relay.TopicFilter{{Topic: "chat"}})
	assert.ErrorIs(t, err, errNotConnected)

	err = c.StartLoop(func(string, []byte) {})
	assert.ErrorIs(t, err, errNotConnected)

	// Disconnect without a session is a no-op.
	c.Disconnect(0)
}

func TestClient_StartLoopRejectsNilHandler(t *testing.T) {
	c := NewClient()
	require.Error(t, c.StartLoop(nil))
}

func TestClient_ClientOptions(t *testing.T) {
	c := NewClient()
	lost := false
	opts := c.clientOptions(relay.ConnectOptions{
		Endpoint:         relay.Endpoint{Address: "broker", Port: 8883},
		Credentials:      relay.Credentials{Username: "relay", Password: "secret"},
		ClientID:         "relay-1",
		OnConnectionLost: func(error) { lost = true },
	})

	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "broker:8883", opts.Servers[0].Host)
	assert.Equal(t, "relay-1", opts.ClientID)
	assert.Equal(t, "relay", opts.Username)
	assert.Equal(t, "secret", opts.Password)
	assert.False(t, opts.AutoReconnect)
	assert.True(t, opts.Order)

	opts.OnConnectionLost(nil, assert.AnError)
	assert.True(t, lost)
}

type stubToken struct {
	done chan struct{}
	err  error
}

func pendingToken() *stubToken {
	return &stubToken{done: make(chan struct{})}
}

func completedToken(err error) *stubToken {
	t := &stubToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *stubToken) Wait() bool { <-t.done; return true }

func (t *stubToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *stubToken) Done() <-chan struct{} { return t.done }
func (t *stubToken) Error() error          { return t.err }

// stubMQTT is an open paho client whose publishes return token.
type stubMQTT struct {
	mqtt.Client
	token *stubToken
}

func (s *stubMQTT) IsConnectionOpen() bool { return true }

func (s *stubMQTT) Publish(string, byte, bool, interface{}) mqtt.Token {
	return s.token
}

func TestClient_Publish(t *testing.T) {
	refused := errors.New("outbound queue closed")

	tests := []struct {
		name    string
		opts    []Option
		qos     relay.QoS
		token   *stubToken
		wantErr error
		timeout bool
	}{
		{name: "qos 0 written", qos: relay.AtMostOnce, token: completedToken(nil)},
		{name: "qos 0 not yet written", qos: relay.AtMostOnce, token: pendingToken(), timeout: true},
		{name: "qos 1 queued", qos: relay.AtLeastOnce, token: pendingToken()},
		{name: "qos 2 queued", qos: relay.ExactlyOnce, token: pendingToken()},
		{name: "qos 1 refused", qos: relay.AtLeastOnce, token: completedToken(refused), wantErr: refused},
		{name: "qos 1 awaiting ack", opts: []Option{WithPublishAcks()}, qos: relay.AtLeastOnce, token: pendingToken(), timeout: true},
		{name: "qos 1 acknowledged", opts: []Option{WithPublishAcks()}, qos: relay.AtLeastOnce, token: completedToken(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(tt.opts...)
			c.client = &stubMQTT{token: tt.token}

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			_, err := c.Publish(ctx, "notification/1", []byte("hi"), tt.qos)
			switch {
			case tt.timeout:
				assert.ErrorIs(t, err, context.DeadlineExceeded)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				assert.NoError(t, err)
			}
		})
	}
}
