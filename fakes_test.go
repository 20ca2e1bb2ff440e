package relay_test

import (
	"context"
	"sync"
	"time"

	relay "github.com/coregx/brokerrelay"
)

type publishCall struct {
	Topic   string
	Payload string
	QoS     relay.QoS
}

// fakeBroker is an in-process BrokerClient. Deliveries are pushed with deliver
// and a session drop is simulated with lose.
type fakeBroker struct {
	mu           sync.Mutex
	connectCode  relay.ReasonCode
	connectErr   error
	connectDelay time.Duration
	subscribeErr error
	publishErr   map[string]error

	connects    int
	handler     relay.MessageHandler
	lost        func(error)
	subscribes  [][]relay.TopicFilter
	published   []publishCall
	disconnects int
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{publishErr: make(map[string]error)}
}

func (b *fakeBroker) Connect(ctx context.Context, opts relay.ConnectOptions) (relay.ReasonCode, error) {
	b.mu.Lock()
	delay := b.connectDelay
	b.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.connects++
	b.lost = opts.OnConnectionLost
	return b.connectCode, b.connectErr
}

func (b *fakeBroker) StartLoop(handler relay.MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = handler
	return nil
}

func (b *fakeBroker) Subscribe(_ context.Context, filters []relay.TopicFilter) (relay.ReasonCode, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribes = append(b.subscribes, append([]relay.TopicFilter(nil), filters...))
	return 0, b.subscribeErr
}

func (b *fakeBroker) Publish(_ context.Context, topic string, payload []byte, qos relay.QoS) (relay.ReasonCode, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.publishErr[topic]; err != nil {
		return 0, err
	}
	b.published = append(b.published, publishCall{Topic: topic, Payload: string(payload), QoS: qos})
	return 0, nil
}

func (b *fakeBroker) Disconnect(_ time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnects++
	b.handler = nil
}

func (b *fakeBroker) deliver(topic, payload string) {
	b.mu.Lock()
	h := b.handler
	b.mu.Unlock()
	if h != nil {
		h(topic, []byte(payload))
	}
}

func (b *fakeBroker) lose(err error) {
	b.mu.Lock()
	lost := b.lost
	b.mu.Unlock()
	if lost != nil {
		lost(err)
	}
}

func (b *fakeBroker) subscribeCalls() [][]relay.TopicFilter {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]relay.TopicFilter(nil), b.subscribes...)
}

func (b *fakeBroker) publishes() []publishCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]publishCall(nil), b.published...)
}

func (b *fakeBroker) loopStarted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handler != nil
}

// fakeSession records subscribe and publish requests made on a live session.
type fakeSession struct {
	mu         sync.Mutex
	code       relay.ReasonCode
	err        error
	subscribes [][]relay.TopicFilter
	published  []publishCall
}

func (s *fakeSession) Publish(_ context.Context, topic string, payload []byte, qos relay.QoS) (relay.ReasonCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, publishCall{Topic: topic, Payload: string(payload), QoS: qos})
	return s.code, s.err
}

func (s *fakeSession) Subscribe(_ context.Context, filters []relay.TopicFilter) (relay.ReasonCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribes = append(s.subscribes, filters)
	return s.code, s.err
}
