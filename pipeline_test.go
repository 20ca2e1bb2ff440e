package relay_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	relay "github.com/coregx/brokerrelay"
	"github.com/coregx/brokerrelay/adapters/memory"
	"github.com/coregx/brokerrelay/model"
)

type pipelineFixture struct {
	pipeline  *relay.Pipeline
	publisher *fakePublisher
	repos     *memory.Repositories
	store     *relay.MessageStore
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	logger := &relay.NoopLogger{}
	repos := memory.NewRepositories()

	dir, err := relay.NewDirectory(repos.Topic, repos.User, repos.Subscription, repos.Message, logger)
	require.NoError(t, err)
	store, err := relay.NewMessageStore(repos.Message, logger)
	require.NoError(t, err)

	pub := &fakePublisher{}
	notifier := newTestNotifier(t, pub, dir)
	p, err := relay.NewPipeline(dir, store, notifier, relay.AtLeastOnce, logger, nil)
	require.NoError(t, err)

	return &pipelineFixture{pipeline: p, publisher: pub, repos: repos, store: store}
}

func (f *pipelineFixture) stored(t *testing.T) []model.Message {
	t.Helper()
	msgs, err := f.store.List(context.Background(), relay.MessageFilter{})
	require.NoError(t, err)
	return msgs
}

func TestNewPipeline_RequiresDependencies(t *testing.T) {
	_, err := relay.NewPipeline(nil, nil, nil, relay.AtMostOnce, &relay.NoopLogger{}, nil)
	assert.True(t, relay.HasCode(err, relay.ErrCodeConfiguration))
}

func TestNewPipeline_RejectsInvalidQoS(t *testing.T) {
	logger := &relay.NoopLogger{}
	repos := memory.NewRepositories()
	dir, err := relay.NewDirectory(repos.Topic, repos.User, repos.Subscription, repos.Message, logger)
	require.NoError(t, err)
	store, err := relay.NewMessageStore(repos.Message, logger)
	require.NoError(t, err)

	_, err = relay.NewPipeline(dir, store, newTestNotifier(t, &fakePublisher{}, dir), relay.QoS(7), logger, nil)
	assert.True(t, relay.HasCode(err, relay.ErrCodeConfiguration))
}

func TestPipeline_Decode(t *testing.T) {
	f := newPipelineFixture(t)

	msg, ok := f.pipeline.Decode(relay.Delivery{Seq: 3, Topic: "t", Payload: []byte(`{"sender":"12","receiver":null,"message":"x"}`)})
	require.True(t, ok)
	assert.Equal(t, uint64(3), msg.Seq)
	assert.Equal(t, int64(12), msg.Payload.Sender.ID)
	assert.False(t, msg.Payload.Receiver.Valid)
	assert.Equal(t, "x", msg.Payload.Message)

	for _, raw := range []string{"", "[1,2]", "{broken", "\xc3\x28", `{}`, `{"sender": 1}`} {
		_, ok := f.pipeline.Decode(relay.Delivery{Topic: "t", Payload: []byte(raw)})
		assert.False(t, ok, "payload %q", raw)
	}
}

func TestPipeline_HandleDirectMessage(t *testing.T) {
	f := newPipelineFixture(t)
	sender := f.repos.User.Add(model.User{Username: "s", FirstName: "Sam", IsActive: true})
	receiver := f.repos.User.Add(model.User{Username: "r", IsActive: true})

	f.pipeline.Handle(context.Background(), "dm/1",
		[]byte(fmt.Sprintf(`{"sender": %d, "receiver": %d, "message": "ping"}`, sender.ID, receiver.ID)))

	msgs := f.stored(t)
	require.Len(t, msgs, 1)
	assert.Equal(t, "ping", msgs[0].Content)
	assert.Equal(t, []string{model.NotificationTopic(receiver.ID)}, f.publisher.topics)
}

func TestPipeline_HandleMalformedPayload(t *testing.T) {
	f := newPipelineFixture(t)
	f.repos.User.Add(model.User{Username: "r", IsActive: true})

	for _, raw := range []string{"garbage", `{}`, `{"foo": 1}`, `{"sender": 1, "receiver": 2}`} {
		f.pipeline.Handle(context.Background(), "dm/1", []byte(raw))
	}

	assert.Empty(t, f.stored(t))
	assert.Empty(t, f.publisher.topics)
}

func TestPipeline_HandleMissingReceiverBroadcasts(t *testing.T) {
	f := newPipelineFixture(t)
	a := f.repos.User.Add(model.User{Username: "a", IsActive: true})
	b := f.repos.User.Add(model.User{Username: "b", IsActive: true})

	f.pipeline.Handle(context.Background(), "room/1", []byte(`{"sender": "not-a-number", "message": "hi all"}`))

	msgs := f.stored(t)
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].SenderID.Valid)
	assert.False(t, msgs[0].ReceiverID.Valid)
	assert.ElementsMatch(t, []string{model.NotificationTopic(a.ID), model.NotificationTopic(b.ID)}, f.publisher.topics)
}
