package relay_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	relay "github.com/coregx/brokerrelay"
)

type staticTopics struct {
	names []string
	err   error
}

func (s staticTopics) ListActiveTopics(context.Context) ([]string, error) {
	return s.names, s.err
}

func newTestSubscriptionManager(t *testing.T, topics relay.TopicLister, session relay.Session) *relay.SubscriptionManager {
	t.Helper()
	sm, err := relay.NewSubscriptionManager(
		relay.WithSubscriptionManagerTopics(topics),
		relay.WithSubscriptionManagerSession(session),
		relay.WithSubscriptionManagerLogger(&relay.NoopLogger{}),
	)
	require.NoError(t, err)
	return sm
}

func TestNewSubscriptionManager_Validation(t *testing.T) {
	_, err := relay.NewSubscriptionManager(
		relay.WithSubscriptionManagerSession(&fakeSession{}),
		relay.WithSubscriptionManagerLogger(&relay.NoopLogger{}),
	)
	assert.True(t, relay.HasCode(err, relay.ErrCodeConfiguration))

	_, err = relay.NewSubscriptionManager(relay.WithSubscriptionManagerTimeout(0))
	assert.True(t, relay.HasCode(err, relay.ErrCodeConfiguration))
}

func TestSubscriptionManager_SubscribeAllSendsOneBatch(t *testing.T) {
	session := &fakeSession{}
	sm := newTestSubscriptionManager(t, staticTopics{names: []string{"a", "b", "c"}}, session)

	n, err := sm.SubscribeAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, session.subscribes, 1)
	assert.Equal(t, []relay.TopicFilter{
		{Topic: "a", QoS: relay.AtMostOnce},
		{Topic: "b", QoS: relay.AtMostOnce},
		{Topic: "c", QoS: relay.AtMostOnce},
	}, session.subscribes[0])
}

func TestSubscriptionManager_NoActiveTopics(t *testing.T) {
	session := &fakeSession{}
	sm := newTestSubscriptionManager(t, staticTopics{names: []string{}}, session)

	n, err := sm.SubscribeAll(context.Background())

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, session.subscribes)
}

func TestSubscriptionManager_Failures(t *testing.T) {
	tests := []struct {
		name    string
		topics  staticTopics
		session *fakeSession
	}{
		{"lister error", staticTopics{err: errors.New("db down")}, &fakeSession{}},
		{"transport error", staticTopics{names: []string{"a"}}, &fakeSession{err: errors.New("closed")}},
		{"broker refused", staticTopics{names: []string{"a"}}, &fakeSession{code: 0x80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := newTestSubscriptionManager(t, tt.topics, tt.session)

			n, err := sm.SubscribeAll(context.Background())

			assert.Zero(t, n)
			assert.True(t, relay.HasCode(err, relay.ErrCodeSubscription))
		})
	}
}

func TestSubscriptionManager_SubscribeTopic(t *testing.T) {
	session := &fakeSession{}
	sm := newTestSubscriptionManager(t, staticTopics{}, session)

	require.NoError(t, sm.SubscribeTopic(context.Background(), "chat/x"))
	assert.Equal(t, [][]relay.TopicFilter{{{Topic: "chat/x", QoS: relay.AtMostOnce}}}, session.subscribes)

	err := sm.SubscribeTopic(context.Background(), "")
	assert.True(t, relay.HasCode(err, relay.ErrCodeValidation))
}
