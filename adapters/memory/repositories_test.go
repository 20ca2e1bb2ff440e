package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	relay "github.com/coregx/brokerrelay"
	"github.com/coregx/brokerrelay/model"
)

func TestTopicRepository(t *testing.T) {
	repos := NewRepositories()
	ctx := context.Background()

	b, err := repos.Topic.Save(ctx, model.NewTopic("b"))
	require.NoError(t, err)
	a, err := repos.Topic.Save(ctx, model.NewTopic("a"))
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	_, err = repos.Topic.Save(ctx, model.NewTopic("a"))
	assert.True(t, relay.HasCode(err, relay.ErrCodeDatabase), "names are unique")

	b.Deactivate()
	_, err = repos.Topic.Save(ctx, b)
	require.NoError(t, err)

	active, err := repos.Topic.FindActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "a", active[0].Name)

	page, err := repos.Topic.List(ctx, relay.Page{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, a.ID, page[0].ID)

	empty, err := repos.Topic.List(ctx, relay.Page{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, repos.Topic.Delete(ctx, a))
	_, err = repos.Topic.GetByName(ctx, "a")
	assert.True(t, relay.IsNoData(err))
	_, err = repos.Topic.Load(ctx, a.ID)
	assert.True(t, relay.IsNoData(err))
}

func TestUserRepository(t *testing.T) {
	repos := NewRepositories()
	ctx := context.Background()

	seeded := repos.User.Add(model.User{ID: 40, Username: "seeded", IsActive: true})
	next := repos.User.Add(model.User{Username: "next"})
	assert.Equal(t, int64(40), seeded.ID)
	assert.Equal(t, int64(41), next.ID)

	loaded, err := repos.User.Load(ctx, 40)
	require.NoError(t, err)
	assert.Equal(t, "seeded", loaded.Username)

	active, err := repos.User.FindActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.User{seeded}, active)

	_, err = repos.User.Load(ctx, 7)
	assert.True(t, relay.IsNoData(err))
}

func TestSubscriptionRepository(t *testing.T) {
	repos := NewRepositories()
	ctx := context.Background()

	sub, err := repos.Subscription.Save(ctx, model.NewSubscription(1, 10))
	require.NoError(t, err)
	_, err = repos.Subscription.Save(ctx, model.NewSubscription(1, 10))
	assert.Error(t, err, "one row per user and topic")
	_, err = repos.Subscription.Save(ctx, model.NewSubscription(2, 10))
	require.NoError(t, err)

	found, err := repos.Subscription.FindByUserAndTopic(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, found.ID)

	byTopic, err := repos.Subscription.FindByTopic(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, byTopic, 2)

	require.NoError(t, repos.Subscription.DetachTopic(ctx, 10))
	byTopic, err = repos.Subscription.FindByTopic(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, byTopic)

	byUser, err := repos.Subscription.FindByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.False(t, byUser[0].TopicID.Valid)

	require.NoError(t, repos.Subscription.Delete(ctx, sub))
	_, err = repos.Subscription.Load(ctx, sub.ID)
	assert.True(t, relay.IsNoData(err))
}

func TestMessageRepository(t *testing.T) {
	repos := NewRepositories()
	ctx := context.Background()
	sender := model.User{ID: 5}

	for i := 0; i < 3; i++ {
		_, err := repos.Message.Save(ctx, model.NewMessage(1, "m", &sender, nil))
		require.NoError(t, err)
	}
	last, err := repos.Message.Save(ctx, model.NewMessage(2, "other", nil, nil))
	require.NoError(t, err)

	count, err := repos.Message.CountByTopic(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	all, err := repos.Message.List(ctx, relay.MessageFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, last.ID, all[0].ID, "newest first")

	bySender, err := repos.Message.List(ctx, relay.MessageFilter{SenderID: 5, Page: relay.Page{Limit: 2}})
	require.NoError(t, err)
	assert.Len(t, bySender, 2)

	byReceiver, err := repos.Message.List(ctx, relay.MessageFilter{ReceiverID: 5})
	require.NoError(t, err)
	assert.Empty(t, byReceiver)
}
