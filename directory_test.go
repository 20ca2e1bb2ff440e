package relay_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	relay "github.com/coregx/brokerrelay"
	"github.com/coregx/brokerrelay/adapters/memory"
	"github.com/coregx/brokerrelay/model"
)

func newTestDirectory(t *testing.T) (*relay.Directory, *memory.Repositories) {
	t.Helper()
	repos := memory.NewRepositories()
	dir, err := relay.NewDirectory(repos.Topic, repos.User, repos.Subscription, repos.Message, &relay.NoopLogger{})
	require.NoError(t, err)
	return dir, repos
}

func TestDirectory_GetOrCreateTopicIsIdempotent(t *testing.T) {
	dir, repos := newTestDirectory(t)
	ctx := context.Background()

	first, err := dir.GetOrCreateTopic(ctx, "chat/general")
	require.NoError(t, err)
	assert.True(t, first.IsActive)
	assert.False(t, first.IsGroup)

	second, err := dir.GetOrCreateTopic(ctx, "chat/general")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	all, err := repos.Topic.List(ctx, relay.Page{})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = dir.GetOrCreateTopic(ctx, "  ")
	assert.True(t, relay.HasCode(err, relay.ErrCodeValidation))
}

func TestDirectory_GetOrCreateTopicConcurrent(t *testing.T) {
	dir, repos := newTestDirectory(t)
	ctx := context.Background()

	const n = 32
	ids := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			topic, err := dir.GetOrCreateTopic(ctx, "chat/race")
			assert.NoError(t, err)
			ids[i] = topic.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	all, err := repos.Topic.List(ctx, relay.Page{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDirectory_CreateTopicRejectsDuplicate(t *testing.T) {
	dir, _ := newTestDirectory(t)
	ctx := context.Background()

	topic, err := dir.CreateTopic(ctx, relay.CreateTopicRequest{Name: "team/ops", IsGroup: true})
	require.NoError(t, err)
	assert.True(t, topic.IsGroup)

	_, err = dir.CreateTopic(ctx, relay.CreateTopicRequest{Name: "team/ops"})
	assert.True(t, relay.HasCode(err, relay.ErrCodeValidation))
}

func TestDirectory_UpdateAndDeactivateTopic(t *testing.T) {
	dir, _ := newTestDirectory(t)
	ctx := context.Background()

	a, err := dir.CreateTopic(ctx, relay.CreateTopicRequest{Name: "a"})
	require.NoError(t, err)
	_, err = dir.CreateTopic(ctx, relay.CreateTopicRequest{Name: "b"})
	require.NoError(t, err)

	name := "b"
	_, err = dir.UpdateTopic(ctx, a.ID, relay.TopicUpdate{Name: &name})
	assert.True(t, relay.HasCode(err, relay.ErrCodeValidation), "rename onto an existing name")

	name = "a2"
	group := true
	updated, err := dir.UpdateTopic(ctx, a.ID, relay.TopicUpdate{Name: &name, IsGroup: &group})
	require.NoError(t, err)
	assert.Equal(t, "a2", updated.Name)
	assert.True(t, updated.IsGroup)

	deactivated, err := dir.DeactivateTopic(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)

	active, err := dir.ListActiveTopics(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, active)

	_, err = dir.GetTopic(ctx, 999)
	assert.True(t, relay.IsNoData(err))
}

func TestDirectory_DeleteTopic(t *testing.T) {
	dir, repos := newTestDirectory(t)
	ctx := context.Background()
	alice := repos.User.Add(model.User{Username: "alice", IsActive: true})

	busy, err := dir.CreateTopic(ctx, relay.CreateTopicRequest{Name: "busy"})
	require.NoError(t, err)
	_, err = repos.Message.Save(ctx, model.NewMessage(busy.ID, "kept", nil, nil))
	require.NoError(t, err)

	err = dir.DeleteTopic(ctx, busy.ID)
	assert.True(t, relay.HasCode(err, relay.ErrCodeValidation), "topics with messages cannot be deleted")

	idle, err := dir.CreateTopic(ctx, relay.CreateTopicRequest{Name: "idle"})
	require.NoError(t, err)
	sub, err := dir.Subscribe(ctx, alice.ID, idle.ID)
	require.NoError(t, err)

	require.NoError(t, dir.DeleteTopic(ctx, idle.ID))

	_, err = dir.GetTopic(ctx, idle.ID)
	assert.True(t, relay.IsNoData(err))
	detached, err := dir.GetSubscription(ctx, sub.ID)
	require.NoError(t, err, "subscriptions survive topic deletion")
	assert.False(t, detached.TopicID.Valid)
	assert.Equal(t, alice.ID, detached.UserID.Int64)
}

func TestDirectory_UserResolution(t *testing.T) {
	dir, repos := newTestDirectory(t)
	ctx := context.Background()
	alice := repos.User.Add(model.User{Username: "alice", IsActive: true})
	repos.User.Add(model.User{Username: "gone", IsActive: false})

	found, err := dir.FindUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", found.Username)

	missing, err := dir.FindUser(ctx, 404)
	assert.NoError(t, err)
	assert.Nil(t, missing)

	unresolvable, err := dir.ResolveUser(ctx, model.UserRef{Raw: "bob"})
	assert.NoError(t, err)
	assert.Nil(t, unresolvable)

	resolved, err := dir.ResolveUser(ctx, model.UserRef{ID: alice.ID, Valid: true})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, resolved.ID)

	active, err := dir.ListActiveUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestDirectory_Subscriptions(t *testing.T) {
	dir, repos := newTestDirectory(t)
	ctx := context.Background()
	alice := repos.User.Add(model.User{Username: "alice", IsActive: true})
	bob := repos.User.Add(model.User{Username: "bob", IsActive: true})
	topic, err := dir.CreateTopic(ctx, relay.CreateTopicRequest{Name: "news"})
	require.NoError(t, err)

	first, err := dir.Subscribe(ctx, alice.ID, topic.ID)
	require.NoError(t, err)
	again, err := dir.Subscribe(ctx, alice.ID, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID, "one subscription per user and topic")

	_, err = dir.Subscribe(ctx, 999, topic.ID)
	assert.True(t, relay.HasCode(err, relay.ErrCodeValidation))
	_, err = dir.Subscribe(ctx, alice.ID, 999)
	assert.True(t, relay.HasCode(err, relay.ErrCodeValidation))

	result, err := dir.BulkSubscribe(ctx, topic.ID, []int64{alice.ID, bob.ID, 999})
	require.NoError(t, err)
	assert.Len(t, result.Subscribed, 2)
	assert.Contains(t, result.Failed, int64(999))

	subs, err := dir.SubscribersByTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Len(t, subs, 2)

	mine, err := dir.SubscriptionsByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	require.NoError(t, dir.Unsubscribe(ctx, mine[0].ID))
	_, err = dir.GetSubscription(ctx, mine[0].ID)
	assert.True(t, relay.IsNoData(err))
}
