package relica

import (
	"context"
	"database/sql"
	"errors"

	"github.com/coregx/relica"

	relay "github.com/coregx/brokerrelay"
	"github.com/coregx/brokerrelay/model"
)

// SubscriptionRepository implements relay.SubscriptionRepository using Relica.
type SubscriptionRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewSubscriptionRepository creates a new SubscriptionRepository with default table prefix.
func NewSubscriptionRepository(sqlDB *sql.DB, driverName string) *SubscriptionRepository {
	return &SubscriptionRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: DefaultTablePrefix}
}

// NewSubscriptionRepositoryWithPrefix creates a new SubscriptionRepository with custom table prefix.
func NewSubscriptionRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *SubscriptionRepository {
	return &SubscriptionRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: prefix}
}

func (r *SubscriptionRepository) tableName() string {
	return r.tablePrefix + "subscription"
}

// Load retrieves a subscription by ID.
func (r *SubscriptionRepository) Load(ctx context.Context, id int64) (model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).Select("*").From(r.tableName()).Where("id = ?", id).One(&sub)
	if errors.Is(err, sql.ErrNoRows) {
		return sub, relay.ErrNoData
	}
	if err != nil {
		return sub, relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to load subscription", err)
	}
	return sub, nil
}

// Save creates or updates a subscription. The unique (user_id, topic_id)
// index rejects a second row for the same pair.
func (r *SubscriptionRepository) Save(ctx context.Context, m model.Subscription) (model.Subscription, error) {
	if m.ID == 0 {
		err := r.db.WithContext(ctx).Model(&m).Table(r.tableName()).Insert()
		if err != nil {
			return m, relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to insert subscription", err)
		}
		return m, nil
	}

	err := r.db.WithContext(ctx).Model(&m).Table(r.tableName()).Update()
	if err != nil {
		return m, relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to update subscription", err)
	}
	return m, nil
}

// Delete removes a subscription.
func (r *SubscriptionRepository) Delete(ctx context.Context, m model.Subscription) error {
	err := r.db.WithContext(ctx).Model(&m).Table(r.tableName()).Delete()
	if err != nil {
		return relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to delete subscription", err)
	}
	return nil
}

// FindByUserAndTopic retrieves the subscription linking userID and topicID.
func (r *SubscriptionRepository) FindByUserAndTopic(ctx context.Context, userID, topicID int64) (model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).Select("*").From(r.tableName()).
		Where("user_id = ? AND topic_id = ?", userID, topicID).
		One(&sub)
	if errors.Is(err, sql.ErrNoRows) {
		return sub, relay.ErrNoData
	}
	if err != nil {
		return sub, relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to find subscription", err)
	}
	return sub, nil
}

// FindByUser retrieves all subscriptions of a user.
func (r *SubscriptionRepository) FindByUser(ctx context.Context, userID int64) ([]model.Subscription, error) {
	return r.findBy(ctx, "user_id = ?", userID)
}

// FindByTopic retrieves all subscriptions to a topic.
func (r *SubscriptionRepository) FindByTopic(ctx context.Context, topicID int64) ([]model.Subscription, error) {
	return r.findBy(ctx, "topic_id = ?", topicID)
}

func (r *SubscriptionRepository) findBy(ctx context.Context, where string, id int64) ([]model.Subscription, error) {
	var subs []model.Subscription
	err := r.db.WithContext(ctx).Select("*").From(r.tableName()).
		Where(where, id).
		OrderBy("id ASC").
		All(&subs)
	if err != nil {
		return nil, relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to find subscriptions", err)
	}
	if subs == nil {
		subs = []model.Subscription{}
	}
	return subs, nil
}

// DetachTopic clears topic_id on every subscription to topicID.
func (r *SubscriptionRepository) DetachTopic(ctx context.Context, topicID int64) error {
	_, err := r.db.WithContext(ctx).Update(r.tableName()).
		Set(map[string]interface{}{
			"topic_id": nil,
		}).
		Where("topic_id = ?", topicID).
		WithContext(ctx).
		Execute()

	if err != nil {
		return relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to detach subscriptions from topic", err)
	}
	return nil
}
