package relay

import (
	"context"

	"github.com/coregx/brokerrelay/model"
)

// Page limits list queries issued by the CRUD surface.
type Page struct {
	Limit  int // Maximum rows (0 = repository default)
	Offset int // Rows to skip
}

// MessageFilter narrows MessageRepository.List.
type MessageFilter struct {
	TopicID    int64 // 0 = any topic
	SenderID   int64 // 0 = any sender
	ReceiverID int64 // 0 = any receiver
	Page
}

// TopicRepository defines the persistence interface for topics.
//
// Implementations must enforce uniqueness of Topic.Name; a duplicate insert
// must fail rather than create a second row.
type TopicRepository interface {
	// Load retrieves a topic by ID.
	// Returns ErrNoData if not found.
	Load(ctx context.Context, id int64) (model.Topic, error)

	// Save creates a new topic (if ID=0) or updates an existing one.
	// Returns the saved topic with populated ID.
	Save(ctx context.Context, m model.Topic) (model.Topic, error)

	// Delete permanently removes a topic. Subscriptions pointing at it are
	// detached, not removed.
	Delete(ctx context.Context, m model.Topic) error

	// GetByName retrieves a topic by its unique broker name.
	// Returns ErrNoData if not found.
	GetByName(ctx context.Context, name string) (model.Topic, error)

	// FindActive retrieves every topic with is_active = true.
	// Returns an empty slice if none exist.
	FindActive(ctx context.Context) ([]model.Topic, error)

	// List retrieves topics ordered by ID.
	List(ctx context.Context, page Page) ([]model.Topic, error)
}

// UserRepository is a read-only view of the host identity table.
type UserRepository interface {
	// Load retrieves a user by ID.
	// Returns ErrNoData if not found.
	Load(ctx context.Context, id int64) (model.User, error)

	// FindActive retrieves every user with is_active = true.
	// Returns an empty slice if none exist.
	FindActive(ctx context.Context) ([]model.User, error)
}

// SubscriptionRepository defines the persistence interface for user/topic subscriptions.
type SubscriptionRepository interface {
	// Load retrieves a subscription by ID.
	// Returns ErrNoData if not found.
	Load(ctx context.Context, id int64) (model.Subscription, error)

	// Save creates a new subscription (if ID=0) or updates an existing one.
	// Inserting a second row for the same (user, topic) pair must fail.
	Save(ctx context.Context, m model.Subscription) (model.Subscription, error)

	// Delete permanently removes a subscription.
	Delete(ctx context.Context, m model.Subscription) error

	// FindByUserAndTopic retrieves the subscription linking the pair.
	// Returns ErrNoData if not found.
	FindByUserAndTopic(ctx context.Context, userID, topicID int64) (model.Subscription, error)

	// FindByUser retrieves all subscriptions of a user.
	FindByUser(ctx context.Context, userID int64) ([]model.Subscription, error)

	// FindByTopic retrieves all subscriptions to a topic.
	FindByTopic(ctx context.Context, topicID int64) ([]model.Subscription, error)

	// DetachTopic nulls out topic_id on every subscription to topicID.
	DetachTopic(ctx context.Context, topicID int64) error
}

// MessageRepository defines the persistence interface for relayed messages.
type MessageRepository interface {
	// Load retrieves a message by ID.
	// Returns ErrNoData if not found.
	Load(ctx context.Context, id int64) (model.Message, error)

	// Save creates a new message (if ID=0) or updates an existing one.
	// Returns the saved message with populated ID.
	Save(ctx context.Context, m model.Message) (model.Message, error)

	// Delete permanently removes a message.
	// Should only be used for administrative correction.
	Delete(ctx context.Context, m model.Message) error

	// List retrieves messages matching the filter, newest first.
	List(ctx context.Context, filter MessageFilter) ([]model.Message, error)

	// CountByTopic returns the number of messages stored for a topic.
	CountByTopic(ctx context.Context, topicID int64) (int, error)
}
