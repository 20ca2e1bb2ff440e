package relica

import (
	"context"
	"database/sql"
	"errors"

	"github.com/coregx/relica"

	relay "github.com/coregx/brokerrelay"
	"github.com/coregx/brokerrelay/model"
)

// MessageRepository implements relay.MessageRepository using Relica.
type MessageRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewMessageRepository creates a new MessageRepository with default table prefix.
func NewMessageRepository(sqlDB *sql.DB, driverName string) *MessageRepository {
	return &MessageRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: DefaultTablePrefix}
}

// NewMessageRepositoryWithPrefix creates a new MessageRepository with custom table prefix.
func NewMessageRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *MessageRepository {
	return &MessageRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: prefix}
}

func (r *MessageRepository) tableName() string {
	return r.tablePrefix + "message"
}

// Load retrieves a message by ID.
func (r *MessageRepository) Load(ctx context.Context, id int64) (model.Message, error) {
	var msg model.Message
	err := r.db.WithContext(ctx).Select("*").From(r.tableName()).Where("id = ?", id).One(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		return msg, relay.ErrNoData
	}
	if err != nil {
		return msg, relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to load message", err)
	}
	return msg, nil
}

// Save creates or updates a message.
func (r *MessageRepository) Save(ctx context.Context, m model.Message) (model.Message, error) {
	if m.ID == 0 {
		// Insert using Model() API - auto-populates ID
		err := r.db.WithContext(ctx).Model(&m).Table(r.tableName()).Insert()
		if err != nil {
			return m, relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to insert message", err)
		}
		return m, nil
	}

	err := r.db.WithContext(ctx).Model(&m).Table(r.tableName()).Update()
	if err != nil {
		return m, relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to update message", err)
	}
	return m, nil
}

// Delete removes a message.
func (r *MessageRepository) Delete(ctx context.Context, m model.Message) error {
	// Delete using Model() API - auto WHERE id = ?
	err := r.db.WithContext(ctx).Model(&m).Table(r.tableName()).Delete()
	if err != nil {
		return relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to delete message", err)
	}
	return nil
}

// List retrieves messages matching filter, newest first.
func (r *MessageRepository) List(ctx context.Context, filter relay.MessageFilter) ([]model.Message, error) {
	q := r.db.WithContext(ctx).Select("*").From(r.tableName())
	if filter.TopicID > 0 {
		q = q.Where("topic_id = ?", filter.TopicID)
	}
	if filter.SenderID > 0 {
		q = q.Where("sender_id = ?", filter.SenderID)
	}
	if filter.ReceiverID > 0 {
		q = q.Where("receiver_id = ?", filter.ReceiverID)
	}

	var messages []model.Message
	err := q.OrderBy("id DESC").
		Limit(pageLimit(filter.Page)).
		Offset(int64(filter.Offset)).
		All(&messages)
	if err != nil {
		return nil, relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to list messages", err)
	}
	if messages == nil {
		messages = []model.Message{}
	}
	return messages, nil
}

// CountByTopic returns the number of messages stored for a topic.
func (r *MessageRepository) CountByTopic(ctx context.Context, topicID int64) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Select("COUNT(*)").From(r.tableName()).Where("topic_id = ?", topicID).One(&count)
	if err != nil {
		return 0, relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to count messages", err)
	}
	return int(count), nil
}
