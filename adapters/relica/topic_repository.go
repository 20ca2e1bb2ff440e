//nolint:dupl // Repository pattern requires similar implementations for different types
package relica

import (
	"context"
	"database/sql"
	"errors"

	"github.com/coregx/relica"

	relay "github.com/coregx/brokerrelay"
	"github.com/coregx/brokerrelay/model"
)

// DefaultTablePrefix is the prefix of every relay table.
const DefaultTablePrefix = "relay_"

// defaultPageSize applies when a list query carries no limit.
const defaultPageSize = 100

// TopicRepository implements relay.TopicRepository using Relica.
type TopicRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewTopicRepository creates a new TopicRepository with default table prefix.
func NewTopicRepository(sqlDB *sql.DB, driverName string) *TopicRepository {
	return &TopicRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: DefaultTablePrefix}
}

// NewTopicRepositoryWithPrefix creates a new TopicRepository with custom table prefix.
func NewTopicRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *TopicRepository {
	return &TopicRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: prefix}
}

func (r *TopicRepository) tableName() string {
	return r.tablePrefix + "topic"
}

// Load retrieves a topic by ID.
func (r *TopicRepository) Load(ctx context.Context, id int64) (model.Topic, error) {
	var topic model.Topic
	err := r.db.WithContext(ctx).Select("*").From(r.tableName()).Where("id = ?", id).One(&topic)
	if errors.Is(err, sql.ErrNoRows) {
		return topic, relay.ErrNoData
	}
	if err != nil {
		return topic, relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to load topic", err)
	}
	return topic, nil
}

// Save creates or updates a topic. The unique index on name rejects duplicates.
func (r *TopicRepository) Save(ctx context.Context, m model.Topic) (model.Topic, error) {
	if m.ID == 0 {
		err := r.db.WithContext(ctx).Model(&m).Table(r.tableName()).Insert()
		if err != nil {
			return m, relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to insert topic", err)
		}
		return m, nil
	}

	err := r.db.WithContext(ctx).Model(&m).Table(r.tableName()).Update()
	if err != nil {
		return m, relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to update topic", err)
	}
	return m, nil
}

// Delete removes a topic.
func (r *TopicRepository) Delete(ctx context.Context, m model.Topic) error {
	err := r.db.WithContext(ctx).Model(&m).Table(r.tableName()).Delete()
	if err != nil {
		return relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to delete topic", err)
	}
	return nil
}

// GetByName retrieves a topic by its broker name.
func (r *TopicRepository) GetByName(ctx context.Context, name string) (model.Topic, error) {
	var topic model.Topic
	err := r.db.WithContext(ctx).Select("*").From(r.tableName()).Where("name = ?", name).One(&topic)
	if errors.Is(err, sql.ErrNoRows) {
		return topic, relay.ErrNoData
	}
	if err != nil {
		return topic, relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to find topic by name", err)
	}
	return topic, nil
}

// FindActive retrieves all active topics ordered by name.
func (r *TopicRepository) FindActive(ctx context.Context) ([]model.Topic, error) {
	var topics []model.Topic
	err := r.db.WithContext(ctx).Select("*").From(r.tableName()).
		Where("is_active = ?", true).
		OrderBy("name ASC").
		All(&topics)
	if err != nil {
		return nil, relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to find active topics", err)
	}
	if topics == nil {
		topics = []model.Topic{}
	}
	return topics, nil
}

// List retrieves one page of topics ordered by ID.
func (r *TopicRepository) List(ctx context.Context, page relay.Page) ([]model.Topic, error) {
	var topics []model.Topic
	err := r.db.WithContext(ctx).Select("*").From(r.tableName()).
		OrderBy("id ASC").
		Limit(pageLimit(page)).
		Offset(int64(page.Offset)).
		All(&topics)
	if err != nil {
		return nil, relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to list topics", err)
	}
	if topics == nil {
		topics = []model.Topic{}
	}
	return topics, nil
}

func pageLimit(page relay.Page) int64 {
	if page.Limit <= 0 {
		return defaultPageSize
	}
	return int64(page.Limit)
}
