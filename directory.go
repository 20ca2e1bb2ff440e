package relay

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/coregx/brokerrelay/model"
)

// Directory resolves user identifiers and owns topics and subscriptions.
// It is the only writer that may create a topic implicitly (upsert on first use).
//
// Thread safety: Safe for concurrent use. Concurrent first use of the same
// topic name inside one process is collapsed into a single insert; across
// processes the repository's unique constraint keeps one row.
type Directory struct {
	topics        TopicRepository
	users         UserRepository
	subscriptions SubscriptionRepository
	messages      MessageRepository
	logger        Logger

	topicFlight singleflight.Group
}

// NewDirectory creates a Directory over the given repositories. All arguments are required.
func NewDirectory(
	topics TopicRepository,
	users UserRepository,
	subscriptions SubscriptionRepository,
	messages MessageRepository,
	logger Logger,
) (*Directory, error) {
	if topics == nil {
		return nil, NewError(ErrCodeConfiguration, "TopicRepository is required")
	}
	if users == nil {
		return nil, NewError(ErrCodeConfiguration, "UserRepository is required")
	}
	if subscriptions == nil {
		return nil, NewError(ErrCodeConfiguration, "SubscriptionRepository is required")
	}
	if messages == nil {
		return nil, NewError(ErrCodeConfiguration, "MessageRepository is required")
	}
	if logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required")
	}

	return &Directory{
		topics:        topics,
		users:         users,
		subscriptions: subscriptions,
		messages:      messages,
		logger:        withComponent(logger, "directory"),
	}, nil
}

// FindUser looks up a user by ID. A miss returns (nil, nil): absence is a
// valid result, not an error.
func (d *Directory) FindUser(ctx context.Context, id int64) (*model.User, error) {
	user, err := d.users.Load(ctx, id)
	if err != nil {
		if IsNoData(err) {
			d.logger.Warnf("User with ID %d not found", id)
			return nil, nil
		}
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to load user", err)
	}
	return &user, nil
}

// ResolveUser resolves a wire reference. Unparseable or missing references
// resolve to nil without touching the store.
func (d *Directory) ResolveUser(ctx context.Context, ref model.UserRef) (*model.User, error) {
	if !ref.Valid {
		if ref.Raw != "" {
			d.logger.Warnf("Unresolvable user reference %q", ref.Raw)
		}
		return nil, nil
	}
	return d.FindUser(ctx, ref.ID)
}

// ListActiveUsers returns every active user, the broadcast audience.
func (d *Directory) ListActiveUsers(ctx context.Context) ([]model.User, error) {
	users, err := d.users.FindActive(ctx)
	if err != nil {
		if IsNoData(err) {
			return []model.User{}, nil
		}
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to load active users", err)
	}
	return users, nil
}

// GetOrCreateTopic returns the topic with the given broker name, creating it
// with defaults if it does not exist yet. Calling it twice with the same name
// yields the same topic and at most one stored record.
func (d *Directory) GetOrCreateTopic(ctx context.Context, name string) (model.Topic, error) {
	if strings.TrimSpace(name) == "" {
		return model.Topic{}, NewError(ErrCodeValidation, "topic name is required")
	}

	v, err, _ := d.topicFlight.Do(name, func() (interface{}, error) {
		return d.getOrCreateTopic(ctx, name)
	})
	if err != nil {
		return model.Topic{}, err
	}
	return v.(model.Topic), nil
}

func (d *Directory) getOrCreateTopic(ctx context.Context, name string) (model.Topic, error) {
	topic, err := d.topics.GetByName(ctx, name)
	if err == nil {
		return topic, nil
	}
	if !IsNoData(err) {
		return topic, NewErrorWithCause(ErrCodeDatabase, "failed to load topic", err)
	}

	topic, err = d.topics.Save(ctx, model.NewTopic(name))
	if err == nil {
		d.logger.Infof("Topic created on first use: id=%d, name=%s", topic.ID, name)
		return topic, nil
	}

	// Another writer inserted the same name first; the unique constraint kept its row.
	existing, lookupErr := d.topics.GetByName(ctx, name)
	if lookupErr == nil {
		d.logger.Debugf("Topic %s created concurrently, using id=%d", name, existing.ID)
		return existing, nil
	}
	return model.Topic{}, NewErrorWithCause(ErrCodeDatabase, "failed to create topic", err)
}

// ListActiveTopics returns the broker names of all active topics.
func (d *Directory) ListActiveTopics(ctx context.Context) ([]string, error) {
	topics, err := d.topics.FindActive(ctx)
	if err != nil {
		if IsNoData(err) {
			return []string{}, nil
		}
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to load active topics", err)
	}

	names := make([]string, 0, len(topics))
	for _, t := range topics {
		names = append(names, t.Name)
	}
	return names, nil
}

// CreateTopicRequest represents an explicit topic creation.
type CreateTopicRequest struct {
	Name    string // Broker topic name (required, unique)
	IsGroup bool   // Group conversation topic
}

// CreateTopic creates a topic explicitly. A duplicate name is a validation error.
func (d *Directory) CreateTopic(ctx context.Context, req CreateTopicRequest) (model.Topic, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return model.Topic{}, NewError(ErrCodeValidation, "topic name is required")
	}

	if _, err := d.topics.GetByName(ctx, name); err == nil {
		return model.Topic{}, NewError(ErrCodeValidation, fmt.Sprintf("topic already exists: %s", name))
	} else if !IsNoData(err) {
		return model.Topic{}, NewErrorWithCause(ErrCodeDatabase, "failed to check topic name", err)
	}

	topic := model.NewTopic(name)
	topic.IsGroup = req.IsGroup
	topic, err := d.topics.Save(ctx, topic)
	if err != nil {
		return model.Topic{}, NewErrorWithCause(ErrCodeDatabase, "failed to save topic", err)
	}

	d.logger.Infof("Topic created: id=%d, name=%s, group=%t", topic.ID, topic.Name, topic.IsGroup)
	return topic, nil
}

// GetTopic retrieves a topic by ID.
func (d *Directory) GetTopic(ctx context.Context, id int64) (model.Topic, error) {
	topic, err := d.topics.Load(ctx, id)
	if err != nil {
		if IsNoData(err) {
			return topic, NewErrorWithCause(ErrCodeNoData, fmt.Sprintf("topic not found: %d", id), err)
		}
		return topic, NewErrorWithCause(ErrCodeDatabase, "failed to load topic", err)
	}
	return topic, nil
}

// ListTopics returns a page of topics.
func (d *Directory) ListTopics(ctx context.Context, page Page) ([]model.Topic, error) {
	topics, err := d.topics.List(ctx, page)
	if err != nil {
		if IsNoData(err) {
			return []model.Topic{}, nil
		}
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to list topics", err)
	}
	return topics, nil
}

// TopicUpdate holds a partial topic update; nil fields are left unchanged.
type TopicUpdate struct {
	Name     *string
	IsGroup  *bool
	IsActive *bool
}

// UpdateTopic applies a partial update to a topic.
func (d *Directory) UpdateTopic(ctx context.Context, id int64, upd TopicUpdate) (model.Topic, error) {
	topic, err := d.GetTopic(ctx, id)
	if err != nil {
		return topic, err
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return topic, NewError(ErrCodeValidation, "topic name cannot be empty")
		}
		if name != topic.Name {
			if _, err := d.topics.GetByName(ctx, name); err == nil {
				return topic, NewError(ErrCodeValidation, fmt.Sprintf("topic already exists: %s", name))
			}
		}
		topic.Name = name
	}
	if upd.IsGroup != nil {
		topic.IsGroup = *upd.IsGroup
	}
	if upd.IsActive != nil {
		topic.IsActive = *upd.IsActive
	}
	topic.Touch()

	topic, err = d.topics.Save(ctx, topic)
	if err != nil {
		return topic, NewErrorWithCause(ErrCodeDatabase, "failed to save topic", err)
	}
	return topic, nil
}

// DeactivateTopic soft-deletes a topic: it keeps its messages and
// subscriptions but is no longer subscribed on connect.
func (d *Directory) DeactivateTopic(ctx context.Context, id int64) (model.Topic, error) {
	topic, err := d.GetTopic(ctx, id)
	if err != nil {
		return topic, err
	}
	if !topic.IsActive {
		d.logger.Warnf("Topic already inactive: id=%d", id)
		return topic, nil
	}

	topic.Deactivate()
	topic, err = d.topics.Save(ctx, topic)
	if err != nil {
		return topic, NewErrorWithCause(ErrCodeDatabase, "failed to save topic", err)
	}

	d.logger.Infof("Topic deactivated: id=%d, name=%s", topic.ID, topic.Name)
	return topic, nil
}

// DeleteTopic hard-deletes a topic. It refuses while messages still reference
// the topic; subscriptions are detached rather than removed.
func (d *Directory) DeleteTopic(ctx context.Context, id int64) error {
	topic, err := d.GetTopic(ctx, id)
	if err != nil {
		return err
	}

	count, err := d.messages.CountByTopic(ctx, id)
	if err != nil {
		return NewErrorWithCause(ErrCodeDatabase, "failed to count topic messages", err)
	}
	if count > 0 {
		return NewError(ErrCodeValidation,
			fmt.Sprintf("topic %d still has %d messages; deactivate it instead", id, count))
	}

	if err := d.subscriptions.DetachTopic(ctx, id); err != nil {
		return NewErrorWithCause(ErrCodeDatabase, "failed to detach subscriptions", err)
	}
	if err := d.topics.Delete(ctx, topic); err != nil {
		return NewErrorWithCause(ErrCodeDatabase, "failed to delete topic", err)
	}

	d.logger.Infof("Topic deleted: id=%d, name=%s", topic.ID, topic.Name)
	return nil
}
