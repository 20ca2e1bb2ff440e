// Package memory provides in-memory implementations of the relay repositories.
//
// They honor the same contracts as the Relica adapters (unique topic names,
// one subscription per user/topic pair, ErrNoData on misses) and are meant for
// tests, examples and single-process experiments. Nothing is persisted.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	relay "github.com/coregx/brokerrelay"
	"github.com/coregx/brokerrelay/model"
)

// Repositories holds all repository implementations backed by one Store.
type Repositories struct {
	Topic        *TopicRepository
	User         *UserRepository
	Subscription *SubscriptionRepository
	Message      *MessageRepository
}

// NewRepositories creates an empty in-memory store.
func NewRepositories() *Repositories {
	s := &store{
		topics:        make(map[int64]model.Topic),
		users:         make(map[int64]model.User),
		subscriptions: make(map[int64]model.Subscription),
		messages:      make(map[int64]model.Message),
	}
	return &Repositories{
		Topic:        &TopicRepository{s: s},
		User:         &UserRepository{s: s},
		Subscription: &SubscriptionRepository{s: s},
		Message:      &MessageRepository{s: s},
	}
}

type store struct {
	mu            sync.RWMutex
	nextID        int64
	topics        map[int64]model.Topic
	users         map[int64]model.User
	subscriptions map[int64]model.Subscription
	messages      map[int64]model.Message
}

func (s *store) id() int64 {
	s.nextID++
	return s.nextID
}

func page[T any](items []T, p relay.Page) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	items = items[p.Offset:]
	if p.Limit > 0 && p.Limit < len(items) {
		items = items[:p.Limit]
	}
	return items
}

// TopicRepository implements relay.TopicRepository.
type TopicRepository struct{ s *store }

// Load retrieves a topic by ID.
func (r *TopicRepository) Load(_ context.Context, id int64) (model.Topic, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.topics[id]
	if !ok {
		return model.Topic{}, relay.ErrNoData
	}
	return t, nil
}

// Save creates or updates a topic. Names are unique.
func (r *TopicRepository) Save(_ context.Context, m model.Topic) (model.Topic, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, t := range r.s.topics {
		if t.Name == m.Name && id != m.ID {
			return m, relay.NewError(relay.ErrCodeDatabase, fmt.Sprintf("duplicate topic name %q", m.Name))
		}
	}
	if m.ID == 0 {
		m.ID = r.s.id()
	} else if _, ok := r.s.topics[m.ID]; !ok {
		return m, relay.ErrNoData
	}
	r.s.topics[m.ID] = m
	return m, nil
}

// Delete removes a topic.
func (r *TopicRepository) Delete(_ context.Context, m model.Topic) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.topics, m.ID)
	return nil
}

// GetByName retrieves a topic by broker name.
func (r *TopicRepository) GetByName(_ context.Context, name string) (model.Topic, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, t := range r.s.topics {
		if t.Name == name {
			return t, nil
		}
	}
	return model.Topic{}, relay.ErrNoData
}

// FindActive retrieves all active topics ordered by name.
func (r *TopicRepository) FindActive(_ context.Context) ([]model.Topic, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	topics := []model.Topic{}
	for _, t := range r.s.topics {
		if t.IsActive {
			topics = append(topics, t)
		}
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].Name < topics[j].Name })
	return topics, nil
}

// List retrieves one page of topics ordered by ID.
func (r *TopicRepository) List(_ context.Context, p relay.Page) ([]model.Topic, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	topics := make([]model.Topic, 0, len(r.s.topics))
	for _, t := range r.s.topics {
		topics = append(topics, t)
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].ID < topics[j].ID })
	return page(topics, p), nil
}

// UserRepository implements relay.UserRepository. Users are seeded with Add.
type UserRepository struct{ s *store }

// Add stores a user, assigning an ID when u.ID is zero.
func (r *UserRepository) Add(u model.User) model.User {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u.ID == 0 {
		u.ID = r.s.id()
	} else if u.ID > r.s.nextID {
		r.s.nextID = u.ID
	}
	r.s.users[u.ID] = u
	return u
}

// Load retrieves a user by ID.
func (r *UserRepository) Load(_ context.Context, id int64) (model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return model.User{}, relay.ErrNoData
	}
	return u, nil
}

// FindActive retrieves all active users ordered by ID.
func (r *UserRepository) FindActive(_ context.Context) ([]model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	users := []model.User{}
	for _, u := range r.s.users {
		if u.IsActive {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// SubscriptionRepository implements relay.SubscriptionRepository.
type SubscriptionRepository struct{ s *store }

// Load retrieves a subscription by ID.
func (r *SubscriptionRepository) Load(_ context.Context, id int64) (model.Subscription, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sub, ok := r.s.subscriptions[id]
	if !ok {
		return model.Subscription{}, relay.ErrNoData
	}
	return sub, nil
}

// Save creates or updates a subscription. A second row for the same
// (user, topic) pair is rejected.
func (r *SubscriptionRepository) Save(_ context.Context, m model.Subscription) (model.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if m.UserID.Valid && m.TopicID.Valid {
		for id, sub := range r.s.subscriptions {
			if id != m.ID && sub.UserID == m.UserID && sub.TopicID == m.TopicID {
				return m, relay.NewError(relay.ErrCodeDatabase, "duplicate subscription")
			}
		}
	}
	if m.ID == 0 {
		m.ID = r.s.id()
	}
	r.s.subscriptions[m.ID] = m
	return m, nil
}

// Delete removes a subscription.
func (r *SubscriptionRepository) Delete(_ context.Context, m model.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.subscriptions, m.ID)
	return nil
}

// FindByUserAndTopic retrieves the subscription linking the pair.
func (r *SubscriptionRepository) FindByUserAndTopic(_ context.Context, userID, topicID int64) (model.Subscription, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, sub := range r.s.subscriptions {
		if sub.Matches(userID, topicID) {
			return sub, nil
		}
	}
	return model.Subscription{}, relay.ErrNoData
}

// FindByUser retrieves all subscriptions of a user.
func (r *SubscriptionRepository) FindByUser(_ context.Context, userID int64) ([]model.Subscription, error) {
	return r.filter(func(sub model.Subscription) bool {
		return sub.UserID.Valid && sub.UserID.Int64 == userID
	}), nil
}

// FindByTopic retrieves all subscriptions to a topic.
func (r *SubscriptionRepository) FindByTopic(_ context.Context, topicID int64) ([]model.Subscription, error) {
	return r.filter(func(sub model.Subscription) bool {
		return sub.TopicID.Valid && sub.TopicID.Int64 == topicID
	}), nil
}

func (r *SubscriptionRepository) filter(keep func(model.Subscription) bool) []model.Subscription {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	subs := []model.Subscription{}
	for _, sub := range r.s.subscriptions {
		if keep(sub) {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })
	return subs
}

// DetachTopic clears the topic reference of every subscription to topicID.
func (r *SubscriptionRepository) DetachTopic(_ context.Context, topicID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, sub := range r.s.subscriptions {
		if sub.TopicID.Valid && sub.TopicID.Int64 == topicID {
			sub.DetachTopic()
			r.s.subscriptions[id] = sub
		}
	}
	return nil
}

// MessageRepository implements relay.MessageRepository.
type MessageRepository struct{ s *store }

// Load retrieves a message by ID.
func (r *MessageRepository) Load(_ context.Context, id int64) (model.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	msg, ok := r.s.messages[id]
	if !ok {
		return model.Message{}, relay.ErrNoData
	}
	return msg, nil
}

// Save creates or updates a message.
func (r *MessageRepository) Save(_ context.Context, m model.Message) (model.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if m.ID == 0 {
		m.ID = r.s.id()
	}
	r.s.messages[m.ID] = m
	return m, nil
}

// Delete removes a message.
func (r *MessageRepository) Delete(_ context.Context, m model.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.messages, m.ID)
	return nil
}

// List retrieves messages matching filter, newest first.
func (r *MessageRepository) List(_ context.Context, filter relay.MessageFilter) ([]model.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	msgs := []model.Message{}
	for _, msg := range r.s.messages {
		if filter.TopicID > 0 && msg.TopicID != filter.TopicID {
			continue
		}
		if filter.SenderID > 0 && (!msg.SenderID.Valid || msg.SenderID.Int64 != filter.SenderID) {
			continue
		}
		if filter.ReceiverID > 0 && (!msg.ReceiverID.Valid || msg.ReceiverID.Int64 != filter.ReceiverID) {
			continue
		}
		msgs = append(msgs, msg)
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID > msgs[j].ID })
	return page(msgs, filter.Page), nil
}

// CountByTopic returns the number of messages stored for a topic.
func (r *MessageRepository) CountByTopic(_ context.Context, topicID int64) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, msg := range r.s.messages {
		if msg.TopicID == topicID {
			n++
		}
	}
	return n, nil
}

var (
	_ relay.TopicRepository        = (*TopicRepository)(nil)
	_ relay.UserRepository         = (*UserRepository)(nil)
	_ relay.SubscriptionRepository = (*SubscriptionRepository)(nil)
	_ relay.MessageRepository      = (*MessageRepository)(nil)
)
