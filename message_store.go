package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/coregx/brokerrelay/model"
)

// MessageStore appends relayed messages and serves administrative reads and
// corrections. It is the only writer of message records on the relay path.
type MessageStore struct {
	messages MessageRepository
	logger   Logger
}

// NewMessageStore creates a MessageStore. Both arguments are required.
func NewMessageStore(messages MessageRepository, logger Logger) (*MessageStore, error) {
	if messages == nil {
		return nil, NewError(ErrCodeConfiguration, "MessageRepository is required")
	}
	if logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required")
	}
	return &MessageStore{messages: messages, logger: withComponent(logger, "messages")}, nil
}

// Append persists a new message on topic. Sender and receiver may be nil.
func (s *MessageStore) Append(ctx context.Context, topic model.Topic, content string, sender, receiver *model.User) (model.Message, error) {
	if topic.ID == 0 {
		return model.Message{}, NewError(ErrCodeValidation, "message topic is required")
	}

	msg, err := s.messages.Save(ctx, model.NewMessage(topic.ID, content, sender, receiver))
	if err != nil {
		return msg, NewErrorWithCause(ErrCodeDatabase, "failed to save message", err)
	}

	s.logger.Debugf("Message appended: id=%d, topic=%s", msg.ID, topic.Name)
	return msg, nil
}

// Get retrieves a message by ID.
func (s *MessageStore) Get(ctx context.Context, id int64) (model.Message, error) {
	msg, err := s.messages.Load(ctx, id)
	if err != nil {
		if IsNoData(err) {
			return msg, NewErrorWithCause(ErrCodeNoData, fmt.Sprintf("message not found: %d", id), err)
		}
		return msg, NewErrorWithCause(ErrCodeDatabase, "failed to load message", err)
	}
	return msg, nil
}

// List returns messages matching filter, newest first.
func (s *MessageStore) List(ctx context.Context, filter MessageFilter) ([]model.Message, error) {
	msgs, err := s.messages.List(ctx, filter)
	if err != nil {
		if IsNoData(err) {
			return []model.Message{}, nil
		}
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to list messages", err)
	}
	return msgs, nil
}

// Correct replaces the content of a stored message. This is the administrative
// correction path; the relay itself never rewrites messages.
func (s *MessageStore) Correct(ctx context.Context, id int64, content string) (model.Message, error) {
	msg, err := s.Get(ctx, id)
	if err != nil {
		return msg, err
	}

	msg.Content = content
	msg.UpdatedAt = time.Now()
	msg, err = s.messages.Save(ctx, msg)
	if err != nil {
		return msg, NewErrorWithCause(ErrCodeDatabase, "failed to update message", err)
	}

	s.logger.Infof("Message corrected: id=%d", id)
	return msg, nil
}

// Delete removes a message.
func (s *MessageStore) Delete(ctx context.Context, id int64) error {
	msg, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.messages.Delete(ctx, msg); err != nil {
		return NewErrorWithCause(ErrCodeDatabase, "failed to delete message", err)
	}

	s.logger.Infof("Message deleted: id=%d", id)
	return nil
}
