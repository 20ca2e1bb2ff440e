package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMessage_TableName(t *testing.T) {
	msg := Message{}
	assert.Equal(t, "relay_message", msg.TableName())
}

func TestNewMessage(t *testing.T) {
	sender := &User{ID: 1}
	receiver := &User{ID: 2}

	msg := NewMessage(456, "hello", sender, receiver)

	assert.Equal(t, int64(0), msg.ID)
	assert.Equal(t, int64(456), msg.TopicID)
	assert.Equal(t, "hello", msg.Content)
	assert.True(t, msg.SenderID.Valid)
	assert.Equal(t, int64(1), msg.SenderID.Int64)
	assert.True(t, msg.ReceiverID.Valid)
	assert.Equal(t, int64(2), msg.ReceiverID.Int64)
	assert.WithinDuration(t, time.Now(), msg.CreatedAt, time.Second)
}

func TestNewMessage_AbsentParticipants(t *testing.T) {
	msg := NewMessage(1, "system notice", nil, nil)

	assert.False(t, msg.SenderID.Valid)
	assert.False(t, msg.ReceiverID.Valid)
}
