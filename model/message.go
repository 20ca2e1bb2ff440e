package model

import (
	"database/sql"
	"time"
)

// Message is a relayed message persisted for a topic.
//
// The relay only ever appends messages; sender and receiver are optional so
// that system and broadcast messages can be stored.
type Message struct {
	ID         int64         `json:"id" db:"id"`
	TopicID    int64         `json:"topicID" db:"topic_id"`
	Content    string        `json:"content" db:"content"`
	SenderID   sql.NullInt64 `json:"senderID" db:"sender_id"`
	ReceiverID sql.NullInt64 `json:"receiverID" db:"receiver_id"`
	CreatedAt  time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time     `json:"updatedAt" db:"updated_at"`
}

// TableName returns the database table name for Message.
func (t Message) TableName() string {
	return tablePrefix + "message"
}

// NewMessage creates a message on topicID. A nil sender or receiver is stored as NULL.
func NewMessage(topicID int64, content string, sender, receiver *User) Message {
	now := time.Now()
	return Message{
		ID:         0,
		TopicID:    topicID,
		Content:    content,
		SenderID:   userRef(sender),
		ReceiverID: userRef(receiver),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func userRef(u *User) sql.NullInt64 {
	if u == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: u.ID, Valid: true}
}
