package model

import (
	"database/sql"
	"time"
)

// Subscription records that a user follows a topic.
//
// Each (user, topic) pair has at most one subscription. Removing a user or a
// topic nulls out the corresponding reference instead of deleting the row, so
// the subscription history survives.
type Subscription struct {
	ID           int64         `json:"id" db:"id"`
	UserID       sql.NullInt64 `json:"userID" db:"user_id"`
	TopicID      sql.NullInt64 `json:"topicID" db:"topic_id"`
	SubscribedAt time.Time     `json:"subscribedAt" db:"subscribed_at"`
	UpdatedAt    time.Time     `json:"updatedAt" db:"updated_at"`
}

// TableName returns the database table name for Subscription.
func (m Subscription) TableName() string {
	return tablePrefix + "subscription"
}

// NewSubscription creates a subscription of userID to topicID.
func NewSubscription(userID, topicID int64) Subscription {
	now := time.Now()
	return Subscription{
		ID:           0,
		UserID:       sql.NullInt64{Int64: userID, Valid: true},
		TopicID:      sql.NullInt64{Int64: topicID, Valid: true},
		SubscribedAt: now,
		UpdatedAt:    now,
	}
}

// Matches reports whether the subscription links exactly userID and topicID.
func (m Subscription) Matches(userID, topicID int64) bool {
	return m.UserID.Valid && m.UserID.Int64 == userID &&
		m.TopicID.Valid && m.TopicID.Int64 == topicID
}

// DetachUser clears the user reference, keeping the row.
func (m *Subscription) DetachUser() {
	m.UserID = sql.NullInt64{}
	m.UpdatedAt = time.Now()
}

// DetachTopic clears the topic reference, keeping the row.
func (m *Subscription) DetachTopic() {
	m.TopicID = sql.NullInt64{}
	m.UpdatedAt = time.Now()
}
