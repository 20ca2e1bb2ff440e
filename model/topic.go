package model

import "time"

// Topic represents a named broker channel that messages are relayed through.
//
// The Name is the exact topic string used on the broker and is globally unique.
// Topics are soft-deactivated through IsActive; only active topics are subscribed
// to when the relay connects.
type Topic struct {
	ID        int64     `json:"id" db:"id"`                // Unique topic ID
	Name      string    `json:"name" db:"name"`            // Broker topic string (unique)
	IsGroup   bool      `json:"isGroup" db:"is_group"`     // Group conversation topic
	IsActive  bool      `json:"isActive" db:"is_active"`   // Only active topics are subscribed
	CreatedAt time.Time `json:"createdAt" db:"created_at"` // Topic creation time
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"` // Last modification time
}

// TableName returns the database table name for Topic.
func (t Topic) TableName() string {
	return tablePrefix + "topic"
}

// NewTopic creates a new active, non-group topic with the given broker name.
func NewTopic(name string) Topic {
	now := time.Now()
	return Topic{
		ID:        0,
		Name:      name,
		IsGroup:   false,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Deactivate marks the topic inactive so it is skipped by bulk subscription.
func (t *Topic) Deactivate() {
	t.IsActive = false
	t.UpdatedAt = time.Now()
}

// Touch refreshes the modification timestamp.
func (t *Topic) Touch() {
	t.UpdatedAt = time.Now()
}
