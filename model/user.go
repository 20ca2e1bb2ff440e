package model

import (
	"strconv"
	"time"
)

// User is a read-only view of the host system's identity table.
// The relay resolves message senders and receivers against it and uses the
// active set as the broadcast audience.
type User struct {
	ID        int64     `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	FirstName string    `json:"firstName" db:"first_name"`
	LastName  string    `json:"lastName" db:"last_name"`
	Email     string    `json:"email" db:"email"`
	IsActive  bool      `json:"isActive" db:"is_active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// TableName returns the database table name for User.
func (u User) TableName() string {
	return tablePrefix + "user"
}

// NotificationTopic returns the per-user notification topic, "notification/<id>".
func (u User) NotificationTopic() string {
	return NotificationTopic(u.ID)
}

// DisplayName returns the first name, falling back to the username.
func (u User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Username
}

// NotificationTopic derives the notification topic for a user ID.
func NotificationTopic(userID int64) string {
	return NotificationTopicPrefix + strconv.FormatInt(userID, 10)
}
