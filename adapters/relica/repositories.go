package relica

import (
	"database/sql"

	relay "github.com/coregx/brokerrelay"
)

// Repositories holds all repository implementations.
type Repositories struct {
	Topic        relay.TopicRepository
	User         relay.UserRepository
	Subscription relay.SubscriptionRepository
	Message      relay.MessageRepository
}

// NewRepositories creates all repository implementations using Relica.
//
// The db parameter should be an *sql.DB connected to MySQL, PostgreSQL, or SQLite.
// The driverName should be "mysql", "postgres", or "sqlite3".
// Tables use the "relay_" prefix.
func NewRepositories(db *sql.DB, driverName string) *Repositories {
	return NewRepositoriesWithPrefix(db, driverName, DefaultTablePrefix)
}

// NewRepositoriesWithPrefix creates all repository implementations with a custom table prefix.
func NewRepositoriesWithPrefix(db *sql.DB, driverName, prefix string) *Repositories {
	return &Repositories{
		Topic:        NewTopicRepositoryWithPrefix(db, driverName, prefix),
		User:         NewUserRepositoryWithPrefix(db, driverName, prefix),
		Subscription: NewSubscriptionRepositoryWithPrefix(db, driverName, prefix),
		Message:      NewMessageRepositoryWithPrefix(db, driverName, prefix),
	}
}
