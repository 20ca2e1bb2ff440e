// Package relica provides repository implementations using the Relica query builder.
//
// This package implements every relay repository interface:
//   - TopicRepository
//   - UserRepository (read-only)
//   - SubscriptionRepository
//   - MessageRepository
//
// Example usage:
//
//	db, err := sql.Open("mysql", "user:pass@tcp(localhost:3306)/relay?parseTime=true")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// driverName should be "mysql", "postgres", or "sqlite3"
//	repos := relica.NewRepositories(db, "mysql")
//
//	r, err := relay.NewRelay(
//	    relay.WithRepositories(repos.Topic, repos.User, repos.Subscription, repos.Message),
//	    relay.WithBrokerClient(client),
//	    relay.WithLogger(logger),
//	)
package relica
