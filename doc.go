// Package relay connects a publish/subscribe message broker to a relational
// store. It keeps the broker session alive, persists every inbound message,
// and fans notifications out to users on per-user topics.
//
// Works both as a library embedded in your application and as a standalone
// service (cmd/relay-server) with a REST API for topics, subscriptions and
// messages.
//
// # Quick Start
//
// Apply the embedded migrations and build the repositories:
//
//	db, _ := sql.Open("sqlite3", "relay.db")
//	if err := relay.Migrate(db, "sqlite3"); err != nil {
//	    log.Fatal(err)
//	}
//	repos := relica.NewRepositories(db, "sqlite3")
//
// Create the relay and connect:
//
//	r, err := relay.NewRelay(
//	    relay.WithRepositories(repos.Topic, repos.User, repos.Subscription, repos.Message),
//	    relay.WithBrokerClient(paho.NewClient()),
//	    relay.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = r.Connect(ctx, relay.Endpoint{Address: "localhost", Port: 1883},
//	    relay.Credentials{Username: "relay", Password: "secret"})
//
// Connect subscribes to every active topic once the broker accepts the
// session. Wait returns when the session drops; reconnecting is up to the
// caller (the relay-server uses retry.Strategy for that).
//
// # Message Flow
//
//  1. INBOUND
//     Broker delivery loop → Dispatcher.OnDelivered (copy + enqueue, returns)
//     → dispatcher goroutine decodes payloads in delivery order
//     → worker pool: get or create topic → resolve sender/receiver
//     → append message → notify receiver, or broadcast when there is none
//
//  2. OUTBOUND
//     Publisher.Publish → broker client outbound queue
//     Notifier.Notify → "notification/<userID>" per recipient, concurrently
//     for broadcasts, with one outcome per recipient in the report
//
// Inbound payloads are JSON objects:
//
//	{"sender": 12, "receiver": 34, "message": "hello"}
//
// Unknown or unparseable users are stored as null references. Malformed
// payloads are logged and dropped.
//
// # Database Schema
//
//	relay_topic          - Topics; name is the broker topic
//	relay_user           - Users (read-only for the relay)
//	relay_subscription   - User to topic subscriptions
//	relay_message        - Stored messages
//
// Supports MySQL, PostgreSQL and SQLite via Relica adapters.
package relay
