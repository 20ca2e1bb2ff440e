// Package model contains the domain models of the broker relay: topics, users,
// subscriptions, messages and the inbound wire payload.
package model

// tablePrefix is the default prefix of every relay table.
const tablePrefix = "relay_"

// NotificationTopicPrefix is the fixed prefix of per-user notification topics.
// Subscribers rely on the exact "notification/<userID>" form.
const NotificationTopicPrefix = "notification/"
