// Package queue defines the account events published to the message broker
// and the publishers that deliver them.
package queue

import "time"

// AccountRegisteredQueue is the durable queue that receives
// AccountRegisteredEvent messages.
const AccountRegisteredQueue = "account.registered"

// AccountRegisteredEvent is published after a user account has been
// created.  It carries enough for downstream consumers (welcome mail,
// analytics) to act without querying the users table.  It never carries
// credentials.
type AccountRegisteredEvent struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	FullName     string `json:"full_name"`
	RegisteredAt string `json:"registered_at"`
}

// NewAccountRegisteredEvent builds the event for a freshly created user.
func NewAccountRegisteredEvent(userID, email, fullName string, at time.Time) AccountRegisteredEvent {
	return AccountRegisteredEvent{
		UserID:       userID,
		Email:        email,
		FullName:     fullName,
		RegisteredAt: at.UTC().Format(time.RFC3339),
	}
}
