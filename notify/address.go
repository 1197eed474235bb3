// Package notify turns session engine transitions into addressed outbound
// notices. It never mutates engine state: routing is a pure function of
// the event, and delivery is someone else's job.
package notify

import (
	"fmt"

	"github.com/google/uuid"

	"helpdesk/domain"
)

// Destination is a logical outbound address, mirroring the broker-style
// layout the clients subscribe to. Registered participants get private
// per-user queues; guests get derived topics because they have no stable
// identity to key a private queue on.
type Destination string

const QueueUpdatesTopic Destination = "topic/queue-updates"

// UserSessionQueue addresses session lifecycle notices for a registered
// participant.
func UserSessionQueue(username string) Destination {
	return Destination(fmt.Sprintf("user/%s/queue/session", username))
}

// UserMessagesQueue addresses chat messages for a registered participant.
func UserMessagesQueue(username string) Destination {
	return Destination(fmt.Sprintf("user/%s/queue/messages", username))
}

// GuestTopic addresses session lifecycle notices for a guest, keyed by the
// slug of the display name.
func GuestTopic(nickname string) Destination {
	return Destination("topic/guest/" + domain.GuestSlug(nickname))
}

// SessionMessagesTopic addresses chat messages for a guest conversation.
// It is keyed by session id, so two guests sharing a nickname never read
// each other's messages.
func SessionMessagesTopic(sessionID uuid.UUID) Destination {
	return Destination(fmt.Sprintf("topic/session/%s/messages", sessionID))
}
