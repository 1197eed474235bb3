// This file defines Message records and related rules.
// Messages are immutable once created and validated by the domain.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageText   MessageType = "TEXT"
	MessageSystem MessageType = "SYSTEM"
)

// Message represents an immutable chat entry inside a session.
// TEXT messages come from participants; SYSTEM messages are produced
// by the engine itself, e.g. when an agent joins.
type Message struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	Sender    Participant
	Content   string
	Timestamp time.Time
	Type      MessageType
}
