package domain

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	StatusWaiting SessionStatus = "WAITING"
	StatusActive  SessionStatus = "ACTIVE"
	StatusClosed  SessionStatus = "CLOSED"
)

// Session is one customer-to-agent support conversation.
//
// Lifecycle: created WAITING, transitions once to ACTIVE when an agent is
// assigned, transitions once to CLOSED, immutable thereafter. Agent is nil
// exactly while no assignment has happened.
type Session struct {
	ID        uuid.UUID
	Customer  Participant
	Agent     *Participant
	Status    SessionStatus
	CreatedAt time.Time
	EndedAt   *time.Time
}

// AssignedTo reports whether the session is held by the given agent.
func (s Session) AssignedTo(agentID string) bool {
	return s.Agent != nil && s.Agent.ID == agentID
}
