// Package event defines the transition events emitted by the session
// engine. Each event carries the snapshots the notification router needs,
// so routing stays a pure function of the event itself.
package event

import (
	"helpdesk/domain"
)

type Kind string

const (
	KindSessionCreated    Kind = "SESSION_CREATED"
	KindSessionAssigned   Kind = "SESSION_ASSIGNED"
	KindMessagePosted     Kind = "MESSAGE_POSTED"
	KindSessionClosed     Kind = "SESSION_CLOSED"
	KindAgentAvailability Kind = "AGENT_AVAILABILITY"
)

type DomainEvent interface {
	Kind() Kind
}

// SessionCreated fires when a customer or guest joins the queue.
type SessionCreated struct {
	Session       domain.Session
	QueuePosition int
	QueueSize     int
}

func (SessionCreated) Kind() Kind { return KindSessionCreated }

// SessionAssigned fires when an agent accepts a session or the engine
// auto-assigns one. Session.Agent is always set.
type SessionAssigned struct {
	Session   domain.Session
	QueueSize int
}

func (SessionAssigned) Kind() Kind { return KindSessionAssigned }

// MessagePosted fires for every persisted message, SYSTEM ones included.
type MessagePosted struct {
	Message domain.Message
	Session domain.Session
}

func (MessagePosted) Kind() Kind { return KindMessagePosted }

// SessionClosed fires when a session ends, whether or not an agent was
// ever assigned.
type SessionClosed struct {
	Session   domain.Session
	QueueSize int
}

func (SessionClosed) Kind() Kind { return KindSessionClosed }

// AgentAvailabilityChanged fires when an agent toggles availability or the
// engine frees an agent on close.
type AgentAvailabilityChanged struct {
	Agent     domain.Participant
	QueueSize int
}

func (AgentAvailabilityChanged) Kind() Kind { return KindAgentAvailability }
