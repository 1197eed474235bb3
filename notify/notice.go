package notify

import (
	"time"

	"github.com/google/uuid"

	"helpdesk/domain"
)

// Notice is one addressed outbound event. The payload is already the wire
// shape; transports only add their own framing.
type Notice struct {
	Destination Destination `json:"destination"`
	Payload     any         `json:"payload"`
}

// Queue update actions broadcast to all agents.
const (
	ActionNewCustomer      = "NEW_CUSTOMER"
	ActionChatAccepted     = "CHAT_ACCEPTED"
	ActionAgentAvailable   = "AGENT_AVAILABLE"
	ActionAgentUnavailable = "AGENT_UNAVAILABLE"
	ActionRemoveFromActive = "REMOVE_FROM_ACTIVE"
)

const (
	farewellText     = "Thank you for using our chat service!"
	sessionEndedText = "Chat session ended"
)

// SessionInfo is sent to the creator of a session right after joining.
type SessionInfo struct {
	SessionID     uuid.UUID            `json:"sessionId"`
	Status        domain.SessionStatus `json:"status"`
	QueuePosition int                  `json:"queuePosition"`
}

// AgentSessionUpdate tells an agent about a session newly assigned to them.
type AgentSessionUpdate struct {
	SessionID    uuid.UUID            `json:"sessionId"`
	Status       domain.SessionStatus `json:"status"`
	CustomerName string               `json:"customerName"`
}

// CustomerSessionUpdate tells a customer that an agent joined.
type CustomerSessionUpdate struct {
	SessionID uuid.UUID            `json:"sessionId"`
	Status    domain.SessionStatus `json:"status"`
	AgentName string               `json:"agentName"`
}

// SessionEnded tells a participant the conversation is over.
type SessionEnded struct {
	SessionID  uuid.UUID            `json:"sessionId"`
	Status     domain.SessionStatus `json:"status"`
	Message    string               `json:"message"`
	RedirectTo string               `json:"redirectTo,omitempty"`
	Action     string               `json:"action,omitempty"`
}

// QueueUpdate is the agent-facing broadcast on topic/queue-updates.
type QueueUpdate struct {
	Action       string     `json:"action"`
	SessionID    *uuid.UUID `json:"sessionId,omitempty"`
	CustomerName string     `json:"customerName,omitempty"`
	AgentID      string     `json:"agentId,omitempty"`
	QueueSize    int        `json:"queueSize"`
}

// SenderInfo is the participant snapshot embedded in message notices.
type SenderInfo struct {
	ID       string      `json:"id"`
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
	Guest    bool        `json:"guest"`
}

// MessageNotice is the wire shape of a chat message.
type MessageNotice struct {
	ID        uuid.UUID          `json:"id"`
	SessionID uuid.UUID          `json:"sessionId"`
	Sender    SenderInfo         `json:"sender"`
	Content   string             `json:"content"`
	Timestamp time.Time          `json:"timestamp"`
	Type      domain.MessageType `json:"type"`
}
