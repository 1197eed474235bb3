package notify

import (
	"github.com/samber/lo"

	"helpdesk/domain"
	"helpdesk/domain/event"
)

// Router maps engine events to addressed notices. It holds no state and
// performs no IO, which keeps the fan-out rules testable as a table.
type Router struct{}

func NewRouter() Router { return Router{} }

// Routes returns every notice a single engine transition produces.
// Unknown event types produce nothing.
func (Router) Routes(e event.DomainEvent) []Notice {
	switch evt := e.(type) {
	case event.SessionCreated:
		return routeCreated(evt)
	case event.SessionAssigned:
		return routeAssigned(evt)
	case event.MessagePosted:
		return routeMessage(evt)
	case event.SessionClosed:
		return routeClosed(evt)
	case event.AgentAvailabilityChanged:
		return routeAvailability(evt)
	default:
		return nil
	}
}

// sessionAddress picks the lifecycle address of the session's customer:
// a derived topic for guests, a private queue for registered users.
func sessionAddress(customer domain.Participant) Destination {
	if customer.Guest {
		return GuestTopic(customer.Username)
	}
	return UserSessionQueue(customer.Username)
}

func routeCreated(evt event.SessionCreated) []Notice {
	s := evt.Session
	return []Notice{
		{
			Destination: sessionAddress(s.Customer),
			Payload: SessionInfo{
				SessionID:     s.ID,
				Status:        s.Status,
				QueuePosition: evt.QueuePosition,
			},
		},
		{
			Destination: QueueUpdatesTopic,
			Payload: QueueUpdate{
				Action:       ActionNewCustomer,
				SessionID:    lo.ToPtr(s.ID),
				CustomerName: s.Customer.Username,
				QueueSize:    evt.QueueSize,
			},
		},
	}
}

func routeAssigned(evt event.SessionAssigned) []Notice {
	s := evt.Session
	return []Notice{
		{
			Destination: UserSessionQueue(s.Agent.Username),
			Payload: AgentSessionUpdate{
				SessionID:    s.ID,
				Status:       s.Status,
				CustomerName: s.Customer.Username,
			},
		},
		{
			Destination: sessionAddress(s.Customer),
			Payload: CustomerSessionUpdate{
				SessionID: s.ID,
				Status:    s.Status,
				AgentName: s.Agent.Username,
			},
		},
		{
			Destination: QueueUpdatesTopic,
			Payload: QueueUpdate{
				Action:    ActionChatAccepted,
				SessionID: lo.ToPtr(s.ID),
				AgentID:   s.Agent.ID,
				QueueSize: evt.QueueSize,
			},
		},
	}
}

func routeMessage(evt event.MessagePosted) []Notice {
	m := evt.Message
	s := evt.Session
	payload := MessageNotice{
		ID:        m.ID,
		SessionID: m.SessionID,
		Sender: SenderInfo{
			ID:       m.Sender.ID,
			Username: m.Sender.Username,
			Role:     m.Sender.Role,
			Guest:    m.Sender.Guest,
		},
		Content:   m.Content,
		Timestamp: m.Timestamp,
		Type:      m.Type,
	}

	customerDest := UserMessagesQueue(s.Customer.Username)
	if s.Customer.Guest {
		customerDest = SessionMessagesTopic(s.ID)
	}
	notices := []Notice{{Destination: customerDest, Payload: payload}}

	if s.Agent != nil {
		notices = append(notices, Notice{
			Destination: UserMessagesQueue(s.Agent.Username),
			Payload:     payload,
		})
	}
	return notices
}

func routeClosed(evt event.SessionClosed) []Notice {
	s := evt.Session
	notices := []Notice{
		{
			Destination: sessionAddress(s.Customer),
			Payload: SessionEnded{
				SessionID:  s.ID,
				Status:     s.Status,
				Message:    farewellText,
				RedirectTo: "/",
			},
		},
	}

	if s.Agent != nil {
		notices = append(notices,
			Notice{
				Destination: UserSessionQueue(s.Agent.Username),
				Payload: SessionEnded{
					SessionID: s.ID,
					Status:    s.Status,
					Message:   sessionEndedText,
					Action:    ActionRemoveFromActive,
				},
			},
			Notice{
				Destination: QueueUpdatesTopic,
				Payload: QueueUpdate{
					Action:    ActionAgentAvailable,
					QueueSize: evt.QueueSize,
				},
			},
		)
	}
	return notices
}

func routeAvailability(evt event.AgentAvailabilityChanged) []Notice {
	action := ActionAgentUnavailable
	if evt.Agent.Available {
		action = ActionAgentAvailable
	}
	return []Notice{{
		Destination: QueueUpdatesTopic,
		Payload: QueueUpdate{
			Action:    action,
			AgentID:   evt.Agent.ID,
			QueueSize: evt.QueueSize,
		},
	}}
}
