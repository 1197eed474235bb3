package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"helpdesk/auth"
	"helpdesk/domain"
	"helpdesk/notify"
	"helpdesk/sink"
)

// Inbound logical destinations, the WebSocket equivalent of routes.
const (
	destJoin         = "chat.join"
	destSendMessage  = "chat.sendMessage"
	destLeave        = "chat.leave"
	destAvailability = "agent.available"
)

var (
	upgrader = websocket.Upgrader{
		// Origin filtering is delegated to the CORS layer in front.
		CheckOrigin: func(*http.Request) bool { return true },
	}
	validate = validator.New()
)

// inboundFrame is one client event: a logical destination plus payload.
type inboundFrame struct {
	Destination string          `json:"destination"`
	Payload     json.RawMessage `json:"payload"`
}

type joinPayload struct {
	GuestNickname string `json:"guestNickname" validate:"required,max=64"`
}

type sendMessagePayload struct {
	SessionID string `json:"sessionId" validate:"required,uuid"`
	Content   string `json:"content" validate:"required,max=4000"`
}

type leavePayload struct {
	SessionID string `json:"sessionId" validate:"required,uuid"`
}

type availabilityPayload struct {
	Available *bool `json:"available" validate:"required"`
}

// handleWebSocket runs one persistent bidirectional connection.
//
// Registered participants authenticate with a token query parameter and
// get their private queues subscribed up front; agents additionally get
// the queue-updates broadcast. Guests connect bare and gain their derived
// topic subscriptions when they join.
//
// Engine errors on inbound events are logged and the frame dropped; no
// failure is pushed back over the channel.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	var claims *auth.CustomClaims
	if token := r.URL.Query().Get("token"); token != "" {
		validated, err := s.tokens.Validate(token)
		if err != nil {
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}
		claims = validated
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	connectionSink := sink.NewChannelSink(s.connectionBufferSize)

	var destinations []notify.Destination
	if claims != nil {
		destinations = append(destinations,
			notify.UserSessionQueue(claims.Username),
			notify.UserMessagesQueue(claims.Username))
		if claims.Role == domain.RoleAgent {
			destinations = append(destinations, notify.QueueUpdatesTopic)
		}
	}
	s.registry.Subscribe(connID, connectionSink, destinations...)
	defer s.registry.Unsubscribe(connID)

	done := make(chan struct{})
	defer close(done)
	go s.writeLoop(conn, connectionSink, done)

	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			s.log.Debug("websocket closed", "conn_id", connID, "error", err)
			return
		}
		s.dispatch(connID, claims, frame)
	}
}

// writeLoop pushes routed notices to the client until the connection or
// the read side goes away.
func (s *Server) writeLoop(conn *websocket.Conn, connectionSink *sink.ChannelSink, done <-chan struct{}) {
	for {
		select {
		case notice := <-connectionSink.Notices:
			_ = conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := conn.WriteJSON(notice); err != nil {
				s.log.Warn("failed to push notice to connection",
					"destination", notice.Destination, "error", err)
				return
			}
		case <-done:
			return
		}
	}
}

func (s *Server) dispatch(connID string, claims *auth.CustomClaims, frame inboundFrame) {
	switch frame.Destination {
	case destJoin:
		s.handleJoin(connID, claims, frame.Payload)
	case destSendMessage:
		s.handleSendMessage(claims, frame.Payload)
	case destLeave:
		s.handleLeave(claims, frame.Payload)
	case destAvailability:
		s.handleAvailability(claims, frame.Payload)
	default:
		s.log.Warn("unknown inbound destination", "destination", frame.Destination)
	}
}

func (s *Server) handleJoin(connID string, claims *auth.CustomClaims, raw json.RawMessage) {
	if claims == nil {
		var payload joinPayload
		if err := decode(raw, &payload); err != nil {
			s.log.Warn("invalid join payload", "error", err)
			return
		}
		// Subscribe the guest topic before the engine emits the creation
		// event, otherwise the session info notice can race past us.
		s.registry.AddSubscription(connID, notify.GuestTopic(payload.GuestNickname))

		session, err := s.engine.CreateGuestSession(payload.GuestNickname)
		if err != nil {
			s.log.Error("guest join failed", "nickname", payload.GuestNickname, "error", err)
			return
		}
		s.registry.AddSubscription(connID, notify.SessionMessagesTopic(session.ID))
		return
	}

	customer, err := s.directory.FindByUsername(claims.Username)
	if err != nil {
		s.log.Error("join failed, unknown participant", "username", claims.Username, "error", err)
		return
	}
	if customer.Role != domain.RoleCustomer {
		s.log.Warn("join rejected, caller is not a customer", "username", customer.Username)
		return
	}
	if _, err = s.engine.CreateSession(customer); err != nil {
		s.log.Error("join failed", "username", customer.Username, "error", err)
	}
}

func (s *Server) handleSendMessage(claims *auth.CustomClaims, raw json.RawMessage) {
	var payload sendMessagePayload
	if err := decode(raw, &payload); err != nil {
		s.log.Warn("invalid sendMessage payload", "error", err)
		return
	}
	sessionID := uuid.MustParse(payload.SessionID)

	// The sender is whoever the connection authenticates as; for a bare
	// connection it can only be the guest customer of the session itself.
	// The payload never names the sender.
	var sender domain.Participant
	if claims != nil {
		participant, err := s.directory.FindByUsername(claims.Username)
		if err != nil {
			s.log.Error("sendMessage failed, unknown participant", "username", claims.Username, "error", err)
			return
		}
		sender = participant
	} else {
		session, err := s.engine.SessionByID(sessionID)
		if err != nil {
			s.log.Warn("sendMessage for unknown session", "session_id", sessionID, "error", err)
			return
		}
		if !session.Customer.Guest {
			s.log.Warn("unauthenticated sendMessage for a registered customer session",
				"session_id", sessionID)
			return
		}
		sender = session.Customer
	}

	if _, err := s.engine.PostMessage(sessionID, sender, payload.Content); err != nil {
		s.log.Error("sendMessage failed", "session_id", sessionID, "error", err)
	}
}

func (s *Server) handleLeave(claims *auth.CustomClaims, raw json.RawMessage) {
	var payload leavePayload
	if err := decode(raw, &payload); err != nil {
		s.log.Warn("invalid leave payload", "error", err)
		return
	}
	sessionID := uuid.MustParse(payload.SessionID)

	// Same rule as sendMessage: a bare connection may only act on a
	// guest-owned session.
	if claims == nil {
		session, err := s.engine.SessionByID(sessionID)
		if err != nil {
			s.log.Warn("leave for unknown session", "session_id", sessionID, "error", err)
			return
		}
		if !session.Customer.Guest {
			s.log.Warn("unauthenticated leave for a registered customer session",
				"session_id", sessionID)
			return
		}
	}

	if _, err := s.engine.CloseSession(sessionID); err != nil {
		s.log.Error("leave failed", "session_id", sessionID, "error", err)
	}
}

func (s *Server) handleAvailability(claims *auth.CustomClaims, raw json.RawMessage) {
	if claims == nil || claims.Role != domain.RoleAgent {
		s.log.Warn("availability toggle rejected, caller is not an agent")
		return
	}
	var payload availabilityPayload
	if err := decode(raw, &payload); err != nil {
		s.log.Warn("invalid availability payload", "error", err)
		return
	}
	agent, err := s.directory.FindByUsername(claims.Username)
	if err != nil {
		s.log.Error("availability toggle failed, unknown agent", "username", claims.Username, "error", err)
		return
	}
	if _, err = s.engine.SetAgentAvailability(agent, *payload.Available); err != nil {
		s.log.Error("availability toggle failed", "username", agent.Username, "error", err)
	}
}

func decode(raw json.RawMessage, payload any) error {
	if err := json.Unmarshal(raw, payload); err != nil {
		return err
	}
	return validate.Struct(payload)
}
