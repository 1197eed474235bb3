package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"helpdesk/auth"
	"helpdesk/domain"
	"helpdesk/errors"
	"helpdesk/notify"
)

type sessionResponse struct {
	SessionID    uuid.UUID            `json:"sessionId"`
	Status       domain.SessionStatus `json:"status"`
	CustomerName string               `json:"customerName"`
	CreatedAt    time.Time            `json:"createdAt"`
}

type queuePositionResponse struct {
	Position          int `json:"position"`
	EstimatedWaitTime int `json:"estimatedWaitTime"`
}

type agentStatusRequest struct {
	Available *bool `json:"available"`
}

type agentStatusResponse struct {
	Success   bool   `json:"success"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Available bool   `json:"available"`
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	sessionID, err := parseSessionID(r)
	if err != nil {
		s.writeError(w, errors.ErrInvalidPayload)
		return
	}
	agent, err := s.callerParticipant(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	session, err := s.engine.AcceptSession(sessionID, agent)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID:    session.ID,
		Status:       session.Status,
		CustomerName: session.Customer.Username,
		CreatedAt:    session.CreatedAt,
	})
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	sessionID, err := parseSessionID(r)
	if err != nil {
		s.writeError(w, errors.ErrInvalidPayload)
		return
	}
	messages, err := s.engine.Messages(sessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(messages, func(m domain.Message, _ int) notify.MessageNotice {
		return toMessageNotice(m)
	}))
}

func (s *Server) handleQueuePosition(w http.ResponseWriter, r *http.Request) {
	sessionID, err := parseSessionID(r)
	if err != nil {
		s.writeError(w, errors.ErrInvalidPayload)
		return
	}
	position := s.engine.QueuePosition(sessionID)

	// Rough estimate in minutes, two per customer ahead. A heuristic, not
	// a measurement.
	estimated := 0
	if position > 0 {
		estimated = position * 2
	}
	writeJSON(w, http.StatusOK, queuePositionResponse{
		Position:          position,
		EstimatedWaitTime: estimated,
	})
}

func (s *Server) handleWaitingCustomers(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.engine.WaitingCustomers()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(sessions, func(session domain.Session, _ int) sessionResponse {
		return sessionResponse{
			SessionID:    session.ID,
			Status:       session.Status,
			CustomerName: session.Customer.Username,
			CreatedAt:    session.CreatedAt,
		}
	}))
}

func (s *Server) handleGetAgentStatus(w http.ResponseWriter, r *http.Request) {
	agent, err := s.callerParticipant(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agentStatusResponse{
		Success:   true,
		Username:  agent.Username,
		Email:     agent.Email,
		Available: agent.Available,
	})
}

func (s *Server) handleSetAgentStatus(w http.ResponseWriter, r *http.Request) {
	var request agentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil || request.Available == nil {
		s.writeError(w, errors.ErrInvalidPayload)
		return
	}
	agent, err := s.callerParticipant(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	updated, err := s.engine.SetAgentAvailability(agent, *request.Available)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agentStatusResponse{
		Success:   true,
		Username:  updated.Username,
		Email:     updated.Email,
		Available: updated.Available,
	})
}

// callerParticipant resolves the authenticated caller to its Directory
// record. Identity comes from the validated token, never from the
// request body.
func (s *Server) callerParticipant(r *http.Request) (domain.Participant, error) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return domain.Participant{}, errors.ErrParticipantNotFound
	}
	return s.directory.FindByUsername(claims.Username)
}

func parseSessionID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "sessionID"))
}

func toMessageNotice(m domain.Message) notify.MessageNotice {
	return notify.MessageNotice{
		ID:        m.ID,
		SessionID: m.SessionID,
		Sender: notify.SenderInfo{
			ID:       m.Sender.ID,
			Username: m.Sender.Username,
			Role:     m.Sender.Role,
			Guest:    m.Sender.Guest,
		},
		Content:   m.Content,
		Timestamp: m.Timestamp,
		Type:      m.Type,
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
