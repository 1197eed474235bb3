// Package runtime owns the live state of the support chat: the waiting
// queue, the session state machine, and the registry of connected sinks.
// It orchestrates repositories and event emission without containing
// transport logic.
package runtime

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"helpdesk/domain"
	"helpdesk/domain/event"
	"helpdesk/errors"
	"helpdesk/repositories"
)

// Censor rewrites message content before it is persisted.
type Censor interface {
	Censor(original string) string
}

// Engine is the single owner of the waiting queue and of every session
// status transition. One mutex serializes all read-modify-write paths, so
// two agents racing to accept the same session can never both win, and
// queue membership always matches the set of WAITING sessions in the
// store.
//
// Store writes happen inside the critical section and events are emitted
// only after every write succeeded, so participants are never notified of
// a state change that failed to persist.
type Engine struct {
	mu        sync.Mutex
	log       *slog.Logger
	sessions  repositories.ISessionRepository
	directory repositories.IParticipantRepository
	messages  repositories.IMessageRepository
	moderator Censor
	events    chan event.DomainEvent
	queue     []uuid.UUID
}

func NewEngine(log *slog.Logger,
	sessions repositories.ISessionRepository,
	directory repositories.IParticipantRepository,
	messages repositories.IMessageRepository,
	moderator Censor, bufferSize int) *Engine {
	return &Engine{
		log:       log,
		sessions:  sessions,
		directory: directory,
		messages:  messages,
		moderator: moderator,
		events:    make(chan event.DomainEvent, bufferSize),
	}
}

// Events exposes the transition stream consumed by the notifier worker.
func (e *Engine) Events() <-chan event.DomainEvent {
	return e.events
}

// emit never blocks an engine call on a slow consumer. Fan-out is
// best-effort; a full channel drops the event with a warning.
func (e *Engine) emit(evt event.DomainEvent) {
	select {
	case e.events <- evt:
	default:
		e.log.Warn("event channel full, dropping event", "kind", evt.Kind())
	}
}

// CreateSession opens a WAITING session for a customer and appends it to
// the queue tail. Assignment is manual-accept: the engine never pulls a
// customer to an agent without an explicit accept.
func (e *Engine) CreateSession(customer domain.Participant) (domain.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.createSessionLocked(customer)
}

func (e *Engine) createSessionLocked(customer domain.Participant) (domain.Session, error) {
	session := domain.Session{
		ID:        uuid.New(),
		Customer:  customer,
		Status:    domain.StatusWaiting,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.sessions.Save(session); err != nil {
		return domain.Session{}, fmt.Errorf("save session: %w", err)
	}
	e.queue = append(e.queue, session.ID)

	e.log.Info("session created",
		"session_id", session.ID,
		"customer", customer.Username,
		"queue_size", len(e.queue))

	e.emit(event.SessionCreated{
		Session:       session,
		QueuePosition: len(e.queue),
		QueueSize:     len(e.queue),
	})
	return session, nil
}

// CreateGuestSession resolves or creates the guest participant for a
// nickname, then opens a session for it. The lookup-or-create runs under
// the engine lock, so two identical nicknames arriving concurrently share
// one guest identity instead of race-creating duplicates. A nickname
// already held by a registered participant is rejected: guest notices
// must never route to someone else's private queue.
func (e *Engine) CreateGuestSession(nickname string) (domain.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	guest, err := e.directory.FindByUsername(nickname)
	switch {
	case stderrors.Is(err, errors.ErrParticipantNotFound):
		guest = domain.Participant{
			ID:       uuid.NewString(),
			Username: nickname,
			Email:    "guest@example.com", // placeholder, guests have no mailbox
			Role:     domain.RoleCustomer,
			Guest:    true,
		}
		if err = e.directory.Save(guest); err != nil {
			return domain.Session{}, fmt.Errorf("save guest: %w", err)
		}
	case err != nil:
		return domain.Session{}, err
	case !guest.Guest:
		return domain.Session{}, errors.ErrNicknameTaken
	}

	return e.createSessionLocked(guest)
}

// AcceptSession assigns an agent to a WAITING session.
//
// Re-accepting an ACTIVE session with the same agent is idempotent and
// returns the session unchanged. A different agent gets ErrSessionClaimed,
// a CLOSED session gets ErrSessionClosed, and non-agents are rejected
// before the session is even touched.
func (e *Engine) AcceptSession(sessionID uuid.UUID, agent domain.Participant) (domain.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	session, err := e.sessions.FindByID(sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if !agent.IsAgent() {
		return domain.Session{}, errors.ErrAgentRoleRequired
	}

	switch session.Status {
	case domain.StatusActive:
		if session.AssignedTo(agent.ID) {
			return session, nil
		}
		return domain.Session{}, errors.ErrSessionClaimed
	case domain.StatusClosed:
		return domain.Session{}, errors.ErrSessionClosed
	}

	return e.assignLocked(session, agent)
}

// assignLocked performs the WAITING -> ACTIVE transition: flips the agent
// unavailable, persists the session, dequeues it, and records the SYSTEM
// join message. Caller holds the lock and has verified the status.
func (e *Engine) assignLocked(session domain.Session, agent domain.Participant) (domain.Session, error) {
	assigned, err := e.directory.SetAvailability(agent.ID, false)
	if err != nil {
		return domain.Session{}, fmt.Errorf("mark agent unavailable: %w", err)
	}

	session.Agent = &assigned
	session.Status = domain.StatusActive
	if err = e.sessions.Save(session); err != nil {
		return domain.Session{}, fmt.Errorf("save session: %w", err)
	}
	e.dequeueLocked(session.ID)

	systemMessage := domain.Message{
		ID:        uuid.New(),
		SessionID: session.ID,
		Sender:    assigned,
		Content:   fmt.Sprintf("Agent %s has joined the chat.", assigned.Username),
		Timestamp: time.Now().UTC(),
		Type:      domain.MessageSystem,
	}
	if err = e.messages.Store(systemMessage); err != nil {
		return domain.Session{}, fmt.Errorf("store system message: %w", err)
	}

	e.log.Info("session assigned",
		"session_id", session.ID,
		"agent", assigned.Username,
		"customer", session.Customer.Username,
		"queue_size", len(e.queue))

	e.emit(event.SessionAssigned{Session: session, QueueSize: len(e.queue)})
	e.emit(event.MessagePosted{Message: systemMessage, Session: session})
	return session, nil
}

// autoAssignLocked opportunistically pairs a WAITING session with the
// first available agent. The Directory returns agents sorted by username,
// which makes the tie-break deterministic. Sessions in any other status,
// or an empty agent pool, leave the session untouched.
func (e *Engine) autoAssignLocked(session domain.Session) (domain.Session, error) {
	if session.Status != domain.StatusWaiting {
		return session, nil
	}
	agents, err := e.directory.FindAvailableAgents()
	if err != nil {
		return domain.Session{}, err
	}
	if len(agents) == 0 {
		return session, nil
	}
	return e.assignLocked(session, agents[0])
}

// PostMessage appends a TEXT message with a server-assigned timestamp.
// Content goes through the moderator first so forbidden words never reach
// the store or the fan-out.
func (e *Engine) PostMessage(sessionID uuid.UUID, sender domain.Participant, content string) (domain.Message, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	session, err := e.sessions.FindByID(sessionID)
	if err != nil {
		return domain.Message{}, err
	}

	if e.moderator != nil {
		content = e.moderator.Censor(content)
	}
	message := domain.Message{
		ID:        uuid.New(),
		SessionID: sessionID,
		Sender:    sender,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Type:      domain.MessageText,
	}
	if err = e.messages.Store(message); err != nil {
		return domain.Message{}, fmt.Errorf("store message: %w", err)
	}

	e.emit(event.MessagePosted{Message: message, Session: session})
	return message, nil
}

// CloseSession ends a session. A WAITING session leaves the queue without
// ever being assigned; an ACTIVE one frees its agent and triggers a single
// auto-assign attempt on the queue head. Closing twice is a state error:
// no transition leaves CLOSED.
func (e *Engine) CloseSession(sessionID uuid.UUID) (domain.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	session, err := e.sessions.FindByID(sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if session.Status == domain.StatusClosed {
		return domain.Session{}, errors.ErrSessionClosed
	}

	session.Status = domain.StatusClosed
	session.EndedAt = lo.ToPtr(time.Now().UTC())
	if err = e.sessions.Save(session); err != nil {
		return domain.Session{}, fmt.Errorf("save session: %w", err)
	}
	e.dequeueLocked(session.ID)

	e.log.Info("session closed", "session_id", session.ID, "queue_size", len(e.queue))
	e.emit(event.SessionClosed{Session: session, QueueSize: len(e.queue)})

	if session.Agent != nil {
		if _, err = e.directory.SetAvailability(session.Agent.ID, true); err != nil {
			return domain.Session{}, fmt.Errorf("mark agent available: %w", err)
		}
		e.tryAssignHeadLocked()
	}
	return session, nil
}

// tryAssignHeadLocked makes one assignment attempt on the queue head.
// A single pop attempt, not a full re-scan: if the head cannot be
// assigned, the queue stays as it is.
func (e *Engine) tryAssignHeadLocked() {
	if len(e.queue) == 0 {
		return
	}
	head, err := e.sessions.FindByID(e.queue[0])
	if err != nil {
		e.log.Error("failed to load queue head", "session_id", e.queue[0], "error", err)
		return
	}
	if _, err = e.autoAssignLocked(head); err != nil {
		e.log.Error("auto-assign of queue head failed", "session_id", head.ID, "error", err)
	}
}

// SetAgentAvailability flips an agent's availability. Becoming available
// triggers one auto-assign attempt on the queue head.
func (e *Engine) SetAgentAvailability(agent domain.Participant, available bool) (domain.Participant, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !agent.IsAgent() {
		return domain.Participant{}, errors.ErrAgentRoleRequired
	}
	updated, err := e.directory.SetAvailability(agent.ID, available)
	if err != nil {
		return domain.Participant{}, err
	}

	e.emit(event.AgentAvailabilityChanged{Agent: updated, QueueSize: len(e.queue)})
	if available {
		e.tryAssignHeadLocked()
	}
	return updated, nil
}

// QueuePosition returns the 1-based FIFO position of a WAITING session,
// or -1 once it has been assigned, closed, or was never queued.
func (e *Engine) QueuePosition(sessionID uuid.UUID) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, id := range e.queue {
		if id == sessionID {
			return i + 1
		}
	}
	return -1
}

func (e *Engine) SessionByID(sessionID uuid.UUID) (domain.Session, error) {
	return e.sessions.FindByID(sessionID)
}

// Messages returns the ordered message history of a session.
func (e *Engine) Messages(sessionID uuid.UUID) ([]domain.Message, error) {
	if _, err := e.sessions.FindByID(sessionID); err != nil {
		return nil, err
	}
	return e.messages.BySession(sessionID)
}

func (e *Engine) WaitingCustomers() ([]domain.Session, error) {
	return e.sessions.FindByStatus(domain.StatusWaiting)
}

func (e *Engine) ActiveSessionsForAgent(agent domain.Participant) ([]domain.Session, error) {
	return e.sessions.FindByAgentAndStatus(agent.ID, domain.StatusActive)
}

func (e *Engine) ActiveSessionForCustomer(customer domain.Participant) (domain.Session, bool, error) {
	sessions, err := e.sessions.FindByCustomerAndStatus(customer.ID, domain.StatusActive)
	if err != nil {
		return domain.Session{}, false, err
	}
	if len(sessions) == 0 {
		return domain.Session{}, false, nil
	}
	return sessions[0], true, nil
}

func (e *Engine) dequeueLocked(sessionID uuid.UUID) {
	for i, id := range e.queue {
		if id == sessionID {
			e.queue = append(e.queue[:i], e.queue[i+1:]...)
			return
		}
	}
}
