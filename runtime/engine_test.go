package runtime_test

import (
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"helpdesk/domain"
	"helpdesk/domain/event"
	"helpdesk/errors"
	"helpdesk/repositories"
	"helpdesk/runtime"
)

type fixture struct {
	engine    *runtime.Engine
	directory repositories.ParticipantRepository
}

// maskCensor stands in for the real moderator: it rewrites a single
// marker word so tests can tell censored content apart.
type maskCensor struct{}

func (maskCensor) Censor(original string) string {
	return strings.ReplaceAll(original, "forbidden", "*********")
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	options := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(options)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.Default()
	directory := repositories.NewParticipantRepository(db)
	engine := runtime.NewEngine(log,
		repositories.NewSessionRepository(db, log),
		directory,
		repositories.NewMessageRepository(db, log),
		maskCensor{}, 64)
	return fixture{engine: engine, directory: directory}
}

func customer(username string) domain.Participant {
	return domain.Participant{
		ID:       uuid.NewString(),
		Username: username,
		Email:    username + "@example.com",
		Role:     domain.RoleCustomer,
	}
}

func agent(username string, available bool) domain.Participant {
	return domain.Participant{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     username + "@helpdesk.io",
		Role:      domain.RoleAgent,
		Available: available,
	}
}

func nextEvent(t *testing.T, events <-chan event.DomainEvent) event.DomainEvent {
	t.Helper()
	select {
	case evt := <-events:
		return evt
	case <-time.After(time.Second):
		t.Fatal("expected an event, got none")
		return nil
	}
}

func Test_Engine_CreateSession_QueuesInOrder(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	first, err := f.engine.CreateSession(customer("bob"))
	req.NoError(err)
	second, err := f.engine.CreateSession(customer("clara"))
	req.NoError(err)

	req.Equal(domain.StatusWaiting, first.Status)
	req.Equal(1, f.engine.QueuePosition(first.ID))
	req.Equal(2, f.engine.QueuePosition(second.ID))
	req.Equal(-1, f.engine.QueuePosition(uuid.New()))

	created, ok := nextEvent(t, f.engine.Events()).(event.SessionCreated)
	req.True(ok, "event should be SessionCreated")
	req.Equal(first.ID, created.Session.ID)
	req.Equal(1, created.QueuePosition)

	waiting, err := f.engine.WaitingCustomers()
	req.NoError(err)
	req.Len(waiting, 2)
}

func Test_Engine_AcceptSession_AssignsAndRecordsJoin(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	alice := agent("alice", true)
	req.NoError(f.directory.Save(alice))

	session, err := f.engine.CreateSession(customer("bob"))
	req.NoError(err)
	<-f.engine.Events() // SessionCreated

	accepted, err := f.engine.AcceptSession(session.ID, alice)
	req.NoError(err)
	req.Equal(domain.StatusActive, accepted.Status)
	req.NotNil(accepted.Agent)
	req.Equal(alice.ID, accepted.Agent.ID)
	req.False(accepted.Agent.Available)

	// Assignment dequeues the session and occupies the agent
	req.Equal(-1, f.engine.QueuePosition(session.ID))
	agents, err := f.directory.FindAvailableAgents()
	req.NoError(err)
	req.Empty(agents)

	assigned, ok := nextEvent(t, f.engine.Events()).(event.SessionAssigned)
	req.True(ok, "event should be SessionAssigned")
	req.Equal(session.ID, assigned.Session.ID)

	posted, ok := nextEvent(t, f.engine.Events()).(event.MessagePosted)
	req.True(ok, "event should be MessagePosted")
	req.Equal(domain.MessageSystem, posted.Message.Type)
	req.Equal("Agent alice has joined the chat.", posted.Message.Content)

	messages, err := f.engine.Messages(session.ID)
	req.NoError(err)
	req.Len(messages, 1)

	active, err := f.engine.ActiveSessionsForAgent(alice)
	req.NoError(err)
	req.Len(active, 1)
}

func Test_Engine_AcceptSession_IdempotentForSameAgent(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	alice := agent("alice", true)
	req.NoError(f.directory.Save(alice))
	session, err := f.engine.CreateSession(customer("bob"))
	req.NoError(err)

	first, err := f.engine.AcceptSession(session.ID, alice)
	req.NoError(err)
	second, err := f.engine.AcceptSession(session.ID, alice)
	req.NoError(err)
	req.Equal(first.ID, second.ID)
	req.Equal(domain.StatusActive, second.Status)

	// No duplicate SYSTEM message on the repeat
	messages, err := f.engine.Messages(session.ID)
	req.NoError(err)
	req.Len(messages, 1)
}

func Test_Engine_AcceptSession_Rejections(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	alice := agent("alice", true)
	mallory := agent("mallory", true)
	req.NoError(f.directory.Save(alice))
	req.NoError(f.directory.Save(mallory))

	session, err := f.engine.CreateSession(customer("bob"))
	req.NoError(err)

	// Unknown session
	_, err = f.engine.AcceptSession(uuid.New(), alice)
	req.ErrorIs(err, errors.ErrSessionNotFound)

	// Non-agent caller
	_, err = f.engine.AcceptSession(session.ID, customer("clara"))
	req.ErrorIs(err, errors.ErrAgentRoleRequired)

	// Claimed by someone else
	_, err = f.engine.AcceptSession(session.ID, alice)
	req.NoError(err)
	_, err = f.engine.AcceptSession(session.ID, mallory)
	req.ErrorIs(err, errors.ErrSessionClaimed)

	// Closed sessions accept nobody
	_, err = f.engine.CloseSession(session.ID)
	req.NoError(err)
	_, err = f.engine.AcceptSession(session.ID, mallory)
	req.ErrorIs(err, errors.ErrSessionClosed)
}

func Test_Engine_ConcurrentAccept_SingleWinner(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	alice := agent("alice", true)
	mallory := agent("mallory", true)
	req.NoError(f.directory.Save(alice))
	req.NoError(f.directory.Save(mallory))

	session, err := f.engine.CreateSession(customer("bob"))
	req.NoError(err)

	// When two agents race for the same WAITING session
	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, contender := range []domain.Participant{alice, mallory} {
		wg.Add(1)
		go func(a domain.Participant) {
			defer wg.Done()
			_, err := f.engine.AcceptSession(session.ID, a)
			results <- err
		}(contender)
	}
	wg.Wait()
	close(results)

	// Then exactly one wins and the loser gets a claim conflict
	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		default:
			req.ErrorIs(err, errors.ErrSessionClaimed)
			conflicts++
		}
	}
	req.Equal(1, wins)
	req.Equal(1, conflicts)

	// And only one SYSTEM join message was recorded
	messages, err := f.engine.Messages(session.ID)
	req.NoError(err)
	req.Len(messages, 1)
}

func Test_Engine_CloseSession_FreesAgentAndAssignsHead(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	alice := agent("alice", true)
	req.NoError(f.directory.Save(alice))

	first, err := f.engine.CreateSession(customer("bob"))
	req.NoError(err)
	_, err = f.engine.AcceptSession(first.ID, alice)
	req.NoError(err)
	second, err := f.engine.CreateSession(customer("clara"))
	req.NoError(err)
	req.Equal(1, f.engine.QueuePosition(second.ID))

	// When the active session closes
	closed, err := f.engine.CloseSession(first.ID)
	req.NoError(err)
	req.Equal(domain.StatusClosed, closed.Status)
	req.NotNil(closed.EndedAt)

	// Then the freed agent picks up the queue head
	reloaded, err := f.engine.SessionByID(second.ID)
	req.NoError(err)
	req.Equal(domain.StatusActive, reloaded.Status)
	req.NotNil(reloaded.Agent)
	req.Equal(alice.ID, reloaded.Agent.ID)
	req.Equal(-1, f.engine.QueuePosition(second.ID))

	// Closing twice is a state error
	_, err = f.engine.CloseSession(first.ID)
	req.ErrorIs(err, errors.ErrSessionClosed)
}

func Test_Engine_CloseWaitingSession_LeavesQueue(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	first, err := f.engine.CreateSession(customer("bob"))
	req.NoError(err)
	second, err := f.engine.CreateSession(customer("clara"))
	req.NoError(err)

	// An unassigned session can leave the queue without an agent
	_, err = f.engine.CloseSession(first.ID)
	req.NoError(err)
	req.Equal(-1, f.engine.QueuePosition(first.ID))
	req.Equal(1, f.engine.QueuePosition(second.ID))
}

func Test_Engine_SetAgentAvailability_TriggersAssign(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	alice := agent("alice", false)
	req.NoError(f.directory.Save(alice))

	// With no available agent the session just waits
	session, err := f.engine.CreateSession(customer("bob"))
	req.NoError(err)
	req.Equal(1, f.engine.QueuePosition(session.ID))

	// When the agent comes online, the head is assigned
	updated, err := f.engine.SetAgentAvailability(alice, true)
	req.NoError(err)
	req.True(updated.Available)

	reloaded, err := f.engine.SessionByID(session.ID)
	req.NoError(err)
	req.Equal(domain.StatusActive, reloaded.Status)

	// The assignment occupied the agent again
	agents, err := f.directory.FindAvailableAgents()
	req.NoError(err)
	req.Empty(agents)

	// Non-agents cannot flip availability
	_, err = f.engine.SetAgentAvailability(customer("bob"), true)
	req.ErrorIs(err, errors.ErrAgentRoleRequired)
}

func Test_Engine_GuestSessions_ShareOneIdentity(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	first, err := f.engine.CreateGuestSession("Jo Jo")
	req.NoError(err)
	second, err := f.engine.CreateGuestSession("Jo Jo")
	req.NoError(err)

	req.True(first.Customer.Guest)
	req.Equal(domain.RoleCustomer, first.Customer.Role)
	req.Equal(first.Customer.ID, second.Customer.ID, "same nickname resolves to one guest")
	req.NotEqual(first.ID, second.ID)
}

func Test_Engine_GuestNickname_CannotShadowRegisteredUser(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	// Given a registered customer and a registered agent
	req.NoError(f.directory.Save(customer("bob")))
	req.NoError(f.directory.Save(agent("alice", true)))

	// A guest picking their username is rejected; notices for that name
	// would route into the registered user's private queue otherwise
	_, err := f.engine.CreateGuestSession("bob")
	req.ErrorIs(err, errors.ErrNicknameTaken)
	_, err = f.engine.CreateGuestSession("alice")
	req.ErrorIs(err, errors.ErrNicknameTaken)

	// An unclaimed nickname still joins fine
	session, err := f.engine.CreateGuestSession("bob the guest")
	req.NoError(err)
	req.True(session.Customer.Guest)
}

func Test_Engine_PostMessage_CensorsContent(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	bob := customer("bob")
	session, err := f.engine.CreateSession(bob)
	req.NoError(err)
	<-f.engine.Events() // SessionCreated

	message, err := f.engine.PostMessage(session.ID, bob, "this is forbidden talk")
	req.NoError(err)
	req.Equal("this is ********* talk", message.Content)
	req.Equal(domain.MessageText, message.Type)
	req.False(message.Timestamp.IsZero())

	posted, ok := nextEvent(t, f.engine.Events()).(event.MessagePosted)
	req.True(ok, "event should be MessagePosted")
	req.Equal(message.ID, posted.Message.ID)

	_, err = f.engine.PostMessage(uuid.New(), bob, "hello")
	req.ErrorIs(err, errors.ErrSessionNotFound)
}

func Test_Engine_ActiveSessionForCustomer(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	alice := agent("alice", true)
	req.NoError(f.directory.Save(alice))
	bob := customer("bob")

	_, found, err := f.engine.ActiveSessionForCustomer(bob)
	req.NoError(err)
	req.False(found)

	session, err := f.engine.CreateSession(bob)
	req.NoError(err)
	_, err = f.engine.AcceptSession(session.ID, alice)
	req.NoError(err)

	active, found, err := f.engine.ActiveSessionForCustomer(bob)
	req.NoError(err)
	req.True(found)
	req.Equal(session.ID, active.ID)
}
