package repositories

import (
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"helpdesk/domain"
)

func Test_Store_And_Get_Sorted_Messages(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(newTestDB(t), slog.Default())

	sessionID := uuid.New()
	at := time.Now().UTC()
	messages := []domain.Message{
		{ID: uuid.New(), SessionID: sessionID, Sender: testCustomer("bob"), Content: "third", Timestamp: at.Add(2 * time.Minute), Type: domain.MessageText},
		{ID: uuid.New(), SessionID: sessionID, Sender: testCustomer("bob"), Content: "first", Timestamp: at, Type: domain.MessageText},
		{ID: uuid.New(), SessionID: sessionID, Sender: testAgent("alice", false), Content: "second", Timestamp: at.Add(time.Minute), Type: domain.MessageSystem},
	}

	// Stored out of order on purpose
	for _, message := range messages {
		req.NoError(repository.Store(message))
	}

	// When fetching messages
	fetched, err := repository.BySession(sessionID)
	req.NoError(err)

	// Then the padded timestamp key brings them back chronologically
	req.Len(fetched, 3)
	req.Equal("first", fetched[0].Content)
	req.Equal("second", fetched[1].Content)
	req.Equal("third", fetched[2].Content)
	req.Equal(domain.MessageSystem, fetched[1].Type)
}

func Test_Messages_Isolated_By_Session(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(newTestDB(t), slog.Default())

	sessionA := uuid.New()
	sessionB := uuid.New()
	at := time.Now().UTC()
	req.NoError(repository.Store(domain.Message{
		ID: uuid.New(), SessionID: sessionA, Sender: testCustomer("bob"),
		Content: "for A", Timestamp: at, Type: domain.MessageText,
	}))
	req.NoError(repository.Store(domain.Message{
		ID: uuid.New(), SessionID: sessionB, Sender: testCustomer("clara"),
		Content: "for B", Timestamp: at, Type: domain.MessageText,
	}))

	fetched, err := repository.BySession(sessionA)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("for A", fetched[0].Content)

	empty, err := repository.BySession(uuid.New())
	req.NoError(err)
	req.Empty(empty)
}
