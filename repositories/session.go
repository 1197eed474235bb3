//go:generate go run go.uber.org/mock/mockgen -source=session.go -destination=../mocks/mock_session_repository.go -package=mocks
package repositories

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"helpdesk/domain"
	"helpdesk/errors"
)

type ISessionRepository interface {
	Save(session domain.Session) error
	FindByID(id uuid.UUID) (domain.Session, error)
	FindByStatus(status domain.SessionStatus) ([]domain.Session, error)
	FindByAgentAndStatus(agentID string, status domain.SessionStatus) ([]domain.Session, error)
	FindByCustomerAndStatus(customerID string, status domain.SessionStatus) ([]domain.Session, error)
}

type SessionRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewSessionRepository(db *badger.DB, log *slog.Logger) SessionRepository {
	return SessionRepository{db: db, log: log}
}

// sessionRecord is the durable representation of a session. Participant
// snapshots are embedded so a session can be rehydrated without a second
// lookup.
type sessionRecord struct {
	ID        string             `cbor:"id"`
	Customer  participantRecord  `cbor:"customer"`
	Agent     *participantRecord `cbor:"agent,omitempty"`
	Status    string             `cbor:"status"`
	CreatedAt int64              `cbor:"created_at"`
	EndedAt   *int64             `cbor:"ended_at,omitempty"`
}

func sessionKey(id uuid.UUID) []byte {
	return []byte("session:" + id.String())
}

func (r SessionRepository) Save(session domain.Session) error {
	record := fromSession(session)
	bytes, err := cbor.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", session.ID, err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey(session.ID), bytes)
	})
}

func (r SessionRepository) FindByID(id uuid.UUID) (domain.Session, error) {
	var record sessionRecord
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &record)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Session{}, errors.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, err
	}
	return toSession(record)
}

// FindByStatus scans every session record and keeps those in the given
// status. The session population is small enough that a prefix scan beats
// maintaining secondary indexes.
func (r SessionRepository) FindByStatus(status domain.SessionStatus) ([]domain.Session, error) {
	return r.scan(func(s domain.Session) bool {
		return s.Status == status
	})
}

func (r SessionRepository) FindByAgentAndStatus(agentID string, status domain.SessionStatus) ([]domain.Session, error) {
	return r.scan(func(s domain.Session) bool {
		return s.Status == status && s.AssignedTo(agentID)
	})
}

func (r SessionRepository) FindByCustomerAndStatus(customerID string, status domain.SessionStatus) ([]domain.Session, error) {
	return r.scan(func(s domain.Session) bool {
		return s.Status == status && s.Customer.ID == customerID
	})
}

func (r SessionRepository) scan(keep func(domain.Session) bool) ([]domain.Session, error) {
	var sessions []domain.Session
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte("session:")
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var record sessionRecord
			err := it.Item().Value(func(val []byte) error {
				return cbor.Unmarshal(val, &record)
			})
			if err != nil {
				return err
			}
			session, err := toSession(record)
			if err != nil {
				return err
			}
			if keep(session) {
				sessions = append(sessions, session)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func fromSession(session domain.Session) sessionRecord {
	record := sessionRecord{
		ID:        session.ID.String(),
		Customer:  fromParticipant(session.Customer),
		Status:    string(session.Status),
		CreatedAt: session.CreatedAt.UnixNano(),
	}
	if session.Agent != nil {
		agent := fromParticipant(*session.Agent)
		record.Agent = &agent
	}
	if session.EndedAt != nil {
		endedAt := session.EndedAt.UnixNano()
		record.EndedAt = &endedAt
	}
	return record
}

func toSession(record sessionRecord) (domain.Session, error) {
	id, err := uuid.Parse(record.ID)
	if err != nil {
		return domain.Session{}, err
	}
	session := domain.Session{
		ID:        id,
		Customer:  toParticipant(record.Customer),
		Status:    domain.SessionStatus(record.Status),
		CreatedAt: time.Unix(0, record.CreatedAt).UTC(),
	}
	if record.Agent != nil {
		agent := toParticipant(*record.Agent)
		session.Agent = &agent
	}
	if record.EndedAt != nil {
		endedAt := time.Unix(0, *record.EndedAt).UTC()
		session.EndedAt = &endedAt
	}
	return session, nil
}
