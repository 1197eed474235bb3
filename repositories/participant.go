//go:generate go run go.uber.org/mock/mockgen -source=participant.go -destination=../mocks/mock_participant_repository.go -package=mocks
package repositories

import (
	stderrors "errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"

	"helpdesk/domain"
	"helpdesk/errors"
)

type IParticipantRepository interface {
	Save(participant domain.Participant) error
	FindByUsername(username string) (domain.Participant, error)
	FindAvailableAgents() ([]domain.Participant, error)
	SetAvailability(id string, available bool) (domain.Participant, error)
}

// ParticipantRepository is the Directory: every customer, guest, and agent
// the system knows about.
type ParticipantRepository struct {
	db *badger.DB
}

func NewParticipantRepository(db *badger.DB) ParticipantRepository {
	return ParticipantRepository{db: db}
}

type participantRecord struct {
	ID        string `cbor:"id"`
	Username  string `cbor:"username"`
	Email     string `cbor:"email"`
	Role      string `cbor:"role"`
	Available bool   `cbor:"available"`
	Guest     bool   `cbor:"guest"`
}

// Participants are keyed by username; an id index points back at the
// username so availability can be flipped by id.
func participantKey(username string) []byte {
	return []byte("participant:" + username)
}

func participantIDKey(id string) []byte {
	return []byte("participant_id:" + id)
}

func (r ParticipantRepository) Save(participant domain.Participant) error {
	bytes, err := cbor.Marshal(fromParticipant(participant))
	if err != nil {
		return fmt.Errorf("marshal participant %s: %w", participant.Username, err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(participantKey(participant.Username), bytes); err != nil {
			return err
		}
		return txn.Set(participantIDKey(participant.ID), []byte(participant.Username))
	})
}

func (r ParticipantRepository) FindByUsername(username string) (domain.Participant, error) {
	var record participantRecord
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(participantKey(username))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &record)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Participant{}, errors.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, err
	}
	return toParticipant(record), nil
}

// FindAvailableAgents returns every available agent sorted by username
// ascending. The ordering is the assignment tie-break: the engine always
// takes the first entry.
func (r ParticipantRepository) FindAvailableAgents() ([]domain.Participant, error) {
	var agents []domain.Participant
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte("participant:")
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var record participantRecord
			err := it.Item().Value(func(val []byte) error {
				return cbor.Unmarshal(val, &record)
			})
			if err != nil {
				return err
			}
			participant := toParticipant(record)
			if participant.IsAgent() && participant.Available {
				agents = append(agents, participant)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(agents, func(i, j int) bool {
		return agents[i].Username < agents[j].Username
	})
	return agents, nil
}

func (r ParticipantRepository) SetAvailability(id string, available bool) (domain.Participant, error) {
	var record participantRecord
	err := r.db.Update(func(txn *badger.Txn) error {
		indexItem, err := txn.Get(participantIDKey(id))
		if err != nil {
			return err
		}
		var username []byte
		if username, err = indexItem.ValueCopy(nil); err != nil {
			return err
		}
		item, err := txn.Get(participantKey(string(username)))
		if err != nil {
			return err
		}
		if err = item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &record)
		}); err != nil {
			return err
		}
		record.Available = available
		bytes, err := cbor.Marshal(record)
		if err != nil {
			return err
		}
		return txn.Set(participantKey(string(username)), bytes)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Participant{}, errors.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, err
	}
	return toParticipant(record), nil
}

func fromParticipant(participant domain.Participant) participantRecord {
	return participantRecord{
		ID:        participant.ID,
		Username:  participant.Username,
		Email:     participant.Email,
		Role:      string(participant.Role),
		Available: participant.Available,
		Guest:     participant.Guest,
	}
}

func toParticipant(record participantRecord) domain.Participant {
	return domain.Participant{
		ID:        record.ID,
		Username:  record.Username,
		Email:     record.Email,
		Role:      domain.Role(record.Role),
		Available: record.Available,
		Guest:     record.Guest,
	}
}
