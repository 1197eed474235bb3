//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"helpdesk/domain"
)

type IMessageRepository interface {
	Store(message domain.Message) error
	BySession(sessionID uuid.UUID) ([]domain.Message, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

type messageRecord struct {
	ID        string            `cbor:"id"`
	SessionID string            `cbor:"session_id"`
	Sender    participantRecord `cbor:"sender"`
	Content   string            `cbor:"content"`
	Timestamp int64             `cbor:"timestamp"`
	Type      string            `cbor:"type"`
}

// messageKey formats "msg:{session_id}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two
//     messages arrive at the same nanosecond.
func messageKey(message domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s",
		message.SessionID,
		message.Timestamp.UnixNano(),
		message.ID,
	))
}

func (r MessageRepository) Store(message domain.Message) error {
	bytes, err := cbor.Marshal(fromMessage(message))
	if err != nil {
		return fmt.Errorf("marshal message %s: %w", message.ID, err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(message), bytes)
	})
}

// BySession retrieves every message of a session using a prefix scan.
// Thanks to the padded timestamp in the key, messages come back already
// sorted by time.
func (r MessageRepository) BySession(sessionID uuid.UUID) ([]domain.Message, error) {
	var messages []domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%s:", sessionID))
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var record messageRecord
			err := it.Item().Value(func(val []byte) error {
				return cbor.Unmarshal(val, &record)
			})
			if err != nil {
				return err
			}
			message, err := toMessage(record)
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func fromMessage(message domain.Message) messageRecord {
	return messageRecord{
		ID:        message.ID.String(),
		SessionID: message.SessionID.String(),
		Sender:    fromParticipant(message.Sender),
		Content:   message.Content,
		Timestamp: message.Timestamp.UnixNano(),
		Type:      string(message.Type),
	}
}

func toMessage(record messageRecord) (domain.Message, error) {
	id, err := uuid.Parse(record.ID)
	if err != nil {
		return domain.Message{}, err
	}
	sessionID, err := uuid.Parse(record.SessionID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:        id,
		SessionID: sessionID,
		Sender:    toParticipant(record.Sender),
		Content:   record.Content,
		Timestamp: time.Unix(0, record.Timestamp).UTC(),
		Type:      domain.MessageType(record.Type),
	}, nil
}
