//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"github.com/google/uuid"

	"helpdesk/domain"
	"helpdesk/domain/event"
	"helpdesk/notify"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// initialization or lifecycle events, avoiding the need for manual naming
// in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives routed notices, typically one per live connection.
type EventSink interface {
	Consume(ctx context.Context, n notify.Notice) error
}

// IRegistry tracks which connection sinks listen on which destinations.
type IRegistry interface {
	Subscribe(connID string, sink EventSink, destinations ...notify.Destination)
	AddSubscription(connID string, destination notify.Destination)
	Unsubscribe(connID string)
	SinksFor(destination notify.Destination) []EventSink
}

// IEngine is the session engine surface both transports dispatch into.
type IEngine interface {
	CreateSession(customer domain.Participant) (domain.Session, error)
	CreateGuestSession(nickname string) (domain.Session, error)
	AcceptSession(sessionID uuid.UUID, agent domain.Participant) (domain.Session, error)
	PostMessage(sessionID uuid.UUID, sender domain.Participant, content string) (domain.Message, error)
	CloseSession(sessionID uuid.UUID) (domain.Session, error)
	QueuePosition(sessionID uuid.UUID) int
	SessionByID(sessionID uuid.UUID) (domain.Session, error)
	Messages(sessionID uuid.UUID) ([]domain.Message, error)
	WaitingCustomers() ([]domain.Session, error)
	ActiveSessionsForAgent(agent domain.Participant) ([]domain.Session, error)
	ActiveSessionForCustomer(customer domain.Participant) (domain.Session, bool, error)
	SetAgentAvailability(agent domain.Participant, available bool) (domain.Participant, error)
}

// INoticeRouter turns one engine transition into addressed notices.
type INoticeRouter interface {
	Routes(e event.DomainEvent) []notify.Notice
}
