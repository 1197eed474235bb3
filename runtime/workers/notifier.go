package workers

import (
	"context"
	"log/slog"
	"time"

	"helpdesk/contract"
	"helpdesk/domain/event"
)

// Notifier is the fan-out step: it drains the engine's transition stream,
// asks the router for the addressed notices of each event, and delivers
// every notice to the sinks subscribed to its destination.
//
// Delivery is best-effort with no guarantees regarding ordering across
// destinations, durability, or retries. The Notifier is not a message
// broker; a dead connection loses its notices.
//
// Notifier is safe for concurrent use by multiple goroutines.
type Notifier struct {
	log         *slog.Logger
	events      <-chan event.DomainEvent
	router      contract.INoticeRouter
	registry    contract.IRegistry
	sinkTimeout time.Duration
}

func NewNotifier(log *slog.Logger, events <-chan event.DomainEvent,
	router contract.INoticeRouter, registry contract.IRegistry,
	sinkTimeout time.Duration) Notifier {
	return Notifier{
		log:         log,
		events:      events,
		router:      router,
		registry:    registry,
		sinkTimeout: sinkTimeout,
	}
}

func (w Notifier) Run(ctx context.Context) error {
	for {
		select {
		case evt, ok := <-w.events:
			if !ok {
				return nil
			}
			w.Fanout(ctx, evt)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping notifier")
			return nil
		}
	}
}

// Fanout delivers one event to every addressed sink. Each delivery gets
// its own timeout so one stuck connection cannot stall the others behind
// it.
func (w Notifier) Fanout(ctx context.Context, evt event.DomainEvent) {
	for _, notice := range w.router.Routes(evt) {
		sinks := w.registry.SinksFor(notice.Destination)
		if len(sinks) == 0 {
			w.log.Debug("no subscriber for destination",
				"destination", notice.Destination, "kind", evt.Kind())
			continue
		}
		for _, sink := range sinks {
			deliveryCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
			if err := sink.Consume(deliveryCtx, notice); err != nil {
				w.log.Warn("notice delivery failed",
					"destination", notice.Destination,
					"kind", evt.Kind(),
					"error", err)
			}
			cancel()
		}
	}
}
