package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"helpdesk/contract"
	"helpdesk/domain"
	"helpdesk/domain/event"
	"helpdesk/mocks"
	"helpdesk/notify"
)

func TestNotifier_Fanout(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRouter := mocks.NewMockINoticeRouter(ctrl)
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockSink := mocks.NewMockEventSink(ctrl)

	notifier := NewNotifier(log, nil, mockRouter, mockRegistry, time.Second)

	evt := event.AgentAvailabilityChanged{Agent: domain.Participant{Username: "alice"}}
	notice := notify.Notice{Destination: notify.QueueUpdatesTopic, Payload: "payload"}

	// Given one routed notice and two subscribers behind its destination
	mockRouter.EXPECT().Routes(evt).Return([]notify.Notice{notice}).Times(1)
	mockRegistry.EXPECT().SinksFor(notify.QueueUpdatesTopic).
		Return([]contract.EventSink{mockSink, mockSink}).Times(1)

	delivered := 0
	mockSink.EXPECT().Consume(gomock.Any(), notice).
		DoAndReturn(func(ctx context.Context, n notify.Notice) error {
			delivered++
			return nil
		}).
		Times(2)

	// When the event is fanned out
	notifier.Fanout(context.Background(), evt)

	// Then every subscriber got its copy
	req.Equal(2, delivered)
}

func TestNotifier_Fanout_NoSubscriber(t *testing.T) {
	log := slog.Default()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRouter := mocks.NewMockINoticeRouter(ctrl)
	mockRegistry := mocks.NewMockIRegistry(ctrl)

	notifier := NewNotifier(log, nil, mockRouter, mockRegistry, time.Second)

	evt := event.AgentAvailabilityChanged{}
	notice := notify.Notice{Destination: notify.QueueUpdatesTopic}

	// An empty destination is skipped without any delivery attempt
	mockRouter.EXPECT().Routes(evt).Return([]notify.Notice{notice}).Times(1)
	mockRegistry.EXPECT().SinksFor(notify.QueueUpdatesTopic).Return(nil).Times(1)

	notifier.Fanout(context.Background(), evt)
}

func TestNotifier_Fanout_SinkTimeout(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRouter := mocks.NewMockINoticeRouter(ctrl)
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	stuckSink := mocks.NewMockEventSink(ctrl)

	sinkTimeout := 20 * time.Millisecond
	notifier := NewNotifier(log, nil, mockRouter, mockRegistry, sinkTimeout)

	evt := event.AgentAvailabilityChanged{}
	notice := notify.Notice{Destination: notify.QueueUpdatesTopic}

	mockRouter.EXPECT().Routes(evt).Return([]notify.Notice{notice}).Times(1)
	mockRegistry.EXPECT().SinksFor(notify.QueueUpdatesTopic).
		Return([]contract.EventSink{stuckSink}).Times(1)

	// Given a sink that never drains: the per-delivery timeout frees the
	// fan-out instead of stalling it forever
	stuckSink.EXPECT().Consume(gomock.Any(), notice).
		DoAndReturn(func(ctx context.Context, n notify.Notice) error {
			<-ctx.Done()
			return ctx.Err()
		}).
		Times(1)

	start := time.Now()
	notifier.Fanout(context.Background(), evt)
	req.Less(time.Since(start), time.Second)
}

func TestNotifier_Run_StopsOnContextAndClosedChannel(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRouter := mocks.NewMockINoticeRouter(ctrl)
	mockRegistry := mocks.NewMockIRegistry(ctrl)

	events := make(chan event.DomainEvent, 1)
	notifier := NewNotifier(log, events, mockRouter, mockRegistry, time.Second)

	// Given one buffered event drained before shutdown
	evt := event.AgentAvailabilityChanged{}
	mockRouter.EXPECT().Routes(evt).Return(nil).Times(1)
	events <- evt

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- notifier.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("notifier should stop when the context is canceled")
	}

	// A closed event channel also terminates the worker cleanly
	close(events)
	req.NoError(notifier.Run(context.Background()))
}
