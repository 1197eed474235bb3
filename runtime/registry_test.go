package runtime_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"helpdesk/notify"
	"helpdesk/runtime"
)

type recordingSink struct {
	notices []notify.Notice
}

func (s *recordingSink) Consume(_ context.Context, n notify.Notice) error {
	s.notices = append(s.notices, n)
	return nil
}

func Test_Registry_SubscribeAndResolve(t *testing.T) {
	req := require.New(t)
	registry := runtime.NewRegistry()

	agentSink := &recordingSink{}
	guestSink := &recordingSink{}
	registry.Subscribe("conn-agent", agentSink,
		notify.UserSessionQueue("alice"), notify.QueueUpdatesTopic)
	registry.Subscribe("conn-guest", guestSink, notify.GuestTopic("Jo Jo"))

	req.Len(registry.SinksFor(notify.QueueUpdatesTopic), 1)
	req.Len(registry.SinksFor(notify.UserSessionQueue("alice")), 1)
	req.Empty(registry.SinksFor(notify.UserSessionQueue("nobody")))
}

func Test_Registry_AddSubscription(t *testing.T) {
	req := require.New(t)
	registry := runtime.NewRegistry()
	destination := notify.SessionMessagesTopic(uuid.New())

	// Attaching to an unknown connection is a no-op
	registry.AddSubscription("ghost", destination)
	req.Empty(registry.SinksFor(destination))

	sink := &recordingSink{}
	registry.Subscribe("conn-guest", sink, notify.GuestTopic("Jo Jo"))
	registry.AddSubscription("conn-guest", destination)
	req.Len(registry.SinksFor(destination), 1)
}

func Test_Registry_Unsubscribe_CleansEverything(t *testing.T) {
	req := require.New(t)
	registry := runtime.NewRegistry()

	shared := notify.QueueUpdatesTopic
	registry.Subscribe("conn-a", &recordingSink{}, shared, notify.UserSessionQueue("alice"))
	registry.Subscribe("conn-b", &recordingSink{}, shared)

	registry.Unsubscribe("conn-a")

	req.Len(registry.SinksFor(shared), 1)
	req.Empty(registry.SinksFor(notify.UserSessionQueue("alice")))

	registry.Unsubscribe("conn-b")
	req.Empty(registry.SinksFor(shared))

	// Unsubscribing twice must not blow up
	registry.Unsubscribe("conn-b")
}
