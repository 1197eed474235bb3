// Package sink bridges the notifier and a live transport connection.
package sink

import (
	"context"

	"helpdesk/notify"
)

// ChannelSink buffers routed notices for one connection. The transport
// handler drains Notices and pushes each one over the wire.
type ChannelSink struct {
	Notices chan notify.Notice
}

func NewChannelSink(bufferSize int) *ChannelSink {
	return &ChannelSink{Notices: make(chan notify.Notice, bufferSize)}
}

// Consume is called by the notifier fan-out. It hands the notice to the
// connection that owns this sink; the transport handler takes it from
// there. A full buffer drops the notice rather than stalling fan-out for
// the other recipients.
func (s *ChannelSink) Consume(ctx context.Context, n notify.Notice) error {
	select {
	case s.Notices <- n:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
