// services/link/link.go
package link

import (
	"context"

	"armcontrol-go/bus"
	"armcontrol-go/proto"
	"armcontrol-go/x/timex"
)

// Port is the raw serial transport capability. Implementations adapt a
// concrete UART (or a host pipe) and must never block the service loop:
// RecvSome returns whatever is available, TryWrite takes what it can
// within a bounded budget and reports how much.
type Port interface {
	// Readable is signalled when bytes may be available.
	Readable() <-chan struct{}
	// RecvSome copies available bytes into p without blocking.
	RecvSome(p []byte) int
	// TryWrite queues as much of p as the transport accepts within a
	// bounded time and returns the count. Anything short of len(p)
	// means congestion and the caller discards the frame.
	TryWrite(p []byte) int
}

// Bus topics.
var (
	topicCmd   = bus.T("arm", "cmd")
	topicTx    = bus.T("link", "tx")
	topicState = bus.T("link", "state")
)

// Run starts the link service and blocks until ctx is cancelled. Inbound
// bytes are framed and published to the command topic (framing errors
// included, so they get acknowledged); outbound frames are written
// best-effort: a backed-up transport costs the current frame, never a
// stalled loop or an unbounded queue.
func Run(ctx context.Context, conn *bus.Connection, port Port) {
	s := &service{conn: conn, port: port}
	s.loop(ctx)
}

type service struct {
	conn *bus.Connection
	port Port

	acc     proto.Accumulator
	txDrops uint32
}

func (s *service) loop(ctx context.Context) {
	txSub := s.conn.Subscribe(topicTx)
	defer s.conn.Unsubscribe(txSub)

	s.publishState("ready", "link_up")

	buf := make([]byte, proto.PacketMaxLen)
	for {
		select {
		case <-ctx.Done():
			s.publishState("stopped", "context_cancelled")
			return

		case <-s.port.Readable():
			n := s.port.RecvSome(buf)
			if n <= 0 {
				continue
			}
			for _, fr := range s.acc.Push(buf[:n]) {
				s.conn.Publish(s.conn.NewMessage(topicCmd, fr, false))
			}

		case msg := <-txSub.Channel():
			b, ok := msg.Payload.([]byte)
			if !ok || len(b) == 0 {
				continue
			}
			if s.port.TryWrite(b) < len(b) {
				// Best-effort: a congested transport costs the current
				// frame, never a queue.
				s.txDrops++
			}
		}
	}
}

func (s *service) publishState(level, status string) {
	s.conn.Publish(s.conn.NewMessage(topicState, map[string]any{
		"level": level, "status": status, "tx_drops": s.txDrops, "ts_ms": timex.NowMs(),
	}, true))
}
