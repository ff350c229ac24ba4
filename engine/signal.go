package engine

// SignalKind is one of the five intra-host control messages exchanged
// between a root and its followers while brokering a collective group.
type SignalKind int

const (
	SignalReduceReady SignalKind = iota
	SignalBcastReady
	SignalDoReduce
	SignalDoBroadcast
	SignalDoGroup
)

func (k SignalKind) String() string {
	switch k {
	case SignalReduceReady:
		return "REDUCE_READY"
	case SignalBcastReady:
		return "BCAST_READY"
	case SignalDoReduce:
		return "DO_REDUCE"
	case SignalDoBroadcast:
		return "DO_BROADCAST"
	case SignalDoGroup:
		return "DO_GROUP"
	default:
		return "UNKNOWN_SIGNAL"
	}
}

// Signal is the intra-host wire message. On the wire it is the 12-byte
// {int src, int signal, int key} triple from §6; in-process, root and
// followers exchange it directly over Go channels since the design never
// asks the core to cross a host boundary for this protocol. Key is
// unused for SignalDoGroup.
type Signal struct {
	Src  int
	Kind SignalKind
	Key  string
}

// SignalBus is the one-to-many broadcast (root -> followers) and
// one-to-one (follower -> root) channel fabric of §4.5/§5. Every local
// rank gets its own inbox so recvSignal blocks that rank alone; sends
// are FIFO per sender, matching the ordering guarantee followers rely on
// to see DO_* messages in broadcast order.
type SignalBus struct {
	localSize int
	inboxes   []chan Signal
}

// NewSignalBus allocates an inbox per local rank. Depth bounds how many
// outstanding signals a rank may have buffered; the design's stages
// never need more than a handful in flight at once.
func NewSignalBus(localSize, depth int) *SignalBus {
	b := &SignalBus{
		localSize: localSize,
		inboxes:   make([]chan Signal, localSize),
	}
	for i := range b.inboxes {
		b.inboxes[i] = make(chan Signal, depth)
	}
	return b
}

// SendSignal delivers msg to dst's inbox.
func (b *SignalBus) SendSignal(dst int, msg Signal) {
	b.inboxes[dst] <- msg
}

// BroadcastSignal delivers msg to every follower (every local rank other
// than msg.Src). Only meaningful when localSize > 1; the root's driver
// skips calling this entirely when it is not, per the design's stated
// local_size==1 shortcut.
func (b *SignalBus) BroadcastSignal(msg Signal) {
	for rank, inbox := range b.inboxes {
		if rank == msg.Src {
			continue
		}
		inbox <- msg
	}
}

// RecvSignal blocks until a signal arrives for rank, or done is closed
// (in which case ok is false so the caller can honor shutdown).
func (b *SignalBus) RecvSignal(rank int, done <-chan struct{}) (Signal, bool) {
	select {
	case msg := <-b.inboxes[rank]:
		return msg, true
	case <-done:
		return Signal{}, false
	}
}
