// Package collective declares the GPU collective-library boundary the
// engine drives but does not implement. A real binding wraps NCCL (or an
// equivalent) group-start/group-end, reduce, broadcast, and event
// primitives; this package only states the contract.
package collective

import "context"

// Op identifies a collective primitive.
type Op int

const (
	OpReduce Op = iota
	OpBroadcast
)

// Stream is an opaque handle to a GPU stream. The engine only obtains
// the collective stream (CollectiveStream); the COPY_D2H and COPY_H2D
// stage loops both issue their memcpys on that stream.
type Stream interface {
	// MemcpyAsync issues an async device<->host copy of length bytes
	// starting at offset into/from dst.
	MemcpyAsync(dst []byte, deviceOffset, length int64, toDevice bool) error
	// Synchronize blocks until every operation queued on this stream
	// has completed.
	Synchronize() error
}

// Event captures the completion of everything queued on a stream up to
// the point RecordEvent was called.
type Event interface {
	// Synchronize blocks until the event fires.
	Synchronize(ctx context.Context) error
	// Destroy releases backend resources. Safe to call once, after
	// Synchronize has returned.
	Destroy()
}

// Collective is the opaque GPU collective library the engine consumes.
// Implementations are expected to be safe for use from a single goroutine
// per stream (the root NCCL driver and the follower NCCL loop each own
// their stream/group lifecycle independently).
type Collective interface {
	// GroupStart begins a new NCCL-style group; calls issued before the
	// matching GroupEnd are batched together.
	GroupStart() error
	// GroupEnd closes the most recent GroupStart.
	GroupEnd() error
	// Reduce reduces buf (length bytes) from every local rank to root's
	// copy, for device deviceID, under the currently open group.
	Reduce(deviceID int, buf []byte, root int) error
	// Broadcast distributes root's copy of buf to every local rank,
	// under the currently open group.
	Broadcast(deviceID int, buf []byte, root int) error
	// CollectiveStream returns the stream collective ops run on.
	CollectiveStream() Stream
	// RecordEvent records an event on the collective stream marking
	// everything issued so far as complete once it fires.
	RecordEvent() (Event, error)
}
