package collective

import "context"

// Loopback is a degenerate Collective for local_size == 1: with no peer
// ranks to reduce or broadcast against, every op is the identity and every
// copy is already in place. It exists so cmd/gradsyncd can run end-to-end
// on a single process without a real GPU collective binding; it is not
// meant to stand in for NCCL on an actual multi-GPU host.
type Loopback struct{}

// NewLoopback returns a Collective usable wherever local_size is 1.
func NewLoopback() *Loopback { return &Loopback{} }

func (*Loopback) GroupStart() error { return nil }
func (*Loopback) GroupEnd() error   { return nil }

// Reduce is a no-op: a single rank's value is already the reduction.
func (*Loopback) Reduce(deviceID int, buf []byte, root int) error { return nil }

// Broadcast is a no-op: a single rank's value is already what it would
// receive.
func (*Loopback) Broadcast(deviceID int, buf []byte, root int) error { return nil }

func (*Loopback) CollectiveStream() Stream { return loopbackStream{} }

func (*Loopback) RecordEvent() (Event, error) { return loopbackEvent{}, nil }

type loopbackStream struct{}

func (loopbackStream) MemcpyAsync(dst []byte, deviceOffset, length int64, toDevice bool) error {
	return nil
}

func (loopbackStream) Synchronize() error { return nil }

type loopbackEvent struct{}

func (loopbackEvent) Synchronize(ctx context.Context) error { return nil }
func (loopbackEvent) Destroy()                              {}
