package engine

import (
	"context"
	"sync"

	"github.com/gradsync/gradsync/engine/collective"
	"github.com/gradsync/gradsync/engine/psclient"
)

// fakeTensor is a minimal Tensor for tests.
type fakeTensor struct {
	device int
	size   int64
}

func (f fakeTensor) Device() int { return f.device }
func (f fakeTensor) Size() int64 { return f.size }

// fakeBuffer is an in-memory PinnedBuffer.
type fakeBuffer struct {
	mu   sync.Mutex
	data []byte
	free bool
}

func newFakeBuffer(n int64) *fakeBuffer { return &fakeBuffer{data: make([]byte, n)} }
func (b *fakeBuffer) Bytes() []byte     { return b.data }
func (b *fakeBuffer) Free() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.free = true
}

// fakeAllocator hands out fakeBuffers.
type fakeAllocator struct{}

func (fakeAllocator) Alloc(n int64) (PinnedBuffer, error) { return newFakeBuffer(n), nil }

// fakeStream is a no-op GPU stream.
type fakeStream struct{}

func (fakeStream) MemcpyAsync(dst []byte, deviceOffset, length int64, toDevice bool) error {
	return nil
}
func (fakeStream) Synchronize() error { return nil }

// fakeEvent fires immediately.
type fakeEvent struct{}

func (fakeEvent) Synchronize(ctx context.Context) error { return nil }
func (fakeEvent) Destroy()                              {}

// fakeCollective counts reduce/broadcast calls and never actually
// touches buf contents (correctness of the wire-level collective math
// is the collective library's contract, not the engine's).
type fakeCollective struct {
	mu        sync.Mutex
	reduces   int
	broadcast int
	groups    int
}

func (f *fakeCollective) GroupStart() error {
	f.mu.Lock()
	f.groups++
	f.mu.Unlock()
	return nil
}
func (f *fakeCollective) GroupEnd() error { return nil }
func (f *fakeCollective) Reduce(deviceID int, buf []byte, root int) error {
	f.mu.Lock()
	f.reduces++
	f.mu.Unlock()
	return nil
}
func (f *fakeCollective) Broadcast(deviceID int, buf []byte, root int) error {
	f.mu.Lock()
	f.broadcast++
	f.mu.Unlock()
	return nil
}
func (f *fakeCollective) CollectiveStream() collective.Stream {
	return fakeStream{}
}
func (f *fakeCollective) RecordEvent() (collective.Event, error) {
	return fakeEvent{}, nil
}

var _ collective.Collective = (*fakeCollective)(nil)
var _ collective.Stream = fakeStream{}
var _ collective.Event = fakeEvent{}

// fakePS is a synchronous-under-the-hood PSClient that still honors the
// callback contract (completion fires exactly once, called directly on
// the caller's goroutine before Push/Pull returns).
type fakePS struct {
	mu       sync.Mutex
	pushes   int
	barriers int
	store    map[uint64][]byte
}

func newFakePS() *fakePS { return &fakePS{store: make(map[uint64][]byte)} }

func (p *fakePS) Push(keys []uint64, values [][]byte, lens []int, done psclient.PushCompletion) {
	p.mu.Lock()
	for i, k := range keys {
		buf := make([]byte, lens[i])
		copy(buf, values[i])
		p.store[k] = buf
	}
	p.pushes++
	p.mu.Unlock()
	done(nil)
}

func (p *fakePS) Pull(keys []uint64, lens []int, done psclient.PullCompletion) {
	p.mu.Lock()
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = p.store[k]
	}
	p.mu.Unlock()
	done(out, nil)
}

func (p *fakePS) Wait() {}
func (p *fakePS) Barrier(group string) error {
	p.mu.Lock()
	p.barriers++
	p.mu.Unlock()
	return nil
}
func (p *fakePS) Close() error { return nil }

var _ psclient.Client = (*fakePS)(nil)
var _ Tensor = fakeTensor{}
var _ PinnedAllocator = fakeAllocator{}
var _ PinnedBuffer = (*fakeBuffer)(nil)
