package engine

import "fmt"

// Tensor is a framework-owned device tensor handle. The engine never
// stores one inside a Context; it only threads input/output handles
// through a Task so a stage can issue the matching memcpy or collective
// call against the right device memory.
type Tensor interface {
	// Device returns the GPU device id this tensor lives on, or
	// CPUDeviceID.
	Device() int
	// Size returns the tensor's total length in bytes.
	Size() int64
}

// PinnedBuffer is host memory a GPU DMA engine can copy into/out of
// without an intermediate staging copy. Owned buffers are allocated (and
// freed) by the engine; borrowed buffers are supplied by the caller and
// outlive the Context.
type PinnedBuffer interface {
	// Bytes exposes the buffer for memcpy and PS push/pull.
	Bytes() []byte
	// Free releases the buffer. Only called when the Context owns it.
	Free()
}

// Context is the immutable-after-init descriptor for one named tensor.
// It is created lazily on first registration of a name and lives until
// shutdown.
type Context struct {
	Name string

	// BuffLen is the tensor's total byte length, fixed at init.
	BuffLen int64

	// KeyList is the ordered list of slice keys, one per partition,
	// fixed at init: len(KeyList) == ceil(BuffLen / partition bound).
	KeyList []string

	// Buffer is the pinned host buffer backing every slice of this
	// tensor. Present only once initialized.
	Buffer PinnedBuffer
	// OwnsBuffer is true if the engine allocated Buffer itself (and so
	// must free it on shutdown); false if the caller supplied it.
	OwnsBuffer bool

	// initialized transitions false -> true exactly once, guarded by
	// the registry's context-creation path.
	initialized bool
}

// Initialized reports whether this Context has completed its one-time
// initialization.
func (c *Context) Initialized() bool {
	return c.initialized
}

// partitionCount returns the number of slices BuffLen splits into under
// bound, matching the partitioner's own arithmetic so the registry can
// size KeyList before any slice exists.
func partitionCount(size, bound int64) int {
	if bound <= 0 {
		panic(fmt.Sprintf("engine: non-positive partition bound %d", bound))
	}
	if size == 0 {
		return 0
	}
	return int((size + bound - 1) / bound)
}
