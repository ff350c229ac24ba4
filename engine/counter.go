package engine

import "sync/atomic"

// Status is the outcome delivered to a tensor's completion callback.
// The design currently defines only OK: any backend failure is fatal
// rather than being surfaced through this type (see errors.go).
type Status int

const (
	StatusOK Status = iota
)

// Callback is invoked exactly once per submitted tensor, by whichever
// slice's advancement observes the last completion.
type Callback func(Status)

// Counter is the completion fence shared by every slice of one submitted
// tensor. It is constructed at 0 and is not reusable: a second call to
// Advance past TotalPartNum has no defined behavior (the caller must
// never generate more advances than TotalPartNum). It holds no callback
// of its own -- the user callback lives on Task, shared by every sibling
// slice, and FinishOrProceed invokes it on the terminal Advance.
type Counter struct {
	n            atomic.Int32
	TotalPartNum int32
}

// NewCounter creates a Counter for a submission split into totalPartNum
// slices.
func NewCounter(totalPartNum int) *Counter {
	return &Counter{TotalPartNum: int32(totalPartNum)}
}

// Advance returns the pre-increment value. Atomic increment guarantees
// exactly one caller ever observes TotalPartNum-1, so FinishOrProceed
// can invoke the callback on that observation without further locking.
func (c *Counter) Advance() int32 {
	return c.n.Add(1) - 1
}
