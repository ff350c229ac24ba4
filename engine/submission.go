// submission.go - the framework-facing submission surface (§6)
package engine

import (
	"fmt"
)

// CheckInitialized reports whether this Engine has completed Init and is
// not currently shutting down.
func (e *Engine) CheckInitialized() error {
	if !e.started.Load() {
		return ErrNotInitialized
	}
	if e.shuttingDown.Load() {
		return ErrShuttingDown
	}
	return nil
}

// GetContext returns the Context for name, creating an empty
// (not-yet-initialized) one on first reference. Concurrent first
// references to the same name are collapsed by singleflight so exactly
// one Context is ever constructed per name.
func (e *Engine) GetContext(name string) *Context {
	e.ctxMu.Lock()
	if ctx, ok := e.contexts[name]; ok {
		e.ctxMu.Unlock()
		return ctx
	}
	e.ctxMu.Unlock()

	v, _, _ := e.sf.Do(name, func() (any, error) {
		e.ctxMu.Lock()
		defer e.ctxMu.Unlock()
		if ctx, ok := e.contexts[name]; ok {
			return ctx, nil
		}
		ctx := &Context{Name: name}
		e.contexts[name] = ctx
		return ctx, nil
	})
	return v.(*Context)
}

// IsTensorInitialized reports whether name's Context has completed
// init for a tensor of the given total byte size.
func (e *Engine) IsTensorInitialized(name string, size int64) bool {
	e.ctxMu.Lock()
	ctx, ok := e.contexts[name]
	e.ctxMu.Unlock()
	return ok && ctx.initialized && ctx.BuffLen == size
}

// EnqueueTensorInit allocates (if needed) ctx's pinned buffer, sizes its
// key list against the configured partition bound, pushes initial values
// to the PS iff this process is distributed and worker 0, then barriers
// every worker-0 root node, and finally invokes cb. It transitions
// ctx.initialized false -> true exactly once.
func (e *Engine) EnqueueTensorInit(ctx *Context, name string, size int64, cpubuff PinnedBuffer, cb Callback) error {
	if err := e.CheckInitialized(); err != nil {
		return err
	}
	if ctx.initialized {
		return fmt.Errorf("%w: %q already initialized", ErrAlreadyInitialized, name)
	}

	ctx.Name = name
	ctx.BuffLen = size
	n := partitionCount(size, e.cfg.PartitionBound)
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("%s/%d", name, i)
	}
	ctx.KeyList = keys

	if cpubuff != nil {
		ctx.Buffer = cpubuff
		ctx.OwnsBuffer = false
	} else {
		buf, err := e.cfg.Allocator.Alloc(size)
		if err != nil {
			return fmt.Errorf("engine: allocating pinned buffer for %q: %w", name, err)
		}
		ctx.Buffer = buf
		ctx.OwnsBuffer = true
	}

	if e.cfg.Distributed && e.cfg.WorkerID == 0 && e.cfg.IsRoot() {
		e.pushInit(ctx)
		if err := e.cfg.PS.Barrier("workergroup"); err != nil {
			return fmt.Errorf("engine: init barrier for %q: %w", name, err)
		}
	}

	ctx.initialized = true
	if cb != nil {
		cb(StatusOK)
	}
	return nil
}

// EnqueueTensor partitions sub against ctx and schedules every resulting
// slice onto its first stage's queue. If sub.StageList is empty this is
// a legal no-op: the callback fires immediately with OK and nothing is
// enqueued.
func (e *Engine) EnqueueTensor(ctx *Context, sub *Submission) error {
	if err := e.CheckInitialized(); err != nil {
		return err
	}
	if !ctx.initialized {
		return fmt.Errorf("%w: %q", ErrContextNotFound, sub.Name)
	}

	tasks, err := partition(ctx, sub, e.cfg.PartitionBound)
	if err != nil {
		return err
	}

	if len(sub.StageList) == 0 {
		if sub.Callback != nil {
			sub.Callback(StatusOK)
		}
		return nil
	}

	for _, task := range tasks {
		first, _ := task.CurrentStage()
		e.queues[first].AddTask(task)
	}
	return nil
}
