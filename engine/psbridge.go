// psbridge.go - wraps async PS push/pull completions back into stage
// advancement (C7)
package engine

import "github.com/gradsync/gradsync/engine/psclient"

// encodeTaskKeys builds the (keys, lens) pair for task's slice under
// kDefaultPushPull: a slice is itself the atomic PS unit, so it gets
// one key covering the whole slice, keyed by (Key, Offset).
func encodeTaskKeys(task *Task) ([]uint64, []int) {
	return []uint64{psclient.EncodeDefaultKey(task.Key, task.Offset)}, []int{int(task.Len)}
}

// runPushOnce issues an async PS push of task's pinned slice. The
// completion callback advances the task and reports finish; the stage
// loop thread is free to pull the next task immediately rather than
// blocking on the network round trip.
func (e *Engine) runPushOnce(task *Task) {
	keys, lens := encodeTaskKeys(task)
	values := [][]byte{task.Buffer.Bytes()[task.Offset : task.Offset+task.Len]}

	e.cfg.PS.Push(keys, values, lens, func(err error) {
		if err != nil {
			logBackendFatal(StagePush, err)
			panic(&backendFatal{stage: StagePush, err: err})
		}
		e.FinishOrProceed(task)
		e.queues[StagePush].ReportFinish(task.Len)
	})
}

// runPullOnce issues an async PS pull into task's pinned slice. The
// completion closure retains task and its destination queue until it
// invokes advancement, then frees the transient values slice the PS
// client handed back: the PS client's contract is that this closure
// fires exactly once.
func (e *Engine) runPullOnce(task *Task) {
	keys, lens := encodeTaskKeys(task)

	e.cfg.PS.Pull(keys, lens, func(values [][]byte, err error) {
		if err != nil {
			logBackendFatal(StagePull, err)
			panic(&backendFatal{stage: StagePull, err: err})
		}
		dst := task.Buffer.Bytes()[task.Offset : task.Offset+task.Len]
		copy(dst, values[0])
		values = nil // transient values array is now eligible for collection

		e.FinishOrProceed(task)
		e.queues[StagePull].ReportFinish(task.Len)
	})
}

// pushInit pushes the whole pinned buffer of ctx to the PS in per-slice
// chunks, as worker 0's half of enqueue_tensor_init. It blocks until
// every push completes (one ZPush per slice, per the round-trip law in
// the design's testable properties).
func (e *Engine) pushInit(ctx *Context) {
	for i, key := range ctx.KeyList {
		off := int64(i) * e.cfg.PartitionBound
		length := e.cfg.PartitionBound
		if remaining := ctx.BuffLen - off; remaining < length {
			length = remaining
		}
		keys := []uint64{psclient.EncodeDefaultKey(key, off)}
		vals := [][]byte{ctx.Buffer.Bytes()[off : off+length]}
		lens := []int{int(length)}

		done := make(chan error, 1)
		e.cfg.PS.Push(keys, vals, lens, func(err error) { done <- err })
		if err := <-done; err != nil {
			panic(&backendFatal{stage: StagePush, err: err})
		}
	}
}
