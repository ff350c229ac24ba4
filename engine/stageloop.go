// stageloop.go - stage loops and the single advancement primitive (C4)
package engine

import (
	"context"
	"log/slog"
	"time"
)

// FinishOrProceed is the single advancement primitive every stage uses
// once its action completes. It pops the head stage from task; if
// another stage remains, the task is handed to that stage's queue,
// otherwise the shared counter is advanced and, for the slice that
// observes the last completion, the tensor's callback fires with OK.
func (e *Engine) FinishOrProceed(task *Task) {
	task.popStage()
	if next, ok := task.CurrentStage(); ok {
		e.queues[next].AddTask(task)
		return
	}
	if v := task.Counter.Advance(); v == task.Counter.TotalPartNum-1 {
		task.Callback(StatusOK)
	}
}

// pollTask drains the next task for stage, backing off ~1us when the
// queue is empty rather than blocking, per the design's polling model.
// It returns (nil, false) if ctx is done.
func (e *Engine) pollTask(ctx context.Context, stage Stage) (*Task, bool) {
	for {
		if task, ok := e.queues[stage].GetTask(); ok {
			return task, true
		}
		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(emptyGroupBackoff):
		}
	}
}

// runStageLoop drives the root-only copy/PS stages: COPY_D2H, PUSH,
// PULL, COPY_H2D. PUSH and PULL schedule a deferred advance from the PS
// client's completion callback (see psbridge.go) instead of advancing
// inline.
func (e *Engine) runStageLoop(ctx context.Context, stage Stage) {
	for {
		task, ok := e.pollTask(ctx, stage)
		if !ok {
			return
		}

		switch stage {
		case StageCopyD2H:
			e.runCopy(task, true)
			e.FinishOrProceed(task)
			e.queues[stage].ReportFinish(task.Len)
		case StageCopyH2D:
			e.runCopy(task, false)
			e.FinishOrProceed(task)
			e.queues[stage].ReportFinish(task.Len)
		case StagePush:
			e.runPushOnce(task)
		case StagePull:
			e.runPullOnce(task)
		default:
			panic("engine: runStageLoop called for a non-copy/PS stage")
		}
	}
}

// runCopy performs the async device<->pinned-host memcpy for task on the
// collective stream (the Collective interface exposes no separate copy
// stream, so COPY_D2H and COPY_H2D share that one stream) and
// synchronizes inline, skipping the call entirely for CPU-device tasks
// (which still traverse the stage for ordering).
func (e *Engine) runCopy(task *Task, toHost bool) {
	if task.Device == CPUDeviceID {
		return
	}
	stream := e.cfg.Collective.CollectiveStream()
	buf := task.Buffer.Bytes()[task.Offset : task.Offset+task.Len]
	if err := stream.MemcpyAsync(buf, task.Offset, task.Len, !toHost); err != nil {
		panic(&backendFatal{stage: StageCopyD2H, err: err})
	}
	if err := stream.Synchronize(); err != nil {
		panic(&backendFatal{stage: StageCopyD2H, err: err})
	}
}

// runCoordLoop is the follower coordinate loop for StageCoordReduce or
// StageCoordBroadcast (one goroutine per coordinate stage). On receipt
// of a task it advances the task first -- landing it on the matching
// REDUCE/BROADCAST queue -- so the root-driven DO_* signal is guaranteed
// to find it by key, then announces readiness to the root, then reports
// the coordinate stage's own finish.
func (e *Engine) runCoordLoop(ctx context.Context, stage Stage) {
	ready := SignalReduceReady
	if stage == StageCoordBroadcast {
		ready = SignalBcastReady
	}

	for {
		task, ok := e.pollTask(ctx, stage)
		if !ok {
			return
		}

		key := task.Key
		length := task.Len
		e.FinishOrProceed(task)
		e.bus.SendSignal(0, Signal{Src: e.cfg.LocalRank, Kind: ready, Key: key})
		e.queues[stage].ReportFinish(length)
	}
}

// logBackendFatal logs a backend error per the design's "backend errors
// are fatal" taxonomy; it does not panic itself, the caller panics next.
func logBackendFatal(stage Stage, err error) {
	slog.Error("fatal backend error", "stage", stage, "error", err)
}
