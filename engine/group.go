// group.go - collective group tracker and the root/follower NCCL-style
// drivers (C6)
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gradsync/gradsync/engine/collective"
)

// GroupEntry is one batch of slices enqueued under a single
// group-start/group-end, synchronized as a unit. Queues is present only
// for entries the root built (it needs to know which queue to report
// each task's finish against); follower entries leave it nil since a
// follower only ever waits on StageReduce/StageBroadcast.
type GroupEntry struct {
	ID     string
	Tasks  []*Task
	Queues []*ScheduledQueue
	Event  collective.Event
}

// GroupTracker is the single-producer, single-consumer FIFO of in-flight
// groups: the root or follower NCCL loop enqueues, the sync loop
// dequeues, always in enqueue order (a Go channel gives this for free).
type GroupTracker struct {
	ch chan *GroupEntry
}

// NewGroupTracker allocates a tracker with room for depth in-flight
// groups before Enqueue blocks.
func NewGroupTracker(depth int) *GroupTracker {
	return &GroupTracker{ch: make(chan *GroupEntry, depth)}
}

// Enqueue adds g to the back of the tracker.
func (t *GroupTracker) Enqueue(g *GroupEntry) {
	t.ch <- g
}

// Dequeue blocks for the oldest enqueued group, or returns false if ctx
// is done first.
func (t *GroupTracker) Dequeue(ctx context.Context) (*GroupEntry, bool) {
	select {
	case g := <-t.ch:
		return g, true
	case <-ctx.Done():
		return nil, false
	}
}

const emptyGroupBackoff = time.Microsecond

// runRootDriver forms one group per outer pass: for each op in the fixed
// order [REDUCE, BROADCAST], it drains up to cfg.GroupSize tasks from
// the corresponding queue, broadcasts DO_REDUCE/DO_BROADCAST per task
// (only when local_size > 1), and issues the collective call (skipped
// for CPU-device tasks). If any task was added it broadcasts DO_GROUP,
// closes the group, records a blocking event, and enqueues the group;
// otherwise it closes the group immediately and backs off.
func (e *Engine) runRootDriver(ctx context.Context) {
	coll := e.cfg.Collective
	ops := []struct {
		stage Stage
		kind  SignalKind
		root  bool
	}{
		{StageReduce, SignalDoReduce, true},
		{StageBroadcast, SignalDoBroadcast, true},
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := coll.GroupStart(); err != nil {
			slog.Error("collective group_start failed", "error", err)
			panic(&backendFatal{stage: StageReduce, err: err})
		}

		var tasks []*Task
		var queues []*ScheduledQueue

		for _, op := range ops {
			q := e.queues[op.stage]
			for i := 0; i < e.cfg.GroupSize; i++ {
				task, ok := q.GetTask()
				if !ok {
					break
				}
				if e.cfg.LocalSize > 1 {
					e.bus.BroadcastSignal(Signal{Src: e.cfg.LocalRank, Kind: op.kind, Key: task.Key})
				}
				if task.Device != CPUDeviceID {
					if err := e.issueCollective(coll, op.stage, task); err != nil {
						slog.Error("collective call failed", "stage", op.stage, "key", task.Key, "error", err)
						panic(&backendFatal{stage: op.stage, err: err})
					}
				}
				tasks = append(tasks, task)
				queues = append(queues, q)
			}
		}

		if len(tasks) > 0 {
			if e.cfg.LocalSize > 1 {
				e.bus.BroadcastSignal(Signal{Src: e.cfg.LocalRank, Kind: SignalDoGroup})
			}
			if err := coll.GroupEnd(); err != nil {
				panic(&backendFatal{stage: StageReduce, err: err})
			}
			event, err := coll.RecordEvent()
			if err != nil {
				panic(&backendFatal{stage: StageReduce, err: err})
			}
			e.groups.Enqueue(&GroupEntry{ID: uuid.NewString(), Tasks: tasks, Queues: queues, Event: event})
		} else {
			if err := coll.GroupEnd(); err != nil {
				panic(&backendFatal{stage: StageReduce, err: err})
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(emptyGroupBackoff):
			}
		}
	}
}

// issueCollective runs the collective primitive for op's stage against
// task's slice of its pinned buffer.
func (e *Engine) issueCollective(coll collective.Collective, stage Stage, task *Task) error {
	buf := task.Buffer.Bytes()[task.Offset : task.Offset+task.Len]
	switch stage {
	case StageReduce:
		return coll.Reduce(task.Device, buf, e.rootLocalRank())
	case StageBroadcast:
		return coll.Broadcast(task.Device, buf, e.rootLocalRank())
	default:
		return nil
	}
}

func (e *Engine) rootLocalRank() int { return 0 }

// runFollowerNCCLLoop is the non-root counterpart: it enters a group,
// then repeatedly receives signals from the root. On DO_REDUCE/
// DO_BROADCAST it looks up its own matching task by key (which the
// coordinate loop has already advanced onto the named queue), asserts
// exactly one stage remains (BROADCAST must be the intra-host half's
// final stage), and issues the collective call into the open group. On
// DO_GROUP it closes the group, records an event, and enqueues it.
func (e *Engine) runFollowerNCCLLoop(ctx context.Context) {
	coll := e.cfg.Collective
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := coll.GroupStart(); err != nil {
			panic(&backendFatal{stage: StageReduce, err: err})
		}

		var tasks []*Task
		for {
			msg, ok := e.bus.RecvSignal(e.cfg.LocalRank, ctx.Done())
			if !ok {
				return
			}
			if msg.Src != 0 {
				panic("engine: follower received signal from non-root rank")
			}

			switch msg.Kind {
			case SignalDoReduce, SignalDoBroadcast:
				stage := StageReduce
				if msg.Kind == SignalDoBroadcast {
					stage = StageBroadcast
				}
				task := e.queues[stage].GetTaskByKey(msg.Key)
				if len(task.QueueList) != 1 {
					panic("engine: follower task has more than the final intra-host stage remaining at DO_* time")
				}
				if task.Device != CPUDeviceID {
					if err := e.issueCollective(coll, stage, task); err != nil {
						panic(&backendFatal{stage: stage, err: err})
					}
				}
				tasks = append(tasks, task)
			case SignalDoGroup:
				if err := coll.GroupEnd(); err != nil {
					panic(&backendFatal{stage: StageReduce, err: err})
				}
				event, err := coll.RecordEvent()
				if err != nil {
					panic(&backendFatal{stage: StageReduce, err: err})
				}
				e.groups.Enqueue(&GroupEntry{ID: uuid.NewString(), Tasks: tasks, Event: event})
				tasks = nil
				goto nextGroup
			default:
				panic("engine: unexpected signal kind in follower NCCL loop")
			}
		}
	nextGroup:
	}
}

// runSyncLoop blocks on the oldest enqueued group's event; when it
// fires, every task in the group is advanced via FinishOrProceed and
// (for root-built entries) the matching queue's ReportFinish is called.
// The event is destroyed afterward. Because GroupTracker is FIFO,
// groups are synchronized in enqueue order: any task advancement from
// group G happens-before any task advancement from group G+1.
func (e *Engine) runSyncLoop(ctx context.Context) {
	for {
		g, ok := e.groups.Dequeue(ctx)
		if !ok {
			return
		}
		if err := g.Event.Synchronize(ctx); err != nil {
			slog.Error("collective event sync failed", "group", g.ID, "error", err)
			panic(&backendFatal{stage: StageReduce, err: err})
		}
		for i, task := range g.Tasks {
			e.FinishOrProceed(task)
			if g.Queues != nil {
				g.Queues[i].ReportFinish(task.Len)
			}
		}
		g.Event.Destroy()
	}
}
