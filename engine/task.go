package engine

// Task is one pipeline unit: a contiguous byte range of a tensor that
// flows through the stages named in QueueList. A slice is at most in one
// queue at a time; QueueList[0] is the only stage that currently owns
// it, and stages are removed from the head as the slice advances
// (invariant: len(QueueList) is strictly decreasing over time).
type Task struct {
	Key      string
	Offset   int64
	Len      int64
	Device   int
	Priority int
	Version  int64

	Input  Tensor
	Output Tensor

	// Buffer is the pinned host buffer of this task's Context, shared
	// by every sibling slice.
	Buffer PinnedBuffer

	// Counter is the completion fence shared by every sibling slice of
	// the same submission.
	Counter *Counter

	// Callback is shared with sibling slices; only the slice whose
	// Counter.Advance observes the last completion actually invokes it
	// (via FinishOrProceed).
	Callback Callback

	// QueueList names the stages this slice has yet to traverse.
	// QueueList[0] is the current stage.
	QueueList []Stage

	// enqueuedAt is the ScheduledQueue sequence number assigned at
	// AddTask. The queue itself orders tasks of equal priority by their
	// position in the bucket's list; this field is not read for that.
	enqueuedAt int64
}

// CurrentStage returns the stage that owns this task, or false if the
// task has traversed every stage.
func (t *Task) CurrentStage() (Stage, bool) {
	if len(t.QueueList) == 0 {
		return 0, false
	}
	return t.QueueList[0], true
}

// popStage removes and returns the head stage. Panics if QueueList is
// already empty: callers must only pop a task they hold by virtue of
// having just dequeued it from its current stage's queue.
func (t *Task) popStage() Stage {
	s := t.QueueList[0]
	t.QueueList = t.QueueList[1:]
	return s
}
