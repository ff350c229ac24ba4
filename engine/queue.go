package engine

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/emirpasic/gods/v2/maps/treemap"
)

// ScheduledQueue is the pending FIFO storage for one pipeline stage. It
// is safe for concurrent use by multiple producers (addTask) and, per
// the design, at most one canonical consumer draining getTask() plus the
// follower NCCL loop calling getTask(key) concurrently with the follower
// coordinate loop's addTask — both paths take the same mutex, so the
// structure serializes them itself.
type ScheduledQueue struct {
	stage Stage

	mu sync.Mutex
	// buckets maps -priority to the FIFO run of tasks at that priority,
	// so Buckets.Min() yields the highest-priority bucket first.
	buckets *treemap.Map[int, *list.List]
	// byKey indexes every pending task by key for O(1) getTask(key),
	// pointing at its element within its priority bucket's list.
	byKey map[string]*list.Element

	// creditLimit bounds bytes in flight (0 = unbounded). When the
	// limit is reached, getTask() reports empty even if entries exist
	// (credit gating), per the design's back-pressure note.
	creditLimit int64

	bytesAdded    int64
	bytesTaken    int64
	bytesFinished int64
	seq           int64
}

// NewScheduledQueue creates an empty queue for stage with an optional
// in-flight byte credit limit (0 disables gating).
func NewScheduledQueue(stage Stage, creditLimit int64) *ScheduledQueue {
	return &ScheduledQueue{
		stage:       stage,
		buckets:     treemap.New[int, *list.List](),
		byKey:       make(map[string]*list.Element),
		creditLimit: creditLimit,
	}
}

// AddTask inserts task, preserving priority order; ties are broken by
// enqueue order.
func (q *ScheduledQueue) AddTask(task *Task) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.seq++
	task.enqueuedAt = q.seq

	bucketKey := -task.Priority
	l, ok := q.buckets.Get(bucketKey)
	if !ok {
		l = list.New()
		q.buckets.Put(bucketKey, l)
	}
	el := l.PushBack(task)
	q.byKey[task.Key] = el
	q.bytesAdded += task.Len
}

// inFlight returns bytes taken off the queue but not yet reported
// finished.
func (q *ScheduledQueue) inFlight() int64 {
	return q.bytesTaken - q.bytesFinished
}

// GetTask returns and removes the highest-priority, earliest-enqueued
// pending task, or (nil, false) if the queue is empty or the credit
// window is currently exhausted.
func (q *ScheduledQueue) GetTask() (*Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.creditLimit > 0 && q.inFlight() >= q.creditLimit {
		return nil, false
	}

	key, l, ok := q.buckets.Min()
	if !ok {
		return nil, false
	}
	el := l.Front()
	task := el.Value.(*Task)
	l.Remove(el)
	delete(q.byKey, task.Key)
	if l.Len() == 0 {
		q.buckets.Remove(key)
	}
	q.bytesTaken += task.Len
	return task, true
}

// GetTaskByKey returns and removes the task matching key. It panics if
// no such task is pending: the design guarantees a follower's DO_REDUCE/
// DO_BROADCAST for key is always preceded by that key having already
// been advanced onto this queue, so absence here means the protocol was
// violated upstream.
func (q *ScheduledQueue) GetTaskByKey(key string) *Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	el, ok := q.byKey[key]
	if !ok {
		panic(fmt.Sprintf("engine: getTask(%q) on stage %s found nothing pending", key, q.stage))
	}
	task := el.Value.(*Task)
	delete(q.byKey, key)

	bucketKey := -task.Priority
	l, _ := q.buckets.Get(bucketKey)
	l.Remove(el)
	if l.Len() == 0 {
		q.buckets.Remove(bucketKey)
	}
	q.bytesTaken += task.Len
	return task
}

// ReportFinish records n_bytes as finished for observability and credit
// accounting. Never blocks.
func (q *ScheduledQueue) ReportFinish(nBytes int64) {
	q.mu.Lock()
	q.bytesFinished += nBytes
	q.mu.Unlock()
}

// QueueStats is a point-in-time snapshot of one queue's accounting, used by
// the observability surface.
type QueueStats struct {
	Stage         Stage
	Pending       int
	BytesAdded    int64
	BytesFinished int64
}

// Stats returns a snapshot of this queue's counters.
func (q *ScheduledQueue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Stage:         q.stage,
		Pending:       len(q.byKey),
		BytesAdded:    q.bytesAdded,
		BytesFinished: q.bytesFinished,
	}
}
