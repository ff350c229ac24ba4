package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gradsync/gradsync/engine/psclient"
)

func mkPushPullTask(key string, buf PinnedBuffer, queueList []Stage) *Task {
	return &Task{
		Key:       key,
		Offset:    0,
		Len:       4,
		Device:    CPUDeviceID,
		Buffer:    buf,
		Counter:   NewCounter(1),
		Callback:  func(Status) {},
		QueueList: queueList,
	}
}

func TestRunPushOnceAdvancesTaskAndReportsFinish(t *testing.T) {
	e := &Engine{
		cfg:    Config{PS: newFakePS()},
		queues: map[Stage]*ScheduledQueue{StagePush: NewScheduledQueue(StagePush, 0)},
	}
	buf := newFakeBuffer(4)
	copy(buf.Bytes(), []byte{1, 2, 3, 4})
	task := mkPushPullTask("T/0", buf, []Stage{StagePush})

	e.runPushOnce(task)

	require.Eventually(t, func() bool {
		return e.queues[StagePush].Stats().BytesFinished == 4
	}, time.Second, time.Millisecond)
	require.Empty(t, task.QueueList)

	ps := e.cfg.PS.(*fakePS)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	require.Equal(t, 1, ps.pushes)
}

func TestRunPullOnceCopiesValueIntoBuffer(t *testing.T) {
	ps := newFakePS()
	key := psclient.EncodeDefaultKey("T/0", 0)
	ps.store[key] = []byte{9, 9, 9, 9}

	e := &Engine{
		cfg:    Config{PS: ps},
		queues: map[Stage]*ScheduledQueue{StagePull: NewScheduledQueue(StagePull, 0)},
	}
	buf := newFakeBuffer(4)
	task := mkPushPullTask("T/0", buf, []Stage{StagePull})

	e.runPullOnce(task)

	require.Eventually(t, func() bool {
		return e.queues[StagePull].Stats().BytesFinished == 4
	}, time.Second, time.Millisecond)
	require.Equal(t, []byte{9, 9, 9, 9}, buf.Bytes())
}

func TestPushInitPushesOnePerPartitionThenReturns(t *testing.T) {
	ps := newFakePS()
	e := &Engine{cfg: Config{PS: ps, PartitionBound: 2}}
	ctx := &Context{
		Name:    "T",
		BuffLen: 5,
		KeyList: []string{"T/0", "T/1", "T/2"},
		Buffer:  newFakeBuffer(5),
	}

	e.pushInit(ctx)

	ps.mu.Lock()
	defer ps.mu.Unlock()
	require.Equal(t, 3, ps.pushes)
	require.Len(t, ps.store, 3)
}
