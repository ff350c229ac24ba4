package engine

import "encoding/json"

// Stage identifies one step of a slice's pipeline. A Task's queue_list
// names the stages it has yet to traverse; queue_list[0] is always the
// stage that currently owns the task.
type Stage int

const (
	// StageCopyD2H copies a slice from device memory into its context's
	// pinned host buffer. Root only, distributed only.
	StageCopyD2H Stage = iota
	// StagePush issues an async PS push of the pinned slice. Root only.
	StagePush
	// StagePull issues an async PS pull into the pinned slice. Root only.
	StagePull
	// StageCopyH2D copies a slice back from the pinned buffer to device
	// memory. Root only, distributed only.
	StageCopyH2D
	// StageReduce runs the intra-host reduce-to-root collective.
	StageReduce
	// StageBroadcast runs the intra-host broadcast-from-root collective.
	StageBroadcast
	// StageCoordReduce is the follower-only stage that hands a slice to
	// StageReduce and announces REDUCE_READY to the root.
	StageCoordReduce
	// StageCoordBroadcast is the follower-only stage that hands a slice
	// to StageBroadcast and announces BCAST_READY to the root.
	StageCoordBroadcast
)

// String renders a Stage for logs.
func (s Stage) String() string {
	switch s {
	case StageCopyD2H:
		return "COPY_D2H"
	case StagePush:
		return "PUSH"
	case StagePull:
		return "PULL"
	case StageCopyH2D:
		return "COPY_H2D"
	case StageReduce:
		return "REDUCE"
	case StageBroadcast:
		return "BROADCAST"
	case StageCoordReduce:
		return "COORD_REDUCE"
	case StageCoordBroadcast:
		return "COORD_BROADCAST"
	default:
		return "UNKNOWN_STAGE"
	}
}

// MarshalJSON renders a Stage by name, so the observability surface's
// /debug/queues response reads as REDUCE rather than 4.
func (s Stage) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// CPUDeviceID marks a task whose slice lives on the host rather than a
// GPU: it still walks every stage for ordering, but skips memcpy and
// collective calls at each one.
const CPUDeviceID = -1

// RootStagesDistributed is the full pipeline a root, distributed node runs for one
// slice, per the data-flow table in the design.
func RootStagesDistributed() []Stage {
	return []Stage{StageCopyD2H, StagePush, StagePull, StageCopyH2D}
}

// RootStagesLocal is the pipeline a root, non-distributed node runs.
func RootStagesLocal() []Stage {
	return []Stage{StageReduce, StageBroadcast}
}

// FollowerReduceStages is the intra-host half a non-root node runs for a
// reduce-bound submission. Reduce and broadcast are never chained on one
// task -- the root drives them as two independent passes over two
// independent queues (§4.6), so a follower task's queue_list only ever
// names one op's coordinate stage plus that op's own stage.
func FollowerReduceStages() []Stage {
	return []Stage{StageCoordReduce, StageReduce}
}

// FollowerBroadcastStages is the intra-host half a non-root node runs
// for a broadcast-bound submission.
func FollowerBroadcastStages() []Stage {
	return []Stage{StageCoordBroadcast, StageBroadcast}
}
