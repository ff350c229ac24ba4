package engine

// Stats is a point-in-time snapshot of every queue's accounting plus
// this process's topology, used by the observability surface (server
// package).
type Stats struct {
	Rank, LocalRank, Size, LocalSize int
	Root, Distributed                bool
	Queues                           []QueueStats
}

// Stats returns a snapshot of all eight stage queues, including those
// this role's loops never drain.
func (e *Engine) Stats() Stats {
	s := Stats{
		Rank:        e.cfg.Rank,
		LocalRank:   e.cfg.LocalRank,
		Size:        e.cfg.Size,
		LocalSize:   e.cfg.LocalSize,
		Root:        e.cfg.IsRoot(),
		Distributed: e.cfg.Distributed,
	}
	for _, stage := range []Stage{
		StageCopyD2H, StagePush, StagePull, StageCopyH2D,
		StageReduce, StageBroadcast, StageCoordReduce, StageCoordBroadcast,
	} {
		s.Queues = append(s.Queues, e.queues[stage].Stats())
	}
	return s
}
