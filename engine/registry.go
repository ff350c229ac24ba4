// registry.go - global registry, topology, and lifecycle (C8)
//
// This module holds:
// - Config: the caller-supplied topology and tuning knobs
// - Engine: the process-wide registry of contexts, queues, and loops
// - Init/Shutdown: role-dependent loop construction and teardown
// - Default/SetDefault: the thin module-level accessor for framework
//   adapters, invalidated after shutdown
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/gradsync/gradsync/engine/collective"
	"github.com/gradsync/gradsync/engine/psclient"
)

// Config is the topology and tuning the registry is constructed from.
// See §6 for the environment variables that populate it in practice.
type Config struct {
	Rank      int
	LocalRank int
	Size      int
	LocalSize int
	WorkerID  int

	Distributed    bool
	PartitionBound int64
	GroupSize      int
	DeviceID       int
	CreditLimit    int64 // 0 disables per-queue back-pressure

	Collective collective.Collective
	PS         psclient.Client
	Allocator  PinnedAllocator
}

func (c *Config) validate() error {
	if c.LocalSize < 1 {
		return fmt.Errorf("%w: local_size %d < 1", ErrInvalidTopology, c.LocalSize)
	}
	if c.LocalRank < 0 || c.LocalRank >= c.LocalSize {
		return fmt.Errorf("%w: local_rank %d out of [0,%d)", ErrInvalidTopology, c.LocalRank, c.LocalSize)
	}
	if c.PartitionBound <= 0 {
		return fmt.Errorf("%w: partition bound %d <= 0", ErrInvalidTopology, c.PartitionBound)
	}
	if c.GroupSize <= 0 {
		return fmt.Errorf("%w: group size %d <= 0", ErrInvalidTopology, c.GroupSize)
	}
	if c.Collective == nil {
		return fmt.Errorf("%w: nil Collective", ErrInvalidTopology)
	}
	if c.Distributed && c.PS == nil {
		return fmt.Errorf("%w: distributed mode requires a PS client", ErrInvalidTopology)
	}
	return nil
}

// Engine is the process-wide registry: tensor contexts, topology,
// per-stage queues, the intra-host signal bus, the collective group
// tracker, and the fixed worker pool of stage-loop goroutines.
type Engine struct {
	cfg Config

	ctxMu    sync.Mutex
	contexts map[string]*Context
	sf       singleflight.Group

	queues map[Stage]*ScheduledQueue
	bus    *SignalBus
	groups *GroupTracker

	runCtx context.Context
	cancel context.CancelFunc
	eg     *errgroup.Group

	shuttingDown atomic.Bool
	started      atomic.Bool
}

// IsRoot reports whether this process is the root of its host.
func (c *Config) IsRoot() bool {
	return c.LocalRank == 0
}

// Init constructs the queues, signal bus, and stage-loop goroutines for
// this process's role, then returns immediately; the loops run until
// Shutdown. Init may be called at most once per Engine.
func Init(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	eg, runCtx := errgroup.WithContext(runCtx)

	e := &Engine{
		cfg:      cfg,
		contexts: make(map[string]*Context),
		queues:   make(map[Stage]*ScheduledQueue),
		bus:      NewSignalBus(cfg.LocalSize, 64),
		groups:   NewGroupTracker(1024),
		runCtx:   runCtx,
		cancel:   cancel,
		eg:       eg,
	}

	for _, s := range []Stage{
		StageCopyD2H, StagePush, StagePull, StageCopyH2D,
		StageReduce, StageBroadcast, StageCoordReduce, StageCoordBroadcast,
	} {
		e.queues[s] = NewScheduledQueue(s, cfg.CreditLimit)
	}

	e.startLoops()
	e.started.Store(true)

	slog.Info("engine initialized",
		"rank", cfg.Rank, "local_rank", cfg.LocalRank,
		"size", cfg.Size, "local_size", cfg.LocalSize,
		"root", cfg.IsRoot(), "distributed", cfg.Distributed)

	return e, nil
}

// startLoops launches the role-dependent set of stage loops named in the
// design's §4.8 table.
func (e *Engine) startLoops() {
	if e.cfg.IsRoot() {
		e.eg.Go(func() error { e.runSyncLoop(e.runCtx); return nil })
		e.eg.Go(func() error { e.runRootDriver(e.runCtx); return nil })
		if e.cfg.Distributed {
			e.eg.Go(func() error { e.runStageLoop(e.runCtx, StageCopyD2H); return nil })
			e.eg.Go(func() error { e.runStageLoop(e.runCtx, StagePush); return nil })
			e.eg.Go(func() error { e.runStageLoop(e.runCtx, StagePull); return nil })
			e.eg.Go(func() error { e.runStageLoop(e.runCtx, StageCopyH2D); return nil })
		}
		return
	}

	e.eg.Go(func() error { e.runCoordLoop(e.runCtx, StageCoordReduce); return nil })
	e.eg.Go(func() error { e.runCoordLoop(e.runCtx, StageCoordBroadcast); return nil })
	e.eg.Go(func() error { e.runFollowerNCCLLoop(e.runCtx); return nil })
	e.eg.Go(func() error { e.runSyncLoop(e.runCtx); return nil })
}

// Shutdown raises the shutdown flag, waits for every loop to exit at its
// next poll boundary, and releases owned resources in reverse dependency
// order: loops stop, then owned pinned buffers are freed, then the PS
// client is closed.
func (e *Engine) Shutdown() error {
	if !e.shuttingDown.CompareAndSwap(false, true) {
		return nil
	}
	e.cancel()
	_ = e.eg.Wait()

	e.ctxMu.Lock()
	for _, ctx := range e.contexts {
		if ctx.OwnsBuffer && ctx.Buffer != nil {
			ctx.Buffer.Free()
		}
	}
	e.contexts = nil
	e.ctxMu.Unlock()

	if e.cfg.PS != nil {
		if err := e.cfg.PS.Close(); err != nil {
			return err
		}
	}

	if d := defaultEngine.Load(); d == e {
		defaultEngine.Store(nil)
	}
	return nil
}

// Rank, LocalRank, Size, LocalSize mirror the submission surface in §6.
func (e *Engine) Rank() int      { return e.cfg.Rank }
func (e *Engine) LocalRank() int { return e.cfg.LocalRank }
func (e *Engine) Size() int      { return e.cfg.Size }
func (e *Engine) LocalSize() int { return e.cfg.LocalSize }

// --- default module-level accessor, for framework adapters ---

var defaultEngine atomic.Pointer[Engine]

// SetDefault installs e as the process-wide default engine.
func SetDefault(e *Engine) {
	defaultEngine.Store(e)
}

// Default returns the process-wide default engine, or nil if none has
// been installed or it has since been shut down: callers must check for
// nil rather than treating a stale handle as usable, so use-after-shutdown
// is an immediate, visible error instead of undefined behavior.
func Default() *Engine {
	return defaultEngine.Load()
}
