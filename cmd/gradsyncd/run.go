// run.go - the `run` subcommand: builds the engine from envconfig and serves it
package main

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/spf13/cobra"

	"github.com/gradsync/gradsync/engine"
	"github.com/gradsync/gradsync/engine/collective"
	"github.com/gradsync/gradsync/envconfig"
	"github.com/gradsync/gradsync/server"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the gradient synchronization engine and its observability surface",
		Args:  cobra.ExactArgs(0),
		RunE:  RunEngine,
	}
}

// RunEngine builds an engine.Config from envconfig, initializes the
// engine, and blocks serving the observability surface until shutdown.
//
// GRADSYNC_DISTRIBUTED requires an embedding program: a real PS client
// binding is not something this CLI can construct on its own, so
// gradsyncd run only supports the intra-host (non-distributed) topology.
// Programs that need the PS bridge call engine.Init directly.
func RunEngine(cmd *cobra.Command, _ []string) error {
	slog.SetDefault(newLogger())
	slog.Info("gradsyncd starting", "env", envconfig.Values())

	if envconfig.Distributed() {
		return fmt.Errorf("gradsyncd run: GRADSYNC_DISTRIBUTED requires a PS client binding; embed the engine package directly instead")
	}

	cfg := engine.Config{
		Rank:           envconfig.Rank(),
		LocalRank:      envconfig.LocalRank(),
		Size:           envconfig.Size(),
		LocalSize:      envconfig.LocalSize(),
		WorkerID:       envconfig.WorkerID(),
		Distributed:    false,
		PartitionBound: envconfig.PartitionBound(),
		GroupSize:      envconfig.GroupSize(),
		DeviceID:       envconfig.DeviceID(),
		CreditLimit:    envconfig.CreditLimit(),
		Collective:     collective.NewLoopback(),
		Allocator:      engine.HeapAllocator{},
	}

	eng, err := engine.Init(cfg)
	if err != nil {
		return fmt.Errorf("gradsyncd run: %w", err)
	}
	engine.SetDefault(eng)

	ln, err := net.Listen("tcp", envconfig.HTTPAddr())
	if err != nil {
		return fmt.Errorf("gradsyncd run: %w", err)
	}

	return server.Serve(ln, eng)
}
