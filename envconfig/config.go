// config.go - core configuration accessors for gradsync
//
// This module holds:
// - LocalSize/LocalRank/Rank/Size/WorkerID: topology
// - Distributed: whether the PS fabric is reachable
// - PartitionBound/GroupSize/DeviceID/PoolSize: pipeline tuning
// - LogLevel: log verbosity
//
// Utility getters (Bool/Uint/Uint64/String) and the documentation table
// (AsMap/Values) are in config_utils.go.
package envconfig

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// LocalSize returns the number of local ranks (GPUs) on this host.
// Configurable via GRADSYNC_LOCAL_SIZE. Default: 1.
func LocalSize() int {
	return int(Uint("GRADSYNC_LOCAL_SIZE", 1)())
}

// LocalRank returns this process's rank within the host.
// Configurable via GRADSYNC_LOCAL_RANK. Default: 0.
func LocalRank() int {
	return int(Uint("GRADSYNC_LOCAL_RANK", 0)())
}

// Rank returns this process's global rank across all hosts.
// Configurable via GRADSYNC_RANK. Default: 0.
func Rank() int {
	return int(Uint("GRADSYNC_RANK", 0)())
}

// Size returns the total number of processes across all hosts.
// Configurable via GRADSYNC_SIZE. Default: 1.
func Size() int {
	return int(Uint("GRADSYNC_SIZE", 1)())
}

// WorkerID returns the PS worker id used to gate the init-path
// Push/Barrier sequence to a single writer per tensor.
// Configurable via GRADSYNC_WORKER_ID. Default: 0.
func WorkerID() int {
	return int(Uint("GRADSYNC_WORKER_ID", 0)())
}

// Distributed reports whether the engine should drive the PS bridge
// (COPY_D2H/PUSH/PULL/COPY_H2D) in addition to the intra-host collective
// stages. Configurable via GRADSYNC_DISTRIBUTED. Default: false.
func Distributed() bool {
	return Bool("GRADSYNC_DISTRIBUTED")()
}

// PartitionBound returns the maximum byte length of a single slice.
// Configurable via GRADSYNC_PARTITION_BOUND. Default: 64MiB.
func PartitionBound() int64 {
	return int64(Uint64("GRADSYNC_PARTITION_BOUND", 64<<20)())
}

// GroupSize returns how many tasks the root collective driver may batch
// into one group per outer pass (nccl_group_size in the design).
// Configurable via GRADSYNC_GROUP_SIZE. Default: 16.
func GroupSize() int {
	return int(Uint("GRADSYNC_GROUP_SIZE", 16)())
}

// DeviceID returns this process's GPU device id, or CPUDeviceID.
// Configurable via GRADSYNC_DEVICE_ID. Default: 0.
func DeviceID() int {
	if s := Var("GRADSYNC_DEVICE_ID"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= -1 {
			return n
		}
		slog.Warn("invalid environment variable, using default", "key", "GRADSYNC_DEVICE_ID", "value", s, "default", 0)
	}
	return 0
}

// PoolSize returns the configured stage-loop worker pool size.
// Configurable via GRADSYNC_POOL_SIZE. Default: 0. The value is read and
// reported only: it is not passed to the engine, which always starts the
// fixed set of loops its role requires.
func PoolSize() int {
	return int(Uint("GRADSYNC_POOL_SIZE", 0)())
}

// CreditLimit returns the per-queue in-flight byte budget (0 disables
// back-pressure). Configurable via GRADSYNC_CREDIT_LIMIT. Default: 0.
func CreditLimit() int64 {
	return int64(Uint64("GRADSYNC_CREDIT_LIMIT", 0)())
}

// HTTPAddr returns the listen address for the observability surface.
// Configurable via GRADSYNC_HTTP_ADDR. Default: "127.0.0.1:11535".
func HTTPAddr() string {
	if s := Var("GRADSYNC_HTTP_ADDR"); s != "" {
		return s
	}
	return "127.0.0.1:11535"
}

// AllowedHosts returns the extra Host header values permitted to reach
// the observability surface, on top of loopback/private addresses and
// this host's own name. An entry beginning with "." matches as a
// suffix (e.g. ".internal" allows any host under that domain), an
// entry without one must match exactly. Configurable via
// GRADSYNC_ALLOWED_HOSTS (comma-separated). Default: none.
func AllowedHosts() (hosts []string) {
	if s := Var("GRADSYNC_ALLOWED_HOSTS"); s != "" {
		for _, h := range strings.Split(s, ",") {
			if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
				hosts = append(hosts, h)
			}
		}
	}
	return hosts
}

// LogLevel returns the configured log verbosity.
// Configurable via GRADSYNC_DEBUG.
// Values: 0/false = INFO (default), 1/true = DEBUG, 2 = TRACE.
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("GRADSYNC_DEBUG"); s != "" {
		if b, err := strconv.ParseBool(s); err == nil && b {
			level = slog.LevelDebug
		} else if i, err := strconv.ParseInt(s, 10, 64); err == nil && i != 0 {
			level = slog.Level(i * -4)
		}
	}
	return level
}

// Var returns an environment variable, trimming surrounding quotes and
// whitespace.
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}
