// config_utils.go - generic getters and the documentation table
//
// This module holds:
// - Bool/BoolWithDefault: boolean getters with default value
// - String: string getter
// - Uint/Uint64: integer getters with default value
// - EnvVar: metadata for one environment variable
// - AsMap/Values: full configuration snapshot, used by `gradsyncd --help`
package envconfig

import (
	"fmt"
	"log/slog"
	"strconv"
)

// BoolWithDefault returns a func that reads a bool with a default value.
func BoolWithDefault(k string) func(defaultValue bool) bool {
	return func(defaultValue bool) bool {
		if s := Var(k); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return true
			}
			return b
		}
		return defaultValue
	}
}

// Bool returns a func that reads a bool (default: false).
func Bool(k string) func() bool {
	withDefault := BoolWithDefault(k)
	return func() bool {
		return withDefault(false)
	}
}

// String returns a func that reads a raw string.
func String(s string) func() string {
	return func() string {
		return Var(s)
	}
}

// Uint returns a func that reads a uint with a default value.
func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return uint(n)
			}
		}
		return defaultValue
	}
}

// Uint64 returns a func that reads a uint64 with a default value.
func Uint64(key string, defaultValue uint64) func() uint64 {
	return func() uint64 {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return n
			}
		}
		return defaultValue
	}
}

// EnvVar describes one environment variable for documentation purposes.
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap returns every configuration knob with its current value and
// description, keyed by variable name.
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"GRADSYNC_DEBUG":           {"GRADSYNC_DEBUG", LogLevel(), "Show additional debug information (e.g. GRADSYNC_DEBUG=1)"},
		"GRADSYNC_LOCAL_SIZE":      {"GRADSYNC_LOCAL_SIZE", LocalSize(), "Number of local ranks (GPUs) on this host"},
		"GRADSYNC_LOCAL_RANK":      {"GRADSYNC_LOCAL_RANK", LocalRank(), "This process's rank within the host"},
		"GRADSYNC_RANK":            {"GRADSYNC_RANK", Rank(), "This process's global rank"},
		"GRADSYNC_SIZE":            {"GRADSYNC_SIZE", Size(), "Total number of processes"},
		"GRADSYNC_WORKER_ID":       {"GRADSYNC_WORKER_ID", WorkerID(), "PS worker id for the init-path push/barrier sequence"},
		"GRADSYNC_DISTRIBUTED":     {"GRADSYNC_DISTRIBUTED", Distributed(), "Enable the PS bridge (COPY_D2H/PUSH/PULL/COPY_H2D)"},
		"GRADSYNC_PARTITION_BOUND": {"GRADSYNC_PARTITION_BOUND", PartitionBound(), "Maximum byte length of one slice"},
		"GRADSYNC_GROUP_SIZE":      {"GRADSYNC_GROUP_SIZE", GroupSize(), "Max tasks batched per collective group"},
		"GRADSYNC_DEVICE_ID":       {"GRADSYNC_DEVICE_ID", DeviceID(), "This process's GPU device id"},
		"GRADSYNC_POOL_SIZE":       {"GRADSYNC_POOL_SIZE", PoolSize(), "Stage-loop worker pool size (reported only; the engine runs its role's fixed loop set)"},
		"GRADSYNC_CREDIT_LIMIT":    {"GRADSYNC_CREDIT_LIMIT", CreditLimit(), "Per-queue in-flight byte budget (0 = unbounded)"},
		"GRADSYNC_HTTP_ADDR":       {"GRADSYNC_HTTP_ADDR", HTTPAddr(), "Listen address for the observability surface"},
		"GRADSYNC_ALLOWED_HOSTS":   {"GRADSYNC_ALLOWED_HOSTS", AllowedHosts(), "Comma-separated extra Host headers allowed to reach the observability surface"},
	}
}

// Values returns every configuration knob's current value, stringified.
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}
