// Package psclient declares the parameter-server client boundary. The
// engine treats the PS as an opaque async key-value fabric; the wire
// protocol and transport are someone else's problem.
package psclient

// Completion is invoked exactly once by the PS client when an async
// Push or Pull finishes. err is nil on success. For Pull, values holds
// the bytes retrieved for each key, in key order.
type PushCompletion func(err error)
type PullCompletion func(values [][]byte, err error)

// Client is the async parameter-server surface the PS bridge (C7)
// drives. Implementations must guarantee a completion fires exactly
// once per call, from a goroutine safe to call back into the engine's
// scheduled queues from (the engine does no additional synchronization
// around the callback beyond what the queue itself provides).
type Client interface {
	// Push asynchronously writes values (one per key, lens[i] bytes
	// each) and invokes done when the write is durable at the PS.
	Push(keys []uint64, values [][]byte, lens []int, done PushCompletion)
	// Pull asynchronously reads lens[i] bytes for each key and invokes
	// done with the retrieved values.
	Pull(keys []uint64, lens []int, done PullCompletion)
	// Wait blocks until every Push/Pull issued so far has completed.
	Wait()
	// Barrier blocks every member of group until all of them have
	// called Barrier with the same group name.
	Barrier(group string) error
	// Close releases transport resources. Called once during shutdown.
	Close() error
}

// DefaultPushPullKind is the schema tag the engine uses for every slice
// push/pull; it has no other push/pull protocol to select between.
const DefaultPushPullKind = "kDefaultPushPull"

// EncodeDefaultKey derives the PS key for byte offset off of the named
// slice key under DefaultPushPullKind. The PS treats keys as opaque
// uint64s; this is the one place the engine picks their values.
func EncodeDefaultKey(key string, off int64) uint64 {
	h := fnv1a(key)
	return h ^ (uint64(off) * 0x9E3779B97F4A7C15)
}

func fnv1a(s string) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}
