// Package compressor is the gradient-compressor plug-in boundary named
// in the design notes. It is out of core scope: the engine only ever
// holds a Compressor handle, never a concrete implementation.
package compressor

// Compressor compresses a gradient buffer into bytes and decompresses
// bytes back into a gradient buffer, returning the result rather than
// working in place, and can fold a gradient into a momentum buffer for
// error-feedback style
// compressors. Implementations are plug-ins selected by kind at Make
// time; the engine does not know or care which one it has.
type Compressor interface {
	Compress(buf []float32) []byte
	Decompress(buf []byte) []float32
	UpdateMomentum(grad, momentum []float32)
}

// Factory constructs a named Compressor with the given options.
type Factory func(kind string, options map[string]string) (Compressor, error)

var registry = map[string]Factory{}

// Register adds a compressor kind to the global registry. Plug-ins call
// this from an init() func.
func Register(kind string, f Factory) {
	registry[kind] = f
}

// Make constructs the compressor registered under kind, or an error if
// no plug-in registered that kind.
func Make(kind string, options map[string]string) (Compressor, error) {
	f, ok := registry[kind]
	if !ok {
		return nil, &UnknownKindError{Kind: kind}
	}
	return f(kind, options)
}

// UnknownKindError is returned by Make for an unregistered kind.
type UnknownKindError struct {
	Kind string
}

func (e *UnknownKindError) Error() string {
	return "compressor: unknown kind " + e.Kind
}
