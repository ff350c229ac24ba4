package engine

import "fmt"

// Submission is the caller-supplied description of one tensor to
// schedule, mirroring enqueue_tensor's parameters (§6).
type Submission struct {
	Name      string
	Input     Tensor
	Output    Tensor
	Device    int
	Priority  int
	Version   int64
	Callback  Callback
	StageList []Stage
}

// size resolves the tensor's byte length from whichever of Input/Output
// is present, requiring their sizes to match when both are.
func (s *Submission) size() (int64, error) {
	switch {
	case s.Input != nil && s.Output != nil:
		if s.Input.Size() != s.Output.Size() {
			return 0, fmt.Errorf("engine: input size %d != output size %d for %q", s.Input.Size(), s.Output.Size(), s.Name)
		}
		return s.Input.Size(), nil
	case s.Input != nil:
		return s.Input.Size(), nil
	case s.Output != nil:
		return s.Output.Size(), nil
	default:
		return 0, fmt.Errorf("engine: submission %q has neither input nor output tensor", s.Name)
	}
}

// partition splits sub into ceil(size/bound) consecutive byte-slices
// against ctx, whose KeyList was sized to match at Context init. It
// rejects the submission before any slice is built if size is
// inconsistent with len(ctx.KeyList). If sub.StageList is empty, no
// slices are built at all: the caller is expected to invoke the
// callback immediately (the no-op fast path in EnqueueTensor).
func partition(ctx *Context, sub *Submission, bound int64) ([]*Task, error) {
	size, err := sub.size()
	if err != nil {
		return nil, err
	}

	want := partitionCount(size, bound)
	if want != len(ctx.KeyList) {
		return nil, fmt.Errorf("engine: %q size %d over bound %d needs %d slices, context has %d keys",
			sub.Name, size, bound, want, len(ctx.KeyList))
	}

	if len(sub.StageList) == 0 || want == 0 {
		return nil, nil
	}

	counter := NewCounter(want)

	tasks := make([]*Task, 0, want)
	var offset int64
	for i := 0; i < want; i++ {
		length := bound
		if remaining := size - offset; remaining < bound {
			length = remaining
		}

		queueList := make([]Stage, len(sub.StageList))
		copy(queueList, sub.StageList)

		tasks = append(tasks, &Task{
			Key:       ctx.KeyList[i],
			Offset:    offset,
			Len:       length,
			Device:    sub.Device,
			Priority:  sub.Priority,
			Version:   sub.Version,
			Input:     sub.Input,
			Output:    sub.Output,
			Buffer:    ctx.Buffer,
			Counter:   counter,
			Callback:  sub.Callback,
			QueueList: queueList,
		})
		offset += length
	}
	return tasks, nil
}
