package compressor

import (
	"context"
	"fmt"
	"sync"
)

// Task is a deferred single-result operation. Nothing runs until Start or
// Await is called; the work then runs once and every waiter sees the same
// value or error.
type Task[T any] struct {
	fn    func() (T, error)
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

// NewTask wraps fn without running it.
func NewTask[T any](fn func() (T, error)) *Task[T] {
	return &Task[T]{
		fn:   fn,
		done: make(chan struct{}),
	}
}

// Start begins the work in a new goroutine if it has not begun yet.
func (t *Task[T]) Start() {
	t.once.Do(func() {
		go t.run()
	})
}

func (t *Task[T]) run() {
	defer close(t.done)
	defer func() {
		if r := recover(); r != nil {
			t.err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	t.value, t.err = t.fn()
}

// Done is closed once the work has finished.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Await starts the task and waits for its result. If ctx is already done the
// task is not started. Cancelling ctx after the start only stops the wait.
func (t *Task[T]) Await(ctx context.Context) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	t.Start()
	select {
	case <-t.done:
		return t.value, t.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// CompressToFileTask defers CompressToFile until the task is started.
func (c *Compressor) CompressToFileTask(src string, opts *Options) *Task[string] {
	return NewTask(func() (string, error) {
		return c.CompressToFile(src, opts)
	})
}

// CompressToImageTask defers CompressToImage until the task is started.
func (c *Compressor) CompressToImageTask(src string, opts *Options) *Task[*DecodedImage] {
	return NewTask(func() (*DecodedImage, error) {
		return c.CompressToImage(src, opts)
	})
}
