package actorutil

import (
	"errors"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/primetalk/goio/io"
)

// BlockingCall runs a function that cannot be interrupted, such as a native
// library call, off the actor goroutine and delivers its outcome as a
// message. There is no timeout: abandoning the call would let the next one
// overlap with it, so the result always arrives, however late.
type BlockingCall[T any] struct {
	ctx       actor.Context
	fn        func() (*T, error)
	slowAfter time.Duration
	onSlow    func(time.Duration)
	recover   func(error) T
}

// BlockingCallFailed is delivered when the call fails and no Recover is set.
type BlockingCallFailed struct {
	Err error
}

func NewBlockingCall[T any](ctx actor.Context, fn func() (*T, error)) *BlockingCall[T] {
	return &BlockingCall[T]{
		ctx: ctx,
		fn:  fn,
	}
}

// WarnAfter calls fn once if the call is still running after d.
func (c *BlockingCall[T]) WarnAfter(d time.Duration, fn func(elapsed time.Duration)) *BlockingCall[T] {
	c.slowAfter = d
	c.onSlow = fn
	return c
}

// Recover turns a failure (error or panic) into a regular result.
func (c *BlockingCall[T]) Recover(fn func(error) T) *BlockingCall[T] {
	c.recover = fn
	return c
}

// PipeTo runs the call on its own goroutine and sends the outcome to pid.
// The calling actor keeps processing its mailbox meanwhile.
func (c *BlockingCall[T]) PipeTo(pid *actor.PID) {
	root := c.ctx.ActorSystem().Root
	go func() {
		root.Send(pid, c.run())
	}()
}

func (c *BlockingCall[T]) run() any {
	if c.onSlow != nil && c.slowAfter > 0 {
		timer := time.AfterFunc(c.slowAfter, func() {
			c.onSlow(c.slowAfter)
		})
		defer timer.Stop()
	}
	call := io.Map(io.Eval(c.fn), func(a *T) T {
		if a == nil {
			panic(errors.New("result is nil"))
		}
		return *a
	})
	result := io.RunSync(call)
	if result.Error == nil {
		return result.Value
	}
	if c.recover != nil {
		return c.recover(result.Error)
	}
	return BlockingCallFailed{Err: result.Error}
}

// MapBlockingCall transforms the result of a successful call. Failures of
// the inner call reach the Recover of the mapped one.
func MapBlockingCall[T, T2 any](c *BlockingCall[T], mapFn func(*T) *T2) *BlockingCall[T2] {
	return &BlockingCall[T2]{
		ctx: c.ctx,
		fn: func() (*T2, error) {
			r, err := c.fn()
			if err != nil {
				return nil, err
			}
			return mapFn(r), nil
		},
		slowAfter: c.slowAfter,
		onSlow:    c.onSlow,
	}
}
