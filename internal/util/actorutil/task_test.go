package actorutil

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, ch <-chan any, n int) []any {
	var out []any
	timeout := time.After(3 * time.Second)
	for len(out) < n {
		select {
		case v := <-ch:
			out = append(out, v)
		case <-timeout:
			require.FailNow(t, "timed out waiting for task results", "got %d of %d", len(out), n)
		}
	}
	return out
}

func TestBlockingCallPipe(t *testing.T) {

	assert := assert.New(t)

	system := actor.NewActorSystem()
	results := make(chan any, 4)
	sink := system.Root.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		switch msg := ctx.Message().(type) {
		case string, BlockingCallFailed:
			results <- msg
		}
	}))

	system.Root.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		if _, ok := ctx.Message().(*actor.Started); !ok {
			return
		}
		NewBlockingCall(ctx, func() (*string, error) {
			return nil, errors.New("boom")
		}).Recover(func(err error) string {
			return "recovered: " + err.Error()
		}).PipeTo(sink)

		MapBlockingCall(NewBlockingCall(ctx, func() (*int, error) {
			n := 42
			return &n, nil
		}), func(n *int) *string {
			s := fmt.Sprintf("mapped %d", *n)
			return &s
		}).PipeTo(sink)

		NewBlockingCall(ctx, func() (*string, error) {
			return nil, errors.New("unrecovered")
		}).PipeTo(sink)
	}))

	got := collect(t, results, 3)
	assert.Contains(got, "recovered: boom")
	assert.Contains(got, "mapped 42")
	var failed bool
	for _, v := range got {
		if f, ok := v.(BlockingCallFailed); ok {
			failed = true
			assert.ErrorContains(f.Err, "unrecovered")
		}
	}
	assert.True(failed)
}

func TestBlockingCallIsNotAbandoned(t *testing.T) {

	assert := assert.New(t)

	system := actor.NewActorSystem()
	results := make(chan any, 2)

	system.Root.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		switch msg := ctx.Message().(type) {
		case *actor.Started:
			NewBlockingCall(ctx, func() (*string, error) {
				time.Sleep(300 * time.Millisecond)
				s := "late"
				return &s, nil
			}).WarnAfter(50*time.Millisecond, func(elapsed time.Duration) {
				results <- elapsed
			}).PipeTo(ctx.Self())
		case string:
			results <- msg
		}
	}))

	// the warning comes first, the result still arrives
	assert.Equal([]any{50 * time.Millisecond, "late"}, collect(t, results, 2))
}

func TestActorWithStates(t *testing.T) {

	assert := assert.New(t)

	idle := namedState("idle")
	busy := namedState("busy")

	s := NewActorWithStates(idle)
	assert.Equal("idle", s.StateName())
	s.BecomeStacked(busy)
	assert.Equal("busy", s.StateName())
	s.UnbecomeStacked()
	assert.Equal("idle", s.StateName())
	s.UnbecomeStacked()
	assert.Equal("idle", s.StateName(), "base state is kept")
}

type namedState string

func (n namedState) Name() string { return string(n) }

func (n namedState) Receive(actor.Context) {}
