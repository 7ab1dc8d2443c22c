package actor

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/berfenger/yasdi2mqtt/internal/core/domain"
	"github.com/berfenger/yasdi2mqtt/internal/util"
	"github.com/berfenger/yasdi2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSchedulerActor(t *testing.T) {

	cfg := util.LoadTestConfig()
	cfg.Yasdi.RedetectCron = "* * * * * ?"
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	var detections atomic.Int32
	fakeYasdi := context.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		if _, ok := ctx.Message().(domain.DetectDevicesRequest); ok {
			detections.Add(1)
			ctx.Respond(domain.DetectDevicesResponse{})
		}
	}))

	pid := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewSchedulerActor(&cfg, fakeYasdi, logger)
	}))

	time.Sleep(2500 * time.Millisecond)

	assert.GreaterOrEqual(t, detections.Load(), int32(2))

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, time.Second).Result()
	require.NoError(t, err)
	assert.True(t, res.(domain.ActorHealthResponse).Healthy)

	context.Stop(pid)
	time.Sleep(1500 * time.Millisecond)
	stopped := detections.Load()
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, stopped, detections.Load(), "no fires after stop")

	as.Shutdown()
}

func TestSchedulerActorRejectsBadCron(t *testing.T) {

	cfg := util.LoadTestConfig()
	cfg.Yasdi.RedetectCron = "every now and then"
	state := NewSchedulerActor(&cfg, nil, zap.NewNop())
	err := state.start(nil)
	assert.Error(t, err)
}
