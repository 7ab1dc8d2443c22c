package actor

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/berfenger/yasdi2mqtt/internal/core/domain"
	"github.com/berfenger/yasdi2mqtt/internal/modbus"
	"github.com/berfenger/yasdi2mqtt/internal/util"
	"github.com/berfenger/yasdi2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPollerActor(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	cfg.MonitorConfig.PollIntervalMillis = 200
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	var polls atomic.Int32
	var fail atomic.Bool
	fakeYasdi := context.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		switch msg := ctx.Message().(type) {
		case domain.GetChannelValuesRequest:
			polls.Add(1)
			if fail.Load() {
				ctx.Respond(domain.GetChannelValuesResponse{ActorResponseMixIn: domain.ErrorResponse(errors.New("bus timeout"))})
				return
			}
			assert.Equal(cfg.MonitorConfig.Channels, msg.Channels)
			ctx.Respond(domain.GetChannelValuesResponse{Values: []domain.ChannelValue{
				{Serial: 2000123456, Channel: "Pac", Unit: "W", Group: "spot", Value: 2485, Timestamp: time.Now()},
				{Serial: 2000123456, Channel: "Status", Group: "spot", Value: 2, Text: "Betrieb", Timestamp: time.Now()},
			}})
		}
	}))

	es := &eventstream.EventStream{}
	received := make(chan any, 64)
	sub := es.Subscribe(func(evt any) {
		received <- evt
	})
	defer es.Unsubscribe(sub)

	store := modbus.NewRegisterStore(cfg.MonitorConfig.Channels)
	pid := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewPollerActor(&cfg, fakeYasdi, es, store, logger)
	}))

	time.Sleep(500 * time.Millisecond)

	assert.GreaterOrEqual(polls.Load(), int32(1))
	var float, text bool
	for len(received) > 0 {
		switch ev := (<-received).(type) {
		case domain.FloatSensorUpdateEvent:
			float = true
			assert.Equal("sma_2000123456_pac", ev.SensorId())
		case domain.TextSensorUpdateEvent:
			text = true
			assert.Equal("Betrieb", ev.Value)
		}
	}
	assert.True(float)
	assert.True(text)
	assert.Equal([]uint32{2000123456}, store.Devices())

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, time.Second).Result()
	require.NoError(t, err)
	health := res.(domain.ActorHealthResponse)
	assert.Equal(domain.ACTOR_ID_POLLER, health.Id)
	assert.True(health.Healthy)

	// three failed polls in a row turn the poller unhealthy
	fail.Store(true)
	time.Sleep(900 * time.Millisecond)
	res, err = context.RequestFuture(pid, domain.ActorHealthRequest{}, time.Second).Result()
	require.NoError(t, err)
	assert.False(res.(domain.ActorHealthResponse).Healthy)

	context.Stop(pid)
	as.Shutdown()
}
