package actor

import (
	"fmt"
	"testing"
	"time"

	adactor "github.com/berfenger/yasdi2mqtt/internal/adapter/actor"
	"github.com/berfenger/yasdi2mqtt/internal/core/domain"
	"github.com/berfenger/yasdi2mqtt/internal/modbus"
	"github.com/berfenger/yasdi2mqtt/internal/mqtt"
	"github.com/berfenger/yasdi2mqtt/internal/util"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMasterActor(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	store := modbus.NewRegisterStore(cfg.MonitorConfig.Channels)

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, func(es *eventstream.EventStream) *adactor.YasdiActor {
			return adactor.NewYasdiActor(&cfg, adactor.SimulatedYasdiLibraries(0), es, logger)
		}, func(es *eventstream.EventStream) *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(&cfg, es, logger)
		}, store, logger)
	})
	pid, err := context.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		t.Error(err)
		return
	}

	time.Sleep(2 * time.Second)

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		t.Error(err)
		//return
	}
	healthResp, ok := res.(domain.ActorHealthResponse)
	assert.True(t, ok)
	fmt.Printf("Health response: %+v\n", healthResp)
	assert.True(t, healthResp.Healthy, "healthy is true")

	// yasdi requests are forwarded
	res, err = context.RequestFuture(pid, domain.GetDevicesRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	devices, ok := res.(domain.GetDevicesResponse)
	require.True(t, ok)
	assert.Len(t, devices.Devices, 2)

	// the poller fed the register store
	assert.Equal(t, []uint32{2000123456, 2000654321}, store.Devices())
	addr, ok := store.Address(2000654321, "Pac")
	assert.True(t, ok)
	assert.Equal(t, uint16(8), addr)

	// MQTT number command writes the channel
	context.Send(pid, adactor.ParsedCommand{Command: &mqtt.ParsedMQTTCommand{
		DeviceId: "sma_2000123456_t_start",
		Command:  mqtt.COMMAND_NUMBER,
		Payload:  "42",
	}})
	time.Sleep(300 * time.Millisecond)

	res, err = context.RequestFuture(pid, domain.GetChannelValuesRequest{
		Serial:   2000123456,
		Channels: []string{"T-Start"},
	}, 2*time.Second).Result()
	require.NoError(t, err)
	values, ok := res.(domain.GetChannelValuesResponse)
	require.True(t, ok)
	require.Len(t, values.Values, 1)
	assert.Equal(t, 42.0, values.Values[0].Value)

	context.Stop(pid)

	as.Shutdown()
}
