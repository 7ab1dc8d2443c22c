package actor

import (
	"testing"
	"time"

	"github.com/berfenger/yasdi2mqtt/internal/core/domain"
	"github.com/berfenger/yasdi2mqtt/internal/util"
	"github.com/berfenger/yasdi2mqtt/internal/util/actorutil"
	"github.com/berfenger/yasdi2mqtt/pkg/yasdi"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testDeviceInfo(serial uint32) domain.DeviceInfo {
	return domain.DeviceInfo{
		Serial: serial,
		Name:   "SB 3000",
		Type:   "SB 3000",
		Channels: []domain.ChannelInfo{
			{Name: "Pac", Unit: "W", Group: "spot"},
			{Name: "Uac", Unit: "V", Group: "spot"},
			{Name: "Status", Group: "spot", StatusTexts: []string{"Stop", "Warten", "Betrieb"}},
			{Name: "T-Start", Unit: "s", Group: "param", Range: &yasdi.ValueRange{Min: 5, Max: 300}},
			{Name: "Software-BFR", Group: "param"},
		},
	}
}

func TestDiscoveryEntities(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	sensors, switches, numbers := DiscoveryEntities(&cfg, []domain.DeviceInfo{testDeviceInfo(2000123456)})

	ids := make([]string, 0, len(sensors))
	for _, s := range sensors {
		ids = append(ids, s.Id)
	}
	// Uac is not monitored, Software-BFR has no range
	assert.Equal([]string{domain.SENSOR_ID_BRIDGE_STATE, "sma_2000123456_pac", "sma_2000123456_status"}, ids)

	require.Len(t, switches, 1)
	assert.Equal(domain.SWITCH_ID_DETECTION, switches[0].Id)

	require.Len(t, numbers, 1)
	assert.Equal("sma_2000123456_t_start", numbers[0].Id)
	assert.Equal(5.0, numbers[0].Min)
	assert.Equal(300.0, numbers[0].Max)
	assert.Equal("sma_2000123456", numbers[0].Device.Id)
	assert.Equal(sensors[0].Device.Id, numbers[0].Device.ViaDevice)
}

func TestHADiscoveryActor(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	healthy := func(id string) actor.ReceiveFunc {
		return func(ctx actor.Context) {
			if _, ok := ctx.Message().(domain.ActorHealthRequest); ok {
				ctx.Respond(domain.ActorHealthResponse{Id: id, Healthy: true})
			}
		}
	}

	devices := []domain.DeviceInfo{testDeviceInfo(2000123456)}
	paramReads := make(chan domain.GetChannelValuesRequest, 4)
	fakeYasdi := context.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		switch msg := ctx.Message().(type) {
		case domain.GetDevicesRequest:
			assert.True(msg.WithChannels)
			ctx.Respond(domain.GetDevicesResponse{Devices: devices})
		case domain.GetChannelValuesRequest:
			paramReads <- msg
			ctx.Respond(domain.GetChannelValuesResponse{})
		default:
			healthy(domain.ACTOR_ID_YASDI)(ctx)
		}
	}))

	discoveries := make(chan domain.PublishDiscoveryRequest, 4)
	fakeMQTT := context.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		switch msg := ctx.Message().(type) {
		case domain.PublishDiscoveryRequest:
			discoveries <- msg
		default:
			healthy(domain.ACTOR_ID_MQTT)(ctx)
		}
	}))

	es := &eventstream.EventStream{}
	pid := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&cfg, fakeYasdi, fakeMQTT, es, logger)
	}))

	select {
	case d := <-discoveries:
		assert.Len(d.Sensors, 3)
		assert.Len(d.Switches, 1)
		assert.Len(d.InputNumbers, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("no discovery published")
	}

	select {
	case r := <-paramReads:
		assert.Equal([]string{"T-Start"}, r.Channels)
	case <-time.After(time.Second):
		t.Error("param channels not read")
	}

	// same devices, nothing new to publish
	es.Publish(domain.DevicesChangedEvent{Devices: devices})
	select {
	case <-discoveries:
		t.Error("unexpected discovery for unchanged devices")
	case <-time.After(300 * time.Millisecond):
	}

	// a new inverter shows up
	devices = append(devices, testDeviceInfo(2000654321))
	es.Publish(domain.DevicesChangedEvent{Devices: devices})
	select {
	case d := <-discoveries:
		assert.Len(d.Sensors, 5)
		assert.Len(d.InputNumbers, 2)
	case <-time.After(2 * time.Second):
		t.Error("no discovery after devices changed")
	}

	context.Stop(pid)
	as.Shutdown()
}
