package actor

import (
	"testing"
	"time"

	"github.com/berfenger/yasdi2mqtt/internal/core/domain"
	"github.com/berfenger/yasdi2mqtt/internal/core/events"
	"github.com/berfenger/yasdi2mqtt/internal/mqtt"
	"github.com/berfenger/yasdi2mqtt/internal/util"
	"github.com/berfenger/yasdi2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMQTTActor(t *testing.T) {

	cfg := util.LoadTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	es := eventstream.EventStream{}

	props := actor.PropsFromProducer(func() actor.Actor { return NewTestMQTTActor(&cfg, &es, logger) })
	pid := context.Spawn(props)

	time.Sleep(500 * time.Millisecond)

	msg := domain.ActorHealthRequest{}
	result, err := context.RequestFuture(pid, msg, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp, ok := result.(domain.ActorHealthResponse)
	assert.True(t, ok)
	assert.True(t, resp.Healthy)

	es.Publish(domain.FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
			Id: domain.ChannelSensorId(2000123456, "Pac"),
		},
		Value: 2485,
	})
	es.Publish(events.DetectionSwitchUpdateEvent(true))

	var update domain.SensorUpdate = domain.FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
			Id:     domain.ChannelSensorId(2000123456, "Pac"),
			Serial: 2000123456,
		},
		Value: 2490,
	}
	res, err := context.RequestFuture(pid, domain.PublishSensorUpdateRequest{Event: update}, time.Second).Result()
	assert.NoError(t, err)
	_, ok = res.(domain.PublishSensorUpdateResponse)
	assert.True(t, ok)

	res, err = context.RequestFuture(pid, domain.PublishDiscoveryRequest{}, time.Second).Result()
	assert.NoError(t, err)
	_, ok = res.(domain.PublishDiscoveryResponse)
	assert.True(t, ok)

	context.Stop(pid)

	time.Sleep(500 * time.Millisecond)

	as.Shutdown()
}

func TestEvent2MQTTMessage(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	state := &MQTTActor{
		config: &cfg,
		client: mqtt.CreateMQTTClient(&cfg, mqtt.OptsFromConfig(&cfg), nil, nil),
	}

	pac := state.event2MQTTMessage(domain.FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: "sma_2000123456_pac"},
		Value:                  2485.456,
		Decimals:               1,
	})
	if assert.NotNil(pac) {
		assert.Equal("yasdi2mqtt/sensor/sma_2000123456_pac/state", pac.topic)
		assert.Equal("2485.5", pac.message)
		assert.False(pac.retain)
	}

	sw := state.event2MQTTMessage(events.DetectionSwitchUpdateEvent(false))
	if assert.NotNil(sw) {
		assert.Equal("yasdi2mqtt/switch/detection/state", sw.topic)
		assert.Equal(mqtt.MQTT_PAYLOAD_OFF, sw.message)
		assert.True(sw.retain)
	}

	num := state.event2MQTTMessage(domain.InputNumberSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: "sma_2000123456_t_start"},
		Value:                  60,
	})
	if assert.NotNil(num) {
		assert.Equal("yasdi2mqtt/number/sma_2000123456_t_start/state", num.topic)
		assert.Equal("60", num.message)
	}

	text := state.event2MQTTMessage(domain.TextSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: "sma_2000123456_status"},
		Value:                  "Betrieb",
	})
	if assert.NotNil(text) {
		assert.Equal("Betrieb", text.message)
	}

	bridge := state.event2MQTTMessage(events.BridgeStateUpdateEvents(true)[0])
	if assert.NotNil(bridge) {
		assert.Equal("yasdi2mqtt/bridge/state", bridge.topic)
		assert.Equal(mqtt.MQTT_PAYLOAD_ONLINE, bridge.message)
	}

	assert.Nil(state.event2MQTTMessage(domain.DevicesChangedEvent{}), "not a sensor update")
}
