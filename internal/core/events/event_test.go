package events

import (
	"testing"
	"time"

	"github.com/berfenger/yasdi2mqtt/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelValuesToUpdateEvents(t *testing.T) {

	assert := assert.New(t)

	now := time.Now()
	values := []domain.ChannelValue{
		{Serial: 2000123456, Channel: "Pac", Unit: "W", Group: "spot", Value: 2485, Timestamp: now},
		{Serial: 2000123456, Channel: "Status", Group: "spot", Value: 2, Text: "Betrieb", Timestamp: now},
		{Serial: 2000123456, Channel: "T-Start", Unit: "s", Group: "param", Value: 30, Timestamp: now},
		{Serial: 2000123456, Channel: "E-Tag", Group: "spot", Error: "yasdi: timeout"},
	}

	events := ChannelValuesToUpdateEvents(values)
	require.Len(t, events, 3, "failed read is skipped")

	pac, ok := events[0].(domain.FloatSensorUpdateEvent)
	require.True(t, ok)
	assert.Equal("sma_2000123456_pac", pac.SensorId())
	assert.Equal(2485.0, pac.Value)
	assert.Equal(uint(0), pac.Decimals)
	assert.Equal("W", pac.Unit)
	assert.Equal(uint32(2000123456), pac.DeviceSerial())

	status, ok := events[1].(domain.TextSensorUpdateEvent)
	require.True(t, ok)
	assert.Equal("Betrieb", status.Value)
	assert.Equal(2, status.Index)

	param, ok := events[2].(domain.InputNumberSensorUpdateEvent)
	require.True(t, ok)
	assert.Equal("sma_2000123456_t_start", param.SensorId())
}

func TestSwitchAndBridgeEvents(t *testing.T) {

	assert := assert.New(t)

	sw, ok := DetectionSwitchUpdateEvent(true).(domain.SwitchSensorUpdateEvent)
	assert.True(ok)
	assert.True(sw.Value)
	assert.Equal(domain.SWITCH_ID_DETECTION, sw.SensorId())
	assert.Zero(sw.DeviceSerial())

	bridge := BridgeStateUpdateEvents(false)
	assert.Len(bridge, 1)
	assert.Equal(domain.BridgeStateUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: domain.SENSOR_ID_BRIDGE_STATE},
		Value:                  false,
	}, bridge[0])
}
