package domain

import (
	"testing"

	"github.com/berfenger/yasdi2mqtt/pkg/yasdi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelSensorId(t *testing.T) {

	assert := assert.New(t)

	assert.Equal("e_total", NormalizeChannelName("E-Total"))
	assert.Equal("da_messintervall", NormalizeChannelName("DA_Messintervall"))
	assert.Equal("iac_ist", NormalizeChannelName("Iac-Ist "))

	id := ChannelSensorId(2000123456, "E-Total")
	assert.Equal("sma_2000123456_e_total", id)

	serial, channel, ok := ParseChannelSensorId(id)
	assert.True(ok)
	assert.Equal(uint32(2000123456), serial)
	assert.Equal("e_total", channel)

	_, _, ok = ParseChannelSensorId(SWITCH_ID_DETECTION)
	assert.False(ok)
	_, _, ok = ParseChannelSensorId("sma_99999999999_pac")
	assert.False(ok, "serial overflows uint32")
}

func TestChannelCatalog(t *testing.T) {

	assert := assert.New(t)

	pac := Channels().Lookup("Pac")
	assert.Equal("power", pac.DeviceClass)
	assert.Equal(uint(0), pac.DecimalPlaces())

	etotal := Channels().Lookup("E-Total")
	assert.Equal(STATE_CLASS_TOTAL_INCREASING, etotal.StateClass)
	assert.Equal(uint(3), etotal.DecimalPlaces())

	unknown := Channels().Lookup("Foo-Bar")
	assert.Equal("Foo-Bar", unknown.Label)
	assert.Equal(STATE_CLASS_MEASUREMENT, unknown.StateClass)
	assert.Equal(uint(defaultDecimals), unknown.DecimalPlaces())

	_, err := ParseChannelCatalog([]byte("channels:\n  - label: nameless\n"))
	assert.Error(err)
	_, err = ParseChannelCatalog([]byte("channels: ["))
	assert.Error(err)
}

func TestChannelEntities(t *testing.T) {

	assert := assert.New(t)

	info := DeviceInfo{
		Serial: 2000123456,
		Name:   "SB 3000 SN:2000123456",
		Type:   "SB 3000",
		Channels: []ChannelInfo{
			{Name: "Pac", Unit: "W", Group: "spot"},
			{Name: "Status", Group: "spot", StatusTexts: []string{"Stop", "Betrieb"}},
			{Name: "T-Start", Unit: "s", Group: "param", Range: &yasdi.ValueRange{Min: 5, Max: 300}},
			{Name: "Software-BFR", Group: "param"},
			{Name: "Riso", Unit: "kOhm", Group: "test"},
		},
	}
	bridge := BridgeDevice("yasdi2mqtt")
	device := SMADevice(info, bridge)
	assert.Equal("sma_2000123456", device.Id)
	assert.Equal(bridge.Id, device.ViaDevice)
	assert.Equal("2000123456", device.SerialNumber)

	sensors := ChannelSensors(device, info)
	require.Len(t, sensors, 4)
	assert.Equal("sma_2000123456_pac", sensors[0].Id)
	assert.Equal("W", sensors[0].UnitOfMeasurement)
	assert.Equal("AC power", sensors[0].Name)
	assert.Empty(sensors[1].UnitOfMeasurement, "status text sensor")
	assert.Empty(sensors[1].StateClass)
	assert.Equal(DEVICE_CLASS_ENUM, sensors[1].DeviceClass)
	assert.Equal([]string{"Stop", "Betrieb"}, sensors[1].Options)
	assert.Equal(ENTITY_CLASS_CONFIG, sensors[2].EntityCategory)
	assert.Equal(ENTITY_CLASS_DIAGNOSTIC, sensors[3].EntityCategory)
	require.NotNil(t, sensors[3].EnabledByDefault)
	assert.False(*sensors[3].EnabledByDefault)

	numbers := ChannelInputNumbers(device, info)
	require.Len(t, numbers, 1)
	assert.Equal("sma_2000123456_t_start", numbers[0].Id)
	assert.Equal(5.0, numbers[0].Min)
	assert.Equal(300.0, numbers[0].Max)
	assert.Equal("s", numbers[0].Unit)
	assert.Equal(ENTITY_CLASS_CONFIG, numbers[0].EntityCategory)

	switches := BridgeSwitches(bridge)
	require.Len(t, switches, 1)
	assert.Equal(SWITCH_ID_DETECTION, switches[0].Id)
}
