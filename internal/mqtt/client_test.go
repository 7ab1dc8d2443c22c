package mqtt

import (
	"encoding/json"
	"testing"

	"github.com/berfenger/yasdi2mqtt/internal/config"
	"github.com/berfenger/yasdi2mqtt/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(haTopic string) *MQTTClient {
	cfg := &config.Config{MQTT: config.MQTTConfig{
		Host:             "localhost",
		Port:             1883,
		BaseTopic:        "loremTopic",
		HADiscoveryTopic: haTopic,
	}}
	return CreateMQTTClient(cfg, OptsFromConfig(cfg), nil, nil)
}

func TestSwitchCommandParse(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/switch/my_device/command"
	r := switchCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(matches[0][1], "my_device", "device extract")
}

func TestSwitchCommandParseFail(t *testing.T) {

	assert := assert.New(t)

	r := switchCommandExtractor("loremTopic")
	assert.Len(r.FindAllStringSubmatch("loremTopic/switch/my_device/state", 1), 0, "no matches")
	assert.Len(r.FindAllStringSubmatch("other/loremTopic/switch/my_device/command", 1), 0, "anchored")
}

func TestInputNumberCommandParse(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/number/number_name/set"
	r := inputNumberCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(matches[0][1], "number_name", "number_id extract")
}

func TestParseCommand(t *testing.T) {

	assert := assert.New(t)

	client := testClient("")

	cmd, err := client.ParseCommand("loremTopic/switch/detection/command", []byte("on"))
	require.NoError(t, err)
	assert.Equal(ParsedMQTTCommand{DeviceId: "detection", Command: COMMAND_SWITCH, Payload: "on"}, *cmd)

	cmd, err = client.ParseCommand("loremTopic/number/sma_1_t_start/set", []byte("30"))
	require.NoError(t, err)
	assert.Equal(COMMAND_NUMBER, cmd.Command)
	assert.Equal("sma_1_t_start", cmd.DeviceId)

	_, err = client.ParseCommand("loremTopic/number/sma_1_t_start/set", []byte("thirty"))
	assert.Error(err)

	_, err = client.ParseCommand("loremTopic/sensor/sma_1_pac/state", []byte("10"))
	assert.ErrorIs(err, ErrNotACommand)
}

func TestHADiscoveryMessages(t *testing.T) {

	assert := assert.New(t)

	client := testClient("")
	assert.Equal("homeassistant", client.DiscoveryPrefix())
	assert.Equal("ha", testClient("ha").DiscoveryPrefix())

	bridge := domain.BridgeDevice("loremTopic")
	bridgeSensor := domain.BridgeSensors(bridge)[0]
	assert.Equal("homeassistant/binary_sensor/"+bridge.Id+"/bridge/config", HADiscoverySensorTopic(client, bridgeSensor))
	msg := GenericSensorToHADiscoveryMessage(client, bridgeSensor)
	assert.Equal("loremTopic/bridge/state", msg.StateTopic)
	assert.Equal(MQTT_PAYLOAD_ONLINE, msg.PayloadOn)
	assert.Empty(msg.AvTopic)

	number := domain.GenericInputNumber{
		Device: bridge,
		Id:     "sma_1_t_start",
		Name:   "T-Start",
		Min:    0,
		Max:    300,
		Step:   1,
		Unit:   "s",
	}
	nmsg := GenericInputNumberToHADiscoveryMessage(client, number)
	assert.Equal("loremTopic/number/sma_1_t_start/set", nmsg.CommandTopic)
	payload, err := json.Marshal(nmsg)
	require.NoError(t, err)
	assert.Contains(string(payload), `"min":0`, "zero minimum is kept")
	assert.Contains(string(payload), `"unit_of_measurement":"s"`)

	sw := GenericSwitchToHADiscoveryMessage(client, domain.BridgeSwitches(bridge)[0])
	assert.Equal("loremTopic/switch/detection/command", sw.CommandTopic)
	assert.Equal("homeassistant/switch/"+bridge.Id+"/detection/config",
		HADiscoverySwitchTopic(client, domain.BridgeSwitches(bridge)[0]))

	status := GenericSensorToHADiscoveryMessage(client, domain.GenericSensor{
		Device:      domain.Device{Id: "sma_1", SerialNumber: "1", ViaDevice: bridge.Id},
		Id:          "sma_1_status",
		SensorType:  domain.SENSOR_TYPE_SENSOR,
		DeviceClass: domain.DEVICE_CLASS_ENUM,
		Options:     []string{"Stop", "Betrieb"},
	})
	payload, err = json.Marshal(status)
	require.NoError(t, err)
	assert.Contains(string(payload), `"options":["Stop","Betrieb"]`)
	assert.Contains(string(payload), `"serial_number":"1"`)
	assert.Equal("loremTopic/bridge/state", status.AvTopic)
}
