package mqtt

import (
	"fmt"

	"github.com/berfenger/yasdi2mqtt/internal/core/domain"
)

type HADiscoveryConfig struct {
	Device            HADiscoveryDevice `json:"device"`
	StateTopic        string            `json:"state_topic"`
	CommandTopic      string            `json:"command_topic,omitempty"`
	StateClass        string            `json:"state_class,omitempty"`
	DeviceClass       string            `json:"device_class,omitempty"`
	UnitOfMeasurement string            `json:"unit_of_measurement,omitempty"`
	AvTopic           string            `json:"availability_topic,omitempty"`
	EntityCategory    string            `json:"entity_category,omitempty"`
	Name              string            `json:"name"`
	UniqueId          string            `json:"unique_id"`
	Platform          string            `json:"platform"`
	EnabledByDefault  *bool             `json:"enabled_by_default,omitempty"`
	PayloadOn         string            `json:"payload_on,omitempty"`
	PayloadOff        string            `json:"payload_off,omitempty"`
	StateOn           string            `json:"state_on,omitempty"`
	StateOff          string            `json:"state_off,omitempty"`
	Icon              string            `json:"icon,omitempty"`
	Min               *float64          `json:"min,omitempty"`
	Max               *float64          `json:"max,omitempty"`
	Step              float64           `json:"step,omitempty"`
	Mode              string            `json:"mode,omitempty"`
	Options           []string          `json:"options,omitempty"`
}

type HADiscoveryDevice struct {
	Id           []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Version      string   `json:"sw_version,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name,omitempty"`
	SerialNumber string   `json:"serial_number,omitempty"`
	ViaDevice    string   `json:"via_device,omitempty"`
}

func HADiscoverySensorTopic(client *MQTTClient, sensor domain.GenericSensor) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", client.DiscoveryPrefix(), sensor.SensorType, sensor.Device.Id, sensor.Id)
}

func HADiscoverySwitchTopic(client *MQTTClient, sensor domain.GenericSwitch) string {
	return fmt.Sprintf("%s/switch/%s/%s/config", client.DiscoveryPrefix(), sensor.Device.Id, sensor.Id)
}

func HADiscoveryInputNumberTopic(client *MQTTClient, sensor domain.GenericInputNumber) string {
	return fmt.Sprintf("%s/number/%s/%s/config", client.DiscoveryPrefix(), sensor.Device.Id, sensor.Id)
}

func GenericSensorToHADiscoveryMessage(client *MQTTClient, sensor domain.GenericSensor) HADiscoveryConfig {
	dev := device(sensor.Device)
	topic := client.SensorStateTopic(sensor.Id)
	if sensor.Id == domain.SENSOR_ID_BRIDGE_STATE {
		topic = client.BridgeStateTopic()
	}
	disConfig := HADiscoveryConfig{
		Device:            dev,
		StateTopic:        topic,
		StateClass:        sensor.StateClass,
		DeviceClass:       sensor.DeviceClass,
		UnitOfMeasurement: sensor.UnitOfMeasurement,
		EntityCategory:    sensor.EntityCategory,
		Name:              sensor.Name,
		UniqueId:          sensor.UniqueId,
		Icon:              sensor.Icon,
		EnabledByDefault:  sensor.EnabledByDefault,
		Options:           sensor.Options,
		Platform:          "mqtt",
	}
	if sensor.Id == domain.SENSOR_ID_BRIDGE_STATE {
		disConfig.PayloadOn = MQTT_PAYLOAD_ONLINE
		disConfig.PayloadOff = MQTT_PAYLOAD_OFFLINE
	} else {
		disConfig.AvTopic = client.BridgeStateTopic()
	}
	return disConfig
}

func GenericSwitchToHADiscoveryMessage(client *MQTTClient, _switch domain.GenericSwitch) HADiscoveryConfig {
	dev := device(_switch.Device)
	disConfig := HADiscoveryConfig{
		Device:       dev,
		StateTopic:   client.SwitchStateTopic(_switch.Id),
		CommandTopic: client.SwitchCommandTopic(_switch.Id),
		AvTopic:      client.BridgeStateTopic(),
		Name:         _switch.Name,
		UniqueId:     _switch.UniqueId,
		Icon:         _switch.Icon,
		Platform:     "mqtt",
		PayloadOn:    MQTT_PAYLOAD_ON,
		PayloadOff:   MQTT_PAYLOAD_OFF,
		StateOn:      MQTT_PAYLOAD_ON,
		StateOff:     MQTT_PAYLOAD_OFF,
	}
	return disConfig
}

func GenericInputNumberToHADiscoveryMessage(client *MQTTClient, inputNumber domain.GenericInputNumber) HADiscoveryConfig {
	dev := device(inputNumber.Device)
	disConfig := HADiscoveryConfig{
		Device:            dev,
		StateTopic:        client.InputNumberStateTopic(inputNumber.Id),
		CommandTopic:      client.InputNumberCommandTopic(inputNumber.Id),
		AvTopic:           client.BridgeStateTopic(),
		Name:              inputNumber.Name,
		UniqueId:          inputNumber.UniqueId,
		Icon:              inputNumber.Icon,
		UnitOfMeasurement: inputNumber.Unit,
		EntityCategory:    inputNumber.EntityCategory,
		Platform:          "mqtt",
		Min:               &inputNumber.Min,
		Max:               &inputNumber.Max,
		Step:              inputNumber.Step,
		Mode:              inputNumber.Mode,
	}
	return disConfig
}

func device(d domain.Device) HADiscoveryDevice {
	return HADiscoveryDevice{
		Id:           []string{d.Id},
		Manufacturer: d.Manufacturer,
		Version:      d.Version,
		Model:        d.Model,
		Name:         d.Name,
		SerialNumber: d.SerialNumber,
		ViaDevice:    d.ViaDevice,
	}
}
