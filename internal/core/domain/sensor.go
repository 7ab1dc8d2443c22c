package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE       = "bridge"
	SWITCH_ID_DETECTION          = "detection"
	STATE_CLASS_MEASUREMENT      = "measurement"
	STATE_CLASS_TOTAL_INCREASING = "total_increasing"
	DEVICE_CLASS_CONNECTIVITY    = "connectivity"
	DEVICE_CLASS_ENUM            = "enum"
	ENTITY_CLASS_DIAGNOSTIC      = "diagnostic"
	ENTITY_CLASS_CONFIG          = "config"
	SENSOR_TYPE_SENSOR           = "sensor"
	SENSOR_TYPE_BINARY           = "binary_sensor"
	INPUT_NUMBER_MODE_BOX        = "box"
	INPUT_NUMBER_MODE_SLIDER     = "slider"
)

var (
	channelIdSanitizer = regexp.MustCompile("[^a-z0-9]+")
	channelSensorIdRe  = regexp.MustCompile("^sma_([0-9]+)_([a-z0-9_]+)$")
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("yasdi2mqtt_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "yasdi2mqtt",
		Model:        "YASDI bridge",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("YASDI bridge %s", md5HashShort(baseTopic)),
	}
}

func SMADevice(info DeviceInfo, bridge Device) Device {
	return Device{
		Id:           fmt.Sprintf("sma_%d", info.Serial),
		Manufacturer: "SMA",
		Model:        info.Type,
		Name:         info.Name,
		SerialNumber: strconv.FormatUint(uint64(info.Serial), 10),
		ViaDevice:    bridge.Id,
	}
}

// NormalizeChannelName lowers a channel name into the id alphabet,
// "E-Total" becomes "e_total".
func NormalizeChannelName(name string) string {
	return strings.Trim(channelIdSanitizer.ReplaceAllString(strings.ToLower(name), "_"), "_")
}

func ChannelSensorId(serial uint32, channel string) string {
	return fmt.Sprintf("sma_%d_%s", serial, NormalizeChannelName(channel))
}

// ParseChannelSensorId splits an id built by ChannelSensorId. The channel part
// comes back normalized.
func ParseChannelSensorId(id string) (serial uint32, channel string, ok bool) {
	m := channelSensorIdRe.FindStringSubmatch(id)
	if m == nil {
		return 0, "", false
	}
	s, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return 0, "", false
	}
	return uint32(s), m[2], true
}

// ChannelSensors maps every non-writable channel of a device to a sensor.
// Param channels with a value range are left to ChannelInputNumbers.
func ChannelSensors(device Device, info DeviceInfo) []GenericSensor {
	var sensors []GenericSensor
	for _, ch := range info.Channels {
		if ch.IsParam() && ch.Range != nil {
			continue
		}
		meta := Channels().Lookup(ch.Name)
		id := ChannelSensorId(info.Serial, ch.Name)
		sensor := GenericSensor{
			Device:     device,
			Id:         id,
			SensorType: SENSOR_TYPE_SENSOR,
			Name:       meta.Label,
			Icon:       meta.Icon,
			UniqueId:   uniqueId(device.Id, id),
		}
		if len(ch.StatusTexts) == 0 {
			sensor.UnitOfMeasurement = ch.Unit
			sensor.StateClass = meta.StateClass
			sensor.DeviceClass = meta.DeviceClass
		} else {
			sensor.DeviceClass = DEVICE_CLASS_ENUM
			sensor.Options = ch.StatusTexts
		}
		switch {
		case ch.IsParam():
			sensor.EntityCategory = ENTITY_CLASS_CONFIG
		case meta.Diagnostic || ch.IsTest():
			sensor.EntityCategory = ENTITY_CLASS_DIAGNOSTIC
		}
		if meta.Disabled || ch.IsTest() {
			sensor.EnabledByDefault = optionalBool(false)
		}
		sensors = append(sensors, sensor)
	}
	return sensors
}

// ChannelInputNumbers maps the writable param channels of a device.
func ChannelInputNumbers(device Device, info DeviceInfo) []GenericInputNumber {
	var inputNumbers []GenericInputNumber
	for _, ch := range info.Channels {
		if !ch.IsParam() || ch.Range == nil {
			continue
		}
		meta := Channels().Lookup(ch.Name)
		id := ChannelSensorId(info.Serial, ch.Name)
		inputNumbers = append(inputNumbers, GenericInputNumber{
			Device:       device,
			Id:           id,
			Name:         meta.Label,
			UniqueId:     uniqueId(device.Id, id),
			Icon:         meta.Icon,
			Unit:         ch.Unit,
			Min:          ch.Range.Min,
			Max:          ch.Range.Max,
			Step:           1,
			Mode:           INPUT_NUMBER_MODE_BOX,
			EntityCategory: ENTITY_CLASS_CONFIG,
		})
	}
	return inputNumbers
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Bridge connection state
	sensors = append(sensors, GenericSensor{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	})

	return sensors
}

func BridgeSwitches(bridgeDevice Device) []GenericSwitch {
	return []GenericSwitch{{
		Device:   bridgeDevice,
		Id:       SWITCH_ID_DETECTION,
		Name:     "Device detection",
		UniqueId: uniqueId(bridgeDevice.Id, SWITCH_ID_DETECTION),
		Icon:     "mdi:magnify-scan",
	}}
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}

func optionalBool(value bool) *bool {
	return &value
}
