package domain

// Events travel on the bridge event stream. Sensor updates end up on an MQTT
// state topic, the rest only drive other actors.

// SensorUpdate is implemented by every event that has a state topic.
type SensorUpdate interface {
	SensorId() string
	DeviceSerial() uint32
}

type SensorUpdateEventMixIn struct {
	Id string
	// Serial of the inverter the value was read from, 0 for bridge entities.
	Serial uint32
}

func (e SensorUpdateEventMixIn) SensorId() string {
	return e.Id
}

func (e SensorUpdateEventMixIn) DeviceSerial() uint32 {
	return e.Serial
}

// FloatSensorUpdateEvent is a spot or test channel reading.
type FloatSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value    float64
	Unit     string
	Decimals uint
}

// TextSensorUpdateEvent is a status channel reading resolved to its text.
type TextSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value string
	Index int
}

// InputNumberSensorUpdateEvent is the current value of a writable parameter.
type InputNumberSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value    float64
	Decimals uint
}

type SwitchSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

type BridgeStateUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

// DevicesChangedEvent is published after every detection.
type DevicesChangedEvent struct {
	Devices []DeviceInfo
}
