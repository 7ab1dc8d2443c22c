package domain

// Device groups entities in Home Assistant. Inverters hang off the bridge
// device through ViaDevice.
type Device struct {
	Id           string
	Name         string
	Version      string
	Model        string
	Manufacturer string
	// SerialNumber is empty for the bridge.
	SerialNumber string
	ViaDevice    string
}

// GenericSensor is a read-only entity, one per monitored channel plus the
// bridge state.
type GenericSensor struct {
	Device            Device
	Id                string
	SensorType        string // sensor, binary_sensor
	Name              string
	UniqueId          string
	UnitOfMeasurement string
	StateClass        string // measurement, total_increasing
	DeviceClass       string // power, energy, voltage, current, frequency, duration, enum
	EntityCategory    string // diagnostic
	EnabledByDefault  *bool
	Icon              string
	// Options lists the texts of a status channel (device class enum).
	Options []string
}

// GenericSwitch triggers a bridge action. The only one is device detection.
type GenericSwitch struct {
	Device   Device
	Id       string
	Name     string
	UniqueId string
	Icon     string
}

// GenericInputNumber is a writable parameter channel with a value range.
type GenericInputNumber struct {
	Device         Device
	Id             string
	Name           string
	UniqueId       string
	Icon           string
	Unit           string
	Max            float64
	Min            float64
	Step           float64
	Mode           string
	EntityCategory string // config
}
