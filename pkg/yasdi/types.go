package yasdi

import "fmt"

type DriverHandle uint32

type DeviceHandle uint32

// ChannelHandle identifies a channel of one device. The library keys values
// and timestamps by (channel, device), so a handle must only be used with the
// device it was enumerated from.
type ChannelHandle uint32

// InvalidHandle is returned by the library when a lookup has no result.
const InvalidHandle = 0

// Fixed capacities handed to the library. The library writes by length, so
// these must not change.
const (
	MaxDrivers      = 32
	MaxDevices      = 50
	MaxChannels     = 255
	DriverNameSize  = 32
	DeviceNameSize  = 32
	DeviceTypeSize  = 16
	ChannelNameSize = 16
	ChannelUnitSize = 16
	StatusTextSize  = 16
)

type ChannelGroup uint32

const (
	SpotChannels ChannelGroup = iota
	ParamChannels
	TestChannels
	AllChannels
)

func (g ChannelGroup) String() string {
	switch g {
	case SpotChannels:
		return "spot"
	case ParamChannels:
		return "param"
	case TestChannels:
		return "test"
	case AllChannels:
		return "all"
	default:
		return fmt.Sprintf("group(%d)", uint32(g))
	}
}

// ParseChannelGroup accepts the names returned by ChannelGroup.String.
func ParseChannelGroup(s string) (ChannelGroup, error) {
	switch s {
	case "spot", "":
		return SpotChannels, nil
	case "param":
		return ParamChannels, nil
	case "test":
		return TestChannels, nil
	case "all":
		return AllChannels, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidGroup, s)
}

// MasterState is the progress index of the master's internal state machine.
type MasterState int32

const (
	StateInitial            MasterState = 1
	StateDeviceDetection    MasterState = 2
	StateAddressResolution  MasterState = 3
	StateChannelListRequest MasterState = 4
	StateCommandProcessing  MasterState = 5
	StateReadChannel        MasterState = 6
	StateWriteChannel       MasterState = 7
)

func (s MasterState) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateDeviceDetection:
		return "device_detection"
	case StateAddressResolution:
		return "address_resolution"
	case StateChannelListRequest:
		return "channel_list_request"
	case StateCommandProcessing:
		return "command_processing"
	case StateReadChannel:
		return "read_channel"
	case StateWriteChannel:
		return "write_channel"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// ChannelMask is the category/position encoding of a channel.
type ChannelMask struct {
	Type  uint8
	Index uint16
}

type ValueRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// CmdDetection is the only master command the library defines.
const CmdDetection = "detection"
