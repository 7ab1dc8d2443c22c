package domain

import "github.com/berfenger/yasdi2mqtt/pkg/yasdi"

// YasdiRequest marks the requests served by the yasdi actor. The master
// forwards them unchanged.
type YasdiRequest interface {
	ActorRequest
	yasdiRequest()
}

type YasdiRequestMixIn struct {
	ActorRequestMixIn
}

func (YasdiRequestMixIn) yasdiRequest() {}

type GetDriversRequest struct {
	YasdiRequestMixIn
}

type GetDriversResponse struct {
	ActorResponseMixIn
	Drivers []DriverInfo
}

type GetDevicesRequest struct {
	YasdiRequestMixIn
	// WithChannels adds the full channel list of every device.
	WithChannels bool
}

type GetDevicesResponse struct {
	ActorResponseMixIn
	Devices []DeviceInfo
}

type GetChannelsRequest struct {
	YasdiRequestMixIn
	Serial uint32
	Group  yasdi.ChannelGroup
}

type GetChannelsResponse struct {
	ActorResponseMixIn
	Channels []ChannelInfo
}

// GetChannelValuesRequest reads the named channels. Serial 0 selects every
// detected device; devices lacking a channel are skipped.
type GetChannelValuesRequest struct {
	YasdiRequestMixIn
	Serial   uint32
	Channels []string
	MaxAge   uint32
}

type GetChannelValuesResponse struct {
	ActorResponseMixIn
	Values []ChannelValue
}

type WriteChannelRequest struct {
	YasdiRequestMixIn
	Serial  uint32
	Channel string
	Value   float64
}

type WriteChannelResponse struct {
	ActorResponseMixIn
	Value ChannelValue
}

// DetectDevicesRequest runs a bus scan. MinCount 0 uses the configured count.
type DetectDevicesRequest struct {
	YasdiRequestMixIn
	MinCount uint32
}

type DetectDevicesResponse struct {
	ActorResponseMixIn
	Devices []DeviceInfo
}

type GetMasterStateRequest struct {
	YasdiRequestMixIn
}

type GetMasterStateResponse struct {
	ActorResponseMixIn
	State yasdi.MasterState
}

// ensure interface compliance
var (
	_ YasdiRequest = GetDriversRequest{}
	_ YasdiRequest = GetDevicesRequest{}
	_ YasdiRequest = GetChannelsRequest{}
	_ YasdiRequest = GetChannelValuesRequest{}
	_ YasdiRequest = WriteChannelRequest{}
	_ YasdiRequest = DetectDevicesRequest{}
	_ YasdiRequest = GetMasterStateRequest{}
)
