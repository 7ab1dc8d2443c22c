package events

import (
	. "github.com/berfenger/yasdi2mqtt/internal/core/domain"
)

// ChannelValuesToUpdateEvents maps channel readings to sensor updates. Failed
// reads produce no event so the last published state stays in place.
func ChannelValuesToUpdateEvents(values []ChannelValue) []any {
	var events []any
	for _, v := range values {
		if !v.Valid() {
			continue
		}
		id := ChannelSensorId(v.Serial, v.Channel)
		meta := Channels().Lookup(v.Channel)
		switch {
		case v.Text != "":
			// Status channel
			events = append(events, TextSensorUpdateEvent{
				SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: id, Serial: v.Serial},
				Value:                  v.Text,
				Index:                  int(v.Value),
			})
		case v.Group == "param":
			events = append(events, InputNumberSensorUpdateEvent{
				SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: id, Serial: v.Serial},
				Value:                  v.Value,
				Decimals:               meta.DecimalPlaces(),
			})
		default:
			events = append(events, FloatSensorUpdateEvent{
				SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: id, Serial: v.Serial},
				Value:                  v.Value,
				Unit:                   v.Unit,
				Decimals:               meta.DecimalPlaces(),
			})
		}
	}
	return events
}

func DetectionSwitchUpdateEvent(running bool) any {
	return SwitchSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SWITCH_ID_DETECTION,
		},
		Value: running,
	}
}

func BridgeStateUpdateEvents(online bool) []any {
	return []any{BridgeStateUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BRIDGE_STATE,
		},
		Value: online,
	}}
}
