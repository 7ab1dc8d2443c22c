package domain

import (
	"errors"
	"time"

	"github.com/berfenger/yasdi2mqtt/pkg/yasdi"
)

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_YASDI        = "yasdi"
	ACTOR_ID_POLLER       = "poller"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
	ACTOR_ID_SCHEDULER    = "scheduler"
)

var (
	ErrDeviceNotFound  = errors.New("device not found")
	ErrChannelNotFound = errors.New("channel not found")
)

type DriverInfo struct {
	Handle yasdi.DriverHandle `json:"handle"`
	Name   string             `json:"name"`
	Online bool               `json:"online"`
}

type DeviceInfo struct {
	Handle   yasdi.DeviceHandle `json:"-"`
	Serial   uint32             `json:"serial"`
	Name     string             `json:"name"`
	Type     string             `json:"type"`
	Channels []ChannelInfo      `json:"channels,omitempty"`
}

type ChannelInfo struct {
	Handle      yasdi.ChannelHandle `json:"-"`
	Name        string              `json:"name"`
	Unit        string              `json:"unit,omitempty"`
	Group       string              `json:"group"`
	StatusTexts []string            `json:"status_texts,omitempty"`
	Range       *yasdi.ValueRange   `json:"range,omitempty"`
}

func (c ChannelInfo) IsParam() bool {
	return c.Group == yasdi.ParamChannels.String()
}

func (c ChannelInfo) IsTest() bool {
	return c.Group == yasdi.TestChannels.String()
}

// ChannelValue is one reading. Error is set instead of Value when the read failed.
type ChannelValue struct {
	Serial    uint32    `json:"serial"`
	Channel   string    `json:"channel"`
	Unit      string    `json:"unit,omitempty"`
	Group     string    `json:"group,omitempty"`
	Value     float64   `json:"value"`
	Text      string    `json:"text,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

func (v ChannelValue) Valid() bool {
	return v.Error == ""
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdate
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors      []GenericSensor
	Switches     []GenericSwitch
	InputNumbers []GenericInputNumber
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
