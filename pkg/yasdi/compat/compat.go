// Package compat exposes the yasdi façades with flat failure values instead
// of errors: "" for a driver name, "???" for other strings, NaN for numbers,
// 0 for handles, false for toggles and nil for absent values.
//
// Callers cannot tell why a call failed, only that it did. New code should
// use package yasdi directly.
package compat

import (
	"errors"
	"math"

	"github.com/berfenger/yasdi2mqtt/pkg/yasdi"
)

// Unknown is returned by string accessors when the library call fails.
const Unknown = "???"

type DriverManager struct {
	dm *yasdi.DriverManager
}

func NewDriverManager(dm *yasdi.DriverManager) *DriverManager {
	return &DriverManager{dm: dm}
}

func (m *DriverManager) ListDrivers() []yasdi.DriverHandle {
	return m.dm.Drivers()
}

// DriverName returns "" on failure. Configured drivers always have a name.
func (m *DriverManager) DriverName(h yasdi.DriverHandle) string {
	name, err := m.dm.DriverName(h)
	if err != nil {
		return ""
	}
	return name
}

func (m *DriverManager) SetOnline(h yasdi.DriverHandle) bool {
	return m.dm.SetOnline(h) == nil
}

func (m *DriverManager) SetOffline(h yasdi.DriverHandle) bool {
	return m.dm.SetOffline(h) == nil
}

func (m *DriverManager) Close() error {
	return m.dm.Close()
}

type DeviceMaster struct {
	m *yasdi.DeviceMaster
}

func NewDeviceMaster(m *yasdi.DeviceMaster) *DeviceMaster {
	return &DeviceMaster{m: m}
}

// Initialize returns the number of drivers, or 0 on failure.
func (d *DeviceMaster) Initialize(iniFile string) uint32 {
	n, err := d.m.Initialize(iniFile)
	if err != nil {
		return 0
	}
	return n
}

func (d *DeviceMaster) Shutdown() {
	d.m.Shutdown()
}

func (d *DeviceMaster) Reset() {
	_ = d.m.Reset()
}

func (d *DeviceMaster) Close() error {
	return d.m.Close()
}

func (d *DeviceMaster) ListDeviceHandles() []yasdi.DeviceHandle {
	return d.m.DeviceHandles()
}

func (d *DeviceMaster) DeviceName(dev yasdi.DeviceHandle) string {
	return orUnknown(d.m.DeviceName(dev))
}

// DeviceSerialNumber returns NaN on failure.
func (d *DeviceMaster) DeviceSerialNumber(dev yasdi.DeviceHandle) float64 {
	sn, err := d.m.DeviceSerialNumber(dev)
	if err != nil {
		return math.NaN()
	}
	return float64(sn)
}

func (d *DeviceMaster) DeviceType(dev yasdi.DeviceHandle) string {
	return orUnknown(d.m.DeviceType(dev))
}

func (d *DeviceMaster) ListChannelHandles(dev yasdi.DeviceHandle, group yasdi.ChannelGroup) []yasdi.ChannelHandle {
	return d.m.ChannelHandles(dev, group)
}

// FindChannelByName returns yasdi.InvalidHandle when the device has no such
// channel. A name that is not ascii fails before the library is called; that
// is the only error returned.
func (d *DeviceMaster) FindChannelByName(dev yasdi.DeviceHandle, name string) (yasdi.ChannelHandle, error) {
	ch, err := d.m.FindChannel(dev, name)
	switch {
	case err == nil:
		return ch, nil
	case errors.Is(err, yasdi.ErrNotEncodable):
		return yasdi.InvalidHandle, err
	default:
		return yasdi.InvalidHandle, nil
	}
}

func (d *DeviceMaster) ChannelName(ch yasdi.ChannelHandle) string {
	return orUnknown(d.m.ChannelName(ch))
}

func (d *DeviceMaster) ChannelUnit(ch yasdi.ChannelHandle) string {
	return orUnknown(d.m.ChannelUnit(ch))
}

// ChannelValue returns NaN when the value is unavailable.
func (d *DeviceMaster) ChannelValue(ch yasdi.ChannelHandle, dev yasdi.DeviceHandle, maxAge uint32) float64 {
	v, err := d.m.ChannelValue(ch, dev, maxAge)
	if err != nil {
		return math.NaN()
	}
	return v
}

// ChannelValueTimestamp returns unix seconds, or nil when the channel was
// never read.
func (d *DeviceMaster) ChannelValueTimestamp(ch yasdi.ChannelHandle, dev yasdi.DeviceHandle) *int64 {
	ts, ok := d.m.ChannelTimestamp(ch, dev)
	if !ok {
		return nil
	}
	secs := ts.Unix()
	return &secs
}

func (d *DeviceMaster) SetChannelValue(ch yasdi.ChannelHandle, dev yasdi.DeviceHandle, value float64) bool {
	return d.m.SetChannelValue(ch, dev, value) == nil
}

func (d *DeviceMaster) StatusTextCount(ch yasdi.ChannelHandle) int {
	n, err := d.m.StatusTextCount(ch)
	if err != nil {
		return 0
	}
	return n
}

func (d *DeviceMaster) StatusText(ch yasdi.ChannelHandle, index int) string {
	return orUnknown(d.m.StatusText(ch, index))
}

// ChannelMask returns (0, 0) on failure.
func (d *DeviceMaster) ChannelMask(ch yasdi.ChannelHandle) (uint8, uint16) {
	mask, err := d.m.ChannelMask(ch)
	if err != nil {
		return 0, 0
	}
	return mask.Type, mask.Index
}

func (d *DeviceMaster) DoMasterCommand(cmd string, param1, param2 uint32) bool {
	return d.m.MasterCommand(cmd, param1, param2) == nil
}

// ChannelValueRange returns nil bounds when the channel has no range or the
// handle is invalid.
func (d *DeviceMaster) ChannelValueRange(ch yasdi.ChannelHandle) (min, max *float64) {
	r, err := d.m.ChannelValueRange(ch)
	if err != nil {
		return nil, nil
	}
	return &r.Min, &r.Max
}

func (d *DeviceMaster) MasterStateIndex() yasdi.MasterState {
	return d.m.MasterState()
}

func orUnknown(s string, err error) string {
	if err != nil {
		return Unknown
	}
	return s
}
