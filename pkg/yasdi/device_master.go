package yasdi

import (
	"fmt"
	"time"
)

// DeviceMaster drives device detection and channel access through the yasdi
// master library.
//
// The library keeps process wide state, so only one initialized DeviceMaster
// should exist per process. DeviceMaster does not serialize calls: callers
// must not use it from more than one goroutine at a time. Detection and live
// value reads (maxAge 0) block inside the library and cannot be cancelled.
type DeviceMaster struct {
	lib         MasterLibrary
	initialized bool
}

func NewDeviceMaster(lib MasterLibrary) *DeviceMaster {
	return &DeviceMaster{lib: lib}
}

// OpenDeviceMaster loads libyasdimaster from path (empty for the default name).
// The returned master still has to be initialized.
func OpenDeviceMaster(path string) (*DeviceMaster, error) {
	lib, err := LoadMasterLibrary(path)
	if err != nil {
		return nil, err
	}
	return NewDeviceMaster(lib), nil
}

// Initialize must be the first call. iniFile is handed to the library as is.
// It returns the number of available drivers.
func (m *DeviceMaster) Initialize(iniFile string) (uint32, error) {
	if m.initialized {
		return 0, ErrAlreadyInitialized
	}
	if !isASCII(iniFile) {
		return 0, fmt.Errorf("%w: %q", ErrNotEncodable, iniFile)
	}
	var driverCount uint32
	if err := callError("yasdiMasterInitialize", m.lib.Initialize(iniFile, &driverCount)); err != nil {
		return 0, err
	}
	m.initialized = true
	return driverCount, nil
}

func (m *DeviceMaster) Initialized() bool {
	return m.initialized
}

// Shutdown releases all library resources and invalidates every handle.
// It is a no-op when the master is not initialized.
func (m *DeviceMaster) Shutdown() {
	if !m.initialized {
		return
	}
	m.lib.Shutdown()
	m.initialized = false
}

// Reset returns the library to its state right after Initialize.
func (m *DeviceMaster) Reset() error {
	if !m.initialized {
		return ErrNotInitialized
	}
	m.lib.Reset()
	return nil
}

// Close shuts the master down and unloads the library.
func (m *DeviceMaster) Close() error {
	m.Shutdown()
	return m.lib.Close()
}

// DeviceHandles lists the devices found by the last detection, at most MaxDevices.
func (m *DeviceMaster) DeviceHandles() []DeviceHandle {
	if !m.initialized {
		return nil
	}
	var buf [MaxDevices]uint32
	n := m.lib.GetDeviceHandles(buf[:])
	if n > MaxDevices {
		n = MaxDevices
	}
	handles := make([]DeviceHandle, n)
	for i := range handles {
		handles[i] = DeviceHandle(buf[i])
	}
	return handles
}

func (m *DeviceMaster) DeviceName(dev DeviceHandle) (string, error) {
	return m.readString("GetDeviceName", DeviceNameSize, func(buf []byte) int32 {
		return m.lib.GetDeviceName(uint32(dev), buf)
	})
}

func (m *DeviceMaster) DeviceSerialNumber(dev DeviceHandle) (uint32, error) {
	if !m.initialized {
		return 0, ErrNotInitialized
	}
	var serial uint32
	if err := callError("GetDeviceSN", m.lib.GetDeviceSN(uint32(dev), &serial)); err != nil {
		return 0, err
	}
	return serial, nil
}

// DeviceType returns the type name (e.g. "WR21TL06"). Devices of one type
// share the same channel list.
func (m *DeviceMaster) DeviceType(dev DeviceHandle) (string, error) {
	return m.readString("GetDeviceType", DeviceTypeSize, func(buf []byte) int32 {
		return m.lib.GetDeviceType(uint32(dev), buf)
	})
}

// ChannelHandles lists the channels of one group, at most MaxChannels even if
// the device has more.
func (m *DeviceMaster) ChannelHandles(dev DeviceHandle, group ChannelGroup) []ChannelHandle {
	if !m.initialized || group > AllChannels {
		return nil
	}
	var buf [MaxChannels]uint32
	n := m.lib.GetChannelHandlesEx(uint32(dev), buf[:], uint32(group))
	if n > MaxChannels {
		n = MaxChannels
	}
	handles := make([]ChannelHandle, n)
	for i := range handles {
		handles[i] = ChannelHandle(buf[i])
	}
	return handles
}

// FindChannel looks a channel up by its exact name. Names that are not
// ascii are rejected before the library is called.
func (m *DeviceMaster) FindChannel(dev DeviceHandle, name string) (ChannelHandle, error) {
	if !m.initialized {
		return InvalidHandle, ErrNotInitialized
	}
	if !isASCII(name) {
		return InvalidHandle, fmt.Errorf("%w: %q", ErrNotEncodable, name)
	}
	h := m.lib.FindChannelName(uint32(dev), name)
	if h == InvalidHandle {
		return InvalidHandle, fmt.Errorf("%w: %q", ErrChannelNotFound, name)
	}
	return ChannelHandle(h), nil
}

// ChannelName reads the name into a ChannelNameSize buffer. Longer names come
// back truncated and then no longer match in FindChannel.
func (m *DeviceMaster) ChannelName(ch ChannelHandle) (string, error) {
	return m.readString("GetChannelName", ChannelNameSize, func(buf []byte) int32 {
		return m.lib.GetChannelName(uint32(ch), buf)
	})
}

func (m *DeviceMaster) ChannelUnit(ch ChannelHandle) (string, error) {
	return m.readString("GetChannelUnit", ChannelUnitSize, func(buf []byte) int32 {
		return m.lib.GetChannelUnit(uint32(ch), buf)
	})
}

// ChannelValue reads a channel value, accepting a cached reading at most
// maxAge seconds old. maxAge 0 forces a live read over the bus.
func (m *DeviceMaster) ChannelValue(ch ChannelHandle, dev DeviceHandle, maxAge uint32) (float64, error) {
	if !m.initialized {
		return 0, ErrNotInitialized
	}
	var value float64
	if err := callError("GetChannelValue", m.lib.GetChannelValue(uint32(ch), uint32(dev), &value, nil, maxAge)); err != nil {
		return 0, err
	}
	return value, nil
}

// ChannelTimestamp returns the time of the last successful read. ok is false
// when the channel was never read.
func (m *DeviceMaster) ChannelTimestamp(ch ChannelHandle, dev DeviceHandle) (ts time.Time, ok bool) {
	if !m.initialized {
		return time.Time{}, false
	}
	secs := m.lib.GetChannelValueTimeStamp(uint32(ch), uint32(dev))
	if secs == 0 {
		return time.Time{}, false
	}
	return time.Unix(int64(secs), 0), true
}

// SetChannelValue writes a parameter channel.
func (m *DeviceMaster) SetChannelValue(ch ChannelHandle, dev DeviceHandle, value float64) error {
	if !m.initialized {
		return ErrNotInitialized
	}
	return callError("SetChannelValue", m.lib.SetChannelValue(uint32(ch), uint32(dev), value))
}

// StatusTextCount returns how many status texts a status channel has.
func (m *DeviceMaster) StatusTextCount(ch ChannelHandle) (int, error) {
	if !m.initialized {
		return 0, ErrNotInitialized
	}
	n := m.lib.GetChannelStatTextCnt(uint32(ch))
	if n < 0 {
		return 0, callError("GetChannelStatTextCnt", n)
	}
	return int(n), nil
}

// StatusText returns the text for index in [0, StatusTextCount).
func (m *DeviceMaster) StatusText(ch ChannelHandle, index int) (string, error) {
	if index < 0 {
		return "", &CallError{Op: "GetChannelStatText", Code: YE_INVAL_ARGUMENT}
	}
	return m.readString("GetChannelStatText", StatusTextSize, func(buf []byte) int32 {
		return m.lib.GetChannelStatText(uint32(ch), uint32(index), buf)
	})
}

// StatusTexts returns all status texts of a channel in index order.
func (m *DeviceMaster) StatusTexts(ch ChannelHandle) ([]string, error) {
	n, err := m.StatusTextCount(ch)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		text, err := m.StatusText(ch, i)
		if err != nil {
			return nil, err
		}
		texts = append(texts, text)
	}
	return texts, nil
}

func (m *DeviceMaster) ChannelMask(ch ChannelHandle) (ChannelMask, error) {
	if !m.initialized {
		return ChannelMask{}, ErrNotInitialized
	}
	var mask ChannelMask
	if err := callError("GetChannelMask", m.lib.GetChannelMask(uint32(ch), &mask.Type, &mask.Index)); err != nil {
		return ChannelMask{}, err
	}
	return mask, nil
}

// MasterCommand sends a command to the master state machine. The command
// name must be ascii.
func (m *DeviceMaster) MasterCommand(cmd string, param1, param2 uint32) error {
	if !m.initialized {
		return ErrNotInitialized
	}
	if !isASCII(cmd) {
		return fmt.Errorf("%w: %q", ErrNotEncodable, cmd)
	}
	return callError("yasdiDoMasterCmdEx", m.lib.DoMasterCmdEx(cmd, param1, param2))
}

// DetectDevices scans all online drivers until at least minCount devices are
// found. This can take a long time and offers no cancellation. The devices
// found so far are available through DeviceHandles even when it fails.
func (m *DeviceMaster) DetectDevices(minCount uint32) error {
	return m.MasterCommand(CmdDetection, minCount, 0)
}

// DetectDevicesAsync runs DetectDevices on its own goroutine. The channel
// yields the result once. Dropping the channel does not stop the scan, and
// no other call may be made until the result was received.
func (m *DeviceMaster) DetectDevicesAsync(minCount uint32) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- m.DetectDevices(minCount)
	}()
	return done
}

// ChannelValueRange returns the range of a parameter channel. Channels
// without an explicit range fail with YE_NO_RANGE.
func (m *DeviceMaster) ChannelValueRange(ch ChannelHandle) (ValueRange, error) {
	if !m.initialized {
		return ValueRange{}, ErrNotInitialized
	}
	var r ValueRange
	if err := callError("GetChannelValRange", m.lib.GetChannelValRange(uint32(ch), &r.Min, &r.Max)); err != nil {
		return ValueRange{}, err
	}
	return r, nil
}

func (m *DeviceMaster) MasterState() MasterState {
	return MasterState(m.lib.GetMasterStateIndex())
}

func (m *DeviceMaster) readString(op string, size int, read func([]byte) int32) (string, error) {
	if !m.initialized {
		return "", ErrNotInitialized
	}
	buf := make([]byte, size)
	if err := callError(op, read(buf)); err != nil {
		return "", err
	}
	return cString(buf), nil
}
