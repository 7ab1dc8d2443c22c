package yasdi

import (
	"fmt"
	"sync"
	"time"
)

// In-memory stand-ins for libyasdi and libyasdimaster. They simulate a small
// SMA bus and follow the result code conventions of the native libraries.

type TestDriver struct {
	Name   string
	Online bool
}

type TestDriverLibrary struct {
	mu      sync.Mutex
	drivers []*TestDriver
}

func NewTestDriverLibrary(names ...string) *TestDriverLibrary {
	lib := &TestDriverLibrary{}
	for _, name := range names {
		lib.drivers = append(lib.drivers, &TestDriver{Name: name})
	}
	return lib
}

func (l *TestDriverLibrary) GetDriver(handles []uint32) uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for i := range l.drivers {
		if n == len(handles) {
			break
		}
		handles[n] = uint32(i + 1)
		n++
	}
	return uint32(n)
}

func (l *TestDriverLibrary) GetDriverName(driver uint32, name []byte) int32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	d := l.driver(driver)
	if d == nil {
		return 0
	}
	return int32(writeCString(name, d.Name))
}

func (l *TestDriverLibrary) SetDriverOnline(driver uint32) int32 {
	return l.setOnline(driver, true)
}

func (l *TestDriverLibrary) SetDriverOffline(driver uint32) int32 {
	return l.setOnline(driver, false)
}

func (l *TestDriverLibrary) Close() error {
	return nil
}

// IsOnline reports the state of a driver by handle.
func (l *TestDriverLibrary) IsOnline(driver uint32) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	d := l.driver(driver)
	return d != nil && d.Online
}

func (l *TestDriverLibrary) setOnline(driver uint32, online bool) int32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	d := l.driver(driver)
	if d == nil {
		return int32(YE_UNKNOWN_HANDLE)
	}
	d.Online = online
	return int32(YE_OK)
}

func (l *TestDriverLibrary) anyOnline() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, d := range l.drivers {
		if d.Online {
			return true
		}
	}
	return false
}

func (l *TestDriverLibrary) driver(h uint32) *TestDriver {
	if h == 0 || int(h) > len(l.drivers) {
		return nil
	}
	return l.drivers[h-1]
}

// Channel kinds reported as the mask type.
const (
	TestKindAnalog  uint8 = 0x01
	TestKindDigital uint8 = 0x02
	TestKindCounter uint8 = 0x04
	TestKindStatus  uint8 = 0x08
)

type TestChannel struct {
	Name        string
	Unit        string
	Group       ChannelGroup
	Kind        uint8
	Value       float64
	StatusTexts []string
	Range       *ValueRange

	handle    uint32
	timestamp uint32
}

type TestDevice struct {
	Name     string
	Type     string
	Serial   uint32
	Channels []*TestChannel

	handle uint32
}

type TestMasterLibrary struct {
	// DetectionDelay simulates the time a bus scan takes.
	DetectionDelay time.Duration
	// Now is the clock used for value timestamps.
	Now func() time.Time

	mu          sync.Mutex
	drivers     *TestDriverLibrary
	bus         []*TestDevice
	found       []*TestDevice
	channels    map[uint32]*TestChannel
	owners      map[uint32]*TestDevice
	initialized bool
	detecting   bool
	state       MasterState
	iniFile     string
}

// NewTestLibraries returns a driver library with one serial driver and a
// master library with two inverters attached to it.
func NewTestLibraries() (*TestDriverLibrary, *TestMasterLibrary) {
	drivers := NewTestDriverLibrary("COM1")
	master := NewTestMasterLibrary(drivers,
		TestInverter("SB 3000 SN:2000123456", "SB 3000", 2000123456, 2485),
		TestInverter("SB 2500 SN:2000654321", "SB 2500", 2000654321, 1730),
	)
	return drivers, master
}

func NewTestMasterLibrary(drivers *TestDriverLibrary, bus ...*TestDevice) *TestMasterLibrary {
	lib := &TestMasterLibrary{
		Now:      time.Now,
		drivers:  drivers,
		bus:      bus,
		channels: map[uint32]*TestChannel{},
		owners:   map[uint32]*TestDevice{},
	}
	next := uint32(1)
	for i, dev := range bus {
		dev.handle = uint32(i + 1)
		for _, ch := range dev.Channels {
			ch.handle = next
			lib.channels[next] = ch
			lib.owners[next] = dev
			next++
		}
	}
	return lib
}

// TestInverter builds a device with the usual SD1 spot, parameter and test
// channels of a Sunny Boy.
func TestInverter(name, typ string, serial uint32, pac float64) *TestDevice {
	return &TestDevice{
		Name:   name,
		Type:   typ,
		Serial: serial,
		Channels: []*TestChannel{
			{Name: "Pac", Unit: "W", Group: SpotChannels, Kind: TestKindAnalog, Value: pac},
			{Name: "E-Tag", Unit: "kWh", Group: SpotChannels, Kind: TestKindCounter, Value: 12.4},
			{Name: "E-Total", Unit: "kWh", Group: SpotChannels, Kind: TestKindCounter, Value: 35211.7},
			{Name: "h-Total", Unit: "h", Group: SpotChannels, Kind: TestKindCounter, Value: 48211.2},
			{Name: "Netz-Ein", Group: SpotChannels, Kind: TestKindCounter, Value: 5120},
			{Name: "Upv-Ist", Unit: "V", Group: SpotChannels, Kind: TestKindAnalog, Value: 312},
			{Name: "Uac", Unit: "V", Group: SpotChannels, Kind: TestKindAnalog, Value: 231.4},
			{Name: "Iac-Ist", Unit: "A", Group: SpotChannels, Kind: TestKindAnalog, Value: 10.7},
			{Name: "Fac", Unit: "Hz", Group: SpotChannels, Kind: TestKindAnalog, Value: 50.01},
			{Name: "Status", Group: SpotChannels, Kind: TestKindStatus, Value: 2,
				StatusTexts: []string{"Stop", "Warten", "Betrieb", "Stoerung", "Fehler", "Erfassung", "Transparent"}},
			{Name: "Messintervall", Unit: "min", Group: ParamChannels, Kind: TestKindAnalog, Value: 15,
				Range: &ValueRange{Min: 0, Max: 240}},
			{Name: "T-Start", Unit: "s", Group: ParamChannels, Kind: TestKindAnalog, Value: 10,
				Range: &ValueRange{Min: 5, Max: 300}},
			{Name: "Software-BFR", Group: ParamChannels, Kind: TestKindAnalog, Value: 2.4},
			{Name: "Riso", Unit: "kOhm", Group: TestChannels, Kind: TestKindAnalog, Value: 5600},
		},
	}
}

// SetTestValue changes the value the bus reports for a channel.
func (l *TestMasterLibrary) SetTestValue(serial uint32, channel string, value float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, dev := range l.bus {
		if dev.Serial != serial {
			continue
		}
		for _, ch := range dev.Channels {
			if ch.Name == channel {
				ch.Value = value
				ch.timestamp = 0
				return nil
			}
		}
	}
	return fmt.Errorf("no channel %q on device %d", channel, serial)
}

// IniFile returns the path passed to Initialize.
func (l *TestMasterLibrary) IniFile() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.iniFile
}

func (l *TestMasterLibrary) Initialize(iniFile string, driverCount *uint32) int32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if iniFile == "" {
		return int32(YE_INVAL_ARGUMENT)
	}
	l.iniFile = iniFile
	l.initialized = true
	l.state = StateInitial
	if l.drivers != nil {
		*driverCount = uint32(len(l.drivers.drivers))
	}
	return int32(YE_OK)
}

func (l *TestMasterLibrary) Shutdown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.initialized = false
	l.found = nil
	l.state = 0
	l.clearTimestamps()
}

func (l *TestMasterLibrary) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.found = nil
	l.state = StateInitial
	l.clearTimestamps()
}

func (l *TestMasterLibrary) GetDeviceHandles(handles []uint32) uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, dev := range l.found {
		if n == len(handles) {
			break
		}
		handles[n] = dev.handle
		n++
	}
	return uint32(n)
}

func (l *TestMasterLibrary) GetDeviceName(device uint32, name []byte) int32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	dev, code := l.device(device)
	if code != YE_OK {
		return int32(code)
	}
	writeCString(name, dev.Name)
	return int32(YE_OK)
}

func (l *TestMasterLibrary) GetDeviceSN(device uint32, serial *uint32) int32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	dev, code := l.device(device)
	if code != YE_OK {
		return int32(code)
	}
	*serial = dev.Serial
	return int32(YE_OK)
}

func (l *TestMasterLibrary) GetDeviceType(device uint32, typ []byte) int32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	dev, code := l.device(device)
	if code != YE_OK {
		return int32(code)
	}
	writeCString(typ, dev.Type)
	return int32(YE_OK)
}

// GetChannelHandlesEx reports the total number of matching channels, which
// may exceed the number written into handles.
func (l *TestMasterLibrary) GetChannelHandlesEx(device uint32, handles []uint32, group uint32) uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	dev, code := l.device(device)
	if code != YE_OK {
		return 0
	}
	total := 0
	for _, ch := range dev.Channels {
		if ChannelGroup(group) != AllChannels && ch.Group != ChannelGroup(group) {
			continue
		}
		if total < len(handles) {
			handles[total] = ch.handle
		}
		total++
	}
	return uint32(total)
}

func (l *TestMasterLibrary) FindChannelName(device uint32, name string) uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	dev, code := l.device(device)
	if code != YE_OK {
		return InvalidHandle
	}
	for _, ch := range dev.Channels {
		if ch.Name == name {
			return ch.handle
		}
	}
	return InvalidHandle
}

func (l *TestMasterLibrary) GetChannelName(channel uint32, name []byte) int32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, code := l.channel(channel)
	if code != YE_OK {
		return int32(code)
	}
	writeCString(name, ch.Name)
	return int32(YE_OK)
}

func (l *TestMasterLibrary) GetChannelValue(channel, device uint32, value *float64, text []byte, maxAge uint32) int32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, code := l.channelOf(channel, device)
	if code != YE_OK {
		return int32(code)
	}
	l.state = StateReadChannel
	now := uint32(l.Now().Unix())
	if maxAge == 0 || ch.timestamp == 0 || now-ch.timestamp > maxAge {
		ch.timestamp = now
	}
	*value = ch.Value
	if len(text) > 0 && len(ch.StatusTexts) > 0 {
		idx := int(ch.Value)
		if idx >= 0 && idx < len(ch.StatusTexts) {
			writeCString(text, ch.StatusTexts[idx])
		}
	}
	return int32(YE_OK)
}

func (l *TestMasterLibrary) GetChannelValueTimeStamp(channel, device uint32) uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, code := l.channelOf(channel, device)
	if code != YE_OK {
		return 0
	}
	return ch.timestamp
}

func (l *TestMasterLibrary) GetChannelUnit(channel uint32, unit []byte) int32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, code := l.channel(channel)
	if code != YE_OK {
		return int32(code)
	}
	writeCString(unit, ch.Unit)
	return int32(YE_OK)
}

func (l *TestMasterLibrary) GetMasterStateIndex() int32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int32(l.state)
}

func (l *TestMasterLibrary) SetChannelValue(channel, device uint32, value float64) int32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, code := l.channelOf(channel, device)
	if code != YE_OK {
		return int32(code)
	}
	if ch.Group != ParamChannels {
		return int32(YE_CHAN_TYPE_MISMATCH)
	}
	if ch.Range != nil && (value < ch.Range.Min || value > ch.Range.Max) {
		return int32(YE_VALUE_NOT_VALID)
	}
	l.state = StateWriteChannel
	ch.Value = value
	ch.timestamp = uint32(l.Now().Unix())
	return int32(YE_OK)
}

func (l *TestMasterLibrary) GetChannelStatTextCnt(channel uint32) int32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, code := l.channel(channel)
	if code != YE_OK {
		return int32(code)
	}
	return int32(len(ch.StatusTexts))
}

func (l *TestMasterLibrary) GetChannelStatText(channel uint32, index uint32, text []byte) int32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, code := l.channel(channel)
	if code != YE_OK {
		return int32(code)
	}
	if int(index) >= len(ch.StatusTexts) {
		return int32(YE_INVAL_ARGUMENT)
	}
	writeCString(text, ch.StatusTexts[index])
	return int32(YE_OK)
}

func (l *TestMasterLibrary) GetChannelMask(channel uint32, typ *uint8, index *uint16) int32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, code := l.channel(channel)
	if code != YE_OK {
		return int32(code)
	}
	*typ = ch.Kind
	for i, c := range l.owners[channel].Channels {
		if c == ch {
			*index = uint16(i)
		}
	}
	return int32(YE_OK)
}

// DoMasterCmdEx only knows "detection". Detection needs an online driver and
// fails with YE_NOT_ALL_DEVS_FOUND when fewer than param1 devices answer.
func (l *TestMasterLibrary) DoMasterCmdEx(cmd string, param1, param2 uint32) int32 {
	l.mu.Lock()
	if !l.initialized {
		l.mu.Unlock()
		return int32(YE_SHUTDOWN)
	}
	if cmd != CmdDetection {
		l.mu.Unlock()
		return int32(YE_NOT_SUPPORTED)
	}
	if l.detecting {
		l.mu.Unlock()
		return int32(YE_DEV_DETECT_IN_PROGRESS)
	}
	l.detecting = true
	l.state = StateDeviceDetection
	delay := l.DetectionDelay
	l.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	online := l.drivers != nil && l.drivers.anyOnline()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.detecting = false
	l.state = StateCommandProcessing
	if !online {
		l.found = nil
		return int32(YE_NOT_ALL_DEVS_FOUND)
	}
	l.found = l.bus
	if uint32(len(l.found)) < param1 {
		return int32(YE_NOT_ALL_DEVS_FOUND)
	}
	return int32(YE_OK)
}

func (l *TestMasterLibrary) GetChannelValRange(channel uint32, min, max *float64) int32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, code := l.channel(channel)
	if code != YE_OK {
		return int32(code)
	}
	if ch.Range == nil {
		return int32(YE_NO_RANGE)
	}
	*min = ch.Range.Min
	*max = ch.Range.Max
	return int32(YE_OK)
}

func (l *TestMasterLibrary) Close() error {
	return nil
}

func (l *TestMasterLibrary) device(h uint32) (*TestDevice, ResultCode) {
	if !l.initialized {
		return nil, YE_SHUTDOWN
	}
	for _, dev := range l.found {
		if dev.handle == h {
			return dev, YE_OK
		}
	}
	return nil, YE_UNKNOWN_HANDLE
}

func (l *TestMasterLibrary) channel(h uint32) (*TestChannel, ResultCode) {
	if !l.initialized {
		return nil, YE_SHUTDOWN
	}
	ch, ok := l.channels[h]
	if !ok {
		return nil, YE_UNKNOWN_HANDLE
	}
	return ch, YE_OK
}

// channelOf resolves the (channel, device) pair; a channel used with another
// device than its own is an unknown handle.
func (l *TestMasterLibrary) channelOf(channel, device uint32) (*TestChannel, ResultCode) {
	dev, code := l.device(device)
	if code != YE_OK {
		return nil, code
	}
	ch, code := l.channel(channel)
	if code != YE_OK {
		return nil, code
	}
	if l.owners[channel] != dev {
		return nil, YE_UNKNOWN_HANDLE
	}
	return ch, YE_OK
}

func (l *TestMasterLibrary) clearTimestamps() {
	for _, ch := range l.channels {
		ch.timestamp = 0
	}
}

// writeCString copies s into buf, truncating to leave room for the NUL.
func writeCString(buf []byte, s string) int {
	if len(buf) == 0 {
		return 0
	}
	n := copy(buf[:len(buf)-1], s)
	buf[n] = 0
	return n
}
