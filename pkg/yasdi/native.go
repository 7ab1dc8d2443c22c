package yasdi

// DriverLibrary is the surface of the low level yasdi library (libyasdi).
// Slices stand in for caller allocated C buffers; their length is the
// capacity passed to the native function.
type DriverLibrary interface {
	GetDriver(handles []uint32) uint32
	GetDriverName(driver uint32, name []byte) int32
	SetDriverOnline(driver uint32) int32
	SetDriverOffline(driver uint32) int32
	Close() error
}

// MasterLibrary is the surface of the yasdi master library (libyasdimaster).
type MasterLibrary interface {
	Initialize(iniFile string, driverCount *uint32) int32
	Shutdown()
	Reset()
	GetDeviceHandles(handles []uint32) uint32
	GetDeviceName(device uint32, name []byte) int32
	GetDeviceSN(device uint32, serial *uint32) int32
	GetDeviceType(device uint32, typ []byte) int32
	GetChannelHandlesEx(device uint32, handles []uint32, group uint32) uint32
	FindChannelName(device uint32, name string) uint32
	GetChannelName(channel uint32, name []byte) int32
	GetChannelValue(channel, device uint32, value *float64, text []byte, maxAge uint32) int32
	GetChannelValueTimeStamp(channel, device uint32) uint32
	GetChannelUnit(channel uint32, unit []byte) int32
	GetMasterStateIndex() int32
	SetChannelValue(channel, device uint32, value float64) int32
	GetChannelStatTextCnt(channel uint32) int32
	GetChannelStatText(channel uint32, index uint32, text []byte) int32
	GetChannelMask(channel uint32, typ *uint8, index *uint16) int32
	DoMasterCmdEx(cmd string, param1, param2 uint32) int32
	GetChannelValRange(channel uint32, min, max *float64) int32
	Close() error
}
