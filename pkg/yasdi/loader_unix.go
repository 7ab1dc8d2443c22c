//go:build darwin || linux || freebsd

package yasdi

import (
	"runtime"

	"github.com/ebitengine/purego"
	"github.com/pkg/errors"
)

const (
	driverLibraryName = "yasdi"
	masterLibraryName = "yasdimaster"
)

// LibraryFileName returns the platform file name of a shared library, e.g.
// libyasdi.so on linux. A bare file name is resolved through the dynamic
// loader search path (LD_LIBRARY_PATH, DYLD_LIBRARY_PATH).
func LibraryFileName(name string) string {
	if runtime.GOOS == "darwin" {
		return "lib" + name + ".dylib"
	}
	return "lib" + name + ".so"
}

type symbol struct {
	name string
	fptr any
}

func openLibrary(path, name string) (uintptr, error) {
	if path == "" {
		path = LibraryFileName(name)
	}
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return 0, errors.Wrapf(err, "yasdi: could not load %s", path)
	}
	return handle, nil
}

func bindSymbols(handle uintptr, symbols []symbol) error {
	for _, s := range symbols {
		addr, err := purego.Dlsym(handle, s.name)
		if err != nil {
			return errors.Wrapf(err, "yasdi: missing symbol %s", s.name)
		}
		purego.RegisterFunc(s.fptr, addr)
	}
	return nil
}

type nativeDriverLibrary struct {
	handle uintptr

	getDriver        func(handles *uint32, max uint32) uint32
	getDriverName    func(driver uint32, name *byte, size uint32) int32
	setDriverOnline  func(driver uint32) int32
	setDriverOffline func(driver uint32) int32
}

// LoadDriverLibrary binds libyasdi. An empty path loads the platform default
// name. Any missing symbol fails the whole load.
func LoadDriverLibrary(path string) (DriverLibrary, error) {
	handle, err := openLibrary(path, driverLibraryName)
	if err != nil {
		return nil, err
	}
	lib := &nativeDriverLibrary{handle: handle}
	err = bindSymbols(handle, []symbol{
		{"yasdiGetDriver", &lib.getDriver},
		{"yasdiGetDriverName", &lib.getDriverName},
		{"yasdiSetDriverOnline", &lib.setDriverOnline},
		{"yasdiSetDriverOffline", &lib.setDriverOffline},
	})
	if err != nil {
		purego.Dlclose(handle)
		return nil, err
	}
	return lib, nil
}

func (l *nativeDriverLibrary) GetDriver(handles []uint32) uint32 {
	if len(handles) == 0 {
		return 0
	}
	return l.getDriver(&handles[0], uint32(len(handles)))
}

func (l *nativeDriverLibrary) GetDriverName(driver uint32, name []byte) int32 {
	return l.getDriverName(driver, &name[0], uint32(len(name)))
}

func (l *nativeDriverLibrary) SetDriverOnline(driver uint32) int32 {
	return l.setDriverOnline(driver)
}

func (l *nativeDriverLibrary) SetDriverOffline(driver uint32) int32 {
	return l.setDriverOffline(driver)
}

func (l *nativeDriverLibrary) Close() error {
	return purego.Dlclose(l.handle)
}

type nativeMasterLibrary struct {
	handle uintptr

	initialize          func(iniFile string, driverCount *uint32) int32
	shutdown            func()
	reset               func()
	getDeviceHandles    func(handles *uint32, max uint32) uint32
	getDeviceName       func(device uint32, name *byte, size uint32) int32
	getDeviceSN         func(device uint32, serial *uint32) int32
	getDeviceType       func(device uint32, typ *byte, size uint32) int32
	getChannelHandlesEx func(device uint32, handles *uint32, max uint32, group uint32) uint32
	findChannelName     func(device uint32, name string) uint32
	getChannelName      func(channel uint32, name *byte, size uint32) int32
	getChannelValue     func(channel, device uint32, value *float64, text *byte, textSize uint32, maxAge uint32) int32
	getChannelTimeStamp func(channel, device uint32) uint32
	getChannelUnit      func(channel uint32, unit *byte, size uint32) int32
	getMasterStateIndex func() int32
	setChannelValue     func(channel, device uint32, value float64) int32
	getStatTextCnt      func(channel uint32) int32
	getStatText         func(channel uint32, index uint32, text *byte, size uint32) int32
	getChannelMask      func(channel uint32, typ *uint8, index *uint16) int32
	doMasterCmdEx       func(cmd string, param1, param2 uint32) int32
	getChannelValRange  func(channel uint32, min, max *float64) int32
}

// LoadMasterLibrary binds libyasdimaster. An empty path loads the platform
// default name. Any missing symbol fails the whole load.
func LoadMasterLibrary(path string) (MasterLibrary, error) {
	handle, err := openLibrary(path, masterLibraryName)
	if err != nil {
		return nil, err
	}
	lib := &nativeMasterLibrary{handle: handle}
	err = bindSymbols(handle, []symbol{
		{"yasdiMasterInitialize", &lib.initialize},
		{"yasdiMasterShutdown", &lib.shutdown},
		{"yasdiReset", &lib.reset},
		{"GetDeviceHandles", &lib.getDeviceHandles},
		{"GetDeviceName", &lib.getDeviceName},
		{"GetDeviceSN", &lib.getDeviceSN},
		{"GetDeviceType", &lib.getDeviceType},
		{"GetChannelHandlesEx", &lib.getChannelHandlesEx},
		{"FindChannelName", &lib.findChannelName},
		{"GetChannelName", &lib.getChannelName},
		{"GetChannelValue", &lib.getChannelValue},
		{"GetChannelValueTimeStamp", &lib.getChannelTimeStamp},
		{"GetChannelUnit", &lib.getChannelUnit},
		{"GetMasterStateIndex", &lib.getMasterStateIndex},
		{"SetChannelValue", &lib.setChannelValue},
		{"GetChannelStatTextCnt", &lib.getStatTextCnt},
		{"GetChannelStatText", &lib.getStatText},
		{"GetChannelMask", &lib.getChannelMask},
		{"yasdiDoMasterCmdEx", &lib.doMasterCmdEx},
		{"GetChannelValRange", &lib.getChannelValRange},
	})
	if err != nil {
		purego.Dlclose(handle)
		return nil, err
	}
	return lib, nil
}

func (l *nativeMasterLibrary) Initialize(iniFile string, driverCount *uint32) int32 {
	return l.initialize(iniFile, driverCount)
}

func (l *nativeMasterLibrary) Shutdown() {
	l.shutdown()
}

func (l *nativeMasterLibrary) Reset() {
	l.reset()
}

func (l *nativeMasterLibrary) GetDeviceHandles(handles []uint32) uint32 {
	if len(handles) == 0 {
		return 0
	}
	return l.getDeviceHandles(&handles[0], uint32(len(handles)))
}

func (l *nativeMasterLibrary) GetDeviceName(device uint32, name []byte) int32 {
	return l.getDeviceName(device, &name[0], uint32(len(name)))
}

func (l *nativeMasterLibrary) GetDeviceSN(device uint32, serial *uint32) int32 {
	return l.getDeviceSN(device, serial)
}

func (l *nativeMasterLibrary) GetDeviceType(device uint32, typ []byte) int32 {
	return l.getDeviceType(device, &typ[0], uint32(len(typ)))
}

func (l *nativeMasterLibrary) GetChannelHandlesEx(device uint32, handles []uint32, group uint32) uint32 {
	if len(handles) == 0 {
		return 0
	}
	return l.getChannelHandlesEx(device, &handles[0], uint32(len(handles)), group)
}

func (l *nativeMasterLibrary) FindChannelName(device uint32, name string) uint32 {
	return l.findChannelName(device, name)
}

func (l *nativeMasterLibrary) GetChannelName(channel uint32, name []byte) int32 {
	return l.getChannelName(channel, &name[0], uint32(len(name)))
}

func (l *nativeMasterLibrary) GetChannelValue(channel, device uint32, value *float64, text []byte, maxAge uint32) int32 {
	var textPtr *byte
	if len(text) > 0 {
		textPtr = &text[0]
	}
	return l.getChannelValue(channel, device, value, textPtr, uint32(len(text)), maxAge)
}

func (l *nativeMasterLibrary) GetChannelValueTimeStamp(channel, device uint32) uint32 {
	return l.getChannelTimeStamp(channel, device)
}

func (l *nativeMasterLibrary) GetChannelUnit(channel uint32, unit []byte) int32 {
	return l.getChannelUnit(channel, &unit[0], uint32(len(unit)))
}

func (l *nativeMasterLibrary) GetMasterStateIndex() int32 {
	return l.getMasterStateIndex()
}

func (l *nativeMasterLibrary) SetChannelValue(channel, device uint32, value float64) int32 {
	return l.setChannelValue(channel, device, value)
}

func (l *nativeMasterLibrary) GetChannelStatTextCnt(channel uint32) int32 {
	return l.getStatTextCnt(channel)
}

func (l *nativeMasterLibrary) GetChannelStatText(channel uint32, index uint32, text []byte) int32 {
	return l.getStatText(channel, index, &text[0], uint32(len(text)))
}

func (l *nativeMasterLibrary) GetChannelMask(channel uint32, typ *uint8, index *uint16) int32 {
	return l.getChannelMask(channel, typ, index)
}

func (l *nativeMasterLibrary) DoMasterCmdEx(cmd string, param1, param2 uint32) int32 {
	return l.doMasterCmdEx(cmd, param1, param2)
}

func (l *nativeMasterLibrary) GetChannelValRange(channel uint32, min, max *float64) int32 {
	return l.getChannelValRange(channel, min, max)
}

func (l *nativeMasterLibrary) Close() error {
	return purego.Dlclose(l.handle)
}
