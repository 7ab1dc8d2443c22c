package yasdi

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDriversListed(t *testing.T) {

	assert := assert.New(t)

	dm := NewDriverManager(NewTestDriverLibrary("COM1", "COM2", "IP"))
	drivers := dm.Drivers()

	assert.Equal([]DriverHandle{1, 2, 3}, drivers)
	for _, d := range drivers {
		name, err := dm.DriverName(d)
		assert.NoError(err)
		assert.NotEmpty(name)
	}
}

func TestDriversCapped(t *testing.T) {

	assert := assert.New(t)

	names := make([]string, 40)
	for i := range names {
		names[i] = "COM"
	}
	dm := NewDriverManager(NewTestDriverLibrary(names...))

	assert.Len(dm.Drivers(), MaxDrivers)
}

func TestDriverNameUnknown(t *testing.T) {

	assert := assert.New(t)

	dm := NewDriverManager(NewTestDriverLibrary("COM1"))
	_, err := dm.DriverName(7)

	assert.ErrorIs(err, ErrNoDriverName)
}

func TestDriverNameTruncated(t *testing.T) {

	assert := assert.New(t)

	long := "/dev/serial/by-id/usb-FTDI_FT232R_USB_UART_A12345-if00"
	dm := NewDriverManager(NewTestDriverLibrary(long))
	name, err := dm.DriverName(1)

	assert.NoError(err)
	assert.Equal(long[:DriverNameSize-1], name)
}

func TestDriverOnlineOffline(t *testing.T) {

	assert := assert.New(t)

	lib := NewTestDriverLibrary("COM1")
	dm := NewDriverManager(lib)

	assert.NoError(dm.SetOnline(1))
	assert.True(lib.IsOnline(1))
	assert.NoError(dm.SetOffline(1))
	assert.False(lib.IsOnline(1))

	err := dm.SetOnline(9)
	assert.True(errors.Is(err, YE_UNKNOWN_HANDLE))
	var callErr *CallError
	assert.True(errors.As(err, &callErr))
	assert.Equal("yasdiSetDriverOnline", callErr.Op)
}
