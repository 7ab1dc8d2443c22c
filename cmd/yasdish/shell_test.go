package main

import (
	"bytes"
	"testing"

	"github.com/berfenger/yasdi2mqtt/pkg/yasdi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestShell(t *testing.T) (*shell, *bytes.Buffer) {
	d, m := yasdi.NewTestLibraries()
	master := yasdi.NewDeviceMaster(m)
	_, err := master.Initialize("yasdi.ini")
	require.NoError(t, err)
	out := &bytes.Buffer{}
	return &shell{drivers: yasdi.NewDriverManager(d), master: master, out: out}, out
}

func TestShellSession(t *testing.T) {

	assert := assert.New(t)

	sh, out := newTestShell(t)

	assert.True(sh.exec("drivers"))
	assert.Contains(out.String(), "1\tCOM1")

	out.Reset()
	sh.exec("online 1")
	sh.exec("detect 2")
	assert.Contains(out.String(), "2 devices")
	assert.NotContains(out.String(), "error")

	out.Reset()
	sh.exec("devices")
	assert.Contains(out.String(), "2000123456")
	assert.Contains(out.String(), "2000654321")

	out.Reset()
	sh.exec("value 1 Pac 0")
	assert.Contains(out.String(), "2485 W")

	out.Reset()
	sh.exec("channels 1 param")
	assert.Contains(out.String(), "T-Start")
	assert.NotContains(out.String(), "Pac")

	out.Reset()
	sh.exec("set 1 T-Start 120")
	assert.Equal("ok\n", out.String())

	out.Reset()
	sh.exec("set 1 T-Start 9999")
	assert.Contains(out.String(), "error")

	out.Reset()
	sh.exec("range 1 T-Start")
	assert.Equal("5 .. 300\n", out.String())

	out.Reset()
	sh.exec("status 1 Status")
	assert.Contains(out.String(), "2\tBetrieb")

	out.Reset()
	sh.exec("channels 1 bogus")
	assert.Contains(out.String(), "error")

	out.Reset()
	sh.exec("frobnicate")
	assert.Contains(out.String(), "unknown command")

	assert.False(sh.exec("quit"))
}

func TestShellArguments(t *testing.T) {

	assert := assert.New(t)

	sh, out := newTestShell(t)

	sh.exec("online")
	assert.Contains(out.String(), "missing driver")

	out.Reset()
	sh.exec("value x Pac")
	assert.Contains(out.String(), "invalid dev")

	out.Reset()
	sh.exec("set 1 T-Start")
	assert.Contains(out.String(), "error")
}
