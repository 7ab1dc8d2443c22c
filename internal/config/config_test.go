package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		Yasdi: YasdiConfig{
			IniFile:                 "yasdi.ini",
			DeviceCount:             1,
			DetectionTimeoutSeconds: 60,
		},
		MonitorConfig: MonitorConfig{
			PollIntervalMillis: 5000,
			Channels:           []string{"Pac", "E-Total"},
		},
	}
}

func TestCheckMQTTTopic(t *testing.T) {

	assert := assert.New(t)

	topic, err := CheckMQTTTopic("YASDI_Bridge")
	assert.NoError(err)
	assert.Equal("yasdi_bridge", topic)

	_, err = CheckMQTTTopic("sma/bridge")
	assert.Error(err)
	_, err = CheckMQTTTopic("")
	assert.Error(err)
}

func TestCheckBounds(t *testing.T) {

	assert := assert.New(t)

	cfg := validConfig()
	assert.NoError(CheckBounds(&cfg))

	cfg = validConfig()
	cfg.MonitorConfig.PollIntervalMillis = 500
	assert.Error(CheckBounds(&cfg), "poll interval")

	cfg = validConfig()
	cfg.MonitorConfig.Channels = nil
	assert.Error(CheckBounds(&cfg), "no channels")

	cfg = validConfig()
	cfg.MonitorConfig.Channels = []string{"A_very_long_channel"}
	assert.Error(CheckBounds(&cfg), "name does not fit the channel buffer")

	cfg = validConfig()
	cfg.Yasdi.DeviceCount = 0
	assert.Error(CheckBounds(&cfg), "device count")

	cfg = validConfig()
	cfg.Yasdi.IniFile = ""
	assert.Error(CheckBounds(&cfg), "ini file")
	cfg.Yasdi.Simulate = true
	assert.NoError(CheckBounds(&cfg), "simulation needs no ini file")

	cfg = validConfig()
	cfg.Modbus.Enable = true
	assert.Error(CheckBounds(&cfg), "modbus url")
}
