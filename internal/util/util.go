package util

import (
	"github.com/berfenger/yasdi2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Yasdi: config.YasdiConfig{
			IniFile:                 "yasdi.ini",
			Simulate:                true,
			DeviceCount:             2,
			DetectionTimeoutSeconds: 10,
			MaxValueAgeSeconds:      1,
		},
		MQTT: config.MQTTConfig{
			Host:             "localhost",
			Port:             1883,
			BaseTopic:        "yasdi2mqtt",
			HADiscoveryTopic: "homeassistant",
		},
		MonitorConfig: config.MonitorConfig{
			PollIntervalMillis: 1000,
			Channels:           []string{"Pac", "E-Tag", "E-Total", "Status"},
		},
		Modbus: config.ModbusConfig{
			URL:        "tcp://localhost:5502",
			MaxClients: 2,
		},
		Port: 8080,
	}
}
