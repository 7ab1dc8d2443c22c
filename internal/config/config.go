package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel      zapcore.Level
	Yasdi         YasdiConfig   `mapstructure:"yasdi"`
	MQTT          MQTTConfig    `mapstructure:"mqtt"`
	MonitorConfig MonitorConfig `mapstructure:"monitor"`
	Modbus        ModbusConfig  `mapstructure:"modbus"`
	Port          uint          `mapstructure:"port"`
	HttpLog       bool          `mapstructure:"http_log"`
}

type YasdiConfig struct {
	IniFile       string `mapstructure:"ini_file"`
	DriverLibrary string `mapstructure:"driver_library"`
	MasterLibrary string `mapstructure:"master_library"`
	// Simulate runs against an in-memory bus instead of the vendor libraries.
	Simulate bool
	// Drivers lists the driver names to bring online. Empty means all.
	Drivers                 []string
	DeviceCount             uint32 `mapstructure:"device_count"`
	DetectionTimeoutSeconds uint32 `mapstructure:"detection_timeout_seconds"`
	RedetectCron            string `mapstructure:"redetect_cron"`
	MaxValueAgeSeconds      uint32 `mapstructure:"max_value_age_seconds"`
}

type MonitorConfig struct {
	PollIntervalMillis uint32 `mapstructure:"poll_interval_millis"`
	Channels           []string
}

type ModbusConfig struct {
	Enable     bool
	URL        string `mapstructure:"url"`
	MaxClients uint   `mapstructure:"max_clients"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}

// CheckBounds validates the numeric and list settings.
func CheckBounds(cfg *Config) error {
	if cfg.MonitorConfig.PollIntervalMillis < 1000 {
		return errors.New("config param monitor.poll_interval_millis should be >= 1000")
	}
	if len(cfg.MonitorConfig.Channels) == 0 {
		return errors.New("config param monitor.channels must name at least one channel")
	}
	for _, ch := range cfg.MonitorConfig.Channels {
		if ch == "" || len(ch) >= 16 {
			return fmt.Errorf("config param monitor.channels: invalid channel name %q", ch)
		}
	}
	if cfg.Yasdi.DeviceCount < 1 {
		return errors.New("config param yasdi.device_count should be >= 1")
	}
	if cfg.Yasdi.DetectionTimeoutSeconds < 5 {
		return errors.New("config param yasdi.detection_timeout_seconds should be >= 5")
	}
	if !cfg.Yasdi.Simulate && cfg.Yasdi.IniFile == "" {
		return errors.New("config param yasdi.ini_file is required")
	}
	if cfg.Modbus.Enable && cfg.Modbus.URL == "" {
		return errors.New("config param modbus.url is required when modbus is enabled")
	}
	return nil
}
