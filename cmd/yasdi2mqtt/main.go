package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	adactor "github.com/berfenger/yasdi2mqtt/internal/adapter/actor"
	"github.com/berfenger/yasdi2mqtt/internal/config"
	"github.com/berfenger/yasdi2mqtt/internal/core/actor"
	"github.com/berfenger/yasdi2mqtt/internal/modbus"
	"github.com/berfenger/yasdi2mqtt/internal/server"
	"github.com/berfenger/yasdi2mqtt/internal/util/actorutil"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		os.Exit(1)
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	// optional Modbus TCP export of the polled values
	var store *modbus.RegisterStore
	if cfg.Modbus.Enable {
		store = modbus.NewRegisterStore(cfg.MonitorConfig.Channels)
		modbusServer, err := modbus.NewServer(cfg.Modbus.URL, cfg.Modbus.MaxClients, store, logger)
		if err != nil {
			logger.Fatal("could not create modbus server", zap.Error(err))
		}
		if err := modbusServer.Start(); err != nil {
			logger.Fatal("could not start modbus server", zap.Error(err))
		}
		defer modbusServer.Stop()
	}

	var yasdiActor atomic.Pointer[adactor.YasdiActor]
	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, yasdiActorProvider(cfg, &yasdiActor, logger), mqttActorProvider(cfg, logger), store, logger)
	})
	pid, err := ctx.SpawnNamed(props, "master")
	if err != nil {
		logger.Error("could not spawn master actor", zap.Error(err))
		return
	}

	server := server.NewServer(*cfg, ctx, pid)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	// drivers go offline and the master shuts down in the yasdi actor's stop,
	// which waits for a running native call to return
	ctx.StopFuture(pid).Wait()
	if current := yasdiActor.Load(); current != nil {
		select {
		case <-current.Released():
		case <-time.After(time.Duration(cfg.Yasdi.DetectionTimeoutSeconds)*time.Second + 5*time.Second):
			logger.Warn("yasdi libraries not released in time")
		}
	}
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => YASDI2MQTT_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("YASDI2MQTT_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("yasdi2mqtt")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	// check bounds
	if err := config.CheckBounds(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func yasdiActorProvider(cfg *config.Config, current *atomic.Pointer[adactor.YasdiActor], logger *zap.Logger) actor.YasdiActorProvider {
	libraries := adactor.NativeYasdiLibraries(cfg.Yasdi.DriverLibrary, cfg.Yasdi.MasterLibrary)
	if cfg.Yasdi.Simulate {
		logger.Warn("yasdi.simulate is set, using an in-memory bus")
		libraries = adactor.SimulatedYasdiLibraries(2 * time.Second)
	}
	return func(es *eventstream.EventStream) *adactor.YasdiActor {
		act := adactor.NewYasdiActor(cfg, libraries, es, logger)
		current.Store(act)
		return act
	}
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, es, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("yasdi.ini_file", "./yasdi.ini")
	viper.SetDefault("yasdi.simulate", false)
	viper.SetDefault("yasdi.drivers", []string{})
	viper.SetDefault("yasdi.device_count", 1)
	viper.SetDefault("yasdi.detection_timeout_seconds", 60)
	viper.SetDefault("yasdi.redetect_cron", "")
	viper.SetDefault("yasdi.max_value_age_seconds", 5)
	viper.SetDefault("mqtt.host", "localhost")
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "yasdi2mqtt")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("monitor.poll_interval_millis", 10000)
	viper.SetDefault("monitor.channels", []string{"Pac", "E-Tag", "E-Total", "Status"})
	viper.SetDefault("modbus.enable", false)
	viper.SetDefault("modbus.url", "tcp://0.0.0.0:5502")
	viper.SetDefault("modbus.max_clients", 5)
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
