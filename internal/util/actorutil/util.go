package actorutil

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/berfenger/yasdi2mqtt/internal/core/domain"
	"github.com/berfenger/yasdi2mqtt/internal/mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
)

func PipeToSelfWithRecover(ctx actor.Context, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			ctx.Send(ctx.Self(), mapFn(err))
			return
		}
		ctx.Send(ctx.Self(), msg)
	})
}

func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	stdOutLogger := zap.NewStdLog(logger)

	var slogLevel slog.Level = slog.LevelInfo

	switch logger.Level() {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.InfoLevel:
		slogLevel = slog.LevelInfo
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel:
		slogLevel = slog.LevelError
	case zap.PanicLevel:
		slogLevel = slog.LevelError
	}

	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {

		// create a new logger
		return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.DateTime,
		}))
	}))
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

// ParsedMQTTCommandToCommand turns a command topic message into a yasdi request.
// It returns nil without error for commands that need no action.
func ParsedMQTTCommandToCommand(cmd mqtt.ParsedMQTTCommand) (domain.YasdiRequest, error) {
	switch cmd.Command {
	case mqtt.COMMAND_SWITCH:
		if cmd.DeviceId == domain.SWITCH_ID_DETECTION && cmd.Payload == mqtt.MQTT_PAYLOAD_ON {
			return domain.DetectDevicesRequest{}, nil
		}
	case mqtt.COMMAND_NUMBER:
		serial, channel, ok := domain.ParseChannelSensorId(cmd.DeviceId)
		if !ok {
			return nil, fmt.Errorf("unknown number %q", cmd.DeviceId)
		}
		value, err := strconv.ParseFloat(cmd.Payload, 64)
		if err != nil {
			return nil, err
		}
		return domain.WriteChannelRequest{
			Serial:  serial,
			Channel: channel,
			Value:   value,
		}, nil
	}
	return nil, nil
}
