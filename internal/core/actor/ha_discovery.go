package actor

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/berfenger/yasdi2mqtt/internal/config"
	"github.com/berfenger/yasdi2mqtt/internal/core/domain"
	"github.com/berfenger/yasdi2mqtt/internal/core/events"
	"github.com/berfenger/yasdi2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

// HADiscoveryActor publishes Home Assistant discovery for the bridge and for
// every detected device. It publishes again when detection changes the set of
// devices.
type HADiscoveryActor struct {
	config            *config.Config
	behavior          actor.Behavior
	stash             *actorutil.Stash
	yasdiActor        *actor.PID
	mqttActor         *actor.PID
	eventStream       *eventstream.EventStream
	eventStreamSub    *eventstream.Subscription
	yasdiActorHealthy bool
	mqttActorHealthy  bool
	healthyRecv       int
	published         []uint32

	logger *zap.Logger
}

type devicesChanged struct {
	serials []uint32
}

func NewHADiscoveryActor(config *config.Config, yasdiActor *actor.PID, mqttActor *actor.PID, eventStream *eventstream.EventStream, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:      config,
		yasdiActor:  yasdiActor,
		mqttActor:   mqttActor,
		eventStream: eventStream,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")

		state.eventStreamSub = state.eventStream.Subscribe(func(value any) {
			if ev, ok := value.(domain.DevicesChangedEvent); ok {
				ctx.Send(ctx.Self(), devicesChanged{serials: serialsOf(ev.Devices)})
			}
		})

		// Check yasdi and MQTT actor healthy
		state.healthyRecv = 0
		state.yasdiActorHealthy = false
		state.mqttActorHealthy = false
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.yasdiActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_YASDI,
				Healthy: false,
			}
		})
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		state.behavior.Become(state.WaitingHealthyReceive)
	case *actor.Restarting:
		state.unsubscribe()
	default:
		state.logger.Debug("hadiscovery@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.healthyRecv++
		if msg.Healthy {
			switch msg.Id {
			case domain.ACTOR_ID_YASDI:
				state.yasdiActorHealthy = true
			case domain.ACTOR_ID_MQTT:
				state.mqttActorHealthy = true
			}
		}
		if state.healthyRecv == 2 {
			if state.yasdiActorHealthy && state.mqttActorHealthy {
				state.requestDevices(ctx)
				state.behavior.Become(state.WaitingInfoReceive)
			} else {
				panic(errors.New("MQTT Actor or yasdi Actor are not healthy"))
			}
		}
	case *actor.Restarting:
		state.unsubscribe()
	default:
		state.logger.Debug("hadiscovery@healthcheck: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingInfoReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetDevicesResponse:
		if msg.HasResponseError() {
			panic(msg.GetResponseError())
		}
		state.logger.Debug("hadiscovery@info: GetDevicesResponse", zap.Int("devices", len(msg.Devices)))

		sensors, switches, inputNumbers := DiscoveryEntities(state.config, msg.Devices)
		ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
			Sensors:      sensors,
			Switches:     switches,
			InputNumbers: inputNumbers,
		})
		state.published = serialsOf(msg.Devices)

		// numbers are not polled, seed their state once
		if params := paramChannelNames(msg.Devices); len(params) > 0 {
			actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.yasdiActor, domain.GetChannelValuesRequest{
				Channels: params,
				MaxAge:   state.config.Yasdi.MaxValueAgeSeconds,
			}, state.requestTimeout()), func(err error) any {
				return domain.GetChannelValuesResponse{ActorResponseMixIn: domain.ErrorResponse(err)}
			})
		}
		state.behavior.Become(state.DoneReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.unsubscribe()
	default:
		state.logger.Debug("hadiscovery@info: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) DoneReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case devicesChanged:
		if slices.Equal(msg.serials, state.published) {
			state.logger.Debug("hadiscovery@done devices unchanged")
			return
		}
		state.logger.Info("hadiscovery@done devices changed, publishing discovery", zap.Int("devices", len(msg.serials)))
		state.requestDevices(ctx)
		state.behavior.Become(state.WaitingInfoReceive)
	case domain.GetChannelValuesResponse:
		if msg.HasResponseError() {
			state.logger.Warn("hadiscovery@done could not read param channels", zap.Error(msg.GetResponseError()))
			return
		}
		for _, ev := range events.ChannelValuesToUpdateEvents(msg.Values) {
			state.eventStream.Publish(ev)
		}
	case *actor.Restarting:
		state.unsubscribe()
	case *actor.Stopping:
		state.unsubscribe()
	default:
		state.logger.Debug("hadiscovery@done: default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *HADiscoveryActor) requestDevices(ctx actor.Context) {
	actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.yasdiActor, domain.GetDevicesRequest{WithChannels: true}, state.requestTimeout()), func(err error) any {
		return domain.GetDevicesResponse{ActorResponseMixIn: domain.ErrorResponse(err)}
	})
}

// requestTimeout leaves room for a detection queued ahead of the request.
func (state *HADiscoveryActor) requestTimeout() time.Duration {
	return time.Duration(state.config.Yasdi.DetectionTimeoutSeconds)*time.Second + 10*time.Second
}

func (state *HADiscoveryActor) unsubscribe() {
	if state.eventStreamSub != nil {
		state.eventStream.Unsubscribe(state.eventStreamSub)
		state.eventStreamSub = nil
	}
}

// DiscoveryEntities builds the bridge entities plus, per device, a sensor for
// every monitored channel and a number for every param channel with a range.
func DiscoveryEntities(cfg *config.Config, devices []domain.DeviceInfo) ([]domain.GenericSensor, []domain.GenericSwitch, []domain.GenericInputNumber) {
	var sensors []domain.GenericSensor
	var switches []domain.GenericSwitch
	var inputNumbers []domain.GenericInputNumber

	bridgeDevice := domain.BridgeDevice(cfg.MQTT.BaseTopic)
	sensors = append(sensors, domain.BridgeSensors(bridgeDevice)...)
	switches = append(switches, domain.BridgeSwitches(bridgeDevice)...)

	monitored := make(map[string]bool, len(cfg.MonitorConfig.Channels))
	for _, name := range cfg.MonitorConfig.Channels {
		monitored[domain.NormalizeChannelName(name)] = true
	}

	for _, info := range devices {
		device := domain.SMADevice(info, bridgeDevice)
		filtered := info
		filtered.Channels = nil
		for _, ch := range info.Channels {
			if monitored[domain.NormalizeChannelName(ch.Name)] || (ch.IsParam() && ch.Range != nil) {
				filtered.Channels = append(filtered.Channels, ch)
			}
		}
		sensors = append(sensors, domain.ChannelSensors(device, filtered)...)
		inputNumbers = append(inputNumbers, domain.ChannelInputNumbers(device, filtered)...)
	}
	return sensors, switches, inputNumbers
}

func paramChannelNames(devices []domain.DeviceInfo) []string {
	var names []string
	for _, info := range devices {
		for _, ch := range info.Channels {
			if ch.IsParam() && ch.Range != nil && !slices.Contains(names, ch.Name) {
				names = append(names, ch.Name)
			}
		}
	}
	return names
}

func serialsOf(devices []domain.DeviceInfo) []uint32 {
	serials := make([]uint32, 0, len(devices))
	for _, d := range devices {
		serials = append(serials, d.Serial)
	}
	return serials
}
