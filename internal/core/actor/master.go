package actor

import (
	"errors"
	"fmt"
	"log"
	"time"

	adactor "github.com/berfenger/yasdi2mqtt/internal/adapter/actor"
	"github.com/berfenger/yasdi2mqtt/internal/config"
	"github.com/berfenger/yasdi2mqtt/internal/core/domain"
	"github.com/berfenger/yasdi2mqtt/internal/modbus"
	. "github.com/berfenger/yasdi2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

type MQTTActorProvider func(*eventstream.EventStream) *adactor.MQTTActor

type YasdiActorProvider func(*eventstream.EventStream) *adactor.YasdiActor

type MasterOfPuppetsActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck healthCheckResult
	eventStream        *eventstream.EventStream
	store              *modbus.RegisterStore
	yasdiActor         *actor.PID
	mqttActor          *actor.PID
	pollerActor        *actor.PID
	yasdiActorProvider YasdiActorProvider
	mqttActorProvider  MQTTActorProvider
	logger             *zap.Logger
}

type healthCheckResult struct {
	yasdiActorHealthy  bool
	mqttActorHealthy   bool
	pollerActorHealthy bool
	yasdiState         string
	checksReceived     int
	respondTo          *actor.PID
}

// NewMasterOfPuppetsActor spawns the bridge actors. store may be nil when the
// Modbus export is disabled.
func NewMasterOfPuppetsActor(config config.Config, yasdiActorProvider YasdiActorProvider, mqttActorProvider MQTTActorProvider, store *modbus.RegisterStore, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:             config,
		behavior:           actor.NewBehavior(),
		stash:              &Stash{},
		logger:             ActorLogger(domain.ACTOR_ID_MASTER, logger),
		eventStream:        &eventstream.EventStream{},
		store:              store,
		yasdiActorProvider: yasdiActorProvider,
		mqttActorProvider:  mqttActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		state.currentHealthCheck = healthCheckResult{}
		state.currentHealthCheck.reset()

		// start yasdi child
		yasdiActorPID, err := state.startYasdiActor(ctx)
		if err != nil {
			panic(err)
		}
		state.yasdiActor = yasdiActorPID

		// start MQTT child
		mqttActorPID, err := state.startMQTTActor(ctx)
		if err != nil {
			panic(err)
		}
		state.mqttActor = mqttActorPID

		// start poller child
		pollerActorPID, err := state.startPollerActor(ctx)
		if err != nil {
			panic(err)
		}
		state.pollerActor = pollerActorPID

		// start HA Discovery
		if state.config.MQTT.HADiscoveryEnable {
			_, err := state.startHADiscoveryActor(ctx)
			if err != nil {
				panic(err)
			}
		}

		// start re-detection schedule
		if state.config.Yasdi.RedetectCron != "" {
			_, err := state.startSchedulerActor(ctx)
			if err != nil {
				panic(err)
			}
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset()
		state.currentHealthCheck.respondTo = ctx.Sender()
		// yasdi Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.yasdiActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_YASDI,
				Healthy: false,
			}
		})
		// MQTT Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		// Poller Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.pollerActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_POLLER,
				Healthy: false,
			}
		})

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case adactor.ParsedCommand:
		// redirect parsedCommand to yasdi actor
		state.logger.Debug("master@default parsedCommand", zap.Any("command", msg.Command))
		if msg.Command != nil {
			cmd, err := ParsedMQTTCommandToCommand(*msg.Command)
			if err != nil {
				state.logger.Warn("master@default invalid command", zap.Error(err))
				return
			}
			if cmd != nil {
				ctx.Request(state.yasdiActor, cmd)
			}
		}
	case domain.YasdiRequest:
		// requests from outside the actor system keep their sender
		ctx.Forward(state.yasdiActor)
	case domain.WriteChannelResponse:
		if code, ok := msg.ResultCode(); ok {
			state.logger.Error("master@default channel write rejected", zap.String("code", code.Error()),
				zap.Error(msg.GetResponseError()))
		} else if msg.HasResponseError() {
			state.logger.Error("master@default channel write failed", zap.Error(msg.GetResponseError()))
		}
	case domain.DetectDevicesResponse:
		if msg.HasResponseError() {
			state.logger.Warn("master@default detection incomplete", zap.Error(msg.GetResponseError()))
		}
	case domain.ActorHealthResponse:
		// late answer to a health check that already timed out
	case *actor.Terminated:
		// if some actor fails on boot, terminate
		if msg.Who.Id == fmt.Sprintf("%s/%s", domain.ACTOR_ID_MASTER, domain.ACTOR_ID_YASDI) {
			state.logger.Error("master@default yasdi error")
			panic(errors.New("yasdi terminated"))
		}
	default:
		state.logger.Debug("master@default stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		ctx.CancelReceiveTimeout()
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		switch msg.Id {
		case domain.ACTOR_ID_YASDI:
			state.currentHealthCheck.yasdiActorHealthy = msg.Healthy
			state.currentHealthCheck.yasdiState = msg.State
		case domain.ACTOR_ID_MQTT:
			state.currentHealthCheck.mqttActorHealthy = msg.Healthy
		case domain.ACTOR_ID_POLLER:
			state.currentHealthCheck.pollerActorHealthy = msg.Healthy
		}
		if state.currentHealthCheck.allReceived() {
			ctx.CancelReceiveTimeout()

			state.currentHealthCheck.respond(ctx)

			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		} else {
			ctx.SetReceiveTimeout(1 * time.Second)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) startYasdiActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	yasdiProps := actor.PropsFromProducer(func() actor.Actor {
		return state.yasdiActorProvider(state.eventStream)
	}, actor.WithSupervisor(supervisor))
	yasdiActorPID, err := ctx.SpawnNamed(yasdiProps, domain.ACTOR_ID_YASDI)
	if err != nil {
		return nil, err
	}

	return yasdiActorPID, nil
}

func (state *MasterOfPuppetsActor) startPollerActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewAllForOneStrategy(1, 10*time.Second, decider)

	pollerProps := actor.PropsFromProducer(func() actor.Actor {
		return NewPollerActor(&state.config, state.yasdiActor, state.eventStream, state.store, state.logger)
	}, actor.WithSupervisor(supervisor))
	pollerActorPID, err := ctx.SpawnNamed(pollerProps, domain.ACTOR_ID_POLLER)
	if err != nil {
		return nil, err
	}

	return pollerActorPID, nil
}

func (state *MasterOfPuppetsActor) startHADiscoveryActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	haDiscProps := actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&state.config, state.yasdiActor, state.mqttActor, state.eventStream, state.logger)
	}, actor.WithSupervisor(supervisor))
	haDiscPID, err := ctx.SpawnNamed(haDiscProps, domain.ACTOR_ID_HA_DISCOVERY)
	if err != nil {
		return nil, err
	}

	return haDiscPID, nil
}

func (state *MasterOfPuppetsActor) startSchedulerActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.StopDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	schedulerProps := actor.PropsFromProducer(func() actor.Actor {
		return NewSchedulerActor(&state.config, state.yasdiActor, state.logger)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(schedulerProps, domain.ACTOR_ID_SCHEDULER)
}

func (state *MasterOfPuppetsActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider(state.eventStream)
	}, actor.WithSupervisor(supervisor))
	mqttActorPID, err := ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
	if err != nil {
		return nil, err
	}

	return mqttActorPID, nil
}

func (state *healthCheckResult) reset() {
	state.yasdiActorHealthy = false
	state.mqttActorHealthy = false
	state.pollerActorHealthy = false
	state.yasdiState = ""
	state.checksReceived = 0
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived == 3
}

func (state *healthCheckResult) allHealthy() bool {
	return state.yasdiActorHealthy && state.mqttActorHealthy && state.pollerActorHealthy
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.allHealthy(),
		State:   state.yasdiState,
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
