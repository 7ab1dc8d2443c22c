package actor

import (
	"fmt"
	"time"

	"github.com/berfenger/yasdi2mqtt/internal/config"
	"github.com/berfenger/yasdi2mqtt/internal/core/domain"
	"github.com/berfenger/yasdi2mqtt/internal/core/events"
	"github.com/berfenger/yasdi2mqtt/internal/modbus"
	. "github.com/berfenger/yasdi2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// PollerActor reads the monitored channels of every detected device on a
// fixed interval and publishes the readings on the event stream.
type PollerActor struct {
	ActorWithStates
	scheduler *scheduler.TimerScheduler
	stash     *Stash

	yasdiActor  *actor.PID
	config      *config.Config
	eventStream *eventstream.EventStream
	store       *modbus.RegisterStore
	failures    int

	logger *zap.Logger
}

type pollTick struct {
}

// NewPollerActor feeds store when it is not nil.
func NewPollerActor(config *config.Config, yasdiActor *actor.PID, eventStream *eventstream.EventStream, store *modbus.RegisterStore, logger *zap.Logger) *PollerActor {
	act := &PollerActor{
		config:      config,
		yasdiActor:  yasdiActor,
		stash:       &Stash{},
		eventStream: eventStream,
		store:       store,
		logger:      ActorLogger(domain.ACTOR_ID_POLLER, logger),
		ActorWithStates: ActorWithStates{
			Behavior: actor.NewBehavior(),
		},
	}
	act.Become(pollerIdleState{actor: act})
	return act
}

func (state *PollerActor) Receive(context actor.Context) {
	state.Behavior.Receive(context)
}

func (state *PollerActor) interval() time.Duration {
	return time.Duration(state.config.MonitorConfig.PollIntervalMillis) * time.Millisecond
}

func (state *PollerActor) healthResponse() domain.ActorHealthResponse {
	return domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_POLLER,
		Healthy: state.failures < 3,
		State:   state.StateName(),
	}
}

// Idle state

type pollerIdleState struct {
	ActorState
	actor *PollerActor
}

func (state pollerIdleState) Name() string {
	return "idle"
}

func (state pollerIdleState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.actor.logger.Debug("poller@idle started", zap.Duration("interval", state.actor.interval()))
		state.actor.scheduler = scheduler.NewTimerScheduler(ctx)
		state.actor.scheduler.RequestOnce(state.actor.interval(), ctx.Self(), pollTick{})
	case domain.ActorHealthRequest:
		state.actor.logger.Debug("poller@idle ActorHealthRequest")
		ctx.Respond(state.actor.healthResponse())
	case pollTick:
		state.actor.logger.Debug("poller@idle tick")
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.actor.yasdiActor, domain.GetChannelValuesRequest{
			Channels: state.actor.config.MonitorConfig.Channels,
			MaxAge:   state.actor.config.Yasdi.MaxValueAgeSeconds,
		}, state.actor.interval()+5*time.Second), func(err error) any {
			return domain.GetChannelValuesResponse{
				ActorResponseMixIn: domain.ErrorResponse(err),
			}
		})
		// schedule next tick
		state.actor.scheduler.RequestOnce(state.actor.interval(), ctx.Self(), pollTick{})
		state.actor.BecomeStacked(pollerPollingState{actor: state.actor})
	case *actor.Restarting:
	case *actor.Stopping:
	default:
		state.actor.logger.Debug("poller@idle unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// Polling state

type pollerPollingState struct {
	ActorState
	actor *PollerActor
}

func (state pollerPollingState) Name() string {
	return "polling"
}

func (state pollerPollingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetChannelValuesResponse:
		if msg.HasResponseError() {
			state.actor.failures++
			state.actor.logger.Error("poller@polling GetChannelValuesResponse error", zap.Error(msg.GetResponseError()),
				zap.Int("failures", state.actor.failures))
		} else {
			state.actor.failures = 0
			state.actor.logger.Debug("poller@polling GetChannelValuesResponse", zap.Int("values", len(msg.Values)))
			for _, ev := range events.ChannelValuesToUpdateEvents(msg.Values) {
				state.actor.eventStream.Publish(ev)
			}
			if state.actor.store != nil {
				state.actor.store.Update(msg.Values)
			}
		}
		state.actor.UnbecomeStacked()
		state.actor.stash.UnstashAll(ctx)
	case domain.ActorHealthRequest:
		ctx.Respond(state.actor.healthResponse())
	case pollTick:
		// a slow bus makes ticks pile up; drop them
		state.actor.logger.Debug("poller@polling tick skipped")
		state.actor.scheduler.RequestOnce(state.actor.interval(), ctx.Self(), pollTick{})
	default:
		state.actor.logger.Debug("poller@polling: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}
