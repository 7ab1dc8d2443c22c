package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/berfenger/yasdi2mqtt/internal/config"
	"github.com/berfenger/yasdi2mqtt/internal/core/domain"
	"github.com/berfenger/yasdi2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/pkg/errors"
	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

const redetectJobName = "redetect"

// SchedulerActor asks the yasdi actor for a new detection on every fire of
// yasdi.redetect_cron. A fire that arrives while the previous detection is
// still running is dropped.
type SchedulerActor struct {
	config     *config.Config
	yasdiActor *actor.PID
	scheduler  quartz.Scheduler
	cancel     context.CancelFunc
	inFlight   bool
	fired      int

	logger *zap.Logger
}

type redetectTick struct {
}

func NewSchedulerActor(config *config.Config, yasdiActor *actor.PID, logger *zap.Logger) *SchedulerActor {
	return &SchedulerActor{
		config:     config,
		yasdiActor: yasdiActor,
		logger:     actorutil.ActorLogger(domain.ACTOR_ID_SCHEDULER, logger),
	}
}

func (state *SchedulerActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("scheduler@started", zap.String("cron", state.config.Yasdi.RedetectCron))
		if err := state.start(ctx); err != nil {
			panic(err)
		}
	case redetectTick:
		state.fired++
		if state.inFlight {
			state.logger.Debug("scheduler@tick detection still running")
			return
		}
		state.logger.Info("scheduler@tick starting detection")
		state.inFlight = true
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.yasdiActor, domain.DetectDevicesRequest{},
			time.Duration(state.config.Yasdi.DetectionTimeoutSeconds)*time.Second+10*time.Second), func(err error) any {
			return domain.DetectDevicesResponse{ActorResponseMixIn: domain.ErrorResponse(err)}
		})
	case domain.DetectDevicesResponse:
		state.inFlight = false
		if msg.HasResponseError() {
			state.logger.Warn("scheduler@detection finished with error", zap.Error(msg.GetResponseError()))
		} else {
			state.logger.Info("scheduler@detection finished", zap.Int("devices", len(msg.Devices)))
		}
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_SCHEDULER,
			Healthy: state.scheduler != nil && state.scheduler.IsStarted(),
			State:   fmt.Sprintf("fired %d", state.fired),
		})
	case *actor.Restarting:
		state.stop()
	case *actor.Stopping:
		state.stop()
	}
}

func (state *SchedulerActor) start(ctx actor.Context) error {
	trigger, err := quartz.NewCronTrigger(state.config.Yasdi.RedetectCron)
	if err != nil {
		return errors.Wrapf(err, "invalid redetect cron %q", state.config.Yasdi.RedetectCron)
	}
	sched := quartz.NewStdScheduler()

	// jobs run on quartz goroutines, reach the mailbox through the root context
	root := ctx.ActorSystem().Root
	self := ctx.Self()
	redetect := job.NewFunctionJob(func(_ context.Context) (bool, error) {
		root.Send(self, redetectTick{})
		return true, nil
	})

	schedCtx, cancel := context.WithCancel(context.Background())
	sched.Start(schedCtx)
	if err := sched.ScheduleJob(quartz.NewJobDetail(redetect, quartz.NewJobKey(redetectJobName)), trigger); err != nil {
		cancel()
		sched.Stop()
		return errors.Wrap(err, "schedule redetect job")
	}
	state.scheduler = sched
	state.cancel = cancel
	return nil
}

func (state *SchedulerActor) stop() {
	if state.scheduler == nil {
		return
	}
	state.logger.Debug("scheduler: stop")
	state.scheduler.Stop()
	state.cancel()
	state.scheduler = nil
	state.cancel = nil
}
