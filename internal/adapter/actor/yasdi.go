package actor

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/berfenger/yasdi2mqtt/internal/config"
	"github.com/berfenger/yasdi2mqtt/internal/core/domain"
	"github.com/berfenger/yasdi2mqtt/internal/core/events"
	"github.com/berfenger/yasdi2mqtt/internal/util/actorutil"
	"github.com/berfenger/yasdi2mqtt/pkg/yasdi"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// YasdiLibraries opens the driver manager and the device master for one
// incarnation of the actor. The master is returned uninitialized.
type YasdiLibraries func() (*yasdi.DriverManager, *yasdi.DeviceMaster, error)

// NativeYasdiLibraries loads the vendor libraries. Empty paths use the
// default library names.
func NativeYasdiLibraries(driverPath, masterPath string) YasdiLibraries {
	return func() (*yasdi.DriverManager, *yasdi.DeviceMaster, error) {
		drivers, err := yasdi.OpenDriverManager(driverPath)
		if err != nil {
			return nil, nil, err
		}
		master, err := yasdi.OpenDeviceMaster(masterPath)
		if err != nil {
			drivers.Close()
			return nil, nil, err
		}
		return drivers, master, nil
	}
}

// SimulatedYasdiLibraries serves an in-memory bus with two inverters.
func SimulatedYasdiLibraries(detectionDelay time.Duration) YasdiLibraries {
	return func() (*yasdi.DriverManager, *yasdi.DeviceMaster, error) {
		drivers, master := yasdi.NewTestLibraries()
		master.DetectionDelay = detectionDelay
		return yasdi.NewDriverManager(drivers), yasdi.NewDeviceMaster(master), nil
	}
}

var concreteGroups = []yasdi.ChannelGroup{yasdi.SpotChannels, yasdi.ParamChannels, yasdi.TestChannels}

// YasdiActor owns the yasdi libraries. Every native call made while a request
// is in flight runs on a background task; the actor stays in WaitingYasdi
// until it returns, so calls never overlap. A stop that arrives meanwhile is
// deferred until the call returns.
type YasdiActor struct {
	config      *config.Config
	behavior    actor.Behavior
	stash       *actorutil.Stash
	libraries   YasdiLibraries
	drivers     *yasdi.DriverManager
	master      *yasdi.DeviceMaster
	online      map[yasdi.DriverHandle]bool
	devices     []*deviceEntry
	eventStream *eventstream.EventStream
	logger      *zap.Logger

	// guards calling and stopRequested, shared with the native call goroutine
	mu            sync.Mutex
	calling       bool
	stopRequested bool
	released      chan struct{}
	releaseOnce   sync.Once
}

type deviceEntry struct {
	info   domain.DeviceInfo
	groups map[yasdi.ChannelHandle]yasdi.ChannelGroup
	names  map[yasdi.ChannelHandle]string
	byName map[string]yasdi.ChannelHandle
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

type detectionDone struct {
	devices  []*deviceEntry
	response domain.DetectDevicesResponse
}

func NewYasdiActor(config *config.Config, libraries YasdiLibraries, eventStream *eventstream.EventStream, logger *zap.Logger) *YasdiActor {
	act := &YasdiActor{
		config:      config,
		libraries:   libraries,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		eventStream: eventStream,
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_YASDI, logger),
		released:    make(chan struct{}),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *YasdiActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

// Released is closed once drivers are offline and both libraries are closed.
func (state *YasdiActor) Released() <-chan struct{} {
	return state.released
}

func (state *YasdiActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("yasdi@starting started")
		if err := state.open(); err != nil {
			// let the supervisor back off and retry
			panic(err)
		}
		state.behavior.Become(state.DefaultReceive)
		// initial detection, nobody waits for the answer
		ctx.Send(ctx.Self(), domain.DetectDevicesRequest{})
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.stop()
	default:
		state.logger.Debug("yasdi@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *YasdiActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("yasdi@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_YASDI,
			Healthy: state.master.Initialized() && len(state.online) > 0,
			State:   "idle",
		})
	case domain.GetMasterStateRequest:
		actorutil.Reply(ctx, msg, domain.GetMasterStateResponse{
			State: state.master.MasterState(),
		})
	case domain.GetDriversRequest:
		state.logger.Debug("yasdi@default GetDriversRequest")
		actorutil.Reply(ctx, msg, domain.GetDriversResponse{
			Drivers: state.listDrivers(),
		})
	case domain.GetDevicesRequest:
		state.logger.Debug("yasdi@default GetDevicesRequest", zap.Bool("channels", msg.WithChannels))
		if !msg.WithChannels {
			actorutil.Reply(ctx, msg, domain.GetDevicesResponse{
				Devices: state.deviceInfos(),
			})
			return
		}
		devices := state.devices
		runYasdiTask(state, ctx, actorutil.ReplyTo(ctx, msg), func() (*domain.GetDevicesResponse, error) {
			resp := &domain.GetDevicesResponse{}
			for _, entry := range devices {
				info := entry.info
				info.Channels = state.channelInfos(entry, yasdi.AllChannels)
				resp.Devices = append(resp.Devices, info)
			}
			return resp, nil
		}, func(err error) domain.GetDevicesResponse {
			return domain.GetDevicesResponse{ActorResponseMixIn: domain.ErrorResponse(err)}
		})
	case domain.GetChannelsRequest:
		state.logger.Debug("yasdi@default GetChannelsRequest", zap.Uint32("serial", msg.Serial))
		entry, err := state.deviceBySerial(msg.Serial)
		if err != nil {
			actorutil.Reply(ctx, msg, domain.GetChannelsResponse{ActorResponseMixIn: domain.ErrorResponse(err)})
			return
		}
		runYasdiTask(state, ctx, actorutil.ReplyTo(ctx, msg), func() (*domain.GetChannelsResponse, error) {
			return &domain.GetChannelsResponse{Channels: state.channelInfos(entry, msg.Group)}, nil
		}, func(err error) domain.GetChannelsResponse {
			return domain.GetChannelsResponse{ActorResponseMixIn: domain.ErrorResponse(err)}
		})
	case domain.GetChannelValuesRequest:
		state.logger.Debug("yasdi@default GetChannelValuesRequest", zap.Uint32("serial", msg.Serial), zap.Strings("channels", msg.Channels))
		devices := state.devices
		if msg.Serial != 0 {
			entry, err := state.deviceBySerial(msg.Serial)
			if err != nil {
				actorutil.Reply(ctx, msg, domain.GetChannelValuesResponse{ActorResponseMixIn: domain.ErrorResponse(err)})
				return
			}
			devices = []*deviceEntry{entry}
		}
		runYasdiTask(state, ctx, actorutil.ReplyTo(ctx, msg), func() (*domain.GetChannelValuesResponse, error) {
			return &domain.GetChannelValuesResponse{
				Values: state.readValues(devices, msg.Channels, msg.MaxAge, msg.Serial != 0),
			}, nil
		}, func(err error) domain.GetChannelValuesResponse {
			return domain.GetChannelValuesResponse{ActorResponseMixIn: domain.ErrorResponse(err)}
		})
	case domain.WriteChannelRequest:
		state.logger.Info("yasdi@default WriteChannelRequest", zap.Uint32("serial", msg.Serial),
			zap.String("channel", msg.Channel), zap.Float64("value", msg.Value))
		entry, err := state.deviceBySerial(msg.Serial)
		if err != nil {
			actorutil.Reply(ctx, msg, domain.WriteChannelResponse{ActorResponseMixIn: domain.ErrorResponse(err)})
			return
		}
		runYasdiTask(state, ctx, actorutil.ReplyTo(ctx, msg), func() (*domain.WriteChannelResponse, error) {
			ch, err := state.resolveChannel(entry, msg.Channel)
			if err != nil {
				return nil, err
			}
			if err := state.master.SetChannelValue(ch, entry.info.Handle, msg.Value); err != nil {
				return nil, err
			}
			return &domain.WriteChannelResponse{Value: state.readValue(entry, ch, 0)}, nil
		}, func(err error) domain.WriteChannelResponse {
			return domain.WriteChannelResponse{ActorResponseMixIn: domain.ErrorResponse(err)}
		})
	case domain.DetectDevicesRequest:
		minCount := msg.MinCount
		if minCount == 0 {
			minCount = state.config.Yasdi.DeviceCount
		}
		state.logger.Info("yasdi@default DetectDevicesRequest", zap.Uint32("min_count", minCount))
		state.eventStream.Publish(events.DetectionSwitchUpdateEvent(true))
		runYasdiTask(state, ctx, actorutil.ReplyTo(ctx, msg), func() (*detectionDone, error) {
			return state.detect(minCount), nil
		}, func(err error) detectionDone {
			return detectionDone{
				devices:  state.devices,
				response: domain.DetectDevicesResponse{ActorResponseMixIn: domain.ErrorResponse(err)},
			}
		})
	case *actor.Restarting:
		state.stop()
	case *actor.Stopping:
		state.stop()
	default:
		state.logger.Debug("yasdi@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *YasdiActor) WaitingYasdi(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("yasdi@waiting backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		message := msg.message
		switch result := message.(type) {
		case detectionDone:
			state.devices = result.devices
			if result.response.HasResponseError() {
				state.logger.Warn("yasdi@waiting detection incomplete", zap.Error(result.response.GetResponseError()),
					zap.Int("devices", len(result.devices)))
			} else {
				state.logger.Info("yasdi@waiting detection finished", zap.Int("devices", len(result.devices)))
			}
			state.eventStream.Publish(domain.DevicesChangedEvent{Devices: state.deviceInfos()})
			state.eventStream.Publish(events.DetectionSwitchUpdateEvent(false))
			message = result.response
		case domain.WriteChannelResponse:
			if !result.HasResponseError() {
				for _, ev := range events.ChannelValuesToUpdateEvents([]domain.ChannelValue{result.Value}) {
					state.eventStream.Publish(ev)
				}
			}
		}
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, message)
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_YASDI,
			Healthy: true,
			State:   "busy",
		})
	case *actor.Stopping, *actor.Restarting:
		state.stopAfterCall()
	default:
		state.logger.Debug("yasdi@waiting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func runYasdiTask[R any](state *YasdiActor, ctx actor.Context, replyTo *actor.PID, fn func() (*R, error), recoverFn func(error) R) {
	slowAfter := time.Duration(state.config.Yasdi.DetectionTimeoutSeconds) * time.Second
	state.mu.Lock()
	state.calling = true
	state.mu.Unlock()
	call := func() (*R, error) {
		defer state.callReturned()
		return fn()
	}
	actorutil.MapBlockingCall(actorutil.NewBlockingCall(ctx, call),
		mapTaskResult[R](replyTo)).WarnAfter(slowAfter, func(elapsed time.Duration) {
		state.logger.Warn("yasdi: native call still running", zap.Duration("elapsed", elapsed))
	}).Recover(func(err error) backgroundTaskResult {
		return backgroundTaskResult{
			message: recoverFn(err),
			replyTo: replyTo,
		}
	}).PipeTo(ctx.Self())
	state.behavior.BecomeStacked(state.WaitingYasdi)
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}

func (state *YasdiActor) open() error {
	drivers, master, err := state.libraries()
	if err != nil {
		return errors.Wrap(err, "open yasdi libraries")
	}
	state.drivers = drivers
	state.master = master

	count, err := master.Initialize(state.config.Yasdi.IniFile)
	if err != nil {
		return errors.Wrapf(err, "initialize yasdi master with %q", state.config.Yasdi.IniFile)
	}
	state.logger.Info("yasdi master initialized", zap.Uint32("drivers", count))

	state.online = make(map[yasdi.DriverHandle]bool)
	for _, h := range drivers.Drivers() {
		name, err := drivers.DriverName(h)
		if err != nil {
			state.logger.Warn("driver without name", zap.Uint32("driver", uint32(h)), zap.Error(err))
			continue
		}
		if len(state.config.Yasdi.Drivers) > 0 && !slices.Contains(state.config.Yasdi.Drivers, name) {
			continue
		}
		if err := drivers.SetOnline(h); err != nil {
			state.logger.Error("could not set driver online", zap.String("driver", name), zap.Error(err))
			continue
		}
		state.logger.Info("driver online", zap.String("driver", name))
		state.online[h] = true
	}
	if len(state.online) == 0 {
		state.logger.Warn("no driver is online, detection will find nothing")
	}
	return nil
}

// callReturned runs on the native call goroutine. It performs a stop that
// was requested while the call was running.
func (state *YasdiActor) callReturned() {
	state.mu.Lock()
	state.calling = false
	pending := state.stopRequested
	state.mu.Unlock()
	if pending {
		state.logger.Info("yasdi: native call returned, shutting down")
		state.stop()
	}
}

// stopAfterCall stops now, or marks the stop for callReturned when a native
// call is still running.
func (state *YasdiActor) stopAfterCall() {
	state.mu.Lock()
	if state.calling {
		state.stopRequested = true
		state.mu.Unlock()
		state.logger.Warn("yasdi@waiting stop deferred until the native call returns")
		return
	}
	state.mu.Unlock()
	state.stop()
}

func (state *YasdiActor) stop() {
	defer state.releaseOnce.Do(func() { close(state.released) })
	if state.master == nil {
		return
	}
	state.logger.Debug("yasdi: shutdown")
	for h := range state.online {
		if err := state.drivers.SetOffline(h); err != nil {
			state.logger.Warn("could not set driver offline", zap.Uint32("driver", uint32(h)), zap.Error(err))
		}
	}
	state.online = nil
	state.devices = nil
	state.master.Shutdown()
	if err := state.master.Close(); err != nil {
		state.logger.Warn("close master library", zap.Error(err))
	}
	if err := state.drivers.Close(); err != nil {
		state.logger.Warn("close driver library", zap.Error(err))
	}
	state.master = nil
	state.drivers = nil
}

func (state *YasdiActor) listDrivers() []domain.DriverInfo {
	var infos []domain.DriverInfo
	for _, h := range state.drivers.Drivers() {
		name, err := state.drivers.DriverName(h)
		if err != nil {
			name = ""
		}
		infos = append(infos, domain.DriverInfo{
			Handle: h,
			Name:   name,
			Online: state.online[h],
		})
	}
	return infos
}

func (state *YasdiActor) deviceInfos() []domain.DeviceInfo {
	infos := make([]domain.DeviceInfo, 0, len(state.devices))
	for _, entry := range state.devices {
		infos = append(infos, entry.info)
	}
	return infos
}

func (state *YasdiActor) deviceBySerial(serial uint32) (*deviceEntry, error) {
	for _, entry := range state.devices {
		if entry.info.Serial == serial {
			return entry, nil
		}
	}
	return nil, errors.Wrapf(domain.ErrDeviceNotFound, "serial %d", serial)
}

// detect runs on a background task.
func (state *YasdiActor) detect(minCount uint32) *detectionDone {
	err := state.master.DetectDevices(minCount)
	done := &detectionDone{}
	for _, dev := range state.master.DeviceHandles() {
		entry, scanErr := state.scanDevice(dev)
		if scanErr != nil {
			state.logger.Warn("skipping device", zap.Uint32("device", uint32(dev)), zap.Error(scanErr))
			continue
		}
		done.devices = append(done.devices, entry)
		done.response.Devices = append(done.response.Devices, entry.info)
	}
	if err != nil {
		done.response.ResponseError = errors.Wrapf(err, "detect %d devices, found %d", minCount, len(done.devices))
	}
	return done
}

func (state *YasdiActor) scanDevice(dev yasdi.DeviceHandle) (*deviceEntry, error) {
	serial, err := state.master.DeviceSerialNumber(dev)
	if err != nil {
		return nil, err
	}
	name, err := state.master.DeviceName(dev)
	if err != nil {
		return nil, err
	}
	typ, err := state.master.DeviceType(dev)
	if err != nil {
		return nil, err
	}
	entry := &deviceEntry{
		info: domain.DeviceInfo{
			Handle: dev,
			Serial: serial,
			Name:   name,
			Type:   typ,
		},
		groups: make(map[yasdi.ChannelHandle]yasdi.ChannelGroup),
		names:  make(map[yasdi.ChannelHandle]string),
		byName: make(map[string]yasdi.ChannelHandle),
	}
	for _, group := range concreteGroups {
		for _, ch := range state.master.ChannelHandles(dev, group) {
			chName, err := state.master.ChannelName(ch)
			if err != nil {
				continue
			}
			entry.groups[ch] = group
			entry.names[ch] = chName
			entry.byName[domain.NormalizeChannelName(chName)] = ch
		}
	}
	return entry, nil
}

// resolveChannel accepts the exact channel name or its normalized form as
// used in entity ids.
func (state *YasdiActor) resolveChannel(entry *deviceEntry, name string) (yasdi.ChannelHandle, error) {
	if ch, err := state.master.FindChannel(entry.info.Handle, name); err == nil {
		return ch, nil
	}
	if ch, ok := entry.byName[domain.NormalizeChannelName(name)]; ok {
		return ch, nil
	}
	return yasdi.InvalidHandle, errors.Wrapf(domain.ErrChannelNotFound, "%q on device %d", name, entry.info.Serial)
}

func (state *YasdiActor) channelInfos(entry *deviceEntry, group yasdi.ChannelGroup) []domain.ChannelInfo {
	groups := []yasdi.ChannelGroup{group}
	if group == yasdi.AllChannels {
		groups = concreteGroups
	}
	var infos []domain.ChannelInfo
	for _, g := range groups {
		for _, ch := range state.master.ChannelHandles(entry.info.Handle, g) {
			infos = append(infos, state.channelInfo(ch, g))
		}
	}
	return infos
}

func (state *YasdiActor) channelInfo(ch yasdi.ChannelHandle, group yasdi.ChannelGroup) domain.ChannelInfo {
	info := domain.ChannelInfo{
		Handle: ch,
		Group:  group.String(),
	}
	info.Name, _ = state.master.ChannelName(ch)
	info.Unit, _ = state.master.ChannelUnit(ch)
	if texts, err := state.master.StatusTexts(ch); err == nil && len(texts) > 0 {
		info.StatusTexts = texts
	}
	if group == yasdi.ParamChannels {
		if r, err := state.master.ChannelValueRange(ch); err == nil {
			info.Range = &r
		}
	}
	return info
}

// readValues reads names on every device. With strict set a missing channel
// yields an errored value, otherwise devices lacking it are skipped.
func (state *YasdiActor) readValues(devices []*deviceEntry, names []string, maxAge uint32, strict bool) []domain.ChannelValue {
	var values []domain.ChannelValue
	for _, entry := range devices {
		for _, name := range names {
			ch, err := state.resolveChannel(entry, name)
			if err != nil {
				if strict {
					values = append(values, domain.ChannelValue{
						Serial:  entry.info.Serial,
						Channel: name,
						Error:   err.Error(),
					})
				}
				continue
			}
			values = append(values, state.readValue(entry, ch, maxAge))
		}
	}
	return values
}

func (state *YasdiActor) readValue(entry *deviceEntry, ch yasdi.ChannelHandle, maxAge uint32) domain.ChannelValue {
	dev := entry.info.Handle
	v := domain.ChannelValue{
		Serial:  entry.info.Serial,
		Channel: entry.names[ch],
		Group:   entry.groups[ch].String(),
	}
	if v.Channel == "" {
		v.Channel, _ = state.master.ChannelName(ch)
	}
	v.Unit, _ = state.master.ChannelUnit(ch)
	value, err := state.master.ChannelValue(ch, dev, maxAge)
	if err != nil {
		v.Error = err.Error()
		return v
	}
	v.Value = value
	if ts, ok := state.master.ChannelTimestamp(ch, dev); ok {
		v.Timestamp = ts
	}
	if n, err := state.master.StatusTextCount(ch); err == nil && n > 0 {
		if text, err := state.master.StatusText(ch, int(value)); err == nil {
			v.Text = text
		}
	}
	return v
}
