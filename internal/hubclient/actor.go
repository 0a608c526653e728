// Package hubclient implements the actor that owns the single
// WebSocket connection to the smart-home hub: the auth handshake,
// event subscription, heartbeat, and reconnect-with-backoff state
// machine of spec.md §4.3.
package hubclient

import (
	"context"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"

	"github.com/ucbridge/ha-integration-bridge/internal/actorutil"
	"github.com/ucbridge/ha-integration-bridge/internal/config"
	"github.com/ucbridge/ha-integration-bridge/internal/domain"
	"github.com/ucbridge/ha-integration-bridge/internal/proto/hub"
)

const (
	dialTimeout       = 10 * time.Second
	requestTimeout    = 10 * time.Second
	heartbeatInterval = 30 * time.Second
	heartbeatTimeoutD = 10 * time.Second
	runningResetAfter = 10 * time.Second
)

type HubClientActor struct {
	cfg         config.HassConfig
	behavior    actor.Behavior
	stash       *actorutil.Stash
	scheduler   *scheduler.TimerScheduler
	eventStream *eventstream.EventStream
	logger      *zap.Logger

	conn    *wsConn
	reqSeq  uint32
	pending map[uint32]pendingEntry

	backoffAttempt int
	runningSince   time.Time

	pendingPingID uint32

	// probeResult, when non-nil, marks this instance as a disposable
	// setup-flow probe (SPEC_FULL.md §5.4): it is called with the
	// auth outcome the first time one is known, instead of proceeding
	// to subscribe/run or reconnecting on failure, and the actor stops
	// itself right after.
	probeResult func(error)
}

func NewHubClientActor(cfg config.HassConfig, es *eventstream.EventStream, logger *zap.Logger) *HubClientActor {
	a := &HubClientActor{
		cfg:         cfg,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		eventStream: es,
		logger:      actorutil.ActorLogger(ActorID, logger),
		pending:     make(map[uint32]pendingEntry),
	}
	a.behavior.Become(a.DisconnectedReceive)
	return a
}

// NewProbeActor builds a disposable hub client that only dials and
// authenticates, reporting the outcome to onResult (nil on auth_ok)
// and then stopping itself rather than subscribing or reconnecting.
// Used by the integration server session's setup flow to validate
// hub credentials without standing up the long-lived C3 connection.
func NewProbeActor(cfg config.HassConfig, logger *zap.Logger, onResult func(error)) *HubClientActor {
	a := NewHubClientActor(cfg, &eventstream.EventStream{}, logger)
	a.probeResult = onResult
	return a
}

func (a *HubClientActor) Receive(ctx actor.Context) {
	a.behavior.Receive(ctx)
}

func (a *HubClientActor) nextReqID() uint32 {
	a.reqSeq++
	return a.reqSeq
}

// DisconnectedReceive is the initial state and the state reached after
// a fatal, non-retryable outcome. From here the client only reacts to
// an explicit (re)start.
func (a *HubClientActor) DisconnectedReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		a.logger.Debug("hubclient@disconnected started")
		a.beginConnect(ctx)
	case reconnectNow:
		a.beginConnect(ctx)
	case domain.HealthRequest:
		a.respondHealth(ctx, msg, false, "disconnected")
	case *actor.Stopping, *actor.Restarting:
		a.teardown()
	default:
		a.failPending(ErrNotConnected)
		a.stash.Stash(ctx, msg)
	}
}

func (a *HubClientActor) beginConnect(ctx actor.Context) {
	a.behavior.Become(a.ConnectingReceive)
	self := ctx.Self()
	rootCtx := ctx.ActorSystem().Root
	timeout := dialTimeout
	if a.cfg.ConnectionTimeout > 0 {
		timeout = time.Duration(a.cfg.ConnectionTimeout) * time.Second
	}
	go func() {
		conn, err := dialHub(context.Background(), a.cfg, timeout)
		rootCtx.Send(self, dialOutcome{conn: conn, err: err})
	}()
}

// ConnectingReceive dials the hub and, once connected, spawns the
// read-pump and moves on to the auth handshake.
func (a *HubClientActor) ConnectingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case dialOutcome:
		if msg.err != nil {
			a.logger.Warn("hubclient@connecting dial failed", zap.Error(msg.err))
			a.enterBackoff(ctx, msg.err)
			return
		}
		a.conn = msg.conn
		go a.conn.readPump(ctx.Self(), ctx.ActorSystem().Root)
		a.behavior.Become(a.AuthenticatingReceive)
	case domain.HealthRequest:
		a.respondHealth(ctx, msg, false, "connecting")
	case *actor.Stopping, *actor.Restarting:
		a.teardown()
	default:
		a.stash.Stash(ctx, msg)
	}
}

// AuthenticatingReceive waits for auth_required, sends auth, and waits
// for auth_ok/auth_invalid.
func (a *HubClientActor) AuthenticatingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case wsFrame:
		switch msg.frame.Type {
		case hub.TypeAuthRequired:
			payload, err := hub.EncodeAuth(a.cfg.Token)
			if err != nil {
				a.enterBackoff(ctx, err)
				return
			}
			if err := a.conn.send(payload); err != nil {
				a.enterBackoff(ctx, err)
				return
			}
		case hub.TypeAuthOK:
			if a.probeResult != nil {
				a.probeResult(nil)
				a.teardown()
				ctx.Stop(ctx.Self())
				return
			}
			a.behavior.Become(a.SubscribingReceive)
			a.requestSubscription(ctx)
		case hub.TypeAuthInvalid:
			a.enterAuthFailed(ctx)
		}
	case wsClosed:
		a.enterBackoff(ctx, msg.err)
	case domain.HealthRequest:
		a.respondHealth(ctx, msg, false, "authenticating")
	case *actor.Stopping, *actor.Restarting:
		a.teardown()
	default:
		a.stash.Stash(ctx, msg)
	}
}

func (a *HubClientActor) requestSubscription(ctx actor.Context) {
	subID := a.nextReqID()
	payload, err := hub.EncodeSubscribeEvents(subID)
	if err != nil {
		a.enterBackoff(ctx, err)
		return
	}
	statesID := a.nextReqID()
	statesPayload, err := hub.EncodeGetStates(statesID)
	if err != nil {
		a.enterBackoff(ctx, err)
		return
	}
	if err := a.conn.send(payload); err != nil {
		a.enterBackoff(ctx, err)
		return
	}
	if err := a.conn.send(statesPayload); err != nil {
		a.enterBackoff(ctx, err)
		return
	}
	a.awaitSubscribeResult(ctx, subID, statesID)
}

func (a *HubClientActor) awaitSubscribeResult(ctx actor.Context, subID, statesID uint32) {
	subOK := false
	var statesSnapshot []hub.State
	statesOK := false

	a.pending[subID] = pendingEntry{
		onResult: func(*hub.Frame) {
			subOK = true
			if statesOK {
				a.onSubscribed(ctx, statesSnapshot)
			}
		},
		onError: func(err error) { a.enterBackoff(ctx, err) },
	}
	a.pending[statesID] = pendingEntry{
		onResult: func(f *hub.Frame) {
			states, err := hub.DecodeStates(f.Result)
			if err != nil {
				a.enterBackoff(ctx, err)
				return
			}
			statesSnapshot = states
			statesOK = true
			if subOK {
				a.onSubscribed(ctx, statesSnapshot)
			}
		},
		onError: func(err error) { a.enterBackoff(ctx, err) },
	}
}

func (a *HubClientActor) onSubscribed(ctx actor.Context, states []hub.State) {
	a.behavior.Become(a.RunningReceive)
	a.runningSince = time.Now()
	a.scheduler = scheduler.NewTimerScheduler(ctx)
	a.scheduleHeartbeat(ctx)
	a.eventStream.Publish(ConnectionStatus{Connected: true})
	a.eventStream.Publish(Reconnected{Snapshot: states})
	a.stash.UnstashAll(ctx)
}

// SubscribingReceive waits for the subscribe_events/get_states result
// frames requested on entering this state.
func (a *HubClientActor) SubscribingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case wsFrame:
		a.handleResultFrame(ctx, msg.frame)
	case wsClosed:
		a.enterBackoff(ctx, msg.err)
	case domain.HealthRequest:
		a.respondHealth(ctx, msg, false, "subscribing")
	case *actor.Stopping, *actor.Restarting:
		a.teardown()
	default:
		a.stash.Stash(ctx, msg)
	}
}

// RunningReceive is the steady state: serves call_service requests,
// forwards state_changed events, and answers heartbeat pings.
func (a *HubClientActor) RunningReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case wsFrame:
		a.handleRunningFrame(ctx, msg.frame)
	case wsClosed:
		a.enterBackoff(ctx, msg.err)
	case CallServiceRequest:
		a.handleCallService(ctx, msg)
	case GetStatesRequest:
		a.handleGetStates(ctx, msg)
	case heartbeatTick:
		a.sendPing(ctx)
	case heartbeatTimeout:
		if a.pendingPingID != 0 && msg.id == a.pendingPingID {
			a.enterBackoff(ctx, fmt.Errorf("heartbeat timeout"))
		}
	case requestTimeoutMsg:
		if entry, ok := a.pending[msg.id]; ok {
			delete(a.pending, msg.id)
			entry.onError(fmt.Errorf("request %d: %w", msg.id, ErrTimeout))
		}
	case domain.HealthRequest:
		a.respondHealth(ctx, msg, true, "running")
	case *actor.Stopping, *actor.Restarting:
		a.teardown()
	default:
		a.logger.Debug("hubclient@running unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (a *HubClientActor) handleRunningFrame(ctx actor.Context, f *hub.Frame) {
	switch f.Type {
	case hub.TypePong:
		if f.ID == a.pendingPingID {
			a.pendingPingID = 0
			a.scheduleHeartbeat(ctx)
		}
	case hub.TypeResult:
		a.handleResultFrame(ctx, f)
	case hub.TypeEvent:
		if f.EventType != hub.EventStateChanged {
			return
		}
		evt, err := hub.DecodeStateChangedEvent(f.Event)
		if err != nil {
			a.logger.Warn("hubclient@running malformed state_changed", zap.Error(err))
			return
		}
		a.eventStream.Publish(StateChanged{EntityID: evt.EntityID, OldState: evt.OldState, NewState: evt.NewState})
	}
}

func (a *HubClientActor) handleResultFrame(ctx actor.Context, f *hub.Frame) {
	entry, ok := a.pending[f.ID]
	if !ok {
		return
	}
	delete(a.pending, f.ID)
	if f.Success != nil && !*f.Success {
		msg := "call failed"
		if f.Error != nil {
			msg = f.Error.Message
		}
		entry.onError(fmt.Errorf("%s", msg))
		return
	}
	entry.onResult(f)
}

// handleCallService captures the requester up front: the reply is sent
// later, while the actor handles the hub's result frame or a timeout,
// when ctx.Sender() no longer refers to the original requester.
func (a *HubClientActor) handleCallService(ctx actor.Context, req CallServiceRequest) {
	sender := ctx.Sender()
	id := a.nextReqID()
	payload, err := hub.EncodeCallService(id, req.Call.Domain, req.Call.Service, req.Call.Data)
	if err != nil {
		a.respondCallService(ctx, sender, req, err)
		return
	}
	if err := a.conn.send(payload); err != nil {
		a.respondCallService(ctx, sender, req, err)
		return
	}
	a.armDeadline(ctx, id, requestTimeout, func() {
		a.respondCallService(ctx, sender, req, nil)
	}, func(err error) {
		a.respondCallService(ctx, sender, req, err)
	})
}

func (a *HubClientActor) respondCallService(ctx actor.Context, sender *actor.PID, req CallServiceRequest, err error) {
	resp := CallServiceResponse{ResponseMixIn: domain.ResponseMixIn{ResponseError: err}}
	if req.ReplyToRef != nil {
		ctx.Send((*actor.PID)(req.ReplyToRef), resp)
	} else if sender != nil {
		ctx.Send(sender, resp)
	}
}

func (a *HubClientActor) handleGetStates(ctx actor.Context, req GetStatesRequest) {
	sender := ctx.Sender()
	id := a.nextReqID()
	payload, err := hub.EncodeGetStates(id)
	if err != nil {
		a.respondGetStates(ctx, sender, req, nil, err)
		return
	}
	if err := a.conn.send(payload); err != nil {
		a.respondGetStates(ctx, sender, req, nil, err)
		return
	}
	a.pending[id] = pendingEntry{
		onResult: func(f *hub.Frame) {
			states, err := hub.DecodeStates(f.Result)
			a.respondGetStates(ctx, sender, req, states, err)
		},
		onError: func(err error) { a.respondGetStates(ctx, sender, req, nil, err) },
	}
	a.armTimeoutOnly(ctx, id, requestTimeout)
}

func (a *HubClientActor) respondGetStates(ctx actor.Context, sender *actor.PID, req GetStatesRequest, states []hub.State, err error) {
	resp := GetStatesResponse{ResponseMixIn: domain.ResponseMixIn{ResponseError: err}, States: states}
	if req.ReplyToRef != nil {
		ctx.Send((*actor.PID)(req.ReplyToRef), resp)
	} else if sender != nil {
		ctx.Send(sender, resp)
	}
}

func (a *HubClientActor) armDeadline(ctx actor.Context, id uint32, d time.Duration, onResult func(), onError func(error)) {
	a.pending[id] = pendingEntry{
		onResult: func(*hub.Frame) { onResult() },
		onError:  onError,
	}
	a.armTimeoutOnly(ctx, id, d)
}

func (a *HubClientActor) armTimeoutOnly(ctx actor.Context, id uint32, d time.Duration) {
	if a.scheduler == nil {
		a.scheduler = scheduler.NewTimerScheduler(ctx)
	}
	a.scheduler.RequestOnce(d, ctx.Self(), requestTimeoutMsg{id: id})
}

func (a *HubClientActor) sendPing(ctx actor.Context) {
	id := a.nextReqID()
	payload, err := hub.EncodePing(id)
	if err != nil {
		a.enterBackoff(ctx, err)
		return
	}
	if err := a.conn.send(payload); err != nil {
		a.enterBackoff(ctx, err)
		return
	}
	a.pendingPingID = id
	a.scheduler.RequestOnce(heartbeatTimeoutD, ctx.Self(), heartbeatTimeout{id: id})
}

func (a *HubClientActor) scheduleHeartbeat(ctx actor.Context) {
	if a.scheduler == nil {
		a.scheduler = scheduler.NewTimerScheduler(ctx)
	}
	a.scheduler.RequestOnce(heartbeatInterval, ctx.Self(), heartbeatTick{})
}

// BackoffReceive waits out a reconnect delay, failing every pending
// request immediately (invariant: a pending request never outlives its
// session, spec.md §8 invariant 3).
func (a *HubClientActor) BackoffReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case reconnectNow:
		a.beginConnect(ctx)
	case domain.HealthRequest:
		a.respondHealth(ctx, msg, false, "backoff")
	case *actor.Stopping, *actor.Restarting:
		a.teardown()
	default:
		a.stash.Stash(ctx, msg)
	}
}

func (a *HubClientActor) enterBackoff(ctx actor.Context, reason error) {
	if a.probeResult != nil {
		a.teardown()
		a.failPending(reason)
		a.probeResult(reason)
		ctx.Stop(ctx.Self())
		return
	}
	if !a.runningSince.IsZero() && time.Since(a.runningSince) >= runningResetAfter {
		a.backoffAttempt = 0
	}
	a.runningSince = time.Time{}
	a.teardown()
	a.eventStream.Publish(ConnectionStatus{Connected: false})
	a.failPending(reason)
	delay := nextBackoff(a.backoffAttempt)
	a.backoffAttempt++
	a.logger.Warn("hubclient entering backoff", zap.Error(reason), zap.Duration("delay", delay))
	a.behavior.Become(a.BackoffReceive)
	if a.scheduler == nil {
		a.scheduler = scheduler.NewTimerScheduler(ctx)
	}
	a.scheduler.RequestOnce(delay, ctx.Self(), reconnectNow{})
}

// enterAuthFailed handles auth_invalid: a permanent rejection of the
// configured token. Unlike enterBackoff this never schedules a
// reconnect; the client sits in DisconnectedReceive until the
// controller replaces it with a new token via ReconfigureHub
// (spec.md §4.3, §8 boundary behavior 1).
func (a *HubClientActor) enterAuthFailed(ctx actor.Context) {
	if a.probeResult != nil {
		a.enterBackoff(ctx, ErrAuthFailed)
		return
	}
	a.runningSince = time.Time{}
	a.teardown()
	a.eventStream.Publish(ConnectionStatus{Connected: false})
	a.failPending(ErrAuthFailed)
	a.logger.Warn("hubclient auth rejected, not retrying", zap.Error(ErrAuthFailed))
	a.behavior.Become(a.DisconnectedReceive)
}

func (a *HubClientActor) failPending(reason error) {
	for id, entry := range a.pending {
		delete(a.pending, id)
		entry.onError(reason)
	}
}

func (a *HubClientActor) teardown() {
	if a.conn != nil {
		a.conn.close()
		a.conn = nil
	}
}

func (a *HubClientActor) respondHealth(ctx actor.Context, req domain.HealthRequest, healthy bool, state string) {
	resp := domain.HealthResponse{Id: ActorID, Healthy: healthy, State: state}
	if req.ReplyToRef != nil {
		ctx.Send((*actor.PID)(req.ReplyToRef), resp)
	} else {
		ctx.Respond(resp)
	}
}

type requestTimeoutMsg struct {
	id uint32
}
