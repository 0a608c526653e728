// Package remotesession implements the per-connection actor for the
// integration server's WebSocket endpoint: driver setup, entity
// subscriptions, and command routing to the controller (spec.md §4.4).
package remotesession

import (
	"sync"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ucbridge/ha-integration-bridge/internal/actorutil"
	"github.com/ucbridge/ha-integration-bridge/internal/config"
	ctrl "github.com/ucbridge/ha-integration-bridge/internal/controller"
	"github.com/ucbridge/ha-integration-bridge/internal/discovery"
	"github.com/ucbridge/ha-integration-bridge/internal/domain"
	"github.com/ucbridge/ha-integration-bridge/internal/proto/integration"
)

const requestDeadline = 10 * time.Second

// ProbeProvider builds the disposable hub-client probe spawned at the
// credentials step of driver setup, mirroring controller.HubClientProvider
// so the probe is swappable in tests without a real hub.
type ProbeProvider func(cfg config.HassConfig, onResult func(error)) actor.Actor

// SessionActor is one accepted remote connection: its own WebSocket,
// its own bounded outbox, and a five-state behavior exactly matching
// spec.md §4.4 (Connected, SetupRequired, SetupInProgress, Ready,
// Closing).
type SessionActor struct {
	behavior actor.Behavior
	stash    *actorutil.Stash

	controller *actor.PID
	store      *discovery.Store
	probe      ProbeProvider
	meta       integration.DriverMetadata
	logger     *zap.Logger

	conn      *wsConn
	outbox    *outbox
	done      chan struct{}
	closeOnce sync.Once

	sessionID  string
	registered bool

	probePID   *actor.PID
	pendingCfg config.HassConfig
	pendingReq uint32
	pendingMsg string
}

func NewSessionActor(
	conn *websocket.Conn,
	controller *actor.PID,
	store *discovery.Store,
	probe ProbeProvider,
	meta integration.DriverMetadata,
	logger *zap.Logger,
) *SessionActor {
	s := &SessionActor{
		behavior:   actor.NewBehavior(),
		stash:      &actorutil.Stash{},
		controller: controller,
		store:      store,
		probe:      probe,
		meta:       meta,
		logger:     actorutil.ActorLogger(ActorID, logger),
		conn:       newServerConn(conn),
		outbox:     newOutbox(),
		done:       make(chan struct{}),
		sessionID:  uuid.NewString(),
	}
	s.behavior.Become(s.ConnectedReceive)
	return s
}

func (s *SessionActor) Receive(ctx actor.Context) {
	s.behavior.Receive(ctx)
}

// ConnectedReceive is entered on accept: the read-pump and outbox
// writer are started, then the persisted driver config decides whether
// the session can skip straight to Ready or must run setup first.
func (s *SessionActor) ConnectedReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		s.logger.Debug("session@connected started", zap.String("session_id", s.sessionID))
		go s.conn.readPump(ctx.Self(), ctx.ActorSystem().Root)
		go s.outbox.writerLoop(s.conn, s.done)
		_, ok, err := s.store.Load()
		if err != nil {
			s.logger.Warn("session@connected load driver config failed", zap.Error(err))
		}
		if ok {
			s.enterReady(ctx)
			return
		}
		s.behavior.Become(s.SetupRequiredReceive)
	case wsClosed:
		s.enterClosing(ctx, msg.err)
	case domain.HealthRequest:
		s.respondHealth(ctx, msg, true, "connected")
	case *actor.Stopping, *actor.Restarting:
		s.teardown(ctx)
	default:
		s.stash.Stash(ctx, msg)
	}
}

// SetupRequiredReceive answers driver metadata queries and starts the
// setup form on setup_driver.
func (s *SessionActor) SetupRequiredReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case wsFrame:
		s.handleSetupRequiredFrame(ctx, msg.frame)
	case wsClosed:
		s.enterClosing(ctx, msg.err)
	case domain.HealthRequest:
		s.respondHealth(ctx, msg, true, "setup_required")
	case *actor.Stopping, *actor.Restarting:
		s.teardown(ctx)
	default:
		s.stash.Stash(ctx, msg)
	}
}

func (s *SessionActor) handleSetupRequiredFrame(ctx actor.Context, f *integration.Frame) {
	if f.Kind != integration.KindReq {
		s.logger.Debug("session@setup_required dropped non-req frame", zap.String("kind", f.Kind), zap.String("msg", f.Msg))
		return
	}
	switch f.Msg {
	case integration.MsgDriverVersion:
		s.sendResp(*f.ReqID, f.Msg, integration.DriverVersion{Version: s.meta.Version})
	case integration.MsgGetDriverMetadata:
		s.sendResp(*f.ReqID, f.Msg, s.meta)
	case integration.MsgSetupDriver:
		s.sendResp(*f.ReqID, f.Msg, credentialsStep())
		s.behavior.Become(s.SetupInProgressReceive)
	case integration.MsgAbortDriverSetup:
		s.sendRespOK(*f.ReqID, f.Msg)
	default:
		s.sendRespError(*f.ReqID, f.Msg, integration.CodeNotSupported, "driver setup required")
	}
}

// SetupInProgressReceive advances the multi-step form. At the
// credentials step a disposable probe actor validates the submitted
// hub endpoint before anything is persisted.
func (s *SessionActor) SetupInProgressReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case wsFrame:
		s.handleSetupInProgressFrame(ctx, msg.frame)
	case wsClosed:
		s.enterClosing(ctx, msg.err)
	case probeOutcome:
		s.handleProbeOutcome(ctx, msg)
	case domain.HealthRequest:
		s.respondHealth(ctx, msg, true, "setup_in_progress")
	case *actor.Stopping, *actor.Restarting:
		s.teardown(ctx)
	default:
		s.stash.Stash(ctx, msg)
	}
}

func (s *SessionActor) handleSetupInProgressFrame(ctx actor.Context, f *integration.Frame) {
	if f.Kind != integration.KindReq {
		s.logger.Debug("session@setup_in_progress dropped non-req frame", zap.String("kind", f.Kind), zap.String("msg", f.Msg))
		return
	}
	switch f.Msg {
	case integration.MsgSetDriverUserData:
		if s.probePID != nil {
			s.stash.Stash(ctx, wsFrame{frame: f})
			return
		}
		s.beginCredentialsProbe(ctx, f)
	case integration.MsgAbortDriverSetup:
		s.sendRespOK(*f.ReqID, f.Msg)
		s.stash = &actorutil.Stash{}
		s.behavior.Become(s.SetupRequiredReceive)
	default:
		s.sendRespError(*f.ReqID, f.Msg, integration.CodeNotSupported, "setup already in progress")
	}
}

func (s *SessionActor) beginCredentialsProbe(ctx actor.Context, f *integration.Frame) {
	data, err := integration.DecodeSetDriverUserData(f.MsgData)
	if err != nil {
		s.sendRespError(*f.ReqID, f.Msg, integration.CodeBadParameter, err.Error())
		return
	}
	url, token, ok := parseCredentials(data.InputValues)
	if !ok {
		s.sendRespError(*f.ReqID, f.Msg, integration.CodeBadParameter, "hub_url and hub_token are required")
		return
	}

	s.pendingCfg = config.HassConfig{URL: url, Token: token, TLS: config.HassTLSConfig{Verify: true}}
	s.pendingReq = *f.ReqID
	s.pendingMsg = f.Msg

	self := ctx.Self()
	rootCtx := ctx.ActorSystem().Root
	cfg := s.pendingCfg
	props := actor.PropsFromProducer(func() actor.Actor {
		return s.probe(cfg, func(err error) {
			rootCtx.Send(self, probeOutcome{err: err})
		})
	})
	s.probePID = ctx.Spawn(props)
}

func (s *SessionActor) handleProbeOutcome(ctx actor.Context, msg probeOutcome) {
	reqID, msgName := s.pendingReq, s.pendingMsg
	s.probePID = nil

	if msg.err != nil {
		s.sendResp(reqID, msgName, credentialsErrorStep(msg.err))
		s.stash.UnstashAll(ctx)
		return
	}

	cfg := s.pendingCfg
	driverCfg := &discovery.DriverConfig{
		HubURL:     cfg.URL,
		HubToken:   cfg.Token,
		TLSVerify:  cfg.TLS.Verify,
		TLSCACerts: cfg.TLS.CACerts,
	}
	if err := s.store.Save(driverCfg); err != nil {
		s.logger.Warn("session@setup persist driver config failed", zap.Error(err))
		s.sendResp(reqID, msgName, integration.SetupStep{Step: stepCredentials, Fields: credentialsFields(), Error: err.Error()})
		return
	}

	s.sendResp(reqID, msgName, completeStep())
	ctx.Send(s.controller, ctrl.ReconfigureHub{Cfg: cfg})
	s.enterReady(ctx)
}

func (s *SessionActor) enterReady(ctx actor.Context) {
	s.registered = true
	ctx.Send(s.controller, ctrl.RegisterSession{SessionID: s.sessionID, PID: ctx.Self()})
	s.behavior.Become(s.ReadyReceive)
	s.stash.UnstashAll(ctx)
}

// ReadyReceive is the steady state: entity queries and commands are
// forwarded to the controller without blocking the session's mailbox,
// and catalog changes the controller fans out are written to the
// outbox as entity_change/device_state events.
func (s *SessionActor) ReadyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case wsFrame:
		s.handleReadyFrame(ctx, msg.frame)
	case wsClosed:
		s.enterClosing(ctx, msg.err)
	case ctrl.EntityChange:
		s.pushEntityChange(msg)
	case ctrl.DeviceStateChanged:
		s.pushDeviceState(msg)
	case domain.HealthRequest:
		s.respondHealth(ctx, msg, true, "ready")
	case *actor.Stopping, *actor.Restarting:
		s.teardown(ctx)
	default:
		s.logger.Debug("session@ready unhandled message")
	}
}

func (s *SessionActor) handleReadyFrame(ctx actor.Context, f *integration.Frame) {
	if f.Kind != integration.KindReq {
		s.logger.Debug("session@ready dropped non-req frame", zap.String("kind", f.Kind), zap.String("msg", f.Msg))
		return
	}
	reqID, msgName := *f.ReqID, f.Msg
	switch f.Msg {
	case integration.MsgGetAvailableEntities:
		future := ctx.RequestFuture(s.controller, ctrl.GetAvailableEntities{}, requestDeadline)
		ctx.ReenterAfter(future, func(res any, err error) {
			if err != nil {
				s.sendRespError(reqID, msgName, integration.CodeHubError, err.Error())
				return
			}
			resp, _ := res.(ctrl.GetAvailableEntitiesResponse)
			s.sendResp(reqID, msgName, entitiesPayload(resp.Entities))
		})
	case integration.MsgGetEntityStates:
		ids, err := integration.DecodeEntityIDs(f.MsgData)
		if err != nil {
			s.sendRespError(reqID, msgName, integration.CodeBadParameter, err.Error())
			return
		}
		future := ctx.RequestFuture(s.controller, ctrl.GetEntityStates{EntityIDs: ids}, requestDeadline)
		ctx.ReenterAfter(future, func(res any, err error) {
			if err != nil {
				s.sendRespError(reqID, msgName, integration.CodeHubError, err.Error())
				return
			}
			resp, _ := res.(ctrl.GetEntityStatesResponse)
			s.sendResp(reqID, msgName, entitiesPayload(resp.Entities))
		})
	case integration.MsgSubscribeEvents:
		sub, err := integration.DecodeSubscribeEvents(f.MsgData)
		if err != nil {
			s.sendRespError(reqID, msgName, integration.CodeBadParameter, err.Error())
			return
		}
		future := ctx.RequestFuture(s.controller, ctrl.SubscribeEntities{SessionID: s.sessionID, EntityIDs: sub.EntityIDs}, requestDeadline)
		ctx.ReenterAfter(future, func(res any, err error) {
			if err != nil {
				s.sendRespError(reqID, msgName, integration.CodeHubError, err.Error())
				return
			}
			if ack, ok := res.(ctrl.SubscribeAck); ok && ack.ResponseError != nil {
				s.sendRespError(reqID, msgName, integration.CodeHubError, ack.ResponseError.Error())
				return
			}
			s.sendRespOK(reqID, msgName)
		})
	case integration.MsgUnsubscribeEvents:
		sub, err := integration.DecodeSubscribeEvents(f.MsgData)
		if err != nil {
			s.sendRespError(reqID, msgName, integration.CodeBadParameter, err.Error())
			return
		}
		future := ctx.RequestFuture(s.controller, ctrl.UnsubscribeEntities{SessionID: s.sessionID, EntityIDs: sub.EntityIDs}, requestDeadline)
		ctx.ReenterAfter(future, func(res any, err error) {
			if err != nil {
				s.sendRespError(reqID, msgName, integration.CodeHubError, err.Error())
				return
			}
			if ack, ok := res.(ctrl.SubscribeAck); ok && ack.ResponseError != nil {
				s.sendRespError(reqID, msgName, integration.CodeHubError, ack.ResponseError.Error())
				return
			}
			s.sendRespOK(reqID, msgName)
		})
	case integration.MsgEntityCommand:
		cmd, err := integration.DecodeEntityCommand(f.MsgData)
		if err != nil {
			s.sendRespError(reqID, msgName, integration.CodeBadParameter, err.Error())
			return
		}
		future := ctx.RequestFuture(s.controller, ctrl.EntityCommand{EntityID: cmd.EntityID, CmdID: cmd.CmdID, Params: cmd.Params}, requestDeadline)
		ctx.ReenterAfter(future, func(res any, err error) {
			if err != nil {
				s.sendRespError(reqID, msgName, integration.CodeHubError, err.Error())
				return
			}
			resp, _ := res.(ctrl.EntityCommandResponse)
			if resp.ResponseError != nil {
				s.sendRespError(reqID, msgName, mapEntityError(resp.ResponseError), resp.ResponseError.Error())
				return
			}
			s.sendRespOK(reqID, msgName)
		})
	case integration.MsgConnect, integration.MsgDisconnect, integration.MsgEnterStandby, integration.MsgExitStandby:
		s.sendRespOK(reqID, msgName)
	default:
		s.sendRespError(reqID, msgName, integration.CodeNotSupported, "already configured")
	}
}

func (s *SessionActor) pushEntityChange(msg ctrl.EntityChange) {
	data, err := integration.EncodeEvent(integration.MsgEntityChange, integration.EntityChange{
		EntityID:   msg.EntityID,
		EntityType: msg.EntityType,
		State:      msg.State,
		Attributes: msg.Attributes,
	})
	if err != nil {
		s.logger.Warn("session@ready encode entity_change failed", zap.Error(err))
		return
	}
	s.outbox.push(data, msg.EntityID)
}

func (s *SessionActor) pushDeviceState(msg ctrl.DeviceStateChanged) {
	state := integration.DeviceStateDisconnected
	if msg.Connected {
		state = integration.DeviceStateConnected
	}
	data, err := integration.EncodeEvent(integration.MsgDeviceState, integration.DeviceStateEvent{State: state})
	if err != nil {
		s.logger.Warn("session@ready encode device_state failed", zap.Error(err))
		return
	}
	s.outbox.push(data, "")
}

// ClosingReceive is terminal: the transport and controller registration
// are already torn down by the time it is entered, so every message is
// simply ignored until the actor stops.
func (s *SessionActor) ClosingReceive(ctx actor.Context) {
	switch ctx.Message().(type) {
	case *actor.Stopping, *actor.Restarting:
		s.teardown(ctx)
	}
}

func (s *SessionActor) enterClosing(ctx actor.Context, reason error) {
	s.logger.Debug("session@closing", zap.Error(reason))
	s.teardown(ctx)
	s.behavior.Become(s.ClosingReceive)
	ctx.Stop(ctx.Self())
}

func (s *SessionActor) teardown(ctx actor.Context) {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.close()
		if s.probePID != nil {
			ctx.Stop(s.probePID)
			s.probePID = nil
		}
		if s.registered {
			ctx.Send(s.controller, ctrl.UnregisterSession{SessionID: s.sessionID})
			s.registered = false
		}
	})
}

func (s *SessionActor) sendResp(reqID uint32, msg string, payload any) {
	data, err := integration.EncodeResp(reqID, msg, payload)
	if err != nil {
		s.logger.Warn("session encode resp failed", zap.String("msg", msg), zap.Error(err))
		return
	}
	s.outbox.push(data, "")
}

func (s *SessionActor) sendRespOK(reqID uint32, msg string) {
	data, err := integration.EncodeRespOK(reqID, msg)
	if err != nil {
		s.logger.Warn("session encode resp ok failed", zap.String("msg", msg), zap.Error(err))
		return
	}
	s.outbox.push(data, "")
}

func (s *SessionActor) sendRespError(reqID uint32, msg, code, message string) {
	data, err := integration.EncodeRespError(reqID, msg, code, message)
	if err != nil {
		s.logger.Warn("session encode resp error failed", zap.String("msg", msg), zap.Error(err))
		return
	}
	s.outbox.push(data, "")
}

func (s *SessionActor) respondHealth(ctx actor.Context, req domain.HealthRequest, healthy bool, state string) {
	resp := domain.HealthResponse{Id: s.sessionID, Healthy: healthy, State: state}
	if req.ReplyToRef != nil {
		ctx.Send((*actor.PID)(req.ReplyToRef), resp)
	} else {
		ctx.Respond(resp)
	}
}
