// Package controller implements the actor that owns the entity
// catalog, the hub client child, and the subscription registry fanning
// hub state changes out to remote sessions (spec.md §4.5).
package controller

import (
	"fmt"
	"reflect"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"

	"github.com/ucbridge/ha-integration-bridge/internal/actorutil"
	"github.com/ucbridge/ha-integration-bridge/internal/config"
	"github.com/ucbridge/ha-integration-bridge/internal/domain"
	"github.com/ucbridge/ha-integration-bridge/internal/entity"
	"github.com/ucbridge/ha-integration-bridge/internal/hubclient"
	"github.com/ucbridge/ha-integration-bridge/internal/ratelimit"
)

// unknownStateLogWindow bounds how often the controller logs a warning
// about the same entity reporting the same unrecognized hub state
// (spec.md §7: one warning per entity/state pair per 60s).
const unknownStateLogWindow = 60 * time.Second

// HubClientProvider builds the hub client child, mirroring the
// teacher's MQTTActorProvider/ModbusActorProvider factory-function
// pattern so the hub client type is swappable in tests. It takes the
// current HassConfig rather than closing over one, so the controller
// can respawn the child with new credentials on ReconfigureHub (spec.md
// §4.6: a changed hub_url/hub_token triggers a full reconnect cycle).
type HubClientProvider func(config.HassConfig, *eventstream.EventStream) actor.Actor

type ControllerActor struct {
	cfg         config.HassConfig
	provider    HubClientProvider
	eventStream *eventstream.EventStream
	eventSub    *eventstream.Subscription
	logger      *zap.Logger

	hubClient *actor.PID
	catalog   *entity.Catalog
	registry  *entity.Registry

	entityToSessions  map[string]map[string]*actor.PID
	sessionToEntities map[string]map[string]struct{}
	sessionPIDs       map[string]*actor.PID

	hubConnected bool

	unknownStateLimiter *ratelimit.Limiter
}

func NewControllerActor(cfg config.HassConfig, provider HubClientProvider, logger *zap.Logger) *ControllerActor {
	return &ControllerActor{
		cfg:                  cfg,
		provider:             provider,
		eventStream:          &eventstream.EventStream{},
		logger:               actorutil.ActorLogger(ActorID, logger),
		catalog:              entity.NewCatalog(),
		registry:             entity.DefaultRegistry(),
		entityToSessions:     make(map[string]map[string]*actor.PID),
		sessionToEntities:    make(map[string]map[string]struct{}),
		sessionPIDs:          make(map[string]*actor.PID),
		unknownStateLimiter:  ratelimit.New(unknownStateLogWindow),
	}
}

// Receive is the controller's single long-running state: there is no
// multi-phase startup handshake here (unlike the hub client), since
// spawning the hub client child is synchronous and the catalog starts
// empty regardless.
func (c *ControllerActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		c.onStarted(ctx)
	case hubclient.StateChanged:
		c.onStateChanged(ctx, msg)
	case hubclient.Reconnected:
		c.onReconnected(ctx, msg)
	case hubclient.ConnectionStatus:
		c.onConnectionStatus(ctx, msg)
	case RegisterSession:
		c.onRegisterSession(ctx, msg)
	case UnregisterSession:
		c.onUnregisterSession(msg)
	case *actor.Terminated:
		c.onTerminated(msg.Who)
	case ReconfigureHub:
		c.onReconfigureHub(ctx, msg)
	case SubscribeEntities:
		c.onSubscribe(ctx, msg)
	case UnsubscribeEntities:
		c.onUnsubscribe(ctx, msg)
	case EntityCommand:
		c.onEntityCommand(ctx, msg)
	case GetAvailableEntities:
		c.onGetAvailableEntities(ctx, msg)
	case GetEntityStates:
		c.onGetEntityStates(ctx, msg)
	case domain.HealthRequest:
		c.onHealthRequest(ctx, msg)
	case *actor.Stopping, *actor.Restarting:
		c.teardown()
	}
}

func (c *ControllerActor) onStarted(ctx actor.Context) {
	c.logger.Debug("controller@started")
	// A freshly-deployed driver has no hub credentials until a remote
	// session's setup flow persists them via ReconfigureHub; starting
	// the hub client against an empty URL would just churn in Backoff.
	if c.cfg.URL != "" && c.cfg.Token != "" {
		c.spawnHubClient(ctx)
	}

	c.eventSub = c.eventStream.Subscribe(func(v any) {
		ctx.Send(ctx.Self(), v)
	})
}

func (c *ControllerActor) spawnHubClient(ctx actor.Context) {
	props := actor.PropsFromProducer(func() actor.Actor { return c.provider(c.cfg, c.eventStream) })
	pid := ctx.Spawn(props)
	c.hubClient = pid
	ctx.Watch(pid)
}

// onReconfigureHub replaces the hub client child with a fresh one built
// from msg.Cfg, used when a remote session's setup flow persists new
// hub credentials (spec.md §4.6).
func (c *ControllerActor) onReconfigureHub(ctx actor.Context, msg ReconfigureHub) {
	if c.hubClient != nil {
		// The old child's eventual *actor.Terminated is harmless here:
		// onTerminated only matches PIDs in sessionPIDs, and the hub
		// client was never registered there.
		ctx.Stop(c.hubClient)
	}
	c.cfg = msg.Cfg
	c.hubConnected = false
	c.spawnHubClient(ctx)
}

func (c *ControllerActor) onStateChanged(ctx actor.Context, msg hubclient.StateChanged) {
	if msg.NewState == nil {
		c.catalog.Remove(entity.ID(msg.EntityID))
		return
	}
	if !c.catalog.Accept(entity.ID(msg.EntityID), msg.NewState.LastUpdated) {
		c.logger.Debug("dropped out-of-order state_changed", zap.String("entity_id", msg.EntityID))
		return
	}
	e := c.upsertEntity(msg.EntityID, msg.NewState.State, msg.NewState.Attributes)
	c.fanOutChange(ctx, e)
}

// onReconnected replaces the catalog with a fresh post-reconnect
// snapshot and re-emits entity_change only for entities whose state or
// attributes actually differ from their pre-disconnect value (spec.md
// §4.5): a reconnect is not license to spam every subscriber with
// values they already have.
func (c *ControllerActor) onReconnected(ctx actor.Context, msg hubclient.Reconnected) {
	prior := make(map[string]*entity.Entity, len(msg.Snapshot))
	for _, s := range msg.Snapshot {
		if e, ok := c.catalog.Get(entity.ID(s.EntityID)); ok {
			prior[s.EntityID] = e
		}
	}
	c.catalog.Reset()
	for _, s := range msg.Snapshot {
		c.catalog.Accept(entity.ID(s.EntityID), s.LastUpdated)
		e := c.upsertEntity(s.EntityID, s.State, s.Attributes)
		if _, subscribed := c.entityToSessions[s.EntityID]; !subscribed {
			continue
		}
		if entityUnchanged(prior[s.EntityID], e) {
			continue
		}
		c.fanOutChange(ctx, e)
	}
}

// entityUnchanged reports whether b has the same state and attributes
// as a. A nil a (the entity was not present in the pre-disconnect
// catalog) is always a change.
func entityUnchanged(a, b *entity.Entity) bool {
	if a == nil || b == nil {
		return false
	}
	return a.State == b.State && reflect.DeepEqual(a.Attributes, b.Attributes)
}

func (c *ControllerActor) onConnectionStatus(ctx actor.Context, msg hubclient.ConnectionStatus) {
	c.hubConnected = msg.Connected
	for _, pid := range c.sessionPIDs {
		ctx.Send(pid, DeviceStateChanged{Connected: msg.Connected})
	}
}

func (c *ControllerActor) upsertEntity(id, hubState string, attrs map[string]any) *entity.Entity {
	eid := entity.ID(id)
	dom := eid.Domain()
	remoteState := hubState
	if tr, ok := c.registry.For(dom); ok && dom != entity.DomainSensor {
		remoteState = tr.StateToRemote(hubState)
		if !tr.KnownState(hubState) && c.unknownStateLimiter.Allow(ratelimit.Key(string(dom), id+"|"+hubState)) {
			c.logger.Warn("unrecognized hub state", zap.String("entity_id", id), zap.String("state", hubState))
		}
	}
	e := &entity.Entity{
		ID:         eid,
		Domain:     dom,
		State:      remoteState,
		Attributes: entity.AttributesToRemote(dom, attrs),
	}
	if name, ok := attrs["friendly_name"].(string); ok {
		e.FriendlyName = name
	}
	c.catalog.Put(e)
	return e
}

func (c *ControllerActor) fanOutChange(ctx actor.Context, e *entity.Entity) {
	sessions, ok := c.entityToSessions[string(e.ID)]
	if !ok {
		return
	}
	for _, pid := range sessions {
		ctx.Send(pid, EntityChange{
			EntityID:   string(e.ID),
			EntityType: string(e.Domain),
			State:      e.State,
			Attributes: e.Attributes,
		})
	}
}

func (c *ControllerActor) onRegisterSession(ctx actor.Context, msg RegisterSession) {
	ctx.Watch(msg.PID)
	c.sessionPIDs[msg.SessionID] = msg.PID
	if _, ok := c.sessionToEntities[msg.SessionID]; !ok {
		c.sessionToEntities[msg.SessionID] = make(map[string]struct{})
	}
}

func (c *ControllerActor) onUnregisterSession(msg UnregisterSession) {
	c.removeSession(msg.SessionID)
}

func (c *ControllerActor) onTerminated(who *actor.PID) {
	for sessionID, pid := range c.sessionPIDs {
		if pid.Address == who.Address && pid.Id == who.Id {
			c.removeSession(sessionID)
			return
		}
	}
}

func (c *ControllerActor) removeSession(sessionID string) {
	entities := c.sessionToEntities[sessionID]
	for eid := range entities {
		delete(c.entityToSessions[eid], sessionID)
		if len(c.entityToSessions[eid]) == 0 {
			delete(c.entityToSessions, eid)
		}
	}
	delete(c.sessionToEntities, sessionID)
	delete(c.sessionPIDs, sessionID)
}

func (c *ControllerActor) onSubscribe(ctx actor.Context, msg SubscribeEntities) {
	if _, ok := c.sessionToEntities[msg.SessionID]; !ok {
		c.sessionToEntities[msg.SessionID] = make(map[string]struct{})
	}
	sender := ctx.Sender()
	// Fan-out goes to the PID registered for the session; the sender of
	// this request is usually a short-lived request future.
	target := sender
	if pid, ok := c.sessionPIDs[msg.SessionID]; ok {
		target = pid
	}
	for _, eid := range msg.EntityIDs {
		c.sessionToEntities[msg.SessionID][eid] = struct{}{}
		if _, ok := c.entityToSessions[eid]; !ok {
			c.entityToSessions[eid] = make(map[string]*actor.PID)
		}
		c.entityToSessions[eid][msg.SessionID] = target
	}
	c.respond(ctx, msg.RequestMixIn, sender, SubscribeAck{})
}

func (c *ControllerActor) onUnsubscribe(ctx actor.Context, msg UnsubscribeEntities) {
	for _, eid := range msg.EntityIDs {
		delete(c.sessionToEntities[msg.SessionID], eid)
		if sessions, ok := c.entityToSessions[eid]; ok {
			delete(sessions, msg.SessionID)
			if len(sessions) == 0 {
				delete(c.entityToSessions, eid)
			}
		}
	}
	c.respond(ctx, msg.RequestMixIn, ctx.Sender(), SubscribeAck{})
}

func (c *ControllerActor) onEntityCommand(ctx actor.Context, msg EntityCommand) {
	e, ok := c.catalog.Get(entity.ID(msg.EntityID))
	if !ok {
		c.respondEntityCommand(ctx, msg, entity.ErrEntityUnknown)
		return
	}
	tr, ok := c.registry.For(e.Domain)
	if !ok {
		c.respondEntityCommand(ctx, msg, entity.ErrNotSupported)
		return
	}
	call, err := tr.TranslateCommand(entity.ID(msg.EntityID), msg.CmdID, msg.Params)
	if err != nil {
		c.respondEntityCommand(ctx, msg, err)
		return
	}
	if c.hubClient == nil || !c.hubConnected {
		c.respondEntityCommand(ctx, msg, hubclient.ErrNotConnected)
		return
	}
	future := ctx.RequestFuture(c.hubClient, hubclient.CallServiceRequest{Call: call}, 10*time.Second)
	sender := ctx.Sender()
	replyTo := msg.ReplyToRef
	ctx.ReenterAfter(future, func(res any, err error) {
		if err != nil {
			c.respondEntityCommandTo(ctx, sender, replyTo, err)
			return
		}
		resp, _ := res.(hubclient.CallServiceResponse)
		c.respondEntityCommandTo(ctx, sender, replyTo, resp.ResponseError)
	})
}

func (c *ControllerActor) respondEntityCommand(ctx actor.Context, msg EntityCommand, err error) {
	c.respondEntityCommandTo(ctx, ctx.Sender(), msg.ReplyToRef, err)
}

func (c *ControllerActor) respondEntityCommandTo(ctx actor.Context, sender *actor.PID, replyTo *domain.ActorRef, err error) {
	resp := EntityCommandResponse{ResponseMixIn: domain.ResponseMixIn{ResponseError: err}}
	if replyTo != nil {
		ctx.Send((*actor.PID)(replyTo), resp)
		return
	}
	if sender != nil {
		ctx.Send(sender, resp)
	}
}

func (c *ControllerActor) onGetAvailableEntities(ctx actor.Context, msg GetAvailableEntities) {
	resp := GetAvailableEntitiesResponse{Entities: c.catalog.All()}
	c.respond(ctx, msg.RequestMixIn, ctx.Sender(), resp)
}

func (c *ControllerActor) onGetEntityStates(ctx actor.Context, msg GetEntityStates) {
	var entities []*entity.Entity
	if len(msg.EntityIDs) == 0 {
		entities = c.catalog.All()
	} else {
		for _, id := range msg.EntityIDs {
			if e, ok := c.catalog.Get(entity.ID(id)); ok {
				entities = append(entities, e)
			}
		}
	}
	c.respond(ctx, msg.RequestMixIn, ctx.Sender(), GetEntityStatesResponse{Entities: entities})
}

func (c *ControllerActor) respond(ctx actor.Context, req domain.RequestMixIn, sender *actor.PID, resp any) {
	if req.ReplyToRef != nil {
		ctx.Send((*actor.PID)(req.ReplyToRef), resp)
		return
	}
	if sender != nil {
		ctx.Send(sender, resp)
		return
	}
	ctx.Respond(resp)
}

func (c *ControllerActor) onHealthRequest(ctx actor.Context, msg domain.HealthRequest) {
	respondTo := ctx.Sender()
	if c.hubClient == nil {
		c.replyHealth(ctx, respondTo, false, "no hub client")
		return
	}
	future := ctx.RequestFuture(c.hubClient, domain.HealthRequest{}, 500*time.Millisecond)
	ctx.ReenterAfter(future, func(res any, err error) {
		if err != nil {
			c.replyHealth(ctx, respondTo, false, fmt.Sprintf("hub client error: %s", err))
			return
		}
		resp, _ := res.(domain.HealthResponse)
		c.replyHealth(ctx, respondTo, resp.Healthy, resp.State)
	})
}

func (c *ControllerActor) replyHealth(ctx actor.Context, respondTo *actor.PID, healthy bool, state string) {
	resp := domain.HealthResponse{
		Id:                ActorID,
		Healthy:           healthy,
		State:             state,
		OutOfOrderDropped: c.catalog.DroppedOutOfOrder(),
	}
	if respondTo != nil {
		ctx.Send(respondTo, resp)
	} else {
		ctx.Respond(resp)
	}
}

func (c *ControllerActor) teardown() {
	if c.eventSub != nil {
		c.eventStream.Unsubscribe(c.eventSub)
		c.eventSub = nil
	}
}
