package controller

import (
	"github.com/asynkron/protoactor-go/actor"

	"github.com/ucbridge/ha-integration-bridge/internal/config"
	"github.com/ucbridge/ha-integration-bridge/internal/domain"
	"github.com/ucbridge/ha-integration-bridge/internal/entity"
)

const ActorID = "controller"

// ReconfigureHub asks the controller to tear down its current hub
// client child and replace it with one built from Cfg, used after a
// remote session's setup flow persists new hub credentials.
type ReconfigureHub struct {
	Cfg config.HassConfig
}

// RegisterSession adds a remote-session actor to the subscription
// registry, watched so its eventual *actor.Terminated cleans up every
// subscription it holds (spec.md §4.5).
type RegisterSession struct {
	SessionID string
	PID       *actor.PID
}

type UnregisterSession struct {
	SessionID string
}

// SubscribeEntities/UnsubscribeEntities mutate the two-way registry
// atomically from the controller's single mailbox goroutine.
type SubscribeEntities struct {
	domain.RequestMixIn
	SessionID string
	EntityIDs []string
}

type UnsubscribeEntities struct {
	domain.RequestMixIn
	SessionID string
	EntityIDs []string
}

type SubscribeAck struct {
	domain.ResponseMixIn
}

// EntityCommand forwards a remote-issued command for translation and
// hub dispatch.
type EntityCommand struct {
	domain.RequestMixIn
	EntityID string
	CmdID    string
	Params   map[string]any
}

type EntityCommandResponse struct {
	domain.ResponseMixIn
}

type GetAvailableEntities struct {
	domain.RequestMixIn
}

type GetAvailableEntitiesResponse struct {
	domain.ResponseMixIn
	Entities []*entity.Entity
}

type GetEntityStates struct {
	domain.RequestMixIn
	EntityIDs []string
}

type GetEntityStatesResponse struct {
	domain.ResponseMixIn
	Entities []*entity.Entity
}

// EntityChange is sent to a subscribed session's mailbox whenever the
// catalog's view of an entity changes, be it from a live hub event or a
// reconnect resync diff.
type EntityChange struct {
	EntityID   string
	EntityType string
	State      string
	Attributes map[string]any
}

// DeviceStateChanged is broadcast to every registered session when the
// hub client's connection status flips.
type DeviceStateChanged struct {
	Connected bool
}
