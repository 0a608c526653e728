package hubclient

import (
	"github.com/ucbridge/ha-integration-bridge/internal/domain"
	"github.com/ucbridge/ha-integration-bridge/internal/entity"
	"github.com/ucbridge/ha-integration-bridge/internal/proto/hub"
)

const ActorID = "hubclient"

// CallServiceRequest asks the hub client to invoke a call_service and
// correlates the reply through the client's own pending-request table.
type CallServiceRequest struct {
	domain.RequestMixIn
	Call entity.ServiceCall
}

type CallServiceResponse struct {
	domain.ResponseMixIn
}

// GetStatesRequest asks for a fresh get_states snapshot outside the
// normal Subscribing-state fetch; it is answered only while Running.
type GetStatesRequest struct {
	domain.RequestMixIn
}

type GetStatesResponse struct {
	domain.ResponseMixIn
	States []hub.State
}

// StateChanged is published on the shared event stream whenever a
// state_changed event arrives while Running.
type StateChanged struct {
	EntityID string
	OldState *hub.State
	NewState *hub.State
}

// Reconnected is published after a fresh get_states snapshot is fetched
// following a reconnect, so the controller can resync its catalog and
// diff against currently-subscribed entities (spec.md §4.5/§8 invariant
// 5).
type Reconnected struct {
	Snapshot []hub.State
}

// ConnectionStatus is published on every Disconnected<->Running
// transition so the controller can fan out a device_state event to
// every remote session (spec.md §4.4).
type ConnectionStatus struct {
	Connected bool
}

type wsFrame struct {
	frame *hub.Frame
}

type wsClosed struct {
	err error
}

type dialOutcome struct {
	conn *wsConn
	err  error
}

type heartbeatTick struct{}

type heartbeatTimeout struct {
	id uint32
}

type reconnectNow struct{}

// pendingEntry is one outstanding request keyed by wire id. onResult
// runs on the frame the hub sends back; onError runs if the request is
// abandoned (deadline, disconnect) before a reply arrives.
type pendingEntry struct {
	onResult func(*hub.Frame)
	onError  func(error)
}
