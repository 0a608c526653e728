// Package domain holds message shapes shared across actor packages:
// the request/response mixins every ask-pattern message embeds, and the
// health-check protocol every supervised actor answers.
package domain

import "github.com/asynkron/protoactor-go/actor"

// ActorRef is a serializable stand-in for *actor.PID, used in request
// messages so a request can carry an explicit reply-to address distinct
// from the protoactor sender (needed when a message is relayed through
// an intermediate actor, e.g. controller -> hub client -> controller).
type ActorRef actor.PID

// RequestMixIn is embedded by every message that expects a reply routed
// to something other than ctx.Sender().
type RequestMixIn struct {
	ReplyToRef *ActorRef
}

type Request interface {
	ReplyTo() *ActorRef
}

func (r RequestMixIn) ReplyTo() *ActorRef {
	return r.ReplyToRef
}

// ResponseMixIn carries an optional error on any response message.
type ResponseMixIn struct {
	ResponseError error
}

type Response interface {
	GetResponseError() error
	HasResponseError() bool
}

func (r ResponseMixIn) GetResponseError() error {
	return r.ResponseError
}

func (r ResponseMixIn) HasResponseError() bool {
	return r.ResponseError != nil
}

// HealthRequest/HealthResponse is the health-check protocol every
// supervised actor (hub client, controller, each remote session)
// answers, used both by the HTTP /healthcheck route and by the
// controller's own fan-out health check of its children.
type HealthRequest struct {
	RequestMixIn
}

type HealthResponse struct {
	ResponseMixIn
	Id      string
	Healthy bool
	State   string

	// OutOfOrderDropped is the controller's running count of
	// state_changed events dropped as stale by entity.Catalog.Accept;
	// zero for every other actor's health response.
	OutOfOrderDropped int64
}
