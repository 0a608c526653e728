package actorutil

import (
	"github.com/asynkron/protoactor-go/actor"
)

// Stash holds messages an actor received while it could not yet handle
// them (mid-transition, waiting on a future). Unstashing replays them
// through the actor's own mailbox, preserving FIFO order relative to
// whatever arrives after the transition completes.
type Stash struct {
	stash []stashElem
}

type stashElem struct {
	msg    any
	sender *actor.PID
}

func (s *Stash) Stash(ctx actor.Context, msg any) {
	s.stash = append(s.stash, stashElem{
		msg:    msg,
		sender: ctx.Sender(),
	})
}

func (s *Stash) UnstashAll(ctx actor.Context) {
	for _, elem := range s.stash {
		ctx.RequestWithCustomSender(ctx.Self(), elem.msg, elem.sender)
	}
	s.stash = nil
}

func (s *Stash) UnstashOldest(ctx actor.Context) {
	if len(s.stash) > 0 {
		first := s.stash[0]
		ctx.RequestWithCustomSender(ctx.Self(), first.msg, first.sender)
		s.stash = s.stash[1:]
	}
}

func (s *Stash) Len() int {
	return len(s.stash)
}
