package server

import (
	"sync"

	"github.com/asynkron/protoactor-go/actor"
)

// sessionRegistry tracks every currently-live remote session PID so a
// graceful shutdown can broadcast Closing to all of them. Entries are
// removed automatically once a session actor terminates.
type sessionRegistry struct {
	mu   sync.Mutex
	pids map[string]*actor.PID
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{pids: make(map[string]*actor.PID)}
}

func (r *sessionRegistry) add(pid *actor.PID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pids[pid.Id] = pid
}

func (r *sessionRegistry) remove(pid *actor.PID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pids, pid.Id)
}

func (r *sessionRegistry) snapshot() []*actor.PID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*actor.PID, 0, len(r.pids))
	for _, pid := range r.pids {
		out = append(out, pid)
	}
	return out
}

func (r *sessionRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pids)
}

// sessionWatcher deregisters a session from the registry once it
// terminates, the same Watch/Terminated pattern the controller uses
// for its own session bookkeeping.
type sessionWatcher struct {
	registry *sessionRegistry
	target   *actor.PID
}

func (w *sessionWatcher) Receive(ctx actor.Context) {
	switch ctx.Message().(type) {
	case *actor.Started:
		ctx.Watch(w.target)
	case *actor.Terminated:
		w.registry.remove(w.target)
		ctx.Stop(ctx.Self())
	}
}
