// Package entity holds the typed entity catalog and the per-domain
// translation tables between hub states/attributes/commands and the
// remote integration protocol's equivalents.
package entity

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// ID is a hub-scoped entity identifier, e.g. "light.kitchen". The part
// before the first "." is always the Domain.
type ID string

// Domain returns the entity's domain, the part of the id before the
// first dot.
func (id ID) Domain() Domain {
	s := string(id)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return Domain(s[:i])
	}
	return Domain(s)
}

// Domain names, matching the hub's entity_id domain prefixes.
type Domain string

const (
	DomainLight        Domain = "light"
	DomainSwitch       Domain = "switch"
	DomainCover        Domain = "cover"
	DomainMediaPlayer  Domain = "media_player"
	DomainClimate      Domain = "climate"
	DomainSensor       Domain = "sensor"
	DomainBinarySensor Domain = "binary_sensor"
	DomainButton       Domain = "button"
	DomainScene        Domain = "scene"
	DomainInputBoolean Domain = "input_boolean"
)

// RemoteStateUnavailable is the remote-protocol state every domain maps
// an unrecognized hub state to.
const RemoteStateUnavailable = "UNAVAILABLE"

// Entity is the bridge's last-known representation of a hub entity. It
// is created on first observation, mutated only by hub state events,
// and destroyed on hub-reported removal or full resync.
type Entity struct {
	ID           ID
	Domain       Domain
	FriendlyName string
	Features     map[string]struct{}
	State        string
	Attributes   map[string]any
}

// HasFeature reports whether the entity advertises the given
// remote-protocol feature name.
func (e *Entity) HasFeature(feature string) bool {
	_, ok := e.Features[feature]
	return ok
}

// Catalog is the controller's single-writer store of all currently
// known entities, keyed by ID. It is not safe for concurrent use by
// design: spec.md assigns it exclusively to the controller actor's
// mailbox goroutine.
type Catalog struct {
	entities map[ID]*Entity
	lastSeen map[ID]time.Time

	droppedOutOfOrder atomic.Int64
}

func NewCatalog() *Catalog {
	return &Catalog{
		entities: make(map[ID]*Entity),
		lastSeen: make(map[ID]time.Time),
	}
}

// Accept reports whether a state update for id carrying hub timestamp
// t should be applied: it is always accepted if the hub supplied no
// timestamp, and otherwise only if it is not older than the last
// accepted timestamp for id. Out-of-order updates are dropped and
// counted rather than reordered, per spec.md §4.3/§9.
func (c *Catalog) Accept(id ID, t time.Time) bool {
	if t.IsZero() {
		return true
	}
	if last, ok := c.lastSeen[id]; ok && t.Before(last) {
		c.droppedOutOfOrder.Add(1)
		return false
	}
	c.lastSeen[id] = t
	return true
}

// DroppedOutOfOrder returns the running count of state updates Accept
// has rejected as stale, surfaced through the health-check response.
func (c *Catalog) DroppedOutOfOrder() int64 {
	return c.droppedOutOfOrder.Load()
}

func (c *Catalog) Get(id ID) (*Entity, bool) {
	e, ok := c.entities[id]
	return e, ok
}

func (c *Catalog) Put(e *Entity) {
	c.entities[e.ID] = e
}

func (c *Catalog) Remove(id ID) {
	delete(c.entities, id)
}

func (c *Catalog) All() []*Entity {
	out := make([]*Entity, 0, len(c.entities))
	for _, e := range c.entities {
		out = append(out, e)
	}
	return out
}

func (c *Catalog) Len() int {
	return len(c.entities)
}

// Reset clears the catalog, used on full resync before repopulating
// from a fresh hub snapshot. lastSeen is cleared along with it since a
// reconnect establishes a new monotonic baseline for ordering; callers
// that need to detect which entities actually changed across the
// reconnect must snapshot the prior entities before calling Reset.
func (c *Catalog) Reset() {
	c.entities = make(map[ID]*Entity)
	c.lastSeen = make(map[ID]time.Time)
}

// ErrState reports a violation of the "state ∈ allowed_states(domain)"
// invariant; used only internally for assertions in tests.
func ErrState(e *Entity, allowed []string) error {
	for _, s := range allowed {
		if s == e.State {
			return nil
		}
	}
	return fmt.Errorf("entity %s: state %q not in allowed states %v", e.ID, e.State, allowed)
}
