package entity

import "fmt"

// ServiceCall is a hub call_service invocation a remote command
// translates into.
type ServiceCall struct {
	Domain  string
	Service string
	Data    map[string]any
}

// CommandBuilder maps a remote command's parameters to a hub
// call_service payload. It returns ErrBadParameter for malformed
// params.
type CommandBuilder func(entityID ID, params map[string]any) (ServiceCall, error)

// Translator is one domain's entry in the translation table: the set
// of hub states it recognizes, the remote state each maps to, and the
// remote commands it accepts.
type Translator struct {
	Domain        Domain
	AllowedStates []string
	StateMap      map[string]string // hub state -> remote state
	Commands      map[string]CommandBuilder
	Features      []string // remote-protocol feature enum this domain can advertise
}

// StateToRemote maps a hub state to its remote-protocol equivalent.
// Unknown hub states map to UNAVAILABLE: translation is tolerant, never
// fatal, on this axis (spec.md §4.2).
func (t *Translator) StateToRemote(hubState string) string {
	if remote, ok := t.StateMap[hubState]; ok {
		return remote
	}
	return RemoteStateUnavailable
}

// KnownState reports whether hubState has an explicit mapping, so
// callers can decide whether an UNAVAILABLE result should also log a
// rate-limited warning about an unrecognized state.
func (t *Translator) KnownState(hubState string) bool {
	_, ok := t.StateMap[hubState]
	return ok
}

// TranslateCommand maps a remote command into a hub service call.
// Unknown commands fail with ErrNotSupported: translation is total on
// the commands listed in the table but never silently accepts an
// unlisted one.
func (t *Translator) TranslateCommand(entityID ID, cmdID string, params map[string]any) (ServiceCall, error) {
	builder, ok := t.Commands[cmdID]
	if !ok {
		return ServiceCall{}, fmt.Errorf("%w: %s.%s", ErrNotSupported, t.Domain, cmdID)
	}
	return builder(entityID, params)
}

// Registry is the "dynamic dispatch over entity domains" table from
// spec.md §9: a registry keyed by domain string that dispatches to the
// per-domain translator at message boundaries only, rather than an
// inheritance hierarchy of entity types.
type Registry struct {
	translators map[Domain]*Translator
}

func NewRegistry() *Registry {
	return &Registry{translators: make(map[Domain]*Translator)}
}

func (r *Registry) Register(t *Translator) {
	r.translators[t.Domain] = t
}

func (r *Registry) For(d Domain) (*Translator, bool) {
	t, ok := r.translators[d]
	return t, ok
}

// DefaultRegistry returns a Registry with every domain translator this
// bridge ships registered, as built fresh by each caller (controller
// startup) rather than shared global mutable state.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(lightTranslator())
	r.Register(switchTranslator())
	r.Register(coverTranslator())
	r.Register(mediaPlayerTranslator())
	r.Register(climateTranslator())
	r.Register(sensorTranslator())
	r.Register(binarySensorTranslator())
	r.Register(buttonTranslator())
	r.Register(sceneTranslator())
	r.Register(inputBooleanTranslator())
	return r
}

func paramInt(params map[string]any, key string) (int, bool, error) {
	raw, ok := params[key]
	if !ok {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case int:
		return v, true, nil
	case int64:
		return int(v), true, nil
	case float64:
		return int(v), true, nil
	default:
		return 0, true, fmt.Errorf("%w: %s is not numeric", ErrBadParameter, key)
	}
}

func paramFloat(params map[string]any, key string) (float64, bool, error) {
	raw, ok := params[key]
	if !ok {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, true, nil
	case int:
		return float64(v), true, nil
	default:
		return 0, true, fmt.Errorf("%w: %s is not numeric", ErrBadParameter, key)
	}
}

func paramString(params map[string]any, key string) (string, bool, error) {
	raw, ok := params[key]
	if !ok {
		return "", false, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", true, fmt.Errorf("%w: %s is not a string", ErrBadParameter, key)
	}
	return s, true, nil
}
